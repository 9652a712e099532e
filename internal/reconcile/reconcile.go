// Package reconcile implements the periodic jobs that pull the three
// states — ledger, platform, report — back together. The platform is
// the authority for remote facts (visibility, publish time, existence);
// the ledger is the authority for intent; the report only ever follows.
package reconcile

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"yt-publish-scheduler/internal/drive"
	"yt-publish-scheduler/internal/ledger"
	"yt-publish-scheduler/internal/model"
	"yt-publish-scheduler/internal/sheet"
	"yt-publish-scheduler/internal/youtube"
)

// driftTolerance is how far the remote publish time may differ from the
// ledger slot before the ledger follows it.
const driftTolerance = time.Minute

// Store is the slice of the ledger the reconciliation jobs use.
type Store interface {
	ReadyForPublish(ctx context.Context, limit int) ([]model.ScheduleRecord, error)
	PublishedForReconcile(ctx context.Context, limit int) ([]model.ScheduleRecord, error)
	DriftCandidates(ctx context.Context, limit int) ([]model.ScheduleRecord, error)
	FutureUploaded(ctx context.Context) ([]model.ScheduleRecord, error)
	PublishedWithVideoID(ctx context.Context) ([]model.ScheduleRecord, error)
	ExistingVideoIDs(ctx context.Context) (map[string]bool, error)
	MarkPublished(ctx context.Context, id int64) error
	MarkDeleted(ctx context.Context, id int64) error
	Restore(ctx context.Context, id int64) error
	AlignScheduleTime(ctx context.Context, id int64, t time.Time) error
	UpdateMetaTitle(ctx context.Context, id int64, title string) error
}

type Locker interface {
	TryLock(ctx context.Context, key int64) (*ledger.AdvisoryLock, bool, error)
}

// Mover reparents a folder and returns its shareable link.
type Mover interface {
	MoveToParent(ctx context.Context, fileID, newParentID string) (string, error)
}

// Report is the slice of the sheet mirror the jobs write through. Every
// write re-resolves its row; a false return means no row resolved and
// nothing was written.
type Report interface {
	MarkPublished(ctx context.Context, q sheet.Query, videoID, folderURL, title string) (bool, error)
	SetStatus(ctx context.Context, q sheet.Query, status string) (bool, error)
	UpdateViews(ctx context.Context, q sheet.Query, views int64) (bool, error)
	Rows(ctx context.Context) ([]sheet.ReportRow, error)
	DeleteRowIndices(ctx context.Context, rows []int) error
	FormatDate(t time.Time) string
}

type Jobs struct {
	Store  Store
	Locker Locker
	API    youtube.API
	Mover  Mover
	Report Report

	// PublishedParentID is where folders of published videos are moved.
	PublishedParentID string
}

// PromoteResult summarizes one publish-promotion pass.
type PromoteResult struct {
	RunID        string   `json:"run_id"`
	DryRun       bool     `json:"dry_run"`
	Checked      int      `json:"checked"`
	Published    int      `json:"published"`
	Moved        int      `json:"moved"`
	SheetUpdated int      `json:"sheet_updated"`
	Skipped      int      `json:"skipped"`
	Errors       []string `json:"errors,omitempty"`
}

// DriftResult summarizes one schedule-drift pass.
type DriftResult struct {
	RunID     string   `json:"run_id"`
	Checked   int      `json:"checked"`
	Aligned   int      `json:"aligned"`
	Published int      `json:"published"`
	Restored  int      `json:"restored"`
	Errors    []string `json:"errors,omitempty"`
}

// DeletionsResult summarizes one deletion-detection pass.
type DeletionsResult struct {
	RunID   string   `json:"run_id"`
	Checked int      `json:"checked"`
	Deleted int      `json:"deleted"`
	Errors  []string `json:"errors,omitempty"`
}

// moveFolder reparents the folder under the published tree and returns
// the link for the report. The move is best-effort: the deterministic
// folder URL stands in when it fails, so the report never loses the
// link.
func (j Jobs) moveFolder(ctx context.Context, folderID string) (string, bool) {
	if j.Mover == nil || j.PublishedParentID == "" {
		return drive.FolderURL(folderID), false
	}
	link, err := j.Mover.MoveToParent(ctx, folderID, j.PublishedParentID)
	if err != nil {
		log.Printf("[reconcile] move folder %s skipped: %v", folderID, err)
		return drive.FolderURL(folderID), false
	}
	if link == "" {
		link = drive.FolderURL(folderID)
	}
	return link, true
}

func (j Jobs) rowQuery(rec model.ScheduleRecord, title string) sheet.Query {
	if title == "" {
		title = rec.FolderName
	}
	return sheet.Query{
		HintRow:     rec.SheetRow,
		ExpectTitle: title,
		ExpectDate:  j.Report.FormatDate(rec.ScheduleTime),
		VideoID:     rec.YoutubeVideoID,
		FolderURL:   drive.FolderURL(rec.FolderID),
	}
}

// PromotePublished finds due records whose remote video went public and
// promotes them: ledger → published, folder moved to the published
// tree, report row marked. One batched remote fetch covers the whole
// batch. With dryRun nothing is written anywhere.
func (j Jobs) PromotePublished(ctx context.Context, dryRun bool) (PromoteResult, error) {
	res := PromoteResult{RunID: uuid.NewString(), DryRun: dryRun}

	recs, err := j.Store.ReadyForPublish(ctx, 0)
	if err != nil {
		return res, err
	}
	res.Checked = len(recs)
	if len(recs) == 0 {
		return res, nil
	}

	ids := make([]string, 0, len(recs))
	for _, r := range recs {
		ids = append(ids, r.YoutubeVideoID)
	}
	statuses, err := j.API.BatchGetStatus(ctx, ids)
	if err != nil {
		return res, fmt.Errorf("fetch remote statuses: %w", err)
	}

	for _, rec := range recs {
		st, ok := statuses[rec.YoutubeVideoID]
		if !ok || st.Visibility != youtube.VisibilityPublic {
			res.Skipped++
			continue
		}
		if dryRun {
			res.Published++
			continue
		}
		if err := j.Store.MarkPublished(ctx, rec.ID); err != nil {
			res.Errors = append(res.Errors, fmt.Sprintf("mark published %d: %v", rec.ID, err))
			continue
		}
		res.Published++

		link, moved := j.moveFolder(ctx, rec.FolderID)
		if moved {
			res.Moved++
		}
		ok, err := j.Report.MarkPublished(ctx, j.rowQuery(rec, st.Title), rec.YoutubeVideoID, link, st.Title)
		if err != nil {
			res.Errors = append(res.Errors, fmt.Sprintf("report row for %d: %v", rec.ID, err))
		} else if ok {
			res.SheetUpdated++
		}
	}

	log.Printf("[promote %s] checked=%d published=%d moved=%d sheet=%d skipped=%d dry=%v",
		res.RunID, res.Checked, res.Published, res.Moved, res.SheetUpdated, res.Skipped, dryRun)
	return res, nil
}

// ScheduleDrift follows out-of-band edits made in the platform studio.
// Remote publish-time changes rewrite the ledger slot; a video made
// public early is promoted; a record wrongly marked deleted but still
// present remotely is restored. The whole pass aborts when the batched
// remote fetch fails, so stale data never drives a write. Running it
// twice in a row is a no-op.
func (j Jobs) ScheduleDrift(ctx context.Context) (DriftResult, error) {
	res := DriftResult{RunID: uuid.NewString()}

	recs, err := j.Store.DriftCandidates(ctx, 0)
	if err != nil {
		return res, err
	}
	res.Checked = len(recs)
	if len(recs) == 0 {
		return res, nil
	}

	ids := make([]string, 0, len(recs))
	for _, r := range recs {
		ids = append(ids, r.YoutubeVideoID)
	}
	statuses, err := j.API.BatchGetStatus(ctx, ids)
	if err != nil {
		return res, fmt.Errorf("fetch remote statuses: %w", err)
	}

	for _, rec := range recs {
		st, ok := statuses[rec.YoutubeVideoID]
		if !ok {
			// Absent remotely: the deletions job owns that case.
			continue
		}

		if st.Visibility == youtube.VisibilityPublic {
			if rec.Status == model.StatusPublished {
				continue
			}
			// A deleted record whose video is live again must pass
			// through uploaded before it can be promoted.
			if rec.Status == model.StatusDeleted {
				if err := j.Store.Restore(ctx, rec.ID); err != nil {
					res.Errors = append(res.Errors, fmt.Sprintf("restore %d: %v", rec.ID, err))
					continue
				}
				res.Restored++
			}
			if err := j.Store.MarkPublished(ctx, rec.ID); err != nil {
				res.Errors = append(res.Errors, fmt.Sprintf("mark published %d: %v", rec.ID, err))
				continue
			}
			res.Published++
			if st.Title != "" && st.Title != rec.FolderName {
				if err := j.Store.UpdateMetaTitle(ctx, rec.ID, st.Title); err != nil {
					log.Printf("[drift] title refresh for %d skipped: %v", rec.ID, err)
				}
			}
			link, _ := j.moveFolder(ctx, rec.FolderID)
			if _, err := j.Report.MarkPublished(ctx, j.rowQuery(rec, st.Title), rec.YoutubeVideoID, link, st.Title); err != nil {
				res.Errors = append(res.Errors, fmt.Sprintf("report row for %d: %v", rec.ID, err))
			}
			continue
		}

		if rec.Status == model.StatusDeleted {
			if err := j.Store.Restore(ctx, rec.ID); err != nil {
				res.Errors = append(res.Errors, fmt.Sprintf("restore %d: %v", rec.ID, err))
				continue
			}
			res.Restored++
		}

		if st.ScheduledAt != nil {
			diff := st.ScheduledAt.Sub(rec.ScheduleTime)
			if diff < 0 {
				diff = -diff
			}
			if diff > driftTolerance {
				if err := j.Store.AlignScheduleTime(ctx, rec.ID, *st.ScheduledAt); err != nil {
					res.Errors = append(res.Errors, fmt.Sprintf("align %d: %v", rec.ID, err))
					continue
				}
				res.Aligned++
			}
		}
	}

	log.Printf("[drift %s] checked=%d aligned=%d published=%d restored=%d errors=%d",
		res.RunID, res.Checked, res.Aligned, res.Published, res.Restored, len(res.Errors))
	return res, nil
}

// Deletions marks records whose remote video vanished before its slot.
// The pending-scheduled listing is the evidence; when that listing
// fails nothing at all is written.
func (j Jobs) Deletions(ctx context.Context) (DeletionsResult, error) {
	res := DeletionsResult{RunID: uuid.NewString()}

	pending, err := j.API.ListPendingScheduled(ctx)
	if err != nil {
		return res, fmt.Errorf("list pending scheduled: %w", err)
	}
	remote := make(map[string]bool, len(pending))
	for _, v := range pending {
		remote[v.ID] = true
	}

	recs, err := j.Store.FutureUploaded(ctx)
	if err != nil {
		return res, err
	}
	res.Checked = len(recs)

	for _, rec := range recs {
		if remote[rec.YoutubeVideoID] {
			continue
		}
		if err := j.Store.MarkDeleted(ctx, rec.ID); err != nil {
			res.Errors = append(res.Errors, fmt.Sprintf("mark deleted %d: %v", rec.ID, err))
			continue
		}
		res.Deleted++
		if _, err := j.Report.SetStatus(ctx, j.rowQuery(rec, ""), "deleted"); err != nil {
			log.Printf("[deletions %s] report row for %d skipped: %v", res.RunID, rec.ID, err)
		}
	}

	log.Printf("[deletions %s] checked=%d deleted=%d errors=%d",
		res.RunID, res.Checked, res.Deleted, len(res.Errors))
	return res, nil
}
