// Package pipeline orchestrates the path from a cloud folder to a
// scheduled platform upload: scan, claim, slot, upload, record, report.
// The ledger is the only durable authority; sheet writes and operator
// notifications are best-effort and never fail a run.
package pipeline

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"yt-publish-scheduler/internal/drive"
	"yt-publish-scheduler/internal/ledger"
	"yt-publish-scheduler/internal/metatext"
	"yt-publish-scheduler/internal/model"
)

// Store is the slice of the ledger the pipeline mutates.
type Store interface {
	Insert(ctx context.Context, rec model.ScheduleRecord) (int64, error)
	InsertBasic(ctx context.Context, rec model.ScheduleRecord) (int64, error)
	MarkUploaded(ctx context.Context, id int64, videoID string) error
	MarkFailed(ctx context.Context, id int64, errText string) error
	MarkError(ctx context.Context, id int64, errText string) error
	SetSheetRow(ctx context.Context, id int64, row int) error
	DueForUpload(ctx context.Context, now time.Time, limit int) ([]model.ScheduleRecord, error)
}

// Locker hands out the store-held advisory lock that keeps due-upload
// runs single-flight across processes.
type Locker interface {
	TryLock(ctx context.Context, key int64) (*ledger.AdvisoryLock, bool, error)
}

// Uploader takes one folder to the platform with a scheduled publish
// instant.
type Uploader interface {
	Upload(ctx context.Context, folderID string, meta model.VideoMeta, when time.Time) (string, error)
	RefreshThumbnail(ctx context.Context, videoID, folderID string) error
}

// Reporter appends the human-readable report row for a fresh schedule.
type Reporter interface {
	AppendScheduled(ctx context.Context, sid int64, when time.Time, title, folderURL, keywords string) (int, error)
}

// Slots allocates non-colliding future publish instants.
type Slots interface {
	Allocate(ctx context.Context, videoType string, n int) ([]time.Time, error)
}

// Notifier pushes a short operator message. Failures are logged, never
// returned.
type Notifier interface {
	Notify(ctx context.Context, message string) error
}

type Pipeline struct {
	Store    Store
	Locker   Locker
	Drive    drive.Service
	Uploader Uploader
	Reporter Reporter
	Slots    Slots
	Notify   Notifier // optional

	// ParentFolderID is the root the scanner walks: one child folder
	// per candidate video.
	ParentFolderID string
	ActorID        string
	DueBatchLimit  int
}

// ScanResult summarizes one scan-and-schedule run.
type ScanResult struct {
	RunID    string   `json:"run_id"`
	Scanned  int      `json:"scanned"`
	Claimed  int      `json:"claimed"`
	Uploaded int      `json:"uploaded"`
	Failed   int      `json:"failed"`
	Skipped  int      `json:"skipped"`
	Errors   []string `json:"errors,omitempty"`
}

// DueResult summarizes one due-uploads run. Skipped means another
// worker held the lock and nothing was attempted.
type DueResult struct {
	RunID    string   `json:"run_id"`
	Skipped  bool     `json:"skipped"`
	Checked  int      `json:"checked"`
	Uploaded int      `json:"uploaded"`
	Failed   int      `json:"failed"`
	Errors   []string `json:"errors,omitempty"`
}

func (p Pipeline) notify(ctx context.Context, msg string) {
	if p.Notify == nil {
		return
	}
	if err := p.Notify.Notify(ctx, msg); err != nil {
		log.Printf("[pipeline] notify skipped: %v", err)
	}
}

// appendReportRow writes the report row and remembers its index; both
// steps are best-effort.
func (p Pipeline) appendReportRow(ctx context.Context, id int64, when time.Time, title, folderID string, tags []string) {
	if p.Reporter == nil {
		return
	}
	row, err := p.Reporter.AppendScheduled(ctx, id, when, title, drive.FolderURL(folderID), strings.Join(tags, ", "))
	if err != nil {
		log.Printf("[pipeline] report append for schedule %d skipped: %v", id, err)
		return
	}
	if err := p.Store.SetSheetRow(ctx, id, row); err != nil {
		log.Printf("[pipeline] remember report row for schedule %d skipped: %v", id, err)
	}
}

// ScanAndSchedule walks the parent folder, claims each unclaimed child,
// assigns publish slots per video type (shorts before long videos) and
// uploads immediately with the slot as scheduled publish time. A failed
// upload marks the record failed and moves on; the next run does not
// re-claim the folder.
func (p Pipeline) ScanAndSchedule(ctx context.Context) (ScanResult, error) {
	res := ScanResult{RunID: uuid.NewString()}

	folders, err := p.Drive.ListChildFolders(ctx, p.ParentFolderID)
	if err != nil {
		return res, fmt.Errorf("list candidate folders: %w", err)
	}
	res.Scanned = len(folders)
	if len(folders) == 0 {
		return res, nil
	}

	inspector := drive.Inspector{Service: p.Drive}
	byType := map[string][]drive.Candidate{}
	for _, f := range folders {
		cand, err := inspector.Inspect(ctx, f)
		if err != nil {
			res.Errors = append(res.Errors, fmt.Sprintf("inspect %s: %v", f.ID, err))
			continue
		}
		if cand.Meta.Title == "" {
			cand.Meta.Title = f.Name
		}
		byType[cand.VideoType] = append(byType[cand.VideoType], cand)
	}

	for _, vtype := range []string{model.VideoTypeShort, model.VideoTypeLong} {
		cands := byType[vtype]
		if len(cands) == 0 {
			continue
		}
		slots, err := p.Slots.Allocate(ctx, vtype, len(cands))
		if err != nil {
			res.Errors = append(res.Errors, fmt.Sprintf("allocate %s slots: %v", vtype, err))
			continue
		}
		// Slots are consumed as a queue: a candidate someone else
		// already claimed hands its slot to the next one.
		next := 0
		for _, cand := range cands {
			if next >= len(slots) {
				res.Errors = append(res.Errors, fmt.Sprintf("no slot left for folder %s", cand.FolderID))
				break
			}
			when := slots[next]
			id, err := p.Store.InsertBasic(ctx, model.ScheduleRecord{
				ActorID:      p.ActorID,
				FolderID:     cand.FolderID,
				FolderName:   cand.FolderName,
				VideoType:    cand.VideoType,
				MetaFileID:   cand.MetaFileID,
				MetaText:     cand.MetaText,
				ScheduleTime: when,
			})
			if err != nil {
				res.Errors = append(res.Errors, fmt.Sprintf("claim %s: %v", cand.FolderID, err))
				continue
			}
			if id == 0 {
				res.Skipped++
				continue
			}
			next++
			res.Claimed++

			videoID, err := p.Uploader.Upload(ctx, cand.FolderID, cand.Meta, when)
			if err != nil {
				res.Failed++
				res.Errors = append(res.Errors, fmt.Sprintf("upload %s: %v", cand.FolderID, err))
				if merr := p.Store.MarkFailed(ctx, id, err.Error()); merr != nil {
					res.Errors = append(res.Errors, fmt.Sprintf("mark failed %d: %v", id, merr))
				}
				p.notify(ctx, fmt.Sprintf("upload of %q failed: %v", cand.Meta.Title, err))
				continue
			}
			if err := p.Store.MarkUploaded(ctx, id, videoID); err != nil {
				res.Errors = append(res.Errors, fmt.Sprintf("mark uploaded %d: %v", id, err))
				continue
			}
			res.Uploaded++
			p.appendReportRow(ctx, id, when, cand.Meta.Title, cand.FolderID, cand.Meta.Tags)
			p.notify(ctx, fmt.Sprintf("scheduled %q (%s) for %s", cand.Meta.Title, vtype, when.Format(time.RFC3339)))
		}
	}

	log.Printf("[scan %s] scanned=%d claimed=%d uploaded=%d failed=%d skipped=%d errors=%d",
		res.RunID, res.Scanned, res.Claimed, res.Uploaded, res.Failed, res.Skipped, len(res.Errors))
	return res, nil
}

// ScheduleAndUpload is the single-folder variant behind external
// triggers. A zero when allocates the next free slot for the type.
// Re-submitting a folder resets its existing record (upsert semantics).
func (p Pipeline) ScheduleAndUpload(ctx context.Context, folderID, folderName, videoType string, meta model.VideoMeta, metaText string, when time.Time) (int64, string, error) {
	if videoType != model.VideoTypeShort {
		videoType = model.VideoTypeLong
	}
	if when.IsZero() {
		slots, err := p.Slots.Allocate(ctx, videoType, 1)
		if err != nil {
			return 0, "", fmt.Errorf("allocate slot: %w", err)
		}
		if len(slots) == 0 {
			return 0, "", fmt.Errorf("no free slot for type %s", videoType)
		}
		when = slots[0]
	}
	if meta.Title == "" {
		meta.Title = folderName
	}

	id, err := p.Store.Insert(ctx, model.ScheduleRecord{
		ActorID:      p.ActorID,
		FolderID:     folderID,
		FolderName:   folderName,
		VideoType:    videoType,
		MetaText:     metaText,
		ScheduleTime: when,
	})
	if err != nil {
		return 0, "", err
	}

	videoID, err := p.Uploader.Upload(ctx, folderID, meta, when)
	if err != nil {
		if merr := p.Store.MarkError(ctx, id, err.Error()); merr != nil {
			log.Printf("[pipeline] mark error %d skipped: %v", id, merr)
		}
		p.notify(ctx, fmt.Sprintf("upload of %q failed: %v", meta.Title, err))
		return id, "", fmt.Errorf("upload folder %s: %w", folderID, err)
	}
	if err := p.Store.MarkUploaded(ctx, id, videoID); err != nil {
		return id, videoID, err
	}
	p.appendReportRow(ctx, id, when, meta.Title, folderID, meta.Tags)
	p.notify(ctx, fmt.Sprintf("scheduled %q for %s", meta.Title, when.Format(time.RFC3339)))
	return id, videoID, nil
}

// RunDueUploads retries records still in scheduled state whose slot has
// arrived. The advisory lock keeps the run single-flight across every
// process sharing the store; losing the race is a quiet no-op. There is
// no in-run retry: a failure marks the record and the next run, or an
// operator, picks it up.
func (p Pipeline) RunDueUploads(ctx context.Context) (DueResult, error) {
	res := DueResult{RunID: uuid.NewString()}

	lock, ok, err := p.Locker.TryLock(ctx, ledger.LockKeyDueUploads)
	if err != nil {
		return res, fmt.Errorf("due uploads lock: %w", err)
	}
	if !ok {
		res.Skipped = true
		log.Printf("[due %s] lock held elsewhere, skipping", res.RunID)
		return res, nil
	}
	defer func() {
		if err := lock.Release(ctx); err != nil {
			log.Printf("[due %s] release lock: %v", res.RunID, err)
		}
	}()

	recs, err := p.Store.DueForUpload(ctx, time.Now(), p.DueBatchLimit)
	if err != nil {
		return res, err
	}
	res.Checked = len(recs)

	for _, rec := range recs {
		meta := metatext.Parse(rec.MetaText)
		if meta.Title == "" {
			meta.Title = rec.FolderName
		}
		videoID, err := p.Uploader.Upload(ctx, rec.FolderID, meta, rec.ScheduleTime)
		if err != nil {
			res.Failed++
			res.Errors = append(res.Errors, fmt.Sprintf("upload %s: %v", rec.FolderID, err))
			if merr := p.Store.MarkFailed(ctx, rec.ID, err.Error()); merr != nil {
				res.Errors = append(res.Errors, fmt.Sprintf("mark failed %d: %v", rec.ID, merr))
			}
			continue
		}
		if err := p.Store.MarkUploaded(ctx, rec.ID, videoID); err != nil {
			res.Errors = append(res.Errors, fmt.Sprintf("mark uploaded %d: %v", rec.ID, err))
			continue
		}
		res.Uploaded++
		if err := p.Uploader.RefreshThumbnail(ctx, videoID, rec.FolderID); err != nil {
			log.Printf("[due %s] thumbnail for %s skipped: %v", res.RunID, videoID, err)
		}
		if rec.SheetRow == 0 {
			p.appendReportRow(ctx, rec.ID, rec.ScheduleTime, meta.Title, rec.FolderID, meta.Tags)
		}
	}

	log.Printf("[due %s] checked=%d uploaded=%d failed=%d errors=%d",
		res.RunID, res.Checked, res.Uploaded, res.Failed, len(res.Errors))
	return res, nil
}
