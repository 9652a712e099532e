package reconcile

import (
	"context"
	"fmt"
	"log"

	"github.com/google/uuid"

	"yt-publish-scheduler/internal/ledger"
)

// ViewsResult summarizes one view-count refresh. Skipped means another
// worker held the lock.
type ViewsResult struct {
	RunID   string   `json:"run_id"`
	Skipped bool     `json:"skipped"`
	Checked int      `json:"checked"`
	Updated int      `json:"updated"`
	Errors  []string `json:"errors,omitempty"`
}

// SheetSyncResult summarizes one published-rows backfill pass.
type SheetSyncResult struct {
	RunID   string   `json:"run_id"`
	Checked int      `json:"checked"`
	Updated int      `json:"updated"`
	Moved   int      `json:"moved"`
	Errors  []string `json:"errors,omitempty"`
}

// RefreshViews writes current view counts into the report for every
// published record. Entirely best-effort: an unresolvable row is a
// logged skip, and the advisory lock keeps concurrent refreshes from
// hammering the quota.
func (j Jobs) RefreshViews(ctx context.Context) (ViewsResult, error) {
	res := ViewsResult{RunID: uuid.NewString()}

	lock, ok, err := j.Locker.TryLock(ctx, ledger.LockKeyRefreshViews)
	if err != nil {
		return res, fmt.Errorf("refresh views lock: %w", err)
	}
	if !ok {
		res.Skipped = true
		return res, nil
	}
	defer func() {
		if err := lock.Release(ctx); err != nil {
			log.Printf("[views %s] release lock: %v", res.RunID, err)
		}
	}()

	recs, err := j.Store.PublishedWithVideoID(ctx)
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
		return res, fmt.Errorf("fetch view counts: %w", err)
	}

	for _, rec := range recs {
		st, ok := statuses[rec.YoutubeVideoID]
		if !ok {
			continue
		}
		updated, err := j.Report.UpdateViews(ctx, j.rowQuery(rec, st.Title), st.ViewCount)
		if err != nil {
			res.Errors = append(res.Errors, fmt.Sprintf("views for %d: %v", rec.ID, err))
			continue
		}
		if updated {
			res.Updated++
		}
	}

	log.Printf("[views %s] checked=%d updated=%d errors=%d",
		res.RunID, res.Checked, res.Updated, len(res.Errors))
	return res, nil
}

// SyncPublishedRows backfills report rows for records published some
// time ago: folder link, status, and the folder move that may have been
// missed when the promotion ran.
func (j Jobs) SyncPublishedRows(ctx context.Context) (SheetSyncResult, error) {
	res := SheetSyncResult{RunID: uuid.NewString()}

	recs, err := j.Store.PublishedForReconcile(ctx, 0)
	if err != nil {
		return res, err
	}
	res.Checked = len(recs)

	for _, rec := range recs {
		link, moved := j.moveFolder(ctx, rec.FolderID)
		if moved {
			res.Moved++
		}
		updated, err := j.Report.MarkPublished(ctx, j.rowQuery(rec, ""), rec.YoutubeVideoID, link, "")
		if err != nil {
			res.Errors = append(res.Errors, fmt.Sprintf("report row for %d: %v", rec.ID, err))
			continue
		}
		if updated {
			res.Updated++
		}
	}

	log.Printf("[sheet-sync %s] checked=%d updated=%d moved=%d errors=%d",
		res.RunID, res.Checked, res.Updated, res.Moved, len(res.Errors))
	return res, nil
}
