package jobs

import (
	"context"

	"yt-publish-scheduler/internal/pipeline"
	"yt-publish-scheduler/internal/reconcile"
)

// Standing job names and schedules. Intervals follow how often each
// state can usefully change: due uploads and deletion checks every half
// hour, promotion and drift hourly, the heavyweight report passes twice
// or once a day, and the folder scan once a night.
const (
	JobScan         = "scan-and-schedule"
	JobDueUploads   = "upload-due"
	JobPromote      = "promote-published"
	JobDeletions    = "reconcile-deletions"
	JobDrift        = "reconcile-drift"
	JobSheetSync    = "reconcile-sheet"
	JobRefreshViews = "refresh-views"
)

// RegisterStanding wires the full standing job table onto the
// scheduler.
func RegisterStanding(s *Scheduler, p pipeline.Pipeline, r reconcile.Jobs) error {
	table := []struct {
		name string
		spec string
		fn   func(ctx context.Context) error
	}{
		{JobScan, "0 3 * * *", func(ctx context.Context) error {
			_, err := p.ScanAndSchedule(ctx)
			return err
		}},
		{JobDueUploads, "@every 30m", func(ctx context.Context) error {
			_, err := p.RunDueUploads(ctx)
			return err
		}},
		{JobPromote, "@every 60m", func(ctx context.Context) error {
			_, err := r.PromotePublished(ctx, false)
			return err
		}},
		{JobDeletions, "@every 30m", func(ctx context.Context) error {
			_, err := r.Deletions(ctx)
			return err
		}},
		{JobDrift, "@every 60m", func(ctx context.Context) error {
			_, err := r.ScheduleDrift(ctx)
			return err
		}},
		{JobSheetSync, "@every 12h", func(ctx context.Context) error {
			_, err := r.SyncPublishedRows(ctx)
			return err
		}},
		{JobRefreshViews, "@every 24h", func(ctx context.Context) error {
			_, err := r.RefreshViews(ctx)
			return err
		}},
	}
	for _, job := range table {
		if err := s.Ensure(job.name, job.spec, job.fn); err != nil {
			return err
		}
	}
	return nil
}
