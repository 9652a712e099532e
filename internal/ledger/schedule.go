package ledger

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"yt-publish-scheduler/internal/model"
)

const maxErrorLen = 800

// Insert upserts a full schedule record by folder id: a folder keeps at
// most one active schedule, and re-submitting resets it to scheduled
// with a clean error slate. Returns the record id.
func (l *Ledger) Insert(ctx context.Context, rec model.ScheduleRecord) (int64, error) {
	var id int64
	err := l.db.WithContext(ctx).Raw(`
		INSERT INTO video_schedules (
			actor_id, folder_id, folder_name, video_type,
			meta_file_id, meta_text, schedule_time, status, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, 'scheduled', now())
		ON CONFLICT (folder_id) DO UPDATE SET
			actor_id      = EXCLUDED.actor_id,
			folder_name   = EXCLUDED.folder_name,
			video_type    = EXCLUDED.video_type,
			meta_file_id  = EXCLUDED.meta_file_id,
			meta_text     = EXCLUDED.meta_text,
			schedule_time = EXCLUDED.schedule_time,
			status        = 'scheduled',
			last_error    = NULL
		RETURNING id`,
		rec.ActorID, rec.FolderID, rec.FolderName, rec.VideoType,
		rec.MetaFileID, rec.MetaText, rec.ScheduleTime.UTC(),
	).Scan(&id).Error
	if err != nil {
		return 0, fmt.Errorf("insert schedule for folder %s: %w", rec.FolderID, err)
	}
	return id, nil
}

// InsertBasic claims a folder if nobody has: ON CONFLICT DO NOTHING.
// A zero return means the folder was already claimed and the existing
// record is untouched; this is how the scanner skips processed folders.
func (l *Ledger) InsertBasic(ctx context.Context, rec model.ScheduleRecord) (int64, error) {
	var id *int64
	err := l.db.WithContext(ctx).Raw(`
		INSERT INTO video_schedules (
			folder_id, folder_name, video_type, meta_file_id, meta_text,
			schedule_time, status, created_at
		) VALUES (?, ?, ?, ?, ?, ?, 'scheduled', now())
		ON CONFLICT (folder_id) DO NOTHING
		RETURNING id`,
		rec.FolderID, rec.FolderName, rec.VideoType, rec.MetaFileID,
		rec.MetaText, rec.ScheduleTime.UTC(),
	).Scan(&id).Error
	if err != nil {
		return 0, fmt.Errorf("claim folder %s: %w", rec.FolderID, err)
	}
	if id == nil {
		return 0, nil
	}
	return *id, nil
}

// transition applies a status change plus extra column updates in one
// transaction, rejecting anything the transition table forbids.
func (l *Ledger) transition(ctx context.Context, id int64, toStatus string, updates map[string]any) error {
	return l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var rec model.ScheduleRecord
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&rec, id).Error; err != nil {
			return fmt.Errorf("load schedule %d: %w", id, err)
		}
		if err := model.TransitionStatus(&rec, toStatus); err != nil {
			return err
		}
		if updates == nil {
			updates = map[string]any{}
		}
		updates["status"] = toStatus
		if err := tx.Model(&model.ScheduleRecord{}).Where("id = ?", id).Updates(updates).Error; err != nil {
			return fmt.Errorf("update schedule %d: %w", id, err)
		}
		return nil
	})
}

func (l *Ledger) MarkUploaded(ctx context.Context, id int64, videoID string) error {
	return l.transition(ctx, id, model.StatusUploaded, map[string]any{
		"youtube_video_id": videoID,
		"last_error":       nil,
	})
}

func (l *Ledger) MarkFailed(ctx context.Context, id int64, errText string) error {
	return l.transition(ctx, id, model.StatusFailed, map[string]any{
		"last_error": truncate(errText, maxErrorLen),
	})
}

// MarkError records a failure raised by a direct external trigger
// rather than the periodic pipeline.
func (l *Ledger) MarkError(ctx context.Context, id int64, errText string) error {
	return l.transition(ctx, id, model.StatusError, map[string]any{
		"last_error": truncate(errText, maxErrorLen),
	})
}

func (l *Ledger) MarkPublished(ctx context.Context, id int64) error {
	return l.transition(ctx, id, model.StatusPublished, map[string]any{
		"published_at": time.Now().UTC(),
	})
}

func (l *Ledger) MarkDeleted(ctx context.Context, id int64) error {
	return l.transition(ctx, id, model.StatusDeleted, nil)
}

// Restore moves a record wrongly marked deleted back to uploaded.
func (l *Ledger) Restore(ctx context.Context, id int64) error {
	return l.transition(ctx, id, model.StatusUploaded, nil)
}

func (l *Ledger) Cancel(ctx context.Context, id int64) error {
	return l.transition(ctx, id, model.StatusCanceled, nil)
}

// UpdateScheduleTime reslots a record that has not been uploaded yet.
func (l *Ledger) UpdateScheduleTime(ctx context.Context, id int64, t time.Time) error {
	res := l.db.WithContext(ctx).Model(&model.ScheduleRecord{}).
		Where("id = ? AND status = ?", id, model.StatusScheduled).
		Update("schedule_time", t.UTC())
	if res.Error != nil {
		return fmt.Errorf("update schedule time for %d: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("schedule %d is not in %q state", id, model.StatusScheduled)
	}
	return nil
}

// AlignScheduleTime follows the remote authority after out-of-band
// edits: the remote publish time wins and the record returns to
// scheduled. Only drift reconciliation calls this.
func (l *Ledger) AlignScheduleTime(ctx context.Context, id int64, t time.Time) error {
	return l.transition(ctx, id, model.StatusScheduled, map[string]any{
		"schedule_time": t.UTC(),
	})
}

func (l *Ledger) SetSheetRow(ctx context.Context, id int64, row int) error {
	err := l.db.WithContext(ctx).Model(&model.ScheduleRecord{}).
		Where("id = ?", id).Update("sheet_row", row).Error
	if err != nil {
		return fmt.Errorf("set sheet row for %d: %w", id, err)
	}
	return nil
}

// UpdateMetaTitle adopts the remote video title as the record's display
// name, keeping later report-row resolution accurate.
func (l *Ledger) UpdateMetaTitle(ctx context.Context, id int64, title string) error {
	err := l.db.WithContext(ctx).Model(&model.ScheduleRecord{}).
		Where("id = ?", id).Update("folder_name", title).Error
	if err != nil {
		return fmt.Errorf("update meta title for %d: %w", id, err)
	}
	return nil
}

func (l *Ledger) SetMetaText(ctx context.Context, id int64, metaText string) error {
	err := l.db.WithContext(ctx).Model(&model.ScheduleRecord{}).
		Where("id = ?", id).Update("meta_text", metaText).Error
	if err != nil {
		return fmt.Errorf("set meta text for %d: %w", id, err)
	}
	return nil
}

// ---- queries ----

func (l *Ledger) GetByID(ctx context.Context, id int64) (*model.ScheduleRecord, error) {
	var rec model.ScheduleRecord
	if err := l.db.WithContext(ctx).First(&rec, id).Error; err != nil {
		return nil, fmt.Errorf("load schedule %d: %w", id, err)
	}
	return &rec, nil
}

func (l *Ledger) GetByVideoID(ctx context.Context, videoID string) (*model.ScheduleRecord, error) {
	var rec model.ScheduleRecord
	err := l.db.WithContext(ctx).
		Where("youtube_video_id = ?", videoID).
		Order("schedule_time DESC").
		First(&rec).Error
	if err != nil {
		return nil, fmt.Errorf("load schedule for video %s: %w", videoID, err)
	}
	return &rec, nil
}

// DueForUpload returns scheduled records whose publish slot has
// arrived, oldest first, bounded.
func (l *Ledger) DueForUpload(ctx context.Context, now time.Time, limit int) ([]model.ScheduleRecord, error) {
	if limit <= 0 {
		limit = 10
	}
	var recs []model.ScheduleRecord
	err := l.db.WithContext(ctx).
		Where("status = ? AND schedule_time <= ?", model.StatusScheduled, now.UTC()).
		Order("schedule_time ASC").
		Limit(limit).
		Find(&recs).Error
	if err != nil {
		return nil, fmt.Errorf("query due uploads: %w", err)
	}
	return recs, nil
}

// ReadyForPublish returns due records with a video id that have not
// reached a published/deleted/canceled state.
func (l *Ledger) ReadyForPublish(ctx context.Context, limit int) ([]model.ScheduleRecord, error) {
	if limit <= 0 {
		limit = 200
	}
	var recs []model.ScheduleRecord
	err := l.db.WithContext(ctx).
		Where("youtube_video_id <> '' AND schedule_time <= now()").
		Where("COALESCE(status, '') NOT IN ?", []string{model.StatusPublished, model.StatusDeleted, model.StatusCanceled}).
		Order("schedule_time ASC").
		Limit(limit).
		Find(&recs).Error
	if err != nil {
		return nil, fmt.Errorf("query ready for publish: %w", err)
	}
	return recs, nil
}

func (l *Ledger) PublishedForReconcile(ctx context.Context, limit int) ([]model.ScheduleRecord, error) {
	if limit <= 0 {
		limit = 300
	}
	var recs []model.ScheduleRecord
	err := l.db.WithContext(ctx).
		Where("status = ? AND youtube_video_id <> ''", model.StatusPublished).
		Order("COALESCE(published_at, schedule_time) DESC").
		Limit(limit).
		Find(&recs).Error
	if err != nil {
		return nil, fmt.Errorf("query published for reconcile: %w", err)
	}
	return recs, nil
}

// FutureUploaded returns records with a remote id whose slot is still
// ahead; the deletion-drift job compares them against the platform.
func (l *Ledger) FutureUploaded(ctx context.Context) ([]model.ScheduleRecord, error) {
	var recs []model.ScheduleRecord
	err := l.db.WithContext(ctx).
		Where("status IN ? AND youtube_video_id <> '' AND schedule_time > now()",
			[]string{model.StatusUploaded, model.StatusScheduled}).
		Find(&recs).Error
	if err != nil {
		return nil, fmt.Errorf("query future uploaded: %w", err)
	}
	return recs, nil
}

// DriftCandidates bounds the drift-reconciliation scan to records that
// could plausibly change: slots inside the next 60 days or records
// created in the last 7.
func (l *Ledger) DriftCandidates(ctx context.Context, limit int) ([]model.ScheduleRecord, error) {
	if limit <= 0 {
		limit = 500
	}
	var recs []model.ScheduleRecord
	err := l.db.WithContext(ctx).
		Where("youtube_video_id <> '' AND status IN ?",
			[]string{model.StatusUploaded, model.StatusScheduled, model.StatusDeleted}).
		Where("schedule_time < now() + interval '60 days' OR created_at > now() - interval '7 days'").
		Order("COALESCE(schedule_time, created_at) DESC").
		Limit(limit).
		Find(&recs).Error
	if err != nil {
		return nil, fmt.Errorf("query drift candidates: %w", err)
	}
	return recs, nil
}

func (l *Ledger) PublishedWithVideoID(ctx context.Context) ([]model.ScheduleRecord, error) {
	var recs []model.ScheduleRecord
	err := l.db.WithContext(ctx).
		Where("status = ? AND youtube_video_id <> ''", model.StatusPublished).
		Find(&recs).Error
	if err != nil {
		return nil, fmt.Errorf("query published with video id: %w", err)
	}
	return recs, nil
}

// ExistingVideoIDs is the whitelist the sheet audit trusts.
func (l *Ledger) ExistingVideoIDs(ctx context.Context) (map[string]bool, error) {
	var ids []string
	err := l.db.WithContext(ctx).Model(&model.ScheduleRecord{}).
		Where("youtube_video_id <> ''").
		Pluck("youtube_video_id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("query existing video ids: %w", err)
	}
	out := make(map[string]bool, len(ids))
	for _, id := range ids {
		out[id] = true
	}
	return out, nil
}

func (l *Ledger) ListForActor(ctx context.Context, actorID string) ([]model.ScheduleRecord, error) {
	var recs []model.ScheduleRecord
	err := l.db.WithContext(ctx).
		Where("actor_id = ?", actorID).
		Order("schedule_time ASC").
		Find(&recs).Error
	if err != nil {
		return nil, fmt.Errorf("list schedules for actor %s: %w", actorID, err)
	}
	return recs, nil
}

func (l *Ledger) ListRecent(ctx context.Context, limit int) ([]model.ScheduleRecord, error) {
	if limit <= 0 {
		limit = 200
	}
	var recs []model.ScheduleRecord
	err := l.db.WithContext(ctx).
		Order("schedule_time DESC").
		Limit(limit).
		Find(&recs).Error
	if err != nil {
		return nil, fmt.Errorf("list recent schedules: %w", err)
	}
	return recs, nil
}

// ReadySnapshot is the operational diagnostic: per record, the three
// flags that decide publish promotion eligibility.
func (l *Ledger) ReadySnapshot(ctx context.Context, limit int) ([]model.ReadyFlags, error) {
	if limit <= 0 {
		limit = 100
	}
	recs, err := l.ListRecent(ctx, limit)
	if err != nil {
		return nil, err
	}
	now := time.Now()
	out := make([]model.ReadyFlags, 0, len(recs))
	for _, r := range recs {
		statusOK := r.Status != model.StatusPublished &&
			r.Status != model.StatusDeleted &&
			r.Status != model.StatusCanceled
		out = append(out, model.ReadyFlags{
			ID:           r.ID,
			FolderID:     r.FolderID,
			SheetRow:     r.SheetRow,
			ScheduleTime: r.ScheduleTime,
			Status:       r.Status,
			VideoID:      r.YoutubeVideoID,
			HasVideoID:   r.YoutubeVideoID != "",
			IsDue:        !r.ScheduleTime.After(now),
			StatusOK:     statusOK,
		})
	}
	return out, nil
}

// LedgerReservedSlots implements the local half of slot.Reservations:
// every scheduled or uploaded record blocks its minute-rounded local
// instant.
func (l *Ledger) LedgerReservedSlots(ctx context.Context, loc *time.Location) (map[time.Time]bool, error) {
	var times []time.Time
	err := l.db.WithContext(ctx).Model(&model.ScheduleRecord{}).
		Where("status IN ?", []string{model.StatusScheduled, model.StatusUploaded}).
		Pluck("schedule_time", &times).Error
	if err != nil {
		return nil, fmt.Errorf("query reserved slots: %w", err)
	}
	occupied := make(map[time.Time]bool, len(times))
	for _, t := range times {
		occupied[t.In(loc).Truncate(time.Minute)] = true
	}
	return occupied, nil
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}
