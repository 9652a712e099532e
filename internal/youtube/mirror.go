package youtube

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"yt-publish-scheduler/internal/drive"
	"yt-publish-scheduler/internal/model"
)

// Mirror pairs the platform API with the folder capability for the
// upload and reservation operations.
type Mirror struct {
	API     API
	Drive   drive.Service
	Privacy string // default visibility for scheduled uploads
}

func (m Mirror) privacy() string {
	if m.Privacy != "" {
		return m.Privacy
	}
	return VisibilityPrivate
}

// ReservedSlots returns the minute-rounded local instants of every
// remote video still waiting on a future scheduled visibility change.
// Errors propagate so the caller can decide how conservative to be.
func (m Mirror) ReservedSlots(ctx context.Context, loc *time.Location) (map[time.Time]bool, error) {
	pending, err := m.API.ListPendingScheduled(ctx)
	if err != nil {
		return nil, fmt.Errorf("list pending scheduled: %w", err)
	}
	occupied := make(map[time.Time]bool, len(pending))
	now := time.Now()
	for _, v := range pending {
		if !v.ScheduledAt.After(now) {
			continue
		}
		occupied[v.ScheduledAt.In(loc).Truncate(time.Minute)] = true
	}
	return occupied, nil
}

// Upload takes one folder from the cloud tree to the platform: locate
// the primary video and optional thumbnail, download to transient
// files, create the video with a scheduled visibility, and best-effort
// set the thumbnail. The returned id is the platform video id.
func (m Mirror) Upload(ctx context.Context, folderID string, meta model.VideoMeta, when time.Time) (string, error) {
	files, err := m.Drive.ListFiles(ctx, folderID)
	if err != nil {
		return "", fmt.Errorf("list folder %s: %w", folderID, err)
	}
	video, thumb := drive.PickMedia(files)
	if video == nil {
		return "", fmt.Errorf("folder %s has no uploadable video file", folderID)
	}

	tmp, err := os.CreateTemp("", "ytvid_*"+extOrDefault(video.Name, ".mp4"))
	if err != nil {
		return "", fmt.Errorf("create temp video file: %w", err)
	}
	tmpPath := tmp.Name()
	_ = tmp.Close()
	defer func() {
		_ = os.Remove(tmpPath)
	}()

	if err := m.Drive.DownloadToPath(ctx, video.ID, tmpPath); err != nil {
		return "", fmt.Errorf("download video %s: %w", video.ID, err)
	}

	f, err := os.Open(tmpPath)
	if err != nil {
		return "", fmt.Errorf("open temp video file: %w", err)
	}
	defer f.Close()

	id, err := m.API.CreateVideo(ctx, f, UploadRequest{
		Title:       meta.Title,
		Description: meta.Description,
		Tags:        meta.Tags,
		Privacy:     m.privacy(),
		ScheduledAt: when,
	})
	if err != nil {
		return "", fmt.Errorf("create video from folder %s: %w", folderID, err)
	}

	if thumb != nil {
		if err := m.setThumbnail(ctx, id, thumb.ID); err != nil {
			log.Printf("[upload] thumbnail for %s skipped: %v", id, err)
		}
	}
	return id, nil
}

// RefreshThumbnail re-applies the folder's thumbnail image to an
// already uploaded video.
func (m Mirror) RefreshThumbnail(ctx context.Context, videoID, folderID string) error {
	files, err := m.Drive.ListFiles(ctx, folderID)
	if err != nil {
		return fmt.Errorf("list folder %s: %w", folderID, err)
	}
	_, thumb := drive.PickMedia(files)
	if thumb == nil {
		return fmt.Errorf("folder %s has no thumbnail image", folderID)
	}
	return m.setThumbnail(ctx, videoID, thumb.ID)
}

func (m Mirror) setThumbnail(ctx context.Context, videoID, fileID string) error {
	data, err := m.Drive.DownloadBytes(ctx, fileID)
	if err != nil {
		return fmt.Errorf("download thumbnail %s: %w", fileID, err)
	}
	if err := m.API.SetThumbnail(ctx, videoID, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("set thumbnail for %s: %w", videoID, err)
	}
	return nil
}

func extOrDefault(name, def string) string {
	if ext := filepath.Ext(name); ext != "" {
		return ext
	}
	return def
}
