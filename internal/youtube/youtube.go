// Package youtube is the read/write facade over the remote video
// platform. The API interface matches what the platform actually
// offers; Mirror composes it with the cloud folder capability into the
// operations the pipeline and reconciliation jobs need.
package youtube

import (
	"context"
	"io"
	"time"
)

const (
	VisibilityPublic   = "public"
	VisibilityPrivate  = "private"
	VisibilityUnlisted = "unlisted"
)

// PendingVideo is a remote video that still has a future scheduled
// visibility change.
type PendingVideo struct {
	ID          string
	Title       string
	ScheduledAt time.Time
	URL         string
}

// VideoStatus is the live remote state of one video id.
type VideoStatus struct {
	Visibility  string
	ScheduledAt *time.Time
	Title       string
	ViewCount   int64
}

// UploadRequest carries the metadata for a create-video call. The
// adapter fills in the fixed compliance defaults (category, language,
// license, embeddable, not made-for-kids).
type UploadRequest struct {
	Title       string
	Description string
	Tags        []string
	Privacy     string
	// ScheduledAt, when non-zero, becomes the scheduled visibility
	// change; the platform requires private/unlisted privacy for it.
	ScheduledAt time.Time
}

// API is the capability interface to the video platform. BatchGetStatus
// performs one logical fetch for both visibility and snippet data;
// adapters are responsible for chunking long id lists.
type API interface {
	ListPendingScheduled(ctx context.Context) ([]PendingVideo, error)
	BatchGetStatus(ctx context.Context, ids []string) (map[string]VideoStatus, error)
	CreateVideo(ctx context.Context, media io.Reader, req UploadRequest) (string, error)
	UpdateMetadata(ctx context.Context, id string, title, description *string, tags []string) error
	UpdateScheduledVisibility(ctx context.Context, id string, newTime time.Time) error
	SetThumbnail(ctx context.Context, id string, image io.Reader) error
}

func VideoURL(id string) string {
	return "https://youtu.be/" + id
}
