package model

import "time"

const (
	VideoTypeLong  = "long"
	VideoTypeShort = "short"
)

// ScheduleRecord is one folder-to-publish intent. folder_id is unique:
// a folder has at most one active schedule, and re-scanning a claimed
// folder is a no-op. Records are never physically deleted, only
// status-transitioned, so the ledger doubles as an audit trail.
type ScheduleRecord struct {
	ID             int64      `gorm:"primaryKey" json:"id"`
	ActorID        string     `gorm:"column:actor_id" json:"actor_id,omitempty"`
	FolderID       string     `gorm:"column:folder_id;uniqueIndex;not null" json:"folder_id"`
	FolderName     string     `gorm:"column:folder_name;not null" json:"folder_name"`
	VideoType      string     `gorm:"column:video_type;not null" json:"video_type"`
	MetaFileID     string     `gorm:"column:meta_file_id" json:"meta_file_id,omitempty"`
	MetaText       string     `gorm:"column:meta_text" json:"meta_text,omitempty"`
	ScheduleTime   time.Time  `gorm:"column:schedule_time;not null" json:"schedule_time"`
	Status         string     `gorm:"column:status;default:scheduled" json:"status"`
	YoutubeVideoID string     `gorm:"column:youtube_video_id" json:"youtube_video_id,omitempty"`
	SheetRow       int        `gorm:"column:sheet_row" json:"sheet_row,omitempty"`
	LastError      string     `gorm:"column:last_error" json:"last_error,omitempty"`
	CreatedAt      time.Time  `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	PublishedAt    *time.Time `gorm:"column:published_at" json:"published_at,omitempty"`
}

func (ScheduleRecord) TableName() string {
	return "video_schedules"
}

// VideoMeta is the parsed form of a folder's meta text file.
type VideoMeta struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Tags        []string `json:"tags"`
}

// ReadyFlags is the per-record diagnostic view of "would this record
// currently be picked for publish promotion".
type ReadyFlags struct {
	ID           int64     `json:"id"`
	FolderID     string    `json:"folder_id"`
	SheetRow     int       `json:"sheet_row"`
	ScheduleTime time.Time `json:"schedule_time"`
	Status       string    `json:"status"`
	VideoID      string    `json:"video_id"`
	HasVideoID   bool      `json:"has_video_id"`
	IsDue        bool      `json:"is_due"`
	StatusOK     bool      `json:"status_ok"`
}

func (f ReadyFlags) WouldBePicked() bool {
	return f.HasVideoID && f.IsDue && f.StatusOK
}
