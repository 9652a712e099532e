// Package ledger is the authoritative store for scheduling intent: one
// Postgres row per folder-to-publish. Every mutation runs in its own
// short transaction and is checked against the status transition table
// before it lands, so callers cannot push a record through an illegal
// path.
package ledger

import (
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"yt-publish-scheduler/internal/model"
)

type Ledger struct {
	db *gorm.DB
}

func Open(dsn string) (*Ledger, error) {
	if dsn == "" {
		return nil, fmt.Errorf("database DSN is required")
	}
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.AutoMigrate(&model.ScheduleRecord{}); err != nil {
		return nil, fmt.Errorf("migrate video_schedules: %w", err)
	}
	return &Ledger{db: db}, nil
}

// New wraps an existing gorm handle (used by tests and the composition
// root when pooling is configured elsewhere).
func New(db *gorm.DB) *Ledger {
	return &Ledger{db: db}
}

func (l *Ledger) Close() error {
	sqlDB, err := l.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (l *Ledger) Ping() error {
	sqlDB, err := l.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Ping()
}
