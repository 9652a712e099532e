// Package config loads runtime settings from the environment, with an
// optional .env file for local runs. Required values fail fast at
// startup; everything else has a sensible default.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	DefaultTimezone      = "Asia/Taipei"
	DefaultPublishHour   = 18
	DefaultPublishMinute = 30
)

type Config struct {
	DatabaseDSN string

	ParentFolderID    string
	PublishedFolderID string

	SpreadsheetID string
	SheetName     string
	SheetGridID   int64
	LinkVideoID   bool

	Timezone      string
	PublishHour   int
	PublishMinute int

	UploadPrivacy string
	ActorID       string
	DueBatchLimit int

	HTTPAddr         string
	NotifyWebhookURL string

	// GoogleBearerToken is a pre-acquired token for the remote APIs;
	// acquiring and refreshing it is someone else's job.
	GoogleBearerToken string
}

// Load reads the environment, merging a .env file when one exists.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	cfg := Config{
		DatabaseDSN:       os.Getenv("DATABASE_DSN"),
		ParentFolderID:    os.Getenv("DRIVE_PARENT_FOLDER_ID"),
		PublishedFolderID: os.Getenv("DRIVE_PUBLISHED_FOLDER_ID"),
		SpreadsheetID:     os.Getenv("SHEET_SPREADSHEET_ID"),
		SheetName:         envOr("SHEET_NAME", "Report"),
		SheetGridID:       envInt64("SHEET_GRID_ID", 0),
		LinkVideoID:       envBool("SHEET_LINK_VIDEO_ID", false),
		Timezone:          envOr("TIMEZONE", DefaultTimezone),
		PublishHour:       envInt("PUBLISH_HOUR", DefaultPublishHour),
		PublishMinute:     envInt("PUBLISH_MINUTE", DefaultPublishMinute),
		UploadPrivacy:     envOr("UPLOAD_PRIVACY", "private"),
		ActorID:           envOr("ACTOR_ID", "scheduler"),
		DueBatchLimit:     envInt("DUE_BATCH_LIMIT", 10),
		HTTPAddr:          envOr("HTTP_ADDR", ":8080"),
		NotifyWebhookURL:  os.Getenv("NOTIFY_WEBHOOK_URL"),
		GoogleBearerToken: os.Getenv("GOOGLE_BEARER_TOKEN"),
	}
	return cfg, cfg.validate()
}

func (c Config) validate() error {
	var missing []string
	if c.DatabaseDSN == "" {
		missing = append(missing, "DATABASE_DSN")
	}
	if c.ParentFolderID == "" {
		missing = append(missing, "DRIVE_PARENT_FOLDER_ID")
	}
	if c.SpreadsheetID == "" {
		missing = append(missing, "SHEET_SPREADSHEET_ID")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required settings: %s", strings.Join(missing, ", "))
	}
	if c.PublishHour < 0 || c.PublishHour > 23 || c.PublishMinute < 0 || c.PublishMinute > 59 {
		return fmt.Errorf("invalid publish time %02d:%02d", c.PublishHour, c.PublishMinute)
	}
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		return fmt.Errorf("invalid TIMEZONE %q: %w", c.Timezone, err)
	}
	return nil
}

// Location resolves the configured timezone. Load already validated
// it, so this never fails after a successful Load.
func (c Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func envInt64(key string, def int64) int64 {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return def
	}
	return n
}

func envBool(key string, def bool) bool {
	switch strings.ToLower(os.Getenv(key)) {
	case "1", "true", "yes":
		return true
	case "0", "false", "no":
		return false
	}
	return def
}
