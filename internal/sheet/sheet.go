// Package sheet maintains the human-readable report: one spreadsheet
// row per schedule. Humans sort, filter and hand-edit the sheet, so a
// remembered row number is only ever a hint; every update re-resolves
// the true row first (see resolve.go). Only Append creates rows.
package sheet

import "context"

// RangeUpdate is one cell-range write inside a batch.
type RangeUpdate struct {
	Range  string // A1 notation, e.g. "C12"
	Values [][]string
}

// Client is the capability interface to the spreadsheet service.
// GetColumn returns the column's cells top to bottom, index 0 being
// row 1 (the header). AppendRow appends to the data range and returns
// the 1-based row index the service chose.
type Client interface {
	AppendRow(ctx context.Context, values []string) (int, error)
	GetColumn(ctx context.Context, col string) ([]string, error)
	GetCell(ctx context.Context, col string, row int) (string, error)
	UpdateRange(ctx context.Context, rng string, values [][]string) error
	BatchUpdate(ctx context.Context, updates []RangeUpdate) error
	DeleteRows(ctx context.Context, rows []int) error
}

// Columns maps logical report fields to sheet column letters. SID and
// VideoIDPure are optional pure-identity columns appended at the end of
// each row to make resolution immune to hand edits of the visible
// cells.
type Columns struct {
	Date        string
	Title       string
	VideoID     string
	FolderLink  string
	Status      string
	Keywords    string
	Views       string
	SID         string // optional
	VideoIDPure string // optional
}

func DefaultColumns() Columns {
	return Columns{
		Date:       "A",
		Title:      "B",
		VideoID:    "C",
		FolderLink: "D",
		Status:     "E",
		Keywords:   "F",
		Views:      "G",
	}
}

// Report status labels.
const (
	StatusScheduled = "scheduled"
	StatusPublished = "published"
)
