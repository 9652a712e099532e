package sheet

import (
	"context"
	"strings"
)

// Query carries every piece of evidence available for locating a row.
type Query struct {
	HintRow     int
	ExpectTitle string
	ExpectDate  string
	VideoID     string
	FolderURL   string
}

// A resolver tries one strategy and returns the row index, or 0 when
// the strategy has nothing to say. Strategies never guess.
type resolver struct {
	name string
	fn   func(ctx context.Context, c Client, cols Columns, q Query) (int, error)
}

// resolverChain is evaluated in order, first success wins:
// immutable video id, folder link, verified hint, title+date, and only
// then the bare hint. Order is the protocol; do not reorder.
var resolverChain = []resolver{
	{"video-id", byVideoID},
	{"folder-link", byFolderURL},
	{"verified-hint", byVerifiedHint},
	{"title-date", byTitleAndDate},
	{"hint", byBareHint},
}

// Resolve returns the true row for a logical record, and the name of
// the strategy that found it. Zero means nothing resolved and the
// caller must skip the write.
func Resolve(ctx context.Context, c Client, cols Columns, q Query) (int, string, error) {
	for _, r := range resolverChain {
		row, err := r.fn(ctx, c, cols, q)
		if err != nil {
			return 0, "", err
		}
		if row > 0 {
			return row, r.name, nil
		}
	}
	return 0, "", nil
}

// byVideoID scans the visible id column for an exact or containing
// match (cells may hold bare ids or full links), then the pure-id
// column exactly. Video ids never change, so this wins over everything.
func byVideoID(ctx context.Context, c Client, cols Columns, q Query) (int, error) {
	if q.VideoID == "" {
		return 0, nil
	}
	vals, err := c.GetColumn(ctx, cols.VideoID)
	if err != nil {
		return 0, err
	}
	for i, cell := range vals {
		row := i + 1
		if row == 1 {
			continue // header
		}
		if strings.TrimSpace(cell) == q.VideoID || (cell != "" && strings.Contains(cell, q.VideoID)) {
			return row, nil
		}
	}
	if cols.VideoIDPure == "" {
		return 0, nil
	}
	pure, err := c.GetColumn(ctx, cols.VideoIDPure)
	if err != nil {
		return 0, err
	}
	for i, cell := range pure {
		row := i + 1
		if row == 1 {
			continue
		}
		if strings.TrimSpace(cell) == q.VideoID {
			return row, nil
		}
	}
	return 0, nil
}

func byFolderURL(ctx context.Context, c Client, cols Columns, q Query) (int, error) {
	if q.FolderURL == "" {
		return 0, nil
	}
	vals, err := c.GetColumn(ctx, cols.FolderLink)
	if err != nil {
		return 0, err
	}
	for i, cell := range vals {
		row := i + 1
		if row == 1 {
			continue
		}
		if cell != "" && strings.Contains(cell, q.FolderURL) {
			return row, nil
		}
	}
	return 0, nil
}

// byVerifiedHint accepts the remembered row number only when the title
// cell at that row still matches exactly.
func byVerifiedHint(ctx context.Context, c Client, cols Columns, q Query) (int, error) {
	if q.HintRow <= 1 || q.ExpectTitle == "" {
		return 0, nil
	}
	title, err := c.GetCell(ctx, cols.Title, q.HintRow)
	if err != nil {
		return 0, err
	}
	if title == q.ExpectTitle {
		return q.HintRow, nil
	}
	return 0, nil
}

// byTitleAndDate collects same-title rows and prefers the one whose
// date cell matches; without a date match the earliest candidate wins.
func byTitleAndDate(ctx context.Context, c Client, cols Columns, q Query) (int, error) {
	if q.ExpectTitle == "" {
		return 0, nil
	}
	titles, err := c.GetColumn(ctx, cols.Title)
	if err != nil {
		return 0, err
	}
	dates, err := c.GetColumn(ctx, cols.Date)
	if err != nil {
		return 0, err
	}
	var candidates []int
	for i, cell := range titles {
		row := i + 1
		if row == 1 {
			continue
		}
		if cell == q.ExpectTitle {
			candidates = append(candidates, row)
		}
	}
	if q.ExpectDate != "" {
		for _, row := range candidates {
			if row-1 < len(dates) && dates[row-1] == q.ExpectDate {
				return row, nil
			}
		}
	}
	if len(candidates) > 0 {
		return candidates[0], nil
	}
	return 0, nil
}

// byBareHint is the last resort: the unverified remembered row.
func byBareHint(ctx context.Context, c Client, cols Columns, q Query) (int, error) {
	if q.HintRow > 1 {
		return q.HintRow, nil
	}
	return 0, nil
}
