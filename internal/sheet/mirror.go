package sheet

import (
	"context"
	"fmt"
	"log"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// DateLayout is how slot instants appear in the report's date column.
const DateLayout = "2006-01-02 15:04"

type Mirror struct {
	Client   Client
	Columns  Columns
	Location *time.Location
	// LinkVideoID writes the id cell as a clickable hyperlink formula
	// instead of the bare id.
	LinkVideoID bool
}

func (m Mirror) cols() Columns {
	c := m.Columns
	if c.Date == "" {
		c = DefaultColumns()
	}
	return c
}

func (m Mirror) a1(col string, row int) string {
	return fmt.Sprintf("%s%d", col, row)
}

// FormatDate renders a UTC instant the way the report shows it.
func (m Mirror) FormatDate(t time.Time) string {
	loc := m.Location
	if loc == nil {
		loc = time.UTC
	}
	return t.In(loc).Format(DateLayout)
}

// AppendScheduled adds the report row for a fresh schedule and returns
// its row index. Append never writes by index, so it is safe under
// concurrent human edits; identity columns are filled in afterwards
// when configured.
func (m Mirror) AppendScheduled(ctx context.Context, sid int64, when time.Time, title, folderURL, keywords string) (int, error) {
	cols := m.cols()
	row, err := m.Client.AppendRow(ctx, []string{
		m.FormatDate(when), // date
		title,              // title
		"",                 // video id, filled at publish time
		folderURL,          // folder link
		StatusScheduled,    // status
		keywords,           // keywords
		"0",                // views
	})
	if err != nil {
		return 0, fmt.Errorf("append report row: %w", err)
	}
	if row > 0 && cols.SID != "" {
		updates := []RangeUpdate{{Range: m.a1(cols.SID, row), Values: [][]string{{strconv.FormatInt(sid, 10)}}}}
		if err := m.Client.BatchUpdate(ctx, updates); err != nil {
			log.Printf("[sheet] identity column write skipped for row %d: %v", row, err)
		}
	}
	return row, nil
}

// resolveOrSkip runs the resolution protocol; a zero result is a
// logged skip, never a write to a guessed row.
func (m Mirror) resolveOrSkip(ctx context.Context, op string, q Query) (int, bool, error) {
	row, via, err := Resolve(ctx, m.Client, m.cols(), q)
	if err != nil {
		return 0, false, fmt.Errorf("%s: resolve row: %w", op, err)
	}
	if row == 0 {
		log.Printf("[sheet] %s: no row resolved (hint=%d video=%s), write skipped", op, q.HintRow, q.VideoID)
		return 0, false, nil
	}
	if via != "video-id" && via != "verified-hint" && q.HintRow > 0 && row != q.HintRow {
		log.Printf("[sheet] %s: hint row %d stale, resolved to %d via %s", op, q.HintRow, row, via)
	}
	return row, true, nil
}

func (m Mirror) videoCell(videoID string) string {
	if m.LinkVideoID {
		return fmt.Sprintf("=HYPERLINK(%q, %q)", "https://youtu.be/"+videoID, videoID)
	}
	return videoID
}

// SetVideoLink writes the video id into the id column (and the pure-id
// column when configured).
func (m Mirror) SetVideoLink(ctx context.Context, q Query, videoID string) (bool, error) {
	q.VideoID = videoID
	row, ok, err := m.resolveOrSkip(ctx, "set-video-link", q)
	if err != nil || !ok {
		return false, err
	}
	cols := m.cols()
	updates := []RangeUpdate{{Range: m.a1(cols.VideoID, row), Values: [][]string{{m.videoCell(videoID)}}}}
	if cols.VideoIDPure != "" {
		updates = append(updates, RangeUpdate{Range: m.a1(cols.VideoIDPure, row), Values: [][]string{{videoID}}})
	}
	if err := m.Client.BatchUpdate(ctx, updates); err != nil {
		return false, fmt.Errorf("set-video-link row %d: %w", row, err)
	}
	return true, nil
}

func (m Mirror) SetStatus(ctx context.Context, q Query, status string) (bool, error) {
	row, ok, err := m.resolveOrSkip(ctx, "set-status", q)
	if err != nil || !ok {
		return false, err
	}
	if err := m.Client.UpdateRange(ctx, m.a1(m.cols().Status, row), [][]string{{status}}); err != nil {
		return false, fmt.Errorf("set-status row %d: %w", row, err)
	}
	return true, nil
}

func (m Mirror) SetFolderLink(ctx context.Context, q Query, folderURL string) (bool, error) {
	row, ok, err := m.resolveOrSkip(ctx, "set-folder-link", q)
	if err != nil || !ok {
		return false, err
	}
	if err := m.Client.UpdateRange(ctx, m.a1(m.cols().FolderLink, row), [][]string{{folderURL}}); err != nil {
		return false, fmt.Errorf("set-folder-link row %d: %w", row, err)
	}
	return true, nil
}

// MarkPublished records a publish in one batch: video id, folder link,
// status, and (when known) the refreshed title.
func (m Mirror) MarkPublished(ctx context.Context, q Query, videoID, folderURL, title string) (bool, error) {
	q.VideoID = videoID
	row, ok, err := m.resolveOrSkip(ctx, "mark-published", q)
	if err != nil || !ok {
		return false, err
	}
	cols := m.cols()
	updates := []RangeUpdate{
		{Range: m.a1(cols.VideoID, row), Values: [][]string{{m.videoCell(videoID)}}},
		{Range: m.a1(cols.Status, row), Values: [][]string{{StatusPublished}}},
	}
	if folderURL != "" {
		updates = append(updates, RangeUpdate{Range: m.a1(cols.FolderLink, row), Values: [][]string{{folderURL}}})
	}
	if title != "" {
		updates = append(updates, RangeUpdate{Range: m.a1(cols.Title, row), Values: [][]string{{title}}})
	}
	if cols.VideoIDPure != "" {
		updates = append(updates, RangeUpdate{Range: m.a1(cols.VideoIDPure, row), Values: [][]string{{videoID}}})
	}
	if err := m.Client.BatchUpdate(ctx, updates); err != nil {
		return false, fmt.Errorf("mark-published row %d: %w", row, err)
	}
	return true, nil
}

func (m Mirror) UpdateViews(ctx context.Context, q Query, views int64) (bool, error) {
	row, ok, err := m.resolveOrSkip(ctx, "update-views", q)
	if err != nil || !ok {
		return false, err
	}
	if err := m.Client.UpdateRange(ctx, m.a1(m.cols().Views, row), [][]string{{strconv.FormatInt(views, 10)}}); err != nil {
		return false, fmt.Errorf("update-views row %d: %w", row, err)
	}
	return true, nil
}

// ReportRow is one data row as the audit sees it.
type ReportRow struct {
	Row     int
	Title   string
	VideoID string // extracted from the id cell; empty when unrecognizable
}

var videoIDRe = regexp.MustCompile(`(?:v=|/shorts/|youtu\.be/|/embed/)([A-Za-z0-9_-]{11})|^([A-Za-z0-9_-]{11})$`)

// ExtractVideoID pulls a video id out of a cell that may hold a bare
// id or any common link form.
func ExtractVideoID(cell string) string {
	cell = strings.TrimSpace(cell)
	if cell == "" {
		return ""
	}
	m := videoIDRe.FindStringSubmatch(cell)
	if m == nil {
		return ""
	}
	if m[1] != "" {
		return m[1]
	}
	return m[2]
}

// Rows reads the data rows (skipping the header) for the audit job.
func (m Mirror) Rows(ctx context.Context) ([]ReportRow, error) {
	cols := m.cols()
	titles, err := m.Client.GetColumn(ctx, cols.Title)
	if err != nil {
		return nil, fmt.Errorf("read title column: %w", err)
	}
	ids, err := m.Client.GetColumn(ctx, cols.VideoID)
	if err != nil {
		return nil, fmt.Errorf("read id column: %w", err)
	}
	n := len(titles)
	if len(ids) > n {
		n = len(ids)
	}
	out := make([]ReportRow, 0, n)
	for i := 1; i < n; i++ { // skip header at index 0
		row := ReportRow{Row: i + 1}
		if i < len(titles) {
			row.Title = strings.TrimSpace(titles[i])
		}
		if i < len(ids) {
			row.VideoID = ExtractVideoID(ids[i])
		}
		out = append(out, row)
	}
	return out, nil
}

func (m Mirror) DeleteRowIndices(ctx context.Context, rows []int) error {
	if len(rows) == 0 {
		return nil
	}
	if err := m.Client.DeleteRows(ctx, rows); err != nil {
		return fmt.Errorf("delete report rows: %w", err)
	}
	return nil
}
