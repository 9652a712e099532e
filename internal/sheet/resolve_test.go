package sheet

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"
)

func mustTime(t *testing.T) time.Time {
	t.Helper()
	ts, err := time.Parse(time.RFC3339, "2026-09-16T10:30:00Z")
	if err != nil {
		t.Fatal(err)
	}
	return ts
}

// fakeSheet is an in-memory spreadsheet keyed by column letter. Row 1
// is the header.
type fakeSheet struct {
	cols    map[string][]string
	deleted []int
	updates []RangeUpdate
}

func newFakeSheet() *fakeSheet {
	return &fakeSheet{cols: map[string][]string{}}
}

func (f *fakeSheet) setCell(col string, row int, val string) {
	for len(f.cols[col]) < row {
		f.cols[col] = append(f.cols[col], "")
	}
	f.cols[col][row-1] = val
}

func (f *fakeSheet) rowCount() int {
	max := 0
	for _, vals := range f.cols {
		if len(vals) > max {
			max = len(vals)
		}
	}
	return max
}

func (f *fakeSheet) AppendRow(ctx context.Context, values []string) (int, error) {
	row := f.rowCount() + 1
	for i, v := range values {
		f.setCell(string(rune('A'+i)), row, v)
	}
	return row, nil
}

func (f *fakeSheet) GetColumn(ctx context.Context, col string) ([]string, error) {
	return f.cols[col], nil
}

func (f *fakeSheet) GetCell(ctx context.Context, col string, row int) (string, error) {
	vals := f.cols[col]
	if row-1 < len(vals) {
		return vals[row-1], nil
	}
	return "", nil
}

func (f *fakeSheet) UpdateRange(ctx context.Context, rng string, values [][]string) error {
	f.updates = append(f.updates, RangeUpdate{Range: rng, Values: values})
	var col string
	var row int
	if _, err := fmt.Sscanf(rng, "%1s%d", &col, &row); err != nil {
		return err
	}
	f.setCell(col, row, values[0][0])
	return nil
}

func (f *fakeSheet) BatchUpdate(ctx context.Context, updates []RangeUpdate) error {
	for _, u := range updates {
		if err := f.UpdateRange(ctx, u.Range, u.Values); err != nil {
			return err
		}
	}
	return nil
}

func (f *fakeSheet) DeleteRows(ctx context.Context, rows []int) error {
	f.deleted = append(f.deleted, rows...)
	return nil
}

func seedSheet() *fakeSheet {
	f := newFakeSheet()
	// header
	f.setCell("A", 1, "date")
	f.setCell("B", 1, "title")
	f.setCell("C", 1, "video")
	f.setCell("D", 1, "folder")
	f.setCell("E", 1, "status")
	// row 2
	f.setCell("A", 2, "2026-09-02 18:30")
	f.setCell("B", 2, "Wednesday Long")
	f.setCell("C", 2, "https://youtu.be/AAAAAAAAAAA")
	f.setCell("D", 2, "https://drive.google.com/drive/folders/f-one")
	// row 3
	f.setCell("A", 3, "2026-09-04 18:30")
	f.setCell("B", 3, "Friday Short")
	f.setCell("C", 3, "BBBBBBBBBBB")
	f.setCell("D", 3, "https://drive.google.com/drive/folders/f-two")
	// row 4: duplicate title, different date
	f.setCell("A", 4, "2026-09-11 18:30")
	f.setCell("B", 4, "Friday Short")
	f.setCell("C", 4, "")
	f.setCell("D", 4, "")
	return f
}

func TestResolve_VideoIDBeatsStaleHint(t *testing.T) {
	f := seedSheet()
	row, via, err := Resolve(context.Background(), f, DefaultColumns(), Query{
		HintRow: 4, // stale, points elsewhere
		VideoID: "AAAAAAAAAAA",
	})
	if err != nil {
		t.Fatal(err)
	}
	if row != 2 || via != "video-id" {
		t.Fatalf("row=%d via=%s", row, via)
	}
}

func TestResolve_VideoIDMatchesContainingCell(t *testing.T) {
	f := seedSheet()
	row, _, err := Resolve(context.Background(), f, DefaultColumns(), Query{VideoID: "BBBBBBBBBBB"})
	if err != nil {
		t.Fatal(err)
	}
	if row != 3 {
		t.Fatalf("row = %d", row)
	}
}

func TestResolve_FolderLinkFallback(t *testing.T) {
	f := seedSheet()
	row, via, err := Resolve(context.Background(), f, DefaultColumns(), Query{
		FolderURL: "https://drive.google.com/drive/folders/f-two",
	})
	if err != nil {
		t.Fatal(err)
	}
	if row != 3 || via != "folder-link" {
		t.Fatalf("row=%d via=%s", row, via)
	}
}

func TestResolve_VerifiedHint(t *testing.T) {
	f := seedSheet()
	row, via, err := Resolve(context.Background(), f, DefaultColumns(), Query{
		HintRow:     2,
		ExpectTitle: "Wednesday Long",
	})
	if err != nil {
		t.Fatal(err)
	}
	if row != 2 || via != "verified-hint" {
		t.Fatalf("row=%d via=%s", row, via)
	}
}

func TestResolve_HintRejectedWhenTitleMoved(t *testing.T) {
	f := seedSheet()
	// Hint points at row 4 but the expected title lives at row 2;
	// title+date takes over.
	row, via, err := Resolve(context.Background(), f, DefaultColumns(), Query{
		HintRow:     4,
		ExpectTitle: "Wednesday Long",
		ExpectDate:  "2026-09-02 18:30",
	})
	if err != nil {
		t.Fatal(err)
	}
	if row != 2 || via != "title-date" {
		t.Fatalf("row=%d via=%s", row, via)
	}
}

func TestResolve_TitleDatePrefersMatchingDate(t *testing.T) {
	f := seedSheet()
	row, _, err := Resolve(context.Background(), f, DefaultColumns(), Query{
		ExpectTitle: "Friday Short",
		ExpectDate:  "2026-09-11 18:30",
	})
	if err != nil {
		t.Fatal(err)
	}
	if row != 4 {
		t.Fatalf("row = %d", row)
	}
}

func TestResolve_TitleOnlyTakesEarliestCandidate(t *testing.T) {
	f := seedSheet()
	row, _, err := Resolve(context.Background(), f, DefaultColumns(), Query{
		ExpectTitle: "Friday Short",
		ExpectDate:  "2030-01-01 00:00", // matches nothing
	})
	if err != nil {
		t.Fatal(err)
	}
	if row != 3 {
		t.Fatalf("row = %d", row)
	}
}

func TestResolve_UnverifiedHintIsLastResort(t *testing.T) {
	f := seedSheet()
	row, via, err := Resolve(context.Background(), f, DefaultColumns(), Query{HintRow: 3})
	if err != nil {
		t.Fatal(err)
	}
	if row != 3 || via != "hint" {
		t.Fatalf("row=%d via=%s", row, via)
	}
}

func TestResolve_NothingResolvesToZero(t *testing.T) {
	f := seedSheet()
	row, _, err := Resolve(context.Background(), f, DefaultColumns(), Query{
		ExpectTitle: "No Such Title",
	})
	if err != nil {
		t.Fatal(err)
	}
	if row != 0 {
		t.Fatalf("row = %d", row)
	}
}

func TestResolve_PureIDColumn(t *testing.T) {
	f := seedSheet()
	cols := DefaultColumns()
	cols.VideoIDPure = "I"
	f.setCell("I", 1, "ytid")
	f.setCell("I", 4, "CCCCCCCCCCC")

	row, via, err := Resolve(context.Background(), f, cols, Query{VideoID: "CCCCCCCCCCC"})
	if err != nil {
		t.Fatal(err)
	}
	if row != 4 || via != "video-id" {
		t.Fatalf("row=%d via=%s", row, via)
	}
}

func TestExtractVideoID(t *testing.T) {
	cases := map[string]string{
		"AAAAAAAAAAA":                          "AAAAAAAAAAA",
		"https://youtu.be/AAAAAAAAAAA":         "AAAAAAAAAAA",
		"https://youtube.com/watch?v=BBBBBBBBBBB": "BBBBBBBBBBB",
		"https://youtube.com/shorts/CCCCCCCCCCC":  "CCCCCCCCCCC",
		"not a link": "",
		"":           "",
	}
	for in, want := range cases {
		if got := ExtractVideoID(in); got != want {
			t.Fatalf("ExtractVideoID(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestAppendThenResolveRoundTrip(t *testing.T) {
	f := seedSheet()
	m := Mirror{Client: f}

	row, err := m.AppendScheduled(context.Background(), 42, mustTime(t), "Fresh Title", "https://drive.google.com/drive/folders/f-new", "k1,k2")
	if err != nil {
		t.Fatal(err)
	}
	if row != 5 {
		t.Fatalf("appended row = %d", row)
	}

	ok, err := m.SetVideoLink(context.Background(), Query{HintRow: row, ExpectTitle: "Fresh Title"}, "DDDDDDDDDDD")
	if err != nil || !ok {
		t.Fatalf("set video link: ok=%v err=%v", ok, err)
	}

	got, via, err := Resolve(context.Background(), f, DefaultColumns(), Query{VideoID: "DDDDDDDDDDD"})
	if err != nil {
		t.Fatal(err)
	}
	if got != row || via != "video-id" {
		t.Fatalf("round trip resolved row=%d via=%s, want %d via video-id", got, via, row)
	}
}

func TestMarkPublished_SkipsWhenUnresolved(t *testing.T) {
	f := seedSheet()
	m := Mirror{Client: f}
	before := len(f.updates)

	ok, err := m.MarkPublished(context.Background(), Query{}, "ZZZZZZZZZZZ", "", "")
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Fatal("expected skip with no evidence")
	}
	if len(f.updates) != before {
		t.Fatalf("writes happened despite unresolved row: %v", f.updates[before:])
	}
}

func TestRows_ExtractsIDs(t *testing.T) {
	f := seedSheet()
	m := Mirror{Client: f}
	rows, err := m.Rows(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 3 {
		t.Fatalf("rows = %d", len(rows))
	}
	if rows[0].Row != 2 || rows[0].VideoID != "AAAAAAAAAAA" {
		t.Fatalf("row 2 = %+v", rows[0])
	}
	if rows[2].VideoID != "" {
		t.Fatalf("row 4 should have no id: %+v", rows[2])
	}
	if !strings.HasPrefix(rows[1].Title, "Friday") {
		t.Fatalf("row 3 title = %q", rows[1].Title)
	}
}
