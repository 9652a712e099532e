package gclient

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"sort"
	"strconv"

	"yt-publish-scheduler/internal/sheet"
)

// Sheets implements sheet.Client against the Sheets v4 REST API. All
// A1 ranges are qualified with the configured tab name; DeleteRows
// additionally needs the tab's numeric grid id.
type Sheets struct {
	HTTP          *http.Client
	SpreadsheetID string
	SheetName     string
	SheetID       int64

	base string
}

func NewSheets(httpc *http.Client, spreadsheetID, sheetName string, sheetID int64) *Sheets {
	return &Sheets{
		HTTP:          httpc,
		SpreadsheetID: spreadsheetID,
		SheetName:     sheetName,
		SheetID:       sheetID,
		base:          sheetsBase,
	}
}

func (s *Sheets) sheetURL(suffix string) string {
	return fmt.Sprintf("%s/%s%s", s.base, url.PathEscape(s.SpreadsheetID), suffix)
}

func (s *Sheets) qualify(rng string) string {
	return fmt.Sprintf("%s!%s", s.SheetName, rng)
}

type valueRange struct {
	Range  string     `json:"range,omitempty"`
	Values [][]string `json:"values"`
}

// updatedRangeRe pulls the first row index out of an A1 range like
// "Sheet1!A12:G12".
var updatedRangeRe = regexp.MustCompile(`![A-Z]+(\d+)`)

func parseAppendedRow(updatedRange string) int {
	m := updatedRangeRe.FindStringSubmatch(updatedRange)
	if m == nil {
		return 0
	}
	row, _ := strconv.Atoi(m[1])
	return row
}

// AppendRow appends one row to the data range and returns the 1-based
// row index the service placed it at, parsed from the updated range.
func (s *Sheets) AppendRow(ctx context.Context, values []string) (int, error) {
	body, err := jsonBody(valueRange{Values: [][]string{values}})
	if err != nil {
		return 0, err
	}
	var resp struct {
		Updates struct {
			UpdatedRange string `json:"updatedRange"`
		} `json:"updates"`
	}
	err = doJSON(ctx, s.HTTP, http.MethodPost,
		s.sheetURL("/values/"+url.PathEscape(s.qualify("A:Z"))+":append"),
		url.Values{
			"valueInputOption": {"USER_ENTERED"},
			"insertDataOption": {"INSERT_ROWS"},
		},
		body, "application/json", &resp)
	if err != nil {
		return 0, fmt.Errorf("append row: %w", err)
	}
	row := parseAppendedRow(resp.Updates.UpdatedRange)
	if row == 0 {
		return 0, fmt.Errorf("append row: unparseable updated range %q", resp.Updates.UpdatedRange)
	}
	return row, nil
}

func (s *Sheets) getValues(ctx context.Context, rng string) ([][]string, error) {
	var resp valueRange
	err := doJSON(ctx, s.HTTP, http.MethodGet,
		s.sheetURL("/values/"+url.PathEscape(s.qualify(rng))), nil, nil, "", &resp)
	if err != nil {
		return nil, fmt.Errorf("read range %s: %w", rng, err)
	}
	return resp.Values, nil
}

func (s *Sheets) GetColumn(ctx context.Context, col string) ([]string, error) {
	rows, err := s.getValues(ctx, fmt.Sprintf("%s:%s", col, col))
	if err != nil {
		return nil, err
	}
	out := make([]string, len(rows))
	for i, row := range rows {
		if len(row) > 0 {
			out[i] = row[0]
		}
	}
	return out, nil
}

func (s *Sheets) GetCell(ctx context.Context, col string, row int) (string, error) {
	rows, err := s.getValues(ctx, fmt.Sprintf("%s%d", col, row))
	if err != nil {
		return "", err
	}
	if len(rows) == 0 || len(rows[0]) == 0 {
		return "", nil
	}
	return rows[0][0], nil
}

func (s *Sheets) UpdateRange(ctx context.Context, rng string, values [][]string) error {
	body, err := jsonBody(valueRange{Values: values})
	if err != nil {
		return err
	}
	err = doJSON(ctx, s.HTTP, http.MethodPut,
		s.sheetURL("/values/"+url.PathEscape(s.qualify(rng))),
		url.Values{"valueInputOption": {"USER_ENTERED"}},
		body, "application/json", nil)
	if err != nil {
		return fmt.Errorf("update range %s: %w", rng, err)
	}
	return nil
}

func (s *Sheets) BatchUpdate(ctx context.Context, updates []sheet.RangeUpdate) error {
	if len(updates) == 0 {
		return nil
	}
	data := make([]valueRange, 0, len(updates))
	for _, u := range updates {
		data = append(data, valueRange{Range: s.qualify(u.Range), Values: u.Values})
	}
	body, err := jsonBody(map[string]any{
		"valueInputOption": "USER_ENTERED",
		"data":             data,
	})
	if err != nil {
		return err
	}
	err = doJSON(ctx, s.HTTP, http.MethodPost,
		s.sheetURL("/values:batchUpdate"), nil, body, "application/json", nil)
	if err != nil {
		return fmt.Errorf("batch update %d ranges: %w", len(updates), err)
	}
	return nil
}

// DeleteRows deletes the given 1-based row indices. Deletions run
// bottom-up in one structural batch so earlier deletes cannot shift the
// indices of later ones.
func (s *Sheets) DeleteRows(ctx context.Context, rows []int) error {
	if len(rows) == 0 {
		return nil
	}
	sorted := append([]int(nil), rows...)
	sort.Sort(sort.Reverse(sort.IntSlice(sorted)))

	type dimensionRange struct {
		SheetID    int64  `json:"sheetId"`
		Dimension  string `json:"dimension"`
		StartIndex int    `json:"startIndex"`
		EndIndex   int    `json:"endIndex"`
	}
	var requests []map[string]any
	for _, row := range sorted {
		requests = append(requests, map[string]any{
			"deleteDimension": map[string]any{
				"range": dimensionRange{
					SheetID:    s.SheetID,
					Dimension:  "ROWS",
					StartIndex: row - 1, // grid indices are 0-based
					EndIndex:   row,
				},
			},
		})
	}
	body, err := jsonBody(map[string]any{"requests": requests})
	if err != nil {
		return err
	}
	err = doJSON(ctx, s.HTTP, http.MethodPost,
		s.sheetURL(":batchUpdate"), nil, body, "application/json", nil)
	if err != nil {
		return fmt.Errorf("delete %d rows: %w", len(rows), err)
	}
	return nil
}
