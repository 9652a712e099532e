// Package gclient holds the thin REST adapters behind the drive,
// youtube and sheet capability interfaces. Every adapter takes an
// *http.Client that already carries authentication; token acquisition
// and refresh live outside this system.
package gclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
)

const (
	driveBase     = "https://www.googleapis.com/drive/v3"
	driveUpload   = "https://www.googleapis.com/upload/drive/v3"
	youtubeBase   = "https://www.googleapis.com/youtube/v3"
	youtubeUpload = "https://www.googleapis.com/upload/youtube/v3"
	sheetsBase    = "https://sheets.googleapis.com/v4/spreadsheets"
)

// APIError is a non-2xx response from a remote API, body included:
// quota and permission failures carry their explanation there.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	body := e.Body
	if len(body) > 300 {
		body = body[:300] + "..."
	}
	return fmt.Sprintf("remote API status %d: %s", e.StatusCode, body)
}

func checkStatus(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	return &APIError{StatusCode: resp.StatusCode, Body: string(body)}
}

// doJSON performs one request and decodes a JSON response into out
// (which may be nil for fire-and-forget calls).
func doJSON(ctx context.Context, httpc *http.Client, method, rawURL string, query url.Values, body io.Reader, contentType string, out any) error {
	if len(query) > 0 {
		rawURL = rawURL + "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, method, rawURL, body)
	if err != nil {
		return err
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	resp, err := httpc.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if err := checkStatus(resp); err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func jsonBody(v any) (io.Reader, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return bytes.NewReader(data), nil
}
