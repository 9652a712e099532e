package gclient

import (
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strconv"
	"strings"
	"time"

	"yt-publish-scheduler/internal/youtube"
)

// statusBatchSize is the id-list cap of the videos.list endpoint.
const statusBatchSize = 50

// Fixed compliance defaults for every upload.
const (
	uploadCategoryID = "22"
	uploadLanguage   = "zh-Hant"
)

// YouTube implements youtube.API against the Data API v3.
type YouTube struct {
	HTTP *http.Client

	base       string
	uploadBase string
}

func NewYouTube(httpc *http.Client) *YouTube {
	return &YouTube{HTTP: httpc, base: youtubeBase, uploadBase: youtubeUpload}
}

type ytSnippet struct {
	Title                string   `json:"title"`
	Description          string   `json:"description"`
	Tags                 []string `json:"tags,omitempty"`
	CategoryID           string   `json:"categoryId,omitempty"`
	DefaultLanguage      string   `json:"defaultLanguage,omitempty"`
	DefaultAudioLanguage string   `json:"defaultAudioLanguage,omitempty"`
}

type ytStatus struct {
	PrivacyStatus           string `json:"privacyStatus"`
	PublishAt               string `json:"publishAt,omitempty"`
	Embeddable              *bool  `json:"embeddable,omitempty"`
	License                 string `json:"license,omitempty"`
	SelfDeclaredMadeForKids *bool  `json:"selfDeclaredMadeForKids,omitempty"`
}

type ytVideo struct {
	ID         string     `json:"id"`
	Snippet    *ytSnippet `json:"snippet,omitempty"`
	Status     *ytStatus  `json:"status,omitempty"`
	Statistics *struct {
		ViewCount string `json:"viewCount"`
	} `json:"statistics,omitempty"`
}

type ytVideoList struct {
	Items []ytVideo `json:"items"`
}

type ytSearchList struct {
	Items []struct {
		ID struct {
			VideoID string `json:"videoId"`
		} `json:"id"`
	} `json:"items"`
	NextPageToken string `json:"nextPageToken"`
}

func parsePublishAt(s string) *time.Time {
	if s == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return nil
	}
	return &t
}

// ListPendingScheduled lists the channel's own recent videos and keeps
// the ones still waiting on a future scheduled visibility change.
func (y *YouTube) ListPendingScheduled(ctx context.Context) ([]youtube.PendingVideo, error) {
	var ids []string
	pageToken := ""
	for {
		params := url.Values{
			"part":       {"id"},
			"forMine":    {"true"},
			"type":       {"video"},
			"order":      {"date"},
			"maxResults": {"50"},
		}
		if pageToken != "" {
			params.Set("pageToken", pageToken)
		}
		var page ytSearchList
		if err := doJSON(ctx, y.HTTP, http.MethodGet, y.base+"/search", params, nil, "", &page); err != nil {
			return nil, fmt.Errorf("search own videos: %w", err)
		}
		for _, item := range page.Items {
			if item.ID.VideoID != "" {
				ids = append(ids, item.ID.VideoID)
			}
		}
		if page.NextPageToken == "" || len(ids) >= 500 {
			break
		}
		pageToken = page.NextPageToken
	}

	statuses, err := y.BatchGetStatus(ctx, ids)
	if err != nil {
		return nil, err
	}
	now := time.Now()
	var out []youtube.PendingVideo
	for id, st := range statuses {
		if st.Visibility == youtube.VisibilityPublic || st.ScheduledAt == nil || !st.ScheduledAt.After(now) {
			continue
		}
		out = append(out, youtube.PendingVideo{
			ID:          id,
			Title:       st.Title,
			ScheduledAt: *st.ScheduledAt,
			URL:         youtube.VideoURL(id),
		})
	}
	return out, nil
}

// BatchGetStatus fetches status, snippet and statistics for the given
// ids in one logical call, chunked to the endpoint's 50-id cap.
func (y *YouTube) BatchGetStatus(ctx context.Context, ids []string) (map[string]youtube.VideoStatus, error) {
	out := make(map[string]youtube.VideoStatus, len(ids))
	for start := 0; start < len(ids); start += statusBatchSize {
		end := start + statusBatchSize
		if end > len(ids) {
			end = len(ids)
		}
		params := url.Values{
			"part":       {"status,snippet,statistics"},
			"id":         {strings.Join(ids[start:end], ",")},
			"maxResults": {"50"},
		}
		var page ytVideoList
		if err := doJSON(ctx, y.HTTP, http.MethodGet, y.base+"/videos", params, nil, "", &page); err != nil {
			return nil, fmt.Errorf("fetch video statuses: %w", err)
		}
		for _, v := range page.Items {
			st := youtube.VideoStatus{}
			if v.Status != nil {
				st.Visibility = v.Status.PrivacyStatus
				st.ScheduledAt = parsePublishAt(v.Status.PublishAt)
			}
			if v.Snippet != nil {
				st.Title = v.Snippet.Title
			}
			if v.Statistics != nil {
				st.ViewCount, _ = strconv.ParseInt(v.Statistics.ViewCount, 10, 64)
			}
			out[v.ID] = st
		}
	}
	return out, nil
}

// CreateVideo performs a multipart upload: metadata part plus media
// part. The scheduled publish time forces private visibility, which is
// what the platform requires for publishAt.
func (y *YouTube) CreateVideo(ctx context.Context, media io.Reader, req youtube.UploadRequest) (string, error) {
	embeddable := true
	madeForKids := false
	privacy := req.Privacy
	if !req.ScheduledAt.IsZero() && privacy == "" {
		privacy = youtube.VisibilityPrivate
	}
	meta := ytVideo{
		Snippet: &ytSnippet{
			Title:                req.Title,
			Description:          req.Description,
			Tags:                 req.Tags,
			CategoryID:           uploadCategoryID,
			DefaultLanguage:      uploadLanguage,
			DefaultAudioLanguage: uploadLanguage,
		},
		Status: &ytStatus{
			PrivacyStatus:           privacy,
			Embeddable:              &embeddable,
			License:                 "youtube",
			SelfDeclaredMadeForKids: &madeForKids,
		},
	}
	if !req.ScheduledAt.IsZero() {
		meta.Status.PublishAt = req.ScheduledAt.UTC().Format(time.RFC3339)
	}

	pr, pw := io.Pipe()
	mp := multipart.NewWriter(pw)
	go func() {
		err := func() error {
			metaHdr := textproto.MIMEHeader{"Content-Type": {"application/json; charset=UTF-8"}}
			part, err := mp.CreatePart(metaHdr)
			if err != nil {
				return err
			}
			metaBody, err := jsonBody(meta)
			if err != nil {
				return err
			}
			if _, err := io.Copy(part, metaBody); err != nil {
				return err
			}
			mediaHdr := textproto.MIMEHeader{"Content-Type": {"application/octet-stream"}}
			part, err = mp.CreatePart(mediaHdr)
			if err != nil {
				return err
			}
			if _, err := io.Copy(part, media); err != nil {
				return err
			}
			return mp.Close()
		}()
		pw.CloseWithError(err)
	}()

	var created ytVideo
	err := doJSON(ctx, y.HTTP, http.MethodPost,
		y.uploadBase+"/videos",
		url.Values{"uploadType": {"multipart"}, "part": {"snippet,status"}},
		pr, "multipart/related; boundary="+mp.Boundary(), &created)
	if err != nil {
		return "", fmt.Errorf("create video %q: %w", req.Title, err)
	}
	if created.ID == "" {
		return "", fmt.Errorf("create video %q: response carried no id", req.Title)
	}
	return created.ID, nil
}

// UpdateMetadata patches title/description/tags; nil pointers leave the
// current value untouched. The endpoint replaces the whole snippet, so
// the current one is read first.
func (y *YouTube) UpdateMetadata(ctx context.Context, id string, title, description *string, tags []string) error {
	var cur ytVideoList
	err := doJSON(ctx, y.HTTP, http.MethodGet, y.base+"/videos",
		url.Values{"part": {"snippet"}, "id": {id}}, nil, "", &cur)
	if err != nil {
		return fmt.Errorf("read snippet of %s: %w", id, err)
	}
	if len(cur.Items) == 0 || cur.Items[0].Snippet == nil {
		return fmt.Errorf("video %s not found", id)
	}
	snippet := *cur.Items[0].Snippet
	if title != nil {
		snippet.Title = *title
	}
	if description != nil {
		snippet.Description = *description
	}
	if tags != nil {
		snippet.Tags = tags
	}
	if snippet.CategoryID == "" {
		snippet.CategoryID = uploadCategoryID
	}

	body, err := jsonBody(ytVideo{ID: id, Snippet: &snippet})
	if err != nil {
		return err
	}
	err = doJSON(ctx, y.HTTP, http.MethodPut, y.base+"/videos",
		url.Values{"part": {"snippet"}}, body, "application/json", nil)
	if err != nil {
		return fmt.Errorf("update metadata of %s: %w", id, err)
	}
	return nil
}

// UpdateScheduledVisibility rewrites the scheduled publish time,
// keeping the video private until then.
func (y *YouTube) UpdateScheduledVisibility(ctx context.Context, id string, newTime time.Time) error {
	body, err := jsonBody(ytVideo{ID: id, Status: &ytStatus{
		PrivacyStatus: youtube.VisibilityPrivate,
		PublishAt:     newTime.UTC().Format(time.RFC3339),
	}})
	if err != nil {
		return err
	}
	err = doJSON(ctx, y.HTTP, http.MethodPut, y.base+"/videos",
		url.Values{"part": {"status"}}, body, "application/json", nil)
	if err != nil {
		return fmt.Errorf("update scheduled visibility of %s: %w", id, err)
	}
	return nil
}

func (y *YouTube) SetThumbnail(ctx context.Context, id string, image io.Reader) error {
	err := doJSON(ctx, y.HTTP, http.MethodPost,
		y.uploadBase+"/thumbnails/set",
		url.Values{"videoId": {id}, "uploadType": {"media"}},
		image, "image/jpeg", nil)
	if err != nil {
		return fmt.Errorf("set thumbnail of %s: %w", id, err)
	}
	return nil
}
