package gclient

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"

	"yt-publish-scheduler/internal/drive"
)

// Drive implements drive.Service against the Drive v3 REST API.
type Drive struct {
	HTTP *http.Client

	// base/uploadBase are overridable in tests.
	base       string
	uploadBase string
}

func NewDrive(httpc *http.Client) *Drive {
	return &Drive{HTTP: httpc, base: driveBase, uploadBase: driveUpload}
}

type driveFile struct {
	ID                 string   `json:"id"`
	Name               string   `json:"name"`
	MimeType           string   `json:"mimeType"`
	Size               string   `json:"size"`
	WebViewLink        string   `json:"webViewLink"`
	Parents            []string `json:"parents"`
	VideoMediaMetadata *struct {
		Width  int `json:"width"`
		Height int `json:"height"`
	} `json:"videoMediaMetadata"`
}

type driveFileList struct {
	Files         []driveFile `json:"files"`
	NextPageToken string      `json:"nextPageToken"`
}

func (d *Drive) list(ctx context.Context, q, fields string) ([]driveFile, error) {
	var out []driveFile
	pageToken := ""
	for {
		params := url.Values{
			"q":        {q},
			"fields":   {fmt.Sprintf("nextPageToken,files(%s)", fields)},
			"pageSize": {"1000"},
		}
		if pageToken != "" {
			params.Set("pageToken", pageToken)
		}
		var page driveFileList
		if err := doJSON(ctx, d.HTTP, http.MethodGet, d.base+"/files", params, nil, "", &page); err != nil {
			return nil, err
		}
		out = append(out, page.Files...)
		if page.NextPageToken == "" {
			return out, nil
		}
		pageToken = page.NextPageToken
	}
}

func (d *Drive) ListChildFolders(ctx context.Context, parentID string) ([]drive.Folder, error) {
	files, err := d.list(ctx,
		fmt.Sprintf("'%s' in parents and mimeType = 'application/vnd.google-apps.folder' and trashed = false", parentID),
		"id,name")
	if err != nil {
		return nil, fmt.Errorf("list child folders of %s: %w", parentID, err)
	}
	out := make([]drive.Folder, 0, len(files))
	for _, f := range files {
		out = append(out, drive.Folder{ID: f.ID, Name: f.Name})
	}
	return out, nil
}

func (d *Drive) ListFiles(ctx context.Context, folderID string) ([]drive.File, error) {
	files, err := d.list(ctx,
		fmt.Sprintf("'%s' in parents and trashed = false", folderID),
		"id,name,mimeType,size,videoMediaMetadata(width,height)")
	if err != nil {
		return nil, fmt.Errorf("list files in %s: %w", folderID, err)
	}
	out := make([]drive.File, 0, len(files))
	for _, f := range files {
		size, _ := strconv.ParseInt(f.Size, 10, 64)
		df := drive.File{ID: f.ID, Name: f.Name, MimeType: f.MimeType, Size: size}
		if f.VideoMediaMetadata != nil {
			df.Width = f.VideoMediaMetadata.Width
			df.Height = f.VideoMediaMetadata.Height
		}
		out = append(out, df)
	}
	return out, nil
}

func (d *Drive) FindSingleVideo(ctx context.Context, folderID string) (*drive.File, error) {
	files, err := d.ListFiles(ctx, folderID)
	if err != nil {
		return nil, err
	}
	video, _ := drive.PickMedia(files)
	return video, nil
}

func (d *Drive) FindTextFile(ctx context.Context, folderID string) (*drive.File, error) {
	files, err := d.ListFiles(ctx, folderID)
	if err != nil {
		return nil, err
	}
	for i, f := range files {
		if strings.HasPrefix(f.MimeType, "text/") || strings.HasSuffix(strings.ToLower(f.Name), ".txt") {
			return &files[i], nil
		}
	}
	return nil, nil
}

func (d *Drive) download(ctx context.Context, fileID string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		fmt.Sprintf("%s/files/%s?alt=media", d.base, url.PathEscape(fileID)), nil)
	if err != nil {
		return nil, err
	}
	resp, err := d.HTTP.Do(req)
	if err != nil {
		return nil, err
	}
	if err := checkStatus(resp); err != nil {
		_ = resp.Body.Close()
		return nil, err
	}
	return resp.Body, nil
}

func (d *Drive) DownloadText(ctx context.Context, fileID string) (string, error) {
	rc, err := d.download(ctx, fileID)
	if err != nil {
		return "", fmt.Errorf("download text %s: %w", fileID, err)
	}
	defer rc.Close()
	data, err := io.ReadAll(rc)
	if err != nil {
		return "", fmt.Errorf("read text %s: %w", fileID, err)
	}
	return string(data), nil
}

func (d *Drive) DownloadBytes(ctx context.Context, fileID string) ([]byte, error) {
	rc, err := d.download(ctx, fileID)
	if err != nil {
		return nil, fmt.Errorf("download %s: %w", fileID, err)
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

// DownloadToPath streams a file to disk; video files are far too large
// to hold in memory.
func (d *Drive) DownloadToPath(ctx context.Context, fileID, dstPath string) error {
	rc, err := d.download(ctx, fileID)
	if err != nil {
		return fmt.Errorf("download %s: %w", fileID, err)
	}
	defer rc.Close()

	f, err := os.Create(dstPath)
	if err != nil {
		return err
	}
	if _, err := io.Copy(f, rc); err != nil {
		_ = f.Close()
		return fmt.Errorf("write %s: %w", dstPath, err)
	}
	return f.Close()
}

func (d *Drive) UploadText(ctx context.Context, fileID string, content string) error {
	err := doJSON(ctx, d.HTTP, http.MethodPatch,
		fmt.Sprintf("%s/files/%s", d.uploadBase, url.PathEscape(fileID)),
		url.Values{"uploadType": {"media"}},
		strings.NewReader(content), "text/plain; charset=utf-8", nil)
	if err != nil {
		return fmt.Errorf("upload text %s: %w", fileID, err)
	}
	return nil
}

// MoveToParent reparents an item and returns its shareable link.
func (d *Drive) MoveToParent(ctx context.Context, fileID, newParentID string) (string, error) {
	var cur driveFile
	err := doJSON(ctx, d.HTTP, http.MethodGet,
		fmt.Sprintf("%s/files/%s", d.base, url.PathEscape(fileID)),
		url.Values{"fields": {"parents"}}, nil, "", &cur)
	if err != nil {
		return "", fmt.Errorf("read parents of %s: %w", fileID, err)
	}

	params := url.Values{
		"addParents": {newParentID},
		"fields":     {"id,webViewLink"},
	}
	if len(cur.Parents) > 0 {
		params.Set("removeParents", strings.Join(cur.Parents, ","))
	}
	var moved driveFile
	err = doJSON(ctx, d.HTTP, http.MethodPatch,
		fmt.Sprintf("%s/files/%s", d.base, url.PathEscape(fileID)),
		params, strings.NewReader("{}"), "application/json", &moved)
	if err != nil {
		return "", fmt.Errorf("move %s under %s: %w", fileID, newParentID, err)
	}
	if moved.WebViewLink != "" {
		return moved.WebViewLink, nil
	}
	return drive.FolderURL(fileID), nil
}
