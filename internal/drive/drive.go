// Package drive defines the capability interface this system consumes
// from the cloud folder tree, plus the folder inspector that turns a
// candidate folder into upload raw material. Implementations live in
// internal/gclient; tests use fakes.
package drive

import "context"

// File is one item in a folder listing. Width/Height are only
// populated for videos whose host exposes media metadata.
type File struct {
	ID       string
	Name     string
	MimeType string
	Size     int64
	Width    int
	Height   int
}

type Folder struct {
	ID   string
	Name string
}

// Service is the capability interface to the cloud folder tree.
type Service interface {
	ListChildFolders(ctx context.Context, parentID string) ([]Folder, error)
	ListFiles(ctx context.Context, folderID string) ([]File, error)
	FindSingleVideo(ctx context.Context, folderID string) (*File, error)
	FindTextFile(ctx context.Context, folderID string) (*File, error)
	DownloadText(ctx context.Context, fileID string) (string, error)
	UploadText(ctx context.Context, fileID string, content string) error
	DownloadToPath(ctx context.Context, fileID, dstPath string) error
	DownloadBytes(ctx context.Context, fileID string) ([]byte, error)
	// MoveToParent reparents an item and returns its shareable link.
	MoveToParent(ctx context.Context, fileID, newParentID string) (string, error)
}

// FolderURL is the deterministic link used whenever a move or link
// lookup fails: the report must never end up with an empty folder cell.
func FolderURL(folderID string) string {
	return "https://drive.google.com/drive/folders/" + folderID
}
