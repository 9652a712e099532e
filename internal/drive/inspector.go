package drive

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"yt-publish-scheduler/internal/metatext"
	"yt-publish-scheduler/internal/model"
)

var videoExts = map[string]bool{".mp4": true, ".mov": true, ".mkv": true, ".avi": true, ".m4v": true, ".webm": true}
var imageExts = map[string]bool{".jpg": true, ".jpeg": true, ".png": true}

// Candidate is a folder classified and ready for slot allocation.
type Candidate struct {
	FolderID   string
	FolderName string
	VideoType  string
	MetaFileID string
	MetaText   string
	Meta       model.VideoMeta
}

type Inspector struct {
	Service Service
}

// Classify decides long vs short from the primary video's orientation.
// Portrait means short; missing dimensions default to long, matching
// how the platform treats ambiguous uploads.
func (in Inspector) Classify(ctx context.Context, folderID string) (string, error) {
	v, err := in.Service.FindSingleVideo(ctx, folderID)
	if err != nil {
		return "", fmt.Errorf("classify folder %s: %w", folderID, err)
	}
	if v == nil || v.Width == 0 || v.Height == 0 {
		return model.VideoTypeLong, nil
	}
	if v.Width < v.Height {
		return model.VideoTypeShort, nil
	}
	return model.VideoTypeLong, nil
}

// Inspect classifies a folder and reads its meta text file, if any.
func (in Inspector) Inspect(ctx context.Context, f Folder) (Candidate, error) {
	vtype, err := in.Classify(ctx, f.ID)
	if err != nil {
		return Candidate{}, err
	}

	cand := Candidate{
		FolderID:   f.ID,
		FolderName: f.Name,
		VideoType:  vtype,
		Meta:       model.VideoMeta{Tags: []string{}},
	}

	mf, err := in.Service.FindTextFile(ctx, f.ID)
	if err != nil {
		return Candidate{}, fmt.Errorf("find meta file in %s: %w", f.ID, err)
	}
	if mf != nil {
		text, err := in.Service.DownloadText(ctx, mf.ID)
		if err != nil {
			return Candidate{}, fmt.Errorf("download meta %s: %w", mf.ID, err)
		}
		cand.MetaFileID = mf.ID
		cand.MetaText = text
		cand.Meta = metatext.Parse(text)
	}
	return cand, nil
}

// PickMedia selects the primary video (largest wins when several are
// present) and an optional thumbnail image from a folder listing.
func PickMedia(files []File) (video *File, thumb *File) {
	var videos, images []File
	for _, f := range files {
		ext := strings.ToLower(filepath.Ext(f.Name))
		mt := strings.ToLower(f.MimeType)
		switch {
		case strings.HasPrefix(mt, "video/") || videoExts[ext]:
			videos = append(videos, f)
		case strings.HasPrefix(mt, "image/") || imageExts[ext]:
			images = append(images, f)
		}
	}
	if len(videos) > 0 {
		sort.SliceStable(videos, func(i, j int) bool { return videos[i].Size > videos[j].Size })
		video = &videos[0]
	}
	if len(images) > 0 {
		thumb = &images[0]
	}
	return video, thumb
}
