package drive

import (
	"context"
	"testing"

	"yt-publish-scheduler/internal/model"
)

type fakeService struct {
	Service

	video *File
	meta  *File
	text  string
}

func (f *fakeService) FindSingleVideo(ctx context.Context, folderID string) (*File, error) {
	return f.video, nil
}

func (f *fakeService) FindTextFile(ctx context.Context, folderID string) (*File, error) {
	return f.meta, nil
}

func (f *fakeService) DownloadText(ctx context.Context, fileID string) (string, error) {
	return f.text, nil
}

func TestClassify_PortraitIsShort(t *testing.T) {
	in := Inspector{Service: &fakeService{video: &File{ID: "v", Width: 1080, Height: 1920}}}
	vtype, err := in.Classify(context.Background(), "f1")
	if err != nil {
		t.Fatal(err)
	}
	if vtype != model.VideoTypeShort {
		t.Fatalf("vtype = %q", vtype)
	}
}

func TestClassify_LandscapeAndUnknownAreLong(t *testing.T) {
	cases := []*File{
		{ID: "v", Width: 1920, Height: 1080},
		{ID: "v"}, // no dimensions
		nil,       // no video at all
	}
	for _, v := range cases {
		in := Inspector{Service: &fakeService{video: v}}
		vtype, err := in.Classify(context.Background(), "f1")
		if err != nil {
			t.Fatal(err)
		}
		if vtype != model.VideoTypeLong {
			t.Fatalf("vtype = %q for %+v", vtype, v)
		}
	}
}

func TestInspect_ReadsMetaFile(t *testing.T) {
	svc := &fakeService{
		video: &File{ID: "v", Width: 1920, Height: 1080},
		meta:  &File{ID: "m", Name: "meta.txt"},
		text:  "標題：測試\n關鍵字：a b",
	}
	in := Inspector{Service: svc}

	cand, err := in.Inspect(context.Background(), Folder{ID: "f1", Name: "Folder One"})
	if err != nil {
		t.Fatal(err)
	}
	if cand.MetaFileID != "m" || cand.Meta.Title != "測試" || len(cand.Meta.Tags) != 2 {
		t.Fatalf("unexpected candidate: %+v", cand)
	}
}

func TestPickMedia_LargestVideoWins(t *testing.T) {
	files := []File{
		{ID: "small", Name: "clip.mp4", Size: 10},
		{ID: "big", Name: "final.mov", Size: 900},
		{ID: "img", Name: "cover.jpg", MimeType: "image/jpeg"},
		{ID: "txt", Name: "meta.txt", MimeType: "text/plain"},
	}
	video, thumb := PickMedia(files)
	if video == nil || video.ID != "big" {
		t.Fatalf("video = %+v", video)
	}
	if thumb == nil || thumb.ID != "img" {
		t.Fatalf("thumb = %+v", thumb)
	}
}

func TestPickMedia_NoMedia(t *testing.T) {
	video, thumb := PickMedia([]File{{ID: "txt", Name: "meta.txt"}})
	if video != nil || thumb != nil {
		t.Fatalf("expected nothing, got video=%v thumb=%v", video, thumb)
	}
}
