package metatext

import (
	"reflect"
	"testing"
)

func TestParse_LabeledFormat(t *testing.T) {
	text := "標題：週三長片\n內文：第一段\n第二段\n關鍵字：旅遊，美食 vlog"
	meta := Parse(text)

	if meta.Title != "週三長片" {
		t.Fatalf("title = %q", meta.Title)
	}
	if meta.Description != "第一段\n第二段" {
		t.Fatalf("description = %q", meta.Description)
	}
	if !reflect.DeepEqual(meta.Tags, []string{"旅遊", "美食", "vlog"}) {
		t.Fatalf("tags = %v", meta.Tags)
	}
}

func TestParse_EnglishLabels(t *testing.T) {
	meta := Parse("title: My Video\ndesc: body text\ntags: a, b, a")
	if meta.Title != "My Video" || meta.Description != "body text" {
		t.Fatalf("unexpected meta: %+v", meta)
	}
	if !reflect.DeepEqual(meta.Tags, []string{"a", "b"}) {
		t.Fatalf("tags not deduped: %v", meta.Tags)
	}
}

func TestParse_JSONCompat(t *testing.T) {
	meta := Parse(`{"title":"T","description":"D","tags":["x","y"]}`)
	if meta.Title != "T" || meta.Description != "D" {
		t.Fatalf("unexpected meta: %+v", meta)
	}
	if !reflect.DeepEqual(meta.Tags, []string{"x", "y"}) {
		t.Fatalf("tags = %v", meta.Tags)
	}
}

func TestParse_JSONTagsAsString(t *testing.T) {
	meta := Parse(`{"title":"T","tags":"x y,z"}`)
	if !reflect.DeepEqual(meta.Tags, []string{"x", "y", "z"}) {
		t.Fatalf("tags = %v", meta.Tags)
	}
}

func TestParse_PlainTextFallback(t *testing.T) {
	meta := Parse("first line\nrest one\nrest two")
	if meta.Title != "first line" {
		t.Fatalf("title = %q", meta.Title)
	}
	if meta.Description != "rest one\nrest two" {
		t.Fatalf("description = %q", meta.Description)
	}
	if len(meta.Tags) != 0 {
		t.Fatalf("tags = %v", meta.Tags)
	}
}

func TestParse_Empty(t *testing.T) {
	meta := Parse("   ")
	if meta.Title != "" || meta.Description != "" || len(meta.Tags) != 0 {
		t.Fatalf("expected zero meta, got %+v", meta)
	}
}
