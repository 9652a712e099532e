// Package metatext parses the description file creators drop next to a
// video: either a JSON object, a labeled block format
// (標題/內文/關鍵字 or title/description/tags), or plain text where the
// first line becomes the title.
package metatext

import (
	"encoding/json"
	"regexp"
	"strings"

	"yt-publish-scheduler/internal/model"
)

var labelRe = regexp.MustCompile(`^\s*([^\s：:]+)\s*[：:]\s*(.*)$`)

var (
	titleLabels = map[string]bool{"標題": true, "title": true}
	descLabels  = map[string]bool{"內文": true, "說明": true, "內容": true, "description": true, "desc": true}
	tagLabels   = map[string]bool{"關鍵字": true, "標籤": true, "tags": true, "tag": true}
)

type block struct {
	label string
	start int
}

func Parse(text string) model.VideoMeta {
	s := strings.TrimSpace(text)
	if s == "" {
		return model.VideoMeta{Tags: []string{}}
	}

	if meta, ok := parseJSON(s); ok {
		return meta
	}

	lines := strings.Split(strings.ReplaceAll(strings.ReplaceAll(s, "\r\n", "\n"), "\r", "\n"), "\n")

	var blocks []block
	for i, line := range lines {
		m := labelRe.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		blocks = append(blocks, block{label: strings.ToLower(strings.TrimSpace(m[1])), start: i})
	}

	find := func(names map[string]bool) (block, bool) {
		for _, b := range blocks {
			if names[b.label] {
				return b, true
			}
		}
		return block{}, false
	}

	meta := model.VideoMeta{Tags: []string{}}

	if b, ok := find(titleLabels); ok {
		m := labelRe.FindStringSubmatch(lines[b.start])
		meta.Title = strings.TrimSpace(m[2])
	}
	if b, ok := find(descLabels); ok {
		meta.Description = strings.TrimSpace(blockBody(lines, blocks, b))
	}
	if b, ok := find(tagLabels); ok {
		meta.Tags = SplitTags(blockBody(lines, blocks, b))
	}

	// No labels at all: first line is the title, the rest the description.
	if meta.Title == "" && meta.Description == "" && len(meta.Tags) == 0 {
		meta.Title = strings.TrimSpace(lines[0])
		if len(lines) > 1 {
			meta.Description = strings.TrimSpace(strings.Join(lines[1:], "\n"))
		}
	}
	return meta
}

func parseJSON(s string) (model.VideoMeta, bool) {
	if !strings.HasPrefix(s, "{") {
		return model.VideoMeta{}, false
	}
	var obj struct {
		Title       string          `json:"title"`
		Description string          `json:"description"`
		Tags        json.RawMessage `json:"tags"`
	}
	if err := json.Unmarshal([]byte(s), &obj); err != nil {
		return model.VideoMeta{}, false
	}
	meta := model.VideoMeta{
		Title:       strings.TrimSpace(obj.Title),
		Description: strings.TrimSpace(obj.Description),
		Tags:        []string{},
	}
	if len(obj.Tags) > 0 {
		var list []string
		if err := json.Unmarshal(obj.Tags, &list); err == nil {
			meta.Tags = dedup(list)
		} else {
			var single string
			if err := json.Unmarshal(obj.Tags, &single); err == nil {
				meta.Tags = SplitTags(single)
			}
		}
	}
	return meta, true
}

// blockBody returns the content of a labeled block: the remainder of
// the labeled line plus every following line up to the next label.
func blockBody(lines []string, blocks []block, b block) string {
	end := len(lines)
	for _, other := range blocks {
		if other.start > b.start && other.start < end {
			end = other.start
		}
	}
	m := labelRe.FindStringSubmatch(lines[b.start])
	parts := []string{m[2]}
	if end-b.start > 1 {
		parts = append(parts, lines[b.start+1:end]...)
	}
	return strings.Join(parts, "\n")
}

var tagSplitRe = regexp.MustCompile(`[,\x{FF0C}\s]+`)

// SplitTags splits on commas (half or full width), whitespace and
// newlines, preserving first-seen order without duplicates.
func SplitTags(s string) []string {
	return dedup(tagSplitRe.Split(strings.TrimSpace(s), -1))
}

func dedup(parts []string) []string {
	out := make([]string, 0, len(parts))
	seen := make(map[string]bool, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" || seen[p] {
			continue
		}
		out = append(out, p)
		seen[p] = true
	}
	return out
}
