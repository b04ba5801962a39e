package ai

import (
	"encoding/json"
	"fmt"
	"strings"

	"social-content-platform/models"
)

// Draft is a generated, not yet persisted suggestion.
type Draft struct {
	Title       string
	Content     string
	Hashtags    []string
	ContentType models.ContentType
	ImageURLs   []string
}

type rawDraft struct {
	Title       string   `json:"title"`
	Content     string   `json:"content"`
	Hashtags    []string `json:"hashtags"`
	ContentType string   `json:"contentType"`
}

// ParseDrafts decodes the model's JSON array into at most limit drafts.
// A limit of zero keeps every draft.
func ParseDrafts(raw string, limit int) ([]Draft, error) {
	body := stripCodeFence(raw)

	var items []rawDraft
	if err := json.Unmarshal([]byte(body), &items); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	if len(items) == 0 {
		return nil, fmt.Errorf("%w: no drafts returned", ErrMalformedResponse)
	}
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}

	drafts := make([]Draft, 0, len(items))
	for _, it := range items {
		drafts = append(drafts, Draft{
			Title:       strings.TrimSpace(it.Title),
			Content:     strings.TrimSpace(it.Content),
			Hashtags:    cleanHashtags(it.Hashtags),
			ContentType: models.NormalizeContentType(it.ContentType),
			ImageURLs:   []string{},
		})
	}
	return drafts, nil
}

// stripCodeFence removes a surrounding ``` or ```json fence if present.
func stripCodeFence(raw string) string {
	s := strings.TrimSpace(raw)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		s = s[nl+1:]
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

func cleanHashtags(tags []string) []string {
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		t = strings.TrimPrefix(strings.TrimSpace(t), "#")
		if t != "" {
			out = append(out, t)
		}
	}
	return out
}
