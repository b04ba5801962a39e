package models

import (
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ContentType of a generated suggestion
type ContentType string

const (
	ContentTypePost       ContentType = "Post"
	ContentTypeStory      ContentType = "Story"
	ContentTypeReel       ContentType = "Reel"
	ContentTypeNewsletter ContentType = "Newsletter"
)

// NormalizeContentType maps free-form model output onto a known content type.
// Case and plural forms are ignored since profiles list types as "Stories",
// "Reels". Anything unrecognised becomes Post.
func NormalizeContentType(raw string) ContentType {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "story", "stories":
		return ContentTypeStory
	case "reel", "reels":
		return ContentTypeReel
	case "newsletter", "newsletters":
		return ContentTypeNewsletter
	default:
		return ContentTypePost
	}
}

// Source tags a suggestion batch with the context it was generated from.
type Source string

const (
	SourceProfile   Source = "profile"
	SourceInstagram Source = "instagramProfile"
)

// ParseSource accepts an empty value as SourceProfile.
func ParseSource(raw string) (Source, error) {
	switch Source(strings.TrimSpace(raw)) {
	case "", SourceProfile:
		return SourceProfile, nil
	case SourceInstagram:
		return SourceInstagram, nil
	default:
		return "", fmt.Errorf("unknown source %q", raw)
	}
}

// UsesInstagram reports whether generation for this source needs cached Instagram posts.
func (s Source) UsesInstagram() bool {
	return s == SourceInstagram
}

type ContentSuggestion struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID      primitive.ObjectID `bson:"user_id" json:"user_id"`
	Title       string             `bson:"title" json:"title"`
	Content     string             `bson:"content" json:"content"`
	Hashtags    []string           `bson:"hashtags" json:"hashtags"`
	ImageURLs   []string           `bson:"image_urls" json:"image_urls"`
	ContentType ContentType        `bson:"content_type" json:"content_type"`
	Refreshed   bool               `bson:"refreshed" json:"refreshed"`
	Source      Source             `bson:"source" json:"source"`
	CreatedAt   time.Time          `bson:"created_at" json:"created_at"`
}

// Caption joins the body and hashtags the way they are published.
func (s *ContentSuggestion) Caption() string {
	if len(s.Hashtags) == 0 {
		return s.Content
	}
	tags := make([]string, 0, len(s.Hashtags))
	for _, h := range s.Hashtags {
		tags = append(tags, "#"+h)
	}
	return s.Content + "\n\n" + strings.Join(tags, " ")
}
