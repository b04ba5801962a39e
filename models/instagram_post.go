package models

import (
	"regexp"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

var hashtagPattern = regexp.MustCompile(`#(\w+)`)

// InstagramPost is a locally cached copy of a user's Instagram media
type InstagramPost struct {
	ID            primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID        primitive.ObjectID `bson:"user_id" json:"user_id"`
	InstagramID   string             `bson:"instagram_id" json:"instagram_id"`
	Caption       string             `bson:"caption" json:"caption"`
	MediaType     string             `bson:"media_type" json:"media_type"`
	MediaURL      string             `bson:"media_url,omitempty" json:"media_url,omitempty"`
	Permalink     string             `bson:"permalink,omitempty" json:"permalink,omitempty"`
	Timestamp     time.Time          `bson:"timestamp" json:"timestamp"`
	LikeCount     int                `bson:"like_count" json:"like_count"`
	CommentsCount int                `bson:"comments_count" json:"comments_count"`
	ContentType   ContentType        `bson:"content_type" json:"content_type"`
	Hashtags      []string           `bson:"hashtags" json:"hashtags"`
	SyncedAt      time.Time          `bson:"synced_at" json:"synced_at"`
}

// ContentTypeForMedia maps an Instagram media_type onto a suggestion content type.
func ContentTypeForMedia(mediaType string) ContentType {
	switch mediaType {
	case "VIDEO":
		return ContentTypeReel
	case "IMAGE", "CAROUSEL_ALBUM":
		return ContentTypePost
	default:
		return ContentTypeStory
	}
}

// ExtractHashtags returns caption hashtags without the leading '#'.
func ExtractHashtags(caption string) []string {
	matches := hashtagPattern.FindAllStringSubmatch(caption, -1)
	tags := make([]string, 0, len(matches))
	for _, m := range matches {
		tags = append(tags, m[1])
	}
	return tags
}
