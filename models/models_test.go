package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestNormalizeContentType(t *testing.T) {
	tests := map[string]ContentType{
		"Post":        ContentTypePost,
		"story":       ContentTypeStory,
		"Reels":       ContentTypeReel,
		" Newsletter": ContentTypeNewsletter,
		"STORIES":     ContentTypeStory,
		"newsletters": ContentTypeNewsletter,
		"Posts":       ContentTypePost,
		"Stor":        ContentTypePost,
		"Carousel":    ContentTypePost,
		"":            ContentTypePost,
	}
	for in, want := range tests {
		assert.Equal(t, want, NormalizeContentType(in), in)
	}
}

func TestParseSource(t *testing.T) {
	s, err := ParseSource("")
	require.NoError(t, err)
	assert.Equal(t, SourceProfile, s)

	s, err = ParseSource("instagramProfile")
	require.NoError(t, err)
	assert.True(t, s.UsesInstagram())

	_, err = ParseSource("tiktok")
	assert.Error(t, err)
}

func TestProfileRequestDefaults(t *testing.T) {
	req := &BusinessProfileRequest{BusinessName: " Bakery ", BusinessType: "Food"}
	userID := primitive.NewObjectID()

	p, err := req.ToProfile(userID)
	require.NoError(t, err)
	assert.Equal(t, "Bakery", p.BusinessName)
	assert.Equal(t, userID, p.UserID)
	assert.Equal(t, ToneFriendly, p.ToneOfVoice)
	assert.Equal(t, PostLengthMedium, p.PostLength)
	assert.Equal(t, HashtagsFewRelevant, p.HashtagsStyle)
	assert.True(t, p.EmojisAllowed)
	assert.NotNil(t, p.MainColors)
}

func TestProfileRequestValidation(t *testing.T) {
	no := false
	tests := []struct {
		name string
		req  BusinessProfileRequest
	}{
		{"bad tone", BusinessProfileRequest{BusinessName: "a", BusinessType: "b", ToneOfVoice: "Angry"}},
		{"bad length", BusinessProfileRequest{BusinessName: "a", BusinessType: "b", PostLength: "huge"}},
		{"bad hashtags", BusinessProfileRequest{BusinessName: "a", BusinessType: "b", HashtagsStyle: "all"}},
		{"too many colors", BusinessProfileRequest{BusinessName: "a", BusinessType: "b",
			MainColors: []string{"#000", "#111", "#222", "#333", "#444", "#555"}}},
		{"bad color", BusinessProfileRequest{BusinessName: "a", BusinessType: "b", MainColors: []string{"red"}}},
		{"too many emojis", BusinessProfileRequest{BusinessName: "a", BusinessType: "b", EmojisAllowed: &no,
			FavoriteEmojis: []string{"1", "2", "3", "4", "5", "6", "7", "8"}}},
		{"bad platform", BusinessProfileRequest{BusinessName: "a", BusinessType: "b", Platforms: []string{"TikTok"}}},
		{"missing name", BusinessProfileRequest{BusinessType: "b"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.req.ToProfile(primitive.NewObjectID())
			assert.Error(t, err)
		})
	}
}

func TestCaption(t *testing.T) {
	s := &ContentSuggestion{Content: "Fresh bread", Hashtags: []string{"bakery", "local"}}
	assert.Equal(t, "Fresh bread\n\n#bakery #local", s.Caption())

	s.Hashtags = nil
	assert.Equal(t, "Fresh bread", s.Caption())
}

func TestInstagramHelpers(t *testing.T) {
	assert.Equal(t, ContentTypeReel, ContentTypeForMedia("VIDEO"))
	assert.Equal(t, ContentTypePost, ContentTypeForMedia("CAROUSEL_ALBUM"))
	assert.Equal(t, ContentTypeStory, ContentTypeForMedia("UNKNOWN"))
	assert.Equal(t, []string{"sun", "beach_day"}, ExtractHashtags("Hot #sun at the #beach_day!"))
	assert.Empty(t, ExtractHashtags("no tags"))
}
