package models

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	MaxMainColors     = 5
	MaxFavoriteEmojis = 7
)

// Tone of voice values
const (
	ToneFriendly      = "Friendly"
	ToneProfessional  = "Professional"
	ToneFunny         = "Funny"
	ToneLuxury        = "Luxury"
	ToneInspirational = "Inspirational"
	ToneBold          = "Bold"
	ToneMinimalistic  = "Minimalistic"
	ToneEmotional     = "Emotional"
)

// Post length values
const (
	PostLengthShort  = "short"
	PostLengthMedium = "medium"
	PostLengthLong   = "long"
)

// Hashtag style values
const (
	HashtagsNone         = "none"
	HashtagsFewRelevant  = "fewRelevant"
	HashtagsManyForReach = "manyForReach"
)

var (
	validTones = map[string]bool{
		ToneFriendly: true, ToneProfessional: true, ToneFunny: true, ToneLuxury: true,
		ToneInspirational: true, ToneBold: true, ToneMinimalistic: true, ToneEmotional: true,
	}
	validPostLengths    = map[string]bool{PostLengthShort: true, PostLengthMedium: true, PostLengthLong: true}
	validHashtagStyles  = map[string]bool{HashtagsNone: true, HashtagsFewRelevant: true, HashtagsManyForReach: true}
	validPlatforms      = map[string]bool{"Instagram": true, "Website": true}
	validProfileContent = map[string]bool{"Posts": true, "Stories": true, "Reels": true, "Newsletter": true}

	hexColorPattern = regexp.MustCompile(`^#(?:[0-9a-fA-F]{3}|[0-9a-fA-F]{6})$`)
)

// BusinessProfile is the per-user configuration that drives content generation.
type BusinessProfile struct {
	ID             primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID         primitive.ObjectID `bson:"user_id" json:"user_id"`
	BusinessName   string             `bson:"business_name" json:"business_name"`
	BusinessType   string             `bson:"business_type" json:"business_type"`
	Platforms      []string           `bson:"platforms" json:"platforms"`
	ContentTypes   []string           `bson:"content_types" json:"content_types"`
	MarketingGoals []string           `bson:"marketing_goals" json:"marketing_goals"`
	AudienceType   string             `bson:"audience_type" json:"audience_type"`
	ToneOfVoice    string             `bson:"tone_of_voice" json:"tone_of_voice"`
	PostLength     string             `bson:"post_length" json:"post_length"`
	MainColors     []string           `bson:"main_colors" json:"main_colors"`
	EmojisAllowed  bool               `bson:"emojis_allowed" json:"emojis_allowed"`
	FavoriteEmojis []string           `bson:"favorite_emojis" json:"favorite_emojis"`
	HashtagsStyle  string             `bson:"hashtags_style" json:"hashtags_style"`
	Keywords       string             `bson:"keywords" json:"keywords"`
	CustomHashtags string             `bson:"custom_hashtags" json:"custom_hashtags"`
	CreatedAt      time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt      time.Time          `bson:"updated_at" json:"updated_at"`
}

// BusinessProfileRequest is the body accepted by PUT /business-profile.
type BusinessProfileRequest struct {
	BusinessName   string   `json:"business_name" binding:"required,max=200"`
	BusinessType   string   `json:"business_type" binding:"required,max=200"`
	Platforms      []string `json:"platforms"`
	ContentTypes   []string `json:"content_types"`
	MarketingGoals []string `json:"marketing_goals"`
	AudienceType   string   `json:"audience_type" binding:"max=500"`
	ToneOfVoice    string   `json:"tone_of_voice"`
	PostLength     string   `json:"post_length"`
	MainColors     []string `json:"main_colors"`
	EmojisAllowed  *bool    `json:"emojis_allowed"`
	FavoriteEmojis []string `json:"favorite_emojis"`
	HashtagsStyle  string   `json:"hashtags_style"`
	Keywords       string   `json:"keywords"`
	CustomHashtags string   `json:"custom_hashtags"`
}

// ToProfile validates the request and returns a profile owned by userID with defaults applied.
func (r *BusinessProfileRequest) ToProfile(userID primitive.ObjectID) (*BusinessProfile, error) {
	p := &BusinessProfile{
		UserID:         userID,
		BusinessName:   strings.TrimSpace(r.BusinessName),
		BusinessType:   strings.TrimSpace(r.BusinessType),
		Platforms:      r.Platforms,
		ContentTypes:   r.ContentTypes,
		MarketingGoals: r.MarketingGoals,
		AudienceType:   strings.TrimSpace(r.AudienceType),
		ToneOfVoice:    r.ToneOfVoice,
		PostLength:     r.PostLength,
		MainColors:     r.MainColors,
		EmojisAllowed:  true,
		FavoriteEmojis: r.FavoriteEmojis,
		HashtagsStyle:  r.HashtagsStyle,
		Keywords:       strings.TrimSpace(r.Keywords),
		CustomHashtags: strings.TrimSpace(r.CustomHashtags),
	}
	if r.EmojisAllowed != nil {
		p.EmojisAllowed = *r.EmojisAllowed
	}
	p.ApplyDefaults()

	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

// ApplyDefaults fills empty enum fields and nil lists.
func (p *BusinessProfile) ApplyDefaults() {
	if p.ToneOfVoice == "" {
		p.ToneOfVoice = ToneFriendly
	}
	if p.PostLength == "" {
		p.PostLength = PostLengthMedium
	}
	if p.HashtagsStyle == "" {
		p.HashtagsStyle = HashtagsFewRelevant
	}
	if p.Platforms == nil {
		p.Platforms = []string{}
	}
	if p.ContentTypes == nil {
		p.ContentTypes = []string{}
	}
	if p.MarketingGoals == nil {
		p.MarketingGoals = []string{}
	}
	if p.MainColors == nil {
		p.MainColors = []string{}
	}
	if p.FavoriteEmojis == nil {
		p.FavoriteEmojis = []string{}
	}
}

// Validate checks required fields, enumerations and list limits.
func (p *BusinessProfile) Validate() error {
	if p.BusinessName == "" {
		return fmt.Errorf("business_name is required")
	}
	if p.BusinessType == "" {
		return fmt.Errorf("business_type is required")
	}
	if !validTones[p.ToneOfVoice] {
		return fmt.Errorf("invalid tone_of_voice %q", p.ToneOfVoice)
	}
	if !validPostLengths[p.PostLength] {
		return fmt.Errorf("invalid post_length %q", p.PostLength)
	}
	if !validHashtagStyles[p.HashtagsStyle] {
		return fmt.Errorf("invalid hashtags_style %q", p.HashtagsStyle)
	}
	for _, platform := range p.Platforms {
		if !validPlatforms[platform] {
			return fmt.Errorf("invalid platform %q", platform)
		}
	}
	for _, ct := range p.ContentTypes {
		if !validProfileContent[ct] {
			return fmt.Errorf("invalid content type %q", ct)
		}
	}
	if len(p.MainColors) > MaxMainColors {
		return fmt.Errorf("maximum %d colors allowed", MaxMainColors)
	}
	for _, c := range p.MainColors {
		if !hexColorPattern.MatchString(c) {
			return fmt.Errorf("invalid color %q", c)
		}
	}
	if len(p.FavoriteEmojis) > MaxFavoriteEmojis {
		return fmt.Errorf("maximum %d emojis allowed", MaxFavoriteEmojis)
	}
	return nil
}
