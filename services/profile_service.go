package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"social-content-platform/internal/telemetry"
	"social-content-platform/models"
)

type ProfileService struct {
	profiles *mongo.Collection
	metrics  *telemetry.Metrics
}

func NewProfileService(db *mongo.Database, metrics *telemetry.Metrics) *ProfileService {
	return &ProfileService{
		profiles: db.Collection(models.CollectionBusinessProfiles),
		metrics:  metrics,
	}
}

// GetByUser returns ErrProfileNotFound when the user has no profile.
func (s *ProfileService) GetByUser(ctx context.Context, userID primitive.ObjectID) (*models.BusinessProfile, error) {
	var profile models.BusinessProfile
	err := s.profiles.FindOne(ctx, bson.M{"user_id": userID}).Decode(&profile)
	s.metrics.RecordDatabaseOperation("find_one", models.CollectionBusinessProfiles, err == nil || errors.Is(err, mongo.ErrNoDocuments))
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrProfileNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load business profile: %w", err)
	}
	return &profile, nil
}

// Upsert creates or replaces the user's profile. created_at is kept from the first write.
func (s *ProfileService) Upsert(ctx context.Context, profile *models.BusinessProfile) (*models.BusinessProfile, error) {
	if err := profile.Validate(); err != nil {
		return nil, err
	}

	now := time.Now()
	update := bson.M{
		"$set": bson.M{
			"business_name":   profile.BusinessName,
			"business_type":   profile.BusinessType,
			"platforms":       profile.Platforms,
			"content_types":   profile.ContentTypes,
			"marketing_goals": profile.MarketingGoals,
			"audience_type":   profile.AudienceType,
			"tone_of_voice":   profile.ToneOfVoice,
			"post_length":     profile.PostLength,
			"main_colors":     profile.MainColors,
			"emojis_allowed":  profile.EmojisAllowed,
			"favorite_emojis": profile.FavoriteEmojis,
			"hashtags_style":  profile.HashtagsStyle,
			"keywords":        profile.Keywords,
			"custom_hashtags": profile.CustomHashtags,
			"updated_at":      now,
		},
		"$setOnInsert": bson.M{
			"user_id":    profile.UserID,
			"created_at": now,
		},
	}

	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)

	var saved models.BusinessProfile
	err := s.profiles.FindOneAndUpdate(ctx, bson.M{"user_id": profile.UserID}, update, opts).Decode(&saved)
	s.metrics.RecordDatabaseOperation("upsert", models.CollectionBusinessProfiles, err == nil)
	if err != nil {
		return nil, fmt.Errorf("failed to save business profile: %w", err)
	}
	return &saved, nil
}
