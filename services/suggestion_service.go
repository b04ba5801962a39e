package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"social-content-platform/internal/ai"
	"social-content-platform/internal/logger"
	"social-content-platform/internal/telemetry"
	"social-content-platform/models"
)

var (
	ErrProfileNotFound    = errors.New("business profile not found")
	ErrSuggestionNotFound = errors.New("suggestion not found")
)

type ProfileReader interface {
	GetByUser(ctx context.Context, userID primitive.ObjectID) (*models.BusinessProfile, error)
}

// SuggestionRepository persists suggestion batches scoped by user and source.
type SuggestionRepository interface {
	// ListBySource returns the user's suggestions for source, newest first.
	ListBySource(ctx context.Context, userID primitive.ObjectID, source models.Source) ([]models.ContentSuggestion, error)
	// ReplaceBySource swaps every suggestion for (userID, source) for batch and returns the stored batch.
	ReplaceBySource(ctx context.Context, userID primitive.ObjectID, source models.Source, batch []models.ContentSuggestion) ([]models.ContentSuggestion, error)
	GetForUser(ctx context.Context, userID, id primitive.ObjectID) (*models.ContentSuggestion, error)
	ReplaceOne(ctx context.Context, s *models.ContentSuggestion) error
}

type TopPostsReader interface {
	TopPosts(ctx context.Context, userID primitive.ObjectID, limit int) ([]models.InstagramPost, error)
}

type DraftGenerator interface {
	Generate(ctx context.Context, profile *models.BusinessProfile, count int, posts []models.InstagramPost) ([]ai.Draft, error)
}

type AssetMirror interface {
	Mirror(ctx context.Context, externalURL string) (string, error)
}

// SuggestionService sequences profile lookup, freshness, generation,
// mirroring and persistence for content suggestions.
type SuggestionService struct {
	profiles    ProfileReader
	suggestions SuggestionRepository
	posts       TopPostsReader
	generator   DraftGenerator
	mirror      AssetMirror
	metrics     *telemetry.Metrics
	now         func() time.Time
}

func NewSuggestionService(
	profiles ProfileReader,
	suggestions SuggestionRepository,
	posts TopPostsReader,
	generator DraftGenerator,
	mirror AssetMirror,
	metrics *telemetry.Metrics,
) *SuggestionService {
	return &SuggestionService{
		profiles:    profiles,
		suggestions: suggestions,
		posts:       posts,
		generator:   generator,
		mirror:      mirror,
		metrics:     metrics,
		now:         time.Now,
	}
}

// GetOrGenerate returns the user's current batch for source, regenerating it when stale.
// A failed regeneration leaves the previous batch in place.
func (s *SuggestionService) GetOrGenerate(ctx context.Context, userID primitive.ObjectID, source models.Source) ([]models.ContentSuggestion, error) {
	ctx, span := otel.Tracer("suggestions").Start(ctx, "suggestions.get_or_generate")
	defer span.End()
	span.SetAttributes(attribute.String("suggestions.source", string(source)))

	existing, err := s.suggestions.ListBySource(ctx, userID, source)
	if err != nil {
		return nil, fmt.Errorf("list suggestions: %w", err)
	}

	now := s.now()
	if !ShouldRegenerate(existing, now) {
		span.SetAttributes(attribute.Bool("suggestions.reused", true))
		s.metrics.RecordSuggestionBatch(string(source), "reused")
		return existing, nil
	}

	profile, err := s.profiles.GetByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	posts, err := s.contextPosts(ctx, userID, source)
	if err != nil {
		return nil, err
	}

	drafts, err := s.generator.Generate(ctx, profile, SuggestionBatchSize, posts)
	if err != nil {
		s.metrics.RecordSuggestionBatch(string(source), "failed")
		return nil, err
	}

	batch := make([]models.ContentSuggestion, 0, len(drafts))
	for _, d := range drafts {
		batch = append(batch, models.ContentSuggestion{
			UserID:      userID,
			Title:       d.Title,
			Content:     d.Content,
			Hashtags:    d.Hashtags,
			ImageURLs:   s.mirrorFirst(ctx, d.ImageURLs),
			ContentType: d.ContentType,
			Refreshed:   false,
			Source:      source,
			CreatedAt:   now,
		})
	}

	stored, err := s.suggestions.ReplaceBySource(ctx, userID, source, batch)
	if err != nil {
		return nil, fmt.Errorf("store suggestions: %w", err)
	}

	s.metrics.RecordSuggestionBatch(string(source), "regenerated")
	logger.Info("Suggestions regenerated",
		"user_id", userID.Hex(),
		"source", string(source),
		"replaced", len(existing),
		"count", len(stored),
	)
	return stored, nil
}

// RefreshOne regenerates a single suggestion in place and marks it refreshed.
func (s *SuggestionService) RefreshOne(ctx context.Context, userID, suggestionID primitive.ObjectID) (*models.ContentSuggestion, error) {
	ctx, span := otel.Tracer("suggestions").Start(ctx, "suggestions.refresh_one")
	defer span.End()

	profile, err := s.profiles.GetByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	target, err := s.suggestions.GetForUser(ctx, userID, suggestionID)
	if err != nil {
		return nil, err
	}

	source := target.Source
	if source == "" {
		source = models.SourceProfile
	}

	posts, err := s.contextPosts(ctx, userID, source)
	if err != nil {
		return nil, err
	}

	drafts, err := s.generator.Generate(ctx, profile, 1, posts)
	if err != nil {
		return nil, err
	}
	if len(drafts) == 0 {
		return nil, ai.ErrMalformedResponse
	}
	d := drafts[0]

	updated := *target
	updated.Title = d.Title
	updated.Content = d.Content
	updated.Hashtags = d.Hashtags
	updated.ContentType = d.ContentType
	updated.ImageURLs = s.mirrorFirst(ctx, d.ImageURLs)
	updated.Source = source
	updated.Refreshed = true
	updated.CreatedAt = s.now()

	if err := s.suggestions.ReplaceOne(ctx, &updated); err != nil {
		return nil, err
	}

	logger.Info("Suggestion refreshed", "user_id", userID.Hex(), "suggestion_id", suggestionID.Hex())
	return &updated, nil
}

// List returns the stored batch for source without regenerating.
func (s *SuggestionService) List(ctx context.Context, userID primitive.ObjectID, source models.Source) ([]models.ContentSuggestion, error) {
	return s.suggestions.ListBySource(ctx, userID, source)
}

// Get returns one of the user's suggestions.
func (s *SuggestionService) Get(ctx context.Context, userID, suggestionID primitive.ObjectID) (*models.ContentSuggestion, error) {
	return s.suggestions.GetForUser(ctx, userID, suggestionID)
}

// contextPosts loads top Instagram posts for sources that need them. It returns
// nil for profile-only sources and a non-nil slice otherwise.
func (s *SuggestionService) contextPosts(ctx context.Context, userID primitive.ObjectID, source models.Source) ([]models.InstagramPost, error) {
	if !source.UsesInstagram() || s.posts == nil {
		return nil, nil
	}
	posts, err := s.posts.TopPosts(ctx, userID, ai.TopPostsInPrompt)
	if err != nil {
		return nil, fmt.Errorf("load top posts: %w", err)
	}
	if posts == nil {
		posts = []models.InstagramPost{}
	}
	return posts, nil
}

// mirrorFirst mirrors the first image only. Failures yield an empty list.
func (s *SuggestionService) mirrorFirst(ctx context.Context, urls []string) []string {
	if len(urls) == 0 {
		return []string{}
	}
	if s.mirror == nil {
		return []string{urls[0]}
	}
	ref, err := s.mirror.Mirror(ctx, urls[0])
	if err != nil {
		logger.Warn("Asset mirror failed, dropping image", "error", err)
		return []string{}
	}
	return []string{ref}
}
