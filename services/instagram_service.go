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

	"social-content-platform/internal/instagram"
	"social-content-platform/internal/logger"
	"social-content-platform/internal/telemetry"
	"social-content-platform/models"
)

var (
	ErrInstagramNotConnected = errors.New("instagram account is not connected")
	ErrNothingToPublish      = errors.New("suggestion has no image to publish")
)

// InstagramAPI is the subset of the Graph API client used here.
type InstagramAPI interface {
	FetchMedia(ctx context.Context, accessToken string) ([]instagram.Media, error)
	Publish(ctx context.Context, igUserID, accessToken, imageURL, caption string) (string, error)
}

type UserRepository interface {
	GetByID(ctx context.Context, userID primitive.ObjectID) (*models.User, error)
	SetInstagramConnection(ctx context.Context, userID primitive.ObjectID, igUserID, accessToken string) error
}

// InstagramInsights summarises engagement over a user's cached posts.
type InstagramInsights struct {
	Posts           int64                 `json:"posts"`
	TotalLikes      int64                 `json:"total_likes"`
	TotalComments   int64                 `json:"total_comments"`
	AverageLikes    float64               `json:"average_likes"`
	AverageComments float64               `json:"average_comments"`
	TopPost         *models.InstagramPost `json:"top_post,omitempty"`
	LastSyncedAt    *time.Time            `json:"last_synced_at,omitempty"`
}

type InstagramService struct {
	posts       *mongo.Collection
	api         InstagramAPI
	users       UserRepository
	suggestions SuggestionRepository
	metrics     *telemetry.Metrics
}

func NewInstagramService(db *mongo.Database, api InstagramAPI, users UserRepository, suggestions SuggestionRepository, metrics *telemetry.Metrics) *InstagramService {
	return &InstagramService{
		posts:       db.Collection(models.CollectionInstagramPosts),
		api:         api,
		users:       users,
		suggestions: suggestions,
		metrics:     metrics,
	}
}

func (s *InstagramService) Connect(ctx context.Context, userID primitive.ObjectID, req *models.InstagramConnectRequest) error {
	return s.users.SetInstagramConnection(ctx, userID, req.InstagramUserID, req.AccessToken)
}

func (s *InstagramService) connectedUser(ctx context.Context, userID primitive.ObjectID) (*models.User, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !user.InstagramConnected() {
		return nil, ErrInstagramNotConnected
	}
	return user, nil
}

// SyncUser pulls the user's media from Instagram and upserts it by instagram_id.
// It returns the number of media items seen.
func (s *InstagramService) SyncUser(ctx context.Context, userID primitive.ObjectID) (int, error) {
	user, err := s.connectedUser(ctx, userID)
	if err != nil {
		return 0, err
	}

	media, err := s.api.FetchMedia(ctx, user.InstagramAccessToken)
	if err != nil {
		return 0, fmt.Errorf("failed to fetch instagram media: %w", err)
	}
	if len(media) == 0 {
		return 0, nil
	}

	now := time.Now()
	writes := make([]mongo.WriteModel, 0, len(media))
	for _, m := range media {
		post := postFromMedia(userID, m, now)
		writes = append(writes, mongo.NewUpdateOneModel().
			SetFilter(bson.M{"instagram_id": post.InstagramID}).
			SetUpdate(bson.M{"$set": post}).
			SetUpsert(true))
	}

	res, err := s.posts.BulkWrite(ctx, writes, options.BulkWrite().SetOrdered(false))
	s.metrics.RecordDatabaseOperation("bulk_upsert", models.CollectionInstagramPosts, err == nil)
	if err != nil {
		return 0, fmt.Errorf("failed to store instagram media: %w", err)
	}

	logger.Info("Instagram media synced",
		"user_id", userID.Hex(),
		"fetched", len(media),
		"upserted", res.UpsertedCount,
		"modified", res.ModifiedCount,
	)
	return len(media), nil
}

func postFromMedia(userID primitive.ObjectID, m instagram.Media, syncedAt time.Time) models.InstagramPost {
	return models.InstagramPost{
		UserID:        userID,
		InstagramID:   m.ID,
		Caption:       m.Caption,
		MediaType:     m.MediaType,
		MediaURL:      m.MediaURL,
		Permalink:     m.Permalink,
		Timestamp:     m.Timestamp,
		LikeCount:     m.LikeCount,
		CommentsCount: m.CommentsCount,
		ContentType:   models.ContentTypeForMedia(m.MediaType),
		Hashtags:      models.ExtractHashtags(m.Caption),
		SyncedAt:      syncedAt,
	}
}

// TopPosts returns the user's cached posts ordered by likes, most liked first.
func (s *InstagramService) TopPosts(ctx context.Context, userID primitive.ObjectID, limit int) ([]models.InstagramPost, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "like_count", Value: -1}, {Key: "timestamp", Value: -1}}).
		SetLimit(int64(limit))

	cursor, err := s.posts.Find(ctx, bson.M{"user_id": userID}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query instagram posts: %w", err)
	}
	defer cursor.Close(ctx)

	posts := []models.InstagramPost{}
	if err := cursor.All(ctx, &posts); err != nil {
		return nil, fmt.Errorf("failed to decode instagram posts: %w", err)
	}
	return posts, nil
}

func (s *InstagramService) Insights(ctx context.Context, userID primitive.ObjectID) (*InstagramInsights, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"user_id": userID}}},
		{{Key: "$group", Value: bson.M{
			"_id":            nil,
			"posts":          bson.M{"$sum": 1},
			"total_likes":    bson.M{"$sum": "$like_count"},
			"total_comments": bson.M{"$sum": "$comments_count"},
			"last_synced_at": bson.M{"$max": "$synced_at"},
		}}},
	}

	cursor, err := s.posts.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate instagram posts: %w", err)
	}
	defer cursor.Close(ctx)

	var rows []struct {
		Posts         int64     `bson:"posts"`
		TotalLikes    int64     `bson:"total_likes"`
		TotalComments int64     `bson:"total_comments"`
		LastSyncedAt  time.Time `bson:"last_synced_at"`
	}
	if err := cursor.All(ctx, &rows); err != nil {
		return nil, fmt.Errorf("failed to decode insights: %w", err)
	}

	insights := &InstagramInsights{}
	if len(rows) == 0 {
		return insights, nil
	}
	row := rows[0]
	insights.Posts = row.Posts
	insights.TotalLikes = row.TotalLikes
	insights.TotalComments = row.TotalComments
	insights.LastSyncedAt = &row.LastSyncedAt
	if row.Posts > 0 {
		insights.AverageLikes = float64(row.TotalLikes) / float64(row.Posts)
		insights.AverageComments = float64(row.TotalComments) / float64(row.Posts)
	}

	top, err := s.TopPosts(ctx, userID, 1)
	if err != nil {
		return nil, err
	}
	if len(top) > 0 {
		insights.TopPost = &top[0]
	}
	return insights, nil
}

// Publish posts a suggestion's first image with its caption and returns the Instagram media id.
func (s *InstagramService) Publish(ctx context.Context, userID, suggestionID primitive.ObjectID) (string, error) {
	user, err := s.connectedUser(ctx, userID)
	if err != nil {
		return "", err
	}

	sug, err := s.suggestions.GetForUser(ctx, userID, suggestionID)
	if err != nil {
		return "", err
	}
	if len(sug.ImageURLs) == 0 {
		return "", ErrNothingToPublish
	}

	mediaID, err := s.api.Publish(ctx, user.InstagramUserID, user.InstagramAccessToken, sug.ImageURLs[0], sug.Caption())
	if err != nil {
		return "", fmt.Errorf("failed to publish to instagram: %w", err)
	}

	logger.Info("Suggestion published to Instagram",
		"user_id", userID.Hex(),
		"suggestion_id", suggestionID.Hex(),
		"media_id", mediaID,
	)
	return mediaID, nil
}
