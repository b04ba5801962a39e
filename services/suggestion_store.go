package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"social-content-platform/internal/logger"
	"social-content-platform/internal/telemetry"
	"social-content-platform/models"
)

// SuggestionStore keeps content_suggestions in MongoDB.
type SuggestionStore struct {
	client      *mongo.Client
	suggestions *mongo.Collection
	metrics     *telemetry.Metrics
}

func NewSuggestionStore(db *mongo.Database, metrics *telemetry.Metrics) *SuggestionStore {
	return &SuggestionStore{
		client:      db.Client(),
		suggestions: db.Collection(models.CollectionContentSuggestions),
		metrics:     metrics,
	}
}

// sourceFilter scopes a query to (userID, source). Documents written before
// source tagging have no source and count as profile suggestions.
func sourceFilter(userID primitive.ObjectID, source models.Source) bson.M {
	if source == models.SourceProfile {
		return bson.M{"user_id": userID, "source": bson.M{"$in": bson.A{string(models.SourceProfile), "", nil}}}
	}
	return bson.M{"user_id": userID, "source": string(source)}
}

func (s *SuggestionStore) ListBySource(ctx context.Context, userID primitive.ObjectID, source models.Source) ([]models.ContentSuggestion, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})

	cursor, err := s.suggestions.Find(ctx, sourceFilter(userID, source), opts)
	s.metrics.RecordDatabaseOperation("find", models.CollectionContentSuggestions, err == nil)
	if err != nil {
		return nil, fmt.Errorf("failed to query suggestions: %w", err)
	}
	defer cursor.Close(ctx)

	out := []models.ContentSuggestion{}
	if err := cursor.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("failed to decode suggestions: %w", err)
	}
	return out, nil
}

// ReplaceBySource deletes the current (userID, source) batch and inserts batch
// in one transaction. Standalone servers without transaction support get the
// same two writes without isolation.
func (s *SuggestionStore) ReplaceBySource(ctx context.Context, userID primitive.ObjectID, source models.Source, batch []models.ContentSuggestion) ([]models.ContentSuggestion, error) {
	stored := make([]models.ContentSuggestion, len(batch))
	docs := make([]interface{}, len(batch))
	for i, sug := range batch {
		if sug.ID.IsZero() {
			sug.ID = primitive.NewObjectID()
		}
		sug.UserID = userID
		sug.Source = source
		if sug.ImageURLs == nil {
			sug.ImageURLs = []string{}
		}
		if sug.Hashtags == nil {
			sug.Hashtags = []string{}
		}
		stored[i] = sug
		docs[i] = sug
	}

	replace := func(ctx context.Context) error {
		if _, err := s.suggestions.DeleteMany(ctx, sourceFilter(userID, source)); err != nil {
			return fmt.Errorf("failed to delete previous suggestions: %w", err)
		}
		if len(docs) == 0 {
			return nil
		}
		if _, err := s.suggestions.InsertMany(ctx, docs); err != nil {
			return fmt.Errorf("failed to insert suggestions: %w", err)
		}
		return nil
	}

	err := s.withTransaction(ctx, replace)
	s.metrics.RecordDatabaseOperation("replace_batch", models.CollectionContentSuggestions, err == nil)
	if err != nil {
		return nil, err
	}
	return stored, nil
}

func (s *SuggestionStore) withTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	session, err := s.client.StartSession()
	if err != nil {
		return fmt.Errorf("failed to start session: %w", err)
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(sessCtx mongo.SessionContext) (interface{}, error) {
		return nil, fn(sessCtx)
	})
	if err != nil && transactionsUnsupported(err) {
		logger.Debug("Transactions unsupported, replacing without isolation")
		return fn(ctx)
	}
	return err
}

func transactionsUnsupported(err error) bool {
	var cmdErr mongo.CommandError
	if errors.As(err, &cmdErr) && cmdErr.Code == 20 {
		return true
	}
	return strings.Contains(err.Error(), "Transaction numbers are only allowed")
}

// GetForUser returns ErrSuggestionNotFound when id does not exist or belongs to someone else.
func (s *SuggestionStore) GetForUser(ctx context.Context, userID, id primitive.ObjectID) (*models.ContentSuggestion, error) {
	var sug models.ContentSuggestion
	err := s.suggestions.FindOne(ctx, bson.M{"_id": id, "user_id": userID}).Decode(&sug)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrSuggestionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load suggestion: %w", err)
	}
	return &sug, nil
}

func (s *SuggestionStore) ReplaceOne(ctx context.Context, sug *models.ContentSuggestion) error {
	res, err := s.suggestions.ReplaceOne(ctx, bson.M{"_id": sug.ID, "user_id": sug.UserID}, sug)
	s.metrics.RecordDatabaseOperation("replace_one", models.CollectionContentSuggestions, err == nil)
	if err != nil {
		return fmt.Errorf("failed to update suggestion: %w", err)
	}
	if res.MatchedCount == 0 {
		return ErrSuggestionNotFound
	}
	return nil
}

// BackfillSource tags legacy suggestions without a source as profile suggestions.
func (s *SuggestionStore) BackfillSource(ctx context.Context) (int64, error) {
	filter := bson.M{
		"$or": []bson.M{
			{"source": bson.M{"$exists": false}},
			{"source": nil},
			{"source": ""},
		},
	}
	update := bson.M{"$set": bson.M{"source": string(models.SourceProfile)}}

	res, err := s.suggestions.UpdateMany(ctx, filter, update)
	if err != nil {
		return 0, fmt.Errorf("failed to backfill suggestion source: %w", err)
	}
	return res.ModifiedCount, nil
}
