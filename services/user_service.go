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

	"social-content-platform/models"
)

var ErrUserNotFound = errors.New("user not found")

type UserService struct {
	users *mongo.Collection
}

func NewUserService(db *mongo.Database) *UserService {
	return &UserService{users: db.Collection(models.CollectionUsers)}
}

func (s *UserService) GetByID(ctx context.Context, userID primitive.ObjectID) (*models.User, error) {
	var user models.User
	err := s.users.FindOne(ctx, bson.M{"_id": userID}).Decode(&user)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	return &user, nil
}

// SetInstagramConnection stores the Instagram account id and access token on the user.
func (s *UserService) SetInstagramConnection(ctx context.Context, userID primitive.ObjectID, igUserID, accessToken string) error {
	update := bson.M{
		"$set": bson.M{
			"instagram_user_id":      igUserID,
			"instagram_access_token": accessToken,
			"updated_at":             time.Now(),
		},
	}
	res, err := s.users.UpdateOne(ctx, bson.M{"_id": userID}, update)
	if err != nil {
		return fmt.Errorf("failed to update instagram connection: %w", err)
	}
	if res.MatchedCount == 0 {
		return ErrUserNotFound
	}
	return nil
}

// ListInstagramConnected returns the ids of users with stored Instagram credentials.
func (s *UserService) ListInstagramConnected(ctx context.Context) ([]primitive.ObjectID, error) {
	filter := bson.M{
		"instagram_user_id":      bson.M{"$nin": bson.A{"", nil}},
		"instagram_access_token": bson.M{"$nin": bson.A{"", nil}},
	}
	opts := options.Find().SetProjection(bson.M{"_id": 1})

	cursor, err := s.users.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list connected users: %w", err)
	}
	defer cursor.Close(ctx)

	var ids []primitive.ObjectID
	for cursor.Next(ctx) {
		var doc struct {
			ID primitive.ObjectID `bson:"_id"`
		}
		if err := cursor.Decode(&doc); err != nil {
			return nil, err
		}
		ids = append(ids, doc.ID)
	}
	return ids, cursor.Err()
}
