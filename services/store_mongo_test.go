package services

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"social-content-platform/internal/instagram"
	"social-content-platform/models"
)

// testDatabase connects to MONGO_URI and returns a throwaway database that is
// dropped when the test ends.
func testDatabase(t *testing.T) *mongo.Database {
	t.Helper()
	uri := os.Getenv("MONGO_URI")
	if uri == "" {
		t.Skip("MONGO_URI not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		t.Skipf("mongo connect failed: %v", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		t.Skipf("mongo ping failed: %v", err)
	}

	db := client.Database("scp_test_" + primitive.NewObjectID().Hex())
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = db.Drop(ctx)
		_ = client.Disconnect(ctx)
	})
	return db
}

func TestSourceFilter(t *testing.T) {
	user := primitive.NewObjectID()

	profile := sourceFilter(user, models.SourceProfile)
	assert.Equal(t, user, profile["user_id"])
	assert.Equal(t, bson.M{"$in": bson.A{"profile", "", nil}}, profile["source"])

	ig := sourceFilter(user, models.SourceInstagram)
	assert.Equal(t, "instagramProfile", ig["source"])
}

func TestTransactionsUnsupported(t *testing.T) {
	assert.True(t, transactionsUnsupported(mongo.CommandError{Code: 20, Message: "IllegalOperation"}))
	assert.True(t, transactionsUnsupported(errors.New("(IllegalOperation) Transaction numbers are only allowed on a replica set member or mongos")))
	assert.False(t, transactionsUnsupported(mongo.CommandError{Code: 11000, Message: "duplicate key"}))
	assert.False(t, transactionsUnsupported(errors.New("connection reset")))
}

func TestSuggestionStoreScopesByUserAndSource(t *testing.T) {
	db := testDatabase(t)
	ctx := context.Background()
	store := NewSuggestionStore(db, nil)
	coll := db.Collection(models.CollectionContentSuggestions)

	owner, other := primitive.NewObjectID(), primitive.NewObjectID()
	old := time.Now().Add(-48 * time.Hour)
	_, err := coll.InsertMany(ctx, []interface{}{
		bson.M{"user_id": owner, "title": "legacy-missing", "created_at": old},
		bson.M{"user_id": owner, "title": "legacy-empty", "source": "", "created_at": old.Add(time.Minute)},
		bson.M{"user_id": owner, "title": "ig", "source": "instagramProfile", "created_at": old},
		bson.M{"user_id": other, "title": "someone-else", "source": "profile", "created_at": old},
	})
	require.NoError(t, err)

	legacy, err := store.ListBySource(ctx, owner, models.SourceProfile)
	require.NoError(t, err)
	require.Len(t, legacy, 2)
	assert.Equal(t, "legacy-empty", legacy[0].Title, "newest first")

	now := time.Now()
	stored, err := store.ReplaceBySource(ctx, owner, models.SourceProfile, []models.ContentSuggestion{
		{Title: "older", CreatedAt: now.Add(-time.Second)},
		{Title: "newer", CreatedAt: now, Hashtags: []string{"sun"}},
	})
	require.NoError(t, err)
	require.Len(t, stored, 2)
	for _, s := range stored {
		assert.False(t, s.ID.IsZero())
		assert.Equal(t, owner, s.UserID)
		assert.Equal(t, models.SourceProfile, s.Source)
		assert.NotNil(t, s.ImageURLs)
		assert.NotNil(t, s.Hashtags)
	}

	current, err := store.ListBySource(ctx, owner, models.SourceProfile)
	require.NoError(t, err)
	require.Len(t, current, 2)
	assert.Equal(t, "newer", current[0].Title)
	assert.Equal(t, "older", current[1].Title)
	assert.Empty(t, current[1].Hashtags)

	var raw bson.M
	require.NoError(t, coll.FindOne(ctx, bson.M{"_id": current[1].ID}).Decode(&raw))
	assert.Equal(t, bson.A{}, raw["image_urls"], "empty list stored, not null")

	ig, err := store.ListBySource(ctx, owner, models.SourceInstagram)
	require.NoError(t, err)
	require.Len(t, ig, 1)
	assert.Equal(t, "ig", ig[0].Title)

	untouched, err := store.ListBySource(ctx, other, models.SourceProfile)
	require.NoError(t, err)
	require.Len(t, untouched, 1)
	assert.Equal(t, "someone-else", untouched[0].Title)
}

func TestSuggestionStoreOwnerScopedLookupAndReplace(t *testing.T) {
	db := testDatabase(t)
	ctx := context.Background()
	store := NewSuggestionStore(db, nil)

	owner, other := primitive.NewObjectID(), primitive.NewObjectID()
	stored, err := store.ReplaceBySource(ctx, owner, models.SourceInstagram, []models.ContentSuggestion{
		{Title: "first", CreatedAt: time.Now()},
	})
	require.NoError(t, err)
	id := stored[0].ID

	_, err = store.GetForUser(ctx, other, id)
	assert.ErrorIs(t, err, ErrSuggestionNotFound)

	hijack := stored[0]
	hijack.UserID = other
	hijack.Title = "stolen"
	assert.ErrorIs(t, store.ReplaceOne(ctx, &hijack), ErrSuggestionNotFound)

	missing := stored[0]
	missing.ID = primitive.NewObjectID()
	assert.ErrorIs(t, store.ReplaceOne(ctx, &missing), ErrSuggestionNotFound)

	updated := stored[0]
	updated.Title = "refreshed"
	updated.Refreshed = true
	require.NoError(t, store.ReplaceOne(ctx, &updated))

	got, err := store.GetForUser(ctx, owner, id)
	require.NoError(t, err)
	assert.Equal(t, "refreshed", got.Title)
	assert.True(t, got.Refreshed)
	assert.Equal(t, models.SourceInstagram, got.Source)
}

func TestSuggestionStoreReplaceWithEmptyBatch(t *testing.T) {
	db := testDatabase(t)
	ctx := context.Background()
	store := NewSuggestionStore(db, nil)
	owner := primitive.NewObjectID()

	_, err := store.ReplaceBySource(ctx, owner, models.SourceProfile, []models.ContentSuggestion{{Title: "a"}})
	require.NoError(t, err)

	stored, err := store.ReplaceBySource(ctx, owner, models.SourceProfile, nil)
	require.NoError(t, err)
	assert.Empty(t, stored)

	left, err := store.ListBySource(ctx, owner, models.SourceProfile)
	require.NoError(t, err)
	assert.Empty(t, left)
}

func TestSuggestionStoreBackfillSource(t *testing.T) {
	db := testDatabase(t)
	ctx := context.Background()
	store := NewSuggestionStore(db, nil)
	coll := db.Collection(models.CollectionContentSuggestions)

	user := primitive.NewObjectID()
	_, err := coll.InsertMany(ctx, []interface{}{
		bson.M{"user_id": user, "title": "missing"},
		bson.M{"user_id": user, "title": "null", "source": nil},
		bson.M{"user_id": user, "title": "empty", "source": ""},
		bson.M{"user_id": user, "title": "ig", "source": "instagramProfile"},
	})
	require.NoError(t, err)

	n, err := store.BackfillSource(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)

	profiles, err := coll.CountDocuments(ctx, bson.M{"source": "profile"})
	require.NoError(t, err)
	assert.Equal(t, int64(3), profiles)

	n, err = store.BackfillSource(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestProfileServiceUpsert(t *testing.T) {
	db := testDatabase(t)
	ctx := context.Background()
	profiles := NewProfileService(db, nil)
	user := primitive.NewObjectID()

	_, err := profiles.GetByUser(ctx, user)
	assert.ErrorIs(t, err, ErrProfileNotFound)

	p := &models.BusinessProfile{UserID: user, BusinessName: "Crumbs", BusinessType: "bakery"}
	p.ApplyDefaults()
	first, err := profiles.Upsert(ctx, p)
	require.NoError(t, err)
	assert.False(t, first.ID.IsZero())
	assert.Equal(t, user, first.UserID)
	assert.False(t, first.CreatedAt.IsZero())

	p.BusinessName = "Crumbs & Co"
	p.CreatedAt = time.Now().Add(24 * time.Hour)
	second, err := profiles.Upsert(ctx, p)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, "Crumbs & Co", second.BusinessName)
	assert.True(t, first.CreatedAt.Equal(second.CreatedAt), "created_at only set on insert")
	assert.False(t, second.UpdatedAt.Before(first.UpdatedAt))

	count, err := db.Collection(models.CollectionBusinessProfiles).CountDocuments(ctx, bson.M{"user_id": user})
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	bad := &models.BusinessProfile{UserID: primitive.NewObjectID(), BusinessName: "x", BusinessType: "y", ToneOfVoice: "Grumpy"}
	_, err = profiles.Upsert(ctx, bad)
	assert.Error(t, err)
	_, err = profiles.GetByUser(ctx, bad.UserID)
	assert.ErrorIs(t, err, ErrProfileNotFound)
}

func TestUserServiceInstagramConnection(t *testing.T) {
	db := testDatabase(t)
	ctx := context.Background()
	users := NewUserService(db)

	connected, idle := primitive.NewObjectID(), primitive.NewObjectID()
	_, err := db.Collection(models.CollectionUsers).InsertMany(ctx, []interface{}{
		bson.M{"_id": connected, "username": "a"},
		bson.M{"_id": idle, "username": "b", "instagram_user_id": ""},
	})
	require.NoError(t, err)

	assert.ErrorIs(t, users.SetInstagramConnection(ctx, primitive.NewObjectID(), "1784", "tok"), ErrUserNotFound)
	require.NoError(t, users.SetInstagramConnection(ctx, connected, "1784", "tok"))

	u, err := users.GetByID(ctx, connected)
	require.NoError(t, err)
	assert.True(t, u.InstagramConnected())
	assert.Equal(t, "1784", u.InstagramUserID)

	_, err = users.GetByID(ctx, primitive.NewObjectID())
	assert.ErrorIs(t, err, ErrUserNotFound)

	ids, err := users.ListInstagramConnected(ctx)
	require.NoError(t, err)
	assert.Equal(t, []primitive.ObjectID{connected}, ids)
}

func TestInstagramServiceSyncAndRank(t *testing.T) {
	db := testDatabase(t)
	ctx := context.Background()

	users := NewUserService(db)
	userID := primitive.NewObjectID()
	_, err := db.Collection(models.CollectionUsers).InsertOne(ctx, bson.M{
		"_id": userID, "instagram_user_id": "1784", "instagram_access_token": "tok",
	})
	require.NoError(t, err)

	ts := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	graph := &fakeGraph{media: []instagram.Media{
		{ID: "a", Caption: "morning #bread", MediaType: "IMAGE", LikeCount: 5, CommentsCount: 1, Timestamp: ts},
		{ID: "b", Caption: "reel", MediaType: "VIDEO", LikeCount: 9, CommentsCount: 3, Timestamp: ts.Add(time.Hour)},
	}}
	svc := NewInstagramService(db, graph, users, NewSuggestionStore(db, nil), nil)

	n, err := svc.SyncUser(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	graph.media[0].LikeCount = 12
	_, err = svc.SyncUser(ctx, userID)
	require.NoError(t, err)

	count, err := db.Collection(models.CollectionInstagramPosts).CountDocuments(ctx, bson.M{"user_id": userID})
	require.NoError(t, err)
	assert.Equal(t, int64(2), count, "re-sync upserts by instagram_id")

	top, err := svc.TopPosts(ctx, userID, 5)
	require.NoError(t, err)
	require.Len(t, top, 2)
	assert.Equal(t, "a", top[0].InstagramID)
	assert.Equal(t, []string{"bread"}, top[0].Hashtags)
	assert.Equal(t, models.ContentTypeReel, top[1].ContentType)

	insights, err := svc.Insights(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), insights.Posts)
	assert.Equal(t, int64(21), insights.TotalLikes)
	assert.Equal(t, int64(4), insights.TotalComments)
	require.NotNil(t, insights.TopPost)
	assert.Equal(t, "a", insights.TopPost.InstagramID)

	empty, err := svc.Insights(ctx, primitive.NewObjectID())
	require.NoError(t, err)
	assert.Zero(t, empty.Posts)
	assert.Nil(t, empty.TopPost)
}
