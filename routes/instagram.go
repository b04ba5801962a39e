package routes

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"social-content-platform/internal/ai"
	"social-content-platform/internal/logger"
	"social-content-platform/internal/queue"
	"social-content-platform/models"
	"social-content-platform/services"
	"social-content-platform/utils"
)

const maxTopPostsLimit = 50

// InstagramAPI is implemented by services.InstagramService.
type InstagramAPI interface {
	Connect(ctx context.Context, userID primitive.ObjectID, req *models.InstagramConnectRequest) error
	SyncUser(ctx context.Context, userID primitive.ObjectID) (int, error)
	TopPosts(ctx context.Context, userID primitive.ObjectID, limit int) ([]models.InstagramPost, error)
	Publish(ctx context.Context, userID, suggestionID primitive.ObjectID) (string, error)
}

// SyncQueue hands a sync to the background worker.
type SyncQueue interface {
	EnqueueSync(ctx context.Context, userID primitive.ObjectID, queueName string) error
}

// SetupInstagramRoutes registers the Instagram endpoints. With a nil syncQueue
// /instagram/sync runs inline.
func SetupInstagramRoutes(group *gin.RouterGroup, ig InstagramAPI, syncQueue SyncQueue) {
	g := group.Group("/instagram")
	{
		g.PUT("/connect", handleInstagramConnect(ig))
		g.POST("/sync", handleInstagramSync(ig, syncQueue))
		g.GET("/posts/top", handleTopPosts(ig))
		g.POST("/publish", handlePublish(ig))
	}
}

func handleInstagramConnect(ig InstagramAPI) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := requireUser(c)
		if !ok {
			return
		}

		var req models.InstagramConnectRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			utils.RespondWithBadRequest(c, "Invalid request body", gin.H{"error": err.Error()})
			return
		}

		if err := ig.Connect(c.Request.Context(), userID, &req); err != nil {
			respondServiceError(c, err, "connect instagram")
			return
		}
		c.JSON(http.StatusOK, gin.H{"connected": true, "instagram_user_id": req.InstagramUserID})
	}
}

func handleInstagramSync(ig InstagramAPI, syncQueue SyncQueue) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := requireUser(c)
		if !ok {
			return
		}

		if syncQueue != nil {
			err := syncQueue.EnqueueSync(c.Request.Context(), userID, queue.QueueDefault)
			if err == nil {
				c.JSON(http.StatusAccepted, gin.H{"status": "queued"})
				return
			}
			logger.Warn("Sync enqueue failed, running inline", "user_id", userID.Hex(), "error", err)
		}

		n, err := ig.SyncUser(c.Request.Context(), userID)
		if err != nil {
			respondServiceError(c, err, "sync instagram media")
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "synced", "media": n})
	}
}

func handleTopPosts(ig InstagramAPI) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := requireUser(c)
		if !ok {
			return
		}

		limit := ai.TopPostsInPrompt
		if raw := c.Query("limit"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil || n < 1 || n > maxTopPostsLimit {
				utils.RespondWithBadRequest(c, "limit must be between 1 and 50", gin.H{"limit": raw})
				return
			}
			limit = n
		}

		posts, err := ig.TopPosts(c.Request.Context(), userID, limit)
		if err != nil {
			respondServiceError(c, err, "load top posts")
			return
		}
		c.JSON(http.StatusOK, posts)
	}
}

func handlePublish(ig InstagramAPI) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := requireUser(c)
		if !ok {
			return
		}

		var req models.PublishRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			utils.RespondWithBadRequest(c, "Invalid request body", gin.H{"error": err.Error()})
			return
		}
		suggestionID, err := primitive.ObjectIDFromHex(req.SuggestionID)
		if err != nil {
			utils.RespondWithBadRequest(c, "Invalid suggestion_id", nil)
			return
		}

		mediaID, err := ig.Publish(c.Request.Context(), userID, suggestionID)
		if err != nil {
			respondServiceError(c, err, "publish to instagram")
			return
		}
		c.JSON(http.StatusOK, gin.H{"published": true, "media_id": mediaID})
	}
}

var _ InstagramAPI = (*services.InstagramService)(nil)
