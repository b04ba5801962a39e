package routes

import (
	"context"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"social-content-platform/internal/ai"
	"social-content-platform/models"
	"social-content-platform/services"
	"social-content-platform/utils"
)

type ChatAPI interface {
	Send(ctx context.Context, userID primitive.ObjectID, message, imageURL string) (*ai.ChatReply, error)
	Upload(ctx context.Context, r io.Reader) (string, error)
}

var _ ChatAPI = (*services.ChatService)(nil)

func SetupChatRoutes(group *gin.RouterGroup, chat ChatAPI) {
	g := group.Group("/chat")
	g.POST("/message", handleChatMessage(chat))
	g.POST("/image", handleChatImage(chat))
}

func handleChatMessage(chat ChatAPI) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := requireUser(c)
		if !ok {
			return
		}

		var req models.ChatMessageRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			utils.RespondWithBadRequest(c, "Invalid request body", gin.H{"error": err.Error()})
			return
		}

		reply, err := chat.Send(c.Request.Context(), userID, req.Message, req.ImageURL)
		if err != nil {
			respondServiceError(c, err, "chat with assistant")
			return
		}
		c.JSON(http.StatusOK, reply)
	}
}

// handleChatImage accepts a multipart "image" field and returns where it is served.
func handleChatImage(chat ChatAPI) gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := requireUser(c); !ok {
			return
		}

		file, err := c.FormFile("image")
		if err != nil {
			utils.RespondWithBadRequest(c, "No image uploaded", nil)
			return
		}
		if file.Size > services.MaxChatUploadBytes {
			utils.RespondWithError(c, http.StatusRequestEntityTooLarge, "file_too_large", "Image exceeds upload limit", gin.H{"max_bytes": services.MaxChatUploadBytes})
			return
		}

		f, err := file.Open()
		if err != nil {
			utils.RespondWithBadRequest(c, "Unreadable upload", gin.H{"error": err.Error()})
			return
		}
		defer f.Close()

		imageURL, err := chat.Upload(c.Request.Context(), f)
		if err != nil {
			respondServiceError(c, err, "upload image")
			return
		}
		c.JSON(http.StatusOK, gin.H{"image_url": imageURL})
	}
}
