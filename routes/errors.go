package routes

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"social-content-platform/internal/ai"
	"social-content-platform/internal/analytics"
	"social-content-platform/internal/instagram"
	"social-content-platform/internal/logger"
	"social-content-platform/middleware"
	"social-content-platform/services"
	"social-content-platform/utils"
)

// respondServiceError maps service errors onto HTTP responses.
func respondServiceError(c *gin.Context, err error, action string) {
	var igErr *instagram.APIError

	switch {
	case errors.Is(err, services.ErrProfileNotFound):
		utils.RespondWithNotFound(c, "Business profile not found")
	case errors.Is(err, services.ErrSuggestionNotFound):
		utils.RespondWithNotFound(c, "Suggestion not found")
	case errors.Is(err, services.ErrUserNotFound):
		utils.RespondWithNotFound(c, "User not found")
	case errors.Is(err, services.ErrInstagramNotConnected):
		utils.RespondWithConflict(c, "instagram_not_connected", "Connect an Instagram account first")
	case errors.Is(err, services.ErrNothingToPublish):
		utils.RespondWithConflict(c, "no_image", "Suggestion has no image to publish")
	case errors.Is(err, services.ErrAttachmentNotFound):
		utils.RespondWithNotFound(c, "Attached image not found")
	case errors.Is(err, ai.ErrEmptyChat):
		utils.RespondWithBadRequest(c, "Message or image is required", nil)
	case errors.Is(err, services.ErrUnsupportedImage):
		utils.RespondWithBadRequest(c, "Unsupported image type", gin.H{"allowed": []string{"jpeg", "png", "gif", "webp"}})
	case errors.Is(err, services.ErrUploadTooLarge):
		utils.RespondWithError(c, http.StatusRequestEntityTooLarge, "file_too_large", "Image exceeds upload limit", gin.H{"max_bytes": services.MaxChatUploadBytes})
	case errors.Is(err, analytics.ErrNotConfigured):
		utils.RespondWithError(c, http.StatusServiceUnavailable, "analytics_not_configured", "Google Analytics is not configured", nil)
	case errors.Is(err, ai.ErrMalformedResponse), errors.Is(err, ai.ErrUnavailable),
		errors.Is(err, ai.ErrDailyQuotaExceeded), ai.IsRateLimited(err):
		logger.Error("Content generation failed", "action", action, "error", err, "request_id", middleware.GetRequestID(c))
		utils.RespondWithError(c, http.StatusInternalServerError, "generation_failed", "Failed to generate content", nil)
	case errors.As(err, &igErr):
		logger.Warn("Instagram API call failed", "action", action, "status", igErr.StatusCode, "error", igErr.Message)
		utils.RespondWithUpstreamError(c, "Instagram request failed", gin.H{"status": igErr.StatusCode, "message": igErr.Message})
	default:
		logger.Error("Request failed", "action", action, "error", err, "request_id", middleware.GetRequestID(c))
		utils.RespondWithInternalError(c, "Failed to "+action, nil)
	}
}

// requireUser reads the authenticated user or writes a 401.
func requireUser(c *gin.Context) (primitive.ObjectID, bool) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		utils.RespondWithUnauthorized(c, "Authentication required")
	}
	return userID, ok
}

// objectIDParam parses a path parameter or writes a 400.
func objectIDParam(c *gin.Context, name string) (primitive.ObjectID, bool) {
	id, err := primitive.ObjectIDFromHex(c.Param(name))
	if err != nil {
		utils.RespondWithBadRequest(c, "Invalid "+name, gin.H{name: c.Param(name)})
		return primitive.NilObjectID, false
	}
	return id, true
}
