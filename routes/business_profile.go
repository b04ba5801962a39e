package routes

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"social-content-platform/models"
	"social-content-platform/utils"
)

type ProfileAPI interface {
	GetByUser(ctx context.Context, userID primitive.ObjectID) (*models.BusinessProfile, error)
	Upsert(ctx context.Context, profile *models.BusinessProfile) (*models.BusinessProfile, error)
}

func SetupBusinessProfileRoutes(group *gin.RouterGroup, profiles ProfileAPI) {
	group.GET("/business-profile", handleGetProfile(profiles))
	group.PUT("/business-profile", handleUpsertProfile(profiles))
}

func handleGetProfile(profiles ProfileAPI) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := requireUser(c)
		if !ok {
			return
		}

		profile, err := profiles.GetByUser(c.Request.Context(), userID)
		if err != nil {
			respondServiceError(c, err, "load business profile")
			return
		}
		c.JSON(http.StatusOK, profile)
	}
}

func handleUpsertProfile(profiles ProfileAPI) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := requireUser(c)
		if !ok {
			return
		}

		var req models.BusinessProfileRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			utils.RespondWithBadRequest(c, "Invalid request body", gin.H{"error": err.Error()})
			return
		}

		profile, err := req.ToProfile(userID)
		if err != nil {
			utils.RespondWithBadRequest(c, "Invalid business profile", gin.H{"error": err.Error()})
			return
		}

		saved, err := profiles.Upsert(c.Request.Context(), profile)
		if err != nil {
			respondServiceError(c, err, "save business profile")
			return
		}
		c.JSON(http.StatusOK, saved)
	}
}
