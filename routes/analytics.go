package routes

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"social-content-platform/internal/analytics"
	"social-content-platform/services"
)

type InsightsAPI interface {
	Insights(ctx context.Context, userID primitive.ObjectID) (*services.InstagramInsights, error)
}

// SetupAnalyticsRoutes registers analytics endpoints. A nil visits source
// makes /analytics/site-visits report that GA4 is not configured.
func SetupAnalyticsRoutes(group *gin.RouterGroup, visits analytics.VisitsSource, insights InsightsAPI) {
	g := group.Group("/analytics")
	{
		g.GET("/site-visits", handleSiteVisits(visits))
		g.GET("/instagram", handleInstagramInsights(insights))
	}
}

func handleSiteVisits(visits analytics.VisitsSource) gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := requireUser(c); !ok {
			return
		}
		if visits == nil {
			respondServiceError(c, analytics.ErrNotConfigured, "load site visits")
			return
		}

		result, err := visits.YesterdayVisits(c.Request.Context())
		if err != nil {
			respondServiceError(c, err, "load site visits")
			return
		}
		c.JSON(http.StatusOK, result)
	}
}

func handleInstagramInsights(insights InsightsAPI) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := requireUser(c)
		if !ok {
			return
		}

		summary, err := insights.Insights(c.Request.Context(), userID)
		if err != nil {
			respondServiceError(c, err, "load instagram insights")
			return
		}
		c.JSON(http.StatusOK, summary)
	}
}
