package routes

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"social-content-platform/models"
	"social-content-platform/services"
	"social-content-platform/utils"
)

// SuggestionAPI is implemented by services.SuggestionService.
type SuggestionAPI interface {
	GetOrGenerate(ctx context.Context, userID primitive.ObjectID, source models.Source) ([]models.ContentSuggestion, error)
	RefreshOne(ctx context.Context, userID, suggestionID primitive.ObjectID) (*models.ContentSuggestion, error)
}

type SuggestionExporter interface {
	Export(ctx context.Context, userID primitive.ObjectID, source models.Source, format string) (*services.ExportFile, error)
}

func SetupSuggestionRoutes(group *gin.RouterGroup, suggestions SuggestionAPI, exporter SuggestionExporter) {
	sg := group.Group("/ai/suggestions")
	{
		sg.GET("", handleGetSuggestions(suggestions))
		sg.GET("/export", handleExportSuggestions(exporter))
		sg.PUT("/:id/refresh", handleRefreshSuggestion(suggestions))
	}
}

func parseSourceQuery(c *gin.Context) (models.Source, bool) {
	source, err := models.ParseSource(c.Query("source"))
	if err != nil {
		utils.RespondWithBadRequest(c, "Invalid source", gin.H{
			"source":  c.Query("source"),
			"allowed": []models.Source{models.SourceProfile, models.SourceInstagram},
		})
		return "", false
	}
	return source, true
}

func handleGetSuggestions(suggestions SuggestionAPI) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := requireUser(c)
		if !ok {
			return
		}
		source, ok := parseSourceQuery(c)
		if !ok {
			return
		}

		batch, err := suggestions.GetOrGenerate(c.Request.Context(), userID, source)
		if err != nil {
			respondServiceError(c, err, "get suggestions")
			return
		}

		c.JSON(http.StatusOK, batch)
	}
}

func handleRefreshSuggestion(suggestions SuggestionAPI) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := requireUser(c)
		if !ok {
			return
		}
		suggestionID, ok := objectIDParam(c, "id")
		if !ok {
			return
		}

		updated, err := suggestions.RefreshOne(c.Request.Context(), userID, suggestionID)
		if err != nil {
			respondServiceError(c, err, "refresh suggestion")
			return
		}

		c.JSON(http.StatusOK, updated)
	}
}

func handleExportSuggestions(exporter SuggestionExporter) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := requireUser(c)
		if !ok {
			return
		}
		source, ok := parseSourceQuery(c)
		if !ok {
			return
		}

		file, err := exporter.Export(c.Request.Context(), userID, source, c.DefaultQuery("format", services.ExportFormatExcel))
		if err != nil {
			if errors.Is(err, services.ErrUnsupportedFormat) {
				utils.RespondWithBadRequest(c, "Unsupported export format", gin.H{
					"allowed": []string{services.ExportFormatExcel, services.ExportFormatJSON},
				})
				return
			}
			respondServiceError(c, err, "export suggestions")
			return
		}

		c.Header("Content-Disposition", "attachment; filename="+file.Filename)
		c.Header("X-Record-Count", strconv.Itoa(file.Records))
		c.Data(http.StatusOK, file.ContentType, file.Data)
	}
}
