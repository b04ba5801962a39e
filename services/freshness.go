package services

import (
	"time"

	"social-content-platform/models"
)

const (
	// MinFreshSuggestions is the smallest batch that can be served without regenerating.
	MinFreshSuggestions = 3
	// SuggestionMaxAge is the age at which the newest suggestion makes its batch stale.
	SuggestionMaxAge = 24 * time.Hour
	// SuggestionBatchSize is how many drafts a regeneration requests.
	SuggestionBatchSize = 3
)

// ShouldRegenerate decides whether existing, ordered newest first, must be replaced.
func ShouldRegenerate(existing []models.ContentSuggestion, now time.Time) bool {
	if len(existing) < MinFreshSuggestions {
		return true
	}
	return now.Sub(existing[0].CreatedAt) >= SuggestionMaxAge
}
