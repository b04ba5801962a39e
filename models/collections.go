package models

// MongoDB collection names
const (
	CollectionBusinessProfiles   = "business_profiles"
	CollectionContentSuggestions = "content_suggestions"
	CollectionInstagramPosts     = "instagram_posts"
	CollectionUsers              = "users"
)
