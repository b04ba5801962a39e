package ai

import (
	"fmt"
	"sort"
	"strings"

	"social-content-platform/models"
)

const (
	TopPostsInPrompt  = 5
	TopImagesInPrompt = 3
	captionPreviewLen = 100
	minImagePromptLen = 5
)

// RankPosts orders posts by like count, highest first. Equal counts keep their input order.
func RankPosts(posts []models.InstagramPost) []models.InstagramPost {
	ranked := make([]models.InstagramPost, len(posts))
	copy(ranked, posts)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].LikeCount > ranked[j].LikeCount
	})
	return ranked
}

// BuildPrompt renders the text generation prompt for count drafts.
func BuildPrompt(profile *models.BusinessProfile, count int, posts []models.InstagramPost) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Create %d social media content suggestions in JSON format.\n", count)
	b.WriteString("Each item should include:\n")
	b.WriteString("- title (string)\n")
	b.WriteString("- content (string)\n")
	fmt.Fprintf(&b, "- hashtags (array of strings) based on: %s\n", hashtagGuidance(profile))
	fmt.Fprintf(&b, "- contentType (one of: %s)\n", strings.Join(contentTypeChoices(profile), ", "))

	b.WriteString("\nBusiness Info:\n")
	fmt.Fprintf(&b, "Business Name: %s\n", profile.BusinessName)
	fmt.Fprintf(&b, "Business Type: %s\n", profile.BusinessType)
	fmt.Fprintf(&b, "Tone: %s\n", profile.ToneOfVoice)
	fmt.Fprintf(&b, "Audience: %s\n", profile.AudienceType)
	fmt.Fprintf(&b, "Marketing Goals: %s\n", strings.Join(profile.MarketingGoals, ", "))
	fmt.Fprintf(&b, "Post Length: %s\n", profile.PostLength)
	if profile.EmojisAllowed {
		fmt.Fprintf(&b, "Use Emojis: Yes, Favorites: %s\n", strings.Join(profile.FavoriteEmojis, " "))
	} else {
		b.WriteString("Use Emojis: No\n")
	}

	if posts != nil {
		ranked := RankPosts(posts)
		if len(ranked) > TopPostsInPrompt {
			ranked = ranked[:TopPostsInPrompt]
		}
		b.WriteString("\nBased on these top performing Instagram posts by the user:\n")
		b.WriteString(summarizePosts(ranked))

		if urls := topImageURLs(ranked); len(urls) > 0 {
			b.WriteString("\nHere are image URLs of the top performing posts:\n")
			b.WriteString(strings.Join(urls, "\n"))
			b.WriteString("\n")
		}
	}

	b.WriteString("\nReturn only a valid JSON array of objects.\n")
	return b.String()
}

// ImagePrompt is the prompt sent to the image model for one draft.
func ImagePrompt(businessType, title string) string {
	return strings.TrimSpace(businessType + " - " + title)
}

func hashtagGuidance(profile *models.BusinessProfile) string {
	var style string
	switch profile.HashtagsStyle {
	case models.HashtagsNone:
		style = "no hashtags, return an empty array"
	case models.HashtagsManyForReach:
		style = "many hashtags for reach (10-15)"
	default:
		style = "a few relevant hashtags (3-5)"
	}
	parts := []string{style}
	if profile.Keywords != "" {
		parts = append(parts, fmt.Sprintf("keywords %q", profile.Keywords))
	}
	if profile.CustomHashtags != "" {
		parts = append(parts, fmt.Sprintf("always include %q", profile.CustomHashtags))
	}
	return strings.Join(parts, "; ")
}

func contentTypeChoices(profile *models.BusinessProfile) []string {
	seen := map[models.ContentType]bool{}
	var out []string
	for _, ct := range profile.ContentTypes {
		t := models.NormalizeContentType(ct)
		if !seen[t] {
			seen[t] = true
			out = append(out, string(t))
		}
	}
	if len(out) == 0 {
		return []string{string(models.ContentTypePost)}
	}
	return out
}

func summarizePosts(posts []models.InstagramPost) string {
	if len(posts) == 0 {
		return "No top performing posts found to learn from.\n"
	}
	var b strings.Builder
	for i, p := range posts {
		fmt.Fprintf(&b, "%d. %q (Likes: %d, Comments: %d)\n", i+1, captionPreview(p.Caption), p.LikeCount, p.CommentsCount)
	}
	return b.String()
}

func captionPreview(caption string) string {
	r := []rune(caption)
	if len(r) > captionPreviewLen {
		r = r[:captionPreviewLen]
	}
	return strings.ReplaceAll(string(r), "\n", " ")
}

func topImageURLs(posts []models.InstagramPost) []string {
	var urls []string
	for _, p := range posts {
		if p.MediaURL == "" {
			continue
		}
		urls = append(urls, p.MediaURL)
		if len(urls) == TopImagesInPrompt {
			break
		}
	}
	return urls
}
