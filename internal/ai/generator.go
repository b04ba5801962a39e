package ai

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"social-content-platform/internal/logger"
	"social-content-platform/internal/retry"
	"social-content-platform/internal/telemetry"
	"social-content-platform/models"
)

// TextGenerator returns the raw model output for a prompt.
type TextGenerator interface {
	Provider() string
	GenerateText(ctx context.Context, prompt string) (string, error)
}

// ImageGenerator returns the URL of one generated image.
type ImageGenerator interface {
	Provider() string
	GenerateImage(ctx context.Context, prompt string) (string, error)
}

// Generator turns a business profile into suggestion drafts.
type Generator struct {
	text    TextGenerator
	image   ImageGenerator
	policy  retry.Policy
	metrics *telemetry.Metrics
}

// NewGenerator builds a Generator. image may be nil, in which case drafts carry no images.
func NewGenerator(text TextGenerator, image ImageGenerator, policy retry.Policy, metrics *telemetry.Metrics) (*Generator, error) {
	if text == nil {
		return nil, errors.New("text generator is required")
	}
	if policy.MaxAttempts == 0 {
		return nil, errors.New("retry policy needs at least one attempt")
	}
	return &Generator{text: text, image: image, policy: policy, metrics: metrics}, nil
}

// Generate produces up to count drafts. posts, when non-nil, are ranked and
// summarised in the prompt. Text failures abort the batch; image failures
// leave that draft without images.
func (g *Generator) Generate(ctx context.Context, profile *models.BusinessProfile, count int, posts []models.InstagramPost) ([]Draft, error) {
	if profile == nil {
		return nil, errors.New("profile is required")
	}
	if count < 1 {
		return nil, fmt.Errorf("invalid draft count %d", count)
	}

	ctx, span := otel.Tracer("ai-generator").Start(ctx, "ai.generate")
	defer span.End()
	span.SetAttributes(
		attribute.Int("ai.count", count),
		attribute.Int("ai.context_posts", len(posts)),
		attribute.String("ai.text_provider", g.text.Provider()),
	)

	prompt := BuildPrompt(profile, count, posts)
	raw, err := retry.Do(ctx, g.policy, func(ctx context.Context) (string, error) {
		out, err := g.text.GenerateText(ctx, prompt)
		g.metrics.RecordGeneration("text", g.text.Provider(), err == nil)
		return out, err
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "text generation failed")
		return nil, fmt.Errorf("text generation: %w", err)
	}

	drafts, err := ParseDrafts(raw, count)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "unparseable text response")
		return nil, err
	}

	for i := range drafts {
		drafts[i].ImageURLs = g.generateImage(ctx, ImagePrompt(profile.BusinessType, drafts[i].Title))
	}

	span.SetAttributes(attribute.Int("ai.drafts", len(drafts)))
	return drafts, nil
}

// generateImage returns a one-element list on success and an empty list otherwise.
func (g *Generator) generateImage(ctx context.Context, prompt string) []string {
	if g.image == nil || len(prompt) < minImagePromptLen {
		return []string{}
	}

	url, err := retry.Do(ctx, g.policy, func(ctx context.Context) (string, error) {
		out, err := g.image.GenerateImage(ctx, prompt)
		g.metrics.RecordGeneration("image", g.image.Provider(), err == nil)
		return out, err
	})
	if err != nil {
		logger.Warn("Image generation failed, continuing without image",
			"error", err,
			"rate_limited", IsRateLimited(err),
		)
		return []string{}
	}
	return []string{url}
}
