package ai

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"social-content-platform/internal/logger"
	"social-content-platform/internal/retry"
	"social-content-platform/internal/telemetry"
)

// ChatSystemPrompt asks for short answers and an "image:" line when a post needs a picture.
const ChatSystemPrompt = "You are a creative personal assistant for social media. " +
	"Give the user a short, smart answer. If the post needs an image, describe exactly " +
	`which image would fit on its own line, for example: "image: a description of the image."`

var (
	ErrEmptyChat = errors.New("message or image is required")

	imageLinePattern = regexp.MustCompile(`image:\s*(.*)`)
)

// ChatImage is an image attached to a chat turn.
type ChatImage struct {
	MIMEType string
	Data     []byte
}

// ChatModel answers a single user turn under a system instruction.
type ChatModel interface {
	Provider() string
	Chat(ctx context.Context, system, message string, image *ChatImage) (string, error)
}

type ChatReply struct {
	Response string  `json:"response"`
	ImageURL *string `json:"image_url"`
}

// Assistant is the free-form chat helper. It shares the retry policy and
// image client with suggestion generation.
type Assistant struct {
	model   ChatModel
	image   ImageGenerator
	policy  retry.Policy
	metrics *telemetry.Metrics
}

func NewAssistant(model ChatModel, image ImageGenerator, policy retry.Policy, metrics *telemetry.Metrics) (*Assistant, error) {
	if model == nil {
		return nil, errors.New("chat model is required")
	}
	if policy.MaxAttempts == 0 {
		return nil, errors.New("retry policy needs at least one attempt")
	}
	return &Assistant{model: model, image: image, policy: policy, metrics: metrics}, nil
}

// Reply answers message. When the answer describes an image, that image is
// generated too; an image failure still returns the text answer.
func (a *Assistant) Reply(ctx context.Context, message string, attachment *ChatImage) (*ChatReply, error) {
	message = strings.TrimSpace(message)
	if message == "" && attachment == nil {
		return nil, ErrEmptyChat
	}

	ctx, span := otel.Tracer("ai-assistant").Start(ctx, "ai.chat")
	defer span.End()
	span.SetAttributes(
		attribute.String("ai.chat_provider", a.model.Provider()),
		attribute.Bool("ai.chat_attachment", attachment != nil),
	)

	text, err := retry.Do(ctx, a.policy, func(ctx context.Context) (string, error) {
		out, err := a.model.Chat(ctx, ChatSystemPrompt, message, attachment)
		a.metrics.RecordGeneration("chat", a.model.Provider(), err == nil)
		return out, err
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "chat failed")
		return nil, fmt.Errorf("chat: %w", err)
	}

	reply := &ChatReply{Response: text}
	desc := ImageDescription(text)
	if desc == "" || a.image == nil {
		return reply, nil
	}

	url, err := retry.Do(ctx, a.policy, func(ctx context.Context) (string, error) {
		out, err := a.image.GenerateImage(ctx, desc)
		a.metrics.RecordGeneration("image", a.image.Provider(), err == nil)
		return out, err
	})
	if err != nil {
		logger.Warn("Chat image generation failed", "error", err, "rate_limited", IsRateLimited(err))
		return reply, nil
	}
	reply.ImageURL = &url
	return reply, nil
}

// ImageDescription returns the rest of the line after the first "image:" marker.
func ImageDescription(reply string) string {
	m := imageLinePattern.FindStringSubmatch(reply)
	if m == nil {
		return ""
	}
	return strings.TrimSpace(m[1])
}
