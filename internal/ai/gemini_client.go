package ai

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/time/rate"
	"google.golang.org/api/option"

	genai "github.com/google/generative-ai-go/genai"

	"social-content-platform/internal/logger"
	"social-content-platform/internal/telemetry"
)

const geminiProvider = "gemini"

// GeminiText generates text with Google Gemini behind a circuit breaker and
// a client-side rate limiter sized for the account tier.
type GeminiText struct {
	client       *genai.Client
	model        string
	breaker      *gobreaker.CircuitBreaker
	rateLimiter  *rate.Limiter
	tokenCounter *TokenCounter
}

// TokenCounter tracks request and token usage against per-minute and per-day limits.
type TokenCounter struct {
	mu              sync.Mutex
	limits          RateLimits
	minuteTokens    int
	dailyTokens     int
	minuteRequests  int
	dailyRequests   int
	lastMinuteReset time.Time
	lastDayReset    time.Time
	now             func() time.Time
}

type RateLimits struct {
	RPM int // Requests per minute
	TPM int // Tokens per minute
	RPD int // Requests per day
}

func NewGeminiText(ctx context.Context, apiKey, model, tier string, metrics *telemetry.Metrics) (*GeminiText, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, err
	}
	if model == "" {
		model = "gemini-2.0-flash"
	}

	// Configure rate limits based on tier
	limits := GetRateLimits(tier)

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "GeminiAPI",
		MaxRequests: 5,
		Interval:    10 * time.Second,
		Timeout:     60 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 3 && failureRatio >= 0.6
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Warn("Circuit breaker state change", "breaker", name, "from", from.String(), "to", to.String())
			metrics.RecordCircuitBreakerState(geminiProvider, to.String())
		},
	})

	// RPM limit with some buffer
	burst := limits.RPM / 10
	if burst < 1 {
		burst = 1
	}
	rateLimiter := rate.NewLimiter(rate.Limit(float64(limits.RPM)*0.9/60.0), burst)

	return &GeminiText{
		client:       client,
		model:        model,
		breaker:      breaker,
		rateLimiter:  rateLimiter,
		tokenCounter: NewTokenCounter(limits),
	}, nil
}

func GetRateLimits(tier string) RateLimits {
	switch tier {
	case "tier1":
		return RateLimits{RPM: 1000, TPM: 1000000, RPD: 10000}
	case "tier2":
		return RateLimits{RPM: 2000, TPM: 4000000, RPD: 50000}
	default:
		return RateLimits{RPM: 10, TPM: 250000, RPD: 250}
	}
}

func (gc *GeminiText) Provider() string { return geminiProvider }

// GenerateText asks Gemini for a JSON response to prompt.
func (gc *GeminiText) GenerateText(ctx context.Context, prompt string) (string, error) {
	return gc.generate(ctx, "gemini.generate_content", estimateTokens(prompt), func(model *genai.GenerativeModel) {
		model.ResponseMIMEType = "application/json"
	}, genai.Text(prompt))
}

// Chat answers message under a system instruction, with an optional image part.
func (gc *GeminiText) Chat(ctx context.Context, system, message string, image *ChatImage) (string, error) {
	parts := make([]genai.Part, 0, 2)
	if message != "" {
		parts = append(parts, genai.Text(message))
	}
	if image != nil {
		parts = append(parts, genai.Blob{MIMEType: image.MIMEType, Data: image.Data})
	}
	return gc.generate(ctx, "gemini.chat", estimateTokens(system+message), func(model *genai.GenerativeModel) {
		model.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(system)}}
	}, parts...)
}

func (gc *GeminiText) generate(ctx context.Context, spanName string, estimatedTokens int, configure func(*genai.GenerativeModel), parts ...genai.Part) (string, error) {
	tracer := otel.Tracer("gemini-client")
	ctx, span := tracer.Start(ctx, spanName)
	defer span.End()

	span.SetAttributes(
		attribute.Int("gemini.estimated_tokens", estimatedTokens),
		attribute.String("gemini.model", gc.model),
	)

	if err := gc.tokenCounter.Check(estimatedTokens, 1); err != nil {
		span.SetAttributes(attribute.Bool("gemini.rate_limited", true))
		return "", err
	}

	if err := gc.rateLimiter.Wait(ctx); err != nil {
		span.SetAttributes(attribute.Bool("gemini.rate_limited", true))
		return "", err
	}

	result, err := gc.breaker.Execute(func() (interface{}, error) {
		model := gc.client.GenerativeModel(gc.model)
		model.SetTemperature(0.7)
		model.SetMaxOutputTokens(2048)
		configure(model)

		resp, err := model.GenerateContent(ctx, parts...)
		if err != nil {
			span.SetAttributes(attribute.String("gemini.error_message", err.Error()))
			return nil, err
		}

		actualTokens := extractTokenUsage(resp)
		gc.tokenCounter.RecordUsage(actualTokens, 1)
		span.SetAttributes(attribute.Int("gemini.actual_tokens", actualTokens))

		return resp, nil
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			span.SetAttributes(attribute.Bool("gemini.circuit_breaker_open", true))
			return "", ErrUnavailable
		}
		span.SetAttributes(attribute.Bool("gemini.error", true))
		return "", err
	}

	span.SetAttributes(attribute.Bool("gemini.success", true))
	return responseText(result.(*genai.GenerateContentResponse)), nil
}

// Close the client
func (gc *GeminiText) Close() error {
	if gc.client != nil {
		return gc.client.Close()
	}
	return nil
}

func NewTokenCounter(limits RateLimits) *TokenCounter {
	now := time.Now()
	return &TokenCounter{limits: limits, lastMinuteReset: now, lastDayReset: now, now: time.Now}
}

func (tc *TokenCounter) CanConsume(tokens, requests int) bool {
	return tc.Check(tokens, requests) == nil
}

// Check returns ErrDailyQuotaExceeded when the day budget is spent and
// ErrRateLimited when only the per-minute budget is.
func (tc *TokenCounter) Check(tokens, requests int) error {
	tc.mu.Lock()
	defer tc.mu.Unlock()

	tc.resetExpired()

	if tc.dailyRequests+requests > tc.limits.RPD {
		return ErrDailyQuotaExceeded
	}
	if tc.minuteRequests+requests > tc.limits.RPM {
		return ErrRateLimited
	}
	if tc.minuteTokens+tokens > tc.limits.TPM {
		return ErrRateLimited
	}
	return nil
}

func (tc *TokenCounter) RecordUsage(tokens, requests int) {
	tc.mu.Lock()
	defer tc.mu.Unlock()

	tc.resetExpired()
	tc.minuteTokens += tokens
	tc.minuteRequests += requests
	tc.dailyTokens += tokens
	tc.dailyRequests += requests
}

// resetExpired clears counters whose window has passed. Caller holds mu.
func (tc *TokenCounter) resetExpired() {
	now := tc.now()
	if now.Sub(tc.lastMinuteReset) >= time.Minute {
		tc.minuteTokens = 0
		tc.minuteRequests = 0
		tc.lastMinuteReset = now
	}
	if now.Sub(tc.lastDayReset) >= 24*time.Hour {
		tc.dailyTokens = 0
		tc.dailyRequests = 0
		tc.lastDayReset = now
	}
}

// Rough estimation: 1 token ≈ 4 characters
func estimateTokens(prompt string) int {
	return len(prompt) / 4
}

func extractTokenUsage(resp *genai.GenerateContentResponse) int {
	if resp.UsageMetadata != nil {
		return int(resp.UsageMetadata.TotalTokenCount)
	}
	estimated := len(responseText(resp)) / 4
	if estimated < 1 {
		estimated = 1
	}
	return estimated
}

func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil {
		return ""
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			b.WriteString(string(text))
		}
	}
	return b.String()
}
