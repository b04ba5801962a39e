package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics holds all application metrics. A nil *Metrics records nothing.
type Metrics struct {
	RequestCounter      metric.Int64Counter
	RequestDuration     metric.Float64Histogram
	GenerationCalls     metric.Int64Counter
	SuggestionBatches   metric.Int64Counter
	MirrorResults       metric.Int64Counter
	CircuitBreakerState metric.Int64Counter
	DatabaseOperations  metric.Int64Counter
}

// InitMetrics initializes all application metrics
func InitMetrics() (*Metrics, error) {
	meter := otel.Meter("social-content-platform")

	requestCounter, err := meter.Int64Counter(
		"http.requests.total",
		metric.WithDescription("Total HTTP requests"),
	)
	if err != nil {
		return nil, err
	}

	requestDuration, err := meter.Float64Histogram(
		"http.request.duration",
		metric.WithDescription("HTTP request duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	generationCalls, err := meter.Int64Counter(
		"ai.generation.calls",
		metric.WithDescription("Text and image generation calls by outcome"),
	)
	if err != nil {
		return nil, err
	}

	suggestionBatches, err := meter.Int64Counter(
		"suggestions.batches",
		metric.WithDescription("Suggestion batches served, reused or regenerated"),
	)
	if err != nil {
		return nil, err
	}

	mirrorResults, err := meter.Int64Counter(
		"assets.mirror.results",
		metric.WithDescription("Asset mirror outcomes"),
	)
	if err != nil {
		return nil, err
	}

	circuitBreakerState, err := meter.Int64Counter(
		"circuit_breaker.state_changes",
		metric.WithDescription("Circuit breaker state changes"),
	)
	if err != nil {
		return nil, err
	}

	databaseOperations, err := meter.Int64Counter(
		"database.operations.total",
		metric.WithDescription("Total database operations"),
	)
	if err != nil {
		return nil, err
	}

	return &Metrics{
		RequestCounter:      requestCounter,
		RequestDuration:     requestDuration,
		GenerationCalls:     generationCalls,
		SuggestionBatches:   suggestionBatches,
		MirrorResults:       mirrorResults,
		CircuitBreakerState: circuitBreakerState,
		DatabaseOperations:  databaseOperations,
	}, nil
}

// RecordRequest records HTTP request metrics
func (m *Metrics) RecordRequest(method, path, status string, duration float64) {
	if m == nil {
		return
	}
	attrs := []attribute.KeyValue{
		attribute.String("http.method", method),
		attribute.String("http.path", path),
		attribute.String("http.status", status),
	}

	m.RequestCounter.Add(context.Background(), 1, metric.WithAttributes(attrs...))
	m.RequestDuration.Record(context.Background(), duration, metric.WithAttributes(attrs...))
}

// RecordGeneration records one text or image generation call.
func (m *Metrics) RecordGeneration(kind, provider string, success bool) {
	if m == nil {
		return
	}
	attrs := []attribute.KeyValue{
		attribute.String("ai.kind", kind),
		attribute.String("ai.provider", provider),
		attribute.Bool("ai.success", success),
	}

	m.GenerationCalls.Add(context.Background(), 1, metric.WithAttributes(attrs...))
}

// RecordSuggestionBatch records whether a batch was reused or regenerated.
func (m *Metrics) RecordSuggestionBatch(source, outcome string) {
	if m == nil {
		return
	}
	attrs := []attribute.KeyValue{
		attribute.String("suggestions.source", source),
		attribute.String("suggestions.outcome", outcome),
	}

	m.SuggestionBatches.Add(context.Background(), 1, metric.WithAttributes(attrs...))
}

// RecordMirror records an asset mirror outcome: "hit", "stored" or "failed".
func (m *Metrics) RecordMirror(backend, outcome string) {
	if m == nil {
		return
	}
	attrs := []attribute.KeyValue{
		attribute.String("mirror.backend", backend),
		attribute.String("mirror.outcome", outcome),
	}

	m.MirrorResults.Add(context.Background(), 1, metric.WithAttributes(attrs...))
}

// RecordCircuitBreakerState records circuit breaker state changes
func (m *Metrics) RecordCircuitBreakerState(service, state string) {
	if m == nil {
		return
	}
	attrs := []attribute.KeyValue{
		attribute.String("service", service),
		attribute.String("state", state),
	}

	m.CircuitBreakerState.Add(context.Background(), 1, metric.WithAttributes(attrs...))
}

// RecordDatabaseOperation records database operation metrics
func (m *Metrics) RecordDatabaseOperation(operation, collection string, success bool) {
	if m == nil {
		return
	}
	attrs := []attribute.KeyValue{
		attribute.String("db.operation", operation),
		attribute.String("db.collection", collection),
		attribute.Bool("db.success", success),
	}

	m.DatabaseOperations.Add(context.Background(), 1, metric.WithAttributes(attrs...))
}
