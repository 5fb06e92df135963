// Package observe provides application-wide observability primitives:
// OpenTelemetry metrics, distributed tracing, structured logging, and HTTP
// middleware that ties them together.
//
// Metrics are recorded through the OpenTelemetry Metrics API. A Prometheus
// exporter bridge is available via [InitProvider] so that metrics can still be
// scraped via the standard /metrics endpoint. A package-level default
// [Metrics] instance ([DefaultMetrics]) is provided for convenience; tests
// should use [NewMetrics] with a custom [metric.MeterProvider] to avoid
// cross-test pollution.
package observe

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope name used for all intake metrics.
const meterName = "github.com/xpandai03/inbot-ai-sub000"

// Metrics holds all OpenTelemetry metric instruments for the application.
// All fields are safe for concurrent use — the underlying OTel types handle
// their own synchronisation.
type Metrics struct {
	// --- Latency histograms ---

	// ClassificationDuration tracks end-to-end classification latency,
	// whichever tier produced the result.
	ClassificationDuration metric.Float64Histogram

	// --- Counters ---

	// ExtractionResults counts entity extraction outcomes. Use with attributes:
	//   attribute.String("entity", "name"|"address"), attribute.String("outcome", "extracted"|"default")
	ExtractionResults metric.Int64Counter

	// ClassificationResults counts classification outcomes. Use with attributes:
	//   attribute.String("method", ...), attribute.String("intent", ...)
	ClassificationResults metric.Int64Counter

	// SessionTransitions counts guided session transitions. Use with attribute:
	//   attribute.String("state", ...)
	SessionTransitions metric.Int64Counter

	// ReEvaluations counts re-evaluation proposals. Use with attribute:
	//   attribute.String("changed", "true"|"false")
	ReEvaluations metric.Int64Counter

	// --- Error counters ---

	// DispatchErrors counts failed outbound notifications. Use with attribute:
	//   attribute.String("department", ...)
	DispatchErrors metric.Int64Counter

	// --- Gauges ---

	// ActiveSessions tracks the number of live guided sessions.
	ActiveSessions metric.Int64UpDownCounter

	// --- HTTP middleware ---

	// HTTPRequestDuration tracks HTTP request processing time. Use with attributes:
	//   attribute.String("method", ...), attribute.String("path", ...)
	HTTPRequestDuration metric.Float64Histogram
}

// latencyBuckets defines histogram bucket boundaries (in seconds) sized for
// an LLM round-trip plus fallback.
var latencyBuckets = []float64{
	0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10,
}

// NewMetrics creates a fully initialised [Metrics] struct using the given
// [metric.MeterProvider]. Returns an error if any instrument creation fails.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	// Histograms.
	if met.ClassificationDuration, err = m.Float64Histogram("inbot.classification.duration",
		metric.WithDescription("Latency of issue classification, any tier."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}

	// Counters.
	if met.ExtractionResults, err = m.Int64Counter("inbot.extraction.results",
		metric.WithDescription("Total extraction outcomes by entity and outcome."),
	); err != nil {
		return nil, err
	}
	if met.ClassificationResults, err = m.Int64Counter("inbot.classification.results",
		metric.WithDescription("Total classification outcomes by method and intent."),
	); err != nil {
		return nil, err
	}
	if met.SessionTransitions, err = m.Int64Counter("inbot.session.transitions",
		metric.WithDescription("Total guided session transitions by resulting state."),
	); err != nil {
		return nil, err
	}
	if met.ReEvaluations, err = m.Int64Counter("inbot.reevaluation.proposals",
		metric.WithDescription("Total re-evaluation proposals by whether anything changed."),
	); err != nil {
		return nil, err
	}

	// Error counters.
	if met.DispatchErrors, err = m.Int64Counter("inbot.notify.errors",
		metric.WithDescription("Total failed outbound notifications by department."),
	); err != nil {
		return nil, err
	}

	// Gauges (UpDownCounters).
	if met.ActiveSessions, err = m.Int64UpDownCounter("inbot.active_sessions",
		metric.WithDescription("Number of live guided sessions."),
	); err != nil {
		return nil, err
	}

	// HTTP middleware histogram.
	if met.HTTPRequestDuration, err = m.Float64Histogram("inbot.http.request.duration",
		metric.WithDescription("HTTP request latency by method and path."),
		metric.WithUnit("s"),
	); err != nil {
		return nil, err
	}

	return met, nil
}

// defaultMetrics is the lazily-initialised package-level Metrics instance.
var (
	defaultMetrics     *Metrics
	defaultMetricsOnce sync.Once
)

// DefaultMetrics returns the package-level [Metrics] instance, creating it on
// first call using [otel.GetMeterProvider]. Subsequent calls return the same
// pointer. Panics if instrument creation fails (should not happen with the
// global provider).
func DefaultMetrics() *Metrics {
	defaultMetricsOnce.Do(func() {
		var err error
		defaultMetrics, err = NewMetrics(otel.GetMeterProvider())
		if err != nil {
			panic("observe: failed to create default metrics: " + err.Error())
		}
	})
	return defaultMetrics
}

// Attr is a convenience alias for [attribute.String] to reduce verbosity at
// call sites.
func Attr(key, value string) attribute.KeyValue {
	return attribute.String(key, value)
}

// RecordExtraction records one extraction outcome for an entity type.
// outcome is "extracted" or "default".
func (m *Metrics) RecordExtraction(ctx context.Context, entity, outcome string) {
	m.ExtractionResults.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("entity", entity),
			attribute.String("outcome", outcome),
		),
	)
}

// RecordClassification records one classification outcome with its latency.
func (m *Metrics) RecordClassification(ctx context.Context, method, intent string, seconds float64) {
	m.ClassificationDuration.Record(ctx, seconds)
	m.ClassificationResults.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("method", method),
			attribute.String("intent", intent),
		),
	)
}

// RecordSessionTransition records one guided session transition.
func (m *Metrics) RecordSessionTransition(ctx context.Context, state string) {
	m.SessionTransitions.Add(ctx, 1,
		metric.WithAttributes(attribute.String("state", state)),
	)
}

// RecordReEvaluation records one re-evaluation proposal.
func (m *Metrics) RecordReEvaluation(ctx context.Context, changed bool) {
	attr := attribute.String("changed", "false")
	if changed {
		attr = attribute.String("changed", "true")
	}
	m.ReEvaluations.Add(ctx, 1, metric.WithAttributes(attr))
}

// RecordDispatchError records one failed outbound notification.
func (m *Metrics) RecordDispatchError(ctx context.Context, department string) {
	m.DispatchErrors.Add(ctx, 1,
		metric.WithAttributes(attribute.String("department", department)),
	)
}
