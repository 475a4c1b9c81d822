package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the pipeline. One instance is
// created at process start and injected into every stage.
type Metrics struct {
	FlightsRegistered   prometheus.Counter
	TelemetryLinked     prometheus.Counter
	AssetsTokenized     prometheus.Counter
	ClaimsExecuted      prometheus.Counter
	DuplicateRejections prometheus.Counter
	DegradedEntries     prometheus.Counter
	StorageUploadFails  prometheus.Counter

	ValidatorDuration prometheus.Histogram
	StageDuration     *prometheus.HistogramVec
	ClaimAmounts      prometheus.Histogram
}

// New creates and registers all Prometheus metrics on the default registry.
func New() *Metrics {
	return &Metrics{
		FlightsRegistered: promauto.NewCounter(prometheus.CounterOpts{
			Name: "flightledger_flights_registered_total",
			Help: "Flight fingerprints anchored in the provenance registry",
		}),
		TelemetryLinked: promauto.NewCounter(prometheus.CounterOpts{
			Name: "flightledger_telemetry_linked_total",
			Help: "Telemetry fingerprints linked to anchored flights",
		}),
		AssetsTokenized: promauto.NewCounter(prometheus.CounterOpts{
			Name: "flightledger_assets_tokenized_total",
			Help: "Linked records minted as licensed assets",
		}),
		ClaimsExecuted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "flightledger_claims_executed_total",
			Help: "Revenue claims executed against asset vaults",
		}),
		DuplicateRejections: promauto.NewCounter(prometheus.CounterOpts{
			Name: "flightledger_duplicate_rejections_total",
			Help: "Submissions rejected because the fingerprint was already registered",
		}),
		DegradedEntries: promauto.NewCounter(prometheus.CounterOpts{
			Name: "flightledger_aggregation_degraded_entries_total",
			Help: "Aggregation entries degraded to zero by an isolated failure",
		}),
		StorageUploadFails: promauto.NewCounter(prometheus.CounterOpts{
			Name: "flightledger_storage_upload_failures_total",
			Help: "Best-effort content-addressed storage uploads that failed",
		}),
		ValidatorDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "flightledger_validator_duration_seconds",
			Help:    "Latency of compliance validator invocations",
			Buckets: []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		}),
		StageDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "flightledger_stage_duration_seconds",
			Help:    "Latency of pipeline stages by stage name",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30},
		}, []string{"stage"}),
		ClaimAmounts: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "flightledger_claim_amount_tokens",
			Help:    "Claimed revenue per settlement, in whole tokens",
			Buckets: prometheus.ExponentialBuckets(0.01, 10, 8),
		}),
	}
}

// ObserveStage records a stage latency. Nil-safe so stages can run without
// metrics in tests.
func (m *Metrics) ObserveStage(stage string, d time.Duration) {
	if m == nil {
		return
	}
	m.StageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

// ObserveValidator records a validator invocation latency.
func (m *Metrics) ObserveValidator(d time.Duration) {
	if m == nil {
		return
	}
	m.ValidatorDuration.Observe(d.Seconds())
}
