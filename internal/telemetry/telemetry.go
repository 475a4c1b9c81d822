// Package telemetry turns a recorded flight path into a fingerprint that can
// be chained onto the flight's registry record.
package telemetry

import (
	"context"
	"log/slog"

	"flightledger/internal/fingerprint"
	"flightledger/internal/platform/metrics"
	"flightledger/internal/storage"
	"flightledger/pkg/pipeline"
)

const stageProcess = "telemetry_process"

// LogEntry is one telemetry sample from the drone.
type LogEntry struct {
	Timestamp string  `json:"timestamp"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Altitude  float64 `json:"altitude"`
	Speed     float64 `json:"speed"`
	Heading   float64 `json:"heading"`
	Battery   float64 `json:"battery"`
}

// Result carries the telemetry fingerprint and the best-effort storage ref.
type Result struct {
	Fingerprint fingerprint.Digest
	StorageRef  string
}

// path is the serialized shape the fingerprint commits to. Reordering the
// samples changes the fingerprint.
type path struct {
	GeneratedPath struct {
		Waypoints []LogEntry `json:"waypoints"`
	} `json:"generated_path"`
}

// Processor fingerprints telemetry sequences and archives the canonical
// payload when a store is configured.
type Processor struct {
	store   storage.Store
	logger  *slog.Logger
	metrics *metrics.Metrics
}

// NewProcessor builds a Processor. store may be nil to skip archiving.
func NewProcessor(store storage.Store, logger *slog.Logger, m *metrics.Metrics) *Processor {
	return &Processor{store: store, logger: logger, metrics: m}
}

// Process fingerprints the sample sequence. The upload is best effort: a
// failed upload records storage.FailedRef and never fails the call.
func (p *Processor) Process(ctx context.Context, entries []LogEntry) (Result, error) {
	if len(entries) == 0 {
		return Result{}, pipeline.New(pipeline.ErrorInputValidation, stageProcess,
			"telemetry sequence is empty", nil)
	}

	var wrapped path
	wrapped.GeneratedPath.Waypoints = entries

	fp, err := fingerprint.Hash(wrapped)
	if err != nil {
		return Result{}, pipeline.New(pipeline.ErrorInternal, stageProcess,
			"canonicalize telemetry", err)
	}

	result := Result{Fingerprint: fp}
	if p.store == nil {
		return result, nil
	}

	payload, err := fingerprint.Canonical(wrapped)
	if err != nil {
		return Result{}, pipeline.New(pipeline.ErrorInternal, stageProcess,
			"canonicalize telemetry", err)
	}
	ref, err := p.store.Put(ctx, payload)
	if err != nil {
		p.logger.Warn("telemetry upload failed, continuing with placeholder",
			"error", err, "fingerprint", fp)
		if p.metrics != nil {
			p.metrics.StorageUploadFails.Inc()
		}
		result.StorageRef = storage.FailedRef
		return result, nil
	}
	result.StorageRef = ref
	return result, nil
}
