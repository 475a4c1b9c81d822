// Package flight is the pipeline's front door: it validates declared flight
// plans, anchors their fingerprints in the provenance registry, and chains
// telemetry fingerprints onto anchored flights.
package flight

import (
	"context"
	"fmt"
	"log/slog"

	"flightledger/internal/compliance"
	"flightledger/internal/fingerprint"
	"flightledger/internal/flight/models"
	"flightledger/internal/platform/metrics"
	"flightledger/internal/registry"
	"flightledger/internal/telemetry"
	"flightledger/pkg/pipeline"
	"flightledger/pkg/platform/audit"
)

const (
	stageSubmit = "flight_submit"
	stageLink   = "flight_link_telemetry"
)

// Submission is the outcome of a submit call. Compliance messages are always
// populated, whether or not the flight was registered.
type Submission struct {
	Fingerprint *fingerprint.Digest `json:"fingerprint,omitempty"`
	Messages    []string            `json:"complianceMessages"`
	Registered  bool                `json:"registered"`
	StorageRef  string              `json:"storageRef,omitempty"`
	Tx          string              `json:"txHash,omitempty"`
}

// LinkResult is the outcome of chaining telemetry to an anchored flight.
type LinkResult struct {
	Initial    fingerprint.Digest `json:"initialFingerprint"`
	Telemetry  fingerprint.Digest `json:"telemetryFingerprint"`
	StorageRef string             `json:"storageRef,omitempty"`
	Tx         string             `json:"txHash,omitempty"`
}

// Service orchestrates validation, anchoring and telemetry linking.
type Service struct {
	validator  compliance.Client
	registry   registry.Client
	telemetry  *telemetry.Processor
	registrant string
	logger     *slog.Logger
	metrics    *metrics.Metrics
	audit      *audit.Publisher
}

// NewService builds a Service anchored to the configured registrant address.
func NewService(validator compliance.Client, reg registry.Client, tel *telemetry.Processor, registrant string, logger *slog.Logger, m *metrics.Metrics) *Service {
	return &Service{
		validator:  validator,
		registry:   reg,
		telemetry:  tel,
		registrant: registrant,
		logger:     logger,
		metrics:    m,
	}
}

// WithAudit attaches an audit publisher. A nil publisher is a no-op.
func (s *Service) WithAudit(p *audit.Publisher) *Service {
	s.audit = p
	return s
}

// Validate runs the compliance gate without touching the registry.
func (s *Service) Validate(ctx context.Context, plan models.Plan) (compliance.Result, error) {
	return s.validator.Validate(ctx, plan)
}

// Submit validates the plan and, when it passes the gate, anchors its
// fingerprint. A plan that fails the gate is not an error: the messages tell
// the registrant why, and the registry is never touched.
func (s *Service) Submit(ctx context.Context, plan models.Plan) (Submission, error) {
	result, err := s.validator.Validate(ctx, plan)
	if err != nil {
		return Submission{}, err
	}

	sub := Submission{
		Fingerprint: result.Fingerprint,
		Messages:    result.Messages,
		StorageRef:  result.StorageRef,
	}
	if !result.CriticallyCompliant || result.Fingerprint == nil {
		s.logger.Info("flight plan failed compliance gate, not registering",
			"messages", len(result.Messages))
		return sub, nil
	}

	fp := *result.Fingerprint
	exists, err := s.registry.Exists(ctx, fp)
	if err != nil {
		return sub, pipeline.New(pipeline.ErrorChainRead, stageSubmit,
			fmt.Sprintf("check registration for %s", fp), err)
	}
	if exists {
		s.rejectDuplicate(fp)
		return sub, pipeline.New(pipeline.ErrorDuplicateRecord, stageSubmit,
			fmt.Sprintf("flight %s is already registered", fp), nil)
	}

	tx, err := s.registry.Register(ctx, s.registrant, fp)
	if err != nil {
		if pipeline.Category(err) == pipeline.ErrorDuplicateRecord {
			// Lost the race between Exists and Register.
			s.rejectDuplicate(fp)
			return sub, err
		}
		return sub, pipeline.New(pipeline.ErrorChainWrite, stageSubmit,
			fmt.Sprintf("register flight %s", fp), err)
	}

	sub.Registered = true
	sub.Tx = tx
	if s.metrics != nil {
		s.metrics.FlightsRegistered.Inc()
	}
	s.logger.Info("flight registered", "fingerprint", fp, "tx", tx)
	s.audit.Publish(ctx, audit.Event{
		Type:        audit.EventFlightRegistered,
		Registrant:  s.registrant,
		Fingerprint: fp.String(),
		TxHash:      tx,
	})
	return sub, nil
}

// LinkTelemetry fingerprints the recorded path and chains it to the anchored
// flight. The flight must already be registered.
func (s *Service) LinkTelemetry(ctx context.Context, initial fingerprint.Digest, entries []telemetry.LogEntry) (LinkResult, error) {
	exists, err := s.registry.Exists(ctx, initial)
	if err != nil {
		return LinkResult{}, pipeline.New(pipeline.ErrorChainRead, stageLink,
			fmt.Sprintf("check registration for %s", initial), err)
	}
	if !exists {
		return LinkResult{}, pipeline.New(pipeline.ErrorChainWrite, stageLink,
			fmt.Sprintf("flight %s is not registered", initial), registry.ErrNotRegistered)
	}

	processed, err := s.telemetry.Process(ctx, entries)
	if err != nil {
		return LinkResult{}, err
	}

	tx, err := s.registry.Link(ctx, s.registrant, initial, processed.Fingerprint)
	if err != nil {
		return LinkResult{}, err
	}
	if s.metrics != nil {
		s.metrics.TelemetryLinked.Inc()
	}
	s.logger.Info("telemetry linked", "fingerprint", initial,
		"telemetryFingerprint", processed.Fingerprint, "tx", tx)
	s.audit.Publish(ctx, audit.Event{
		Type:        audit.EventTelemetryLinked,
		Registrant:  s.registrant,
		Fingerprint: initial.String(),
		TxHash:      tx,
	})
	return LinkResult{
		Initial:    initial,
		Telemetry:  processed.Fingerprint,
		StorageRef: processed.StorageRef,
		Tx:         tx,
	}, nil
}

func (s *Service) rejectDuplicate(fp fingerprint.Digest) {
	s.logger.Warn("duplicate flight submission rejected", "fingerprint", fp)
	if s.metrics != nil {
		s.metrics.DuplicateRejections.Inc()
	}
}
