// Package compliance talks to the external rules engine that vets flight
// plans before anything touches the provenance registry. The engine lives
// behind a process boundary and is treated as untrusted: its output contract
// is enforced strictly, and absence of output is never read as "no issues".
package compliance

import (
	"context"

	"flightledger/internal/fingerprint"
)

// Result is the structured verdict of one validation run. Messages are always
// surfaced to the caller regardless of the gate outcome; they carry actionable
// feedback independent of pipeline success.
type Result struct {
	Messages            []string
	CriticallyCompliant bool
	// Fingerprint of the normalized, validated flight plan. Nil when the
	// engine withheld it (non-compliant or failed run); the pipeline gate in
	// the flight service treats nil as a hard stop.
	Fingerprint *fingerprint.Digest
	// StorageRef is the content-addressed copy of the validated package,
	// empty when the upload was skipped or failed.
	StorageRef string
}

// Client validates a flight plan against the external rules engine.
type Client interface {
	Validate(ctx context.Context, plan any) (Result, error)
}

// wireResponse is the engine's stdout contract.
type wireResponse struct {
	ComplianceMessages  []string `json:"complianceMessages"`
	DataHash            *string  `json:"dataHash"`
	ContentRef          *string  `json:"contentRef"`
	CriticallyCompliant bool     `json:"criticallyCompliant"`
	Error               string   `json:"error,omitempty"`
}
