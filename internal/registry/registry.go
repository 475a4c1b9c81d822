// Package registry is the append-only record of flight fingerprints. A
// fingerprint is registered exactly once across all registrants; a telemetry
// fingerprint may be linked to it exactly once afterwards.
package registry

import (
	"context"

	"flightledger/internal/fingerprint"
)

// Record is one registered flight fingerprint and its optional telemetry link.
type Record struct {
	Fingerprint fingerprint.Digest
	Telemetry   fingerprint.Digest
	Registrant  string
	Tx          string
}

// Linked reports whether a telemetry fingerprint has been chained to the record.
func (r Record) Linked() bool {
	return r.Telemetry != fingerprint.Zero
}

// Client is the registry contract surface.
type Client interface {
	// Exists reports whether the fingerprint is already registered, by
	// anyone.
	Exists(ctx context.Context, fp fingerprint.Digest) (bool, error)
	// Register appends a new fingerprint. Registering a fingerprint that
	// already exists, under any registrant, fails.
	Register(ctx context.Context, registrant string, fp fingerprint.Digest) (tx string, err error)
	// Link chains a telemetry fingerprint to a previously registered flight
	// fingerprint. Linking twice, or linking to an unregistered flight, fails.
	Link(ctx context.Context, registrant string, flight, telemetry fingerprint.Digest) (tx string, err error)
	// OwnedRecords returns every record registered by the registrant.
	OwnedRecords(ctx context.Context, registrant string) ([]Record, error)
	// LinkedTelemetry returns the telemetry fingerprint chained to a flight,
	// or fingerprint.Zero when none is linked yet.
	LinkedTelemetry(ctx context.Context, registrant string, flight fingerprint.Digest) (fingerprint.Digest, error)
}
