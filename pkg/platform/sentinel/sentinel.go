package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Stores, clients, and simulators return
// these (optionally wrapped) so services can translate them into stage errors.
//
// These represent factual states about resources, not validation failures:
// - ErrNotFound: entity does not exist in the store or on the ledger
// - ErrConflict: a competing write already claimed the resource
// - ErrInvalidState: entity in wrong state for the requested operation
// - ErrUnavailable: collaborator temporarily unavailable
//
// For malformed input, use pkg/pipeline input-validation errors directly.
var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrInvalidState = errors.New("invalid state")
	ErrUnavailable  = errors.New("unavailable")
)
