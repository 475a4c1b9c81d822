// Package pipeline defines the failure taxonomy shared by every stage of the
// provenance-and-settlement pipeline. Stages never swallow failures into
// success; they wrap them in a StageError carrying the stage name, the record
// it concerned, and a normalized category the transport layer can map to a
// response.
package pipeline

import (
	"errors"
	"fmt"
)

// ErrorCategory is the normalized failure taxonomy.
type ErrorCategory string

const (
	// ErrorInputValidation indicates a malformed fingerprint, address, or
	// payload. Never retried automatically.
	ErrorInputValidation ErrorCategory = "input_validation"

	// ErrorExternalProcess indicates the compliance validator process failed
	// or produced no usable output. Safe to retry.
	ErrorExternalProcess ErrorCategory = "external_process"

	// ErrorDuplicateRecord indicates the fingerprint is already registered.
	// Terminal for that submission.
	ErrorDuplicateRecord ErrorCategory = "duplicate_record"

	// ErrorChainRead indicates a registry or protocol read failed. Retryable.
	ErrorChainRead ErrorCategory = "chain_read"

	// ErrorChainWrite indicates a registry or protocol write failed.
	// Idempotent writes may be retried; others only after re-checking state.
	ErrorChainWrite ErrorCategory = "chain_write"

	// ErrorVaultNotDeployed indicates a vault bootstrap attempt ended with the
	// vault still absent. Terminal for the current attempt.
	ErrorVaultNotDeployed ErrorCategory = "vault_not_deployed"

	// ErrorPartialBatch indicates an aggregation degraded some entries to
	// zero. Not fatal; logged per entry.
	ErrorPartialBatch ErrorCategory = "partial_batch"

	// ErrorInternal indicates an unexpected failure.
	ErrorInternal ErrorCategory = "internal"
)

// StageError wraps a stage failure with normalized categorization.
type StageError struct {
	Category   ErrorCategory
	Stage      string
	Record     string // initial fingerprint or asset ID, when known
	Message    string
	Underlying error
	Retryable  bool
}

func (e *StageError) Error() string {
	rec := ""
	if e.Record != "" {
		rec = " record " + e.Record
	}
	if e.Underlying != nil {
		return fmt.Sprintf("stage %s [%s]%s: %s: %v", e.Stage, e.Category, rec, e.Message, e.Underlying)
	}
	return fmt.Sprintf("stage %s [%s]%s: %s", e.Stage, e.Category, rec, e.Message)
}

func (e *StageError) Unwrap() error {
	return e.Underlying
}

// New creates a categorized stage error. Retryability follows the taxonomy:
// validator process failures and chain reads are safe to retry, everything
// else needs an explicit caller decision.
func New(category ErrorCategory, stage, message string, underlying error) *StageError {
	retryable := category == ErrorExternalProcess || category == ErrorChainRead
	return &StageError{
		Category:   category,
		Stage:      stage,
		Message:    message,
		Underlying: underlying,
		Retryable:  retryable,
	}
}

// WithRecord returns a copy of the error annotated with the record it concerned.
func (e *StageError) WithRecord(record string) *StageError {
	clone := *e
	clone.Record = record
	return &clone
}

// IsRetryable reports whether the error is worth retrying from the last
// confirmed state.
func IsRetryable(err error) bool {
	var se *StageError
	if errors.As(err, &se) {
		return se.Retryable
	}
	return false
}

// Category extracts the category from an error, ErrorInternal when the error
// does not carry one.
func Category(err error) ErrorCategory {
	var se *StageError
	if errors.As(err, &se) {
		return se.Category
	}
	return ErrorInternal
}

// StageOf extracts the failing stage name, empty when unknown.
func StageOf(err error) string {
	var se *StageError
	if errors.As(err, &se) {
		return se.Stage
	}
	return ""
}
