// Package httpjson holds the JSON response conventions shared by the HTTP
// handlers, including the mapping from pipeline error categories to status
// codes.
package httpjson

import (
	"encoding/json"
	"net/http"

	"flightledger/pkg/pipeline"
)

// Write writes v as a JSON response with the given status.
func Write(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck
}

// Error writes a JSON error envelope.
func Error(w http.ResponseWriter, status int, msg string) {
	Write(w, status, map[string]string{"error": msg})
}

// CategoryError writes a pipeline error with its category, for clients that
// branch on retryability.
func CategoryError(w http.ResponseWriter, err error) {
	Write(w, StatusFor(err), map[string]any{
		"error":     err.Error(),
		"category":  string(pipeline.Category(err)),
		"retryable": pipeline.IsRetryable(err),
	})
}

// StatusFor maps a pipeline error category to an HTTP status code.
func StatusFor(err error) int {
	switch pipeline.Category(err) {
	case pipeline.ErrorInputValidation:
		return http.StatusBadRequest
	case pipeline.ErrorDuplicateRecord, pipeline.ErrorVaultNotDeployed:
		return http.StatusConflict
	case pipeline.ErrorExternalProcess, pipeline.ErrorChainRead:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
