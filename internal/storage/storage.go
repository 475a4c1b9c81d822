// Package storage persists canonical payloads to content-addressed storage.
// Uploads are best effort across the pipeline: callers record the returned
// reference when the upload succeeds and fall back to a placeholder when it
// does not. The fingerprint, not the storage ref, is authoritative.
package storage

import "context"

// FailedRef is recorded in place of a content reference when an upload fails.
const FailedRef = "UPLOAD_FAILED"

// Store uploads a payload and returns its content reference.
type Store interface {
	Put(ctx context.Context, payload []byte) (string, error)
}
