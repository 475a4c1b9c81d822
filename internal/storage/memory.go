package storage

import (
	"context"
	"errors"
	"sync"

	"flightledger/internal/fingerprint"
)

// MemoryStore is an in-process Store addressing payloads by content hash.
type MemoryStore struct {
	// Fail makes every Put return an error, for exercising the best-effort
	// upload paths.
	Fail bool

	mu   sync.RWMutex
	blob map[string][]byte
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{blob: make(map[string][]byte)}
}

func (m *MemoryStore) Put(_ context.Context, payload []byte) (string, error) {
	if m.Fail {
		return "", errors.New("memory store: upload disabled")
	}
	ref := fingerprint.HashBytes(payload).String()
	m.mu.Lock()
	defer m.mu.Unlock()
	m.blob[ref] = append([]byte(nil), payload...)
	return ref, nil
}

// Get returns a stored payload, for test assertions.
func (m *MemoryStore) Get(ref string) ([]byte, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	b, ok := m.blob[ref]
	return b, ok
}

// Len reports how many payloads are stored.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.blob)
}
