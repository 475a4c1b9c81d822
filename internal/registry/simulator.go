package registry

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"flightledger/internal/fingerprint"
	"flightledger/pkg/pipeline"
	"flightledger/pkg/platform/sentinel"
)

// ErrNotRegistered is returned when an operation names a flight fingerprint
// the registry has never seen.
var ErrNotRegistered = errors.New("flight fingerprint not registered")

// ErrAlreadyLinked is returned when a record already carries a telemetry link.
var ErrAlreadyLinked = errors.New("telemetry already linked")

// location addresses a record in its registrant's slice.
type location struct {
	registrant string
	i          int
}

// Simulator is an in-memory Client. Record ownership is scoped per
// registrant the way the real contract scopes storage to msg.sender, but
// the fingerprint index is global: a fingerprint registered by anyone
// blocks every later registration of it.
type Simulator struct {
	// Latency is added to every call when non-zero.
	Latency time.Duration

	mu      sync.RWMutex
	records map[string][]Record
	index   map[fingerprint.Digest]location
	seq     uint64
}

// NewSimulator returns an empty registry.
func NewSimulator() *Simulator {
	return &Simulator{
		records: make(map[string][]Record),
		index:   make(map[fingerprint.Digest]location),
	}
}

func (s *Simulator) sleep() {
	if s.Latency > 0 {
		time.Sleep(s.Latency)
	}
}

func (s *Simulator) Exists(_ context.Context, fp fingerprint.Digest) (bool, error) {
	s.sleep()
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.index[fp]
	return ok, nil
}

func (s *Simulator) Register(_ context.Context, registrant string, fp fingerprint.Digest) (string, error) {
	s.sleep()
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.index[fp]; ok {
		return "", pipeline.New(pipeline.ErrorDuplicateRecord, "registry_register",
			fmt.Sprintf("fingerprint %s already registered", fp), sentinel.ErrConflict)
	}
	s.seq++
	tx := txHash(s.seq)
	s.index[fp] = location{registrant: registrant, i: len(s.records[registrant])}
	s.records[registrant] = append(s.records[registrant], Record{
		Fingerprint: fp,
		Registrant:  registrant,
		Tx:          tx,
	})
	return tx, nil
}

func (s *Simulator) Link(_ context.Context, registrant string, flight, telemetry fingerprint.Digest) (string, error) {
	s.sleep()
	s.mu.Lock()
	defer s.mu.Unlock()
	loc, ok := s.index[flight]
	if !ok || loc.registrant != registrant {
		return "", pipeline.New(pipeline.ErrorChainWrite, "registry_link",
			fmt.Sprintf("flight %s not registered by %s", flight, registrant), ErrNotRegistered)
	}
	rec := &s.records[loc.registrant][loc.i]
	if rec.Linked() {
		return "", pipeline.New(pipeline.ErrorChainWrite, "registry_link",
			fmt.Sprintf("flight %s already linked", flight), ErrAlreadyLinked)
	}
	s.seq++
	tx := txHash(s.seq)
	rec.Telemetry = telemetry
	return tx, nil
}

func (s *Simulator) OwnedRecords(_ context.Context, registrant string) ([]Record, error) {
	s.sleep()
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Record, len(s.records[registrant]))
	copy(out, s.records[registrant])
	return out, nil
}

func (s *Simulator) LinkedTelemetry(_ context.Context, registrant string, flight fingerprint.Digest) (fingerprint.Digest, error) {
	s.sleep()
	s.mu.RLock()
	defer s.mu.RUnlock()
	loc, ok := s.index[flight]
	if !ok || loc.registrant != registrant {
		return fingerprint.Zero, pipeline.New(pipeline.ErrorChainRead, "registry_lookup",
			fmt.Sprintf("flight %s not registered by %s", flight, registrant), ErrNotRegistered)
	}
	return s.records[loc.registrant][loc.i].Telemetry, nil
}

func txHash(seq uint64) string {
	return fingerprint.HashBytes([]byte(fmt.Sprintf("registry-tx-%d", seq))).String()
}
