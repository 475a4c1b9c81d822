// Package asset tokenizes anchored flight records into licensed assets and
// keeps the off-chain metadata that maps fingerprints to minted assets.
package asset

import (
	"context"
	"time"

	"flightledger/internal/fingerprint"
	"flightledger/internal/licensing"
)

// Metadata maps a flight's provenance fingerprints to its minted asset.
type Metadata struct {
	Initial    fingerprint.Digest `json:"initialFingerprint"`
	Telemetry  fingerprint.Digest `json:"telemetryFingerprint"`
	StorageRef string             `json:"storageRef,omitempty"`
	AssetID    licensing.AssetID  `json:"assetId"`
	TermsID    licensing.TermsID  `json:"licenseTermsId"`
	TokenID    uint64             `json:"tokenId"`
	CreatedAt  time.Time          `json:"createdAt"`
}

// Tokenized reports whether the record has been minted into an asset.
func (m Metadata) Tokenized() bool {
	return m.AssetID != "" && m.AssetID != licensing.ZeroAddress
}

// Store persists tokenization metadata keyed by initial fingerprint.
type Store interface {
	// Save upserts by initial fingerprint.
	Save(ctx context.Context, m Metadata) error
	// Find returns sentinel.ErrNotFound for unknown fingerprints.
	Find(ctx context.Context, initial fingerprint.Digest) (Metadata, error)
	// FindMany resolves a batch in one round trip. Unknown fingerprints are
	// simply absent from the result, never an error.
	FindMany(ctx context.Context, initials []fingerprint.Digest) (map[fingerprint.Digest]Metadata, error)
}

// Resolver looks up tokenization metadata for a batch of fingerprints.
// Unknown fingerprints are absent from the result, never an error.
type Resolver interface {
	ResolveMany(ctx context.Context, initials []fingerprint.Digest) (map[fingerprint.Digest]Metadata, error)
}

// StoreResolver adapts a Store to the Resolver surface.
type StoreResolver struct {
	Store Store
}

func (r StoreResolver) ResolveMany(ctx context.Context, initials []fingerprint.Digest) (map[fingerprint.Digest]Metadata, error) {
	return r.Store.FindMany(ctx, initials)
}

// FallbackResolver consults resolvers in order, asking each later resolver
// only for the fingerprints the earlier ones missed. The aggregator uses it
// to prefer the local store and fall back to the companion process.
type FallbackResolver []Resolver

func (r FallbackResolver) ResolveMany(ctx context.Context, initials []fingerprint.Digest) (map[fingerprint.Digest]Metadata, error) {
	out := make(map[fingerprint.Digest]Metadata, len(initials))
	remaining := initials
	for _, resolver := range r {
		if len(remaining) == 0 {
			break
		}
		found, err := resolver.ResolveMany(ctx, remaining)
		if err != nil {
			return nil, err
		}
		var misses []fingerprint.Digest
		for _, fp := range remaining {
			if meta, ok := found[fp]; ok {
				out[fp] = meta
			} else {
				misses = append(misses, fp)
			}
		}
		remaining = misses
	}
	return out, nil
}
