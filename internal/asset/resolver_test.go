package asset

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"flightledger/internal/fingerprint"
)

// recordingResolver serves a fixed map and remembers what it was asked for.
type recordingResolver struct {
	records map[fingerprint.Digest]Metadata
	asked   [][]fingerprint.Digest
	err     error
}

func (r *recordingResolver) ResolveMany(_ context.Context, initials []fingerprint.Digest) (map[fingerprint.Digest]Metadata, error) {
	r.asked = append(r.asked, initials)
	if r.err != nil {
		return nil, r.err
	}
	out := make(map[fingerprint.Digest]Metadata, len(initials))
	for _, fp := range initials {
		if meta, ok := r.records[fp]; ok {
			out[fp] = meta
		}
	}
	return out, nil
}

func TestFallbackResolverAsksLaterResolversOnlyForMisses(t *testing.T) {
	ctx := context.Background()
	known := fingerprint.HashBytes([]byte("known"))
	external := fingerprint.HashBytes([]byte("external"))
	missing := fingerprint.HashBytes([]byte("missing"))

	primary := &recordingResolver{records: map[fingerprint.Digest]Metadata{
		known: {Initial: known, TokenID: 1},
	}}
	secondary := &recordingResolver{records: map[fingerprint.Digest]Metadata{
		external: {Initial: external, TokenID: 2},
	}}

	resolver := FallbackResolver{primary, secondary}
	found, err := resolver.ResolveMany(ctx, []fingerprint.Digest{known, external, missing})
	require.NoError(t, err)

	assert.Len(t, found, 2)
	assert.Equal(t, uint64(1), found[known].TokenID)
	assert.Equal(t, uint64(2), found[external].TokenID)

	require.Len(t, secondary.asked, 1)
	assert.Equal(t, []fingerprint.Digest{external, missing}, secondary.asked[0])
}

func TestFallbackResolverSkipsFallbackWhenPrimaryCovers(t *testing.T) {
	ctx := context.Background()
	known := fingerprint.HashBytes([]byte("known"))

	primary := &recordingResolver{records: map[fingerprint.Digest]Metadata{
		known: {Initial: known, TokenID: 1},
	}}
	secondary := &recordingResolver{err: errors.New("unreachable")}

	resolver := FallbackResolver{primary, secondary}
	found, err := resolver.ResolveMany(ctx, []fingerprint.Digest{known})
	require.NoError(t, err)
	assert.Len(t, found, 1)
	assert.Empty(t, secondary.asked)
}

func TestFallbackResolverPropagatesErrors(t *testing.T) {
	ctx := context.Background()
	primary := &recordingResolver{err: errors.New("store down")}

	resolver := FallbackResolver{primary}
	_, err := resolver.ResolveMany(ctx, []fingerprint.Digest{fingerprint.HashBytes([]byte("a"))})
	require.Error(t, err)
}
