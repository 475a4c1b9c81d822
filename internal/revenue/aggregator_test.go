package revenue

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"flightledger/internal/asset"
	"flightledger/internal/fingerprint"
	"flightledger/internal/licensing"
	"flightledger/internal/platform/logger"
	"flightledger/internal/registry"
	"flightledger/pkg/pipeline"
)

const testRegistrant = "0xf398C12A45Bc409b6C652E25bb0a3e702492A4AB"

// fixture wires a registry, a metadata store and the licensing simulator with
// n registered flights, the first tokenized ones paid 0.1 token each.
type fixture struct {
	reg   *registry.Simulator
	store *asset.MemoryStore
	sim   *licensing.Simulator
	svc   *Service
	fps   []fingerprint.Digest
}

func newFixture(t *testing.T) *fixture {
	f := &fixture{
		reg:   registry.NewSimulator(),
		store: asset.NewMemoryStore(),
		sim:   licensing.NewSimulator(),
	}
	f.svc = NewService(f.reg, asset.StoreResolver{Store: f.store}, f.sim,
		testToken, testReceiver, logger.New(), nil)
	return f
}

// addFlight registers flight i; tokenize also mints, bootstraps and pays.
func (f *fixture) addFlight(t *testing.T, i int, tokenize bool) {
	t.Helper()
	ctx := context.Background()
	fp := fingerprint.HashBytes([]byte(fmt.Sprintf("flight-%d", i)))
	f.fps = append(f.fps, fp)
	_, err := f.reg.Register(ctx, testRegistrant, fp)
	require.NoError(t, err)
	if !tokenize {
		return
	}

	terms, err := f.sim.RegisterTerms(ctx, licensing.DefaultCommercialRemix(testToken, licensing.ZeroAddress))
	require.NoError(t, err)
	minted, err := f.sim.MintAndRegister(ctx, licensing.MintRequest{TermsID: terms})
	require.NoError(t, err)
	require.NoError(t, f.store.Save(ctx, asset.Metadata{
		Initial: fp,
		AssetID: minted.AssetID,
		TermsID: terms,
		TokenID: minted.TokenID,
	}))

	_, err = f.sim.MintLicenseToken(ctx, minted.AssetID, terms, testReceiver)
	require.NoError(t, err)
	_, err = f.sim.PayOnBehalf(ctx, minted.AssetID, testToken, big.NewInt(100000000000000000))
	require.NoError(t, err)
}

func TestAggregateJoinsByFingerprint(t *testing.T) {
	f := newFixture(t)
	f.addFlight(t, 0, true)
	f.addFlight(t, 1, false) // registered but never tokenized
	f.addFlight(t, 2, true)

	summary, err := f.svc.Aggregate(context.Background(), testRegistrant)
	require.NoError(t, err)
	require.Len(t, summary.Entries, 3)
	assert.Zero(t, summary.Degraded)

	paid := big.NewInt(100000000000000000)
	assert.Zero(t, summary.Entries[0].Claimable.Cmp(paid))
	assert.Equal(t, "present", summary.Entries[0].VaultState)

	assert.Zero(t, summary.Entries[1].Claimable.Sign())
	assert.Empty(t, summary.Entries[1].AssetID)
	assert.Equal(t, "absent", summary.Entries[1].VaultState)

	assert.Zero(t, summary.Entries[2].Claimable.Cmp(paid))
	assert.Zero(t, summary.Total.Cmp(new(big.Int).Mul(paid, big.NewInt(2))))
}

func TestAggregateEmptyRegistrant(t *testing.T) {
	f := newFixture(t)
	summary, err := f.svc.Aggregate(context.Background(), testRegistrant)
	require.NoError(t, err)
	assert.Empty(t, summary.Entries)
	assert.Zero(t, summary.Total.Sign())
}

// faultyChain fails claimable lookups for one asset only.
type faultyChain struct {
	licensing.Client
	failFor licensing.AssetID
}

func (c faultyChain) ClaimableAmount(ctx context.Context, assetID licensing.AssetID, claimer, token licensing.Address) (*big.Int, error) {
	if assetID == c.failFor {
		return nil, errors.New("rpc timeout")
	}
	return c.Client.ClaimableAmount(ctx, assetID, claimer, token)
}

func TestAggregateIsolatesPerEntryFailure(t *testing.T) {
	f := newFixture(t)
	for i := 0; i < 4; i++ {
		f.addFlight(t, i, true)
	}
	ctx := context.Background()

	// Fail the lookup for the asset behind flight 2.
	meta, err := f.store.Find(ctx, f.fps[2])
	require.NoError(t, err)
	f.svc.chain = faultyChain{Client: f.sim, failFor: meta.AssetID}

	summary, err := f.svc.Aggregate(ctx, testRegistrant)
	require.NoError(t, err)
	require.Len(t, summary.Entries, 4)
	assert.Equal(t, 1, summary.Degraded)

	paid := big.NewInt(100000000000000000)
	for i, entry := range summary.Entries {
		if i == 2 {
			assert.True(t, entry.Degraded)
			assert.Zero(t, entry.Claimable.Sign())
			continue
		}
		assert.False(t, entry.Degraded)
		assert.Zero(t, entry.Claimable.Cmp(paid))
	}
	assert.Zero(t, summary.Total.Cmp(new(big.Int).Mul(paid, big.NewInt(3))))
}

func TestClaimSettlesAndZeroes(t *testing.T) {
	f := newFixture(t)
	f.addFlight(t, 0, true)
	ctx := context.Background()

	meta, err := f.store.Find(ctx, f.fps[0])
	require.NoError(t, err)

	outcome, err := f.svc.Claim(ctx, meta.AssetID)
	require.NoError(t, err)
	assert.Equal(t, "100000000000000000", outcome.Claimed.String())
	assert.Equal(t, "0.1", outcome.Display)

	// Everything claimed; a second claim settles zero without error.
	outcome, err = f.svc.Claim(ctx, meta.AssetID)
	require.NoError(t, err)
	assert.Zero(t, outcome.Claimed.Sign())
	assert.Equal(t, "0", outcome.Display)
}

func TestClaimWithoutVault(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	terms, err := f.sim.RegisterTerms(ctx, licensing.DefaultCommercialRemix(testToken, licensing.ZeroAddress))
	require.NoError(t, err)
	minted, err := f.sim.MintAndRegister(ctx, licensing.MintRequest{TermsID: terms})
	require.NoError(t, err)

	_, err = f.svc.Claim(ctx, minted.AssetID)
	require.Error(t, err)
	assert.Equal(t, pipeline.ErrorVaultNotDeployed, pipeline.Category(err))
}

func TestFormatTokenAmount(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{"0", "0"},
		{"100000000000000000", "0.1"},
		{"1000000000000000000", "1"},
		{"1500000000000000000", "1.5"},
		{"1", "0.000000000000000001"},
		{"2100000000000000000000", "2100"},
	}
	for _, tt := range tests {
		amount, ok := new(big.Int).SetString(tt.raw, 10)
		require.True(t, ok)
		assert.Equal(t, tt.want, formatTokenAmount(amount), tt.raw)
	}
}
