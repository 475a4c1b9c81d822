package revenue

import (
	"context"
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"flightledger/internal/licensing"
	"flightledger/internal/platform/logger"
	"flightledger/pkg/pipeline"
)

const (
	testToken    = licensing.Address("0x1514000000000000000000000000000000000000")
	testReceiver = licensing.Address("0xf398C12A45Bc409b6C652E25bb0a3e702492A4AB")
)

func mintTestAsset(t *testing.T, sim *licensing.Simulator) (licensing.AssetID, licensing.TermsID) {
	t.Helper()
	ctx := context.Background()
	terms, err := sim.RegisterTerms(ctx, licensing.DefaultCommercialRemix(testToken, licensing.ZeroAddress))
	require.NoError(t, err)
	minted, err := sim.MintAndRegister(ctx, licensing.MintRequest{TermsID: terms})
	require.NoError(t, err)
	return minted.AssetID, terms
}

func TestEnsureDeploysVaultOnce(t *testing.T) {
	sim := licensing.NewSimulator()
	b := NewBootstrapper(sim, testReceiver, logger.New(), nil)
	ctx := context.Background()
	asset, terms := mintTestAsset(t, sim)

	state, err := b.Ensure(ctx, asset, terms)
	require.NoError(t, err)
	assert.Equal(t, VaultPresent, state)

	// Second call short-circuits on the existing vault.
	state, err = b.Ensure(ctx, asset, terms)
	require.NoError(t, err)
	assert.Equal(t, VaultPresent, state)
}

func TestEnsureFailedDeploymentReturnsAbsent(t *testing.T) {
	sim := licensing.NewSimulator()
	sim.FailVaultDeployment = true
	b := NewBootstrapper(sim, testReceiver, logger.New(), nil)
	asset, terms := mintTestAsset(t, sim)

	state, err := b.Ensure(context.Background(), asset, terms)
	require.Error(t, err)
	assert.Equal(t, VaultAbsent, state)
	assert.Equal(t, pipeline.ErrorVaultNotDeployed, pipeline.Category(err))
	assert.False(t, pipeline.IsRetryable(err))
}

func TestPayRoyaltyBootstrapsThenPays(t *testing.T) {
	sim := licensing.NewSimulator()
	b := NewBootstrapper(sim, testReceiver, logger.New(), nil)
	ctx := context.Background()
	asset, terms := mintTestAsset(t, sim)

	amount := big.NewInt(100000000000000000)
	tx, err := b.PayRoyalty(ctx, asset, terms, testToken, amount)
	require.NoError(t, err)
	assert.NotEmpty(t, tx.Hash)

	claimable, err := sim.ClaimableAmount(ctx, asset, testReceiver, testToken)
	require.NoError(t, err)
	assert.Zero(t, claimable.Cmp(amount))
}

func TestPayRoyaltySkipsPaymentWhenBootstrapFails(t *testing.T) {
	sim := licensing.NewSimulator()
	sim.FailVaultDeployment = true
	b := NewBootstrapper(sim, testReceiver, logger.New(), nil)
	asset, terms := mintTestAsset(t, sim)

	_, err := b.PayRoyalty(context.Background(), asset, terms, testToken, big.NewInt(1))
	require.Error(t, err)
	assert.Equal(t, pipeline.ErrorVaultNotDeployed, pipeline.Category(err))
}

func TestVaultStateStrings(t *testing.T) {
	assert.Equal(t, "unknown", VaultUnknown.String())
	assert.Equal(t, "absent", VaultAbsent.String())
	assert.Equal(t, "bootstrapping", VaultBootstrapping.String())
	assert.Equal(t, "present", VaultPresent.String())
}
