package licensing

import (
	"context"
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const wip = Address("0x1514000000000000000000000000000000000000")

func mintAsset(t *testing.T, sim *Simulator) (AssetID, TermsID) {
	t.Helper()
	ctx := context.Background()
	terms, err := sim.RegisterTerms(ctx, DefaultCommercialRemix(wip, ZeroAddress))
	require.NoError(t, err)
	minted, err := sim.MintAndRegister(ctx, MintRequest{TermsID: terms})
	require.NoError(t, err)
	return minted.AssetID, terms
}

func TestRegisterTermsIdempotentByContent(t *testing.T) {
	sim := NewSimulator()
	ctx := context.Background()

	terms := DefaultCommercialRemix(wip, ZeroAddress)
	first, err := sim.RegisterTerms(ctx, terms)
	require.NoError(t, err)
	second, err := sim.RegisterTerms(ctx, terms)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	changed := terms
	changed.CommercialRevShare = 25
	third, err := sim.RegisterTerms(ctx, changed)
	require.NoError(t, err)
	assert.NotEqual(t, first, third)
}

func TestVaultDeploysLazilyOnLicenseMint(t *testing.T) {
	sim := NewSimulator()
	ctx := context.Background()
	asset, terms := mintAsset(t, sim)

	vault, err := sim.VaultAddress(ctx, asset)
	require.NoError(t, err)
	assert.Equal(t, ZeroAddress, vault)

	_, err = sim.MintLicenseToken(ctx, asset, terms, ZeroAddress)
	require.NoError(t, err)

	vault, err = sim.VaultAddress(ctx, asset)
	require.NoError(t, err)
	assert.NotEqual(t, ZeroAddress, vault)
}

func TestFailVaultDeploymentKeepsVaultAbsent(t *testing.T) {
	sim := NewSimulator()
	sim.FailVaultDeployment = true
	ctx := context.Background()
	asset, terms := mintAsset(t, sim)

	_, err := sim.MintLicenseToken(ctx, asset, terms, ZeroAddress)
	require.NoError(t, err)

	vault, err := sim.VaultAddress(ctx, asset)
	require.NoError(t, err)
	assert.Equal(t, ZeroAddress, vault)
}

func TestPayClaimCycleZeroesClaimable(t *testing.T) {
	sim := NewSimulator()
	ctx := context.Background()
	asset, terms := mintAsset(t, sim)
	claimer := Address("0xclaimer")

	_, err := sim.MintLicenseToken(ctx, asset, terms, claimer)
	require.NoError(t, err)

	payment := big.NewInt(100000000000000000) // 0.1 of an 18-decimal token
	_, err = sim.PayOnBehalf(ctx, asset, wip, payment)
	require.NoError(t, err)

	claimable, err := sim.ClaimableAmount(ctx, asset, claimer, wip)
	require.NoError(t, err)
	assert.Zero(t, claimable.Cmp(payment))

	result, err := sim.Claim(ctx, asset, claimer, []Address{wip})
	require.NoError(t, err)
	require.Len(t, result.ClaimedTokens, 1)
	assert.Zero(t, result.ClaimedTokens[0].Amount.Cmp(payment))

	claimable, err = sim.ClaimableAmount(ctx, asset, claimer, wip)
	require.NoError(t, err)
	assert.Zero(t, claimable.Sign())
}

func TestClaimWithNothingAccruedReturnsEmptyList(t *testing.T) {
	sim := NewSimulator()
	ctx := context.Background()
	asset, terms := mintAsset(t, sim)

	_, err := sim.MintLicenseToken(ctx, asset, terms, ZeroAddress)
	require.NoError(t, err)

	result, err := sim.Claim(ctx, asset, ZeroAddress, []Address{wip})
	require.NoError(t, err)
	assert.Empty(t, result.ClaimedTokens)
}

func TestPaymentRequiresVault(t *testing.T) {
	sim := NewSimulator()
	ctx := context.Background()
	asset, _ := mintAsset(t, sim)

	_, err := sim.PayOnBehalf(ctx, asset, wip, big.NewInt(1))
	require.Error(t, err)
}
