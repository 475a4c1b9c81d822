package flight

import (
	"context"
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"flightledger/internal/asset"
	"flightledger/internal/compliance"
	"flightledger/internal/licensing"
	"flightledger/internal/platform/logger"
	"flightledger/internal/registry"
	"flightledger/internal/revenue"
	"flightledger/internal/storage"
	"flightledger/internal/telemetry"
)

// TestFullPipeline walks one flight through the whole lifecycle: validate and
// anchor, record and link telemetry, tokenize, bootstrap the vault, pay a
// royalty, aggregate and claim it, then confirm the balance reads zero.
func TestFullPipeline(t *testing.T) {
	ctx := context.Background()
	log := logger.New()

	store := storage.NewMemoryStore()
	reg := registry.NewSimulator()
	chain := licensing.NewSimulator()
	metaStore := asset.NewMemoryStore()

	const (
		token      = licensing.Address("0x1514000000000000000000000000000000000000")
		registrant = "0xf398C12A45Bc409b6C652E25bb0a3e702492A4AB"
	)

	flights := NewService(
		compliance.NewStubValidator(store, log),
		reg,
		telemetry.NewProcessor(store, log, nil),
		registrant, log, nil)
	assets := asset.NewService(chain, metaStore, asset.Config{
		Collection:    "0x0c0c000000000000000000000000000000000001",
		Currency:      token,
		RoyaltyPolicy: "0xBe54FB168b3c982b7AaE60dB6CF75Bd8447b390E",
	}, log, nil)
	bootstrapper := revenue.NewBootstrapper(chain, licensing.Address(registrant), log, nil)
	rev := revenue.NewService(reg, asset.StoreResolver{Store: metaStore}, chain,
		token, licensing.Address(registrant), log, nil)

	// Validate and anchor.
	sub, err := flights.Submit(ctx, testPlan())
	require.NoError(t, err)
	require.True(t, sub.Registered)
	require.NotNil(t, sub.Fingerprint)
	assert.NotEmpty(t, sub.StorageRef)

	// Record the flown path and chain it on.
	link, err := flights.LinkTelemetry(ctx, *sub.Fingerprint, samples(50))
	require.NoError(t, err)
	assert.True(t, link.Telemetry.Valid())
	assert.NotEqual(t, *sub.Fingerprint, link.Telemetry)

	// Tokenize into a licensed asset.
	tokenized, err := assets.Tokenize(ctx, asset.TokenizeRequest{
		Initial:    *sub.Fingerprint,
		Telemetry:  link.Telemetry,
		StorageRef: link.StorageRef,
	})
	require.NoError(t, err)
	assert.NotEmpty(t, tokenized.AssetID)
	assert.NotZero(t, tokenized.TermsID)
	assert.NotZero(t, tokenized.TokenID)

	// The vault does not exist until bootstrap forces it.
	vault, err := chain.VaultAddress(ctx, tokenized.AssetID)
	require.NoError(t, err)
	assert.Equal(t, licensing.ZeroAddress, vault)

	state, err := bootstrapper.Ensure(ctx, tokenized.AssetID, tokenized.TermsID)
	require.NoError(t, err)
	assert.Equal(t, revenue.VaultPresent, state)

	// Pay one royalty of 0.1 token.
	payment := big.NewInt(100000000000000000)
	_, err = bootstrapper.PayRoyalty(ctx, tokenized.AssetID, tokenized.TermsID, token, payment)
	require.NoError(t, err)

	// The aggregation joins the payment back to the flight's fingerprint.
	summary, err := rev.Aggregate(ctx, registrant)
	require.NoError(t, err)
	require.Len(t, summary.Entries, 1)
	assert.Equal(t, *sub.Fingerprint, summary.Entries[0].Initial)
	assert.Equal(t, link.Telemetry, summary.Entries[0].Telemetry)
	assert.Zero(t, summary.Entries[0].Claimable.Cmp(payment))
	assert.Zero(t, summary.Degraded)

	// Claim it and confirm the vault reads zero afterwards.
	outcome, err := rev.Claim(ctx, tokenized.AssetID)
	require.NoError(t, err)
	assert.Zero(t, outcome.Claimed.Cmp(payment))
	assert.Equal(t, "0.1", outcome.Display)

	summary, err = rev.Aggregate(ctx, registrant)
	require.NoError(t, err)
	assert.Zero(t, summary.Total.Sign())
}
