// Package revenue drives the settlement side of the pipeline: making sure an
// asset's revenue vault exists, paying royalties into it, aggregating
// claimable balances across a registrant's records, and claiming them.
package revenue

import (
	"context"
	"fmt"
	"log/slog"
	"math/big"
	"time"

	"flightledger/internal/licensing"
	"flightledger/internal/platform/metrics"
	"flightledger/pkg/pipeline"
	"flightledger/pkg/platform/audit"
)

const (
	stageVaultQuery = "vault_query"
	stageBootstrap  = "vault_bootstrap"
	stagePay        = "royalty_pay"
)

// VaultState tracks an asset's vault through bootstrap. Transitions only move
// forward except for a failed bootstrap, which lands back on VaultAbsent.
type VaultState int

const (
	VaultUnknown VaultState = iota
	VaultAbsent
	VaultBootstrapping
	VaultPresent
)

func (s VaultState) String() string {
	switch s {
	case VaultAbsent:
		return "absent"
	case VaultBootstrapping:
		return "bootstrapping"
	case VaultPresent:
		return "present"
	default:
		return "unknown"
	}
}

// Bootstrapper forces lazy vault deployment. The protocol deploys a vault as
// a side effect of the first license-token mint, so "ensure" means minting
// one minimal token and checking again.
type Bootstrapper struct {
	chain    licensing.Client
	receiver licensing.Address
	logger   *slog.Logger
	metrics  *metrics.Metrics
	audit    *audit.Publisher
}

// NewBootstrapper builds a Bootstrapper minting trigger tokens to receiver.
func NewBootstrapper(chain licensing.Client, receiver licensing.Address, logger *slog.Logger, m *metrics.Metrics) *Bootstrapper {
	return &Bootstrapper{chain: chain, receiver: receiver, logger: logger, metrics: m}
}

// WithAudit attaches an audit publisher. A nil publisher is a no-op.
func (b *Bootstrapper) WithAudit(p *audit.Publisher) *Bootstrapper {
	b.audit = p
	return b
}

// Ensure returns VaultPresent once the asset has a vault, deploying one if
// needed. A deployment that does not take effect returns VaultAbsent with a
// vault_not_deployed error; callers must not pay or claim for the asset in
// this run.
func (b *Bootstrapper) Ensure(ctx context.Context, asset licensing.AssetID, terms licensing.TermsID) (VaultState, error) {
	vault, err := b.chain.VaultAddress(ctx, asset)
	if err != nil {
		return VaultUnknown, pipeline.New(pipeline.ErrorChainRead, stageVaultQuery,
			fmt.Sprintf("query vault for asset %s", asset), err)
	}
	if vault != licensing.ZeroAddress {
		return VaultPresent, nil
	}

	start := time.Now()
	b.logger.Info("vault absent, minting trigger license token",
		"assetId", asset, "licenseTermsId", terms)
	if _, err := b.chain.MintLicenseToken(ctx, asset, terms, b.receiver); err != nil {
		return VaultAbsent, pipeline.New(pipeline.ErrorChainWrite, stageBootstrap,
			fmt.Sprintf("mint trigger license token for asset %s", asset), err)
	}

	vault, err = b.chain.VaultAddress(ctx, asset)
	if err != nil {
		return VaultUnknown, pipeline.New(pipeline.ErrorChainRead, stageBootstrap,
			fmt.Sprintf("re-query vault for asset %s", asset), err)
	}
	b.metrics.ObserveStage(stageBootstrap, time.Since(start))
	if vault == licensing.ZeroAddress {
		return VaultAbsent, pipeline.New(pipeline.ErrorVaultNotDeployed, stageBootstrap,
			fmt.Sprintf("vault still absent for asset %s after license mint", asset), nil)
	}
	b.audit.Publish(ctx, audit.Event{
		Type:    audit.EventVaultBootstrapped,
		AssetID: string(asset),
	})
	return VaultPresent, nil
}

// PayRoyalty ensures the vault exists and pays amount of token into it.
// A nil amount pays the configured default.
func (b *Bootstrapper) PayRoyalty(ctx context.Context, asset licensing.AssetID, terms licensing.TermsID, token licensing.Address, amount *big.Int) (licensing.Tx, error) {
	if _, err := b.Ensure(ctx, asset, terms); err != nil {
		return licensing.Tx{}, err
	}
	tx, err := b.chain.PayOnBehalf(ctx, asset, token, amount)
	if err != nil {
		return licensing.Tx{}, pipeline.New(pipeline.ErrorChainWrite, stagePay,
			fmt.Sprintf("pay royalty for asset %s", asset), err)
	}
	return tx, nil
}
