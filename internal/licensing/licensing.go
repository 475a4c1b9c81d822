// Package licensing defines the pipeline's view of the external licensing
// protocol: license-terms registration, asset minting, per-asset revenue
// vaults, and claims. The protocol is a shared, externally-owned system of
// record; this package holds interfaces and an in-process simulator, never a
// chain client.
package licensing

import (
	"context"
	"math/big"
)

// Address is a wallet-style hex address on the underlying ledger.
type Address string

// ZeroAddress is the protocol's sentinel for "absent" (no vault deployed).
const ZeroAddress Address = "0x0000000000000000000000000000000000000000"

// TermsID identifies registered license terms. The protocol assigns it and
// returns the same value for byte-identical terms.
type TermsID uint64

// AssetID identifies a minted, licensed asset.
type AssetID = Address

// Tx is a settlement receipt for a protocol write.
type Tx struct {
	Hash string
}

// Metadata attached to a minted asset, referencing the provenance record.
type Metadata struct {
	URI     string
	Hash    string // telemetry fingerprint, canonical encoding
	NFTURI  string
	NFTHash string
}

// MintRequest mints an asset bound to already-registered terms.
type MintRequest struct {
	Collection Address
	TermsID    TermsID
	Metadata   Metadata
}

// MintResult is the outcome of a successful mint-and-register.
type MintResult struct {
	AssetID AssetID
	TokenID uint64
	Tx      Tx
}

// ClaimedToken is one token's share of a claim settlement.
type ClaimedToken struct {
	Token  Address
	Amount *big.Int
}

// ClaimResult is the outcome of a revenue claim. ClaimedTokens may be empty:
// a claim against an empty vault settles with nothing moved.
type ClaimResult struct {
	ClaimedTokens []ClaimedToken
	Tx            Tx
}

// Client is the licensing protocol surface the pipeline consumes.
type Client interface {
	// RegisterTerms registers license terms, idempotent by content:
	// byte-identical terms return the previously assigned ID.
	RegisterTerms(ctx context.Context, terms LicenseTerms) (TermsID, error)

	// MintAndRegister mints the asset, binds it to the terms, and attaches
	// the metadata.
	MintAndRegister(ctx context.Context, req MintRequest) (MintResult, error)

	// VaultAddress resolves the asset's revenue vault, ZeroAddress when none
	// has been deployed.
	VaultAddress(ctx context.Context, asset AssetID) (Address, error)

	// MintLicenseToken mints one minimal license token against the asset; its
	// side effect of forcing lazy vault deployment is the reason it exists in
	// this pipeline.
	MintLicenseToken(ctx context.Context, asset AssetID, terms TermsID, receiver Address) (Tx, error)

	// ClaimableAmount reports the accrued, unclaimed balance for the claimer
	// in the given token.
	ClaimableAmount(ctx context.Context, asset AssetID, claimer Address, token Address) (*big.Int, error)

	// Claim settles all accrued revenue for the claimer across the listed
	// tokens and zeroes the claimable balance.
	Claim(ctx context.Context, asset AssetID, claimer Address, tokens []Address) (ClaimResult, error)

	// PayOnBehalf pays revenue into the asset's vault. Callers must confirm
	// the vault exists first: the protocol cannot distinguish "no vault" from
	// a zero-value transfer.
	PayOnBehalf(ctx context.Context, asset AssetID, token Address, amount *big.Int) (Tx, error)
}
