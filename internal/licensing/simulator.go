package licensing

import (
	"context"
	"fmt"
	"math/big"
	"sync"
	"time"

	"flightledger/internal/fingerprint"
	"flightledger/pkg/platform/sentinel"
)

// Simulator is an in-memory licensing protocol used by tests and dev mode.
// It reproduces the protocol behaviors the pipeline depends on: terms are
// idempotent by content, vaults deploy lazily on the first license-token
// mint, and claims zero the claimable balance.
type Simulator struct {
	mu sync.Mutex

	Latency time.Duration
	// FailVaultDeployment keeps vaults absent after license-token mints, for
	// exercising bootstrap failure handling.
	FailVaultDeployment bool

	nextTermsID TermsID
	nextTokenID uint64
	nextAssetID uint64
	termsByHash map[fingerprint.Digest]TermsID
	terms       map[TermsID]LicenseTerms
	assets      map[AssetID]simAsset
}

type simAsset struct {
	termsID  TermsID
	metadata Metadata
	vault    Address
	// balances accrued in the vault, by token.
	balances map[Address]*big.Int
}

// NewSimulator returns an empty protocol.
func NewSimulator() *Simulator {
	return &Simulator{
		nextTermsID: 7, // protocol IDs are opaque; starting above zero keeps tests honest
		nextTokenID: 42,
		termsByHash: make(map[fingerprint.Digest]TermsID),
		terms:       make(map[TermsID]LicenseTerms),
		assets:      make(map[AssetID]simAsset),
	}
}

func (s *Simulator) sleep() {
	if s.Latency > 0 {
		time.Sleep(s.Latency)
	}
}

// RegisterTerms assigns a fresh ID for new content and returns the existing
// ID for byte-identical terms.
func (s *Simulator) RegisterTerms(_ context.Context, terms LicenseTerms) (TermsID, error) {
	s.sleep()
	digest, err := fingerprint.Hash(terms)
	if err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if id, ok := s.termsByHash[digest]; ok {
		return id, nil
	}
	id := s.nextTermsID
	s.nextTermsID++
	s.termsByHash[digest] = id
	s.terms[id] = terms
	return id, nil
}

// MintAndRegister mints a new asset bound to the given terms.
func (s *Simulator) MintAndRegister(_ context.Context, req MintRequest) (MintResult, error) {
	s.sleep()
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.terms[req.TermsID]; !ok {
		return MintResult{}, fmt.Errorf("mint: %w: terms %d", sentinel.ErrNotFound, req.TermsID)
	}

	s.nextAssetID++
	asset := AssetID(fmt.Sprintf("0x%040x", 0xcc00+s.nextAssetID))
	tokenID := s.nextTokenID
	s.nextTokenID++

	s.assets[asset] = simAsset{
		termsID:  req.TermsID,
		metadata: req.Metadata,
		vault:    ZeroAddress,
		balances: make(map[Address]*big.Int),
	}
	return MintResult{
		AssetID: asset,
		TokenID: tokenID,
		Tx:      Tx{Hash: txHash("mint", string(asset))},
	}, nil
}

// VaultAddress reports ZeroAddress until a vault has been deployed.
func (s *Simulator) VaultAddress(_ context.Context, asset AssetID) (Address, error) {
	s.sleep()
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.assets[asset]
	if !ok {
		return ZeroAddress, fmt.Errorf("vault address: %w: asset %s", sentinel.ErrNotFound, asset)
	}
	return a.vault, nil
}

// MintLicenseToken mints one license token; as a side effect the protocol
// deploys the asset's revenue vault if it does not exist yet.
func (s *Simulator) MintLicenseToken(_ context.Context, asset AssetID, terms TermsID, _ Address) (Tx, error) {
	s.sleep()
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.assets[asset]
	if !ok {
		return Tx{}, fmt.Errorf("mint license token: %w: asset %s", sentinel.ErrNotFound, asset)
	}
	if a.termsID != terms {
		return Tx{}, fmt.Errorf("mint license token: %w: terms %d not attached to asset", sentinel.ErrInvalidState, terms)
	}
	if a.vault == ZeroAddress && !s.FailVaultDeployment {
		a.vault = Address(fmt.Sprintf("0x%040x", 0xa117+s.nextAssetID))
		s.assets[asset] = a
	}
	return Tx{Hash: txHash("license", string(asset))}, nil
}

// ClaimableAmount reports the accrued balance. Querying an asset without a
// vault fails the way the real protocol does.
func (s *Simulator) ClaimableAmount(_ context.Context, asset AssetID, _ Address, token Address) (*big.Int, error) {
	s.sleep()
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.assets[asset]
	if !ok {
		return nil, fmt.Errorf("claimable: %w: asset %s", sentinel.ErrNotFound, asset)
	}
	if a.vault == ZeroAddress {
		return nil, fmt.Errorf("claimable: %w: no vault for asset %s", sentinel.ErrInvalidState, asset)
	}
	if bal, ok := a.balances[token]; ok {
		return new(big.Int).Set(bal), nil
	}
	return big.NewInt(0), nil
}

// Claim moves all accrued balances to the claimer and zeroes them.
func (s *Simulator) Claim(_ context.Context, asset AssetID, _ Address, tokens []Address) (ClaimResult, error) {
	s.sleep()
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.assets[asset]
	if !ok {
		return ClaimResult{}, fmt.Errorf("claim: %w: asset %s", sentinel.ErrNotFound, asset)
	}
	if a.vault == ZeroAddress {
		return ClaimResult{}, fmt.Errorf("claim: %w: no vault for asset %s", sentinel.ErrInvalidState, asset)
	}

	var claimed []ClaimedToken
	for _, token := range tokens {
		bal, ok := a.balances[token]
		if !ok || bal.Sign() == 0 {
			continue
		}
		claimed = append(claimed, ClaimedToken{Token: token, Amount: new(big.Int).Set(bal)})
		a.balances[token] = big.NewInt(0)
	}
	// claimed stays nil when nothing accrued; callers must treat that as
	// zero, not as an error.
	return ClaimResult{
		ClaimedTokens: claimed,
		Tx:            Tx{Hash: txHash("claim", string(asset))},
	}, nil
}

// PayOnBehalf accrues revenue into the asset's vault.
func (s *Simulator) PayOnBehalf(_ context.Context, asset AssetID, token Address, amount *big.Int) (Tx, error) {
	s.sleep()
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.assets[asset]
	if !ok {
		return Tx{}, fmt.Errorf("pay: %w: asset %s", sentinel.ErrNotFound, asset)
	}
	if a.vault == ZeroAddress {
		return Tx{}, fmt.Errorf("pay: %w: no vault for asset %s", sentinel.ErrInvalidState, asset)
	}
	bal, ok := a.balances[token]
	if !ok {
		bal = big.NewInt(0)
	}
	a.balances[token] = new(big.Int).Add(bal, amount)
	return Tx{Hash: txHash("pay", string(asset))}, nil
}

// TermsOf exposes the terms bound to an asset, for test assertions.
func (s *Simulator) TermsOf(asset AssetID) (TermsID, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.assets[asset]
	return a.termsID, ok
}

// MetadataOf exposes the metadata attached at mint time, for test assertions.
func (s *Simulator) MetadataOf(asset AssetID) (Metadata, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.assets[asset]
	return a.metadata, ok
}

func txHash(kind, key string) string {
	return fingerprint.HashBytes([]byte(kind + ":" + key)).String()
}
