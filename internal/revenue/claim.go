package revenue

import (
	"context"
	"fmt"
	"math/big"
	"strconv"
	"strings"

	"flightledger/internal/licensing"
	"flightledger/pkg/pipeline"
	"flightledger/pkg/platform/audit"
)

const stageClaim = "revenue_claim"

// tokenDecimals is the precision of the payment token.
const tokenDecimals = 18

// ClaimOutcome reports a settled claim. Claimed is in base units; Display is
// the same value at the token's native precision.
type ClaimOutcome struct {
	AssetID licensing.AssetID `json:"assetId"`
	Claimed *big.Int          `json:"claimedRaw"`
	Display string            `json:"claimed"`
	TxHash  string            `json:"txHash,omitempty"`
}

// Claim settles all claimable revenue for the asset. An empty claimed-token
// list from the protocol means nothing had accrued and is a zero outcome, not
// an error.
func (s *Service) Claim(ctx context.Context, assetID licensing.AssetID) (ClaimOutcome, error) {
	vault, err := s.chain.VaultAddress(ctx, assetID)
	if err != nil {
		return ClaimOutcome{}, pipeline.New(pipeline.ErrorChainRead, stageClaim,
			fmt.Sprintf("query vault for asset %s", assetID), err)
	}
	if vault == licensing.ZeroAddress {
		return ClaimOutcome{}, pipeline.New(pipeline.ErrorVaultNotDeployed, stageClaim,
			fmt.Sprintf("asset %s has no revenue vault", assetID), nil)
	}

	result, err := s.chain.Claim(ctx, assetID, s.claimer, []licensing.Address{s.token})
	if err != nil {
		return ClaimOutcome{}, pipeline.New(pipeline.ErrorChainWrite, stageClaim,
			fmt.Sprintf("claim revenue for asset %s", assetID), err)
	}

	total := big.NewInt(0)
	for _, claimed := range result.ClaimedTokens {
		if claimed.Token == s.token && claimed.Amount != nil {
			total.Add(total, claimed.Amount)
		}
	}
	if s.metrics != nil {
		s.metrics.ClaimsExecuted.Inc()
		if tokens, err := strconv.ParseFloat(formatTokenAmount(total), 64); err == nil {
			s.metrics.ClaimAmounts.Observe(tokens)
		}
	}
	s.audit.Publish(ctx, audit.Event{
		Type:    audit.EventRevenueClaimed,
		AssetID: string(assetID),
		TxHash:  result.Tx.Hash,
		Amount:  total.String(),
	})
	return ClaimOutcome{
		AssetID: assetID,
		Claimed: total,
		Display: formatTokenAmount(total),
		TxHash:  result.Tx.Hash,
	}, nil
}

// formatTokenAmount renders base units as a decimal string, trimming
// trailing zeros: 100000000000000000 -> "0.1".
func formatTokenAmount(amount *big.Int) string {
	scale := new(big.Int).Exp(big.NewInt(10), big.NewInt(tokenDecimals), nil)
	whole, frac := new(big.Int).QuoRem(amount, scale, new(big.Int))
	if frac.Sign() == 0 {
		return whole.String()
	}
	fracStr := frac.String()
	if pad := tokenDecimals - len(fracStr); pad > 0 {
		fracStr = strings.Repeat("0", pad) + fracStr
	}
	return whole.String() + "." + strings.TrimRight(fracStr, "0")
}
