package revenue

import (
	"context"
	"fmt"
	"log/slog"
	"math/big"

	"golang.org/x/sync/errgroup"

	"flightledger/internal/asset"
	"flightledger/internal/fingerprint"
	"flightledger/internal/licensing"
	"flightledger/internal/platform/metrics"
	"flightledger/internal/registry"
	"flightledger/pkg/pipeline"
	"flightledger/pkg/platform/audit"
)

const stageAggregate = "revenue_aggregate"

// maxConcurrentLookups bounds the per-record fan-out against the chain.
const maxConcurrentLookups = 8

// Entry is one registered flight in a revenue summary. Untokenized records
// appear with a zero claimable amount; a record whose lookups failed is
// marked Degraded and also reads as zero.
type Entry struct {
	Initial    fingerprint.Digest `json:"initialFingerprint"`
	Telemetry  fingerprint.Digest `json:"telemetryFingerprint,omitempty"`
	AssetID    licensing.AssetID  `json:"assetId,omitempty"`
	TermsID    licensing.TermsID  `json:"licenseTermsId,omitempty"`
	VaultState string             `json:"vaultState"`
	Claimable  *big.Int           `json:"claimableRaw"`
	Degraded   bool               `json:"degraded,omitempty"`
}

// Summary is the aggregation over all of a registrant's records. The call
// succeeds even when entries degrade; Degraded counts them.
type Summary struct {
	Entries  []Entry  `json:"entries"`
	Total    *big.Int `json:"totalClaimableRaw"`
	Degraded int      `json:"degraded"`
}

// Service aggregates and claims revenue across a registrant's records.
type Service struct {
	registry registry.Client
	resolver asset.Resolver
	chain    licensing.Client
	token    licensing.Address
	claimer  licensing.Address
	logger   *slog.Logger
	metrics  *metrics.Metrics
	audit    *audit.Publisher
}

// NewService builds a Service. resolver is the batch fingerprint-to-asset
// lookup, normally the metadata store.
func NewService(reg registry.Client, resolver asset.Resolver, chain licensing.Client, token, claimer licensing.Address, logger *slog.Logger, m *metrics.Metrics) *Service {
	return &Service{
		registry: reg,
		resolver: resolver,
		chain:    chain,
		token:    token,
		claimer:  claimer,
		logger:   logger,
		metrics:  m,
	}
}

// WithAudit attaches an audit publisher. A nil publisher is a no-op.
func (s *Service) WithAudit(p *audit.Publisher) *Service {
	s.audit = p
	return s
}

// Aggregate builds a revenue summary for the registrant: one registry call,
// one batch metadata lookup, then a bounded fan-out of read-only chain
// queries. A failure on one record degrades that entry to zero and leaves its
// siblings untouched.
func (s *Service) Aggregate(ctx context.Context, registrant string) (Summary, error) {
	records, err := s.registry.OwnedRecords(ctx, registrant)
	if err != nil {
		return Summary{}, pipeline.New(pipeline.ErrorChainRead, stageAggregate,
			fmt.Sprintf("list records for %s", registrant), err)
	}
	if len(records) == 0 {
		return Summary{Entries: []Entry{}, Total: big.NewInt(0)}, nil
	}

	initials := make([]fingerprint.Digest, len(records))
	for i, rec := range records {
		initials[i] = rec.Fingerprint
	}
	resolved, err := s.resolver.ResolveMany(ctx, initials)
	if err != nil {
		return Summary{}, pipeline.New(pipeline.Category(err), stageAggregate,
			"resolve asset records", err)
	}

	entries := make([]Entry, len(records))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentLookups)
	for i, rec := range records {
		entries[i] = Entry{
			Initial:    rec.Fingerprint,
			Telemetry:  rec.Telemetry,
			VaultState: VaultUnknown.String(),
			Claimable:  big.NewInt(0),
		}
		meta, ok := resolved[rec.Fingerprint]
		if !ok || !meta.Tokenized() {
			entries[i].VaultState = VaultAbsent.String()
			continue
		}
		entries[i].AssetID = meta.AssetID
		entries[i].TermsID = meta.TermsID

		g.Go(func() error {
			s.fill(gctx, &entries[i])
			return nil
		})
	}
	g.Wait() //nolint:errcheck // goroutines degrade instead of failing

	summary := Summary{Entries: entries, Total: big.NewInt(0)}
	for _, e := range entries {
		summary.Total.Add(summary.Total, e.Claimable)
		if e.Degraded {
			summary.Degraded++
		}
	}
	return summary, nil
}

// fill resolves one entry's vault state and claimable amount in place. Any
// failure degrades the entry to zero.
func (s *Service) fill(ctx context.Context, e *Entry) {
	vault, err := s.chain.VaultAddress(ctx, e.AssetID)
	if err != nil {
		s.degrade(e, "vault lookup failed", err)
		return
	}
	if vault == licensing.ZeroAddress {
		// Not yet bootstrapped: genuinely zero, not degraded.
		e.VaultState = VaultAbsent.String()
		return
	}
	e.VaultState = VaultPresent.String()

	claimable, err := s.chain.ClaimableAmount(ctx, e.AssetID, s.claimer, s.token)
	if err != nil {
		s.degrade(e, "claimable lookup failed", err)
		return
	}
	e.Claimable = claimable
}

func (s *Service) degrade(e *Entry, msg string, err error) {
	e.Degraded = true
	e.Claimable = big.NewInt(0)
	s.logger.Warn("aggregation entry degraded to zero",
		"reason", msg, "error", err, "assetId", e.AssetID, "fingerprint", e.Initial)
	if s.metrics != nil {
		s.metrics.DegradedEntries.Inc()
	}
}
