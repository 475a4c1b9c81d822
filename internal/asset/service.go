package asset

import (
	"context"
	"log/slog"
	"time"

	"flightledger/internal/fingerprint"
	"flightledger/internal/licensing"
	"flightledger/internal/platform/metrics"
	"flightledger/pkg/pipeline"
	"flightledger/pkg/platform/audit"
)

const (
	stageTerms = "asset_register_terms"
	stageMint  = "asset_mint"
)

// TokenizeRequest tokenizes an anchored flight record.
type TokenizeRequest struct {
	Initial    fingerprint.Digest
	Telemetry  fingerprint.Digest
	StorageRef string
}

// Tokenization is the outcome of a tokenize call. On a mint failure TermsID
// is still set so a retry reuses the registered terms.
type Tokenization struct {
	AssetID licensing.AssetID
	TermsID licensing.TermsID
	TokenID uint64
	Tx      licensing.Tx
}

// Config carries the protocol constants the service mints with.
type Config struct {
	Collection    licensing.Address
	Currency      licensing.Address
	RoyaltyPolicy licensing.Address
	// GatewayURI renders a storage ref as a fetchable URI for asset metadata.
	// Nil means refs are used as-is.
	GatewayURI func(ref string) string
}

// Service turns anchored flight records into licensed assets.
type Service struct {
	chain   licensing.Client
	store   Store
	cfg     Config
	logger  *slog.Logger
	metrics *metrics.Metrics
	audit   *audit.Publisher
	now     func() time.Time
}

// NewService builds a Service. store may be nil; the chain stays the source
// of truth either way.
func NewService(chain licensing.Client, store Store, cfg Config, logger *slog.Logger, m *metrics.Metrics) *Service {
	return &Service{
		chain:   chain,
		store:   store,
		cfg:     cfg,
		logger:  logger,
		metrics: m,
		now:     time.Now,
	}
}

// WithAudit attaches an audit publisher. A nil publisher is a no-op.
func (s *Service) WithAudit(p *audit.Publisher) *Service {
	s.audit = p
	return s
}

// Tokenize registers the default commercial-remix terms and mints the asset.
// Terms registration is idempotent by content, so every call may safely start
// from step one.
func (s *Service) Tokenize(ctx context.Context, req TokenizeRequest) (Tokenization, error) {
	if !req.Initial.Valid() {
		return Tokenization{}, pipeline.New(pipeline.ErrorInputValidation, stageTerms,
			"initial fingerprint is required", nil)
	}

	start := s.now()
	terms := licensing.DefaultCommercialRemix(s.cfg.Currency, s.cfg.RoyaltyPolicy)
	termsID, err := s.chain.RegisterTerms(ctx, terms)
	if err != nil {
		return Tokenization{}, pipeline.New(pipeline.ErrorChainWrite, stageTerms,
			"register license terms", err)
	}
	s.metrics.ObserveStage(stageTerms, s.now().Sub(start))

	uri := req.StorageRef
	if s.cfg.GatewayURI != nil {
		uri = s.cfg.GatewayURI(req.StorageRef)
	}
	start = s.now()
	minted, err := s.chain.MintAndRegister(ctx, licensing.MintRequest{
		Collection: s.cfg.Collection,
		TermsID:    termsID,
		Metadata: licensing.Metadata{
			URI:     uri,
			Hash:    req.Telemetry.String(),
			NFTURI:  uri,
			NFTHash: req.Initial.String(),
		},
	})
	if err != nil {
		// The terms survived; hand the ID back so a retry skips step one.
		return Tokenization{TermsID: termsID}, pipeline.New(pipeline.ErrorChainWrite, stageMint,
			"mint and register asset", err)
	}
	s.metrics.ObserveStage(stageMint, s.now().Sub(start))
	if s.metrics != nil {
		s.metrics.AssetsTokenized.Inc()
	}

	result := Tokenization{
		AssetID: minted.AssetID,
		TermsID: termsID,
		TokenID: minted.TokenID,
		Tx:      minted.Tx,
	}
	s.saveMetadata(ctx, req, result)
	s.audit.Publish(ctx, audit.Event{
		Type:        audit.EventAssetTokenized,
		Fingerprint: req.Initial.String(),
		AssetID:     string(result.AssetID),
		TxHash:      result.Tx.Hash,
	})
	return result, nil
}

// Get returns the stored tokenization metadata for a flight.
func (s *Service) Get(ctx context.Context, initial fingerprint.Digest) (Metadata, error) {
	if s.store == nil {
		return Metadata{}, pipeline.New(pipeline.ErrorInternal, "asset_lookup",
			"no metadata store configured", nil)
	}
	return s.store.Find(ctx, initial)
}

// saveMetadata is best effort: the chain is authoritative, so a store failure
// only loses the batch-lookup shortcut.
func (s *Service) saveMetadata(ctx context.Context, req TokenizeRequest, result Tokenization) {
	if s.store == nil {
		return
	}
	err := s.store.Save(ctx, Metadata{
		Initial:    req.Initial,
		Telemetry:  req.Telemetry,
		StorageRef: req.StorageRef,
		AssetID:    result.AssetID,
		TermsID:    result.TermsID,
		TokenID:    result.TokenID,
		CreatedAt:  s.now().UTC(),
	})
	if err != nil {
		s.logger.Warn("asset metadata save failed, chain remains source of truth",
			"error", err, "assetId", result.AssetID, "fingerprint", req.Initial)
	}
}
