package main

import (
	"context"
	"errors"
	"log/slog"
	"math/big"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"flightledger/internal/asset"
	"flightledger/internal/compliance"
	"flightledger/internal/flight"
	"flightledger/internal/licensing"
	"flightledger/internal/platform/config"
	"flightledger/internal/platform/httpserver"
	"flightledger/internal/platform/logger"
	"flightledger/internal/platform/metrics"
	platformredis "flightledger/internal/platform/redis"
	"flightledger/internal/registry"
	"flightledger/internal/revenue"
	"flightledger/internal/storage"
	"flightledger/internal/telemetry"
	transporthttp "flightledger/internal/transport/http"
	"flightledger/pkg/platform/audit"
)

func main() {
	cfg := config.FromEnv()
	log := logger.New()
	m := metrics.New()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Content-addressed storage, best effort everywhere it is used.
	var store storage.Store
	var gatewayURI func(string) string
	if cfg.StorageAPIURL != "" {
		ipfs := storage.NewIPFSClient(cfg.StorageAPIURL, cfg.StorageGateway, log)
		store = ipfs
		gatewayURI = ipfs.GatewayURI
	} else {
		log.Warn("no storage API configured, payload uploads disabled")
	}

	// Registry and licensing protocol. The in-process simulators stand in
	// until chain clients are wired; the interfaces are the seam.
	reg := registry.NewSimulator()
	chain := licensing.NewSimulator()

	var validator compliance.Client
	var validatorProcess *compliance.ProcessClient
	if len(cfg.ValidatorCommand) > 0 {
		validatorProcess = compliance.NewProcessClient(cfg.ValidatorCommand, cfg.ValidatorTimeout, log, m)
		validator = validatorProcess
	} else {
		log.Info("no validator command configured, using built-in deterministic checks")
		validator = compliance.NewStubValidator(store, log)
	}

	metaStore, cleanup, err := buildMetadataStore(ctx, cfg, log)
	if err != nil {
		log.Error("metadata store init failed", "error", err)
		os.Exit(1)
	}
	defer cleanup()

	// Revenue lookups prefer the local store; when the companion process is
	// available it answers for fingerprints the store has not seen.
	resolver := asset.Resolver(asset.StoreResolver{Store: metaStore})
	if validatorProcess != nil {
		resolver = asset.FallbackResolver{resolver, compliance.NewProcessResolver(validatorProcess)}
		log.Info("asset resolver: store with companion process fallback")
	}

	publisher, err := audit.NewPublisher(cfg.KafkaBrokers, cfg.AuditTopic, log)
	if err != nil {
		log.Error("audit publisher init failed", "error", err)
		os.Exit(1)
	}
	defer publisher.Close()

	payment, ok := new(big.Int).SetString(cfg.RoyaltyPaymentWei, 10)
	if !ok {
		log.Error("invalid royalty payment amount", "value", cfg.RoyaltyPaymentWei)
		os.Exit(1)
	}
	token := licensing.Address(cfg.WIPTokenAddress)
	registrant := licensing.Address(cfg.RegistrantAddress)

	flights := flight.NewService(validator, reg,
		telemetry.NewProcessor(store, log, m),
		cfg.RegistrantAddress, log, m).WithAudit(publisher)
	assets := asset.NewService(chain, metaStore, asset.Config{
		Collection:    licensing.Address(cfg.SPGCollection),
		Currency:      token,
		RoyaltyPolicy: licensing.Address(cfg.RoyaltyPolicy),
		GatewayURI:    gatewayURI,
	}, log, m).WithAudit(publisher)
	bootstrapper := revenue.NewBootstrapper(chain, registrant, log, m).WithAudit(publisher)
	rev := revenue.NewService(reg, resolver, chain,
		token, registrant, log, m).WithAudit(publisher)

	router := transporthttp.NewRouter(log, cfg.RequestTimeout,
		flight.NewHandler(flights, log),
		asset.NewHandler(assets, log),
		revenue.NewHandler(rev, bootstrapper, token, payment, log),
	)

	srv := httpserver.New(cfg.Addr, router)
	go func() {
		log.Info("server listening", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown failed", "error", err)
	}
}

// buildMetadataStore wires the asset metadata store: Postgres when a DSN is
// configured, wrapped in the Redis cache when a URL is configured, memory
// otherwise.
func buildMetadataStore(ctx context.Context, cfg config.Server, log *slog.Logger) (asset.Store, func(), error) {
	cleanup := func() {}

	var store asset.Store
	if cfg.PostgresDSN != "" {
		pg, err := asset.NewPostgresStore(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, cleanup, err
		}
		if err := pg.EnsureSchema(ctx); err != nil {
			pg.Close()
			return nil, cleanup, err
		}
		store = pg
		cleanup = pg.Close
		log.Info("asset metadata store: postgres")
	} else {
		store = asset.NewMemoryStore()
		log.Warn("asset metadata store: memory (set POSTGRES_DSN for durability)")
	}

	redisClient, err := platformredis.New(cfg.RedisURL)
	if err != nil {
		return nil, cleanup, err
	}
	if redisClient != nil {
		inner := cleanup
		cleanup = func() {
			redisClient.Close() //nolint:errcheck
			inner()
		}
		log.Info("asset metadata cache: redis")
	}
	return asset.NewRedisCache(store, redisClient, asset.DefaultCacheTTL, log), cleanup, nil
}
