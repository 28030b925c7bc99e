// Command coreserver is the marketplace core runtime daemon: it wires the
// node aggregator, heartbeat monitor, HPC scheduler, job lifecycle engine,
// usage reporter, durable outbox, and chain event client into one process
// exposing four HTTP listeners (spec §4.7; exit codes per spec §5).
package main

import (
	"context"
	"crypto/ed25519"
	"encoding/base64"
	"flag"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/virtengine/virtengine-sub011/internal/aggregator"
	"github.com/virtengine/virtengine-sub011/internal/alertlog"
	"github.com/virtengine/virtengine-sub011/internal/auditlog"
	"github.com/virtengine/virtengine-sub011/internal/chainbridge"
	"github.com/virtengine/virtengine-sub011/internal/chainclient"
	"github.com/virtengine/virtengine-sub011/internal/config"
	"github.com/virtengine/virtengine-sub011/internal/core"
	"github.com/virtengine/virtengine-sub011/internal/domain"
	"github.com/virtengine/virtengine-sub011/internal/httpapi"
	"github.com/virtengine/virtengine-sub011/internal/idemcache"
	"github.com/virtengine/virtengine-sub011/internal/lifecycle"
	"github.com/virtengine/virtengine-sub011/internal/logging"
	"github.com/virtengine/virtengine-sub011/internal/marketclient"
	"github.com/virtengine/virtengine-sub011/internal/metrics"
	"github.com/virtengine/virtengine-sub011/internal/middleware"
	"github.com/virtengine/virtengine-sub011/internal/monitor"
	"github.com/virtengine/virtengine-sub011/internal/outboxstore"
	"github.com/virtengine/virtengine-sub011/internal/resilience"
	"github.com/virtengine/virtengine-sub011/internal/scheduler"
	"github.com/virtengine/virtengine-sub011/internal/settlement"
	"github.com/virtengine/virtengine-sub011/internal/signing"
	"github.com/virtengine/virtengine-sub011/internal/usage"
)

// Exit codes (spec §5): 0 clean shutdown, 1 configuration error,
// 2 irrecoverable startup failure, 3 fatal signal without drain time.
const (
	exitOK            = 0
	exitConfigError   = 1
	exitStartupFailed = 2
	exitFatalSignal   = 3
)

func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.String("config", "", "optional YAML config file overriding environment defaults")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "coreserver: load config:", err)
		return exitConfigError
	}
	if trimmed := strings.TrimSpace(*configPath); trimmed != "" {
		if err := config.LoadConfigFile(trimmed, cfg); err != nil {
			fmt.Fprintln(os.Stderr, "coreserver: load config file:", err)
			return exitConfigError
		}
	}

	logger := logging.New("coreserver", cfg.LogLevel, cfg.LogFormat)

	signingKey, err := resolveCoreSigningKey(cfg.CoreSigningKey)
	if err != nil {
		logger.WithError(err).Error("invalid CORE_SIGNING_KEY")
		return exitConfigError
	}

	zapLogger, err := newZapLogger(cfg.LogFormat)
	if err != nil {
		logger.WithError(err).Error("build aggregator logger")
		return exitConfigError
	}
	defer zapLogger.Sync() //nolint:errcheck

	runtime := core.NewRuntime(logger)

	var outboxStore *outboxstore.Store
	if cfg.PostgresDSN != "" {
		if err := outboxstore.Migrate(cfg.PostgresDSN); err != nil {
			logger.WithError(err).Error("apply outbox migrations")
			return exitStartupFailed
		}
		store, err := outboxstore.Open(context.Background(), cfg.PostgresDSN)
		if err != nil {
			logger.WithError(err).Error("connect to outbox store")
			return exitStartupFailed
		}
		defer store.Close() //nolint:errcheck
		outboxStore = store
	} else {
		logger.Warn("POSTGRES_DSN unset: outbox durability is disabled for this process")
	}

	idem := idemcache.New(cfg.RedisAddr, 2*time.Hour)
	defer idem.Close() //nolint:errcheck

	monitorAlerts := alertlog.New(logger)
	mon := monitor.New(nil, monitor.DefaultThresholds(), monitorAlerts, logger)

	agg := aggregator.New(nil, signing.DefaultVerifier{}, mon, zapLogger)
	mon.SetRoster(agg)

	sched := scheduler.New(scheduler.DefaultWeights())

	audit := auditlog.New(logger)

	var settlementTrigger *settlement.Trigger
	var engine *lifecycle.Engine
	var market *marketclient.Client

	if outboxStore != nil {
		coreKeyPair, err := signing.NewKeyPair(signingKey)
		if err != nil {
			logger.WithError(err).Error("build core key pair")
			return exitStartupFailed
		}
		market = marketclient.New(cfg.MarketplaceBaseURL, coreKeyPair, resilience.DefaultConfig(), 10*time.Second)

		reporter := usage.New(outboxStore, market, usage.DefaultMinReportingPeriod, cfg.IdempotencyBucket)
		settlementTrigger = settlement.New(reporter, outboxStore, cfg.IdempotencyBucket)
	}

	engine = lifecycle.New(sched, agg, settlementAdapter{settlementTrigger}, audit, logger)

	var chainClient *chainclient.Client
	if cfg.ChainWSEndpoint != "" {
		eventTypes := []string{
			domain.EventOrderCreated, domain.EventBidCreated,
			domain.EventAllocationStatusChanged, domain.EventSettlementExecuted,
			domain.EventHPCJobStatusChanged,
		}
		chainClient = chainclient.New(chainclient.DefaultConfig(cfg.ChainWSEndpoint, cfg.ChainID, eventTypes))
		chainClient.Subscribe(chainbridge.New(engine, logger))
	}

	m := metrics.New()

	runtime.Attach(core.NewBackgroundService("monitor",
		func(ctx context.Context) { mon.Start(ctx) },
		func() { mon.Stop() },
	))
	runtime.Attach(core.NewBackgroundService("lifecycle-retry-queue",
		func(ctx context.Context) { engine.RunRetryQueue(ctx) },
		func() { engine.Stop() },
	))
	if chainClient != nil {
		runtime.Attach(chainClient)
	}

	if outboxStore != nil && market != nil {
		for _, kind := range []domain.OutboxKind{domain.OutboxUsage, domain.OutboxSettlement, domain.OutboxLifecycleCallback} {
			fl := outboxstore.NewFlusher(outboxStore, market, m, outboxstore.DefaultFlusherConfig(kind), zapLogger)
			svcName := "outbox-flusher-" + string(kind)
			runtime.Attach(core.NewBackgroundService(svcName,
				func(ctx context.Context) { fl.Run(ctx) },
				func() { fl.Stop() },
			))
		}
	}

	jwtVerifier := httpapi.NewJWTVerifier(cfg.JWTSigningKey)
	nodeAPI := httpapi.NewNodeAPI(agg)
	jobAPI := httpapi.NewJobAPI(engine, jwtVerifier)
	providerKeys := &aggregatorProviderKeys{agg: agg}
	callbackAPI := httpapi.NewCallbackAPI(providerKeys, engine, nil)

	timeouts := config.DefaultTimeouts()

	nodeRouter := gin.New()
	nodeRouter.Use(gin.Recovery())
	nodeAPI.Register(nodeRouter)
	nodeServer := &http.Server{Addr: cfg.NodeAgentAddr, Handler: nodeRouter, ReadTimeout: timeouts.ReadTimeout, WriteTimeout: timeouts.WriteTimeout, IdleTimeout: timeouts.IdleTimeout}

	customerRouter := gin.New()
	customerRouter.Use(gin.Recovery())
	jobAPI.Register(customerRouter)
	customerServer := &http.Server{Addr: cfg.CustomerAddr, Handler: customerRouter, ReadTimeout: timeouts.ReadTimeout, WriteTimeout: timeouts.WriteTimeout, IdleTimeout: timeouts.IdleTimeout}

	opsServer := &http.Server{Addr: cfg.OpsAddr, Handler: httpapi.NewOpsRouter(runtime), ReadTimeout: timeouts.ReadTimeout, WriteTimeout: timeouts.WriteTimeout, IdleTimeout: timeouts.IdleTimeout}

	marketServer := &http.Server{Addr: cfg.MarketAddr, Handler: callbackAPI.Router(), ReadTimeout: timeouts.ReadTimeout, WriteTimeout: timeouts.WriteTimeout, IdleTimeout: timeouts.IdleTimeout}

	runtime.Attach(core.NewHTTPService("node-agent-http", nodeServer, logger))
	runtime.Attach(core.NewHTTPService("customer-http", customerServer, logger))
	runtime.Attach(core.NewHTTPService("ops-http", opsServer, logger))
	runtime.Attach(core.NewHTTPService("marketplace-callback-http", marketServer, logger))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := runtime.Start(ctx); err != nil {
		logger.WithError(err).Error("runtime startup failed")
		return exitStartupFailed
	}
	logger.WithFields(map[string]interface{}{
		"nodeAgentAddr": cfg.NodeAgentAddr, "customerAddr": cfg.CustomerAddr,
		"opsAddr": cfg.OpsAddr, "marketAddr": cfg.MarketAddr,
	}).Info("coreserver started")

	shutdown := middleware.NewGracefulShutdown(logger, cfg.ShutdownTimeout, nodeServer, customerServer, opsServer, marketServer)
	shutdown.OnShutdown(func() {
		cancel()
		runtime.Stop(context.Background())
	})
	shutdown.ListenForSignals()
	shutdown.Wait()

	logger.Info("coreserver stopped cleanly")
	return exitOK
}

// settlementAdapter lets engine accept a possibly-nil *settlement.Trigger
// (no Postgres DSN configured means no durable settlement path) without the
// lifecycle package needing to special-case a nil interface value itself.
type settlementAdapter struct {
	trigger *settlement.Trigger
}

func (a settlementAdapter) OnJobTerminal(ctx context.Context, job domain.Job) error {
	if a.trigger == nil {
		return nil
	}
	return a.trigger.OnJobTerminal(ctx, job)
}

// aggregatorProviderKeys resolves a provider's signing key by scanning the
// roster for a node registered under that provider address. Providers sign
// callbacks with the same key their nodes registered with.
type aggregatorProviderKeys struct {
	agg *aggregator.Aggregator
}

func (a *aggregatorProviderKeys) ResolveProviderKey(providerAddress string) (ed25519.PublicKey, error) {
	for _, nodeID := range a.agg.AllNodeIDs() {
		node, err := a.agg.Node(nodeID)
		if err != nil {
			continue
		}
		if node.ProviderAddress == providerAddress {
			return node.PublicKey, nil
		}
	}
	return nil, fmt.Errorf("coreserver: no registered node for provider %q", providerAddress)
}

func resolveCoreSigningKey(encoded string) (ed25519.PrivateKey, error) {
	if encoded == "" {
		_, priv, err := ed25519.GenerateKey(nil)
		return priv, err
	}
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("CORE_SIGNING_KEY must be base64: %w", err)
	}
	if len(raw) != ed25519.PrivateKeySize {
		return nil, fmt.Errorf("CORE_SIGNING_KEY must decode to %d bytes, got %d", ed25519.PrivateKeySize, len(raw))
	}
	return ed25519.PrivateKey(raw), nil
}

func newZapLogger(format string) (*zap.Logger, error) {
	if format == "json" {
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}
