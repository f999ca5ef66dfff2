package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	app_service "crypto-taint-tracer/internal/application/service"
	"crypto-taint-tracer/internal/domain/entity"
	"crypto-taint-tracer/internal/domain/repository"
	domain_service "crypto-taint-tracer/internal/domain/service"
	"crypto-taint-tracer/internal/infrastructure/cache"
	"crypto-taint-tracer/internal/infrastructure/config"
	"crypto-taint-tracer/internal/infrastructure/database"
	"crypto-taint-tracer/internal/infrastructure/etherscan"
	"crypto-taint-tracer/internal/infrastructure/logger"
	"crypto-taint-tracer/internal/infrastructure/messaging"
	"crypto-taint-tracer/internal/infrastructure/registry"
	"crypto-taint-tracer/internal/infrastructure/reporting"

	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Create logger
	log, err := logger.NewLogger(cfg.App.LogLevel)
	if err != nil {
		fmt.Printf("Failed to create logger: %v\n", err)
		os.Exit(1)
	}

	if len(os.Args) < 2 {
		fmt.Println("Usage: tracer <target-address>")
		os.Exit(1)
	}
	target := os.Args[1]

	traversalCfg, err := buildTraversalConfig(cfg)
	if err != nil {
		log.Error("Invalid traversal configuration", zap.Error(err))
		os.Exit(1)
	}

	var investigation *app_service.InvestigationApplicationService

	// Create FX application
	app := fx.New(
		// Provide dependencies
		fx.Supply(cfg),
		fx.Supply(log),
		fx.Supply(&cfg.Registry),
		fx.Supply(&cfg.Neo4J),
		fx.Supply(&cfg.NATS),

		// Infrastructure providers
		fx.Provide(
			database.NewNeo4JClient,
			messaging.NewNATSPublisher,
			registry.NewStaticRegistry,
			newLedgerClient,
			newFlowGraphRepository,
			newReporters,
		),

		// Domain services
		fx.Provide(
			domain_service.NewRiskClassifier,
		),

		// Application providers
		fx.Provide(
			app_service.NewTraversalEngine,
			app_service.NewInvestigationApplicationService,
		),

		// Lifecycle hooks
		fx.Invoke(registerConnections),
		fx.Populate(&investigation),

		// Configure logging
		fx.WithLogger(func() fxevent.Logger {
			return fxevent.NopLogger
		}),
	)

	// Cancel the run on SIGINT/SIGTERM; the traversal drains and the
	// ledger gathered so far is still reported as Partial.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := app.Start(ctx); err != nil {
		log.Error("Failed to start application", zap.Error(err))
		os.Exit(1)
	}

	ledger, invErr := investigation.Investigate(ctx, target, traversalCfg)
	if invErr != nil {
		log.Error("Investigation failed", zap.Error(invErr))
	} else {
		log.Info("Investigation complete",
			zap.String("run_id", ledger.RunID),
			zap.String("status", string(ledger.Status)),
			zap.Int("events", len(ledger.Events)))
	}

	stopCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := app.Stop(stopCtx); err != nil {
		log.Error("Failed to stop application gracefully", zap.Error(err))
		os.Exit(1)
	}

	if invErr != nil {
		os.Exit(1)
	}
}

// buildTraversalConfig converts file/env configuration into the engine's
// tuning surface, parsing the threshold and normalizing exclusions.
func buildTraversalConfig(cfg *config.Config) (domain_service.TraversalConfig, error) {
	threshold, err := cfg.Traversal.WhaleThreshold()
	if err != nil {
		return domain_service.TraversalConfig{}, err
	}

	exclusions := make(map[entity.Address]struct{}, len(cfg.Traversal.ExclusionList))
	for _, raw := range cfg.Traversal.ExclusionList {
		addr, err := entity.NormalizeAddress(raw)
		if err != nil {
			return domain_service.TraversalConfig{}, fmt.Errorf("exclusion list: %w", err)
		}
		exclusions[addr] = struct{}{}
	}

	return domain_service.TraversalConfig{
		WhaleThreshold:      threshold,
		MaxDepth:            cfg.Traversal.MaxDepth,
		MaxAddressesVisited: cfg.Traversal.MaxAddressesVisited,
		Concurrency:         cfg.Traversal.Concurrency,
		FetchTimeout:        cfg.Traversal.FetchTimeout,
		ExpandFlaggedActors: cfg.Traversal.ExpandFlaggedActors,
		ExclusionList:       exclusions,
		WhaleWeight:         cfg.Severity.WhaleWeight,
		BadActorWeight:      cfg.Severity.BadActorWeight,
		SeverityCap:         cfg.Severity.Cap,
		RetryMaxAttempts:    cfg.Retry.MaxAttempts,
		RetryBaseDelay:      cfg.Retry.BaseDelay,
		RetryMaxDelay:       cfg.Retry.MaxDelay,
		RetryJitter:         cfg.Retry.Jitter,
	}, nil
}

// newLedgerClient builds the Etherscan client, wrapped in the Redis
// read-through cache when enabled.
func newLedgerClient(cfg *config.Config, log *logger.Logger) domain_service.LedgerClient {
	client := etherscan.NewClient(&cfg.Etherscan, log)
	if cfg.Redis.Enabled {
		return cache.NewTransferCache(client, &cfg.Redis, log)
	}
	return client
}

// newFlowGraphRepository returns the Neo4J-backed repository, or nil when
// graph persistence is disabled.
func newFlowGraphRepository(cfg *config.Config, client *database.Neo4JClient, log *logger.Logger) repository.FlowGraphRepository {
	if !cfg.Neo4J.Enabled {
		return nil
	}
	return database.NewNeo4JFlowGraphRepository(client, log)
}

// newReporters assembles the reporter chain: console always, CSV and NATS
// per configuration.
func newReporters(cfg *config.Config, publisher *messaging.NATSPublisher, log *logger.Logger) []domain_service.Reporter {
	reporters := []domain_service.Reporter{
		reporting.NewConsoleReporter(),
	}
	if cfg.Report.CSV {
		reporters = append(reporters, reporting.NewCSVReporter(&cfg.Report, log))
	}
	if cfg.NATS.Enabled {
		reporters = append(reporters, publisher)
	}
	return reporters
}

// registerConnections wires external connections into the fx lifecycle.
func registerConnections(
	lifecycle fx.Lifecycle,
	cfg *config.Config,
	neo4jClient *database.Neo4JClient,
	publisher *messaging.NATSPublisher,
	log *logger.Logger,
) {
	lifecycle.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if cfg.Neo4J.Enabled {
				log.Info("Connecting to Neo4J database")
				if err := neo4jClient.Connect(ctx); err != nil {
					return fmt.Errorf("failed to connect to Neo4J: %w", err)
				}
			}
			if err := publisher.Connect(ctx); err != nil {
				return fmt.Errorf("failed to connect to NATS: %w", err)
			}
			return nil
		},
		OnStop: func(ctx context.Context) error {
			if cfg.Neo4J.Enabled {
				if err := neo4jClient.Close(ctx); err != nil {
					log.Error("Failed to close Neo4J connection", zap.Error(err))
				}
			}
			return publisher.Disconnect()
		},
	})
}
