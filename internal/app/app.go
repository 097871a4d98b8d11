package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/uptrace/opentelemetry-go-extra/otelsql"
	"github.com/uptrace/opentelemetry-go-extra/otelsqlx"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"

	"github.com/rackline/matchplay/internal/config"
	"github.com/rackline/matchplay/internal/domain/game"
	"github.com/rackline/matchplay/internal/domain/lineup"
	"github.com/rackline/matchplay/internal/domain/match"
	"github.com/rackline/matchplay/internal/domain/notify"
	"github.com/rackline/matchplay/internal/infrastructure/account/leaguehq"
	notifymemory "github.com/rackline/matchplay/internal/infrastructure/notify/memory"
	"github.com/rackline/matchplay/internal/infrastructure/notify/webhook"
	"github.com/rackline/matchplay/internal/infrastructure/repository/memory"
	"github.com/rackline/matchplay/internal/infrastructure/repository/postgres"
	"github.com/rackline/matchplay/internal/interfaces/httpapi"
	idgen "github.com/rackline/matchplay/internal/platform/id"
	"github.com/rackline/matchplay/internal/platform/logging"
	"github.com/rackline/matchplay/internal/platform/resilience"
	"github.com/rackline/matchplay/internal/usecase"
)

// NewHTTPServer wires repositories, services and the HTTP router. The
// returned cleanup drains background work (webhook deliveries, reconcile
// pool, DB pool) and must run after the server has stopped accepting
// requests.
func NewHTTPServer(cfg config.Config, logger *slog.Logger) (*http.Server, func(context.Context) error, error) {
	engineLogger := logging.Default()

	var (
		matchRepo  match.Repository
		lineupRepo lineup.Repository
		gameRepo   game.Repository
		db         *sqlx.DB
	)
	if cfg.DBURL == "" {
		logger.Info("store selected", "store", "memory", "reason", "DB_URL empty")
		matchRepo = memory.NewMatchRepository(memory.SeedMatches())
		lineupRepo = memory.NewLineupRepository(nil)
		gameRepo = memory.NewGameRepository()
	} else {
		opened, err := openDB(cfg)
		if err != nil {
			return nil, nil, fmt.Errorf("open db: %w", err)
		}
		db = opened
		logger.Info("store selected", "store", "postgres", "db", dbNameFromURL(cfg.DBURL))
		matchRepo = postgres.NewMatchRepository(db)
		lineupRepo = postgres.NewLineupRepository(db)
		gameRepo = postgres.NewGameRepository(db)
	}

	var broker notify.Broker
	localBroker := notifymemory.NewBroker()
	broker = localBroker

	var publisher *webhook.Publisher
	if cfg.WebhookEnabled {
		publisher = webhook.NewPublisher(localBroker, webhook.PublisherConfig{
			Targets: cfg.WebhookTargets,
			Token:   cfg.WebhookToken,
			Timeout: cfg.WebhookTimeout,
			CircuitBreaker: resilience.CircuitBreakerConfig{
				Enabled:          cfg.WebhookCircuitEnabled,
				FailureThreshold: cfg.WebhookCircuitFailureCount,
				OpenTimeout:      cfg.WebhookCircuitOpenTimeout,
				HalfOpenMaxReq:   cfg.WebhookCircuitHalfOpenMax,
			},
		}, engineLogger)
		broker = publisher
	}

	ids := idgen.NewRandomGenerator()

	lineupService := usecase.NewLineupService(matchRepo, lineupRepo, gameRepo, ids, broker)
	ledgerService := usecase.NewLedgerService(matchRepo, lineupRepo, gameRepo, ids, broker, engineLogger)
	scoringService := usecase.NewScoringService(matchRepo, gameRepo, broker, engineLogger)
	outcomeService := usecase.NewOutcomeService(matchRepo, gameRepo, broker, engineLogger)
	tiebreakerService := usecase.NewTiebreakerService(matchRepo, lineupRepo, gameRepo, broker, engineLogger)
	reconcileService, err := usecase.NewReconcileService(matchRepo, lineupRepo, gameRepo, broker, engineLogger, cfg.ReconcilePoolSize)
	if err != nil {
		closeDB(db)
		return nil, nil, fmt.Errorf("build reconcile service: %w", err)
	}

	lineupService.SetLedgerPopulator(ledgerService)
	tiebreakerService.SetLedgerPopulator(ledgerService)
	scoringService.SetEvaluators(outcomeService, tiebreakerService)

	verifier, err := leaguehq.NewClient(leaguehq.ClientConfig{
		BaseURL:      cfg.LeagueHQBaseURL,
		Timeout:      cfg.LeagueHQTimeout,
		CacheTTL:     cfg.LeagueHQCacheTTL,
		CacheMaxSize: cfg.LeagueHQCacheMaxSize,
		CircuitBreaker: resilience.CircuitBreakerConfig{
			Enabled:          cfg.LeagueHQCircuitEnabled,
			FailureThreshold: cfg.LeagueHQCircuitFailureCount,
			OpenTimeout:      cfg.LeagueHQCircuitOpenTimeout,
			HalfOpenMaxReq:   cfg.LeagueHQCircuitHalfOpenMax,
		},
	}, engineLogger)
	if err != nil {
		reconcileService.Close()
		closeDB(db)
		return nil, nil, fmt.Errorf("build leaguehq client: %w", err)
	}

	handler := httpapi.NewHandler(lineupService, scoringService, outcomeService, tiebreakerService, reconcileService, logger)
	router := httpapi.NewRouter(handler, verifier, logger, cfg.CORSAllowedOrigins, cfg.InternalJobToken)

	server := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	if server.Addr == "" {
		reconcileService.Close()
		closeDB(db)
		return nil, nil, fmt.Errorf("http server addr cannot be empty")
	}

	cleanup := func(context.Context) error {
		reconcileService.Close()
		if publisher != nil {
			publisher.Wait()
		}
		if db != nil {
			return db.Close()
		}
		return nil
	}

	return server, cleanup, nil
}

func openDB(cfg config.Config) (*sqlx.DB, error) {
	dsn := normalizeDBURL(cfg.DBURL, cfg.DBDisablePreparedBinary)

	db, err := otelsqlx.Open("postgres", dsn,
		otelsql.WithAttributes(semconv.DBSystemPostgreSQL),
		otelsql.WithDBName(dbNameFromURL(dsn)),
		otelsql.WithQueryFormatter(formatDBQueryForTrace),
	)
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(cfg.DBMaxOpenConns)
	db.SetMaxIdleConns(cfg.DBMaxIdleConns)
	db.SetConnMaxLifetime(cfg.DBConnMaxLifetime)

	pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, err
	}

	return db, nil
}

func closeDB(db *sqlx.DB) {
	if db != nil {
		_ = db.Close()
	}
}
