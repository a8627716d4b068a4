package main

import (
	"context"
	"database/sql"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"beacon/internal/access"
	"beacon/internal/jwttoken"
	"beacon/internal/platform/config"
	"beacon/internal/platform/httpserver"
	"beacon/internal/platform/logger"
	"beacon/internal/platform/postgres"
	platformredis "beacon/internal/platform/redis"
	"beacon/internal/population"
	"beacon/internal/query"
	"beacon/internal/rip"
	"beacon/internal/rip/metrics"
	"beacon/internal/rip/store/budget"
	"beacon/internal/rip/store/history"
	httptransport "beacon/internal/transport/http"
	"beacon/internal/variants"
)

// main wires configuration, stores, and the RIP decision gate behind the
// HTTP surface, then runs the server until a shutdown signal.
func main() {
	cfg := config.FromEnv()
	log := logger.New(cfg.LogLevel)
	ctx := context.Background()

	db, err := postgres.Open(ctx, cfg.PostgresURL)
	if err != nil {
		log.Error("postgres connection failed", "error", err)
		os.Exit(1)
	}
	if db != nil {
		defer db.Close()
	}

	redisClient, err := platformredis.New(ctx, cfg.RedisURL)
	if err != nil {
		log.Error("redis connection failed", "error", err)
		os.Exit(1)
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	ledger := newLedger(db, cfg.InitialBudget())
	responseHistory := newHistory(db, redisClient, cfg.HistoryTTL)
	sizer := newSizer(db, cfg)

	gate, err := rip.New(ledger, responseHistory, sizer,
		rip.WithLogger(log),
		rip.WithMetrics(metrics.New()),
		rip.WithRetry(cfg.LedgerRetries, cfg.RetryBaseDelay),
	)
	if err != nil {
		log.Error("decision gate construction failed", "error", err)
		os.Exit(1)
	}

	source := variants.NewInMemory()
	if cfg.VariantsFile != "" {
		entries, err := variants.LoadFile(cfg.VariantsFile)
		if err != nil {
			log.Error("variants seed load failed", "path", cfg.VariantsFile, "error", err)
			os.Exit(1)
		}
		source.Add(entries...)
		log.Info("variants seeded", "path", cfg.VariantsFile, "entries", len(entries))
	}

	maxGranularity := query.Granularity(cfg.MaxGranularity)
	if !maxGranularity.Valid() {
		log.Warn("unknown max granularity, defaulting to record", "value", cfg.MaxGranularity)
		maxGranularity = query.GranularityRecord
	}

	handler := httptransport.NewHandler(gate, source, access.NewStatic(cfg.OpenDatasets), httptransport.Config{
		BeaconID:       cfg.BeaconID,
		APIVersion:     cfg.APIVersion,
		MaxGranularity: maxGranularity,
	}, log)

	checks := map[string]httptransport.HealthChecker{}
	if db != nil {
		checks["postgres"] = dbChecker{db}
	}
	if redisClient != nil {
		checks["redis"] = redisClient
	}

	router := httptransport.NewRouter(handler,
		httptransport.Identity(jwttoken.New(cfg.JWTSigningKey), log),
		checks,
	)
	srv := httpserver.New(cfg.Addr, router)

	log.Info("starting beacon",
		"addr", cfg.Addr,
		"initial_budget", cfg.InitialBudget(),
		"postgres", db != nil,
		"redis", redisClient != nil,
	)

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", "error", err)
		os.Exit(1)
	}
	log.Info("beacon stopped")
}

func newLedger(db *sql.DB, initialBudget float64) rip.BudgetLedger {
	if db != nil {
		return budget.NewPostgres(db, initialBudget)
	}
	return budget.NewInMemory(initialBudget)
}

func newHistory(db *sql.DB, redisClient *platformredis.Client, ttl time.Duration) rip.ResponseHistory {
	switch {
	case redisClient != nil:
		return history.NewRedis(redisClient.Client, history.WithTTL(ttl))
	case db != nil:
		return history.NewPostgres(db)
	default:
		return history.NewInMemory()
	}
}

func newSizer(db *sql.DB, cfg config.Server) rip.PopulationSizer {
	if db != nil {
		return population.NewCached(population.NewPostgres(db), cfg.PopulationCacheTTL)
	}
	return population.NewStatic(cfg.PopulationSize)
}

type dbChecker struct {
	db *sql.DB
}

func (c dbChecker) Health(ctx context.Context) error {
	return c.db.PingContext(ctx)
}
