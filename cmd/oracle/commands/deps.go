package commands

import (
	"fmt"

	"github.com/openthesis/oracle/internal/contracts"
	"github.com/openthesis/oracle/internal/oracle"
	"github.com/openthesis/oracle/internal/outcome"
	"github.com/openthesis/oracle/internal/pricing"
	"github.com/openthesis/oracle/internal/ranking"
	"github.com/openthesis/oracle/internal/reputation"
	"github.com/openthesis/oracle/internal/store"
	"github.com/openthesis/oracle/pkg/config"
	"github.com/openthesis/oracle/pkg/database"
	"github.com/openthesis/oracle/pkg/httputil"
	"github.com/openthesis/oracle/pkg/logger"
	"github.com/openthesis/oracle/pkg/redis"
)

// deps holds the shared wiring for every command: one config, one
// logger, one database pool, one redis client per process invocation.
type deps struct {
	cfg   *config.Config
	log   *logger.Logger
	db    *database.DB
	redis *redis.Client

	postRepo     *store.PostRepository
	orchestrator *oracle.Orchestrator
}

// initDeps builds the full dependency graph.
func initDeps() (*deps, error) {
	// 1. Load config
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	if verbose {
		cfg.LogLevel = "debug"
	}

	// 2. Initialize logger
	log := logger.New(cfg)

	// 3. Connect to database
	db, err := database.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	// 4. Connect to Redis (no-op client when disabled)
	rdb, err := redis.New(cfg)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	// 5. Create HTTP client with quote-provider rate limiting
	httpClient := httputil.NewWithTimeout(log, cfg.Quote.Timeout).
		WithRateLimiter(redis.NewRateLimiter(rdb, "oracle"), redis.QuoteRateLimit)

	// 6. Create quote sources: CSV endpoint, quote-page scraper
	// fallback, short-lived cache on top.
	quoteClient := pricing.NewClient(httpClient, cfg.Quote, log)
	quoteScraper := pricing.NewScraper(httpClient, cfg.Quote.ScrapeBaseURL, log)

	var quotes contracts.QuoteSource = pricing.NewFallbackSource(log, quoteClient, quoteScraper)
	quotes = pricing.NewCachedSource(quotes, redis.NewCache(rdb, "oracle"))

	// 7. Create repositories
	postRepo := store.NewPostRepository(db.Pool)
	userRepo := store.NewUserRepository(db.Pool)
	endorsementRepo := store.NewEndorsementRepository(db.Pool)
	runRepo := store.NewRunRepository(db.Pool)

	// 8. Create pipeline phases
	scorer := outcome.NewScorer(postRepo, quotes, outcome.Config{
		BatchLimit:   cfg.Oracle.BatchLimit,
		ResolveAfter: cfg.Oracle.ResolveAfter,
		Workers:      cfg.Oracle.Workers,
	}, log)

	reputationCfg := reputation.DefaultConfig()
	reputationAgg := reputation.NewAggregator(userRepo, endorsementRepo, reputationCfg, log)
	rankingAgg := ranking.NewAggregator(postRepo, endorsementRepo, reputationCfg.Neutral, log)

	// 9. Create orchestrator
	orchestrator := oracle.NewOrchestrator(scorer, reputationAgg, rankingAgg, runRepo, log)

	return &deps{
		cfg:          cfg,
		log:          log,
		db:           db,
		redis:        rdb,
		postRepo:     postRepo,
		orchestrator: orchestrator,
	}, nil
}

// Close tears down shared resources.
func (d *deps) Close() {
	if d.redis != nil {
		_ = d.redis.Close()
	}
	if d.db != nil {
		d.db.Close()
	}
}
