package outcome

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/openthesis/oracle/internal/contracts"
	"github.com/openthesis/oracle/pkg/logger"
)

// Scorer resolves the performance outcome of thesis posts by comparing
// the current market price against the price recorded when the post was
// created. Each post is resolved exactly once.
type Scorer struct {
	posts  contracts.PostStore
	quotes contracts.QuoteSource
	config Config
	logger *logger.Logger
}

// Config holds outcome scoring parameters.
type Config struct {
	BatchLimit   int           // max posts per run
	ResolveAfter time.Duration // minimum post age before resolution
	Workers      int           // concurrent price lookups
}

// DefaultConfig returns default scoring parameters.
func DefaultConfig() Config {
	return Config{
		BatchLimit:   500,
		ResolveAfter: 7 * 24 * time.Hour,
		Workers:      4,
	}
}

// NewScorer creates a new outcome scorer
func NewScorer(posts contracts.PostStore, quotes contracts.QuoteSource, cfg Config, log *logger.Logger) *Scorer {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}

	return &Scorer{
		posts:  posts,
		quotes: quotes,
		config: cfg,
		logger: log,
	}
}

// Score resolves outcomes for the current batch of eligible posts.
// A failing price lookup or write skips that post only; the query for
// the batch itself failing aborts the phase.
func (s *Scorer) Score(ctx context.Context) (scored, skipped int, err error) {
	cutoff := time.Now().Add(-s.config.ResolveAfter)

	posts, err := s.posts.ListScoreable(ctx, cutoff, s.config.BatchLimit)
	if err != nil {
		return 0, 0, fmt.Errorf("list scoreable posts: %w", err)
	}

	if len(posts) == 0 {
		s.logger.Info("No posts eligible for outcome scoring")
		return 0, 0, nil
	}

	var (
		mu   sync.Mutex
		wg   sync.WaitGroup
		jobs = make(chan *contracts.Post)
	)

	for i := 0; i < s.config.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for post := range jobs {
				if s.scorePost(ctx, post) {
					mu.Lock()
					scored++
					mu.Unlock()
				} else {
					mu.Lock()
					skipped++
					mu.Unlock()
				}
			}
		}()
	}

	for _, post := range posts {
		jobs <- post
	}
	close(jobs)
	wg.Wait()

	s.logger.WithFields(map[string]interface{}{
		"candidates": len(posts),
		"scored":     scored,
		"skipped":    skipped,
	}).Info("Outcome scoring completed")

	return scored, skipped, nil
}

// scorePost resolves a single post. Returns false when the post was
// skipped for any reason.
func (s *Scorer) scorePost(ctx context.Context, post *contracts.Post) bool {
	// Guard nil/zero posting price: the ratio would be undefined.
	if !post.Scoreable() {
		s.logger.WithFields(map[string]interface{}{
			"post_id": post.ID,
		}).Debug("Post not scoreable, skipping")
		return false
	}

	if !post.Sentiment.Valid() {
		s.logger.WithFields(map[string]interface{}{
			"post_id":   post.ID,
			"sentiment": string(post.Sentiment),
		}).Warn("Unknown sentiment, skipping post")
		return false
	}

	current, err := s.quotes.Price(ctx, post.Ticker)
	if err != nil {
		s.logger.WithFields(map[string]interface{}{
			"post_id": post.ID,
			"ticker":  post.Ticker,
			"error":   err.Error(),
		}).Warn("Price lookup failed, skipping post")
		return false
	}

	result := Compute(post.Sentiment, *post.PriceAtPosting, current)

	if err := s.posts.SetOutcome(ctx, post.ID, result); err != nil {
		s.logger.WithFields(map[string]interface{}{
			"post_id": post.ID,
			"error":   err.Error(),
		}).Warn("Outcome write failed, skipping post")
		return false
	}

	s.logger.WithFields(map[string]interface{}{
		"post_id": post.ID,
		"ticker":  post.Ticker,
		"outcome": result,
	}).Debug("Post outcome resolved")

	return true
}

// Compute maps a price move to a signed outcome by sentiment:
// bullish posts are credited when the price rose, bearish posts when it
// fell, and neutral posts always resolve to zero.
func Compute(sentiment contracts.Sentiment, priceAtPosting, current float64) float64 {
	r := (current - priceAtPosting) / priceAtPosting

	switch sentiment {
	case contracts.SentimentBullish:
		return r
	case contracts.SentimentBearish:
		return -r
	default:
		return 0
	}
}
