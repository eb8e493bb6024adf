package oracle

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openthesis/oracle/internal/contracts"
	"github.com/openthesis/oracle/internal/outcome"
	"github.com/openthesis/oracle/internal/ranking"
	"github.com/openthesis/oracle/internal/reputation"
	"github.com/openthesis/oracle/pkg/logger"
)

// memStore backs all store interfaces with shared in-memory state, so
// writes from one phase are visible to the next exactly like committed
// rows would be.
type memStore struct {
	mu           sync.Mutex
	posts        map[int64]*contracts.Post
	userIDs      []int64
	userReps     map[int64]*float64
	endorsements map[int64][]int64 // userID -> endorsed post IDs
	rankings     map[int64]float64
	savedRuns    []*contracts.RunRecord

	failUserList bool
}

func newMemStore() *memStore {
	return &memStore{
		posts:        make(map[int64]*contracts.Post),
		userReps:     make(map[int64]*float64),
		endorsements: make(map[int64][]int64),
		rankings:     make(map[int64]float64),
	}
}

func (m *memStore) addPost(p *contracts.Post) {
	m.posts[p.ID] = p
}

func (m *memStore) addUser(id int64, endorsedPosts ...int64) {
	m.userIDs = append(m.userIDs, id)
	m.endorsements[id] = endorsedPosts
}

func (m *memStore) ListScoreable(ctx context.Context, olderThan time.Time, limit int) ([]*contracts.Post, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	eligible := make([]*contracts.Post, 0)
	for _, p := range m.posts {
		if p.Scoreable() && p.CreatedAt.Before(olderThan) && len(eligible) < limit {
			eligible = append(eligible, p)
		}
	}
	return eligible, nil
}

func (m *memStore) ListUnresolved(ctx context.Context) ([]*contracts.Post, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	unresolved := make([]*contracts.Post, 0)
	for _, p := range m.posts {
		if !p.Resolved() && p.PriceAtPosting != nil {
			unresolved = append(unresolved, p)
		}
	}
	return unresolved, nil
}

func (m *memStore) SetOutcome(ctx context.Context, postID int64, outcomeVal float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.posts[postID].PerformanceOutcome = &outcomeVal
	return nil
}

func (m *memStore) SetRankingScore(ctx context.Context, postID int64, score float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rankings[postID] = score
	return nil
}

func (m *memStore) ListTopRanked(ctx context.Context, limit int) ([]*contracts.Post, error) {
	return nil, nil
}

func (m *memStore) ListIDs(ctx context.Context) ([]int64, error) {
	if m.failUserList {
		return nil, fmt.Errorf("connection refused")
	}
	return m.userIDs, nil
}

func (m *memStore) SetReputation(ctx context.Context, userID int64, score float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.userReps[userID] = &score
	return nil
}

func (m *memStore) OutcomesEndorsedBy(ctx context.Context, userID int64) ([]contracts.EndorsedOutcome, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	outcomes := make([]contracts.EndorsedOutcome, 0)
	for _, postID := range m.endorsements[userID] {
		outcomes = append(outcomes, contracts.EndorsedOutcome{
			PostID:  postID,
			Outcome: m.posts[postID].PerformanceOutcome,
		})
	}
	return outcomes, nil
}

func (m *memStore) EndorsersOf(ctx context.Context, postID int64) ([]contracts.EndorserReputation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	endorsers := make([]contracts.EndorserReputation, 0)
	for _, userID := range m.userIDs {
		for _, pid := range m.endorsements[userID] {
			if pid == postID {
				endorsers = append(endorsers, contracts.EndorserReputation{
					UserID:     userID,
					Reputation: m.userReps[userID],
				})
			}
		}
	}
	return endorsers, nil
}

func (m *memStore) SaveRun(ctx context.Context, run *contracts.RunRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.savedRuns = append(m.savedRuns, run)
	return nil
}

func (m *memStore) LastRun(ctx context.Context) (*contracts.RunRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.savedRuns) == 0 {
		return nil, nil
	}
	return m.savedRuns[len(m.savedRuns)-1], nil
}

type fixedQuotes struct {
	prices map[string]float64
}

func (f *fixedQuotes) Price(ctx context.Context, ticker string) (float64, error) {
	price, ok := f.prices[ticker]
	if !ok {
		return 0, fmt.Errorf("no quote for %s", ticker)
	}
	return price, nil
}

// blockingQuotes holds every lookup until released, to keep a run alive
// while the test pokes at the orchestrator from outside.
type blockingQuotes struct {
	started chan struct{}
	release chan struct{}
	once    sync.Once
}

func (b *blockingQuotes) Price(ctx context.Context, ticker string) (float64, error) {
	b.once.Do(func() { close(b.started) })
	<-b.release
	return 100, nil
}

func floatPtr(v float64) *float64 { return &v }

func newPipeline(store *memStore, quotes contracts.QuoteSource) *Orchestrator {
	log := logger.NewNop()

	scorer := outcome.NewScorer(store, quotes, outcome.Config{
		BatchLimit:   100,
		ResolveAfter: 7 * 24 * time.Hour,
		Workers:      2,
	}, log)
	reputationAgg := reputation.NewAggregator(store, store, reputation.DefaultConfig(), log)
	rankingAgg := ranking.NewAggregator(store, store, 0.5, log)

	return NewOrchestrator(scorer, reputationAgg, rankingAgg, store, log)
}

func seedScenario(store *memStore) {
	old := time.Now().Add(-30 * 24 * time.Hour)
	young := time.Now().Add(-time.Hour)

	// Old bullish thesis that the market confirmed.
	store.addPost(&contracts.Post{
		ID: 1, Ticker: "AAPL", Sentiment: contracts.SentimentBullish,
		PriceAtPosting: floatPtr(100), CreatedAt: old,
	})
	// Fresh thesis, still collecting endorsements.
	store.addPost(&contracts.Post{
		ID: 2, Ticker: "NVDA", Sentiment: contracts.SentimentBullish,
		PriceAtPosting: floatPtr(200), CreatedAt: young,
	})
	// Old bearish thesis that the market confirmed.
	store.addPost(&contracts.Post{
		ID: 3, Ticker: "TSLA", Sentiment: contracts.SentimentBearish,
		PriceAtPosting: floatPtr(100), CreatedAt: old,
	})
	// No posting price recorded, can never be scored.
	store.addPost(&contracts.Post{
		ID: 4, Ticker: "MEME", Sentiment: contracts.SentimentBullish,
		PriceAtPosting: nil, CreatedAt: old,
	})

	store.addUser(10, 1, 2) // endorsed the winner and the fresh thesis
	store.addUser(11)       // lurker, no endorsements
}

func scenarioQuotes() *fixedQuotes {
	return &fixedQuotes{prices: map[string]float64{
		"AAPL": 110, // +10% on a bullish call
		"TSLA": 95,  // -5% on a bearish call
		"NVDA": 500,
		"MEME": 1,
	}}
}

func TestRunFullPipeline(t *testing.T) {
	store := newMemStore()
	seedScenario(store)

	orch := newPipeline(store, scenarioQuotes())

	result, err := orch.Run(context.Background())
	require.NoError(t, err)
	require.NotNil(t, result)

	assert.True(t, result.Success)
	assert.Empty(t, result.Error)
	assert.Equal(t, []string{PhaseOutcome, PhaseReputation, PhaseRanking}, result.CompletedPhases)

	// Outcome phase: both old priced posts resolve with the right sign.
	assert.Equal(t, 2, result.PostsScored)
	require.NotNil(t, store.posts[1].PerformanceOutcome)
	assert.InDelta(t, 0.10, *store.posts[1].PerformanceOutcome, 1e-9)
	require.NotNil(t, store.posts[3].PerformanceOutcome)
	assert.InDelta(t, 0.05, *store.posts[3].PerformanceOutcome, 1e-9)
	assert.Nil(t, store.posts[2].PerformanceOutcome, "too-young post stays unresolved")
	assert.Nil(t, store.posts[4].PerformanceOutcome, "priceless post stays unresolved")

	// Reputation phase: the endorser of the +10% winner maxes out, the
	// lurker is skipped and keeps no score.
	assert.Equal(t, 1, result.UsersUpdated)
	assert.Equal(t, 1, result.UsersSkipped)
	require.NotNil(t, store.userReps[10])
	assert.InDelta(t, 1.0, *store.userReps[10], 1e-9)
	assert.Nil(t, store.userReps[11])

	// Ranking phase: the fresh thesis is ranked by its endorser's fresh
	// reputation from this same run.
	assert.Equal(t, 1, result.PostsRanked)
	assert.InDelta(t, 1.0, store.rankings[2], 1e-9)

	// The run record is persisted and retrievable.
	require.Len(t, store.savedRuns, 1)
	last, err := orch.LastRun(context.Background())
	require.NoError(t, err)
	assert.Equal(t, result.RunID, last.RunID)
}

func TestRunIsIdempotentAcrossRuns(t *testing.T) {
	store := newMemStore()
	seedScenario(store)

	orch := newPipeline(store, scenarioQuotes())

	first, err := orch.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, 2, first.PostsScored)

	firstOutcome := *store.posts[1].PerformanceOutcome

	second, err := orch.Run(context.Background())
	require.NoError(t, err)

	// Resolved posts are never re-scored, even if the price moved.
	assert.Equal(t, 0, second.PostsScored)
	assert.Equal(t, firstOutcome, *store.posts[1].PerformanceOutcome)

	// Reputation and ranking are full recomputations and land on the
	// same values.
	assert.InDelta(t, 1.0, *store.userReps[10], 1e-9)
	assert.InDelta(t, 1.0, store.rankings[2], 1e-9)
}

func TestRunAbortsOnStructuralFailure(t *testing.T) {
	store := newMemStore()
	seedScenario(store)
	store.failUserList = true

	orch := newPipeline(store, scenarioQuotes())

	result, err := orch.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "reputation phase")

	// The record still describes how far the run got.
	require.NotNil(t, result)
	assert.False(t, result.Success)
	assert.NotEmpty(t, result.Error)
	assert.Equal(t, []string{PhaseOutcome}, result.CompletedPhases)

	// Later phases never ran.
	assert.Empty(t, store.rankings)
}

func TestRunRejectsConcurrentRuns(t *testing.T) {
	store := newMemStore()
	store.addPost(&contracts.Post{
		ID: 1, Ticker: "AAPL", Sentiment: contracts.SentimentBullish,
		PriceAtPosting: floatPtr(100), CreatedAt: time.Now().Add(-30 * 24 * time.Hour),
	})

	quotes := &blockingQuotes{
		started: make(chan struct{}),
		release: make(chan struct{}),
	}
	orch := newPipeline(store, quotes)

	done := make(chan error, 1)
	go func() {
		_, err := orch.Run(context.Background())
		done <- err
	}()

	<-quotes.started
	assert.True(t, orch.Running())

	_, err := orch.Run(context.Background())
	assert.ErrorIs(t, err, ErrRunInProgress)

	close(quotes.release)
	require.NoError(t, <-done)
	assert.False(t, orch.Running())
}

func TestLastRunFallsBackToStore(t *testing.T) {
	store := newMemStore()
	persisted := &contracts.RunRecord{RunID: "run_20260102_173000", Success: true}
	store.savedRuns = append(store.savedRuns, persisted)

	orch := newPipeline(store, scenarioQuotes())

	last, err := orch.LastRun(context.Background())
	require.NoError(t, err)
	require.NotNil(t, last)
	assert.Equal(t, persisted.RunID, last.RunID)
}
