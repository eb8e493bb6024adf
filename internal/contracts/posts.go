package contracts

import (
	"fmt"
	"time"
)

// Sentiment is the direction a thesis post predicts for its ticker.
type Sentiment string

const (
	SentimentBullish Sentiment = "bullish"
	SentimentBearish Sentiment = "bearish"
	SentimentNeutral Sentiment = "neutral"
)

// ParseSentiment converts a raw string into a Sentiment.
func ParseSentiment(s string) (Sentiment, error) {
	switch Sentiment(s) {
	case SentimentBullish, SentimentBearish, SentimentNeutral:
		return Sentiment(s), nil
	default:
		return "", fmt.Errorf("unknown sentiment: %q", s)
	}
}

// Valid reports whether the sentiment is one of the known values.
func (s Sentiment) Valid() bool {
	switch s {
	case SentimentBullish, SentimentBearish, SentimentNeutral:
		return true
	}
	return false
}

// Post is a thesis post as seen by the oracle pipeline.
// PriceAtPosting and PerformanceOutcome are nullable in the store:
// a post without a recorded posting price is never scored, and the
// outcome stays nil until the outcome phase resolves it.
type Post struct {
	ID                 int64
	Ticker             string
	Sentiment          Sentiment
	PriceAtPosting     *float64
	PerformanceOutcome *float64
	RankingScore       float64
	CreatedAt          time.Time
}

// Resolved reports whether the post's outcome has been computed.
func (p *Post) Resolved() bool {
	return p.PerformanceOutcome != nil
}

// Scoreable reports whether the outcome phase may resolve this post.
// A nil or zero posting price would make the return ratio undefined,
// so both are treated as "never score".
func (p *Post) Scoreable() bool {
	if p.Resolved() {
		return false
	}
	return p.PriceAtPosting != nil && *p.PriceAtPosting > 0
}

// EndorsedOutcome is the typed projection of the user -> post join:
// one row per post the user endorsed, carrying that post's outcome.
// Outcome is nil for posts not yet resolved.
type EndorsedOutcome struct {
	PostID  int64
	Outcome *float64
}

// EndorserReputation is the typed projection of the post -> user join:
// one row per user who endorsed the post, carrying that user's
// reputation. Reputation is nil for users never scored by the
// reputation phase.
type EndorserReputation struct {
	UserID     int64
	Reputation *float64
}
