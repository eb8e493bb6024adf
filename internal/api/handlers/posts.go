package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/openthesis/oracle/internal/contracts"
	"github.com/openthesis/oracle/pkg/logger"
)

const defaultTopLimit = 20

// PostsHandler exposes the ranked feed.
type PostsHandler struct {
	posts  contracts.PostStore
	logger *logger.Logger
}

// NewPostsHandler creates a new posts handler
func NewPostsHandler(posts contracts.PostStore, log *logger.Logger) *PostsHandler {
	return &PostsHandler{
		posts:  posts,
		logger: log,
	}
}

// rankedPost is the wire shape of a feed entry.
type rankedPost struct {
	ID           int64     `json:"id"`
	Ticker       string    `json:"ticker"`
	Sentiment    string    `json:"sentiment"`
	RankingScore float64   `json:"ranking_score"`
	CreatedAt    time.Time `json:"created_at"`
}

// Top returns unresolved posts ordered by ranking score.
// GET /api/posts/top?limit=20
func (h *PostsHandler) Top(w http.ResponseWriter, r *http.Request) {
	limit := defaultTopLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 || parsed > 100 {
			respondError(w, http.StatusBadRequest, "limit must be an integer in [1,100]")
			return
		}
		limit = parsed
	}

	posts, err := h.posts.ListTopRanked(r.Context(), limit)
	if err != nil {
		h.logger.WithError(err).Error("Failed to load top ranked posts")
		respondError(w, http.StatusInternalServerError, "failed to load posts")
		return
	}

	ranked := make([]rankedPost, 0, len(posts))
	for _, p := range posts {
		ranked = append(ranked, rankedPost{
			ID:           p.ID,
			Ticker:       p.Ticker,
			Sentiment:    string(p.Sentiment),
			RankingScore: p.RankingScore,
			CreatedAt:    p.CreatedAt,
		})
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"posts": ranked,
		"count": len(ranked),
	})
}
