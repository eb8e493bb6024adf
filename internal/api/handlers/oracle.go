package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/openthesis/oracle/internal/oracle"
	"github.com/openthesis/oracle/pkg/logger"
)

// OracleHandler exposes the pipeline trigger and status endpoints.
type OracleHandler struct {
	orchestrator *oracle.Orchestrator
	logger       *logger.Logger
}

// NewOracleHandler creates a new oracle handler
func NewOracleHandler(orchestrator *oracle.Orchestrator, log *logger.Logger) *OracleHandler {
	return &OracleHandler{
		orchestrator: orchestrator,
		logger:       log,
	}
}

// Status returns the most recent run record.
// GET /api/oracle/status
func (h *OracleHandler) Status(w http.ResponseWriter, r *http.Request) {
	last, err := h.orchestrator.LastRun(r.Context())
	if err != nil {
		h.logger.WithError(err).Error("Failed to load last run")
		respondError(w, http.StatusInternalServerError, "failed to load last run")
		return
	}

	if last == nil {
		respondJSON(w, http.StatusOK, map[string]interface{}{
			"running":  h.orchestrator.Running(),
			"last_run": nil,
		})
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"running":  h.orchestrator.Running(),
		"last_run": last,
	})
}

// Trigger starts a pipeline run in the background.
// POST /api/oracle/run
func (h *OracleHandler) Trigger(w http.ResponseWriter, r *http.Request) {
	if h.orchestrator.Running() {
		respondError(w, http.StatusConflict, "oracle run already in progress")
		return
	}

	// Detach from the request context: the run outlives the request.
	go func() {
		if _, err := h.orchestrator.Run(context.Background()); err != nil {
			h.logger.WithError(err).Error("Triggered oracle run failed")
		}
	}()

	respondJSON(w, http.StatusAccepted, map[string]string{
		"status": "started",
	})
}

func respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func respondError(w http.ResponseWriter, status int, msg string) {
	respondJSON(w, status, map[string]string{"error": msg})
}
