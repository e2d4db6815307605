// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/wodsmith/ranking/internal/domain/scoring"
	"github.com/wodsmith/ranking/internal/domain/types"

	"github.com/go-chi/chi/v5"
)

type leaderboardResponse struct {
	CompetitionID string                `json:"competition_id"`
	Version       uint64                `json:"version"`
	Algorithm     scoring.Algorithm     `json:"algorithm"`
	ComputedAt    time.Time             `json:"computed_at"`
	Total         int                   `json:"total"`
	Entries       []types.StandingEntry `json:"entries"`
}

type eventResultsResponse struct {
	CompetitionID string                      `json:"competition_id"`
	EventID       string                      `json:"event_id"`
	Results       []scoring.EventPointsResult `json:"results"`
}

// LeaderboardHandler handles leaderboard requests
type LeaderboardHandler struct {
	deps     LeaderboardDependencies
	maxLimit int
}

// NewLeaderboardHandler creates a new leaderboard handler
func NewLeaderboardHandler(deps LeaderboardDependencies, maxLimit int) *LeaderboardHandler {
	return &LeaderboardHandler{
		deps:     deps,
		maxLimit: maxLimit,
	}
}

// HandleGetLeaderboard handles GET /competitions/{competitionID}/leaderboard?limit=N
// requests. Without a limit the first maxLimit entries are returned.
func (h *LeaderboardHandler) HandleGetLeaderboard(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_leaderboard"
	n := h.maxLimit
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		var err error
		n, err = strconv.Atoi(limitStr)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest))
			return
		}
		if n > h.maxLimit {
			writeError(w, http.StatusBadRequest, "limit_exceeded", NewKind(op, ErrBadRequest))
			return
		}
	}

	standings, err := h.deps.Standings(r.Context(), chi.URLParam(r, "competitionID"))
	if err != nil {
		fail(w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, leaderboardResponse{
		CompetitionID: standings.CompetitionID,
		Version:       standings.Version,
		Algorithm:     standings.Algorithm,
		ComputedAt:    standings.ComputedAt,
		Total:         len(standings.Entries),
		Entries:       standings.Top(n),
	})
}

// HandleGetEventResults handles GET /competitions/{competitionID}/events/{eventID}/results.
func (h *LeaderboardHandler) HandleGetEventResults(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_event_results"
	competitionID := chi.URLParam(r, "competitionID")
	eventID := chi.URLParam(r, "eventID")

	results, err := h.deps.EventResults(r.Context(), competitionID, eventID)
	if err != nil {
		fail(w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, eventResultsResponse{
		CompetitionID: competitionID,
		EventID:       eventID,
		Results:       results,
	})
}
