package api

import (
	"fmt"
	"net/http"

	"github.com/wodsmith/ranking/internal/domain/model"

	"github.com/go-chi/chi/v5"
)

type competitionResponse struct {
	Competition      model.Competition `json:"competition"`
	StandingsVersion uint64            `json:"standings_version"`
}

// CompetitionHandler handles competition definition requests.
type CompetitionHandler struct {
	deps CompetitionDependencies
}

// NewCompetitionHandler creates a new competition handler.
func NewCompetitionHandler(deps CompetitionDependencies) *CompetitionHandler {
	return &CompetitionHandler{deps: deps}
}

// HandlePut handles PUT /competitions/{competitionID} requests. The body id
// may be omitted; when present it must match the path.
func (h *CompetitionHandler) HandlePut(w http.ResponseWriter, r *http.Request) {
	const op = "api.put_competition"
	id := chi.URLParam(r, "competitionID")

	var c model.Competition
	if err := decodeJSON(r, &c); err != nil {
		fail(w, WrapKind(op, ErrBadRequest, err))
		return
	}
	switch c.ID {
	case "":
		c.ID = id
	case id:
	default:
		fail(w, WrapKind(op, ErrBadRequest, fmt.Errorf("body id %q does not match path id %q", c.ID, id)))
		return
	}

	standings, err := h.deps.PutCompetition(r.Context(), c)
	if err != nil {
		fail(w, Wrap(op, err))
		return
	}
	stored, err := h.deps.Competition(r.Context(), id)
	if err != nil {
		fail(w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, competitionResponse{Competition: stored, StandingsVersion: standings.Version})
}

// HandleGet handles GET /competitions/{competitionID} requests.
func (h *CompetitionHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_competition"
	c, err := h.deps.Competition(r.Context(), chi.URLParam(r, "competitionID"))
	if err != nil {
		fail(w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, c)
}
