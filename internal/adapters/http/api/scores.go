package api

import (
	"fmt"
	"net/http"
	"strings"

	service "github.com/wodsmith/ranking/internal/app"
	"github.com/wodsmith/ranking/internal/domain/score"

	"github.com/go-chi/chi/v5"
)

// scoreRequest is the body of POST /competitions/{competitionID}/scores.
type scoreRequest struct {
	SubmissionID string `json:"submission_id"`
	EventID      string `json:"event_id"`
	AthleteID    string `json:"athlete_id"`
	Score        string `json:"score"`
	Tiebreak     string `json:"tiebreak"`
}

func (s scoreRequest) validate() error {
	switch {
	case strings.TrimSpace(s.EventID) == "":
		return fmt.Errorf("%w: missing event_id", ErrBadRequest)
	case strings.TrimSpace(s.AthleteID) == "":
		return fmt.Errorf("%w: missing athlete_id", ErrBadRequest)
	}
	return nil
}

// parseRequest is the body of POST /scores/parse.
type parseRequest struct {
	Scheme         score.Scheme `json:"scheme"`
	Score          string       `json:"score"`
	TimeCapSeconds int          `json:"time_cap_seconds"`
	TiebreakScheme score.Scheme `json:"tiebreak_scheme"`
	Tiebreak       string       `json:"tiebreak"`
}

type parseResponse struct {
	IsValid       bool         `json:"is_valid"`
	Error         string       `json:"error,omitempty"`
	RawValue      *int64       `json:"raw_value"`
	Status        score.Status `json:"status"`
	Formatted     string       `json:"formatted,omitempty"`
	NeedsTieBreak bool         `json:"needs_tiebreak"`
	TiebreakValue *int64       `json:"tiebreak_value,omitempty"`
}

// ScoresHandler handles score entry requests.
type ScoresHandler struct {
	deps    ScoreDependencies
	limiter *IPRateLimiter
}

// NewScoresHandler creates a new scores handler. A nil limiter disables rate
// limiting.
func NewScoresHandler(deps ScoreDependencies, limiter *IPRateLimiter) *ScoresHandler {
	return &ScoresHandler{deps: deps, limiter: limiter}
}

// HandleParse handles POST /scores/parse requests. Invalid scores are not an
// HTTP error: the response carries is_valid=false and a message for the
// score-entry form.
func (h *ScoresHandler) HandleParse(w http.ResponseWriter, r *http.Request) {
	const op = "api.parse_score"
	var req parseRequest
	if err := decodeJSON(r, &req); err != nil {
		fail(w, WrapKind(op, ErrBadRequest, err))
		return
	}
	if !req.Scheme.Valid() {
		fail(w, WrapKind(op, ErrBadRequest, score.ErrInvalidScheme))
		return
	}

	res := score.Parse(req.Score, req.Scheme,
		score.WithTimeCap(req.TimeCapSeconds),
		score.WithTiebreakScheme(req.TiebreakScheme),
	)
	out := parseResponse{
		IsValid:       res.IsValid,
		Error:         res.Error,
		RawValue:      res.RawValue,
		Status:        res.Status,
		NeedsTieBreak: res.NeedsTieBreak,
	}
	if res.RawValue != nil {
		out.Formatted = score.Format(*res.RawValue, req.Scheme)
	}
	if res.IsValid && req.TiebreakScheme != "" && strings.TrimSpace(req.Tiebreak) != "" {
		tb, err := score.ParseTiebreak(req.Tiebreak, req.TiebreakScheme)
		if err != nil {
			out.IsValid = false
			out.Error = err.Error()
		} else {
			out.TiebreakValue = &tb
		}
	}
	writeJSON(w, http.StatusOK, out)
}

// HandleSubmit handles POST /competitions/{competitionID}/scores requests.
func (h *ScoresHandler) HandleSubmit(w http.ResponseWriter, r *http.Request) {
	const op = "api.submit_score"
	if h.limiter != nil && !h.limiter.Allow(r) {
		fail(w, NewKind(op, ErrRateLimited))
		return
	}

	var req scoreRequest
	if err := decodeJSON(r, &req); err != nil {
		fail(w, WrapKind(op, ErrBadRequest, err))
		return
	}
	if err := req.validate(); err != nil {
		fail(w, Wrap(op, err))
		return
	}

	duplicate, err := h.deps.SubmitScore(r.Context(), service.Submission{
		SubmissionID:  req.SubmissionID,
		CompetitionID: chi.URLParam(r, "competitionID"),
		EventID:       req.EventID,
		AthleteID:     req.AthleteID,
		Score:         req.Score,
		Tiebreak:      req.Tiebreak,
	})
	if err != nil {
		fail(w, Wrap(op, err))
		return
	}
	if duplicate {
		writeJSON(w, http.StatusOK, ackResponse{Status: "duplicate", Duplicate: true})
		return
	}
	writeJSON(w, http.StatusAccepted, ackResponse{Status: "accepted"})
}

// HandleWithdraw handles POST /competitions/{competitionID}/athletes/{athleteID}/withdraw.
func (h *ScoresHandler) HandleWithdraw(w http.ResponseWriter, r *http.Request) {
	const op = "api.withdraw"
	err := h.deps.Withdraw(r.Context(), chi.URLParam(r, "competitionID"), chi.URLParam(r, "athleteID"))
	if err != nil {
		fail(w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusAccepted, ackResponse{Status: "accepted"})
}
