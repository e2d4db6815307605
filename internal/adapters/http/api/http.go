// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	service "github.com/wodsmith/ranking/internal/app"
	"github.com/wodsmith/ranking/internal/domain/model"
	"github.com/wodsmith/ranking/internal/domain/scoring"
	"github.com/wodsmith/ranking/internal/domain/types"
	"github.com/wodsmith/ranking/pkg/logger"

	"github.com/go-chi/chi/v5"
)

const (
	defaultMaxLeaderboardLimit = 1000
	maxBodyBytes               = 1 << 20
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	ScoreDependencies
	CompetitionDependencies
	LeaderboardDependencies
	RankDependencies
	StatsProvider
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler      *HealthHandler
	statsHandler       *StatsHandler
	scoresHandler      *ScoresHandler
	competitionHandler *CompetitionHandler
	leaderboardHandler *LeaderboardHandler
	rankHandler        *RankHandler

	maxLimit    int
	submitRate  float64
	submitBurst int
	logger      logger.Logger
}

// Option configures a Server.
type Option func(*Server)

// WithMaxLeaderboardLimit caps the limit query parameter of leaderboard reads.
func WithMaxLeaderboardLimit(n int) Option {
	return func(s *Server) {
		if n > 0 {
			s.maxLimit = n
		}
	}
}

// WithSubmitRateLimit limits score submissions per client address. A
// non-positive rate disables limiting.
func WithSubmitRateLimit(perSecond float64, burst int) Option {
	return func(s *Server) {
		s.submitRate = perSecond
		s.submitBurst = burst
	}
}

// WithLogger sets the logger used for server-side failures.
func WithLogger(l logger.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, opts ...Option) *Server {
	s := &Server{maxLimit: defaultMaxLeaderboardLimit}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("api")
	}

	var limiter *IPRateLimiter
	if s.submitRate > 0 {
		limiter = NewIPRateLimiter(s.submitRate, max(s.submitBurst, 1))
	}

	s.healthHandler = NewHealthHandler()
	s.statsHandler = NewStatsHandler(deps)
	s.scoresHandler = NewScoresHandler(deps, limiter)
	s.competitionHandler = NewCompetitionHandler(deps)
	s.leaderboardHandler = NewLeaderboardHandler(deps, s.maxLimit)
	s.rankHandler = NewRankHandler(deps)
	return s
}

// Register attaches all HTTP routes to r.
func (s *Server) Register(ctx context.Context, r chi.Router) {
	s.logger.Debug(ctx, "registering api routes", logger.Int("max_leaderboard_limit", s.maxLimit))

	r.Get("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	r.Get("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	r.Post("/scores/parse", MetricsMiddleware(s.scoresHandler.HandleParse, "scores_parse"))

	r.Route("/competitions/{competitionID}", func(r chi.Router) {
		r.Put("/", MetricsMiddleware(s.competitionHandler.HandlePut, "competition_put"))
		r.Get("/", MetricsMiddleware(s.competitionHandler.HandleGet, "competition_get"))
		r.Post("/scores", MetricsMiddleware(s.scoresHandler.HandleSubmit, "scores_submit"))
		r.Post("/athletes/{athleteID}/withdraw", MetricsMiddleware(s.scoresHandler.HandleWithdraw, "withdraw"))
		r.Get("/athletes/{athleteID}", MetricsMiddleware(s.rankHandler.HandleGetRank, "rank"))
		r.Get("/leaderboard", MetricsMiddleware(s.leaderboardHandler.HandleGetLeaderboard, "leaderboard"))
		r.Get("/events/{eventID}/results", MetricsMiddleware(s.leaderboardHandler.HandleGetEventResults, "event_results"))
	})
}

// Handler returns a router with every API route registered.
func (s *Server) Handler(ctx context.Context) http.Handler {
	r := chi.NewRouter()
	s.Register(ctx, r)
	return r
}

// CompetitionDependencies defines the competition definition operations.
type CompetitionDependencies interface {
	PutCompetition(ctx context.Context, c model.Competition) (types.Standings, error)
	Competition(ctx context.Context, id string) (model.Competition, error)
}

// LeaderboardDependencies defines the interface for leaderboard reads.
type LeaderboardDependencies interface {
	Standings(ctx context.Context, competitionID string) (*types.Standings, error)
	EventResults(ctx context.Context, competitionID, eventID string) ([]scoring.EventPointsResult, error)
}

// ScoreDependencies defines the score submission operations.
type ScoreDependencies interface {
	SubmitScore(ctx context.Context, sub service.Submission) (bool, error)
	Withdraw(ctx context.Context, competitionID, athleteID string) error
}

type ackResponse struct {
	Status    string `json:"status"`
	Duplicate bool   `json:"duplicate"`
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// fail writes err with the status its kind maps to.
func fail(w http.ResponseWriter, err error) {
	status, code := classify(err)
	writeError(w, status, code, err)
}

// decodeJSON reads a single JSON document from the request body.
func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return err
	}
	if dec.More() {
		return errors.New("unexpected data after JSON body")
	}
	return nil
}
