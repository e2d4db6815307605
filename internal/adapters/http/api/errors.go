package api

import (
	"errors"
	"net/http"

	"github.com/wodsmith/ranking/internal/adapters/repository"
	service "github.com/wodsmith/ranking/internal/app"
	"github.com/wodsmith/ranking/internal/domain/model"
	"github.com/wodsmith/ranking/internal/domain/score"
	"github.com/wodsmith/ranking/internal/domain/scoring"
)

// Sentinel kinds for API errors.
var (
	ErrBadRequest   = errors.New("bad request")
	ErrBackpressure = errors.New("backpressure")
	ErrRateLimited  = errors.New("rate limited")
)

// KindError tags an error with the operation that produced it and a sentinel
// kind that errors.Is can match.
type KindError struct {
	Op   string
	Kind error
	Err  error
}

func (e *KindError) Error() string {
	switch {
	case e.Kind != nil && e.Err != nil:
		return e.Op + ": " + e.Kind.Error() + ": " + e.Err.Error()
	case e.Kind != nil:
		return e.Op + ": " + e.Kind.Error()
	case e.Err != nil:
		return e.Op + ": " + e.Err.Error()
	default:
		return e.Op
	}
}

// Unwrap exposes both the kind and the cause.
func (e *KindError) Unwrap() []error {
	var errs []error
	if e.Kind != nil {
		errs = append(errs, e.Kind)
	}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

// NewKind returns an error of the given kind.
func NewKind(op string, kind error) error {
	return &KindError{Op: op, Kind: kind}
}

// WrapKind returns err tagged with kind.
func WrapKind(op string, kind, err error) error {
	return &KindError{Op: op, Kind: kind, Err: err}
}

// Wrap annotates err with op and keeps its kind.
func Wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	return &KindError{Op: op, Err: err}
}

// classify maps an error to an HTTP status and a stable error code.
func classify(err error) (int, string) {
	switch {
	case errors.Is(err, ErrRateLimited):
		return http.StatusTooManyRequests, "rate_limited"
	case errors.Is(err, ErrBackpressure), errors.Is(err, service.ErrBackpressure):
		return http.StatusTooManyRequests, "backpressure"
	case errors.Is(err, score.ErrInvalidScore):
		return http.StatusBadRequest, "invalid_score"
	case errors.Is(err, ErrBadRequest), errors.Is(err, repository.ErrInvalidLimit):
		return http.StatusBadRequest, "bad_request"
	case errors.Is(err, score.ErrInvalidScheme),
		errors.Is(err, scoring.ErrInvalidConfig),
		errors.Is(err, scoring.ErrHeadToHeadEventRequired),
		errors.Is(err, model.ErrInvalidCompetition):
		return http.StatusBadRequest, "invalid_competition"
	case errors.Is(err, repository.ErrCompetitionNotFound),
		errors.Is(err, repository.ErrEventNotFound),
		errors.Is(err, repository.ErrAthleteNotFound),
		errors.Is(err, repository.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, repository.ErrStandingsNotReady), errors.Is(err, service.ErrNotStarted):
		return http.StatusServiceUnavailable, "unavailable"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}
