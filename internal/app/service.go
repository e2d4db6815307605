// Package service provides the core business service that implements
// the dependencies required by the HTTP API.
package service

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	eventqueue "github.com/wodsmith/ranking/internal/adapters/mq/queue"
	workerpool "github.com/wodsmith/ranking/internal/adapters/mq/worker"
	"github.com/wodsmith/ranking/internal/adapters/repository"
	"github.com/wodsmith/ranking/internal/domain/dedupe"
	"github.com/wodsmith/ranking/internal/domain/leaderboard"
	"github.com/wodsmith/ranking/internal/domain/model"
	"github.com/wodsmith/ranking/internal/domain/score"
	"github.com/wodsmith/ranking/internal/domain/scoring"
	"github.com/wodsmith/ranking/internal/domain/types"
	"github.com/wodsmith/ranking/pkg/logger"
	"github.com/wodsmith/ranking/pkg/metrics"

	"github.com/google/uuid"
)

var (
	// ErrNotStarted is returned by write operations before Start.
	ErrNotStarted = errors.New("service not started")
	// ErrBackpressure is returned when the score queue is full.
	ErrBackpressure = errors.New("score queue is full")
)

const shutdownTimeout = 10 * time.Second

// Submission is a raw score as entered by a judge.
type Submission struct {
	// SubmissionID identifies the submission for deduplication. When empty
	// the submission is never treated as a duplicate and gets a fresh id.
	SubmissionID  string
	CompetitionID string
	EventID       string
	AthleteID     string
	Score         string
	Tiebreak      string
}

// Service implements the API dependencies for the ranking system.
type Service struct {
	mu sync.RWMutex

	// Core components
	store      repository.Store
	deduper    dedupe.Deduper
	eventQueue eventqueue.Queue
	workerPool *workerpool.Pool

	// recompute locks keyed by competition id
	locks sync.Map

	// last sequence stamped on an accepted score event
	seq atomic.Uint64

	// Configuration
	workerCount int
	queueSize   int
	dedupeSize  int

	// State
	started bool
	cancel  context.CancelFunc

	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithWorkerCount sets the number of worker goroutines.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithQueueSize sets the maximum size of the score queue.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithDedupeSize sets the size of the deduplication cache.
func WithDedupeSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.dedupeSize = size
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithStore replaces the default in-memory store.
func WithStore(store repository.Store) Option {
	return func(s *Service) {
		if store != nil {
			s.store = store
		}
	}
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		workerCount: runtime.NumCPU(),
		queueSize:   10000,
		dedupeSize:  50000,
	}

	for _, opt := range opts {
		opt(s)
	}
	// Seeded from the clock so a restarted service sharing a store keeps
	// issuing sequences above the ones it already stored.
	s.seq.Store(uint64(time.Now().UnixNano()))

	return s
}

// nextSeq returns the sequence for the next accepted score event.
func (s *Service) nextSeq() uint64 {
	return s.seq.Add(1)
}

// Start initializes and starts the service components.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}

	if s.logger == nil {
		s.logger = logger.Get().Named("service")
	}

	s.logger.Info(ctx, "starting ranking service...")

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	s.cancel = cancel

	if s.store == nil {
		s.store = repository.NewMemoryStore(runCtx)
	}
	s.deduper = dedupe.NewInMemoryDeduper(
		dedupe.WithMaxSize(s.dedupeSize),
	)
	q := eventqueue.NewInMemoryQueue(
		eventqueue.WithCapacity(s.queueSize),
	)
	s.eventQueue = q

	s.workerPool = workerpool.NewPool(s.workerCount, q, s)
	s.workerPool.Start(runCtx)

	s.started = true
	s.logger.Info(ctx, "ranking service started",
		logger.Int("workers", s.workerCount),
		logger.Int("queue_size", s.queueSize),
		logger.Int("dedupe_size", s.dedupeSize),
	)

	return nil
}

// Stop drains the queue and shuts down the service.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	s.logger.Info(ctx, "stopping ranking service...")

	if err := s.workerPool.Shutdown(ctx); err != nil {
		s.logger.Warn(ctx, "worker pool shutdown", logger.Error(err))
	}
	s.cancel()

	if closer, ok := s.store.(interface{ Close() error }); ok {
		_ = closer.Close()
	}

	s.started = false
	s.logger.Info(ctx, "ranking service stopped")
}

func (s *Service) running() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.started
}

// SubmitScore normalizes a raw score and enqueues it for recomputation. It
// reports duplicate when the submission id was already accepted. Invalid
// scores return an error wrapping score.ErrInvalidScore; a full queue
// returns ErrBackpressure.
func (s *Service) SubmitScore(ctx context.Context, sub Submission) (duplicate bool, err error) {
	if !s.running() {
		return false, ErrNotStarted
	}

	comp, err := s.store.Competition(ctx, sub.CompetitionID)
	if err != nil {
		return false, err
	}
	def, ok := comp.Event(sub.EventID)
	if !ok {
		metrics.RecordScoreRejected("unknown_event")
		return false, fmt.Errorf("%w: %s/%s", repository.ErrEventNotFound, sub.CompetitionID, sub.EventID)
	}

	ns, err := score.Normalize(sub.AthleteID, sub.Score, sub.Tiebreak, def.Workout())
	if err != nil {
		metrics.RecordScoreRejected("invalid_score")
		return false, err
	}

	id, key := sub.SubmissionID, ""
	if id == "" {
		id = uuid.NewString()
	} else {
		key = sub.CompetitionID + "/" + id
		if s.deduper.SeenAndRecord(ctx, key) {
			metrics.RecordScoreDuplicate()
			s.logger.Debug(ctx, "duplicate submission",
				logger.String("competition_id", sub.CompetitionID),
				logger.String("submission_id", id),
			)
			return true, nil
		}
	}

	ok = s.eventQueue.Enqueue(ctx, model.ScoreEvent{
		SubmissionID:  id,
		CompetitionID: sub.CompetitionID,
		EventID:       sub.EventID,
		Score:         ns,
		Sequence:      s.nextSeq(),
		SubmittedAt:   time.Now(),
	})
	if !ok {
		// allow the client to retry the same submission
		if key != "" {
			s.deduper.Unrecord(ctx, key)
		}
		metrics.RecordScoreRejected("backpressure")
		return false, ErrBackpressure
	}

	metrics.RecordScoreAccepted()
	return false, nil
}

// Withdraw enqueues a withdrawal of athleteID from every event of the
// competition.
func (s *Service) Withdraw(ctx context.Context, competitionID, athleteID string) error {
	if !s.running() {
		return ErrNotStarted
	}
	if _, err := s.store.Competition(ctx, competitionID); err != nil {
		return err
	}

	ok := s.eventQueue.Enqueue(ctx, model.ScoreEvent{
		SubmissionID:  "withdraw/" + athleteID,
		CompetitionID: competitionID,
		Score:         score.Withdrawn(athleteID),
		Sequence:      s.nextSeq(),
		SubmittedAt:   time.Now(),
	})
	if !ok {
		metrics.RecordScoreRejected("backpressure")
		return ErrBackpressure
	}
	return nil
}

// Process implements worker.Processor: it applies one score event and
// republishes the competition's standings.
func (s *Service) Process(ctx context.Context, e model.ScoreEvent) error { //nolint:gocritic // hugeParam
	mu := s.lock(e.CompetitionID)
	mu.Lock()
	defer mu.Unlock()

	if err := s.store.ApplyScore(ctx, e); err != nil {
		return err
	}
	_, err := s.recompute(ctx, e.CompetitionID)
	return err
}

func (s *Service) lock(competitionID string) *sync.Mutex {
	mu, _ := s.locks.LoadOrStore(competitionID, &sync.Mutex{})
	return mu.(*sync.Mutex)
}

// recompute must be called with the competition's lock held.
func (s *Service) recompute(ctx context.Context, competitionID string) (types.Standings, error) {
	start := time.Now()

	comp, err := s.store.Competition(ctx, competitionID)
	if err != nil {
		metrics.RecordRecomputeError()
		return types.Standings{}, err
	}
	scores, err := s.store.Scores(ctx, competitionID)
	if err != nil {
		metrics.RecordRecomputeError()
		return types.Standings{}, err
	}
	standings, err := leaderboard.Compute(ctx, comp, scores)
	if err != nil {
		metrics.RecordRecomputeError()
		return types.Standings{}, fmt.Errorf("recompute %s: %w", competitionID, err)
	}
	published, err := s.store.PublishStandings(ctx, standings)
	if err != nil {
		metrics.RecordRecomputeError()
		return types.Standings{}, err
	}

	metrics.RecordRecompute(float64(time.Since(start).Milliseconds()))
	s.logger.Debug(ctx, "standings published",
		logger.String("competition_id", competitionID),
		logger.Int64("version", int64(published.Version)),
		logger.Int("athletes", len(published.Entries)),
	)
	return published, nil
}

// PutCompetition creates or replaces a competition and publishes its
// standings before returning.
func (s *Service) PutCompetition(ctx context.Context, c model.Competition) (types.Standings, error) { //nolint:gocritic // hugeParam
	if !s.running() {
		return types.Standings{}, ErrNotStarted
	}

	mu := s.lock(c.ID)
	mu.Lock()
	defer mu.Unlock()

	if err := s.store.PutCompetition(ctx, c); err != nil {
		return types.Standings{}, err
	}
	return s.recompute(ctx, c.ID)
}

// LoadFixture stores a preloaded competition with its scores and publishes
// its standings.
func (s *Service) LoadFixture(ctx context.Context, f *repository.Fixture) error {
	if !s.running() {
		return ErrNotStarted
	}

	mu := s.lock(f.ID)
	mu.Lock()
	defer mu.Unlock()

	if err := f.Load(ctx, s.store); err != nil {
		return err
	}
	_, err := s.recompute(ctx, f.ID)
	return err
}

// Competition returns a stored competition definition.
func (s *Service) Competition(ctx context.Context, id string) (model.Competition, error) {
	if !s.running() {
		return model.Competition{}, ErrNotStarted
	}
	return s.store.Competition(ctx, id)
}

// Standings returns the latest published standings of a competition.
func (s *Service) Standings(ctx context.Context, competitionID string) (*types.Standings, error) {
	if !s.running() {
		return nil, ErrNotStarted
	}
	return s.store.Standings(ctx, competitionID)
}

// Rank returns the standing of one athlete.
func (s *Service) Rank(ctx context.Context, competitionID, athleteID string) (types.StandingEntry, error) {
	if !s.running() {
		return types.StandingEntry{}, ErrNotStarted
	}
	return s.store.Rank(ctx, competitionID, athleteID)
}

// EventResults returns the ranked results of one event from the latest
// standings.
func (s *Service) EventResults(ctx context.Context, competitionID, eventID string) ([]scoring.EventPointsResult, error) {
	if !s.running() {
		return nil, ErrNotStarted
	}

	comp, err := s.store.Competition(ctx, competitionID)
	if err != nil {
		return nil, err
	}
	if _, ok := comp.Event(eventID); !ok {
		return nil, fmt.Errorf("%w: %s/%s", repository.ErrEventNotFound, competitionID, eventID)
	}
	standings, err := s.store.Standings(ctx, competitionID)
	if err != nil {
		return nil, err
	}
	results := standings.Events[eventID]
	if results == nil {
		results = []scoring.EventPointsResult{}
	}
	return results, nil
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx := context.Background()
	stats := map[string]any{
		"started":      s.started,
		"worker_count": s.workerCount,
		"queue_size":   s.queueSize,
		"dedupe_size":  s.dedupeSize,
	}

	if s.started {
		queueLen := s.eventQueue.Len(ctx)
		competitions := s.store.Count(ctx)

		stats["queue_length"] = queueLen
		stats["competitions"] = competitions
		stats["active_workers"] = s.workerPool.Active()
		stats["dedupe_entries"] = s.deduper.Size()

		metrics.UpdateQueueSize(queueLen)
		metrics.UpdateCompetitions(competitions)
	}

	return stats
}
