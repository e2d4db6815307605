package repository

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/wodsmith/ranking/internal/domain/leaderboard"
	"github.com/wodsmith/ranking/internal/domain/model"
	"github.com/wodsmith/ranking/internal/domain/score"
	"github.com/wodsmith/ranking/internal/domain/scoring"
	"github.com/wodsmith/ranking/internal/domain/types"
	"github.com/wodsmith/ranking/pkg/metrics"
)

const defaultMetricsUpdateInterval = 5 * time.Second

// eventScores keeps one score per athlete in first-entry order so that
// recomputes see a stable input order.
type eventScores struct {
	order []string
	byID  map[string]sequencedScore
}

type sequencedScore struct {
	score.NormalizedScore
	seq uint64
}

// put stores s unless a later entry for the same athlete is already held.
// It reports whether s was stored.
func (e *eventScores) put(s score.NormalizedScore, seq uint64) bool {
	if e.byID == nil {
		e.byID = make(map[string]sequencedScore)
	}
	cur, ok := e.byID[s.AthleteID]
	if !ok {
		e.order = append(e.order, s.AthleteID)
	} else if seq != 0 && seq < cur.seq {
		return false
	}
	e.byID[s.AthleteID] = sequencedScore{NormalizedScore: s, seq: seq}
	return true
}

func (e *eventScores) inputs() []scoring.EventScoreInput {
	out := make([]scoring.EventScoreInput, 0, len(e.order))
	for _, id := range e.order {
		s := e.byID[id]
		out = append(out, scoring.EventScoreInput{
			UserID:    s.AthleteID,
			Value:     s.Value,
			Status:    s.Status,
			Secondary: s.Secondary,
		})
	}
	return out
}

type competitionState struct {
	mu        sync.RWMutex
	comp      model.Competition
	scores    map[string]*eventScores
	standings atomic.Pointer[types.Standings]
}

// MemoryStore is an in-memory Store. Standings are published as immutable
// snapshots behind an atomic pointer so reads never wait on writers.
type MemoryStore struct {
	mu    sync.RWMutex
	comps map[string]*competitionState

	metricsUpdateInterval time.Duration
	stopChan              chan struct{}
	wg                    sync.WaitGroup
}

// NewMemoryStore constructs a store and starts its metrics updater, which
// stops when ctx is done or Close is called.
func NewMemoryStore(ctx context.Context, opts ...Option) *MemoryStore {
	s := &MemoryStore{
		comps:                 make(map[string]*competitionState),
		metricsUpdateInterval: defaultMetricsUpdateInterval,
		stopChan:              make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.startMetricsUpdater(ctx)
	return s
}

// Close stops background goroutines.
func (s *MemoryStore) Close() error {
	select {
	case <-s.stopChan:
	default:
		close(s.stopChan)
	}
	s.wg.Wait()
	return nil
}

func (s *MemoryStore) state(id string) (*competitionState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.comps[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrCompetitionNotFound, id)
	}
	return st, nil
}

// PutCompetition implements Store.
func (s *MemoryStore) PutCompetition(_ context.Context, c model.Competition) error {
	defer observe(metrics.RecordRepositoryUpdateLatency)()

	if err := c.Validate(); err != nil {
		return err
	}
	c.Events = slices.Clone(c.Events)
	c.Athletes = slices.Clone(c.Athletes)

	s.mu.Lock()
	st, ok := s.comps[c.ID]
	if !ok {
		st = &competitionState{scores: make(map[string]*eventScores)}
		s.comps[c.ID] = st
	}
	s.mu.Unlock()

	st.mu.Lock()
	defer st.mu.Unlock()
	st.comp = c
	for eventID := range st.scores {
		if _, ok := c.Event(eventID); !ok {
			delete(st.scores, eventID)
		}
	}
	return nil
}

// Competition implements Store.
func (s *MemoryStore) Competition(_ context.Context, id string) (model.Competition, error) {
	defer observe(metrics.RecordRepositoryQueryLatency)()

	st, err := s.state(id)
	if err != nil {
		return model.Competition{}, err
	}
	st.mu.RLock()
	defer st.mu.RUnlock()
	return st.comp, nil
}

// Count implements Store.
func (s *MemoryStore) Count(context.Context) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.comps)
}

// ApplyScore implements Store. A score event without an event id is
// recorded for every event of the competition.
func (s *MemoryStore) ApplyScore(_ context.Context, e model.ScoreEvent) error { //nolint:gocritic // hugeParam
	defer observe(metrics.RecordRepositoryUpdateLatency)()

	st, err := s.state(e.CompetitionID)
	if err != nil {
		return err
	}

	st.mu.Lock()
	defer st.mu.Unlock()

	var targets []string
	if e.AllEvents() {
		for _, ev := range st.comp.Events {
			targets = append(targets, ev.ID)
		}
	} else {
		if _, ok := st.comp.Event(e.EventID); !ok {
			return fmt.Errorf("%w: %s/%s", ErrEventNotFound, e.CompetitionID, e.EventID)
		}
		targets = []string{e.EventID}
	}

	for _, id := range targets {
		es, ok := st.scores[id]
		if !ok {
			es = &eventScores{}
			st.scores[id] = es
		}
		if !es.put(e.Score, e.Sequence) {
			metrics.RecordStaleScore()
		}
	}
	return nil
}

// Scores implements Store.
func (s *MemoryStore) Scores(_ context.Context, competitionID string) (leaderboard.Scores, error) {
	defer observe(metrics.RecordRepositoryQueryLatency)()

	st, err := s.state(competitionID)
	if err != nil {
		return nil, err
	}
	st.mu.RLock()
	defer st.mu.RUnlock()

	out := make(leaderboard.Scores, len(st.scores))
	for eventID, es := range st.scores {
		out[eventID] = es.inputs()
	}
	return out, nil
}

// PublishStandings implements Store. Versions increase by one per publish.
func (s *MemoryStore) PublishStandings(_ context.Context, standings types.Standings) (types.Standings, error) {
	defer observe(metrics.RecordRepositoryUpdateLatency)()

	st, err := s.state(standings.CompetitionID)
	if err != nil {
		return types.Standings{}, err
	}

	st.mu.Lock()
	defer st.mu.Unlock()
	if prev := st.standings.Load(); prev != nil {
		standings.Version = prev.Version + 1
	} else {
		standings.Version = 1
	}
	st.standings.Store(&standings)
	metrics.RecordSnapshotPublished()
	return standings, nil
}

// Standings implements Store.
func (s *MemoryStore) Standings(_ context.Context, competitionID string) (*types.Standings, error) {
	defer observe(metrics.RecordRepositoryQueryLatency)()

	st, err := s.state(competitionID)
	if err != nil {
		return nil, err
	}
	snap := st.standings.Load()
	if snap == nil {
		return nil, fmt.Errorf("%w: %s", ErrStandingsNotReady, competitionID)
	}
	return snap, nil
}

// TopN implements Store.
func (s *MemoryStore) TopN(ctx context.Context, competitionID string, n int) ([]types.StandingEntry, error) {
	if n < 1 {
		metrics.RecordErrorByComponent("repository", "invalid_limit")
		return nil, ErrInvalidLimit
	}
	snap, err := s.Standings(ctx, competitionID)
	if err != nil {
		return nil, err
	}
	return snap.Top(n), nil
}

// Rank implements Store.
func (s *MemoryStore) Rank(ctx context.Context, competitionID, athleteID string) (types.StandingEntry, error) {
	snap, err := s.Standings(ctx, competitionID)
	if err != nil {
		return types.StandingEntry{}, err
	}
	e, ok := snap.Entry(athleteID)
	if !ok {
		metrics.RecordErrorByComponent("repository", "not_found")
		return types.StandingEntry{}, fmt.Errorf("%w: %s", ErrAthleteNotFound, athleteID)
	}
	return e, nil
}

func (s *MemoryStore) startMetricsUpdater(ctx context.Context) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(s.metricsUpdateInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-s.stopChan:
				return
			case <-ticker.C:
				s.updateMetrics()
			}
		}
	}()
}

func (s *MemoryStore) updateMetrics() {
	s.mu.RLock()
	states := make([]*competitionState, 0, len(s.comps))
	for _, st := range s.comps {
		states = append(states, st)
	}
	s.mu.RUnlock()

	total := 0
	for _, st := range states {
		st.mu.RLock()
		for _, es := range st.scores {
			total += len(es.order)
		}
		st.mu.RUnlock()
	}
	metrics.UpdateCompetitions(len(states))
	metrics.UpdateScoresStored(total)
}

// observe times a repository call: defer observe(record)().
func observe(record func(ms float64)) func() {
	start := time.Now()
	return func() {
		record(float64(time.Since(start).Microseconds()) / 1000)
	}
}
