package simulate

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync/atomic"
	"time"

	"github.com/wodsmith/ranking/internal/domain/model"
	"github.com/wodsmith/ranking/internal/domain/types"
	"github.com/wodsmith/ranking/pkg/logger"

	"golang.org/x/sync/errgroup"
)

const (
	maxSubmitAttempts = 5
	retryBackoff      = 50 * time.Millisecond
	pollInterval      = 50 * time.Millisecond
)

type outcome int

const (
	outcomeAccepted outcome = iota
	outcomeDuplicate
	outcomeRejected
	outcomeFailed
)

type ackResponse struct {
	Status    string `json:"status"`
	Duplicate bool   `json:"duplicate"`
}

type putResponse struct {
	Competition      model.Competition `json:"competition"`
	StandingsVersion uint64            `json:"standings_version"`
}

type leaderboardResponse struct {
	CompetitionID string                `json:"competition_id"`
	Version       uint64                `json:"version"`
	Total         int                   `json:"total"`
	Entries       []types.StandingEntry `json:"entries"`
}

// client talks to the ranking HTTP API.
type client struct {
	http    *http.Client
	baseURL string
}

func newClient(baseURL string, timeout time.Duration) *client {
	return &client{http: &http.Client{Timeout: timeout}, baseURL: baseURL}
}

func (c *client) competitionURL(id string, parts ...string) string {
	u := c.baseURL + "/competitions/" + url.PathEscape(id)
	for _, p := range parts {
		u += "/" + url.PathEscape(p)
	}
	return u
}

// do sends a JSON request and returns the status code and body.
func (c *client) do(ctx context.Context, method, u string, body any) (int, []byte, error) {
	var rd io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return 0, nil, fmt.Errorf("marshal request body: %w", err)
		}
		rd = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, u, rd)
	if err != nil {
		return 0, nil, fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, err
	}
	return resp.StatusCode, data, nil
}

func (c *client) putCompetition(ctx context.Context, comp model.Competition) (putResponse, error) { //nolint:gocritic // hugeParam
	var out putResponse
	status, body, err := c.do(ctx, http.MethodPut, c.competitionURL(comp.ID), comp)
	if err != nil {
		return out, err
	}
	if status != http.StatusOK {
		return out, fmt.Errorf("put competition: status %d: %s", status, bytes.TrimSpace(body))
	}
	if err := json.Unmarshal(body, &out); err != nil {
		return out, fmt.Errorf("decode put response: %w", err)
	}
	return out, nil
}

func (c *client) leaderboard(ctx context.Context, competitionID string) (leaderboardResponse, error) {
	var out leaderboardResponse
	status, body, err := c.do(ctx, http.MethodGet, c.competitionURL(competitionID, "leaderboard"), nil)
	if err != nil {
		return out, err
	}
	if status != http.StatusOK {
		return out, fmt.Errorf("leaderboard: status %d: %s", status, bytes.TrimSpace(body))
	}
	if err := json.Unmarshal(body, &out); err != nil {
		return out, fmt.Errorf("decode leaderboard: %w", err)
	}
	return out, nil
}

// submit posts one score, retrying while the server reports backpressure.
func (c *client) submit(ctx context.Context, competitionID string, sub Submission) outcome {
	u := c.competitionURL(competitionID, "scores")
	for attempt := range maxSubmitAttempts {
		status, body, err := c.do(ctx, http.MethodPost, u, sub)
		if err != nil {
			return outcomeFailed
		}
		switch {
		case status == http.StatusAccepted:
			return outcomeAccepted
		case status == http.StatusOK:
			var ack ackResponse
			if json.Unmarshal(body, &ack) == nil && ack.Duplicate {
				return outcomeDuplicate
			}
			return outcomeAccepted
		case status == http.StatusTooManyRequests:
			select {
			case <-ctx.Done():
				return outcomeFailed
			case <-time.After(retryBackoff * time.Duration(attempt+1)):
			}
		case status >= 400 && status < 500:
			return outcomeRejected
		default:
			return outcomeFailed
		}
	}
	return outcomeFailed
}

func (c *client) withdraw(ctx context.Context, competitionID, athleteID string) error {
	status, body, err := c.do(ctx, http.MethodPost, c.competitionURL(competitionID, "athletes", athleteID, "withdraw"), nil)
	if err != nil {
		return err
	}
	if status != http.StatusAccepted {
		return fmt.Errorf("withdraw %s: status %d: %s", athleteID, status, bytes.TrimSpace(body))
	}
	return nil
}

// submitAll posts every submission with cfg.Workers concurrent requests and
// returns the ones the server accepted. It stops early when ctx is done.
func submitAll(ctx context.Context, cfg *Config, c *client, competitionID string, subs []Submission, stats *Stats) ([]Submission, error) {
	log := logger.Get().Named("simulate")
	log.Info(ctx, "submitting scores", logger.Int("count", len(subs)), logger.Int("workers", cfg.Workers))

	var accepted, duplicate, rejected, failed atomic.Int64
	ok := make([]bool, len(subs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.Workers)
	for i, sub := range subs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			switch c.submit(gctx, competitionID, sub) {
			case outcomeAccepted:
				ok[i] = true
				accepted.Add(1)
			case outcomeDuplicate:
				duplicate.Add(1)
			case outcomeRejected:
				rejected.Add(1)
				if cfg.Verbose {
					log.Warn(gctx, "score rejected",
						logger.String("event_id", sub.EventID),
						logger.String("athlete_id", sub.AthleteID),
						logger.String("score", sub.Score))
				}
			default:
				failed.Add(1)
			}
			return nil
		})
	}
	waitErr := g.Wait()

	stats.ScoresAccepted = int(accepted.Load())
	stats.ScoresDuplicate = int(duplicate.Load())
	stats.ScoresRejected = int(rejected.Load())
	stats.ScoresFailed = int(failed.Load())

	log.Info(ctx, "score submission completed",
		logger.Int("accepted", stats.ScoresAccepted),
		logger.Int("duplicate", stats.ScoresDuplicate),
		logger.Int("rejected", stats.ScoresRejected),
		logger.Int("failed", stats.ScoresFailed),
	)
	if waitErr != nil {
		return nil, fmt.Errorf("submit scores: %w", waitErr)
	}

	out := make([]Submission, 0, stats.ScoresAccepted)
	for i, sub := range subs {
		if ok[i] {
			out = append(out, sub)
		}
	}
	return out, nil
}

// waitForVersion polls the leaderboard until it reaches version want or the
// settle timeout passes.
func waitForVersion(ctx context.Context, c *client, competitionID string, want uint64, timeout time.Duration) (leaderboardResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	var last leaderboardResponse
	for {
		lb, err := c.leaderboard(ctx, competitionID)
		if err == nil {
			last = lb
			if lb.Version >= want {
				return lb, nil
			}
		}
		select {
		case <-ctx.Done():
			return last, fmt.Errorf("%w: at version %d, want %d", ErrNotSettled, last.Version, want)
		case <-ticker.C:
		}
	}
}
