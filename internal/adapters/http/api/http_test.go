package api_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
	"github.com/wodsmith/ranking/internal/adapters/http/api"
	"github.com/wodsmith/ranking/internal/adapters/repository"
	service "github.com/wodsmith/ranking/internal/app"
	"github.com/wodsmith/ranking/internal/domain/model"
	"github.com/wodsmith/ranking/internal/domain/score"
	"github.com/wodsmith/ranking/internal/domain/scoring"
	"github.com/wodsmith/ranking/internal/domain/types"
)

// mockDependencies implements api.Dependencies.
type mockDependencies struct {
	submitted  []service.Submission
	submitErr  error
	duplicate  bool
	withdrawn  []string
	stored     *model.Competition
	standings  *types.Standings
	results    []scoring.EventPointsResult
	readErr    error
	stats      map[string]any
	putVersion uint64
}

func (m *mockDependencies) SubmitScore(_ context.Context, sub service.Submission) (bool, error) {
	if m.submitErr != nil {
		return false, m.submitErr
	}
	m.submitted = append(m.submitted, sub)
	return m.duplicate, nil
}

func (m *mockDependencies) Withdraw(_ context.Context, competitionID, athleteID string) error {
	if m.readErr != nil {
		return m.readErr
	}
	m.withdrawn = append(m.withdrawn, competitionID+"/"+athleteID)
	return nil
}

func (m *mockDependencies) PutCompetition(_ context.Context, c model.Competition) (types.Standings, error) {
	if err := c.Validate(); err != nil {
		return types.Standings{}, err
	}
	m.stored = &c
	return types.Standings{CompetitionID: c.ID, Version: m.putVersion}, nil
}

func (m *mockDependencies) Competition(_ context.Context, id string) (model.Competition, error) {
	if m.stored == nil || m.stored.ID != id {
		return model.Competition{}, fmt.Errorf("%w: %s", repository.ErrCompetitionNotFound, id)
	}
	return *m.stored, nil
}

func (m *mockDependencies) Standings(_ context.Context, _ string) (*types.Standings, error) {
	if m.readErr != nil {
		return nil, m.readErr
	}
	return m.standings, nil
}

func (m *mockDependencies) EventResults(_ context.Context, _, _ string) ([]scoring.EventPointsResult, error) {
	if m.readErr != nil {
		return nil, m.readErr
	}
	return m.results, nil
}

func (m *mockDependencies) Rank(_ context.Context, _, athleteID string) (types.StandingEntry, error) {
	if m.readErr != nil {
		return types.StandingEntry{}, m.readErr
	}
	e, ok := m.standings.Entry(athleteID)
	if !ok {
		return types.StandingEntry{}, repository.ErrAthleteNotFound
	}
	return e, nil
}

func (m *mockDependencies) GetStats() map[string]any {
	return m.stats
}

func sampleStandings() *types.Standings {
	return &types.Standings{
		CompetitionID: "open",
		Version:       3,
		Algorithm:     scoring.AlgorithmTraditional,
		Entries: []types.StandingEntry{
			{Rank: 1, AthleteID: "a", TotalPoints: 200},
			{Rank: 2, AthleteID: "b", TotalPoints: 190},
			{Rank: 3, AthleteID: "c", TotalPoints: 180},
		},
	}
}

func do(h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decode(w *httptest.ResponseRecorder, v any) {
	So(json.Unmarshal(w.Body.Bytes(), v), ShouldBeNil)
}

func TestServer_Routes(t *testing.T) {
	Convey("Given an API server with mocked dependencies", t, func() {
		deps := &mockDependencies{
			standings: sampleStandings(),
			stats:     map[string]any{"started": true},
		}
		h := api.NewServer(deps, api.WithMaxLeaderboardLimit(2)).Handler(context.Background())

		Convey("Then health should expose metrics", func() {
			w := do(h, http.MethodGet, "/healthz", "")
			So(w.Code, ShouldEqual, http.StatusOK)
		})

		Convey("Then stats should be served as JSON", func() {
			w := do(h, http.MethodGet, "/stats", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			var got map[string]any
			decode(w, &got)
			So(got["started"], ShouldEqual, true)
		})

		Convey("Then unknown routes should 404", func() {
			w := do(h, http.MethodGet, "/unknown", "")
			So(w.Code, ShouldEqual, http.StatusNotFound)
		})

		Convey("Then the leaderboard should honor the limit", func() {
			w := do(h, http.MethodGet, "/competitions/open/leaderboard?limit=1", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			var got struct {
				Version uint64                `json:"version"`
				Total   int                   `json:"total"`
				Entries []types.StandingEntry `json:"entries"`
			}
			decode(w, &got)
			So(got.Version, ShouldEqual, 3)
			So(got.Total, ShouldEqual, 3)
			So(len(got.Entries), ShouldEqual, 1)
			So(got.Entries[0].AthleteID, ShouldEqual, "a")
		})

		Convey("Then a missing limit should fall back to the maximum", func() {
			w := do(h, http.MethodGet, "/competitions/open/leaderboard", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			var got struct {
				Entries []types.StandingEntry `json:"entries"`
			}
			decode(w, &got)
			So(len(got.Entries), ShouldEqual, 2)
		})

		Convey("Then invalid limits should be rejected", func() {
			for _, limit := range []string{"0", "-1", "abc"} {
				w := do(h, http.MethodGet, "/competitions/open/leaderboard?limit="+limit, "")
				So(w.Code, ShouldEqual, http.StatusBadRequest)
			}
			w := do(h, http.MethodGet, "/competitions/open/leaderboard?limit=3", "")
			So(w.Code, ShouldEqual, http.StatusBadRequest)
			var got map[string]string
			decode(w, &got)
			So(got["code"], ShouldEqual, "limit_exceeded")
		})

		Convey("Then a single athlete standing should be served", func() {
			w := do(h, http.MethodGet, "/competitions/open/athletes/b", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			var got types.StandingEntry
			decode(w, &got)
			So(got.Rank, ShouldEqual, 2)

			w = do(h, http.MethodGet, "/competitions/open/athletes/zz", "")
			So(w.Code, ShouldEqual, http.StatusNotFound)
		})

		Convey("Then event results should be served", func() {
			deps.results = []scoring.EventPointsResult{{UserID: "a", Points: 100, Rank: 1}}
			w := do(h, http.MethodGet, "/competitions/open/events/e1/results", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Body.String(), ShouldContainSubstring, `"event_id":"e1"`)
			So(w.Body.String(), ShouldContainSubstring, `"user_id":"a"`)
		})

		Convey("Then upstream errors should map to status codes", func() {
			cases := []struct {
				err  error
				code int
			}{
				{repository.ErrCompetitionNotFound, http.StatusNotFound},
				{fmt.Errorf("wrapped: %w", repository.ErrStandingsNotReady), http.StatusServiceUnavailable},
				{service.ErrNotStarted, http.StatusServiceUnavailable},
				{fmt.Errorf("boom"), http.StatusInternalServerError},
			}
			for _, c := range cases {
				deps.readErr = c.err
				w := do(h, http.MethodGet, "/competitions/open/leaderboard", "")
				So(w.Code, ShouldEqual, c.code)
			}
		})
	})
}

func TestServer_Scores(t *testing.T) {
	Convey("Given an API server with mocked dependencies", t, func() {
		deps := &mockDependencies{}
		h := api.NewServer(deps).Handler(context.Background())

		Convey("When a valid score is submitted", func() {
			w := do(h, http.MethodPost, "/competitions/open/scores",
				`{"submission_id":"s1","event_id":"e1","athlete_id":"a","score":"5:00"}`)

			Convey("Then it should be accepted and forwarded", func() {
				So(w.Code, ShouldEqual, http.StatusAccepted)
				So(len(deps.submitted), ShouldEqual, 1)
				So(deps.submitted[0].CompetitionID, ShouldEqual, "open")
				So(deps.submitted[0].Score, ShouldEqual, "5:00")
			})
		})

		Convey("When a duplicate is submitted", func() {
			deps.duplicate = true
			w := do(h, http.MethodPost, "/competitions/open/scores",
				`{"submission_id":"s1","event_id":"e1","athlete_id":"a","score":"5:00"}`)

			Convey("Then it should be acknowledged as a duplicate", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(w.Body.String(), ShouldContainSubstring, `"duplicate":true`)
			})
		})

		Convey("Then malformed submissions should be rejected", func() {
			bodies := []string{
				`not json`,
				`{"athlete_id":"a","score":"1"}`,
				`{"event_id":"e1","score":"1"}`,
				`{"event_id":"e1","athlete_id":"a","unknown":1}`,
			}
			for _, body := range bodies {
				w := do(h, http.MethodPost, "/competitions/open/scores", body)
				So(w.Code, ShouldEqual, http.StatusBadRequest)
			}
			So(deps.submitted, ShouldBeEmpty)
		})

		Convey("Then service errors should map to status codes", func() {
			cases := []struct {
				err  error
				code int
				name string
			}{
				{fmt.Errorf("%w: bad", score.ErrInvalidScore), http.StatusBadRequest, "invalid_score"},
				{repository.ErrEventNotFound, http.StatusNotFound, "not_found"},
				{service.ErrBackpressure, http.StatusTooManyRequests, "backpressure"},
			}
			for _, c := range cases {
				deps.submitErr = c.err
				w := do(h, http.MethodPost, "/competitions/open/scores",
					`{"event_id":"e1","athlete_id":"a","score":"x"}`)
				So(w.Code, ShouldEqual, c.code)
				var got map[string]string
				decode(w, &got)
				So(got["code"], ShouldEqual, c.name)
			}
		})

		Convey("Then withdrawals should be accepted", func() {
			w := do(h, http.MethodPost, "/competitions/open/athletes/a/withdraw", "")
			So(w.Code, ShouldEqual, http.StatusAccepted)
			So(deps.withdrawn, ShouldResemble, []string{"open/a"})
		})
	})

	Convey("Given an API server with a strict submission rate", t, func() {
		deps := &mockDependencies{}
		h := api.NewServer(deps, api.WithSubmitRateLimit(0.001, 1)).Handler(context.Background())
		body := `{"event_id":"e1","athlete_id":"a","score":"10"}`

		Convey("Then the second submission should be rate limited", func() {
			So(do(h, http.MethodPost, "/competitions/open/scores", body).Code, ShouldEqual, http.StatusAccepted)
			w := do(h, http.MethodPost, "/competitions/open/scores", body)
			So(w.Code, ShouldEqual, http.StatusTooManyRequests)
			So(w.Body.String(), ShouldContainSubstring, "rate_limited")
		})
	})
}

func TestServer_Parse(t *testing.T) {
	Convey("Given an API server", t, func() {
		h := api.NewServer(&mockDependencies{}).Handler(context.Background())

		type parsed struct {
			IsValid       bool   `json:"is_valid"`
			Error         string `json:"error"`
			RawValue      *int64 `json:"raw_value"`
			Status        string `json:"status"`
			Formatted     string `json:"formatted"`
			NeedsTieBreak bool   `json:"needs_tiebreak"`
			TiebreakValue *int64 `json:"tiebreak_value"`
		}

		Convey("When a time is parsed", func() {
			w := do(h, http.MethodPost, "/scores/parse", `{"scheme":"time","score":"5:07"}`)
			var got parsed
			decode(w, &got)

			Convey("Then it should be normalized to milliseconds", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(got.IsValid, ShouldBeTrue)
				So(*got.RawValue, ShouldEqual, 307000)
				So(got.Formatted, ShouldEqual, "5:07")
				So(got.Status, ShouldEqual, "scored")
			})
		})

		Convey("When a capped entry with a tiebreak is parsed", func() {
			w := do(h, http.MethodPost, "/scores/parse",
				`{"scheme":"time-with-cap","score":"CAP","time_cap_seconds":600,"tiebreak_scheme":"reps","tiebreak":"150"}`)
			var got parsed
			decode(w, &got)

			Convey("Then the status and tiebreak should be reported", func() {
				So(got.IsValid, ShouldBeTrue)
				So(got.Status, ShouldEqual, "cap")
				So(got.TiebreakValue, ShouldNotBeNil)
				So(*got.TiebreakValue, ShouldEqual, 150)
			})
		})

		Convey("When an invalid entry is parsed", func() {
			w := do(h, http.MethodPost, "/scores/parse", `{"scheme":"reps","score":"abc"}`)
			var got parsed
			decode(w, &got)

			Convey("Then it should be reported without an HTTP error", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(got.IsValid, ShouldBeFalse)
				So(got.Error, ShouldNotBeEmpty)
			})
		})

		Convey("Then an unknown scheme should be a bad request", func() {
			w := do(h, http.MethodPost, "/scores/parse", `{"scheme":"bogus","score":"1"}`)
			So(w.Code, ShouldEqual, http.StatusBadRequest)
		})
	})
}

func TestServer_Competitions(t *testing.T) {
	Convey("Given an API server with mocked dependencies", t, func() {
		deps := &mockDependencies{putVersion: 1}
		h := api.NewServer(deps).Handler(context.Background())

		Convey("When a competition is stored without an id in the body", func() {
			w := do(h, http.MethodPut, "/competitions/open",
				`{"name":"Open","scoring":{"algorithm":"online"},"events":[{"id":"e1","scheme":"reps"}]}`)

			Convey("Then the path id should be used and defaults filled in", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				var got struct {
					Competition      model.Competition `json:"competition"`
					StandingsVersion uint64            `json:"standings_version"`
				}
				decode(w, &got)
				So(got.Competition.ID, ShouldEqual, "open")
				So(got.Competition.Scoring.Algorithm, ShouldEqual, scoring.AlgorithmOnline)
				So(got.StandingsVersion, ShouldEqual, 1)
			})

			Convey("Then it should be readable", func() {
				w := do(h, http.MethodGet, "/competitions/open", "")
				So(w.Code, ShouldEqual, http.StatusOK)
				So(w.Body.String(), ShouldContainSubstring, `"id":"open"`)
			})
		})

		Convey("Then a mismatched body id should be rejected", func() {
			w := do(h, http.MethodPut, "/competitions/open", `{"id":"other","events":[]}`)
			So(w.Code, ShouldEqual, http.StatusBadRequest)
		})

		Convey("Then an invalid scoring config should be rejected", func() {
			w := do(h, http.MethodPut, "/competitions/open",
				`{"scoring":{"tiebreaker":{"primary":"head_to_head"}},"events":[{"id":"e1","scheme":"reps"}]}`)
			So(w.Code, ShouldEqual, http.StatusBadRequest)
			So(w.Body.String(), ShouldContainSubstring, "invalid_competition")
		})

		Convey("Then unknown competitions should 404", func() {
			w := do(h, http.MethodGet, "/competitions/missing", "")
			So(w.Code, ShouldEqual, http.StatusNotFound)
		})
	})
}

func TestServer_EndToEnd(t *testing.T) {
	Convey("Given an API server backed by a running service", t, func() {
		ctx := context.Background()
		svc := service.New(service.WithWorkerCount(2))
		So(svc.Start(ctx), ShouldBeNil)
		defer svc.Stop()
		srv := httptest.NewServer(api.NewServer(svc).Handler(ctx))
		defer srv.Close()

		put := func(body string) int {
			req, err := http.NewRequest(http.MethodPut, srv.URL+"/competitions/open", strings.NewReader(body))
			So(err, ShouldBeNil)
			resp, err := http.DefaultClient.Do(req)
			So(err, ShouldBeNil)
			resp.Body.Close()
			return resp.StatusCode
		}
		post := func(path, body string) int {
			resp, err := http.Post(srv.URL+path, "application/json", strings.NewReader(body))
			So(err, ShouldBeNil)
			resp.Body.Close()
			return resp.StatusCode
		}

		So(put(`{"events":[{"id":"e1","scheme":"reps"}],"athletes":[{"id":"a"},{"id":"b"}]}`), ShouldEqual, http.StatusOK)

		Convey("When scores are submitted over HTTP", func() {
			So(post("/competitions/open/scores", `{"event_id":"e1","athlete_id":"a","score":"50"}`), ShouldEqual, http.StatusAccepted)
			So(post("/competitions/open/scores", `{"event_id":"e1","athlete_id":"b","score":"60"}`), ShouldEqual, http.StatusAccepted)
			So(post("/competitions/open/scores", `{"event_id":"e1","athlete_id":"b","score":"oops"}`), ShouldEqual, http.StatusBadRequest)

			Convey("Then the leaderboard should eventually rank them", func() {
				var got struct {
					Version uint64                `json:"version"`
					Entries []types.StandingEntry `json:"entries"`
				}
				deadline := time.Now().Add(5 * time.Second)
				for time.Now().Before(deadline) {
					resp, err := http.Get(srv.URL + "/competitions/open/leaderboard?limit=10")
					So(err, ShouldBeNil)
					err = json.NewDecoder(resp.Body).Decode(&got)
					resp.Body.Close()
					So(err, ShouldBeNil)
					if got.Version >= 3 {
						break
					}
					time.Sleep(10 * time.Millisecond)
				}
				So(got.Version, ShouldEqual, 3)
				So(got.Entries[0].AthleteID, ShouldEqual, "b")
				So(got.Entries[0].TotalPoints, ShouldEqual, 100)
				So(got.Entries[1].TotalPoints, ShouldEqual, 95)
			})
		})
	})
}
