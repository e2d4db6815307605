// Command rank computes leaderboards offline from competition fixture files
// and checks score entries against an event's scheme.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"

	"github.com/wodsmith/ranking/internal/adapters/repository"
	"github.com/wodsmith/ranking/internal/domain/leaderboard"
	"github.com/wodsmith/ranking/internal/domain/score"
	"github.com/wodsmith/ranking/internal/domain/scoring"
	"github.com/wodsmith/ranking/internal/domain/types"

	"github.com/urfave/cli/v2"
)

const (
	formatTable = "table"
	formatJSON  = "json"
)

var errUsage = errors.New("usage")

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newApp().RunContext(ctx, os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "rank:", err)
		os.Exit(1)
	}
}

func newApp() *cli.App {
	fileFlag := func() cli.Flag {
		return &cli.StringFlag{Name: "file", Aliases: []string{"f"}, Required: true, Usage: "competition fixture (YAML)"}
	}
	formatFlag := func() cli.Flag {
		return &cli.StringFlag{Name: "format", Value: formatTable, Usage: "output format: table or json"}
	}

	return &cli.App{
		Name:  "rank",
		Usage: "compute competition leaderboards from fixture files",
		Commands: []*cli.Command{
			{
				Name:  "leaderboard",
				Usage: "print the overall standings of a competition",
				Flags: []cli.Flag{
					fileFlag(),
					formatFlag(),
					&cli.IntFlag{Name: "top", Usage: "only print the first n rows"},
				},
				Action: leaderboardAction,
			},
			{
				Name:  "event",
				Usage: "print the placements of one event",
				Flags: []cli.Flag{
					fileFlag(),
					formatFlag(),
					&cli.StringFlag{Name: "event", Aliases: []string{"e"}, Required: true, Usage: "event id"},
				},
				Action: eventAction,
			},
			{
				Name:      "parse",
				Usage:     "parse a score entry",
				ArgsUsage: "SCORE",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "scheme", Required: true, Usage: "score scheme, e.g. time-with-cap"},
					&cli.IntFlag{Name: "cap", Usage: "time cap in seconds"},
					&cli.StringFlag{Name: "tiebreak-scheme", Usage: "scheme of the tiebreak value"},
					&cli.StringFlag{Name: "tiebreak", Usage: "tiebreak entry"},
				},
				Action: parseAction,
			},
		},
	}
}

// computeFile loads a fixture and computes its standings.
func computeFile(ctx context.Context, path string) (*repository.Fixture, leaderboard.Scores, types.Standings, error) {
	f, err := repository.LoadCompetitionFile(path)
	if err != nil {
		return nil, nil, types.Standings{}, err
	}
	scores, err := f.NormalizedScores()
	if err != nil {
		return nil, nil, types.Standings{}, err
	}
	standings, err := leaderboard.Compute(ctx, f.Competition, scores)
	if err != nil {
		return nil, nil, types.Standings{}, err
	}
	return f, scores, standings, nil
}

func leaderboardAction(c *cli.Context) error {
	f, _, standings, err := computeFile(c.Context, c.String("file"))
	if err != nil {
		return err
	}
	entries := standings.Top(c.Int("top"))
	if c.String("format") == formatJSON {
		return writeJSON(c.App.Writer, entries)
	}

	names := make(map[string]string, len(f.Athletes))
	for _, a := range f.Athletes {
		names[a.ID] = a.Name
	}

	tw := tabwriter.NewWriter(c.App.Writer, 0, 0, 2, ' ', 0)
	header := []string{"RANK", "ATHLETE", "POINTS"}
	for _, ev := range f.Events {
		header = append(header, strings.ToUpper(ev.ID))
	}
	fmt.Fprintln(tw, strings.Join(header, "\t"))
	for _, e := range entries {
		row := []string{fmt.Sprint(e.Rank), displayName(e.AthleteID, names[e.AthleteID]), fmt.Sprint(e.TotalPoints)}
		for _, ev := range f.Events {
			if p, ok := e.Events[ev.ID]; ok {
				row = append(row, fmt.Sprintf("%d (%d)", p.Rank, p.Points))
			} else {
				row = append(row, "-")
			}
		}
		fmt.Fprintln(tw, strings.Join(row, "\t"))
	}
	return tw.Flush()
}

func eventAction(c *cli.Context) error {
	f, scores, standings, err := computeFile(c.Context, c.String("file"))
	if err != nil {
		return err
	}
	eventID := c.String("event")
	def, ok := f.Event(eventID)
	if !ok {
		return fmt.Errorf("%w: %s", repository.ErrEventNotFound, eventID)
	}
	results := standings.Events[eventID]
	if c.String("format") == formatJSON {
		if results == nil {
			results = []scoring.EventPointsResult{}
		}
		return writeJSON(c.App.Writer, results)
	}

	entered := make(map[string]scoring.EventScoreInput, len(scores[eventID]))
	for _, in := range scores[eventID] {
		entered[in.UserID] = in
	}

	tw := tabwriter.NewWriter(c.App.Writer, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "RANK\tATHLETE\tPOINTS\tSCORE")
	for _, r := range results {
		fmt.Fprintf(tw, "%d\t%s\t%d\t%s\n", r.Rank, r.UserID, r.Points, describe(entered[r.UserID], def.Scheme))
	}
	return tw.Flush()
}

type parseOutput struct {
	IsValid       bool         `json:"is_valid"`
	Error         string       `json:"error,omitempty"`
	RawValue      *int64       `json:"raw_value"`
	Status        score.Status `json:"status"`
	Formatted     string       `json:"formatted,omitempty"`
	NeedsTieBreak bool         `json:"needs_tiebreak"`
	TiebreakValue *int64       `json:"tiebreak_value,omitempty"`
}

func parseAction(c *cli.Context) error {
	if c.NArg() != 1 {
		return fmt.Errorf("%w: rank parse --scheme SCHEME SCORE", errUsage)
	}
	scheme := score.Scheme(c.String("scheme"))
	if !scheme.Valid() {
		return fmt.Errorf("%w: %q", score.ErrInvalidScheme, scheme)
	}
	tbScheme := score.Scheme(c.String("tiebreak-scheme"))

	res := score.Parse(c.Args().First(), scheme,
		score.WithTimeCap(c.Int("cap")),
		score.WithTiebreakScheme(tbScheme),
	)
	out := parseOutput{
		IsValid:       res.IsValid,
		Error:         res.Error,
		RawValue:      res.RawValue,
		Status:        res.Status,
		NeedsTieBreak: res.NeedsTieBreak,
	}
	if res.RawValue != nil {
		out.Formatted = score.Format(*res.RawValue, scheme)
	}
	if tb := c.String("tiebreak"); res.IsValid && tbScheme != "" && tb != "" {
		v, err := score.ParseTiebreak(tb, tbScheme)
		if err != nil {
			out.IsValid = false
			out.Error = err.Error()
		} else {
			out.TiebreakValue = &v
		}
	}
	return writeJSON(c.App.Writer, out)
}

func describe(in scoring.EventScoreInput, scheme score.Scheme) string {
	switch in.Status {
	case score.StatusScored:
		return score.Format(in.Value, scheme)
	case score.StatusCap:
		if in.Secondary != nil {
			return fmt.Sprintf("CAP +%d", *in.Secondary)
		}
		return "CAP"
	default:
		return strings.ToUpper(in.Status.String())
	}
}

func displayName(id, name string) string {
	if name == "" {
		return id
	}
	return name + " (" + id + ")"
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
