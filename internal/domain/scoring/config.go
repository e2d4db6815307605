// Package scoring turns per-event scores into ranks and points.
//
// Config describes how a competition awards points. It is authored once by
// an organizer and is read-only input to the calculators.
package scoring

import (
	"fmt"
	"strconv"

	"github.com/wodsmith/ranking/internal/domain/score"
)

// Default scoring parameters.
const (
	defaultFirstPlacePoints = 100
	defaultStep             = 5
)

// Algorithm selects how ranks become points.
type Algorithm string

// Supported scoring algorithms.
const (
	AlgorithmTraditional Algorithm = "traditional"
	AlgorithmPScore      Algorithm = "p_score"
	AlgorithmCustom      Algorithm = "custom"
	// AlgorithmOnline awards points equal to placement; lower totals win.
	AlgorithmOnline Algorithm = "online"
)

// Valid reports whether a is a known algorithm.
func (a Algorithm) Valid() bool {
	switch a {
	case AlgorithmTraditional, AlgorithmPScore, AlgorithmCustom, AlgorithmOnline:
		return true
	}
	return false
}

// LowerIsBetter reports whether lower point totals win under a.
func (a Algorithm) LowerIsBetter() bool {
	return a == AlgorithmOnline
}

// TiebreakMethod resolves athletes tied on total points.
type TiebreakMethod string

// Supported tiebreak methods.
const (
	TiebreakCountback  TiebreakMethod = "countback"
	TiebreakHeadToHead TiebreakMethod = "head_to_head"
	TiebreakNone       TiebreakMethod = "none"
)

// Valid reports whether m is a known method.
func (m TiebreakMethod) Valid() bool {
	switch m {
	case TiebreakCountback, TiebreakHeadToHead, TiebreakNone:
		return true
	}
	return false
}

// StatusPolicy decides how a non-finishing status is scored.
type StatusPolicy string

// Supported status policies.
const (
	PolicyLastPlace StatusPolicy = "last_place"
	PolicyZero      StatusPolicy = "zero"
	PolicyExclude   StatusPolicy = "exclude"
)

// Valid reports whether p is a known policy.
func (p StatusPolicy) Valid() bool {
	switch p {
	case PolicyLastPlace, PolicyZero, PolicyExclude:
		return true
	}
	return false
}

// MedianField selects which active scores feed the p-score median.
type MedianField string

// Supported median fields.
const (
	MedianAll     MedianField = "all"
	MedianTopHalf MedianField = "top_half"
)

// Template is the base points table of a custom table.
type Template string

// Supported custom table templates.
const (
	TemplateTraditional     Template = "traditional"
	TemplateWinnerTakesMore Template = "winner_takes_more"
)

// TraditionalConfig awards FirstPlacePoints to the winner and Step fewer
// points per place after that.
type TraditionalConfig struct {
	Step             int `json:"step" yaml:"step"`
	FirstPlacePoints int `json:"first_place_points" yaml:"first_place_points"`
}

// PScoreConfig parameterizes performance-relative scoring.
type PScoreConfig struct {
	AllowNegatives bool        `json:"allow_negatives" yaml:"allow_negatives"`
	MedianField    MedianField `json:"median_field" yaml:"median_field"`
}

// CustomTableConfig is a template with per-place overrides. Overrides are
// keyed by the place as a decimal string ("1", "3") to stay compatible
// with persisted configs.
type CustomTableConfig struct {
	BaseTemplate Template       `json:"base_template" yaml:"base_template"`
	Overrides    map[string]int `json:"overrides,omitempty" yaml:"overrides,omitempty"`
}

// TiebreakerConfig configures overall tiebreaks.
type TiebreakerConfig struct {
	Primary           TiebreakMethod `json:"primary" yaml:"primary"`
	Secondary         TiebreakMethod `json:"secondary,omitempty" yaml:"secondary,omitempty"`
	HeadToHeadEventID string         `json:"head_to_head_event_id,omitempty" yaml:"head_to_head_event_id,omitempty"`
}

// Validate checks the head-to-head requirement and method names.
func (t TiebreakerConfig) Validate() error {
	if !t.Primary.Valid() {
		return fmt.Errorf("%w: unknown primary tiebreaker %q", ErrInvalidConfig, t.Primary)
	}
	if t.Secondary != "" && !t.Secondary.Valid() {
		return fmt.Errorf("%w: unknown secondary tiebreaker %q", ErrInvalidConfig, t.Secondary)
	}
	if t.uses(TiebreakHeadToHead) && t.HeadToHeadEventID == "" {
		return ErrHeadToHeadEventRequired
	}
	return nil
}

func (t TiebreakerConfig) uses(m TiebreakMethod) bool {
	return t.Primary == m || t.Secondary == m
}

// StatusHandling holds the policy for each non-finishing status.
type StatusHandling struct {
	DNF       StatusPolicy `json:"dnf" yaml:"dnf"`
	DNS       StatusPolicy `json:"dns" yaml:"dns"`
	Withdrawn StatusPolicy `json:"withdrawn" yaml:"withdrawn"`
}

// PolicyFor returns the policy for status st. Active statuses have none.
func (h StatusHandling) PolicyFor(st score.Status) StatusPolicy {
	switch st {
	case score.StatusDNF:
		return h.DNF
	case score.StatusDNS:
		return h.DNS
	case score.StatusWithdrawn:
		return h.Withdrawn
	default:
		return ""
	}
}

// Config is the scoring configuration of one competition.
type Config struct {
	Algorithm      Algorithm         `json:"algorithm" yaml:"algorithm"`
	Traditional    TraditionalConfig `json:"traditional" yaml:"traditional"`
	PScore         PScoreConfig      `json:"p_score" yaml:"p_score"`
	CustomTable    CustomTableConfig `json:"custom_table" yaml:"custom_table"`
	Tiebreaker     TiebreakerConfig  `json:"tiebreaker" yaml:"tiebreaker"`
	StatusHandling StatusHandling    `json:"status_handling" yaml:"status_handling"`
}

// DefaultConfig returns traditional 100/5 scoring with countback.
func DefaultConfig() Config {
	return Config{}.Normalized()
}

// Normalized returns a copy with unset fields replaced by defaults.
func (c Config) Normalized() Config {
	if c.Algorithm == "" {
		c.Algorithm = AlgorithmTraditional
	}
	if c.Traditional == (TraditionalConfig{}) {
		c.Traditional = TraditionalConfig{Step: defaultStep, FirstPlacePoints: defaultFirstPlacePoints}
	}
	if c.PScore.MedianField == "" {
		c.PScore.MedianField = MedianAll
	}
	if c.CustomTable.BaseTemplate == "" {
		c.CustomTable.BaseTemplate = TemplateTraditional
	}
	if c.Tiebreaker.Primary == "" {
		c.Tiebreaker.Primary = TiebreakCountback
	}
	if c.StatusHandling.DNF == "" {
		c.StatusHandling.DNF = PolicyLastPlace
	}
	if c.StatusHandling.DNS == "" {
		c.StatusHandling.DNS = PolicyLastPlace
	}
	if c.StatusHandling.Withdrawn == "" {
		c.StatusHandling.Withdrawn = PolicyExclude
	}
	return c
}

// Validate reports the first problem with c. Callers normally validate the
// Normalized form.
func (c Config) Validate() error {
	if !c.Algorithm.Valid() {
		return fmt.Errorf("%w: unknown algorithm %q", ErrInvalidConfig, c.Algorithm)
	}

	switch c.Algorithm {
	case AlgorithmTraditional:
		if err := c.Traditional.validate(); err != nil {
			return err
		}
	case AlgorithmPScore:
		if c.PScore.MedianField != MedianAll && c.PScore.MedianField != MedianTopHalf {
			return fmt.Errorf("%w: unknown median field %q", ErrInvalidConfig, c.PScore.MedianField)
		}
	case AlgorithmCustom:
		if err := c.validateCustom(); err != nil {
			return err
		}
	}

	for name, p := range map[string]StatusPolicy{
		"dnf":       c.StatusHandling.DNF,
		"dns":       c.StatusHandling.DNS,
		"withdrawn": c.StatusHandling.Withdrawn,
	} {
		if !p.Valid() {
			return fmt.Errorf("%w: unknown %s policy %q", ErrInvalidConfig, name, p)
		}
		if p == PolicyZero && c.Algorithm == AlgorithmOnline {
			return fmt.Errorf("%w: %s policy zero is not supported by online scoring", ErrInvalidConfig, name)
		}
	}

	if err := c.Tiebreaker.Validate(); err != nil {
		return err
	}
	return nil
}

func (t TraditionalConfig) validate() error {
	if t.FirstPlacePoints <= 0 {
		return fmt.Errorf("%w: first place points must be positive", ErrInvalidConfig)
	}
	if t.Step <= 0 {
		return fmt.Errorf("%w: step must be positive", ErrInvalidConfig)
	}
	return nil
}

func (c Config) validateCustom() error {
	switch c.CustomTable.BaseTemplate {
	case TemplateTraditional:
		if err := c.Traditional.validate(); err != nil {
			return err
		}
	case TemplateWinnerTakesMore:
	default:
		return fmt.Errorf("%w: unknown base template %q", ErrInvalidConfig, c.CustomTable.BaseTemplate)
	}
	for key := range c.CustomTable.Overrides {
		if place, err := strconv.Atoi(key); err != nil || place < 1 {
			return fmt.Errorf("%w: override place %q is not a positive integer", ErrInvalidConfig, key)
		}
	}
	return nil
}

// SetOverride records points for a place in the custom table. No
// override is kept when points equal the template default, so unchanged
// table cells never persist as overrides.
func (c *Config) SetOverride(place, points int) error {
	if place < 1 {
		return fmt.Errorf("%w: place must be positive", ErrInvalidConfig)
	}
	key := strconv.Itoa(place)
	if points == c.Normalized().templatePoints(place) {
		delete(c.CustomTable.Overrides, key)
		return nil
	}
	if c.CustomTable.Overrides == nil {
		c.CustomTable.Overrides = make(map[string]int)
	}
	c.CustomTable.Overrides[key] = points
	return nil
}
