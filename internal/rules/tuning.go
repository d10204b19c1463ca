package rules

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Tuning holds the engine's own parameters. None of these come from the game.
type Tuning struct {
	// Search.
	Lookahead         int `yaml:"lookahead"`           // turns searched before accepting the frontier
	FullSlack         int `yaml:"full_slack"`          // cargo within this of capacity counts as full
	RiskPenalty       int `yaml:"risk_penalty"`        // added to cost when stepping next to a hazard
	DepotCrowdPenalty int `yaml:"depot_crowd_penalty"` // added when entering an occupied depot
	CrowdWindow       int `yaml:"crowd_window"`        // final turns in which occupied depots may be entered
	MaxExpansions     int `yaml:"max_expansions"`      // per-unit node expansion cap

	// Turn budget.
	TurnBudget time.Duration `yaml:"turn_budget"`

	// Assignment.
	RichnessRadius     int     `yaml:"richness_radius"`
	ContentionWindow   int     `yaml:"contention_window"`
	ContentionDiscount float64 `yaml:"contention_discount"`
	ScoreScale         float64 `yaml:"score_scale"`
	BuildRatio         float64 `yaml:"build_ratio"`   // candidate richness vs richest depot
	BuildSpacing       int     `yaml:"build_spacing"` // minimum distance from existing depots
	BuildCandidates    int     `yaml:"build_candidates"`
	BuildCutoff        float64 `yaml:"build_cutoff"` // fraction of the game after which no outposts are built
	FillRate           float64 `yaml:"fill_rate"`    // share of the halite around a unit it collects per turn, for arrival estimates

	// Spawning.
	SpawnCutoff         float64 `yaml:"spawn_cutoff"`          // fraction of max turns
	SpawnHaliteFraction float64 `yaml:"spawn_halite_fraction"` // of initial board halite
}

// DefaultTuning returns the parameters the bot ships with.
func DefaultTuning(c Constants) Tuning {
	return Tuning{
		Lookahead:           24,
		FullSlack:           50,
		RiskPenalty:         1000,
		DepotCrowdPenalty:   2 * c.UnitCost,
		CrowdWindow:         12,
		MaxExpansions:       20000,
		TurnBudget:          1500 * time.Millisecond,
		RichnessRadius:      6,
		ContentionWindow:    12,
		ContentionDiscount:  0.7,
		ScoreScale:          400,
		BuildRatio:          1.5,
		BuildSpacing:        12,
		BuildCandidates:     3,
		BuildCutoff:         0.75,
		FillRate:            0.005,
		SpawnCutoff:         2.0 / 3.0,
		SpawnHaliteFraction: 0.5,
	}
}

// LoadTuning reads a YAML file over the defaults, so a file only needs the keys it changes.
func LoadTuning(path string, c Constants) (Tuning, error) {
	t := DefaultTuning(c)
	raw, err := os.ReadFile(path)
	if err != nil {
		return t, fmt.Errorf("tuning %s: %w", path, err)
	}
	if err := yaml.Unmarshal(raw, &t); err != nil {
		return t, fmt.Errorf("tuning %s: %w", path, err)
	}
	if err := t.Validate(); err != nil {
		return t, fmt.Errorf("tuning %s: %w", path, err)
	}
	return t, nil
}

// Validate rejects values the engine cannot run with.
func (t Tuning) Validate() error {
	switch {
	case t.Lookahead < 1:
		return fmt.Errorf("lookahead must be positive, got %d", t.Lookahead)
	case t.MaxExpansions < 1:
		return fmt.Errorf("max_expansions must be positive, got %d", t.MaxExpansions)
	case t.ContentionDiscount <= 0 || t.ContentionDiscount > 1:
		return fmt.Errorf("contention_discount must be in (0,1], got %g", t.ContentionDiscount)
	case t.ScoreScale <= 0:
		return fmt.Errorf("score_scale must be positive, got %g", t.ScoreScale)
	}
	return nil
}
