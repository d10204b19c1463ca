// Package rules holds the game ruleset and the engine's tuning knobs.
package rules

import "fmt"

// Constants are the ruleset values announced by the game at startup.
// JSON tags follow the Halite III constants document.
type Constants struct {
	MaxTurns                int     `json:"MAX_TURNS"`
	Capacity                int     `json:"MAX_ENERGY"`             // per-unit cargo limit
	MaxCellHalite           int     `json:"MAX_CELL_PRODUCTION"`    // board maximum per cell
	UnitCost                int     `json:"NEW_ENTITY_ENERGY_COST"` // spawn price
	DepotCost               int     `json:"DROPOFF_COST"`
	MoveCostRatio           int     `json:"MOVE_COST_RATIO"`
	ExtractRatio            int     `json:"EXTRACT_RATIO"`
	InspirationEnabled      bool    `json:"INSPIRATION_ENABLED"`
	InspirationRadius       int     `json:"INSPIRATION_RADIUS"`
	InspirationShipCount    int     `json:"INSPIRATION_SHIP_COUNT"`
	InspiredBonusMultiplier float64 `json:"INSPIRED_BONUS_MULTIPLIER"`
	Seed                    int64   `json:"game_seed"`
}

// DefaultConstants returns the standard Halite III ruleset for a 400-turn game.
func DefaultConstants() Constants {
	return Constants{
		MaxTurns:                400,
		Capacity:                1000,
		MaxCellHalite:           1000,
		UnitCost:                1000,
		DepotCost:               4000,
		MoveCostRatio:           10,
		ExtractRatio:            4,
		InspirationEnabled:      true,
		InspirationRadius:       4,
		InspirationShipCount:    2,
		InspiredBonusMultiplier: 2.0,
	}
}

// Validate rejects rulesets the engine's arithmetic cannot run with.
func (c Constants) Validate() error {
	switch {
	case c.MoveCostRatio <= 0:
		return fmt.Errorf("MOVE_COST_RATIO must be positive, got %d", c.MoveCostRatio)
	case c.ExtractRatio <= 0:
		return fmt.Errorf("EXTRACT_RATIO must be positive, got %d", c.ExtractRatio)
	case c.Capacity <= 0:
		return fmt.Errorf("MAX_ENERGY must be positive, got %d", c.Capacity)
	case c.MaxTurns <= 0:
		return fmt.Errorf("MAX_TURNS must be positive, got %d", c.MaxTurns)
	}
	return nil
}

// MoveCost is the fuel burned leaving a cell holding halite h.
func (c Constants) MoveCost(h int) int {
	return h / c.MoveCostRatio
}

// Extract is the base yield of one mining turn on a cell holding halite h,
// before the inspiration bonus and the cargo cap.
func (c Constants) Extract(h int) int {
	return DivCeil(h, c.ExtractRatio)
}

// Inspire applies the inspiration bonus to a base yield.
func (c Constants) Inspire(mined int) int {
	return mined + int(float64(mined)*c.InspiredBonusMultiplier)
}

// DivCeil divides rounding up. Both operands must be non-negative and by > 0.
func DivCeil(num, by int) int {
	return (num + by - 1) / by
}
