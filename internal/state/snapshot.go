package state

import (
	"github.com/talgya/halibot/internal/grid"
	"github.com/talgya/halibot/internal/rules"
)

// Snapshot is the full game view delivered by the transport once per turn.
type Snapshot struct {
	Torus     grid.Torus
	Turn      int
	Me        int   // our player id
	Bank      int   // our deposited halite
	Cells     []int // row-major halite per cell
	Units     []SnapshotUnit
	Depots    []SnapshotDepot
	Constants rules.Constants
}

// SnapshotUnit is any player's unit as reported by the game.
type SnapshotUnit struct {
	ID    UnitID
	Owner int
	Pos   grid.Position
	Cargo int
}

// SnapshotDepot is any player's shipyard or dropoff.
type SnapshotDepot struct {
	Owner    int
	Pos      grid.Position
	Shipyard bool
}

// Friendly returns our units in snapshot order.
func (s *Snapshot) Friendly() []Unit {
	var out []Unit
	for _, u := range s.Units {
		if u.Owner == s.Me {
			out = append(out, Unit{ID: u.ID, Pos: u.Pos, Cargo: u.Cargo})
		}
	}
	return out
}

// Home returns our shipyard position.
func (s *Snapshot) Home() grid.Position {
	for _, d := range s.Depots {
		if d.Owner == s.Me && d.Shipyard {
			return d.Pos
		}
	}
	for _, d := range s.Depots {
		if d.Owner == s.Me {
			return d.Pos
		}
	}
	panic("state: snapshot has no friendly depot")
}

// Halite returns the cell value at p.
func (s *Snapshot) Halite(p grid.Position) int {
	return s.Cells[s.Torus.Index(p)]
}

// TotalHalite sums every cell.
func (s *Snapshot) TotalHalite() int {
	total := 0
	for _, h := range s.Cells {
		total += h
	}
	return total
}
