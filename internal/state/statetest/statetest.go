// Package statetest builds small boards for tests.
package statetest

import (
	"github.com/talgya/halibot/internal/grid"
	"github.com/talgya/halibot/internal/rules"
	"github.com/talgya/halibot/internal/state"
)

// Me is the player id of the friendly side on every test board.
const Me = 0

// Board is a mutable snapshot builder.
type Board struct {
	Snap   state.Snapshot
	Tuning rules.Tuning
}

// New returns a w×h board with every cell holding fill halite and a friendly shipyard at home.
func New(w, h, fill int, home grid.Position) *Board {
	c := rules.DefaultConstants()
	c.InspirationEnabled = false
	t := grid.NewTorus(w, h)
	cells := make([]int, t.Size())
	for i := range cells {
		cells[i] = fill
	}
	b := &Board{
		Snap: state.Snapshot{
			Torus:     t,
			Me:        Me,
			Cells:     cells,
			Constants: c,
		},
		Tuning: rules.DefaultTuning(c),
	}
	return b.Depot(Me, home, true)
}

// Set stores halite h at p.
func (b *Board) Set(p grid.Position, h int) *Board {
	b.Snap.Cells[b.Snap.Torus.Index(p)] = h
	return b
}

// Depot adds a depot owned by owner.
func (b *Board) Depot(owner int, p grid.Position, shipyard bool) *Board {
	b.Snap.Depots = append(b.Snap.Depots, state.SnapshotDepot{Owner: owner, Pos: p, Shipyard: shipyard})
	return b
}

// Unit adds a friendly unit.
func (b *Board) Unit(id state.UnitID, p grid.Position, cargo int) *Board {
	b.Snap.Units = append(b.Snap.Units, state.SnapshotUnit{ID: id, Owner: Me, Pos: p, Cargo: cargo})
	return b
}

// Enemy adds an enemy unit, which becomes a hazard.
func (b *Board) Enemy(id state.UnitID, p grid.Position) *Board {
	b.Snap.Units = append(b.Snap.Units, state.SnapshotUnit{ID: id, Owner: Me + 1, Pos: p})
	return b
}

// State builds the snapshot's WorldState with every friendly unit registered.
func (b *Board) State() *state.WorldState {
	ws := state.FromSnapshot(&b.Snap, b.Tuning)
	for _, u := range b.Snap.Friendly() {
		ws = ws.WithUnit(u)
	}
	return ws
}
