package state

import (
	"fmt"
	"sort"

	"github.com/benbjohnson/immutable"

	"github.com/talgya/halibot/internal/grid"
	"github.com/talgya/halibot/internal/rules"
)

// Env is the static context shared by every WorldState of a game.
type Env struct {
	Torus     grid.Torus
	Constants rules.Constants
	Tuning    rules.Tuning
}

// WorldState is an immutable view of the board at one turn offset.
type WorldState struct {
	env *Env

	cells     *immutable.Map[grid.Position, int]
	units     *immutable.Map[UnitID, Unit]
	occupancy *immutable.Map[grid.Position, UnitID]
	hazards   positionSet
	inspired  positionSet
	depots    positionSet

	bank  int
	turn  int
	start int // turn of the originating snapshot
}

// FromSnapshot builds the turn-0 WorldState. Friendly units are not registered; the
// Timeline adds the ones it is responsible for.
func FromSnapshot(s *Snapshot, tuning rules.Tuning) *WorldState {
	env := &Env{Torus: s.Torus, Constants: s.Constants, Tuning: tuning}

	cells := immutable.NewMapBuilder[grid.Position, int](positionHasher{})
	for i, h := range s.Cells {
		cells.Set(s.Torus.At(i), h)
	}

	var enemies []grid.Position
	for _, u := range s.Units {
		if u.Owner != s.Me {
			enemies = append(enemies, s.Torus.Normalize(u.Pos))
		}
	}

	var depots []grid.Position
	for _, d := range s.Depots {
		if d.Owner == s.Me {
			depots = append(depots, s.Torus.Normalize(d.Pos))
		}
	}

	return &WorldState{
		env:       env,
		cells:     cells.Map(),
		units:     immutable.NewMap[UnitID, Unit](unitHasher{}),
		occupancy: immutable.NewMap[grid.Position, UnitID](positionHasher{}),
		hazards:   newPositionSet(enemies...),
		inspired:  newPositionSet(inspiredCells(env, enemies)...),
		depots:    newPositionSet(depots...),
		bank:      s.Bank,
		turn:      s.Turn,
		start:     s.Turn,
	}
}

// inspiredCells returns every cell with at least InspirationShipCount enemies within
// InspirationRadius.
func inspiredCells(env *Env, enemies []grid.Position) []grid.Position {
	c := env.Constants
	if !c.InspirationEnabled || c.InspirationShipCount <= 0 {
		return nil
	}
	counts := make(map[grid.Position]int)
	for _, e := range enemies {
		for _, p := range env.Torus.Within(e, c.InspirationRadius) {
			counts[p]++
		}
	}
	var out []grid.Position
	for p, n := range counts {
		if n >= c.InspirationShipCount {
			out = append(out, p)
		}
	}
	return out
}

// Env returns the game context.
func (ws *WorldState) Env() *Env { return ws.env }

// Torus returns the board geometry.
func (ws *WorldState) Torus() grid.Torus { return ws.env.Torus }

// Constants returns the ruleset.
func (ws *WorldState) Constants() rules.Constants { return ws.env.Constants }

// Turn is the absolute turn number of this state.
func (ws *WorldState) Turn() int { return ws.turn }

// Offset is the number of turns since the originating snapshot.
func (ws *WorldState) Offset() int { return ws.turn - ws.start }

// Bank is our deposited halite.
func (ws *WorldState) Bank() int { return ws.bank }

// TurnsRemaining is how many turns the game still runs after this one.
func (ws *WorldState) TurnsRemaining() int {
	return ws.env.Constants.MaxTurns - ws.turn
}

// Halite returns the cell's halite. Asking for a cell that does not exist is a programming
// error.
func (ws *WorldState) Halite(p grid.Position) int {
	h, ok := ws.cells.Get(p)
	if !ok {
		panic(fmt.Sprintf("state: no cell at %v", p))
	}
	return h
}

// TotalHalite sums every cell on the board.
func (ws *WorldState) TotalHalite() int {
	total := 0
	itr := ws.cells.Iterator()
	for !itr.Done() {
		_, h, _ := itr.Next()
		total += h
	}
	return total
}

// Unit looks up a registered unit.
func (ws *WorldState) Unit(id UnitID) (Unit, bool) {
	return ws.units.Get(id)
}

// MustUnit looks up a registered unit and panics when it is missing.
func (ws *WorldState) MustUnit(id UnitID) Unit {
	u, ok := ws.units.Get(id)
	if !ok {
		panic(fmt.Sprintf("state: unit %d not found at turn %d", id, ws.turn))
	}
	return u
}

// Units returns the registered units ordered by id.
func (ws *WorldState) Units() []Unit {
	out := make([]Unit, 0, ws.units.Len())
	itr := ws.units.Iterator()
	for !itr.Done() {
		_, u, _ := itr.Next()
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// UnitCount is the number of registered units.
func (ws *WorldState) UnitCount() int { return ws.units.Len() }

// Occupant returns the unit registered on p.
func (ws *WorldState) Occupant(p grid.Position) (UnitID, bool) {
	return ws.occupancy.Get(p)
}

// IsHazard reports whether p is treated as enemy-occupied.
func (ws *WorldState) IsHazard(p grid.Position) bool { return contains(ws.hazards, p) }

// IsInspired reports whether mining p earns the extraction bonus.
func (ws *WorldState) IsInspired(p grid.Position) bool { return contains(ws.inspired, p) }

// IsDepot reports whether p is one of our depots.
func (ws *WorldState) IsDepot(p grid.Position) bool { return contains(ws.depots, p) }

// Hazards returns the hazard cells in row-major order.
func (ws *WorldState) Hazards() []grid.Position { return sortedPositions(ws.hazards) }

// Depots returns our depot cells in row-major order.
func (ws *WorldState) Depots() []grid.Position { return sortedPositions(ws.depots) }

// NearHazard reports whether p or one of its neighbors is a hazard.
func (ws *WorldState) NearHazard(p grid.Position) bool {
	if ws.IsHazard(p) {
		return true
	}
	for _, n := range ws.env.Torus.Neighbors(p) {
		if ws.IsHazard(n) {
			return true
		}
	}
	return false
}

// NearestDepot returns the closest depot to p, ties broken in row-major order.
func (ws *WorldState) NearestDepot(p grid.Position) grid.Position {
	best := p
	bestDist := -1
	for _, d := range ws.Depots() {
		dist := ws.env.Torus.Distance(p, d)
		if bestDist < 0 || dist < bestDist {
			best, bestDist = d, dist
		}
	}
	if bestDist < 0 {
		panic("state: no depots")
	}
	return best
}

// WithUnit registers u, moving its occupancy if it was already present.
func (ws *WorldState) WithUnit(u Unit) *WorldState {
	next := *ws
	next.placeUnit(u)
	return &next
}

// WithoutUnit unregisters a unit. Unknown ids are ignored.
func (ws *WorldState) WithoutUnit(id UnitID) *WorldState {
	u, ok := ws.units.Get(id)
	if !ok {
		return ws
	}
	next := *ws
	next.units = next.units.Delete(id)
	if occ, ok := next.occupancy.Get(u.Pos); ok && occ == id {
		next.occupancy = next.occupancy.Delete(u.Pos)
	}
	return &next
}

// WithDepot adds a depot.
func (ws *WorldState) WithDepot(p grid.Position) *WorldState {
	next := *ws
	next.depots = next.depots.Set(p, struct{}{})
	return &next
}

// Cleared returns the state with every unit removed.
func (ws *WorldState) Cleared() *WorldState {
	next := *ws
	next.units = immutable.NewMap[UnitID, Unit](unitHasher{})
	next.occupancy = immutable.NewMap[grid.Position, UnitID](positionHasher{})
	return &next
}

// placeUnit mutates a private copy; callers must have copied ws first.
func (ws *WorldState) placeUnit(u Unit) {
	u.Pos = ws.env.Torus.Normalize(u.Pos)
	if old, ok := ws.units.Get(u.ID); ok && old.Pos != u.Pos {
		if occ, ok := ws.occupancy.Get(old.Pos); ok && occ == u.ID {
			ws.occupancy = ws.occupancy.Delete(old.Pos)
		}
	}
	if u.Cargo < 0 || u.Cargo > ws.env.Constants.Capacity {
		panic(fmt.Sprintf("state: unit %d cargo %d outside [0,%d]", u.ID, u.Cargo, ws.env.Constants.Capacity))
	}
	ws.units = ws.units.Set(u.ID, u)
	ws.occupancy = ws.occupancy.Set(u.Pos, u.ID)
}

func (ws *WorldState) setHalite(p grid.Position, h int) {
	if _, ok := ws.cells.Get(p); !ok {
		panic(fmt.Sprintf("state: no cell at %v", p))
	}
	if h < 0 {
		panic(fmt.Sprintf("state: cell %v would hold %d halite", p, h))
	}
	ws.cells = ws.cells.Set(p, h)
}
