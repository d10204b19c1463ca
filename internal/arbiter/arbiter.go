// Package arbiter settles same-turn moves for units the planner could not route cleanly.
package arbiter

import (
	"fmt"
	"sort"

	"github.com/talgya/halibot/internal/events"
	"github.com/talgya/halibot/internal/grid"
	"github.com/talgya/halibot/internal/state"
)

// Request asks for a unit to move from From towards To this turn. To may be From.
type Request struct {
	Unit    state.UnitID
	From    grid.Position
	To      grid.Position
	CanMove bool // false when the unit lacks fuel to leave its cell
}

// Move is a settled command.
type Move struct {
	Unit state.UnitID
	From grid.Position
	To   grid.Position
	Dir  grid.Direction
	Swap bool // exchanged cells with another requester
}

// Arbiter mirrors the real board for the current turn only.
type Arbiter struct {
	torus    grid.Torus
	depots   map[grid.Position]bool
	blocked  map[grid.Position]bool
	reserved map[grid.Position]state.UnitID // next-turn cells of units already committed
	occupied map[grid.Position]state.UnitID // current cells of requesters
	requests map[state.UnitID]Request
	claimed  map[grid.Position]state.UnitID // next-turn cells of settled requesters
	decided  map[state.UnitID]Move
	bumped   map[state.UnitID]bool // reservation owners whose cell a unit could not leave
	sink     events.Sink
	turn     int
}

// New returns an empty arbiter for one turn.
func New(torus grid.Torus, depots []grid.Position, turn int, sink events.Sink) *Arbiter {
	a := &Arbiter{
		torus:    torus,
		depots:   make(map[grid.Position]bool, len(depots)),
		blocked:  make(map[grid.Position]bool),
		reserved: make(map[grid.Position]state.UnitID),
		occupied: make(map[grid.Position]state.UnitID),
		requests: make(map[state.UnitID]Request),
		claimed:  make(map[grid.Position]state.UnitID),
		decided:  make(map[state.UnitID]Move),
		bumped:   make(map[state.UnitID]bool),
		sink:     sink,
		turn:     turn,
	}
	for _, d := range depots {
		a.depots[d] = true
	}
	return a
}

// Reserve marks p as taken next turn by a unit that is not negotiating.
func (a *Arbiter) Reserve(p grid.Position, unit state.UnitID) {
	a.reserved[a.torus.Normalize(p)] = unit
}

// Block marks p as unsafe to enter. Depots are never blocked.
func (a *Arbiter) Block(p grid.Position) {
	a.blocked[a.torus.Normalize(p)] = true
}

// Request registers a unit for negotiation.
func (a *Arbiter) Request(r Request) {
	r.From = a.torus.Normalize(r.From)
	r.To = a.torus.Normalize(r.To)
	if prev, ok := a.requests[r.Unit]; ok {
		delete(a.occupied, prev.From)
	}
	a.requests[r.Unit] = r
	a.occupied[r.From] = r.Unit
}

// frame is one unit's pending negotiation on the explicit stack.
type frame struct {
	unit    state.UnitID
	cands   []grid.Direction
	idx     int
	waiting bool // blocked on the occupant of the current candidate
}

// CollectMoves settles every request and returns the moves ordered by unit.
func (a *Arbiter) CollectMoves() []Move {
	ids := make([]state.UnitID, 0, len(a.requests))
	for id := range a.requests {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	for _, id := range ids {
		a.settle(id)
	}

	out := make([]Move, 0, len(ids))
	for _, id := range ids {
		out = append(out, a.decided[id])
	}
	return out
}

// Bumped returns the units whose reserved cell is still held by a unit that had nowhere to
// go. Their reservations must be dropped and the turn settled again.
func (a *Arbiter) Bumped() []state.UnitID {
	out := make([]state.UnitID, 0, len(a.bumped))
	for id := range a.bumped {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func (a *Arbiter) candidates(r Request) []grid.Direction {
	route := a.torus.Route(r.From, r.To)
	out := make([]grid.Direction, 0, 5)
	out = append(out, route...)
	out = append(out, grid.Still)
	for _, d := range grid.Cardinals {
		seen := false
		for _, x := range route {
			if x == d {
				seen = true
			}
		}
		if !seen {
			out = append(out, d)
		}
	}
	return out
}

// settle resolves id and any chain of occupants it has to wait for. A unit on the chain is
// never re-entered, so cycles end with the inner unit trying its next candidate.
func (a *Arbiter) settle(id state.UnitID) {
	if _, ok := a.decided[id]; ok {
		return
	}
	onChain := map[state.UnitID]bool{id: true}
	stack := []*frame{{unit: id, cands: a.candidates(a.requests[id])}}

	for len(stack) > 0 {
		f := stack[len(stack)-1]
		if _, ok := a.decided[f.unit]; ok {
			stack = stack[:len(stack)-1]
			delete(onChain, f.unit)
			continue
		}
		r := a.requests[f.unit]

		if f.waiting {
			f.waiting = false
			dest := a.torus.Offset(r.From, f.cands[f.idx])
			if a.enterable(dest, f.unit) {
				a.decide(r, f.cands[f.idx], false)
				continue
			}
			f.idx++
			continue
		}

		if f.idx >= len(f.cands) {
			if owner, ok := a.reserved[r.From]; ok && owner != f.unit {
				a.bumped[owner] = true
			}
			a.decide(r, grid.Still, false)
			a.sink.Record(events.Event{
				Turn:    a.turn,
				Kind:    events.KindForcedStay,
				Unit:    int(f.unit),
				Pos:     r.From,
				Message: fmt.Sprintf("unit %d could not clear %v", f.unit, r.From),
			})
			continue
		}

		d := f.cands[f.idx]
		if d == grid.Still {
			if owner, ok := a.reserved[r.From]; ok && owner != f.unit {
				f.idx++
				continue
			}
			if owner, ok := a.claimed[r.From]; ok && owner != f.unit {
				f.idx++
				continue
			}
			a.decide(r, grid.Still, false)
			continue
		}
		if !r.CanMove {
			f.idx++
			continue
		}

		dest := a.torus.Offset(r.From, d)
		if !a.open(dest, f.unit) {
			f.idx++
			continue
		}
		occ, taken := a.occupied[dest]
		if !taken || occ == f.unit {
			a.decide(r, d, false)
			continue
		}
		if m, ok := a.decided[occ]; ok {
			if m.To != dest && a.enterable(dest, f.unit) {
				a.decide(r, d, false)
				continue
			}
			f.idx++
			continue
		}

		other := a.requests[occ]
		if a.wants(other, r.From) && other.CanMove && a.open(r.From, occ) {
			a.decide(r, d, true)
			a.decide(other, a.torus.DirTo(other.From, r.From), true)
			a.sink.Record(events.Event{
				Turn:    a.turn,
				Kind:    events.KindSwap,
				Unit:    int(f.unit),
				Pos:     r.From,
				Message: fmt.Sprintf("unit %d swapped with %d", f.unit, occ),
			})
			continue
		}
		if onChain[occ] {
			f.idx++
			continue
		}
		f.waiting = true
		onChain[occ] = true
		stack = append(stack, &frame{unit: occ, cands: a.candidates(other)})
	}
}

// open reports whether unit may target p ignoring current occupants.
func (a *Arbiter) open(p grid.Position, unit state.UnitID) bool {
	if a.blocked[p] && !a.depots[p] {
		return false
	}
	if owner, ok := a.reserved[p]; ok && owner != unit {
		return false
	}
	if owner, ok := a.claimed[p]; ok && owner != unit {
		return false
	}
	return true
}

// enterable reports whether p is open and its current occupant, if any, is leaving.
func (a *Arbiter) enterable(p grid.Position, unit state.UnitID) bool {
	if !a.open(p, unit) {
		return false
	}
	occ, taken := a.occupied[p]
	if !taken || occ == unit {
		return true
	}
	m, ok := a.decided[occ]
	return ok && m.To != p
}

// wants reports whether r's preferred next step lands on p.
func (a *Arbiter) wants(r Request, p grid.Position) bool {
	for _, d := range a.torus.Route(r.From, r.To) {
		if a.torus.Offset(r.From, d) == p {
			return true
		}
	}
	return false
}

func (a *Arbiter) decide(r Request, d grid.Direction, swap bool) {
	to := a.torus.Offset(r.From, d)
	a.decided[r.Unit] = Move{Unit: r.Unit, From: r.From, To: to, Dir: d, Swap: swap}
	a.claimed[to] = r.Unit
}
