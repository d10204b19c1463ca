package arbiter

import (
	"math/rand"
	"testing"

	"github.com/talgya/halibot/internal/events"
	"github.com/talgya/halibot/internal/grid"
	"github.com/talgya/halibot/internal/state"
)

func pos(x, y int) grid.Position { return grid.Position{X: x, Y: y} }

func byUnit(moves []Move) map[state.UnitID]Move {
	out := make(map[state.UnitID]Move, len(moves))
	for _, m := range moves {
		out[m.Unit] = m
	}
	return out
}

func TestSwapExchangesCells(t *testing.T) {
	sink := &events.Buffer{}
	a := New(grid.NewTorus(8, 8), nil, 1, sink)
	a.Request(Request{Unit: 1, From: pos(2, 2), To: pos(3, 2), CanMove: true})
	a.Request(Request{Unit: 2, From: pos(3, 2), To: pos(2, 2), CanMove: true})

	got := byUnit(a.CollectMoves())
	if got[1].To != pos(3, 2) || got[2].To != pos(2, 2) {
		t.Fatalf("moves=%+v want swap", got)
	}
	if !got[1].Swap || !got[2].Swap {
		t.Fatalf("swap flag not set: %+v", got)
	}
	if sink.Count(events.KindSwap) != 1 {
		t.Fatalf("swap event missing")
	}
}

func TestChainFollowsVacatingOccupant(t *testing.T) {
	a := New(grid.NewTorus(8, 8), nil, 1, events.Discard)
	a.Request(Request{Unit: 1, From: pos(1, 1), To: pos(2, 1), CanMove: true})
	a.Request(Request{Unit: 2, From: pos(2, 1), To: pos(3, 1), CanMove: true})
	a.Request(Request{Unit: 3, From: pos(3, 1), To: pos(4, 1), CanMove: true})

	got := byUnit(a.CollectMoves())
	for id, want := range map[state.UnitID]grid.Position{1: pos(2, 1), 2: pos(3, 1), 3: pos(4, 1)} {
		if got[id].To != want {
			t.Fatalf("unit %d to=%v want=%v", id, got[id].To, want)
		}
	}
}

func TestOccupantWithoutFuelHoldsCell(t *testing.T) {
	a := New(grid.NewTorus(8, 8), nil, 1, events.Discard)
	a.Request(Request{Unit: 1, From: pos(1, 1), To: pos(2, 1), CanMove: true})
	a.Request(Request{Unit: 2, From: pos(2, 1), To: pos(3, 1), CanMove: false})

	got := byUnit(a.CollectMoves())
	if got[2].Dir != grid.Still {
		t.Fatalf("unit 2 moved without fuel: %+v", got[2])
	}
	if got[1].To == pos(2, 1) {
		t.Fatalf("unit 1 entered an occupied cell")
	}
}

func TestReservedAndBlockedCellsAvoided(t *testing.T) {
	a := New(grid.NewTorus(8, 8), []grid.Position{pos(4, 4)}, 1, events.Discard)
	a.Reserve(pos(3, 2), 9)
	a.Block(pos(2, 3))
	a.Block(pos(4, 4))
	a.Request(Request{Unit: 1, From: pos(2, 2), To: pos(4, 4), CanMove: true})
	a.Request(Request{Unit: 2, From: pos(4, 3), To: pos(4, 4), CanMove: true})

	got := byUnit(a.CollectMoves())
	if got[1].To != pos(2, 2) {
		t.Fatalf("unit 1 to=%v want stay at (2,2)", got[1].To)
	}
	if got[2].To != pos(4, 4) {
		t.Fatalf("unit 2 to=%v want depot (4,4)", got[2].To)
	}
}

func TestBoxedInUnitBumpsReservation(t *testing.T) {
	sink := &events.Buffer{}
	torus := grid.NewTorus(3, 3)
	a := New(torus, nil, 1, sink)
	a.Reserve(pos(1, 1), 9)
	for _, d := range grid.Cardinals {
		a.Block(torus.Offset(pos(1, 1), d))
	}
	a.Request(Request{Unit: 1, From: pos(1, 1), To: pos(1, 1), CanMove: true})

	got := byUnit(a.CollectMoves())
	if got[1].Dir != grid.Still {
		t.Fatalf("unit 1=%+v want still", got[1])
	}
	if sink.Count(events.KindForcedStay) != 1 {
		t.Fatalf("forced_stay event missing")
	}
	bumped := a.Bumped()
	if len(bumped) != 1 || bumped[0] != 9 {
		t.Fatalf("bumped=%v want [9]", bumped)
	}

	// Settling again without unit 9's reservation leaves nobody sharing the cell.
	b := New(torus, nil, 1, events.Discard)
	for _, d := range grid.Cardinals {
		b.Block(torus.Offset(pos(1, 1), d))
	}
	b.Request(Request{Unit: 9, From: pos(0, 1), To: pos(1, 1), CanMove: true})
	b.Request(Request{Unit: 1, From: pos(1, 1), To: pos(1, 1), CanMove: true})
	got = byUnit(b.CollectMoves())
	if got[1].To == got[9].To {
		t.Fatalf("units 1 and 9 both end at %v", got[1].To)
	}
	if len(b.Bumped()) != 0 {
		t.Fatalf("bumped=%v want none", b.Bumped())
	}
}

func TestFuelessOccupantBumpsReservation(t *testing.T) {
	a := New(grid.NewTorus(8, 8), nil, 1, events.Discard)
	a.Reserve(pos(2, 2), 5)
	a.Request(Request{Unit: 1, From: pos(2, 2), To: pos(2, 2), CanMove: false})

	a.CollectMoves()
	if bumped := a.Bumped(); len(bumped) != 1 || bumped[0] != 5 {
		t.Fatalf("bumped=%v want [5]", bumped)
	}
}

func TestNoSharedDestinations(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	torus := grid.NewTorus(6, 6)
	for trial := 0; trial < 300; trial++ {
		a := New(torus, nil, trial, events.Discard)
		used := map[grid.Position]bool{}
		n := 2 + rng.Intn(14)
		for i := 0; i < n; i++ {
			var from grid.Position
			for {
				from = pos(rng.Intn(6), rng.Intn(6))
				if !used[from] {
					break
				}
			}
			used[from] = true
			to := torus.Offset(from, grid.Direction(rng.Intn(5)))
			a.Request(Request{Unit: state.UnitID(i), From: from, To: to, CanMove: rng.Intn(5) > 0})
		}
		reserved := pos(-1, -1)
		if rng.Intn(2) == 0 {
			reserved = pos(rng.Intn(6), rng.Intn(6))
			a.Reserve(reserved, 99)
		}

		moves := a.CollectMoves()
		bumped := len(a.Bumped()) > 0
		if len(moves) != n {
			t.Fatalf("trial %d: %d moves for %d units", trial, len(moves), n)
		}
		dest := map[grid.Position]state.UnitID{}
		for _, m := range moves {
			if prev, ok := dest[m.To]; ok {
				t.Fatalf("trial %d: units %d and %d both end at %v", trial, prev, m.Unit, m.To)
			}
			dest[m.To] = m.Unit
			if m.To == reserved && !bumped {
				t.Fatalf("trial %d: unit %d ends on reserved %v without bumping it", trial, m.Unit, m.To)
			}
			if torus.Distance(m.From, m.To) > 1 {
				t.Fatalf("trial %d: unit %d jumped %v->%v", trial, m.Unit, m.From, m.To)
			}
		}
	}
}
