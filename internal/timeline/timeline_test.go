package timeline

import (
	"testing"

	"github.com/talgya/halibot/internal/events"
	"github.com/talgya/halibot/internal/grid"
	"github.com/talgya/halibot/internal/plan"
	"github.com/talgya/halibot/internal/state"
	"github.com/talgya/halibot/internal/state/statetest"
)

func TestBuildReplaysPlans(t *testing.T) {
	b := statetest.New(6, 6, 100, grid.Position{X: 0, Y: 0}).
		Unit(1, grid.Position{X: 2, Y: 2}, 0).
		Unit(2, grid.Position{X: 4, Y: 4}, 0)
	base := state.FromSnapshot(&b.Snap, b.Tuning)
	book := plan.Book{}
	book.Set(1, plan.New(
		state.Action{Unit: 1, Dir: grid.Still},
		state.Action{Unit: 1, Dir: grid.Still},
		state.Action{Unit: 1, Dir: grid.East},
	))

	tl := Build(base, b.Snap.Friendly(), book, events.Discard)

	if got := tl.At(1).MustUnit(1).Cargo; got != 25 {
		t.Fatalf("cargo@1=%d want=25", got)
	}
	if got := tl.At(2).MustUnit(1).Cargo; got != 44 {
		t.Fatalf("cargo@2=%d want=44", got)
	}
	if got := tl.At(3).MustUnit(1).Pos; got != (grid.Position{X: 3, Y: 2}) {
		t.Fatalf("pos@3=%v want=(3,2)", got)
	}
	if _, ok := tl.At(4).Unit(1); !ok {
		t.Fatalf("unit 1 should linger one slot past its plan")
	}
	if _, ok := tl.At(5).Unit(1); ok {
		t.Fatalf("unit 1 still registered two slots past its plan")
	}
	if _, ok := tl.At(1).Unit(2); !ok {
		t.Fatalf("unplanned unit should hold its cell in slot 1")
	}
	if _, ok := tl.At(2).Unit(2); ok {
		t.Fatalf("unplanned unit registered in slot 2")
	}
	if got := tl.MinedAt(grid.Position{X: 2, Y: 2}); got != 1 {
		t.Fatalf("minedAt=%d want=1", got)
	}
	if ids := tl.Unplanned(); len(ids) != 1 || ids[0] != 2 {
		t.Fatalf("unplanned=%v want=[2]", ids)
	}
	last := tl.At(tl.Len() - 1)
	if last.UnitCount() != 0 {
		t.Fatalf("terminal slot holds %d units", last.UnitCount())
	}
	for i := 1; i < tl.Len(); i++ {
		if tl.At(i).Turn() != tl.At(i-1).Turn()+1 {
			t.Fatalf("slot %d turn=%d not consecutive", i, tl.At(i).Turn())
		}
	}
}

func TestBuildPoisonsIllegalSteps(t *testing.T) {
	b := statetest.New(8, 8, 0, grid.Position{X: 0, Y: 0}).
		Unit(1, grid.Position{X: 2, Y: 2}, 0).
		Unit(2, grid.Position{X: 6, Y: 6}, 0).
		Enemy(100, grid.Position{X: 4, Y: 2})
	base := state.FromSnapshot(&b.Snap, b.Tuning)
	book := plan.Book{}
	book.Set(1, plan.New(
		state.Action{Unit: 1, Dir: grid.East},
		state.Action{Unit: 1, Dir: grid.East},
		state.Action{Unit: 1, Dir: grid.East},
	))
	book.Set(2, plan.New(state.Action{Unit: 2, Dir: grid.Still, Inspired: true}))

	sink := &events.Buffer{}
	tl := Build(base, b.Snap.Friendly(), book, sink)

	if at, ok := tl.Poisoned(1); !ok || at != 1 {
		t.Fatalf("poisoned=%d,%v want=1", at, ok)
	}
	if got := book.Get(1).Len(); got != 1 {
		t.Fatalf("plan len=%d want=1", got)
	}
	if book.Get(2) != nil {
		t.Fatalf("plan poisoned at step 0 should be dropped")
	}
	if ids := tl.Unplanned(); len(ids) != 1 || ids[0] != 2 {
		t.Fatalf("unplanned=%v want=[2]", ids)
	}
	if n := sink.Count(events.KindPoison); n != 2 {
		t.Fatalf("poison events=%d want=2", n)
	}
}

func TestAtExtendsAndMarkMinedKeepsLatest(t *testing.T) {
	b := statetest.New(4, 4, 10, grid.Position{X: 0, Y: 0})
	tl := Build(state.FromSnapshot(&b.Snap, b.Tuning), nil, plan.Book{}, events.Discard)

	if got := tl.At(7).Offset(); got != 7 {
		t.Fatalf("offset=%d want=7", got)
	}
	p := grid.Position{X: 1, Y: 1}
	tl.MarkMined(p, 5)
	tl.MarkMined(p, 3)
	if got := tl.MinedAt(p); got != 5 {
		t.Fatalf("minedAt=%d want=5", got)
	}
}
