// Package timeline owns the turn-indexed sequence of predicted world states for one real turn.
package timeline

import (
	"fmt"
	"sort"

	"github.com/talgya/halibot/internal/events"
	"github.com/talgya/halibot/internal/grid"
	"github.com/talgya/halibot/internal/plan"
	"github.com/talgya/halibot/internal/state"
)

// Timeline is indexed by turn offset from the current snapshot. Slot 0 is the present.
type Timeline struct {
	slots     []*state.WorldState
	mined     map[grid.Position]int
	unplanned []state.UnitID
	poisoned  map[state.UnitID]int
}

// Build seeds slot 0 with every live unit and replays each committed plan into the slots after
// it. Plans whose steps are no longer legal are truncated in book at the failing step; a plan
// that fails on its first step is removed and its unit reported by Unplanned.
//
// A unit stays registered for one slot past its last action, so units awaiting a plan still
// hold their cell in slot 1.
func Build(base *state.WorldState, live []state.Unit, book plan.Book, sink events.Sink) *Timeline {
	tl := &Timeline{
		mined:    make(map[grid.Position]int),
		poisoned: make(map[state.UnitID]int),
	}

	cur := base
	for _, u := range live {
		cur = cur.WithUnit(u)
	}
	tl.slots = append(tl.slots, cur)

	// Last step index each unit may still replay; -1 when it has nothing to replay.
	ends := make(map[state.UnitID]int, len(live))
	for _, u := range live {
		ends[u.ID] = book.Get(u.ID).Len() - 1
	}

	for i := 0; cur.UnitCount() > 0; i++ {
		work := cur
		for _, u := range cur.Units() {
			end := ends[u.ID]
			if i > end+1 {
				work = work.WithoutUnit(u.ID)
				continue
			}
			if i == end+1 {
				continue
			}
			a, _ := book.Get(u.ID).At(i)
			if !work.CanApply(a) {
				tl.poisoned[u.ID] = i
				ends[u.ID] = i - 1
				sink.Record(events.Event{
					Turn:    cur.Turn(),
					Kind:    events.KindPoison,
					Unit:    int(u.ID),
					Pos:     u.Pos,
					Message: fmt.Sprintf("step %d %v no longer legal", i, a.Dir),
					Values:  map[string]int{"offset": i},
				})
				continue
			}
			if a.Dir == grid.Still && !a.Convert {
				tl.mined[u.Pos] = i
			}
			work = work.Apply(a)
		}
		cur = work.Advance()
		tl.slots = append(tl.slots, cur)
	}

	for id, at := range tl.poisoned {
		if p := book.Get(id); p != nil {
			p.Truncate(at)
			book.Set(id, p)
		}
	}
	for _, u := range live {
		if book.Get(u.ID).Len() == 0 {
			tl.unplanned = append(tl.unplanned, u.ID)
		}
	}
	sort.Slice(tl.unplanned, func(i, j int) bool { return tl.unplanned[i] < tl.unplanned[j] })
	return tl
}

// Len is the number of materialized slots.
func (tl *Timeline) Len() int { return len(tl.slots) }

// At returns slot t, advancing the last slot as needed.
func (tl *Timeline) At(t int) *state.WorldState {
	if t < 0 {
		panic(fmt.Sprintf("timeline: negative offset %d", t))
	}
	for len(tl.slots) <= t {
		tl.slots = append(tl.slots, tl.slots[len(tl.slots)-1].Advance())
	}
	return tl.slots[t]
}

// Replace swaps slot t for s.
func (tl *Timeline) Replace(t int, s *state.WorldState) {
	tl.At(t)
	tl.slots[t] = s
}

// MinedAt returns the latest offset at which p is mined by a committed plan, or -1.
func (tl *Timeline) MinedAt(p grid.Position) int {
	if t, ok := tl.mined[p]; ok {
		return t
	}
	return -1
}

// MarkMined records that p is mined at offset t.
func (tl *Timeline) MarkMined(p grid.Position, t int) {
	if t > tl.MinedAt(p) {
		tl.mined[p] = t
	}
}

// Unplanned lists, in ascending order, the live units without a committed plan.
func (tl *Timeline) Unplanned() []state.UnitID {
	return append([]state.UnitID(nil), tl.unplanned...)
}

// Poisoned returns the offset at which a unit's plan stopped being legal.
func (tl *Timeline) Poisoned(id state.UnitID) (int, bool) {
	t, ok := tl.poisoned[id]
	return t, ok
}
