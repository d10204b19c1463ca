// Package planner finds each unit's multi-turn route through the Timeline and commits it.
package planner

import (
	"context"
	"fmt"
	"sort"

	"github.com/talgya/halibot/internal/assign"
	"github.com/talgya/halibot/internal/events"
	"github.com/talgya/halibot/internal/grid"
	"github.com/talgya/halibot/internal/plan"
	"github.com/talgya/halibot/internal/state"
	"github.com/talgya/halibot/internal/timeline"
)

// Outcome says how a unit's plan was produced.
type Outcome int

const (
	OutcomePlanned   Outcome = iota // a route met the goal test
	OutcomeFallback                 // no route; a single safe step was committed
	OutcomeStranded                 // no legal step at all
	OutcomeCancelled                // ctx ended before a route was found
)

func (o Outcome) String() string {
	switch o {
	case OutcomePlanned:
		return "planned"
	case OutcomeFallback:
		return "fallback"
	case OutcomeStranded:
		return "stranded"
	case OutcomeCancelled:
		return "cancelled"
	}
	return fmt.Sprintf("outcome(%d)", int(o))
}

// ctxCheckEvery is how many expansions run between context checks.
const ctxCheckEvery = 64

// Planner searches one unit at a time. Each committed route is written into the Timeline so
// later units plan around it.
type Planner struct {
	tl   *timeline.Timeline
	sink events.Sink
}

// New returns a planner over tl.
func New(tl *timeline.Timeline, sink events.Sink) *Planner {
	return &Planner{tl: tl, sink: sink}
}

// Order returns ids sorted by how few options each unit has next turn, then by id, so that
// constrained units claim contested cells first.
func Order(tl *timeline.Timeline, ids []state.UnitID) []state.UnitID {
	type ranked struct {
		id      state.UnitID
		options int
	}
	now, next := tl.At(0), tl.At(1)
	rs := make([]ranked, 0, len(ids))
	for _, id := range ids {
		root := state.NewMergedAction(now.MustUnit(id))
		rs = append(rs, ranked{id: id, options: len(next.Successors(root, true))})
	}
	sort.Slice(rs, func(i, j int) bool {
		if rs[i].options != rs[j].options {
			return rs[i].options < rs[j].options
		}
		return rs[i].id < rs[j].id
	})
	out := make([]state.UnitID, len(rs))
	for i, r := range rs {
		out[i] = r.id
	}
	return out
}

// search is the state owned by a single Plan call.
type search struct {
	unit   state.UnitID
	target assign.Target
	gap    int              // room left in the unit's hold at the start
	best   map[node]*record // cheapest derivation seen per node
}

// Plan finds and commits a route for unit id towards target. On OutcomeCancelled the Timeline
// is left untouched and the returned plan is nil; on OutcomeStranded the plan is nil but the
// unit is kept in slot 1 at its current cell.
func (p *Planner) Plan(ctx context.Context, id state.UnitID, target assign.Target) (*plan.Plan, Outcome) {
	if ctx.Err() != nil {
		return nil, OutcomeCancelled
	}
	now := p.tl.At(0)
	u := now.MustUnit(id)
	tun := now.Env().Tuning

	s := &search{
		unit:   id,
		target: target,
		gap:    now.Constants().Capacity - u.Cargo,
		best:   make(map[node]*record),
	}
	root := &record{n: node{pos: u.Pos, t: 0}, m: state.NewMergedAction(u)}
	s.best[root.n] = root

	q := &frontier{}
	q.push(root, s.estimate(now, root))

	expansions := 0
	for q.Len() > 0 {
		r := q.pop().r
		if s.best[r.n] != r {
			continue
		}
		if done, convert := p.isGoal(s, r); done {
			return p.commit(s, r, convert), OutcomePlanned
		}
		if r.n.t >= tun.Lookahead {
			continue
		}
		expansions++
		if expansions > tun.MaxExpansions {
			break
		}
		if expansions%ctxCheckEvery == 0 && ctx.Err() != nil {
			return nil, OutcomeCancelled
		}

		ws := p.tl.At(r.n.t + 1)
		for _, succ := range ws.Successors(r.m, p.allowMine(ws, r.n)) {
			n := node{pos: succ.Pos, t: r.n.t + 1}
			if prev, ok := s.best[n]; ok && prev.m.Cost <= succ.Cost {
				continue
			}
			child := &record{n: n, m: succ, parent: r}
			s.best[n] = child
			q.push(child, s.estimate(now, child))
		}
	}

	return p.fallback(u, expansions)
}

// allowMine forbids mining a cell that a committed plan mines at a later offset.
func (p *Planner) allowMine(ws *state.WorldState, n node) bool {
	return p.tl.MinedAt(n.pos) < n.t || ws.IsDepot(n.pos)
}

// estimate is g plus the heuristic: steps still needed to reach the target, and the room
// left in the hold.
func (s *search) estimate(ws *state.WorldState, r *record) state.Cost {
	dist := ws.Torus().Distance(r.n.pos, s.target.Pos)
	g := state.Cost{Steps: r.n.t, Value: r.m.Cost}
	return g.Add(state.Cost{Steps: dist, Value: s.gap + r.m.Cost})
}

func (p *Planner) isGoal(s *search, r *record) (done, convert bool) {
	n, m := r.n, r.m
	ws := p.tl.At(n.t)
	tun := ws.Env().Tuning

	if s.target.Build && n.pos == s.target.Pos {
		merged := ws.ApplyMerged(m)
		if merged.CanApply(state.Action{Unit: s.unit, Convert: true}) {
			return true, true
		}
	}
	if n.t == 0 {
		return false, false
	}
	if n.t+ws.Torus().Distance(n.pos, s.target.Pos) >= tun.Lookahead {
		return true, false
	}
	if !ws.IsDepot(n.pos) {
		return false, false
	}
	full := s.gap+m.Cost < tun.FullSlack
	endgame := ws.TurnsRemaining() <= 0
	arrived := n.pos == s.target.Pos && n.t >= s.target.MinArrival
	return full || endgame || arrived, false
}

// route returns the records from the root to r.
func route(r *record) []*record {
	var out []*record
	for ; r != nil; r = r.parent {
		out = append(out, r)
	}
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out
}

func (p *Planner) commit(s *search, goal *record, convert bool) *plan.Plan {
	path := route(goal)
	torus := p.tl.At(0).Torus()

	for _, r := range path[1:] {
		p.tl.Replace(r.n.t, p.tl.At(r.n.t).ApplyMerged(r.m))
	}

	out := plan.New()
	for i := 1; i < len(path); i++ {
		from, to := path[i-1], path[i]
		if from.n.pos == to.n.pos {
			p.tl.MarkMined(from.n.pos, from.n.t)
		}
		out.Push(state.Action{
			Unit:     s.unit,
			Dir:      torus.DirTo(from.n.pos, to.n.pos),
			Inspired: to.m.Inspired,
			Risk:     to.m.Risk,
		})
		p.sink.Record(events.Event{
			Turn:    p.tl.At(to.n.t).Turn(),
			Kind:    events.KindPath,
			Unit:    int(s.unit),
			Pos:     to.n.pos,
			Message: fmt.Sprintf("unit %d t%d h%d", s.unit, to.n.t, to.m.Cargo),
			Color:   "yellow",
		})
	}
	if convert {
		out.Push(state.Action{Unit: s.unit, Convert: true})
	}

	last := goal.m
	p.sink.Record(events.Event{
		Turn: p.tl.At(0).Turn(),
		Kind: events.KindPlanned,
		Unit: int(s.unit),
		Pos:  goal.n.pos,
		Values: map[string]int{
			"steps":    out.Len(),
			"cost":     last.Cost,
			"cargo":    last.Cargo,
			"returned": last.Returned,
		},
	})
	return out
}

// fallback commits a single step when no route met the goal test: stay put if that is
// legal, otherwise the first legal move.
func (p *Planner) fallback(u state.Unit, expansions int) (*plan.Plan, Outcome) {
	now, next := p.tl.At(0), p.tl.At(1)
	root := state.NewMergedAction(u)
	succs := next.Successors(root, p.allowMine(next, node{pos: u.Pos}))

	warn := func(kind events.Kind, msg string) {
		p.sink.Record(events.Event{
			Turn:    now.Turn(),
			Kind:    kind,
			Unit:    int(u.ID),
			Pos:     u.Pos,
			Message: msg,
			Values:  map[string]int{"expansions": expansions},
		})
	}

	stay := state.Action{Unit: u.ID, Dir: grid.Still, Inspired: now.IsInspired(u.Pos)}
	if now.CanApply(stay) {
		warn(events.KindSearchFailed, "no route, staying")
		for _, s := range succs {
			if s.Dir == grid.Still {
				p.tl.Replace(1, next.ApplyMerged(s))
				p.tl.MarkMined(u.Pos, 0)
				return plan.New(stay), OutcomeFallback
			}
		}
		p.tl.Replace(1, next.WithUnit(u))
		return plan.New(stay), OutcomeFallback
	}

	for _, s := range succs {
		if s.Dir == grid.Still {
			continue
		}
		a := state.Action{Unit: u.ID, Dir: s.Dir, Inspired: s.Inspired, Risk: s.Risk}
		if !now.CanApply(a) {
			continue
		}
		warn(events.KindSearchFailed, fmt.Sprintf("no route, stepping %v", s.Dir))
		p.tl.Replace(1, next.ApplyMerged(s))
		return plan.New(a), OutcomeFallback
	}

	warn(events.KindStranded, "no legal step")
	p.tl.Replace(1, next.WithUnit(u))
	return nil, OutcomeStranded
}
