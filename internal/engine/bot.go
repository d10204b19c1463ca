// Package engine runs one planning round per game turn and turns its result into commands.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/talgya/halibot/internal/arbiter"
	"github.com/talgya/halibot/internal/assign"
	"github.com/talgya/halibot/internal/events"
	"github.com/talgya/halibot/internal/grid"
	"github.com/talgya/halibot/internal/plan"
	"github.com/talgya/halibot/internal/planner"
	"github.com/talgya/halibot/internal/rules"
	"github.com/talgya/halibot/internal/state"
	"github.com/talgya/halibot/internal/timeline"
)

// Bot is one player's decision loop. The plan book is the only state kept between turns.
type Bot struct {
	Tuning rules.Tuning
	Stats  Stats

	book          plan.Book
	sink          events.Sink
	initialHalite int
}

// NewBot returns a bot that reports to sink.
func NewBot(tuning rules.Tuning, sink events.Sink) *Bot {
	if sink == nil {
		sink = events.Discard
	}
	return &Bot{Tuning: tuning, book: plan.Book{}, sink: sink}
}

// Plans exposes the committed plans, for diagnostics.
func (b *Bot) Plans() plan.Book { return b.book }

// Turn plans the snapshot's turn and returns exactly one command per friendly unit, plus an
// optional spawn. Planning stops at the earlier of ctx and the tuning's turn budget; units
// left unplanned are settled by the collision arbiter.
func (b *Bot) Turn(ctx context.Context, snap *state.Snapshot) []Command {
	started := time.Now()
	if b.Tuning.TurnBudget > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, b.Tuning.TurnBudget)
		defer cancel()
	}
	if b.initialHalite == 0 {
		b.initialHalite = snap.TotalHalite()
	}

	live := snap.Friendly()
	sort.Slice(live, func(i, j int) bool { return live[i].ID < live[j].ID })
	b.book.Prune(live)

	tl := timeline.Build(state.FromSnapshot(snap, b.Tuning), live, b.book, b.sink)
	now := tl.At(0)

	unplanned := tl.Unplanned()
	units := make([]state.Unit, 0, len(unplanned))
	for _, id := range unplanned {
		units = append(units, now.MustUnit(id))
	}
	targets := assign.Targets(now, units)
	for _, u := range units {
		t := targets[u.ID]
		b.sink.Record(events.Event{
			Turn:    snap.Turn,
			Kind:    events.KindTarget,
			Unit:    int(u.ID),
			Pos:     t.Pos,
			Message: fmt.Sprintf("unit %d -> %v build=%t", u.ID, t.Pos, t.Build),
			Values:  map[string]int{"min_arrival": t.MinArrival},
		})
	}

	pl := planner.New(tl, b.sink)
	negotiate := make(map[state.UnitID]grid.Position)
	deadline := false
	for _, id := range planner.Order(tl, unplanned) {
		u := now.MustUnit(id)
		if deadline {
			negotiate[id] = u.Pos
			continue
		}
		p, out := pl.Plan(ctx, id, targets[id])
		switch out {
		case planner.OutcomeCancelled:
			deadline = true
			negotiate[id] = u.Pos
			b.sink.Record(events.Event{
				Turn:    snap.Turn,
				Kind:    events.KindDeadline,
				Unit:    int(id),
				Pos:     u.Pos,
				Message: fmt.Sprintf("turn budget spent with %d units unplanned", len(unplanned)),
			})
		case planner.OutcomeStranded:
			negotiate[id] = targets[id].Pos
		default:
			b.book.Set(id, p)
		}
	}

	planned := len(unplanned) - len(negotiate)
	cmds, funds := b.commands(tl, live, negotiate)
	if b.shouldSpawn(tl, snap, funds, cmds) {
		cmds = append(cmds, Spawn())
		b.sink.Record(events.Event{Turn: snap.Turn, Kind: events.KindSpawn, Unit: events.NoUnit, Pos: snap.Home()})
	}
	b.book.Advance()

	b.Stats.Record(snap.Turn, time.Since(started))
	b.sink.Record(events.Event{
		Turn: snap.Turn,
		Kind: events.KindTurn,
		Unit: events.NoUnit,
		Values: map[string]int{
			"units":     len(live),
			"planned":   planned,
			"negotiate": len(negotiate),
			"bank":      snap.Bank,
			"micros":    int(b.Stats.Last.Microseconds()),
		},
	})
	slog.Debug("turn planned", "turn", snap.Turn, "units", len(live), "commands", len(cmds))
	return cmds
}

// commands turns plan heads into orders and hands everything else to the arbiter. It returns
// the bank left after this turn's conversions.
func (b *Bot) commands(tl *timeline.Timeline, live []state.Unit, negotiate map[state.UnitID]grid.Position) ([]Command, int) {
	now := tl.At(0)
	c := now.Constants()
	torus := now.Torus()
	funds := now.Bank()

	canMove := func(u state.Unit) bool { return u.Cargo >= c.MoveCost(now.Halite(u.Pos)) }
	demote := func(u state.Unit) {
		b.book.Set(u.ID, nil)
		negotiate[u.ID] = u.Pos
	}

	// Committed routes never share a cell, but a replayed plan can still end up next to a
	// replanned neighbor; the second claimant negotiates instead.
	claimed := make(map[grid.Position]state.UnitID)
	crowding := now.TurnsRemaining() <= b.Tuning.CrowdWindow

	type order struct {
		u    state.Unit
		a    state.Action
		dest grid.Position
	}
	var orders []order
	for _, u := range live {
		if _, ok := negotiate[u.ID]; ok {
			continue
		}
		a, ok := b.book.Get(u.ID).Head()
		if !ok || !now.CanApply(a) {
			demote(u)
			continue
		}
		dest := u.Pos
		if !a.Convert {
			dest = torus.Offset(u.Pos, a.Dir)
		}
		if _, taken := claimed[dest]; taken && !(now.IsDepot(dest) && crowding) {
			demote(u)
			continue
		}
		if a.Convert {
			need := c.DepotCost - u.Cargo - now.Halite(u.Pos)
			if funds < need {
				demote(u)
				continue
			}
			funds -= need
		}
		claimed[dest] = u.ID
		orders = append(orders, order{u: u, a: a, dest: dest})
	}

	// Negotiation may leave a unit boxed in on a cell a planned unit is entering. That plan is
	// dropped and the turn settled again; each round removes at least one order.
	hazards := tl.At(1).Hazards()
	var moves []arbiter.Move
	var settled *events.Buffer
	for {
		settled = &events.Buffer{}
		arb := arbiter.New(torus, now.Depots(), now.Turn(), settled)
		for _, h := range hazards {
			arb.Block(h)
		}
		for _, o := range orders {
			arb.Reserve(o.dest, o.u.ID)
		}
		for _, u := range live {
			to, ok := negotiate[u.ID]
			if !ok {
				continue
			}
			arb.Request(arbiter.Request{
				Unit:    u.ID,
				From:    u.Pos,
				To:      to,
				CanMove: canMove(u),
			})
		}
		moves = arb.CollectMoves()

		bumped := make(map[state.UnitID]bool)
		for _, id := range arb.Bumped() {
			bumped[id] = true
		}
		if len(bumped) == 0 {
			break
		}
		kept := orders[:0]
		for _, o := range orders {
			if !bumped[o.u.ID] {
				kept = append(kept, o)
				continue
			}
			if o.a.Convert {
				funds += c.DepotCost - o.u.Cargo - now.Halite(o.u.Pos)
			}
			demote(o.u)
		}
		orders = kept
	}
	for _, e := range settled.Drain() {
		b.sink.Record(e)
	}

	var cmds []Command
	for _, o := range orders {
		if o.a.Convert {
			cmds = append(cmds, Convert(o.u.ID))
			b.sink.Record(events.Event{Turn: now.Turn(), Kind: events.KindConvert, Unit: int(o.u.ID), Pos: o.u.Pos})
			continue
		}
		cmds = append(cmds, Move(o.u.ID, o.a.Dir))
	}
	for _, m := range moves {
		cmds = append(cmds, Move(m.Unit, m.Dir))
	}

	sort.SliceStable(cmds, func(i, j int) bool { return cmds[i].Unit < cmds[j].Unit })
	return cmds, funds
}

// shouldSpawn gates a new unit on funds, game phase, remaining board halite and a shipyard
// that nobody will stand on next turn.
func (b *Bot) shouldSpawn(tl *timeline.Timeline, snap *state.Snapshot, funds int, cmds []Command) bool {
	c := snap.Constants
	if funds < c.UnitCost {
		return false
	}
	if float64(snap.Turn) >= b.Tuning.SpawnCutoff*float64(c.MaxTurns) {
		return false
	}
	if float64(tl.At(0).TotalHalite()) <= b.Tuning.SpawnHaliteFraction*float64(b.initialHalite) {
		return false
	}
	home := snap.Home()
	if _, taken := tl.At(1).Occupant(home); taken {
		return false
	}
	now := tl.At(0)
	for _, cmd := range cmds {
		if cmd.Kind != CommandMove {
			continue
		}
		u := now.MustUnit(cmd.Unit)
		if snap.Torus.Offset(u.Pos, cmd.Dir) == home {
			return false
		}
	}
	return true
}
