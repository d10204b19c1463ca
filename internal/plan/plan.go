// Package plan stores committed per-unit action queues between turns.
package plan

import (
	"sort"

	"github.com/talgya/halibot/internal/state"
)

// Plan is a FIFO queue of actions for one unit. Index 0 is the next turn's action.
type Plan struct {
	actions []state.Action
}

// New returns a plan holding actions in order.
func New(actions ...state.Action) *Plan {
	return &Plan{actions: append([]state.Action(nil), actions...)}
}

// Len is the number of queued actions.
func (p *Plan) Len() int {
	if p == nil {
		return 0
	}
	return len(p.actions)
}

// Head returns the next action.
func (p *Plan) Head() (state.Action, bool) {
	if p.Len() == 0 {
		return state.Action{}, false
	}
	return p.actions[0], true
}

// At returns the action i turns ahead.
func (p *Plan) At(i int) (state.Action, bool) {
	if i < 0 || i >= p.Len() {
		return state.Action{}, false
	}
	return p.actions[i], true
}

// Pop removes the next action.
func (p *Plan) Pop() (state.Action, bool) {
	a, ok := p.Head()
	if ok {
		p.actions = p.actions[1:]
	}
	return a, ok
}

// Push appends an action.
func (p *Plan) Push(a state.Action) {
	p.actions = append(p.actions, a)
}

// Truncate keeps only the first n actions.
func (p *Plan) Truncate(n int) {
	if n < p.Len() {
		p.actions = p.actions[:max(n, 0)]
	}
}

// Actions returns a copy of the queue.
func (p *Plan) Actions() []state.Action {
	if p == nil {
		return nil
	}
	return append([]state.Action(nil), p.actions...)
}

// Book holds every unit's plan across turns.
type Book map[state.UnitID]*Plan

// Get returns a unit's plan, or nil.
func (b Book) Get(id state.UnitID) *Plan { return b[id] }

// Set replaces a unit's plan. Empty plans are removed.
func (b Book) Set(id state.UnitID, p *Plan) {
	if p.Len() == 0 {
		delete(b, id)
		return
	}
	b[id] = p
}

// IDs returns the planned units in ascending order.
func (b Book) IDs() []state.UnitID {
	ids := make([]state.UnitID, 0, len(b))
	for id := range b {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Prune drops plans for units that no longer exist and removes empty plans.
func (b Book) Prune(live []state.Unit) {
	alive := make(map[state.UnitID]bool, len(live))
	for _, u := range live {
		alive[u.ID] = true
	}
	for id, p := range b {
		if !alive[id] || p.Len() == 0 {
			delete(b, id)
		}
	}
}

// Advance pops the head of every plan after a turn's commands went out.
func (b Book) Advance() {
	for id, p := range b {
		p.Pop()
		if p.Len() == 0 {
			delete(b, id)
		}
	}
}
