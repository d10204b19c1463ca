// Package state holds the immutable per-turn world model the planner searches over.
//
// Every WorldState is a value that never changes once returned: transitions build a new
// WorldState whose maps share all unchanged structure with the old one.
package state

import (
	"fmt"
	"sort"

	"github.com/benbjohnson/immutable"

	"github.com/talgya/halibot/internal/grid"
)

// UnitID identifies a friendly collector.
type UnitID int

// Unit is a friendly collector's position and cargo.
type Unit struct {
	ID    UnitID        `json:"id"`
	Pos   grid.Position `json:"pos"`
	Cargo int           `json:"cargo"`
}

func (u Unit) String() string {
	return fmt.Sprintf("unit %d at %v carrying %d", u.ID, u.Pos, u.Cargo)
}

// Action is one decided step of a unit's plan.
type Action struct {
	Unit     UnitID         `json:"unit"`
	Dir      grid.Direction `json:"dir"`
	Inspired bool           `json:"inspired"` // destination expected to carry the extraction bonus
	Risk     bool           `json:"risk"`     // destination expected next to a hazard
	Convert  bool           `json:"convert"`  // build a depot instead of moving
}

// Cost orders search nodes by steps taken, then by signed resource expenditure.
// Mining makes Value negative; burning fuel makes it positive.
type Cost struct {
	Steps int
	Value int
}

// Add sums two costs component-wise.
func (c Cost) Add(o Cost) Cost {
	return Cost{Steps: c.Steps + o.Steps, Value: c.Value + o.Value}
}

// Less is the lexicographic order: fewer steps first, then lower expenditure.
func (c Cost) Less(o Cost) bool {
	if c.Steps != o.Steps {
		return c.Steps < o.Steps
	}
	return c.Value < o.Value
}

// MergedAction is a candidate extension of one unit's route. It carries everything needed
// to write the route's effect into a WorldState without replaying it.
type MergedAction struct {
	Unit      UnitID
	Pos       grid.Position
	Dir       grid.Direction // step that produced this action; Still for mining and the root
	Cargo     int
	Deposited int // deposited by this step
	Returned  int // deposited along the whole route so far
	Inspired  bool
	Risk      bool
	Cost      int                                // cumulative signed expenditure
	Mined     *immutable.Map[grid.Position, int] // cell halite left behind by this route's mining
}

// NewMergedAction is the root of a search for u.
func NewMergedAction(u Unit) MergedAction {
	return MergedAction{
		Unit:  u.ID,
		Pos:   u.Pos,
		Cargo: u.Cargo,
		Mined: immutable.NewMap[grid.Position, int](positionHasher{}),
	}
}

// Action converts the step that produced m into a plan action.
func (m MergedAction) Action() Action {
	return Action{Unit: m.Unit, Dir: m.Dir, Inspired: m.Inspired, Risk: m.Risk}
}

type positionHasher struct{}

func (positionHasher) Hash(p grid.Position) uint32 {
	return uint32(p.X)*73856093 ^ uint32(p.Y)*19349663
}

func (positionHasher) Equal(a, b grid.Position) bool { return a == b }

type unitHasher struct{}

func (unitHasher) Hash(id UnitID) uint32 {
	h := uint64(id) * 0x9E3779B97F4A7C15
	return uint32(h >> 32)
}

func (unitHasher) Equal(a, b UnitID) bool { return a == b }

type positionSet = *immutable.Map[grid.Position, struct{}]

func newPositionSet(ps ...grid.Position) positionSet {
	b := immutable.NewMapBuilder[grid.Position, struct{}](positionHasher{})
	for _, p := range ps {
		b.Set(p, struct{}{})
	}
	return b.Map()
}

func contains(s positionSet, p grid.Position) bool {
	_, ok := s.Get(p)
	return ok
}

func sortedPositions(s positionSet) []grid.Position {
	out := make([]grid.Position, 0, s.Len())
	itr := s.Iterator()
	for !itr.Done() {
		p, _, _ := itr.Next()
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Y != out[j].Y {
			return out[i].Y < out[j].Y
		}
		return out[i].X < out[j].X
	})
	return out
}
