// Package assign matches units to the depots they should work for.
package assign

import (
	"math"
	"sort"

	"github.com/talgya/halibot/internal/grid"
	"github.com/talgya/halibot/internal/rules"
	"github.com/talgya/halibot/internal/state"
)

// Target is where a unit should deliver, and from which turn offset arriving there ends its
// route. Build targets are cells where the unit should convert into a new depot.
type Target struct {
	Pos        grid.Position `json:"pos"`
	MinArrival int           `json:"min_arrival"`
	Build      bool          `json:"build"`
	Score      float64       `json:"score"`
}

// column is one assignable slot of the score matrix.
type column struct {
	pos      grid.Position
	richness float64
	rank     int
	build    bool
}

// Targets assigns every unit in units a target. Units are matched to (depot, rank) columns by
// maximum total score; at most one unit is sent to build an outpost.
func Targets(ws *state.WorldState, units []state.Unit) map[state.UnitID]Target {
	out := make(map[state.UnitID]Target, len(units))
	if len(units) == 0 {
		return out
	}
	env := ws.Env()
	t := env.Tuning
	torus := env.Torus

	depots := ws.Depots()
	var cols []column
	richest := 0.0
	for _, d := range depots {
		r := Richness(ws, d, t.RichnessRadius)
		richest = math.Max(richest, r)
		for rank := range units {
			cols = append(cols, column{pos: d, richness: r, rank: rank})
		}
	}
	for _, c := range OutpostCandidates(ws, richest) {
		cols = append(cols, column{pos: c.Pos, richness: c.Richness, build: true})
	}

	score := make([][]float64, len(units))
	for i, u := range units {
		score[i] = make([]float64, len(cols))
		for j, c := range cols {
			score[i][j] = columnScore(t, torus.Distance(u.Pos, c.pos), c)
		}
	}

	match := Hungarian(score)
	builder, bestBuild := -1, -1.0
	for i, j := range match {
		if j >= 0 && cols[j].build && score[i][j] > bestBuild {
			builder, bestBuild = i, score[i][j]
		}
	}

	for i, u := range units {
		j := match[i]
		if j < 0 || (cols[j].build && i != builder) {
			d := ws.NearestDepot(u.Pos)
			out[u.ID] = Target{Pos: d, MinArrival: minArrival(ws, u, d)}
			continue
		}
		c := cols[j]
		tgt := Target{Pos: c.pos, Build: c.build, Score: score[i][j]}
		if !c.build {
			tgt.MinArrival = minArrival(ws, u, c.pos)
		}
		out[u.ID] = tgt
	}
	return out
}

// columnScore saturates towards 1 with richness and decays with distance. Ranks beyond the
// first are discounted only for units close enough to contend for the same cells.
func columnScore(t rules.Tuning, dist int, c column) float64 {
	r := c.richness
	if dist <= t.ContentionWindow {
		r *= math.Pow(t.ContentionDiscount, float64(c.rank))
	}
	return 1 - math.Exp(-r/float64(1+dist)/t.ScoreScale)
}

// Richness is the halite around p weighted by 1/(1+distance).
func Richness(ws *state.WorldState, p grid.Position, radius int) float64 {
	torus := ws.Torus()
	total := 0.0
	for _, q := range torus.Within(p, radius) {
		total += float64(ws.Halite(q)) / float64(1+torus.Distance(p, q))
	}
	return total
}

// Candidate is a cell worth building an outpost on.
type Candidate struct {
	Pos      grid.Position
	Richness float64
}

// OutpostCandidates returns up to BuildCandidates cells whose richness beats BuildRatio times
// the richest depot, spaced at least BuildSpacing from every depot and from each other. None
// are returned once the game is past BuildCutoff or a depot is unaffordable.
func OutpostCandidates(ws *state.WorldState, richest float64) []Candidate {
	env := ws.Env()
	t := env.Tuning
	c := env.Constants
	if t.BuildCandidates <= 0 || float64(ws.Turn()) >= t.BuildCutoff*float64(c.MaxTurns) {
		return nil
	}
	if ws.Bank()+c.Capacity < c.DepotCost {
		return nil
	}

	torus := env.Torus
	depots := ws.Depots()
	var all []Candidate
	for i := 0; i < torus.Size(); i++ {
		p := torus.At(i)
		if ws.IsHazard(p) || tooClose(torus, p, depots, t.BuildSpacing) {
			continue
		}
		r := Richness(ws, p, t.RichnessRadius)
		if r >= t.BuildRatio*richest {
			all = append(all, Candidate{Pos: p, Richness: r})
		}
	}
	sort.SliceStable(all, func(i, j int) bool { return all[i].Richness > all[j].Richness })

	var out []Candidate
	var picked []grid.Position
	for _, cand := range all {
		if len(out) == t.BuildCandidates {
			break
		}
		if tooClose(torus, cand.Pos, picked, t.BuildSpacing) {
			continue
		}
		out = append(out, cand)
		picked = append(picked, cand.Pos)
	}
	return out
}

func tooClose(torus grid.Torus, p grid.Position, others []grid.Position, spacing int) bool {
	for _, o := range others {
		if torus.Distance(p, o) < spacing {
			return true
		}
	}
	return false
}

// minArrival estimates the earliest offset at which returning to d is worthwhile: the trip
// plus the turns needed to fill the unit's remaining room at the local collection rate.
func minArrival(ws *state.WorldState, u state.Unit, d grid.Position) int {
	env := ws.Env()
	room := env.Constants.Capacity - u.Cargo
	local := 0
	for _, q := range env.Torus.Within(u.Pos, env.Tuning.RichnessRadius) {
		local += ws.Halite(q)
	}
	perTurn := max(1, int(env.Tuning.FillRate*float64(local)))
	return env.Torus.Distance(u.Pos, d) + rules.DivCeil(room, perTurn)
}
