package state

import (
	"fmt"

	"github.com/talgya/halibot/internal/grid"
)

// CanApply reports whether a is legal in this state.
func (ws *WorldState) CanApply(a Action) bool {
	u, ok := ws.units.Get(a.Unit)
	if !ok {
		return false
	}
	c := ws.env.Constants
	h := ws.Halite(u.Pos)

	if a.Convert {
		return !ws.IsDepot(u.Pos) && ws.bank+u.Cargo+h >= c.DepotCost
	}

	if a.Dir == grid.Still {
		if ws.IsHazard(u.Pos) && !ws.IsDepot(u.Pos) {
			return false
		}
		return a.Inspired == ws.IsInspired(u.Pos)
	}

	if u.Cargo < c.MoveCost(h) {
		return false
	}
	dest := ws.env.Torus.Offset(u.Pos, a.Dir)
	if ws.IsHazard(dest) && !ws.IsDepot(dest) {
		return false
	}
	return a.Inspired == ws.IsInspired(dest)
}

// Apply performs a on a copy of the state. The action must satisfy CanApply.
func (ws *WorldState) Apply(a Action) *WorldState {
	u := ws.MustUnit(a.Unit)
	next := *ws
	c := ws.env.Constants

	switch {
	case a.Convert:
		h := ws.Halite(u.Pos)
		if ws.IsDepot(u.Pos) {
			panic(fmt.Sprintf("state: unit %d converting on existing depot %v", u.ID, u.Pos))
		}
		funds := ws.bank + u.Cargo + h
		if funds < c.DepotCost {
			panic(fmt.Sprintf("state: unit %d cannot afford depot (%d < %d)", u.ID, funds, c.DepotCost))
		}
		next.bank = funds - c.DepotCost
		next.setHalite(u.Pos, 0)
		next.depots = next.depots.Set(u.Pos, struct{}{})
		next.units = next.units.Delete(u.ID)
		if occ, ok := next.occupancy.Get(u.Pos); ok && occ == u.ID {
			next.occupancy = next.occupancy.Delete(u.Pos)
		}

	case a.Dir == grid.Still:
		h := ws.Halite(u.Pos)
		gain := ws.yield(h, u.Cargo, ws.IsInspired(u.Pos))
		next.setHalite(u.Pos, h-gain)
		u.Cargo += gain
		next.placeUnit(u)

	default:
		cost := c.MoveCost(ws.Halite(u.Pos))
		if u.Cargo < cost {
			panic(fmt.Sprintf("state: unit %d moving with %d cargo, needs %d", u.ID, u.Cargo, cost))
		}
		u.Cargo -= cost
		u.Pos = ws.env.Torus.Offset(u.Pos, a.Dir)
		if ws.IsDepot(u.Pos) {
			next.bank += u.Cargo
			u.Cargo = 0
		}
		next.placeUnit(u)
	}
	return &next
}

// yield is what one mining turn moves from a cell holding h into the unit's hold. The
// inspiration bonus is taken from the cell too, so it never exceeds h.
func (ws *WorldState) yield(h, cargo int, inspired bool) int {
	c := ws.env.Constants
	gain := c.Extract(h)
	if inspired {
		gain = c.Inspire(gain)
	}
	return min(gain, c.Capacity-cargo, h)
}

// Advance moves to the next turn. The first advance from the originating snapshot grows
// every hazard into its four neighbors, since enemy units may have stepped there.
func (ws *WorldState) Advance() *WorldState {
	next := *ws
	if ws.turn == ws.start {
		b := ws.hazards
		for _, p := range sortedPositions(ws.hazards) {
			for _, n := range ws.env.Torus.Neighbors(p) {
				b = b.Set(n, struct{}{})
			}
		}
		next.hazards = b
	}
	next.turn++
	return &next
}

// Successors expands one search node: up to four moves and, when allowMine is set, a
// mining stay. The state is ws with pending's route already merged in.
func (ws *WorldState) Successors(pending MergedAction, allowMine bool) []MergedAction {
	st := ws.ApplyMerged(pending)
	if st.TurnsRemaining() <= 0 {
		return nil
	}
	c := ws.env.Constants
	tun := ws.env.Tuning
	out := make([]MergedAction, 0, 5)

	fuel := c.MoveCost(st.Halite(pending.Pos))
	if pending.Cargo >= fuel {
		for _, d := range grid.Cardinals {
			dest := ws.env.Torus.Offset(pending.Pos, d)
			depot := st.IsDepot(dest)
			if st.IsHazard(dest) && !depot {
				continue
			}
			next := pending
			next.Dir = d
			next.Pos = dest
			next.Cargo = pending.Cargo - fuel
			next.Deposited = 0
			next.Cost = pending.Cost + fuel
			if occ, ok := st.Occupant(dest); ok && occ != pending.Unit {
				if !depot || st.TurnsRemaining() > tun.CrowdWindow {
					continue
				}
				next.Cost += tun.DepotCrowdPenalty
			}
			if depot {
				next.Deposited = next.Cargo
				next.Returned += next.Cargo
				next.Cargo = 0
			}
			next.Inspired = st.IsInspired(dest)
			next.Risk = !depot && st.NearHazard(dest)
			if next.Risk {
				next.Cost += tun.RiskPenalty
			}
			out = append(out, next)
		}
	}

	if allowMine {
		occ, ok := st.Occupant(pending.Pos)
		depot := st.IsDepot(pending.Pos)
		if ok && occ == pending.Unit && (depot || !st.IsHazard(pending.Pos)) {
			h := st.Halite(pending.Pos)
			inspired := st.IsInspired(pending.Pos)
			gain := st.yield(h, pending.Cargo, inspired)
			next := pending
			next.Dir = grid.Still
			next.Deposited = 0
			next.Cargo = pending.Cargo + gain
			next.Cost = pending.Cost - gain
			next.Mined = pending.Mined.Set(pending.Pos, h-gain)
			next.Inspired = inspired
			next.Risk = !depot && st.NearHazard(pending.Pos)
			if next.Risk {
				next.Cost += tun.RiskPenalty
			}
			out = append(out, next)
		}
	}
	return out
}

// ApplyMerged writes a route's accumulated effect into the state: the unit's position and
// cargo, the halite it has deposited, and every cell it has mined.
func (ws *WorldState) ApplyMerged(m MergedAction) *WorldState {
	if m.Cargo < 0 || m.Cargo > ws.env.Constants.Capacity {
		panic(fmt.Sprintf("state: unit %d merged cargo %d outside [0,%d]", m.Unit, m.Cargo, ws.env.Constants.Capacity))
	}
	next := *ws
	pos := ws.env.Torus.Normalize(m.Pos)

	if old, ok := next.units.Get(m.Unit); ok {
		if occ, ok := next.occupancy.Get(old.Pos); ok && occ == m.Unit {
			next.occupancy = next.occupancy.Delete(old.Pos)
		}
	}
	next.units = next.units.Set(m.Unit, Unit{ID: m.Unit, Pos: pos, Cargo: m.Cargo})
	if _, taken := next.occupancy.Get(pos); !taken {
		next.occupancy = next.occupancy.Set(pos, m.Unit)
	}
	next.bank += m.Returned

	if m.Mined != nil {
		itr := m.Mined.Iterator()
		for !itr.Done() {
			p, h, _ := itr.Next()
			next.setHalite(p, h)
		}
	}
	return &next
}
