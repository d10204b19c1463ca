package world

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/talgya/halibot/internal/engine"
	"github.com/talgya/halibot/internal/grid"
	"github.com/talgya/halibot/internal/rules"
	"github.com/talgya/halibot/internal/state"
)

// StartingBank is each player's halite at the start of a match.
const StartingBank = 5000

// Violation is a command the rules refused.
type Violation struct {
	Turn   int
	Player int
	Unit   state.UnitID
	Reason string
}

func (v Violation) Error() string {
	return fmt.Sprintf("turn %d player %d unit %d: %s", v.Turn, v.Player, v.Unit, v.Reason)
}

// Collision records ships destroyed together on one cell.
type Collision struct {
	Turn   int
	Pos    grid.Position
	Units  []state.UnitID
	Owners []int
}

type ship struct {
	id    state.UnitID
	owner int
	pos   grid.Position
	cargo int
}

type depot struct {
	owner    int
	pos      grid.Position
	shipyard bool
}

// Player is one seat in a match.
type Player struct {
	ID   int
	Bot  *engine.Bot
	Bank int
}

// Match runs the game rules locally so bots can play each other without the official engine.
type Match struct {
	Constants  rules.Constants
	Board      *Map
	Turn       int
	Players    []*Player
	Violations []Violation
	Collisions []Collision

	ships  map[state.UnitID]*ship
	depots []depot
	nextID state.UnitID
}

// NewMatch seats one bot per shipyard.
func NewMatch(m *Map, c rules.Constants, bots []*engine.Bot) (*Match, error) {
	if len(bots) != len(m.Shipyards) {
		return nil, fmt.Errorf("new match: %d bots for %d shipyards", len(bots), len(m.Shipyards))
	}
	match := &Match{
		Constants: c,
		Board:     m,
		ships:     make(map[state.UnitID]*ship),
	}
	for i, b := range bots {
		match.Players = append(match.Players, &Player{ID: i, Bot: b, Bank: StartingBank})
		match.depots = append(match.depots, depot{owner: i, pos: m.Shipyards[i], shipyard: true})
	}
	return match, nil
}

// Done reports whether the last turn has been played.
func (m *Match) Done() bool { return m.Turn >= m.Constants.MaxTurns }

// Snapshot is player pid's view of the board before the next turn.
func (m *Match) Snapshot(pid int) *state.Snapshot {
	s := &state.Snapshot{
		Torus:     m.Board.Torus,
		Turn:      m.Turn + 1,
		Me:        pid,
		Bank:      m.Players[pid].Bank,
		Cells:     append([]int(nil), m.Board.Cells...),
		Constants: m.Constants,
	}
	for _, sh := range m.sortedShips() {
		s.Units = append(s.Units, state.SnapshotUnit{ID: sh.id, Owner: sh.owner, Pos: sh.pos, Cargo: sh.cargo})
	}
	for _, d := range m.depots {
		s.Depots = append(s.Depots, state.SnapshotDepot{Owner: d.owner, Pos: d.pos, Shipyard: d.shipyard})
	}
	return s
}

// Run plays turns until the match ends or ctx is done.
func (m *Match) Run(ctx context.Context) error {
	for !m.Done() {
		if err := ctx.Err(); err != nil {
			return err
		}
		m.Step(ctx)
	}
	slog.Info("match finished", "turns", m.Turn, "scores", m.Scores(), "violations", len(m.Violations), "collisions", len(m.Collisions))
	return nil
}

// Step asks every bot for its commands and resolves one turn. It returns the orders as given.
func (m *Match) Step(ctx context.Context) [][]engine.Command {
	orders := make([][]engine.Command, len(m.Players))
	for i, p := range m.Players {
		orders[i] = p.Bot.Turn(ctx, m.Snapshot(i))
	}
	m.Resolve(orders)
	return orders
}

// Resolve applies one turn of commands, indexed by player.
func (m *Match) Resolve(orders [][]engine.Command) {
	m.Turn++
	moved := make(map[state.UnitID]bool)
	var spawns []int

	for pid, cmds := range orders {
		seen := make(map[state.UnitID]bool)
		for _, cmd := range cmds {
			if cmd.Kind == engine.CommandSpawn {
				if m.Players[pid].Bank < m.Constants.UnitCost {
					m.violate(pid, -1, "spawn unaffordable")
					continue
				}
				m.Players[pid].Bank -= m.Constants.UnitCost
				spawns = append(spawns, pid)
				continue
			}
			sh, ok := m.ships[cmd.Unit]
			if !ok || sh.owner != pid {
				m.violate(pid, cmd.Unit, "unknown unit")
				continue
			}
			if seen[cmd.Unit] {
				m.violate(pid, cmd.Unit, "second command")
				continue
			}
			seen[cmd.Unit] = true
			switch cmd.Kind {
			case engine.CommandConvert:
				m.convert(pid, sh)
			case engine.CommandMove:
				if cmd.Dir == grid.Still {
					continue
				}
				cost := m.Constants.MoveCost(m.Board.Get(sh.pos))
				if sh.cargo < cost {
					m.violate(pid, sh.id, fmt.Sprintf("needs %d fuel, has %d", cost, sh.cargo))
					continue
				}
				sh.cargo -= cost
				sh.pos = m.Board.Torus.Offset(sh.pos, cmd.Dir)
				moved[sh.id] = true
			}
		}
	}

	for _, pid := range spawns {
		m.nextID++
		m.ships[m.nextID] = &ship{id: m.nextID, owner: pid, pos: m.Board.Shipyards[pid]}
		moved[m.nextID] = true
	}

	m.collide()

	inspired := m.inspiredShips()
	for _, sh := range m.sortedShips() {
		if d, ok := m.depotAt(sh.pos); ok && d.owner == sh.owner {
			if moved[sh.id] {
				m.Players[sh.owner].Bank += sh.cargo
				sh.cargo = 0
				continue
			}
		}
		if moved[sh.id] {
			continue
		}
		h := m.Board.Get(sh.pos)
		gain := m.Constants.Extract(h)
		if inspired[sh.id] {
			gain = m.Constants.Inspire(gain)
		}
		gain = min(gain, m.Constants.Capacity-sh.cargo, h)
		m.Board.Set(sh.pos, h-gain)
		sh.cargo += gain
	}
}

func (m *Match) convert(pid int, sh *ship) {
	if _, ok := m.depotAt(sh.pos); ok {
		m.violate(pid, sh.id, "convert on a structure")
		return
	}
	h := m.Board.Get(sh.pos)
	need := m.Constants.DepotCost - sh.cargo - h
	if m.Players[pid].Bank < need {
		m.violate(pid, sh.id, fmt.Sprintf("convert needs %d more", need-m.Players[pid].Bank))
		return
	}
	m.Players[pid].Bank -= need
	m.Board.Set(sh.pos, 0)
	m.depots = append(m.depots, depot{owner: pid, pos: sh.pos})
	delete(m.ships, sh.id)
}

// collide destroys every ship sharing a cell. Cargo goes to the structure's owner when the
// cell holds one, otherwise back onto the cell.
func (m *Match) collide() {
	byPos := make(map[grid.Position][]*ship)
	for _, sh := range m.sortedShips() {
		byPos[sh.pos] = append(byPos[sh.pos], sh)
	}
	var cells []grid.Position
	for p, ships := range byPos {
		if len(ships) > 1 {
			cells = append(cells, p)
		}
	}
	sort.Slice(cells, func(i, j int) bool { return m.Board.Torus.Index(cells[i]) < m.Board.Torus.Index(cells[j]) })

	for _, p := range cells {
		c := Collision{Turn: m.Turn, Pos: p}
		cargo := 0
		for _, sh := range byPos[p] {
			c.Units = append(c.Units, sh.id)
			c.Owners = append(c.Owners, sh.owner)
			cargo += sh.cargo
			delete(m.ships, sh.id)
		}
		if d, ok := m.depotAt(p); ok {
			m.Players[d.owner].Bank += cargo
		} else {
			m.Board.Set(p, m.Board.Get(p)+cargo)
		}
		m.Collisions = append(m.Collisions, c)
	}
}

func (m *Match) inspiredShips() map[state.UnitID]bool {
	out := make(map[state.UnitID]bool)
	c := m.Constants
	if !c.InspirationEnabled || c.InspirationShipCount <= 0 {
		return out
	}
	ships := m.sortedShips()
	for _, sh := range ships {
		n := 0
		for _, other := range ships {
			if other.owner != sh.owner && m.Board.Torus.Distance(sh.pos, other.pos) <= c.InspirationRadius {
				n++
			}
		}
		out[sh.id] = n >= c.InspirationShipCount
	}
	return out
}

func (m *Match) depotAt(p grid.Position) (depot, bool) {
	for _, d := range m.depots {
		if d.pos == p {
			return d, true
		}
	}
	return depot{}, false
}

func (m *Match) sortedShips() []*ship {
	out := make([]*ship, 0, len(m.ships))
	for _, sh := range m.ships {
		out = append(out, sh)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].id < out[j].id })
	return out
}

func (m *Match) violate(pid int, unit state.UnitID, reason string) {
	v := Violation{Turn: m.Turn, Player: pid, Unit: unit, Reason: reason}
	m.Violations = append(m.Violations, v)
	slog.Warn("command refused", "turn", v.Turn, "player", pid, "unit", unit, "reason", reason)
}

// Scores returns each player's bank.
func (m *Match) Scores() []int {
	out := make([]int, len(m.Players))
	for i, p := range m.Players {
		out[i] = p.Bank
	}
	return out
}

// Ships returns the number of ships each player has afloat.
func (m *Match) Ships() []int {
	out := make([]int, len(m.Players))
	for _, sh := range m.ships {
		out[sh.owner]++
	}
	return out
}
