package world

import (
	"context"
	"testing"

	"github.com/talgya/halibot/internal/engine"
	"github.com/talgya/halibot/internal/grid"
	"github.com/talgya/halibot/internal/rules"
	"github.com/talgya/halibot/internal/state"
)

func TestGenerateIsMirroredAndDeterministic(t *testing.T) {
	cfg := DefaultGenConfig()
	cfg.Seed = 99
	a, err := Generate(cfg)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	b, _ := Generate(cfg)
	for i := range a.Cells {
		if a.Cells[i] != b.Cells[i] {
			t.Fatalf("cell %d differs between runs with one seed", i)
		}
	}
	for y := 0; y < cfg.Height; y++ {
		for x := 0; x < cfg.Width; x++ {
			l := a.Get(grid.Position{X: x, Y: y})
			r := a.Get(grid.Position{X: cfg.Width - 1 - x, Y: y})
			if l != r {
				t.Fatalf("(%d,%d)=%d mirror=%d", x, y, l, r)
			}
			if l < 0 || l > cfg.MaxHalite {
				t.Fatalf("(%d,%d)=%d outside [0,%d]", x, y, l, cfg.MaxHalite)
			}
		}
	}
	if len(a.Shipyards) != 2 {
		t.Fatalf("shipyards=%d want=2", len(a.Shipyards))
	}
}

func TestGenerateRejectsOddPlayerCount(t *testing.T) {
	cfg := DefaultGenConfig()
	cfg.Players = 3
	if _, err := Generate(cfg); err == nil {
		t.Fatalf("expected error for 3 players")
	}
}

func flatMatch(t *testing.T, players int) *Match {
	t.Helper()
	m := NewMap(8, 8)
	for i := range m.Cells {
		m.Cells[i] = 100
	}
	m.Shipyards = []grid.Position{{X: 1, Y: 1}, {X: 5, Y: 5}}[:players]
	for _, s := range m.Shipyards {
		m.Set(s, 0)
	}
	c := rules.DefaultConstants()
	c.InspirationEnabled = false
	bots := make([]*engine.Bot, players)
	for i := range bots {
		bots[i] = engine.NewBot(rules.DefaultTuning(c), nil)
	}
	match, err := NewMatch(m, c, bots)
	if err != nil {
		t.Fatalf("NewMatch: %v", err)
	}
	return match
}

func TestResolveSpawnMineAndDeposit(t *testing.T) {
	m := flatMatch(t, 1)
	m.Resolve([][]engine.Command{{engine.Spawn()}})
	if m.Players[0].Bank != StartingBank-m.Constants.UnitCost {
		t.Fatalf("bank=%d after spawn", m.Players[0].Bank)
	}
	id := state.UnitID(1)
	sh := m.ships[id]
	if sh == nil || sh.pos != (grid.Position{X: 1, Y: 1}) {
		t.Fatalf("spawned ship=%+v", sh)
	}

	m.Resolve([][]engine.Command{{engine.Move(id, grid.East)}})
	m.Resolve([][]engine.Command{{engine.Stay(id)}})
	if sh.cargo != 25 {
		t.Fatalf("cargo=%d want=25", sh.cargo)
	}
	if got := m.Board.Get(grid.Position{X: 2, Y: 1}); got != 75 {
		t.Fatalf("cell=%d want=75", got)
	}

	bank := m.Players[0].Bank
	m.Resolve([][]engine.Command{{engine.Move(id, grid.West)}})
	if m.Players[0].Bank != bank+18 || sh.cargo != 0 {
		t.Fatalf("bank=%d cargo=%d want deposit of 18", m.Players[0].Bank, sh.cargo)
	}
}

func TestResolveInspiredMiningConservesHalite(t *testing.T) {
	m := flatMatch(t, 2)
	m.Constants.InspirationEnabled = true
	m.ships[7] = &ship{id: 7, owner: 0, pos: grid.Position{X: 3, Y: 3}}
	m.ships[8] = &ship{id: 8, owner: 1, pos: grid.Position{X: 3, Y: 5}}
	m.ships[9] = &ship{id: 9, owner: 1, pos: grid.Position{X: 5, Y: 3}}
	total := func() int {
		n := m.Board.Total()
		for _, sh := range m.ships {
			n += sh.cargo
		}
		return n
	}
	before := total()

	m.Resolve([][]engine.Command{{engine.Stay(7)}, {engine.Stay(8), engine.Stay(9)}})
	if m.ships[7].cargo != 75 {
		t.Fatalf("inspired cargo=%d want=75", m.ships[7].cargo)
	}
	if got := m.Board.Get(grid.Position{X: 3, Y: 3}); got != 25 {
		t.Fatalf("cell=%d want=25", got)
	}
	if m.ships[8].cargo != 25 {
		t.Fatalf("uninspired cargo=%d want=25", m.ships[8].cargo)
	}
	if after := total(); after != before {
		t.Fatalf("board+cargo=%d want=%d", after, before)
	}
}

func TestResolveRefusesMoveWithoutFuel(t *testing.T) {
	m := flatMatch(t, 1)
	m.ships[7] = &ship{id: 7, owner: 0, pos: grid.Position{X: 3, Y: 3}}
	m.Resolve([][]engine.Command{{engine.Move(7, grid.North)}})

	if len(m.Violations) != 1 {
		t.Fatalf("violations=%v want one", m.Violations)
	}
	if m.ships[7].pos != (grid.Position{X: 3, Y: 3}) {
		t.Fatalf("ship moved without fuel")
	}
}

func TestResolveCollisionDestroysBoth(t *testing.T) {
	m := flatMatch(t, 2)
	m.ships[7] = &ship{id: 7, owner: 0, pos: grid.Position{X: 3, Y: 3}, cargo: 200}
	m.ships[8] = &ship{id: 8, owner: 1, pos: grid.Position{X: 4, Y: 4}, cargo: 300}
	m.Resolve([][]engine.Command{
		{engine.Move(7, grid.East)},
		{engine.Move(8, grid.North)},
	})

	if len(m.Collisions) != 1 || len(m.ships) != 0 {
		t.Fatalf("collisions=%v ships=%d", m.Collisions, len(m.ships))
	}
	// 190 + 290 dropped on a cell that held 100.
	if got := m.Board.Get(grid.Position{X: 4, Y: 3}); got != 580 {
		t.Fatalf("cell=%d want=580", got)
	}
}

func TestResolveConvertBuildsDepot(t *testing.T) {
	m := flatMatch(t, 1)
	m.ships[7] = &ship{id: 7, owner: 0, pos: grid.Position{X: 4, Y: 4}, cargo: 400}
	m.Resolve([][]engine.Command{{engine.Convert(7)}})

	if _, ok := m.depotAt(grid.Position{X: 4, Y: 4}); !ok {
		t.Fatalf("no depot built")
	}
	if want := StartingBank - (m.Constants.DepotCost - 400 - 100); m.Players[0].Bank != want {
		t.Fatalf("bank=%d want=%d", m.Players[0].Bank, want)
	}
}

func TestRunTwoBotsToCompletion(t *testing.T) {
	cfg := DefaultGenConfig()
	cfg.Width, cfg.Height, cfg.Seed = 16, 16, 3
	m, err := Generate(cfg)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	c := rules.DefaultConstants()
	c.MaxTurns = 15
	tun := rules.DefaultTuning(c)
	tun.Lookahead = 6
	tun.TurnBudget = 0

	match, err := NewMatch(m, c, []*engine.Bot{engine.NewBot(tun, nil), engine.NewBot(tun, nil)})
	if err != nil {
		t.Fatalf("NewMatch: %v", err)
	}
	if err := match.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if match.Turn != 15 || !match.Done() {
		t.Fatalf("turn=%d want=15", match.Turn)
	}
	if len(match.Violations) != 0 {
		t.Fatalf("violations: %v", match.Violations)
	}
	for i, n := range match.Ships() {
		if n == 0 {
			t.Fatalf("player %d has no ships", i)
		}
	}
}

func TestTwoBotMatchHasNoFriendlyCollisions(t *testing.T) {
	if testing.Short() {
		t.Skip("long match")
	}
	for _, seed := range []int64{5, 8} {
		cfg := DefaultGenConfig()
		cfg.Width, cfg.Height, cfg.Seed = 24, 24, seed
		m, err := Generate(cfg)
		if err != nil {
			t.Fatalf("Generate: %v", err)
		}
		c := rules.DefaultConstants()
		c.MaxTurns = 200
		tun := rules.DefaultTuning(c)
		tun.Lookahead = 10
		tun.MaxExpansions = 3000
		tun.TurnBudget = 0

		match, err := NewMatch(m, c, []*engine.Bot{engine.NewBot(tun, nil), engine.NewBot(tun, nil)})
		if err != nil {
			t.Fatalf("NewMatch: %v", err)
		}
		ctx := context.Background()
		for !match.Done() {
			seen := len(match.Collisions)
			match.Step(ctx)
			for _, col := range match.Collisions[seen:] {
				if _, ok := match.depotAt(col.Pos); ok {
					continue
				}
				owners := map[int]bool{}
				for _, o := range col.Owners {
					if owners[o] {
						t.Fatalf("seed %d turn %d: player %d units %v collided at %v", seed, col.Turn, o, col.Units, col.Pos)
					}
					owners[o] = true
				}
			}
		}
		if len(match.Violations) != 0 {
			t.Fatalf("seed %d: violations: %v", seed, match.Violations)
		}
	}
}
