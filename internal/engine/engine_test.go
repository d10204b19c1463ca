package engine_test

import (
	"context"
	"testing"

	"github.com/talgya/halibot/internal/engine"
	"github.com/talgya/halibot/internal/events"
	"github.com/talgya/halibot/internal/grid"
	"github.com/talgya/halibot/internal/rules"
	"github.com/talgya/halibot/internal/state"
	"github.com/talgya/halibot/internal/world"
)

func testTuning(c rules.Constants) rules.Tuning {
	t := rules.DefaultTuning(c)
	t.Lookahead = 8
	t.MaxExpansions = 4000
	t.TurnBudget = 0
	return t
}

// worldState rebuilds the bot's view of a snapshot with its units registered.
func worldState(s *state.Snapshot, t rules.Tuning) *state.WorldState {
	ws := state.FromSnapshot(s, t)
	for _, u := range s.Friendly() {
		ws = ws.WithUnit(u)
	}
	return ws
}

func TestSelfPlayEmitsOnlyLegalCommands(t *testing.T) {
	m, err := world.Generate(world.SmallTestConfig())
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	c := rules.DefaultConstants()
	tun := testTuning(c)
	sink := &events.Buffer{}
	bot := engine.NewBot(tun, sink)
	match, err := world.NewMatch(m, c, []*engine.Bot{bot})
	if err != nil {
		t.Fatalf("NewMatch: %v", err)
	}

	ctx := context.Background()
	for turn := 0; turn < 60; turn++ {
		snap := match.Snapshot(0)
		ws := worldState(snap, tun)
		cmds := bot.Turn(ctx, snap)

		seen := map[state.UnitID]bool{}
		for _, cmd := range cmds {
			if cmd.Kind == engine.CommandSpawn {
				continue
			}
			if seen[cmd.Unit] {
				t.Fatalf("turn %d: unit %d got two commands", snap.Turn, cmd.Unit)
			}
			seen[cmd.Unit] = true

			a := state.Action{Unit: cmd.Unit, Dir: cmd.Dir, Convert: cmd.Kind == engine.CommandConvert}
			if !a.Convert {
				u := ws.MustUnit(cmd.Unit)
				a.Inspired = ws.IsInspired(ws.Torus().Offset(u.Pos, cmd.Dir))
			}
			if !ws.CanApply(a) {
				t.Fatalf("turn %d: illegal command %v", snap.Turn, cmd)
			}
		}
		for _, u := range snap.Friendly() {
			if !seen[u.ID] {
				t.Fatalf("turn %d: unit %d got no command", snap.Turn, u.ID)
			}
		}

		match.Resolve([][]engine.Command{cmds})
	}

	if len(match.Violations) != 0 {
		t.Fatalf("violations: %v", match.Violations)
	}
	if len(match.Collisions) != 0 {
		t.Fatalf("collisions: %+v", match.Collisions)
	}
	if match.Ships()[0] < 2 {
		t.Fatalf("ships=%d, bot never grew its fleet", match.Ships()[0])
	}
	if sink.Count(events.KindTurn) != 60 {
		t.Fatalf("turn events=%d want=60", sink.Count(events.KindTurn))
	}
	if match.Scores()[0] <= 0 && match.Ships()[0] == 0 {
		t.Fatalf("bot ended with nothing")
	}
}

func TestTurnSpawnsOnFirstTurn(t *testing.T) {
	m, err := world.Generate(world.SmallTestConfig())
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	c := rules.DefaultConstants()
	bot := engine.NewBot(testTuning(c), nil)
	match, _ := world.NewMatch(m, c, []*engine.Bot{bot})

	cmds := bot.Turn(context.Background(), match.Snapshot(0))
	if len(cmds) != 1 || cmds[0].Kind != engine.CommandSpawn {
		t.Fatalf("cmds=%v want a single spawn", cmds)
	}
}

func TestTurnSkipsSpawnWhenShipyardWillBeOccupied(t *testing.T) {
	m := world.NewMap(8, 8)
	for i := range m.Cells {
		m.Cells[i] = 100
	}
	m.Shipyards = []grid.Position{{X: 4, Y: 4}}
	c := rules.DefaultConstants()
	bot := engine.NewBot(testTuning(c), nil)
	match, _ := world.NewMatch(m, c, []*engine.Bot{bot})

	// The new unit has no cargo to pay the move cost off a 100-halite cell, so it stays home.
	match.Resolve([][]engine.Command{{engine.Spawn()}})
	cmds := bot.Turn(context.Background(), match.Snapshot(0))
	for _, cmd := range cmds {
		if cmd.Kind == engine.CommandSpawn {
			t.Fatalf("spawned onto an occupied shipyard: %v", cmds)
		}
	}
}

func TestCommandStrings(t *testing.T) {
	cases := map[string]engine.Command{
		"m 3 n": engine.Move(3, grid.North),
		"m 3 o": engine.Stay(3),
		"c 9":   engine.Convert(9),
		"g":     engine.Spawn(),
	}
	for want, cmd := range cases {
		if got := cmd.String(); got != want {
			t.Fatalf("String()=%q want=%q", got, want)
		}
	}
}
