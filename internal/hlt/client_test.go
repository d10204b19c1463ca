package hlt

import (
	"bytes"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/talgya/halibot/internal/engine"
	"github.com/talgya/halibot/internal/grid"
)

const startup = `{"MAX_TURNS": 401, "MAX_ENERGY": 1000, "NEW_ENTITY_ENERGY_COST": 1000, "DROPOFF_COST": 4000, "MOVE_COST_RATIO": 10, "EXTRACT_RATIO": 4, "INSPIRATION_ENABLED": true, "INSPIRATION_RADIUS": 4, "INSPIRATION_SHIP_COUNT": 2, "INSPIRED_BONUS_MULTIPLIER": 2.0, "game_seed": 7, "CAPTURE_ENABLED": false}
2 1
0 1 1
1 2 2
4 3
10 20 30 40
50 60 70 80
90 100 110 120
`

const frame = `1
0 1 0 4000
0 1 1 0
1 2 1 3500
2 0 2 0
3 1 2 5
7 2 0
2
0 0 9
3 2 0
`

func TestInitParsesBoardAndSendsName(t *testing.T) {
	var out bytes.Buffer
	c := NewClient(strings.NewReader(startup), &out)
	if err := c.Init("halibot"); err != nil {
		t.Fatalf("Init: %v", err)
	}
	if out.String() != "halibot\n" {
		t.Fatalf("wrote %q want the bot name", out.String())
	}
	if c.Me() != 1 {
		t.Fatalf("me=%d want=1", c.Me())
	}
	k := c.Constants()
	if k.MaxTurns != 401 || k.Seed != 7 || k.DepotCost != 4000 {
		t.Fatalf("constants=%+v", k)
	}
	if len(c.cells) != 12 || c.cells[11] != 120 {
		t.Fatalf("cells=%v", c.cells)
	}
}

func TestNextAppliesUpdatesAndOwners(t *testing.T) {
	c := NewClient(strings.NewReader(startup+frame), io.Discard)
	if err := c.Init("halibot"); err != nil {
		t.Fatalf("Init: %v", err)
	}
	snap, err := c.Next()
	if err != nil {
		t.Fatalf("Next: %v", err)
	}
	if snap.Turn != 1 || snap.Bank != 3500 {
		t.Fatalf("turn=%d bank=%d want 1/3500", snap.Turn, snap.Bank)
	}
	if got := snap.Halite(grid.Position{X: 0, Y: 0}); got != 9 {
		t.Fatalf("updated cell=%d want=9", got)
	}
	if got := snap.Halite(grid.Position{X: 3, Y: 2}); got != 0 {
		t.Fatalf("updated cell=%d want=0", got)
	}
	if got := snap.Halite(grid.Position{X: 1, Y: 1}); got != 60 {
		t.Fatalf("untouched cell=%d want=60", got)
	}

	mine := snap.Friendly()
	if len(mine) != 2 || mine[0].ID != 2 || mine[1].Cargo != 5 {
		t.Fatalf("friendly=%+v", mine)
	}
	if len(snap.Units) != 3 {
		t.Fatalf("units=%d want=3", len(snap.Units))
	}
	if home := snap.Home(); home != (grid.Position{X: 2, Y: 2}) {
		t.Fatalf("home=%v want (2,2)", home)
	}
	dropoffs := 0
	for _, d := range snap.Depots {
		if !d.Shipyard {
			dropoffs++
			if d.Owner != 1 || d.Pos != (grid.Position{X: 2, Y: 0}) {
				t.Fatalf("dropoff=%+v", d)
			}
		}
	}
	if dropoffs != 1 || len(snap.Depots) != 3 {
		t.Fatalf("depots=%+v", snap.Depots)
	}

	if _, err := c.Next(); !errors.Is(err, io.EOF) {
		t.Fatalf("Next at end=%v want io.EOF", err)
	}
}

func TestNextRejectsTruncatedFrame(t *testing.T) {
	c := NewClient(strings.NewReader(startup+"1\n0 1 0 4000\n"), io.Discard)
	if err := c.Init("halibot"); err != nil {
		t.Fatalf("Init: %v", err)
	}
	if _, err := c.Next(); err == nil || errors.Is(err, io.EOF) {
		t.Fatalf("err=%v want a read error", err)
	}
}

func TestSendWritesOneLine(t *testing.T) {
	var out bytes.Buffer
	c := NewClient(strings.NewReader(""), &out)
	cmds := []engine.Command{engine.Move(2, grid.East), engine.Convert(4), engine.Spawn()}
	if err := c.Send(cmds); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if err := c.Send(nil); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if got, want := out.String(), "m 2 e c 4 g\n\n"; got != want {
		t.Fatalf("wrote %q want %q", got, want)
	}
}

func TestInitRejectsZeroRatios(t *testing.T) {
	bad := strings.Replace(startup, `"MOVE_COST_RATIO": 10`, `"MOVE_COST_RATIO": 0`, 1)
	c := NewClient(strings.NewReader(bad), io.Discard)
	if err := c.Init("halibot"); err == nil {
		t.Fatalf("Init accepted MOVE_COST_RATIO 0")
	}
}
