package main

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/talgya/halibot/internal/engine"
	"github.com/talgya/halibot/internal/events"
	"github.com/talgya/halibot/internal/persistence"
	"github.com/talgya/halibot/internal/rules"
	"github.com/talgya/halibot/internal/world"
)

type selfplayFlags struct {
	gen   world.GenConfig
	turns int
}

func selfplayCmd(opts *options) *cobra.Command {
	f := &selfplayFlags{gen: world.DefaultGenConfig(), turns: rules.DefaultConstants().MaxTurns}
	cmd := &cobra.Command{
		Use:   "selfplay",
		Short: "Play a local match between copies of the bot on a generated map",
		RunE: func(cmd *cobra.Command, args []string) error {
			return selfplay(cmd.Context(), opts, f)
		},
	}
	cmd.Flags().IntVar(&f.gen.Width, "width", f.gen.Width, "board width")
	cmd.Flags().IntVar(&f.gen.Height, "height", f.gen.Height, "board height")
	cmd.Flags().IntVar(&f.gen.Players, "players", f.gen.Players, "1, 2 or 4")
	cmd.Flags().Int64Var(&f.gen.Seed, "seed", f.gen.Seed, "map seed (0 = random)")
	cmd.Flags().IntVar(&f.turns, "turns", f.turns, "turns to play")
	return cmd
}

func selfplay(ctx context.Context, opts *options, f *selfplayFlags) error {
	logs, err := opts.setupLogging()
	if err != nil {
		return err
	}
	defer logs.Close()

	m, err := world.Generate(f.gen)
	if err != nil {
		return err
	}
	slog.Info("map generated", "width", f.gen.Width, "height", f.gen.Height, "players", f.gen.Players,
		"halite", humanize.Comma(int64(m.Total())))

	c := rules.DefaultConstants()
	c.MaxTurns = f.turns
	c.Seed = f.gen.Seed
	tun, err := opts.tuning(c)
	if err != nil {
		return err
	}

	out, err := opts.openSinks()
	defer out.close()
	if err != nil {
		return err
	}

	// Player 0 is the one recorded; the others only log.
	bots := make([]*engine.Bot, f.gen.Players)
	for i := range bots {
		var sink events.Sink = events.Discard
		if i == 0 {
			sink = out.sink
		}
		bots[i] = engine.NewBot(tun, sink)
	}
	match, err := world.NewMatch(m, c, bots)
	if err != nil {
		return err
	}

	if out.store != nil {
		run := persistence.Run{Bot: botName, Player: 0, Seed: f.gen.Seed, Width: f.gen.Width, Height: f.gen.Height}
		if _, err := out.store.BeginRun(run); err != nil {
			return err
		}
	}
	var save func(int, int, int)
	if out.store != nil {
		save = func(turn, bank, commands int) {
			t := persistence.Turn{Turn: turn, Bank: bank, Units: match.Ships()[0], Commands: commands, Took: bots[0].Stats.Last}
			if err := out.store.SaveTurn(t); err != nil {
				slog.Error("save turn", "turn", turn, "error", err)
			}
		}
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	for !match.Done() {
		if err := ctx.Err(); err != nil {
			return err
		}
		orders := match.Step(ctx)
		if save != nil {
			save(match.Turn, match.Players[0].Bank, len(orders[0]))
		}
		if match.Turn%50 == 0 {
			bots[0].Stats.Log(match.Turn, match.Players[0].Bank, match.Ships()[0])
		}
	}

	scores := match.Scores()
	for i, s := range scores {
		slog.Info("final score", "player", i, "halite", humanize.Comma(int64(s)), "ships", match.Ships()[i])
	}
	if len(match.Violations) > 0 {
		slog.Warn("match had refused commands", "count", len(match.Violations), "first", match.Violations[0].Error())
	}
	if out.store != nil {
		if err := out.store.FinishRun(scores[0]); err != nil {
			return err
		}
	}
	fmt.Printf("scores %v violations %d collisions %d\n", scores, len(match.Violations), len(match.Collisions))
	return nil
}
