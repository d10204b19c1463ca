package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/talgya/halibot/internal/engine"
	"github.com/talgya/halibot/internal/hlt"
	"github.com/talgya/halibot/internal/persistence"
	"github.com/talgya/halibot/internal/state"
)

func playCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "play",
		Short: "Play one game over the Halite III stdin/stdout protocol",
		RunE: func(cmd *cobra.Command, args []string) error {
			return play(cmd.Context(), opts)
		},
	}
}

func play(ctx context.Context, opts *options) error {
	client := hlt.NewClient(os.Stdin, os.Stdout)
	if err := client.Init(botName); err != nil {
		return fmt.Errorf("init: %w", err)
	}

	// The player id is only known after the handshake.
	if opts.logFile == "" {
		opts.logFile = fmt.Sprintf("%s-%d.log", botName, client.Me())
	}
	logs, err := opts.setupLogging()
	if err != nil {
		return err
	}
	defer logs.Close()

	c := client.Constants()
	tun, err := opts.tuning(c)
	if err != nil {
		return err
	}
	out, err := opts.openSinks()
	defer out.close()
	if err != nil {
		return err
	}

	bot := engine.NewBot(tun, out.sink)
	lastBank := 0
	onTurn := func(snap *state.Snapshot, cmds []engine.Command) { lastBank = snap.Bank }
	if out.store != nil {
		if _, err := out.store.BeginRun(persistence.Run{
			Bot:    botName,
			Player: client.Me(),
			Seed:   c.Seed,
			Width:  client.Torus().Width,
			Height: client.Torus().Height,
		}); err != nil {
			return err
		}
		save := saveTurn(out.store, bot)
		onTurn = func(snap *state.Snapshot, cmds []engine.Command) {
			lastBank = snap.Bank
			save(snap, cmds)
		}
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	slog.Info("game started", "player", client.Me(), "max_turns", c.MaxTurns, "seed", c.Seed)
	runner := &engine.Runner{Bot: bot, Transport: client, OnTurn: onTurn}
	if err := runner.Run(ctx); err != nil {
		return err
	}
	if out.store != nil {
		return out.store.FinishRun(lastBank)
	}
	return nil
}

// saveTurn writes each turn's figures, together with the events it produced, to the store.
func saveTurn(st *persistence.Store, bot *engine.Bot) func(*state.Snapshot, []engine.Command) {
	return func(snap *state.Snapshot, cmds []engine.Command) {
		t := persistence.Turn{
			Turn:     snap.Turn,
			Bank:     snap.Bank,
			Units:    len(snap.Friendly()),
			Commands: len(cmds),
			Took:     bot.Stats.Last,
		}
		if err := st.SaveTurn(t); err != nil {
			slog.Error("save turn", "turn", snap.Turn, "error", err)
		}
	}
}
