package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/talgya/halibot/internal/state"
)

// Transport exchanges turns with the game. Next returns io.EOF once the game is over.
type Transport interface {
	Next() (*state.Snapshot, error)
	Send(cmds []Command) error
}

// Runner drives a Bot over a Transport until the game ends.
type Runner struct {
	Bot       *Bot
	Transport Transport

	// OnTurn, if set, sees every turn's commands after they are sent.
	OnTurn func(snap *state.Snapshot, cmds []Command)
}

// Run blocks until the transport reports the end of the game, ctx ends, or I/O fails.
func (r *Runner) Run(ctx context.Context) error {
	slog.Info("bot started", "lookahead", r.Bot.Tuning.Lookahead, "turn_budget", r.Bot.Tuning.TurnBudget)

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		snap, err := r.Transport.Next()
		if errors.Is(err, io.EOF) {
			slog.Info("game over", "turns", r.Bot.Stats.Turns, "mean", r.Bot.Stats.Mean(), "max", r.Bot.Stats.Max)
			return nil
		}
		if err != nil {
			return fmt.Errorf("read turn: %w", err)
		}

		cmds := r.Bot.Turn(ctx, snap)
		if err := r.Transport.Send(cmds); err != nil {
			return fmt.Errorf("send turn %d: %w", snap.Turn, err)
		}
		if r.OnTurn != nil {
			r.OnTurn(snap, cmds)
		}
		r.Bot.Stats.Log(snap.Turn, snap.Bank, len(snap.Friendly()))
	}
}
