// Command halibot is a Halite III bot. "play" speaks the game protocol on stdin/stdout;
// "selfplay" runs local matches on generated maps.
package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/talgya/halibot/internal/events"
	"github.com/talgya/halibot/internal/persistence"
	"github.com/talgya/halibot/internal/replay"
	"github.com/talgya/halibot/internal/rules"
)

const botName = "halibot"

// options are the flags shared by every subcommand.
type options struct {
	logLevel   string
	logFile    string
	tuningFile string
	replayPath string
	dbPath     string
}

func main() {
	opts := &options{}
	root := &cobra.Command{
		Use:           botName,
		Short:         "Multi-turn planning bot for Halite III",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "info", "debug, info, warn or error")
	root.PersistentFlags().StringVar(&opts.logFile, "log-file", "", "write logs here instead of stderr")
	root.PersistentFlags().StringVar(&opts.tuningFile, "tuning", "", "YAML file overriding the default tuning")
	root.PersistentFlags().StringVar(&opts.replayPath, "replay", "", "write a zstd JSONL visualizer log here")
	root.PersistentFlags().StringVar(&opts.dbPath, "db", "", "record telemetry in this SQLite file")

	root.AddCommand(playCmd(opts), selfplayCmd(opts), runsCmd(opts), replayCmd())

	if err := root.Execute(); err != nil {
		slog.Error("halibot failed", "error", err)
		os.Exit(1)
	}
}

// setupLogging installs the default slog logger. Logs never go to stdout, which belongs to
// the game protocol.
func (o *options) setupLogging() (io.Closer, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(o.logLevel)); err != nil {
		return nil, fmt.Errorf("parse log level: %w", err)
	}
	var w io.Writer = os.Stderr
	var closer io.Closer = io.NopCloser(nil)
	if o.logFile != "" {
		if err := os.MkdirAll(filepath.Dir(o.logFile), 0o755); err != nil {
			return nil, fmt.Errorf("create log dir: %w", err)
		}
		f, err := os.OpenFile(o.logFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
		if err != nil {
			return nil, fmt.Errorf("open log file: %w", err)
		}
		w, closer = f, f
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})))
	return closer, nil
}

func (o *options) tuning(c rules.Constants) (rules.Tuning, error) {
	if o.tuningFile == "" {
		return rules.DefaultTuning(c), nil
	}
	t, err := rules.LoadTuning(o.tuningFile, c)
	if err != nil {
		return t, fmt.Errorf("load tuning: %w", err)
	}
	slog.Info("tuning loaded", "path", o.tuningFile)
	return t, nil
}

// sinks opens the optional replay log and telemetry store. close must be called even when
// an error is returned.
type sinks struct {
	sink   events.Sink
	replay *replay.Writer
	store  *persistence.Store
}

func (o *options) openSinks() (*sinks, error) {
	s := &sinks{}
	list := events.Multi{events.SlogSink{}}
	if o.replayPath != "" {
		w, err := replay.Create(o.replayPath)
		if err != nil {
			return s, err
		}
		s.replay = w
		list = append(list, w)
	}
	if o.dbPath != "" {
		st, err := persistence.Open(o.dbPath)
		if err != nil {
			return s, err
		}
		s.store = st
		list = append(list, st)
		slog.Info("database opened", "path", o.dbPath)
	}
	s.sink = list
	return s, nil
}

func (s *sinks) close() {
	if s.replay != nil {
		if err := s.replay.Close(); err != nil {
			slog.Error("close replay", "error", err)
		} else {
			slog.Info("replay written", "messages", s.replay.Count())
		}
	}
	if s.store != nil {
		if err := s.store.Close(); err != nil {
			slog.Error("close db", "error", err)
		}
	}
}
