// Package persistence keeps SQLite telemetry of games played: one row per run, per-turn
// timing and fleet figures, and the engine events recorded along the way.
package persistence

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/talgya/halibot/internal/events"
)

// Store wraps a SQLite connection. It is an events.Sink: events are buffered in memory and
// written with the next SaveTurn, so a turn costs one transaction.
type Store struct {
	conn *sqlx.DB

	mu      sync.Mutex
	run     uuid.UUID
	pending []events.Event
}

// Run is one game as stored.
type Run struct {
	ID       string `db:"id"`
	Bot      string `db:"bot"`
	Player   int    `db:"player"`
	Seed     int64  `db:"seed"`
	Width    int    `db:"width"`
	Height   int    `db:"height"`
	Started  int64  `db:"started"`  // unix millis
	Finished int64  `db:"finished"` // 0 while running
	Score    int    `db:"score"`
}

// Turn is one turn's figures.
type Turn struct {
	Turn     int           `db:"turn"`
	Bank     int           `db:"bank"`
	Units    int           `db:"units"`
	Commands int           `db:"commands"`
	Took     time.Duration `db:"took_ns"`
}

// EventRow is a stored events.Event.
type EventRow struct {
	Turn    int    `db:"turn"`
	Kind    string `db:"kind"`
	Unit    int    `db:"unit"`
	X       int    `db:"x"`
	Y       int    `db:"y"`
	Message string `db:"message"`
	Values  string `db:"values_json"`
}

// Open opens or creates a SQLite database at the given path.
func Open(path string) (*Store, error) {
	conn, err := sqlx.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	conn.SetMaxOpenConns(1)

	s := &Store{conn: conn}
	if err := s.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

// Close closes the database connection. Events not yet saved are dropped.
func (s *Store) Close() error {
	return s.conn.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		bot TEXT NOT NULL,
		player INTEGER NOT NULL,
		seed INTEGER NOT NULL,
		width INTEGER NOT NULL,
		height INTEGER NOT NULL,
		started INTEGER NOT NULL,
		finished INTEGER NOT NULL DEFAULT 0,
		score INTEGER NOT NULL DEFAULT 0
	);

	CREATE TABLE IF NOT EXISTS turns (
		run_id TEXT NOT NULL,
		turn INTEGER NOT NULL,
		bank INTEGER NOT NULL,
		units INTEGER NOT NULL,
		commands INTEGER NOT NULL,
		took_ns INTEGER NOT NULL,
		PRIMARY KEY (run_id, turn)
	);

	CREATE TABLE IF NOT EXISTS events (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL,
		turn INTEGER NOT NULL,
		kind TEXT NOT NULL,
		unit INTEGER NOT NULL,
		x INTEGER NOT NULL,
		y INTEGER NOT NULL,
		message TEXT NOT NULL,
		values_json TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_events_run_turn ON events(run_id, turn);
	CREATE INDEX IF NOT EXISTS idx_events_kind ON events(kind);
	`
	_, err := s.conn.Exec(schema)
	return err
}

// BeginRun registers a new game and makes it the target of later writes.
func (s *Store) BeginRun(r Run) (uuid.UUID, error) {
	id := uuid.New()
	if r.Started == 0 {
		r.Started = time.Now().UnixMilli()
	}
	r.ID = id.String()
	_, err := s.conn.NamedExec(`INSERT INTO runs
		(id, bot, player, seed, width, height, started)
		VALUES (:id, :bot, :player, :seed, :width, :height, :started)`, r)
	if err != nil {
		return uuid.Nil, fmt.Errorf("insert run: %w", err)
	}

	s.mu.Lock()
	s.run = id
	s.pending = nil
	s.mu.Unlock()
	slog.Info("telemetry run started", "run", id, "bot", r.Bot, "seed", r.Seed)
	return id, nil
}

// Record buffers an event for the current run.
func (s *Store) Record(e events.Event) {
	s.mu.Lock()
	s.pending = append(s.pending, e)
	s.mu.Unlock()
}

// SaveTurn writes the turn row and every event buffered since the previous call.
func (s *Store) SaveTurn(t Turn) error {
	s.mu.Lock()
	run, pending := s.run, s.pending
	s.pending = nil
	s.mu.Unlock()
	if run == uuid.Nil {
		return fmt.Errorf("save turn %d: no run started", t.Turn)
	}

	tx, err := s.conn.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.Exec(`INSERT OR REPLACE INTO turns
		(run_id, turn, bank, units, commands, took_ns) VALUES (?, ?, ?, ?, ?, ?)`,
		run.String(), t.Turn, t.Bank, t.Units, t.Commands, int64(t.Took))
	if err != nil {
		return fmt.Errorf("insert turn %d: %w", t.Turn, err)
	}

	stmt, err := tx.Preparex(`INSERT INTO events
		(run_id, turn, kind, unit, x, y, message, values_json) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, e := range pending {
		values := "{}"
		if len(e.Values) > 0 {
			b, _ := json.Marshal(e.Values)
			values = string(b)
		}
		if _, err := stmt.Exec(run.String(), e.Turn, string(e.Kind), e.Unit, e.Pos.X, e.Pos.Y, e.Message, values); err != nil {
			return fmt.Errorf("insert event %s: %w", e.Kind, err)
		}
	}

	return tx.Commit()
}

// FinishRun stamps the current run with its final score.
func (s *Store) FinishRun(score int) error {
	s.mu.Lock()
	run := s.run
	s.mu.Unlock()
	_, err := s.conn.Exec("UPDATE runs SET finished = ?, score = ? WHERE id = ?",
		time.Now().UnixMilli(), score, run.String())
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	return nil
}

// Runs returns stored runs, newest first.
func (s *Store) Runs(limit int) ([]Run, error) {
	var runs []Run
	err := s.conn.Select(&runs, "SELECT * FROM runs ORDER BY started DESC, id LIMIT ?", limit)
	return runs, err
}

// Turns returns a run's turn rows in order.
func (s *Store) Turns(run string) ([]Turn, error) {
	var turns []Turn
	err := s.conn.Select(&turns,
		"SELECT turn, bank, units, commands, took_ns FROM turns WHERE run_id = ? ORDER BY turn", run)
	return turns, err
}

// Events returns a run's events of one kind, or of every kind when kind is empty.
func (s *Store) Events(run string, kind events.Kind) ([]EventRow, error) {
	var rows []EventRow
	q := "SELECT turn, kind, unit, x, y, message, values_json FROM events WHERE run_id = ?"
	args := []any{run}
	if kind != "" {
		q += " AND kind = ?"
		args = append(args, string(kind))
	}
	err := s.conn.Select(&rows, q+" ORDER BY id", args...)
	return rows, err
}

// KindCounts tallies a run's events by kind.
func (s *Store) KindCounts(run string) (map[string]int, error) {
	var rows []struct {
		Kind  string `db:"kind"`
		Count int    `db:"n"`
	}
	err := s.conn.Select(&rows, "SELECT kind, COUNT(*) AS n FROM events WHERE run_id = ? GROUP BY kind", run)
	if err != nil {
		return nil, err
	}
	out := make(map[string]int, len(rows))
	for _, r := range rows {
		out[r.Kind] = r.Count
	}
	return out, nil
}
