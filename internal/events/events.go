// Package events is the diagnostics channel shared by every planning component.
// Components receive a Sink explicitly; nothing writes to a process-wide logger directly.
package events

import (
	"context"
	"log/slog"
	"sync"

	"github.com/talgya/halibot/internal/grid"
)

// Kind classifies an event.
type Kind string

const (
	KindPoison       Kind = "poison"        // committed step no longer legal
	KindSearchFailed Kind = "search_failed" // no route met the goal test
	KindStranded     Kind = "stranded"      // not even a single legal step
	KindPlanned      Kind = "planned"       // route committed
	KindPath         Kind = "path"          // one step of a committed route
	KindTarget       Kind = "target"        // assignment result
	KindSwap         Kind = "swap"          // arbiter swapped two units
	KindForcedStay   Kind = "forced_stay"   // arbiter could not clear a unit's cell
	KindDeadline     Kind = "deadline"      // turn budget ran out mid-planning
	KindSpawn        Kind = "spawn"
	KindConvert      Kind = "convert"
	KindTurn         Kind = "turn" // per-turn summary
)

// NoUnit marks events that are not about a single unit.
const NoUnit = -1

// Event is a notable occurrence during one turn's planning.
type Event struct {
	Turn    int            `json:"t"`
	Kind    Kind           `json:"kind"`
	Unit    int            `json:"unit"`
	Pos     grid.Position  `json:"pos"`
	Message string         `json:"msg,omitempty"`
	Color   string         `json:"color,omitempty"` // visualizer hint
	Values  map[string]int `json:"values,omitempty"`
}

// Level maps an event kind to a log level.
func (e Event) Level() slog.Level {
	switch e.Kind {
	case KindSearchFailed, KindStranded, KindDeadline, KindForcedStay:
		return slog.LevelWarn
	case KindPoison, KindTurn, KindSpawn, KindConvert:
		return slog.LevelInfo
	default:
		return slog.LevelDebug
	}
}

// Sink receives events.
type Sink interface {
	Record(e Event)
}

// Discard drops every event.
var Discard Sink = discard{}

type discard struct{}

func (discard) Record(Event) {}

// SlogSink forwards events to a structured logger.
type SlogSink struct {
	Logger *slog.Logger
}

// Record logs the event at its kind's level.
func (s SlogSink) Record(e Event) {
	logger := s.Logger
	if logger == nil {
		logger = slog.Default()
	}
	attrs := []any{"turn", e.Turn, "kind", string(e.Kind)}
	if e.Unit != NoUnit {
		attrs = append(attrs, "unit", e.Unit, "pos", e.Pos.String())
	}
	for k, v := range e.Values {
		attrs = append(attrs, k, v)
	}
	logger.Log(context.Background(), e.Level(), e.Message, attrs...)
}

// Multi fans out to several sinks in order.
type Multi []Sink

// Record forwards the event to every sink.
func (m Multi) Record(e Event) {
	for _, s := range m {
		s.Record(e)
	}
}

// Buffer keeps events in memory. It is safe for concurrent use.
type Buffer struct {
	mu     sync.Mutex
	events []Event
}

// Record appends the event.
func (b *Buffer) Record(e Event) {
	b.mu.Lock()
	b.events = append(b.events, e)
	b.mu.Unlock()
}

// Drain returns the buffered events and empties the buffer.
func (b *Buffer) Drain() []Event {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := b.events
	b.events = nil
	return out
}

// Count returns how many buffered events have the given kind.
func (b *Buffer) Count(k Kind) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := 0
	for _, e := range b.events {
		if e.Kind == k {
			n++
		}
	}
	return n
}
