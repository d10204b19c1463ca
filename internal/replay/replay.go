// Package replay writes the visualizer log: one JSON message per line, zstd-compressed.
package replay

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/klauspost/compress/zstd"

	"github.com/talgya/halibot/internal/events"
)

// Message is one visualizer annotation on a cell at a turn.
type Message struct {
	T     int    `json:"t"`
	X     int    `json:"x"`
	Y     int    `json:"y"`
	Msg   string `json:"msg"`
	Color string `json:"color,omitempty"`
}

// kindColors is used when an event carries no color of its own.
var kindColors = map[events.Kind]string{
	events.KindPoison:       "red",
	events.KindStranded:     "red",
	events.KindSearchFailed: "orange",
	events.KindForcedStay:   "orange",
	events.KindSwap:         "blue",
	events.KindTarget:       "green",
	events.KindConvert:      "purple",
}

// FromEvent converts a unit event to a message. Events that are not about a cell are skipped.
func FromEvent(e events.Event) (Message, bool) {
	if e.Unit == events.NoUnit {
		return Message{}, false
	}
	msg := e.Message
	if msg == "" {
		msg = string(e.Kind)
	}
	color := e.Color
	if color == "" {
		color = kindColors[e.Kind]
	}
	return Message{T: e.Turn, X: e.Pos.X, Y: e.Pos.Y, Msg: msg, Color: color}, true
}

// Writer is an events.Sink that streams messages to a .jsonl.zst file.
// Record cannot return an error, so the first write failure is kept and reported by Close.
type Writer struct {
	mu  sync.Mutex
	f   *os.File
	enc *zstd.Encoder
	w   *bufio.Writer
	err error
	n   int
}

// Create opens path for writing, creating parent directories.
func Create(path string) (*Writer, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create replay dir: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create replay: %w", err)
	}
	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedFastest))
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("create replay encoder: %w", err)
	}
	return &Writer{f: f, enc: enc, w: bufio.NewWriterSize(enc, 128*1024)}, nil
}

// Record writes the event if it maps to a message.
func (w *Writer) Record(e events.Event) {
	m, ok := FromEvent(e)
	if !ok {
		return
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.err != nil || w.w == nil {
		return
	}
	b, err := json.Marshal(m)
	if err == nil {
		_, err = w.w.Write(b)
	}
	if err == nil {
		err = w.w.WriteByte('\n')
	}
	if err != nil {
		w.err = fmt.Errorf("write replay: %w", err)
		return
	}
	w.n++
}

// Count returns how many messages were written.
func (w *Writer) Count() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.n
}

// Close flushes and closes the file. It returns the first write error, if any.
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.w == nil {
		return w.err
	}
	errs := []error{w.err, w.w.Flush(), w.enc.Close(), w.f.Close()}
	w.w, w.enc, w.f = nil, nil, nil
	return errors.Join(errs...)
}

// ReadAll decodes every message in a replay file.
func ReadAll(path string) ([]Message, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open replay: %w", err)
	}
	defer f.Close()
	dec, err := zstd.NewReader(f)
	if err != nil {
		return nil, fmt.Errorf("open replay decoder: %w", err)
	}
	defer dec.Close()

	var out []Message
	jd := json.NewDecoder(dec)
	for {
		var m Message
		err := jd.Decode(&m)
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return out, fmt.Errorf("decode replay message %d: %w", len(out), err)
		}
		out = append(out, m)
	}
}
