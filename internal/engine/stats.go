package engine

import (
	"log/slog"
	"time"

	"github.com/dustin/go-humanize"
)

// Stats tracks how long each turn took.
type Stats struct {
	Turns   int           `json:"turns"`
	Total   time.Duration `json:"total"`
	Max     time.Duration `json:"max"`
	MaxTurn int           `json:"max_turn"`
	Last    time.Duration `json:"last"`
}

// Record adds one turn's duration.
func (s *Stats) Record(turn int, d time.Duration) {
	s.Turns++
	s.Total += d
	s.Last = d
	if d > s.Max {
		s.Max = d
		s.MaxTurn = turn
	}
}

// Mean is the average turn duration.
func (s *Stats) Mean() time.Duration {
	if s.Turns == 0 {
		return 0
	}
	return s.Total / time.Duration(s.Turns)
}

// Log writes the running figures.
func (s *Stats) Log(turn, bank, units int) {
	slog.Info("turn timing",
		"turn", turn,
		"took", s.Last.Round(time.Microsecond),
		"mean", s.Mean().Round(time.Microsecond),
		"max", s.Max.Round(time.Microsecond),
		"max_turn", s.MaxTurn,
		"total", s.Total.Round(time.Millisecond),
		"bank", humanize.Comma(int64(bank)),
		"units", units,
	)
}
