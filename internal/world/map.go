package world

import (
	"fmt"

	"github.com/talgya/halibot/internal/grid"
)

// Map is a generated board: halite per cell and one shipyard per player.
type Map struct {
	Torus     grid.Torus
	Cells     []int // row-major
	Shipyards []grid.Position
}

// NewMap creates an empty w×h map.
func NewMap(w, h int) *Map {
	t := grid.NewTorus(w, h)
	return &Map{Torus: t, Cells: make([]int, t.Size())}
}

// Get returns the halite at p.
func (m *Map) Get(p grid.Position) int {
	return m.Cells[m.Torus.Index(p)]
}

// Set stores halite at p.
func (m *Map) Set(p grid.Position, h int) {
	m.Cells[m.Torus.Index(p)] = h
}

// Total returns the halite on the whole board.
func (m *Map) Total() int {
	total := 0
	for _, h := range m.Cells {
		total += h
	}
	return total
}

// String returns a summary of the map.
func (m *Map) String() string {
	return fmt.Sprintf("Map(%dx%d, players=%d, halite=%d)", m.Torus.Width, m.Torus.Height, len(m.Shipyards), m.Total())
}
