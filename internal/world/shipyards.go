package world

import "github.com/talgya/halibot/internal/grid"

// placeShipyards puts each player's shipyard at the same spot of its mirrored tile, a quarter
// of the board in from the tile's outer edge.
func placeShipyards(cfg GenConfig) []grid.Position {
	w, h := cfg.Width, cfg.Height
	switch cfg.Players {
	case 1:
		return []grid.Position{{X: w / 2, Y: h / 2}}
	case 2:
		x := w / 4
		return []grid.Position{
			{X: x, Y: h / 2},
			{X: w - 1 - x, Y: h / 2},
		}
	default:
		x, y := w/4, h/4
		return []grid.Position{
			{X: x, Y: y},
			{X: w - 1 - x, Y: y},
			{X: x, Y: h - 1 - y},
			{X: w - 1 - x, Y: h - 1 - y},
		}
	}
}
