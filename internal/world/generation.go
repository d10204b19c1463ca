// Board generation using layered simplex noise, mirrored so every player starts equal.
package world

import (
	"fmt"
	"math"
	"math/rand"

	opensimplex "github.com/ojrac/opensimplex-go"

	"github.com/talgya/halibot/internal/grid"
)

// GenConfig holds board generation parameters.
type GenConfig struct {
	Width, Height int
	Players       int     // 1, 2 or 4
	Seed          int64   // Random seed (0 = random)
	MaxHalite     int     // Ceiling per cell
	Floor         float64 // Share of MaxHalite every cell gets regardless of noise
	Contrast      float64 // Exponent applied to the noise; higher gives sparser, richer patches
}

// DefaultGenConfig returns a 32×32 two-player board like the standard game.
func DefaultGenConfig() GenConfig {
	return GenConfig{
		Width:     32,
		Height:    32,
		Players:   2,
		Seed:      0,
		MaxHalite: 1000,
		Floor:     0.02,
		Contrast:  2.5,
	}
}

// SmallTestConfig returns a tiny single-player board for rapid iteration.
func SmallTestConfig() GenConfig {
	return GenConfig{
		Width:     16,
		Height:    16,
		Players:   1,
		Seed:      42,
		MaxHalite: 1000,
		Floor:     0.05,
		Contrast:  2.0,
	}
}

// Generate creates a board. The noise is sampled over one tile (the whole board, a half or a
// quarter depending on the player count) and mirrored into the others.
func Generate(cfg GenConfig) (*Map, error) {
	switch cfg.Players {
	case 1, 2, 4:
	default:
		return nil, fmt.Errorf("generate: unsupported player count %d", cfg.Players)
	}
	if cfg.Width < 4 || cfg.Height < 4 {
		return nil, fmt.Errorf("generate: board %dx%d too small", cfg.Width, cfg.Height)
	}
	seed := cfg.Seed
	if seed == 0 {
		seed = rand.Int63()
	}

	// Two noise layers: broad patches and fine grain.
	broad := opensimplex.NewNormalized(seed)
	fine := opensimplex.NewNormalized(seed + 1)

	m := NewMap(cfg.Width, cfg.Height)
	tileW, tileH := cfg.Width, cfg.Height
	if cfg.Players >= 2 {
		tileW = cfg.Width / 2
	}
	if cfg.Players == 4 {
		tileH = cfg.Height / 2
	}

	for y := 0; y < cfg.Height; y++ {
		for x := 0; x < cfg.Width; x++ {
			// Fold into the first tile.
			tx, ty := x, y
			if cfg.Players >= 2 && tx >= tileW {
				tx = cfg.Width - 1 - tx
			}
			if cfg.Players == 4 && ty >= tileH {
				ty = cfg.Height - 1 - ty
			}
			fx, fy := float64(tx), float64(ty)

			v := octaveNoise(broad, fx, fy, 4, 0.12, 0.5)*0.8 + octaveNoise(fine, fx, fy, 2, 0.45, 0.5)*0.2
			v = math.Pow(v, cfg.Contrast)
			h := cfg.Floor + (1-cfg.Floor)*v
			m.Set(grid.Position{X: x, Y: y}, int(math.Round(h*float64(cfg.MaxHalite))))
		}
	}

	m.Shipyards = placeShipyards(cfg)
	for _, s := range m.Shipyards {
		m.Set(s, 0)
	}
	return m, nil
}

func octaveNoise(noise opensimplex.Noise, x, y float64, octaves int, frequency, persistence float64) float64 {
	total := 0.0
	amplitude := 1.0
	maxVal := 0.0

	for i := 0; i < octaves; i++ {
		total += noise.Eval2(x*frequency, y*frequency) * amplitude
		maxVal += amplitude
		amplitude *= persistence
		frequency *= 2
	}

	return total / maxVal
}
