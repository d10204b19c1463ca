package grid

// Torus is a board whose edges wrap in both axes.
type Torus struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// NewTorus creates a board of the given size.
func NewTorus(width, height int) Torus {
	return Torus{Width: width, Height: height}
}

// Size returns the number of cells.
func (t Torus) Size() int {
	return t.Width * t.Height
}

// Normalize wraps a position into the board.
func (t Torus) Normalize(p Position) Position {
	return Position{
		X: ((p.X % t.Width) + t.Width) % t.Width,
		Y: ((p.Y % t.Height) + t.Height) % t.Height,
	}
}

// Offset returns the normalized cell reached by moving one step in d.
func (t Torus) Offset(p Position, d Direction) Position {
	dx, dy := d.Offset()
	return t.Normalize(Position{X: p.X + dx, Y: p.Y + dy})
}

// Neighbors returns the four cardinal neighbors in Cardinals order.
func (t Torus) Neighbors(p Position) [4]Position {
	var result [4]Position
	for i, d := range Cardinals {
		result[i] = t.Offset(p, d)
	}
	return result
}

// Index maps a position to a dense row-major index.
func (t Torus) Index(p Position) int {
	p = t.Normalize(p)
	return p.Y*t.Width + p.X
}

// At is the inverse of Index.
func (t Torus) At(i int) Position {
	return Position{X: i % t.Width, Y: i / t.Width}
}

// Distance returns the Manhattan distance with wrap-around.
func (t Torus) Distance(a, b Position) int {
	a = t.Normalize(a)
	b = t.Normalize(b)
	dx := abs(a.X - b.X)
	dy := abs(a.Y - b.Y)
	return min(dx, t.Width-dx) + min(dy, t.Height-dy)
}

// Route returns every cardinal direction whose step strictly reduces the distance from src
// to dst, x-axis first. It is empty when src == dst. When the target sits exactly half a
// board away both directions along that axis are returned.
func (t Torus) Route(src, dst Position) []Direction {
	src = t.Normalize(src)
	dst = t.Normalize(dst)

	var dirs []Direction
	dx := ((dst.X-src.X)%t.Width + t.Width) % t.Width
	if dx != 0 {
		switch {
		case dx < t.Width-dx:
			dirs = append(dirs, East)
		case dx > t.Width-dx:
			dirs = append(dirs, West)
		default:
			dirs = append(dirs, East, West)
		}
	}
	dy := ((dst.Y-src.Y)%t.Height + t.Height) % t.Height
	if dy != 0 {
		switch {
		case dy < t.Height-dy:
			dirs = append(dirs, South)
		case dy > t.Height-dy:
			dirs = append(dirs, North)
		default:
			dirs = append(dirs, South, North)
		}
	}
	return dirs
}

// DirTo returns the direction of a single step from src to dst. Adjacent cells resolve
// exactly; anything further resolves to the first routing direction.
func (t Torus) DirTo(src, dst Position) Direction {
	src = t.Normalize(src)
	dst = t.Normalize(dst)
	if src == dst {
		return Still
	}
	for _, d := range Cardinals {
		if t.Offset(src, d) == dst {
			return d
		}
	}
	return t.Route(src, dst)[0]
}

// Within returns all cells at distance <= radius from center, center included.
func (t Torus) Within(center Position, radius int) []Position {
	seen := make(map[Position]bool)
	var out []Position
	for dy := -radius; dy <= radius; dy++ {
		span := radius - abs(dy)
		for dx := -span; dx <= span; dx++ {
			p := t.Normalize(Position{X: center.X + dx, Y: center.Y + dy})
			if seen[p] {
				continue
			}
			seen[p] = true
			out = append(out, p)
		}
	}
	return out
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
