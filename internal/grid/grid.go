// Package grid provides positions, directions and distance on the toroidal game board.
package grid

import "fmt"

// Position is a cell on the board. Positions handed out by a Torus are always normalized
// into [0, Width) x [0, Height).
type Position struct {
	X int `json:"x"`
	Y int `json:"y"`
}

func (p Position) String() string {
	return fmt.Sprintf("(%d,%d)", p.X, p.Y)
}

// Direction is a single-turn movement choice.
type Direction uint8

const (
	Still Direction = iota
	North           // y - 1
	East            // x + 1
	South           // y + 1
	West            // x - 1
)

// Cardinals lists the four movement directions in a fixed order.
var Cardinals = [4]Direction{North, East, South, West}

// Offset returns the unit vector for the direction.
func (d Direction) Offset() (dx, dy int) {
	switch d {
	case North:
		return 0, -1
	case East:
		return 1, 0
	case South:
		return 0, 1
	case West:
		return -1, 0
	default:
		return 0, 0
	}
}

// Opposite returns the direction that undoes d.
func (d Direction) Opposite() Direction {
	switch d {
	case North:
		return South
	case East:
		return West
	case South:
		return North
	case West:
		return East
	default:
		return Still
	}
}

// Char returns the protocol encoding of the direction.
func (d Direction) Char() byte {
	switch d {
	case North:
		return 'n'
	case East:
		return 'e'
	case South:
		return 's'
	case West:
		return 'w'
	default:
		return 'o'
	}
}

func (d Direction) String() string {
	return string(d.Char())
}

// ParseDirection decodes a protocol direction character.
func ParseDirection(c byte) (Direction, bool) {
	switch c {
	case 'n':
		return North, true
	case 'e':
		return East, true
	case 's':
		return South, true
	case 'w':
		return West, true
	case 'o':
		return Still, true
	}
	return Still, false
}
