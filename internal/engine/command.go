package engine

import (
	"fmt"

	"github.com/talgya/halibot/internal/grid"
	"github.com/talgya/halibot/internal/state"
)

// CommandKind is what a unit or the shipyard does this turn.
type CommandKind uint8

const (
	CommandMove    CommandKind = iota // includes staying, with Dir == grid.Still
	CommandConvert                    // unit becomes a depot
	CommandSpawn                      // shipyard builds a new unit
)

// Command is one order sent to the game.
type Command struct {
	Kind CommandKind
	Unit state.UnitID // unset for CommandSpawn
	Dir  grid.Direction
}

// Move orders u one step in d.
func Move(u state.UnitID, d grid.Direction) Command {
	return Command{Kind: CommandMove, Unit: u, Dir: d}
}

// Stay orders u to hold its cell and mine.
func Stay(u state.UnitID) Command { return Move(u, grid.Still) }

// Convert orders u to build a depot on its cell.
func Convert(u state.UnitID) Command { return Command{Kind: CommandConvert, Unit: u} }

// Spawn orders a new unit at the shipyard.
func Spawn() Command { return Command{Kind: CommandSpawn} }

func (c Command) String() string {
	switch c.Kind {
	case CommandConvert:
		return fmt.Sprintf("c %d", c.Unit)
	case CommandSpawn:
		return "g"
	default:
		return fmt.Sprintf("m %d %c", c.Unit, c.Dir.Char())
	}
}
