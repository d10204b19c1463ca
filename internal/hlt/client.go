// Package hlt speaks the Halite III line protocol: the game writes the board to our stdin
// once, then one frame per turn, and reads one line of commands per turn from our stdout.
package hlt

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/talgya/halibot/internal/engine"
	"github.com/talgya/halibot/internal/grid"
	"github.com/talgya/halibot/internal/rules"
	"github.com/talgya/halibot/internal/state"
)

// Client holds the board between frames. Only changed cells are sent after the first one,
// so the Client is the owner of the running copy.
type Client struct {
	r *bufio.Reader
	w *bufio.Writer

	constants rules.Constants
	torus     grid.Torus
	me        int
	players   int
	shipyards map[int]grid.Position
	cells     []int
}

// NewClient wraps the game's pipes. Call Init before Next.
func NewClient(r io.Reader, w io.Writer) *Client {
	return &Client{
		r:         bufio.NewReader(r),
		w:         bufio.NewWriter(w),
		shipyards: make(map[int]grid.Position),
	}
}

// Constants returns the ruleset announced at startup.
func (c *Client) Constants() rules.Constants { return c.constants }

// Torus returns the board geometry.
func (c *Client) Torus() grid.Torus { return c.torus }

// Me returns our player id.
func (c *Client) Me() int { return c.me }

// Init reads the startup block and answers with the bot's name.
func (c *Client) Init(name string) error {
	line, err := c.line()
	if err != nil {
		return fmt.Errorf("read constants: %w", err)
	}
	c.constants = rules.DefaultConstants()
	if err := json.Unmarshal([]byte(line), &c.constants); err != nil {
		return fmt.Errorf("parse constants: %w", err)
	}
	if err := c.constants.Validate(); err != nil {
		return fmt.Errorf("parse constants: %w", err)
	}

	head, err := c.ints(2)
	if err != nil {
		return fmt.Errorf("read players: %w", err)
	}
	c.players, c.me = head[0], head[1]
	for i := 0; i < c.players; i++ {
		yard, err := c.ints(3)
		if err != nil {
			return fmt.Errorf("read shipyard %d: %w", i, err)
		}
		c.shipyards[yard[0]] = grid.Position{X: yard[1], Y: yard[2]}
	}

	size, err := c.ints(2)
	if err != nil {
		return fmt.Errorf("read map size: %w", err)
	}
	if size[0] <= 0 || size[1] <= 0 {
		return fmt.Errorf("read map size: bad dimensions %dx%d", size[0], size[1])
	}
	c.torus = grid.NewTorus(size[0], size[1])
	c.cells = make([]int, 0, c.torus.Size())
	for y := 0; y < size[1]; y++ {
		row, err := c.ints(size[0])
		if err != nil {
			return fmt.Errorf("read map row %d: %w", y, err)
		}
		c.cells = append(c.cells, row...)
	}

	if _, err := fmt.Fprintln(c.w, name); err != nil {
		return fmt.Errorf("send name: %w", err)
	}
	return c.w.Flush()
}

// Next reads one frame. It returns io.EOF when the game closes the pipe between frames.
func (c *Client) Next() (*state.Snapshot, error) {
	if c.cells == nil {
		return nil, errors.New("hlt: Next before Init")
	}
	first, err := c.line()
	if errors.Is(err, io.EOF) && first == "" {
		return nil, io.EOF
	}
	if err != nil {
		return nil, fmt.Errorf("read turn: %w", err)
	}
	turn, err := strconv.Atoi(strings.TrimSpace(first))
	if err != nil {
		return nil, fmt.Errorf("parse turn %q: %w", first, err)
	}

	snap := &state.Snapshot{
		Torus:     c.torus,
		Turn:      turn,
		Me:        c.me,
		Constants: c.constants,
	}
	for pid, pos := range c.shipyards {
		snap.Depots = append(snap.Depots, state.SnapshotDepot{Owner: pid, Pos: pos, Shipyard: true})
	}

	for i := 0; i < c.players; i++ {
		head, err := c.ints(4)
		if err != nil {
			return nil, fmt.Errorf("read player %d: %w", i, err)
		}
		pid, ships, dropoffs, bank := head[0], head[1], head[2], head[3]
		if pid == c.me {
			snap.Bank = bank
		}
		for j := 0; j < ships; j++ {
			s, err := c.ints(4)
			if err != nil {
				return nil, fmt.Errorf("read ship of player %d: %w", pid, err)
			}
			snap.Units = append(snap.Units, state.SnapshotUnit{
				ID:    state.UnitID(s[0]),
				Owner: pid,
				Pos:   c.torus.Normalize(grid.Position{X: s[1], Y: s[2]}),
				Cargo: s[3],
			})
		}
		for j := 0; j < dropoffs; j++ {
			d, err := c.ints(3)
			if err != nil {
				return nil, fmt.Errorf("read dropoff of player %d: %w", pid, err)
			}
			snap.Depots = append(snap.Depots, state.SnapshotDepot{
				Owner: pid,
				Pos:   c.torus.Normalize(grid.Position{X: d[1], Y: d[2]}),
			})
		}
	}

	count, err := c.ints(1)
	if err != nil {
		return nil, fmt.Errorf("read update count: %w", err)
	}
	for i := 0; i < count[0]; i++ {
		u, err := c.ints(3)
		if err != nil {
			return nil, fmt.Errorf("read cell update: %w", err)
		}
		c.cells[c.torus.Index(grid.Position{X: u[0], Y: u[1]})] = u[2]
	}

	snap.Cells = append([]int(nil), c.cells...)
	return snap, nil
}

// Send writes the turn's commands as one line.
func (c *Client) Send(cmds []engine.Command) error {
	parts := make([]string, len(cmds))
	for i, cmd := range cmds {
		parts[i] = cmd.String()
	}
	if _, err := fmt.Fprintln(c.w, strings.Join(parts, " ")); err != nil {
		return err
	}
	return c.w.Flush()
}

func (c *Client) line() (string, error) {
	s, err := c.r.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && s != "") {
		return s, err
	}
	return strings.TrimRight(s, "\r\n"), nil
}

// ints reads one line holding exactly n integers.
func (c *Client) ints(n int) ([]int, error) {
	line, err := c.line()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, io.ErrUnexpectedEOF
		}
		return nil, err
	}
	fields := strings.Fields(line)
	if len(fields) != n {
		return nil, fmt.Errorf("want %d fields, got %d in %q", n, len(fields), line)
	}
	out := make([]int, n)
	for i, f := range fields {
		v, err := strconv.Atoi(f)
		if err != nil {
			return nil, fmt.Errorf("field %d of %q: %w", i, line, err)
		}
		out[i] = v
	}
	return out, nil
}
