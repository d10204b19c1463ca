package planner

import (
	"container/heap"

	"github.com/talgya/halibot/internal/grid"
	"github.com/talgya/halibot/internal/state"
)

// node is a search vertex: a cell at a turn offset.
type node struct {
	pos grid.Position
	t   int
}

// record is one derivation of a node. Parents are kept per record rather than per node so
// a route read back from a record always carries a consistent cargo and mining history.
type record struct {
	n      node
	m      state.MergedAction
	parent *record
}

type entry struct {
	r   *record
	f   state.Cost
	seq int
}

// frontier is a min-heap on f, ties broken by insertion order.
type frontier struct {
	items []entry
	seq   int
}

func (q *frontier) Len() int { return len(q.items) }

func (q *frontier) Less(i, j int) bool {
	a, b := q.items[i], q.items[j]
	if a.f != b.f {
		return a.f.Less(b.f)
	}
	return a.seq < b.seq
}

func (q *frontier) Swap(i, j int) { q.items[i], q.items[j] = q.items[j], q.items[i] }

func (q *frontier) Push(x any) { q.items = append(q.items, x.(entry)) }

func (q *frontier) Pop() any {
	last := q.items[len(q.items)-1]
	q.items = q.items[:len(q.items)-1]
	return last
}

func (q *frontier) push(r *record, f state.Cost) {
	q.seq++
	heap.Push(q, entry{r: r, f: f, seq: q.seq})
}

func (q *frontier) pop() entry {
	return heap.Pop(q).(entry)
}
