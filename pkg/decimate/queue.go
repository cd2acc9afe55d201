package decimate

import (
	"container/heap"
	"sync"
)

// dirty marks a queue entry whose cost must be recomputed before use.
const dirty = -1

type entry struct {
	cost float64
	a, b int32
}

// edgeQueue is a min-heap of edges keyed by collapse cost. Costs go stale as
// the mesh changes; entries are re-validated when popped.
type edgeQueue []entry

func (q edgeQueue) Len() int { return len(q) }
func (q edgeQueue) Less(i, j int) bool {
	if q[i].cost != q[j].cost {
		return q[i].cost < q[j].cost
	}
	if q[i].a != q[j].a {
		return q[i].a < q[j].a
	}
	return q[i].b < q[j].b
}
func (q edgeQueue) Swap(i, j int) { q[i], q[j] = q[j], q[i] }
func (q *edgeQueue) Push(x any)   { *q = append(*q, x.(entry)) }
func (q *edgeQueue) Pop() any {
	old := *q
	e := old[len(old)-1]
	*q = old[:len(old)-1]
	return e
}

func (q *edgeQueue) init()        { heap.Init(q) }
func (q *edgeQueue) push(e entry) { heap.Push(q, e) }
func (q *edgeQueue) pop() entry   { return heap.Pop(q).(entry) }

// deferred collects edges a worker could not lock. They are retried by a
// single worker once the parallel phase is over.
type deferred struct {
	mu    sync.Mutex
	edges map[uint64]struct{}
}

func (d *deferred) add(a, b int32) {
	d.mu.Lock()
	if d.edges == nil {
		d.edges = make(map[uint64]struct{})
	}
	d.edges[edgeKey(a, b)] = struct{}{}
	d.mu.Unlock()
}

// drain returns the collected edges as dirty entries and empties the set.
func (d *deferred) drain() edgeQueue {
	d.mu.Lock()
	defer d.mu.Unlock()
	q := make(edgeQueue, 0, len(d.edges))
	for k := range d.edges {
		a, b := edgeEnds(k)
		q = append(q, entry{cost: dirty, a: a, b: b})
	}
	d.edges = nil
	q.init()
	return q
}
