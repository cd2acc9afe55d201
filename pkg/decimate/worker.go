package decimate

import (
	"math"

	"github.com/chazu/meshdecimate/pkg/progress"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/spatial/r3"
)

// reportEvery is the number of queue pops between progress updates.
const reportEvery = 128

// minVertsPerWorker keeps small meshes from being spread over more workers
// than they have vertices to share.
const minVertsPerWorker = 64

// worker drains one edge queue. Before touching an edge it locks both
// endpoints and their neighbours; edges it cannot lock are handed to
// later and retried once all workers are done.
type worker struct {
	id     int32 // lock token, never 0
	w      *work
	queue  edgeQueue
	queued map[uint64]struct{} // dirty entries waiting in queue
	held   []int32
	ring   []int32
	ring2  []int32
	s      scratch
	later  *deferred
	rep    *progress.Reporter
	pops   int
}

func newWorker(id int32, w *work, q edgeQueue, later *deferred, rep *progress.Reporter) *worker {
	return &worker{
		id:     id,
		w:      w,
		queue:  q,
		queued: make(map[uint64]struct{}),
		later:  later,
		rep:    rep,
	}
}

func (k *worker) lock(v int32) bool {
	o := &k.w.owner[v]
	if o.Load() == k.id {
		return true
	}
	if !o.CompareAndSwap(0, k.id) {
		return false
	}
	k.held = append(k.held, v)
	return true
}

func (k *worker) unlockAll() {
	for _, v := range k.held {
		k.w.owner[v].Store(0)
	}
	k.held = k.held[:0]
}

// lockEdge locks a, b and every vertex sharing a triangle with either. On
// failure nothing stays locked.
func (k *worker) lockEdge(a, b int32) bool {
	if !k.lock(a) || !k.lock(b) {
		k.unlockAll()
		return false
	}
	for _, c := range [2]int32{a, b} {
		for _, t := range k.w.verts[c].tris {
			for _, x := range k.w.tris[t].v {
				if !k.lock(x) {
					k.unlockAll()
					return false
				}
			}
		}
	}
	return true
}

func (k *worker) run() {
	for k.queue.Len() > 0 && !k.w.stop.Load() {
		e := k.queue.pop()
		if e.cost == dirty {
			delete(k.queued, edgeKey(e.a, e.b))
		}
		k.step(e)

		k.pops++
		if k.pops%reportEvery == 0 {
			frac := float64(k.pops) / float64(k.pops+k.queue.Len())
			k.rep.Update(frac, int(k.w.liveTris.Load()))
		}
	}
}

// step handles one popped entry. Stale entries go back into the queue
// with their current cost.
func (k *worker) step(e entry) {
	if !k.lockEdge(e.a, e.b) {
		k.w.deferrals.Add(1)
		k.later.add(e.a, e.b)
		return
	}
	defer k.unlockAll()

	ev := k.w.evaluate(e.a, e.b, &k.s)
	best := ev.best()
	if best >= k.w.feature {
		return
	}
	if e.cost == dirty || best > e.cost {
		k.queue.push(entry{cost: best, a: e.a, b: e.b})
		return
	}
	if k.w.tryCollapse(&ev, &k.s) == collapsed {
		k.touch(ev.keep)
	}
}

// touch queues every edge whose cost may have changed after v moved: the
// edges at v and at each of its neighbours.
func (k *worker) touch(v int32) {
	k.ring = append(k.w.neighbours(v, k.ring[:0]), v)
	for _, x := range k.ring {
		k.ring2 = k.w.neighbours(x, k.ring2[:0])
		for _, y := range k.ring2 {
			key := edgeKey(x, y)
			if _, ok := k.queued[key]; ok {
				continue
			}
			k.queued[key] = struct{}{}
			a, b := edgeEnds(key)
			k.queue.push(entry{cost: dirty, a: a, b: b})
		}
	}
}

// workerCount resolves the requested thread count.
func (w *work) workerCount(threads int) int {
	if limit := int(w.liveVerts.Load()) / minVertsPerWorker; threads > limit {
		threads = limit
	}
	return max(threads, 1)
}

// regions assigns every vertex to one of n slabs along the longest axis of
// the bounding box.
func (w *work) regions(n int) []int {
	out := make([]int, len(w.verts))
	if n == 1 {
		return out
	}
	lo := r3.Vec{X: math.Inf(1), Y: math.Inf(1), Z: math.Inf(1)}
	hi := r3.Vec{X: math.Inf(-1), Y: math.Inf(-1), Z: math.Inf(-1)}
	for i := range w.verts {
		if w.verts[i].dead {
			continue
		}
		p := w.verts[i].pos
		lo = r3.Vec{X: math.Min(lo.X, p.X), Y: math.Min(lo.Y, p.Y), Z: math.Min(lo.Z, p.Z)}
		hi = r3.Vec{X: math.Max(hi.X, p.X), Y: math.Max(hi.Y, p.Y), Z: math.Max(hi.Z, p.Z)}
	}
	ext := r3.Sub(hi, lo)
	axis := func(p r3.Vec) float64 { return p.X }
	span, base := ext.X, lo.X
	if ext.Y > span {
		axis, span, base = func(p r3.Vec) float64 { return p.Y }, ext.Y, lo.Y
	}
	if ext.Z > span {
		axis, span, base = func(p r3.Vec) float64 { return p.Z }, ext.Z, lo.Z
	}
	if !(span > 0) {
		return out
	}
	for i := range w.verts {
		if w.verts[i].dead {
			continue
		}
		r := int((axis(w.verts[i].pos) - base) / span * float64(n))
		out[i] = min(max(r, 0), n-1)
	}
	return out
}

// seed costs every edge in parallel and distributes the admissible ones
// over n queues by the region of the edge's lower endpoint.
func (w *work) seed(edges map[uint64][]int32, n int) []edgeQueue {
	keys := make([]uint64, 0, len(edges))
	for key := range edges {
		keys = append(keys, key)
	}
	costs := make([]float64, len(keys))

	var g errgroup.Group
	chunk := (len(keys) + n - 1) / n
	for lo := 0; lo < len(keys); lo += chunk {
		hi := min(lo+chunk, len(keys))
		g.Go(func() error {
			var s scratch
			for i := lo; i < hi; i++ {
				a, b := edgeEnds(keys[i])
				ev := w.evaluate(a, b, &s)
				costs[i] = ev.best()
			}
			return nil
		})
	}
	_ = g.Wait()

	region := w.regions(n)
	queues := make([]edgeQueue, n)
	for i, key := range keys {
		if costs[i] >= w.feature {
			continue
		}
		a, b := edgeEnds(key)
		r := region[a]
		queues[r] = append(queues[r], entry{cost: costs[i], a: a, b: b})
	}
	for i := range queues {
		queues[i].init()
	}
	return queues
}

// decimate runs the parallel phase over queues, then retries the edges
// that lost a lock race on a single worker until nothing is left.
func (w *work) decimate(queues []edgeQueue, rep *progress.Reporter) {
	later := &deferred{}
	var g errgroup.Group
	for i, q := range queues {
		k := newWorker(int32(i+1), w, q, later, rep)
		g.Go(func() error {
			k.run()
			return nil
		})
	}
	_ = g.Wait()

	k := newWorker(int32(len(queues)+1), w, nil, later, rep)
	for !w.stop.Load() {
		k.queue = later.drain()
		if k.queue.Len() == 0 {
			return
		}
		k.run()
	}
}
