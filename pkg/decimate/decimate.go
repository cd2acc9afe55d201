// Package decimate reduces the triangle count of a bound mesh by repeatedly
// collapsing the cheapest edge whose collapse moves the surface by less
// than the operation's feature size.
//
// Work is spread over a pool of workers, each owning an edge queue for one
// slab of the mesh. A worker locks the neighbourhood of an edge before it
// touches it; edges lost to a lock race are finished by a single worker at
// the end, so the result never depends on a race being won.
package decimate

import (
	"fmt"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/chazu/meshdecimate/pkg/mesh"
	"github.com/chazu/meshdecimate/pkg/progress"
)

// Decimate simplifies the mesh bound to op in place. threads <= 0 uses
// GOMAXPROCS workers.
//
// The run stops when no edge can be collapsed below the feature size or,
// if set, when the vertex count reaches the target vertex cap, whichever
// comes first. Collapses that would break the mesh are skipped and counted
// in op.Collisions.
//
// Configuration errors (errors.Is mesh.ErrConfiguration) are reported
// before the buffers are touched. mesh.ErrInUse is returned when another
// run holds op.
func Decimate(op *mesh.Operation, threads int, flags Flags) error {
	if err := op.Acquire(); err != nil {
		return err
	}
	defer op.Release()
	return Run(op, threads, flags)
}

// Run is Decimate for callers that already hold op through Acquire.
func Run(op *mesh.Operation, threads int, flags Flags) error {
	log := Logger().With("run", op.RunID())
	start := time.Now()

	rep := progress.NewReporter(op.StatusCallback(), op.StatusInterval())
	defer func() { rep.Close(op.TriangleCount) }()

	enter := func(s progress.Stage) {
		rep.Enter(s, op.TriangleCount)
		log.Debug("stage", "stage", s.String(), "elapsed", time.Since(start))
	}

	enter(progress.StageInit)
	if err := op.Validate(); err != nil {
		return fmt.Errorf("decimate: %w", err)
	}
	if threads <= 0 {
		threads = runtime.GOMAXPROCS(0)
	}
	before := op.TriangleCount

	enter(progress.StageBuildVertices)
	w := loadVertices(op)
	w.planar = flags.Planar

	enter(progress.StageBuildTriangles)
	if err := w.loadTriangles(op.Indices()); err != nil {
		return fmt.Errorf("decimate: %w", err)
	}
	w.linkTriangles()

	enter(progress.StageBuildAdjacency)
	if flags.CCWWinding {
		w.orientCCW(w.edgeMap())
	}
	if flags.NormalSplitting {
		if err := w.splitCreases(); err != nil {
			log.Warn("splitting failed", "err", err)
			return fmt.Errorf("decimate: %w", err)
		}
		w.freezeSeams()
	}
	edges := w.edgeMap()
	w.freezeNonManifold(edges)
	w.owner = make([]atomic.Int32, len(w.verts))

	enter(progress.StageBuildQueues)
	n := w.workerCount(threads)
	queues := w.seed(edges, n)

	enter(progress.StageDecimation)
	w.decimate(queues, rep)

	enter(progress.StageStore)
	w.store(op)
	op.Collapses += w.collapses.Load()
	op.Collisions += w.collisions.Load()
	op.Deferrals += w.deferrals.Load()

	log.Info("decimated",
		"flags", flags.String(),
		"workers", n,
		"feature", w.feature,
		"triangles_before", before,
		"triangles_after", op.TriangleCount,
		"vertices", op.VertexCount,
		"collapses", w.collapses.Load(),
		"collisions", w.collisions.Load(),
		"deferrals", w.deferrals.Load(),
		"elapsed", time.Since(start),
	)
	return nil
}
