// Package budget drives the decimation kernel towards a triangle budget by
// searching over the feature size.
package budget

import (
	"fmt"
	"math"
	"time"

	"github.com/chazu/meshdecimate/pkg/decimate"
	"github.com/chazu/meshdecimate/pkg/mesh"
)

// Options bound the search.
type Options struct {
	// MaxIterations is the largest number of kernel runs. Zero means the
	// default.
	MaxIterations int
	// Tolerance is the accepted shortfall below the budget as a fraction
	// of it: a result in [max*(1-Tolerance), max] ends the search.
	Tolerance float64
	// TimeLimit stops the search once exceeded. It is checked between
	// kernel runs only. Zero means no limit.
	TimeLimit time.Duration
}

// DefaultOptions returns 16 iterations, 5% tolerance and no time limit.
func DefaultOptions() Options {
	return Options{MaxIterations: 16, Tolerance: 0.05}
}

// Result describes the trial left in the buffers.
type Result struct {
	Iterations  int           // kernel runs made
	FeatureSize float64       // feature size of the kept trial
	Triangles   int           // triangle count of the kept trial
	Converged   bool          // Triangles is within tolerance of the budget
	Elapsed     time.Duration // wall-clock time of the search
}

// initialFraction of the bounding box diagonal is the first feature size
// tried.
const initialFraction = 1e-3

// DecimateToBudget simplifies the mesh bound to op until it has at most
// maxTriangles triangles, trying feature sizes on fresh copies of the
// input. On return the buffers hold the best trial: the one with the most
// triangles not exceeding the budget or, when no trial met it, the one
// with the fewest triangles.
//
// Running out of iterations or time is not an error; check
// Result.Converged and Result.Triangles. A failing kernel run ends the
// search with its error and the input restored.
func DecimateToBudget(op *mesh.Operation, maxTriangles, threads int, flags decimate.Flags, opts Options) (Result, error) {
	if err := op.Acquire(); err != nil {
		return Result{}, err
	}
	defer op.Release()

	start := time.Now()
	log := decimate.Logger().With("run", op.RunID())

	if opts.MaxIterations == 0 {
		opts.MaxIterations = DefaultOptions().MaxIterations
	}
	if err := validate(maxTriangles, opts); err != nil {
		return Result{}, err
	}
	if err := op.Validate(); err != nil {
		return Result{}, fmt.Errorf("budget: %w", err)
	}

	n := op.Indices().Len()
	if n <= maxTriangles {
		return Result{
			FeatureSize: op.FeatureSize(),
			Triangles:   n,
			Converged:   true,
			Elapsed:     time.Since(start),
		}, nil
	}

	s := newSearch(op, maxTriangles, opts)
	trial := func(f float64) (int, error) {
		s.restore(s.input)
		op.SetStrength(f)
		if err := decimate.Run(op, threads, flags); err != nil {
			return 0, err
		}
		s.iterations++
		tris := op.TriangleCount
		log.Debug("budget trial", "iteration", s.iterations, "feature", f, "triangles", tris, "target", maxTriangles)
		s.offer(f, tris)
		return tris, nil
	}
	more := func() bool {
		if s.converged || s.iterations >= opts.MaxIterations {
			return false
		}
		return opts.TimeLimit <= 0 || time.Since(start) < opts.TimeLimit
	}

	// Grow the feature size until the budget is met, then bisect the
	// bracket in log space. Bisection keeps spending iterations even once
	// the bracket has narrowed to a step in the triangle count, so the
	// search only ends on convergence, the iteration limit or the time
	// limit.
	lo, hi := 0.0, initialFeature(op)
	bracketed := false
	for more() && !bracketed {
		tris, err := trial(hi)
		if err != nil {
			return s.fail(err)
		}
		if tris <= maxTriangles {
			bracketed = true
			break
		}
		lo, hi = hi, 2*hi
	}
	for bracketed && more() {
		mid := hi / 2
		if lo > 0 {
			mid = math.Sqrt(lo * hi)
		}
		tris, err := trial(mid)
		if err != nil {
			return s.fail(err)
		}
		if tris <= maxTriangles {
			hi = mid
		} else {
			lo = mid
		}
	}

	res := s.finish()
	res.Elapsed = time.Since(start)
	log.Info("budget search done",
		"iterations", res.Iterations,
		"feature", res.FeatureSize,
		"triangles", res.Triangles,
		"target", maxTriangles,
		"converged", res.Converged,
		"elapsed", res.Elapsed,
	)
	return res, nil
}

func validate(maxTriangles int, opts Options) error {
	switch {
	case maxTriangles <= 0:
		return &mesh.ConfigError{Field: "max triangles", Message: fmt.Sprintf("must be positive, got %d", maxTriangles)}
	case opts.MaxIterations < 0:
		return &mesh.ConfigError{Field: "max iterations", Message: fmt.Sprintf("must not be negative, got %d", opts.MaxIterations)}
	case opts.Tolerance < 0 || opts.Tolerance >= 1 || math.IsNaN(opts.Tolerance):
		return &mesh.ConfigError{Field: "tolerance", Message: fmt.Sprintf("must be in [0,1), got %g", opts.Tolerance)}
	case opts.TimeLimit < 0:
		return &mesh.ConfigError{Field: "time limit", Message: fmt.Sprintf("must not be negative, got %v", opts.TimeLimit)}
	}
	return nil
}

// initialFeature scales the first trial to the size of the mesh.
func initialFeature(op *mesh.Operation) float64 {
	m := mesh.FromBuffers(op.Vertices(), op.Indices(), nil)
	if d := m.Diagonal(); d > 0 {
		return d * initialFraction
	}
	return initialFraction
}
