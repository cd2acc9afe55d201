package budget

import (
	"errors"
	"testing"
	"time"

	"github.com/chazu/meshdecimate/pkg/decimate"
	"github.com/chazu/meshdecimate/pkg/mesh"
	"github.com/chazu/meshdecimate/pkg/shape"
)

func bind(t *testing.T, m *mesh.Mesh, spare int) *mesh.Operation {
	t.Helper()
	vb, ib := m.Buffers(spare)
	op := mesh.NewOperation()
	if err := op.Bind(vb, ib); err != nil {
		t.Fatalf("Bind: %v", err)
	}
	return op
}

// checkBuffers verifies the bound buffers agree with the reported counts
// and hold valid triangles.
func checkBuffers(t *testing.T, op *mesh.Operation, res Result) {
	t.Helper()
	vb, ib := op.Vertices(), op.Indices()
	if ib.Len() != res.Triangles || op.TriangleCount != res.Triangles {
		t.Fatalf("triangles: buffer %d, op %d, result %d", ib.Len(), op.TriangleCount, res.Triangles)
	}
	if vb.Len() != op.VertexCount {
		t.Fatalf("vertices: buffer %d, op %d", vb.Len(), op.VertexCount)
	}
	for i := 0; i < ib.Len(); i++ {
		for _, v := range ib.Tri(i) {
			if v < 0 || v >= vb.Len() {
				t.Fatalf("triangle %d index %d outside [0,%d)", i, v, vb.Len())
			}
		}
	}
}

// --- Search ---

func TestAlreadyWithinBudget(t *testing.T) {
	op := bind(t, shape.Cube(2), 0)
	res, err := DecimateToBudget(op, 112, 2, decimate.Flags{}, DefaultOptions())
	if err != nil {
		t.Fatalf("DecimateToBudget: %v", err)
	}
	if res.Iterations != 0 {
		t.Errorf("iterations = %d, want 0", res.Iterations)
	}
	if res.Triangles != 12 || op.Indices().Len() != 12 {
		t.Errorf("triangles = %d (buffer %d), want 12", res.Triangles, op.Indices().Len())
	}
	if !res.Converged {
		t.Error("expected Converged")
	}
}

func TestSphereMeetsBudget(t *testing.T) {
	tests := []struct {
		name    string
		m       *mesh.Mesh
		target  int
		threads int
		opts    Options
	}{
		{"uv sphere 500", shape.UVSphere(24, 32, 1), 500, 2, DefaultOptions()},
		{"ring sphere 500", shape.RingSphere(40, 40), 500, 4, DefaultOptions()},
		{"aggressive 50", shape.UVSphere(24, 32, 1), 50, 2, Options{MaxIterations: 16, Tolerance: 0.1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			op := bind(t, tt.m, 0)
			before := op.TriangleCount
			res, err := DecimateToBudget(op, tt.target, tt.threads, decimate.Flags{}, tt.opts)
			if err != nil {
				t.Fatalf("DecimateToBudget: %v", err)
			}
			if res.Triangles > tt.target {
				t.Errorf("triangles = %d, want <= %d", res.Triangles, tt.target)
			}
			if res.Iterations < 1 || res.Iterations > tt.opts.MaxIterations {
				t.Errorf("iterations = %d, want in [1,%d]", res.Iterations, tt.opts.MaxIterations)
			}
			if res.FeatureSize <= 0 || op.FeatureSize() != res.FeatureSize {
				t.Errorf("feature size = %g (op %g)", res.FeatureSize, op.FeatureSize())
			}
			checkBuffers(t, op, res)
			t.Logf("%d -> %d triangles in %d iterations, f=%g, converged=%v",
				before, res.Triangles, res.Iterations, res.FeatureSize, res.Converged)
		})
	}
}

func TestIterationLimit(t *testing.T) {
	op := bind(t, shape.UVSphere(24, 32, 1), 0)
	res, err := DecimateToBudget(op, 10, 1, decimate.Flags{}, Options{MaxIterations: 1})
	if err != nil {
		t.Fatalf("DecimateToBudget: %v", err)
	}
	if res.Iterations != 1 {
		t.Errorf("iterations = %d, want 1", res.Iterations)
	}
	checkBuffers(t, op, res)
}

// Closed meshes lose triangles in pairs, so odd targets with no tolerance
// are never met exactly. The search must then run to its iteration limit.
func TestUnreachableTargetSpendsAllIterations(t *testing.T) {
	for _, target := range []int{101, 151} {
		op := bind(t, shape.UVSphere(12, 16, 1), 0)
		opts := Options{MaxIterations: 60, Tolerance: 0}
		res, err := DecimateToBudget(op, target, 1, decimate.Flags{}, opts)
		if err != nil {
			t.Fatalf("target %d: %v", target, err)
		}
		if !res.Converged && res.Iterations != opts.MaxIterations {
			t.Errorf("target %d: stopped after %d of %d iterations without converging (%d triangles)",
				target, res.Iterations, opts.MaxIterations, res.Triangles)
		}
		if res.Triangles > target {
			t.Errorf("target %d: %d triangles", target, res.Triangles)
		}
		checkBuffers(t, op, res)
	}
}

func TestTimeLimitLeavesInput(t *testing.T) {
	m := shape.UVSphere(12, 16, 1)
	op := bind(t, m, 0)
	res, err := DecimateToBudget(op, 10, 1, decimate.Flags{}, Options{TimeLimit: time.Nanosecond})
	if err != nil {
		t.Fatalf("DecimateToBudget: %v", err)
	}
	if res.Converged {
		t.Error("did not expect convergence")
	}
	if res.Triangles != m.TriangleCount() || op.Indices().Len() != m.TriangleCount() {
		t.Errorf("triangles = %d, want input %d", res.Triangles, m.TriangleCount())
	}
}

func TestInvalidOptions(t *testing.T) {
	tests := []struct {
		name   string
		target int
		opts   Options
		field  string
	}{
		{"zero target", 0, DefaultOptions(), "max triangles"},
		{"negative iterations", 10, Options{MaxIterations: -1}, "max iterations"},
		{"tolerance one", 10, Options{Tolerance: 1}, "tolerance"},
		{"negative tolerance", 10, Options{Tolerance: -0.1}, "tolerance"},
		{"negative time", 10, Options{TimeLimit: -time.Second}, "time limit"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			op := bind(t, shape.Cube(2), 0)
			_, err := DecimateToBudget(op, tt.target, 1, decimate.Flags{}, tt.opts)
			if !errors.Is(err, mesh.ErrConfiguration) {
				t.Fatalf("err = %v, want configuration error", err)
			}
			var ce *mesh.ConfigError
			if errors.As(err, &ce) && ce.Field != tt.field {
				t.Errorf("field = %q, want %q", ce.Field, tt.field)
			}
		})
	}
}

// --- Errors ---

func TestKernelErrorRestoresInput(t *testing.T) {
	// Splitting every corner of the cube needs 16 more vertex slots.
	op := bind(t, shape.Cube(2), 0)
	_, err := DecimateToBudget(op, 6, 1, decimate.Flags{NormalSplitting: true}, DefaultOptions())
	if !errors.Is(err, mesh.ErrCapacityExceeded) {
		t.Fatalf("err = %v, want ErrCapacityExceeded", err)
	}
	if op.Vertices().Len() != 8 || op.Indices().Len() != 12 {
		t.Errorf("buffers = %d/%d, want input 8/12", op.Vertices().Len(), op.Indices().Len())
	}
}

func TestUnboundOperation(t *testing.T) {
	_, err := DecimateToBudget(mesh.NewOperation(), 10, 1, decimate.Flags{}, DefaultOptions())
	if !errors.Is(err, mesh.ErrConfiguration) {
		t.Fatalf("err = %v, want configuration error", err)
	}
}

func TestOperationInUse(t *testing.T) {
	op := bind(t, shape.Cube(2), 0)
	if err := op.Acquire(); err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	defer op.Release()
	if _, err := DecimateToBudget(op, 6, 1, decimate.Flags{}, DefaultOptions()); !errors.Is(err, mesh.ErrInUse) {
		t.Fatalf("err = %v, want ErrInUse", err)
	}
}
