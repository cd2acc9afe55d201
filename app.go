package main

import (
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/chazu/meshdecimate/pkg/budget"
	"github.com/chazu/meshdecimate/pkg/config"
	"github.com/chazu/meshdecimate/pkg/decimate"
	"github.com/chazu/meshdecimate/pkg/mesh"
	"github.com/chazu/meshdecimate/pkg/progress"
	"github.com/chazu/meshdecimate/pkg/shape"
)

// colorPalette assigns a display color per shape kind.
var colorPalette = []string{
	"#4A90D9", "#E67E22", "#2ECC71", "#9B59B6",
	"#E74C3C", "#1ABC9C", "#F39C12", "#3498DB",
}

// App runs profiles end to end: build the input mesh, decimate it, and
// return the result as JSON-ready data.
type App struct {
	log *slog.Logger
}

// MeshData is the JSON-serializable mesh format written by the CLI.
type MeshData struct {
	Vertices []float32 `json:"vertices"`
	Normals  []float32 `json:"normals"`
	Indices  []uint32  `json:"indices"`
	PartName string    `json:"partName"`
	Color    string    `json:"color"`
}

// StatusData is one progress record.
type StatusData struct {
	Stage     int     `json:"stage"`
	Name      string  `json:"name"`
	Progress  float64 `json:"progress"`
	Triangles int     `json:"triangles"`
}

// Stats summarises a run.
type Stats struct {
	FeatureSize       float64 `json:"featureSize"`
	VerticesBefore    int     `json:"verticesBefore"`
	TrianglesBefore   int     `json:"trianglesBefore"`
	VerticesAfter     int     `json:"verticesAfter"`
	TrianglesAfter    int     `json:"trianglesAfter"`
	Collapses         int64   `json:"collapses"`
	Collisions        int64   `json:"collisions"`
	Deferrals         int64   `json:"deferrals"`
	Flags             string  `json:"flags"`
	ElapsedMillis     int64   `json:"elapsedMillis"`
	BudgetIterations  int     `json:"budgetIterations,omitempty"`
	BudgetConverged   bool    `json:"budgetConverged,omitempty"`
	BudgetMaxTriangle int     `json:"budgetMaxTriangles,omitempty"`
}

// RunResult is the full result of one profile run.
type RunResult struct {
	RunID  string       `json:"runId"`
	Mesh   MeshData     `json:"mesh"`
	Stats  Stats        `json:"stats"`
	Status []StatusData `json:"status"`
}

// NewApp creates an App logging to log. A nil log discards output.
func NewApp(log *slog.Logger) *App {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &App{log: log}
}

// Run executes the profile.
func (a *App) Run(p *config.Profile) (RunResult, error) {
	if err := p.Validate(); err != nil {
		return RunResult{}, fmt.Errorf("invalid profile: %w", err)
	}
	start := time.Now()

	// Step 1: Build the input mesh.
	in, err := shape.Named(p.Shape.Kind, p.Shape.Size, p.Shape.Resolution)
	if err != nil {
		return RunResult{}, err
	}
	a.log.Info("input mesh",
		"shape", p.Shape.Kind,
		"vertices", in.VertexCount(),
		"triangles", in.TriangleCount(),
	)

	// Step 2: Bind buffers and configure the operation.
	vb, ib := in.Buffers(p.Spare(in.VertexCount()))
	op := mesh.NewOperation()
	if err := op.Bind(vb, ib); err != nil {
		return RunResult{}, err
	}
	normals := mesh.Float32Vertices(nil, vb.Cap())
	op.SetNormalOutput(normals)
	op.SetStrength(p.Feature(in.Diagonal()))
	op.SetTargetVertexCap(p.TargetVertexCap)

	var mu sync.Mutex
	var status []StatusData
	op.SetStatusCallback(func(s progress.Status) {
		mu.Lock()
		defer mu.Unlock()
		status = append(status, StatusData{
			Stage:     int(s.Stage),
			Name:      s.Name,
			Progress:  s.Progress,
			Triangles: s.Triangles,
		})
	}, p.StatusInterval())

	// Step 3: Decimate, to a budget when one is configured.
	flags := p.DecimateFlags()
	stats := Stats{
		VerticesBefore:  in.VertexCount(),
		TrianglesBefore: in.TriangleCount(),
		Flags:           flags.String(),
	}
	if p.Budget != nil {
		res, err := budget.DecimateToBudget(op, p.Budget.MaxTriangles, p.Threads, flags, p.BudgetOptions())
		if err != nil {
			return RunResult{}, err
		}
		stats.BudgetIterations = res.Iterations
		stats.BudgetConverged = res.Converged
		stats.BudgetMaxTriangle = p.Budget.MaxTriangles
	} else if err := decimate.Decimate(op, p.Threads, flags); err != nil {
		return RunResult{}, err
	}

	// Step 4: Convert the buffers to the output format.
	// The budget controller's zero-iteration path leaves normals unset.
	nb := normals
	if normals.Len() != vb.Len() {
		nb = nil
	}
	out := mesh.FromBuffers(vb, ib, nb)
	stats.FeatureSize = op.FeatureSize()
	stats.VerticesAfter = op.VertexCount
	stats.TrianglesAfter = op.TriangleCount
	stats.Collapses = op.Collapses
	stats.Collisions = op.Collisions
	stats.Deferrals = op.Deferrals
	stats.ElapsedMillis = time.Since(start).Milliseconds()

	a.log.Info("run complete",
		"run", op.RunID(),
		"triangles", stats.TrianglesAfter,
		"vertices", stats.VerticesAfter,
		"elapsed", time.Since(start),
	)

	mu.Lock()
	defer mu.Unlock()
	return RunResult{
		RunID: op.RunID(),
		Mesh: MeshData{
			Vertices: out.Vertices,
			Normals:  out.Normals,
			Indices:  out.Indices,
			PartName: in.PartName,
			Color:    colorPalette[slices.Index(shape.Kinds, p.Shape.Kind)%len(colorPalette)],
		},
		Stats:  stats,
		Status: status,
	}, nil
}
