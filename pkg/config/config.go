// Package config loads run profiles: which mesh to decimate and how.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/chazu/meshdecimate/pkg/budget"
	"github.com/chazu/meshdecimate/pkg/decimate"
	"github.com/chazu/meshdecimate/pkg/shape"
)

// Profile is a complete run description.
type Profile struct {
	Shape ShapeConfig `yaml:"shape"`
	// FeatureSize is the collapse threshold. With RelativeFeature it is a
	// fraction of the bounding box diagonal.
	FeatureSize     float64     `yaml:"feature_size"`
	RelativeFeature bool        `yaml:"relative_feature"`
	Threads         int         `yaml:"threads"` // <= 0 uses GOMAXPROCS
	Flags           FlagsConfig `yaml:"flags"`
	TargetVertexCap int         `yaml:"target_vertex_cap"`
	// SpareVertices reserves extra vertex slots for splitting, as a
	// fraction of the input vertex count.
	SpareVertices    float64       `yaml:"spare_vertices"`
	StatusIntervalMS int           `yaml:"status_interval_ms"`
	Budget           *BudgetConfig `yaml:"budget,omitempty"`
}

// ShapeConfig selects the input mesh.
type ShapeConfig struct {
	Kind       string  `yaml:"kind"` // one of shape.Kinds
	Size       float64 `yaml:"size"`
	Resolution int     `yaml:"resolution"` // 0 picks the shape's default
}

// FlagsConfig mirrors decimate.Flags.
type FlagsConfig struct {
	Planar          bool `yaml:"planar"`
	NormalSplitting bool `yaml:"normal_splitting"`
	CCWWinding      bool `yaml:"ccw_winding"`
}

// BudgetConfig switches the run to the budget controller.
type BudgetConfig struct {
	MaxTriangles  int     `yaml:"max_triangles"`
	MaxIterations int     `yaml:"max_iterations"`
	Tolerance     float64 `yaml:"tolerance"`
	TimeLimitMS   int     `yaml:"time_limit_ms"`
}

// Default returns the profile used when no file is given.
func Default() *Profile {
	return &Profile{
		Shape:            ShapeConfig{Kind: "sphere", Size: 2, Resolution: shape.DefaultCells},
		FeatureSize:      0.01,
		RelativeFeature:  true,
		SpareVertices:    0.25,
		StatusIntervalMS: 100,
	}
}

// DefaultBudget returns a budget block with the controller defaults.
func DefaultBudget(maxTriangles int) *BudgetConfig {
	d := budget.DefaultOptions()
	return &BudgetConfig{
		MaxTriangles:  maxTriangles,
		MaxIterations: d.MaxIterations,
		Tolerance:     d.Tolerance,
	}
}

// Load reads and parses a YAML profile.
func Load(path string) (*Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data)
}

// Parse decodes a YAML profile over the defaults and validates it. Unknown
// keys are rejected.
func Parse(data []byte) (*Profile, error) {
	p := Default()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(p); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return p, nil
}

// Validate checks field ranges.
func (p *Profile) Validate() error {
	if !slices.Contains(shape.Kinds, p.Shape.Kind) {
		return fmt.Errorf("shape.kind: unknown %q (want one of %v)", p.Shape.Kind, shape.Kinds)
	}
	if p.Shape.Size <= 0 {
		return fmt.Errorf("shape.size: must be positive, got %g", p.Shape.Size)
	}
	if p.Shape.Resolution < 0 {
		return fmt.Errorf("shape.resolution: must not be negative, got %d", p.Shape.Resolution)
	}
	if !(p.FeatureSize >= 0) {
		return fmt.Errorf("feature_size: must not be negative, got %g", p.FeatureSize)
	}
	if p.TargetVertexCap < 0 {
		return fmt.Errorf("target_vertex_cap: must not be negative, got %d", p.TargetVertexCap)
	}
	if p.SpareVertices < 0 || p.SpareVertices > 8 {
		return fmt.Errorf("spare_vertices: must be in [0,8], got %g", p.SpareVertices)
	}
	if p.StatusIntervalMS < 0 {
		return fmt.Errorf("status_interval_ms: must not be negative, got %d", p.StatusIntervalMS)
	}
	if b := p.Budget; b != nil {
		if b.MaxTriangles <= 0 {
			return fmt.Errorf("budget.max_triangles: must be positive, got %d", b.MaxTriangles)
		}
		if b.MaxIterations < 0 {
			return fmt.Errorf("budget.max_iterations: must not be negative, got %d", b.MaxIterations)
		}
		if b.Tolerance < 0 || b.Tolerance >= 1 {
			return fmt.Errorf("budget.tolerance: must be in [0,1), got %g", b.Tolerance)
		}
		if b.TimeLimitMS < 0 {
			return fmt.Errorf("budget.time_limit_ms: must not be negative, got %d", b.TimeLimitMS)
		}
	}
	return nil
}

// DecimateFlags converts the flags block.
func (p *Profile) DecimateFlags() decimate.Flags {
	return decimate.Flags{
		Planar:          p.Flags.Planar,
		NormalSplitting: p.Flags.NormalSplitting,
		CCWWinding:      p.Flags.CCWWinding,
	}
}

// StatusInterval returns the minimum time between status records.
func (p *Profile) StatusInterval() time.Duration {
	return time.Duration(p.StatusIntervalMS) * time.Millisecond
}

// BudgetOptions converts the budget block. It panics without one.
func (p *Profile) BudgetOptions() budget.Options {
	return budget.Options{
		MaxIterations: p.Budget.MaxIterations,
		Tolerance:     p.Budget.Tolerance,
		TimeLimit:     time.Duration(p.Budget.TimeLimitMS) * time.Millisecond,
	}
}

// Spare returns the number of extra vertex slots for an input of n
// vertices.
func (p *Profile) Spare(n int) int {
	return int(p.SpareVertices * float64(n))
}

// Feature returns the absolute feature size for a mesh with the given
// bounding box diagonal.
func (p *Profile) Feature(diagonal float64) float64 {
	if p.RelativeFeature {
		return p.FeatureSize * diagonal
	}
	return p.FeatureSize
}
