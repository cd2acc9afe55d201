package decimate

import "strings"

// Flags select optional behaviour of a run. The zero value is the default
// mode: no splitting and the input winding left as is.
type Flags struct {
	// Planar lets collapses inside flat regions ignore triangle shape and
	// use only the distance from the surrounding planes.
	Planar bool

	// NormalSplitting duplicates vertices along sharp creases before
	// decimating so that each copy carries a single smooth fan. Needs spare
	// vertex capacity.
	NormalSplitting bool

	// CCWWinding makes every output triangle wind counter-clockwise when
	// seen from outside the surface.
	CCWWinding bool
}

func (f Flags) String() string {
	var parts []string
	if f.Planar {
		parts = append(parts, "planar")
	}
	if f.NormalSplitting {
		parts = append(parts, "normal-splitting")
	}
	if f.CCWWinding {
		parts = append(parts, "ccw-winding")
	}
	if len(parts) == 0 {
		return "default"
	}
	return strings.Join(parts, "|")
}
