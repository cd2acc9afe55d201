package decimate

import "gonum.org/v1/gonum/spatial/r3"

// runsForward reports whether triangle t traverses the edge a->b.
func (w *work) runsForward(t, a, b int32) bool {
	tv := w.tris[t].v
	for i, x := range tv {
		if x == a {
			return tv[(i+1)%3] == b
		}
	}
	return false
}

// orientCCW makes the winding consistent across every manifold edge and
// then turns each connected component outward: closed components get a
// positive signed volume, open ones keep the winding that covered the
// larger area on input.
func (w *work) orientCCW(edges map[uint64][]int32) {
	flip := make([]bool, len(w.tris))
	seen := make([]bool, len(w.tris))
	var queue, component []int32

	for seed := range w.tris {
		if w.tris[seed].dead || seen[seed] {
			continue
		}
		seen[seed] = true
		queue = append(queue[:0], int32(seed))
		component = component[:0]
		closed := true

		for len(queue) > 0 {
			t := queue[0]
			queue = queue[1:]
			component = append(component, t)
			tv := w.tris[t].v
			for k := 0; k < 3; k++ {
				a, b := tv[k], tv[(k+1)%3]
				users := edges[edgeKey(a, b)]
				if len(users) == 1 {
					closed = false
				}
				if len(users) != 2 {
					continue
				}
				n := users[0]
				if n == t {
					n = users[1]
				}
				if seen[n] {
					continue
				}
				seen[n] = true
				// Consistent neighbours traverse the shared edge in opposite
				// directions once both flips are applied.
				flip[n] = flip[t] != w.runsForward(n, a, b)
				queue = append(queue, n)
			}
		}

		invert := false
		if closed {
			var volume float64
			for _, t := range component {
				p0, p1, p2 := w.corners(t)
				v := r3.Dot(p0, r3.Cross(p1, p2))
				if flip[t] {
					v = -v
				}
				volume += v
			}
			invert = volume < 0
		} else {
			var kept, flipped float64
			for _, t := range component {
				area := r3.Norm(w.faceNormal(t))
				if flip[t] {
					flipped += area
				} else {
					kept += area
				}
			}
			invert = flipped > kept
		}

		for _, t := range component {
			if flip[t] != invert {
				tv := &w.tris[t].v
				tv[1], tv[2] = tv[2], tv[1]
			}
		}
	}
}
