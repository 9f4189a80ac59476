package jigsaw

import (
	"image"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/simplify"
)

// Path is a sequential list of points
type Path []Point

// compass directions indexed by Side: N, E, S, W
var compass = [4]struct{ dx, dy int }{
	{0, -1},
	{1, 0},
	{0, 1},
	{-1, 0},
}

// moore lists the 8-neighbourhood clockwise starting west
var moore = [8]image.Point{
	{-1, 0}, {-1, -1}, {0, -1}, {1, -1},
	{1, 0}, {1, 1}, {0, 1}, {-1, 1},
}

func mooreIndex(d image.Point) int {
	for i, o := range moore {
		if o == d {
			return i
		}
	}
	return 0
}

// traceState is a boundary pixel plus the neighbour we backtracked from
type traceState struct {
	p    image.Point
	back int
}

// Outline traces the boundary of every material blob and simplifies each
// contour with Douglas-Peucker at the given tolerance (pixels). Contours
// are closed and in mask pixel coordinates.
func (m *Mask) Outline(tolerance float64) []Path {
	w, h := m.Width(), m.Height()
	seen := make([]bool, w*h)
	var paths []Path

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if !m.Material(x, y) || m.Material(x-1, y) || seen[y*w+x] {
				continue
			}
			path := m.traceContour(image.Pt(x, y), seen)
			if len(path) > 2 {
				paths = append(paths, simplifyPath(path, tolerance))
			}
		}
	}
	return paths
}

// step moves to the next boundary pixel clockwise around s.p
func (m *Mask) step(s traceState) (traceState, bool) {
	for i := 1; i <= 8; i++ {
		dir := (s.back + i) % 8
		q := s.p.Add(moore[dir])
		if m.Material(q.X, q.Y) {
			prev := s.p.Add(moore[(dir+7)%8])
			return traceState{p: q, back: mooreIndex(prev.Sub(q))}, true
		}
	}
	return s, false
}

// traceContour follows the boundary from start, which must have an empty west
// neighbour, until the first move repeats
func (m *Mask) traceContour(start image.Point, seen []bool) Path {
	w := m.Width()
	seen[start.Y*w+start.X] = true
	path := Path{{X: float64(start.X), Y: float64(start.Y)}}

	first, ok := m.step(traceState{p: start, back: 0})
	if !ok {
		return path
	}

	limit := 8*m.Width()*m.Height() + 8
	cur := first
	for i := 0; i < limit; i++ {
		seen[cur.p.Y*w+cur.p.X] = true
		path = append(path, Point{X: float64(cur.p.X), Y: float64(cur.p.Y)})
		next, _ := m.step(cur)
		if next == first {
			break
		}
		cur = next
	}
	return path
}

func simplifyPath(p Path, tolerance float64) Path {
	if tolerance <= 0 || len(p) < 3 {
		return p
	}
	ls := make(orb.LineString, len(p))
	for i, pt := range p {
		ls[i] = orb.Point{pt.X, pt.Y}
	}
	simplified, ok := simplify.DouglasPeucker(tolerance).Simplify(ls).(orb.LineString)
	if !ok {
		return p
	}
	out := make(Path, len(simplified))
	for i, pt := range simplified {
		out[i] = Point{X: pt[0], Y: pt[1]}
	}
	return out
}

// pathBound returns the bounding box of a set of paths
func pathBound(paths []Path) orb.Bound {
	var mp orb.MultiPoint
	for _, p := range paths {
		for _, pt := range p {
			mp = append(mp, orb.Point{pt.X, pt.Y})
		}
	}
	if len(mp) == 0 {
		return orb.Bound{}
	}
	return mp.Bound()
}
