package jigsaw

import (
	"fmt"
	"math"
)

// DegenerateCost is the alignment cost reported when the corner geometry of
// an edge collapses and no rotation angle can be derived.
const DegenerateCost = 1e6

// Alignment is the result of bringing one edge onto another
type Alignment struct {
	Cost     float64 // sum of point distances after alignment, lower is better
	Angle    float64 // rotation applied to the second edge (radians)
	Mirrored bool    // true when the Y-mirrored convention won
	Aligned  Edge    // second edge expressed in the first edge's frame
}

// moveEdge translates an edge so that the point (dx, dy) becomes the origin
func moveEdge(e Edge, dx, dy float64) Edge {
	return TransformEdge(e, Translation(-dx, -dy))
}

// cornerAngle solves the rotation bringing bottom b onto bottom a, both
// measured from a shared origin, with the law of cosines. ok is false when
// one of the vectors has no length.
func cornerAngle(a, b Point) (angle float64, ok bool) {
	la := math.Hypot(a.X, a.Y)
	lb := math.Hypot(b.X, b.Y)
	if la < 1e-9 || lb < 1e-9 {
		return 0, false
	}
	lc := math.Hypot(b.X-a.X, b.Y-a.Y)
	cos := (la*la + lb*lb - lc*lc) / (2 * la * lb)
	cos = math.Max(-1, math.Min(1, cos))
	angle = math.Acos(cos)
	// the sign comes from the cross product of the two bottoms, not from
	// comparing their X, and Top/Bottom keep their identity after the turn:
	// the cost always pairs top with top and bottom with bottom
	if b.X*a.Y-b.Y*a.X < 0 {
		angle = -angle
	}
	return angle, true
}

// alignMirroredX aligns b onto a, where a already has its Top at the origin
func alignMirroredX(a, b Edge) (float64, float64, Edge) {
	b = TransformEdge(b, Scale(-1, 1))
	b = moveEdge(b, b.Top.X-a.Top.X, b.Top.Y-a.Top.Y)

	angle, ok := cornerAngle(a.Bottom, b.Bottom)
	if !ok {
		return DegenerateCost, 0, b
	}
	b = TransformEdge(b, Rotation(angle))

	cost := Distance(a.Top, b.Top) + Distance(a.Middle, b.Middle) + Distance(a.Bottom, b.Bottom)
	if math.IsNaN(cost) || math.IsInf(cost, 0) {
		return DegenerateCost, angle, b
	}
	return cost, angle, b
}

// AlignEdges brings edge b onto edge a and returns the cheaper of the two
// mirror conventions. The edges must have opposite modes.
func AlignEdges(a, b Edge) (Alignment, error) {
	if a.Mode == ModeUnknown || b.Mode == ModeUnknown {
		return Alignment{}, ErrUnknownEdgeMode
	}
	if a.Mode == b.Mode {
		return Alignment{}, fmt.Errorf("cannot align two %s edges", a.Mode)
	}

	a = moveEdge(a, a.Top.X, a.Top.Y)

	cost1, angle1, aligned1 := alignMirroredX(a, b)

	flip := Scale(1, -1)
	cost2, angle2, aligned2 := alignMirroredX(TransformEdge(a, flip), TransformEdge(b, flip))

	if cost1 < cost2 {
		return Alignment{Cost: cost1, Angle: angle1, Aligned: aligned1}, nil
	}
	return Alignment{Cost: cost2, Angle: angle2, Mirrored: true, Aligned: aligned2}, nil
}
