package jigsaw

import (
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

// AffineMatrix for 2D transforms: x' = ax + by + tx, y' = cx + dy + ty
type AffineMatrix struct {
	A  float64 `json:"a"`
	B  float64 `json:"b"`
	Tx float64 `json:"tx"`
	C  float64 `json:"c"`
	D  float64 `json:"d"`
	Ty float64 `json:"ty"`
}

// Identity returns an identity matrix (no transformation)
func Identity() AffineMatrix {
	return AffineMatrix{A: 1, B: 0, Tx: 0, C: 0, D: 1, Ty: 0}
}

// TransformPoint applies an affine transform to a point
func TransformPoint(p Point, m AffineMatrix) Point {
	return Point{
		X: m.A*p.X + m.B*p.Y + m.Tx,
		Y: m.C*p.X + m.D*p.Y + m.Ty,
	}
}

// TransformEdge applies an affine transform to the three points of an edge
func TransformEdge(e Edge, m AffineMatrix) Edge {
	return Edge{
		Top:    TransformPoint(e.Top, m),
		Middle: TransformPoint(e.Middle, m),
		Bottom: TransformPoint(e.Bottom, m),
		Mode:   e.Mode,
	}
}

// MultiplyMatrices composes two affine transforms: result = m1 * m2
// Applying result is equivalent to applying m2 first, then m1
func MultiplyMatrices(m1, m2 AffineMatrix) AffineMatrix {
	return AffineMatrix{
		A:  m1.A*m2.A + m1.B*m2.C,
		B:  m1.A*m2.B + m1.B*m2.D,
		Tx: m1.A*m2.Tx + m1.B*m2.Ty + m1.Tx,
		C:  m1.C*m2.A + m1.D*m2.C,
		D:  m1.C*m2.B + m1.D*m2.D,
		Ty: m1.C*m2.Tx + m1.D*m2.Ty + m1.Ty,
	}
}

// Translation creates a translation-only transform
func Translation(tx, ty float64) AffineMatrix {
	return AffineMatrix{A: 1, B: 0, Tx: tx, C: 0, D: 1, Ty: ty}
}

// Rotation creates a rotation transform (angle in radians, around origin)
func Rotation(angle float64) AffineMatrix {
	cos := math.Cos(angle)
	sin := math.Sin(angle)
	return AffineMatrix{A: cos, B: -sin, Tx: 0, C: sin, D: cos, Ty: 0}
}

// Scale creates a scaling transform; Scale(-1, 1) mirrors on X
func Scale(sx, sy float64) AffineMatrix {
	return AffineMatrix{A: sx, B: 0, Tx: 0, C: 0, D: sy, Ty: 0}
}

// QuarterTurns returns the transform that maps continuous coordinates of a
// w x h raster onto the same raster turned clockwise turns times, together
// with the turned raster size. One clockwise turn maps (x, y) to (h - y, x).
func QuarterTurns(turns, w, h int) (AffineMatrix, int, int) {
	m := Identity()
	turns = ((turns % 4) + 4) % 4
	for i := 0; i < turns; i++ {
		step := AffineMatrix{A: 0, B: -1, Tx: float64(h), C: 1, D: 0, Ty: 0}
		m = MultiplyMatrices(step, m)
		w, h = h, w
	}
	return m, w, h
}

// Distance returns the euclidean distance between two points
func Distance(a, b Point) float64 {
	return planar.Distance(orb.Point{a.X, a.Y}, orb.Point{b.X, b.Y})
}

// turnsToFace returns how many clockwise quarter turns bring side from onto side to
func turnsToFace(from, to Side) int {
	return (int(to) - int(from) + 4) % 4
}
