package jigsaw

import (
	"math"
	"testing"
)

const epsilon = 1e-9

// almostEqual checks if two floats are equal within epsilon tolerance
func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < epsilon
}

// pointsEqual checks if two points are equal within epsilon tolerance
func pointsEqual(p1, p2 Point) bool {
	return almostEqual(p1.X, p2.X) && almostEqual(p1.Y, p2.Y)
}

func TestTransformPoint(t *testing.T) {
	tests := []struct {
		name   string
		point  Point
		matrix AffineMatrix
		want   Point
	}{
		{"identity", Point{X: 10, Y: 20}, Identity(), Point{X: 10, Y: 20}},
		{"translation", Point{X: 5, Y: 5}, Translation(10, 15), Point{X: 15, Y: 20}},
		{"mirror x", Point{X: 3, Y: 4}, Scale(-1, 1), Point{X: -3, Y: 4}},
		{"mirror y", Point{X: 3, Y: 4}, Scale(1, -1), Point{X: 3, Y: -4}},
		{"quarter rotation", Point{X: 1, Y: 0}, Rotation(math.Pi / 2), Point{X: 0, Y: 1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := TransformPoint(tt.point, tt.matrix)
			if !pointsEqual(got, tt.want) {
				t.Errorf("TransformPoint() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestMultiplyMatrices_Order(t *testing.T) {
	// translate first, then rotate
	m := MultiplyMatrices(Rotation(math.Pi/2), Translation(1, 0))
	got := TransformPoint(Point{X: 0, Y: 0}, m)
	if !pointsEqual(got, Point{X: 0, Y: 1}) {
		t.Errorf("got %v, want (0, 1)", got)
	}
}

func TestQuarterTurns(t *testing.T) {
	tests := []struct {
		turns int
		in    Point
		want  Point
		w, h  int
	}{
		{0, Point{X: 2, Y: 1}, Point{X: 2, Y: 1}, 10, 4},
		{1, Point{X: 2, Y: 1}, Point{X: 3, Y: 2}, 4, 10},
		{2, Point{X: 2, Y: 1}, Point{X: 8, Y: 3}, 10, 4},
		{3, Point{X: 2, Y: 1}, Point{X: 1, Y: 8}, 4, 10},
		{-1, Point{X: 2, Y: 1}, Point{X: 1, Y: 8}, 4, 10},
		{5, Point{X: 2, Y: 1}, Point{X: 3, Y: 2}, 4, 10},
	}

	for _, tt := range tests {
		m, w, h := QuarterTurns(tt.turns, 10, 4)
		got := TransformPoint(tt.in, m)
		if !pointsEqual(got, tt.want) {
			t.Errorf("QuarterTurns(%d) maps %v to %v, want %v", tt.turns, tt.in, got, tt.want)
		}
		if w != tt.w || h != tt.h {
			t.Errorf("QuarterTurns(%d) size = %dx%d, want %dx%d", tt.turns, w, h, tt.w, tt.h)
		}
	}
}

func TestQuarterTurns_FullCircle(t *testing.T) {
	m, w, h := QuarterTurns(4, 7, 3)
	p := Point{X: 1.5, Y: 2.25}
	if got := TransformPoint(p, m); !pointsEqual(got, p) {
		t.Errorf("four turns moved %v to %v", p, got)
	}
	if w != 7 || h != 3 {
		t.Errorf("size = %dx%d, want 7x3", w, h)
	}
}

func TestDistance(t *testing.T) {
	if d := Distance(Point{X: 0, Y: 0}, Point{X: 3, Y: 4}); !almostEqual(d, 5) {
		t.Errorf("Distance() = %v, want 5", d)
	}
}

func TestTurnsToFace(t *testing.T) {
	for _, from := range Sides {
		for _, to := range Sides {
			turns := turnsToFace(from, to)
			if got := BoardSide(from, turns); got != to {
				t.Errorf("turning %s by %d faces %s, want %s", from, turns, got, to)
			}
		}
	}
}
