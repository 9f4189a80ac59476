package jigsaw

import (
	"image"
	"math"
)

// NoContactScore is returned when two placed pieces do not touch at all
const NoContactScore = float64(math.MaxInt32)

// OverlapScorer compares two candidate edges pixel by pixel. Both masks are
// turned so the first edge faces right and the second faces left, the
// second piece is placed by matching the upper corners of the two edges, and
// the placement is swept over a small offset window to absorb sub-pixel
// errors from feature extraction.
type OverlapScorer struct {
	Window int // offsets range over [-Window, Window] on both axes
	Step   int // stride of the sweep
}

// DefaultOverlapScorer returns the sweep used by the matcher by default
func DefaultOverlapScorer() OverlapScorer {
	return OverlapScorer{Window: 3, Step: 3}
}

// seamView is a mask turned so that one of its edges faces a given side
type seamView struct {
	mask   *Mask
	bounds image.Rectangle
	corner Point
	lo, hi float64 // rows spanned by the edge corners
}

// upperCorner returns whichever corner of the edge has the smaller Y
func upperCorner(e Edge) Point {
	if e.Bottom.Y < e.Top.Y || (e.Bottom.Y == e.Top.Y && e.Bottom.X < e.Top.X) {
		return e.Bottom
	}
	return e.Top
}

// newSeamView turns mask and edge so side ends up facing facing. rotated,
// when not nil, holds the mask already turned by the needed quarter turns.
func newSeamView(mask *Mask, edge Edge, side, facing Side, rotated *Mask) seamView {
	turns := turnsToFace(side, facing)
	m, _, _ := QuarterTurns(turns, mask.Width(), mask.Height())
	if rotated == nil {
		rotated = mask.Rotate(turns)
	}
	e := TransformEdge(edge, m)
	return seamView{
		mask:   rotated,
		bounds: rotated.Bounds(),
		corner: upperCorner(e),
		lo:     math.Min(e.Top.Y, e.Bottom.Y),
		hi:     math.Max(e.Top.Y, e.Bottom.Y),
	}
}

// placement returns where the origin of b lands in a's raster for an offset
func placement(a, b seamView, dx, dy int) image.Point {
	ox := int(math.Round(a.corner.X - b.corner.X))
	oy := int(math.Round(a.corner.Y - b.corner.Y))
	return image.Pt(ox+dx, oy+dy)
}

// scoreView counts doubly-covered and doubly-empty pixels in the overlap of
// the two material bounding boxes, with b placed at offset (dx, dy). Only
// the rows between the corners of a's edge count: tabs on the neighbouring
// sides stick out past the corners and would otherwise score as gaps.
func scoreView(a, b seamView, dx, dy int) float64 {
	off := placement(a, b, dx, dy)
	inter := a.bounds.Intersect(b.bounds.Add(off))
	inter.Min.Y = max(inter.Min.Y, int(math.Round(a.lo)))
	inter.Max.Y = min(inter.Max.Y, int(math.Round(a.hi)))
	if inter.Empty() {
		return NoContactScore
	}

	bad := 0
	for y := inter.Min.Y; y < inter.Max.Y; y++ {
		for x := inter.Min.X; x < inter.Max.X; x++ {
			if a.mask.Material(x, y) == b.mask.Material(x-off.X, y-off.Y) {
				bad++
			}
		}
	}
	return float64(bad)
}

func (s OverlapScorer) views(a *Piece, sa Side, b *Piece, sb Side) (seamView, seamView) {
	va := newSeamView(a.Mask, a.Edges[sa], sa, Right, nil)
	vb := newSeamView(b.Mask, b.Edges[sb], sb, Left, nil)
	return va, vb
}

// sweep returns the best score over the offset window
func (s OverlapScorer) sweep(va, vb seamView) float64 {
	step := s.Step
	if step <= 0 {
		step = 1
	}
	best := math.Inf(1)
	for dy := -s.Window; dy <= s.Window; dy += step {
		for dx := -s.Window; dx <= s.Window; dx += step {
			if score := scoreView(va, vb, dx, dy); score < best {
				best = score
			}
		}
	}
	return best
}

// Score returns the minimum overlap/gap penalty of the seam between side sa
// of a and side sb of b. Lower is better; an exact interlock scores 0.
func (s OverlapScorer) Score(a *Piece, sa Side, b *Piece, sb Side) float64 {
	va, vb := s.views(a, sa, b, sb)
	return s.sweep(va, vb)
}

// ScoreAt scores the seam at a single offset
func (s OverlapScorer) ScoreAt(a *Piece, sa Side, b *Piece, sb Side, dx, dy int) float64 {
	va, vb := s.views(a, sa, b, sb)
	return scoreView(va, vb, dx, dy)
}

// Canvas composes both turned masks at offset (dx, dy) by summing labels,
// so overlapping material shows up brighter. Used for debug dumps.
func (s OverlapScorer) Canvas(a *Piece, sa Side, b *Piece, sb Side, dx, dy int) *image.Gray {
	va, vb := s.views(a, sa, b, sb)
	off := placement(va, vb, dx, dy)
	ra := va.mask.Image().Rect
	rb := vb.mask.Image().Rect.Add(off)
	union := ra.Union(rb)

	canvas := image.NewGray(image.Rect(0, 0, union.Dx(), union.Dy()))
	add := func(m *Mask, origin image.Point) {
		for y := 0; y < m.Height(); y++ {
			for x := 0; x < m.Width(); x++ {
				cx, cy := x+origin.X-union.Min.X, y+origin.Y-union.Min.Y
				i := canvas.PixOffset(cx, cy)
				v := int(canvas.Pix[i]) + int(m.Label(x, y))
				if v > 255 {
					v = 255
				}
				canvas.Pix[i] = uint8(v)
			}
		}
	}
	add(va.mask, image.Point{})
	add(vb.mask, off)
	return canvas
}
