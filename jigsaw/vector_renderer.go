package jigsaw

import (
	"image/color"
	"image/png"
	"io"

	"github.com/tdewolff/canvas"
	"github.com/tdewolff/canvas/renderers/rasterizer"
	"github.com/tdewolff/canvas/renderers/svg"
)

// nrgbaToRGBA premultiplies alpha for the canvas library
func nrgbaToRGBA(c color.NRGBA) color.RGBA {
	if c.A == 0 {
		return color.RGBA{}
	}
	if c.A == 255 {
		return color.RGBA{c.R, c.G, c.B, 255}
	}
	a := uint32(c.A)
	return color.RGBA{
		R: uint8(uint32(c.R) * a / 255),
		G: uint8(uint32(c.G) * a / 255),
		B: uint8(uint32(c.B) * a / 255),
		A: c.A,
	}
}

// LayoutRenderer draws a layout as a vector diagram: one square cell per
// placement holding the traced piece outline, an arrow pointing where the
// piece's own top side ended up, and a mark on every matched seam.
type LayoutRenderer struct {
	Pieces     []*Piece
	Grid       *Grid
	CellSize   float64 // canvas units per grid cell
	Padding    float64
	Tolerance  float64 // outline simplification in mask pixels
	Resolution canvas.Resolution
}

// NewLayoutRenderer creates a vector renderer with default settings
func NewLayoutRenderer(pieces []*Piece, g *Grid) *LayoutRenderer {
	return &LayoutRenderer{
		Pieces:     pieces,
		Grid:       g,
		CellSize:   40,
		Padding:    10,
		Tolerance:  1,
		Resolution: canvas.DPI(300),
	}
}

// canvasRenderer is implemented by both the svg and rasterizer renderers
type canvasRenderer interface {
	RenderPath(path *canvas.Path, style canvas.Style, m canvas.Matrix)
}

// Size returns the canvas extent of the diagram
func (r *LayoutRenderer) Size() (width, height float64) {
	minX, minY, maxX, maxY, ok := r.Grid.Extent()
	if !ok {
		return 2 * r.Padding, 2 * r.Padding
	}
	width = float64(maxX-minX+1)*r.CellSize + 2*r.Padding
	height = float64(maxY-minY+1)*r.CellSize + 2*r.Padding
	return width, height
}

// RenderToSVG writes the diagram as an SVG
func (r *LayoutRenderer) RenderToSVG(w io.Writer) error {
	width, height := r.Size()
	svgRenderer := svg.New(w, width, height, nil)
	r.renderToCanvas(svgRenderer, width, height)
	return svgRenderer.Close()
}

// RenderToPNG writes the diagram as a PNG
func (r *LayoutRenderer) RenderToPNG(w io.Writer) error {
	width, height := r.Size()
	rast := rasterizer.New(width, height, r.Resolution, canvas.DefaultColorSpace)
	r.renderToCanvas(rast, width, height)
	return png.Encode(w, rast)
}

func (r *LayoutRenderer) renderToCanvas(renderer canvasRenderer, width, height float64) {
	bgStyle := canvas.DefaultStyle
	bgStyle.Fill = canvas.Paint{Color: canvas.White}
	renderer.RenderPath(canvas.Rectangle(width, height), bgStyle, canvas.Identity)

	minX, minY, _, _, ok := r.Grid.Extent()
	if !ok {
		return
	}

	// canvas has y growing upward
	toCanvas := func(x, y float64) (float64, float64) {
		return x + r.Padding, height - (y + r.Padding)
	}
	cellOrigin := func(gx, gy int) (float64, float64) {
		return float64(gx-minX) * r.CellSize, float64(gy-minY) * r.CellSize
	}

	cellStyle := canvas.DefaultStyle
	cellStyle.Fill = canvas.Paint{Color: canvas.Transparent}
	cellStyle.Stroke = canvas.Paint{Color: color.RGBA{211, 211, 211, 255}}
	cellStyle.StrokeWidth = 0.5
	cellStyle.Dashes = []float64{2, 2}

	outlineStyle := canvas.DefaultStyle
	outlineStyle.Stroke = canvas.Paint{Color: canvas.Black}
	outlineStyle.StrokeWidth = 0.4

	arrowStyle := canvas.DefaultStyle
	arrowStyle.Fill = canvas.Paint{Color: canvas.Transparent}
	arrowStyle.Stroke = canvas.Paint{Color: color.RGBA{139, 0, 0, 255}}
	arrowStyle.StrokeWidth = 1

	placements := r.Grid.Placements()
	for _, pl := range placements {
		ox, oy := cellOrigin(pl.X, pl.Y)

		cell := &canvas.Path{}
		x0, y0 := toCanvas(ox, oy)
		x1, y1 := toCanvas(ox+r.CellSize, oy+r.CellSize)
		cell.MoveTo(x0, y0)
		cell.LineTo(x1, y0)
		cell.LineTo(x1, y1)
		cell.LineTo(x0, y1)
		cell.Close()
		renderer.RenderPath(cell, cellStyle, canvas.Identity)

		if pl.Piece >= 0 && pl.Piece < len(r.Pieces) && r.Pieces[pl.Piece].Mask != nil {
			fill := PieceColor(pl.Piece)
			outlineStyle.Fill = canvas.Paint{Color: nrgbaToRGBA(color.NRGBA{fill.R, fill.G, fill.B, 180})}
			outline := r.Pieces[pl.Piece].Mask.Rotate(pl.Rotation).Outline(r.Tolerance)
			r.drawOutline(renderer, outline, ox, oy, toCanvas, outlineStyle)
		}

		// arrow from the centre toward the board side the piece's top faces
		up := compass[BoardSide(Top, pl.Rotation)]
		cx, cy := ox+r.CellSize/2, oy+r.CellSize/2
		tip := r.CellSize * 0.3
		arrow := &canvas.Path{}
		ax, ay := toCanvas(cx, cy)
		bx, by := toCanvas(cx+float64(up.dx)*tip, cy+float64(up.dy)*tip)
		arrow.MoveTo(ax, ay)
		arrow.LineTo(bx, by)
		renderer.RenderPath(arrow, arrowStyle, canvas.Identity)
	}

	seamStyle := canvas.DefaultStyle
	seamStyle.Fill = canvas.Paint{Color: canvas.Transparent}
	seamStyle.Stroke = canvas.Paint{Color: color.RGBA{0, 128, 0, 255}}
	seamStyle.StrokeWidth = 2

	// mark each right and bottom seam once
	for _, pl := range placements {
		ox, oy := cellOrigin(pl.X, pl.Y)
		if r.Grid.At(pl.X+1, pl.Y).Occupied {
			seam := &canvas.Path{}
			x, y := toCanvas(ox+r.CellSize, oy+r.CellSize*0.35)
			x2, y2 := toCanvas(ox+r.CellSize, oy+r.CellSize*0.65)
			seam.MoveTo(x, y)
			seam.LineTo(x2, y2)
			renderer.RenderPath(seam, seamStyle, canvas.Identity)
		}
		if r.Grid.At(pl.X, pl.Y+1).Occupied {
			seam := &canvas.Path{}
			x, y := toCanvas(ox+r.CellSize*0.35, oy+r.CellSize)
			x2, y2 := toCanvas(ox+r.CellSize*0.65, oy+r.CellSize)
			seam.MoveTo(x, y)
			seam.LineTo(x2, y2)
			renderer.RenderPath(seam, seamStyle, canvas.Identity)
		}
	}
}

// drawOutline scales traced contours into the cell at (ox, oy)
func (r *LayoutRenderer) drawOutline(renderer canvasRenderer, outline []Path, ox, oy float64,
	toCanvas func(x, y float64) (float64, float64), style canvas.Style) {
	if len(outline) == 0 {
		return
	}
	bound := pathBound(outline)
	span := max(bound.Max[0]-bound.Min[0], bound.Max[1]-bound.Min[1], 1)
	scale := r.CellSize * 0.9 / span
	center := bound.Center()

	path := &canvas.Path{}
	for _, contour := range outline {
		for i, pt := range contour {
			x := ox + r.CellSize/2 + (pt.X-center[0])*scale
			y := oy + r.CellSize/2 + (pt.Y-center[1])*scale
			cx, cy := toCanvas(x, y)
			if i == 0 {
				path.MoveTo(cx, cy)
			} else {
				path.LineTo(cx, cy)
			}
		}
		path.Close()
	}
	renderer.RenderPath(path, style, canvas.Identity)
}
