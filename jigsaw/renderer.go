package jigsaw

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"os"

	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// piecePalette colours pieces that come without a colour raster
var piecePalette = []color.RGBA{
	{100, 149, 237, 255}, // cornflower blue
	{255, 99, 71, 255},   // tomato
	{144, 238, 144, 255}, // light green
	{238, 221, 130, 255}, // light goldenrod
	{186, 85, 211, 255},  // medium orchid
	{72, 209, 204, 255},  // medium turquoise
	{244, 164, 96, 255},  // sandy brown
	{176, 196, 222, 255}, // light steel blue
}

// PieceColor returns the fallback fill colour of a piece
func PieceColor(id int) color.RGBA {
	if id < 0 {
		id = -id
	}
	return piecePalette[id%len(piecePalette)]
}

// SolutionRenderer composites the pieces of a layout into one raster. Every
// cell is a square tile as large as the biggest piece, pieces are turned by
// their rotation and centred on their tile.
type SolutionRenderer struct {
	Pieces     []*Piece
	Grid       *Grid
	Background color.RGBA
	Scale      float64 // output scale, 1 keeps mask pixels
	Labels     bool
}

// NewSolutionRenderer creates a renderer with a white background
func NewSolutionRenderer(pieces []*Piece, g *Grid) *SolutionRenderer {
	return &SolutionRenderer{
		Pieces:     pieces,
		Grid:       g,
		Background: color.RGBA{255, 255, 255, 255},
		Scale:      1,
		Labels:     true,
	}
}

// TileSize returns the side of a grid tile in mask pixels
func (r *SolutionRenderer) TileSize() int {
	tile := 1
	for _, p := range r.Grid.Placements() {
		if p.Piece < 0 || p.Piece >= len(r.Pieces) || r.Pieces[p.Piece].Mask == nil {
			continue
		}
		b := r.Pieces[p.Piece].Mask.Bounds()
		tile = max(tile, b.Dx(), b.Dy())
	}
	return tile
}

// Render draws the layout. An empty grid renders as a single background tile.
func (r *SolutionRenderer) Render() *image.RGBA {
	minX, minY, maxX, maxY, ok := r.Grid.Extent()
	if !ok {
		minX, minY, maxX, maxY = 0, 0, 0, 0
	}
	tile := r.TileSize()
	width := (maxX - minX + 1) * tile
	height := (maxY - minY + 1) * tile

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.Draw(img, img.Bounds(), image.NewUniform(r.Background), image.Point{}, draw.Src)

	placements := r.Grid.Placements()
	for _, pl := range placements {
		if pl.Piece < 0 || pl.Piece >= len(r.Pieces) {
			continue
		}
		p := r.Pieces[pl.Piece]
		if p.Mask == nil {
			continue
		}
		mask := p.Mask.Rotate(pl.Rotation)
		src := rotateImage(p.Image, pl.Rotation)
		b := mask.Bounds()

		// centre the material box on the tile
		ox := (pl.X-minX)*tile + (tile-b.Dx())/2 - b.Min.X
		oy := (pl.Y-minY)*tile + (tile-b.Dy())/2 - b.Min.Y
		fill := PieceColor(p.ID)
		for y := b.Min.Y; y < b.Max.Y; y++ {
			for x := b.Min.X; x < b.Max.X; x++ {
				label := mask.Label(x, y)
				if label == LabelBackground {
					continue
				}
				dx, dy := x+ox, y+oy
				if dx < 0 || dy < 0 || dx >= width || dy >= height {
					continue
				}
				if src != nil {
					img.Set(dx, dy, src.At(x, y))
				} else if label == LabelHiddenBump {
					img.SetRGBA(dx, dy, darken(fill))
				} else {
					img.SetRGBA(dx, dy, fill)
				}
			}
		}
	}

	if r.Labels {
		for _, pl := range placements {
			cx := (pl.X-minX)*tile + tile/2
			cy := (pl.Y-minY)*tile + tile/2
			drawText(img, cx-10, cy+4, fmt.Sprintf("%d/%d", pl.Piece, pl.Rotation), color.RGBA{0, 0, 0, 255})
		}
	}

	if r.Scale > 0 && r.Scale != 1 {
		return scaleImage(img, r.Scale)
	}
	return img
}

// WritePNG encodes the rendered layout
func (r *SolutionRenderer) WritePNG(w io.Writer) error {
	return png.Encode(w, r.Render())
}

// SavePNG saves the rendered layout to a file
func (r *SolutionRenderer) SavePNG(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()

	return r.WritePNG(f)
}

// rotateImage turns a colour raster clockwise by quarter turns, matching Mask.Rotate
func rotateImage(src image.Image, turns int) image.Image {
	if src == nil {
		return nil
	}
	turns = ((turns % 4) + 4) % 4
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	if turns == 0 {
		out := image.NewRGBA(image.Rect(0, 0, w, h))
		draw.Draw(out, out.Bounds(), src, b.Min, draw.Src)
		return out
	}
	var out *image.RGBA
	if turns%2 == 1 {
		out = image.NewRGBA(image.Rect(0, 0, h, w))
	} else {
		out = image.NewRGBA(image.Rect(0, 0, w, h))
	}
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			c := src.At(b.Min.X+x, b.Min.Y+y)
			switch turns {
			case 1:
				out.Set(h-1-y, x, c)
			case 2:
				out.Set(w-1-x, h-1-y, c)
			case 3:
				out.Set(y, w-1-x, c)
			}
		}
	}
	return out
}

// scaleImage resamples an image by factor
func scaleImage(src *image.RGBA, factor float64) *image.RGBA {
	w := max(1, int(float64(src.Bounds().Dx())*factor))
	h := max(1, int(float64(src.Bounds().Dy())*factor))
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Over, nil)
	return dst
}

func darken(c color.RGBA) color.RGBA {
	return color.RGBA{c.R / 2, c.G / 2, c.B / 2, c.A}
}

// drawText renders text onto an image at the specified position
func drawText(img *image.RGBA, x, y int, text string, c color.RGBA) {
	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(c),
		Face: basicfont.Face7x13,
		Dot:  fixed.Point26_6{X: fixed.I(x), Y: fixed.I(y)},
	}
	d.DrawString(text)
}

// ParseHexColor parses "#RRGGBB" (the # is optional)
func ParseHexColor(hex string) (color.RGBA, error) {
	if len(hex) > 0 && hex[0] == '#' {
		hex = hex[1:]
	}
	if len(hex) != 6 {
		return color.RGBA{}, fmt.Errorf("invalid colour %q", hex)
	}

	var r, g, b uint8
	if _, err := fmt.Sscanf(hex, "%02x%02x%02x", &r, &g, &b); err != nil {
		return color.RGBA{}, fmt.Errorf("invalid colour %q: %w", hex, err)
	}
	return color.RGBA{r, g, b, 255}, nil
}
