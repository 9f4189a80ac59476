package jigsaw

import (
	"image"
	"image/color"
)

// Mask labels
const (
	LabelBackground uint8 = 0
	LabelHiddenBump uint8 = 64
	LabelInterior   uint8 = 127
)

// Mask is the ternary-labeled raster of a piece (background, interior,
// hidden bump). Hidden-bump pixels are piece material.
type Mask struct {
	img *image.Gray
}

// NewMask creates an all-background mask
func NewMask(w, h int) *Mask {
	return &Mask{img: image.NewGray(image.Rect(0, 0, w, h))}
}

// MaskFromImage quantizes any image to the three mask labels using its grey
// level: 0 is background, [32, 96) is a hidden bump, anything else is interior.
func MaskFromImage(src image.Image) *Mask {
	b := src.Bounds()
	m := NewMask(b.Dx(), b.Dy())
	for y := 0; y < b.Dy(); y++ {
		for x := 0; x < b.Dx(); x++ {
			g := color.GrayModel.Convert(src.At(b.Min.X+x, b.Min.Y+y)).(color.Gray).Y
			switch {
			case g == 0:
				// background
			case g >= 32 && g < 96:
				m.Set(x, y, LabelHiddenBump)
			default:
				m.Set(x, y, LabelInterior)
			}
		}
	}
	return m
}

// Width of the mask in pixels
func (m *Mask) Width() int { return m.img.Rect.Dx() }

// Height of the mask in pixels
func (m *Mask) Height() int { return m.img.Rect.Dy() }

// Image exposes the underlying grey raster (for dumps and rendering)
func (m *Mask) Image() *image.Gray { return m.img }

// Label returns the label at (x, y); outside the raster is background
func (m *Mask) Label(x, y int) uint8 {
	if x < 0 || y < 0 || x >= m.Width() || y >= m.Height() {
		return LabelBackground
	}
	return m.img.Pix[y*m.img.Stride+x]
}

// Set writes a label
func (m *Mask) Set(x, y int, label uint8) {
	if x < 0 || y < 0 || x >= m.Width() || y >= m.Height() {
		return
	}
	m.img.Pix[y*m.img.Stride+x] = label
}

// Material reports whether (x, y) belongs to the piece
func (m *Mask) Material(x, y int) bool {
	return m.Label(x, y) != LabelBackground
}

// Bounds returns the bounding rectangle of the material pixels; empty when
// the mask holds no material.
func (m *Mask) Bounds() image.Rectangle {
	w, h := m.Width(), m.Height()
	minX, minY, maxX, maxY := w, h, -1, -1
	for y := 0; y < h; y++ {
		row := m.img.Pix[y*m.img.Stride : y*m.img.Stride+w]
		for x, v := range row {
			if v == LabelBackground {
				continue
			}
			if x < minX {
				minX = x
			}
			if x > maxX {
				maxX = x
			}
			if y < minY {
				minY = y
			}
			if y > maxY {
				maxY = y
			}
		}
	}
	if maxX < 0 {
		return image.Rectangle{}
	}
	return image.Rect(minX, minY, maxX+1, maxY+1)
}

// Rotate returns a copy of the mask turned clockwise by quarter turns
func (m *Mask) Rotate(turns int) *Mask {
	turns = ((turns % 4) + 4) % 4
	w, h := m.Width(), m.Height()
	var out *Mask
	if turns%2 == 1 {
		out = NewMask(h, w)
	} else {
		out = NewMask(w, h)
	}
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			v := m.Label(x, y)
			switch turns {
			case 0:
				out.Set(x, y, v)
			case 1:
				out.Set(h-1-y, x, v)
			case 2:
				out.Set(w-1-x, h-1-y, v)
			case 3:
				out.Set(y, w-1-x, v)
			}
		}
	}
	return out
}
