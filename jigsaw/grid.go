package jigsaw

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Cell is one position of the assembly grid. The zero value is empty.
type Cell struct {
	Piece    int  `json:"piece"`
	Rotation int  `json:"rotation"`
	Occupied bool `json:"occupied"`
}

// BoardSide returns the board direction a canonical side of a piece faces
// after rotation clockwise quarter turns.
func BoardSide(canonical Side, rotation int) Side {
	return Side((int(canonical) + rotation%4 + 4) % 4)
}

// CanonicalSide returns which side of a piece rotated rotation quarter turns
// faces the given board direction. Inverse of BoardSide.
func CanonicalSide(board Side, rotation int) Side {
	return Side((int(board) - rotation%4 + 8) % 4)
}

// Grid is a square board of cells addressed as (x, y), y growing downward
type Grid struct {
	size  int
	cells []Cell
}

// NewGrid creates an empty size x size grid
func NewGrid(size int) *Grid {
	return &Grid{size: size, cells: make([]Cell, size*size)}
}

// Size returns the side length of the grid
func (g *Grid) Size() int { return g.size }

// InBounds reports whether (x, y) addresses a cell
func (g *Grid) InBounds(x, y int) bool {
	return x >= 0 && y >= 0 && x < g.size && y < g.size
}

// At returns the cell at (x, y); out of bounds reads as empty
func (g *Grid) At(x, y int) Cell {
	if !g.InBounds(x, y) {
		return Cell{}
	}
	return g.cells[y*g.size+x]
}

// Place occupies (x, y) with a piece at a rotation
func (g *Grid) Place(x, y, piece, rotation int) {
	g.cells[y*g.size+x] = Cell{Piece: piece, Rotation: ((rotation % 4) + 4) % 4, Occupied: true}
}

// Clear empties (x, y)
func (g *Grid) Clear(x, y int) {
	g.cells[y*g.size+x] = Cell{}
}

// Count returns the number of occupied cells
func (g *Grid) Count() int {
	n := 0
	for _, c := range g.cells {
		if c.Occupied {
			n++
		}
	}
	return n
}

// Clone returns an independent copy
func (g *Grid) Clone() *Grid {
	out := &Grid{size: g.size, cells: make([]Cell, len(g.cells))}
	copy(out.cells, g.cells)
	return out
}

// Placement is an occupied cell with its position
type Placement struct {
	X        int `json:"x"`
	Y        int `json:"y"`
	Piece    int `json:"piece"`
	Rotation int `json:"rotation"`
}

// Placements lists occupied cells in row-major order
func (g *Grid) Placements() []Placement {
	var out []Placement
	for y := 0; y < g.size; y++ {
		for x := 0; x < g.size; x++ {
			if c := g.At(x, y); c.Occupied {
				out = append(out, Placement{X: x, Y: y, Piece: c.Piece, Rotation: c.Rotation})
			}
		}
	}
	return out
}

// Extent returns the occupied rectangle as min/max cell coordinates (inclusive).
// ok is false for an empty grid.
func (g *Grid) Extent() (minX, minY, maxX, maxY int, ok bool) {
	minX, minY, maxX, maxY = g.size, g.size, -1, -1
	for _, p := range g.Placements() {
		minX, maxX = min(minX, p.X), max(maxX, p.X)
		minY, maxY = min(minY, p.Y), max(maxY, p.Y)
	}
	return minX, minY, maxX, maxY, maxX >= 0
}

// normalized returns the placements shifted so the first occupied cell in
// row-major order sits at the origin. Two grids holding the same layout at
// different offsets normalize identically.
func (g *Grid) normalized() []Placement {
	ps := g.Placements()
	if len(ps) == 0 {
		return ps
	}
	ox, oy := ps[0].X, ps[0].Y
	for i := range ps {
		ps[i].X -= ox
		ps[i].Y -= oy
	}
	return ps
}

// SameLayout reports whether two grids hold the same placements up to translation
func (g *Grid) SameLayout(o *Grid) bool {
	a, b := g.normalized(), o.normalized()
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// String prints the occupied extent as rows of "(id, rot)" cells
func (g *Grid) String() string {
	minX, minY, maxX, maxY, ok := g.Extent()
	if !ok {
		return ""
	}
	const blank = "        "
	var sb strings.Builder
	for y := minY; y <= maxY; y++ {
		for x := minX; x <= maxX; x++ {
			c := g.At(x, y)
			if !c.Occupied {
				sb.WriteString(blank)
				continue
			}
			fmt.Fprintf(&sb, "%-8s", fmt.Sprintf("(%d, %d)", c.Piece, c.Rotation))
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

type gridJSON struct {
	Size       int         `json:"size"`
	Placements []Placement `json:"placements"`
}

// MarshalJSON encodes the grid as its size and placements
func (g *Grid) MarshalJSON() ([]byte, error) {
	ps := g.Placements()
	if ps == nil {
		ps = []Placement{}
	}
	return json.Marshal(gridJSON{Size: g.size, Placements: ps})
}

// UnmarshalJSON restores a grid written by MarshalJSON
func (g *Grid) UnmarshalJSON(data []byte) error {
	var gj gridJSON
	if err := json.Unmarshal(data, &gj); err != nil {
		return fmt.Errorf("grid: %w", err)
	}
	*g = *NewGrid(gj.Size)
	for _, p := range gj.Placements {
		if !g.InBounds(p.X, p.Y) {
			return fmt.Errorf("grid: placement (%d, %d) outside %dx%d", p.X, p.Y, gj.Size, gj.Size)
		}
		g.Place(p.X, p.Y, p.Piece, p.Rotation)
	}
	return nil
}
