package jigsaw

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBoardSide_RoundTrip(t *testing.T) {
	for rot := 0; rot < 4; rot++ {
		for _, s := range Sides {
			board := BoardSide(s, rot)
			if got := CanonicalSide(board, rot); got != s {
				t.Errorf("rot=%d: CanonicalSide(BoardSide(%s)) = %s", rot, s, got)
			}
		}
		for _, b := range Sides {
			if got := BoardSide(CanonicalSide(b, rot), rot); got != b {
				t.Errorf("rot=%d: BoardSide(CanonicalSide(%s)) = %s", rot, b, got)
			}
		}
	}
}

func TestBoardSide_ClockwiseTurn(t *testing.T) {
	assert.Equal(t, Right, BoardSide(Top, 1))
	assert.Equal(t, Top, BoardSide(Left, 1))
	assert.Equal(t, Bottom, BoardSide(Top, 2))
	assert.Equal(t, Left, CanonicalSide(Top, 1))
}

func TestGrid_PlaceAndClear(t *testing.T) {
	g := NewGrid(4)
	assert.Equal(t, 0, g.Count())
	assert.False(t, g.At(1, 1).Occupied)

	g.Place(1, 2, 7, 5)
	c := g.At(1, 2)
	assert.True(t, c.Occupied)
	assert.Equal(t, 7, c.Piece)
	assert.Equal(t, 1, c.Rotation, "rotation is kept modulo 4")
	assert.Equal(t, 1, g.Count())

	assert.False(t, g.At(-1, 0).Occupied)
	assert.False(t, g.At(4, 0).Occupied)

	g.Clear(1, 2)
	assert.Equal(t, Cell{}, g.At(1, 2))
}

func TestGrid_PieceZeroIsNotEmpty(t *testing.T) {
	g := NewGrid(2)
	g.Place(0, 0, 0, 0)
	assert.True(t, g.At(0, 0).Occupied)
	assert.Equal(t, 1, g.Count())
}

func TestGrid_SameLayout(t *testing.T) {
	a := NewGrid(6)
	a.Place(2, 2, 0, 0)
	a.Place(3, 2, 1, 3)

	b := NewGrid(6)
	b.Place(0, 4, 0, 0)
	b.Place(1, 4, 1, 3)
	assert.True(t, a.SameLayout(b), "translation does not matter")

	c := b.Clone()
	c.Place(1, 4, 1, 2)
	assert.False(t, a.SameLayout(c), "rotation matters")
	assert.True(t, a.SameLayout(b), "clone is independent")

	d := NewGrid(6)
	d.Place(2, 2, 0, 0)
	d.Place(2, 3, 1, 3)
	assert.False(t, a.SameLayout(d))
}

func TestGrid_String(t *testing.T) {
	g := NewGrid(6)
	g.Place(2, 2, 0, 0)
	g.Place(3, 3, 12, 1)

	lines := strings.Split(strings.TrimRight(g.String(), "\n"), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[0], "(0, 0)"))
	assert.Equal(t, "(12, 1)", strings.TrimSpace(lines[1]))

	assert.Equal(t, "", NewGrid(3).String())
}

func TestGrid_JSON(t *testing.T) {
	g := NewGrid(5)
	g.Place(2, 2, 0, 0)
	g.Place(2, 3, 4, 2)

	data, err := json.Marshal(g)
	require.NoError(t, err)

	var back Grid
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, 5, back.Size())
	assert.Equal(t, g.Placements(), back.Placements())

	err = json.Unmarshal([]byte(`{"size":2,"placements":[{"x":5,"y":0,"piece":1}]}`), &back)
	assert.Error(t, err)
}
