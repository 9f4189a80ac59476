package jigsaw

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ----------------------------------------------------------------------------
// Fixtures
// ----------------------------------------------------------------------------

// link is one directed catalog entry: side s1 of piece p1 matches side s2 of p2
type link struct {
	p1 int
	s1 Side
	p2 int
	s2 Side
}

// catalogPieces builds n pieces whose match lists hold exactly the given links
func catalogPieces(n int, links []link) []*Piece {
	pieces := make([]*Piece, n)
	for i := range pieces {
		pieces[i] = NewPiece(i, [4]Edge{}, nil)
	}
	for _, l := range links {
		pieces[l.p1].AddMatch(l.s1, Match{Piece: l.p2, Side: l.s2, Cost: 1})
	}
	return pieces
}

// symmetric adds the reverse of every link
func symmetric(links []link) []link {
	out := make([]link, 0, 2*len(links))
	for _, l := range links {
		out = append(out, l, link{l.p2, l.s2, l.p1, l.s1})
	}
	return out
}

// nineFixture is a hand-verified catalog of nine pieces with one layout
var nineFixture = symmetric([]link{
	{5, Top, 7, Left},
	{7, Top, 3, Bottom},
	{4, Right, 8, Top},
	{8, Right, 6, Left},
	{7, Right, 4, Bottom},
	{3, Right, 2, Bottom},
	{4, Left, 2, Right},
	{2, Left, 0, Bottom},
	{2, Top, 1, Bottom},
})

// ----------------------------------------------------------------------------
// Tests
// ----------------------------------------------------------------------------

func TestSolver_NineFixture(t *testing.T) {
	pieces := catalogPieces(9, nineFixture)

	set, err := NewSolver().Solve(pieces)
	require.NoError(t, err)
	require.Equal(t, 9, set.Count)
	require.Len(t, set.Grids, 1)
	require.Len(t, set.Costs, 1)
	assert.InDelta(t, 8.0, set.Costs[0], 1e-9)

	g := set.Best()
	assert.Equal(t, 18, g.Size())

	want := []Placement{
		{X: 9, Y: 9, Piece: 0, Rotation: 0},
		{X: 9, Y: 10, Piece: 2, Rotation: 1},
		{X: 10, Y: 10, Piece: 1, Rotation: 1},
		{X: 8, Y: 10, Piece: 3, Rotation: 0},
		{X: 9, Y: 11, Piece: 4, Rotation: 1},
		{X: 7, Y: 11, Piece: 5, Rotation: 1},
		{X: 10, Y: 12, Piece: 6, Rotation: 0},
		{X: 8, Y: 11, Piece: 7, Rotation: 0},
		{X: 9, Y: 12, Piece: 8, Rotation: 0},
	}
	for _, p := range want {
		c := g.At(p.X, p.Y)
		assert.True(t, c.Occupied, "cell (%d, %d)", p.X, p.Y)
		assert.Equal(t, p.Piece, c.Piece, "cell (%d, %d) piece", p.X, p.Y)
		assert.Equal(t, p.Rotation, c.Rotation, "cell (%d, %d) rotation", p.X, p.Y)
	}
	assert.Equal(t, 9, g.Count())
}

func TestSolver_EachPieceOnce(t *testing.T) {
	set, err := NewSolver().Solve(catalogPieces(9, nineFixture))
	require.NoError(t, err)

	seen := map[int]bool{}
	for _, p := range set.Best().Placements() {
		assert.False(t, seen[p.Piece], "piece %d placed twice", p.Piece)
		seen[p.Piece] = true
	}
}

func TestSolver_NoCandidates(t *testing.T) {
	set, err := NewSolver().Solve(catalogPieces(4, nil))
	require.NoError(t, err)
	assert.Equal(t, 1, set.Count)
	require.Len(t, set.Grids, 1)

	ps := set.Best().Placements()
	require.Len(t, ps, 1)
	assert.Equal(t, Placement{X: 4, Y: 4, Piece: 0, Rotation: 0}, ps[0])
}

func TestSolver_SinglePiece(t *testing.T) {
	set, err := NewSolver().Solve(catalogPieces(1, nil))
	require.NoError(t, err)
	assert.Equal(t, 1, set.Count)
	assert.Equal(t, 2, set.Best().Size())
}

func TestSolver_Deterministic(t *testing.T) {
	first, err := NewSolver().Solve(catalogPieces(9, nineFixture))
	require.NoError(t, err)
	for i := 0; i < 3; i++ {
		again, err := NewSolver().Solve(catalogPieces(9, nineFixture))
		require.NoError(t, err)
		assert.Equal(t, first.Count, again.Count)
		require.Len(t, again.Grids, len(first.Grids))
		for j := range first.Grids {
			assert.Equal(t, first.Grids[j].Placements(), again.Grids[j].Placements())
		}
	}
}

func TestSolver_ProgressIsMonotonic(t *testing.T) {
	var counts []int
	s := NewSolver()
	s.OnProgress = func(p Progress) {
		counts = append(counts, p.Placed)
		assert.Equal(t, 9, p.Total)
	}

	set, err := s.Solve(catalogPieces(9, nineFixture))
	require.NoError(t, err)
	require.NotEmpty(t, counts)
	for i := 1; i < len(counts); i++ {
		assert.Greater(t, counts[i], counts[i-1])
	}
	assert.Equal(t, set.Count, counts[len(counts)-1])
}

func TestSolver_OtherSeed(t *testing.T) {
	s := NewSolver()
	s.Seed = 4
	set, err := s.Solve(catalogPieces(9, nineFixture))
	require.NoError(t, err)
	assert.Equal(t, 9, set.Count)
	assert.Equal(t, 4, set.Best().At(9, 9).Piece)
}

func TestSolver_InconsistentNeighbours(t *testing.T) {
	// 2 below 0 and 3 below 1 would sit side by side with no match between them
	links := symmetric([]link{
		{0, Right, 1, Left},
		{0, Bottom, 2, Top},
		{1, Bottom, 3, Top},
	})
	set, err := NewSolver().Solve(catalogPieces(4, links))
	require.NoError(t, err)
	assert.Equal(t, 3, set.Count)
	require.Len(t, set.Grids, 2)

	for _, g := range set.Grids {
		ids := map[int]bool{}
		for _, p := range g.Placements() {
			ids[p.Piece] = true
		}
		assert.False(t, ids[2] && ids[3], "2 and 3 placed together:\n%s", g)
	}
}

func TestSolver_TooManySolutions(t *testing.T) {
	// piece 0 matches every side of three interchangeable pieces
	var links []link
	for p := 1; p <= 3; p++ {
		for _, s := range Sides {
			links = append(links, link{0, Right, p, s}, link{p, s, 0, Right})
		}
	}
	s := NewSolver()
	s.MaxSolutions = 2
	_, err := s.Solve(catalogPieces(4, links))
	assert.True(t, errors.Is(err, ErrTooManySolutions), "got %v", err)
}

func TestSolver_BadInput(t *testing.T) {
	_, err := NewSolver().Solve(nil)
	assert.True(t, errors.Is(err, ErrNoPieces))

	s := NewSolver()
	s.Seed = 3
	_, err = s.Solve(catalogPieces(3, nil))
	assert.True(t, errors.Is(err, ErrBadSeed))

	pieces := catalogPieces(2, nil)
	pieces[1].ID = 5
	_, err = NewSolver().Solve(pieces)
	assert.True(t, errors.Is(err, ErrPieceIDs))
}
