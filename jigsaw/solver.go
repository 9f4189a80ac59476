package jigsaw

import (
	"fmt"
	"log"
	"time"
)

// DefaultMaxSolutions bounds the number of equally good layouts kept
const DefaultMaxSolutions = 400

// Progress is reported each time the solver finds a layout placing more pieces
type Progress struct {
	Placed  int           `json:"placed"`
	Total   int           `json:"total"`
	Elapsed time.Duration `json:"elapsed"`
}

// SolutionSet holds the distinct layouts that place the most pieces
type SolutionSet struct {
	Count int       `json:"count"`
	Grids []*Grid   `json:"grids"`
	Costs []float64 `json:"costs"`
}

// Best returns the first retained layout, or nil when there is none
func (s *SolutionSet) Best() *Grid {
	if s == nil || len(s.Grids) == 0 {
		return nil
	}
	return s.Grids[0]
}

// Solver assembles pieces on a grid from their pruned match catalog
type Solver struct {
	MaxSolutions int
	Seed         int
	OnProgress   func(Progress)
}

// NewSolver returns a solver seeded with piece 0
func NewSolver() *Solver {
	return &Solver{MaxSolutions: DefaultMaxSolutions}
}

// step is a direction on the board
type step struct {
	dx, dy int
	side   Side // board side of the current cell facing the step
}

// neighbourOrder is the order neighbours are inspected in; the last
// occupied one supplies the candidates.
var neighbourOrder = [4]step{
	{-1, 0, Left},
	{0, -1, Top},
	{0, 1, Bottom},
	{1, 0, Right},
}

type search struct {
	solver  *Solver
	catalog [][4][]Match
	grid    *Grid
	used    []bool
	placed  int
	start   time.Time
	best    *SolutionSet
}

// Solve runs the exhaustive search. The pieces' match lists are snapshotted
// under read locks; the search itself touches no shared state.
func (s *Solver) Solve(pieces []*Piece) (*SolutionSet, error) {
	if err := checkPieces(pieces); err != nil {
		return nil, err
	}
	if s.Seed < 0 || s.Seed >= len(pieces) {
		return nil, fmt.Errorf("seed %d with %d pieces: %w", s.Seed, len(pieces), ErrBadSeed)
	}
	maxSolutions := s.MaxSolutions
	if maxSolutions <= 0 {
		maxSolutions = DefaultMaxSolutions
	}

	catalog := make([][4][]Match, len(pieces))
	for i, p := range pieces {
		for _, side := range Sides {
			catalog[i][side] = p.MatchesFor(side)
		}
	}

	size := 2 * len(pieces)
	st := &search{
		solver:  &Solver{MaxSolutions: maxSolutions, Seed: s.Seed, OnProgress: s.OnProgress},
		catalog: catalog,
		grid:    NewGrid(size),
		used:    make([]bool, len(pieces)),
		start:   time.Now(),
		best:    &SolutionSet{},
	}
	st.grid.Place(size/2, size/2, s.Seed, 0)
	st.used[s.Seed] = true
	st.placed = 1

	if err := st.run(0); err != nil {
		return nil, err
	}
	log.Printf("[SOLVE] %d/%d pieces placed, %d distinct layout(s) in %s",
		st.best.Count, len(pieces), len(st.best.Grids), time.Since(st.start))
	return st.best, nil
}

// hasMatch reports whether side of piece lists (other, otherSide)
func (st *search) hasMatch(piece int, side Side, other int, otherSide Side) bool {
	for _, m := range st.catalog[piece][side] {
		if m.Piece == other && m.Side == otherSide {
			return true
		}
	}
	return false
}

// consistent checks the cell at (x, y) against all four of its neighbours
func (st *search) consistent(x, y int) bool {
	cur := st.grid.At(x, y)
	for _, d := range neighbourOrder {
		n := st.grid.At(x+d.dx, y+d.dy)
		if !n.Occupied {
			continue
		}
		fid := CanonicalSide(d.side, cur.Rotation)
		nfid := CanonicalSide(d.side.Opposite(), n.Rotation)
		if !st.hasMatch(cur.Piece, fid, n.Piece, nfid) {
			return false
		}
	}
	return true
}

// run places one more piece in every consistent way, recursing each time.
// A call that places nothing is a finished layout.
func (st *search) run(cost float64) error {
	g := st.grid
	found := false
	for y := 0; y < g.Size(); y++ {
		for x := 0; x < g.Size(); x++ {
			if g.At(x, y).Occupied {
				continue
			}
			var (
				from Cell
				dir  step
				ok   bool
			)
			for _, d := range neighbourOrder {
				if n := g.At(x+d.dx, y+d.dy); n.Occupied {
					from, dir, ok = n, d, true
				}
			}
			if !ok {
				continue
			}

			// the neighbour's side looking back at (x, y)
			nside := CanonicalSide(dir.side.Opposite(), from.Rotation)
			for _, m := range st.catalog[from.Piece][nside] {
				if st.used[m.Piece] {
					continue
				}
				rot := (int(dir.side) - int(m.Side) + 4) % 4
				g.Place(x, y, m.Piece, rot)
				if !st.consistent(x, y) {
					g.Clear(x, y)
					continue
				}
				found = true
				st.used[m.Piece] = true
				st.placed++
				err := st.run(cost + m.Cost)
				st.placed--
				st.used[m.Piece] = false
				g.Clear(x, y)
				if err != nil {
					return err
				}
			}
		}
	}
	if found {
		return nil
	}
	return st.record(cost)
}

// record keeps the current layout if it places at least as many pieces as the best so far
func (st *search) record(cost float64) error {
	best := st.best
	switch {
	case st.placed > best.Count:
		best.Count = st.placed
		best.Grids = []*Grid{st.grid.Clone()}
		best.Costs = []float64{cost}
		if st.solver.OnProgress != nil {
			st.solver.OnProgress(Progress{Placed: st.placed, Total: len(st.used), Elapsed: time.Since(st.start)})
		}
	case st.placed == best.Count:
		for _, g := range best.Grids {
			if g.SameLayout(st.grid) {
				return nil
			}
		}
		if len(best.Grids) >= st.solver.MaxSolutions {
			return fmt.Errorf("%d layouts of %d pieces: %w", len(best.Grids)+1, best.Count, ErrTooManySolutions)
		}
		best.Grids = append(best.Grids, st.grid.Clone())
		best.Costs = append(best.Costs, cost)
	}
	return nil
}
