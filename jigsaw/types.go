package jigsaw

import (
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"sync"
)

// Side identifies one of the four sides of a piece
type Side int

const (
	Top    Side = 0
	Right  Side = 1
	Bottom Side = 2
	Left   Side = 3
)

// Sides lists all sides in canonical order
var Sides = [4]Side{Top, Right, Bottom, Left}

// Opposite returns the side facing this one across a seam
func (s Side) Opposite() Side {
	return (s + 2) % 4
}

func (s Side) String() string {
	switch s {
	case Top:
		return "top"
	case Right:
		return "right"
	case Bottom:
		return "bottom"
	case Left:
		return "left"
	}
	return fmt.Sprintf("side(%d)", int(s))
}

// EdgeMode classifies an edge as a bump or a hole
type EdgeMode int

const (
	ModeUnknown EdgeMode = iota
	ModeBump
	ModeHole
)

func (m EdgeMode) String() string {
	switch m {
	case ModeBump:
		return "bump"
	case ModeHole:
		return "hole"
	}
	return "unknown"
}

// MarshalJSON encodes the mode as its name
func (m EdgeMode) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.String())
}

// UnmarshalJSON accepts "bump", "hole" or "unknown"
func (m *EdgeMode) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("edge mode: %w", err)
	}
	switch s {
	case "bump":
		*m = ModeBump
	case "hole":
		*m = ModeHole
	case "unknown", "":
		*m = ModeUnknown
	default:
		return fmt.Errorf("edge mode: invalid value %q", s)
	}
	return nil
}

// Point represents a 2D coordinate in a piece's local mask frame
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Edge abstracts one side of a piece as its two corners and the bump/hole extremum
type Edge struct {
	Top    Point    `json:"top"`
	Middle Point    `json:"middle"`
	Bottom Point    `json:"bottom"`
	Mode   EdgeMode `json:"mode"`
}

// Match names the best counterpart of an edge: side Side of piece Piece
type Match struct {
	Piece    int     `json:"piece"`
	Side     Side    `json:"side"`
	Cost     float64 `json:"cost"`
	Angle    float64 `json:"angle"`
	Mirrored bool    `json:"mirrored,omitempty"`
}

// Piece is a finalized puzzle piece handed over by the extraction pipeline.
// Matches is written during assignment only; every other phase reads it
// through RLock.
type Piece struct {
	sync.RWMutex

	ID      int
	Edges   [4]Edge
	Mask    *Mask
	Image   image.Image
	Quality int
	Matches [4][]Match
}

// NewPiece creates a piece with the given id, edges and mask
func NewPiece(id int, edges [4]Edge, mask *Mask) *Piece {
	return &Piece{
		ID:    id,
		Edges: edges,
		Mask:  mask,
	}
}

// MatchesFor returns a copy of the match list of one side
func (p *Piece) MatchesFor(s Side) []Match {
	p.RLock()
	defer p.RUnlock()
	out := make([]Match, len(p.Matches[s]))
	copy(out, p.Matches[s])
	return out
}

// AddMatch appends a match to one side
func (p *Piece) AddMatch(s Side, m Match) {
	p.Lock()
	defer p.Unlock()
	p.Matches[s] = append(p.Matches[s], m)
}

// ClearMatches drops every match of the piece
func (p *Piece) ClearMatches() {
	p.Lock()
	defer p.Unlock()
	for i := range p.Matches {
		p.Matches[i] = nil
	}
}

var (
	// ErrUnknownEdgeMode means an edge reached the matcher without a bump/hole classification
	ErrUnknownEdgeMode = errors.New("edge mode is unknown")
	// ErrTooManySolutions means the match catalog was too permissive for the solver
	ErrTooManySolutions = errors.New("too many solutions, piece matching was not restrictive enough")
	// ErrNoPieces is returned when there is nothing to match or solve
	ErrNoPieces = errors.New("no pieces")
	// ErrBadSeed is returned when the seed piece does not exist
	ErrBadSeed = errors.New("seed piece out of range")
	// ErrPieceIDs is returned when piece ids are not 0..n-1 in slice order
	ErrPieceIDs = errors.New("piece ids must match their index")
)

// checkPieces verifies the pieces slice can be addressed by id
func checkPieces(pieces []*Piece) error {
	if len(pieces) == 0 {
		return ErrNoPieces
	}
	for i, p := range pieces {
		if p == nil {
			return fmt.Errorf("piece[%d] is nil: %w", i, ErrPieceIDs)
		}
		if p.ID != i {
			return fmt.Errorf("piece[%d] has id %d: %w", i, p.ID, ErrPieceIDs)
		}
	}
	return nil
}
