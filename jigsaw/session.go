package jigsaw

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"
)

// ErrBusy is returned when a run is requested while another one is active
var ErrBusy = errors.New("session is busy")

// Session states
const (
	StateIdle     = "idle"
	StateMatching = "matching"
	StateSolving  = "solving"
	StateDone     = "done"
	StateFailed   = "failed"
)

// SessionStatus is a point-in-time view of a session
type SessionStatus struct {
	State     string       `json:"state"`
	Pieces    int          `json:"pieces"`
	Progress  Progress     `json:"progress"`
	Report    *MatchReport `json:"report,omitempty"`
	Placed    int          `json:"placed"`
	Layouts   int          `json:"layouts"`
	Error     string       `json:"error,omitempty"`
	UpdatedAt time.Time    `json:"updatedAt"`
}

// Session holds the pieces and the latest results for the HTTP and MQTT
// surfaces. Match and Solve run one at a time; readers never block on them
// beyond copying state.
type Session struct {
	mu        sync.RWMutex
	pieces    []*Piece
	state     string
	busy      bool
	progress  Progress
	report    *MatchReport
	solution  *SolutionSet
	lastErr   error
	updatedAt time.Time

	// OnProgress, when set, is chained after the session's own progress tracking
	OnProgress func(Progress)
}

// NewSession creates an idle session over pieces
func NewSession(pieces []*Piece) *Session {
	return &Session{
		pieces:    pieces,
		state:     StateIdle,
		updatedAt: time.Now(),
	}
}

// Pieces returns the pieces of the session
func (s *Session) Pieces() []*Piece {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.pieces
}

// Solution returns the latest solution set, or nil
func (s *Session) Solution() *SolutionSet {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.solution
}

// Report returns the latest matching report, or nil
func (s *Session) Report() *MatchReport {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.report
}

// Status returns a snapshot of the session
func (s *Session) Status() SessionStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st := SessionStatus{
		State:     s.state,
		Pieces:    len(s.pieces),
		Progress:  s.progress,
		Report:    s.report,
		UpdatedAt: s.updatedAt,
	}
	if s.solution != nil {
		st.Placed = s.solution.Count
		st.Layouts = len(s.solution.Grids)
	}
	if s.lastErr != nil {
		st.Error = s.lastErr.Error()
	}
	return st
}

// begin marks the session busy in the given state
func (s *Session) begin(state string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.busy {
		return ErrBusy
	}
	s.busy = true
	s.state = state
	s.lastErr = nil
	s.updatedAt = time.Now()
	return nil
}

// end releases the session, recording err if any
func (s *Session) end(next string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.busy = false
	s.lastErr = err
	if err != nil {
		s.state = StateFailed
	} else {
		s.state = next
	}
	s.updatedAt = time.Now()
}

// Match builds the match catalog of the session's pieces
func (s *Session) Match(ctx context.Context, m *Matcher) (*MatchReport, error) {
	if err := s.begin(StateMatching); err != nil {
		return nil, err
	}
	report, err := m.ComputeMatching(ctx, s.Pieces())
	if err == nil {
		s.mu.Lock()
		s.report = report
		s.mu.Unlock()
	}
	s.end(StateIdle, err)
	return report, err
}

// Solve assembles the session's pieces, tracking progress as it goes
func (s *Session) Solve(solver *Solver) (*SolutionSet, error) {
	if err := s.begin(StateSolving); err != nil {
		return nil, err
	}

	run := *solver
	run.OnProgress = func(p Progress) {
		s.mu.Lock()
		s.progress = p
		s.updatedAt = time.Now()
		s.mu.Unlock()
		if solver.OnProgress != nil {
			solver.OnProgress(p)
		}
		if s.OnProgress != nil {
			s.OnProgress(p)
		}
	}

	set, err := run.Solve(s.Pieces())
	if err != nil {
		log.Printf("[SOLVE] failed: %v", err)
	} else {
		s.mu.Lock()
		s.solution = set
		s.mu.Unlock()
	}
	s.end(StateDone, err)
	return set, err
}
