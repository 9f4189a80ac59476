package jigsaw

import (
	"context"
	"fmt"
	"log"
	"runtime"
	"sort"
	"sync"
	"time"

	"gonum.org/v1/gonum/stat"
)

// Candidate is one potentially matching edge pair, carried through the
// matching phases. Cost comes from edge alignment, Score from mask overlap.
type Candidate struct {
	A        int
	SideA    Side
	B        int
	SideB    Side
	Cost     float64
	Angle    float64
	Mirrored bool
	Score    float64
}

func (c Candidate) String() string {
	return fmt.Sprintf("%d.%s <-> %d.%s cost=%.3f score=%.0f", c.A, c.SideA, c.B, c.SideB, c.Cost, c.Score)
}

// candidateLess orders by key, then by endpoints so ties sort the same way on every run
func candidateLess(a, b Candidate, key func(Candidate) float64) bool {
	ka, kb := key(a), key(b)
	if ka != kb {
		return ka < kb
	}
	if a.A != b.A {
		return a.A < b.A
	}
	if a.SideA != b.SideA {
		return a.SideA < b.SideA
	}
	if a.B != b.B {
		return a.B < b.B
	}
	return a.SideB < b.SideB
}

// MatcherConfig tunes the matching phases
type MatcherConfig struct {
	CoarseCut float64 // multiplier on the median alignment cost
	FineCut   float64 // multiplier on the median overlap score
	Workers   int     // refinement goroutines, <= 0 means runtime.NumCPU()
	Scorer    OverlapScorer
	DumpDir   string // when set, candidate listings and seam canvases are written here
}

// DefaultMatcherConfig returns the cut ratios used by the reference pipeline
func DefaultMatcherConfig() MatcherConfig {
	return MatcherConfig{
		CoarseCut: 1.0,
		FineCut:   0.5,
		Workers:   runtime.NumCPU(),
		Scorer:    DefaultOverlapScorer(),
	}
}

// Matcher builds the match catalog of a set of pieces
type Matcher struct {
	cfg MatcherConfig
}

// NewMatcher creates a matcher, filling zero fields with defaults
func NewMatcher(cfg MatcherConfig) *Matcher {
	def := DefaultMatcherConfig()
	if cfg.CoarseCut <= 0 {
		cfg.CoarseCut = def.CoarseCut
	}
	if cfg.FineCut <= 0 {
		cfg.FineCut = def.FineCut
	}
	if cfg.Workers <= 0 {
		cfg.Workers = def.Workers
	}
	switch {
	case cfg.Scorer == (OverlapScorer{}):
		cfg.Scorer = def.Scorer
	case cfg.Scorer.Step <= 0:
		cfg.Scorer.Step = def.Scorer.Step
	}
	return &Matcher{cfg: cfg}
}

// MatchSettings are the matcher parameters a catalog depends on
type MatchSettings struct {
	CoarseCut float64 `json:"coarseCut"`
	FineCut   float64 `json:"fineCut"`
	Window    int     `json:"window"`
	Step      int     `json:"step"`
}

// Settings returns the effective cuts and sweep of the matcher
func (m *Matcher) Settings() MatchSettings {
	return MatchSettings{
		CoarseCut: m.cfg.CoarseCut,
		FineCut:   m.cfg.FineCut,
		Window:    m.cfg.Scorer.Window,
		Step:      m.cfg.Scorer.Step,
	}
}

// MatchReport summarizes one matching run
type MatchReport struct {
	Pieces       int           `json:"pieces"`
	Candidates   int           `json:"candidates"`
	AfterCoarse  int           `json:"afterCoarse"`
	AfterFine    int           `json:"afterFine"`
	Pairs        int           `json:"pairs"`
	CoarseCutoff float64       `json:"coarseCutoff"`
	FineCutoff   float64       `json:"fineCutoff"`
	MeanCost     float64       `json:"meanCost"`
	MeanScore    float64       `json:"meanScore"`
	Settings     MatchSettings `json:"settings"`
	Duration     time.Duration `json:"duration"`
}

// Candidates aligns every edge of every unordered piece pair with opposite modes
func (m *Matcher) Candidates(pieces []*Piece) ([]Candidate, error) {
	for _, p := range pieces {
		p.RLock()
		for _, s := range Sides {
			if p.Edges[s].Mode == ModeUnknown {
				p.RUnlock()
				return nil, fmt.Errorf("piece %d side %s: %w", p.ID, s, ErrUnknownEdgeMode)
			}
		}
		p.RUnlock()
	}

	var cands []Candidate
	for i := 0; i < len(pieces); i++ {
		for j := i + 1; j < len(pieces); j++ {
			a, b := pieces[i], pieces[j]
			a.RLock()
			b.RLock()
			for _, sa := range Sides {
				for _, sb := range Sides {
					ea, eb := a.Edges[sa], b.Edges[sb]
					if ea.Mode == eb.Mode {
						continue
					}
					al, err := AlignEdges(ea, eb)
					if err != nil {
						b.RUnlock()
						a.RUnlock()
						return nil, fmt.Errorf("align %d.%s with %d.%s: %w", a.ID, sa, b.ID, sb, err)
					}
					cands = append(cands, Candidate{
						A: a.ID, SideA: sa, B: b.ID, SideB: sb,
						Cost: al.Cost, Angle: al.Angle, Mirrored: al.Mirrored,
					})
				}
			}
			b.RUnlock()
			a.RUnlock()
		}
	}
	return cands, nil
}

// cut sorts cands by key and keeps those at or below ratio times the median
func cut(cands []Candidate, ratio float64, key func(Candidate) float64) ([]Candidate, float64) {
	if len(cands) == 0 {
		return nil, 0
	}
	sorted := make([]Candidate, len(cands))
	copy(sorted, cands)
	sort.SliceStable(sorted, func(i, j int) bool {
		return candidateLess(sorted[i], sorted[j], key)
	})
	cutoff := key(sorted[len(sorted)/2]) * ratio
	n := sort.Search(len(sorted), func(i int) bool { return key(sorted[i]) > cutoff })
	return sorted[:n], cutoff
}

func meanOf(cands []Candidate, key func(Candidate) float64) float64 {
	if len(cands) == 0 {
		return 0
	}
	xs := make([]float64, len(cands))
	for i, c := range cands {
		xs[i] = key(c)
	}
	return stat.Mean(xs, nil)
}

// CoarseCut drops candidates whose alignment cost exceeds CoarseCut times the median
func (m *Matcher) CoarseCut(cands []Candidate) ([]Candidate, float64) {
	return cut(cands, m.cfg.CoarseCut, func(c Candidate) float64 { return c.Cost })
}

// FineCut drops refined candidates whose overlap score exceeds FineCut times the median
func (m *Matcher) FineCut(cands []Candidate) ([]Candidate, float64) {
	return cut(cands, m.cfg.FineCut, func(c Candidate) float64 { return c.Score })
}

// Refine scores every candidate with the overlap scorer on a bounded pool of
// goroutines. Pieces are only read. Returns once all workers are done.
func (m *Matcher) Refine(ctx context.Context, pieces []*Piece, cands []Candidate) ([]Candidate, error) {
	// turned masks are built once and shared read-only by the workers
	turned := make([][4]*Mask, len(pieces))
	for i, p := range pieces {
		p.RLock()
		for t := 0; t < 4; t++ {
			turned[i][t] = p.Mask.Rotate(t)
		}
		p.RUnlock()
	}

	view := func(p *Piece, side, facing Side) seamView {
		p.RLock()
		defer p.RUnlock()
		return newSeamView(p.Mask, p.Edges[side], side, facing, turned[p.ID][turnsToFace(side, facing)])
	}

	var (
		mu     sync.Mutex
		wg     sync.WaitGroup
		scored = make([]Candidate, 0, len(cands))
		sem    = make(chan struct{}, m.cfg.Workers)
	)

dispatch:
	for _, c := range cands {
		select {
		case <-ctx.Done():
			break dispatch
		case sem <- struct{}{}:
		}
		wg.Add(1)
		go func(c Candidate) {
			defer wg.Done()
			defer func() { <-sem }()

			va := view(pieces[c.A], c.SideA, Right)
			vb := view(pieces[c.B], c.SideB, Left)
			c.Score = m.cfg.Scorer.sweep(va, vb)

			mu.Lock()
			scored = append(scored, c)
			mu.Unlock()
		}(c)
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("refine: %w", err)
	}
	return scored, nil
}

// Assign records every accepted candidate on both of its edges
func (m *Matcher) Assign(pieces []*Piece, accepted []Candidate) {
	for _, c := range accepted {
		pieces[c.A].AddMatch(c.SideA, Match{Piece: c.B, Side: c.SideB, Cost: c.Score, Angle: c.Angle, Mirrored: c.Mirrored})
		pieces[c.B].AddMatch(c.SideB, Match{Piece: c.A, Side: c.SideA, Cost: c.Score, Angle: -c.Angle, Mirrored: c.Mirrored})
	}
}

type edgeKey struct {
	piece int
	side  Side
}

// Prune leaves at most one match per edge. Pairs are taken greedily by
// ascending cost when both of their edges are still free, so a kept match
// is always present on both sides. Returns the number of kept pairs.
func (m *Matcher) Prune(pieces []*Piece) int {
	var pairs []Candidate
	for _, p := range pieces {
		for _, s := range Sides {
			for _, mt := range p.MatchesFor(s) {
				if p.ID > mt.Piece || (p.ID == mt.Piece && s > mt.Side) {
					continue
				}
				pairs = append(pairs, Candidate{
					A: p.ID, SideA: s, B: mt.Piece, SideB: mt.Side,
					Score: mt.Cost, Angle: mt.Angle, Mirrored: mt.Mirrored,
				})
			}
		}
	}
	sort.SliceStable(pairs, func(i, j int) bool {
		return candidateLess(pairs[i], pairs[j], func(c Candidate) float64 { return c.Score })
	})

	taken := make(map[edgeKey]bool)
	var kept []Candidate
	for _, c := range pairs {
		ka, kb := edgeKey{c.A, c.SideA}, edgeKey{c.B, c.SideB}
		if taken[ka] || taken[kb] {
			continue
		}
		taken[ka], taken[kb] = true, true
		kept = append(kept, c)
	}

	for _, p := range pieces {
		p.ClearMatches()
	}
	m.Assign(pieces, kept)
	return len(kept)
}

// ComputeMatching runs every phase and leaves the pruned catalog on the pieces
func (m *Matcher) ComputeMatching(ctx context.Context, pieces []*Piece) (*MatchReport, error) {
	if err := checkPieces(pieces); err != nil {
		return nil, err
	}
	start := time.Now()
	report := &MatchReport{Pieces: len(pieces), Settings: m.Settings()}

	cands, err := m.Candidates(pieces)
	if err != nil {
		return nil, err
	}
	report.Candidates = len(cands)
	report.MeanCost = meanOf(cands, func(c Candidate) float64 { return c.Cost })
	log.Printf("[MATCH] %d pieces, %d candidate edge pairs", len(pieces), len(cands))

	coarse, coarseCutoff := m.CoarseCut(cands)
	report.AfterCoarse, report.CoarseCutoff = len(coarse), coarseCutoff
	log.Printf("[MATCH] coarse cut at %.3f keeps %d", coarseCutoff, len(coarse))

	scored, err := m.Refine(ctx, pieces, coarse)
	if err != nil {
		return nil, err
	}

	report.MeanScore = meanOf(scored, func(c Candidate) float64 { return c.Score })
	fine, fineCutoff := m.FineCut(scored)
	report.AfterFine, report.FineCutoff = len(fine), fineCutoff
	log.Printf("[MATCH] fine cut at %.0f keeps %d", fineCutoff, len(fine))

	if m.cfg.DumpDir != "" {
		if err := DumpCandidates(m.cfg.DumpDir, fine); err != nil {
			log.Printf("[MATCH] Warning: failed to dump candidates: %v", err)
		}
		if err := DumpSeams(m.cfg.DumpDir, pieces, m.cfg.Scorer, fine); err != nil {
			log.Printf("[MATCH] Warning: failed to dump seams: %v", err)
		}
	}

	for _, p := range pieces {
		p.ClearMatches()
	}
	m.Assign(pieces, fine)
	report.Pairs = m.Prune(pieces)
	report.Duration = time.Since(start)
	log.Printf("[MATCH] kept %d matched edge pairs in %s", report.Pairs, report.Duration)
	return report, nil
}
