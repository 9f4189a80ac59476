package jigsaw

import (
	"bufio"
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"
)

// DumpCandidates writes one line per candidate to dir/matching.txt
func DumpCandidates(dir string, cands []Candidate) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating dump directory: %w", err)
	}
	f, err := os.Create(filepath.Join(dir, "matching.txt"))
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()

	w := bufio.NewWriter(f)
	for _, c := range cands {
		fmt.Fprintf(w, "%d %s %d %s cost=%.4f angle=%.4f mirrored=%v score=%.0f\n",
			c.A, c.SideA, c.B, c.SideB, c.Cost, c.Angle, c.Mirrored, c.Score)
	}
	return w.Flush()
}

// DumpSeams writes the composited seam of every candidate as a grey PNG
func DumpSeams(dir string, pieces []*Piece, scorer OverlapScorer, cands []Candidate) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating dump directory: %w", err)
	}
	for _, c := range cands {
		a, b := pieces[c.A], pieces[c.B]
		a.RLock()
		b.RLock()
		canvas := scorer.Canvas(a, c.SideA, b, c.SideB, 0, 0)
		b.RUnlock()
		a.RUnlock()

		name := fmt.Sprintf("seam_%d_%s_%d_%s.png", c.A, c.SideA, c.B, c.SideB)
		if err := writeGrayPNG(filepath.Join(dir, name), canvas); err != nil {
			return err
		}
	}
	return nil
}

func writeGrayPNG(path string, img *image.Gray) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()

	return png.Encode(f, img)
}
