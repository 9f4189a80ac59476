package jigsaw

import (
	"encoding/json"
	"fmt"
	"image"
	_ "image/png"
	"os"
	"path/filepath"
)

// Manifest lists the pieces handed over by the extraction pipeline
type Manifest struct {
	Pieces []PieceSpec `json:"pieces"`
}

// PieceSpec describes one piece in a manifest. Mask and Image are paths
// relative to the manifest file.
type PieceSpec struct {
	ID      int     `json:"id"`
	Mask    string  `json:"mask"`
	Image   string  `json:"image,omitempty"`
	Quality int     `json:"quality,omitempty"`
	Edges   [4]Edge `json:"edges"`
}

// ParseManifestFile reads and parses a piece manifest
func ParseManifestFile(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading manifest: %w", err)
	}
	return ParseManifestJSON(data)
}

// ParseManifestJSON parses manifest JSON and checks ids are exactly 0..n-1
func ParseManifestJSON(data []byte) (*Manifest, error) {
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parsing manifest JSON: %w", err)
	}
	if len(m.Pieces) == 0 {
		return nil, ErrNoPieces
	}

	seen := make([]bool, len(m.Pieces))
	for i, p := range m.Pieces {
		if p.ID < 0 || p.ID >= len(m.Pieces) {
			return nil, fmt.Errorf("pieces[%d] id %d out of range: %w", i, p.ID, ErrPieceIDs)
		}
		if seen[p.ID] {
			return nil, fmt.Errorf("pieces[%d] duplicate id %d: %w", i, p.ID, ErrPieceIDs)
		}
		seen[p.ID] = true
		if p.Mask == "" {
			return nil, fmt.Errorf("piece %d: mask is required", p.ID)
		}
	}
	return &m, nil
}

// LoadPieces reads a manifest with its mask and colour rasters and returns
// the pieces indexed by id
func LoadPieces(path string) ([]*Piece, error) {
	m, err := ParseManifestFile(path)
	if err != nil {
		return nil, err
	}
	dir := filepath.Dir(path)

	pieces := make([]*Piece, len(m.Pieces))
	for _, spec := range m.Pieces {
		p, err := loadPiece(dir, spec)
		if err != nil {
			return nil, fmt.Errorf("piece %d: %w", spec.ID, err)
		}
		pieces[spec.ID] = p
	}
	return pieces, nil
}

func loadPiece(dir string, spec PieceSpec) (*Piece, error) {
	maskImg, err := DecodeImageFile(resolvePath(dir, spec.Mask))
	if err != nil {
		return nil, fmt.Errorf("mask: %w", err)
	}
	mask := MaskFromImage(maskImg)

	p := NewPiece(spec.ID, spec.Edges, mask)
	p.Quality = spec.Quality

	if spec.Image != "" {
		img, err := DecodeImageFile(resolvePath(dir, spec.Image))
		if err != nil {
			return nil, fmt.Errorf("image: %w", err)
		}
		if img.Bounds().Dx() != mask.Width() || img.Bounds().Dy() != mask.Height() {
			return nil, fmt.Errorf("image is %dx%d but mask is %dx%d",
				img.Bounds().Dx(), img.Bounds().Dy(), mask.Width(), mask.Height())
		}
		p.Image = img
	}
	return p, nil
}

// DecodeImageFile decodes a PNG (or any registered format) from disk
func DecodeImageFile(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decoding %s: %w", path, err)
	}
	return img, nil
}

func resolvePath(dir, p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(dir, p)
}
