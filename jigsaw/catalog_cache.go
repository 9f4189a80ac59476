package jigsaw

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// DefaultCatalogCachePath is the default path for the match catalog cache
const DefaultCatalogCachePath = ".catalog-cache.json"

// ErrCatalogMismatch means a cached catalog was built for a different piece set
var ErrCatalogMismatch = errors.New("catalog does not fit the pieces")

// CatalogData is the persisted form of a pruned match catalog
type CatalogData struct {
	Pieces      int          `json:"pieces"`
	Matches     [][4][]Match `json:"matches"`
	Report      *MatchReport `json:"report,omitempty"`
	LastUpdated int64        `json:"lastUpdated"`
}

// CatalogFromPieces snapshots the match lists of the pieces
func CatalogFromPieces(pieces []*Piece, report *MatchReport) *CatalogData {
	cat := &CatalogData{
		Pieces:  len(pieces),
		Matches: make([][4][]Match, len(pieces)),
		Report:  report,
	}
	for i, p := range pieces {
		for _, s := range Sides {
			cat.Matches[i][s] = p.MatchesFor(s)
		}
	}
	return cat
}

// Apply replaces the match lists of the pieces with the cached ones
func (c *CatalogData) Apply(pieces []*Piece) error {
	if c.Pieces != len(pieces) || len(c.Matches) != len(pieces) {
		return fmt.Errorf("cached for %d pieces, have %d: %w", c.Pieces, len(pieces), ErrCatalogMismatch)
	}
	for i, sides := range c.Matches {
		for _, s := range Sides {
			for _, m := range sides[s] {
				if m.Piece < 0 || m.Piece >= len(pieces) || m.Side < Top || m.Side > Left {
					return fmt.Errorf("piece %d side %s lists %d.%d: %w", i, s, m.Piece, m.Side, ErrCatalogMismatch)
				}
			}
		}
	}
	for i, p := range pieces {
		p.ClearMatches()
		for _, s := range Sides {
			for _, m := range c.Matches[i][s] {
				p.AddMatch(s, m)
			}
		}
	}
	return nil
}

// CheckSettings fails with ErrCatalogMismatch unless the catalog was built
// by a matcher with the given settings
func (c *CatalogData) CheckSettings(want MatchSettings) error {
	if c.Report == nil {
		return fmt.Errorf("no matching report: %w", ErrCatalogMismatch)
	}
	if c.Report.Settings != want {
		return fmt.Errorf("built with %+v, want %+v: %w", c.Report.Settings, want, ErrCatalogMismatch)
	}
	return nil
}

// IsStale reports whether the catalog predates the given modification time
func (c *CatalogData) IsStale(since time.Time) bool {
	if c == nil || c.LastUpdated == 0 {
		return true
	}
	return time.Unix(c.LastUpdated, 0).Before(since)
}

// LoadCatalog loads a cached catalog. A missing file is not an error and yields nil.
func LoadCatalog(path string) (*CatalogData, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading catalog file: %w", err)
	}

	var cat CatalogData
	if err := json.Unmarshal(data, &cat); err != nil {
		return nil, fmt.Errorf("parsing catalog file: %w", err)
	}
	return &cat, nil
}

// SaveCatalog writes the catalog to a JSON cache file
func SaveCatalog(path string, cat *CatalogData) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating catalog directory: %w", err)
	}

	cat.LastUpdated = time.Now().Unix()

	data, err := json.MarshalIndent(cat, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling catalog data: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing catalog file: %w", err)
	}
	return nil
}
