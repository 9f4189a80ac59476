package jigsaw

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadCatalog_Missing(t *testing.T) {
	cat, err := LoadCatalog(filepath.Join(t.TempDir(), "none.json"))
	assert.NoError(t, err)
	assert.Nil(t, cat)
}

func TestCatalog_SaveLoadApply(t *testing.T) {
	pieces := catalogPieces(3, symmetric([]link{{0, Right, 1, Left}, {1, Bottom, 2, Top}}))
	report := &MatchReport{Pieces: 3, Pairs: 2}

	path := filepath.Join(t.TempDir(), "cache", "catalog.json")
	require.NoError(t, SaveCatalog(path, CatalogFromPieces(pieces, report)))

	loaded, err := LoadCatalog(path)
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, 3, loaded.Pieces)
	assert.NotZero(t, loaded.LastUpdated)
	require.NotNil(t, loaded.Report)
	assert.Equal(t, 2, loaded.Report.Pairs)

	fresh := catalogPieces(3, nil)
	require.NoError(t, loaded.Apply(fresh))
	for i := range pieces {
		for _, s := range Sides {
			assert.Equal(t, pieces[i].MatchesFor(s), fresh[i].MatchesFor(s), "piece %d %s", i, s)
		}
	}
}

func TestCatalog_ApplyMismatch(t *testing.T) {
	cat := CatalogFromPieces(catalogPieces(2, symmetric([]link{{0, Right, 1, Left}})), nil)

	err := cat.Apply(catalogPieces(3, nil))
	assert.True(t, errors.Is(err, ErrCatalogMismatch))

	cat.Matches[0][Right][0].Piece = 7
	err = cat.Apply(catalogPieces(2, nil))
	assert.True(t, errors.Is(err, ErrCatalogMismatch))
}

func TestCatalog_CheckSettings(t *testing.T) {
	settings := NewMatcher(MatcherConfig{}).Settings()
	cat := CatalogFromPieces(catalogPieces(2, nil), &MatchReport{Pieces: 2, Settings: settings})
	assert.NoError(t, cat.CheckSettings(settings))

	tighter := settings
	tighter.FineCut = 0.01
	assert.True(t, errors.Is(cat.CheckSettings(tighter), ErrCatalogMismatch))

	wider := settings
	wider.Window = 6
	assert.True(t, errors.Is(cat.CheckSettings(wider), ErrCatalogMismatch))

	// caches written without a report cannot be trusted
	bare := CatalogFromPieces(catalogPieces(2, nil), nil)
	assert.True(t, errors.Is(bare.CheckSettings(settings), ErrCatalogMismatch))
}

func TestCatalog_IsStale(t *testing.T) {
	var none *CatalogData
	assert.True(t, none.IsStale(time.Now()))

	cat := &CatalogData{LastUpdated: time.Now().Unix()}
	assert.False(t, cat.IsStale(time.Now().Add(-time.Hour)))
	assert.True(t, cat.IsStale(time.Now().Add(time.Hour)))
}
