package jigsaw

import (
	"image"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOutline_Square(t *testing.T) {
	m := NewMask(10, 10)
	fillRect(m, image.Rect(0, 0, 10, 10), LabelInterior)

	raw := m.Outline(0)
	require.Len(t, raw, 1)
	// every border pixel once, plus the closing point
	assert.Len(t, raw[0], 37)
	assert.Equal(t, raw[0][0], raw[0][len(raw[0])-1])

	simplified := m.Outline(1)
	require.Len(t, simplified, 1)
	assert.GreaterOrEqual(t, len(simplified[0]), 4)
	assert.LessOrEqual(t, len(simplified[0]), 6)

	b := pathBound(simplified)
	assert.Equal(t, 0.0, b.Min[0])
	assert.Equal(t, 0.0, b.Min[1])
	assert.Equal(t, 9.0, b.Max[0])
	assert.Equal(t, 9.0, b.Max[1])
}

func TestOutline_FollowsNotchAndTab(t *testing.T) {
	hole := holePiece(0).Mask.Outline(0)
	require.Len(t, hole, 1)
	assert.Contains(t, hole[0], Point{X: 3, Y: 5}, "notch floor is on the contour")

	bump := bumpPiece(0).Mask.Outline(0)
	require.Len(t, bump, 1)
	b := pathBound(bump)
	assert.Equal(t, 12.0, b.Max[0])
}

func TestOutline_SeparateBlobs(t *testing.T) {
	m := NewMask(10, 5)
	fillRect(m, image.Rect(0, 0, 3, 3), LabelInterior)
	fillRect(m, image.Rect(6, 1, 9, 4), LabelHiddenBump)

	paths := m.Outline(0)
	assert.Len(t, paths, 2)
}

func TestOutline_EmptyAndSinglePixel(t *testing.T) {
	assert.Empty(t, NewMask(4, 4).Outline(1))

	m := NewMask(3, 3)
	m.Set(1, 1, LabelInterior)
	assert.Empty(t, m.Outline(1))
}

func TestPathBound_Empty(t *testing.T) {
	assert.Equal(t, 0.0, pathBound(nil).Max[0])
}
