package annotate

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/csheth/magnifier/internal/geom"
)

func callout(t *testing.T, x float64) Callout {
	t.Helper()
	c, err := NewCallout(0, geom.Rect{X: x, Y: 10, Width: 50, Height: 40}, geom.Point{X: 300, Y: 200}, 3)
	require.NoError(t, err)
	return c
}

func TestNewCalloutValidates(t *testing.T) {
	t.Parallel()
	cases := []struct {
		name   string
		source geom.Rect
		scale  float64
	}{
		{"zero width", geom.Rect{Width: 0, Height: 5}, 2},
		{"zero height", geom.Rect{Width: 5, Height: 0}, 2},
		{"zero scale", geom.Rect{Width: 5, Height: 5}, 0},
		{"negative scale", geom.Rect{Width: 5, Height: 5}, -1},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewCallout(0, tc.source, geom.Point{}, tc.scale)
			assert.True(t, errors.Is(err, ErrInvalidCallout))
		})
	}
}

func TestFootprint(t *testing.T) {
	t.Parallel()
	c := Callout{Source: geom.Rect{X: 100, Y: 100, Width: 50, Height: 40}, Dest: geom.Point{X: 325, Y: 240}, Scale: 3}
	assert.Equal(t, geom.Rect{X: 325, Y: 240, Width: 150, Height: 120}, c.Footprint())
}

func TestHistoryStartsEmpty(t *testing.T) {
	t.Parallel()
	h := NewHistory()
	assert.Equal(t, 1, h.Len())
	assert.Equal(t, 0, h.Index())
	assert.Equal(t, 0, h.Current().Len())
	assert.False(t, h.Undo())
	assert.False(t, h.Redo())
}

func TestHistoryAppendsAdvanceIndex(t *testing.T) {
	t.Parallel()
	h := NewHistory()
	for i := 1; i <= 5; i++ {
		require.NoError(t, h.Append(i%2, callout(t, float64(i))))
		assert.Equal(t, i+1, h.Len())
		assert.Equal(t, i, h.Index())
	}
	assert.Equal(t, 5, h.Current().Len())
	assert.Len(t, h.Current().Page(1), 3)
	assert.Len(t, h.Current().Page(0), 2)
}

func TestHistoryUndoThenAppendTruncates(t *testing.T) {
	t.Parallel()
	h := NewHistory()
	for i := 0; i < 4; i++ {
		require.NoError(t, h.Append(0, callout(t, float64(i))))
	}
	require.True(t, h.Undo())
	require.True(t, h.Undo())
	require.NoError(t, h.Append(2, callout(t, 99)))

	assert.Equal(t, h.Index()+1, h.Len())
	assert.Equal(t, 4, h.Len())
	assert.False(t, h.CanRedo())
	assert.Equal(t, []int{0, 2}, h.Current().Pages())
}

func TestHistoryUndoRedoOnlyMoveIndex(t *testing.T) {
	t.Parallel()
	h := NewHistory()
	a, b := callout(t, 1), callout(t, 2)
	require.NoError(t, h.Append(0, a))
	require.NoError(t, h.Append(0, b))

	require.True(t, h.Undo())
	assert.Equal(t, []Callout{a}, h.Current().Page(0))
	require.True(t, h.Redo())
	assert.Equal(t, []Callout{a, b}, h.Current().Page(0))
	assert.False(t, h.Redo())
	assert.Equal(t, 3, h.Len())
}

func TestSnapshotsAreImmutable(t *testing.T) {
	t.Parallel()
	h := NewHistory()
	require.NoError(t, h.Append(0, callout(t, 1)))
	before := h.Current()
	snapshot := before.Page(0)

	require.NoError(t, h.Append(0, callout(t, 2)))
	leaked := before.Page(0)
	leaked[0].Scale = 42

	if diff := cmp.Diff(snapshot, before.Page(0)); diff != "" {
		t.Fatalf("snapshot changed (-want +got):\n%s", diff)
	}
	require.True(t, h.Undo())
	if diff := cmp.Diff(snapshot, h.Current().Page(0)); diff != "" {
		t.Fatalf("undo returned a modified snapshot (-want +got):\n%s", diff)
	}
}

func TestHistoryRemove(t *testing.T) {
	t.Parallel()
	h := NewHistory()
	a, b := callout(t, 1), callout(t, 2)
	require.NoError(t, h.Append(3, a))
	require.NoError(t, h.Append(3, b))
	require.NoError(t, h.Remove(3, 0))
	assert.Equal(t, []Callout{b}, h.Current().Page(3))
	require.NoError(t, h.Remove(3, 0))
	assert.Empty(t, h.Current().Pages())
	assert.Error(t, h.Remove(3, 0))

	require.True(t, h.Undo())
	assert.Equal(t, []Callout{b}, h.Current().Page(3))
}

func TestReachableCoversRedoBranch(t *testing.T) {
	t.Parallel()
	h := NewHistory()
	a, b, c := callout(t, 1), callout(t, 2), callout(t, 3)
	require.NoError(t, h.Append(0, a))
	require.NoError(t, h.Append(0, b))
	require.True(t, h.Undo())
	assert.Equal(t, map[Callout]bool{a: true, b: true}, h.Reachable())

	require.NoError(t, h.Append(0, c))
	assert.Equal(t, map[Callout]bool{a: true, c: true}, h.Reachable())

	h.Reset()
	assert.Empty(t, h.Reachable())
	assert.Equal(t, 1, h.Len())
}
