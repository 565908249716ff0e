package history

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func snap(label string) Snapshot {
	return NewSnapshot([]byte(label), "image/png", 1, 1, label)
}

func TestUndoRedoRoundTrip(t *testing.T) {
	h := New(snap("original"))
	const n = 5
	for i := 1; i <= n; i++ {
		h.Push(snap(fmt.Sprintf("edit-%d", i)))
	}
	require.Equal(t, n, h.Position())

	for i := 0; i < n; i++ {
		_, err := h.Undo()
		require.NoError(t, err)
	}
	assert.Equal(t, "original", h.Current().Label)
	assert.False(t, h.CanUndo())

	for i := 1; i <= n; i++ {
		s, err := h.Redo()
		require.NoError(t, err)
		assert.Equal(t, fmt.Sprintf("edit-%d", i), s.Label)
	}
	assert.False(t, h.CanRedo())
}

func TestPushTruncatesFuture(t *testing.T) {
	h := New(snap("original"))
	h.Push(snap("a"))
	h.Push(snap("b"))
	h.Push(snap("c"))
	_, _ = h.Undo()
	_, _ = h.Undo()
	require.Equal(t, "a", h.Current().Label)

	h.Push(snap("d"))
	labels := []string{}
	for _, e := range h.Entries() {
		labels = append(labels, e.Label)
	}
	assert.Equal(t, []string{"original", "a", "d"}, labels)
	assert.False(t, h.CanRedo())
}

func TestPushAfterUndoDoesNotAliasDroppedEntries(t *testing.T) {
	h := New(snap("original"))
	h.Push(snap("a"))
	h.Push(snap("b"))
	before := h.Entries()
	_, _ = h.Undo()
	h.Push(snap("c"))
	assert.Equal(t, "b", before[2].Label)
}

func TestEdgesReturnSentinels(t *testing.T) {
	h := New(snap("original"))
	_, err := h.Undo()
	assert.True(t, errors.Is(err, ErrNothingToUndo))
	_, err = h.Redo()
	assert.True(t, errors.Is(err, ErrNothingToRedo))
	assert.Equal(t, 0, h.Position())
}

func TestResetKeepsRedoEntries(t *testing.T) {
	h := New(snap("original"))
	h.Push(snap("a"))
	h.Push(snap("b"))
	s := h.Reset()
	assert.Equal(t, "original", s.Label)
	assert.Equal(t, 3, h.Len())
	next, err := h.Redo()
	require.NoError(t, err)
	assert.Equal(t, "a", next.Label)
}

func TestSnapshotBytesAreCopies(t *testing.T) {
	src := []byte{1, 2, 3}
	s := NewSnapshot(src, "image/png", 1, 1, "x")
	src[0] = 9
	got := s.Bytes()
	assert.Equal(t, byte(1), got[0])
	got[1] = 9
	assert.Equal(t, byte(2), s.Bytes()[1])
	assert.NotEmpty(t, s.ID)
}
