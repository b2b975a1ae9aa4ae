package history

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	s := New("A")

	assert.Equal(t, 1, s.Len())
	assert.Equal(t, 0, s.Index())
	assert.Equal(t, "A", s.Current())
	assert.False(t, s.CanUndo())
	assert.False(t, s.CanRedo())
}

func TestPush_TruncatesRedoTail(t *testing.T) {
	s := New("A")
	s.Push("B")
	s.Push("C")
	s.Push("D")
	require.True(t, s.Undo())
	require.True(t, s.Undo())
	require.Equal(t, "B", s.Current())

	s.Push("E")

	assert.Equal(t, []string{"A", "B", "E"}, s.Items())
	assert.Equal(t, 2, s.Index())
	assert.False(t, s.CanRedo())
}

func TestUndoRedo_Boundaries(t *testing.T) {
	s := New(0)
	assert.False(t, s.Undo(), "undo at base")
	assert.False(t, s.Redo(), "redo at head")

	s.Push(1)
	assert.False(t, s.Redo())
	assert.True(t, s.Undo())
	assert.False(t, s.Undo())
	assert.Equal(t, 0, s.Current())
}

func TestUndoRedo_RoundTrip(t *testing.T) {
	const n = 6
	s := New(0)
	for i := 1; i <= n; i++ {
		s.Push(i)
	}

	for i := 0; i < n; i++ {
		require.True(t, s.Undo())
	}
	assert.Equal(t, 0, s.Current())
	assert.Equal(t, 0, s.Index())

	for i := 0; i < n; i++ {
		require.True(t, s.Redo())
	}
	assert.Equal(t, n, s.Current())
	assert.Equal(t, n+1, s.Len())
}

func TestReset(t *testing.T) {
	s := New("A")
	s.Push("B")
	s.Reset("Z")

	assert.Equal(t, []string{"Z"}, s.Items())
	assert.Equal(t, "Z", s.Base())
	assert.Equal(t, 0, s.Index())
}

func TestItemsIsCopy(t *testing.T) {
	s := New("A")
	items := s.Items()
	items[0] = "mutated"

	assert.Equal(t, "A", s.Current())
}

func TestClone(t *testing.T) {
	s := New("A")
	s.Push("B")
	c := s.Clone()
	c.Undo()
	c.Push("C")

	assert.Equal(t, "B", s.Current())
	assert.Equal(t, []string{"A", "B"}, s.Items())
	assert.Equal(t, []string{"A", "C"}, c.Items())
}

func TestCheck_PanicsOnBrokenInvariant(t *testing.T) {
	tests := []struct {
		name  string
		stack *Stack[int]
	}{
		{"empty", &Stack[int]{}},
		{"negative index", &Stack[int]{items: []int{1}, index: -1}},
		{"index past end", &Stack[int]{items: []int{1, 2}, index: 2}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			defer func() {
				r := recover()
				require.NotNil(t, r)
				err, ok := r.(error)
				require.True(t, ok)
				assert.True(t, errors.Is(err, ErrInvariantViolation))
			}()
			tt.stack.Check()
		})
	}
}
