package history

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func cloneInts(s []int) []int { return append([]int{}, s...) }

func TestStack_UndoRedo(t *testing.T) {
	s := New(10, cloneInts)
	s.Push("initial", []int{})
	s.Push("add 1", []int{1})
	s.Push("add 2", []int{1, 2})

	assert.True(t, s.CanUndo())
	assert.False(t, s.CanRedo())

	got, ok := s.Undo()
	require.True(t, ok)
	assert.Equal(t, []int{1}, got)

	got, ok = s.Redo()
	require.True(t, ok)
	assert.Equal(t, []int{1, 2}, got)

	_, ok = s.Redo()
	assert.False(t, ok)
}

func TestStack_Replace(t *testing.T) {
	s := New(10, cloneInts)
	assert.False(t, s.Replace([]int{9}), "nothing to replace in an empty stack")

	s.Push("initial", []int{})
	s.Push("add 1", []int{1})

	state := []int{1, 5}
	require.True(t, s.Replace(state))
	state[0] = 100

	_, ok := s.Undo()
	require.True(t, ok)
	got, ok := s.Redo()
	require.True(t, ok)
	assert.Equal(t, []int{1, 5}, got)
	assert.Equal(t, "add 1", s.Entries()[1].Label)
	assert.Equal(t, 2, s.Len())
}

func TestStack_PushDropsRedoTail(t *testing.T) {
	s := New(10, cloneInts)
	s.Push("initial", []int{})
	s.Push("a", []int{1})
	s.Push("b", []int{1, 2})
	s.Undo()

	s.Push("c", []int{1, 3})

	assert.False(t, s.CanRedo())
	assert.Equal(t, 3, s.Len())
	assert.Equal(t, "c", s.Entries()[2].Label)
}

func TestStack_EvictsOldestFirst(t *testing.T) {
	s := New(50, cloneInts)
	for i := 0; i < 51; i++ {
		s.Push(fmt.Sprintf("state %d", i), []int{i})
	}

	assert.Equal(t, 50, s.Len())
	assert.Equal(t, 49, s.Cursor())
	entries := s.Entries()
	assert.Equal(t, "state 1", entries[0].Label)
	assert.Equal(t, "state 50", entries[49].Label)
}

func TestStack_EntriesAreIsolated(t *testing.T) {
	s := New(10, cloneInts)
	state := []int{1}
	s.Push("a", state)
	state[0] = 99

	got, _ := s.Current()
	assert.Equal(t, []int{1}, got)

	got[0] = 42
	again, _ := s.Current()
	assert.Equal(t, []int{1}, again)
}

func TestStack_Compress(t *testing.T) {
	tests := []struct {
		name       string
		pushes     int
		undos      int
		keep       int
		wantLen    int
		wantCursor int
		wantDrop   int
	}{
		{name: "cursor at end", pushes: 10, keep: 4, wantLen: 4, wantCursor: 3, wantDrop: 6},
		{name: "cursor mid stack", pushes: 10, undos: 2, keep: 4, wantLen: 4, wantCursor: 1, wantDrop: 6},
		{name: "cursor discarded", pushes: 10, undos: 8, keep: 4, wantLen: 4, wantCursor: 0, wantDrop: 6},
		{name: "nothing to drop", pushes: 3, keep: 5, wantLen: 3, wantCursor: 2, wantDrop: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := New(50, cloneInts)
			for i := 0; i < tt.pushes; i++ {
				s.Push(fmt.Sprint(i), []int{i})
			}
			for i := 0; i < tt.undos; i++ {
				s.Undo()
			}

			assert.Equal(t, tt.wantDrop, s.Compress(tt.keep))
			assert.Equal(t, tt.wantLen, s.Len())
			assert.Equal(t, tt.wantCursor, s.Cursor())
		})
	}
}

func TestStack_Checkpoints(t *testing.T) {
	s := New(3, cloneInts)
	s.Push("a", []int{1})
	require.True(t, s.Checkpoint("before-refactor"))

	// push enough entries to evict the checkpointed one
	for i := 2; i < 6; i++ {
		s.Push(fmt.Sprint(i), []int{i})
	}
	s.Compress(1)

	got, ok := s.RestoreCheckpoint("before-refactor")
	require.True(t, ok)
	assert.Equal(t, []int{1}, got)
	assert.Equal(t, []string{"before-refactor"}, s.Checkpoints())

	assert.True(t, s.DeleteCheckpoint("before-refactor"))
	_, ok = s.RestoreCheckpoint("before-refactor")
	assert.False(t, ok)
}

func TestStack_Clear(t *testing.T) {
	s := New(10, cloneInts)
	s.Push("a", []int{1})
	s.Push("b", []int{2})

	s.Clear("reset", []int{3})

	assert.Equal(t, 1, s.Len())
	assert.False(t, s.CanUndo())
	got, _ := s.Current()
	assert.Equal(t, []int{3}, got)
}
