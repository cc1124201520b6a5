// Package history implements a bounded, linear undo/redo stack
// of full-state snapshots.
//
// The stack holds entries oldest-first with a cursor pointing at the
// entry that matches the current state. Pushing a new entry discards
// every entry after the cursor. When the stack is full the oldest entry
// is evicted. Named checkpoints are kept outside the stack and survive
// both eviction and compression.
package history

import (
	"sort"
	"time"
)

// DefaultMaxSize is used when a stack is created with a size below 1.
const DefaultMaxSize = 50

type Entry[T any] struct {
	State     T
	Label     string
	Timestamp time.Time
}

// Stack is not safe for concurrent use.
type Stack[T any] struct {
	entries     []Entry[T]
	cursor      int
	max         int
	clone       func(T) T
	now         func() time.Time
	checkpoints map[string]Entry[T]
}

// New creates a stack holding at most max entries. clone must return
// a deep copy of a state; it is applied whenever a state enters or
// leaves the stack.
func New[T any](max int, clone func(T) T) *Stack[T] {
	if max < 1 {
		max = DefaultMaxSize
	}
	if clone == nil {
		clone = func(t T) T { return t }
	}
	return &Stack[T]{
		cursor:      -1,
		max:         max,
		clone:       clone,
		now:         time.Now,
		checkpoints: map[string]Entry[T]{},
	}
}

// WithClock overrides the timestamp source. Used in tests.
func (s *Stack[T]) WithClock(now func() time.Time) *Stack[T] {
	s.now = now
	return s
}

// Push records state as the newest entry and moves the cursor to it.
func (s *Stack[T]) Push(label string, state T) {
	// drop the redo tail
	s.entries = s.entries[:s.cursor+1]

	s.entries = append(s.entries, Entry[T]{
		State:     s.clone(state),
		Label:     label,
		Timestamp: s.now(),
	})

	if len(s.entries) > s.max {
		s.entries = s.entries[len(s.entries)-s.max:]
	}
	s.cursor = len(s.entries) - 1
}

func (s *Stack[T]) CanUndo() bool {
	return s.cursor > 0
}

func (s *Stack[T]) CanRedo() bool {
	return s.cursor >= 0 && s.cursor < len(s.entries)-1
}

// Undo moves the cursor back one entry and returns that entry's state.
func (s *Stack[T]) Undo() (T, bool) {
	var zero T
	if !s.CanUndo() {
		return zero, false
	}
	s.cursor--
	return s.clone(s.entries[s.cursor].State), true
}

// Redo moves the cursor forward one entry and returns that entry's state.
func (s *Stack[T]) Redo() (T, bool) {
	var zero T
	if !s.CanRedo() {
		return zero, false
	}
	s.cursor++
	return s.clone(s.entries[s.cursor].State), true
}

// Replace overwrites the state of the entry at the cursor,
// keeping its label and timestamp.
func (s *Stack[T]) Replace(state T) bool {
	if s.cursor < 0 {
		return false
	}
	s.entries[s.cursor].State = s.clone(state)
	return true
}

// Current returns the state at the cursor.
func (s *Stack[T]) Current() (T, bool) {
	var zero T
	if s.cursor < 0 {
		return zero, false
	}
	return s.clone(s.entries[s.cursor].State), true
}

func (s *Stack[T]) Len() int    { return len(s.entries) }
func (s *Stack[T]) Cursor() int { return s.cursor }
func (s *Stack[T]) Max() int    { return s.max }

// SetMax changes the bound, evicting the oldest entries if needed.
func (s *Stack[T]) SetMax(max int) {
	if max < 1 {
		max = DefaultMaxSize
	}
	s.max = max
	if len(s.entries) > max {
		s.Compress(max)
	}
}

// Entries returns the entries without their states, oldest first.
func (s *Stack[T]) Entries() []Entry[struct{}] {
	out := make([]Entry[struct{}], len(s.entries))
	for i, e := range s.entries {
		out[i] = Entry[struct{}]{Label: e.Label, Timestamp: e.Timestamp}
	}
	return out
}

// Compress discards the oldest entries so that at most keep remain.
// The cursor keeps pointing at the same entry; if that entry was
// discarded it moves to the oldest remaining one.
func (s *Stack[T]) Compress(keep int) int {
	if keep < 1 {
		keep = 1
	}
	drop := len(s.entries) - keep
	if drop <= 0 {
		return 0
	}
	s.entries = append([]Entry[T]{}, s.entries[drop:]...)
	s.cursor -= drop
	if s.cursor < 0 {
		s.cursor = 0
	}
	return drop
}

// Clear removes every entry and resets the stack to hold only state.
// Checkpoints are kept.
func (s *Stack[T]) Clear(label string, state T) {
	s.entries = nil
	s.cursor = -1
	s.Push(label, state)
}

// Checkpoint stores the state at the cursor under name,
// replacing an existing checkpoint with the same name.
func (s *Stack[T]) Checkpoint(name string) bool {
	if s.cursor < 0 {
		return false
	}
	e := s.entries[s.cursor]
	s.checkpoints[name] = Entry[T]{State: s.clone(e.State), Label: name, Timestamp: s.now()}
	return true
}

// RestoreCheckpoint returns the checkpointed state. It does not move the cursor;
// callers record the restore as a new entry.
func (s *Stack[T]) RestoreCheckpoint(name string) (T, bool) {
	var zero T
	e, ok := s.checkpoints[name]
	if !ok {
		return zero, false
	}
	return s.clone(e.State), true
}

func (s *Stack[T]) DeleteCheckpoint(name string) bool {
	_, ok := s.checkpoints[name]
	delete(s.checkpoints, name)
	return ok
}

// Checkpoints returns the checkpoint names in sorted order.
func (s *Stack[T]) Checkpoints() []string {
	names := make([]string, 0, len(s.checkpoints))
	for name := range s.checkpoints {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
