package canvas

import (
	"github.com/common-fate/canvas/pkg/history"
)

// HistoryStore records a snapshot of the editor state after
// every mutation. Undo and redo are exposed on the WorkflowStore.
type HistoryStore struct {
	s     *Session
	stack *history.Stack[Snapshot]
}

func newHistoryStore(s *Session) *HistoryStore {
	return &HistoryStore{
		s:     s,
		stack: history.New(s.maxHistory, Snapshot.Clone).WithClock(s.now),
	}
}

func (h *HistoryStore) record(label string) {
	h.stack.Push(label, h.s.snapshot())
	h.s.log.Debugw("recorded history entry", "label", label, "size", h.stack.Len())
}

// refresh stores the current state in the entry at the cursor, so that
// changes made since the last entry survive stepping away and back.
// Selection, canvas and WithoutHistory changes are not entries of their own.
func (h *HistoryStore) refresh() {
	h.stack.Replace(h.s.snapshot())
}

// reset drops every entry and records the current state.
func (h *HistoryStore) reset(label string) {
	h.stack.Clear(label, h.s.snapshot())
}

// SaveState records the current state as a new entry.
func (h *HistoryStore) SaveState(label string) {
	h.record(label)
}

func (h *HistoryStore) Size() int     { return h.stack.Len() }
func (h *HistoryStore) Cursor() int   { return h.stack.Cursor() }
func (h *HistoryStore) MaxSize() int  { return h.stack.Max() }
func (h *HistoryStore) CanUndo() bool { return h.stack.CanUndo() }
func (h *HistoryStore) CanRedo() bool { return h.stack.CanRedo() }

// SetMaxSize changes the bound, discarding the oldest entries if needed.
func (h *HistoryStore) SetMaxSize(n int) {
	h.stack.SetMax(n)
}

// Entries lists the labels and timestamps of the entries, oldest first.
func (h *HistoryStore) Entries() []history.Entry[struct{}] {
	return h.stack.Entries()
}

// CreateCheckpoint names the current entry so that it can be restored
// after it has been evicted or compressed away.
func (h *HistoryStore) CreateCheckpoint(name string) bool {
	return h.stack.Checkpoint(name)
}

// RestoreCheckpoint replaces the editor state with a checkpoint.
// The restore is recorded as a new entry, so it can be undone.
func (h *HistoryStore) RestoreCheckpoint(name string) bool {
	snap, ok := h.stack.RestoreCheckpoint(name)
	if !ok {
		return false
	}
	h.s.restore(snap)
	h.record("Restore checkpoint " + name)
	return true
}

func (h *HistoryStore) DeleteCheckpoint(name string) bool {
	return h.stack.DeleteCheckpoint(name)
}

func (h *HistoryStore) Checkpoints() []string {
	return h.stack.Checkpoints()
}

// Compress discards the oldest entries so that at most keep remain.
// It returns the number of entries discarded.
func (h *HistoryStore) Compress(keep int) int {
	return h.stack.Compress(keep)
}

// Clear drops every entry. The current state becomes the only entry.
func (h *HistoryStore) Clear() {
	h.reset("Clear history")
}
