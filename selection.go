package canvas

import (
	"fmt"

	"github.com/common-fate/canvas/pkg/geom"
	"github.com/common-fate/canvas/pkg/node"
	"github.com/pkg/errors"
)

// Mode controls how a selection gesture combines with the
// current selection.
type Mode int

const (
	// Replace selects exactly the given elements.
	Replace Mode = iota
	// Add extends the selection.
	Add
	// Subtract removes the given elements from the selection.
	Subtract
	// Toggle flips the selection state of each given element.
	Toggle
)

func (m Mode) String() string {
	switch m {
	case Add:
		return "add"
	case Subtract:
		return "subtract"
	case Toggle:
		return "toggle"
	}
	return "replace"
}

func ParseMode(s string) (Mode, error) {
	for _, m := range []Mode{Replace, Add, Subtract, Toggle} {
		if m.String() == s {
			return m, nil
		}
	}
	return Replace, errors.Errorf("unknown selection mode %q", s)
}

// SelectionStore tracks the selected nodes and connections.
// Selecting does not record history, but the selection is part
// of every snapshot and is restored by undo.
type SelectionStore struct {
	s *Session

	nodes []string
	conns []string

	box *selectionBox

	highlight string
	hover     string
}

type selectionBox struct {
	start geom.Point
	end   geom.Point
}

func newSelectionStore(s *Session) *SelectionStore {
	return &SelectionStore{s: s}
}

// apply combines the current ids with the gesture's ids.
func apply(current, ids []string, mode Mode) []string {
	switch mode {
	case Add:
		return union(current, ids)
	case Subtract:
		remove := set(ids)
		var out []string
		for _, id := range current {
			if !remove[id] {
				out = append(out, id)
			}
		}
		return out
	case Toggle:
		out := append([]string{}, current...)
		for _, id := range dedupe(ids) {
			if i := indexOf(out, id); i >= 0 {
				out = append(out[:i], out[i+1:]...)
			} else {
				out = append(out, id)
			}
		}
		return out
	}
	return dedupe(ids)
}

func union(a, b []string) []string {
	return dedupe(append(append([]string{}, a...), b...))
}

func dedupe(ids []string) []string {
	seen := map[string]bool{}
	var out []string
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}

func set(ids []string) map[string]bool {
	out := make(map[string]bool, len(ids))
	for _, id := range ids {
		out[id] = true
	}
	return out
}

func indexOf(ids []string, id string) int {
	for i, existing := range ids {
		if existing == id {
			return i
		}
	}
	return -1
}

func (sel *SelectionStore) existingNodes(ids []string) []string {
	var out []string
	for _, id := range ids {
		if sel.s.Workflow.nodeIndex(id) >= 0 {
			out = append(out, id)
		}
	}
	return out
}

func (sel *SelectionStore) existingConns(ids []string) []string {
	var out []string
	for _, id := range ids {
		if sel.s.Workflow.connIndex(id) >= 0 {
			out = append(out, id)
		}
	}
	return out
}

// SelectNode returns false if the node does not exist.
func (sel *SelectionStore) SelectNode(id string, mode Mode) bool {
	if sel.s.Workflow.nodeIndex(id) < 0 {
		return false
	}
	sel.SelectNodes([]string{id}, mode)
	return true
}

// SelectNodes applies mode to the given nodes. Unknown ids are ignored.
// Replacing the node selection also clears the connection selection.
func (sel *SelectionStore) SelectNodes(ids []string, mode Mode) {
	ids = sel.existingNodes(ids)
	if mode == Replace {
		sel.conns = nil
	}
	sel.nodes = apply(sel.nodes, ids, mode)
}

// SelectConnection returns false if the connection does not exist.
func (sel *SelectionStore) SelectConnection(id string, mode Mode) bool {
	if sel.s.Workflow.connIndex(id) < 0 {
		return false
	}
	sel.SelectConnections([]string{id}, mode)
	return true
}

// SelectConnections applies mode to the given connections.
// Replacing the connection selection also clears the node selection.
func (sel *SelectionStore) SelectConnections(ids []string, mode Mode) {
	ids = sel.existingConns(ids)
	if mode == Replace {
		sel.nodes = nil
	}
	sel.conns = apply(sel.conns, ids, mode)
}

// SelectAll selects every node and connection.
func (sel *SelectionStore) SelectAll() {
	sel.nodes = nil
	for _, n := range sel.s.Workflow.nodes {
		sel.nodes = append(sel.nodes, n.ID)
	}
	sel.conns = nil
	for _, c := range sel.s.Workflow.conns {
		sel.conns = append(sel.conns, c.ID)
	}
}

func (sel *SelectionStore) Clear() {
	sel.nodes = nil
	sel.conns = nil
}

// InvertSelection selects every element of the graph which is not
// selected, and deselects the rest.
func (sel *SelectionStore) InvertSelection() {
	nodes := set(sel.nodes)
	sel.nodes = nil
	for _, n := range sel.s.Workflow.nodes {
		if !nodes[n.ID] {
			sel.nodes = append(sel.nodes, n.ID)
		}
	}

	conns := set(sel.conns)
	sel.conns = nil
	for _, c := range sel.s.Workflow.conns {
		if !conns[c.ID] {
			sel.conns = append(sel.conns, c.ID)
		}
	}
}

// SelectByType applies mode to every node of type t.
func (sel *SelectionStore) SelectByType(t node.Type, mode Mode) {
	var ids []string
	for _, n := range sel.s.Workflow.nodes {
		if n.Type == t {
			ids = append(ids, n.ID)
		}
	}
	sel.SelectNodes(ids, mode)
}

// SelectedNodes returns the selected node ids in selection order.
func (sel *SelectionStore) SelectedNodes() []string {
	return append([]string{}, sel.nodes...)
}

// SelectedConnections returns the selected connection ids in selection order.
func (sel *SelectionStore) SelectedConnections() []string {
	return append([]string{}, sel.conns...)
}

func (sel *SelectionStore) IsNodeSelected(id string) bool {
	return indexOf(sel.nodes, id) >= 0
}

func (sel *SelectionStore) IsConnectionSelected(id string) bool {
	return indexOf(sel.conns, id) >= 0
}

// DeleteSelected removes the selected nodes and connections as
// one history entry. It returns the number of elements removed,
// including connections and group members removed with a node.
func (sel *SelectionStore) DeleteSelected() int {
	w := sel.s.Workflow
	conns := append([]string{}, sel.conns...)

	nodes, cascaded := w.deleteNodes(sel.nodes)
	removed := len(nodes) + len(cascaded)

	for _, id := range conns {
		i := w.connIndex(id)
		if i < 0 {
			continue
		}
		w.conns = append(w.conns[:i], w.conns[i+1:]...)
		sel.s.forget(nil, []string{id})
		removed++
	}

	if removed == 0 {
		return 0
	}
	sel.Clear()
	w.commit(fmt.Sprintf("Delete %d elements", removed))
	return removed
}

// StartSelectionBox begins a marquee gesture at (x, y).
func (sel *SelectionStore) StartSelectionBox(x, y float64) {
	p := geom.Point{X: x, Y: y}
	sel.box = &selectionBox{start: p, end: p}
}

// UpdateSelectionBox moves the free corner of the marquee.
// It does nothing if no marquee is active.
func (sel *SelectionStore) UpdateSelectionBox(x, y float64) {
	if sel.box == nil {
		return
	}
	sel.box.end = geom.Point{X: x, Y: y}
}

// SelectionBox returns the marquee rectangle, normalized
// regardless of the drag direction.
func (sel *SelectionStore) SelectionBox() (geom.Rect, bool) {
	if sel.box == nil {
		return geom.Rect{}, false
	}
	return geom.Normalize(sel.box.start.X, sel.box.start.Y, sel.box.end.X, sel.box.end.Y), true
}

// EndSelectionBox finishes the marquee gesture. Every node whose bounds
// lie entirely within the marquee is selected using mode. Nodes which
// only overlap the marquee are ignored. It returns the ids of the
// enclosed nodes.
func (sel *SelectionStore) EndSelectionBox(mode Mode) []string {
	rect, ok := sel.SelectionBox()
	if !ok {
		return nil
	}
	sel.box = nil

	var inside []string
	for _, n := range sel.s.Workflow.nodes {
		if rect.Contains(n.Bounds()) {
			inside = append(inside, n.ID)
		}
	}
	sel.SelectNodes(inside, mode)
	return inside
}

// CancelSelectionBox ends the marquee gesture without changing the selection.
func (sel *SelectionStore) CancelSelectionBox() {
	sel.box = nil
}

// Bounds is the extent of the selected nodes.
type Bounds struct {
	geom.Rect
	// Centroid is the mean of the selected nodes' centers.
	Centroid geom.Point
}

// Bounds returns false if no existing node is selected.
func (sel *SelectionStore) Bounds() (Bounds, bool) {
	var rects []geom.Rect
	var sum geom.Point
	for _, id := range sel.nodes {
		n := sel.s.Workflow.node(id)
		if n == nil {
			continue
		}
		b := n.Bounds()
		rects = append(rects, b)
		sum = sum.Add(b.Center())
	}
	r, ok := geom.Bounds(rects...)
	if !ok {
		return Bounds{}, false
	}
	count := float64(len(rects))
	return Bounds{Rect: r, Centroid: geom.Point{X: sum.X / count, Y: sum.Y / count}}, true
}

// SetHighlight marks an element as highlighted. An empty id clears it.
func (sel *SelectionStore) SetHighlight(id string) {
	sel.highlight = id
}

// Highlighted returns the highlighted element, if it still exists.
func (sel *SelectionStore) Highlighted() (string, bool) {
	return sel.lookup(sel.highlight)
}

// SetHover marks an element as hovered. An empty id clears it.
func (sel *SelectionStore) SetHover(id string) {
	sel.hover = id
}

// Hovered returns the hovered element, if it still exists.
func (sel *SelectionStore) Hovered() (string, bool) {
	return sel.lookup(sel.hover)
}

func (sel *SelectionStore) lookup(id string) (string, bool) {
	if id == "" {
		return "", false
	}
	if sel.s.Workflow.nodeIndex(id) < 0 && sel.s.Workflow.connIndex(id) < 0 {
		return "", false
	}
	return id, true
}

// drop removes a deleted element from the selection.
func (sel *SelectionStore) drop(id string) {
	if i := indexOf(sel.nodes, id); i >= 0 {
		sel.nodes = append(sel.nodes[:i], sel.nodes[i+1:]...)
	}
	if i := indexOf(sel.conns, id); i >= 0 {
		sel.conns = append(sel.conns[:i], sel.conns[i+1:]...)
	}
	if sel.highlight == id {
		sel.highlight = ""
	}
	if sel.hover == id {
		sel.hover = ""
	}
}

// prune drops selected ids which no longer exist.
func (sel *SelectionStore) prune() {
	sel.nodes = sel.existingNodes(sel.nodes)
	sel.conns = sel.existingConns(sel.conns)
}

func (sel *SelectionStore) reset() {
	sel.Clear()
	sel.box = nil
	sel.highlight = ""
	sel.hover = ""
}
