package canvas

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/common-fate/canvas/pkg/geom"
	"github.com/common-fate/canvas/pkg/node"
	"github.com/common-fate/canvas/pkg/workflow"
	"github.com/pkg/errors"
)

const (
	nodeIDPrefix       = "node_"
	connectionIDPrefix = "conn_"

	MinZoom = 0.1
	MaxZoom = 4.0
)

// fallbackNodeSize is used for node types without a default size.
var fallbackNodeSize = geom.Size{Width: 120, Height: 60}

// WorkflowStore owns the nodes and connections of the session.
// Every other store mutates the graph through it.
type WorkflowStore struct {
	s *Session

	nodes  []workflow.Node
	conns  []workflow.Connection
	info   workflow.Info
	canvas workflow.CanvasState

	nodeSeq int
	connSeq int

	// version is bumped on every change to the graph.
	version uint64
	dirty   bool

	report        *Report
	reportVersion uint64
}

func newWorkflowStore(s *Session) *WorkflowStore {
	return &WorkflowStore{
		s:      s,
		info:   workflow.DefaultInfo(),
		canvas: workflow.DefaultCanvasState(),
	}
}

type mutation struct {
	skipHistory bool
}

// MutationOption modifies how a mutation is recorded.
type MutationOption func(*mutation)

// WithoutHistory applies a mutation without recording a history entry.
// It is used when a mutation is part of a larger change which
// records its own entry.
func WithoutHistory() MutationOption {
	return func(m *mutation) { m.skipHistory = true }
}

func (w *WorkflowStore) touch() {
	w.version++
	w.dirty = true
}

// commit marks the graph as changed and records a history entry.
func (w *WorkflowStore) commit(label string, opts ...MutationOption) {
	var m mutation
	for _, o := range opts {
		o(&m)
	}
	w.touch()
	if m.skipHistory {
		return
	}
	w.s.History.record(label)
}

func (w *WorkflowStore) nodeIndex(id string) int {
	for i := range w.nodes {
		if w.nodes[i].ID == id {
			return i
		}
	}
	return -1
}

func (w *WorkflowStore) connIndex(id string) int {
	for i := range w.conns {
		if w.conns[i].ID == id {
			return i
		}
	}
	return -1
}

// node returns a pointer into the node list. It must not be held
// across mutations.
func (w *WorkflowStore) node(id string) *workflow.Node {
	i := w.nodeIndex(id)
	if i < 0 {
		return nil
	}
	return &w.nodes[i]
}

func (w *WorkflowStore) nextNodeID() string {
	for {
		w.nodeSeq++
		id := nodeIDPrefix + strconv.Itoa(w.nodeSeq)
		if w.nodeIndex(id) < 0 {
			return id
		}
	}
}

func (w *WorkflowStore) nextConnID() string {
	for {
		w.connSeq++
		id := connectionIDPrefix + strconv.Itoa(w.connSeq)
		if w.connIndex(id) < 0 {
			return id
		}
	}
}

// newNode builds a node of type t with the dialect's defaults.
// Properties are layered as schema defaults, then type defaults, then props.
func (w *WorkflowStore) newNode(t node.Type, pos geom.Point, props map[string]any) (workflow.Node, error) {
	spec, ok := w.s.dialect.Spec(t)
	if !ok {
		return workflow.Node{}, errors.Wrapf(ErrUnknownNodeType, "%s", t)
	}

	name := spec.Label
	if name == "" {
		name = t.String()
	}
	size := spec.DefaultSize
	if size.Width <= 0 || size.Height <= 0 {
		size = fallbackNodeSize
	}

	merged := workflow.NormalizeProperties(workflow.MergeProperties(spec.Schema.Defaults(), spec.Defaults, props))
	if len(merged) == 0 {
		merged = nil
	}

	return workflow.Node{
		ID:         w.nextNodeID(),
		Type:       t,
		Name:       name,
		Position:   pos,
		Size:       size,
		Properties: merged,
	}, nil
}

// AddNode creates a node of type t at pos and returns its id.
func (w *WorkflowStore) AddNode(t node.Type, pos geom.Point, props map[string]any) (string, error) {
	n, err := w.newNode(t, pos, props)
	if err != nil {
		return "", err
	}
	w.nodes = append(w.nodes, n)
	w.commit(fmt.Sprintf("Add %s node", t))
	w.s.log.Debugw("added node", "id", n.ID, "type", t)
	return n.ID, nil
}

// descendants returns the ids of the nodes contained in a group,
// including the members of nested groups.
func (w *WorkflowStore) descendants(id string) []string {
	var out []string
	n := w.node(id)
	if n == nil {
		return nil
	}
	for _, child := range n.Children {
		if w.nodeIndex(child) < 0 {
			continue
		}
		out = append(out, child)
		out = append(out, w.descendants(child)...)
	}
	return out
}

// deleteNodes removes the nodes and every connection touching them.
// Members of removed groups are removed too. No history is recorded.
func (w *WorkflowStore) deleteNodes(ids []string) (removedNodes []string, removedConns []string) {
	remove := map[string]bool{}
	for _, id := range ids {
		if w.nodeIndex(id) < 0 || remove[id] {
			continue
		}
		remove[id] = true
		for _, d := range w.descendants(id) {
			remove[d] = true
		}
	}
	if len(remove) == 0 {
		return nil, nil
	}

	conns := w.conns[:0]
	for _, c := range w.conns {
		if remove[c.FromNodeID] || remove[c.ToNodeID] {
			removedConns = append(removedConns, c.ID)
			continue
		}
		conns = append(conns, c)
	}
	w.conns = conns

	// detach surviving parents from removed members
	for i := range w.nodes {
		n := &w.nodes[i]
		if remove[n.ID] || len(n.Children) == 0 {
			continue
		}
		kept := n.Children[:0]
		for _, child := range n.Children {
			if !remove[child] {
				kept = append(kept, child)
			}
		}
		n.Children = kept
	}

	nodes := w.nodes[:0]
	for _, n := range w.nodes {
		if remove[n.ID] {
			removedNodes = append(removedNodes, n.ID)
			continue
		}
		nodes = append(nodes, n)
	}
	w.nodes = nodes

	w.s.forget(removedNodes, removedConns)
	return removedNodes, removedConns
}

// RemoveNode deletes a node together with its connections.
// Removing a group also removes its members.
// It returns false if the node does not exist.
func (w *WorkflowStore) RemoveNode(id string) bool {
	removed, conns := w.deleteNodes([]string{id})
	if len(removed) == 0 {
		return false
	}
	w.commit("Remove node")
	w.s.log.Debugw("removed node", "id", id, "nodes", len(removed), "connections", len(conns))
	return true
}

// RemoveNodes deletes several nodes as one history entry.
// It returns the number of nodes removed, including group members.
func (w *WorkflowStore) RemoveNodes(ids []string) int {
	removed, _ := w.deleteNodes(ids)
	if len(removed) == 0 {
		return 0
	}
	w.commit(fmt.Sprintf("Remove %d nodes", len(removed)))
	return len(removed)
}

// NodeUpdate holds the fields to change on a node.
// Nil fields are left unchanged. Properties and Style are merged
// into the existing values one key at a time.
type NodeUpdate struct {
	Name       *string
	Position   *geom.Point
	Size       *geom.Size
	Properties map[string]any
	Style      workflow.Style
	Collapsed  *bool
}

func (w *WorkflowStore) UpdateNode(id string, u NodeUpdate, opts ...MutationOption) bool {
	n := w.node(id)
	if n == nil {
		return false
	}
	if u.Name != nil {
		n.Name = *u.Name
	}
	if u.Position != nil {
		n.Position = *u.Position
	}
	if u.Size != nil {
		n.Size = *u.Size
	}
	if u.Properties != nil {
		n.Properties = workflow.MergeProperties(n.Properties, workflow.NormalizeProperties(u.Properties))
	}
	if u.Style != nil {
		if n.Style == nil {
			n.Style = workflow.Style{}
		}
		for k, v := range u.Style {
			n.Style[k] = v
		}
	}
	if u.Collapsed != nil {
		n.Collapsed = *u.Collapsed
	}
	w.commit("Update node", opts...)
	return true
}

// translate moves a node by delta. Group members move with their group,
// except those listed in skip.
func (w *WorkflowStore) translate(id string, delta geom.Point, skip map[string]geom.Point) {
	n := w.node(id)
	if n == nil {
		return
	}
	n.Position = n.Position.Add(delta)
	for _, child := range w.descendants(id) {
		if _, ok := skip[child]; ok {
			continue
		}
		if c := w.node(child); c != nil {
			c.Position = c.Position.Add(delta)
		}
	}
}

// MoveNode moves a node to pos. Members of a group move with it.
func (w *WorkflowStore) MoveNode(id string, pos geom.Point) bool {
	n := w.node(id)
	if n == nil {
		return false
	}
	w.translate(id, pos.Sub(n.Position), nil)
	w.commit("Move node")
	return true
}

// MoveNodes moves a batch of nodes as a single history entry.
// It is called once at the end of a drag gesture.
func (w *WorkflowStore) MoveNodes(positions map[string]geom.Point) int {
	var moved []string
	for _, n := range w.nodes {
		if _, ok := positions[n.ID]; ok {
			moved = append(moved, n.ID)
		}
	}
	if len(moved) == 0 {
		return 0
	}

	for _, id := range moved {
		n := w.node(id)
		w.translate(id, positions[id].Sub(n.Position), positions)
	}

	w.commit(fmt.Sprintf("Move %d nodes", len(moved)))
	return len(moved)
}

// DuplicateNode copies a node, offset from the original.
// The copy has no connections and does not belong to a group.
func (w *WorkflowStore) DuplicateNode(id string, offset geom.Point) (string, bool) {
	n := w.node(id)
	if n == nil {
		return "", false
	}
	cp := w.duplicate(*n, offset)
	w.nodes = append(w.nodes, cp)
	w.commit("Duplicate node")
	return cp.ID, true
}

func (w *WorkflowStore) duplicate(n workflow.Node, offset geom.Point) workflow.Node {
	cp := n.Clone()
	cp.ID = w.nextNodeID()
	cp.Name = n.Name + " (copy)"
	cp.Position = n.Position.Add(offset)
	cp.ParentID = ""
	cp.Children = nil
	return cp
}

// AddConnection validates and adds a connection, returning its id.
// An id is generated if c.ID is empty.
func (w *WorkflowStore) AddConnection(c workflow.Connection, opts ...MutationOption) (string, error) {
	if c.ID != "" && w.connIndex(c.ID) >= 0 {
		return "", errors.Wrapf(ErrDuplicateID, "connection %s", c.ID)
	}

	res := w.s.Connections.Validate(c, "")
	if err := res.Err(); err != nil {
		return "", err
	}

	c = c.Clone()
	if c.ID == "" {
		c.ID = w.nextConnID()
	}
	if c.Type == "" {
		c.Type = workflow.DefaultConnection
	}
	w.conns = append(w.conns, c)
	w.commit("Add connection", opts...)
	w.s.log.Debugw("added connection", "id", c.ID, "from", c.FromNodeID, "to", c.ToNodeID)
	return c.ID, nil
}

// RemoveConnection returns false if the connection does not exist.
func (w *WorkflowStore) RemoveConnection(id string, opts ...MutationOption) bool {
	i := w.connIndex(id)
	if i < 0 {
		return false
	}
	w.conns = append(w.conns[:i], w.conns[i+1:]...)
	w.s.forget(nil, []string{id})
	w.commit("Remove connection", opts...)
	return true
}

// ConnectionUpdate holds the connection fields to change.
// Endpoints are changed with ConnectionStore.Reconnect.
type ConnectionUpdate struct {
	Type     *workflow.ConnectionType
	Label    *string
	Style    workflow.Style
	Animated *bool
}

func (w *WorkflowStore) UpdateConnection(id string, u ConnectionUpdate, opts ...MutationOption) bool {
	i := w.connIndex(id)
	if i < 0 {
		return false
	}
	c := &w.conns[i]
	if u.Type != nil {
		c.Type = *u.Type
	}
	if u.Label != nil {
		c.Label = *u.Label
	}
	if u.Style != nil {
		if c.Style == nil {
			c.Style = workflow.Style{}
		}
		for k, v := range u.Style {
			c.Style[k] = v
		}
	}
	if u.Animated != nil {
		c.Animated = *u.Animated
	}
	w.commit("Update connection", opts...)
	return true
}

// Undo restores the state before the last mutation.
func (w *WorkflowStore) Undo() bool {
	if !w.s.History.stack.CanUndo() {
		return false
	}
	w.s.History.refresh()

	snap, ok := w.s.History.stack.Undo()
	if !ok {
		return false
	}
	w.s.restore(snap)
	return true
}

// Redo reapplies the last undone mutation.
func (w *WorkflowStore) Redo() bool {
	if !w.s.History.stack.CanRedo() {
		return false
	}
	w.s.History.refresh()

	snap, ok := w.s.History.stack.Redo()
	if !ok {
		return false
	}
	w.s.restore(snap)
	return true
}

// Clear removes every node and connection as one history entry.
func (w *WorkflowStore) Clear() {
	ids := make([]string, len(w.nodes))
	for i, n := range w.nodes {
		ids[i] = n.ID
	}
	w.deleteNodes(ids)

	// connections left dangling by a loaded document
	var conns []string
	for _, c := range w.conns {
		conns = append(conns, c.ID)
	}
	w.conns = nil
	w.s.forget(nil, conns)

	w.commit("Clear workflow")
}

// Export serializes the workflow.
func (w *WorkflowStore) Export() workflow.Document {
	info := w.info
	canvas := w.canvas
	return workflow.Document{
		Nodes:       workflow.CloneNodes(w.nodes),
		Connections: workflow.CloneConnections(w.conns),
		Info:        &info,
		CanvasState: &canvas,
		ExportedAt:  w.s.now().UTC(),
	}
}

// Load replaces the workflow with a document and resets history.
// Missing info and canvas state are defaulted. The id counters are
// moved past the largest numeric id suffix in the document so that
// new ids never collide with loaded ones.
func (w *WorkflowStore) Load(doc workflow.Document) error {
	seen := map[string]bool{}
	for _, n := range doc.Nodes {
		if n.ID == "" {
			return errors.New("nodes must have an id")
		}
		if seen[n.ID] {
			return errors.Wrapf(ErrDuplicateID, "node %s", n.ID)
		}
		seen[n.ID] = true
		if _, ok := w.s.dialect.Spec(n.Type); !ok {
			return errors.Wrapf(ErrUnknownNodeType, "node %s has type %s", n.ID, n.Type)
		}
	}
	seen = map[string]bool{}
	for _, c := range doc.Connections {
		if c.ID == "" {
			return errors.New("connections must have an id")
		}
		if seen[c.ID] {
			return errors.Wrapf(ErrDuplicateID, "connection %s", c.ID)
		}
		seen[c.ID] = true
	}

	w.nodes = workflow.CloneNodes(doc.Nodes)
	for i := range w.nodes {
		w.nodes[i].Properties = workflow.NormalizeProperties(w.nodes[i].Properties)
	}
	w.conns = workflow.CloneConnections(doc.Connections)

	w.info = workflow.DefaultInfo()
	if doc.Info != nil {
		w.info = *doc.Info
	}
	w.canvas = workflow.DefaultCanvasState()
	if doc.CanvasState != nil {
		w.canvas = *doc.CanvasState
	}

	w.nodeSeq = 0
	for _, n := range w.nodes {
		if seq := idSuffix(n.ID); seq > w.nodeSeq {
			w.nodeSeq = seq
		}
	}
	w.connSeq = 0
	for _, c := range w.conns {
		if seq := idSuffix(c.ID); seq > w.connSeq {
			w.connSeq = seq
		}
	}

	w.s.Selection.reset()
	w.s.Connections.reset()
	w.s.Nodes.ClearErrors()

	w.touch()
	w.dirty = false
	w.s.History.reset("Load workflow")

	w.s.log.Debugw("loaded workflow", "nodes", len(w.nodes), "connections", len(w.conns))
	return nil
}

// idSuffix returns the number at the end of an id, e.g. 12 for "node_12".
func idSuffix(id string) int {
	digits := len(id)
	for digits > 0 && id[digits-1] >= '0' && id[digits-1] <= '9' {
		digits--
	}
	n, err := strconv.Atoi(id[digits:])
	if err != nil {
		return 0
	}
	return n
}

func (w *WorkflowStore) Info() workflow.Info {
	return w.info
}

// SetInfo changes the workflow metadata. It is not recorded in history.
func (w *WorkflowStore) SetInfo(info workflow.Info) {
	w.info = info
	w.dirty = true
}

func (w *WorkflowStore) CanvasState() workflow.CanvasState {
	return w.canvas
}

// SetCanvasState replaces the viewport settings. Viewport changes
// are captured by the next history entry but do not record one.
func (w *WorkflowStore) SetCanvasState(cs workflow.CanvasState) {
	cs.Zoom = clampZoom(cs.Zoom)
	w.canvas = cs
}

// Pan moves the viewport by delta.
func (w *WorkflowStore) Pan(delta geom.Point) {
	w.canvas.Pan = w.canvas.Pan.Add(delta)
}

// Zoom sets the zoom level, clamped to [MinZoom, MaxZoom].
func (w *WorkflowStore) Zoom(level float64) {
	w.canvas.Zoom = clampZoom(level)
}

func clampZoom(z float64) float64 {
	if z < MinZoom {
		return MinZoom
	}
	if z > MaxZoom {
		return MaxZoom
	}
	return z
}

// Nodes returns a copy of the nodes in insertion order.
func (w *WorkflowStore) Nodes() []workflow.Node {
	return workflow.CloneNodes(w.nodes)
}

func (w *WorkflowStore) Node(id string) (workflow.Node, bool) {
	n := w.node(id)
	if n == nil {
		return workflow.Node{}, false
	}
	return n.Clone(), true
}

// Connections returns a copy of the connections in insertion order.
func (w *WorkflowStore) Connections() []workflow.Connection {
	return workflow.CloneConnections(w.conns)
}

func (w *WorkflowStore) Connection(id string) (workflow.Connection, bool) {
	i := w.connIndex(id)
	if i < 0 {
		return workflow.Connection{}, false
	}
	return w.conns[i].Clone(), true
}

// Incoming returns the connections ending at a node.
func (w *WorkflowStore) Incoming(id string) []workflow.Connection {
	var out []workflow.Connection
	for _, c := range w.conns {
		if c.ToNodeID == id {
			out = append(out, c.Clone())
		}
	}
	return out
}

// Outgoing returns the connections starting at a node.
func (w *WorkflowStore) Outgoing(id string) []workflow.Connection {
	var out []workflow.Connection
	for _, c := range w.conns {
		if c.FromNodeID == id {
			out = append(out, c.Clone())
		}
	}
	return out
}

type Stats struct {
	TotalNodes       int
	TotalConnections int
	HasStartNode     bool
	HasEndNode       bool
	ByType           map[node.Type]int
}

func (w *WorkflowStore) Stats() Stats {
	st := Stats{
		TotalNodes:       len(w.nodes),
		TotalConnections: len(w.conns),
		ByType:           map[node.Type]int{},
	}
	for _, n := range w.nodes {
		st.ByType[n.Type]++
	}
	st.HasStartNode = st.ByType[node.Start] > 0
	st.HasEndNode = st.ByType[node.End] > 0
	return st
}

// Dirty reports whether the workflow changed since it was loaded or saved.
func (w *WorkflowStore) Dirty() bool {
	return w.dirty
}

// MarkSaved clears the dirty flag after an external save.
func (w *WorkflowStore) MarkSaved() {
	w.dirty = false
}

// Version is a counter bumped on every change to the graph.
func (w *WorkflowStore) Version() uint64 {
	return w.version
}

func (s Stats) String() string {
	var parts []string
	for _, t := range node.Types() {
		if s.ByType[t] > 0 {
			parts = append(parts, fmt.Sprintf("%d %s", s.ByType[t], t))
		}
	}
	return fmt.Sprintf("%d nodes (%s), %d connections", s.TotalNodes, strings.Join(parts, ", "), s.TotalConnections)
}
