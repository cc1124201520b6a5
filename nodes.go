package canvas

import (
	"fmt"
	"sort"

	"github.com/common-fate/canvas/pkg/dialect"
	"github.com/common-fate/canvas/pkg/geom"
	"github.com/common-fate/canvas/pkg/node"
	"github.com/common-fate/canvas/pkg/workflow"
	"github.com/pkg/errors"
)

// GroupPadding is the space left around the members of a new group.
const GroupPadding = 20.0

// NodeStore manages node templates, grouping, the clipboard,
// node validation and styling.
type NodeStore struct {
	s *Session

	templates []dialect.Template
	clipboard *clipboard

	results map[string]Result
	errors  *ErrorLog

	themes map[string]dialect.Theme
	theme  string
}

// clipboard holds copied nodes and the connections between them.
type clipboard struct {
	nodes []workflow.Node
	conns []workflow.Connection
}

func newNodeStore(s *Session) *NodeStore {
	ns := &NodeStore{
		s:       s,
		results: map[string]Result{},
		errors:  NewErrorLog(s.maxErrors),
		themes:  map[string]dialect.Theme{},
	}

	// every node type can be created from a template named after it
	for _, t := range node.Types() {
		spec, ok := s.dialect.Spec(t)
		if !ok {
			continue
		}
		ns.templates = append(ns.templates, dialect.Template{
			ID:   t.String(),
			Name: spec.Label,
			Type: t,
		})
	}
	for _, t := range s.dialect.Templates {
		_ = ns.RegisterTemplate(t)
	}
	for name, th := range s.dialect.Themes {
		ns.themes[name] = th
	}
	return ns
}

// RegisterTemplate adds a template to the palette, replacing any
// template with the same id.
func (ns *NodeStore) RegisterTemplate(t dialect.Template) error {
	if t.ID == "" {
		return errors.New("templates must have an id")
	}
	if _, ok := ns.s.dialect.Spec(t.Type); !ok {
		return errors.Wrapf(ErrUnknownNodeType, "template %s has type %s", t.ID, t.Type)
	}
	t.Properties = workflow.NormalizeProperties(t.Properties)
	for i := range ns.templates {
		if ns.templates[i].ID == t.ID {
			ns.templates[i] = t
			return nil
		}
	}
	ns.templates = append(ns.templates, t)
	return nil
}

func (ns *NodeStore) Template(id string) (dialect.Template, bool) {
	for _, t := range ns.templates {
		if t.ID == id {
			return t, true
		}
	}
	return dialect.Template{}, false
}

// Templates returns the palette in registration order.
func (ns *NodeStore) Templates() []dialect.Template {
	return append([]dialect.Template{}, ns.templates...)
}

// TemplatesByCategory groups the palette by the category of each template's node type.
func (ns *NodeStore) TemplatesByCategory() map[node.Category][]dialect.Template {
	out := map[node.Category][]dialect.Template{}
	for _, t := range ns.templates {
		spec, _ := ns.s.dialect.Spec(t.Type)
		out[spec.Category] = append(out[spec.Category], t)
	}
	return out
}

func (ns *NodeStore) RemoveTemplate(id string) bool {
	for i, t := range ns.templates {
		if t.ID == id {
			ns.templates = append(ns.templates[:i], ns.templates[i+1:]...)
			return true
		}
	}
	return false
}

// SaveAsTemplate registers a template which recreates the
// properties, size and style of an existing node.
func (ns *NodeStore) SaveAsTemplate(nodeID, templateID, name string) (dialect.Template, error) {
	n, ok := ns.s.Workflow.Node(nodeID)
	if !ok {
		return dialect.Template{}, errors.Wrapf(ErrNodeNotFound, "%s", nodeID)
	}
	if name == "" {
		name = n.Name
	}
	size := n.Size
	t := dialect.Template{
		ID:         templateID,
		Name:       name,
		Type:       n.Type,
		Properties: n.Properties,
		Size:       &size,
		Style:      n.Style,
	}
	err := ns.RegisterTemplate(t)
	if err != nil {
		return dialect.Template{}, err
	}
	return t, nil
}

// CreateNodeFromTemplate adds a node from a palette template. The
// overrides are merged over the template's properties, which are merged
// over the node type's defaults.
func (ns *NodeStore) CreateNodeFromTemplate(templateID string, pos geom.Point, overrides map[string]any) (string, error) {
	t, ok := ns.Template(templateID)
	if !ok {
		return "", errors.Wrapf(ErrTemplateNotFound, "%s", templateID)
	}

	w := ns.s.Workflow
	n, err := w.newNode(t.Type, pos, workflow.MergeProperties(t.Properties, overrides))
	if err != nil {
		return "", err
	}
	if t.Name != "" {
		n.Name = t.Name
	}
	if t.Size != nil {
		n.Size = *t.Size
	}
	n.Style = t.Style.Clone()

	w.nodes = append(w.nodes, n)
	w.commit(fmt.Sprintf("Add %s", n.Name))
	return n.ID, nil
}

// existing returns the ids of existing nodes, without duplicates,
// in the order given.
func (ns *NodeStore) existing(ids []string) []string {
	var out []string
	for _, id := range dedupe(ids) {
		if ns.s.Workflow.nodeIndex(id) >= 0 {
			out = append(out, id)
		}
	}
	return out
}

// withMembers adds the members of any group in ids, in graph order.
func (ns *NodeStore) withMembers(ids []string) []string {
	include := set(ids)
	for _, id := range ids {
		for _, d := range ns.s.Workflow.descendants(id) {
			include[d] = true
		}
	}
	var out []string
	for _, n := range ns.s.Workflow.nodes {
		if include[n.ID] {
			out = append(out, n.ID)
		}
	}
	return out
}

// internalConnections returns the connections with both ends in ids.
func (ns *NodeStore) internalConnections(ids []string) []workflow.Connection {
	in := set(ids)
	var out []workflow.Connection
	for _, c := range ns.s.Workflow.conns {
		if in[c.FromNodeID] && in[c.ToNodeID] {
			out = append(out, c.Clone())
		}
	}
	return out
}

// insertCopies adds copies of nodes and connections to the graph with
// new ids, returning the new node ids. Group membership and connections
// are remapped when both ends are copied, and dropped otherwise.
func (ns *NodeStore) insertCopies(nodes []workflow.Node, conns []workflow.Connection, offset geom.Point, rename bool) []string {
	w := ns.s.Workflow

	remap := map[string]string{}
	for _, n := range nodes {
		remap[n.ID] = w.nextNodeID()
	}

	ids := make([]string, 0, len(nodes))
	for _, n := range nodes {
		cp := n.Clone()
		cp.ID = remap[n.ID]
		cp.Position = n.Position.Add(offset)
		if rename {
			cp.Name = n.Name + " (copy)"
		}
		cp.ParentID = remap[n.ParentID]
		cp.Children = nil
		for _, child := range n.Children {
			if newID, ok := remap[child]; ok {
				cp.Children = append(cp.Children, newID)
			}
		}
		w.nodes = append(w.nodes, cp)
		ids = append(ids, cp.ID)
	}

	for _, c := range conns {
		from, okFrom := remap[c.FromNodeID]
		to, okTo := remap[c.ToNodeID]
		if !okFrom || !okTo {
			continue
		}
		cp := c.Clone()
		cp.ID = w.nextConnID()
		cp.FromNodeID = from
		cp.ToNodeID = to
		w.conns = append(w.conns, cp)
	}
	return ids
}

// DuplicateNodes copies a set of nodes as one history entry. Groups are
// copied with their members. Connections between the copied nodes are
// copied too; connections to nodes outside the set are not. It returns
// the new ids of the given nodes in the order given, followed by the
// ids of copied members which were not given.
func (ns *NodeStore) DuplicateNodes(ids []string, offset geom.Point) []string {
	ids = ns.existing(ids)
	if len(ids) == 0 {
		return []string{}
	}

	given := set(ids)
	all := ids
	for _, id := range ns.withMembers(ids) {
		if !given[id] {
			all = append(all, id)
		}
	}

	w := ns.s.Workflow
	nodes := make([]workflow.Node, len(all))
	for i, id := range all {
		nodes[i] = *w.node(id)
	}
	out := ns.insertCopies(nodes, ns.internalConnections(all), offset, true)

	w.commit(fmt.Sprintf("Duplicate %d nodes", len(out)))
	return out
}

// GroupNodes wraps at least two nodes in a new group node sized to
// their bounding box plus GroupPadding. It returns false and changes
// nothing if fewer than two of the ids exist.
func (ns *NodeStore) GroupNodes(ids []string, name string) (string, bool) {
	ids = ns.existing(ids)
	if len(ids) < 2 {
		return "", false
	}

	w := ns.s.Workflow
	var rects []geom.Rect
	parent := w.node(ids[0]).ParentID
	for _, id := range ids {
		n := w.node(id)
		rects = append(rects, n.Bounds())
		if n.ParentID != parent {
			parent = ""
		}
	}
	box, _ := geom.Bounds(rects...)
	box = box.Inset(GroupPadding)

	g, err := w.newNode(node.Group, geom.Point{X: box.X, Y: box.Y}, nil)
	if err != nil {
		ns.s.log.Debugw("cannot group nodes", "error", err)
		return "", false
	}
	g.Size = geom.Size{Width: box.Width, Height: box.Height}
	if name != "" {
		g.Name = name
	}
	g.Children = append([]string{}, ids...)

	// detach the members from their previous groups
	members := set(ids)
	for i := range w.nodes {
		n := &w.nodes[i]
		if len(n.Children) == 0 {
			continue
		}
		var kept []string
		for _, child := range n.Children {
			if !members[child] {
				kept = append(kept, child)
			}
		}
		if n.ID == parent {
			// the new group takes the members' place in their shared group
			kept = append(kept, g.ID)
			g.ParentID = parent
		}
		n.Children = kept
	}
	for _, id := range ids {
		w.node(id).ParentID = g.ID
	}

	w.nodes = append(w.nodes, g)
	w.commit("Group nodes")
	return g.ID, true
}

// UngroupNodes removes a group node. Its members keep their positions
// and move to the group's own parent, if it has one.
func (ns *NodeStore) UngroupNodes(groupID string) bool {
	w := ns.s.Workflow
	g := w.node(groupID)
	if g == nil || g.Type != node.Group {
		return false
	}
	parent := g.ParentID
	children := append([]string{}, g.Children...)

	for _, id := range children {
		if n := w.node(id); n != nil {
			n.ParentID = parent
		}
	}
	if p := w.node(parent); p != nil {
		var kept []string
		for _, child := range p.Children {
			if child == groupID {
				kept = append(kept, children...)
				continue
			}
			kept = append(kept, child)
		}
		p.Children = kept
	}

	// the group no longer has members, so only the group itself is removed
	w.node(groupID).Children = nil
	w.deleteNodes([]string{groupID})

	w.commit("Ungroup nodes")
	return true
}

// ToggleCollapse collapses or expands a group.
func (ns *NodeStore) ToggleCollapse(groupID string) bool {
	g := ns.s.Workflow.node(groupID)
	if g == nil || g.Type != node.Group {
		return false
	}
	g.Collapsed = !g.Collapsed
	label := "Expand group"
	if g.Collapsed {
		label = "Collapse group"
	}
	ns.s.Workflow.commit(label)
	return true
}

// check validates a node without recording the result.
func (ns *NodeStore) check(n workflow.Node) Result {
	res := Result{Valid: true}
	fail := func(rule, format string, args ...any) {
		res.Valid = false
		res.Errors = append(res.Errors, ValidationError{
			ElementID: n.ID,
			Rule:      rule,
			Message:   fmt.Sprintf(format, args...),
			At:        ns.s.now(),
		})
	}

	if n.Name == "" {
		fail("name-required", "name is required")
	}

	spec, ok := ns.s.dialect.Spec(n.Type)
	if !ok {
		fail("unknown-type", "node type %s is not available", n.Type)
		return res
	}

	for _, key := range spec.Schema.Missing(n.Properties) {
		fail("required", "%s is required", key)
	}

	if spec.Schema != nil {
		keys := make([]string, 0, len(spec.Schema.Properties))
		for k := range spec.Schema.Properties {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			v, ok := n.Properties[k]
			if ok && !spec.Schema.Properties[k].Allows(v) {
				fail("enum", "%s must be one of %v", k, spec.Schema.Properties[k].Enum)
			}
		}
	}

	if spec.Check != nil {
		if err := spec.Check(n.Properties); err != nil {
			fail(n.Type.String(), "%s", err)
		}
	}

	for _, p := range ns.s.programs[n.Type] {
		ok, err := p.eval(n.Properties)
		if err != nil {
			fail(ruleName(p.rule), "rule %s could not be evaluated: %s", ruleName(p.rule), err)
			continue
		}
		if !ok {
			msg := p.rule.Message
			if msg == "" {
				msg = fmt.Sprintf("rule %s failed", ruleName(p.rule))
			}
			fail(ruleName(p.rule), "%s", msg)
		}
	}
	return res
}

// ValidateNode runs the structural rules of a node's type and records
// the result. The node's entry in the error log is replaced, and is
// removed when the node is valid. It returns false if the node does
// not exist.
func (ns *NodeStore) ValidateNode(id string) (Result, bool) {
	n := ns.s.Workflow.node(id)
	if n == nil {
		return Result{}, false
	}
	res := ns.check(*n)
	ns.results[id] = res
	ns.errors.Set(id, res.Errors)
	return res, true
}

// ValidateAllNodes validates every node and reports whether all are valid.
func (ns *NodeStore) ValidateAllNodes() bool {
	ns.pruneResults()
	valid := true
	for _, n := range ns.s.Workflow.nodes {
		res, _ := ns.ValidateNode(n.ID)
		valid = valid && res.Valid
	}
	return valid
}

// Result returns the last recorded validation result of a node.
func (ns *NodeStore) Result(id string) (Result, bool) {
	r, ok := ns.results[id]
	return r, ok
}

// Errors returns the logged node errors, oldest first.
func (ns *NodeStore) Errors() []ValidationError {
	return ns.errors.All()
}

func (ns *NodeStore) ClearErrors() {
	ns.results = map[string]Result{}
	ns.errors.Reset()
}

func (ns *NodeStore) clearResult(id string) {
	delete(ns.results, id)
	ns.errors.Clear(id)
}

func (ns *NodeStore) pruneResults() {
	for id := range ns.results {
		if ns.s.Workflow.nodeIndex(id) < 0 {
			ns.clearResult(id)
		}
	}
}

// Copy puts nodes on the clipboard, with the members of copied groups
// and the connections between the copied nodes. It returns the number
// of nodes copied. The clipboard is unchanged if no node exists.
func (ns *NodeStore) Copy(ids []string) int {
	ids = ns.withMembers(ns.existing(ids))
	if len(ids) == 0 {
		return 0
	}
	cb := &clipboard{conns: ns.internalConnections(ids)}
	for _, id := range ids {
		cb.nodes = append(cb.nodes, ns.s.Workflow.node(id).Clone())
	}
	ns.clipboard = cb
	return len(cb.nodes)
}

// Cut copies nodes to the clipboard and removes them as one history entry.
func (ns *NodeStore) Cut(ids []string) int {
	n := ns.Copy(ids)
	if n == 0 {
		return 0
	}
	var cut []string
	for _, cn := range ns.clipboard.nodes {
		cut = append(cut, cn.ID)
	}
	ns.s.Workflow.deleteNodes(cut)
	ns.s.Workflow.commit(fmt.Sprintf("Cut %d nodes", n))
	return n
}

// Paste inserts the clipboard contents so that the first copied node
// lands at pos, keeping the relative layout of the others. The pasted
// nodes become the selection. The clipboard can be pasted again.
func (ns *NodeStore) Paste(pos geom.Point) []string {
	if !ns.HasClipboard() {
		return nil
	}
	offset := pos.Sub(ns.clipboard.nodes[0].Position)
	ids := ns.insertCopies(ns.clipboard.nodes, ns.clipboard.conns, offset, false)

	ns.s.Selection.SelectNodes(ids, Replace)
	ns.s.Workflow.commit(fmt.Sprintf("Paste %d nodes", len(ids)))
	return ids
}

func (ns *NodeStore) HasClipboard() bool {
	return ns.clipboard != nil && len(ns.clipboard.nodes) > 0
}

func (ns *NodeStore) ClearClipboard() {
	ns.clipboard = nil
}

// SetStyle merges style into the style of each node.
func (ns *NodeStore) SetStyle(ids []string, style workflow.Style) int {
	ids = ns.existing(ids)
	if len(ids) == 0 {
		return 0
	}
	for _, id := range ids {
		n := ns.s.Workflow.node(id)
		if n.Style == nil {
			n.Style = workflow.Style{}
		}
		for k, v := range style {
			n.Style[k] = v
		}
	}
	ns.s.Workflow.commit(fmt.Sprintf("Style %d nodes", len(ids)))
	return len(ids)
}

// ResetStyle removes custom styling from the nodes.
func (ns *NodeStore) ResetStyle(ids []string) int {
	ids = ns.existing(ids)
	if len(ids) == 0 {
		return 0
	}
	for _, id := range ids {
		ns.s.Workflow.node(id).Style = nil
	}
	ns.s.Workflow.commit(fmt.Sprintf("Reset style of %d nodes", len(ids)))
	return len(ids)
}

func (ns *NodeStore) RegisterTheme(name string, th dialect.Theme) {
	ns.themes[name] = th
}

// Themes returns the registered theme names, sorted.
func (ns *NodeStore) Themes() []string {
	var names []string
	for name := range ns.themes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Theme returns the name of the last applied theme.
func (ns *NodeStore) Theme() string {
	return ns.theme
}

// ApplyTheme restyles every node by its type's category, and every
// connection, as one history entry.
func (ns *NodeStore) ApplyTheme(name string) bool {
	th, ok := ns.themes[name]
	if !ok {
		return false
	}
	w := ns.s.Workflow
	for i := range w.nodes {
		spec, _ := ns.s.dialect.Spec(w.nodes[i].Type)
		w.nodes[i].Style = th.Nodes[spec.Category].Clone()
	}
	for i := range w.conns {
		w.conns[i].Style = th.Connections.Clone()
	}
	ns.theme = name
	w.commit(fmt.Sprintf("Apply %s theme", name))
	return true
}

// Alignment is an edge or center line to align nodes on.
type Alignment int

const (
	AlignLeft Alignment = iota
	AlignCenter
	AlignRight
	AlignTop
	AlignMiddle
	AlignBottom
)

// Align lines up at least two nodes against the bounding box of the set.
// It returns the number of nodes aligned.
func (ns *NodeStore) Align(ids []string, a Alignment) int {
	ids = ns.existing(ids)
	if len(ids) < 2 {
		return 0
	}
	w := ns.s.Workflow
	var rects []geom.Rect
	for _, id := range ids {
		rects = append(rects, w.node(id).Bounds())
	}
	box, _ := geom.Bounds(rects...)

	targets := map[string]geom.Point{}
	for _, id := range ids {
		n := w.node(id)
		p := n.Position
		switch a {
		case AlignLeft:
			p.X = box.X
		case AlignCenter:
			p.X = box.Center().X - n.Size.Width/2
		case AlignRight:
			p.X = box.Right() - n.Size.Width
		case AlignTop:
			p.Y = box.Y
		case AlignMiddle:
			p.Y = box.Center().Y - n.Size.Height/2
		case AlignBottom:
			p.Y = box.Bottom() - n.Size.Height
		}
		targets[id] = p
	}
	for _, id := range ids {
		w.translate(id, targets[id].Sub(w.node(id).Position), targets)
	}
	w.commit(fmt.Sprintf("Align %d nodes", len(ids)))
	return len(ids)
}

type Axis int

const (
	Horizontal Axis = iota
	Vertical
)

// Distribute spaces at least three nodes evenly along an axis, keeping
// the first and last node in place. It returns the number of nodes moved.
func (ns *NodeStore) Distribute(ids []string, axis Axis) int {
	ids = ns.existing(ids)
	if len(ids) < 3 {
		return 0
	}
	w := ns.s.Workflow

	nodes := make([]workflow.Node, len(ids))
	for i, id := range ids {
		nodes[i] = *w.node(id)
	}
	pos := func(n workflow.Node) float64 {
		if axis == Vertical {
			return n.Position.Y
		}
		return n.Position.X
	}
	length := func(n workflow.Node) float64 {
		if axis == Vertical {
			return n.Size.Height
		}
		return n.Size.Width
	}
	sort.SliceStable(nodes, func(i, j int) bool { return pos(nodes[i]) < pos(nodes[j]) })

	first, last := nodes[0], nodes[len(nodes)-1]
	span := pos(last) + length(last) - pos(first)
	total := 0.0
	for _, n := range nodes {
		total += length(n)
	}
	gap := (span - total) / float64(len(nodes)-1)

	targets := map[string]geom.Point{}
	cursor := pos(first)
	for _, n := range nodes {
		p := n.Position
		if axis == Vertical {
			p.Y = cursor
		} else {
			p.X = cursor
		}
		targets[n.ID] = p
		cursor += length(n) + gap
	}
	for _, n := range nodes {
		w.translate(n.ID, targets[n.ID].Sub(n.Position), targets)
	}
	w.commit(fmt.Sprintf("Distribute %d nodes", len(ids)))
	return len(ids)
}
