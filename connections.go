package canvas

import (
	"fmt"

	"github.com/common-fate/canvas/pkg/dialect"
	"github.com/common-fate/canvas/pkg/geom"
	"github.com/common-fate/canvas/pkg/route"
	"github.com/common-fate/canvas/pkg/workflow"
	"github.com/pkg/errors"
)

// TempConnectionID identifies the connection drawn during a drag.
// It is never stored in the workflow.
const TempConnectionID = "temp"

// ConnectionState is the state of the drag-to-connect gesture.
type ConnectionState int

const (
	Idle ConnectionState = iota
	// Connecting is entered when a drag starts from an output port.
	Connecting
	// Completing is entered when the drag is dropped on a port,
	// while the connection is validated.
	Completing
	// Cancelled is entered when the drop was invalid or the drag was cancelled.
	Cancelled
)

func (s ConnectionState) String() string {
	switch s {
	case Connecting:
		return "connecting"
	case Completing:
		return "completing"
	case Cancelled:
		return "cancelled"
	}
	return "idle"
}

// Result is the outcome of validating a node or connection.
type Result struct {
	Valid  bool
	Errors []ValidationError
}

// Err returns the first validation error, or nil if the result is valid.
func (r Result) Err() error {
	if len(r.Errors) == 0 {
		return nil
	}
	e := r.Errors[0]
	return &e
}

// ConnectionStore implements drawing, validating and routing connections.
type ConnectionStore struct {
	s *Session

	state   ConnectionState
	temp    *workflow.Connection
	tempEnd geom.Point

	mode route.Mode

	results   map[string]Result
	errors    *ErrorLog
	templates []dialect.ConnectionTemplate
}

func newConnectionStore(s *Session) *ConnectionStore {
	return &ConnectionStore{
		s:         s,
		mode:      route.Bezier,
		results:   map[string]Result{},
		errors:    NewErrorLog(s.maxErrors),
		templates: append([]dialect.ConnectionTemplate{}, s.dialect.ConnectionTemplates...),
	}
}

func (cs *ConnectionStore) State() ConnectionState {
	return cs.state
}

// StartConnection begins dragging a connection from an output port.
// It returns false if the node or port does not exist.
func (cs *ConnectionStore) StartConnection(fromNodeID, fromPort string) bool {
	n := cs.s.Workflow.node(fromNodeID)
	if n == nil {
		return false
	}
	spec, _ := cs.s.dialect.Spec(n.Type)
	if _, ok := spec.Output(fromPort); !ok {
		return false
	}

	cs.state = Connecting
	cs.temp = &workflow.Connection{
		ID:         TempConnectionID,
		FromNodeID: fromNodeID,
		FromPort:   fromPort,
		Type:       workflow.DefaultConnection,
	}
	cs.tempEnd, _ = cs.PortPosition(fromNodeID, fromPort)
	return true
}

// UpdateTempConnection moves the free end of the dragged connection.
func (cs *ConnectionStore) UpdateTempConnection(pos geom.Point) {
	if cs.state != Connecting {
		return
	}
	cs.tempEnd = pos
}

// TempConnection returns the connection being dragged.
func (cs *ConnectionStore) TempConnection() (workflow.Connection, bool) {
	if cs.temp == nil {
		return workflow.Connection{}, false
	}
	return *cs.temp, true
}

// TempPath routes the dragged connection to the pointer.
func (cs *ConnectionStore) TempPath() (route.Path, bool) {
	if cs.temp == nil {
		return route.Path{}, false
	}
	from, ok := cs.PortPosition(cs.temp.FromNodeID, cs.temp.FromPort)
	if !ok {
		return route.Path{}, false
	}
	return route.Calculate(cs.mode, from, cs.tempEnd), true
}

// CompleteConnection drops the dragged connection on an input port.
// The connection is validated against the current graph; if it is
// invalid the error is logged, the gesture is cancelled and the error
// is returned.
func (cs *ConnectionStore) CompleteConnection(toNodeID, toPort string) (string, error) {
	if cs.state != Connecting || cs.temp == nil {
		return "", ErrNotConnecting
	}
	cs.state = Completing

	c := *cs.temp
	c.ID = ""
	c.ToNodeID = toNodeID
	c.ToPort = toPort
	key := attemptKey(c)

	res := cs.Validate(c, "")
	if !res.Valid {
		cs.errors.Set(key, res.Errors)
		cs.CancelConnection()
		cs.s.log.Debugw("rejected connection", "from", c.FromNodeID, "to", c.ToNodeID, "error", res.Err())
		return "", res.Err()
	}

	id, err := cs.s.Workflow.AddConnection(c)
	if err != nil {
		cs.CancelConnection()
		return "", err
	}
	cs.results[id] = res
	cs.errors.Clear(key)
	cs.state = Idle
	cs.temp = nil
	return id, nil
}

// attemptKey identifies a connection attempt in the error log.
func attemptKey(c workflow.Connection) string {
	return fmt.Sprintf("%s.%s->%s.%s", c.FromNodeID, c.FromPort, c.ToNodeID, c.ToPort)
}

// CancelConnection abandons the drag. The workflow is not changed.
func (cs *ConnectionStore) CancelConnection() {
	if cs.state == Connecting || cs.state == Completing {
		cs.state = Cancelled
	}
	cs.temp = nil
}

func (cs *ConnectionStore) invalid(res *Result, id, rule, format string, args ...any) {
	res.Valid = false
	res.Errors = append(res.Errors, ValidationError{
		ElementID: id,
		Rule:      rule,
		Message:   fmt.Sprintf(format, args...),
		At:        cs.s.now(),
	})
}

// Validate checks a candidate connection against the current graph.
// The connection with id exclude is ignored, so that an existing
// connection can be validated against its own new endpoints.
func (cs *ConnectionStore) Validate(c workflow.Connection, exclude string) Result {
	res := Result{Valid: true}
	id := c.ID
	if id == "" {
		id = attemptKey(c)
	}

	w := cs.s.Workflow
	from := w.node(c.FromNodeID)
	if from == nil {
		cs.invalid(&res, id, "missing-source", "source node %s does not exist", c.FromNodeID)
	}
	to := w.node(c.ToNodeID)
	if to == nil {
		cs.invalid(&res, id, "missing-target", "target node %s does not exist", c.ToNodeID)
	}
	if from == nil || to == nil {
		return res
	}
	fromSpec, _ := cs.s.dialect.Spec(from.Type)
	toSpec, _ := cs.s.dialect.Spec(to.Type)

	if c.FromNodeID == c.ToNodeID && !fromSpec.AllowSelfLoop {
		cs.invalid(&res, id, "self-loop", "%s nodes cannot connect to themselves", from.Type)
	}
	if _, ok := fromSpec.Output(c.FromPort); !ok {
		cs.invalid(&res, id, "unknown-port", "%s nodes have no output port %q", from.Type, c.FromPort)
	}
	if _, ok := toSpec.Input(c.ToPort); !ok {
		cs.invalid(&res, id, "unknown-port", "%s nodes have no input port %q", to.Type, c.ToPort)
	}
	if !res.Valid {
		return res
	}

	if !cs.s.dialect.Compatible(from.Type, c.FromPort, to.Type, c.ToPort) {
		cs.invalid(&res, id, "incompatible-ports", "%s.%s cannot connect to %s.%s", from.Type, c.FromPort, to.Type, c.ToPort)
	}

	var outputs, inputs int
	for _, existing := range w.conns {
		if existing.ID == exclude {
			continue
		}
		if existing.SameEndpoints(c) {
			cs.invalid(&res, id, "duplicate", "%s.%s is already connected to %s.%s", c.FromNodeID, c.FromPort, c.ToNodeID, c.ToPort)
		}
		if existing.FromNodeID == c.FromNodeID {
			outputs++
		}
		if existing.ToNodeID == c.ToNodeID {
			inputs++
		}
	}
	if fromSpec.MaxOutputs > 0 && outputs >= fromSpec.MaxOutputs {
		cs.invalid(&res, id, "max-outputs", "%s nodes allow at most %d outgoing connections", from.Type, fromSpec.MaxOutputs)
	}
	if toSpec.MaxInputs > 0 && inputs >= toSpec.MaxInputs {
		cs.invalid(&res, id, "max-inputs", "%s nodes allow at most %d incoming connections", to.Type, toSpec.MaxInputs)
	}
	return res
}

// Endpoints holds new endpoints for Reconnect. Empty fields keep
// the connection's current value.
type Endpoints struct {
	FromNodeID string
	FromPort   string
	ToNodeID   string
	ToPort     string
}

// Reconnect moves one or both ends of a connection. The new endpoints
// are validated with the connection itself excluded. If they are
// invalid the connection is left unchanged and the error is returned.
func (cs *ConnectionStore) Reconnect(id string, e Endpoints) error {
	w := cs.s.Workflow
	i := w.connIndex(id)
	if i < 0 {
		return errors.Wrapf(ErrConnectionNotFound, "%s", id)
	}

	candidate := w.conns[i]
	if e.FromNodeID != "" {
		candidate.FromNodeID = e.FromNodeID
	}
	if e.FromPort != "" {
		candidate.FromPort = e.FromPort
	}
	if e.ToNodeID != "" {
		candidate.ToNodeID = e.ToNodeID
	}
	if e.ToPort != "" {
		candidate.ToPort = e.ToPort
	}

	res := cs.Validate(candidate, id)
	if !res.Valid {
		cs.errors.Set(id, res.Errors)
		return res.Err()
	}

	w.conns[i] = candidate
	cs.results[id] = res
	cs.errors.Clear(id)
	w.commit("Reconnect connection")
	return nil
}

// SetPathMode changes how connections are routed.
func (cs *ConnectionStore) SetPathMode(m route.Mode) {
	cs.mode = m
}

func (cs *ConnectionStore) PathMode() route.Mode {
	return cs.mode
}

// PortPosition returns the canvas position of a node's port.
// Ports without an anchor sit at the middle of the node's left edge
// for inputs, and the middle of its right edge for outputs.
func (cs *ConnectionStore) PortPosition(nodeID, port string) (geom.Point, bool) {
	n := cs.s.Workflow.node(nodeID)
	if n == nil {
		return geom.Point{}, false
	}
	spec, _ := cs.s.dialect.Spec(n.Type)

	if p, ok := spec.Output(port); ok {
		if p.Anchor != nil {
			return n.Position.Add(*p.Anchor), true
		}
		return geom.Point{X: n.Position.X + n.Size.Width, Y: n.Position.Y + n.Size.Height/2}, true
	}
	if p, ok := spec.Input(port); ok {
		if p.Anchor != nil {
			return n.Position.Add(*p.Anchor), true
		}
		return geom.Point{X: n.Position.X, Y: n.Position.Y + n.Size.Height/2}, true
	}
	return geom.Point{}, false
}

// CalculateConnectionPath routes a connection using the active path mode.
func (cs *ConnectionStore) CalculateConnectionPath(id string) (route.Path, bool) {
	c, ok := cs.s.Workflow.Connection(id)
	if !ok {
		return route.Path{}, false
	}
	from, ok := cs.PortPosition(c.FromNodeID, c.FromPort)
	if !ok {
		return route.Path{}, false
	}
	to, ok := cs.PortPosition(c.ToNodeID, c.ToPort)
	if !ok {
		return route.Path{}, false
	}
	return route.Calculate(cs.mode, from, to), true
}

// FindConnectionPath searches depth-first for a chain of connections
// leading from one node to another. It returns the ids of the nodes
// on the first path found, following connections in the order they
// were added.
func (cs *ConnectionStore) FindConnectionPath(fromID, toID string) ([]string, bool) {
	w := cs.s.Workflow
	if w.nodeIndex(fromID) < 0 || w.nodeIndex(toID) < 0 {
		return nil, false
	}

	visited := map[string]bool{}
	var walk func(id string, path []string) []string
	walk = func(id string, path []string) []string {
		path = append(path, id)
		if id == toID {
			return path
		}
		visited[id] = true
		for _, c := range w.conns {
			if c.FromNodeID != id || visited[c.ToNodeID] {
				continue
			}
			if found := walk(c.ToNodeID, path); found != nil {
				return found
			}
		}
		return nil
	}

	path := walk(fromID, nil)
	if path == nil {
		return nil, false
	}
	return append([]string{}, path...), true
}

func (cs *ConnectionStore) SetStyle(id string, style workflow.Style) bool {
	return cs.s.Workflow.UpdateConnection(id, ConnectionUpdate{Style: style})
}

func (cs *ConnectionStore) SetType(id string, t workflow.ConnectionType) bool {
	return cs.s.Workflow.UpdateConnection(id, ConnectionUpdate{Type: &t})
}

func (cs *ConnectionStore) SetLabel(id string, label string) bool {
	return cs.s.Workflow.UpdateConnection(id, ConnectionUpdate{Label: &label})
}

// SetAnimated turns the flow animation of a connection on or off.
func (cs *ConnectionStore) SetAnimated(id string, animated bool) bool {
	return cs.s.Workflow.UpdateConnection(id, ConnectionUpdate{Animated: &animated})
}

// RegisterTemplate adds a connection template, replacing any
// template with the same id.
func (cs *ConnectionStore) RegisterTemplate(t dialect.ConnectionTemplate) error {
	if t.ID == "" {
		return errors.New("connection templates must have an id")
	}
	for i := range cs.templates {
		if cs.templates[i].ID == t.ID {
			cs.templates[i] = t
			return nil
		}
	}
	cs.templates = append(cs.templates, t)
	return nil
}

func (cs *ConnectionStore) Templates() []dialect.ConnectionTemplate {
	return append([]dialect.ConnectionTemplate{}, cs.templates...)
}

func (cs *ConnectionStore) Template(id string) (dialect.ConnectionTemplate, bool) {
	for _, t := range cs.templates {
		if t.ID == id {
			return t, true
		}
	}
	return dialect.ConnectionTemplate{}, false
}

// CreateFromTemplate adds a connection styled by a template.
func (cs *ConnectionStore) CreateFromTemplate(templateID, fromNodeID, fromPort, toNodeID, toPort string) (string, error) {
	t, ok := cs.Template(templateID)
	if !ok {
		return "", errors.Wrapf(ErrTemplateNotFound, "connection template %s", templateID)
	}
	return cs.s.Workflow.AddConnection(workflow.Connection{
		FromNodeID: fromNodeID,
		FromPort:   fromPort,
		ToNodeID:   toNodeID,
		ToPort:     toPort,
		Type:       t.Type,
		Label:      t.Label,
		Style:      t.Style.Clone(),
		Animated:   t.Animated,
	})
}

// Result returns the recorded validation result of a connection.
func (cs *ConnectionStore) Result(id string) (Result, bool) {
	r, ok := cs.results[id]
	return r, ok
}

// Errors returns the logged connection errors, oldest first.
func (cs *ConnectionStore) Errors() []ValidationError {
	return cs.errors.All()
}

func (cs *ConnectionStore) ClearErrors() {
	cs.errors.Reset()
}

func (cs *ConnectionStore) clearResult(id string) {
	delete(cs.results, id)
	cs.errors.Clear(id)
}

func (cs *ConnectionStore) pruneResults() {
	for id := range cs.results {
		if cs.s.Workflow.connIndex(id) < 0 {
			delete(cs.results, id)
		}
	}
}

func (cs *ConnectionStore) reset() {
	cs.state = Idle
	cs.temp = nil
	cs.results = map[string]Result{}
	cs.errors.Reset()
}
