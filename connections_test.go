package canvas

import (
	"testing"

	"github.com/common-fate/canvas/pkg/dialect"
	"github.com/common-fate/canvas/pkg/geom"
	"github.com/common-fate/canvas/pkg/node"
	"github.com/common-fate/canvas/pkg/route"
	"github.com/common-fate/canvas/pkg/workflow"
	"github.com/common-fate/canvas/pkg/workflow/w"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConnections_Drag(t *testing.T) {
	s := newSession(t)
	s.Connections.SetPathMode(route.Straight)
	task := addNode(t, s, node.Task, 0, 0)
	end := addNode(t, s, node.End, 400, 0)

	assert.Equal(t, Idle, s.Connections.State())
	assert.False(t, s.Connections.StartConnection(end, "out"), "end nodes have no outputs")
	assert.False(t, s.Connections.StartConnection("missing", "out"))
	assert.Equal(t, Idle, s.Connections.State())

	require.True(t, s.Connections.StartConnection(task, "out"))
	assert.Equal(t, Connecting, s.Connections.State())

	temp, ok := s.Connections.TempConnection()
	require.True(t, ok)
	assert.Equal(t, TempConnectionID, temp.ID)
	assert.Equal(t, task, temp.FromNodeID)

	s.Connections.UpdateTempConnection(geom.Point{X: 300, Y: 100})
	p, ok := s.Connections.TempPath()
	require.True(t, ok)
	assert.Equal(t, "M 150 30 L 300 100", p.D)

	size := s.History.Size()
	id, err := s.Connections.CompleteConnection(end, "in")
	require.NoError(t, err)
	assert.Equal(t, Idle, s.Connections.State())
	assert.Equal(t, size+1, s.History.Size())

	c, ok := s.Workflow.Connection(id)
	require.True(t, ok)
	assert.Equal(t, task, c.FromNodeID)
	assert.Equal(t, end, c.ToNodeID)
	assert.Equal(t, workflow.DefaultConnection, c.Type)

	_, ok = s.Connections.TempConnection()
	assert.False(t, ok)
	res, ok := s.Connections.Result(id)
	require.True(t, ok)
	assert.True(t, res.Valid)
}

func TestConnections_CompleteWithoutDrag(t *testing.T) {
	s := newSession(t)
	end := addNode(t, s, node.End, 0, 0)

	_, err := s.Connections.CompleteConnection(end, "in")
	assert.True(t, errors.Is(err, ErrNotConnecting))
}

func TestConnections_Cancel(t *testing.T) {
	s := newSession(t)
	a := addNode(t, s, node.Task, 0, 0)

	require.True(t, s.Connections.StartConnection(a, "out"))
	s.Connections.CancelConnection()
	assert.Equal(t, Cancelled, s.Connections.State())
	assert.Equal(t, 0, s.Workflow.Stats().TotalConnections)

	// a new drag can start after a cancelled one
	assert.True(t, s.Connections.StartConnection(a, "out"))
	assert.Equal(t, Connecting, s.Connections.State())
}

func TestConnections_RejectedAttemptIsLogged(t *testing.T) {
	s := newSession(t)
	start := addNode(t, s, node.Start, 0, 0)
	a := addNode(t, s, node.Task, 200, 0)
	b := addNode(t, s, node.Task, 200, 200)
	first := connect(t, s, start, a)

	size := s.History.Size()
	require.True(t, s.Connections.StartConnection(start, "out"))
	_, err := s.Connections.CompleteConnection(b, "in")

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "max-outputs", verr.Rule)
	assert.Equal(t, Cancelled, s.Connections.State())
	assert.Equal(t, size, s.History.Size(), "a rejected connection records no history")

	errs := s.Connections.Errors()
	require.Len(t, errs, 1)
	assert.Equal(t, start+".out->"+b+".in", errs[0].ElementID)
	assert.Equal(t, testTime, errs[0].At)

	// the same attempt succeeds once the first connection is gone
	s.Workflow.RemoveConnection(first)
	require.True(t, s.Connections.StartConnection(start, "out"))
	_, err = s.Connections.CompleteConnection(b, "in")
	require.NoError(t, err)
	assert.Empty(t, s.Connections.Errors())
}

func TestConnections_Validate(t *testing.T) {
	s := newSession(t)
	start := addNode(t, s, node.Start, 0, 0)
	svc := addNode(t, s, node.Service, 200, 0)
	merge := addNode(t, s, node.Merge, 400, 0)
	connect(t, s, start, svc)

	tests := []struct {
		name      string
		give      workflow.Connection
		wantRules []string
	}{
		{name: "valid", give: w.Conn("", svc, merge)},
		{name: "service retry loop", give: w.Link("", svc, "error", svc, "in")},
		{name: "missing both ends", give: w.Conn("", "x", "y"), wantRules: []string{"missing-source", "missing-target"}},
		{name: "unknown ports", give: w.Link("", svc, "done", merge, "input"), wantRules: []string{"unknown-port", "unknown-port"}},
		{name: "error port to merge", give: w.Link("", svc, "error", merge, "in"), wantRules: []string{"incompatible-ports"}},
		{name: "duplicate with cardinality", give: w.Conn("", start, svc), wantRules: []string{"duplicate", "max-outputs"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := s.Connections.Validate(tt.give, "")

			var rules []string
			for _, e := range res.Errors {
				rules = append(rules, e.Rule)
			}
			assert.Equal(t, tt.wantRules, rules)
			assert.Equal(t, len(tt.wantRules) == 0, res.Valid)
			if res.Valid {
				assert.NoError(t, res.Err())
			}
		})
	}
	assert.Equal(t, 1, s.Workflow.Stats().TotalConnections, "validation does not change the graph")
}

func TestConnections_Reconnect(t *testing.T) {
	s := newSession(t)
	start := addNode(t, s, node.Start, 0, 0)
	a := addNode(t, s, node.Task, 200, 0)
	b := addNode(t, s, node.Task, 200, 200)
	id := connect(t, s, start, a)

	err := s.Connections.Reconnect("conn_99", Endpoints{ToNodeID: b})
	assert.True(t, errors.Is(err, ErrConnectionNotFound))

	// connecting a start node to itself is rejected and nothing changes
	size := s.History.Size()
	err = s.Connections.Reconnect(id, Endpoints{ToNodeID: start, ToPort: "out"})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, size, s.History.Size())
	c, _ := s.Workflow.Connection(id)
	assert.Equal(t, a, c.ToNodeID)
	require.Len(t, s.Connections.Errors(), 2)
	assert.Equal(t, id, s.Connections.Errors()[0].ElementID)

	// the connection does not count against its own cardinality
	err = s.Connections.Reconnect(id, Endpoints{ToNodeID: b})
	require.NoError(t, err)
	c, _ = s.Workflow.Connection(id)
	assert.Equal(t, b, c.ToNodeID)
	assert.Equal(t, start, c.FromNodeID)
	assert.Empty(t, s.Connections.Errors())
	assert.Equal(t, "Reconnect connection", s.History.Entries()[s.History.Cursor()].Label)

	s.Workflow.Undo()
	c, _ = s.Workflow.Connection(id)
	assert.Equal(t, a, c.ToNodeID)
}

func TestConnections_Paths(t *testing.T) {
	tests := []struct {
		mode route.Mode
		want string
	}{
		{mode: route.Straight, want: "M 150 30 L 300 30"},
		{mode: route.Bezier, want: "M 150 30 C 225 30, 225 30, 300 30"},
		{mode: route.Orthogonal, want: "M 150 30 L 225 30 L 225 30 L 300 30"},
	}
	for _, tt := range tests {
		t.Run(tt.mode.String(), func(t *testing.T) {
			s := newSession(t)
			a := addNode(t, s, node.Task, 0, 0)
			b := addNode(t, s, node.Task, 300, 0)
			id := connect(t, s, a, b)

			s.Connections.SetPathMode(tt.mode)
			assert.Equal(t, tt.mode, s.Connections.PathMode())

			p, ok := s.Connections.CalculateConnectionPath(id)
			require.True(t, ok)
			assert.Equal(t, tt.want, p.D)
		})
	}
}

func TestConnections_PortPosition(t *testing.T) {
	d := testDialect
	d.Nodes = map[node.Type]node.Spec{}
	for k, v := range testDialect.Nodes {
		d.Nodes[k] = v
	}
	task := d.Nodes[node.Task]
	task.Outputs = []node.Port{{Name: "out", Anchor: &geom.Point{X: 50, Y: 50}}}
	d.Nodes[node.Task] = task

	s := newSession(t, WithDialect(d))
	id := addNode(t, s, node.Task, 100, 100)

	tests := []struct {
		name   string
		port   string
		want   geom.Point
		wantOK bool
	}{
		{name: "input on left edge", port: "in", want: geom.Point{X: 100, Y: 125}, wantOK: true},
		{name: "anchored output", port: "out", want: geom.Point{X: 150, Y: 150}, wantOK: true},
		{name: "unknown port", port: "error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := s.Connections.PortPosition(id, tt.port)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestConnections_FindConnectionPath(t *testing.T) {
	s := newSession(t)
	a := addNode(t, s, node.Task, 0, 0)
	b := addNode(t, s, node.Task, 200, 0)
	c := addNode(t, s, node.Task, 400, 0)
	d := addNode(t, s, node.Task, 600, 0)
	connect(t, s, a, b)
	connect(t, s, b, c)
	connect(t, s, a, c)
	connect(t, s, c, a)

	tests := []struct {
		name     string
		from, to string
		want     []string
		wantOK   bool
	}{
		{name: "first path in insertion order", from: a, to: c, want: []string{a, b, c}, wantOK: true},
		{name: "through a cycle", from: c, to: b, want: []string{c, a, b}, wantOK: true},
		{name: "same node", from: a, to: a, want: []string{a}, wantOK: true},
		{name: "unreachable", from: a, to: d},
		{name: "missing node", from: a, to: "node_99"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := s.Connections.FindConnectionPath(tt.from, tt.to)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestConnections_Templates(t *testing.T) {
	s := newSession(t)
	svc := addNode(t, s, node.Service, 0, 0)
	end := addNode(t, s, node.End, 300, 0)

	id, err := s.Connections.CreateFromTemplate("error", svc, "error", end, "in")
	require.NoError(t, err)
	c, _ := s.Workflow.Connection(id)
	assert.Equal(t, workflow.ErrorConnection, c.Type)
	assert.Equal(t, workflow.Style{"stroke": "#dc2626", "dasharray": "5,5"}, c.Style)

	_, err = s.Connections.CreateFromTemplate("retry", svc, "out", end, "in")
	assert.True(t, errors.Is(err, ErrTemplateNotFound))

	assert.Error(t, s.Connections.RegisterTemplate(dialect.ConnectionTemplate{}))
	require.NoError(t, s.Connections.RegisterTemplate(dialect.ConnectionTemplate{ID: "retry", Type: workflow.ConditionalConnection, Label: "retry"}))
	tmpl, ok := s.Connections.Template("retry")
	require.True(t, ok)
	assert.Equal(t, "retry", tmpl.Label)
	assert.Len(t, s.Connections.Templates(), 5)
}

func TestConnections_Setters(t *testing.T) {
	s := newSession(t)
	a := addNode(t, s, node.Task, 0, 0)
	b := addNode(t, s, node.Task, 200, 0)
	id := connect(t, s, a, b)

	require.True(t, s.Connections.SetLabel(id, "approved"))
	require.True(t, s.Connections.SetType(id, workflow.SuccessConnection))
	require.True(t, s.Connections.SetAnimated(id, true))
	require.True(t, s.Connections.SetStyle(id, workflow.Style{"stroke": "green"}))
	assert.False(t, s.Connections.SetLabel("conn_99", "x"))

	c, _ := s.Workflow.Connection(id)
	assert.Equal(t, workflow.Connection{
		ID:         id,
		FromNodeID: a,
		FromPort:   "out",
		ToNodeID:   b,
		ToPort:     "in",
		Type:       workflow.SuccessConnection,
		Label:      "approved",
		Style:      workflow.Style{"stroke": "green"},
		Animated:   true,
	}, c)
}
