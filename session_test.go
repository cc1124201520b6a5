package canvas

import (
	"testing"
	"time"

	"github.com/common-fate/canvas/pkg/dialect"
	"github.com/common-fate/canvas/pkg/geom"
	"github.com/common-fate/canvas/pkg/node"
	"github.com/common-fate/canvas/pkg/workflow/w"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testTime = time.Date(2023, 3, 14, 9, 30, 0, 0, time.UTC)

// newSession creates a session using the standard dialect and a fixed clock.
func newSession(t *testing.T, opts ...Option) *Session {
	t.Helper()
	opts = append([]Option{WithClock(func() time.Time { return testTime })}, opts...)
	s, err := New(opts...)
	require.NoError(t, err)
	return s
}

// addNode adds a node and fails the test on error.
func addNode(t *testing.T, s *Session, nt node.Type, x, y float64) string {
	t.Helper()
	id, err := s.Workflow.AddNode(nt, geom.Point{X: x, Y: y}, nil)
	require.NoError(t, err)
	return id
}

// connect links the 'out' port of from to the 'in' port of to.
func connect(t *testing.T, s *Session, from, to string) string {
	t.Helper()
	id, err := s.Workflow.AddConnection(w.Conn("", from, to))
	require.NoError(t, err)
	return id
}

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		give    dialect.Dialect
		wantErr string
	}{
		{
			name: "ok",
			give: testDialect,
		},
		{
			name: "invalid dialect",
			give: dialect.Dialect{Nodes: map[node.Type]node.Spec{
				node.Task: {Type: node.End},
			}},
			wantErr: "dialect error: node spec registered as task declares type end",
		},
		{
			name: "port name with two roles",
			give: dialect.Dialect{Nodes: map[node.Type]node.Spec{
				node.Task: {Type: node.Task, Inputs: []node.Port{{Name: "io"}}, Outputs: []node.Port{{Name: "io"}}},
			}},
			wantErr: "dialect error: task uses port name io for an input and an output",
		},
		{
			name: "rule does not compile",
			give: dialect.Dialect{Nodes: map[node.Type]node.Spec{
				node.Task: {Type: node.Task, Rules: []node.Rule{{Name: "broken", Expr: "props.retries >"}}},
			}},
			wantErr: "compiling dialect: compiling rule broken for node type task",
		},
		{
			name: "rule does not return a boolean",
			give: dialect.Dialect{Nodes: map[node.Type]node.Spec{
				node.Task: {Type: node.Task, Rules: []node.Rule{{Name: "count", Expr: "1 + 2"}}},
			}},
			wantErr: "compiling dialect: compiling rule count for node type task: CEL expression must return a boolean",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := New(WithDialect(tt.give))
			if tt.wantErr == "" {
				require.NoError(t, err)
				assert.Equal(t, 1, s.History.Size())
				assert.Equal(t, "Initial state", s.History.Entries()[0].Label)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestSession_Independent(t *testing.T) {
	a := newSession(t)
	b := newSession(t)

	addNode(t, a, node.Task, 0, 0)

	assert.Equal(t, 1, a.Workflow.Stats().TotalNodes)
	assert.Equal(t, 0, b.Workflow.Stats().TotalNodes)
	assert.False(t, b.Workflow.Dirty())
}
