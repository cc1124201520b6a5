// Package canvas is the graph-editing engine of a visual workflow designer.
//
// An editor Session owns one workflow graph and exposes it through five
// stores. Mutations made through any store are funnelled into the
// WorkflowStore, which records one history entry per successful
// mutation. Undo and redo replace the whole editor state with a
// snapshot taken from the HistoryStore.
//
// A Session is not safe for concurrent use.
package canvas

import (
	"time"

	"github.com/common-fate/canvas/pkg/dialect"
	"github.com/common-fate/canvas/pkg/dialect/std"
	"github.com/common-fate/canvas/pkg/history"
	"github.com/common-fate/canvas/pkg/node"
	"github.com/common-fate/canvas/pkg/workflow"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// DefaultMaxErrors bounds the validation error logs of a session.
const DefaultMaxErrors = 100

type Session struct {
	Workflow    *WorkflowStore
	Nodes       *NodeStore
	Connections *ConnectionStore
	Selection   *SelectionStore
	History     *HistoryStore

	dialect  dialect.Dialect
	programs map[node.Type][]program
	log      *zap.SugaredLogger
	now      func() time.Time

	maxHistory int
	maxErrors  int
}

type Option func(*Session)

// WithDialect sets the node catalog and connection rules.
// Sessions use the standard dialect by default.
func WithDialect(d dialect.Dialect) Option {
	return func(s *Session) { s.dialect = d }
}

func WithLogger(log *zap.SugaredLogger) Option {
	return func(s *Session) { s.log = log }
}

// WithMaxHistory bounds the number of undo entries.
func WithMaxHistory(n int) Option {
	return func(s *Session) { s.maxHistory = n }
}

func WithClock(now func() time.Time) Option {
	return func(s *Session) { s.now = now }
}

// WithMaxErrors bounds the node and connection error logs.
func WithMaxErrors(n int) Option {
	return func(s *Session) { s.maxErrors = n }
}

// New creates an editor session with an empty workflow.
// It returns an error if the dialect is invalid or one of its
// node rules does not compile.
func New(opts ...Option) (*Session, error) {
	s := &Session{
		dialect:    std.Dialect,
		log:        zap.NewNop().Sugar(),
		now:        time.Now,
		maxHistory: history.DefaultMaxSize,
		maxErrors:  DefaultMaxErrors,
	}
	for _, o := range opts {
		o(s)
	}

	err := s.dialect.Validate()
	if err != nil {
		return nil, err
	}

	c := Compiler{Dialect: s.dialect}
	s.programs, err = c.Compile()
	if err != nil {
		return nil, errors.Wrap(err, "compiling dialect")
	}

	s.Workflow = newWorkflowStore(s)
	s.Nodes = newNodeStore(s)
	s.Connections = newConnectionStore(s)
	s.Selection = newSelectionStore(s)
	s.History = newHistoryStore(s)

	// the first entry lets the first mutation be undone
	s.History.reset("Initial state")

	s.log.Debugw("created editor session", "nodeTypes", len(s.dialect.Nodes), "rules", len(s.dialect.Rules))
	return s, nil
}

// Dialect returns the dialect the session was created with.
func (s *Session) Dialect() dialect.Dialect {
	return s.dialect
}

// Snapshot is a full copy of the editor state, as recorded in history.
type Snapshot struct {
	Nodes               []workflow.Node
	Connections         []workflow.Connection
	SelectedNodes       []string
	SelectedConnections []string
	Canvas              workflow.CanvasState
}

// Clone returns a deep copy of the snapshot.
func (s Snapshot) Clone() Snapshot {
	return Snapshot{
		Nodes:               workflow.CloneNodes(s.Nodes),
		Connections:         workflow.CloneConnections(s.Connections),
		SelectedNodes:       append([]string{}, s.SelectedNodes...),
		SelectedConnections: append([]string{}, s.SelectedConnections...),
		Canvas:              s.Canvas,
	}
}

func (s *Session) snapshot() Snapshot {
	return Snapshot{
		Nodes:               s.Workflow.nodes,
		Connections:         s.Workflow.conns,
		SelectedNodes:       s.Selection.nodes,
		SelectedConnections: s.Selection.conns,
		Canvas:              s.Workflow.canvas,
	}.Clone()
}

// restore replaces the editor state with a snapshot.
// Transient gestures are cancelled.
func (s *Session) restore(snap Snapshot) {
	snap = snap.Clone()
	s.Workflow.nodes = snap.Nodes
	s.Workflow.conns = snap.Connections
	s.Workflow.canvas = snap.Canvas
	s.Workflow.touch()

	s.Selection.nodes = snap.SelectedNodes
	s.Selection.conns = snap.SelectedConnections
	s.Selection.CancelSelectionBox()
	s.Selection.prune()
	s.Connections.CancelConnection()

	// validation results may refer to elements which no longer exist
	s.Nodes.pruneResults()
	s.Connections.pruneResults()
}

// forget removes every reference the auxiliary stores hold to
// the deleted elements.
func (s *Session) forget(nodeIDs, connIDs []string) {
	for _, id := range nodeIDs {
		s.Selection.drop(id)
		s.Nodes.clearResult(id)
	}
	for _, id := range connIDs {
		s.Selection.drop(id)
		s.Connections.clearResult(id)
	}
}
