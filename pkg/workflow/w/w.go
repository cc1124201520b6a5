// package 'w' contains helper methods for building workflow documents.
// It is used as a convenience method when writing tests for
// the canvas engine.
package w

import (
	"github.com/common-fate/canvas/pkg/geom"
	"github.com/common-fate/canvas/pkg/node"
	"github.com/common-fate/canvas/pkg/workflow"
)

// DefaultSize is the size given to nodes built by this package.
var DefaultSize = geom.Size{Width: 100, Height: 50}

// Node creates a node of the given type at (x, y).
func Node(id string, t node.Type, x, y float64) workflow.Node {
	return workflow.Node{
		ID:       id,
		Type:     t,
		Name:     id,
		Position: geom.Point{X: x, Y: y},
		Size:     DefaultSize,
	}
}

func Start(id string, x, y float64) workflow.Node { return Node(id, node.Start, x, y) }
func End(id string, x, y float64) workflow.Node   { return Node(id, node.End, x, y) }
func Task(id string, x, y float64) workflow.Node  { return Node(id, node.Task, x, y) }

// Conn links the 'out' port of from to the 'in' port of to.
func Conn(id, from, to string) workflow.Connection {
	return Link(id, from, "out", to, "in")
}

// Link creates a connection between two explicit ports.
func Link(id, from, fromPort, to, toPort string) workflow.Connection {
	return workflow.Connection{
		ID:         id,
		FromNodeID: from,
		FromPort:   fromPort,
		ToNodeID:   to,
		ToPort:     toPort,
		Type:       workflow.DefaultConnection,
	}
}

// Doc creates a document from nodes and connections, without info or canvas state.
func Doc(nodes []workflow.Node, conns ...workflow.Connection) workflow.Document {
	if conns == nil {
		conns = []workflow.Connection{}
	}
	return workflow.Document{Nodes: nodes, Connections: conns}
}

// Nodes is a variadic convenience for building a node list.
func Nodes(nodes ...workflow.Node) []workflow.Node {
	return nodes
}

type NodeBuilder struct {
	Name       string
	Properties map[string]any
	Size       *geom.Size
}

// Named returns a builder for nodes with a set name.
//
// Usage:
//
//	w.Named("Approve").Task("node_2", 200, 0)
func Named(name string) *NodeBuilder {
	return &NodeBuilder{Name: name}
}

// With sets the node properties.
func (nb *NodeBuilder) With(props map[string]any) *NodeBuilder {
	nb.Properties = props
	return nb
}

// Sized overrides the default node size.
func (nb *NodeBuilder) Sized(width, height float64) *NodeBuilder {
	nb.Size = &geom.Size{Width: width, Height: height}
	return nb
}

func (nb NodeBuilder) Node(id string, t node.Type, x, y float64) workflow.Node {
	n := Node(id, t, x, y)
	if nb.Name != "" {
		n.Name = nb.Name
	}
	n.Properties = nb.Properties
	if nb.Size != nil {
		n.Size = *nb.Size
	}
	return n
}

func (nb NodeBuilder) Task(id string, x, y float64) workflow.Node {
	return nb.Node(id, node.Task, x, y)
}

func (nb NodeBuilder) Start(id string, x, y float64) workflow.Node {
	return nb.Node(id, node.Start, x, y)
}

func (nb NodeBuilder) End(id string, x, y float64) workflow.Node {
	return nb.Node(id, node.End, x, y)
}
