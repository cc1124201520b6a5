// Package workflow contains the data model of a workflow graph:
// nodes, connections, workflow info and canvas state, and the
// document format used to import and export a graph.
package workflow

import (
	"time"

	"github.com/common-fate/canvas/pkg/geom"
	"github.com/common-fate/canvas/pkg/node"
)

// Style is a free-form set of visual attributes, e.g. "fill" -> "#fff".
type Style map[string]string

func (s Style) Clone() Style {
	if s == nil {
		return nil
	}
	out := make(Style, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}

type Node struct {
	// ID is unique within a session, e.g. "node_4".
	ID         string         `json:"id"`
	Type       node.Type      `json:"type"`
	Name       string         `json:"name"`
	Position   geom.Point     `json:"position"`
	Size       geom.Size      `json:"size"`
	Properties map[string]any `json:"properties,omitempty"`
	Style      Style          `json:"style,omitempty"`

	// ParentID is the group node this node belongs to.
	ParentID string `json:"parentId,omitempty"`
	// Children are the ordered member ids of a group node.
	Children  []string `json:"children,omitempty"`
	Collapsed bool     `json:"collapsed,omitempty"`
}

// Bounds returns the node's bounding box on the canvas.
func (n Node) Bounds() geom.Rect {
	return geom.RectAt(n.Position, n.Size)
}

// Clone returns a deep copy of the node.
func (n Node) Clone() Node {
	n.Properties = CloneProperties(n.Properties)
	n.Style = n.Style.Clone()
	if n.Children != nil {
		n.Children = append([]string{}, n.Children...)
	}
	return n
}

type ConnectionType string

const (
	DefaultConnection     ConnectionType = "default"
	SuccessConnection     ConnectionType = "success"
	ErrorConnection       ConnectionType = "error"
	ConditionalConnection ConnectionType = "conditional"
)

type Connection struct {
	ID         string         `json:"id"`
	FromNodeID string         `json:"fromNodeId"`
	FromPort   string         `json:"fromPort"`
	ToNodeID   string         `json:"toNodeId"`
	ToPort     string         `json:"toPort"`
	Type       ConnectionType `json:"type,omitempty"`
	Label      string         `json:"label,omitempty"`
	Style      Style          `json:"style,omitempty"`
	Animated   bool           `json:"animated,omitempty"`
}

// Touches reports whether the connection has nodeID as either endpoint.
func (c Connection) Touches(nodeID string) bool {
	return c.FromNodeID == nodeID || c.ToNodeID == nodeID
}

// SameEndpoints reports whether c and o link the same ports.
func (c Connection) SameEndpoints(o Connection) bool {
	return c.FromNodeID == o.FromNodeID && c.FromPort == o.FromPort &&
		c.ToNodeID == o.ToNodeID && c.ToPort == o.ToPort
}

func (c Connection) Clone() Connection {
	c.Style = c.Style.Clone()
	return c
}

type Info struct {
	Name        string `json:"name"`
	Version     string `json:"version"`
	Author      string `json:"author"`
	Description string `json:"description,omitempty"`
}

type CanvasState struct {
	Pan        geom.Point `json:"pan"`
	Zoom       float64    `json:"zoom"`
	GridSize   float64    `json:"gridSize"`
	ShowGrid   bool       `json:"showGrid"`
	SnapToGrid bool       `json:"snapToGrid"`
}

// DefaultInfo is used when a document does not carry workflow info.
func DefaultInfo() Info {
	return Info{Name: "Untitled workflow", Version: "1.0.0"}
}

// DefaultCanvasState is used when a document does not carry canvas state.
func DefaultCanvasState() CanvasState {
	return CanvasState{Zoom: 1, GridSize: 20, ShowGrid: true}
}

// Document is the import/export format exchanged with the persistence API.
// Info and CanvasState are optional on import.
type Document struct {
	Nodes       []Node       `json:"nodes"`
	Connections []Connection `json:"connections"`
	Info        *Info        `json:"info,omitempty"`
	CanvasState *CanvasState `json:"canvasState,omitempty"`
	ExportedAt  time.Time    `json:"exportedAt"`
}

func CloneNodes(nodes []Node) []Node {
	out := make([]Node, len(nodes))
	for i, n := range nodes {
		out[i] = n.Clone()
	}
	return out
}

func CloneConnections(conns []Connection) []Connection {
	out := make([]Connection, len(conns))
	for i, c := range conns {
		out[i] = c.Clone()
	}
	return out
}

// CloneProperties deep-copies nested maps and slices
// so that snapshots never share mutable state.
func CloneProperties(props map[string]any) map[string]any {
	if props == nil {
		return nil
	}
	out := make(map[string]any, len(props))
	for k, v := range props {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return CloneProperties(t)
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = cloneValue(e)
		}
		return out
	case []string:
		return append([]string{}, t...)
	}
	return v
}

// MergeProperties layers each map over the previous one, shallowly.
func MergeProperties(layers ...map[string]any) map[string]any {
	out := map[string]any{}
	for _, layer := range layers {
		for k, v := range layer {
			out[k] = cloneValue(v)
		}
	}
	return out
}

// NormalizeProperties converts integers to float64 so that properties
// built in Go or decoded from YAML have the same shape as JSON-decoded ones.
func NormalizeProperties(props map[string]any) map[string]any {
	if props == nil {
		return nil
	}
	out := make(map[string]any, len(props))
	for k, v := range props {
		out[k] = normalizeValue(v)
	}
	return out
}

func normalizeValue(v any) any {
	switch t := v.(type) {
	case int:
		return float64(t)
	case int32:
		return float64(t)
	case int64:
		return float64(t)
	case uint64:
		return float64(t)
	case float32:
		return float64(t)
	case map[string]any:
		return NormalizeProperties(t)
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = normalizeValue(e)
		}
		return out
	}
	return v
}
