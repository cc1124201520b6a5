package canvas

import (
	"io"
	"sort"

	"github.com/common-fate/canvas/pkg/node"
	"github.com/common-fate/canvas/pkg/workflow"
	"github.com/dominikbraun/graph"
	"github.com/dominikbraun/graph/draw"
	"github.com/pkg/errors"
)

func nodeHash(n workflow.Node) string {
	return n.ID
}

var shapes = map[node.Category]string{
	node.Control:   "circle",
	node.Activity:  "box",
	node.Gateway:   "diamond",
	node.Event:     "doublecircle",
	node.Container: "folder",
}

// Graph projects the workflow onto a directed graph keyed by node id.
// Connections whose endpoints do not exist are left out, and parallel
// connections between the same two nodes become one edge.
func (w *WorkflowStore) Graph() (graph.Graph[string, workflow.Node], error) {
	g := graph.New(nodeHash, graph.Directed())

	for _, n := range w.nodes {
		spec, _ := w.s.dialect.Spec(n.Type)
		attrs := []func(*graph.VertexProperties){graph.VertexAttribute("label", n.Name)}
		if shape, ok := shapes[spec.Category]; ok {
			attrs = append(attrs, graph.VertexAttribute("shape", shape))
		}
		err := g.AddVertex(n.Clone(), attrs...)
		if err != nil {
			return nil, errors.Wrapf(err, "adding node %s", n.ID)
		}
	}

	for _, c := range w.conns {
		if w.nodeIndex(c.FromNodeID) < 0 || w.nodeIndex(c.ToNodeID) < 0 {
			continue
		}
		attrs := []func(*graph.EdgeProperties){graph.EdgeAttribute("taillabel", c.FromPort)}
		if c.Label != "" {
			attrs = append(attrs, graph.EdgeAttribute("label", c.Label))
		}
		if c.Type == workflow.ErrorConnection {
			attrs = append(attrs, graph.EdgeAttribute("style", "dashed"))
		}
		err := g.AddEdge(c.FromNodeID, c.ToNodeID, attrs...)
		if err != nil && !errors.Is(err, graph.ErrEdgeAlreadyExists) {
			return nil, errors.Wrapf(err, "adding connection %s", c.ID)
		}
	}
	return g, nil
}

// order returns a less function which sorts node ids in graph order.
func (w *WorkflowStore) order() func(a, b string) bool {
	pos := map[string]int{}
	for i, n := range w.nodes {
		pos[n.ID] = i
	}
	return func(a, b string) bool { return pos[a] < pos[b] }
}

// TopologicalOrder sorts the node ids so that every connection points
// forward. Ties keep graph order. It returns an error if the workflow
// contains a cycle.
func (w *WorkflowStore) TopologicalOrder() ([]string, error) {
	g, err := w.Graph()
	if err != nil {
		return nil, err
	}
	return graph.StableTopologicalSort(g, w.order())
}

// Cycles returns the groups of nodes which are connected in a loop,
// including nodes connected to themselves.
func (w *WorkflowStore) Cycles() ([][]string, error) {
	g, err := w.Graph()
	if err != nil {
		return nil, err
	}
	sccs, err := graph.StronglyConnectedComponents(g)
	if err != nil {
		return nil, err
	}

	selfLoops := map[string]bool{}
	for _, c := range w.conns {
		if c.FromNodeID == c.ToNodeID {
			selfLoops[c.FromNodeID] = true
		}
	}

	less := w.order()
	var out [][]string
	for _, component := range sccs {
		if len(component) == 1 && !selfLoops[component[0]] {
			continue
		}
		sort.Slice(component, func(i, j int) bool { return less(component[i], component[j]) })
		out = append(out, component)
	}
	sort.Slice(out, func(i, j int) bool { return less(out[i][0], out[j][0]) })
	return out, nil
}

// Reachable returns the ids of the nodes reachable from the given
// nodes by following connections, including the nodes themselves.
func (w *WorkflowStore) Reachable(from ...string) (map[string]bool, error) {
	g, err := w.Graph()
	if err != nil {
		return nil, err
	}
	seen := map[string]bool{}
	for _, id := range from {
		if w.nodeIndex(id) < 0 || seen[id] {
			continue
		}
		err = graph.BFS(g, id, func(v string) bool {
			seen[v] = true
			return false
		})
		if err != nil {
			return nil, err
		}
	}
	return seen, nil
}

// ShortestPath returns the node ids on a path with the fewest
// connections between two nodes. It returns false if there is none.
func (w *WorkflowStore) ShortestPath(fromID, toID string) ([]string, bool) {
	if w.nodeIndex(fromID) < 0 || w.nodeIndex(toID) < 0 {
		return nil, false
	}
	g, err := w.Graph()
	if err != nil {
		return nil, false
	}
	path, err := graph.ShortestPath(g, fromID, toID)
	if err != nil {
		return nil, false
	}
	return path, true
}

// issueColors are the fill colors used by HighlightIssues.
var issueColors = map[Severity]string{
	Error:   "#FF9999",
	Warning: "#FFE08A",
}

// HighlightIssues shades the vertices of g which have an issue in the
// report. A node with both errors and warnings is shaded as an error.
func HighlightIssues(g graph.Graph[string, workflow.Node], r Report) error {
	worst := map[string]Severity{}
	for _, i := range r.Issues {
		if sev, ok := worst[i.ElementID]; !ok || i.Severity > sev {
			worst[i.ElementID] = i.Severity
		}
	}

	for id, sev := range worst {
		_, props, err := g.VertexWithProperties(id)
		if errors.Is(err, graph.ErrVertexNotFound) {
			// issues on connections or on the whole workflow
			continue
		}
		if err != nil {
			return err
		}
		props.Attributes["style"] = "filled"
		props.Attributes["fillcolor"] = issueColors[sev]
	}
	return nil
}

// DOT writes the workflow in the Graphviz DOT language.
func (w *WorkflowStore) DOT(out io.Writer) error {
	g, err := w.Graph()
	if err != nil {
		return err
	}
	return draw.DOT(g, out, draw.GraphAttribute("rankdir", "LR"))
}
