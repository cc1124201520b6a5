package canvas

import (
	"fmt"

	"github.com/common-fate/canvas/pkg/node"
	"github.com/common-fate/canvas/pkg/workflow"
)

// Report is the result of validating the whole workflow.
type Report struct {
	// Valid is true if no issue has error severity.
	Valid  bool
	Issues []Issue
}

func (r Report) Errors() []Issue {
	return r.filter(Error)
}

func (r Report) Warnings() []Issue {
	return r.filter(Warning)
}

func (r Report) filter(s Severity) []Issue {
	var out []Issue
	for _, i := range r.Issues {
		if i.Severity == s {
			out = append(out, i)
		}
	}
	return out
}

// Validation checks the whole workflow. Problems are reported but
// never corrected. The report is cached until the graph changes.
func (w *WorkflowStore) Validation() Report {
	if w.report != nil && w.reportVersion == w.version {
		return *w.report
	}
	r := w.validate()
	w.report = &r
	w.reportVersion = w.version
	return r
}

func (w *WorkflowStore) validate() Report {
	r := Report{Valid: true}
	add := func(kind Kind, sev Severity, id, code, format string, args ...any) {
		if sev == Error {
			r.Valid = false
		}
		r.Issues = append(r.Issues, Issue{
			Kind:      kind,
			Severity:  sev,
			ElementID: id,
			Code:      code,
			Message:   fmt.Sprintf(format, args...),
		})
	}

	st := w.Stats()
	if !st.HasStartNode {
		add(StructuralInvariantViolation, Error, "", "missing-start", "workflow has no start node")
	}
	if !st.HasEndNode {
		add(StructuralInvariantViolation, Warning, "", "missing-end", "workflow has no end node")
	}

	for _, c := range w.OrphanConnections() {
		add(StructuralInvariantViolation, Error, c.ID, "orphan-connection", "connection references a missing node")
	}

	// rule checks on connections with existing endpoints
	for _, c := range w.conns {
		from, to := w.node(c.FromNodeID), w.node(c.ToNodeID)
		if from == nil || to == nil {
			continue
		}
		fromSpec, _ := w.s.dialect.Spec(from.Type)
		toSpec, _ := w.s.dialect.Spec(to.Type)
		_, fromOK := fromSpec.Output(c.FromPort)
		_, toOK := toSpec.Input(c.ToPort)
		if !fromOK || !toOK {
			add(StructuralInvariantViolation, Error, c.ID, "undeclared-port", "connection uses a port its node does not declare")
			continue
		}
		if c.FromNodeID == c.ToNodeID && !fromSpec.AllowSelfLoop {
			add(RuleViolation, Error, c.ID, "self-loop", "%s nodes cannot connect to themselves", from.Type)
		}
		if !w.s.dialect.Compatible(from.Type, c.FromPort, to.Type, c.ToPort) {
			add(RuleViolation, Error, c.ID, "incompatible-ports", "%s.%s cannot connect to %s.%s", from.Type, c.FromPort, to.Type, c.ToPort)
		}
	}

	for _, n := range w.OrphanNodes() {
		add(StructuralInvariantViolation, Warning, n.ID, "isolated-node", "%s is not connected", n.Name)
	}

	w.validateGroups(add)

	for _, n := range w.nodes {
		spec, _ := w.s.dialect.Spec(n.Type)
		in, out := len(w.Incoming(n.ID)), len(w.Outgoing(n.ID))
		if in < spec.MinInputs {
			add(RuleViolation, Warning, n.ID, "min-inputs", "%s needs at least %d incoming connections", n.Name, spec.MinInputs)
		}
		if out < spec.MinOutputs {
			add(RuleViolation, Warning, n.ID, "min-outputs", "%s needs at least %d outgoing connections", n.Name, spec.MinOutputs)
		}
	}

	cycles, err := w.Cycles()
	if err != nil {
		add(StructuralInvariantViolation, Error, "", "graph", "%s", err)
	}
	for _, cycle := range cycles {
		add(StructuralInvariantViolation, Warning, cycle[0], "cycle", "nodes %v form a loop", cycle)
	}

	if st.HasStartNode {
		var starts []string
		for _, n := range w.nodes {
			if n.Type == node.Start {
				starts = append(starts, n.ID)
			}
		}
		reached, err := w.Reachable(starts...)
		if err != nil {
			add(StructuralInvariantViolation, Error, "", "graph", "%s", err)
		}
		for _, n := range w.nodes {
			if n.Type != node.Group && reached != nil && !reached[n.ID] {
				add(StructuralInvariantViolation, Warning, n.ID, "unreachable", "%s cannot be reached from a start node", n.Name)
			}
		}
	}

	for _, n := range w.nodes {
		res := w.s.Nodes.check(n)
		for _, e := range res.Errors {
			add(RuleViolation, Error, n.ID, e.Rule, "%s", e.Message)
		}
	}

	return r
}

func (w *WorkflowStore) validateGroups(add func(Kind, Severity, string, string, string, ...any)) {
	for _, n := range w.nodes {
		if n.ParentID != "" {
			p := w.node(n.ParentID)
			switch {
			case p == nil:
				add(StructuralInvariantViolation, Error, n.ID, "broken-group", "parent %s does not exist", n.ParentID)
			case p.Type != node.Group:
				add(StructuralInvariantViolation, Error, n.ID, "broken-group", "parent %s is not a group", n.ParentID)
			case indexOf(p.Children, n.ID) < 0:
				add(StructuralInvariantViolation, Error, n.ID, "broken-group", "group %s does not list %s as a member", p.ID, n.ID)
			}
		}
		for _, child := range n.Children {
			c := w.node(child)
			if c == nil {
				add(StructuralInvariantViolation, Error, n.ID, "broken-group", "member %s does not exist", child)
				continue
			}
			if c.ParentID != n.ID {
				add(StructuralInvariantViolation, Error, n.ID, "broken-group", "member %s belongs to %q", child, c.ParentID)
			}
		}
	}
}

// OrphanNodes returns the nodes without any connection.
// Group nodes are never orphans.
func (w *WorkflowStore) OrphanNodes() []workflow.Node {
	connected := map[string]bool{}
	for _, c := range w.conns {
		connected[c.FromNodeID] = true
		connected[c.ToNodeID] = true
	}
	var out []workflow.Node
	for _, n := range w.nodes {
		if n.Type != node.Group && !connected[n.ID] {
			out = append(out, n.Clone())
		}
	}
	return out
}

// OrphanConnections returns the connections referencing a missing node.
func (w *WorkflowStore) OrphanConnections() []workflow.Connection {
	var out []workflow.Connection
	for _, c := range w.conns {
		if w.nodeIndex(c.FromNodeID) < 0 || w.nodeIndex(c.ToNodeID) < 0 {
			out = append(out, c.Clone())
		}
	}
	return out
}
