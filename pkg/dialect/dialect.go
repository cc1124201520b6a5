// Package dialect contain definitions for canvas dialects.
// A dialect provides the node type catalog, the connection
// compatibility matrix, and the templates and themes offered
// by the editor palette.
package dialect

import (
	"context"
	"fmt"
	"sort"

	"github.com/common-fate/canvas/pkg/geom"
	"github.com/common-fate/canvas/pkg/node"
	"github.com/common-fate/canvas/pkg/workflow"
)

type contextKey int

const (
	dialectKey contextKey = iota
)

// Wildcard matches any node type or port in a Rule.
const Wildcard = "*"

// Dialect configures the editor with the
// allowed node types and how they may be connected.
type Dialect struct {
	Nodes map[node.Type]node.Spec
	// Rules is the connection compatibility matrix.
	// A connection is allowed if any rule matches it.
	// A dialect with no rules allows every connection.
	Rules               []Rule
	Templates           []Template
	ConnectionTemplates []ConnectionTemplate
	Themes              map[string]Theme
}

// Rule allows connections from a (type, port) pair to another (type, port) pair.
// Each field is a node type name or port name, or Wildcard.
type Rule struct {
	From     string `yaml:"from"`
	FromPort string `yaml:"fromPort"`
	To       string `yaml:"to"`
	ToPort   string `yaml:"toPort"`
}

// Matches reports whether the rule allows the connection.
func (r Rule) Matches(from node.Type, fromPort string, to node.Type, toPort string) bool {
	return match(r.From, from.String()) && match(r.FromPort, fromPort) &&
		match(r.To, to.String()) && match(r.ToPort, toPort)
}

func match(pattern, value string) bool {
	return pattern == Wildcard || pattern == "" || pattern == value
}

// Template is a palette entry for creating a preconfigured node.
type Template struct {
	ID          string
	Name        string
	Description string
	Type        node.Type
	Properties  map[string]any
	Size        *geom.Size
	Style       workflow.Style
}

// ConnectionTemplate is a preset of connection type and styling.
type ConnectionTemplate struct {
	ID       string                  `yaml:"id"`
	Name     string                  `yaml:"name"`
	Type     workflow.ConnectionType `yaml:"type"`
	Label    string                  `yaml:"label"`
	Style    workflow.Style          `yaml:"style"`
	Animated bool                    `yaml:"animated"`
}

// Theme restyles nodes by category, and connections.
type Theme struct {
	Nodes       map[node.Category]workflow.Style `yaml:"nodes"`
	Connections workflow.Style                   `yaml:"connections"`
}

// Context returns a copy of the parent context,
// with the dialect defined.
func Context(parent context.Context, d Dialect) context.Context {
	return context.WithValue(parent, dialectKey, d)
}

// FromContext loads the dialect from context.
// It returns false if the dialect does not exist in the context.
func FromContext(ctx context.Context) (Dialect, bool) {
	d, ok := ctx.Value(dialectKey).(Dialect)
	return d, ok
}

// New creates a new empty dialect.
func New() *Dialect {
	return &Dialect{
		Nodes:  map[node.Type]node.Spec{},
		Themes: map[string]Theme{},
	}
}

// Spec returns the capabilities of a node type.
func (d *Dialect) Spec(t node.Type) (node.Spec, bool) {
	s, ok := d.Nodes[t]
	return s, ok
}

// Compatible reports whether the compatibility matrix allows the connection.
func (d *Dialect) Compatible(from node.Type, fromPort string, to node.Type, toPort string) bool {
	if len(d.Rules) == 0 {
		return true
	}
	for _, r := range d.Rules {
		if r.Matches(from, fromPort, to, toPort) {
			return true
		}
	}
	return false
}

// Categories returns the node categories in use, sorted.
func (d *Dialect) Categories() []node.Category {
	seen := map[node.Category]bool{}
	var out []node.Category
	for _, s := range d.Nodes {
		if !seen[s.Category] {
			seen[s.Category] = true
			out = append(out, s.Category)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func (d *Dialect) Validate() error {
	for t, s := range d.Nodes {
		if t == node.Unknown {
			return fmt.Errorf("dialect error: the unknown node type cannot be registered")
		}
		if s.Type != t {
			return fmt.Errorf("dialect error: node spec registered as %s declares type %s", t, s.Type)
		}
		if err := uniquePorts(t, "input", s.Inputs); err != nil {
			return err
		}
		if err := uniquePorts(t, "output", s.Outputs); err != nil {
			return err
		}
		// ports are addressed by name alone, so a name has one role
		for _, p := range s.Inputs {
			if _, ok := s.Output(p.Name); ok {
				return fmt.Errorf("dialect error: %s uses port name %s for an input and an output", t, p.Name)
			}
		}
		if s.MaxInputs > 0 && s.MaxInputs < s.MinInputs {
			return fmt.Errorf("dialect error: %s allows at most %v inputs but requires %v", t, s.MaxInputs, s.MinInputs)
		}
		if s.MaxOutputs > 0 && s.MaxOutputs < s.MinOutputs {
			return fmt.Errorf("dialect error: %s allows at most %v outputs but requires %v", t, s.MaxOutputs, s.MinOutputs)
		}
	}

	for i, r := range d.Rules {
		for _, name := range []string{r.From, r.To} {
			if name == Wildcard || name == "" {
				continue
			}
			t, err := node.ParseType(name)
			if err != nil {
				return fmt.Errorf("dialect error: rule %v: %s", i, err)
			}
			if _, ok := d.Nodes[t]; !ok {
				return fmt.Errorf("dialect error: rule %v references node type %s which is not in the dialect", i, t)
			}
		}
	}

	ids := map[string]bool{}
	for _, tmpl := range d.Templates {
		if tmpl.ID == "" {
			return fmt.Errorf("dialect error: templates must have an id")
		}
		if ids[tmpl.ID] {
			return fmt.Errorf("dialect error: duplicate template id %s", tmpl.ID)
		}
		ids[tmpl.ID] = true
		if _, ok := d.Nodes[tmpl.Type]; !ok {
			return fmt.Errorf("dialect error: template %s uses node type %s which is not in the dialect", tmpl.ID, tmpl.Type)
		}
	}

	connIDs := map[string]bool{}
	for _, ct := range d.ConnectionTemplates {
		if ct.ID == "" || connIDs[ct.ID] {
			return fmt.Errorf("dialect error: connection template ids must be unique and non-empty: found %q", ct.ID)
		}
		connIDs[ct.ID] = true
	}

	// all good if we get here
	return nil
}

func uniquePorts(t node.Type, kind string, ports []node.Port) error {
	seen := map[string]bool{}
	for _, p := range ports {
		if p.Name == "" {
			return fmt.Errorf("dialect error: %s has an unnamed %s port", t, kind)
		}
		if seen[p.Name] {
			return fmt.Errorf("dialect error: %s declares %s port %s twice", t, kind, p.Name)
		}
		seen[p.Name] = true
	}
	return nil
}

// Extend returns a copy of the dialect with the file's
// rules, templates and themes added. Templates in the file
// replace dialect templates with the same id.
func (d Dialect) Extend(f File) Dialect {
	out := Dialect{
		Nodes:  d.Nodes,
		Rules:  append(append([]Rule{}, d.Rules...), f.Rules...),
		Themes: map[string]Theme{},
	}

	replaced := map[string]bool{}
	for _, t := range f.Templates {
		replaced[t.ID] = true
	}
	for _, t := range d.Templates {
		if !replaced[t.ID] {
			out.Templates = append(out.Templates, t)
		}
	}
	out.Templates = append(out.Templates, f.Templates...)

	replacedConn := map[string]bool{}
	for _, t := range f.ConnectionTemplates {
		replacedConn[t.ID] = true
	}
	for _, t := range d.ConnectionTemplates {
		if !replacedConn[t.ID] {
			out.ConnectionTemplates = append(out.ConnectionTemplates, t)
		}
	}
	out.ConnectionTemplates = append(out.ConnectionTemplates, f.ConnectionTemplates...)

	for name, th := range d.Themes {
		out.Themes[name] = th
	}
	for name, th := range f.Themes {
		out.Themes[name] = th
	}
	return out
}
