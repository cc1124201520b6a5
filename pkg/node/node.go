package node

import (
	"github.com/common-fate/canvas/pkg/geom"
	"github.com/common-fate/canvas/pkg/jsoncel"
	"github.com/pkg/errors"
)

type Type int

const (
	// Unknown is used only in testing and is rejected by the editor.
	Unknown Type = iota
	Start
	End
	Task
	Decision
	Parallel
	Merge
	Timer
	Service
	Script
	Subprocess
	Group
)

var typeNames = map[Type]string{
	Unknown:    "unknown",
	Start:      "start",
	End:        "end",
	Task:       "task",
	Decision:   "decision",
	Parallel:   "parallel",
	Merge:      "merge",
	Timer:      "timer",
	Service:    "service",
	Script:     "script",
	Subprocess: "subprocess",
	Group:      "group",
}

// Types lists every known node type in declaration order.
func Types() []Type {
	return []Type{Start, End, Task, Decision, Parallel, Merge, Timer, Service, Script, Subprocess, Group}
}

func (t Type) String() string {
	if name, ok := typeNames[t]; ok {
		return name
	}
	return "unknown"
}

// ParseType parses a node type name such as "decision".
func ParseType(s string) (Type, error) {
	for t, name := range typeNames {
		if name == s && t != Unknown {
			return t, nil
		}
	}
	return Unknown, errors.Errorf("unknown node type %q", s)
}

func (t Type) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

func (t *Type) UnmarshalText(b []byte) error {
	parsed, err := ParseType(string(b))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

type Category string

const (
	Control   Category = "control"
	Activity  Category = "activity"
	Gateway   Category = "gateway"
	Event     Category = "event"
	Container Category = "container"
)

// Port is a named attachment point on a node.
type Port struct {
	Name string
	// Anchor is an optional position relative to the node's top-left corner.
	// Without it, inputs attach to the middle of the left edge and
	// outputs to the middle of the right edge.
	Anchor *geom.Point
}

// Rule is a CEL expression over the node's properties,
// exposed to the expression as 'props'. It must return a boolean;
// false means the node is invalid and Message is reported.
type Rule struct {
	Name    string
	Expr    string
	Message string
}

// Spec describes the capabilities of a node type.
// A dialect holds one Spec per supported type.
type Spec struct {
	Type     Type
	Category Category
	// Label is the display name used for new nodes, e.g. "Decision".
	Label   string
	Inputs  []Port
	Outputs []Port

	DefaultSize geom.Size
	// Defaults are merged over the schema defaults when a node is created.
	Defaults map[string]any
	Schema   *jsoncel.Schema
	Rules    []Rule

	AllowSelfLoop bool

	// Cardinality limits on connections. A zero Max means unlimited.
	MinInputs  int
	MaxInputs  int
	MinOutputs int
	MaxOutputs int

	// Check runs type-specific structural checks on the node's properties.
	Check func(props map[string]any) error
}

// Input returns the named input port.
func (s Spec) Input(name string) (Port, bool) {
	return findPort(s.Inputs, name)
}

// Output returns the named output port.
func (s Spec) Output(name string) (Port, bool) {
	return findPort(s.Outputs, name)
}

func findPort(ports []Port, name string) (Port, bool) {
	for _, p := range ports {
		if p.Name == name {
			return p, true
		}
	}
	return Port{}, false
}
