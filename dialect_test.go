package canvas

import (
	"github.com/common-fate/canvas/pkg/dialect"
	"github.com/common-fate/canvas/pkg/geom"
	"github.com/common-fate/canvas/pkg/jsoncel"
	"github.com/common-fate/canvas/pkg/node"
)

// testDialect is a canvas dialect used
// for internal tests.
//
// It contains 'start', 'task' and 'end' nodes.
// Tasks have a 'retries' property which must not be negative.
var testDialect = dialect.Dialect{
	Nodes: map[node.Type]node.Spec{
		node.Start: {
			Type: node.Start, Label: "Start", Category: node.Control,
			Outputs: []node.Port{{Name: "out"}}, DefaultSize: geom.Size{Width: 50, Height: 50},
		},
		node.Task: {
			Type: node.Task, Label: "Task", Category: node.Activity,
			Inputs:      []node.Port{{Name: "in"}},
			Outputs:     []node.Port{{Name: "out"}},
			DefaultSize: geom.Size{Width: 100, Height: 50},
			Schema: &jsoncel.Schema{
				Type: jsoncel.Object,
				Properties: map[string]*jsoncel.Schema{
					"retries": {Type: jsoncel.Number, Default: 0.0},
				},
			},
			Rules: []node.Rule{
				{Name: "retries", Expr: "props.retries >= 0.0", Message: "retries must not be negative"},
			},
		},
		node.End: {
			Type: node.End, Label: "End", Category: node.Control,
			Inputs: []node.Port{{Name: "in"}}, DefaultSize: geom.Size{Width: 50, Height: 50},
		},
	},
}
