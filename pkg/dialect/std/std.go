// Package std contains the standard canvas dialect.
// This dialect is for BPMN-style process diagrams.
package std

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"

	"github.com/common-fate/canvas/pkg/dialect"
	"github.com/common-fate/canvas/pkg/geom"
	"github.com/common-fate/canvas/pkg/jsoncel"
	"github.com/common-fate/canvas/pkg/node"
	"github.com/common-fate/canvas/pkg/workflow"
)

var (
	in      = []node.Port{{Name: "in"}}
	out     = []node.Port{{Name: "out"}}
	round   = geom.Size{Width: 60, Height: 60}
	box     = geom.Size{Width: 150, Height: 60}
	diamond = geom.Size{Width: 100, Height: 80}
)

var Dialect = dialect.Dialect{
	Nodes: map[node.Type]node.Spec{
		node.Start: {
			Type: node.Start, Category: node.Control, Label: "Start",
			Outputs: out, DefaultSize: round,
			MinOutputs: 1, MaxOutputs: 1,
		},
		node.End: {
			Type: node.End, Category: node.Control, Label: "End",
			Inputs: in, DefaultSize: round,
			MinInputs: 1,
		},
		node.Task: {
			Type: node.Task, Category: node.Activity, Label: "Task",
			Inputs: in, Outputs: out, DefaultSize: box,
			Schema: &jsoncel.Schema{
				Type: jsoncel.Object,
				Properties: map[string]*jsoncel.Schema{
					"assignee":    {Type: jsoncel.String},
					"description": {Type: jsoncel.String},
					"priority":    {Type: jsoncel.String, Enum: []any{"low", "normal", "high"}, Default: "normal"},
				},
			},
		},
		node.Decision: {
			Type: node.Decision, Category: node.Gateway, Label: "Decision",
			Inputs: in, Outputs: []node.Port{{Name: "true"}, {Name: "false"}}, DefaultSize: diamond,
			MinInputs: 1, MinOutputs: 1,
			Schema: &jsoncel.Schema{
				Type:     jsoncel.Object,
				Required: []string{"condition"},
				Properties: map[string]*jsoncel.Schema{
					"condition": {Type: jsoncel.String, Default: ""},
				},
			},
			Check: checkDecision,
		},
		node.Parallel: {
			Type: node.Parallel, Category: node.Gateway, Label: "Parallel",
			Inputs: in, Outputs: out, DefaultSize: diamond,
			MinOutputs: 2,
		},
		node.Merge: {
			Type: node.Merge, Category: node.Gateway, Label: "Merge",
			Inputs: in, Outputs: out, DefaultSize: diamond,
			MinInputs: 2,
		},
		node.Timer: {
			Type: node.Timer, Category: node.Event, Label: "Timer",
			Inputs: in, Outputs: out, DefaultSize: round,
			Schema: &jsoncel.Schema{
				Type: jsoncel.Object,
				Properties: map[string]*jsoncel.Schema{
					"duration": {Type: jsoncel.String, Default: "5m"},
				},
			},
			Check: checkTimer,
		},
		node.Service: {
			Type: node.Service, Category: node.Activity, Label: "Service call",
			Inputs: in, Outputs: []node.Port{{Name: "out"}, {Name: "error"}}, DefaultSize: box,
			// a service may loop back onto itself to retry
			AllowSelfLoop: true,
			Schema: &jsoncel.Schema{
				Type:     jsoncel.Object,
				Required: []string{"url"},
				Properties: map[string]*jsoncel.Schema{
					"url":     {Type: jsoncel.String, Default: ""},
					"method":  {Type: jsoncel.String, Enum: []any{"GET", "POST", "PUT", "PATCH", "DELETE"}, Default: "GET"},
					"timeout": {Type: jsoncel.Number, Default: 30.0},
					"headers": {Type: jsoncel.Object, AdditionalProperties: jsoncel.TrueSchema},
				},
			},
			Rules: []node.Rule{
				{Name: "positive-timeout", Expr: `props.timeout > 0.0`, Message: "timeout must be greater than zero"},
			},
			Check: checkService,
		},
		node.Script: {
			Type: node.Script, Category: node.Activity, Label: "Script",
			Inputs: in, Outputs: out, DefaultSize: box,
			Schema: &jsoncel.Schema{
				Type:     jsoncel.Object,
				Required: []string{"code"},
				Properties: map[string]*jsoncel.Schema{
					"language": {Type: jsoncel.String, Enum: []any{"javascript", "python"}, Default: "javascript"},
					"code":     {Type: jsoncel.String, Default: ""},
				},
			},
		},
		node.Subprocess: {
			Type: node.Subprocess, Category: node.Activity, Label: "Subprocess",
			Inputs: in, Outputs: out, DefaultSize: box,
			Schema: &jsoncel.Schema{
				Type:     jsoncel.Object,
				Required: []string{"workflowId"},
				Properties: map[string]*jsoncel.Schema{
					"workflowId": {Type: jsoncel.String, Default: ""},
				},
			},
		},
		node.Group: {
			Type: node.Group, Category: node.Container, Label: "Group",
			DefaultSize: geom.Size{Width: 300, Height: 200},
		},
	},
	Rules: []dialect.Rule{
		{From: dialect.Wildcard, FromPort: "out", To: dialect.Wildcard, ToPort: "in"},
		{From: "decision", FromPort: dialect.Wildcard, To: dialect.Wildcard, ToPort: "in"},
		// failed service calls can only be handled, retried or end the workflow
		{From: "service", FromPort: "error", To: "task", ToPort: "in"},
		{From: "service", FromPort: "error", To: "service", ToPort: "in"},
		{From: "service", FromPort: "error", To: "end", ToPort: "in"},
	},
	Templates: []dialect.Template{
		{ID: "http-get", Name: "HTTP GET", Type: node.Service, Properties: map[string]any{"method": "GET"}},
		{ID: "http-post", Name: "HTTP POST", Type: node.Service, Properties: map[string]any{"method": "POST"}},
		{ID: "approval", Name: "Approval", Description: "Wait for a manager to approve", Type: node.Task,
			Properties: map[string]any{"assignee": "manager", "priority": "high"}},
		{ID: "delay-1h", Name: "Wait one hour", Type: node.Timer, Properties: map[string]any{"duration": "1h"}},
	},
	ConnectionTemplates: []dialect.ConnectionTemplate{
		{ID: "default", Name: "Default", Type: workflow.DefaultConnection},
		{ID: "success", Name: "Success", Type: workflow.SuccessConnection, Style: workflow.Style{"stroke": "#16a34a"}},
		{ID: "error", Name: "Error", Type: workflow.ErrorConnection, Style: workflow.Style{"stroke": "#dc2626", "dasharray": "5,5"}},
		{ID: "conditional", Name: "Conditional", Type: workflow.ConditionalConnection, Label: "if", Animated: true},
	},
	Themes: map[string]dialect.Theme{
		"light": {
			Nodes: map[node.Category]workflow.Style{
				node.Control:   {"fill": "#ffffff", "stroke": "#0f172a"},
				node.Activity:  {"fill": "#eff6ff", "stroke": "#2563eb"},
				node.Gateway:   {"fill": "#fefce8", "stroke": "#ca8a04"},
				node.Event:     {"fill": "#f0fdf4", "stroke": "#16a34a"},
				node.Container: {"fill": "none", "stroke": "#94a3b8"},
			},
			Connections: workflow.Style{"stroke": "#334155"},
		},
		"dark": {
			Nodes: map[node.Category]workflow.Style{
				node.Control:   {"fill": "#0f172a", "stroke": "#e2e8f0"},
				node.Activity:  {"fill": "#1e293b", "stroke": "#60a5fa"},
				node.Gateway:   {"fill": "#292524", "stroke": "#facc15"},
				node.Event:     {"fill": "#052e16", "stroke": "#4ade80"},
				node.Container: {"fill": "none", "stroke": "#475569"},
			},
			Connections: workflow.Style{"stroke": "#cbd5e1"},
		},
	},
}

type DecisionProperties struct {
	Condition string `mapstructure:"condition"`
}

type TimerProperties struct {
	Duration string `mapstructure:"duration"`
}

type ServiceProperties struct {
	URL     string  `mapstructure:"url"`
	Method  string  `mapstructure:"method"`
	Timeout float64 `mapstructure:"timeout"`
}

func checkDecision(props map[string]any) error {
	var p DecisionProperties
	err := mapstructure.Decode(props, &p)
	if err != nil {
		return err
	}
	if p.Condition != "" && strings.TrimSpace(p.Condition) == "" {
		return fmt.Errorf("condition must not be blank")
	}
	if strings.Count(p.Condition, "(") != strings.Count(p.Condition, ")") {
		return fmt.Errorf("condition %q has unbalanced parentheses", p.Condition)
	}
	return nil
}

func checkTimer(props map[string]any) error {
	var p TimerProperties
	err := mapstructure.Decode(props, &p)
	if err != nil {
		return err
	}
	d, err := time.ParseDuration(p.Duration)
	if err != nil {
		return fmt.Errorf("invalid duration %q", p.Duration)
	}
	if d <= 0 {
		return fmt.Errorf("duration must be positive: got %s", d)
	}
	return nil
}

func checkService(props map[string]any) error {
	var p ServiceProperties
	err := mapstructure.Decode(props, &p)
	if err != nil {
		return err
	}
	// an empty url is reported as a missing required property
	if p.URL == "" {
		return nil
	}
	u, err := url.Parse(p.URL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("url %q must be absolute", p.URL)
	}
	return nil
}
