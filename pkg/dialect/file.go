package dialect

import (
	"context"
	"fmt"
	"sort"

	"github.com/common-fate/canvas/pkg/geom"
	"github.com/common-fate/canvas/pkg/node"
	"github.com/common-fate/canvas/pkg/noderr"
	"github.com/common-fate/canvas/pkg/workflow"
	"github.com/goccy/go-yaml"
	"github.com/goccy/go-yaml/ast"
	"github.com/pkg/errors"
)

// File is a dialect overlay loaded from YAML.
//
// The YAML structure looks like this
//
//	rules:
//	  - from: decision
//	    fromPort: "*"
//	    to: "*"
//	    toPort: in
//	templates:
//	  - id: http-get
//	    name: HTTP GET
//	    type: service
//	    properties:
//	      method: GET
//	connectionTemplates:
//	  - id: failure
//	    type: error
//	themes:
//	  dark:
//	    nodes:
//	      activity: {fill: "#222"}
type File struct {
	Rules               []Rule
	Templates           []Template
	ConnectionTemplates []ConnectionTemplate
	Themes              map[string]Theme
}

func (f *File) UnmarshalYAML(ctx context.Context, b []byte) error {
	// the base dialect is needed to resolve template node types
	d, ok := FromContext(ctx)
	if !ok {
		return errors.New("canvas dialect must be defined in context using canvas.Use()")
	}

	var fields map[string]ast.Node
	err := yaml.Unmarshal(b, &fields)
	if err != nil {
		return err
	}

	if n, ok := fields["rules"]; ok && n != nil {
		if err := yaml.NodeToValue(n, &f.Rules); err != nil {
			return noderr.Wrap(err, n)
		}
	}

	if n, ok := fields["connectionTemplates"]; ok && n != nil {
		if err := yaml.NodeToValue(n, &f.ConnectionTemplates); err != nil {
			return noderr.Wrap(err, n)
		}
	}

	if n, ok := fields["themes"]; ok && n != nil {
		if err := yaml.NodeToValue(n, &f.Themes); err != nil {
			return noderr.Wrap(err, n)
		}
	}

	n, ok := fields["templates"]
	if !ok || n == nil {
		return nil
	}

	// templates are parsed one by one so that errors
	// point at the offending template
	var items []ast.Node
	err = yaml.NodeToValue(n, &items)
	if err != nil {
		return noderr.Wrap(err, n)
	}
	for _, item := range items {
		t, err := parseTemplate(d, item)
		if err != nil {
			return noderr.Wrap(err, item)
		}
		f.Templates = append(f.Templates, t)
	}
	return nil
}

// parseTemplate parses a single entry of the 'templates' list
// and checks its type and properties against the base dialect.
func parseTemplate(d Dialect, item ast.Node) (Template, error) {
	var t Template

	var fields map[string]ast.Node
	err := yaml.NodeToValue(item, &fields)
	if err != nil {
		return t, err
	}

	var raw struct {
		ID          string         `yaml:"id"`
		Name        string         `yaml:"name"`
		Description string         `yaml:"description"`
		Properties  map[string]any `yaml:"properties"`
		Size        *geom.Size     `yaml:"size"`
		Style       workflow.Style `yaml:"style"`
	}
	err = yaml.NodeToValue(item, &raw)
	if err != nil {
		return t, err
	}
	if raw.ID == "" {
		return t, errors.New("template must have an 'id' field")
	}

	typeNode, ok := fields["type"]
	if !ok {
		return t, fmt.Errorf("template %s must have a 'type' field", raw.ID)
	}
	var typeName string
	err = yaml.NodeToValue(typeNode, &typeName)
	if err != nil {
		return t, noderr.Wrap(err, typeNode)
	}
	nt, err := node.ParseType(typeName)
	if err != nil {
		return t, noderr.Wrap(err, typeNode)
	}
	spec, ok := d.Spec(nt)
	if !ok {
		err = fmt.Errorf("node type %s is not available in this dialect", nt)
		return t, noderr.Wrap(err, typeNode)
	}

	props := workflow.NormalizeProperties(raw.Properties)
	if spec.Schema != nil && spec.Schema.AdditionalProperties == nil {
		if unknown := unknownKeys(spec.Schema.Properties, props); len(unknown) > 0 {
			err = fmt.Errorf("template %s sets properties not declared by %s: %v", raw.ID, nt, unknown)
			return t, noderr.Wrap(err, fields["properties"])
		}
	}

	return Template{
		ID:          raw.ID,
		Name:        raw.Name,
		Description: raw.Description,
		Type:        nt,
		Properties:  props,
		Size:        raw.Size,
		Style:       raw.Style,
	}, nil
}

func unknownKeys[V any](declared map[string]V, props map[string]any) []string {
	var out []string
	for k := range props {
		if _, ok := declared[k]; !ok {
			out = append(out, k)
		}
	}
	sort.Strings(out)
	return out
}
