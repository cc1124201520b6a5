package canvas

import (
	"context"
	"encoding/json"

	"github.com/common-fate/canvas/pkg/dialect"
	"github.com/common-fate/canvas/pkg/workflow"
	"github.com/goccy/go-yaml"
	"github.com/pkg/errors"
)

// Unmarshal a dialect overlay YAML file and apply it to the dialect.
// The returned dialect has the overlay's rules, templates and themes added.
func Unmarshal(data []byte, d dialect.Dialect) (dialect.Dialect, error) {
	var f dialect.File
	ctx := context.Background()
	ctx = Use(ctx, d)

	err := yaml.UnmarshalContext(ctx, data, &f)
	if err != nil {
		return dialect.Dialect{}, err
	}

	out := d.Extend(f)
	err = out.Validate()
	if err != nil {
		return dialect.Dialect{}, err
	}
	return out, nil
}

// ParseDocument decodes a workflow document written in JSON or YAML.
func ParseDocument(data []byte) (workflow.Document, error) {
	var doc workflow.Document

	// JSON documents are valid YAML, so both go through the same path
	js, err := yaml.YAMLToJSON(data)
	if err != nil {
		return doc, errors.Wrap(err, "parsing workflow document")
	}
	err = json.Unmarshal(js, &doc)
	if err != nil {
		return doc, errors.Wrap(err, "decoding workflow document")
	}
	return doc, nil
}
