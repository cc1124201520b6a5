// Package noderr contains an error definition for
// dialect files which fail to load, carrying the YAML
// node the error was found at.
package noderr

import (
	"errors"

	"github.com/goccy/go-yaml"
	"github.com/goccy/go-yaml/ast"
)

type NodeError struct {
	Node ast.Node
	Err  error
}

// Path returns the YAML path of the offending node, e.g. "$.templates[0].type".
func (ne NodeError) Path() string {
	if ne.Node == nil {
		return ""
	}
	return ne.Node.GetPath()
}

// PrettyPrint the error along with the YAML node.
func (ne NodeError) PrettyPrint(yml []byte) (string, error) {
	path, err := yaml.PathString(ne.Path())
	if err != nil {
		return "", err
	}
	source, err := path.AnnotateSource(yml, true)
	if err != nil {
		return "", err
	}
	return string(source), nil
}

func (ne NodeError) Error() string {
	return ne.Err.Error()
}

func (ne NodeError) Unwrap() error {
	return ne.Err
}

// Wrap attaches node to err. Errors which already
// carry a node keep the innermost one.
func Wrap(err error, node ast.Node) error {
	if err == nil {
		return nil
	}
	var ne NodeError
	if errors.As(err, &ne) {
		return err
	}
	return NodeError{Err: err, Node: node}
}
