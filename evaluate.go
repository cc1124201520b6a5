package canvas

import (
	"fmt"
)

// eval runs the rule against a node's properties.
// It returns false if the rule does not hold.
func (p program) eval(props map[string]any) (bool, error) {
	// the activation holds the properties both as a nested map
	// and as flattened keys, such as 'props.retry.count'
	in := NewInputMap(ruleVariable, props)
	in.Data[ruleVariable] = props
	if props == nil {
		in.Data[ruleVariable] = map[string]any{}
	}

	val, _, err := p.prg.Eval(in.Data)
	if err != nil {
		return false, err
	}

	ok, isBool := val.Value().(bool)
	if !isBool {
		return false, fmt.Errorf("could not convert CEL to bool: %s", val)
	}
	return ok, nil
}

// InputMap is a map of flattened input keys to their corresponding values,
// e.g.
//
//	'props.retry.count' -> 3
type InputMap struct {
	// The flattened mapping - e.g. 'props.url' -> 'https://example.com'
	Data map[string]any
}

// NewInputMap creates a new input map. The 'key' field is
// the root name of the input - such as 'props'.
func NewInputMap(key string, data map[string]any) *InputMap {
	im := InputMap{Data: map[string]any{}}
	im.build(key, data)
	return &im
}

func (im *InputMap) build(key string, input map[string]any) {
	for k, v := range input {
		childKey := key + "." + k
		im.Data[childKey] = v

		// register the fields of nested objects too
		if child, ok := v.(map[string]any); ok {
			im.build(childKey, child)
		}
	}
}
