package canvas

import (
	"fmt"

	"github.com/common-fate/canvas/pkg/dialect"
	"github.com/common-fate/canvas/pkg/jsoncel"
	"github.com/common-fate/canvas/pkg/node"
	"github.com/google/cel-go/cel"
	"github.com/pkg/errors"
)

// ruleVariable is the name node properties are exposed as in rule expressions.
const ruleVariable = "props"

// Compiler type-checks the CEL rules of every node type in a dialect
// against that type's property schema.
type Compiler struct {
	Dialect dialect.Dialect
}

// program is a compiled node rule.
type program struct {
	rule node.Rule
	prg  cel.Program
}

// Compile the dialect's node rules into programs, keyed by node type.
func (c *Compiler) Compile() (map[node.Type][]program, error) {
	out := map[node.Type][]program{}

	for t, spec := range c.Dialect.Nodes {
		if len(spec.Rules) == 0 {
			continue
		}

		// set up the type for the 'props' object,
		// based on the node type's property schema.
		p := jsoncel.NewProvider(ruleVariable, spec.Schema)

		env, err := cel.NewEnv(
			cel.CustomTypeProvider(p),
			cel.Variable(ruleVariable, cel.ObjectType(ruleVariable)),
		)
		if err != nil {
			return nil, err
		}

		for _, r := range spec.Rules {
			prg, err := compileRule(env, r)
			if err != nil {
				return nil, errors.Wrapf(err, "compiling rule %s for node type %s", ruleName(r), t)
			}
			out[t] = append(out[t], program{rule: r, prg: prg})
		}
	}

	return out, nil
}

func compileRule(env *cel.Env, r node.Rule) (cel.Program, error) {
	ast, issues := env.Compile(r.Expr)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("CEL type-check error: %s", issues.Err())
	}
	if ast.OutputType() != cel.BoolType {
		return nil, fmt.Errorf("CEL expression must return a boolean (returned %s instead)", ast.OutputType())
	}

	prg, err := env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("CEL program construction error: %s", err)
	}
	return prg, nil
}

func ruleName(r node.Rule) string {
	if r.Name != "" {
		return r.Name
	}
	return r.Expr
}
