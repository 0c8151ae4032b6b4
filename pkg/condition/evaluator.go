// Package condition evaluates boolean branch expressions against a session's
// variable snapshot. Expressions are compiled with the snapshot as the entire
// environment, so they can reference declared variables and integer literals
// with comparison, arithmetic and boolean operators, and nothing else.
package condition

import (
	"fmt"
	"strings"

	"github.com/expr-lang/expr"
)

// Evaluate runs a boolean expression against the given variables.
// An empty expression, an unknown variable reference, a malformed expression
// or a non-boolean result all return an error; callers are expected to treat
// the branch as false and report the error.
func Evaluate(expression string, vars map[string]int) (bool, error) {
	expression = strings.TrimSpace(expression)
	if expression == "" {
		return false, fmt.Errorf("empty condition expression")
	}

	env := make(map[string]interface{}, len(vars))
	for k, v := range vars {
		env[k] = v
	}

	program, err := expr.Compile(expression, expr.Env(env), expr.AsBool())
	if err != nil {
		return false, fmt.Errorf("compile condition %q: %w", expression, err)
	}

	output, err := expr.Run(program, env)
	if err != nil {
		return false, fmt.Errorf("eval condition %q: %w", expression, err)
	}

	result, ok := output.(bool)
	if !ok {
		return false, fmt.Errorf("condition %q did not return bool (got %T)", expression, output)
	}
	return result, nil
}
