package recommend

import (
	"fmt"

	"github.com/google/cel-go/cel"
)

// Rule appends its recommendations when the CEL condition When holds.
type Rule struct {
	// ID names the rule in logs.
	ID string `yaml:"id"`
	// When must evaluate to a boolean over the Facts variables.
	When string `yaml:"when"`
	// Then lists recommendation strings in presentation order.
	Then []string `yaml:"then"`

	program cel.Program
}

// Init compiles When against env. The rule cannot be evaluated before Init succeeds.
func (r *Rule) Init(env *cel.Env) error {
	ast, iss := env.Parse(r.When)
	if iss.Err() != nil {
		return fmt.Errorf("rule %s: %w", r.ID, iss.Err())
	}

	checked, iss := env.Check(ast)
	if iss.Err() != nil {
		return fmt.Errorf("rule %s: %w", r.ID, iss.Err())
	}
	if !checked.OutputType().IsExactType(cel.BoolType) {
		return fmt.Errorf("rule %s: condition must be boolean, got %s", r.ID, checked.OutputType())
	}

	var err error
	r.program, err = env.Program(checked)
	if err != nil {
		return fmt.Errorf("rule %s: %w", r.ID, err)
	}
	return nil
}

// Eval reports whether the rule fires for facts.
func (r *Rule) Eval(facts Facts) (bool, error) {
	if r.program == nil {
		return false, fmt.Errorf("rule %s: not initialized", r.ID)
	}
	result, _, err := r.program.Eval(facts.activation())
	if err != nil {
		return false, fmt.Errorf("rule %s: %w", r.ID, err)
	}
	matched, ok := result.Value().(bool)
	if !ok {
		return false, fmt.Errorf("rule %s: non-boolean result %v", r.ID, result.Value())
	}
	return matched, nil
}
