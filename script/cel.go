package script

import (
	"fmt"

	"github.com/google/cel-go/cel"
)

type celEvaluator struct {
	env *cel.Env
}

// NewCEL returns the cel dialect evaluator.
//
// Expressions are parsed but not type-checked, so any variable name can be
// referenced without a declaration and is resolved when the program runs.
// Referencing a variable that is not bound is an evaluation error.
func NewCEL() Evaluator {
	env, err := cel.NewEnv()
	if err != nil {
		panic(fmt.Sprintf("script: cel environment: %v", err))
	}
	return &celEvaluator{env: env}
}

func (e *celEvaluator) Dialect() Dialect {
	return CEL
}

func (e *celEvaluator) Compile(expr string) (Program, error) {
	ast, issues := e.env.Parse(expr)
	if issues != nil && issues.Err() != nil {
		return nil, &CompileError{Dialect: CEL, Expr: expr, Err: issues.Err()}
	}

	prg, err := e.env.Program(ast)
	if err != nil {
		return nil, &CompileError{Dialect: CEL, Expr: expr, Err: err}
	}

	return &celProgram{src: expr, prg: prg}, nil
}

type celProgram struct {
	src string
	prg cel.Program
}

func (p *celProgram) Eval(vars Vars) (bool, error) {
	if vars == nil {
		vars = Vars{}
	}

	out, _, err := p.prg.Eval(map[string]any(vars))
	if err != nil {
		return false, fmt.Errorf("script: eval cel expression %q: %w", p.src, err)
	}

	b, ok := out.Value().(bool)
	if !ok {
		return false, fmt.Errorf("script: cel expression %q returned %s, want bool", p.src, out.Type().TypeName())
	}

	return b, nil
}

func (p *celProgram) Source() string {
	return p.src
}

func (p *celProgram) Dialect() Dialect {
	return CEL
}
