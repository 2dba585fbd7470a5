package script

import (
	"errors"
	"fmt"
	"strings"
)

// Dialect names an expression language.
type Dialect string

// Supported dialects.
const (
	CEL Dialect = "cel"
	Lua Dialect = "lua"
)

// ErrUnknownDialect is returned when no evaluator is registered for a dialect.
var ErrUnknownDialect = errors.New("script: unknown dialect")

// ParseDialect parses a dialect name, ignoring case and surrounding space.
func ParseDialect(s string) (Dialect, error) {
	d := Dialect(strings.ToLower(strings.TrimSpace(s)))
	switch d {
	case CEL, Lua:
		return d, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownDialect, s)
}

// String implements fmt.Stringer.
func (d Dialect) String() string {
	return string(d)
}

// MarshalText implements encoding.TextMarshaler.
func (d Dialect) MarshalText() ([]byte, error) {
	return []byte(d), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Dialect) UnmarshalText(text []byte) error {
	parsed, err := ParseDialect(string(text))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// Vars are the variables visible to an expression.
type Vars map[string]any

// Program is a compiled expression. Programs are safe for concurrent use.
type Program interface {
	// Eval evaluates the expression and reports its truthiness.
	Eval(vars Vars) (bool, error)
	// Source returns the expression text.
	Source() string
	// Dialect returns the dialect the program was compiled in.
	Dialect() Dialect
}

// Evaluator compiles expressions of one dialect.
type Evaluator interface {
	Dialect() Dialect
	Compile(expr string) (Program, error)
}

// CompileError reports an expression that failed to compile.
type CompileError struct {
	Dialect Dialect
	Expr    string
	Err     error
}

func (e *CompileError) Error() string {
	return fmt.Sprintf("script: compile %s expression %q: %v", e.Dialect, e.Expr, e.Err)
}

func (e *CompileError) Unwrap() error {
	return e.Err
}

// Engines dispatches expressions to the evaluator of their dialect.
type Engines struct {
	evaluators map[Dialect]Evaluator
	def        Dialect
}

// NewEngines returns engines backed by evs. def is used when an expression
// names no dialect and must be one of the registered dialects.
func NewEngines(def Dialect, evs ...Evaluator) (*Engines, error) {
	e := &Engines{evaluators: make(map[Dialect]Evaluator, len(evs)), def: def}
	for _, ev := range evs {
		e.evaluators[ev.Dialect()] = ev
	}
	if _, ok := e.evaluators[def]; !ok {
		return nil, fmt.Errorf("%w: default %q has no evaluator", ErrUnknownDialect, def)
	}
	return e, nil
}

// Default returns engines with the cel and lua dialects, cel being the
// default.
func Default() *Engines {
	e, err := NewEngines(CEL, NewCEL(), NewLua())
	if err != nil {
		panic(err)
	}
	return e
}

// WithDefault returns a copy of e using def as the default dialect.
func (e *Engines) WithDefault(def Dialect) (*Engines, error) {
	if _, ok := e.evaluators[def]; !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownDialect, def)
	}
	return &Engines{evaluators: e.evaluators, def: def}, nil
}

// DefaultDialect returns the dialect used for unprefixed expressions.
func (e *Engines) DefaultDialect() Dialect {
	return e.def
}

// Has reports whether d has an evaluator.
func (e *Engines) Has(d Dialect) bool {
	_, ok := e.evaluators[d]
	return ok
}

// Compile compiles expr in dialect d, or in the default dialect if d is
// empty.
func (e *Engines) Compile(expr string, d Dialect) (Program, error) {
	if d == "" {
		d = e.def
	}
	ev, ok := e.evaluators[d]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownDialect, d)
	}
	return ev.Compile(expr)
}

// Evaluate compiles and evaluates expr in one step.
func (e *Engines) Evaluate(expr string, d Dialect, vars Vars) (bool, error) {
	prg, err := e.Compile(expr, d)
	if err != nil {
		return false, err
	}
	return prg.Eval(vars)
}
