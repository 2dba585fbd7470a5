package handler

import (
	"errors"
	"fmt"
	"reflect"
	"slices"
	"strings"

	"go.uber.org/zap"

	"github.com/CommerceBoard/geemvc/bind"
	"github.com/CommerceBoard/geemvc/mapping"
	"github.com/CommerceBoard/geemvc/pathmatch"
	"github.com/CommerceBoard/geemvc/predicate"
	"github.com/CommerceBoard/geemvc/script"
)

var errorType = reflect.TypeFor[error]()

// RegistrationError reports a handler method that could not be registered.
type RegistrationError struct {
	Controller string
	Method     string
	Err        error
}

func (e *RegistrationError) Error() string {
	return fmt.Sprintf("handler: register %s.%s: %v", e.Controller, e.Method, e.Err)
}

func (e *RegistrationError) Unwrap() error {
	return e.Err
}

// AmbiguityError lists pairs of mappings that match exactly the same
// requests with the same priority.
type AmbiguityError struct {
	Pairs [][2]*Candidate
}

func (e *AmbiguityError) Error() string {
	parts := make([]string, 0, len(e.Pairs))
	for _, p := range e.Pairs {
		parts = append(parts, fmt.Sprintf("%s and %s", p[0].Name(), p[1].Name()))
	}
	return "handler: ambiguous mappings: " + strings.Join(parts, "; ")
}

// Option configures a Builder.
type Option func(*Builder)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(b *Builder) {
		if l != nil {
			b.logger = l
		}
	}
}

// WithStrict makes Build fail on ambiguous mappings instead of warning.
func WithStrict(strict bool) Option {
	return func(b *Builder) {
		b.strict = strict
	}
}

// WithEngines sets the script engines of script predicates.
func WithEngines(e *script.Engines) Option {
	return func(b *Builder) {
		b.engines = e
	}
}

// Builder collects controllers and compiles them into a Table.
type Builder struct {
	controllers []Controller
	logger      *zap.Logger
	strict      bool
	engines     *script.Engines
}

// NewBuilder returns an empty builder.
func NewBuilder(opts ...Option) *Builder {
	b := &Builder{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Add adds controllers.
func (b *Builder) Add(cs ...Controller) *Builder {
	b.controllers = append(b.controllers, cs...)
	return b
}

// Build compiles the controllers. A malformed path, method or predicate
// fails the build with a *RegistrationError.
func (b *Builder) Build() (*Table, error) {
	var popts []predicate.Option
	if b.engines != nil {
		popts = append(popts, predicate.WithEngines(b.engines))
	}

	t := &Table{}
	order := 0
	for i := range b.controllers {
		c := b.controllers[i]
		c.Methods = slices.Clone(c.Methods)
		if c.Path == "" {
			c.Path = "/"
		}

		base, err := pathmatch.Compile(c.Path)
		if err != nil {
			return nil, &RegistrationError{Controller: c.Name, Err: err}
		}
		e := &Entry{Controller: &c, Base: base, order: i}

		for j := range c.Methods {
			m := &c.Methods[j]
			cand, err := newCandidate(e, m, order, popts)
			if err != nil {
				return nil, &RegistrationError{Controller: c.Name, Method: m.Name, Err: err}
			}
			order++
			e.Candidates = append(e.Candidates, cand)
			t.candidates = append(t.candidates, cand)

			b.logger.Debug("handler registered",
				zap.String("handler", cand.Name()),
				zap.Stringer("key", cand.Key),
			)
		}

		slices.SortStableFunc(e.Candidates, compareCandidates)
		t.entries = append(t.entries, e)
	}
	slices.SortStableFunc(t.candidates, compareCandidates)

	if err := b.checkOverlaps(t.candidates); err != nil {
		return nil, err
	}
	return t, nil
}

func newCandidate(e *Entry, m *Method, order int, popts []predicate.Option) (*Candidate, error) {
	key, err := mapping.New(mapping.Declaration{
		Path:     pathmatch.Join(e.Controller.Path, m.Path),
		Method:   m.Method,
		Params:   m.Params,
		Priority: m.Priority,
	}, mapping.WithOrder(order), mapping.WithPredicateOptions(popts...))
	if err != nil {
		return nil, err
	}

	c := &Candidate{Entry: e, Method: m, Key: key}
	if m.Func == nil {
		return c, nil
	}

	fn := reflect.ValueOf(m.Func)
	if err := checkResults(fn.Type()); err != nil {
		return nil, err
	}
	c.Params, err = bind.ParamsOf(m.Func, m.Bind...)
	if err != nil {
		return nil, err
	}
	c.fn = fn
	return c, nil
}

// checkResults accepts no result, one result, or a result and an error.
func checkResults(ft reflect.Type) error {
	if ft.Kind() != reflect.Func {
		return fmt.Errorf("handler: %s is not a function", ft)
	}
	switch ft.NumOut() {
	case 0, 1:
		return nil
	case 2:
		if ft.Out(1) == errorType {
			return nil
		}
	}
	return fmt.Errorf("handler: %s must return at most a value and an error", ft)
}

func compareCandidates(a, b *Candidate) int {
	return a.Key.Compare(b.Key)
}

// checkOverlaps reports candidates no request could tell apart. The
// earlier registered one always wins for them.
func (b *Builder) checkOverlaps(cands []*Candidate) error {
	var pairs [][2]*Candidate
	for i, x := range cands {
		for _, y := range cands[i+1:] {
			if !x.Key.Overlaps(y.Key) {
				continue
			}
			pairs = append(pairs, [2]*Candidate{x, y})
			b.logger.Warn("ambiguous handler mappings",
				zap.String("selected", x.Name()),
				zap.String("shadowed", y.Name()),
				zap.Stringer("key", x.Key),
			)
		}
	}
	if b.strict && len(pairs) > 0 {
		return &AmbiguityError{Pairs: pairs}
	}
	return nil
}

// Table is the immutable routing table. It is safe for concurrent use.
type Table struct {
	entries    []*Entry
	candidates []*Candidate
}

// Controllers returns the controllers in registration order.
func (t *Table) Controllers() []*Entry {
	return slices.Clone(t.entries)
}

// Candidates returns all candidates in resolution order.
func (t *Table) Candidates() []*Candidate {
	return slices.Clone(t.candidates)
}

// Len returns the number of candidates.
func (t *Table) Len() int {
	return len(t.candidates)
}

// IsSyntaxError reports whether err was caused by a malformed predicate.
func IsSyntaxError(err error) bool {
	var se *predicate.SyntaxError
	return errors.As(err, &se)
}
