package mapping

import (
	"fmt"
	"strings"

	"github.com/CommerceBoard/geemvc/pathmatch"
	"github.com/CommerceBoard/geemvc/predicate"
)

// Declaration is the declared metadata of one handler mapping.
type Declaration struct {
	// Path is the path template, including any controller base path.
	Path string
	// Method defaults to MethodAny.
	Method string
	// Params are parameter predicates in the constraint language.
	Params []string
	// Priority ranks mappings matching the same request; higher wins.
	Priority int
}

// Option configures New.
type Option func(*options)

type options struct {
	order      int
	predicates []predicate.Option
}

// WithOrder sets the registration order used to break priority ties.
func WithOrder(n int) Option {
	return func(o *options) {
		o.order = n
	}
}

// WithPredicateOptions passes options to the predicate compiler.
func WithPredicateOptions(opts ...predicate.Option) Option {
	return func(o *options) {
		o.predicates = append(o.predicates, opts...)
	}
}

// Key identifies the requests a handler accepts. Keys are immutable and
// safe for concurrent use.
type Key struct {
	path       *pathmatch.Template
	method     Method
	predicates *predicate.Set
	priority   int
	order      int
}

// New compiles a declaration. Malformed templates, methods or predicates
// are reported here so a handler that can never match is never registered.
func New(d Declaration, opts ...Option) (*Key, error) {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}

	tpl, err := pathmatch.Compile(d.Path)
	if err != nil {
		return nil, err
	}

	method, err := ParseMethod(d.Method)
	if err != nil {
		return nil, err
	}

	preds, err := predicate.Compile(d.Params, o.predicates...)
	if err != nil {
		return nil, err
	}

	return &Key{
		path:       tpl,
		method:     method,
		predicates: preds,
		priority:   d.Priority,
		order:      o.order,
	}, nil
}

// MustNew is like New but panics on error.
func MustNew(d Declaration, opts ...Option) *Key {
	k, err := New(d, opts...)
	if err != nil {
		panic(err)
	}
	return k
}

// Outcome is the result of testing a key against a request.
type Outcome uint8

// Match outcomes.
const (
	// NoMatch means the path or the parameter predicates did not match.
	NoMatch Outcome = iota
	// MethodMismatch means everything but the method matched.
	MethodMismatch
	// Matched means the key accepts the request.
	Matched
)

func (o Outcome) String() string {
	switch o {
	case MethodMismatch:
		return "method-mismatch"
	case Matched:
		return "matched"
	}
	return "no-match"
}

// Match tests the key against a request path, method and parameter map.
// Path variables are returned when the outcome is Matched.
func (k *Key) Match(path, method string, params map[string][]string) (pathmatch.Vars, Outcome) {
	vars, ok := k.path.Match(path)
	if !ok {
		return nil, NoMatch
	}

	if !k.predicates.Match(params) {
		return nil, NoMatch
	}

	if !k.method.Matches(method) {
		return nil, MethodMismatch
	}

	return vars, Matched
}

// Compare orders keys by resolution preference: higher priority first, then
// earlier registration. It returns a negative number when k is preferred.
func (k *Key) Compare(o *Key) int {
	if k.priority != o.priority {
		if k.priority > o.priority {
			return -1
		}
		return 1
	}
	return k.order - o.order
}

// Overlaps reports whether k and o are statically indistinguishable: same
// path shape, overlapping methods, equivalent predicates and the same
// priority. Such keys resolve by registration order alone.
func (k *Key) Overlaps(o *Key) bool {
	return k.priority == o.priority &&
		k.method.Overlaps(o.method) &&
		k.path.Shape() == o.path.Shape() &&
		k.predicates.Canonical() == o.predicates.Canonical()
}

// Path returns the compiled path template.
func (k *Key) Path() *pathmatch.Template {
	return k.path
}

// Method returns the accepted method.
func (k *Key) Method() Method {
	return k.method
}

// Predicates returns the parameter predicates.
func (k *Key) Predicates() *predicate.Set {
	return k.predicates
}

// Priority returns the declared priority.
func (k *Key) Priority() int {
	return k.priority
}

// Order returns the registration order.
func (k *Key) Order() int {
	return k.order
}

// String formats the key as "METHOD /path [predicates] priority=N".
func (k *Key) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s", k.method, k.path)
	if k.predicates.Len() > 0 {
		fmt.Fprintf(&b, " [%s]", strings.Join(k.predicates.Strings(), ", "))
	}
	if k.priority != 0 {
		fmt.Fprintf(&b, " priority=%d", k.priority)
	}
	return b.String()
}
