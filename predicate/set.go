package predicate

import (
	"slices"
	"strings"
	"sync"

	"github.com/CommerceBoard/geemvc/script"
)

var defaultEngines = sync.OnceValue(script.Default)

// Option configures Compile.
type Option func(*options)

type options struct {
	engines *script.Engines
}

// WithEngines sets the script engines used for script predicates.
func WithEngines(e *script.Engines) Option {
	return func(o *options) {
		o.engines = e
	}
}

// Set is a compiled conjunction of disjunctive groups. The zero value and a
// nil *Set match every request.
type Set struct {
	groups     [][]*Predicate
	predicates []*Predicate
	scripts    bool
}

// Compile parses exprs into a Set. The first malformed expression aborts
// compilation.
func Compile(exprs []string, opts ...Option) (*Set, error) {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.engines == nil {
		o.engines = defaultEngines()
	}

	s := &Set{}
	byName := make(map[string]int)

	for _, expr := range exprs {
		p, err := Parse(expr, o.engines)
		if err != nil {
			return nil, err
		}
		s.predicates = append(s.predicates, p)

		if p.Kind == Script {
			s.scripts = true
			s.groups = append(s.groups, []*Predicate{p})
			continue
		}

		if i, ok := byName[p.Name]; ok {
			s.groups[i] = append(s.groups[i], p)
			continue
		}
		byName[p.Name] = len(s.groups)
		s.groups = append(s.groups, []*Predicate{p})
	}

	return s, nil
}

// MustCompile is like Compile but panics on error.
func MustCompile(exprs ...string) *Set {
	s, err := Compile(exprs)
	if err != nil {
		panic(err)
	}
	return s
}

// Match reports whether params satisfy every group.
func (s *Set) Match(params map[string][]string) bool {
	if s == nil {
		return true
	}

	var vars script.Vars
	if s.scripts {
		vars = script.FromParams(params)
	}

	for _, group := range s.groups {
		if !matchAny(group, params, vars) {
			return false
		}
	}

	return true
}

func matchAny(group []*Predicate, params map[string][]string, vars script.Vars) bool {
	for _, p := range group {
		if p.Match(params, vars) {
			return true
		}
	}
	return false
}

// Len returns the number of predicates.
func (s *Set) Len() int {
	if s == nil {
		return 0
	}
	return len(s.predicates)
}

// Predicates returns the predicates in declaration order.
func (s *Set) Predicates() []*Predicate {
	if s == nil {
		return nil
	}
	return slices.Clone(s.predicates)
}

// Groups returns the number of AND groups.
func (s *Set) Groups() int {
	if s == nil {
		return 0
	}
	return len(s.groups)
}

// Canonical returns an order-independent representation. Two sets with the
// same canonical form accept exactly the same requests.
func (s *Set) Canonical() string {
	if s.Len() == 0 {
		return ""
	}

	groups := make([]string, 0, len(s.groups))
	for _, g := range s.groups {
		alts := make([]string, len(g))
		for i, p := range g {
			alts[i] = p.Canonical()
		}
		slices.Sort(alts)
		alts = slices.Compact(alts)
		groups = append(groups, strings.Join(alts, "|"))
	}
	slices.Sort(groups)

	return strings.Join(groups, "&")
}

// Strings returns the source expressions.
func (s *Set) Strings() []string {
	out := make([]string, 0, s.Len())
	for _, p := range s.Predicates() {
		out = append(out, p.String())
	}
	return out
}
