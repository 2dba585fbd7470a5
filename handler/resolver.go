package handler

import (
	"cmp"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"strings"

	"go.uber.org/zap"

	"github.com/CommerceBoard/geemvc/mapping"
	"github.com/CommerceBoard/geemvc/pathmatch"
)

var (
	// ErrNoMatchingHandler is returned when no mapping matches a request.
	ErrNoMatchingHandler = errors.New("handler: no matching handler")
	// ErrMethodMismatch is returned when mappings match the path and
	// parameters of a request but not its method.
	ErrMethodMismatch = errors.New("handler: method not allowed")
)

// MethodNotAllowedError is returned with ErrMethodMismatch and lists the
// methods that would have matched.
type MethodNotAllowedError struct {
	Method  string
	Allowed []mapping.Method
}

func (e *MethodNotAllowedError) Error() string {
	allowed := make([]string, len(e.Allowed))
	for i, m := range e.Allowed {
		allowed[i] = m.String()
	}
	return fmt.Sprintf("%v: %s (allowed: %s)", ErrMethodMismatch, e.Method, strings.Join(allowed, ", "))
}

func (e *MethodNotAllowedError) Unwrap() error {
	return ErrMethodMismatch
}

// Request is the part of a request resolution looks at.
type Request struct {
	Path   string
	Method string
	Params map[string][]string
}

// NewRequest returns the resolution request of r. Form values take part in
// predicate matching; a form that fails to parse contributes what was
// parsed.
func NewRequest(r *http.Request) *Request {
	_ = r.ParseForm()
	return &Request{Path: r.URL.Path, Method: r.Method, Params: r.Form}
}

// Match is a resolved request.
type Match struct {
	Candidate *Candidate
	Vars      pathmatch.Vars
}

// ControllerResolver narrows the controllers that may handle a request.
type ControllerResolver interface {
	ResolveControllers(req *Request, entries []*Entry) []*Entry
}

// Weighted is implemented by controller resolvers to order themselves in
// a composite; lower weights run first. The default weight is 0.
type Weighted interface {
	Weight() int
}

// PrefixResolver keeps the controllers whose base path matches a prefix of
// the request path.
type PrefixResolver struct{}

// ResolveControllers implements ControllerResolver.
func (PrefixResolver) ResolveControllers(req *Request, entries []*Entry) []*Entry {
	var out []*Entry
	for _, e := range entries {
		if _, _, ok := e.Base.MatchPrefix(req.Path); ok {
			out = append(out, e)
		}
	}
	return out
}

// Weight implements Weighted.
func (PrefixResolver) Weight() int {
	return 100
}

// AllResolver keeps every controller.
type AllResolver struct{}

// ResolveControllers implements ControllerResolver.
func (AllResolver) ResolveControllers(_ *Request, entries []*Entry) []*Entry {
	return entries
}

// ControllerResolverByName returns a built-in controller resolver: "prefix"
// or "all".
func ControllerResolverByName(name string) (ControllerResolver, error) {
	switch strings.ToLower(name) {
	case "prefix":
		return PrefixResolver{}, nil
	case "all":
		return AllResolver{}, nil
	}
	return nil, fmt.Errorf("handler: unknown controller resolver %q", name)
}

// CompositeControllerResolver applies controller resolvers in weight order,
// each narrowing the result of the previous one.
type CompositeControllerResolver struct {
	table     *Table
	resolvers []ControllerResolver
}

// NewCompositeControllerResolver returns a composite over the controllers
// of t. Without resolvers it narrows by base path.
func NewCompositeControllerResolver(t *Table, resolvers ...ControllerResolver) *CompositeControllerResolver {
	if len(resolvers) == 0 {
		resolvers = []ControllerResolver{PrefixResolver{}}
	}
	resolvers = slices.Clone(resolvers)
	slices.SortStableFunc(resolvers, func(a, b ControllerResolver) int {
		return cmp.Compare(weightOf(a), weightOf(b))
	})
	return &CompositeControllerResolver{table: t, resolvers: resolvers}
}

func weightOf(r ControllerResolver) int {
	if w, ok := r.(Weighted); ok {
		return w.Weight()
	}
	return 0
}

// Resolve returns the controllers that may handle req, in registration
// order.
func (c *CompositeControllerResolver) Resolve(req *Request) []*Entry {
	entries := c.table.entries
	for _, r := range c.resolvers {
		if len(entries) == 0 {
			break
		}
		entries = r.ResolveControllers(req, entries)
	}
	return entries
}

// ResolverOption configures a CompositeHandlerResolver.
type ResolverOption func(*CompositeHandlerResolver)

// WithResolverLogger sets the logger.
func WithResolverLogger(l *zap.Logger) ResolverOption {
	return func(r *CompositeHandlerResolver) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithControllerResolvers sets the controller resolvers narrowing the
// candidates of ResolveRequest.
func WithControllerResolvers(rs ...ControllerResolver) ResolverOption {
	return func(r *CompositeHandlerResolver) {
		r.controllers = NewCompositeControllerResolver(r.table, rs...)
	}
}

// CompositeHandlerResolver resolves requests against the mapping keys of a
// table. It is safe for concurrent use.
type CompositeHandlerResolver struct {
	table       *Table
	controllers *CompositeControllerResolver
	logger      *zap.Logger
}

// NewResolver returns a resolver over t.
func NewResolver(t *Table, opts ...ResolverOption) *CompositeHandlerResolver {
	r := &CompositeHandlerResolver{table: t, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(r)
	}
	if r.controllers == nil {
		r.controllers = NewCompositeControllerResolver(t)
	}
	return r
}

// ResolveRequest narrows the controllers of the table and resolves req
// against them.
func (r *CompositeHandlerResolver) ResolveRequest(req *Request) (*Match, error) {
	return r.Resolve(req, r.controllers.Resolve(req))
}

// Resolve picks the preferred candidate of controllers matching req: the
// highest priority, then the earliest registration. It returns
// ErrNoMatchingHandler or, when only the method failed, a
// *MethodNotAllowedError.
func (r *CompositeHandlerResolver) Resolve(req *Request, controllers []*Entry) (*Match, error) {
	var (
		best    *Match
		allowed []mapping.Method
	)

	for _, e := range controllers {
		for _, c := range e.Candidates {
			if best != nil && c.Key.Compare(best.Candidate.Key) > 0 {
				// Candidates are sorted, the rest cannot win either.
				break
			}

			vars, outcome := c.Key.Match(req.Path, req.Method, req.Params)
			switch outcome {
			case mapping.Matched:
				best = &Match{Candidate: c, Vars: vars}
			case mapping.MethodMismatch:
				if !slices.Contains(allowed, c.Key.Method()) {
					allowed = append(allowed, c.Key.Method())
				}
				continue
			default:
				continue
			}
			break
		}
	}

	if best != nil {
		r.logger.Debug("handler resolved",
			zap.String("path", req.Path),
			zap.String("method", req.Method),
			zap.String("handler", best.Candidate.Name()),
		)
		return best, nil
	}

	if len(allowed) > 0 {
		return nil, &MethodNotAllowedError{Method: req.Method, Allowed: allowed}
	}
	return nil, ErrNoMatchingHandler
}
