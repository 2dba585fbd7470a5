package dispatch

import (
	"errors"
	"net/http"
	"path"
	"reflect"
	"slices"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/CommerceBoard/geemvc/adapter"
	"github.com/CommerceBoard/geemvc/bind"
	"github.com/CommerceBoard/geemvc/convert"
	"github.com/CommerceBoard/geemvc/data"
	"github.com/CommerceBoard/geemvc/handler"
	"github.com/CommerceBoard/geemvc/mapping"
	"github.com/CommerceBoard/geemvc/notice"
	"github.com/CommerceBoard/geemvc/validate"
	"github.com/CommerceBoard/geemvc/view"
)

// ResultBinding is the binding name of a plain value returned by a handler.
const ResultBinding = "result"

// Register installs the built-in adapters: converters, value sources, the
// tag validator and the JSON, XML and YAML views. It also declares the
// capability of data adapters, which applications register themselves.
func Register(b *adapter.Builder, opts ...convert.Option) *adapter.Builder {
	convert.Register(b, opts...)
	bind.Register(b)
	validate.Register(b)
	view.Register(b)
	return b.Capability(adapter.Data, data.Capability)
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithLogger sets the logger of the dispatcher and of the components it
// creates itself.
func WithLogger(l *zap.Logger) Option {
	return func(d *Dispatcher) {
		if l != nil {
			d.logger = l
		}
	}
}

// WithResolver replaces the default handler resolver.
func WithResolver(r *handler.CompositeHandlerResolver) Option {
	return func(d *Dispatcher) {
		d.resolver = r
	}
}

// WithBinder replaces the default binder.
func WithBinder(b *bind.Binder) Option {
	return func(d *Dispatcher) {
		d.binder = b
	}
}

// WithValidator replaces the default validator dispatcher.
func WithValidator(v *validate.Dispatcher) Option {
	return func(d *Dispatcher) {
		d.validator = v
	}
}

// WithViews replaces the default view writer.
func WithViews(w *view.Writer) Option {
	return func(d *Dispatcher) {
		d.views = w
	}
}

// WithMetrics records request metrics in m.
func WithMetrics(m *Metrics) Option {
	return func(d *Dispatcher) {
		d.metrics = m
	}
}

// WithSkipClean disables request path cleaning.
func WithSkipClean(skip bool) Option {
	return func(d *Dispatcher) {
		d.skipClean = skip
	}
}

// Dispatcher resolves requests to handlers, binds and validates their
// arguments, invokes them and renders their results.
//
// It implements the http.Handler interface:
//
//	reg, _ := dispatch.Register(adapter.NewBuilder()).Build()
//	table, _ := handler.NewBuilder().Add(controllers...).Build()
//	http.ListenAndServe(":8080", dispatch.New(table, reg))
type Dispatcher struct {
	// NotFoundHandler is called when no handler matches. If nil,
	// http.NotFound is used.
	NotFoundHandler http.Handler

	// MethodNotAllowedHandler is called when handlers match the path and
	// parameters but not the method. The Allow header is set before it is
	// invoked. If nil, a default 405 handler is used.
	MethodNotAllowedHandler http.Handler

	resolver  *handler.CompositeHandlerResolver
	binder    *bind.Binder
	validator *validate.Dispatcher
	views     *view.Writer
	metrics   *Metrics
	logger    *zap.Logger
	skipClean bool

	middlewares []MiddlewareFunc
	once        sync.Once
	chained     http.Handler
}

// New returns a dispatcher for the handlers of t using the adapters of reg.
func New(t *handler.Table, reg *adapter.Registry, opts ...Option) *Dispatcher {
	d := &Dispatcher{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(d)
	}

	if d.resolver == nil {
		d.resolver = handler.NewResolver(t, handler.WithResolverLogger(d.logger))
	}
	if d.binder == nil {
		d.binder = bind.New(reg, bind.WithLogger(d.logger))
	}
	if d.validator == nil {
		d.validator = validate.New(reg, validate.WithLogger(d.logger))
	}
	if d.views == nil {
		d.views = view.NewWriter(reg, view.WithLogger(d.logger))
	}
	return d
}

// Use appends middleware to the chain. Middleware is applied to resolved
// requests only and must be added before the first request is served.
func (d *Dispatcher) Use(mwf ...MiddlewareFunc) {
	d.middlewares = append(d.middlewares, mwf...)
}

// ServeHTTP dispatches the request to the handler it resolves to.
func (d *Dispatcher) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	label := LabelNotFound
	if d.metrics != nil {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		w = rec
		defer func() {
			d.metrics.observe(label, req.Method, rec.status, time.Since(start))
		}()
	}

	if !d.skipClean {
		if cleaned := cleanPath(req.URL.Path); cleaned != req.URL.Path {
			u := *req.URL
			u.Path = cleaned
			u.RawPath = ""
			req = req.Clone(req.Context())
			req.URL = &u
		}
	}

	m, err := d.resolver.ResolveRequest(handler.NewRequest(req))
	if err != nil {
		var mna *handler.MethodNotAllowedError
		if errors.As(err, &mna) {
			label = LabelMethodNotAllowed
			w.Header().Set("Allow", allowHeader(mna.Allowed))
			h := d.MethodNotAllowedHandler
			if h == nil {
				h = defaultMethodNotAllowedHandler
			}
			h.ServeHTTP(w, req)
			return
		}

		d.logger.Debug("no handler matched",
			zap.String("method", req.Method),
			zap.String("path", req.URL.Path),
		)
		h := d.NotFoundHandler
		if h == nil {
			h = defaultNotFoundHandler
		}
		h.ServeHTTP(w, req)
		return
	}

	label = m.Candidate.Name()
	req = setMatchContext(req, m)
	d.handler().ServeHTTP(w, req)
}

// handler returns the middleware-wrapped invocation handler.
func (d *Dispatcher) handler() http.Handler {
	d.once.Do(func() {
		d.chained = chain(http.HandlerFunc(d.serve), d.middlewares)
	})
	return d.chained
}

// serve binds, validates, invokes and renders the resolved handler.
func (d *Dispatcher) serve(w http.ResponseWriter, r *http.Request) {
	mc := matchContextOf(r)
	if mc == nil || mc.match == nil {
		defaultNotFoundHandler.ServeHTTP(w, r)
		return
	}
	c := mc.match.Candidate

	if !c.Invocable() {
		d.logger.Debug("handler has no function", zap.String("handler", c.Name()))
		http.Error(w, http.StatusText(http.StatusNotImplemented), http.StatusNotImplemented)
		return
	}

	breq := bind.NewRequest(r, w, mc.match.Vars)
	breq.Errors = mc.errors
	breq.Notices = mc.notices

	bindings, err := d.binder.Bind(c.Params, breq)
	if err != nil {
		d.fail(w, r, c, err)
		return
	}

	if !d.validator.ValidateBindings(bindings) && !acceptsErrors(c.Params) {
		d.logger.Debug("request rejected",
			zap.String("handler", c.Name()),
			zap.Strings("fields", bindings.Errors.Fields()),
		)
		if d.metrics != nil {
			d.metrics.reject(c.Name())
		}
		d.render(w, r, c, view.ForwardTo("").WithStatus(http.StatusBadRequest), bindings, mc)
		return
	}

	res, err := invoke(c.Func(), bindings.Args)
	if err != nil {
		d.fail(w, r, c, err)
		return
	}
	d.render(w, r, c, res, bindings, mc)
}

func (d *Dispatcher) render(w http.ResponseWriter, r *http.Request, c *handler.Candidate, res *view.Result, b *bind.Bindings, mc *matchContext) {
	m := &view.Model{Bindings: b.Values(), Errors: mc.errors, Notices: mc.notices}
	if err := d.views.Write(w, r, res, m); err != nil {
		if res != nil && res.Kind == view.Stream {
			d.logger.Debug("stream interrupted", zap.String("handler", c.Name()), zap.Error(err))
			return
		}
		d.fail(w, r, c, err)
	}
}

func (d *Dispatcher) fail(w http.ResponseWriter, r *http.Request, c *handler.Candidate, err error) {
	d.logger.Error("handler failed",
		zap.String("handler", c.Name()),
		zap.String("method", r.Method),
		zap.String("path", r.URL.Path),
		zap.Error(err),
	)
	http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
}

// acceptsErrors reports whether a handler takes the request's field errors
// and so handles invalid input itself.
func acceptsErrors(params []bind.Param) bool {
	for _, p := range params {
		if p.Type == errorsType {
			return true
		}
	}
	return false
}

var errorsType = reflect.TypeFor[*notice.Errors]()

// invoke calls fn and interprets its results.
func invoke(fn reflect.Value, args []reflect.Value) (*view.Result, error) {
	out := fn.Call(args)
	switch len(out) {
	case 0:
		return nil, nil
	case 2:
		if err, ok := out[1].Interface().(error); ok && err != nil {
			return nil, err
		}
	}
	return resultOf(out[0])
}

// resultOf turns a handler's return value into a view result. Nil yields
// no content, a string names a view or redirect, an error fails the
// request, and any other value is forwarded to the default view bound as
// ResultBinding.
func resultOf(v reflect.Value) (*view.Result, error) {
	switch v.Kind() {
	case reflect.Interface, reflect.Pointer:
		if v.IsNil() {
			return nil, nil
		}
	}

	switch x := v.Interface().(type) {
	case *view.Result:
		return x, nil
	case view.Result:
		return &x, nil
	case string:
		return view.FromString(x), nil
	case error:
		return nil, x
	}
	return view.ForwardTo("").Bind(ResultBinding, v.Interface()), nil
}

// allowHeader lists the allowed methods; GET implies HEAD.
func allowHeader(methods []mapping.Method) string {
	out := make([]string, 0, len(methods)+1)
	for _, m := range methods {
		out = append(out, m.String())
		if m == mapping.MethodGet && !slices.Contains(methods, mapping.MethodHead) {
			out = append(out, http.MethodHead)
		}
	}
	return strings.Join(out, ", ")
}

// cleanPath returns the canonical path for p, eliminating . and ..
// elements and keeping a trailing slash.
func cleanPath(p string) string {
	if p == "" {
		return "/"
	}
	if p[0] != '/' {
		p = "/" + p
	}
	np := path.Clean(p)
	if p[len(p)-1] == '/' && np != "/" {
		np += "/"
	}
	return np
}

var (
	defaultNotFoundHandler         = http.NotFoundHandler()
	defaultMethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
	})
)
