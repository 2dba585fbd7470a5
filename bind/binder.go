package bind

import (
	"errors"
	"fmt"
	"reflect"

	"go.uber.org/zap"

	"github.com/CommerceBoard/geemvc/adapter"
	"github.com/CommerceBoard/geemvc/convert"
	"github.com/CommerceBoard/geemvc/data"
	"github.com/CommerceBoard/geemvc/notice"
)

// Defaults of the binder limits.
const (
	DefaultMaxDepth    = 32
	DefaultMaxSliceLen = 1000
)

// Error codes of the field errors recorded while binding.
const (
	CodeConversion = "conversion"
	CodeRequired   = "required"
	CodeTooMany    = "too_many"
)

// Option configures a Binder.
type Option func(*Binder)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(b *Binder) {
		if l != nil {
			b.logger = l
		}
	}
}

// WithMaxDepth limits how deep nested structs are bound.
func WithMaxDepth(n int) Option {
	return func(b *Binder) {
		if n > 0 {
			b.maxDepth = n
		}
	}
}

// WithMaxSliceLen limits the number of elements bound into a slice or map.
func WithMaxSliceLen(n int) Option {
	return func(b *Binder) {
		if n > 0 {
			b.maxSliceLen = n
		}
	}
}

// Binder binds handler arguments. It is safe for concurrent use.
type Binder struct {
	registry    *adapter.Registry
	converter   *convert.Service
	logger      *zap.Logger
	maxDepth    int
	maxSliceLen int
}

// New returns a binder using the value sources, converters and data
// adapters of reg.
func New(reg *adapter.Registry, opts ...Option) *Binder {
	b := &Binder{
		registry:    reg,
		converter:   convert.New(reg),
		logger:      zap.NewNop(),
		maxDepth:    DefaultMaxDepth,
		maxSliceLen: DefaultMaxSliceLen,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Bound is one bound named parameter.
type Bound struct {
	Name      string
	Source    Source
	Type      reflect.Type
	ElemTypes []reflect.Type
	Raw       []string
	Value     any
	// Found reports whether the request carried a value.
	Found bool
}

// Bindings is the result of binding a parameter list.
type Bindings struct {
	// Args holds one value per parameter, ready for reflect.Value.Call.
	Args   []reflect.Value
	Bound  []Bound
	Errors *notice.Errors
}

// Value returns the value bound to name.
func (b *Bindings) Value(name string) (any, bool) {
	for _, p := range b.Bound {
		if p.Name == name {
			return p.Value, true
		}
	}
	return nil, false
}

// Values returns the named values.
func (b *Bindings) Values() map[string]any {
	out := make(map[string]any, len(b.Bound))
	for _, p := range b.Bound {
		if p.Name != "" {
			out[p.Name] = p.Value
		}
	}
	return out
}

// Bind binds params from req. Conversion failures are collected in the
// returned Errors, which is req.Errors; the error result is reserved for
// configuration and data-loading failures.
func (b *Binder) Bind(params []Param, req *Request) (*Bindings, error) {
	if req.Errors == nil {
		req.Errors = &notice.Errors{}
	}
	if req.Notices == nil {
		req.Notices = &notice.Notices{}
	}

	out := &Bindings{
		Args:   make([]reflect.Value, 0, len(params)),
		Errors: req.Errors,
	}
	for _, p := range params {
		if p.Injected() {
			out.Args = append(out.Args, inject(p.Type, req))
			continue
		}

		bound, v, err := b.bindParam(p, req)
		if err != nil {
			return nil, err
		}
		out.Args = append(out.Args, v)
		out.Bound = append(out.Bound, bound)
	}
	return out, nil
}

func inject(t reflect.Type, req *Request) reflect.Value {
	var v any
	switch t {
	case contextType:
		v = req.Context()
	case requestType:
		v = req.HTTP
	case writerType:
		v = req.Writer
	case valuesType:
		v = req.Params()
	case varsType:
		v = req.Vars
	case errorsType:
		v = req.Errors
	case noticesType:
		v = req.Notices
	case bindReqType:
		v = req
	}
	if v == nil || (reflect.ValueOf(v).Kind() == reflect.Pointer && reflect.ValueOf(v).IsNil()) {
		return reflect.Zero(t)
	}
	return reflect.ValueOf(v)
}

// source returns the value source adapter for s.
func (b *Binder) source(s Source) (ValueSource, error) {
	d, ok := b.registry.Select(adapter.ParamBinder, func(d adapter.Descriptor) bool {
		vs, ok := d.Instance.(ValueSource)
		return ok && vs.Source() == s
	})
	if !ok {
		return nil, &adapter.NoAdapterError{Kind: adapter.ParamBinder, What: s.String()}
	}
	return d.Instance.(ValueSource), nil
}

func (b *Binder) bindParam(p Param, req *Request) (Bound, reflect.Value, error) {
	src, err := b.source(p.Source)
	if err != nil {
		return Bound{}, reflect.Value{}, err
	}

	st := &state{
		binder: b,
		src:    src,
		req:    req,
		errs:   req.Errors,
	}
	dst := reflect.New(p.Type).Elem()

	found := false
	if p.Data {
		found, err = b.load(p, req, dst)
		if err != nil {
			return Bound{}, reflect.Value{}, err
		}
	}

	ok, err := st.bindInto(p.Name, dst, 0)
	if err != nil {
		return Bound{}, reflect.Value{}, fmt.Errorf("bind: parameter %q: %w", p.Name, err)
	}
	found = found || ok

	if !found && p.Default != "" {
		if ok, err = st.bindRaw(p.Name, []string{p.Default}, dst); err != nil {
			return Bound{}, reflect.Value{}, fmt.Errorf("bind: default of %q: %w", p.Name, err)
		}
		found = ok
	}
	if !found && p.Required {
		req.Errors.Add(p.Name, CodeRequired, "is required")
	}

	raw, _ := src.Lookup(req, p.Name)
	bound := Bound{
		Name:      p.Name,
		Source:    p.Source,
		Type:      p.Type,
		ElemTypes: elemTypes(p.Type),
		Raw:       raw,
		Value:     dst.Interface(),
		Found:     found,
	}

	b.logger.Debug("parameter bound",
		zap.String("name", p.Name),
		zap.Stringer("type", p.Type),
		zap.Stringer("source", p.Source),
		zap.Bool("found", found),
	)
	return bound, dst, nil
}

// load fills dst with the bean identified by the request's id variable. A
// missing id or bean leaves dst untouched.
func (b *Binder) load(p Param, req *Request, dst reflect.Value) (bool, error) {
	id, ok := req.Vars[data.IDVar]
	if !ok || id == "" {
		return false, nil
	}

	a, err := data.Find(b.registry, p.Type)
	if err != nil {
		return false, err
	}

	v, err := a.Load(req.Context(), p.Type, id)
	if errors.Is(err, data.ErrNotFound) {
		b.logger.Debug("data parameter not found", zap.String("name", p.Name), zap.String("id", id))
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("bind: load %q with id %q: %w", p.Name, id, err)
	}

	rv := reflect.ValueOf(v)
	if p.Type.Kind() != reflect.Pointer {
		rv = rv.Elem()
	}
	if !rv.Type().AssignableTo(p.Type) {
		return false, fmt.Errorf("bind: data adapter %T loaded %s, want %s", a, rv.Type(), p.Type)
	}
	dst.Set(rv)
	return true, nil
}

func elemTypes(t reflect.Type) []reflect.Type {
	switch t.Kind() {
	case reflect.Slice, reflect.Array:
		return []reflect.Type{t.Elem()}
	case reflect.Map:
		return []reflect.Type{t.Key(), t.Elem()}
	case reflect.Pointer:
		return elemTypes(t.Elem())
	}
	return nil
}
