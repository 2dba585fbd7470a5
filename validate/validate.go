// Package validate runs validator adapters over bound values.
//
// Validation is aggregated rather than fail-fast: every validator that
// applies to a value runs, in weight order, and records its findings in a
// shared [notice.Errors]. A validator applies to a value whose type is its
// target, implements its interface target, or embeds the target, possibly
// through several levels of embedding and through pointers.
package validate

import (
	"reflect"

	"go.uber.org/zap"

	"github.com/CommerceBoard/geemvc/adapter"
	"github.com/CommerceBoard/geemvc/bind"
	"github.com/CommerceBoard/geemvc/notice"
)

// Validator checks v and records problems in errs. It is the interface of
// validator adapters.
type Validator interface {
	Validate(v any, errs *notice.Errors)
}

// Capability is the interface every validator adapter implements.
var Capability = reflect.TypeFor[Validator]()

// Func adapts a function to Validator.
type Func func(v any, errs *notice.Errors)

// Validate calls f.
func (f Func) Validate(v any, errs *notice.Errors) {
	f(v, errs)
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(d *Dispatcher) {
		if l != nil {
			d.logger = l
		}
	}
}

// Dispatcher runs the validator adapters of a registry. It is safe for
// concurrent use.
type Dispatcher struct {
	registry *adapter.Registry
	logger   *zap.Logger
}

// New returns a dispatcher using the validators of reg.
func New(reg *adapter.Registry, opts ...Option) *Dispatcher {
	d := &Dispatcher{registry: reg, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Validate runs every validator applicable to v. Nil values are not
// validated.
func (d *Dispatcher) Validate(v any, errs *notice.Errors) {
	if isNil(v) {
		return
	}

	t := reflect.TypeOf(v)
	for _, desc := range d.registry.FindAll(adapter.Validator, t) {
		val, ok := desc.Instance.(Validator)
		if !ok {
			continue
		}
		before := errs.Len()
		val.Validate(v, errs)
		d.logger.Debug("validator ran",
			zap.String("validator", desc.Name),
			zap.Stringer("type", t),
			zap.Int("errors", errs.Len()-before),
		)
	}
}

// ValidateNamed validates v and records its errors under the field path
// name.
func (d *Dispatcher) ValidateNamed(name string, v any, errs *notice.Errors) {
	sub := &notice.Errors{}
	d.Validate(v, sub)
	errs.Merge(name, sub)
}

// ValidateBindings validates every bound parameter, recording errors in
// b.Errors under the parameter names. It reports whether no error was
// recorded, including binding errors.
func (d *Dispatcher) ValidateBindings(b *bind.Bindings) bool {
	for _, p := range b.Bound {
		d.ValidateNamed(p.Name, p.Value, b.Errors)
	}
	return b.Errors.Empty()
}

func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Interface:
		return rv.IsNil()
	}
	return false
}
