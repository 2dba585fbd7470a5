// Package convert turns raw request strings into typed values.
//
// Each conversion is performed by a converter adapter picked from an
// [adapter.Registry]: the first converter, in weight order, that can handle
// the target type. [Register] installs the built-in converters; applications
// override one by registering their own with a lower weight.
package convert

import (
	"errors"
	"fmt"
	"reflect"

	"github.com/CommerceBoard/geemvc/adapter"
)

// Converter converts one raw value into a value of type t. The returned
// value must be assignable to t.
type Converter interface {
	Convert(raw string, t reflect.Type) (reflect.Value, error)
}

// Capability is the interface every converter adapter implements.
var Capability = reflect.TypeFor[Converter]()

// Weights of the built-in converters.
const (
	WeightSpecial = 10
	WeightText    = 50
	WeightKind    = 100
	WeightAny     = 200
)

// ErrEmpty is returned when an empty value cannot be converted.
var ErrEmpty = errors.New("convert: empty value")

// Service converts values with the converters of a registry. It is safe for
// concurrent use.
type Service struct {
	registry *adapter.Registry
}

// New returns a conversion service backed by reg.
func New(reg *adapter.Registry) *Service {
	return &Service{registry: reg}
}

// Convert converts raw into type t. Pointer types are allocated and filled;
// an empty raw value for a pointer yields a nil pointer. A missing converter
// is returned as *adapter.NoAdapterError.
func (s *Service) Convert(raw string, t reflect.Type) (reflect.Value, error) {
	if t.Kind() == reflect.Pointer && !s.direct(t) {
		if raw == "" {
			return reflect.Zero(t), nil
		}
		elem, err := s.Convert(raw, t.Elem())
		if err != nil {
			return reflect.Value{}, err
		}
		ptr := reflect.New(t.Elem())
		ptr.Elem().Set(elem)
		return ptr, nil
	}

	c, err := adapter.Lookup[Converter](s.registry, adapter.Converter, t)
	if err != nil {
		return reflect.Value{}, err
	}

	v, err := c.Convert(raw, t)
	if err != nil {
		return reflect.Value{}, err
	}
	if !v.Type().AssignableTo(t) {
		return reflect.Value{}, fmt.Errorf("convert: %T produced %s, want %s", c, v.Type(), t)
	}
	return v, nil
}

// CanConvert reports whether a converter exists for t or, for pointers, its
// element type.
func (s *Service) CanConvert(t reflect.Type) bool {
	if s.direct(t) {
		return true
	}
	if t.Kind() == reflect.Pointer {
		return s.CanConvert(t.Elem())
	}
	return false
}

// direct reports whether a converter handles t itself.
func (s *Service) direct(t reflect.Type) bool {
	_, err := s.registry.Find(adapter.Converter, t)
	return err == nil
}

// To converts raw into T.
func To[T any](s *Service, raw string) (T, error) {
	var zero T

	v, err := s.Convert(raw, reflect.TypeFor[T]())
	if err != nil {
		return zero, err
	}
	return v.Interface().(T), nil
}
