package validate

import (
	"reflect"

	"github.com/CommerceBoard/geemvc/adapter"
	"github.com/CommerceBoard/geemvc/notice"
)

// maxEmbedDepth bounds the search for embedded targets.
const maxEmbedDepth = 16

// typed is a validator for values of type T or values embedding a T.
type typed[T any] struct {
	fn func(T, *notice.Errors)
}

// For returns the registration of fn as a validator for T. fn receives the
// value itself when it is a T, or else the T it embeds.
func For[T any](name string, weight int, fn func(T, *notice.Errors)) adapter.Registration {
	return adapter.Registration{
		Kind:     adapter.Validator,
		Name:     name,
		Target:   reflect.TypeFor[T](),
		Weight:   weight,
		Instance: typed[T]{fn: fn},
	}
}

func (v typed[T]) CanHandle(t reflect.Type) bool {
	return embeds(t, reflect.TypeFor[T](), 0)
}

func (v typed[T]) Validate(x any, errs *notice.Errors) {
	target, ok := extract(reflect.ValueOf(x), reflect.TypeFor[T](), 0)
	if !ok {
		return
	}
	v.fn(target.Interface().(T), errs)
}

// embeds reports whether t is, implements, or embeds target.
func embeds(t, target reflect.Type, depth int) bool {
	if t == nil || depth > maxEmbedDepth {
		return false
	}
	if t.AssignableTo(target) {
		return true
	}

	switch t.Kind() {
	case reflect.Pointer:
		return embeds(t.Elem(), target, depth+1)
	case reflect.Struct:
		for i := range t.NumField() {
			if f := t.Field(i); f.Anonymous && embeds(f.Type, target, depth+1) {
				return true
			}
		}
	}
	return false
}

// extract finds the value of type target in v following the path embeds
// takes.
func extract(v reflect.Value, target reflect.Type, depth int) (reflect.Value, bool) {
	if !v.IsValid() || depth > maxEmbedDepth {
		return reflect.Value{}, false
	}
	if v.Type().AssignableTo(target) {
		return v, v.CanInterface()
	}

	switch v.Kind() {
	case reflect.Pointer:
		if v.IsNil() {
			return reflect.Value{}, false
		}
		return extract(v.Elem(), target, depth+1)
	case reflect.Struct:
		for i := range v.NumField() {
			if f := v.Type().Field(i); f.Anonymous {
				if found, ok := extract(v.Field(i), target, depth+1); ok {
					return found, true
				}
			}
		}
	}
	return reflect.Value{}, false
}
