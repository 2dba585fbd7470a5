package adapter

import (
	"reflect"
)

var anyType = reflect.TypeFor[any]()

// Capable is implemented by adapters that decide themselves which types
// they handle, such as a converter serving every integer kind.
type Capable interface {
	CanHandle(t reflect.Type) bool
}

// Registration declares one adapter.
type Registration struct {
	Kind Kind
	// Name identifies the adapter in logs and listings. It defaults to the
	// instance's type name.
	Name string
	// Target is the type the adapter handles. A nil target or the empty
	// interface accepts every type; any other interface accepts the types
	// implementing it.
	Target reflect.Type
	// Aux are the element types of a container target: the element of a
	// slice, array or pointer, or the key and element of a map. A nil entry
	// matches any type. With Aux set, Target only fixes the container kind.
	Aux []reflect.Type
	// Weight orders adapters of one kind; lower weights come first.
	Weight int
	// Instance is the adapter itself.
	Instance any
}

// Descriptor is a registered adapter. Descriptors are immutable.
type Descriptor struct {
	Kind     Kind
	Name     string
	Target   reflect.Type
	Aux      []reflect.Type
	Weight   int
	Instance any

	order int
}

// Order returns the registration order of the descriptor.
func (d Descriptor) Order() int {
	return d.order
}

// CanHandle reports whether the adapter serves type t. An instance
// implementing Capable decides alone; otherwise t must equal the target,
// implement an interface target, or fit a container target and its Aux
// types.
func (d Descriptor) CanHandle(t reflect.Type) bool {
	if c, ok := d.Instance.(Capable); ok {
		return c.CanHandle(t)
	}
	return matchType(d.Target, d.Aux, t)
}

func matchType(target reflect.Type, aux []reflect.Type, t reflect.Type) bool {
	if target == nil || target == anyType {
		return true
	}
	if t == nil {
		return false
	}

	if len(aux) > 0 {
		return matchContainer(target, aux, t)
	}

	if t == target {
		return true
	}

	return target.Kind() == reflect.Interface && t.Implements(target)
}

func matchContainer(target reflect.Type, aux []reflect.Type, t reflect.Type) bool {
	if t.Kind() != target.Kind() {
		return false
	}

	switch t.Kind() {
	case reflect.Map:
		if len(aux) != 2 {
			return false
		}
		return matchAux(aux[0], t.Key()) && matchAux(aux[1], t.Elem())
	case reflect.Slice, reflect.Array, reflect.Pointer, reflect.Chan:
		if len(aux) != 1 {
			return false
		}
		return matchAux(aux[0], t.Elem())
	}

	return false
}

func matchAux(want, got reflect.Type) bool {
	return want == nil || matchType(want, nil, got)
}

func typeName(v any) string {
	t := reflect.TypeOf(v)
	if t == nil {
		return ""
	}
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.PkgPath() == "" {
		return t.String()
	}
	return t.PkgPath() + "." + t.Name()
}
