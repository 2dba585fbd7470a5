// Package data loads handler arguments by id.
//
// A parameter declared as a data parameter is not built from request values
// alone: its bean is first loaded by the data adapter handling its type,
// keyed by the request's "id" path variable, and request values are then
// bound on top of it. Two stores are provided, an in-memory one and one
// backed by Redis; both keep beans JSON-encoded so every load returns a
// fresh copy that a request may modify freely.
package data

import (
	"context"
	"errors"
	"reflect"

	"github.com/CommerceBoard/geemvc/adapter"
)

// IDVar is the path variable holding the id of a data parameter.
const IDVar = "id"

// ErrNotFound is returned when no bean exists for an id.
var ErrNotFound = errors.New("data: not found")

// Adapter loads a bean of type t. It returns a pointer to a new value of
// t's element type (t itself when t is not a pointer).
type Adapter interface {
	Load(ctx context.Context, t reflect.Type, id string) (any, error)
}

// Store is an adapter that can persist beans.
type Store interface {
	Adapter
	Save(ctx context.Context, id string, v any) error
	Delete(ctx context.Context, t reflect.Type, id string) error
	List(ctx context.Context, t reflect.Type) ([]any, error)
}

// Capability is the interface every data adapter implements.
var Capability = reflect.TypeFor[Adapter]()

// Registration returns the registration of a as a data adapter.
func Registration(name string, weight int, a Adapter) adapter.Registration {
	return adapter.Registration{Kind: adapter.Data, Name: name, Weight: weight, Instance: a}
}

// Find returns the data adapter handling t.
func Find(reg *adapter.Registry, t reflect.Type) (Adapter, error) {
	return adapter.Lookup[Adapter](reg, adapter.Data, t)
}

func elem(t reflect.Type) reflect.Type {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return t
}

// typeSet restricts a store to some bean types. An empty set accepts all.
type typeSet map[reflect.Type]struct{}

func newTypeSet(types []reflect.Type) typeSet {
	s := make(typeSet, len(types))
	for _, t := range types {
		s[elem(t)] = struct{}{}
	}
	return s
}

func (s typeSet) CanHandle(t reflect.Type) bool {
	if t == nil {
		return false
	}
	t = elem(t)
	if t.Kind() != reflect.Struct {
		return false
	}
	if len(s) == 0 {
		return true
	}
	_, ok := s[t]
	return ok
}

func typeKey(t reflect.Type) string {
	return elem(t).String()
}
