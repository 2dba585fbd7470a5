package adapter

import (
	"errors"
	"fmt"
	"reflect"
)

// ErrNoAdapter is matched by every *NoAdapterError.
var ErrNoAdapter = errors.New("adapter: no adapter found")

// NoAdapterError reports a lookup no registered adapter can serve. It is a
// configuration error: retrying cannot succeed.
type NoAdapterError struct {
	Kind Kind
	Type reflect.Type
	// What describes a non-type lookup such as a view name.
	What string
}

func (e *NoAdapterError) Error() string {
	switch {
	case e.Type != nil:
		return fmt.Sprintf("adapter: no %s adapter for type %s", e.Kind, e.Type)
	case e.What != "":
		return fmt.Sprintf("adapter: no %s adapter for %s", e.Kind, e.What)
	}
	return fmt.Sprintf("adapter: no %s adapter", e.Kind)
}

func (e *NoAdapterError) Unwrap() error {
	return ErrNoAdapter
}

// RegistrationError reports an invalid registration.
type RegistrationError struct {
	Name   string
	Kind   Kind
	Reason string
}

func (e *RegistrationError) Error() string {
	name := e.Name
	if name == "" {
		name = "<unnamed>"
	}
	return fmt.Sprintf("adapter: invalid %s registration %s: %s", e.Kind, name, e.Reason)
}
