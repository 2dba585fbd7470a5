// Package notice collects field errors and informational notices produced
// while binding and validating a request. Collections are request-scoped
// and not safe for concurrent use.
package notice

import (
	"fmt"
	"slices"
	"strings"
)

// Global is the field of errors that belong to no particular field.
const Global = ""

// FieldError is one problem with one field.
type FieldError struct {
	// Field is the dotted path of the field, e.g. "person.address.city".
	Field string `json:"field,omitempty" xml:"field,attr,omitempty" yaml:"field,omitempty"`
	// Code is a short machine-readable reason such as "required".
	Code string `json:"code,omitempty" xml:"code,attr,omitempty" yaml:"code,omitempty"`
	// Message is the human-readable description.
	Message string `json:"message" xml:",chardata" yaml:"message"`
	// Value is the offending raw value, if any.
	Value any `json:"-" xml:"-" yaml:"-"`
	// Err is the underlying cause, if any.
	Err error `json:"-" xml:"-" yaml:"-"`
}

func (e FieldError) Error() string {
	if e.Field == Global {
		return e.Message
	}
	return e.Field + ": " + e.Message
}

func (e FieldError) Unwrap() error {
	return e.Err
}

// Errors is an ordered collection of field errors.
type Errors struct {
	list []FieldError
}

// Add records an error for field. The message is formatted with args.
func (e *Errors) Add(field, code, message string, args ...any) {
	if len(args) > 0 {
		message = fmt.Sprintf(message, args...)
	}
	e.list = append(e.list, FieldError{Field: field, Code: code, Message: message})
}

// AddError records fe.
func (e *Errors) AddError(fe FieldError) {
	e.list = append(e.list, fe)
}

// Merge appends all errors of o, prefixing their fields with prefix.
func (e *Errors) Merge(prefix string, o *Errors) {
	if o == nil {
		return
	}
	for _, fe := range o.list {
		fe.Field = JoinPath(prefix, fe.Field)
		e.list = append(e.list, fe)
	}
}

// Empty reports whether no error was recorded.
func (e *Errors) Empty() bool {
	return e == nil || len(e.list) == 0
}

// Len returns the number of errors.
func (e *Errors) Len() int {
	if e == nil {
		return 0
	}
	return len(e.list)
}

// All returns the errors in the order they were added.
func (e *Errors) All() []FieldError {
	if e == nil {
		return nil
	}
	return slices.Clone(e.list)
}

// Field returns the errors of one field.
func (e *Errors) Field(field string) []FieldError {
	if e == nil {
		return nil
	}
	var out []FieldError
	for _, fe := range e.list {
		if fe.Field == field {
			out = append(out, fe)
		}
	}
	return out
}

// Has reports whether field has at least one error.
func (e *Errors) Has(field string) bool {
	return len(e.Field(field)) > 0
}

// Fields returns the distinct fields with errors in first-seen order.
func (e *Errors) Fields() []string {
	if e == nil {
		return nil
	}
	var out []string
	for _, fe := range e.list {
		if !slices.Contains(out, fe.Field) {
			out = append(out, fe.Field)
		}
	}
	return out
}

// Map groups error messages by field.
func (e *Errors) Map() map[string][]string {
	out := make(map[string][]string)
	for _, fe := range e.All() {
		out[fe.Field] = append(out[fe.Field], fe.Message)
	}
	return out
}

// Err returns nil when empty and the collection itself otherwise.
func (e *Errors) Err() error {
	if e.Empty() {
		return nil
	}
	return e
}

func (e *Errors) Error() string {
	msgs := make([]string, 0, e.Len())
	for _, fe := range e.All() {
		msgs = append(msgs, fe.Error())
	}
	return strings.Join(msgs, "; ")
}

// Unwrap exposes the individual field errors to errors.Is and errors.As.
func (e *Errors) Unwrap() []error {
	out := make([]error, 0, e.Len())
	for _, fe := range e.All() {
		out = append(out, fe)
	}
	return out
}

// Notices are informational messages shown to the user after a request.
type Notices struct {
	list []string
}

// Add records a notice. The message is formatted with args.
func (n *Notices) Add(message string, args ...any) {
	if len(args) > 0 {
		message = fmt.Sprintf(message, args...)
	}
	n.list = append(n.list, message)
}

// All returns the notices in the order they were added.
func (n *Notices) All() []string {
	if n == nil {
		return nil
	}
	return slices.Clone(n.list)
}

// Empty reports whether no notice was recorded.
func (n *Notices) Empty() bool {
	return n == nil || len(n.list) == 0
}

// JoinPath joins dotted field path elements, skipping empty ones.
func JoinPath(prefix, field string) string {
	switch {
	case prefix == "":
		return field
	case field == "":
		return prefix
	case strings.HasPrefix(field, "["):
		return prefix + field
	}
	return prefix + "." + field
}
