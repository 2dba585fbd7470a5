package validate

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/CommerceBoard/geemvc/adapter"
	"github.com/CommerceBoard/geemvc/bind"
	"github.com/CommerceBoard/geemvc/notice"
)

// TagsWeight is the weight of the struct tag validator. Validators with a
// lower weight run before it.
const TagsWeight = 100

// Register declares the validator capability on b and registers the struct
// tag validator.
func Register(b *adapter.Builder) *adapter.Builder {
	return b.Capability(adapter.Validator, Capability).Register(adapter.Registration{
		Kind:     adapter.Validator,
		Name:     "tags",
		Weight:   TagsWeight,
		Instance: NewTags(),
	})
}

// Tags validates structs by their `validate` tags. Field errors are recorded
// under the same dotted paths the values were bound from.
type Tags struct {
	engine *validator.Validate
}

// NewTags returns a struct tag validator.
func NewTags() *Tags {
	return &Tags{engine: validator.New(validator.WithRequiredStructEnabled())}
}

// Engine returns the underlying validator, e.g. to register custom tags.
func (t *Tags) Engine() *validator.Validate {
	return t.engine
}

// CanHandle accepts structs and pointers to structs.
func (t *Tags) CanHandle(rt reflect.Type) bool {
	for rt != nil && rt.Kind() == reflect.Pointer {
		rt = rt.Elem()
	}
	return rt != nil && rt.Kind() == reflect.Struct
}

func (t *Tags) Validate(v any, errs *notice.Errors) {
	if isNil(v) {
		return
	}

	err := t.engine.Struct(v)
	if err == nil {
		return
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		errs.AddError(notice.FieldError{Field: notice.Global, Code: "invalid", Message: err.Error(), Err: err})
		return
	}

	root := reflect.TypeOf(v)
	for _, e := range verrs {
		errs.AddError(notice.FieldError{
			Field:   fieldPath(root, e.StructNamespace()),
			Code:    e.Tag(),
			Message: message(e),
			Value:   e.Value(),
			Err:     e,
		})
	}
}

// fieldPath converts a validator struct namespace such as
// "Person.Address.City" or "Person.Items[0].Name" to the bound field path
// "address.city" or "items[0].name".
func fieldPath(root reflect.Type, ns string) string {
	parts := strings.Split(ns, ".")
	if len(parts) > 0 {
		parts = parts[1:]
	}

	t := deref(root)
	path := ""
	for _, part := range parts {
		name, index, indexed := strings.Cut(part, "[")

		seg := name
		if t != nil && t.Kind() == reflect.Struct {
			if f, ok := t.FieldByName(name); ok {
				seg, _ = bind.FieldName(f)
				t = f.Type
			} else {
				t = nil
			}
		}
		path = notice.JoinPath(path, seg)

		if indexed {
			path += "[" + index
			for range strings.Count(index, "[") + 1 {
				if t = deref(t); t != nil && (t.Kind() == reflect.Slice || t.Kind() == reflect.Array || t.Kind() == reflect.Map) {
					t = t.Elem()
				}
			}
		}
		t = deref(t)
	}
	return path
}

func deref(t reflect.Type) reflect.Type {
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return t
}

func message(e validator.FieldError) string {
	switch e.Tag() {
	case "required", "required_if", "required_with", "required_without":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "url":
		return "must be a valid URL"
	case "min", "gte":
		if e.Kind() == reflect.String {
			return fmt.Sprintf("must be at least %s characters", e.Param())
		}
		return fmt.Sprintf("must be at least %s", e.Param())
	case "max", "lte":
		if e.Kind() == reflect.String {
			return fmt.Sprintf("must be at most %s characters", e.Param())
		}
		return fmt.Sprintf("must be at most %s", e.Param())
	case "len":
		return fmt.Sprintf("must have length %s", e.Param())
	case "oneof":
		return fmt.Sprintf("must be one of [%s]", e.Param())
	}
	return fmt.Sprintf("failed validation (%s)", e.Tag())
}
