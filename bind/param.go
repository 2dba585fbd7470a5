package bind

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"reflect"
	"strings"

	"github.com/CommerceBoard/geemvc/notice"
	"github.com/CommerceBoard/geemvc/pathmatch"
)

// Param describes one handler parameter.
type Param struct {
	// Name is the request name of the value. Injected parameters have none;
	// a struct with an empty name binds its fields without prefix.
	Name   string
	Type   reflect.Type
	Source Source
	// Data loads the bean by id before binding request values onto it.
	Data     bool
	Required bool
	// Default is used when the request carries no value.
	Default string
}

// Injected reports whether the parameter is filled from the request context
// rather than from request values.
func (p Param) Injected() bool {
	return injectable(p.Type)
}

func (p Param) String() string {
	if p.Injected() {
		return p.Type.String()
	}
	var b strings.Builder
	if p.Data {
		b.WriteString("data:")
	} else if p.Source != Any {
		b.WriteString(p.Source.String())
		b.WriteByte(':')
	}
	b.WriteString(p.Name)
	if p.Required {
		b.WriteString(",required")
	}
	if p.Default != "" {
		b.WriteString(",default=")
		b.WriteString(p.Default)
	}
	return b.String()
}

var (
	contextType = reflect.TypeFor[context.Context]()
	requestType = reflect.TypeFor[*http.Request]()
	writerType  = reflect.TypeFor[http.ResponseWriter]()
	valuesType  = reflect.TypeFor[url.Values]()
	varsType    = reflect.TypeFor[pathmatch.Vars]()
	errorsType  = reflect.TypeFor[*notice.Errors]()
	noticesType = reflect.TypeFor[*notice.Notices]()
	bindReqType = reflect.TypeFor[*Request]()
)

func injectable(t reflect.Type) bool {
	switch t {
	case contextType, requestType, writerType, valuesType, varsType, errorsType, noticesType, bindReqType:
		return true
	}
	return false
}

// ParamsOf describes the parameters of fn. Injected parameters are
// recognized by type; every other parameter takes the next spec, in order.
//
// A spec is "[source:]name[,option...]" where source is a Source name or
// "data", and options are "required" and "default=value":
//
//	ParamsOf(update, "data:person", "path:id", "q,default=all")
func ParamsOf(fn any, specs ...string) ([]Param, error) {
	ft := reflect.TypeOf(fn)
	if ft == nil || ft.Kind() != reflect.Func {
		return nil, fmt.Errorf("bind: %T is not a function", fn)
	}

	params := make([]Param, 0, ft.NumIn())
	next := 0
	for i := range ft.NumIn() {
		t := ft.In(i)
		if injectable(t) {
			params = append(params, Param{Type: t})
			continue
		}
		if next >= len(specs) {
			return nil, fmt.Errorf("bind: parameter %d (%s) of %s has no name", i, t, ft)
		}
		p, err := ParseParam(specs[next], t)
		if err != nil {
			return nil, err
		}
		next++
		params = append(params, p)
	}
	if next < len(specs) {
		return nil, fmt.Errorf("bind: %d names for %d parameters of %s", len(specs), next, ft)
	}
	return params, nil
}

// ParseParam parses a parameter spec for a parameter of type t.
func ParseParam(spec string, t reflect.Type) (Param, error) {
	p := Param{Type: t}

	head, opts, _ := strings.Cut(spec, ",")
	if src, name, ok := strings.Cut(head, ":"); ok {
		if src == "data" {
			p.Data = true
		} else {
			s, err := ParseSource(src)
			if err != nil {
				return Param{}, err
			}
			p.Source = s
		}
		head = name
	}
	p.Name = strings.TrimSpace(head)
	if p.Name == "" && t.Kind() != reflect.Struct && !(t.Kind() == reflect.Pointer && t.Elem().Kind() == reflect.Struct) {
		return Param{}, fmt.Errorf("bind: empty name in %q", spec)
	}

	for opts != "" {
		var opt string
		opt, opts, _ = strings.Cut(opts, ",")
		key, value, _ := strings.Cut(strings.TrimSpace(opt), "=")
		switch key {
		case "required":
			p.Required = true
		case "default":
			p.Default = value
		default:
			return Param{}, fmt.Errorf("bind: unknown option %q in %q", key, spec)
		}
	}
	return p, nil
}
