package bind

import (
	"context"
	"fmt"
	"net/http"
	"net/textproto"
	"net/url"
	"reflect"
	"strings"

	"github.com/CommerceBoard/geemvc/adapter"
	"github.com/CommerceBoard/geemvc/notice"
	"github.com/CommerceBoard/geemvc/pathmatch"
)

// Source is the part of a request a parameter is bound from.
type Source uint8

// Sources.
const (
	// Any binds from form and query values and path variables; path
	// variables take precedence.
	Any Source = iota
	Query
	Form
	Path
	Header
	Cookie
)

var sourceNames = [...]string{
	Any:    "any",
	Query:  "query",
	Form:   "form",
	Path:   "path",
	Header: "header",
	Cookie: "cookie",
}

func (s Source) String() string {
	if int(s) < len(sourceNames) {
		return sourceNames[s]
	}
	return fmt.Sprintf("Source(%d)", s)
}

// ParseSource parses a source name as returned by Source.String.
func ParseSource(s string) (Source, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for i, name := range sourceNames {
		if name == s {
			return Source(i), nil
		}
	}
	return 0, fmt.Errorf("bind: unknown source %q", s)
}

// Request is the request-scoped input of a binding.
type Request struct {
	HTTP   *http.Request
	Writer http.ResponseWriter
	Vars   pathmatch.Vars

	Errors  *notice.Errors
	Notices *notice.Notices

	params url.Values
}

// NewRequest wraps an HTTP request. The form is parsed on first use; parse
// errors leave the values parsed so far.
func NewRequest(r *http.Request, w http.ResponseWriter, vars pathmatch.Vars) *Request {
	return &Request{HTTP: r, Writer: w, Vars: vars, Errors: &notice.Errors{}, Notices: &notice.Notices{}}
}

// NewParamsRequest returns a request that is not backed by HTTP, carrying
// only parameters and path variables.
func NewParamsRequest(params url.Values, vars pathmatch.Vars) *Request {
	if params == nil {
		params = url.Values{}
	}
	return &Request{Vars: vars, params: params, Errors: &notice.Errors{}, Notices: &notice.Notices{}}
}

// Context returns the request context.
func (r *Request) Context() context.Context {
	if r.HTTP != nil {
		return r.HTTP.Context()
	}
	return context.Background()
}

// Params returns the query and form values.
func (r *Request) Params() url.Values {
	if r.params == nil {
		r.params = url.Values{}
		if r.HTTP != nil {
			_ = r.HTTP.ParseForm()
			r.params = r.HTTP.Form
		}
	}
	return r.params
}

func (r *Request) query() url.Values {
	if r.HTTP != nil {
		return r.HTTP.URL.Query()
	}
	return r.Params()
}

func (r *Request) form() url.Values {
	if r.HTTP != nil {
		_ = r.HTTP.ParseForm()
		return r.HTTP.PostForm
	}
	return r.Params()
}

// ValueSource pulls raw values from one part of a request. It is the
// interface of parameter-binder adapters.
type ValueSource interface {
	Source() Source
	// Lookup returns the values of one name.
	Lookup(req *Request, name string) ([]string, bool)
	// Values returns all names and values.
	Values(req *Request) map[string][]string
}

// Capability is the interface every parameter-binder adapter implements.
var Capability = reflect.TypeFor[ValueSource]()

// DefaultSourceWeight is the weight of the built-in value sources.
const DefaultSourceWeight = 100

// Register declares the parameter-binder capability on b and registers the
// built-in value sources.
func Register(b *adapter.Builder) *adapter.Builder {
	b.Capability(adapter.ParamBinder, Capability)
	for _, s := range []ValueSource{anySource{}, querySource{}, formSource{}, pathSource{}, headerSource{}, cookieSource{}} {
		b.Register(adapter.Registration{
			Kind:     adapter.ParamBinder,
			Name:     s.Source().String(),
			Weight:   DefaultSourceWeight,
			Instance: s,
		})
	}
	return b
}

func lookup(values map[string][]string, name string) ([]string, bool) {
	v, ok := values[name]
	return v, ok
}

type anySource struct{}

func (anySource) Source() Source { return Any }

func (anySource) Lookup(req *Request, name string) ([]string, bool) {
	if v, ok := req.Vars[name]; ok {
		return []string{v}, true
	}
	return lookup(req.Params(), name)
}

func (anySource) Values(req *Request) map[string][]string {
	params := req.Params()
	out := make(map[string][]string, len(params)+len(req.Vars))
	for k, v := range params {
		out[k] = v
	}
	for k, v := range req.Vars {
		out[k] = []string{v}
	}
	return out
}

type querySource struct{}

func (querySource) Source() Source { return Query }

func (querySource) Lookup(req *Request, name string) ([]string, bool) {
	return lookup(req.query(), name)
}

func (querySource) Values(req *Request) map[string][]string {
	return req.query()
}

type formSource struct{}

func (formSource) Source() Source { return Form }

func (formSource) Lookup(req *Request, name string) ([]string, bool) {
	return lookup(req.form(), name)
}

func (formSource) Values(req *Request) map[string][]string {
	return req.form()
}

type pathSource struct{}

func (pathSource) Source() Source { return Path }

func (pathSource) Lookup(req *Request, name string) ([]string, bool) {
	v, ok := req.Vars[name]
	if !ok {
		return nil, false
	}
	return []string{v}, true
}

func (pathSource) Values(req *Request) map[string][]string {
	out := make(map[string][]string, len(req.Vars))
	for k, v := range req.Vars {
		out[k] = []string{v}
	}
	return out
}

// headerSource looks names up case-insensitively per RFC 7230 Section 3.2.
type headerSource struct{}

func (headerSource) Source() Source { return Header }

func (headerSource) Lookup(req *Request, name string) ([]string, bool) {
	if req.HTTP == nil {
		return nil, false
	}
	return lookup(req.HTTP.Header, textproto.CanonicalMIMEHeaderKey(name))
}

func (headerSource) Values(req *Request) map[string][]string {
	if req.HTTP == nil {
		return nil
	}
	return req.HTTP.Header
}

type cookieSource struct{}

func (cookieSource) Source() Source { return Cookie }

func (c cookieSource) Lookup(req *Request, name string) ([]string, bool) {
	return lookup(c.Values(req), name)
}

func (cookieSource) Values(req *Request) map[string][]string {
	if req.HTTP == nil {
		return nil
	}
	out := make(map[string][]string)
	for _, ck := range req.HTTP.Cookies() {
		out[ck.Name] = append(out[ck.Name], ck.Value)
	}
	return out
}
