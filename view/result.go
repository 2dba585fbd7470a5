// Package view turns handler results into responses.
//
// A handler returns a [Result]: forward to a named view with bindings,
// redirect, a bare status, or streamed content. Forwarded views are
// rendered by the view adapter that handles the view name, chosen by
// prefix ("json:person") or suffix ("person.json"); JSON, XML and YAML
// adapters are built in.
package view

import (
	"io"
	"net/http"
	"strings"
)

// Kind is the kind of a Result.
type Kind uint8

// Result kinds.
const (
	Forward Kind = iota
	Redirect
	Status
	Stream
)

func (k Kind) String() string {
	switch k {
	case Forward:
		return "forward"
	case Redirect:
		return "redirect"
	case Status:
		return "status"
	case Stream:
		return "stream"
	}
	return "unknown"
}

// RedirectPrefix marks a string handler result as a redirect.
const RedirectPrefix = "redirect:"

// Result is what a handler asks the dispatcher to respond with.
type Result struct {
	Kind Kind
	// View is the view name of a forward or the URL of a redirect.
	View     string
	Status   int
	Message  string
	Bindings map[string]any

	ContentType string
	Body        io.Reader
}

// ForwardTo returns a result rendering view.
func ForwardTo(view string) *Result {
	return &Result{Kind: Forward, View: view}
}

// RedirectTo returns a result redirecting to url.
func RedirectTo(url string) *Result {
	return &Result{Kind: Redirect, View: url}
}

// StatusOf returns a result writing only a status code and message.
func StatusOf(code int, message string) *Result {
	return &Result{Kind: Status, Status: code, Message: message}
}

// StreamOf returns a result copying body to the response. A body that is an
// io.Closer is closed afterwards.
func StreamOf(contentType string, body io.Reader) *Result {
	return &Result{Kind: Stream, ContentType: contentType, Body: body}
}

// FromString interprets a string handler result: "redirect:/path" redirects,
// anything else forwards to the named view.
func FromString(s string) *Result {
	if url, ok := strings.CutPrefix(s, RedirectPrefix); ok {
		return RedirectTo(url)
	}
	return ForwardTo(s)
}

// Bind adds a binding to the view and returns r.
func (r *Result) Bind(name string, v any) *Result {
	if r.Bindings == nil {
		r.Bindings = make(map[string]any)
	}
	r.Bindings[name] = v
	return r
}

// WithStatus sets the status code and returns r.
func (r *Result) WithStatus(code int) *Result {
	r.Status = code
	return r
}

// StatusCode returns the status code to write for a request with the given
// method.
func (r *Result) StatusCode(method string) int {
	if r.Status != 0 {
		return r.Status
	}
	switch r.Kind {
	case Redirect:
		switch method {
		case http.MethodGet, http.MethodHead:
			return http.StatusFound
		}
		return http.StatusSeeOther
	case Status:
		return http.StatusNoContent
	}
	return http.StatusOK
}
