package mapping

import (
	"fmt"
	"net/http"
	"strings"

	"golang.org/x/net/http/httpguts"
)

// Method is an HTTP request method token. MethodAny matches every method.
type Method string

// MethodAny is the method of a mapping that accepts any request method.
const MethodAny Method = "*"

// Common methods.
const (
	MethodGet     Method = http.MethodGet
	MethodHead    Method = http.MethodHead
	MethodPost    Method = http.MethodPost
	MethodPut     Method = http.MethodPut
	MethodPatch   Method = http.MethodPatch
	MethodDelete  Method = http.MethodDelete
	MethodOptions Method = http.MethodOptions
	MethodTrace   Method = http.MethodTrace
	MethodConnect Method = http.MethodConnect
)

// ParseMethod parses a method token per RFC 7231 Section 4. Methods are
// upper-cased; "", "*" and "ANY" mean MethodAny.
func ParseMethod(s string) (Method, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	switch s {
	case "", "*", "ANY":
		return MethodAny, nil
	}
	if !httpguts.ValidHeaderFieldName(s) {
		return "", fmt.Errorf("mapping: invalid method %q", s)
	}
	return Method(s), nil
}

// Matches reports whether a request with the given method is accepted.
// A HEAD request is accepted by a GET mapping.
func (m Method) Matches(method string) bool {
	if m == MethodAny || string(m) == method {
		return true
	}
	return m == MethodGet && method == http.MethodHead
}

// Overlaps reports whether some request method is accepted by both m and o.
func (m Method) Overlaps(o Method) bool {
	return m == MethodAny || o == MethodAny || m == o
}

func (m Method) String() string {
	if m == MethodAny {
		return "ANY"
	}
	return string(m)
}
