package dispatch

import (
	"context"
	"net/http"

	"github.com/CommerceBoard/geemvc/handler"
	"github.com/CommerceBoard/geemvc/notice"
	"github.com/CommerceBoard/geemvc/pathmatch"
)

// matchContextKey is an unexported type for the single context key.
type matchContextKey struct{}

var ctxKey = matchContextKey{}

// matchContext holds the resolved handler and the request-scoped
// collections of the current request.
type matchContext struct {
	match   *handler.Match
	errors  *notice.Errors
	notices *notice.Notices
}

// Vars returns the path variables of the current request, if any.
func Vars(r *http.Request) pathmatch.Vars {
	if mc, ok := r.Context().Value(ctxKey).(*matchContext); ok && mc.match != nil {
		return mc.match.Vars
	}
	return nil
}

// VarGet returns the value of a single path variable and whether it exists.
func VarGet(r *http.Request, name string) (string, bool) {
	vars := Vars(r)
	if vars == nil {
		return "", false
	}
	v, ok := vars[name]
	return v, ok
}

// CurrentMatch returns the resolved handler of the current request. It is
// only set inside the dispatcher and the middleware it runs.
func CurrentMatch(r *http.Request) *handler.Match {
	if mc, ok := r.Context().Value(ctxKey).(*matchContext); ok {
		return mc.match
	}
	return nil
}

// Errors returns the field errors collected for the current request.
func Errors(r *http.Request) *notice.Errors {
	if mc, ok := r.Context().Value(ctxKey).(*matchContext); ok {
		return mc.errors
	}
	return nil
}

// Notices returns the notices collected for the current request.
func Notices(r *http.Request) *notice.Notices {
	if mc, ok := r.Context().Value(ctxKey).(*matchContext); ok {
		return mc.notices
	}
	return nil
}

// SetMatch stores m in the request context, returning the modified request.
// This is intended for testing handlers outside a dispatcher.
func SetMatch(r *http.Request, m *handler.Match) *http.Request {
	return setMatchContext(r, m)
}

func setMatchContext(r *http.Request, m *handler.Match) *http.Request {
	mc := &matchContext{match: m, errors: &notice.Errors{}, notices: &notice.Notices{}}
	return r.WithContext(context.WithValue(r.Context(), ctxKey, mc))
}

func matchContextOf(r *http.Request) *matchContext {
	mc, _ := r.Context().Value(ctxKey).(*matchContext)
	return mc
}
