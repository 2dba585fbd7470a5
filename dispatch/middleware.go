package dispatch

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// MiddlewareFunc receives an http.Handler and returns another http.Handler
// wrapping it.
type MiddlewareFunc func(http.Handler) http.Handler

// Middleware allows MiddlewareFunc to be used where a middleware value is
// expected.
func (mw MiddlewareFunc) Middleware(h http.Handler) http.Handler {
	return mw(h)
}

// chain wraps h with mws, the first middleware outermost.
func chain(h http.Handler, mws []MiddlewareFunc) http.Handler {
	for i := len(mws) - 1; i >= 0; i-- {
		h = mws[i](h)
	}
	return h
}

// RequestIDHeader is the default header carrying the request id.
const RequestIDHeader = "X-Request-ID"

type requestIDKey struct{}

// RequestIDFromContext returns the request id stored by RequestID, or "".
func RequestIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDKey{}).(string); ok {
		return id
	}
	return ""
}

// RequestIDConfig configures the RequestID middleware.
type RequestIDConfig struct {
	// HeaderName defaults to RequestIDHeader.
	HeaderName string

	// Generate returns a new id. Defaults to a UUID v4.
	Generate func(r *http.Request) string

	// TrustIncoming reuses the id of the incoming request header.
	TrustIncoming bool
}

// RequestID returns a middleware that sets a request id on the request, its
// context and the response.
func RequestID(cfg RequestIDConfig) MiddlewareFunc {
	headerName := cfg.HeaderName
	if headerName == "" {
		headerName = RequestIDHeader
	}

	generate := cfg.Generate
	if generate == nil {
		generate = func(*http.Request) string {
			return uuid.New().String()
		}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := ""
			if cfg.TrustIncoming {
				id = r.Header.Get(headerName)
			}
			if id == "" {
				id = generate(r)
			}

			if id != "" {
				r.Header.Set(headerName, id)
				w.Header().Set(headerName, id)
				r = r.WithContext(context.WithValue(r.Context(), requestIDKey{}, id))
			}

			next.ServeHTTP(w, r)
		})
	}
}

// Recovery returns a middleware that turns a panic in next into a 500
// response and logs it at error level.
func Recovery(logger *zap.Logger) MiddlewareFunc {
	if logger == nil {
		logger = zap.NewNop()
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					if rec == http.ErrAbortHandler {
						panic(rec)
					}

					fields := []zap.Field{
						zap.Any("panic", rec),
						zap.String("method", r.Method),
						zap.String("path", r.URL.Path),
						zap.Stack("stack"),
					}
					if id := RequestIDFromContext(r.Context()); id != "" {
						fields = append(fields, zap.String("request_id", id))
					}
					if m := CurrentMatch(r); m != nil {
						fields = append(fields, zap.String("handler", m.Candidate.Name()))
					}
					logger.Error("handler panicked", fields...)

					http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}
