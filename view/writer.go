package view

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"maps"
	"net/http"

	"go.uber.org/zap"

	"github.com/CommerceBoard/geemvc/adapter"
)

// DefaultView is the renderer used for view names no renderer claims.
const DefaultView = "json"

// ErrNoRedirectTarget is returned for a redirect without URL.
var ErrNoRedirectTarget = errors.New("view: redirect without target")

// Option configures a Writer.
type Option func(*Writer)

// WithDefault sets the name of the renderer used for unclaimed view names.
func WithDefault(name string) Option {
	return func(w *Writer) {
		if name != "" {
			w.def = name
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(w *Writer) {
		if l != nil {
			w.logger = l
		}
	}
}

// Writer writes results using the view adapters of a registry.
type Writer struct {
	registry *adapter.Registry
	def      string
	logger   *zap.Logger
}

// NewWriter returns a writer using the renderers of reg.
func NewWriter(reg *adapter.Registry, opts ...Option) *Writer {
	w := &Writer{registry: reg, def: DefaultView, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Find returns the renderer handling view, or else the default renderer.
func (w *Writer) Find(view string) (Renderer, error) {
	d, ok := w.registry.Select(adapter.View, func(d adapter.Descriptor) bool {
		r, ok := d.Instance.(Renderer)
		return ok && r.Handles(view)
	})
	if !ok {
		d, ok = w.registry.Select(adapter.View, func(d adapter.Descriptor) bool {
			return d.Name == w.def
		})
	}
	if !ok {
		return nil, &adapter.NoAdapterError{Kind: adapter.View, What: view}
	}
	r, ok := d.Instance.(Renderer)
	if !ok {
		return nil, fmt.Errorf("view: adapter %s is %T, not a renderer", d.Name, d.Instance)
	}
	return r, nil
}

// Write responds to r with res. The model supplies the bindings, errors and
// notices of the request; result bindings take precedence over model
// bindings. When an error is returned before anything was written the
// caller may still write an error response.
func (w *Writer) Write(rw http.ResponseWriter, r *http.Request, res *Result, m *Model) error {
	if res == nil {
		res = StatusOf(http.StatusNoContent, "")
	}
	code := res.StatusCode(r.Method)

	switch res.Kind {
	case Redirect:
		if res.View == "" {
			return ErrNoRedirectTarget
		}
		http.Redirect(rw, r, res.View, code)
		return nil

	case Status:
		if res.Message == "" {
			rw.WriteHeader(code)
			return nil
		}
		http.Error(rw, res.Message, code)
		return nil

	case Stream:
		if closer, ok := res.Body.(io.Closer); ok {
			defer closer.Close()
		}
		ct := res.ContentType
		if ct == "" {
			ct = "application/octet-stream"
		}
		rw.Header().Set("Content-Type", ct)
		rw.WriteHeader(code)
		if res.Body == nil {
			return nil
		}
		_, err := io.Copy(rw, res.Body)
		return err
	}

	return w.forward(rw, res, m, code)
}

func (w *Writer) forward(rw http.ResponseWriter, res *Result, m *Model, code int) error {
	renderer, err := w.Find(res.View)
	if err != nil {
		return err
	}

	model := &Model{View: res.View, Status: code}
	if m != nil {
		model.Errors = m.Errors
		model.Notices = m.Notices
		model.Bindings = maps.Clone(m.Bindings)
	}
	if len(res.Bindings) > 0 {
		if model.Bindings == nil {
			model.Bindings = make(map[string]any, len(res.Bindings))
		}
		maps.Copy(model.Bindings, res.Bindings)
	}

	var buf bytes.Buffer
	if err := renderer.Render(&buf, model); err != nil {
		return fmt.Errorf("view: render %q: %w", res.View, err)
	}

	w.logger.Debug("view rendered",
		zap.String("view", res.View),
		zap.String("content_type", renderer.ContentType()),
		zap.Int("status", code),
		zap.Int("bytes", buf.Len()),
	)

	rw.Header().Set("Content-Type", renderer.ContentType())
	rw.WriteHeader(code)
	_, err = rw.Write(buf.Bytes())
	return err
}
