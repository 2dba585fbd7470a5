package view

import (
	"encoding/xml"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CommerceBoard/geemvc/adapter"
	"github.com/CommerceBoard/geemvc/notice"
)

type person struct {
	XMLName  xml.Name `json:"-" yaml:"-" xml:"person"`
	Forename string   `json:"forename" yaml:"forename" xml:"forename"`
	Age      int      `json:"age" yaml:"age" xml:"age"`
}

type closer struct {
	io.Reader
	closed bool
}

func (c *closer) Close() error {
	c.closed = true
	return nil
}

type textRenderer struct{}

func (textRenderer) Handles(view string) bool { return strings.HasSuffix(view, ".txt") }

func (textRenderer) ContentType() string { return "text/plain" }

func (textRenderer) Render(w io.Writer, m *Model) error {
	_, err := io.WriteString(w, "view "+m.View)
	return err
}

func newWriter(t *testing.T, opts []Option, regs ...adapter.Registration) *Writer {
	t.Helper()
	b := Register(adapter.NewBuilder())
	b.Register(regs...)
	reg, err := b.Build()
	require.NoError(t, err)
	return NewWriter(reg, opts...)
}

func TestFromString(t *testing.T) {
	assert.Equal(t, &Result{Kind: Redirect, View: "/persons"}, FromString("redirect:/persons"))
	assert.Equal(t, &Result{Kind: Forward, View: "person.json"}, FromString("person.json"))
}

func TestStatusCode(t *testing.T) {
	tests := []struct {
		name     string
		result   *Result
		method   string
		expected int
	}{
		{name: "forward", result: ForwardTo("x"), method: http.MethodGet, expected: http.StatusOK},
		{name: "forward with status", result: ForwardTo("x").WithStatus(http.StatusCreated), method: http.MethodPost, expected: http.StatusCreated},
		{name: "redirect get", result: RedirectTo("/"), method: http.MethodGet, expected: http.StatusFound},
		{name: "redirect post", result: RedirectTo("/"), method: http.MethodPost, expected: http.StatusSeeOther},
		{name: "status", result: &Result{Kind: Status}, method: http.MethodDelete, expected: http.StatusNoContent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.result.StatusCode(tt.method))
		})
	}
}

func TestEncodingHandles(t *testing.T) {
	tests := []struct {
		view     string
		handles  bool
		stripped string
	}{
		{view: "json", handles: true, stripped: ""},
		{view: "json:person", handles: true, stripped: "person"},
		{view: "person.json", handles: true, stripped: "person"},
		{view: "person.xml", handles: false},
		{view: "jsonish", handles: false},
	}

	for _, tt := range tests {
		t.Run(tt.view, func(t *testing.T) {
			assert.Equal(t, tt.handles, JSON.Handles(tt.view))
			if tt.handles {
				assert.Equal(t, tt.stripped, JSON.Strip(tt.view))
			}
		})
	}
}

func TestWriteForward(t *testing.T) {
	w := newWriter(t, nil)
	errs := &notice.Errors{}
	errs.Add("person.age", "min", "must be at least 0")
	notices := &notice.Notices{}
	notices.Add("saved")

	model := &Model{
		Bindings: map[string]any{"person": person{Forename: "Michael", Age: 40}, "q": "old"},
		Errors:   errs,
		Notices:  notices,
	}

	t.Run("json", func(t *testing.T) {
		rec := httptest.NewRecorder()
		res := ForwardTo("json:persons/show").Bind("q", "new").WithStatus(http.StatusCreated)
		require.NoError(t, w.Write(rec, httptest.NewRequest(http.MethodGet, "/", nil), res, model))

		assert.Equal(t, http.StatusCreated, rec.Code)
		assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
		assert.JSONEq(t, `{
			"view": "persons/show",
			"data": {"person": {"forename": "Michael", "age": 40}, "q": "new"},
			"errors": [{"field": "person.age", "code": "min", "message": "must be at least 0"}],
			"notices": ["saved"]
		}`, rec.Body.String())
		assert.Equal(t, "old", model.Bindings["q"])
	})

	t.Run("xml", func(t *testing.T) {
		rec := httptest.NewRecorder()
		require.NoError(t, w.Write(rec, httptest.NewRequest(http.MethodGet, "/", nil), ForwardTo("person.xml"), &Model{
			Bindings: map[string]any{"person": person{Forename: "Anna", Age: 30}},
		}))

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "application/xml", rec.Header().Get("Content-Type"))
		assert.Equal(t, `<view name="person"><data><person><forename>Anna</forename><age>30</age></person></data></view>`, rec.Body.String())
	})

	t.Run("xml with errors", func(t *testing.T) {
		rec := httptest.NewRecorder()
		require.NoError(t, w.Write(rec, httptest.NewRequest(http.MethodGet, "/", nil), ForwardTo("xml:person"), &Model{
			Errors:  errs,
			Notices: notices,
		}))

		assert.Equal(t, `<view name="person"><errors><error field="person.age" code="min">must be at least 0</error></errors><notices><notice>saved</notice></notices></view>`, rec.Body.String())
	})

	t.Run("yaml", func(t *testing.T) {
		rec := httptest.NewRecorder()
		require.NoError(t, w.Write(rec, httptest.NewRequest(http.MethodGet, "/", nil), ForwardTo("yaml:person"), &Model{
			Bindings: map[string]any{"person": person{Forename: "Anna", Age: 30}},
		}))

		assert.Equal(t, "application/yaml", rec.Header().Get("Content-Type"))
		assert.YAMLEq(t, "view: person\ndata:\n  person:\n    forename: Anna\n    age: 30\n", rec.Body.String())
	})

	t.Run("default renderer", func(t *testing.T) {
		rec := httptest.NewRecorder()
		require.NoError(t, w.Write(rec, httptest.NewRequest(http.MethodGet, "/", nil), ForwardTo("persons/list"), nil))

		assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
		assert.JSONEq(t, `{"view": "persons/list"}`, rec.Body.String())
	})

	t.Run("encode error writes nothing", func(t *testing.T) {
		rec := httptest.NewRecorder()
		res := ForwardTo("json").Bind("ch", make(chan int))
		err := w.Write(rec, httptest.NewRequest(http.MethodGet, "/", nil), res, nil)

		require.Error(t, err)
		assert.Empty(t, rec.Header().Get("Content-Type"))
		assert.Empty(t, rec.Body.String())
	})
}

func TestWriteCustomRenderer(t *testing.T) {
	w := newWriter(t, []Option{WithDefault("yaml")},
		adapter.Registration{Kind: adapter.View, Name: "text", Weight: 10, Instance: textRenderer{}})

	rec := httptest.NewRecorder()
	require.NoError(t, w.Write(rec, httptest.NewRequest(http.MethodGet, "/", nil), ForwardTo("index.txt"), nil))
	assert.Equal(t, "text/plain", rec.Header().Get("Content-Type"))
	assert.Equal(t, "view index.txt", rec.Body.String())

	r, err := w.Find("index")
	require.NoError(t, err)
	assert.Same(t, YAML, r)
}

func TestFindMissing(t *testing.T) {
	reg, err := adapter.NewBuilder().Build()
	require.NoError(t, err)

	_, err = NewWriter(reg).Find("person.json")
	assert.ErrorIs(t, err, adapter.ErrNoAdapter)
}

func TestWriteRedirect(t *testing.T) {
	w := newWriter(t, nil)

	rec := httptest.NewRecorder()
	require.NoError(t, w.Write(rec, httptest.NewRequest(http.MethodPost, "/persons", nil), FromString("redirect:/persons/7"), nil))
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/persons/7", rec.Header().Get("Location"))

	err := w.Write(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil), RedirectTo(""), nil)
	assert.True(t, errors.Is(err, ErrNoRedirectTarget))
}

func TestWriteStatus(t *testing.T) {
	w := newWriter(t, nil)

	rec := httptest.NewRecorder()
	require.NoError(t, w.Write(rec, httptest.NewRequest(http.MethodDelete, "/", nil), nil, nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, rec.Body.String())

	rec = httptest.NewRecorder()
	require.NoError(t, w.Write(rec, httptest.NewRequest(http.MethodGet, "/", nil), StatusOf(http.StatusForbidden, "not yours"), nil))
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "not yours\n", rec.Body.String())
}

func TestWriteStream(t *testing.T) {
	w := newWriter(t, nil)

	body := &closer{Reader: strings.NewReader("a,b\n1,2\n")}
	rec := httptest.NewRecorder()
	require.NoError(t, w.Write(rec, httptest.NewRequest(http.MethodGet, "/", nil), StreamOf("text/csv", body), nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/csv", rec.Header().Get("Content-Type"))
	assert.Equal(t, "a,b\n1,2\n", rec.Body.String())
	assert.True(t, body.closed)
}
