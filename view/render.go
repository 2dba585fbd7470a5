package view

import (
	"encoding/json"
	"encoding/xml"
	"io"
	"reflect"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/CommerceBoard/geemvc/adapter"
	"github.com/CommerceBoard/geemvc/notice"
)

// Model is what a view adapter renders.
type Model struct {
	// View is the view name without the adapter's prefix or suffix.
	View     string
	Status   int
	Bindings map[string]any
	Errors   *notice.Errors
	Notices  *notice.Notices
}

// Renderer renders models. It is the interface of view adapters.
type Renderer interface {
	// Handles reports whether the renderer serves the view name.
	Handles(view string) bool
	// ContentType is the media type of rendered output.
	ContentType() string
	// Render writes the model to w.
	Render(w io.Writer, m *Model) error
}

// Capability is the interface every view adapter implements.
var Capability = reflect.TypeFor[Renderer]()

// Weights of the built-in renderers.
const (
	WeightJSON = 100
	WeightXML  = 110
	WeightYAML = 120
)

// Register declares the view capability on b and registers the JSON, XML and
// YAML renderers.
func Register(b *adapter.Builder) *adapter.Builder {
	return b.Capability(adapter.View, Capability).Register(
		adapter.Registration{Kind: adapter.View, Name: "json", Weight: WeightJSON, Instance: JSON},
		adapter.Registration{Kind: adapter.View, Name: "xml", Weight: WeightXML, Instance: XML},
		adapter.Registration{Kind: adapter.View, Name: "yaml", Weight: WeightYAML, Instance: YAML},
	)
}

// Document is the encoded form of a model.
type Document struct {
	XMLName xml.Name            `json:"-" yaml:"-" xml:"view"`
	View    string              `json:"view" yaml:"view" xml:"name,attr"`
	Data    Data                `json:"data,omitempty" yaml:"data,omitempty" xml:"data,omitempty"`
	Errors  []notice.FieldError `json:"errors,omitempty" yaml:"errors,omitempty" xml:"-"`
	Notices []string            `json:"notices,omitempty" yaml:"notices,omitempty" xml:"-"`
}

type xmlErrors struct {
	Items []notice.FieldError `xml:"error"`
}

type xmlNotices struct {
	Items []string `xml:"notice"`
}

// MarshalXML encodes errors and notices as wrapped lists that are left out
// entirely when empty.
func (d Document) MarshalXML(e *xml.Encoder, start xml.StartElement) error {
	out := struct {
		View    string      `xml:"name,attr"`
		Data    Data        `xml:"data,omitempty"`
		Errors  *xmlErrors  `xml:"errors"`
		Notices *xmlNotices `xml:"notices"`
	}{View: d.View, Data: d.Data}
	if len(d.Errors) > 0 {
		out.Errors = &xmlErrors{Items: d.Errors}
	}
	if len(d.Notices) > 0 {
		out.Notices = &xmlNotices{Items: d.Notices}
	}
	return e.EncodeElement(out, start)
}

// Data holds view bindings. In XML each binding is an element named after
// it, in name order.
type Data map[string]any

func (d Data) MarshalXML(e *xml.Encoder, start xml.StartElement) error {
	if err := e.EncodeToken(start); err != nil {
		return err
	}
	names := make([]string, 0, len(d))
	for name := range d {
		names = append(names, name)
	}
	slices.Sort(names)
	for _, name := range names {
		if err := e.EncodeElement(d[name], xml.StartElement{Name: xml.Name{Local: name}}); err != nil {
			return err
		}
	}
	return e.EncodeToken(start.End())
}

// NewDocument returns the document of m.
func NewDocument(m *Model) *Document {
	return &Document{
		View:    m.View,
		Data:    Data(m.Bindings),
		Errors:  m.Errors.All(),
		Notices: m.Notices.All(),
	}
}

// Encoding renders documents with one encoding.
type Encoding struct {
	Name      string
	MediaType string
	Encode    func(w io.Writer, v any) error
}

// Built-in encodings.
var (
	JSON = &Encoding{Name: "json", MediaType: "application/json", Encode: func(w io.Writer, v any) error {
		return json.NewEncoder(w).Encode(v)
	}}
	XML = &Encoding{Name: "xml", MediaType: "application/xml", Encode: func(w io.Writer, v any) error {
		return xml.NewEncoder(w).Encode(v)
	}}
	YAML = &Encoding{Name: "yaml", MediaType: "application/yaml", Encode: func(w io.Writer, v any) error {
		enc := yaml.NewEncoder(w)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	}}
)

// Handles accepts "name:view", "view.name" and the bare encoding name.
func (e *Encoding) Handles(view string) bool {
	return view == e.Name || strings.HasPrefix(view, e.Name+":") || strings.HasSuffix(view, "."+e.Name)
}

// Strip removes the encoding prefix or suffix from view.
func (e *Encoding) Strip(view string) string {
	if view == e.Name {
		return ""
	}
	if v, ok := strings.CutPrefix(view, e.Name+":"); ok {
		return v
	}
	return strings.TrimSuffix(view, "."+e.Name)
}

func (e *Encoding) ContentType() string {
	return e.MediaType
}

func (e *Encoding) Render(w io.Writer, m *Model) error {
	doc := NewDocument(m)
	doc.View = e.Strip(m.View)
	return e.Encode(w, doc)
}
