package convert

import (
	"encoding"
	"fmt"
	"net"
	"net/url"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cast"

	"github.com/CommerceBoard/geemvc/adapter"
)

var (
	timeType     = reflect.TypeFor[time.Time]()
	durationType = reflect.TypeFor[time.Duration]()
	uuidType     = reflect.TypeFor[uuid.UUID]()
	urlType      = reflect.TypeFor[url.URL]()
	ipType       = reflect.TypeFor[net.IP]()
	textType     = reflect.TypeFor[encoding.TextUnmarshaler]()
)

// Option configures the built-in converters.
type Option func(*options)

type options struct {
	timeLayouts []string
}

// WithTimeLayouts adds layouts tried after the common time formats.
func WithTimeLayouts(layouts ...string) Option {
	return func(o *options) {
		o.timeLayouts = append(o.timeLayouts, layouts...)
	}
}

// Register declares the converter capability on b and registers the
// built-in converters.
func Register(b *adapter.Builder, opts ...Option) *adapter.Builder {
	return b.Capability(adapter.Converter, Capability).Register(Defaults(opts...)...)
}

// Defaults returns the registrations of the built-in converters.
func Defaults(opts ...Option) []adapter.Registration {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}

	return []adapter.Registration{
		{Kind: adapter.Converter, Name: "time", Target: timeType, Weight: WeightSpecial, Instance: timeConverter{layouts: o.timeLayouts}},
		{Kind: adapter.Converter, Name: "duration", Target: durationType, Weight: WeightSpecial, Instance: durationConverter{}},
		{Kind: adapter.Converter, Name: "uuid", Target: uuidType, Weight: WeightSpecial, Instance: uuidConverter{}},
		{Kind: adapter.Converter, Name: "url", Target: urlType, Weight: WeightSpecial, Instance: urlConverter{}},
		{Kind: adapter.Converter, Name: "ip", Target: ipType, Weight: WeightSpecial, Instance: ipConverter{}},
		{Kind: adapter.Converter, Name: "text", Target: textType, Weight: WeightText, Instance: textConverter{}},
		{Kind: adapter.Converter, Name: "string", Target: reflect.TypeFor[string](), Weight: WeightKind, Instance: stringConverter{}},
		{Kind: adapter.Converter, Name: "bool", Target: reflect.TypeFor[bool](), Weight: WeightKind, Instance: boolConverter{}},
		{Kind: adapter.Converter, Name: "int", Target: reflect.TypeFor[int](), Weight: WeightKind, Instance: intConverter{}},
		{Kind: adapter.Converter, Name: "uint", Target: reflect.TypeFor[uint](), Weight: WeightKind, Instance: uintConverter{}},
		{Kind: adapter.Converter, Name: "float", Target: reflect.TypeFor[float64](), Weight: WeightKind, Instance: floatConverter{}},
		{Kind: adapter.Converter, Name: "any", Target: reflect.TypeFor[any](), Weight: WeightAny, Instance: anyConverter{}},
	}
}

func kindIn(t reflect.Type, kinds ...reflect.Kind) bool {
	for _, k := range kinds {
		if t.Kind() == k {
			return true
		}
	}
	return false
}

type stringConverter struct{}

func (stringConverter) CanHandle(t reflect.Type) bool {
	return t.Kind() == reflect.String
}

func (stringConverter) Convert(raw string, t reflect.Type) (reflect.Value, error) {
	return reflect.ValueOf(raw).Convert(t), nil
}

type boolConverter struct{}

func (boolConverter) CanHandle(t reflect.Type) bool {
	return t.Kind() == reflect.Bool
}

// Convert accepts true/false, 1/0, yes/no, on/off, t/f and y/n in any case.
func (boolConverter) Convert(raw string, t reflect.Type) (reflect.Value, error) {
	var b bool
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "true", "1", "yes", "on", "t", "y":
		b = true
	case "false", "0", "no", "off", "f", "n":
	default:
		return reflect.Value{}, fmt.Errorf("convert: invalid boolean %q", raw)
	}
	return reflect.ValueOf(b).Convert(t), nil
}

type intConverter struct{}

func (intConverter) CanHandle(t reflect.Type) bool {
	return t != durationType && kindIn(t, reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64)
}

func (intConverter) Convert(raw string, t reflect.Type) (reflect.Value, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return reflect.Value{}, ErrEmpty
	}
	i, err := strconv.ParseInt(raw, 10, t.Bits())
	if err != nil {
		return reflect.Value{}, fmt.Errorf("convert: invalid integer %q: %w", raw, err)
	}
	v := reflect.New(t).Elem()
	v.SetInt(i)
	return v, nil
}

type uintConverter struct{}

func (uintConverter) CanHandle(t reflect.Type) bool {
	return kindIn(t, reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64)
}

func (uintConverter) Convert(raw string, t reflect.Type) (reflect.Value, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return reflect.Value{}, ErrEmpty
	}
	u, err := strconv.ParseUint(raw, 10, t.Bits())
	if err != nil {
		return reflect.Value{}, fmt.Errorf("convert: invalid unsigned integer %q: %w", raw, err)
	}
	v := reflect.New(t).Elem()
	v.SetUint(u)
	return v, nil
}

type floatConverter struct{}

func (floatConverter) CanHandle(t reflect.Type) bool {
	return kindIn(t, reflect.Float32, reflect.Float64)
}

func (floatConverter) Convert(raw string, t reflect.Type) (reflect.Value, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return reflect.Value{}, ErrEmpty
	}
	f, err := strconv.ParseFloat(raw, t.Bits())
	if err != nil {
		return reflect.Value{}, fmt.Errorf("convert: invalid number %q: %w", raw, err)
	}
	v := reflect.New(t).Elem()
	v.SetFloat(f)
	return v, nil
}

type timeConverter struct {
	layouts []string
}

// Convert tries the formats known to cast (RFC 3339, date only, RFC 1123
// and others) and then the configured layouts.
func (c timeConverter) Convert(raw string, _ reflect.Type) (reflect.Value, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return reflect.Value{}, ErrEmpty
	}

	if t, err := cast.ToTimeE(raw); err == nil {
		return reflect.ValueOf(t), nil
	}

	for _, layout := range c.layouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return reflect.ValueOf(t), nil
		}
	}

	return reflect.Value{}, fmt.Errorf("convert: unable to parse time %q", raw)
}

type durationConverter struct{}

// Convert parses Go duration strings; a bare integer is nanoseconds.
func (durationConverter) Convert(raw string, _ reflect.Type) (reflect.Value, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return reflect.Value{}, ErrEmpty
	}
	d, err := cast.ToDurationE(raw)
	if err != nil {
		return reflect.Value{}, fmt.Errorf("convert: invalid duration %q: %w", raw, err)
	}
	return reflect.ValueOf(d), nil
}

type uuidConverter struct{}

func (uuidConverter) Convert(raw string, _ reflect.Type) (reflect.Value, error) {
	id, err := uuid.Parse(strings.TrimSpace(raw))
	if err != nil {
		return reflect.Value{}, fmt.Errorf("convert: invalid uuid %q: %w", raw, err)
	}
	return reflect.ValueOf(id), nil
}

type urlConverter struct{}

func (urlConverter) Convert(raw string, _ reflect.Type) (reflect.Value, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return reflect.Value{}, fmt.Errorf("convert: invalid url: %w", err)
	}
	return reflect.ValueOf(*u), nil
}

type ipConverter struct{}

func (ipConverter) Convert(raw string, _ reflect.Type) (reflect.Value, error) {
	ip := net.ParseIP(strings.TrimSpace(raw))
	if ip == nil {
		return reflect.Value{}, fmt.Errorf("convert: invalid ip address %q", raw)
	}
	return reflect.ValueOf(ip), nil
}

// textConverter serves types whose pointer implements
// encoding.TextUnmarshaler.
type textConverter struct{}

func (textConverter) CanHandle(t reflect.Type) bool {
	return t.Kind() != reflect.Pointer && t.Kind() != reflect.Interface && reflect.PointerTo(t).Implements(textType)
}

func (textConverter) Convert(raw string, t reflect.Type) (reflect.Value, error) {
	ptr := reflect.New(t)
	if err := ptr.Interface().(encoding.TextUnmarshaler).UnmarshalText([]byte(raw)); err != nil {
		return reflect.Value{}, fmt.Errorf("convert: invalid %s %q: %w", t, raw, err)
	}
	return ptr.Elem(), nil
}

// anyConverter keeps the raw string for empty interface targets.
type anyConverter struct{}

func (anyConverter) CanHandle(t reflect.Type) bool {
	return t.Kind() == reflect.Interface && t.NumMethod() == 0
}

func (anyConverter) Convert(raw string, t reflect.Type) (reflect.Value, error) {
	v := reflect.New(t).Elem()
	v.Set(reflect.ValueOf(raw))
	return v, nil
}
