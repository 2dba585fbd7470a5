package bind

import (
	"errors"
	"fmt"
	"reflect"
	"slices"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/CommerceBoard/geemvc/adapter"
	"github.com/CommerceBoard/geemvc/notice"
)

// state binds one parameter from one value source.
type state struct {
	binder *Binder
	src    ValueSource
	req    *Request
	errs   *notice.Errors
	all    map[string][]string
}

func (s *state) values() map[string][]string {
	if s.all == nil {
		s.all = s.src.Values(s.req)
		if s.all == nil {
			s.all = map[string][]string{}
		}
	}
	return s.all
}

// hasPrefix reports whether any request name is path or starts with path
// followed by a separator.
func (s *state) hasPrefix(path string) bool {
	for name := range s.values() {
		rest, ok := strings.CutPrefix(name, path)
		if ok && (rest == "" || rest[0] == '.' || rest[0] == '[') {
			return true
		}
	}
	return false
}

// bindInto binds the value named path into the settable dst. It reports
// whether the request carried a value for path.
func (s *state) bindInto(path string, dst reflect.Value, depth int) (bool, error) {
	t := dst.Type()

	if s.binder.converter.CanConvert(t) {
		raw, ok := s.src.Lookup(s.req, path)
		if !ok {
			return false, nil
		}
		return s.bindRaw(path, raw, dst)
	}

	if t.Kind() == reflect.Slice && t.Elem().Kind() == reflect.Uint8 {
		raw, ok := s.src.Lookup(s.req, path)
		if !ok || len(raw) == 0 {
			return false, nil
		}
		dst.Set(reflect.ValueOf([]byte(raw[0])).Convert(t))
		return true, nil
	}

	if path != "" && !s.hasPrefix(path) {
		return false, nil
	}

	switch t.Kind() {
	case reflect.Pointer:
		if dst.IsNil() {
			v := reflect.New(t.Elem())
			found, err := s.bindInto(path, v.Elem(), depth)
			if found {
				dst.Set(v)
			}
			return found, err
		}
		return s.bindInto(path, dst.Elem(), depth)
	case reflect.Slice:
		return s.bindSlice(path, dst, depth)
	case reflect.Array:
		tmp := reflect.New(reflect.SliceOf(t.Elem())).Elem()
		found, err := s.bindSlice(path, tmp, depth)
		if found {
			reflect.Copy(dst, tmp)
		}
		return found, err
	case reflect.Map:
		return s.bindMap(path, dst, depth)
	case reflect.Struct:
		return s.bindStruct(path, dst, depth)
	}
	return false, nil
}

// bindRaw converts the first of raw into dst, or all of raw when dst is a
// slice of convertible elements. An empty value leaves dst unset unless it
// is a string.
func (s *state) bindRaw(path string, raw []string, dst reflect.Value) (bool, error) {
	if len(raw) == 0 {
		return false, nil
	}
	t := dst.Type()
	if t.Kind() == reflect.Slice && !s.binder.converter.CanConvert(t) {
		return s.bindScalars(path, raw, dst)
	}
	if raw[0] == "" && !stringKind(t) {
		return true, nil
	}
	_, err := s.convertInto(path, raw[0], dst)
	return true, err
}

// convertInto converts raw into dst. A conversion failure is recorded as a
// field error; only a missing converter is returned.
func (s *state) convertInto(path, raw string, dst reflect.Value) (bool, error) {
	v, err := s.binder.converter.Convert(raw, dst.Type())
	if err != nil {
		var nae *adapter.NoAdapterError
		if errors.As(err, &nae) {
			return false, err
		}
		s.errs.AddError(notice.FieldError{
			Field:   path,
			Code:    CodeConversion,
			Message: fmt.Sprintf("invalid value %q", raw),
			Value:   raw,
			Err:     err,
		})
		return false, nil
	}
	dst.Set(v)
	return true, nil
}

func (s *state) bindSlice(path string, dst reflect.Value, depth int) (bool, error) {
	if path == "" {
		return false, nil
	}
	t := dst.Type()

	if s.binder.converter.CanConvert(t.Elem()) {
		raw := s.scalars(path)
		if raw == nil {
			return false, nil
		}
		return s.bindScalars(path, raw, dst)
	}

	indices := s.indices(path)
	if len(indices) == 0 {
		return false, nil
	}
	if limit := s.binder.maxSliceLen; len(indices) > limit {
		s.errs.Add(path, CodeTooMany, "more than %d elements", limit)
		indices = indices[:limit]
	}

	out := reflect.MakeSlice(t, 0, len(indices))
	for _, i := range indices {
		ev := reflect.New(t.Elem()).Elem()
		found, err := s.bindInto(indexPath(path, i), ev, depth+1)
		if err != nil {
			return true, err
		}
		if found {
			out = reflect.Append(out, ev)
		}
	}
	dst.Set(out)
	return true, nil
}

func (s *state) bindScalars(path string, raw []string, dst reflect.Value) (bool, error) {
	t := dst.Type()
	if limit := s.binder.maxSliceLen; len(raw) > limit {
		s.errs.Add(path, CodeTooMany, "more than %d elements", limit)
		raw = raw[:limit]
	}

	out := reflect.MakeSlice(t, 0, len(raw))
	for i, r := range raw {
		ev := reflect.New(t.Elem()).Elem()
		if r == "" && !stringKind(ev.Type()) {
			continue
		}
		ok, err := s.convertInto(indexPath(path, i), r, ev)
		if err != nil {
			return true, err
		}
		if ok {
			out = reflect.Append(out, ev)
		}
	}
	dst.Set(out)
	return true, nil
}

// scalars returns the raw values of a slice named path: all values of path
// or "path[]", or else the indexed values "path[0]", "path[1]" in index
// order. It returns nil when there are none.
func (s *state) scalars(path string) []string {
	if raw, ok := s.src.Lookup(s.req, path); ok {
		return raw
	}
	if raw, ok := s.src.Lookup(s.req, path+"[]"); ok {
		return raw
	}

	var out []string
	for _, i := range s.indices(path) {
		if raw, ok := s.src.Lookup(s.req, indexPath(path, i)); ok && len(raw) > 0 {
			out = append(out, raw[0])
		}
	}
	return out
}

// indices returns the sorted distinct indices i of names starting with
// "path[i]".
func (s *state) indices(path string) []int {
	var out []int
	for name := range s.values() {
		rest, ok := strings.CutPrefix(name, path+"[")
		if !ok {
			continue
		}
		end := strings.IndexByte(rest, ']')
		if end <= 0 {
			continue
		}
		i, err := strconv.Atoi(rest[:end])
		if err != nil || i < 0 {
			continue
		}
		out = append(out, i)
	}
	slices.Sort(out)
	return slices.Compact(out)
}

type mapEntry struct {
	key  string
	path string
}

// mapKeys returns the keys of a map named path, from names of the form
// "path[key]" and "path.key", sorted by key. Quotes around keys are
// removed.
func (s *state) mapKeys(path string) []mapEntry {
	seen := make(map[string]bool)
	var out []mapEntry
	for name := range s.values() {
		rest, ok := strings.CutPrefix(name, path)
		if !ok || rest == "" {
			continue
		}

		var key, sub string
		switch rest[0] {
		case '[':
			end := strings.IndexByte(rest, ']')
			if end < 0 {
				continue
			}
			key, sub = rest[1:end], path+rest[:end+1]
		case '.':
			r := rest[1:]
			end := strings.IndexAny(r, ".[")
			if end < 0 {
				end = len(r)
			}
			key, sub = r[:end], path+"."+r[:end]
		default:
			continue
		}

		key = strings.Trim(key, `"'`)
		if key == "" || seen[sub] {
			continue
		}
		seen[sub] = true
		out = append(out, mapEntry{key: key, path: sub})
	}
	slices.SortFunc(out, func(a, b mapEntry) int {
		return strings.Compare(a.key, b.key)
	})
	return out
}

func (s *state) bindMap(path string, dst reflect.Value, depth int) (bool, error) {
	if path == "" {
		return false, nil
	}
	t := dst.Type()
	if !s.binder.converter.CanConvert(t.Key()) {
		return false, &adapter.NoAdapterError{Kind: adapter.Converter, Type: t.Key()}
	}

	entries := s.mapKeys(path)
	if len(entries) == 0 {
		return false, nil
	}
	if limit := s.binder.maxSliceLen; len(entries) > limit {
		s.errs.Add(path, CodeTooMany, "more than %d entries", limit)
		entries = entries[:limit]
	}

	if dst.IsNil() {
		dst.Set(reflect.MakeMapWithSize(t, len(entries)))
	}
	scalar := s.binder.converter.CanConvert(t.Elem())
	for _, e := range entries {
		kv := reflect.New(t.Key()).Elem()
		ok, err := s.convertInto(e.path, e.key, kv)
		if err != nil {
			return true, err
		}
		if !ok {
			continue
		}

		ev := reflect.New(t.Elem()).Elem()
		before := s.errs.Len()
		found, err := s.bindInto(e.path, ev, depth+1)
		if err != nil {
			return true, err
		}
		// A scalar entry that failed to convert is left out of the map.
		if found && (s.errs.Len() == before || !scalar) {
			dst.SetMapIndex(kv, ev)
		}
	}
	return true, nil
}

func (s *state) bindStruct(path string, dst reflect.Value, depth int) (bool, error) {
	if depth > s.binder.maxDepth {
		return false, nil
	}
	t := dst.Type()

	found := false
	for i := range t.NumField() {
		f := t.Field(i)
		if !f.IsExported() && !(f.Anonymous && f.Type.Kind() == reflect.Struct) {
			continue
		}
		name, ok := FieldName(f)
		if !ok {
			continue
		}

		ff, err := s.bindInto(notice.JoinPath(path, name), dst.Field(i), depth+1)
		if err != nil {
			return found, err
		}
		found = found || ff
	}
	return found, nil
}

// FieldName returns the request name of a struct field: its `bind` tag
// name, or its Go name with a lower-case first letter ("ID" becomes "id").
// Embedded structs without a tag name have an empty name, promoting their
// fields. It returns false for fields tagged `bind:"-"`.
func FieldName(f reflect.StructField) (string, bool) {
	tag := f.Tag.Get("bind")
	if tag == "-" {
		return "", false
	}
	if name, _, _ := strings.Cut(tag, ","); name != "" {
		return name, true
	}

	if f.Anonymous {
		t := f.Type
		if t.Kind() == reflect.Pointer {
			t = t.Elem()
		}
		if t.Kind() == reflect.Struct {
			return "", true
		}
	}
	return lowerFirst(f.Name), true
}

func lowerFirst(s string) string {
	if strings.ToUpper(s) == s {
		return strings.ToLower(s)
	}
	r, size := utf8.DecodeRuneInString(s)
	return string(unicode.ToLower(r)) + s[size:]
}

func indexPath(path string, i int) string {
	return path + "[" + strconv.Itoa(i) + "]"
}

func stringKind(t reflect.Type) bool {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return t.Kind() == reflect.String
}
