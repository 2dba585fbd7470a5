package pathmatch

import (
	"fmt"
	"strings"
)

// CatchAll is the variable name bound by a bare trailing "*" segment.
const CatchAll = "*"

// Vars maps variable names to the path text they matched.
type Vars map[string]string

type segmentKind uint8

const (
	segLiteral segmentKind = iota
	segVar
	segPattern
	segCatchAll
)

type segment struct {
	kind    segmentKind
	literal string
	name    string
	re      *segmentRegexp
}

// Template is a compiled path template. It is immutable and safe for
// concurrent use.
type Template struct {
	raw      string
	segments []segment
	names    []string
	catchAll bool
}

// Compile parses a path template. Segments are separated by "/" and are
// either literal text, a variable "{name}", a constrained variable
// "{name:pattern}" or "{name:macro}", a segment mixing literal text and
// variables, or a trailing catch-all ("*" or "{name...}").
func Compile(tpl string) (*Template, error) {
	if !strings.HasPrefix(tpl, "/") {
		tpl = "/" + tpl
	}

	parts, err := splitTemplate(tpl)
	if err != nil {
		return nil, err
	}

	t := &Template{raw: tpl, segments: make([]segment, 0, len(parts))}

	for i, part := range parts {
		last := i == len(parts)-1

		seg, err := parseSegment(part)
		if err != nil {
			return nil, fmt.Errorf("%w in template %q", err, tpl)
		}

		switch seg.kind {
		case segCatchAll:
			if !last {
				return nil, fmt.Errorf("pathmatch: catch-all %q must be the last segment of %q", part, tpl)
			}
			t.catchAll = true
			t.names = append(t.names, seg.name)
		case segVar:
			t.names = append(t.names, seg.name)
		case segPattern:
			t.names = append(t.names, seg.re.names...)
		}

		t.segments = append(t.segments, seg)
	}

	if err := checkDuplicateVars(t.names); err != nil {
		return nil, fmt.Errorf("%w in template %q", err, tpl)
	}

	return t, nil
}

// MustCompile is like Compile but panics if the template is invalid.
func MustCompile(tpl string) *Template {
	t, err := Compile(tpl)
	if err != nil {
		panic(err)
	}
	return t
}

func parseSegment(part string) (segment, error) {
	if part == CatchAll {
		return segment{kind: segCatchAll, name: CatchAll}, nil
	}

	if !strings.ContainsAny(part, "{}") {
		return segment{kind: segLiteral, literal: part}, nil
	}

	idxs, err := braceIndices(part)
	if err != nil {
		return segment{}, err
	}

	// A segment that is exactly one unconstrained variable needs no regexp.
	if len(idxs) == 2 && idxs[0] == 0 && idxs[1] == len(part) {
		inner := part[1 : len(part)-1]
		if !strings.Contains(inner, ":") {
			if name, ok := strings.CutSuffix(inner, "..."); ok {
				if name == "" {
					return segment{}, fmt.Errorf("pathmatch: missing name in %q", part)
				}
				return segment{kind: segCatchAll, name: name}, nil
			}
			if inner == "" {
				return segment{}, fmt.Errorf("pathmatch: missing name in %q", part)
			}
			return segment{kind: segVar, name: inner}, nil
		}
	}

	re, err := newSegmentRegexp(part)
	if err != nil {
		return segment{}, err
	}

	return segment{kind: segPattern, re: re}, nil
}

// Match reports whether path matches the whole template and returns the
// extracted variables.
func (t *Template) Match(path string) (Vars, bool) {
	vars, _, ok := t.match(splitPath(path), false)
	return vars, ok
}

// MatchPrefix matches the template against the leading segments of path.
// On success it returns the extracted variables and the unmatched rest of
// the path, always starting with "/".
func (t *Template) MatchPrefix(path string) (Vars, string, bool) {
	parts := splitPath(path)

	vars, n, ok := t.match(parts, true)
	if !ok {
		return nil, "", false
	}

	return vars, "/" + strings.Join(parts[n:], "/"), true
}

// match walks the template segments over parts. Each segment position maps
// to exactly one template segment, so no backtracking is needed.
func (t *Template) match(parts []string, prefix bool) (Vars, int, bool) {
	if !prefix && !t.catchAll && len(parts) != len(t.segments) {
		return nil, 0, false
	}

	vars := make(Vars, len(t.names))

	for i, seg := range t.segments {
		if seg.kind == segCatchAll {
			vars[seg.name] = strings.Join(parts[i:], "/")
			return vars, len(parts), true
		}

		if i >= len(parts) {
			return nil, 0, false
		}

		switch seg.kind {
		case segLiteral:
			if parts[i] != seg.literal {
				return nil, 0, false
			}
		case segVar:
			if parts[i] == "" {
				return nil, 0, false
			}
			vars[seg.name] = parts[i]
		case segPattern:
			if !seg.re.match(parts[i], vars) {
				return nil, 0, false
			}
		}
	}

	return vars, len(t.segments), true
}

// String returns the template as compiled.
func (t *Template) String() string {
	return t.raw
}

// VarNames returns the variable names in order of appearance.
func (t *Template) VarNames() []string {
	names := make([]string, len(t.names))
	copy(names, t.names)
	return names
}

// Shape returns the template with variable names erased, so two templates
// with the same shape match exactly the same paths.
func (t *Template) Shape() string {
	if len(t.segments) == 0 {
		return "/"
	}

	var b strings.Builder
	for _, seg := range t.segments {
		b.WriteByte('/')
		switch seg.kind {
		case segLiteral:
			b.WriteString(seg.literal)
		case segVar:
			b.WriteString("{}")
		case segPattern:
			b.WriteString("{" + seg.re.regexp.String() + "}")
		case segCatchAll:
			b.WriteString("*")
		}
	}
	return b.String()
}

// HasCatchAll reports whether the template ends with a catch-all segment.
func (t *Template) HasCatchAll() bool {
	return t.catchAll
}

// Len returns the number of segments.
func (t *Template) Len() int {
	return len(t.segments)
}

// Join concatenates a base template and a sub template with exactly one
// "/" between them. An empty or "/" sub template yields the base.
func Join(base, sub string) string {
	base = strings.TrimRight(base, "/")
	sub = strings.Trim(sub, "/")

	switch {
	case sub == "" && base == "":
		return "/"
	case sub == "":
		return base
	case base == "":
		return "/" + sub
	}

	return base + "/" + sub
}

// splitPath splits a request path into segments. Leading and trailing
// slashes are ignored; the root path has no segments.
func splitPath(p string) []string {
	p = strings.TrimPrefix(p, "/")
	p = strings.TrimSuffix(p, "/")
	if p == "" {
		return nil
	}
	return strings.Split(p, "/")
}

// splitTemplate splits a template like splitPath but never inside braces,
// so constraint patterns may contain "/" characters in their text.
func splitTemplate(tpl string) ([]string, error) {
	tpl = strings.TrimPrefix(tpl, "/")
	tpl = strings.TrimSuffix(tpl, "/")
	if tpl == "" {
		return nil, nil
	}

	var (
		parts []string
		level int
		start int
	)
	for i := 0; i < len(tpl); i++ {
		switch tpl[i] {
		case '{':
			level++
		case '}':
			level--
			if level < 0 {
				return nil, fmt.Errorf("pathmatch: unbalanced braces in %q", tpl)
			}
		case '/':
			if level == 0 {
				parts = append(parts, tpl[start:i])
				start = i + 1
			}
		}
	}
	if level != 0 {
		return nil, fmt.Errorf("pathmatch: unbalanced braces in %q", tpl)
	}

	return append(parts, tpl[start:]), nil
}
