package pathmatch

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"

	"github.com/CommerceBoard/geemvc/internal/recache"
)

// defaultPattern is the constraint of an unconstrained variable: one
// non-empty path segment.
const defaultPattern = "[^/]+"

// segmentRegexp matches a single path segment that mixes literal text with
// variables or constrains a variable with a pattern, e.g. "{id:int}" or
// "report-{year:[0-9]{4}}.{ext}".
type segmentRegexp struct {
	regexp *regexp.Regexp
	// names are the variable names in order of appearance.
	names []string
	// groups are the submatch indices of each variable.
	groups []int
	// checks validate each captured value; macros carry extra limits
	// (such as maximum length) a regexp cannot express.
	checks []valueMatcher
}

// newSegmentRegexp compiles one template segment into an anchored regexp.
// Variables become named groups v0..vN so user patterns containing their
// own groups do not shift the capture indices.
func newSegmentRegexp(seg string) (*segmentRegexp, error) {
	idxs, err := braceIndices(seg)
	if err != nil {
		return nil, err
	}

	var (
		pattern bytes.Buffer
		names   []string
		checks  []valueMatcher
		end     int
	)

	pattern.WriteByte('^')

	for i := 0; i < len(idxs); i += 2 {
		raw := seg[end:idxs[i]]
		end = idxs[i+1]

		name, patt, hasPattern := strings.Cut(seg[idxs[i]+1:end-1], ":")
		if name == "" {
			return nil, fmt.Errorf("pathmatch: missing name in %q from %q", seg[idxs[i]:end], seg)
		}

		var check valueMatcher
		if hasPattern {
			patt, check = expandMacro(patt)
		} else {
			patt = defaultPattern
		}

		if check == nil {
			re, err := recache.Whole(patt, "")
			if err != nil {
				return nil, fmt.Errorf("pathmatch: invalid pattern %q in variable %q: %w", patt, name, err)
			}
			check = re
		}

		fmt.Fprintf(&pattern, "%s(?P<v%d>%s)", regexp.QuoteMeta(raw), len(names), patt)
		names = append(names, name)
		checks = append(checks, check)
	}

	pattern.WriteString(regexp.QuoteMeta(seg[end:]))
	pattern.WriteByte('$')

	re, err := recache.Compile(pattern.String())
	if err != nil {
		return nil, fmt.Errorf("pathmatch: invalid segment %q: %w", seg, err)
	}

	groups := make([]int, len(names))
	for i := range names {
		groups[i] = re.SubexpIndex(fmt.Sprintf("v%d", i))
	}

	return &segmentRegexp{regexp: re, names: names, groups: groups, checks: checks}, nil
}

// match matches input and writes the captured variables into dst.
func (s *segmentRegexp) match(input string, dst Vars) bool {
	m := s.regexp.FindStringSubmatch(input)
	if m == nil {
		return false
	}

	for i, name := range s.names {
		v := m[s.groups[i]]
		if !s.checks[i].MatchString(v) {
			return false
		}
		dst[name] = v
	}

	return true
}

// braceIndices returns the start and end+1 indices of each top-level
// {...} pair in s. Returns an error if braces are unbalanced.
func braceIndices(s string) ([]int, error) {
	var (
		idxs  []int
		level int
	)
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '{':
			if level++; level == 1 {
				idxs = append(idxs, i)
			}
		case '}':
			if level--; level == 0 {
				idxs = append(idxs, i+1)
			} else if level < 0 {
				return nil, fmt.Errorf("pathmatch: unbalanced braces in %q", s)
			}
		}
	}
	if level != 0 {
		return nil, fmt.Errorf("pathmatch: unbalanced braces in %q", s)
	}
	return idxs, nil
}

// checkDuplicateVars returns an error if any variable name is repeated.
func checkDuplicateVars(vars []string) error {
	seen := make(map[string]bool, len(vars))
	for _, v := range vars {
		if seen[v] {
			return fmt.Errorf("pathmatch: duplicated variable %q", v)
		}
		seen[v] = true
	}
	return nil
}
