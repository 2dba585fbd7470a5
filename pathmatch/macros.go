package pathmatch

import (
	"maps"
	"regexp"
	"slices"

	"github.com/CommerceBoard/geemvc/internal/recache"
)

// valueMatcher validates one captured variable value. *regexp.Regexp and
// *Macro satisfy it.
type valueMatcher interface {
	MatchString(string) bool
	String() string
}

// Macro is a named value pattern. It constrains path variables written as
// "{name:macro}" and parameter predicates written as "name={macro}".
type Macro struct {
	Name string
	// Pattern is the unanchored regular expression embedded into segment
	// regexps.
	Pattern string
	// MaxLen limits the value length in bytes when positive.
	MaxLen int

	re *regexp.Regexp
}

// MatchString reports whether s is a complete value of the macro.
func (m *Macro) MatchString(s string) bool {
	if m.MaxLen > 0 && len(s) > m.MaxLen {
		return false
	}
	return m.re.MatchString(s)
}

// String returns the anchored expression values are checked against.
func (m *Macro) String() string {
	return m.re.String()
}

func newMacro(name, pattern string, maxLen int) *Macro {
	re, err := recache.Whole(pattern, "")
	if err != nil {
		panic("pathmatch: macro " + name + ": " + err.Error())
	}
	return &Macro{Name: name, Pattern: pattern, MaxLen: maxLen, re: re}
}

// macros are the built-in macros. bool and number accept the values that
// script variables coerce to booleans and numbers.
var macros = func() map[string]*Macro {
	m := make(map[string]*Macro)
	for _, mac := range []*Macro{
		newMacro("uuid", `[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}`, 0),
		newMacro("int", `[0-9]+`, 0),
		newMacro("float", `[0-9]*\.?[0-9]+`, 0),
		newMacro("number", `-?(?:0|[1-9][0-9]*)(?:\.[0-9]+)?`, 0),
		newMacro("bool", `(?i:true|false)`, 0),
		newMacro("slug", `[a-zA-Z0-9]+(?:-[a-zA-Z0-9]+)*`, 0),
		newMacro("alpha", `[a-zA-Z]+`, 0),
		newMacro("alphanum", `[a-zA-Z0-9]+`, 0),
		newMacro("date", `[0-9]{4}-[0-9]{2}-[0-9]{2}`, 0),
		newMacro("hex", `[0-9a-fA-F]+`, 0),
		// RFC 1035/1123 host names: labels of 1-63 characters, 253 in total.
		newMacro("domain", `(?:[a-zA-Z0-9](?:[a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?\.)*[a-zA-Z0-9](?:[a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?`, 253),
	} {
		m[mac.Name] = mac
	}
	return m
}()

// LookupMacro returns the built-in macro called name.
func LookupMacro(name string) (*Macro, bool) {
	m, ok := macros[name]
	return m, ok
}

// MacroNames returns the names of the built-in macros, sorted.
func MacroNames() []string {
	return slices.Sorted(maps.Keys(macros))
}

// expandMacro returns the pattern of a variable constraint and, for a
// macro, its matcher. Anything else is a raw regular expression and comes
// back unchanged with a nil matcher.
func expandMacro(constraint string) (string, valueMatcher) {
	if m, ok := macros[constraint]; ok {
		return m.Pattern, m
	}
	return constraint, nil
}
