package predicate

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"golang.org/x/net/http/httpguts"

	"github.com/CommerceBoard/geemvc/internal/recache"
	"github.com/CommerceBoard/geemvc/pathmatch"
	"github.com/CommerceBoard/geemvc/script"
)

// Kind identifies the comparison a predicate performs.
type Kind uint8

// Predicate kinds.
const (
	Exists Kind = iota
	NotExists
	Equals
	NotEquals
	RegexEquals
	RegexNotEquals
	Script
)

var kindNames = [...]string{
	Exists:         "exists",
	NotExists:      "not-exists",
	Equals:         "equals",
	NotEquals:      "not-equals",
	RegexEquals:    "regex-equals",
	RegexNotEquals: "regex-not-equals",
	Script:         "script",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", k)
}

// SyntaxError reports a malformed predicate expression.
type SyntaxError struct {
	Expr string
	Err  error
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("predicate: invalid expression %q: %v", e.Expr, e.Err)
}

func (e *SyntaxError) Unwrap() error {
	return e.Err
}

var (
	errEmpty     = errors.New("empty expression")
	errBadFlag   = errors.New("unsupported regexp flag")
	errBadRegexp = errors.New("invalid regexp")
	errBadMacro  = errors.New("unknown macro")
)

// Predicate is a single compiled parameter constraint. It is immutable.
type Predicate struct {
	// Name is the constrained parameter. It is empty for scripts.
	Name string
	Kind Kind
	// Value is the literal operand, the regexp source or the script.
	Value string
	// Dialect is set for scripts only.
	Dialect script.Dialect

	raw     string
	re      matcher
	program script.Program
}

// matcher checks a whole value. *regexp.Regexp and *pathmatch.Macro
// satisfy it.
type matcher interface {
	MatchString(string) bool
	String() string
}

// Parse compiles one predicate expression. Script expressions are compiled
// with engines.
func Parse(expr string, engines *script.Engines) (*Predicate, error) {
	raw := expr
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return nil, &SyntaxError{Expr: raw, Err: errEmpty}
	}

	if d, body, ok := dialectPrefix(expr); ok {
		return parseScript(raw, body, d, engines)
	}

	if name, ok := strings.CutPrefix(expr, "!"); ok {
		if name = strings.TrimSpace(name); validName(name) {
			return &Predicate{Name: name, Kind: NotExists, raw: raw}, nil
		}
		return parseScript(raw, expr, "", engines)
	}

	if validName(expr) {
		return &Predicate{Name: expr, Kind: Exists, raw: raw}, nil
	}

	if p, ok, err := parseComparison(raw, expr); ok || err != nil {
		return p, err
	}

	return parseScript(raw, expr, "", engines)
}

// dialectPrefix splits "dialect: body". Any identifier immediately followed
// by a colon is taken as a dialect name, known or not; neither expression
// language accepts that form.
func dialectPrefix(expr string) (script.Dialect, string, bool) {
	i := strings.IndexByte(expr, ':')
	if i <= 0 {
		return "", "", false
	}

	prefix := strings.TrimSpace(expr[:i])
	if prefix == "" {
		return "", "", false
	}
	for _, c := range prefix {
		if !(c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z') {
			return "", "", false
		}
	}

	return script.Dialect(strings.ToLower(prefix)), strings.TrimSpace(expr[i+1:]), true
}

// parseComparison handles name=value, name!=value and their regexp forms.
// It reports false when expr is not a comparison, leaving it to be parsed as
// a script.
func parseComparison(raw, expr string) (*Predicate, bool, error) {
	i := strings.IndexByte(expr, '=')
	if i <= 0 {
		return nil, false, nil
	}

	name, value := expr[:i], strings.TrimSpace(expr[i+1:])
	negate := false
	if n, ok := strings.CutSuffix(name, "!"); ok {
		name, negate = n, true
	}
	name = strings.TrimSpace(name)

	if !validName(name) || strings.HasPrefix(value, "=") || strings.HasPrefix(value, "~") {
		return nil, false, nil
	}

	if macro, ok := macroName(value); ok {
		m, found := pathmatch.LookupMacro(macro)
		if !found {
			return nil, true, &SyntaxError{Expr: raw, Err: fmt.Errorf("%w %q", errBadMacro, macro)}
		}

		kind := RegexEquals
		if negate {
			kind = RegexNotEquals
		}
		return &Predicate{Name: name, Kind: kind, Value: m.Pattern, raw: raw, re: m}, true, nil
	}

	if pattern, flags, ok := splitRegexp(value); ok {
		re, err := compileRegexp(pattern, flags)
		if err != nil {
			return nil, true, &SyntaxError{Expr: raw, Err: err}
		}

		kind := RegexEquals
		if negate {
			kind = RegexNotEquals
		}
		return &Predicate{Name: name, Kind: kind, Value: pattern, raw: raw, re: re}, true, nil
	}

	if !plainValue(value) {
		return nil, false, nil
	}

	kind := Equals
	if negate {
		kind = NotEquals
	}
	if isBoolLiteral(value) {
		value = strings.ToLower(value)
	}

	return &Predicate{Name: name, Kind: kind, Value: value, raw: raw}, true, nil
}

// macroName returns the name of a "{macro}" operand.
func macroName(value string) (string, bool) {
	name, ok := strings.CutPrefix(value, "{")
	if !ok {
		return "", false
	}
	name, ok = strings.CutSuffix(name, "}")
	if !ok || name == "" || strings.ContainsAny(name, "{}") {
		return "", false
	}
	return name, true
}

// splitRegexp splits "/pattern/flags". A value with a single leading slash
// is an ordinary literal such as a path.
func splitRegexp(value string) (string, string, bool) {
	if !strings.HasPrefix(value, "/") {
		return "", "", false
	}

	end := strings.LastIndexByte(value, '/')
	if end <= 0 {
		return "", "", false
	}

	flags := value[end+1:]
	for _, c := range flags {
		if !(c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z') {
			return "", "", false
		}
	}

	return value[1:end], flags, true
}

// plainValue reports whether a comparison operand is a bare literal.
// Whitespace, quotes, parentheses and logical operators mark a script such
// as "a != 'x' && a != 'y'".
func plainValue(v string) bool {
	return !strings.ContainsAny(v, " \t'\"()&|")
}

func compileRegexp(pattern, flags string) (*regexp.Regexp, error) {
	var inline strings.Builder
	for _, f := range flags {
		switch f {
		case 'i', 'm', 's':
			if !strings.ContainsRune(inline.String(), f) {
				inline.WriteRune(f)
			}
		case 'u':
		default:
			return nil, fmt.Errorf("%w %q", errBadFlag, f)
		}
	}

	re, err := recache.Whole(stripUnicodeFlag(pattern), inline.String())
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errBadRegexp, err)
	}
	return re, nil
}

// stripUnicodeFlag removes the "u" flag from inline flag groups such as
// "(?iu:...)" or "(?u)". Patterns always match Unicode text and RE2 rejects
// the flag.
func stripUnicodeFlag(pattern string) string {
	if !strings.Contains(pattern, "(?") {
		return pattern
	}

	var b strings.Builder
	for i := 0; i < len(pattern); i++ {
		c := pattern[i]
		if c == '\\' && i+1 < len(pattern) {
			b.WriteString(pattern[i : i+2])
			i++
			continue
		}
		if c != '(' || !strings.HasPrefix(pattern[i:], "(?") {
			b.WriteByte(c)
			continue
		}

		j := i + 2
		for j < len(pattern) && isFlagByte(pattern[j]) {
			j++
		}
		if j == i+2 || j == len(pattern) || (pattern[j] != ':' && pattern[j] != ')') {
			b.WriteByte(c)
			continue
		}

		flags := strings.TrimSuffix(strings.ReplaceAll(pattern[i+2:j], "u", ""), "-")
		switch {
		case flags != "":
			b.WriteString("(?" + flags + string(pattern[j]))
		case pattern[j] == ':':
			b.WriteString("(?:")
		}
		i = j
	}
	return b.String()
}

func isFlagByte(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c == '-'
}

func parseScript(raw, body string, d script.Dialect, engines *script.Engines) (*Predicate, error) {
	if body == "" {
		return nil, &SyntaxError{Expr: raw, Err: errEmpty}
	}
	if d == "" {
		d = engines.DefaultDialect()
	}

	prg, err := engines.Compile(body, d)
	if err != nil {
		return nil, &SyntaxError{Expr: raw, Err: err}
	}

	return &Predicate{Kind: Script, Value: body, Dialect: d, raw: raw, program: prg}, nil
}

// validName reports whether s is usable as a parameter name in the simple
// forms: an HTTP token without '!'.
func validName(s string) bool {
	return httpguts.ValidHeaderFieldName(s) && !strings.ContainsRune(s, '!')
}

func isBoolLiteral(s string) bool {
	return strings.EqualFold(s, "true") || strings.EqualFold(s, "false")
}

// Match reports whether params satisfy the predicate. vars are the script
// variables for params and may be nil for non-script predicates.
func (p *Predicate) Match(params map[string][]string, vars script.Vars) bool {
	if p.Kind == Script {
		if vars == nil {
			vars = script.FromParams(params)
		}
		ok, err := p.program.Eval(vars)
		return err == nil && ok
	}

	values, present := params[p.Name]

	switch p.Kind {
	case Exists:
		return present
	case NotExists:
		return !present
	}

	if !present {
		return false
	}

	var first string
	if len(values) > 0 {
		first = values[0]
	}

	switch p.Kind {
	case Equals:
		return p.compare(first)
	case NotEquals:
		return !p.compare(first)
	case RegexEquals:
		return p.re.MatchString(first)
	case RegexNotEquals:
		return !p.re.MatchString(first)
	}

	return false
}

func (p *Predicate) compare(v string) bool {
	if isBoolLiteral(p.Value) {
		v = strings.ToLower(v)
	}
	return v == p.Value
}

// String returns the expression the predicate was parsed from.
func (p *Predicate) String() string {
	return p.raw
}

// Canonical returns a normalized form used to compare predicates for
// equivalence.
func (p *Predicate) Canonical() string {
	switch p.Kind {
	case Exists:
		return p.Name
	case NotExists:
		return "!" + p.Name
	case Equals:
		return p.Name + "=" + p.Value
	case NotEquals:
		return p.Name + "!=" + p.Value
	case RegexEquals:
		return p.Name + "=/" + p.re.String() + "/"
	case RegexNotEquals:
		return p.Name + "!=/" + p.re.String() + "/"
	}
	return string(p.Dialect) + ":" + p.Value
}
