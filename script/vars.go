package script

import (
	"strings"

	"github.com/spf13/cast"
)

// FromParams binds the first value of every parameter, coerced with Coerce.
func FromParams(params map[string][]string) Vars {
	vars := make(Vars, len(params))
	for name, values := range params {
		if len(values) == 0 {
			vars[name] = ""
			continue
		}
		vars[name] = Coerce(values[0])
	}
	return vars
}

// Coerce converts a raw parameter value into the most specific of bool,
// int64, float64 or string. Decimal integers with leading zeros stay
// strings so identifiers such as "007" keep their text.
func Coerce(raw string) any {
	switch strings.ToLower(raw) {
	case "true":
		return true
	case "false":
		return false
	}

	if isDecimalInt(raw) {
		if i, err := cast.ToInt64E(raw); err == nil {
			return i
		}
	}

	if isDecimalFloat(raw) {
		if f, err := cast.ToFloat64E(raw); err == nil {
			return f
		}
	}

	return raw
}

func isDecimalInt(s string) bool {
	digits := strings.TrimLeft(s, "+-")
	if len(s)-len(digits) > 1 || digits == "" {
		return false
	}
	if len(digits) > 1 && digits[0] == '0' {
		return false
	}
	for i := 0; i < len(digits); i++ {
		if digits[i] < '0' || digits[i] > '9' {
			return false
		}
	}
	return true
}

func isDecimalFloat(s string) bool {
	if s == "" || !strings.ContainsAny(s, ".eE") {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= '0' && c <= '9':
		case c == '.' || c == 'e' || c == 'E' || c == '+' || c == '-':
		default:
			return false
		}
	}
	return strings.ContainsAny(s, "0123456789")
}
