package pathmatch

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBraceIndices(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		expected  []int
		expectErr bool
	}{
		{name: "no braces", input: "foo", expected: nil},
		{name: "single variable", input: "{id}", expected: []int{0, 4}},
		{name: "two variables", input: "{a}.{b}", expected: []int{0, 3, 4, 7}},
		{name: "variable with pattern", input: "{id:[0-9]+}", expected: []int{0, 11}},
		{name: "nested braces", input: "{id:[0-9]{2}}", expected: []int{0, 13}},
		{name: "unbalanced open", input: "{id", expectErr: true},
		{name: "unbalanced close", input: "id}", expectErr: true},
		{name: "empty string", input: "", expected: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			idxs, err := braceIndices(tt.input)
			if tt.expectErr {
				assert.Error(t, err)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.expected, idxs)
			}
		})
	}
}

func TestCheckDuplicateVars(t *testing.T) {
	assert.NoError(t, checkDuplicateVars([]string{"a", "b", "c"}))
	assert.NoError(t, checkDuplicateVars(nil))

	err := checkDuplicateVars([]string{"a", "b", "a"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicated variable")
}

func TestNewSegmentRegexp(t *testing.T) {
	t.Run("literal text is quoted", func(t *testing.T) {
		s, err := newSegmentRegexp("v1.{n:int}")
		require.NoError(t, err)

		vars := Vars{}
		assert.True(t, s.match("v1.5", vars))
		assert.Equal(t, "5", vars["n"])
		assert.False(t, s.match("v1x5", Vars{}))
	})

	t.Run("names in order", func(t *testing.T) {
		s, err := newSegmentRegexp("{a}-{b}")
		require.NoError(t, err)
		assert.Equal(t, []string{"a", "b"}, s.names)
	})

	t.Run("domain macro length limit", func(t *testing.T) {
		s, err := newSegmentRegexp("{host:domain}")
		require.NoError(t, err)

		assert.True(t, s.match("example.com", Vars{}))
		labels := make([]string, 5)
		for i := range labels {
			labels[i] = strings.Repeat("a", 60)
		}
		long := strings.Join(labels, ".")
		assert.False(t, s.match(long, Vars{}))
	})
}

func TestExpandMacro(t *testing.T) {
	for _, name := range MacroNames() {
		t.Run(name, func(t *testing.T) {
			m, ok := LookupMacro(name)
			require.True(t, ok)

			pattern, matcher := expandMacro(name)
			assert.Equal(t, m.Pattern, pattern)
			assert.Same(t, m, matcher)
		})
	}

	t.Run("unknown returns input unchanged", func(t *testing.T) {
		pattern, matcher := expandMacro("[0-9]+")
		assert.Equal(t, "[0-9]+", pattern)
		assert.Nil(t, matcher)
	})
}

func TestMacroMatch(t *testing.T) {
	tests := []struct {
		macro    string
		value    string
		expected bool
	}{
		{macro: "int", value: "42", expected: true},
		{macro: "int", value: "-42", expected: false},
		{macro: "number", value: "-4.5", expected: true},
		{macro: "number", value: "007", expected: false},
		{macro: "bool", value: "TRUE", expected: true},
		{macro: "bool", value: "yes", expected: false},
		{macro: "uuid", value: "550e8400-e29b-41d4-a716-446655440000", expected: true},
		{macro: "date", value: "2024-02-30", expected: true},
		{macro: "date", value: "24-02-30", expected: false},
		{macro: "domain", value: "example.com", expected: true},
		{macro: "domain", value: strings.Repeat("a", 60) + "." + strings.Repeat("b.", 100) + "com", expected: false},
	}

	for _, tt := range tests {
		t.Run(tt.macro+" "+tt.value, func(t *testing.T) {
			m, ok := LookupMacro(tt.macro)
			require.True(t, ok)
			assert.Equal(t, tt.expected, m.MatchString(tt.value))
		})
	}

	_, ok := LookupMacro("nope")
	assert.False(t, ok)
	assert.Contains(t, MacroNames(), "bool")

	m, _ := LookupMacro("int")
	assert.Equal(t, `\A(?:[0-9]+)\z`, m.String())
}
