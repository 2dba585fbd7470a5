package recache

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompile(t *testing.T) {
	t.Run("returns same instance for same pattern", func(t *testing.T) {
		a, err := Compile(`^[a-z]+$`)
		require.NoError(t, err)
		b, err := Compile(`^[a-z]+$`)
		require.NoError(t, err)
		assert.Same(t, a, b)
	})

	t.Run("invalid pattern", func(t *testing.T) {
		_, err := Compile(`([a-z`)
		assert.Error(t, err)
	})

	t.Run("concurrent first use keeps one value", func(t *testing.T) {
		const pattern = `^concurrent-[0-9]+$`
		results := make([]any, 16)

		var wg sync.WaitGroup
		for i := range results {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				re, err := Compile(pattern)
				if err == nil {
					results[i] = re
				}
			}(i)
		}
		wg.Wait()

		for _, r := range results[1:] {
			assert.Same(t, results[0], r)
		}
	})
}

func TestWhole(t *testing.T) {
	tests := []struct {
		name     string
		pattern  string
		flags    string
		input    string
		expected bool
	}{
		{name: "whole value", pattern: `\d+`, input: "42", expected: true},
		{name: "prefix only", pattern: `\d+`, input: "42a", expected: false},
		{name: "alternation is grouped", pattern: `a|b`, input: "ab", expected: false},
		{name: "case-insensitive", pattern: `abc`, flags: "i", input: "ABC", expected: true},
		{name: "multi-line keeps whole value", pattern: `^a$`, flags: "m", input: "a\nb", expected: false},
		{name: "dot matches newline", pattern: `a.b`, flags: "s", input: "a\nb", expected: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			re, err := Whole(tt.pattern, tt.flags)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, re.MatchString(tt.input))
		})
	}

	t.Run("cached", func(t *testing.T) {
		a, err := Whole(`x+`, "i")
		require.NoError(t, err)
		n := Len()

		b, err := Whole(`x+`, "i")
		require.NoError(t, err)
		assert.Same(t, a, b)
		assert.Equal(t, n, Len())
		assert.Equal(t, `(?i)\A(?:x+)\z`, b.String())
	})
}
