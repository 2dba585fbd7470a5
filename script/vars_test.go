package script

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCoerce(t *testing.T) {
	tests := []struct {
		input    string
		expected any
	}{
		{input: "100", expected: int64(100)},
		{input: "-5", expected: int64(-5)},
		{input: "0", expected: int64(0)},
		{input: "007", expected: "007"},
		{input: "+-1", expected: "+-1"},
		{input: "1.5", expected: 1.5},
		{input: "1e3", expected: 1000.0},
		{input: ".5", expected: 0.5},
		{input: "true", expected: true},
		{input: "FALSE", expected: false},
		{input: "abc", expected: "abc"},
		{input: "NaN", expected: "NaN"},
		{input: "inf", expected: "inf"},
		{input: "e", expected: "e"},
		{input: "", expected: ""},
		{input: "12abc", expected: "12abc"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, Coerce(tt.input))
		})
	}
}

func TestFromParams(t *testing.T) {
	vars := FromParams(map[string][]string{
		"paramOne": {"100", "200"},
		"name":     {"x"},
		"empty":    {},
	})

	assert.Equal(t, Vars{
		"paramOne": int64(100),
		"name":     "x",
		"empty":    "",
	}, vars)
}
