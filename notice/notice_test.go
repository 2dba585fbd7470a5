package notice

import (
	"errors"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrors(t *testing.T) {
	var errs Errors
	assert.True(t, errs.Empty())
	assert.NoError(t, errs.Err())

	errs.Add("person.age", "range", "must be between %d and %d", 0, 150)
	errs.Add("person.forename", "required", "is required")
	errs.Add("person.age", "type", "not a number")
	errs.Add(Global, "", "something went wrong")

	assert.False(t, errs.Empty())
	assert.Equal(t, 4, errs.Len())
	assert.True(t, errs.Has("person.age"))
	assert.False(t, errs.Has("person.surname"))
	assert.Equal(t, []string{"person.age", "person.forename", Global}, errs.Fields())

	age := errs.Field("person.age")
	require.Len(t, age, 2)
	assert.Equal(t, "must be between 0 and 150", age[0].Message)
	assert.Equal(t, "range", age[0].Code)

	assert.Equal(t, map[string][]string{
		"person.age":      {"must be between 0 and 150", "not a number"},
		"person.forename": {"is required"},
		"":                {"something went wrong"},
	}, errs.Map())

	err := errs.Err()
	require.Error(t, err)
	assert.Equal(t, "person.age: must be between 0 and 150; person.forename: is required; person.age: not a number; something went wrong", err.Error())
}

func TestErrorsUnwrap(t *testing.T) {
	_, cause := strconv.Atoi("x")

	var errs Errors
	errs.AddError(FieldError{Field: "age", Code: "type", Message: "invalid", Err: cause})

	assert.ErrorIs(t, errs.Err(), strconv.ErrSyntax)

	var fe FieldError
	require.True(t, errors.As(errs.Err(), &fe))
	assert.Equal(t, "age", fe.Field)
}

func TestErrorsMerge(t *testing.T) {
	var inner Errors
	inner.Add("city", "required", "is required")
	inner.Add("[0]", "type", "invalid")
	inner.Add("", "bad", "whole object")

	var outer Errors
	outer.Merge("person.address", &inner)
	outer.Merge("ignored", nil)

	assert.Equal(t, []string{"person.address.city", "person.address[0]", "person.address"}, outer.Fields())
}

func TestNilErrors(t *testing.T) {
	var errs *Errors
	assert.True(t, errs.Empty())
	assert.Zero(t, errs.Len())
	assert.Nil(t, errs.All())
	assert.Nil(t, errs.Field("x"))
	assert.Nil(t, errs.Fields())
	assert.NoError(t, errs.Err())
}

func TestNotices(t *testing.T) {
	var n Notices
	assert.True(t, n.Empty())

	n.Add("saved %s", "person")
	n.Add("done")

	assert.False(t, n.Empty())
	assert.Equal(t, []string{"saved person", "done"}, n.All())
}

func TestJoinPath(t *testing.T) {
	tests := []struct {
		prefix, field, expected string
	}{
		{"", "a", "a"},
		{"a", "", "a"},
		{"a", "b", "a.b"},
		{"a", "[0]", "a[0]"},
		{"a.b", "c.d", "a.b.c.d"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.expected, JoinPath(tt.prefix, tt.field))
	}
}
