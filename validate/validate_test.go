package validate

import (
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CommerceBoard/geemvc/adapter"
	"github.com/CommerceBoard/geemvc/bind"
	"github.com/CommerceBoard/geemvc/notice"
)

type Audit struct {
	CreatedBy string `validate:"required"`
}

type Inner struct {
	Audit
}

type outer struct {
	*Inner
	Title string
}

type address struct {
	City string `validate:"required"`
}

type item struct {
	Name string `validate:"required"`
}

type person struct {
	Audit
	Forename string `validate:"required"`
	Age      int    `validate:"gte=0,lte=150"`
	Email    string `validate:"omitempty,email"`
	Address  *address
	Items    []item            `validate:"dive"`
	Nick     string            `bind:"nickname" validate:"omitempty,min=3"`
	Attrs    map[string]string `validate:"dive,required"`
}

func (p *person) Name() string {
	return p.Forename
}

type namer interface {
	Name() string
}

func newDispatcher(t *testing.T, regs ...adapter.Registration) *Dispatcher {
	t.Helper()
	b := Register(adapter.NewBuilder())
	b.Register(regs...)
	reg, err := b.Build()
	require.NoError(t, err)
	return New(reg)
}

func codes(errs *notice.Errors) []string {
	var out []string
	for _, fe := range errs.All() {
		out = append(out, fe.Code)
	}
	return out
}

func TestDispatcherAggregates(t *testing.T) {
	var seen []string
	d := newDispatcher(t,
		For("named", 200, func(n namer, errs *notice.Errors) {
			seen = append(seen, "named")
			if n.Name() == "" {
				errs.Add(notice.Global, "named", "has no name")
			}
		}),
		For("audit", 10, func(a Audit, errs *notice.Errors) {
			seen = append(seen, "audit")
			errs.Add(notice.Global, "audit", "created by %q", a.CreatedBy)
		}),
	)

	p := &person{
		Age:     200,
		Email:   "bad",
		Address: &address{},
		Items:   []item{{Name: "pen"}, {}},
		Nick:    "ab",
	}

	errs := &notice.Errors{}
	d.ValidateNamed("person", p, errs)

	assert.Equal(t, []string{"audit", "named"}, seen)
	assert.Equal(t, []string{"audit", "required", "required", "lte", "email", "required", "required", "min", "named"}, codes(errs))

	fields := make([]string, 0, errs.Len())
	for _, fe := range errs.All() {
		fields = append(fields, fe.Field)
	}
	assert.Equal(t, []string{
		"person",
		"person.createdBy",
		"person.forename",
		"person.age",
		"person.email",
		"person.address.city",
		"person.items[1].name",
		"person.nickname",
		"person",
	}, fields)

	assert.Equal(t, "must be at most 150", errs.Field("person.age")[0].Message)
	assert.Equal(t, "must be at least 3 characters", errs.Field("person.nickname")[0].Message)
	assert.Equal(t, 200, errs.Field("person.age")[0].Value)
}

func TestDispatcherValid(t *testing.T) {
	d := newDispatcher(t)

	errs := &notice.Errors{}
	d.Validate(&person{Audit: Audit{CreatedBy: "admin"}, Forename: "Michael", Age: 40, Attrs: map[string]string{"k": "v"}}, errs)
	assert.True(t, errs.Empty())
}

func TestDispatcherMapKeys(t *testing.T) {
	d := newDispatcher(t)

	errs := &notice.Errors{}
	d.Validate(&person{Audit: Audit{CreatedBy: "admin"}, Forename: "Michael", Attrs: map[string]string{"color": ""}}, errs)
	assert.Equal(t, []string{"attrs[color]"}, errs.Fields())
}

func TestDispatcherSkipsNil(t *testing.T) {
	called := false
	d := newDispatcher(t, adapter.Registration{
		Kind:   adapter.Validator,
		Target: reflect.TypeFor[*person](),
		Instance: Func(func(any, *notice.Errors) {
			called = true
		}),
	})

	errs := &notice.Errors{}
	d.Validate((*person)(nil), errs)
	d.Validate(nil, errs)
	assert.False(t, called)
	assert.True(t, errs.Empty())
}

func TestDispatcherExactTarget(t *testing.T) {
	var got []any
	d := newDispatcher(t, adapter.Registration{
		Kind:   adapter.Validator,
		Target: reflect.TypeFor[item](),
		Instance: Func(func(v any, _ *notice.Errors) {
			got = append(got, v)
		}),
	})

	errs := &notice.Errors{}
	d.Validate(item{Name: "pen"}, errs)
	d.Validate(&item{Name: "ink"}, errs)
	d.Validate(address{City: "Berlin"}, errs)

	assert.Equal(t, []any{item{Name: "pen"}}, got)
}

func TestDispatcherEmbedded(t *testing.T) {
	var got []string
	d := newDispatcher(t, For("audit", 10, func(a Audit, _ *notice.Errors) {
		got = append(got, a.CreatedBy)
	}))

	errs := &notice.Errors{}
	d.Validate(outer{Inner: &Inner{Audit: Audit{CreatedBy: "deep"}}}, errs)
	d.Validate(&outer{}, errs)

	assert.Equal(t, []string{"deep"}, got)
	// The nil embedded pointer is not traversed by the tag validator either.
	assert.True(t, errs.Empty())
}

func TestValidateBindings(t *testing.T) {
	d := newDispatcher(t)

	b := &bind.Bindings{
		Bound: []bind.Bound{
			{Name: "item", Value: item{}},
			{Name: "q", Value: "go"},
			{Name: "other", Value: &item{Name: "ok"}},
		},
		Errors: &notice.Errors{},
	}

	assert.False(t, d.ValidateBindings(b))
	assert.Equal(t, []string{"item.name"}, b.Errors.Fields())

	ok := &bind.Bindings{Bound: []bind.Bound{{Name: "item", Value: item{Name: "pen"}}}, Errors: &notice.Errors{}}
	assert.True(t, d.ValidateBindings(ok))
}

func TestEmbeds(t *testing.T) {
	auditType := reflect.TypeFor[Audit]()

	tests := []struct {
		name     string
		typ      reflect.Type
		target   reflect.Type
		expected bool
	}{
		{name: "same", typ: auditType, target: auditType, expected: true},
		{name: "pointer", typ: reflect.TypeFor[*Audit](), target: auditType, expected: true},
		{name: "embedded", typ: reflect.TypeFor[person](), target: auditType, expected: true},
		{name: "embedded twice through pointer", typ: reflect.TypeFor[outer](), target: auditType, expected: true},
		{name: "named field is not embedding", typ: reflect.TypeFor[address](), target: auditType, expected: false},
		{name: "interface", typ: reflect.TypeFor[*person](), target: reflect.TypeFor[namer](), expected: true},
		{name: "interface by value", typ: reflect.TypeFor[person](), target: reflect.TypeFor[namer](), expected: false},
		{name: "nil", typ: nil, target: auditType, expected: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, embeds(tt.typ, tt.target, 0))
		})
	}
}

func TestFieldPath(t *testing.T) {
	root := reflect.TypeFor[*person]()

	tests := []struct {
		ns       string
		expected string
	}{
		{ns: "person.Forename", expected: "forename"},
		{ns: "person.Audit.CreatedBy", expected: "createdBy"},
		{ns: "person.Address.City", expected: "address.city"},
		{ns: "person.Items[3].Name", expected: "items[3].name"},
		{ns: "person.Nick", expected: "nickname"},
		{ns: "person.Attrs[color]", expected: "attrs[color]"},
		{ns: "person.Unknown.Field", expected: "Unknown.Field"},
	}

	for _, tt := range tests {
		t.Run(tt.ns, func(t *testing.T) {
			assert.Equal(t, tt.expected, fieldPath(root, tt.ns))
		})
	}
}
