package adapter

import (
	"cmp"
	"fmt"
	"reflect"
	"slices"
	"sync"

	"go.uber.org/zap"
)

// Option configures a Builder.
type Option func(*Builder)

// WithLogger sets the logger. The default discards everything.
func WithLogger(l *zap.Logger) Option {
	return func(b *Builder) {
		b.logger = l
	}
}

// Builder collects registrations during start-up. It is not safe for
// concurrent use.
type Builder struct {
	regs         []Registration
	capabilities map[Kind]reflect.Type
	logger       *zap.Logger
	err          error
}

// NewBuilder returns an empty builder.
func NewBuilder(opts ...Option) *Builder {
	b := &Builder{
		capabilities: make(map[Kind]reflect.Type),
		logger:       zap.NewNop(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Capability declares the interface every adapter of kind must implement.
// Registrations of that kind whose instance does not implement iface fail
// Build.
func (b *Builder) Capability(kind Kind, iface reflect.Type) *Builder {
	if b.err != nil {
		return b
	}
	if iface == nil || iface.Kind() != reflect.Interface {
		b.err = fmt.Errorf("adapter: capability of %s must be an interface type, got %v", kind, iface)
		return b
	}
	b.capabilities[kind] = iface
	return b
}

// Register adds registrations in order. The first invalid registration is
// reported by Build.
func (b *Builder) Register(regs ...Registration) *Builder {
	for _, r := range regs {
		if b.err != nil {
			return b
		}
		switch {
		case !r.Kind.valid():
			b.err = &RegistrationError{Name: r.Name, Kind: r.Kind, Reason: "unknown kind"}
		case r.Instance == nil:
			b.err = &RegistrationError{Name: r.Name, Kind: r.Kind, Reason: "nil instance"}
		default:
			if r.Name == "" {
				r.Name = typeName(r.Instance)
			}
			b.regs = append(b.regs, r)
		}
	}
	return b
}

// Len returns the number of registrations so far.
func (b *Builder) Len() int {
	return len(b.regs)
}

// Build validates the registrations and returns the immutable registry.
func (b *Builder) Build() (*Registry, error) {
	if b.err != nil {
		return nil, b.err
	}

	all := make([]Descriptor, 0, len(b.regs))
	for i, r := range b.regs {
		if iface, ok := b.capabilities[r.Kind]; ok && !reflect.TypeOf(r.Instance).Implements(iface) {
			return nil, &RegistrationError{
				Name:   r.Name,
				Kind:   r.Kind,
				Reason: fmt.Sprintf("%T does not implement %s", r.Instance, iface),
			}
		}

		all = append(all, Descriptor{
			Kind:     r.Kind,
			Name:     r.Name,
			Target:   r.Target,
			Aux:      slices.Clone(r.Aux),
			Weight:   r.Weight,
			Instance: r.Instance,
			order:    i,
		})

		b.logger.Debug("adapter registered",
			zap.Stringer("kind", r.Kind),
			zap.String("name", r.Name),
			zap.Int("weight", r.Weight),
			zap.Stringer("target", typeStringer{r.Target}),
		)
	}

	return &Registry{all: all, logger: b.logger}, nil
}

// Registry hands out adapters by capability. After Build it is read-only
// apart from its lookup caches and is safe for concurrent use.
type Registry struct {
	all    []Descriptor
	logger *zap.Logger

	located sync.Map // Kind -> []Descriptor
	found   sync.Map // findKey -> Descriptor
}

type findKey struct {
	kind Kind
	t    reflect.Type
}

// Locate returns the adapters of kind ordered by ascending weight, then
// registration order. The result is computed once per kind and shared; it
// must not be modified.
func (r *Registry) Locate(kind Kind) []Descriptor {
	if v, ok := r.located.Load(kind); ok {
		return v.([]Descriptor)
	}

	var ds []Descriptor
	for _, d := range r.all {
		if d.Kind == kind {
			ds = append(ds, d)
		}
	}
	slices.SortStableFunc(ds, func(a, b Descriptor) int {
		return cmp.Compare(a.Weight, b.Weight)
	})

	actual, loaded := r.located.LoadOrStore(kind, ds)
	if !loaded {
		r.logger.Debug("adapters located", zap.Stringer("kind", kind), zap.Int("count", len(ds)))
	}

	return actual.([]Descriptor)
}

// Find returns the first adapter of kind that can handle t.
func (r *Registry) Find(kind Kind, t reflect.Type) (Descriptor, error) {
	key := findKey{kind: kind, t: t}
	if v, ok := r.found.Load(key); ok {
		return v.(Descriptor), nil
	}

	for _, d := range r.Locate(kind) {
		if d.CanHandle(t) {
			actual, _ := r.found.LoadOrStore(key, d)
			return actual.(Descriptor), nil
		}
	}

	return Descriptor{}, &NoAdapterError{Kind: kind, Type: t}
}

// FindAll returns every adapter of kind that can handle t, in order.
func (r *Registry) FindAll(kind Kind, t reflect.Type) []Descriptor {
	var ds []Descriptor
	for _, d := range r.Locate(kind) {
		if d.CanHandle(t) {
			ds = append(ds, d)
		}
	}
	return ds
}

// Select returns the first adapter of kind accepted by fn.
func (r *Registry) Select(kind Kind, fn func(Descriptor) bool) (Descriptor, bool) {
	for _, d := range r.Locate(kind) {
		if fn(d) {
			return d, true
		}
	}
	return Descriptor{}, false
}

// Descriptors returns all adapters in registration order.
func (r *Registry) Descriptors() []Descriptor {
	return slices.Clone(r.all)
}

// Lookup returns the instance of the first adapter of kind that can handle
// t, typed as A.
func Lookup[A any](r *Registry, kind Kind, t reflect.Type) (A, error) {
	var zero A

	d, err := r.Find(kind, t)
	if err != nil {
		return zero, err
	}

	a, ok := d.Instance.(A)
	if !ok {
		return zero, fmt.Errorf("adapter: %s %s is %T, not %s", kind, d.Name, d.Instance, reflect.TypeFor[A]())
	}
	return a, nil
}

// Instances returns the instances of all adapters of kind that are of type
// A, in order.
func Instances[A any](r *Registry, kind Kind) []A {
	var out []A
	for _, d := range r.Locate(kind) {
		if a, ok := d.Instance.(A); ok {
			out = append(out, a)
		}
	}
	return out
}

type typeStringer struct {
	t reflect.Type
}

func (s typeStringer) String() string {
	if s.t == nil {
		return "any"
	}
	return s.t.String()
}
