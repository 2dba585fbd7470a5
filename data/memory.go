package data

import (
	"context"
	"encoding/json"
	"fmt"
	"reflect"
	"slices"
	"sync"
)

// Memory is an in-process store.
type Memory struct {
	types typeSet

	mu    sync.RWMutex
	items map[string]map[string][]byte
}

// NewMemory returns an empty store handling the given bean types, or every
// struct type when none is given.
func NewMemory(types ...reflect.Type) *Memory {
	return &Memory{types: newTypeSet(types), items: make(map[string]map[string][]byte)}
}

// CanHandle implements adapter.Capable.
func (m *Memory) CanHandle(t reflect.Type) bool {
	return m.types.CanHandle(t)
}

func (m *Memory) Load(_ context.Context, t reflect.Type, id string) (any, error) {
	m.mu.RLock()
	b, ok := m.items[typeKey(t)][id]
	m.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s %q", ErrNotFound, typeKey(t), id)
	}

	v := reflect.New(elem(t))
	if err := json.Unmarshal(b, v.Interface()); err != nil {
		return nil, fmt.Errorf("data: decode %s %q: %w", typeKey(t), id, err)
	}
	return v.Interface(), nil
}

func (m *Memory) Save(_ context.Context, id string, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("data: encode %T: %w", v, err)
	}

	key := typeKey(reflect.TypeOf(v))

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.items[key] == nil {
		m.items[key] = make(map[string][]byte)
	}
	m.items[key][id] = b
	return nil
}

func (m *Memory) Delete(_ context.Context, t reflect.Type, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.items[typeKey(t)], id)
	return nil
}

// List returns all beans of type t ordered by id.
func (m *Memory) List(ctx context.Context, t reflect.Type) ([]any, error) {
	m.mu.RLock()
	ids := make([]string, 0, len(m.items[typeKey(t)]))
	for id := range m.items[typeKey(t)] {
		ids = append(ids, id)
	}
	m.mu.RUnlock()

	slices.Sort(ids)

	out := make([]any, 0, len(ids))
	for _, id := range ids {
		v, err := m.Load(ctx, t, id)
		if err != nil {
			continue
		}
		out = append(out, v)
	}
	return out, nil
}
