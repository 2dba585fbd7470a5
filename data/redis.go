package data

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"slices"

	"github.com/redis/go-redis/v9"
)

// DefaultRedisPrefix prefixes every key written by a Redis store.
const DefaultRedisPrefix = "geemvc:"

// Redis stores beans as JSON strings under "<prefix><type>:<id>" and keeps
// the ids of each type in the set "<prefix><type>:ids".
type Redis struct {
	client *redis.Client
	prefix string
	types  typeSet
}

// NewRedis returns a store using client. An empty prefix selects
// DefaultRedisPrefix.
func NewRedis(client *redis.Client, prefix string, types ...reflect.Type) *Redis {
	if prefix == "" {
		prefix = DefaultRedisPrefix
	}
	return &Redis{client: client, prefix: prefix, types: newTypeSet(types)}
}

// CanHandle implements adapter.Capable.
func (r *Redis) CanHandle(t reflect.Type) bool {
	return r.types.CanHandle(t)
}

func (r *Redis) key(t reflect.Type, id string) string {
	return r.prefix + typeKey(t) + ":" + id
}

func (r *Redis) index(t reflect.Type) string {
	return r.prefix + typeKey(t) + ":ids"
}

func (r *Redis) Load(ctx context.Context, t reflect.Type, id string) (any, error) {
	b, err := r.client.Get(ctx, r.key(t, id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, fmt.Errorf("%w: %s %q", ErrNotFound, typeKey(t), id)
		}
		return nil, fmt.Errorf("data: load %s %q: %w", typeKey(t), id, err)
	}

	v := reflect.New(elem(t))
	if err := json.Unmarshal(b, v.Interface()); err != nil {
		return nil, fmt.Errorf("data: decode %s %q: %w", typeKey(t), id, err)
	}
	return v.Interface(), nil
}

func (r *Redis) Save(ctx context.Context, id string, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("data: encode %T: %w", v, err)
	}

	t := reflect.TypeOf(v)
	_, err = r.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Set(ctx, r.key(t, id), b, 0)
		p.SAdd(ctx, r.index(t), id)
		return nil
	})
	return err
}

func (r *Redis) Delete(ctx context.Context, t reflect.Type, id string) error {
	_, err := r.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Del(ctx, r.key(t, id))
		p.SRem(ctx, r.index(t), id)
		return nil
	})
	return err
}

// List returns all beans of type t ordered by id.
func (r *Redis) List(ctx context.Context, t reflect.Type) ([]any, error) {
	ids, err := r.client.SMembers(ctx, r.index(t)).Result()
	if err != nil {
		return nil, fmt.Errorf("data: list %s: %w", typeKey(t), err)
	}
	slices.Sort(ids)

	out := make([]any, 0, len(ids))
	for _, id := range ids {
		v, err := r.Load(ctx, t, id)
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

// Close closes the client.
func (r *Redis) Close() error {
	return r.client.Close()
}
