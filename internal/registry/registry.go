// Package registry holds the broker's concurrent lookup tables.
//
// Registry is a thin, typed facade over a lock-free hash map keyed by string.
// Rotation is the ordered subscriber list of a single message kind.
package registry

import "github.com/alphadose/haxmap"

type Registry[T any] interface {
	Get(key string) (T, bool)
	Add(key string, value T)
	GetOrAdd(key string, value func() T) (T, bool)
	Del(key string)
	Len() int
	ForEach(fn func(key string, value T) bool)
}

type registry[T any] struct {
	values *haxmap.Map[string, T]
}

func New[T any]() Registry[T] {
	return &registry[T]{
		values: haxmap.New[string, T](),
	}
}

func (r *registry[T]) Get(key string) (T, bool) {
	return r.values.Get(key)
}

func (r *registry[T]) Add(key string, value T) {
	r.values.Set(key, value)
}

// GetOrAdd returns the existing value for key, or stores the result of valueFn.
// The boolean is true when the value was already present.
func (r *registry[T]) GetOrAdd(key string, valueFn func() T) (T, bool) {
	return r.values.GetOrCompute(key, valueFn)
}

func (r *registry[T]) Del(key string) {
	r.values.Del(key)
}

func (r *registry[T]) Len() int {
	return int(r.values.Len())
}

// ForEach visits every entry until fn returns false. Entries added or removed
// concurrently may or may not be observed.
func (r *registry[T]) ForEach(fn func(key string, value T) bool) {
	r.values.ForEach(fn)
}
