package registry

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRegistry(t *testing.T) {
	t.Run("add and get", func(t *testing.T) {
		r := New[int]()
		r.Add("a", 1)
		v, ok := r.Get("a")
		assert.True(t, ok)
		assert.Equal(t, 1, v)

		_, ok = r.Get("missing")
		assert.False(t, ok)
	})

	t.Run("get or add keeps the first value", func(t *testing.T) {
		r := New[*Rotation]()
		first, loaded := r.GetOrAdd("kind", NewRotation)
		assert.False(t, loaded)
		second, loaded := r.GetOrAdd("kind", NewRotation)
		assert.True(t, loaded)
		assert.Same(t, first, second)
	})

	t.Run("del and len", func(t *testing.T) {
		r := New[string]()
		r.Add("a", "x")
		r.Add("b", "y")
		assert.Equal(t, 2, r.Len())
		r.Del("a")
		assert.Equal(t, 1, r.Len())
		_, ok := r.Get("a")
		assert.False(t, ok)
	})

	t.Run("for each", func(t *testing.T) {
		r := New[int]()
		r.Add("a", 1)
		r.Add("b", 2)
		sum := 0
		r.ForEach(func(_ string, v int) bool {
			sum += v
			return true
		})
		assert.Equal(t, 3, sum)
	})
}

func TestRotation_RoundRobin(t *testing.T) {
	r := NewRotation()
	r.Add("a")
	r.Add("b")

	var got []string
	for range 4 {
		id, ok := r.Next(nil)
		assert.True(t, ok)
		got = append(got, id)
	}
	assert.Equal(t, []string{"a", "b", "a", "b"}, got)
}

func TestRotation_EvenShares(t *testing.T) {
	r := NewRotation()
	members := []string{"a", "b", "c"}
	for _, m := range members {
		r.Add(m)
	}

	counts := map[string]int{}
	for i := range 30 {
		id, ok := r.Next(nil)
		assert.True(t, ok)
		assert.Equal(t, members[i%len(members)], id)
		counts[id]++
	}
	for _, m := range members {
		assert.Equal(t, 10, counts[m])
	}
}

func TestRotation_SkipsIneligible(t *testing.T) {
	r := NewRotation()
	r.Add("a")
	r.Add("b")
	r.Add("c")

	id, ok := r.Next(func(id string) bool { return id != "a" })
	assert.True(t, ok)
	assert.Equal(t, "b", id)
	// a and b were both moved behind c
	assert.Equal(t, []string{"c", "a", "b"}, r.Snapshot())

	_, ok = r.Next(func(string) bool { return false })
	assert.False(t, ok)
}

func TestRotation_Empty(t *testing.T) {
	r := NewRotation()
	_, ok := r.Next(nil)
	assert.False(t, ok)
	assert.Empty(t, r.Snapshot())
}

func TestRotation_Remove(t *testing.T) {
	r := NewRotation()
	r.Add("a")
	r.Add("b")
	r.Add("a")

	assert.Equal(t, 2, r.Remove("a"))
	assert.Equal(t, 0, r.Remove("a"))
	assert.Equal(t, []string{"b"}, r.Snapshot())
	assert.Equal(t, 1, r.Len())
}

func TestRotation_Concurrent(t *testing.T) {
	r := NewRotation()
	var wg sync.WaitGroup
	for i := range 10 {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id := string(rune('a' + i))
			r.Add(id)
			r.Next(nil)
			r.Snapshot()
		}(i)
	}
	wg.Wait()
	assert.Equal(t, 10, r.Len())
}
