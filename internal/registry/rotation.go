package registry

import (
	"sync"

	list "github.com/bahlo/generic-list-go"
)

// Rotation is an ordered list of subscriber IDs for one message kind.
//
// Next implements round-robin selection: the head is taken, moved to the tail and
// returned, so over N selections with a stable membership of K entries every entry
// is picked either floor(N/K) or ceil(N/K) times. A subscriber that was added
// twice occupies two slots.
type Rotation struct {
	mu  sync.Mutex
	ids *list.List[string]
}

func NewRotation() *Rotation {
	return &Rotation{ids: list.New[string]()}
}

// Add appends id to the tail.
func (r *Rotation) Add(id string) {
	r.mu.Lock()
	r.ids.PushBack(id)
	r.mu.Unlock()
}

// Remove strikes every occurrence of id and reports how many were removed.
func (r *Rotation) Remove(id string) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	var removed int
	for e := r.ids.Front(); e != nil; {
		next := e.Next()
		if e.Value == id {
			r.ids.Remove(e)
			removed++
		}
		e = next
	}
	return removed
}

// Next rotates the list until it finds an id accepted by eligible, moving every
// visited entry to the tail. Each entry is visited at most once per call. When
// eligible is nil every entry is accepted.
func (r *Rotation) Next(eligible func(id string) bool) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for range r.ids.Len() {
		head := r.ids.Front()
		r.ids.MoveToBack(head)
		if eligible == nil || eligible(head.Value) {
			return head.Value, true
		}
	}
	return "", false
}

// Snapshot returns the current membership in order.
func (r *Rotation) Snapshot() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	ids := make([]string, 0, r.ids.Len())
	for e := r.ids.Front(); e != nil; e = e.Next() {
		ids = append(ids, e.Value)
	}
	return ids
}

func (r *Rotation) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.ids.Len()
}
