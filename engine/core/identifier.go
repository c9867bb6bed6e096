package core

import "fmt"

// InvalidEntityID marks an unassigned tracking entity slot.
const InvalidEntityID uint32 = 0xFFFFFFFF

// EntityRegistry hands out tracking-entity IDs backed by a reusable slot
// table. A tracking entity attaches request-scoped bookkeeping (an active
// load task, a pending preview request) to an opaque uint32 handle.
type EntityRegistry struct {
	owners []interface{}
}

func NewEntityRegistry() *EntityRegistry {
	return &EntityRegistry{
		owners: make([]interface{}, 0, 64),
	}
}

// Acquire claims a free slot for the owner and returns its ID. Slots freed
// by Release are reused before the table grows.
func (r *EntityRegistry) Acquire(owner interface{}) uint32 {
	for i := range r.owners {
		// Existing free spot. Take it.
		if r.owners[i] == nil {
			r.owners[i] = owner
			return uint32(i)
		}
	}
	// No existing free slots. Push a new one; the id is length - 1.
	r.owners = append(r.owners, owner)
	return uint32(len(r.owners) - 1)
}

// Get returns the owner stored at id, or nil for released/out-of-range ids.
func (r *EntityRegistry) Get(id uint32) interface{} {
	if id >= uint32(len(r.owners)) {
		return nil
	}
	return r.owners[id]
}

// Release frees the slot, making it available for reuse.
func (r *EntityRegistry) Release(id uint32) error {
	if id >= uint32(len(r.owners)) {
		return fmt.Errorf("entity registry release: id '%d' out of range (max=%d), nothing was done", id, len(r.owners))
	}
	// Just zero out the entry, making it available for use.
	r.owners[id] = nil
	return nil
}

// Len reports how many slots are currently owned.
func (r *EntityRegistry) Len() int {
	n := 0
	for i := range r.owners {
		if r.owners[i] != nil {
			n++
		}
	}
	return n
}
