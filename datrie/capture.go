package datrie

// Capture is a ready-made RelocationFunc host for keeping an external
// per-slot index in sync with the trie's own cell movements (§5
// "Relocation callback", §8 invariant 8). It is the Go counterpart of the
// capture-style tracers used elsewhere in this codebase to shadow mutable
// state alongside a moving structure: instead of recording inserts and
// deletes, it only ever renames a key's slot.
//
// The zero value is ready to use. A nil *Capture is also safe to call
// methods on (all become no-ops), so it can be embedded as an optional
// WithRelocationCallback target without a presence check at every call
// site.
type Capture[T any] struct {
	slots map[int32]T
}

// NewCapture returns an empty Capture.
func NewCapture[T any]() *Capture[T] {
	return &Capture[T]{slots: make(map[int32]T)}
}

// Track associates external value v with slot. Call this once, right after
// Update returns the leaf slot for a freshly inserted key.
func (c *Capture[T]) Track(slot int32, v T) {
	if c == nil {
		return
	}
	c.slots[slot] = v
}

// Untrack removes slot's association, e.g. after Erase.
func (c *Capture[T]) Untrack(slot int32) {
	if c == nil {
		return
	}
	delete(c.slots, slot)
}

// Lookup returns the value tracked at slot, if any.
func (c *Capture[T]) Lookup(slot int32) (v T, ok bool) {
	if c == nil {
		return v, false
	}
	v, ok = c.slots[slot]
	return v, ok
}

// Len reports how many slots are currently tracked.
func (c *Capture[T]) Len() int {
	if c == nil {
		return 0
	}
	return len(c.slots)
}

// OnRelocate is a RelocationFunc: pass it to WithRelocationCallback to keep
// this Capture's slot index consistent across collision-resolution moves.
func (c *Capture[T]) OnRelocate(oldSlot, newSlot int) {
	if c == nil {
		return
	}
	v, ok := c.slots[int32(oldSlot)]
	if !ok {
		return
	}
	delete(c.slots, int32(oldSlot))
	c.slots[int32(newSlot)] = v
}
