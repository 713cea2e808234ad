package bufferpool

// Replacer picks victim frames among the resident ones.
type Replacer interface {
	RecordAccess(frameID int)
	Evict() (frameID int, ok bool)
	Remove(frameID int)
	Size() int
}

var _ Replacer = (*clock)(nil)

// clock is CLOCK (second-chance) replacement over frame ids [0..capacity).
type clock struct {
	ref     []bool
	present []bool
	hand    int
	size    int // tracked frames
}

func newClock(capacity int) *clock {
	if capacity <= 0 {
		capacity = 1
	}
	return &clock{
		ref:     make([]bool, capacity),
		present: make([]bool, capacity),
	}
}

func (c *clock) valid(id int) bool { return id >= 0 && id < len(c.ref) }

func (c *clock) RecordAccess(id int) {
	if !c.valid(id) {
		return
	}
	if !c.present[id] {
		c.present[id] = true
		c.size++
	}
	c.ref[id] = true
}

// Evict returns a victim and stops tracking it. Two sweeps are enough: the
// first clears every ref bit it passes.
func (c *clock) Evict() (int, bool) {
	n := len(c.ref)
	if c.size == 0 {
		return -1, false
	}
	for range 2 * n {
		idx := c.hand
		c.hand = (c.hand + 1) % n
		if !c.present[idx] {
			continue
		}
		if c.ref[idx] {
			c.ref[idx] = false
			continue
		}
		c.drop(idx)
		return idx, true
	}
	return -1, false
}

func (c *clock) Remove(id int) {
	if !c.valid(id) || !c.present[id] {
		return
	}
	c.drop(id)
}

func (c *clock) drop(id int) {
	c.size--
	c.present[id] = false
	c.ref[id] = false
}

func (c *clock) Size() int { return c.size }
