// Package pin implements per-sector-id pin reference counting: a fast,
// mostly lock-free mechanism that lets readers mark a sector id as "in use"
// so structural mutators (erase, defragment) know to wait or re-queue
// instead of relocating or destroying the record underneath a live pointer.
//
// Grounded on ecss/threads/PinCounters.h. The hierarchical bitmap keeps
// "recompute highest pinned id after the last unpin" at O(log N) instead of
// O(N) instead of a linear scan over every outstanding counter block.
package pin

import (
	"sync"
	"sync/atomic"

	"github.com/ecss-go/ecss/pkg/ecss/internal/bitmap"
)

// blockSize is the granularity at which per-id atomic counter blocks are
// lazily allocated, matching the source's BLOCK constant.
const blockSize = 4096

// Counters tracks, per entity/sector id, a small reference count plus the
// aggregates needed to decide in O(1)/O(log N) whether a structural mutation
// is currently safe. Construct it with New: the zero value starts with a
// watermark of 0 instead of -1 and has no condition variable to wait on.
type Counters struct {
	bits bitmap.Hierarchical

	blocksMu sync.RWMutex
	blocks   [][]uint32 // lazily allocated, blockSize counters per block

	highestPinned atomic.Int64  // -1 when nothing is pinned
	epoch         atomic.Uint64 // mutation epoch, guards the recompute race
	distinct      atomic.Uint32 // count of ids with counter > 0

	cond struct {
		mu sync.Mutex
		c  *sync.Cond
	}
}

// New returns a ready-to-use Counters.
func New() *Counters {
	c := &Counters{}
	c.highestPinned.Store(-1)
	c.cond.c = sync.NewCond(&c.cond.mu)
	return c
}

func (c *Counters) counter(id uint32) *uint32 {
	bi, off := id/blockSize, id%blockSize

	c.blocksMu.RLock()
	if int(bi) < len(c.blocks) && c.blocks[bi] != nil {
		defer c.blocksMu.RUnlock()
		return &c.blocks[bi][off]
	}
	c.blocksMu.RUnlock()

	c.blocksMu.Lock()
	defer c.blocksMu.Unlock()
	if int(bi) >= len(c.blocks) {
		grown := make([][]uint32, bi+1)
		copy(grown, c.blocks)
		c.blocks = grown
	}
	if c.blocks[bi] == nil {
		c.blocks[bi] = make([]uint32, blockSize)
	}
	return &c.blocks[bi][off]
}

// Pin increments id's reference count. If this is the first pin on id, it
// publishes id's presence bit, bumps the distinct-pinned aggregate, and
// raises the highest-pinned watermark if id exceeds it.
func (c *Counters) Pin(id uint32) {
	c.epoch.Add(1)
	ctr := c.counter(id)
	prev := atomic.AddUint32(ctr, 1) - 1
	if prev == 0 {
		c.bits.Set(id, true)
		c.distinct.Add(1)
	}

	want := int64(id)
	for {
		cur := c.highestPinned.Load()
		if want <= cur {
			break
		}
		if c.highestPinned.CompareAndSwap(cur, want) {
			break
		}
	}
}

// Unpin decrements id's reference count. On the last unpin it clears id's
// presence bit, recomputes the highest-pinned watermark (guarded by the
// mutation epoch so a concurrent Pin's publish is never masked by a stale
// recompute), and wakes any waiters.
func (c *Counters) Unpin(id uint32) {
	c.epoch.Add(1)
	ctr := c.counter(id)
	prev := atomic.AddUint32(ctr, ^uint32(0)) + 1 // fetch_sub semantics
	if prev != 1 {
		return
	}

	c.bits.Set(id, false)
	c.distinct.Add(^uint32(0))

	c.updateHighestPinned()
	c.cond.c.L.Lock()
	c.cond.c.Broadcast()
	c.cond.c.L.Unlock()
}

func (c *Counters) updateHighestPinned() {
	epochBefore := c.epoch.Load()
	cur := c.highestPinned.Load()
	if cur == -1 {
		return
	}
	if c.epoch.Load() != epochBefore {
		return // a concurrent pin/unpin raced us; leave it to that caller
	}
	c.highestPinned.CompareAndSwap(cur, c.bits.HighestSet())
}

// CanMoveSector reports whether id is currently safe to relocate or
// destroy: strictly above the highest pinned id, and not itself pinned.
func (c *Counters) CanMoveSector(id uint32) bool {
	max := c.highestPinned.Load()
	return int64(id) > max && atomic.LoadUint32(c.counter(id)) == 0
}

// IsPinned reports whether id currently has a non-zero pin count.
func (c *Counters) IsPinned(id uint32) bool { return atomic.LoadUint32(c.counter(id)) != 0 }

// HasAnyPins reports whether any id is currently pinned.
func (c *Counters) HasAnyPins() bool { return c.distinct.Load() != 0 }

// HighestPinned returns the highest pinned id, or -1 if none is pinned.
func (c *Counters) HighestPinned() int64 { return c.highestPinned.Load() }

// WaitUntilChangeable blocks until id is safe to mutate: id is above the
// highest pinned id, so no pin at or above id remains outstanding. Pass 0 to wait for a full-array structural change
// (e.g. defragment). Spurious wakeups are tolerated via a double-check loop.
func (c *Counters) WaitUntilChangeable(id uint32) {
	want := int64(id)
	for {
		if want > c.highestPinned.Load() && atomic.LoadUint32(c.counter(id)) == 0 {
			return
		}
		c.cond.c.L.Lock()
		// re-check under the condvar lock to close the wait/wake race.
		if want > c.highestPinned.Load() && atomic.LoadUint32(c.counter(id)) == 0 {
			c.cond.c.L.Unlock()
			return
		}
		c.cond.c.Wait()
		c.cond.c.L.Unlock()
	}
}
