// Package retire implements the retire bin: a queue of memory blocks whose
// release is deferred until a designated safe point.
//
// In the C++ source (ecss/memory/RetireAllocator.h) this defers the actual
// free() of a reallocated backing buffer until no concurrent reader could
// still be dereferencing a pointer obtained from the pre-reallocation
// snapshot. In Go, a slice value captured by a reader keeps its backing
// array alive and dereferenceable for as long as the reader holds it --
// the garbage collector, not manual freeing, already provides that safety.
// The bin is kept anyway because it still serves the bin's second role: it
// stops this package's own bookkeeping from releasing its last reference to
// a retired chunk before the structural-mutation invariant says it may
// (defragment completion, clear/shrink, or destruction), so tests and
// metrics can observe "how many generations are awaiting a safe point"
// exactly as the source's design intends, and so a future caller cannot
// accidentally reuse a chunk's address while some documented safe point has
// not yet been reached.
package retire

import "sync"

// Bin queues retired values until DrainAll is called. The caller is
// responsible for calling DrainAll only when no snapshot from a prior
// epoch may still be relying on the retired values -- at minimum behind
// the owning structure's unique lock after a structural mutation, before
// releasing it.
type Bin struct {
	mu      sync.Mutex
	pending []any
}

// Retire queues v for deferred release.
func (b *Bin) Retire(v any) {
	b.mu.Lock()
	b.pending = append(b.pending, v)
	b.mu.Unlock()
}

// DrainAll drops all references held by the bin, allowing the garbage
// collector to reclaim them once no other referent remains.
func (b *Bin) DrainAll() {
	b.mu.Lock()
	b.pending = b.pending[:0]
	b.mu.Unlock()
}

// Pending returns the number of generations currently queued.
func (b *Bin) Pending() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.pending)
}
