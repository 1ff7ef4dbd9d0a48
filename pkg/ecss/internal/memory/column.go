package memory

import "github.com/ecss-go/ecss/pkg/ecss/internal/retire"

// Column is the type-erased move/copy/destroy trio a sectors array
// dispatches through, one per co-located component type. It is the Go
// analog of the source's SectorLayoutMeta function table: a static vtable
// built once per column rather than a heap-allocated closure invoked on
// every operation.
//
// Grounded on ecss/memory/Sector.h's emplaceMember/copyMember/moveMember/
// destroyMember and on ecss/memory/SectorLayoutMeta.h's per-type function
// table, adapted to Go generics instead of type-erased function pointers:
// Typed[T] below is instantiated once per component type and its methods
// are genuinely monomorphized, matching the source's "avoid heap-allocated
// function objects in the hot path" redesign note.
type Column interface {
	// Allocate grows the column's backing storage to at least n slots.
	Allocate(n int)
	// Cap returns the column's current slot capacity.
	Cap() int
	// MoveRange relocates n elements from src to dst (src ends destroyed).
	MoveRange(dst, src, n int)
	// Clone makes an independent copy of src into dst (dst's previous
	// live value, if any, is destroyed first).
	Clone(dst, src int)
	// Destroy runs the component's optional cleanup hook (if it has one)
	// and zeroes the slot.
	Destroy(idx int)
	// Deallocate releases whole backing chunks in [from, to).
	Deallocate(from, to int)
	// Trivial reports whether this column has no destructor hook, so a
	// sectors array can skip per-member destroy calls on its fast path.
	Trivial() bool
}

// Destroyer lets a component type run cleanup (closing a handle, releasing
// a buffer) when its sector slot is destroyed or overwritten. Components
// that don't implement it are treated as trivial.
type Destroyer interface{ Destroy() }

// Typed is the concrete Column implementation for component type T,
// backed by its own ChunkedAllocator[T] so that every co-located component
// in a sector gets independent, stably-addressed storage at the same
// dense index as its siblings.
type Typed[T any] struct {
	alloc     *ChunkedAllocator[T]
	onDestroy func(*T)
	trivial   bool
}

// NewTyped constructs a column for T. If T implements Destroyer, its
// Destroy method is invoked automatically before a slot is overwritten or
// reclaimed; onDestroy, if non-nil, additionally (or instead, for types
// that don't implement Destroyer) runs first.
func NewTyped[T any](chunkCapacity int, bin *retire.Bin, onDestroy func(*T)) *Typed[T] {
	var zero T
	_, implementsDestroyer := any(zero).(Destroyer)
	return &Typed[T]{
		alloc:     NewChunkedAllocator[T](chunkCapacity, bin),
		onDestroy: onDestroy,
		trivial:   onDestroy == nil && !implementsDestroyer,
	}
}

func (c *Typed[T]) Allocate(n int)        { c.alloc.Allocate(n) }
func (c *Typed[T]) Cap() int              { return c.alloc.Capacity() }
func (c *Typed[T]) Deallocate(from, to int) { c.alloc.Deallocate(from, to) }
func (c *Typed[T]) Trivial() bool         { return c.trivial }

func (c *Typed[T]) runDestroy(p *T) {
	if c.onDestroy != nil {
		c.onDestroy(p)
	}
	if d, ok := any(p).(Destroyer); ok {
		d.Destroy()
	}
}

// Destroy runs the destructor hook (if any) and zeroes the slot.
func (c *Typed[T]) Destroy(idx int) {
	p := c.alloc.At(idx)
	if !c.trivial {
		c.runDestroy(p)
	}
	var zero T
	*p = zero
}

// MoveRange relocates n live elements: the destination's previous value is
// destroyed first (if not trivial), the value is moved by Go assignment,
// and the source slot is zeroed.
func (c *Typed[T]) MoveRange(dst, src, n int) {
	if n == 0 || dst == src {
		return
	}
	move := func(d, s *T) {
		if !c.trivial {
			c.runDestroy(d)
		}
		*d = *s
		var zero T
		*s = zero
	}
	c.alloc.MoveRange(dst, src, n, move)
}

// Clone makes dst hold an independent copy of src's value. Because T is a
// concrete Go type (not boxed in an any), assignment performs a genuine
// struct copy: subsequent mutation of one slot never affects the other,
// except for reference fields (slices, maps, pointers) the component
// itself holds, which remain shared -- matching ordinary Go value-copy
// semantics.
func (c *Typed[T]) Clone(dst, src int) {
	d, s := c.alloc.At(dst), c.alloc.At(src)
	if !c.trivial {
		c.runDestroy(d)
	}
	*d = *s
}

// At returns the stable address of idx's value. Used by the sectors array
// to hand out pin-scoped pointers.
func (c *Typed[T]) At(idx int) *T { return c.alloc.At(idx) }
