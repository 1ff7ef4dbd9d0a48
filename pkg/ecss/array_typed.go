package ecss

import (
	"github.com/ecss-go/ecss/pkg/ecss/internal/memory"
	"github.com/ecss-go/ecss/pkg/ecss/internal/retire"
)

// Array1 is a sectors array co-locating a single component type T. Go has
// no variadic generic type parameters, so registerArray<T0,T1,...> from
// the source is exposed as fixed-arity wrappers Array1/Array2/Array3
// instead of one variadic generic -- following lazyecs's own precedent of
// capping multi-component registration/view helpers at a small fixed
// arity rather than attempting variadic generics Go cannot express.
type Array1[T0 any] struct {
	arr *SectorsArray
	c0  *memory.Typed[T0]
}

func newArray1[T0 any](opts Options, onDestroy0 func(*T0)) *Array1[T0] {
	bin := &retire.Bin{}
	c0 := memory.NewTyped[T0](opts.chunkCapacity(), bin, onDestroy0)
	return &Array1[T0]{arr: newSectorsArray(opts, bin, c0), c0: c0}
}

// Arr exposes the untyped SectorsArray for lifecycle operations shared
// across arities (Size, Clear, Defragment, pin handles, ...).
func (a *Array1[T0]) Arr() *SectorsArray { return a.arr }

// Insert acquires (or reuses) id's slot and sets *T0 to value.
func (a *Array1[T0]) Insert(id EntityID, value T0) *T0 {
	idx := a.arr.InsertSlot(id, 0)
	p := a.c0.At(idx)
	*p = value
	return p
}

// Get returns T0's pointer for id if alive, else nil.
func (a *Array1[T0]) Get(id EntityID) *T0 {
	idx, ok := a.arr.FindDenseIndex(id)
	if !ok || !a.arr.IsAlive(idx, 0) {
		return nil
	}
	return a.c0.At(idx)
}

// Destroy clears T0 on id.
func (a *Array1[T0]) Destroy(id EntityID) { a.arr.DestroyMember(id, 0) }

// Array2 co-locates two component types sharing one sector each.
type Array2[T0, T1 any] struct {
	arr *SectorsArray
	c0  *memory.Typed[T0]
	c1  *memory.Typed[T1]
}

func newArray2[T0, T1 any](opts Options, onDestroy0 func(*T0), onDestroy1 func(*T1)) *Array2[T0, T1] {
	bin := &retire.Bin{}
	c0 := memory.NewTyped[T0](opts.chunkCapacity(), bin, onDestroy0)
	c1 := memory.NewTyped[T1](opts.chunkCapacity(), bin, onDestroy1)
	return &Array2[T0, T1]{arr: newSectorsArray(opts, bin, c0, c1), c0: c0, c1: c1}
}

func (a *Array2[T0, T1]) Arr() *SectorsArray { return a.arr }

func (a *Array2[T0, T1]) Insert0(id EntityID, value T0) *T0 {
	idx := a.arr.InsertSlot(id, 0)
	p := a.c0.At(idx)
	*p = value
	return p
}

func (a *Array2[T0, T1]) Insert1(id EntityID, value T1) *T1 {
	idx := a.arr.InsertSlot(id, 1)
	p := a.c1.At(idx)
	*p = value
	return p
}

func (a *Array2[T0, T1]) Get0(id EntityID) *T0 {
	idx, ok := a.arr.FindDenseIndex(id)
	if !ok || !a.arr.IsAlive(idx, 0) {
		return nil
	}
	return a.c0.At(idx)
}

func (a *Array2[T0, T1]) Get1(id EntityID) *T1 {
	idx, ok := a.arr.FindDenseIndex(id)
	if !ok || !a.arr.IsAlive(idx, 1) {
		return nil
	}
	return a.c1.At(idx)
}

func (a *Array2[T0, T1]) Destroy0(id EntityID) { a.arr.DestroyMember(id, 0) }
func (a *Array2[T0, T1]) Destroy1(id EntityID) { a.arr.DestroyMember(id, 1) }

// Array3 co-locates three component types sharing one sector each.
type Array3[T0, T1, T2 any] struct {
	arr *SectorsArray
	c0  *memory.Typed[T0]
	c1  *memory.Typed[T1]
	c2  *memory.Typed[T2]
}

func newArray3[T0, T1, T2 any](opts Options, onDestroy0 func(*T0), onDestroy1 func(*T1), onDestroy2 func(*T2)) *Array3[T0, T1, T2] {
	bin := &retire.Bin{}
	c0 := memory.NewTyped[T0](opts.chunkCapacity(), bin, onDestroy0)
	c1 := memory.NewTyped[T1](opts.chunkCapacity(), bin, onDestroy1)
	c2 := memory.NewTyped[T2](opts.chunkCapacity(), bin, onDestroy2)
	return &Array3[T0, T1, T2]{arr: newSectorsArray(opts, bin, c0, c1, c2), c0: c0, c1: c1, c2: c2}
}

func (a *Array3[T0, T1, T2]) Arr() *SectorsArray { return a.arr }

func (a *Array3[T0, T1, T2]) Insert0(id EntityID, value T0) *T0 {
	idx := a.arr.InsertSlot(id, 0)
	p := a.c0.At(idx)
	*p = value
	return p
}

func (a *Array3[T0, T1, T2]) Insert1(id EntityID, value T1) *T1 {
	idx := a.arr.InsertSlot(id, 1)
	p := a.c1.At(idx)
	*p = value
	return p
}

func (a *Array3[T0, T1, T2]) Insert2(id EntityID, value T2) *T2 {
	idx := a.arr.InsertSlot(id, 2)
	p := a.c2.At(idx)
	*p = value
	return p
}

func (a *Array3[T0, T1, T2]) Get0(id EntityID) *T0 {
	idx, ok := a.arr.FindDenseIndex(id)
	if !ok || !a.arr.IsAlive(idx, 0) {
		return nil
	}
	return a.c0.At(idx)
}

func (a *Array3[T0, T1, T2]) Get1(id EntityID) *T1 {
	idx, ok := a.arr.FindDenseIndex(id)
	if !ok || !a.arr.IsAlive(idx, 1) {
		return nil
	}
	return a.c1.At(idx)
}

func (a *Array3[T0, T1, T2]) Get2(id EntityID) *T2 {
	idx, ok := a.arr.FindDenseIndex(id)
	if !ok || !a.arr.IsAlive(idx, 2) {
		return nil
	}
	return a.c2.At(idx)
}

func (a *Array3[T0, T1, T2]) Destroy0(id EntityID) { a.arr.DestroyMember(id, 0) }
func (a *Array3[T0, T1, T2]) Destroy1(id EntityID) { a.arr.DestroyMember(id, 1) }
func (a *Array3[T0, T1, T2]) Destroy2(id EntityID) { a.arr.DestroyMember(id, 2) }
