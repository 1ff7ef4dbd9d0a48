package ecss

import (
	"context"
	"fmt"
	"sort"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ecss-go/ecss/pkg/ecss/internal/syncutil"
	"github.com/ecss-go/ecss/pkg/ecss/ranges"
)

// maintainable is the subset of Array1/2/3's behavior the registry needs
// to broadcast lifecycle operations (reserve/clear/defragment/update)
// across every registered array regardless of its component arity.
type maintainable interface {
	arrHandle() *SectorsArray
}

func (a *Array1[T0]) arrHandle() *SectorsArray        { return a.arr }
func (a *Array2[T0, T1]) arrHandle() *SectorsArray     { return a.arr }
func (a *Array3[T0, T1, T2]) arrHandle() *SectorsArray { return a.arr }

// Registry owns the sectors arrays registered with it (held as a plain
// list; the component type ids assigned at registration are not used to
// look arrays up), the entity id range set, and coordinates
// bulk/maintenance operations across arrays.
//
// Grounded on the source's Registry (per-template-parameter type-id
// space, lazy array creation, range-set-backed entity allocation). Fan-out
// across arrays for reserve/clear/defragment/update uses
// golang.org/x/sync/errgroup, mirroring the source's "coordinate bulk
// operations" responsibility with bounded, error-aware concurrency instead
// of a raw WaitGroup loop.
type Registry struct {
	mu syncutil.RWLocker

	entities   *ranges.Set[EntityID]
	arrays     []maintainable
	types      typeIDs
	threadSafe bool
	log        *zap.Logger
}

// NewRegistry constructs an empty registry.
func NewRegistry(opts Options) *Registry {
	return &Registry{
		mu:         syncutil.New(opts.ThreadSafe),
		entities:   ranges.New[EntityID](),
		threadSafe: opts.ThreadSafe,
		log:        opts.logger(),
	}
}

// TakeEntity allocates and returns a fresh entity id from the range set.
func (r *Registry) TakeEntity() EntityID {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.entities.Take()
}

// Contains reports whether id is a currently-live entity id.
func (r *Registry) Contains(id EntityID) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.entities.Contains(id)
}

// GetAllEntities returns every currently-live entity id, ascending.
func (r *Registry) GetAllEntities() []EntityID {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.entities.GetAll()
}

// DestroyEntity removes id from the range set, then destroys its sector
// in every registered array.
func (r *Registry) DestroyEntity(id EntityID) {
	r.mu.Lock()
	r.entities.Erase(id)
	arrays := append([]maintainable(nil), r.arrays...)
	r.mu.Unlock()

	for _, arr := range arrays {
		a := arr.arrHandle()
		if a.threadSafe {
			a.pins.WaitUntilChangeable(uint32(id))
		}
		a.Erase2(id)
	}
}

// DestroyEntities removes every id in ids from the range set and destroys
// each in every registered array. ids need not be sorted or unique.
func (r *Registry) DestroyEntities(ids []EntityID) {
	sorted := append([]EntityID(nil), ids...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	sorted = dedupEntityIDs(sorted)
	if len(sorted) == 0 {
		return
	}

	r.mu.Lock()
	arrays := append([]maintainable(nil), r.arrays...)
	for _, id := range sorted {
		r.entities.Erase(id)
	}
	r.mu.Unlock()

	for _, arr := range arrays {
		a := arr.arrHandle()
		if a.threadSafe {
			a.pins.WaitUntilChangeable(uint32(sorted[0]))
		}
		for _, id := range sorted {
			a.Erase2(id)
		}
	}
}

// RegisterArray1 constructs and registers a single-component array. Call
// before any implicit use of T0 through a view or lookup helper.
func RegisterArray1[T0 any](r *Registry, opts Options, onDestroy func(*T0)) *Array1[T0] {
	arr := newArray1[T0](opts, onDestroy)
	id := TypeID[T0](r)
	r.mu.Lock()
	r.arrays = append(r.arrays, arr)
	r.mu.Unlock()
	r.log.Debug("registered array", zap.Uint16("componentTypeID", uint16(id)))
	return arr
}

// RegisterArray2 constructs and registers a two-component co-located
// array.
func RegisterArray2[T0, T1 any](r *Registry, opts Options, onDestroy0 func(*T0), onDestroy1 func(*T1)) *Array2[T0, T1] {
	arr := newArray2[T0, T1](opts, onDestroy0, onDestroy1)
	id0, id1 := TypeID[T0](r), TypeID[T1](r)
	r.mu.Lock()
	r.arrays = append(r.arrays, arr)
	r.mu.Unlock()
	r.log.Debug("registered co-located array",
		zap.Uint16("componentTypeID0", uint16(id0)), zap.Uint16("componentTypeID1", uint16(id1)))
	return arr
}

// RegisterArray3 constructs and registers a three-component co-located
// array.
func RegisterArray3[T0, T1, T2 any](r *Registry, opts Options, onDestroy0 func(*T0), onDestroy1 func(*T1), onDestroy2 func(*T2)) *Array3[T0, T1, T2] {
	arr := newArray3[T0, T1, T2](opts, onDestroy0, onDestroy1, onDestroy2)
	id0, id1, id2 := TypeID[T0](r), TypeID[T1](r), TypeID[T2](r)
	r.mu.Lock()
	r.arrays = append(r.arrays, arr)
	r.mu.Unlock()
	r.log.Debug("registered co-located array",
		zap.Uint16("componentTypeID0", uint16(id0)),
		zap.Uint16("componentTypeID1", uint16(id1)),
		zap.Uint16("componentTypeID2", uint16(id2)))
	return arr
}

// Reserve broadcasts reserve(n) to every registered array concurrently.
func (r *Registry) Reserve(ctx context.Context, n int) error {
	return r.broadcast(ctx, func(a *SectorsArray) error {
		a.Reserve(n)
		return nil
	})
}

// Clear broadcasts clear() to every registered array concurrently.
func (r *Registry) Clear(ctx context.Context) error {
	return r.broadcast(ctx, func(a *SectorsArray) error {
		a.Clear()
		return nil
	})
}

// Defragment broadcasts defragment() to every registered array
// concurrently.
func (r *Registry) Defragment(ctx context.Context) error {
	return r.broadcast(ctx, func(a *SectorsArray) error {
		a.Defragment()
		return nil
	})
}

// Update runs a maintenance pass (processPendingErases) over every
// registered array concurrently, optionally defragmenting arrays whose
// dead ratio exceeds their threshold.
func (r *Registry) Update(ctx context.Context, withDefragment bool) error {
	return r.broadcast(ctx, func(a *SectorsArray) error {
		a.ProcessPendingErases(withDefragment)
		return nil
	})
}

func (r *Registry) broadcast(ctx context.Context, fn func(*SectorsArray) error) error {
	r.mu.RLock()
	arrays := append([]maintainable(nil), r.arrays...)
	r.mu.RUnlock()

	g, gctx := errgroup.WithContext(ctx)
	for _, arr := range arrays {
		a := arr.arrHandle()
		g.Go(func() error {
			select {
			case <-gctx.Done():
				return gctx.Err()
			default:
			}
			if err := fn(a); err != nil {
				return fmt.Errorf("registry maintenance: %w", err)
			}
			return nil
		})
	}
	return g.Wait()
}
