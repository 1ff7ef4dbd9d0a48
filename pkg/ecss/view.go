package ecss

import "sort"

// Tuple1 is one step of a View1 iteration: the entity id plus its primary
// component pointer.
type Tuple1[T0 any] struct {
	Id EntityID
	C0 *T0
}

// View1 projects a single sectors array, optionally filtering to entries
// alive for the primary component and/or bounded to an id range set.
//
// Grounded on ecss/SystemsManager/Iterator/alive/range variants: all three
// flavors snapshot (ids, aliveBits, size) once at construction and
// traverse that snapshot, matching spec §4.5's "all iterators snapshot
// atomically" rule. Go's slices already give read-only, stable-length
// views once sliced to [:size:size] in SectorsArray.Snapshot, so no extra
// copy is required to get that guarantee.
type View1[T0 any] struct {
	arr        *Array1[T0]
	snap       snapshot
	aliveOnly  bool
	lo, hi     []int // [loDense, hiDense) runs, already clamped/merged
	backPin    *PinnedSector
}

type view1Option func(*viewConfig)

type viewConfig struct {
	aliveOnly bool
	ranges    []Range
}

// Range is a half-open entity id range [Lo, Hi).
type Range struct{ Lo, Hi EntityID }

// WithAliveFilter restricts iteration to sectors alive for the primary
// component.
func WithAliveFilter() view1Option { return func(c *viewConfig) { c.aliveOnly = true } }

// WithIDRanges restricts iteration to dense positions whose id falls in
// one of ranges.
func WithIDRanges(ranges ...Range) view1Option {
	return func(c *viewConfig) { c.ranges = ranges }
}

// NewView1 constructs a view over arr's primary component, pinning the
// back sector (thread-safe mode) so the snapshot's upper bound stays
// addressable for the view's lifetime. Callers must call Close when done.
func NewView1[T0 any](arr *Array1[T0], opts ...view1Option) *View1[T0] {
	var cfg viewConfig
	for _, o := range opts {
		o(&cfg)
	}
	snap := arr.arr.Snapshot()

	v := &View1[T0]{arr: arr, snap: snap, aliveOnly: cfg.aliveOnly}
	if pinned, ok := arr.arr.PinBackSector(); ok {
		v.backPin = pinned
	}

	if len(cfg.ranges) == 0 {
		v.lo, v.hi = []int{0}, []int{snap.size}
		return v
	}
	v.lo, v.hi = denseRunsForRanges(snap.ids, cfg.ranges)
	return v
}

// Close releases the view's back-sector pin, if any.
func (v *View1[T0]) Close() {
	if v.backPin != nil {
		v.backPin.Release()
		v.backPin = nil
	}
}

// denseRunsForRanges converts each [lo,hi) id range to a [loDense,hiDense)
// dense-index run via binary search in ids, which is sorted ascending, then
// orders the runs and merges overlapping or touching ones.
func denseRunsForRanges(ids []EntityID, ranges []Range) (los, his []int) {
	type run struct{ lo, hi int }
	var runs []run
	for _, r := range ranges {
		if r.Lo >= r.Hi {
			continue
		}
		lo := sort.Search(len(ids), func(i int) bool { return ids[i] >= r.Lo })
		hi := sort.Search(len(ids), func(i int) bool { return ids[i] >= r.Hi })
		if lo < hi {
			runs = append(runs, run{lo, hi})
		}
	}
	sort.Slice(runs, func(i, j int) bool { return runs[i].lo < runs[j].lo })
	for _, r := range runs {
		if n := len(his); n > 0 && r.lo <= his[n-1] {
			if r.hi > his[n-1] {
				his[n-1] = r.hi
			}
			continue
		}
		los = append(los, r.lo)
		his = append(his, r.hi)
	}
	return los, his
}

// Each invokes fn(id, *T0) for every dense entry the view selects, in
// ascending id order, skipping dead entries when alive-filtering is on.
func (v *View1[T0]) Each(fn func(EntityID, *T0)) {
	for r := 0; r < len(v.lo); r++ {
		for i := v.lo[r]; i < v.hi[r]; i++ {
			if v.aliveOnly && v.snap.aliveBits[i]&aliveBitMask(0) == 0 {
				continue
			}
			fn(v.snap.ids[i], v.arr.c0.At(i))
		}
	}
}

// Tuple2 is one step of a View2 iteration.
type Tuple2[T0, T1 any] struct {
	Id EntityID
	C0 *T0
	C1 *T1
}

// View2 projects a primary array's T0 alongside a secondary array's T1,
// looking the secondary up by id (O(1) sparse lookup) at each step. The
// secondary pointer is nil when the id has no live T1.
type View2[T0, T1 any] struct {
	primary *View1[T0]
	sec     *Array1[T1]
}

// NewView2 projects prim (driving iteration order) plus sec (looked up
// per step). Callers must call Close when done.
func NewView2[T0, T1 any](prim *Array1[T0], sec *Array1[T1], opts ...view1Option) *View2[T0, T1] {
	return &View2[T0, T1]{primary: NewView1(prim, opts...), sec: sec}
}

// Close releases the underlying view's back-sector pin.
func (v *View2[T0, T1]) Close() { v.primary.Close() }

// Each invokes fn(id, *T0, *T1) for every selected entry; *T1 is nil when
// the id has no live secondary component.
func (v *View2[T0, T1]) Each(fn func(EntityID, *T0, *T1)) {
	v.primary.Each(func(id EntityID, c0 *T0) {
		fn(id, c0, v.sec.Get(id))
	})
}

// EachPresent is Each but skips tuples where the secondary is absent,
// matching spec's each(fn) convenience ("skips tuples where any requested
// component is null").
func (v *View2[T0, T1]) EachPresent(fn func(EntityID, *T0, *T1)) {
	v.primary.Each(func(id EntityID, c0 *T0) {
		if c1 := v.sec.Get(id); c1 != nil {
			fn(id, c0, c1)
		}
	})
}
