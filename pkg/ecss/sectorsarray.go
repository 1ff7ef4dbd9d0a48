package ecss

import (
	"sort"

	"go.uber.org/zap"

	"github.com/ecss-go/ecss/pkg/ecss/internal/memory"
	"github.com/ecss-go/ecss/pkg/ecss/internal/pin"
	"github.com/ecss-go/ecss/pkg/ecss/internal/retire"
	"github.com/ecss-go/ecss/pkg/ecss/internal/syncutil"
)

// sparseEntry is the sectors array's sparse map record: the dense index a
// live entity id currently occupies, or -1 when absent. Grounded on
// ecss/memory/SectorsArray.h's sparse vector of {data*, denseIdx} pairs --
// adapted to hold only the dense index, since this module's per-component
// payload lives in typed Column storage rather than inside a raw sector
// block the sparse entry could point at directly.
type sparseEntry struct{ denseIdx int32 }

const invalidDenseIdx int32 = -1

// SectorsArray is the SoA+sparse store described in spec §3/§4.4: sorted
// dense ids and alive-bit headers, an O(1) sparse map, deferred erase, and
// defragmentation, fronting one or more co-located component columns.
//
// Grounded on ecss/memory/SectorsArray.h. The header fields the source
// embeds inside each raw sector block (id, aliveBits) are instead kept as
// this array's own parallel ids/aliveBits slices, because payload storage
// here is per-component-type typed columns (see internal/memory.Typed)
// rather than a single type-erased byte block -- see DESIGN.md for why.
type SectorsArray struct {
	mu syncutil.RWLocker

	columns []memory.Column

	ids       []EntityID
	aliveBits []uint32
	sparse    []sparseEntry

	size       int
	defragSize int
	pending    []EntityID

	pins *pin.Counters
	bin  *retire.Bin

	threadSafe     bool
	chunkCapacity  int
	defragThresh   float64
	log            *zap.Logger
}

// newSectorsArray constructs an array over the given columns (already
// built for their respective component types, sharing bin) honoring opts.
func newSectorsArray(opts Options, bin *retire.Bin, columns ...memory.Column) *SectorsArray {
	return &SectorsArray{
		mu:            syncutil.New(opts.ThreadSafe),
		columns:       columns,
		pins:          pin.New(),
		bin:           bin,
		threadSafe:    opts.ThreadSafe,
		chunkCapacity: opts.chunkCapacity(),
		defragThresh:  opts.defragmentThreshold(),
		log:           opts.logger(),
	}
}

// Bin exposes the array's retire bin for diagnostics (pending-generation
// counts in tests and metrics).
func (a *SectorsArray) Bin() *retire.Bin { return a.bin }

// Size returns the number of dense entries, alive or dead.
func (a *SectorsArray) Size() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.size
}

// Empty reports whether the array currently has zero dense entries.
func (a *SectorsArray) Empty() bool { return a.Size() == 0 }

// Capacity returns the array's allocated column capacity.
func (a *SectorsArray) Capacity() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if len(a.columns) == 0 {
		return 0
	}
	return a.columns[0].Cap()
}

func (a *SectorsArray) ensureSparseCapacity(id EntityID) {
	need := int(id) + 1
	if need <= len(a.sparse) {
		return
	}
	grown := make([]sparseEntry, need, need*2)
	for i := range grown {
		grown[i].denseIdx = invalidDenseIdx
	}
	copy(grown, a.sparse)
	a.sparse = grown
}

func (a *SectorsArray) sparseLookup(id EntityID) (int32, bool) {
	if int(id) >= len(a.sparse) {
		return invalidDenseIdx, false
	}
	e := a.sparse[int(id)]
	if e.denseIdx == invalidDenseIdx {
		return invalidDenseIdx, false
	}
	return e.denseIdx, true
}

// FindDenseIndex is findSlot/findLinearIdx: O(1) sparse lookup.
func (a *SectorsArray) FindDenseIndex(id EntityID) (int, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	idx, ok := a.sparseLookup(id)
	return int(idx), ok
}

// ContainsSector reports whether id currently occupies a dense slot.
func (a *SectorsArray) ContainsSector(id EntityID) bool {
	_, ok := a.FindDenseIndex(id)
	return ok
}

func (a *SectorsArray) growColumnsTo(n int) {
	for _, c := range a.columns {
		c.Allocate(n)
	}
}

// shiftRight moves dense entries [from, size) up by one, updating ids,
// aliveBits, column storage, and sparse entries for every shifted id.
func (a *SectorsArray) shiftRight(from int) {
	n := a.size - from
	if n > 0 {
		copy(a.ids[from+1:a.size+1], a.ids[from:a.size])
		copy(a.aliveBits[from+1:a.size+1], a.aliveBits[from:a.size])
		for _, c := range a.columns {
			c.MoveRange(from+1, from, n)
		}
		for i := a.size; i > from; i-- {
			a.sparse[int(a.ids[i])].denseIdx = int32(i)
		}
	}
}

// acquireSlot returns the dense index backing id, creating one (in sorted
// position) if absent. Grounded on SectorsArray::insert's "acquire slot"
// step: grow by one, append, and if that breaks sort order, binary-search
// the correct position and shift the suffix.
func (a *SectorsArray) acquireSlot(id EntityID) int {
	a.ensureSparseCapacity(id)
	if idx, ok := a.sparseLookup(id); ok {
		return int(idx)
	}

	if a.size+1 > len(a.ids) {
		newIds := make([]EntityID, a.size+1, (a.size+1)*2)
		copy(newIds, a.ids)
		a.ids = newIds
		newBits := make([]uint32, a.size+1, (a.size+1)*2)
		copy(newBits, a.aliveBits)
		a.aliveBits = newBits
	} else {
		a.ids = a.ids[:a.size+1]
		a.aliveBits = a.aliveBits[:a.size+1]
	}
	a.growColumnsTo(a.size + 1)

	pos := sort.Search(a.size, func(i int) bool { return a.ids[i] > id })
	a.shiftRight(pos)

	a.ids[pos] = id
	a.aliveBits[pos] = 0
	a.defragSize++ // dead until a member is set alive
	a.size++
	a.sparse[int(id)].denseIdx = int32(pos)
	return pos
}

// setAliveBit marks component slot in the sector at dense index idx as live,
// destroying the member first if it was already live (emplace semantics:
// destroy if live, then (re)construct).
func (a *SectorsArray) setAliveBit(idx, slot int) {
	before := a.aliveBits[idx]
	if before&aliveBitMask(slot) != 0 {
		a.columns[slot].Destroy(idx)
	}
	a.aliveBits[idx] |= aliveBitMask(slot)
	if before == 0 && a.aliveBits[idx] != 0 {
		a.defragSize--
	}
}

// InsertSlot acquires (or reuses) the dense slot for id and marks column
// slot as alive on it, returning the dense index the caller should use to
// address that column. This is the shared body of insert/emplace/push
// across the fixed-arity Array wrappers.
//
// Grounded on SectorsArray::insert's pin gate: placing id in sorted order
// may shiftRight every sector with a greater id, relocating its column
// data, so the array waits until id is above the highest pinned id before
// acquiring a slot -- otherwise an outstanding PinnedSector/view over a
// higher id could be relocated out from under its reader.
func (a *SectorsArray) InsertSlot(id EntityID, slot int) int {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.threadSafe {
		a.pins.WaitUntilChangeable(uint32(id))
	}
	idx := a.acquireSlot(id)
	a.setAliveBit(idx, slot)
	return idx
}

// IsAlive reports whether component slot is live at dense index idx.
func (a *SectorsArray) IsAlive(idx, slot int) bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if idx < 0 || idx >= a.size {
		return false
	}
	return a.aliveBits[idx]&aliveBitMask(slot) != 0
}

// DestroyMember clears component slot's alive bit for id (spec's
// destroyMember): if the sector's aliveBits becomes zero, the defragment
// counter is incremented. No-op if id is absent or the member was already
// dead.
func (a *SectorsArray) DestroyMember(id EntityID, slot int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	idx, ok := a.sparseLookup(id)
	if !ok {
		return
	}
	mask := aliveBitMask(slot)
	if a.aliveBits[idx]&mask == 0 {
		return
	}
	a.columns[slot].Destroy(int(idx))
	a.aliveBits[idx] &^= mask
	if a.aliveBits[idx] == 0 {
		a.defragSize++
	}
}

// eraseRangeLocked destroys dense entries [from, from+n), clears their
// sparse entries, and either closes the gap (defragment=true) or leaves
// the slots dead and bumps defragSize. Caller holds the unique lock.
func (a *SectorsArray) eraseRangeLocked(from, n int, defragment bool) {
	if n <= 0 {
		return
	}
	to := from + n
	for i := from; i < to; i++ {
		bits := a.aliveBits[i]
		for slot, c := range a.columns {
			if bits&aliveBitMask(slot) != 0 {
				c.Destroy(i)
			}
		}
		a.sparse[int(a.ids[i])].denseIdx = invalidDenseIdx
	}

	if !defragment {
		for i := from; i < to; i++ {
			if a.aliveBits[i] != 0 {
				a.defragSize++
			}
			a.aliveBits[i] = 0
		}
		return
	}

	tail := a.size - to
	if tail > 0 {
		copy(a.ids[from:from+tail], a.ids[to:a.size])
		copy(a.aliveBits[from:from+tail], a.aliveBits[to:a.size])
		for _, c := range a.columns {
			c.MoveRange(from, to, tail)
		}
		for i := from; i < from+tail; i++ {
			a.sparse[int(a.ids[i])].denseIdx = int32(i)
		}
	}
	a.size -= n
	a.ids = a.ids[:a.size]
	a.aliveBits = a.aliveBits[:a.size]
}

// Erase is spec's erase(denseIdx, n, defragment?).
//
// Grounded on SectorsArray::erase's pin gate: waits until the sector at
// denseIdx is changeable before destroying/shifting it. Because ids are
// sorted ascending, every entry this call could touch -- the erased range
// itself and, when defragment compacts the gap, the shifted tail -- has an
// id >= idAt(denseIdx), so waiting on that one id is sufficient to clear
// the whole range against the highest-pinned watermark.
func (a *SectorsArray) Erase(denseIdx, n int, defragment bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.threadSafe && denseIdx >= 0 && denseIdx < a.size {
		a.pins.WaitUntilChangeable(uint32(a.ids[denseIdx]))
	}
	a.eraseRangeLocked(denseIdx, n, defragment)
}

// EraseAsync is spec's eraseAsync(id): erases immediately under the
// unique lock if id is present, not pinned, and above the highest pinned
// id (CanMoveSector); otherwise the id is queued for a later maintenance
// pass. A fast shared-lock check short-circuits ids that are not present.
func (a *SectorsArray) EraseAsync(id EntityID) {
	if !a.threadSafe {
		a.Erase2(id)
		return
	}

	a.mu.RLock()
	_, present := a.sparseLookup(id)
	a.mu.RUnlock()
	if !present {
		return
	}

	a.mu.Lock()
	idx, ok := a.sparseLookup(id)
	if !ok {
		a.mu.Unlock()
		return
	}
	if !a.pins.CanMoveSector(uint32(id)) {
		a.pending = append(a.pending, id)
		a.mu.Unlock()
		return
	}
	a.eraseRangeLocked(int(idx), 1, false)
	a.mu.Unlock()
}

// Erase2 erases id immediately by dense index lookup, used by the
// single-threaded-mode fast path where pin discipline is a no-op.
func (a *SectorsArray) Erase2(id EntityID) {
	a.mu.Lock()
	defer a.mu.Unlock()
	idx, ok := a.sparseLookup(id)
	if !ok {
		return
	}
	a.eraseRangeLocked(int(idx), 1, false)
}

// ProcessPendingErases sorts and de-duplicates the pending-erase list,
// erases every id still present and movable, re-queues the rest, and (if
// maybeDefragment and the dead ratio exceeds threshold) defragments --
// Defragment itself waits for the whole array to become changeable.
func (a *SectorsArray) ProcessPendingErases(maybeDefragment bool) {
	a.mu.Lock()
	pending := a.pending
	a.pending = nil
	a.mu.Unlock()

	if len(pending) > 0 {
		sort.Slice(pending, func(i, j int) bool { return pending[i] < pending[j] })
		pending = dedupEntityIDs(pending)

		var requeue []EntityID
		for _, id := range pending {
			a.mu.Lock()
			idx, ok := a.sparseLookup(id)
			if !ok {
				a.mu.Unlock()
				continue
			}
			if !a.pins.CanMoveSector(uint32(id)) {
				a.mu.Unlock()
				requeue = append(requeue, id)
				continue
			}
			a.eraseRangeLocked(int(idx), 1, false)
			a.mu.Unlock()
		}
		if len(requeue) > 0 {
			a.mu.Lock()
			a.pending = append(a.pending, requeue...)
			a.mu.Unlock()
		}
	}

	if !maybeDefragment {
		return
	}
	a.mu.RLock()
	ratio := 0.0
	if a.size > 0 {
		ratio = float64(a.defragSize) / float64(a.size)
	}
	a.mu.RUnlock()
	if ratio > a.defragThresh {
		a.Defragment()
	}
}

func dedupEntityIDs(sorted []EntityID) []EntityID {
	if len(sorted) == 0 {
		return sorted
	}
	out := sorted[:1]
	for _, id := range sorted[1:] {
		if id != out[len(out)-1] {
			out = append(out, id)
		}
	}
	return out
}

// Defragment is a two-pointer read/write compaction over the dense arrays
// and every column, dropping dead runs and closing the gap they leave.
//
// Grounded on SectorsArray::defragment, which always waits for every pin to
// clear before compacting (_examples/original_source/ecss/memory/
// SectorsArray.h:934, "mPinsCounter.waitUntilChangeable(); defragmentImpl();"
// under the unique lock). Compaction can relocate any live sector to a
// lower dense index, so nothing may be pinned anywhere in the array while
// it runs -- not just the sectors actually being moved.
func (a *SectorsArray) Defragment() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.threadSafe {
		a.pins.WaitUntilChangeable(0)
	}

	write := 0
	for read := 0; read < a.size; read++ {
		if a.aliveBits[read] == 0 {
			a.sparse[int(a.ids[read])].denseIdx = invalidDenseIdx
			continue
		}
		if write != read {
			a.ids[write] = a.ids[read]
			a.aliveBits[write] = a.aliveBits[read]
			for _, c := range a.columns {
				c.MoveRange(write, read, 1)
			}
			a.sparse[int(a.ids[write])].denseIdx = int32(write)
		}
		write++
	}

	a.size = write
	a.defragSize = 0
	a.ids = a.ids[:a.size]
	a.aliveBits = a.aliveBits[:a.size]

	for _, c := range a.columns {
		c.Deallocate(a.size, c.Cap())
	}
	a.bin.DrainAll()
	a.log.Debug("defragmented sectors array", zap.Int("size", a.size))
}

// Clear destroys every live sector, resets size/defragSize/pending, and
// clears every sparse entry, but retains allocator chunks.
//
// Grounded on SectorsArray::clear's pin gate (SectorsArray.h:929), which
// waits for every pin to clear before destroying anything, for the same
// reason Defragment does: clear can destroy any live sector regardless of
// which one a caller has pinned.
func (a *SectorsArray) Clear() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.threadSafe {
		a.pins.WaitUntilChangeable(0)
	}
	for i := 0; i < a.size; i++ {
		bits := a.aliveBits[i]
		for slot, c := range a.columns {
			if bits&aliveBitMask(slot) != 0 {
				c.Destroy(i)
			}
		}
		a.sparse[int(a.ids[i])].denseIdx = invalidDenseIdx
	}
	a.size = 0
	a.defragSize = 0
	a.pending = nil
	a.ids = a.ids[:0]
	a.aliveBits = a.aliveBits[:0]
}

// ShrinkToFit releases allocator tail chunks not backing the first size
// sectors.
func (a *SectorsArray) ShrinkToFit() {
	a.mu.Lock()
	defer a.mu.Unlock()
	for _, c := range a.columns {
		c.Deallocate(a.size, c.Cap())
	}
}

// Reserve grows column capacity to at least n.
func (a *SectorsArray) Reserve(n int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.growColumnsTo(n)
}

// PinnedSector is a pin-scoped handle: while held, the mutex-protected
// sector at Id cannot be relocated or destroyed. Release must be called
// exactly once.
type PinnedSector struct {
	arr       *SectorsArray
	Id        EntityID
	DenseIdx  int
	AliveBits uint32
	released  bool
}

// Release ends the pin, allowing structural mutation of the sector again.
func (p *PinnedSector) Release() {
	if p == nil || p.released {
		return
	}
	p.released = true
	if p.arr.threadSafe {
		p.arr.pins.Unpin(uint32(p.Id))
	}
}

// PinSector pins id and returns a handle snapshotting its dense index and
// aliveBits. Returns ok=false if id is not present.
func (a *SectorsArray) PinSector(id EntityID) (*PinnedSector, bool) {
	a.mu.RLock()
	idx, ok := a.sparseLookup(id)
	if !ok {
		a.mu.RUnlock()
		return nil, false
	}
	if a.threadSafe {
		a.pins.Pin(uint32(id))
	}
	bits := a.aliveBits[idx]
	a.mu.RUnlock()
	return &PinnedSector{arr: a, Id: id, DenseIdx: int(idx), AliveBits: bits}, true
}

// PinSectorAt pins the sector currently at denseIdx.
func (a *SectorsArray) PinSectorAt(denseIdx int) (*PinnedSector, bool) {
	a.mu.RLock()
	if denseIdx < 0 || denseIdx >= a.size {
		a.mu.RUnlock()
		return nil, false
	}
	id := a.ids[denseIdx]
	bits := a.aliveBits[denseIdx]
	a.mu.RUnlock()
	if a.threadSafe {
		a.pins.Pin(uint32(id))
	}
	return &PinnedSector{arr: a, Id: id, DenseIdx: denseIdx, AliveBits: bits}, true
}

// PinBackSector pins the last dense entry, used by iterators to anchor
// their upper bound against concurrent tail growth.
func (a *SectorsArray) PinBackSector() (*PinnedSector, bool) {
	a.mu.RLock()
	n := a.size
	a.mu.RUnlock()
	if n == 0 {
		return nil, false
	}
	return a.PinSectorAt(n - 1)
}

// snapshot is the atomically-published view iterators traverse: a
// consistent (ids, aliveBits, size) triple as of construction time.
type snapshot struct {
	ids       []EntityID
	aliveBits []uint32
	size      int
}

// Snapshot returns the current (ids, aliveBits, size) view for iteration.
// Per spec's ordering guarantees, a snapshot may miss inserts published
// after this call and may expose slots that die after this call; an
// iterator built over it still correctly reflects liveness at observation
// time in a GC'd, slice-value-semantics language, since both slices are
// read-only from the iterator's perspective from this point on.
func (a *SectorsArray) Snapshot() snapshot {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return snapshot{ids: a.ids[:a.size:a.size], aliveBits: a.aliveBits[:a.size:a.size], size: a.size}
}

// ColumnAt returns the slot-th column, for typed-wrapper access.
func (a *SectorsArray) ColumnAt(slot int) memory.Column { return a.columns[slot] }

// DefragmentSize returns the current count of dead dense entries.
func (a *SectorsArray) DefragmentSize() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.defragSize
}
