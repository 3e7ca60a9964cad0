package ecs

import (
	"sync"
	"sync/atomic"
)

const (
	cacheLineBytes    = 64
	columnInitialCap  = 64
	columnGrowthNumer = 3 // growth factor 1.5 == 3/2
	columnGrowthDenom = 2
)

// GPUSink is the external collaborator a column syncs its dirty byte range
// to. Out of scope per §1/§6: the engine only calls it, never implements a
// backend.
type GPUSink interface {
	Map(typeID uint32, byteRange [2]int) []byte
	Unmap(region []byte)
}

// column is the off-heap-shaped, Structure-of-Arrays storage for one
// component type within one archetype: a dense byte buffer, a sparse
// entity-slot -> dense-index map, the inverse dense-index -> slot array,
// per-slot version stamps, and a dirty byte range for GPU sync.
//
// Get takes two sequence-number snapshots around a read-locked lookup and
// retries the read if a writer interleaved (§5); Has is a plain read-locked
// lookup. insert/remove/grow hold the write lock for their whole body but
// never call back into user code while holding it.
type column struct {
	typeID    uint32
	elemSize  uint32
	alignment uint32
	tag       bool

	mu       sync.RWMutex
	seq      atomic.Uint64 // odd while a writer is in flight
	data     []byte
	versions []uint64
	sparse   map[uint32]int32 // entity slot -> dense index, absent if never stored
	dense    []uint32         // dense index -> entity slot
	count    int
	capacity int

	dirtyLo, dirtyHi int // [lo, hi) in dense-index units; hi == -1 means empty
	gpu              GPUSink
	gpuVisible       bool
}

func newColumn(desc ComponentDescriptor) *column {
	c := &column{
		typeID:     desc.ID,
		elemSize:   desc.Size,
		alignment:  maxU32(cacheLineBytes, desc.Alignment),
		tag:        desc.IsTag(),
		sparse:     make(map[uint32]int32),
		dirtyHi:    -1,
		gpuVisible: desc.Flags&FlagGPUVisible != 0,
	}
	if !c.tag {
		c.grow(columnInitialCap)
	}
	return c
}

func maxU32(a, b uint32) uint32 {
	if a > b {
		return a
	}
	return b
}

// Len returns the number of stored entries.
func (c *column) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.count
}

func (c *column) grow(minCapacity int) {
	newCap := c.capacity
	if newCap == 0 {
		newCap = columnInitialCap
	}
	for newCap < minCapacity {
		newCap = newCap * columnGrowthNumer / columnGrowthDenom
		if newCap == 0 {
			newCap = columnInitialCap
		}
	}
	if c.tag {
		c.capacity = newCap
		return
	}
	byteCap := alignUp(uint32(newCap)*c.elemSize, c.alignment)
	newData := make([]byte, byteCap)
	copy(newData, c.data)
	newVersions := make([]uint64, newCap)
	copy(newVersions, c.versions)
	newDense := make([]uint32, len(c.dense), newCap)
	copy(newDense, c.dense)

	c.data = newData
	c.versions = newVersions
	c.dense = newDense
	c.capacity = newCap
}

func (c *column) beginWrite() {
	c.mu.Lock()
	c.seq.Add(1)
}

func (c *column) endWrite() {
	c.seq.Add(1)
	c.mu.Unlock()
}

func (c *column) markDirty(idx int) {
	if idx < c.dirtyLo || c.dirtyHi == -1 {
		c.dirtyLo = idx
	}
	if idx+1 > c.dirtyHi {
		c.dirtyHi = idx + 1
	}
}

// Insert writes bytes for slot, appending a new dense entry if slot is not
// already present, otherwise overwriting in place. Extra bytes beyond the
// component's declared size are ignored; a short buffer is rejected.
func (c *column) Insert(slot uint32, payload []byte) error {
	if !c.tag && len(payload) < int(c.elemSize) {
		return BufferTooSmallError{TypeID: c.typeID, Declared: c.elemSize, Got: len(payload)}
	}

	c.beginWrite()
	defer c.endWrite()

	idx, exists := c.sparse[slot]
	if !exists {
		if c.count >= c.capacity {
			c.grow(c.count + 1)
		}
		idx = int32(c.count)
		c.sparse[slot] = idx
		if int(idx) < len(c.dense) {
			c.dense[idx] = slot
		} else {
			c.dense = append(c.dense, slot)
		}
		c.count++
	}
	if !c.tag {
		off := int(idx) * int(c.elemSize)
		copy(c.data[off:off+int(c.elemSize)], payload[:c.elemSize])
		c.versions[idx]++
	}
	c.markDirty(int(idx))
	return nil
}

// Remove deletes slot via swap-with-last. Reports whether slot was present.
func (c *column) Remove(slot uint32) bool {
	c.beginWrite()
	defer c.endWrite()
	return c.removeLocked(slot)
}

func (c *column) removeLocked(slot uint32) bool {
	idx, ok := c.sparse[slot]
	if !ok {
		return false
	}
	last := int32(c.count - 1)
	if idx != last {
		lastSlot := c.dense[last]
		if !c.tag {
			srcOff := int(last) * int(c.elemSize)
			dstOff := int(idx) * int(c.elemSize)
			copy(c.data[dstOff:dstOff+int(c.elemSize)], c.data[srcOff:srcOff+int(c.elemSize)])
			c.versions[idx] = c.versions[last]
		}
		c.dense[idx] = lastSlot
		c.sparse[lastSlot] = idx
	}
	delete(c.sparse, slot)
	c.count--
	c.markDirty(int(idx))
	return true
}

// Get returns a copy of the bytes stored for slot. The sparse-map lookup
// always runs under a read lock: unlike a torn word, unsynchronized
// concurrent access to a Go map can crash the process, so the lock is load
// bearing, not just a fallback. The surrounding sequence check retries the
// read if a writer was mid-flight when we looked at it.
func (c *column) Get(slot uint32) ([]byte, bool) {
	for {
		s1 := c.seq.Load()
		if s1&1 == 1 {
			continue
		}
		data, ok := c.getLocked(slot)
		s2 := c.seq.Load()
		if s1 == s2 {
			return data, ok
		}
	}
}

func (c *column) getLocked(slot uint32) ([]byte, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	idx, ok := c.sparse[slot]
	if !ok {
		return nil, false
	}
	if c.tag {
		return nil, true
	}
	off := int(idx) * int(c.elemSize)
	out := make([]byte, c.elemSize)
	copy(out, c.data[off:off+int(c.elemSize)])
	return out, true
}

// Has reports whether slot has an entry, without copying bytes. Always
// locked for the same reason as Get: a bare map read racing Insert/Remove's
// locked writes is not safe to leave unguarded.
func (c *column) Has(slot uint32) bool {
	c.mu.RLock()
	_, ok := c.sparse[slot]
	c.mu.RUnlock()
	return ok
}

// GetMut returns a direct, writable view into the dense buffer for slot and
// bumps its version. Callers must not retain the slice past a structural
// mutation of this column.
func (c *column) GetMut(slot uint32) ([]byte, bool) {
	c.beginWrite()
	defer c.endWrite()
	idx, ok := c.sparse[slot]
	if !ok || c.tag {
		return nil, ok
	}
	c.versions[idx]++
	c.markDirty(int(idx))
	off := int(idx) * int(c.elemSize)
	return c.data[off : off+int(c.elemSize)], true
}

// AtDense returns a direct, writable view into the dense buffer at roster
// position idx and bumps its version. Used by the typed accessors, which
// rely on the column-roster coherence invariant (§3) rather than a sparse
// lookup by slot.
func (c *column) AtDense(idx int) ([]byte, bool) {
	c.beginWrite()
	defer c.endWrite()
	if c.tag || idx < 0 || idx >= c.count {
		return nil, false
	}
	c.versions[idx]++
	c.markDirty(idx)
	off := idx * int(c.elemSize)
	return c.data[off : off+int(c.elemSize)], true
}

// PeekDense returns a copy of the bytes at dense index idx without bumping
// its version — for call sites that only read a value out (e.g. a
// non-pointer typed Get), as opposed to AtDense's mutable view.
func (c *column) PeekDense(idx int) ([]byte, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.tag || idx < 0 || idx >= c.count {
		return nil, false
	}
	off := idx * int(c.elemSize)
	out := make([]byte, c.elemSize)
	copy(out, c.data[off:off+int(c.elemSize)])
	return out, true
}

// VersionOf returns the version stamp recorded for slot.
func (c *column) VersionOf(slot uint32) (uint64, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	idx, ok := c.sparse[slot]
	if !ok {
		return 0, false
	}
	return c.versions[idx], true
}

// Iterate yields (slot, bytes) for every dense entry in dense order. Order
// across removals is unstable (swap-with-last).
func (c *column) Iterate(yield func(slot uint32, data []byte) bool) {
	c.mu.RLock()
	count := c.count
	c.mu.RUnlock()

	for i := 0; i < count; i++ {
		c.mu.RLock()
		if i >= c.count {
			c.mu.RUnlock()
			return
		}
		slot := c.dense[i]
		var data []byte
		if !c.tag {
			off := i * int(c.elemSize)
			data = c.data[off : off+int(c.elemSize)]
		}
		c.mu.RUnlock()
		if !yield(slot, data) {
			return
		}
	}
}

// ChangedSince returns the slots whose recorded version exceeds version.
func (c *column) ChangedSince(version uint64) []uint32 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	var out []uint32
	for i := 0; i < c.count; i++ {
		if c.tag || c.versions[i] > version {
			out = append(out, c.dense[i])
		}
	}
	return out
}

// BindGPU attaches a GPU sink for SyncToGPU.
func (c *column) BindGPU(sink GPUSink) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gpu = sink
}

// SyncToGPU copies the dirty byte range to the bound sink and clears it. If
// no sink is bound, nothing is copied and the dirty range is still cleared.
func (c *column) SyncToGPU() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.gpuVisible || c.tag {
		return
	}
	lo, hi := c.dirtyLo, c.dirtyHi
	if hi == -1 {
		return
	}
	if c.gpu == nil {
		lo, hi = 0, c.count
	}
	byteLo := lo * int(c.elemSize)
	byteHi := hi * int(c.elemSize)
	if c.gpu != nil {
		region := c.gpu.Map(c.typeID, [2]int{byteLo, byteHi})
		copy(region, c.data[byteLo:byteHi])
		c.gpu.Unmap(region)
	}
	c.dirtyLo, c.dirtyHi = 0, -1
}
