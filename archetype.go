package ecs

import "sync"

// ArchetypeID identifies an archetype within a World for its lifetime.
type ArchetypeID uint32

// Archetype is the canonical storage for every entity sharing a given
// component set: one column per member type, an ordered entity roster, and
// cached add/remove edges to neighboring archetypes (§3, §4.4).
type Archetype struct {
	id      ArchetypeID
	mask    Mask
	typeIDs []uint32 // sorted
	columns map[uint32]*column

	mu       sync.RWMutex
	entities []Entity       // roster, ordered; position is the dense index shared by every column
	roster   map[uint32]int // entity slot -> roster position, kept in lockstep with entities

	version       uint64 // bumped by World writes and roster moves; AtDense/GetMut writes do not bump it
	entityVersion uint64 // bumped whenever the roster changes

	edgeMu     sync.RWMutex
	addEdges   map[uint32]*Archetype
	removeEdges map[uint32]*Archetype
}

func newArchetypeFor(id ArchetypeID, mask Mask, typeIDs []uint32, registry *Registry) *Archetype {
	a := &Archetype{
		id:          id,
		mask:        mask,
		typeIDs:     append([]uint32(nil), typeIDs...),
		columns:     make(map[uint32]*column, len(typeIDs)),
		roster:      make(map[uint32]int),
		addEdges:    make(map[uint32]*Archetype),
		removeEdges: make(map[uint32]*Archetype),
	}
	for _, tid := range typeIDs {
		desc, ok := registry.Get(tid)
		if !ok {
			continue
		}
		a.columns[tid] = newColumn(desc)
	}
	return a
}

// ID returns the archetype's stable id.
func (a *Archetype) ID() ArchetypeID { return a.id }

// Mask returns the archetype's component mask.
func (a *Archetype) Mask() *Mask { return &a.mask }

// TypeIDs returns the sorted component ids this archetype stores.
func (a *Archetype) TypeIDs() []uint32 { return a.typeIDs }

// Len returns the number of entities currently in this archetype.
func (a *Archetype) Len() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return len(a.entities)
}

// Has reports whether this archetype stores componentID.
func (a *Archetype) Has(componentID uint32) bool {
	_, ok := a.columns[componentID]
	return ok
}

// column returns the column for componentID, or nil.
func (a *Archetype) column(componentID uint32) *column {
	return a.columns[componentID]
}

// Version returns the archetype's data-change version counter.
func (a *Archetype) Version() uint64 {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.version
}

func (a *Archetype) bumpVersion() {
	a.version++
}

// EntityAt returns the entity at roster position p.
func (a *Archetype) EntityAt(p int) (Entity, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if p < 0 || p >= len(a.entities) {
		return Entity{}, false
	}
	return a.entities[p], true
}

// appendEntity adds e to the roster and returns its position. Callers are
// responsible for populating e's component columns separately (§4.4).
func (a *Archetype) appendEntity(e Entity) int {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.entities = append(a.entities, e)
	pos := len(a.entities) - 1
	a.roster[e.slot] = pos
	a.entityVersion++
	return pos
}

// removeEntity swap-removes e.slot's roster position and tells every column
// to drop the slot (a no-op for columns that never had it).
func (a *Archetype) removeEntity(slot uint32) {
	a.mu.Lock()
	pos, ok := a.roster[slot]
	if !ok {
		a.mu.Unlock()
		return
	}
	last := len(a.entities) - 1
	moved := a.entities[last]
	a.entities[pos] = moved
	a.entities = a.entities[:last]
	delete(a.roster, slot)
	if pos != last {
		a.roster[moved.slot] = pos
	}
	a.entityVersion++
	a.mu.Unlock()

	for _, col := range a.columns {
		col.Remove(slot)
	}
}

// PositionOf returns the roster position of slot within this archetype.
func (a *Archetype) PositionOf(slot uint32) (int, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	pos, ok := a.roster[slot]
	return pos, ok
}

// addEdge records (or looks up) the cached edge reached by adding typeID.
func (a *Archetype) addEdge(typeID uint32) (*Archetype, bool) {
	a.edgeMu.RLock()
	defer a.edgeMu.RUnlock()
	dest, ok := a.addEdges[typeID]
	return dest, ok
}

func (a *Archetype) setAddEdge(typeID uint32, dest *Archetype) {
	a.edgeMu.Lock()
	defer a.edgeMu.Unlock()
	a.addEdges[typeID] = dest
}

// removeEdgeFor records (or looks up) the cached edge reached by removing typeID.
func (a *Archetype) removeEdgeFor(typeID uint32) (*Archetype, bool) {
	a.edgeMu.RLock()
	defer a.edgeMu.RUnlock()
	dest, ok := a.removeEdges[typeID]
	return dest, ok
}

func (a *Archetype) setRemoveEdge(typeID uint32, dest *Archetype) {
	a.edgeMu.Lock()
	defer a.edgeMu.Unlock()
	a.removeEdges[typeID] = dest
}
