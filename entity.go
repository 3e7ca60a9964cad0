package ecs

import (
	"fmt"
	"sync"
	"sync/atomic"
)

// Entity is a (slot, generation) pair identifying a logical object. Slot 0
// is reserved as a sentinel and is never assigned to a live entity. Entity
// values are cheap, comparable, and safe to copy and store anywhere —
// validity is always re-checked against the owning World's entity store,
// never assumed from holding the value (§3).
type Entity struct {
	slot       uint32
	generation uint32
}

// Slot returns the entity's store slot.
func (e Entity) Slot() uint32 { return e.slot }

// Generation returns the entity's generation at the time it was created.
func (e Entity) Generation() uint32 { return e.generation }

// IsNil reports whether e is the zero Entity (slot 0), which never
// corresponds to a created entity.
func (e Entity) IsNil() bool { return e.slot == 0 }

func (e Entity) String() string {
	return fmt.Sprintf("Entity(slot=%d, gen=%d)", e.slot, e.generation)
}

type entityFlags uint8

const (
	flagActive entityFlags = 1 << iota
	flagPrefab
	flagDisabled
	flagPendingDestroy
)

// entityStore holds the parallel generation/archetype/flags arrays indexed
// by slot, plus a freelist of recycled slots (§3, §4.6).
type entityStore struct {
	mu sync.RWMutex

	generations  []uint32
	archetypeIDs []int64 // -1 sentinel; int64 to hold -1 alongside valid ArchetypeID
	flags        []uint32

	freelist []uint32

	maxEntities uint32
	liveCount   uint32
}

func newEntityStore(maxEntities uint32) *entityStore {
	s := &entityStore{maxEntities: maxEntities}
	// slot 0 reserved
	s.generations = append(s.generations, 0)
	s.archetypeIDs = append(s.archetypeIDs, -1)
	s.flags = append(s.flags, 0)
	return s
}

// Create allocates a new entity, recycling a freed slot if one is
// available, or extending the arrays otherwise. Fails once liveCount would
// exceed maxEntities.
func (s *entityStore) Create() (Entity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.liveCount >= s.maxEntities {
		return Entity{}, EntityLimitExceededError{MaxEntities: s.maxEntities}
	}

	var slot uint32
	if n := len(s.freelist); n > 0 {
		slot = s.freelist[n-1]
		s.freelist = s.freelist[:n-1]
		s.generations[slot]++
	} else {
		slot = uint32(len(s.generations))
		s.generations = append(s.generations, 1)
		s.archetypeIDs = append(s.archetypeIDs, -1)
		s.flags = append(s.flags, 0)
	}
	s.flags[slot] = uint32(flagActive)
	s.liveCount++
	return Entity{slot: slot, generation: s.generations[slot]}, nil
}

// IsValid reports whether e's generation matches the store's current
// generation for its slot and the ACTIVE flag is set (§3).
func (s *entityStore) IsValid(e Entity) bool {
	if e.slot == 0 {
		return false
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if int(e.slot) >= len(s.generations) {
		return false
	}
	return s.generations[e.slot] == e.generation && s.flags[e.slot]&uint32(flagActive) != 0
}

// Destroy invalidates e: clears its flags, bumps its generation, and pushes
// its slot onto the freelist. No-op if e is already invalid.
func (s *entityStore) Destroy(e Entity) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if int(e.slot) >= len(s.generations) || s.generations[e.slot] != e.generation || s.flags[e.slot]&uint32(flagActive) == 0 {
		return false
	}
	s.flags[e.slot] = 0
	s.archetypeIDs[e.slot] = -1
	s.generations[e.slot]++
	s.freelist = append(s.freelist, e.slot)
	s.liveCount--
	return true
}

// ArchetypeOf returns the archetype id currently recorded for e.slot, or
// (0, false) if none.
func (s *entityStore) ArchetypeOf(slot uint32) (ArchetypeID, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if int(slot) >= len(s.archetypeIDs) || s.archetypeIDs[slot] < 0 {
		return 0, false
	}
	return ArchetypeID(s.archetypeIDs[slot]), true
}

// SetArchetype records the archetype id currently owning slot.
func (s *entityStore) SetArchetype(slot uint32, id ArchetypeID, present bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !present {
		s.archetypeIDs[slot] = -1
		return
	}
	s.archetypeIDs[slot] = int64(id)
}

// HasFlag reports whether bit is set for slot.
func (s *entityStore) HasFlag(slot uint32, bit entityFlags) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if int(slot) >= len(s.flags) {
		return false
	}
	return s.flags[slot]&uint32(bit) != 0
}

// SetFlag sets or clears bit for slot. Guarded by the same short-held lock
// as every other store mutation; never spans a callback.
func (s *entityStore) SetFlag(slot uint32, bit entityFlags, value bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if int(slot) >= len(s.flags) {
		return
	}
	if value {
		s.flags[slot] |= uint32(bit)
	} else {
		s.flags[slot] &^= uint32(bit)
	}
}

// EntityForSlot reconstructs the live Entity handle for slot, if it is
// currently active.
func (s *entityStore) EntityForSlot(slot uint32) (Entity, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if int(slot) >= len(s.generations) || s.flags[slot]&uint32(flagActive) == 0 {
		return Entity{}, false
	}
	return Entity{slot: slot, generation: s.generations[slot]}, true
}

// LiveCount returns the number of currently-active entities.
func (s *entityStore) LiveCount() uint32 {
	return atomic.LoadUint32(&s.liveCount)
}

// Stats returns the store's current slot usage for diagnostics.
func (s *entityStore) Stats() (used, capacity uint32, recycled int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.liveCount, uint32(len(s.generations) - 1), len(s.freelist)
}

// reset discards every slot but the reserved sentinel, returning the store
// to its just-constructed state. Used by World.Restore.
func (s *entityStore) reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.generations = s.generations[:1]
	s.archetypeIDs = s.archetypeIDs[:1]
	s.flags = s.flags[:1]
	s.freelist = nil
	s.liveCount = 0
}

// restoreEntity recreates slot at exactly generation, extending the arrays
// (and freelisting any intermediate slots the snapshot skipped) as needed.
// Used only by World.Restore, which replays a snapshot's exact slot/
// generation pairs instead of going through the normal Create path.
func (s *entityStore) restoreEntity(slot, generation uint32) Entity {
	s.mu.Lock()
	defer s.mu.Unlock()
	for uint32(len(s.generations)) <= slot {
		s.freelist = append(s.freelist, uint32(len(s.generations)))
		s.generations = append(s.generations, 0)
		s.archetypeIDs = append(s.archetypeIDs, -1)
		s.flags = append(s.flags, 0)
	}
	for i, free := range s.freelist {
		if free == slot {
			s.freelist = append(s.freelist[:i], s.freelist[i+1:]...)
			break
		}
	}
	s.generations[slot] = generation
	s.flags[slot] = uint32(flagActive)
	s.liveCount++
	return Entity{slot: slot, generation: generation}
}
