package ecs

import "fmt"

// ComponentSchema is the registry-schema slice carried in a WorldSnapshot:
// just enough of each registered component's layout to refuse a Restore
// against an incompatible registry (§6).
type ComponentSchema struct {
	ID   uint32
	Key  string
	Size uint32
}

// SnapshotEntity is one entity's recorded state within an ArchetypeSnapshot:
// its slot/generation pair and the raw bytes for every non-tag component the
// archetype carries, keyed by type id.
type SnapshotEntity struct {
	Slot       uint32
	Generation uint32
	Components map[uint32][]byte
}

// ArchetypeSnapshot captures one archetype's identity and every entity
// currently stored in it, per §6's persisted state layout.
type ArchetypeSnapshot struct {
	ArchetypeID ArchetypeID
	TypeIDs     []uint32 // sorted
	Entities    []SnapshotEntity
}

// WorldSnapshot is the full in-process capture of a World: the component
// schema in effect when it was taken, plus every archetype and entity.
// Restoring it onto a registry that doesn't match id-for-id and
// size-for-size is refused — only cross-version wire-format stability is
// out of scope, not snapshot/restore itself.
type WorldSnapshot struct {
	Schema     []ComponentSchema
	Archetypes []ArchetypeSnapshot
}

// Snapshot captures the world's current registry schema, archetypes, and
// every live entity's component bytes.
func (w *World) Snapshot() WorldSnapshot {
	descs := w.registry.All()
	schema := make([]ComponentSchema, len(descs))
	for i, d := range descs {
		schema[i] = ComponentSchema{ID: d.ID, Key: d.Key, Size: d.Size}
	}

	archetypes := w.graph.All()
	out := make([]ArchetypeSnapshot, 0, len(archetypes))
	for _, arche := range archetypes {
		typeIDs := arche.TypeIDs()
		n := arche.Len()
		entities := make([]SnapshotEntity, 0, n)
		for p := 0; p < n; p++ {
			e, ok := arche.EntityAt(p)
			if !ok {
				continue
			}
			components := make(map[uint32][]byte, len(typeIDs))
			for _, tid := range typeIDs {
				col := arche.column(tid)
				if col == nil || col.tag {
					continue
				}
				if data, ok := col.Get(e.Slot()); ok {
					components[tid] = append([]byte(nil), data...)
				}
			}
			entities = append(entities, SnapshotEntity{
				Slot:       e.Slot(),
				Generation: e.Generation(),
				Components: components,
			})
		}
		out = append(out, ArchetypeSnapshot{
			ArchetypeID: arche.ID(),
			TypeIDs:     append([]uint32(nil), typeIDs...),
			Entities:    entities,
		})
	}

	return WorldSnapshot{Schema: schema, Archetypes: out}
}

// Restore replaces the world's entire entity/archetype state with snap.
// Refused with SnapshotSchemaMismatchError unless every schema entry's id,
// key, and size matches the live registry exactly — restoring onto a
// registry that assigned ids in a different order, or changed a component's
// size, would silently corrupt column layout instead of failing loudly.
func (w *World) Restore(snap WorldSnapshot) error {
	if w.Locked() {
		return LockedStorageError{}
	}
	if err := w.checkSnapshotSchema(snap.Schema); err != nil {
		return err
	}

	w.entities.reset()
	w.graph.reset()

	for _, as := range snap.Archetypes {
		mask := w.registry.ComputeMask(as.TypeIDs...)
		arche := w.graph.GetOrCreate(mask)
		for _, se := range as.Entities {
			e := w.entities.restoreEntity(se.Slot, se.Generation)
			arche.appendEntity(e)
			for _, tid := range as.TypeIDs {
				col := arche.column(tid)
				if col == nil {
					continue
				}
				if err := col.Insert(e.Slot(), se.Components[tid]); err != nil {
					return err
				}
			}
			w.entities.SetArchetype(e.Slot(), arche.ID(), true)
		}
		arche.bumpVersion()
	}

	w.structureVersion.Add(1)
	w.queryCache.Invalidate()
	w.events.Publish(Event{Kind: WorldRestored})
	return nil
}

func (w *World) checkSnapshotSchema(schema []ComponentSchema) error {
	live := w.registry.All()
	if len(schema) != len(live) {
		return SnapshotSchemaMismatchError{Reason: fmt.Sprintf("registry has %d component(s), snapshot has %d", len(live), len(schema))}
	}
	for i, want := range schema {
		got := live[i]
		if want.ID != got.ID || want.Key != got.Key || want.Size != got.Size {
			return SnapshotSchemaMismatchError{Reason: fmt.Sprintf(
				"component %q: snapshot recorded id=%d size=%d, registry now has id=%d key=%q size=%d",
				want.Key, want.ID, want.Size, got.ID, got.Key, got.Size)}
		}
	}
	return nil
}
