package ecs

import "context"

// Cursor provides per-entity iteration over the archetypes matched by a
// Query (§4.8 "Per-entity sequential"). Construct with World.Cursor.
type Cursor struct {
	world      *World
	query      Query
	archetypes []*Archetype

	archIdx   int
	entityIdx int
	changed   []uint32 // slots passing the change filter for the current archetype
	changedAt int
}

// Cursor builds a Cursor over the archetypes currently matching q.
func (w *World) Cursor(q Query) *Cursor {
	archetypes := w.resolveQuery(&q)
	return &Cursor{world: w, query: q, archetypes: archetypes, archIdx: -1}
}

// Next advances to the next matching entity, applying the change filter and
// predicate if present. Returns false once exhausted.
func (c *Cursor) Next() bool {
	for {
		if c.archIdx == -1 || !c.advanceWithinArchetype() {
			if !c.advanceArchetype() {
				return false
			}
			continue
		}
		e, ok := c.currentEntity()
		if !ok {
			continue
		}
		if c.query.predicate != nil && !c.query.predicate(c.world, e) {
			continue
		}
		return true
	}
}

func (c *Cursor) advanceArchetype() bool {
	c.archIdx++
	for c.archIdx < len(c.archetypes) {
		arche := c.archetypes[c.archIdx]
		if c.query.hasChangedSince {
			c.changed = changedUnion(arche, c.query.changedSinceTypes, c.query.changedSinceVersion)
			c.changedAt = -1
			if len(c.changed) == 0 {
				c.archIdx++
				continue
			}
		} else {
			c.entityIdx = -1
		}
		return true
	}
	return false
}

func (c *Cursor) advanceWithinArchetype() bool {
	arche := c.archetypes[c.archIdx]
	if c.query.hasChangedSince {
		c.changedAt++
		return c.changedAt < len(c.changed)
	}
	c.entityIdx++
	return c.entityIdx < arche.Len()
}

func (c *Cursor) currentEntity() (Entity, bool) {
	arche := c.archetypes[c.archIdx]
	if c.query.hasChangedSince {
		slot := c.changed[c.changedAt]
		return c.world.entityForSlot(slot)
	}
	return arche.EntityAt(c.entityIdx)
}

// Archetype returns the archetype the cursor is currently positioned in.
func (c *Cursor) Archetype() *Archetype {
	if c.archIdx < 0 || c.archIdx >= len(c.archetypes) {
		return nil
	}
	return c.archetypes[c.archIdx]
}

// changedUnion implements the §9 open-question resolution: changed_since
// over multiple types is the union (any of them changed).
func changedUnion(arche *Archetype, typeIDs []uint32, version uint64) []uint32 {
	seen := make(map[uint32]bool)
	var out []uint32
	for _, tid := range typeIDs {
		col := arche.column(tid)
		if col == nil {
			continue
		}
		for _, slot := range col.ChangedSince(version) {
			if !seen[slot] {
				seen[slot] = true
				out = append(out, slot)
			}
		}
	}
	return out
}

// ForEachArchetype is the per-archetype iteration mode: fastest, used by
// systems that want to walk columns directly (§4.8).
func (w *World) ForEachArchetype(q Query, fn func(*Archetype)) {
	for _, arche := range w.resolveQuery(&q) {
		fn(arche)
	}
}

// ForEachEntity is the per-entity sequential iteration mode.
func (w *World) ForEachEntity(q Query, fn func(Entity)) {
	c := w.Cursor(q)
	for c.Next() {
		e, _ := c.currentEntity()
		fn(e)
	}
}

// Batches yields slices of up to batchSize entities matching q (§4.8
// "Batched").
func (w *World) Batches(q Query, batchSize int, fn func([]Entity)) {
	if batchSize <= 0 {
		batchSize = 1
	}
	batch := make([]Entity, 0, batchSize)
	w.ForEachEntity(q, func(e Entity) {
		batch = append(batch, e)
		if len(batch) == batchSize {
			fn(batch)
			batch = make([]Entity, 0, batchSize)
		}
	})
	if len(batch) > 0 {
		fn(batch)
	}
}

// ForEachArchetypeParallel is the per-archetype parallel iteration mode
// (§4.9 parallel strategy "archetypes"): one worker-pool task per matched
// archetype, run concurrently up to the scheduler's worker budget. fn must
// not mutate structure shared across archetypes without its own locking.
func (w *World) ForEachArchetypeParallel(ctx context.Context, q Query, fn func(*Archetype)) error {
	archetypes := w.resolveQuery(&q)
	return w.scheduler.parallelEach(ctx, len(archetypes), func(i int) error {
		fn(archetypes[i])
		return nil
	})
}

// ForEachEntityParallel is the per-entity parallel iteration mode (§4.8
// "Per-entity parallel", §4.9 parallel strategies "entities"/"full"): each
// matched archetype's entities are walked by one worker-pool task, so two
// entities in different archetypes may run concurrently while entities
// within the same archetype are visited sequentially by that task.
func (w *World) ForEachEntityParallel(ctx context.Context, q Query, fn func(Entity)) error {
	archetypes := w.resolveQuery(&q)
	return w.scheduler.parallelEach(ctx, len(archetypes), func(i int) error {
		arche := archetypes[i]
		for p := 0; p < arche.Len(); p++ {
			e, ok := arche.EntityAt(p)
			if !ok {
				continue
			}
			fn(e)
		}
		return nil
	})
}

// Access1 retrieves component A for the entity at roster position idx
// within arche, relying on the invariant that a member column's dense
// index always equals the entity's roster position (§3 column-roster
// coherence).
func Access1[A any](c AccessibleComponent[A], arche *Archetype, idx int) (*A, bool) {
	return c.atIndex(arche, idx)
}

// Access2 retrieves components A and B for the same roster position.
func Access2[A, B any](ca AccessibleComponent[A], cb AccessibleComponent[B], arche *Archetype, idx int) (*A, *B, bool) {
	a, ok := ca.atIndex(arche, idx)
	if !ok {
		return nil, nil, false
	}
	b, ok := cb.atIndex(arche, idx)
	if !ok {
		return nil, nil, false
	}
	return a, b, true
}

// Access3 retrieves components A, B, and C for the same roster position.
func Access3[A, B, C any](ca AccessibleComponent[A], cb AccessibleComponent[B], cc AccessibleComponent[C], arche *Archetype, idx int) (*A, *B, *C, bool) {
	a, ok := ca.atIndex(arche, idx)
	if !ok {
		return nil, nil, nil, false
	}
	b, ok := cb.atIndex(arche, idx)
	if !ok {
		return nil, nil, nil, false
	}
	cv, ok := cc.atIndex(arche, idx)
	if !ok {
		return nil, nil, nil, false
	}
	return a, b, cv, true
}
