package ecs

import (
	"context"
	"sync"
	"testing"
)

func TestCursorNextVisitsEveryMatch(t *testing.T) {
	w, pos, _, _ := newTestWorld(t)
	for i := 0; i < 4; i++ {
		w.CreateEntityWith(pos.Value(wPosition{X: float64(i)}))
	}

	q := NewQuery().Require(pos.TypeID).Build()
	c := w.Cursor(q)

	count := 0
	for c.Next() {
		count++
	}
	if count != 4 {
		t.Fatalf("expected to visit 4 entities, visited %d", count)
	}
}

func TestCursorAppliesPredicate(t *testing.T) {
	w, pos, _, _ := newTestWorld(t)
	e1, _ := w.CreateEntityWith(pos.Value(wPosition{X: 1}))
	w.CreateEntityWith(pos.Value(wPosition{X: 2}))

	q := NewQuery().Require(pos.TypeID).Where(func(world *World, e Entity) bool {
		return e == e1
	}).Build()

	c := w.Cursor(q)
	count := 0
	for c.Next() {
		count++
	}
	if count != 1 {
		t.Fatalf("expected the predicate to restrict iteration to 1 entity, got %d", count)
	}
}

func TestCursorChangedSinceFiltersUnchangedEntities(t *testing.T) {
	w, pos, _, _ := newTestWorld(t)
	e1, _ := w.CreateEntityWith(pos.Value(wPosition{X: 1}))
	w.CreateEntityWith(pos.Value(wPosition{X: 2}))

	baseline := w.structureVersion.Load()
	_ = baseline

	arche, idx, ok := w.locate(e1)
	if !ok {
		t.Fatalf("locate e1")
	}
	col := arche.column(pos.TypeID)
	version, _ := col.VersionOf(e1.Slot())
	_ = idx

	// Force a change on e1 only.
	Access1(pos, arche, idx)

	q := NewQuery().Require(pos.TypeID).ChangedSince(version, pos.TypeID).Build()
	c := w.Cursor(q)

	var seen []Entity
	for c.Next() {
		e, ok := c.currentEntity()
		if ok {
			seen = append(seen, e)
		}
	}
	if len(seen) != 1 || seen[0] != e1 {
		t.Fatalf("expected only e1 to pass the change filter, got %v", seen)
	}
}

func TestCursorArchetypeReflectsCurrentPosition(t *testing.T) {
	w, pos, _, _ := newTestWorld(t)
	w.CreateEntityWith(pos.Value(wPosition{}))

	q := NewQuery().Require(pos.TypeID).Build()
	c := w.Cursor(q)

	if c.Archetype() != nil {
		t.Fatalf("expected no archetype before the first Next call")
	}
	if !c.Next() {
		t.Fatalf("expected at least one match")
	}
	if c.Archetype() == nil {
		t.Fatalf("expected a non-nil archetype once positioned on a match")
	}
}

func TestForEachArchetypeVisitsMatchingArchetypesOnly(t *testing.T) {
	w, pos, vel, _ := newTestWorld(t)
	w.CreateEntityWith(pos.Value(wPosition{}))
	w.CreateEntityWith(pos.Value(wPosition{}), vel.Value(wVelocity{}))

	q := NewQuery().Require(pos.TypeID, vel.TypeID).Build()
	var archetypes []*Archetype
	w.ForEachArchetype(q, func(a *Archetype) { archetypes = append(archetypes, a) })

	if len(archetypes) != 1 {
		t.Fatalf("expected exactly 1 matching archetype, got %d", len(archetypes))
	}
	if archetypes[0].Len() != 1 {
		t.Fatalf("expected the matching archetype to hold 1 entity, got %d", archetypes[0].Len())
	}
}

func TestForEachArchetypeParallelVisitsEveryMatch(t *testing.T) {
	w, pos, vel, _ := newTestWorld(t)
	w.CreateEntityWith(pos.Value(wPosition{}))
	w.CreateEntityWith(pos.Value(wPosition{}), vel.Value(wVelocity{}))

	q := NewQuery().Require(pos.TypeID).Build()

	var mu sync.Mutex
	var seen []*Archetype
	err := w.ForEachArchetypeParallel(context.Background(), q, func(a *Archetype) {
		mu.Lock()
		seen = append(seen, a)
		mu.Unlock()
	})
	if err != nil {
		t.Fatalf("ForEachArchetypeParallel: %v", err)
	}
	if len(seen) != 2 {
		t.Fatalf("expected both pos-only and pos+vel archetypes visited, got %d", len(seen))
	}
}

func TestForEachEntityParallelVisitsEveryEntity(t *testing.T) {
	w, pos, _, _ := newTestWorld(t)
	for i := 0; i < 6; i++ {
		w.CreateEntityWith(pos.Value(wPosition{X: float64(i)}))
	}

	q := NewQuery().Require(pos.TypeID).Build()

	var mu sync.Mutex
	seen := map[Entity]bool{}
	err := w.ForEachEntityParallel(context.Background(), q, func(e Entity) {
		mu.Lock()
		seen[e] = true
		mu.Unlock()
	})
	if err != nil {
		t.Fatalf("ForEachEntityParallel: %v", err)
	}
	if len(seen) != 6 {
		t.Fatalf("expected all 6 entities visited, got %d", len(seen))
	}
}
