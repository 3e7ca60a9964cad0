package ecs

import "testing"

type wPosition struct{ X, Y float64 }
type wVelocity struct{ X, Y float64 }
type wMarker struct{}

func newTestWorld(t *testing.T) (*World, AccessibleComponent[wPosition], AccessibleComponent[wVelocity], AccessibleComponent[wMarker]) {
	t.Helper()
	w := NewWorld(WorldConfig{})
	pos := MustRegisterComponent[wPosition](w.Registry(), "wPosition", 0, 1, nil, nil)
	vel := MustRegisterComponent[wVelocity](w.Registry(), "wVelocity", 0, 1, nil, nil)
	marker := MustRegisterComponent[wMarker](w.Registry(), "wMarker", FlagTag, 1, nil, nil)
	return w, pos, vel, marker
}

func TestWorldCreateEntityWith(t *testing.T) {
	w, pos, vel, _ := newTestWorld(t)

	e, err := w.CreateEntityWith(pos.Value(wPosition{X: 1, Y: 2}), vel.Value(wVelocity{X: 3, Y: 4}))
	if err != nil {
		t.Fatalf("CreateEntityWith: %v", err)
	}
	if w.LiveEntityCount() != 1 {
		t.Fatalf("expected 1 live entity, got %d", w.LiveEntityCount())
	}
	if !w.HasComponent(e, pos.TypeID) || !w.HasComponent(e, vel.TypeID) {
		t.Fatalf("expected both components present")
	}

	got, ok := pos.GetFromEntity(w, e)
	if !ok || got.X != 1 || got.Y != 2 {
		t.Fatalf("unexpected position: %+v, %v", got, ok)
	}
}

func TestWorldDestroyRecyclesSlot(t *testing.T) {
	w, pos, _, _ := newTestWorld(t)
	e, _ := w.CreateEntityWith(pos.Value(wPosition{X: 1}))

	if err := w.Destroy(e); err != nil {
		t.Fatalf("Destroy: %v", err)
	}
	if w.LiveEntityCount() != 0 {
		t.Fatalf("expected 0 live entities after destroy, got %d", w.LiveEntityCount())
	}
	if w.HasComponent(e, pos.TypeID) {
		t.Fatalf("destroyed entity should not report components present")
	}

	e2, _ := w.CreateEntityWith(pos.Value(wPosition{X: 2}))
	if e2.Slot() != e.Slot() {
		t.Fatalf("expected slot %d to be recycled, got %d", e.Slot(), e2.Slot())
	}
	if e2.Generation() == e.Generation() {
		t.Fatalf("recycled slot should have a new generation")
	}
	if w.HasComponent(e, pos.TypeID) {
		t.Fatalf("stale handle to the old generation should not see the new entity's data")
	}
}

func TestWorldAddComponentMigratesArchetype(t *testing.T) {
	w, pos, vel, _ := newTestWorld(t)
	e, _ := w.CreateEntityWith(pos.Value(wPosition{X: 1, Y: 2}))

	if err := w.AddComponent(e, vel.Value(wVelocity{X: 5, Y: 6})); err != nil {
		t.Fatalf("AddComponent: %v", err)
	}

	gotPos, ok := pos.GetFromEntity(w, e)
	if !ok || gotPos.X != 1 || gotPos.Y != 2 {
		t.Fatalf("position should survive migration: %+v, %v", gotPos, ok)
	}
	gotVel, ok := vel.GetFromEntity(w, e)
	if !ok || gotVel.X != 5 || gotVel.Y != 6 {
		t.Fatalf("velocity should be attached after AddComponent: %+v, %v", gotVel, ok)
	}
	if w.ArchetypeCount() != 2 {
		t.Fatalf("expected 2 archetypes (pos-only, pos+vel), got %d", w.ArchetypeCount())
	}
}

func TestWorldAddComponentEdgeIsCached(t *testing.T) {
	w, pos, vel, _ := newTestWorld(t)
	e1, _ := w.CreateEntityWith(pos.Value(wPosition{}))
	e2, _ := w.CreateEntityWith(pos.Value(wPosition{}))

	if err := w.AddComponent(e1, vel.Value(wVelocity{})); err != nil {
		t.Fatalf("AddComponent e1: %v", err)
	}
	archCountAfterFirst := w.ArchetypeCount()

	if err := w.AddComponent(e2, vel.Value(wVelocity{})); err != nil {
		t.Fatalf("AddComponent e2: %v", err)
	}
	if w.ArchetypeCount() != archCountAfterFirst {
		t.Fatalf("second entity taking the same transition should reuse the cached edge, not create a new archetype: %d -> %d", archCountAfterFirst, w.ArchetypeCount())
	}
}

func TestWorldRemoveComponentMigratesBack(t *testing.T) {
	w, pos, vel, _ := newTestWorld(t)
	e, _ := w.CreateEntityWith(pos.Value(wPosition{X: 1}), vel.Value(wVelocity{X: 2}))

	if err := w.RemoveComponent(e, vel.TypeID); err != nil {
		t.Fatalf("RemoveComponent: %v", err)
	}
	if w.HasComponent(e, vel.TypeID) {
		t.Fatalf("velocity should be gone")
	}
	gotPos, ok := pos.GetFromEntity(w, e)
	if !ok || gotPos.X != 1 {
		t.Fatalf("position should survive: %+v, %v", gotPos, ok)
	}
}

func TestWorldTagComponent(t *testing.T) {
	w, pos, _, marker := newTestWorld(t)
	e, _ := w.CreateEntityWith(pos.Value(wPosition{}), marker.Value(wMarker{}))
	if !w.HasComponent(e, marker.TypeID) {
		t.Fatalf("expected tag component present")
	}
}

func TestWorldQueryMatchesRequiredAndExcludes(t *testing.T) {
	w, pos, vel, _ := newTestWorld(t)
	withBoth, _ := w.CreateEntityWith(pos.Value(wPosition{}), vel.Value(wVelocity{}))
	posOnly, _ := w.CreateEntityWith(pos.Value(wPosition{}))

	q := NewQuery().Require(pos.TypeID).Exclude(vel.TypeID).Build()

	var found []Entity
	w.ForEachEntity(q, func(e Entity) { found = append(found, e) })

	if len(found) != 1 || found[0] != posOnly {
		t.Fatalf("expected only the pos-only entity, got %v (withBoth=%v)", found, withBoth)
	}
}

func TestWorldForEachArchetypeAccess2VisitsAllMatches(t *testing.T) {
	w, pos, vel, _ := newTestWorld(t)
	for i := 0; i < 5; i++ {
		w.CreateEntityWith(pos.Value(wPosition{X: float64(i)}), vel.Value(wVelocity{X: 1}))
	}

	q := NewQuery().Require(pos.TypeID, vel.TypeID).Build()
	count := 0
	w.ForEachArchetype(q, func(arche *Archetype) {
		for i := 0; i < arche.Len(); i++ {
			p, v, ok := Access2(pos, vel, arche, i)
			if !ok {
				t.Fatalf("expected both components at index %d", i)
			}
			p.X += v.X
			count++
		}
	})
	if count != 5 {
		t.Fatalf("expected to visit 5 entities, visited %d", count)
	}
}

func TestWorldBatches(t *testing.T) {
	w, pos, _, _ := newTestWorld(t)
	for i := 0; i < 7; i++ {
		w.CreateEntityWith(pos.Value(wPosition{}))
	}
	q := NewQuery().Require(pos.TypeID).Build()

	var sizes []int
	w.Batches(q, 3, func(batch []Entity) { sizes = append(sizes, len(batch)) })
	total := 0
	for _, s := range sizes {
		total += s
	}
	if total != 7 {
		t.Fatalf("expected batches to cover 7 entities total, covered %d", total)
	}
}

func TestWorldParentChild(t *testing.T) {
	w, pos, _, _ := newTestWorld(t)
	parent, _ := w.CreateEntityWith(pos.Value(wPosition{}))
	child, _ := w.CreateEntityWith(pos.Value(wPosition{}))

	if err := w.SetParent(child, parent); err != nil {
		t.Fatalf("SetParent: %v", err)
	}
	if got, ok := w.Parent(child); !ok || got != parent {
		t.Fatalf("expected parent to resolve, got %v, %v", got, ok)
	}
	children := w.Children(parent)
	if len(children) != 1 || children[0] != child {
		t.Fatalf("expected parent to list child, got %v", children)
	}
}

func TestWorldSetParentRejectsSilentReparent(t *testing.T) {
	w, pos, _, _ := newTestWorld(t)
	p1, _ := w.CreateEntityWith(pos.Value(wPosition{}))
	p2, _ := w.CreateEntityWith(pos.Value(wPosition{}))
	child, _ := w.CreateEntityWith(pos.Value(wPosition{}))

	if err := w.SetParent(child, p1); err != nil {
		t.Fatalf("first SetParent: %v", err)
	}
	if err := w.SetParent(child, p2); err == nil {
		t.Fatalf("expected EntityRelationError when reparenting without ClearParent first")
	}
	w.ClearParent(child)
	if err := w.SetParent(child, p2); err != nil {
		t.Fatalf("SetParent after ClearParent should succeed: %v", err)
	}
}

func TestWorldDestroyOrphansChildrenWithoutDestroyingThem(t *testing.T) {
	w, pos, _, _ := newTestWorld(t)
	parent, _ := w.CreateEntityWith(pos.Value(wPosition{}))
	child, _ := w.CreateEntityWith(pos.Value(wPosition{}))
	w.SetParent(child, parent)

	w.Destroy(parent)

	if w.LiveEntityCount() != 1 {
		t.Fatalf("expected the child to survive the parent's destruction")
	}
	if _, ok := w.Parent(child); ok {
		t.Fatalf("expected child to be orphaned after parent destruction")
	}
}

func TestWorldDeferredCommandsDrainBetweenPhases(t *testing.T) {
	w, pos, _, _ := newTestWorld(t)
	e, _ := w.CreateEntityWith(pos.Value(wPosition{}))

	if err := w.DeferDestroy(e); err != nil {
		t.Fatalf("DeferDestroy: %v", err)
	}
	if w.LiveEntityCount() != 1 {
		t.Fatalf("entity should still be alive before a frame step drains commands")
	}

	if err := w.StepFrame(0); err != nil {
		t.Fatalf("StepFrame: %v", err)
	}
	if w.LiveEntityCount() != 0 {
		t.Fatalf("expected entity destroyed after StepFrame drains the command buffer")
	}
}

func TestWorldPauseSkipsStepFrame(t *testing.T) {
	w, pos, _, _ := newTestWorld(t)
	ran := false
	w.RegisterSystem(SystemSpec{
		Name:  "noop",
		Phase: Update,
		Run:   func(*SystemContext) error { ran = true; return nil },
	})
	w.Pause()
	w.StepFrame(0)
	if ran {
		t.Fatalf("system should not run while the world is paused")
	}
	w.Resume()
	w.StepFrame(0)
	if !ran {
		t.Fatalf("system should run once resumed")
	}
	_ = pos
}

func TestWorldShutdownClosesStepFrame(t *testing.T) {
	w, _, _, _ := newTestWorld(t)
	w.Shutdown()
	if err := w.StepFrame(0); err == nil {
		t.Fatalf("expected ResourceClosedError after Shutdown")
	}
}

func TestWorldAddComponentOnInvalidEntityNoOps(t *testing.T) {
	w, pos, vel, _ := newTestWorld(t)
	e, _ := w.CreateEntityWith(pos.Value(wPosition{}))
	if err := w.Destroy(e); err != nil {
		t.Fatalf("Destroy: %v", err)
	}

	if err := w.AddComponent(e, vel.Value(wVelocity{})); err != nil {
		t.Fatalf("AddComponent on a stale handle should silently no-op, got %v", err)
	}
}

func TestWorldCreateEntityWithUnregisteredComponentSurfacesError(t *testing.T) {
	w, pos, _, _ := newTestWorld(t)
	before := w.LiveEntityCount()

	_, err := w.CreateEntityWith(pos.Value(wPosition{}), ComponentValue{TypeID: 9999, Bytes: []byte{1}})
	if _, ok := err.(ComponentNotRegisteredError); !ok {
		t.Fatalf("expected ComponentNotRegisteredError, got %T: %v", err, err)
	}
	if w.LiveEntityCount() != before {
		t.Fatalf("a rejected create should not leave a zombie entity behind")
	}
}

func TestWorldMigratePreservesTagColumnCoherence(t *testing.T) {
	w, pos, vel, marker := newTestWorld(t)
	e, _ := w.CreateEntityWith(pos.Value(wPosition{}), marker.Value(wMarker{}))

	if err := w.AddComponent(e, vel.Value(wVelocity{})); err != nil {
		t.Fatalf("AddComponent: %v", err)
	}
	if !w.HasComponent(e, marker.TypeID) {
		t.Fatalf("tag component should survive migration")
	}

	q := NewQuery().Require(marker.TypeID).Build()
	var found []Entity
	w.ForEachEntity(q, func(found0 Entity) { found = append(found, found0) })
	if len(found) != 1 || found[0] != e {
		t.Fatalf("migrated entity should still be reachable through its tag column's own roster, got %v", found)
	}
}
