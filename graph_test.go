package ecs

import "testing"

func TestArchetypeGraphGetOrCreateIsContentAddressed(t *testing.T) {
	r := NewRegistry()
	posID, _ := r.Register(ComponentDescriptor{Key: "pos", Size: 4, Alignment: 4})
	velID, _ := r.Register(ComponentDescriptor{Key: "vel", Size: 4, Alignment: 4})
	g := newArchetypeGraph(r)

	a1 := g.GetOrCreate(NewMask(posID, velID))
	a2 := g.GetOrCreate(NewMask(velID, posID)) // same set, different construction order

	if a1 != a2 {
		t.Fatalf("expected the same archetype for an equivalent mask regardless of bit insertion order")
	}
	if g.Count() != 1 {
		t.Fatalf("expected exactly one archetype, got %d", g.Count())
	}
}

func TestArchetypeGraphOnCreateFires(t *testing.T) {
	r := NewRegistry()
	posID, _ := r.Register(ComponentDescriptor{Key: "pos", Size: 4, Alignment: 4})
	g := newArchetypeGraph(r)

	var created []ArchetypeID
	g.onCreate = func(a *Archetype) { created = append(created, a.ID()) }

	g.GetOrCreate(NewMask(posID))
	g.GetOrCreate(NewMask(posID)) // cache hit, must not fire onCreate again

	if len(created) != 1 {
		t.Fatalf("expected onCreate to fire exactly once, fired %d times", len(created))
	}
}

func TestArchetypeGraphByID(t *testing.T) {
	r := NewRegistry()
	posID, _ := r.Register(ComponentDescriptor{Key: "pos", Size: 4, Alignment: 4})
	g := newArchetypeGraph(r)

	a := g.GetOrCreate(NewMask(posID))
	if got := g.ByID(a.ID()); got != a {
		t.Fatalf("ByID should resolve back to the created archetype")
	}
	if got := g.ByID(ArchetypeID(9999)); got != nil {
		t.Fatalf("ByID should return nil for an unknown id, got %v", got)
	}
}

func TestArchetypeGraphAllIsStableOrder(t *testing.T) {
	r := NewRegistry()
	posID, _ := r.Register(ComponentDescriptor{Key: "pos", Size: 4, Alignment: 4})
	velID, _ := r.Register(ComponentDescriptor{Key: "vel", Size: 4, Alignment: 4})
	g := newArchetypeGraph(r)

	first := g.GetOrCreate(NewMask(posID))
	second := g.GetOrCreate(NewMask(posID, velID))

	all := g.All()
	if len(all) != 2 || all[0] != first || all[1] != second {
		t.Fatalf("expected insertion-ordered archetype list, got %v", all)
	}
}
