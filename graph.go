package ecs

import "sync"

// archetypeGraph is the content-addressed mask -> archetype map described in
// §4.5. Archetypes are created lazily and never destroyed one by one (only
// reset discards them, all at once); iteration order
// is stable insertion order so tests are reproducible.
type archetypeGraph struct {
	mu       sync.Mutex
	registry *Registry
	byKey    map[MaskKey]*Archetype
	order    []*Archetype
	nextID   ArchetypeID

	// onCreate fires after a new archetype is linked into the graph, while
	// still holding mu, so the caller can bump structure version and
	// invalidate caches atomically with respect to other GetOrCreate calls.
	onCreate func(*Archetype)
}

func newArchetypeGraph(registry *Registry) *archetypeGraph {
	return &archetypeGraph{
		registry: registry,
		byKey:    make(map[MaskKey]*Archetype),
		nextID:   1,
	}
}

// GetOrCreate returns the archetype for mask, creating it if this is the
// first time the graph has seen that exact mask. mask is cloned internally;
// the caller's copy may continue to mutate.
func (g *archetypeGraph) GetOrCreate(mask Mask) *Archetype {
	key := mask.Key()

	g.mu.Lock()
	defer g.mu.Unlock()

	if existing, ok := g.byKey[key]; ok {
		return existing
	}

	ids := mask.IDs()
	arche := newArchetypeFor(g.nextID, mask.Clone(), ids, g.registry)
	g.nextID++
	g.byKey[key] = arche
	g.order = append(g.order, arche)

	if g.onCreate != nil {
		g.onCreate(arche)
	}
	return arche
}

// Lookup returns the existing archetype for mask without creating one.
func (g *archetypeGraph) Lookup(mask Mask) (*Archetype, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	a, ok := g.byKey[mask.Key()]
	return a, ok
}

// All returns every archetype in stable insertion order.
func (g *archetypeGraph) All() []*Archetype {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]*Archetype, len(g.order))
	copy(out, g.order)
	return out
}

// ByID returns the archetype with the given id, or nil. IDs are assigned
// sequentially from 1, so this is a direct slice index.
func (g *archetypeGraph) ByID(id ArchetypeID) *Archetype {
	g.mu.Lock()
	defer g.mu.Unlock()
	idx := int(id) - 1
	if idx < 0 || idx >= len(g.order) {
		return nil
	}
	return g.order[idx]
}

// Count returns the number of distinct archetypes created so far.
func (g *archetypeGraph) Count() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.order)
}

// reset discards every archetype, returning the graph to its
// just-constructed state. Used by World.Restore to rebuild structure from a
// snapshot rather than accumulate it alongside whatever existed before.
func (g *archetypeGraph) reset() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.byKey = make(map[MaskKey]*Archetype)
	g.order = nil
	g.nextID = 1
}
