package ecs

// Prefab is a named template of component values used to stamp out many
// identically-shaped entities without re-specifying every value each call
// (§6 "supplemented features").
type Prefab struct {
	Key    string
	Values []ComponentValue
}

// PrefabCache is a capacity-bounded, keyed registry of Prefabs: a dense
// slice of items plus a key -> index map for O(1) lookup, adapted from the
// teacher's generic SimpleCache[T].
type PrefabCache struct {
	items       []Prefab
	itemIndices map[string]int
	maxCapacity int
}

// NewPrefabCache creates an empty cache holding up to capacity prefabs.
func NewPrefabCache(capacity int) *PrefabCache {
	return &PrefabCache{itemIndices: make(map[string]int), maxCapacity: capacity}
}

// Register adds p under its Key, or returns the existing index if that key
// is already registered.
func (c *PrefabCache) Register(p Prefab) (int, error) {
	if idx, exists := c.itemIndices[p.Key]; exists {
		return idx, nil
	}
	if len(c.items) >= c.maxCapacity {
		return -1, CacheFullError{Capacity: c.maxCapacity}
	}
	idx := len(c.items)
	c.itemIndices[p.Key] = idx
	c.items = append(c.items, p)
	return idx, nil
}

// GetIndex returns the dense index registered for key.
func (c *PrefabCache) GetIndex(key string) (int, bool) {
	idx, ok := c.itemIndices[key]
	return idx, ok
}

// GetByIndex returns the prefab at a previously-resolved dense index.
func (c *PrefabCache) GetByIndex(idx int) (*Prefab, bool) {
	if idx < 0 || idx >= len(c.items) {
		return nil, false
	}
	return &c.items[idx], true
}

// Get looks a prefab up by key directly.
func (c *PrefabCache) Get(key string) (*Prefab, bool) {
	idx, ok := c.itemIndices[key]
	if !ok {
		return nil, false
	}
	return &c.items[idx], true
}

// Clear empties the cache.
func (c *PrefabCache) Clear() {
	c.items = c.items[:0]
	c.itemIndices = make(map[string]int)
}

// SpawnPrefab creates a new entity directly from p's component values.
func (w *World) SpawnPrefab(p Prefab) (Entity, error) {
	return w.CreateEntityWith(p.Values...)
}

// SpawnPrefabs creates n entities from p's component values.
func (w *World) SpawnPrefabs(p Prefab, n int) ([]Entity, error) {
	return w.NewEntities(n, p.Values...)
}
