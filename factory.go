package ecs

// factory is a stateless convenience wrapper mirroring the teacher's
// package-level Factory: every method simply forwards to a plain
// constructor, so — unlike the teacher's Storage-backed Factory — it never
// holds process-wide state itself (§9 "no global singleton registry").
type factory struct{}

// Factory is the package's constructor namespace.
var Factory factory

// NewWorld constructs a World with cfg.
func (f factory) NewWorld(cfg WorldConfig) *World { return NewWorld(cfg) }

// NewQuery starts a new query builder.
func (f factory) NewQuery() *QueryBuilder { return NewQuery() }

// NewPrefabCache creates an empty prefab cache with the given capacity.
func (f factory) NewPrefabCache(capacity int) *PrefabCache { return NewPrefabCache(capacity) }
