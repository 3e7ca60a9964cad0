package ecs

import (
	"sync"
	"time"
)

// Query is a resolved declarative selector: required/excluded/optional
// masks, an optional change-since filter, and an optional predicate
// evaluated at iteration time (§4.8). Build one with NewQuery().
type Query struct {
	required Mask
	excluded Mask
	optional Mask

	changedSinceVersion uint64
	changedSinceTypes   []uint32
	hasChangedSince     bool

	predicate func(*World, Entity) bool
}

// QueryBuilder constructs a Query with a fluent API.
type QueryBuilder struct {
	required []uint32
	excluded []uint32
	optional []uint32

	changedSinceVersion uint64
	changedSinceTypes   []uint32
	hasChangedSince     bool

	predicate func(*World, Entity) bool
}

// NewQuery starts a new query builder.
func NewQuery() *QueryBuilder { return &QueryBuilder{} }

// Require adds required component type ids: matching archetypes must
// contain every one of them.
func (b *QueryBuilder) Require(ids ...uint32) *QueryBuilder {
	b.required = append(b.required, ids...)
	return b
}

// Exclude adds excluded component type ids: matching archetypes must
// contain none of them.
func (b *QueryBuilder) Exclude(ids ...uint32) *QueryBuilder {
	b.excluded = append(b.excluded, ids...)
	return b
}

// Optional adds component type ids that only affect accessors, never
// archetype matching.
func (b *QueryBuilder) Optional(ids ...uint32) *QueryBuilder {
	b.optional = append(b.optional, ids...)
	return b
}

// ChangedSince restricts iteration to entities whose column version for any
// of typeIDs exceeds version (union semantics — see §9 open question on
// change-filter coverage).
func (b *QueryBuilder) ChangedSince(version uint64, typeIDs ...uint32) *QueryBuilder {
	b.changedSinceVersion = version
	b.changedSinceTypes = typeIDs
	b.hasChangedSince = true
	return b
}

// Where attaches a predicate evaluated per-entity at iteration time; it is
// never part of the cache key.
func (b *QueryBuilder) Where(pred func(*World, Entity) bool) *QueryBuilder {
	b.predicate = pred
	return b
}

// Build finalizes the query.
func (b *QueryBuilder) Build() Query {
	return Query{
		required:            NewMask(b.required...),
		excluded:            NewMask(b.excluded...),
		optional:            NewMask(b.optional...),
		changedSinceVersion: b.changedSinceVersion,
		changedSinceTypes:   b.changedSinceTypes,
		hasChangedSince:     b.hasChangedSince,
		predicate:           b.predicate,
	}
}

// matches reports whether an archetype's mask satisfies this query's
// required/excluded masks (§4.8 matching rule).
func (q *Query) matches(mask *Mask) bool {
	if !mask.ContainsAll(&q.required) {
		return false
	}
	if mask.ContainsAny(&q.excluded) {
		return false
	}
	return true
}

func (q *Query) cacheKey() queryCacheKey {
	return queryCacheKey{
		required: q.required.Key(),
		excluded: q.excluded.Key(),
		optional: q.optional.Key(),
	}
}

type queryCacheKey struct {
	required, excluded, optional MaskKey
}

type queryCacheEntry struct {
	archetypes       []*Archetype
	structureVersion uint64
	timestamp        time.Time
}

// queryCache caches the archetype list matched by a (required, excluded,
// optional) mask triple, invalidated by structure-version mismatch or TTL
// expiry (§3 "Query cache", §4.8 "Caching").
type queryCache struct {
	mu      sync.Mutex
	ttl     time.Duration
	pinned  bool
	entries map[queryCacheKey]*queryCacheEntry
}

func newQueryCache(ttl time.Duration) *queryCache {
	return &queryCache{ttl: ttl, entries: make(map[queryCacheKey]*queryCacheEntry)}
}

// Pin disables TTL expiry, relying solely on structure-version invalidation
// — used by the scheduler to pin a query's result for the duration of a
// frame regardless of wall-clock time.
func (c *queryCache) Pin(pinned bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pinned = pinned
}

// Resolve returns the archetype list matching q, rebuilding and caching it
// if the cached entry is missing, stale, or expired.
func (c *queryCache) Resolve(graph *archetypeGraph, q *Query, structureVersion uint64) []*Archetype {
	key := q.cacheKey()

	c.mu.Lock()
	entry, ok := c.entries[key]
	pinned := c.pinned
	ttl := c.ttl
	c.mu.Unlock()

	if ok && entry.structureVersion == structureVersion {
		if pinned || ttl <= 0 || time.Since(entry.timestamp) < ttl {
			return entry.archetypes
		}
	}

	var matched []*Archetype
	for _, arche := range graph.All() {
		if q.matches(arche.Mask()) {
			matched = append(matched, arche)
		}
	}

	c.mu.Lock()
	c.entries[key] = &queryCacheEntry{
		archetypes:       matched,
		structureVersion: structureVersion,
		timestamp:        time.Now(),
	}
	c.mu.Unlock()

	return matched
}

// Invalidate drops every cached entry. Called whenever the archetype graph
// creates a new archetype (§4.5 step 4).
func (c *queryCache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[queryCacheKey]*queryCacheEntry)
}
