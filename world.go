package ecs

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

// World owns one registry, entity store, archetype graph, and scheduler. It
// is the sole entry point for structural mutation and iteration; apart from
// NewWorld reading the package-level Config defaults, nothing in the package
// reads or writes process-wide state (§9 "no global singleton registry").
type World struct {
	config WorldConfig

	registry   *Registry
	entities   *entityStore
	graph      *archetypeGraph
	queryCache *queryCache
	commands   *commandBuffer
	relations  *relationshipGraph
	events     *eventBus
	scheduler  *scheduler

	structureVersion atomic.Uint64

	mu        sync.RWMutex
	lockCount int
	paused    bool
	closed    bool
}

// NewWorld constructs a World with cfg, falling back to Config's package
// defaults for any zero-valued field.
func NewWorld(cfg WorldConfig) *World {
	cfg = resolveWorldConfig(cfg)
	registry := NewRegistry()

	w := &World{
		config:    cfg,
		registry:  registry,
		entities:  newEntityStore(cfg.MaxEntities),
		commands:  newCommandBuffer(cfg.DeferredBufferCapacity),
		relations: newRelationshipGraph(),
		events:    newEventBus(cfg.EnableEvents),
	}
	w.graph = newArchetypeGraph(registry)
	w.queryCache = newQueryCache(cfg.QueryCacheTTL)
	w.graph.onCreate = func(a *Archetype) {
		w.structureVersion.Add(1)
		w.queryCache.Invalidate()
		w.events.Publish(Event{Kind: ArchetypeCreated, ArchetypeID: a.ID()})
	}
	w.scheduler = newScheduler(cfg.WorkerCount, cfg.UnsafeAllowConcurrentWrites)

	w.events.Publish(Event{Kind: WorldInitialized})
	return w
}

// Registry exposes the world's component registry for RegisterComponent.
func (w *World) Registry() *Registry { return w.registry }

// Subscribe registers handler for kind on this world's event bus.
func (w *World) Subscribe(kind EventKind, handler EventHandler) func() {
	return w.events.Subscribe(kind, handler)
}

// LiveEntityCount returns the number of currently-active entities.
func (w *World) LiveEntityCount() uint32 { return w.entities.LiveCount() }

// ArchetypeCount returns the number of distinct archetypes created so far.
func (w *World) ArchetypeCount() int { return w.graph.Count() }

// Locked reports whether structural mutation is currently suppressed
// because the world is mid-iteration (§4.6 "locked storage").
func (w *World) Locked() bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.lockCount > 0
}

// Lock suppresses immediate structural mutation; pair with Unlock. Nested
// calls are reference counted.
func (w *World) Lock() {
	w.mu.Lock()
	w.lockCount++
	w.mu.Unlock()
}

// Unlock releases one lock reference, draining any commands queued while
// locked once the count reaches zero.
func (w *World) Unlock() {
	w.mu.Lock()
	if w.lockCount > 0 {
		w.lockCount--
	}
	stillLocked := w.lockCount > 0
	w.mu.Unlock()
	if !stillLocked {
		w.drainCommands()
	}
}

func (w *World) resolveQuery(q *Query) []*Archetype {
	return w.queryCache.Resolve(w.graph, q, w.structureVersion.Load())
}

func (w *World) entityForSlot(slot uint32) (Entity, bool) {
	return w.entities.EntityForSlot(slot)
}

// locate returns e's current archetype and roster position.
func (w *World) locate(e Entity) (*Archetype, int, bool) {
	if !w.entities.IsValid(e) {
		return nil, 0, false
	}
	archID, ok := w.entities.ArchetypeOf(e.slot)
	if !ok {
		return nil, 0, false
	}
	arche := w.graph.ByID(archID)
	if arche == nil {
		return nil, 0, false
	}
	pos, ok := arche.PositionOf(e.slot)
	if !ok {
		return nil, 0, false
	}
	return arche, pos, true
}

// CreateEntity allocates an entity with no components, placed in the empty
// archetype.
func (w *World) CreateEntity() (Entity, error) {
	return w.CreateEntityWith()
}

// CreateEntityWith allocates an entity and places it directly into the
// archetype matching values' type ids, writing every value's bytes into its
// column (§4.4). If the world is locked, the entity is still created
// immediately — only AddComponent/RemoveComponent/Destroy respect locking,
// since creation never invalidates another iterator's position.
func (w *World) CreateEntityWith(values ...ComponentValue) (Entity, error) {
	ids := make([]uint32, len(values))
	for i, v := range values {
		if _, ok := w.registry.Get(v.TypeID); !ok {
			return Entity{}, ComponentNotRegisteredError{ID: v.TypeID}
		}
		ids[i] = v.TypeID
	}

	e, err := w.entities.Create()
	if err != nil {
		return Entity{}, err
	}

	mask := w.registry.ComputeMask(ids...)
	arche := w.graph.GetOrCreate(mask)
	arche.appendEntity(e)

	for _, v := range values {
		col := arche.column(v.TypeID)
		if col == nil {
			continue
		}
		if err := col.Insert(e.Slot(), v.Bytes); err != nil {
			return Entity{}, err
		}
	}
	arche.bumpVersion()
	w.entities.SetArchetype(e.Slot(), arche.ID(), true)
	w.events.Publish(Event{Kind: EntityCreated, Entity: e, ArchetypeID: arche.ID()})
	return e, nil
}

// NewEntities creates n entities sharing the same initial component values.
func (w *World) NewEntities(n int, values ...ComponentValue) ([]Entity, error) {
	out := make([]Entity, 0, n)
	for i := 0; i < n; i++ {
		e, err := w.CreateEntityWith(values...)
		if err != nil {
			return out, err
		}
		out = append(out, e)
	}
	return out, nil
}

// Destroy removes e immediately: its children are orphaned (not destroyed),
// its relationship edges are dropped, its slot is recycled (§4.6).
func (w *World) Destroy(e Entity) error {
	if w.Locked() {
		return LockedStorageError{}
	}
	arche, _, ok := w.locate(e)
	if !ok {
		return nil
	}

	w.events.Publish(Event{Kind: EntityDestroying, Entity: e, ArchetypeID: arche.ID()})
	w.relations.DetachChildren(e.Slot())
	w.relations.RemoveAll(e.Slot())

	arche.removeEntity(e.Slot())
	arche.bumpVersion()
	w.entities.SetArchetype(e.Slot(), 0, false)
	w.entities.Destroy(e)

	w.events.Publish(Event{Kind: EntityDestroyed, Entity: e})
	return nil
}

// DeferDestroy queues e for destruction at the next command drain point
// rather than performing it immediately (§5).
func (w *World) DeferDestroy(e Entity) error {
	return w.commands.push(Command{kind: cmdDestroy, entity: e})
}

// HasComponent reports whether e currently carries typeID.
func (w *World) HasComponent(e Entity, typeID uint32) bool {
	arche, _, ok := w.locate(e)
	if !ok {
		return false
	}
	return arche.Has(typeID)
}

// AddComponent attaches value to e, migrating it to the archetype reached by
// the cached add-edge (creating one if this is the first time this
// transition has been taken) and carrying every existing column's bytes
// across (§4.7). If e already has the component, this simply overwrites it
// in place.
func (w *World) AddComponent(e Entity, value ComponentValue) error {
	if w.Locked() {
		return LockedStorageError{}
	}
	src, _, ok := w.locate(e)
	if !ok {
		return nil
	}

	if src.Has(value.TypeID) {
		col := src.column(value.TypeID)
		if col == nil {
			return ComponentNotRegisteredError{ID: value.TypeID}
		}
		if err := col.Insert(e.Slot(), value.Bytes); err != nil {
			return err
		}
		src.bumpVersion()
		return nil
	}

	dest, ok := src.addEdge(value.TypeID)
	if !ok {
		newMask := src.Mask().Clone()
		newMask.Mark(value.TypeID)
		dest = w.graph.GetOrCreate(newMask)
		src.setAddEdge(value.TypeID, dest)
		dest.setRemoveEdge(value.TypeID, src)
	}

	if err := w.migrate(e, src, dest, []ComponentValue{value}); err != nil {
		return err
	}
	w.events.Publish(Event{Kind: ComponentAdded, Entity: e, TypeID: value.TypeID, ArchetypeID: dest.ID()})
	return nil
}

// RemoveComponent detaches typeID from e, migrating it to the archetype
// reached by the cached remove-edge (§4.7). No-op if e doesn't have it.
func (w *World) RemoveComponent(e Entity, typeID uint32) error {
	if w.Locked() {
		return LockedStorageError{}
	}
	src, _, ok := w.locate(e)
	if !ok {
		return nil
	}
	if !src.Has(typeID) {
		return nil
	}

	w.events.Publish(Event{Kind: ComponentRemoving, Entity: e, TypeID: typeID, ArchetypeID: src.ID()})

	dest, ok := src.removeEdgeFor(typeID)
	if !ok {
		newMask := src.Mask().Clone()
		newMask.Unmark(typeID)
		dest = w.graph.GetOrCreate(newMask)
		src.setRemoveEdge(typeID, dest)
		dest.setAddEdge(typeID, src)
	}

	if err := w.migrate(e, src, dest, nil); err != nil {
		return err
	}
	w.events.Publish(Event{Kind: ComponentRemoved, Entity: e, TypeID: typeID})
	return nil
}

// DeferAddComponent queues a component addition for the next command drain.
func (w *World) DeferAddComponent(e Entity, value ComponentValue) error {
	return w.commands.push(Command{kind: cmdAddComponent, entity: e, typeID: value.TypeID, payload: value.Bytes})
}

// DeferRemoveComponent queues a component removal for the next command drain.
func (w *World) DeferRemoveComponent(e Entity, typeID uint32) error {
	return w.commands.push(Command{kind: cmdRemoveComponent, entity: e, typeID: typeID})
}

// migrate carries e's data from src to dest, shared columns first, then any
// extra (newly-added) values, and updates the entity store's archetype
// pointer. Columns present in src but absent from dest are simply dropped.
func (w *World) migrate(e Entity, src, dest *Archetype, extra []ComponentValue) error {
	carried := make(map[uint32][]byte, len(dest.TypeIDs()))
	for _, tid := range src.TypeIDs() {
		if !dest.Has(tid) {
			continue
		}
		col := src.column(tid)
		if col == nil {
			continue
		}
		if col.tag {
			carried[tid] = nil
			continue
		}
		if data, ok := col.Get(e.Slot()); ok {
			carried[tid] = data
		}
	}
	for _, v := range extra {
		carried[v.TypeID] = v.Bytes
	}

	src.removeEntity(e.Slot())
	dest.appendEntity(e)
	for tid, bytes := range carried {
		col := dest.column(tid)
		if col == nil {
			continue
		}
		if err := col.Insert(e.Slot(), bytes); err != nil {
			return err
		}
	}
	src.bumpVersion()
	dest.bumpVersion()
	w.entities.SetArchetype(e.Slot(), dest.ID(), true)
	return nil
}

// SetParent links child to parent. Returns EntityRelationError if child
// already has a different parent — callers must ClearParent first to
// re-parent (§4.6 relationship graph).
func (w *World) SetParent(child, parent Entity) error {
	if !w.entities.IsValid(child) || !w.entities.IsValid(parent) {
		return EntityRelationError{Child: child, Parent: parent}
	}
	if prevSlot, had := w.relations.Parent(child.Slot()); had && prevSlot != parent.Slot() {
		prevEntity, _ := w.entities.EntityForSlot(prevSlot)
		return EntityRelationError{Child: child, Parent: parent, ExistingParent: prevEntity}
	}
	w.relations.SetParent(child.Slot(), parent.Slot())
	return nil
}

// ClearParent removes child's parent link, if any.
func (w *World) ClearParent(child Entity) {
	w.relations.ClearParent(child.Slot())
}

// Parent returns the entity recorded as child's parent, if any.
func (w *World) Parent(child Entity) (Entity, bool) {
	slot, ok := w.relations.Parent(child.Slot())
	if !ok {
		return Entity{}, false
	}
	return w.entities.EntityForSlot(slot)
}

// Children returns the entities recorded as parent's children.
func (w *World) Children(parent Entity) []Entity {
	slots := w.relations.Children(parent.Slot())
	out := make([]Entity, 0, len(slots))
	for _, s := range slots {
		if e, ok := w.entities.EntityForSlot(s); ok {
			out = append(out, e)
		}
	}
	return out
}

// SetRelation records a custom (from, relation) -> to edge, distinct from
// the built-in parent/child link.
func (w *World) SetRelation(from Entity, rel RelationType, to Entity) {
	w.relations.SetRelation(from.Slot(), rel, to.Slot())
}

// Related returns the targets of a custom (from, relation) edge.
func (w *World) Related(from Entity, rel RelationType) []Entity {
	slots := w.relations.Related(from.Slot(), rel)
	out := make([]Entity, 0, len(slots))
	for _, s := range slots {
		if e, ok := w.entities.EntityForSlot(s); ok {
			out = append(out, e)
		}
	}
	return out
}

// RegisterSystem adds spec to the scheduler. Systems run in the order
// StepFrame walks the nine fixed phases, honoring spec.DependsOn/RunsBefore
// and priority within a phase (§4.9, §4.10).
func (w *World) RegisterSystem(spec SystemSpec) error {
	if spec.Run == nil {
		return SystemError{System: spec.Name, Phase: spec.Phase, Cause: fmt.Errorf("system %q has no Run function", spec.Name)}
	}
	w.scheduler.register(&registeredSystem{spec: spec, state: SystemReady})
	return nil
}

// StepFrame runs every phase once, in fixed order, draining deferred
// commands between phases. Returns the first SystemError encountered; a
// paused world is a no-op.
func (w *World) StepFrame(dt time.Duration) error {
	w.mu.RLock()
	paused := w.paused
	closed := w.closed
	w.mu.RUnlock()
	if closed {
		return ResourceClosedError{Resource: "World"}
	}
	if paused {
		return nil
	}

	w.queryCache.Pin(true)
	defer w.queryCache.Pin(false)

	var deadline time.Time
	if w.config.FrameBudget > 0 {
		deadline = time.Now().Add(w.config.FrameBudget)
	}

	for _, phase := range allPhases {
		if err := w.scheduler.RunPhase(context.Background(), w, phase, dt, deadline, w.config.PerSystemBudget); err != nil {
			return err
		}
		w.drainCommands()
	}
	return nil
}

func (w *World) drainCommands() {
	for _, cmd := range w.commands.drain() {
		switch cmd.kind {
		case cmdDestroy:
			_ = w.Destroy(cmd.entity)
		case cmdAddComponent:
			_ = w.AddComponent(cmd.entity, ComponentValue{TypeID: cmd.typeID, Bytes: cmd.payload})
		case cmdRemoveComponent:
			_ = w.RemoveComponent(cmd.entity, cmd.typeID)
		}
	}
}

// Pause suspends StepFrame (a no-op until Resume); queries and direct
// structural mutation remain available.
func (w *World) Pause() {
	w.mu.Lock()
	w.paused = true
	w.mu.Unlock()
	w.events.Publish(Event{Kind: WorldPaused})
}

// Resume un-suspends StepFrame.
func (w *World) Resume() {
	w.mu.Lock()
	w.paused = false
	w.mu.Unlock()
	w.events.Publish(Event{Kind: WorldResumed})
}

// Shutdown marks the world closed; subsequent StepFrame calls return
// ResourceClosedError.
func (w *World) Shutdown() {
	w.events.Publish(Event{Kind: WorldShuttingDown})
	w.mu.Lock()
	w.closed = true
	w.mu.Unlock()
}
