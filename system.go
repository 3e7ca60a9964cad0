package ecs

import (
	"context"
	"time"
)

// Phase is one of the nine fixed points in a frame a system can run at
// (§4.9). Phases always execute in the order they're declared here.
type Phase int

const (
	PreUpdate Phase = iota
	EarlyUpdate
	Update
	LateUpdate
	PostUpdate
	PreRender
	Render
	PostRender
	Cleanup
)

var allPhases = []Phase{PreUpdate, EarlyUpdate, Update, LateUpdate, PostUpdate, PreRender, Render, PostRender, Cleanup}

func (p Phase) String() string {
	switch p {
	case PreUpdate:
		return "PreUpdate"
	case EarlyUpdate:
		return "EarlyUpdate"
	case Update:
		return "Update"
	case LateUpdate:
		return "LateUpdate"
	case PostUpdate:
		return "PostUpdate"
	case PreRender:
		return "PreRender"
	case Render:
		return "Render"
	case PostRender:
		return "PostRender"
	case Cleanup:
		return "Cleanup"
	default:
		return "Unknown"
	}
}

// ParallelStrategy is a system's declared intra-system iteration strategy
// over the archetypes/entities its query matches (§4.9). It governs how
// SystemContext.Archetypes/Entities walk a single system's own matches; it
// has no bearing on whether the system may share a phase group with
// sibling systems — that is decided solely by the scheduler's read/write
// conflict predicate (§4.10), with unsafe_allow_concurrent_writes as the
// documented override.
type ParallelStrategy int

const (
	// ParallelNone iterates sequentially on the calling goroutine (default).
	ParallelNone ParallelStrategy = iota
	// ParallelArchetypes distributes archetypes across the worker pool.
	ParallelArchetypes
	// ParallelEntities distributes per-archetype entity walks across the
	// worker pool.
	ParallelEntities
	// ParallelFull combines archetype- and entity-level distribution.
	ParallelFull
	// ParallelCustom opts out of the built-in helpers; the system chunks its
	// own work via SystemContext.ParallelEach.
	ParallelCustom
)

// SystemState tracks a registered system's lifecycle (§4.9).
type SystemState int

const (
	SystemCreated SystemState = iota
	SystemReady
	SystemRunning
	SystemPaused
	// SystemFailed marks a system whose last Run returned a non-nil error.
	SystemFailed
	SystemShutdown
	// SystemSkipped marks a system that was passed over this frame —
	// either its TickInterval hadn't elapsed, or the
	// scheduler's frame-budget gating judged its own recorded average
	// execution time wouldn't fit the remaining budget (§4.10).
	SystemSkipped
)

func (s SystemState) String() string {
	switch s {
	case SystemCreated:
		return "Created"
	case SystemReady:
		return "Ready"
	case SystemRunning:
		return "Running"
	case SystemPaused:
		return "Paused"
	case SystemFailed:
		return "Failed"
	case SystemShutdown:
		return "Shutdown"
	case SystemSkipped:
		return "Skipped"
	default:
		return "Unknown"
	}
}

// SystemContext is handed to a system's Run function for one invocation.
type SystemContext struct {
	Context   context.Context
	World     *World
	Phase     Phase
	DeltaTime time.Duration
	Parallel  ParallelStrategy
}

// Archetypes iterates q's matched archetypes, honoring c.Parallel:
// ParallelArchetypes/ParallelFull dispatch one worker per archetype;
// everything else walks sequentially on the calling goroutine.
func (c *SystemContext) Archetypes(q Query, fn func(*Archetype)) error {
	switch c.Parallel {
	case ParallelArchetypes, ParallelFull:
		return c.World.ForEachArchetypeParallel(c.Context, q, fn)
	default:
		c.World.ForEachArchetype(q, fn)
		return nil
	}
}

// Entities iterates q's matched entities, honoring c.Parallel:
// ParallelEntities/ParallelFull dispatch each matched archetype's entity
// walk to the worker pool; everything else walks sequentially.
func (c *SystemContext) Entities(q Query, fn func(Entity)) error {
	switch c.Parallel {
	case ParallelEntities, ParallelFull:
		return c.World.ForEachEntityParallel(c.Context, q, fn)
	default:
		c.World.ForEachEntity(q, fn)
		return nil
	}
}

// ParallelEach is the escape hatch for ParallelCustom systems: it fans n
// independent units of work out across the same worker pool Archetypes and
// Entities use, blocking until every unit completes or one returns an error.
func (c *SystemContext) ParallelEach(n int, fn func(i int) error) error {
	return c.World.scheduler.parallelEach(c.Context, n, fn)
}

// SystemFunc is a system's executable body.
type SystemFunc func(*SystemContext) error

// SystemSpec declares a system: its identity, the phase and order it runs
// in, the component types it reads and writes (used for automatic conflict
// detection between systems sharing a phase), and its scheduling
// constraints (§4.9).
type SystemSpec struct {
	Name     string
	Phase    Phase
	Priority int

	Reads    []uint32
	Writes   []uint32
	Optional []uint32
	Excludes []uint32

	// DependsOn/RunsBefore name other systems in the same phase; the
	// scheduler orders around them and breaks any cycle deterministically.
	DependsOn  []string
	RunsBefore []string

	Parallel     ParallelStrategy
	TickInterval time.Duration // 0 runs every frame

	Run SystemFunc
}

// registeredSystem is a SystemSpec plus the scheduler's bookkeeping for it.
type registeredSystem struct {
	spec        SystemSpec
	state       SystemState
	accumulated time.Duration

	// totalExec/execCount back avgExec, the per-system history the
	// scheduler's frame-budget gating weighs against the remaining budget
	// (§4.10), and the source for the Stats snapshot's per-system timings.
	totalExec time.Duration
	execCount int
}

// avgExec returns the system's mean recorded execution time, or 0 if it has
// never run yet.
func (s *registeredSystem) avgExec() time.Duration {
	if s.execCount == 0 {
		return 0
	}
	return s.totalExec / time.Duration(s.execCount)
}

// recordExec folds one run's duration into the rolling average.
func (s *registeredSystem) recordExec(d time.Duration) {
	s.totalExec += d
	s.execCount++
}

// conflictsWith reports whether s and o touch an overlapping component type
// where at least one side writes it — the condition under which the
// scheduler refuses to run them in the same parallel group.
func (s *registeredSystem) conflictsWith(o *registeredSystem) bool {
	for _, w := range s.spec.Writes {
		for _, w2 := range o.spec.Writes {
			if w == w2 {
				return true
			}
		}
		for _, r2 := range o.spec.Reads {
			if w == r2 {
				return true
			}
		}
	}
	for _, r := range s.spec.Reads {
		for _, w2 := range o.spec.Writes {
			if r == w2 {
				return true
			}
		}
	}
	return false
}

// dueFor reports whether s should run this tick, accumulating dt against
// TickInterval when one is set.
func (s *registeredSystem) dueFor(dt time.Duration) bool {
	if s.spec.TickInterval <= 0 {
		return true
	}
	s.accumulated += dt
	if s.accumulated >= s.spec.TickInterval {
		s.accumulated -= s.spec.TickInterval
		return true
	}
	return false
}
