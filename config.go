package ecs

import "time"

// Config holds process-wide defaults used when WorldConfig's MaxEntities,
// WorkerCount, DeferredBufferCapacity or QueryCacheTTL is left at its zero
// value; its other fields are not read by NewWorld. It mirrors the teacher package's package-level Config
// value, but — per the "singleton/global registry" design note — nothing
// in the engine reads process-wide state directly; WorldConfig always wins.
var Config = config{
	MaxEntities:            1 << 20,
	WorkerCount:            4,
	DeferredBufferCapacity: 4096,
	QueryCacheTTL:          100 * time.Millisecond,
	TrackChanges:           true,
	EnableEvents:           true,
	OffHeapStorage:         false,
	FrameBudget:            0,
	PerSystemBudget:        0,
}

type config struct {
	MaxEntities            uint32
	WorkerCount            int
	DeferredBufferCapacity int
	QueryCacheTTL          time.Duration
	TrackChanges           bool
	EnableEvents           bool
	OffHeapStorage         bool
	FrameBudget            time.Duration
	PerSystemBudget        time.Duration
}

// WorldConfig configures a single World. Zero-valued MaxEntities,
// WorkerCount, DeferredBufferCapacity and QueryCacheTTL fall back to the
// matching Config default when the world is constructed; the boolean fields
// and the two budgets are used exactly as given.
type WorldConfig struct {
	MaxEntities            uint32
	WorkerCount            int
	DeferredBufferCapacity int
	QueryCacheTTL          time.Duration
	TrackChanges            bool
	EnableEvents           bool
	OffHeapStorage         bool
	FrameBudget            time.Duration
	PerSystemBudget        time.Duration
	// UnsafeAllowConcurrentWrites disables the scheduler's conservative
	// read/write conflict check for two systems in the same phase. See
	// the §9 "scheduler conflict detection" design note: off by default.
	UnsafeAllowConcurrentWrites bool
}

func resolveWorldConfig(c WorldConfig) WorldConfig {
	if c.MaxEntities == 0 {
		c.MaxEntities = Config.MaxEntities
	}
	if c.WorkerCount == 0 {
		c.WorkerCount = Config.WorkerCount
	}
	if c.DeferredBufferCapacity == 0 {
		c.DeferredBufferCapacity = Config.DeferredBufferCapacity
	}
	if c.QueryCacheTTL == 0 {
		c.QueryCacheTTL = Config.QueryCacheTTL
	}
	return c
}
