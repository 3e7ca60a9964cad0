package ecs

import "fmt"

// EntityLimitExceededError is raised by CreateEntity once the world's
// configured MaxEntities has been reached.
type EntityLimitExceededError struct {
	MaxEntities uint32
}

func (e EntityLimitExceededError) Error() string {
	return fmt.Sprintf("entity limit exceeded (max %d)", e.MaxEntities)
}

// ComponentNotRegisteredError is raised when an operation references a type
// id or logical key that was never registered.
type ComponentNotRegisteredError struct {
	Key string
	ID  uint32
}

func (e ComponentNotRegisteredError) Error() string {
	if e.Key != "" {
		return fmt.Sprintf("component not registered: %q", e.Key)
	}
	return fmt.Sprintf("component not registered: id %d", e.ID)
}

// ComponentLimitExceededError is raised when registering a new component
// type would exceed the registry's supported type cap.
type ComponentLimitExceededError struct {
	Limit int
}

func (e ComponentLimitExceededError) Error() string {
	return fmt.Sprintf("component type limit exceeded (max %d)", e.Limit)
}

// InvalidCombinationDiagnostic describes one requires/excludes violation
// found by Registry.ValidateCombination.
type InvalidCombinationDiagnostic struct {
	TypeID    uint32
	Missing   []uint32 // required types absent from the combination
	Forbidden []uint32 // excluded types present in the combination
}

func (d InvalidCombinationDiagnostic) String() string {
	return fmt.Sprintf("type %d: missing required %v, forbidden %v", d.TypeID, d.Missing, d.Forbidden)
}

// BufferTooSmallError is raised when a component write's byte payload is
// shorter than the component's declared size.
type BufferTooSmallError struct {
	TypeID   uint32
	Declared uint32
	Got      int
}

func (e BufferTooSmallError) Error() string {
	return fmt.Sprintf("buffer too small for component %d: want %d bytes, got %d", e.TypeID, e.Declared, e.Got)
}

// DeferredQueueOverflowError is raised when the deferred command buffer is
// at capacity and cannot accept another command.
type DeferredQueueOverflowError struct {
	Capacity int
}

func (e DeferredQueueOverflowError) Error() string {
	return fmt.Sprintf("deferred command queue overflow (capacity %d)", e.Capacity)
}

// DependencyCycleError describes a dependency cycle the scheduler detected
// and broke. It is logged (via bark), never returned as a fatal error,
// since the scheduler recovers by priority/name/registration-order.
type DependencyCycleError struct {
	Phase   Phase
	Members []string
}

func (e DependencyCycleError) Error() string {
	return fmt.Sprintf("dependency cycle in phase %s among systems %v", e.Phase, e.Members)
}

// SystemError wraps the error a system's Run returned during StepFrame, or
// RegisterSystem's rejection of a spec with no Run function. A panic inside
// Run is not recovered into a SystemError.
type SystemError struct {
	System string
	Phase  Phase
	Cause  error
}

func (e SystemError) Error() string {
	return fmt.Sprintf("system %q (phase %s) failed: %v", e.System, e.Phase, e.Cause)
}

func (e SystemError) Unwrap() error { return e.Cause }

// ResourceClosedError is returned by World.StepFrame after Shutdown. Other
// World methods and Archetype methods do not check for shutdown and never
// return it.
type ResourceClosedError struct {
	Resource string
}

func (e ResourceClosedError) Error() string {
	return fmt.Sprintf("%s is closed", e.Resource)
}

// LockedStorageError is raised when a structural mutation is attempted
// while the world is mid-iteration (locked).
type LockedStorageError struct{}

func (e LockedStorageError) Error() string {
	return "storage is currently locked; structural mutations must go through the deferred command buffer"
}

// CacheFullError is raised when a PrefabCache is at its configured capacity
// and cannot register another entry.
type CacheFullError struct {
	Capacity int
}

func (e CacheFullError) Error() string {
	return fmt.Sprintf("cache at maximum capacity (%d)", e.Capacity)
}

// SnapshotSchemaMismatchError is raised by Restore when a snapshot's
// recorded component schema doesn't match the live registry id-for-id and
// size-for-size.
type SnapshotSchemaMismatchError struct {
	Reason string
}

func (e SnapshotSchemaMismatchError) Error() string {
	return fmt.Sprintf("snapshot schema mismatch: %s", e.Reason)
}

// EntityRelationError is raised by SetParent when the child already has a
// different parent.
type EntityRelationError struct {
	Child, Parent, ExistingParent Entity
}

func (e EntityRelationError) Error() string {
	return fmt.Sprintf("entity %v already has parent %v (attempted %v)", e.Child, e.ExistingParent, e.Parent)
}
