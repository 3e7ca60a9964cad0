package ecs

import (
	"math/bits"
	"sync"

	"github.com/TheBitDrifter/bark"
)

// ComponentFlag is a bitfield of recognized component descriptor flags.
// Unknown flags passed at registration are accepted but ignored, per §6.
type ComponentFlag uint32

const (
	FlagTag ComponentFlag = 1 << iota
	FlagSingleton
	FlagGPUVisible
	FlagDynamicUpdate
	FlagPooled
	FlagNetworked
	FlagPersistent
	FlagTransient
)

// maxComponentTypes bounds the registry per §7 ComponentLimitExceeded.
const maxComponentTypes = 1 << 20

// ComponentDescriptor is the immutable record a registered component type is
// assigned. Size == 0 marks a tag component: present only in masks, no
// column storage.
type ComponentDescriptor struct {
	ID            uint32
	Key           string
	Size          uint32
	Alignment     uint32
	Flags         ComponentFlag
	SchemaVersion uint32
	Requires      []uint32
	Excludes      []uint32
}

// IsTag reports whether the descriptor stores no bytes.
func (d ComponentDescriptor) IsTag() bool { return d.Size == 0 || d.Flags&FlagTag != 0 }

// Registry assigns stable dense ids to component types and records their
// layout and constraints. A Registry is owned by exactly one World (see the
// §9 "singleton/global registry" design note) but is safe to share a
// reference to across goroutines; registration is thread-safe and, once
// assigned, an id/descriptor pair is immutable for the registry's lifetime.
type Registry struct {
	mu          sync.RWMutex
	byKey       map[string]uint32
	descriptors []ComponentDescriptor // index 0 unused; ids start at 1
}

// NewRegistry constructs an empty type registry.
func NewRegistry() *Registry {
	return &Registry{
		byKey:       make(map[string]uint32),
		descriptors: make([]ComponentDescriptor, 1),
	}
}

// Register assigns (or returns the existing) id for the logical key. It is
// idempotent: registering the same key twice returns the original id and
// descriptor untouched.
func (r *Registry) Register(desc ComponentDescriptor) (uint32, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if id, ok := r.byKey[desc.Key]; ok {
		return id, nil
	}
	if desc.Alignment == 0 {
		desc.Alignment = 1
	}
	if desc.Alignment&(desc.Alignment-1) != 0 {
		return 0, bark.AddTrace(invalidAlignmentError{Key: desc.Key, Alignment: desc.Alignment})
	}
	if len(r.descriptors) >= maxComponentTypes {
		return 0, bark.AddTrace(ComponentLimitExceededError{Limit: maxComponentTypes})
	}

	id := uint32(len(r.descriptors))
	desc.ID = id
	r.descriptors = append(r.descriptors, desc)
	r.byKey[desc.Key] = id
	return id, nil
}

type invalidAlignmentError struct {
	Key       string
	Alignment uint32
}

func (e invalidAlignmentError) Error() string {
	return "component " + e.Key + ": alignment must be a power of two"
}

// Lookup resolves a logical key to its assigned id.
func (r *Registry) Lookup(key string) (uint32, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.byKey[key]
	return id, ok
}

// Get returns the descriptor for id.
func (r *Registry) Get(id uint32) (ComponentDescriptor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if id == 0 || int(id) >= len(r.descriptors) {
		return ComponentDescriptor{}, false
	}
	return r.descriptors[id], true
}

// Count returns the number of registered component types.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.descriptors) - 1
}

// All returns every registered descriptor in assignment order (ids start at
// 1, so this is the registry's full schema for snapshot/restore validation).
func (r *Registry) All() []ComponentDescriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]ComponentDescriptor, len(r.descriptors)-1)
	copy(out, r.descriptors[1:])
	return out
}

// ComputeMask builds the union mask of the given type ids.
func (r *Registry) ComputeMask(ids ...uint32) Mask {
	return NewMask(ids...)
}

// ValidateCombination checks every type's requires/excludes constraints
// against the given combination and returns a diagnostic list. It never
// fails by itself and is never invoked implicitly on component add (§7).
func (r *Registry) ValidateCombination(ids ...uint32) []InvalidCombinationDiagnostic {
	r.mu.RLock()
	defer r.mu.RUnlock()

	present := make(map[uint32]bool, len(ids))
	for _, id := range ids {
		present[id] = true
	}

	var diagnostics []InvalidCombinationDiagnostic
	for _, id := range ids {
		if id == 0 || int(id) >= len(r.descriptors) {
			continue
		}
		desc := r.descriptors[id]
		var missing, forbidden []uint32
		for _, req := range desc.Requires {
			if !present[req] {
				missing = append(missing, req)
			}
		}
		for _, exc := range desc.Excludes {
			if present[exc] {
				forbidden = append(forbidden, exc)
			}
		}
		if len(missing) > 0 || len(forbidden) > 0 {
			diagnostics = append(diagnostics, InvalidCombinationDiagnostic{
				TypeID:    id,
				Missing:   missing,
				Forbidden: forbidden,
			})
		}
	}
	return diagnostics
}

// alignUp rounds n up to the next multiple of align (align must be a power
// of two).
func alignUp(n, align uint32) uint32 {
	if align == 0 {
		return n
	}
	mask := align - 1
	return (n + mask) &^ mask
}

// trailingZeros wraps bits.TrailingZeros64. Nothing in the package calls it.
func trailingZeros(x uint64) int { return bits.TrailingZeros64(x) }
