package ecs

import "unsafe"

// AccessibleComponent binds a registered component type id to a concrete Go
// type T, giving typed read/write access to a column's raw bytes without
// reflection. Obtain one from RegisterComponent.
type AccessibleComponent[T any] struct {
	TypeID uint32
	size   uint32
}

// atIndex retrieves T for the entity at roster position idx within arche,
// relying on the column-roster coherence invariant (§3): a member column's
// dense index always equals the owning entity's roster position, because
// Archetype.appendEntity/removeEntity apply an identical operation history to
// the roster and every column. Tag components carry no bytes; presence alone
// yields a fresh zero value.
func (c AccessibleComponent[T]) atIndex(arche *Archetype, idx int) (*T, bool) {
	col := arche.column(c.TypeID)
	if col == nil {
		return nil, false
	}
	if col.tag {
		if idx < 0 || idx >= arche.Len() {
			return nil, false
		}
		return new(T), true
	}
	data, ok := col.AtDense(idx)
	if !ok {
		return nil, false
	}
	return (*T)(unsafe.Pointer(&data[0])), true
}

// GetFromCursor retrieves the component for the entity at the cursor's
// current position.
func (c AccessibleComponent[T]) GetFromCursor(cursor *Cursor) (*T, bool) {
	arche := cursor.Archetype()
	if arche == nil {
		return nil, false
	}
	idx := cursor.entityIdx
	if cursor.query.hasChangedSince {
		if cursor.changedAt < 0 || cursor.changedAt >= len(cursor.changed) {
			return nil, false
		}
		e, ok := cursor.currentEntity()
		if !ok {
			return nil, false
		}
		if idx, ok = arche.PositionOf(e.slot); !ok {
			return nil, false
		}
	}
	return c.atIndex(arche, idx)
}

// CheckCursor reports whether the component is present in the archetype the
// cursor is currently positioned in.
func (c AccessibleComponent[T]) CheckCursor(cursor *Cursor) bool {
	arche := cursor.Archetype()
	if arche == nil {
		return false
	}
	return arche.Has(c.TypeID)
}

// GetFromEntity retrieves a copy of the component value for entity within w.
// Unlike atIndex, this never bumps the column's change version — it's a
// read, not a handle for in-place mutation.
func (c AccessibleComponent[T]) GetFromEntity(w *World, e Entity) (T, bool) {
	var zero T
	arche, idx, ok := w.locate(e)
	if !ok {
		return zero, false
	}
	col := arche.column(c.TypeID)
	if col == nil {
		return zero, false
	}
	if col.tag {
		return zero, true
	}
	data, ok := col.PeekDense(idx)
	if !ok {
		return zero, false
	}
	return *(*T)(unsafe.Pointer(&data[0])), true
}

// HasEntity reports whether entity carries this component.
func (c AccessibleComponent[T]) HasEntity(w *World, e Entity) bool {
	arche, _, ok := w.locate(e)
	if !ok {
		return false
	}
	return arche.Has(c.TypeID)
}
