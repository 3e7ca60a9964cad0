package ecs

import "unsafe"

// RegisterComponent registers Go type T as a component under key and returns
// an AccessibleComponent[T] bound to the assigned type id. Size and alignment
// are derived from T via unsafe.Sizeof/Alignof rather than reflection (§9 "no
// runtime reflection for component size").
//
// Pass FlagTag for zero-sized marker types; T should be an empty struct in
// that case.
func RegisterComponent[T any](r *Registry, key string, flags ComponentFlag, schemaVersion uint32, requires, excludes []uint32) (AccessibleComponent[T], error) {
	var zero T
	size := uint32(unsafe.Sizeof(zero))
	align := uint32(unsafe.Alignof(zero))
	if flags&FlagTag != 0 {
		size = 0
	}
	id, err := r.Register(ComponentDescriptor{
		Key:           key,
		Size:          size,
		Alignment:     align,
		Flags:         flags,
		SchemaVersion: schemaVersion,
		Requires:      requires,
		Excludes:      excludes,
	})
	if err != nil {
		return AccessibleComponent[T]{}, err
	}
	return AccessibleComponent[T]{TypeID: id, size: size}, nil
}

// MustRegisterComponent panics on registration failure, for package-init-time
// component declarations where a failure can only be a programmer error.
func MustRegisterComponent[T any](r *Registry, key string, flags ComponentFlag, schemaVersion uint32, requires, excludes []uint32) AccessibleComponent[T] {
	c, err := RegisterComponent[T](r, key, flags, schemaVersion, requires, excludes)
	if err != nil {
		panic(err)
	}
	return c
}

// ComponentValue is a type-erased component payload: a registered type id
// plus its encoded bytes, ready to hand to World.CreateEntityWith,
// World.AddComponent, or a deferred command. Build one with
// AccessibleComponent[T].Value.
type ComponentValue struct {
	TypeID uint32
	Bytes  []byte
}

// Value encodes v as a ComponentValue under c's type id. Tag components
// (size 0) carry no bytes.
func (c AccessibleComponent[T]) Value(v T) ComponentValue {
	if c.size == 0 {
		return ComponentValue{TypeID: c.TypeID}
	}
	buf := make([]byte, c.size)
	copy(buf, unsafe.Slice((*byte)(unsafe.Pointer(&v)), c.size))
	return ComponentValue{TypeID: c.TypeID, Bytes: buf}
}
