/*
Package ecs is an archetype-based Entity-Component-System runtime.

It keeps entities that share the same component set packed together in a
single Structure-of-Arrays archetype so iterating a query touches only the
columns it needs, with no per-entity indirection. Structural changes
(creating an entity, adding or removing a component, destroying an entity)
move the entity between archetypes along a cached edge in a content-addressed
archetype graph, so the same transition never re-walks the full component set
twice.

Core types:

  - Entity: a (slot, generation) handle; never assume validity without
    checking against the owning World.
  - World: owns the registry, entity store, archetype graph, and scheduler
    for one simulation.
  - AccessibleComponent[T]: a typed, reflection-free view onto a registered
    component type's raw bytes.
  - Query / Cursor: declarative entity selection and iteration.
  - SystemSpec / Phase: declared units of per-frame logic, run by World.StepFrame.
  - WorldSnapshot: an in-process capture of a World's full state, restorable
    onto any World whose registry matches the same component schema.
  - Stats: a point-in-time view of entity/archetype population and each
    registered system's recorded execution history.

Basic usage:

	world := ecs.NewWorld(ecs.WorldConfig{})

	type Position struct{ X, Y float64 }
	type Velocity struct{ X, Y float64 }

	position := ecs.MustRegisterComponent[Position](world.Registry(), "position", 0, 1, nil, nil)
	velocity := ecs.MustRegisterComponent[Velocity](world.Registry(), "velocity", 0, 1, nil, nil)

	e, _ := world.CreateEntityWith(
		position.Value(Position{X: 1}),
		velocity.Value(Velocity{X: 2, Y: 3}),
	)

	q := ecs.NewQuery().Require(position.TypeID, velocity.TypeID).Build()
	world.ForEachArchetype(q, func(arche *ecs.Archetype) {
		for i := 0; i < arche.Len(); i++ {
			pos, vel, ok := ecs.Access2(position, velocity, arche, i)
			if !ok {
				continue
			}
			pos.X += vel.X
			pos.Y += vel.Y
		}
	})

	_ = e
*/
package ecs
