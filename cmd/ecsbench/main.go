// Command ecsbench is a runnable smoke example: it spawns a batch of
// entities, runs a couple of phases against them, and prints basic timing.
// It is not a rigorous benchmark harness — just a way to exercise the
// public API end to end without a test framework.
package main

import (
	"flag"
	"fmt"
	"time"

	"github.com/forgecore/ecs"
)

type position struct{ X, Y float64 }
type velocity struct{ X, Y float64 }

func main() {
	entityCount := flag.Int("entities", 50_000, "number of entities to spawn")
	frames := flag.Int("frames", 60, "number of frames to step")
	flag.Parse()

	world := ecs.Factory.NewWorld(ecs.WorldConfig{
		MaxEntities: uint32(*entityCount) + 1,
		WorkerCount: 4,
	})

	pos := ecs.MustRegisterComponent[position](world.Registry(), "position", 0, 1, nil, nil)
	vel := ecs.MustRegisterComponent[velocity](world.Registry(), "velocity", 0, 1, nil, nil)

	if _, err := world.NewEntities(*entityCount, pos.Value(position{}), vel.Value(velocity{X: 1, Y: 1})); err != nil {
		fmt.Println("spawn failed:", err)
		return
	}

	query := ecs.NewQuery().Require(pos.TypeID, vel.TypeID).Build()
	world.RegisterSystem(ecs.SystemSpec{
		Name:   "integrate",
		Phase:  ecs.Update,
		Writes: []uint32{pos.TypeID},
		Reads:  []uint32{vel.TypeID},
		Run: func(sctx *ecs.SystemContext) error {
			dt := sctx.DeltaTime.Seconds()
			sctx.World.ForEachArchetype(query, func(arche *ecs.Archetype) {
				for i := 0; i < arche.Len(); i++ {
					p, v, ok := ecs.Access2(pos, vel, arche, i)
					if !ok {
						continue
					}
					p.X += v.X * dt
					p.Y += v.Y * dt
				}
			})
			return nil
		},
	})

	start := time.Now()
	dt := 16 * time.Millisecond
	for i := 0; i < *frames; i++ {
		if err := world.StepFrame(dt); err != nil {
			fmt.Println("frame failed:", err)
			return
		}
	}
	elapsed := time.Since(start)

	fmt.Printf("entities=%d frames=%d total=%s avg_per_frame=%s\n",
		world.LiveEntityCount(), *frames, elapsed, elapsed/time.Duration(*frames))
}
