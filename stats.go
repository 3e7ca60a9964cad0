package ecs

import (
	"fmt"
	"strings"
	"time"
)

// Stats is a point-in-time snapshot of a World's structural and scheduling
// state: archetype population, entity pool usage, and per-system execution
// history. It is the one place a system's own recorded average execution
// time — the figure the scheduler's frame-budget gating weighs against the
// remaining budget (§4.10) — is published for inspection.
type Stats struct {
	Entities   EntityPoolStats
	Components int
	Locked     bool
	Archetypes []ArchetypeStats
	Systems    []SystemStats
}

// EntityPoolStats describes the entity store's slot usage.
type EntityPoolStats struct {
	Used     uint32
	Capacity uint32
	Recycled int
}

// ArchetypeStats describes one archetype's identity and current population.
type ArchetypeStats struct {
	ID         ArchetypeID
	Size       int
	Components []uint32
}

// SystemStats describes one registered system's scheduling state and
// execution history.
type SystemStats struct {
	Name    string
	Phase   Phase
	State   SystemState
	AvgExec time.Duration
	Runs    int
}

// Stats captures a snapshot of the world's current entity pool, archetypes,
// and scheduler state.
func (w *World) Stats() Stats {
	used, capacity, recycled := w.entities.Stats()

	archetypes := w.graph.All()
	archStats := make([]ArchetypeStats, len(archetypes))
	for i, a := range archetypes {
		archStats[i] = ArchetypeStats{
			ID:         a.ID(),
			Size:       a.Len(),
			Components: append([]uint32(nil), a.TypeIDs()...),
		}
	}

	return Stats{
		Entities:   EntityPoolStats{Used: used, Capacity: capacity, Recycled: recycled},
		Components: w.registry.Count(),
		Locked:     w.Locked(),
		Archetypes: archStats,
		Systems:    w.scheduler.stats(),
	}
}

func (s Stats) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "World -- Components: %d, Archetypes: %d, Locked: %t\n", s.Components, len(s.Archetypes), s.Locked)
	fmt.Fprint(&b, s.Entities.String())
	for _, a := range s.Archetypes {
		fmt.Fprint(&b, a.String())
	}
	for _, sys := range s.Systems {
		fmt.Fprint(&b, sys.String())
	}
	return b.String()
}

func (s EntityPoolStats) String() string {
	return fmt.Sprintf("Entities -- Used: %d, Recycled: %d, Capacity: %d\n", s.Used, s.Recycled, s.Capacity)
}

func (s ArchetypeStats) String() string {
	return fmt.Sprintf("Archetype %d -- Entities: %d, Components: %v\n", s.ID, s.Size, s.Components)
}

func (s SystemStats) String() string {
	return fmt.Sprintf("System %q (%s) -- state: %s, avg_exec: %s, runs: %d\n", s.Name, s.Phase, s.State, s.AvgExec, s.Runs)
}
