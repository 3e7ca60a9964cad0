package ecs

import (
	"context"
	"sort"
	"time"

	"github.com/TheBitDrifter/bark"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
)

// scheduler owns the per-phase system DAGs and drives parallel execution
// within a phase (§4.10). Non-conflicting systems (disjoint read/write sets)
// run concurrently up to the worker budget via golang.org/x/sync's errgroup
// and semaphore; a system error halts new scheduling within the phase and
// is surfaced to the caller after in-flight systems finish.
type scheduler struct {
	systems      map[Phase][]*registeredSystem
	sem          *semaphore.Weighted
	lastCycle    *DependencyCycleError
	unsafeWrites bool
}

func newScheduler(workerCount int, unsafeWrites bool) *scheduler {
	if workerCount <= 0 {
		workerCount = 1
	}
	return &scheduler{
		systems:      make(map[Phase][]*registeredSystem),
		sem:          semaphore.NewWeighted(int64(workerCount)),
		unsafeWrites: unsafeWrites,
	}
}

func (s *scheduler) register(sys *registeredSystem) {
	s.systems[sys.spec.Phase] = append(s.systems[sys.spec.Phase], sys)
}

// stats returns a per-system scheduling snapshot across every phase, for
// World.Stats.
func (s *scheduler) stats() []SystemStats {
	var out []SystemStats
	for _, phase := range allPhases {
		for _, sys := range s.systems[phase] {
			out = append(out, SystemStats{
				Name:    sys.spec.Name,
				Phase:   phase,
				State:   sys.state,
				AvgExec: sys.avgExec(),
				Runs:    sys.execCount,
			})
		}
	}
	return out
}

// topoOrder returns an execution order for phase honoring DependsOn/
// RunsBefore. Cycles are detected with Tarjan's SCC, logged via bark, and
// broken by falling back to priority-then-name ordering among the members
// of the offending cycle (§4.10: cycles never abort the scheduler).
func (s *scheduler) topoOrder(phase Phase) []*registeredSystem {
	systems := s.systems[phase]
	if len(systems) == 0 {
		return nil
	}

	byName := make(map[string]*registeredSystem, len(systems))
	names := make([]string, 0, len(systems))
	for _, sys := range systems {
		byName[sys.spec.Name] = sys
		names = append(names, sys.spec.Name)
	}

	adj := make(map[string][]string)
	indeg := make(map[string]int, len(systems))
	addEdge := func(before, after string) {
		if _, ok := byName[before]; !ok {
			return
		}
		if _, ok := byName[after]; !ok {
			return
		}
		adj[before] = append(adj[before], after)
		indeg[after]++
	}
	for _, sys := range systems {
		for _, dep := range sys.spec.DependsOn {
			addEdge(dep, sys.spec.Name)
		}
		for _, before := range sys.spec.RunsBefore {
			addEdge(sys.spec.Name, before)
		}
	}

	sccs := tarjanSCC(adj, names)
	inCycle := make(map[string]bool)
	for _, scc := range sccs {
		if len(scc) <= 1 {
			continue
		}
		cycleErr := DependencyCycleError{Phase: phase, Members: append([]string(nil), scc...)}
		s.lastCycle = &cycleErr
		_ = bark.AddTrace(cycleErr)
		for _, member := range scc {
			inCycle[member] = true
		}
	}
	// Cycle members keep their place in the priority/name tiebreak but their
	// mutual edges are dropped so Kahn's algorithm can still make progress.
	if len(inCycle) > 0 {
		for name, nexts := range adj {
			if !inCycle[name] {
				continue
			}
			kept := nexts[:0]
			for _, n := range nexts {
				if inCycle[n] {
					indeg[n]--
					continue
				}
				kept = append(kept, n)
			}
			adj[name] = kept
		}
	}

	ordered := append([]*registeredSystem(nil), systems...)
	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].spec.Priority != ordered[j].spec.Priority {
			return ordered[i].spec.Priority > ordered[j].spec.Priority
		}
		return ordered[i].spec.Name < ordered[j].spec.Name
	})

	deg := make(map[string]int, len(indeg))
	for k, v := range indeg {
		deg[k] = v
	}
	placed := make(map[string]bool, len(systems))
	out := make([]*registeredSystem, 0, len(systems))
	for len(out) < len(systems) {
		progressed := false
		for _, sys := range ordered {
			name := sys.spec.Name
			if placed[name] || deg[name] > 0 {
				continue
			}
			out = append(out, sys)
			placed[name] = true
			for _, next := range adj[name] {
				deg[next]--
			}
			progressed = true
		}
		if !progressed {
			break // remaining members form a residual cycle; stop rather than loop forever
		}
	}
	return out
}

// RunPhase executes phase's systems in dependency order. Systems with
// disjoint read/write sets (per registeredSystem.conflictsWith) are grouped
// and run concurrently. frameDeadline, if non-zero, gates individual
// systems rather than the whole remaining phase: a system is skipped only
// once its own recorded average execution time no longer fits the
// remaining budget, so a handful of slow systems never starves every
// system queued behind them (§4.10).
func (s *scheduler) RunPhase(ctx context.Context, w *World, phase Phase, dt time.Duration, frameDeadline time.Time, perSystemBudget time.Duration) error {
	ordered := s.topoOrder(phase)

	i := 0
	for i < len(ordered) {
		group := []*registeredSystem{ordered[i]}
		j := i + 1
		for j < len(ordered) && s.canJoinGroup(group, ordered[j]) {
			group = append(group, ordered[j])
			j++
		}

		eg, egctx := errgroup.WithContext(ctx)
		for _, sys := range group {
			sys := sys
			if !sys.dueFor(dt) {
				sys.state = SystemSkipped
				continue
			}
			if s.shouldSkip(sys, frameDeadline) {
				sys.state = SystemSkipped
				continue
			}
			eg.Go(func() error {
				if err := s.sem.Acquire(egctx, 1); err != nil {
					return err
				}
				defer s.sem.Release(1)
				return s.runOne(egctx, w, sys, dt, perSystemBudget)
			})
		}
		if err := eg.Wait(); err != nil {
			return err
		}
		i = j
	}
	return nil
}

// shouldSkip reports whether sys's own execution history rules out running
// it within the frame's remaining budget. A system with no recorded average
// yet is always given the chance to run once, unless the budget is already
// spent outright.
func (s *scheduler) shouldSkip(sys *registeredSystem, frameDeadline time.Time) bool {
	if frameDeadline.IsZero() {
		return false
	}
	remaining := time.Until(frameDeadline)
	avg := sys.avgExec()
	if avg <= 0 {
		return remaining <= 0
	}
	return avg > remaining
}

// canJoinGroup reports whether candidate can run concurrently with every
// system already in group: the scheduler's conservative read/write
// conflict rule, bypassed entirely when unsafeWrites is set (§4.10, the
// unsafe_allow_concurrent_writes override for the "open question" path).
func (s *scheduler) canJoinGroup(group []*registeredSystem, candidate *registeredSystem) bool {
	if s.unsafeWrites {
		return true
	}
	for _, g := range group {
		if g.conflictsWith(candidate) {
			return false
		}
	}
	return true
}

// parallelEach runs fn(0..n-1) across the scheduler's worker pool, blocking
// until every index completes or one returns an error. System bodies and
// parallel-iteration chunks share one pool (§5): it acquires the same
// semaphore RunPhase uses to dispatch systems, and it backs
// World.ForEachArchetypeParallel/ForEachEntityParallel/SystemContext.ParallelEach.
func (s *scheduler) parallelEach(ctx context.Context, n int, fn func(i int) error) error {
	if n <= 0 {
		return nil
	}
	eg, egctx := errgroup.WithContext(ctx)
	for i := 0; i < n; i++ {
		i := i
		eg.Go(func() error {
			if err := s.sem.Acquire(egctx, 1); err != nil {
				return err
			}
			defer s.sem.Release(1)
			return fn(i)
		})
	}
	return eg.Wait()
}

func (s *scheduler) runOne(ctx context.Context, w *World, sys *registeredSystem, dt time.Duration, budget time.Duration) error {
	if budget > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, budget)
		defer cancel()
	}
	sys.state = SystemRunning
	sctx := &SystemContext{Context: ctx, World: w, Phase: sys.spec.Phase, DeltaTime: dt, Parallel: sys.spec.Parallel}
	start := time.Now()
	err := sys.spec.Run(sctx)
	sys.recordExec(time.Since(start))
	if err != nil {
		sys.state = SystemFailed
		return SystemError{System: sys.spec.Name, Phase: sys.spec.Phase, Cause: err}
	}
	sys.state = SystemReady
	return nil
}

// tarjanSCC computes the strongly connected components of the directed
// graph described by adj (node -> successors), visiting nodes in the order
// given so results are deterministic across runs.
func tarjanSCC(adj map[string][]string, nodes []string) [][]string {
	st := &tarjanState{
		index:   make(map[string]int),
		low:     make(map[string]int),
		onStack: make(map[string]bool),
		adj:     adj,
	}
	for _, n := range nodes {
		if _, visited := st.index[n]; !visited {
			st.strongconnect(n)
		}
	}
	return st.sccs
}

type tarjanState struct {
	index   map[string]int
	low     map[string]int
	onStack map[string]bool
	stack   []string
	counter int
	sccs    [][]string
	adj     map[string][]string
}

func (st *tarjanState) strongconnect(v string) {
	st.index[v] = st.counter
	st.low[v] = st.counter
	st.counter++
	st.stack = append(st.stack, v)
	st.onStack[v] = true

	for _, w := range st.adj[v] {
		if _, visited := st.index[w]; !visited {
			st.strongconnect(w)
			if st.low[w] < st.low[v] {
				st.low[v] = st.low[w]
			}
		} else if st.onStack[w] {
			if st.index[w] < st.low[v] {
				st.low[v] = st.index[w]
			}
		}
	}

	if st.low[v] == st.index[v] {
		var scc []string
		for {
			n := st.stack[len(st.stack)-1]
			st.stack = st.stack[:len(st.stack)-1]
			st.onStack[n] = false
			scc = append(scc, n)
			if n == v {
				break
			}
		}
		st.sccs = append(st.sccs, scc)
	}
}
