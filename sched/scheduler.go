// Package sched implements the levelized parallel BFS scheduler
// (spec.md §4.1): it visits every driver vertex whose timing
// annotations may be stale, in an order consistent with the timing
// graph's levelization, exploiting intra-level parallelism via a
// per-thread worker pool grounded on leabra/networkstru.go's
// ThrWorker/ThrLayFun/StartThreads/StopThreads channel-of-functions
// pattern.
package sched

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/opentiming/stacore/dcalc"
	"github.com/opentiming/stacore/graph"
)

// Unlimited, passed as recompute's level_limit, means "process every
// remaining level" (spec.md §4.1 "infinity = full").
const Unlimited = -1

// levelFunc is one vertex's dispatch task queued to a worker. Mirrors
// leabra/networkstru.go's LayFunChan element type (chan func(ly
// LeabraLayer)), specialized to a single closed-over vertex instead of
// a function applied across a thread's static layer shard, per
// spec.md §9's "work-stealing queue of driver vertices per level, with
// per-worker calculator state" redesign flag.
type levelFunc func(calc dcalc.Calculator)

// Scheduler runs spec.md §4.1's levelized parallel BFS over a
// graph.Graph, dispatching driver vertices through a dcalc.Dispatcher.
type Scheduler struct {
	Graph      *graph.Graph
	Dispatcher *dcalc.Dispatcher
	APCount    int
	NThreads   int

	muLevel    sync.Mutex // guards lz, checkEdges/latchIn staleness (spec.md §4.1 "check-edge set and latch-D->Q set, guarded by a mutex")
	lz         *levelization
	lastVerts  int
	lastEdges  int

	muDirty sync.Mutex
	dirty   map[graph.VertexID]bool
	full    bool // true until the first successful Recompute, or after Clear

	chans   []chan levelFunc
	wg      sync.WaitGroup
	started bool

	funMu    sync.Mutex
	funTimes map[string]time.Duration
	starts   map[string]time.Time
	thrTimes []time.Duration
}

// New builds a scheduler over g, dispatching through dispatcher with
// apCount analysis points and nThreads worker goroutines (nThreads<=1
// runs every level on the calling goroutine, mirroring
// NetworkStru.ThrLayFun's NThreads<=1 fallback).
func New(g *graph.Graph, dispatcher *dcalc.Dispatcher, apCount, nThreads int) *Scheduler {
	if nThreads < 1 {
		nThreads = 1
	}
	return &Scheduler{
		Graph:      g,
		Dispatcher: dispatcher,
		APCount:    apCount,
		NThreads:   nThreads,
		dirty:      make(map[graph.VertexID]bool),
		full:       true,
		funTimes:   make(map[string]time.Duration),
		thrTimes:   make([]time.Duration, nThreads),
	}
}

// StartThreads starts the computation threads, which monitor per-
// thread channels for dispatch work (grounded on
// NetworkStru.StartThreads).
func (s *Scheduler) StartThreads() {
	if s.started {
		return
	}
	s.chans = make([]chan levelFunc, s.NThreads)
	for th := 0; th < s.NThreads; th++ {
		s.chans[th] = make(chan levelFunc, 64)
		go s.thrWorker(th)
	}
	s.started = true
}

// StopThreads stops the computation threads (grounded on
// NetworkStru.StopThreads).
func (s *Scheduler) StopThreads() {
	if !s.started {
		return
	}
	for th := 0; th < s.NThreads; th++ {
		close(s.chans[th])
	}
	s.started = false
}

// thrWorker is the per-thread loop: drain dispatch closures off this
// thread's channel, running each against a private calculator clone,
// timing the thread's busy interval (grounded on
// NetworkStru.ThrWorker).
func (s *Scheduler) thrWorker(tt int) {
	calc := s.Dispatcher.Primary.Clone()
	for fn := range s.chans[tt] {
		start := time.Now()
		fn(calc)
		s.thrTimes[tt] += time.Since(start)
		s.wg.Done()
	}
}

// dispatchLevel runs fn against every vertex in verts, sharded
// round-robin across worker threads (spec.md §4.1 "partitions the
// frontier into per-worker shards and spawns tasks"), or serially on
// the calling goroutine when NThreads<=1 (grounded on
// NetworkStru.ThrLayFun's single-thread fallback).
func (s *Scheduler) dispatchLevel(verts []graph.VertexID, fn func(calc dcalc.Calculator, v graph.VertexID)) {
	if s.NThreads <= 1 || !s.started {
		calc := s.Dispatcher.Primary.Clone()
		for _, v := range verts {
			fn(calc, v)
		}
		return
	}
	for i, v := range verts {
		th := i % s.NThreads
		vv := v
		s.wg.Add(1)
		s.chans[th] <- func(calc dcalc.Calculator) { fn(calc, vv) }
	}
	s.wg.Wait()
}

// ensureLevels rebuilds the cached levelization if the graph has grown
// since the last build, guarded by muLevel and lazily populated
// (grounded on graph.Graph.MultiDriver's "create if nil or stale"
// pattern).
func (s *Scheduler) ensureLevels() *levelization {
	s.muLevel.Lock()
	defer s.muLevel.Unlock()
	if s.lz == nil || s.Graph.NumVertices() != s.lastVerts || s.Graph.NumEdges() != s.lastEdges {
		s.lz = levelize(s.Graph)
		s.lastVerts = s.Graph.NumVertices()
		s.lastEdges = s.Graph.NumEdges()
	}
	return s.lz
}

// Invalidate marks v dirty for the next Recompute call (spec.md §4.1
// "invalidate(vertex): add to dirty set if incremental mode on").
func (s *Scheduler) Invalidate(v graph.VertexID) {
	s.muDirty.Lock()
	defer s.muDirty.Unlock()
	if s.full {
		return // a pending full recompute already covers v
	}
	s.dirty[v] = true
}

// InvalidatePin resolves pin to its driver and/or load vertex and
// marks them dirty. A hierarchical pin fans out to every load vertex
// reachable downstream through wire and cell-arc edges, since those
// are the vertices whose annotations depend on what crosses the
// boundary (spec.md §4.1 "invalidate(pin)").
func (s *Scheduler) InvalidatePin(pin graph.PinID) error {
	p, err := s.Graph.Pin(pin)
	if err != nil {
		return err
	}
	if p.DriverVertex != graph.VertexID(graph.InvalidID) {
		s.Invalidate(p.DriverVertex)
	}
	if p.LoadVertex != graph.VertexID(graph.InvalidID) {
		s.Invalidate(p.LoadVertex)
		if p.Hierarchical {
			s.invalidateDownstream(p.LoadVertex)
		}
	}
	return nil
}

// invalidateDownstream marks every vertex reachable from v through
// wire and cell-arc edges dirty.
func (s *Scheduler) invalidateDownstream(v graph.VertexID) {
	seen := map[graph.VertexID]bool{v: true}
	queue := []graph.VertexID{v}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, eid := range s.Graph.OutEdges(cur) {
			edge, err := s.Graph.Edge(eid)
			if err != nil || (edge.Kind != graph.EdgeWire && edge.Kind != graph.EdgeCellArc) {
				continue
			}
			if seen[edge.To] {
				continue
			}
			seen[edge.To] = true
			s.Invalidate(edge.To)
			queue = append(queue, edge.To)
		}
	}
}

// Clear drops all timing annotations, the dirty set, and multi-driver
// records (spec.md §4.1 "clear()").
func (s *Scheduler) Clear() {
	for v := 0; v < s.Graph.NumVertices(); v++ {
		vert, err := s.Graph.Vertex(graph.VertexID(v))
		if err != nil {
			continue
		}
		for ap := 0; ap < s.APCount; ap++ {
			vert.Slews.Reset(graph.Rise, ap)
			vert.Slews.Reset(graph.Fall, ap)
		}
	}
	for e := 0; e < s.Graph.NumEdges(); e++ {
		edge, err := s.Graph.Edge(graph.EdgeID(e))
		if err != nil {
			continue
		}
		if edge.Kind == graph.EdgeWire {
			for ap := 0; ap < s.APCount; ap++ {
				edge.ResetWireDelay(graph.Rise, ap)
				edge.ResetWireDelay(graph.Fall, ap)
				edge.ResetLoadSlew(graph.Rise, ap)
				edge.ResetLoadSlew(graph.Fall, ap)
			}
			continue
		}
		if edge.ArcSet == nil {
			continue
		}
		for i := range edge.ArcSet.Arcs {
			arc := &edge.ArcSet.Arcs[i]
			for ap := 0; ap < s.APCount; ap++ {
				edge.ResetArcDelay(arc, ap, s.APCount)
			}
		}
	}
	s.Graph.ClearMultiDrivers()
	s.Dispatcher.Clear()

	s.muDirty.Lock()
	s.dirty = make(map[graph.VertexID]bool)
	s.full = true
	s.muDirty.Unlock()
}

// Recompute recomputes up to levelLimit levels (Unlimited = full),
// seeding graph roots on the first call after a full invalidation and
// the dirty set on later calls (spec.md §4.1 "recompute(level_limit)").
// Rebroadcast vertices produced by bidirectional loads (spec.md §4.2
// step 5) are folded into the dirty set for the next call rather than
// reprocessed inline, since they may land on an earlier level than the
// one currently being visited.
func (s *Scheduler) Recompute(levelLimit int) error {
	s.FunTimerStart("recompute")
	defer s.FunTimerStop("recompute")

	lz := s.ensureLevels()

	s.muDirty.Lock()
	full := s.full
	pending := s.dirty
	s.dirty = make(map[graph.VertexID]bool)
	s.full = false
	s.muDirty.Unlock()

	levels := levelLimit
	if levels == Unlimited || levels > len(lz.driverLevels) {
		levels = len(lz.driverLevels)
	}

	var rebroadcast []graph.VertexID
	var dispatchErr error
	var mu sync.Mutex

	for level := 0; level < levels; level++ {
		frontier := lz.driverLevels[level]
		if !full {
			var filtered []graph.VertexID
			for _, v := range frontier {
				if pending[v] {
					filtered = append(filtered, v)
				}
			}
			frontier = filtered
		}
		if len(frontier) == 0 {
			continue
		}

		s.dispatchLevel(frontier, func(calc dcalc.Calculator, v graph.VertexID) {
			next, err := s.dispatchVertex(calc, v, lz)
			mu.Lock()
			if err != nil {
				dispatchErr = err
			}
			rebroadcast = append(rebroadcast, next...)
			mu.Unlock()
		})
	}
	if dispatchErr != nil {
		return dispatchErr
	}

	if levels == len(lz.driverLevels) {
		if err := s.runDeferred(lz); err != nil {
			return err
		}
	}

	s.muDirty.Lock()
	for _, v := range rebroadcast {
		s.dirty[v] = true
	}
	s.muDirty.Unlock()

	return nil
}

// runDeferred evaluates latch D->Q edges and timing-check edges once
// the main levelized BFS has settled (spec.md §4.1 "Visits for
// timing-check edges are deferred"; §9 "a deferred pass that
// re-evaluates D->Q edges after the main BFS").
func (s *Scheduler) runDeferred(lz *levelization) error {
	s.FunTimerStart("deferred")
	defer s.FunTimerStop("deferred")

	calc := s.Dispatcher.Primary.Clone()
	for v := 0; v < len(lz.latchIn); v++ {
		in := lz.latchIn[v]
		if len(in) == 0 {
			continue
		}
		if _, err := dispatchWith(s.Dispatcher, calc, s.Graph, graph.VertexID(v), in, s.APCount); err != nil {
			return err
		}
	}

	for _, eid := range lz.checkEdges {
		if err := evaluateCheckEdge(s.Graph, eid, s.APCount); err != nil {
			return err
		}
	}
	return nil
}

// dispatchWith runs d.DispatchDriverWith against a per-worker
// calculator clone, so concurrently dispatching goroutines never touch
// d.Primary's shared calculator state (spec.md §4.1 "per-thread copy
// of the active delay calculator").
func dispatchWith(d *dcalc.Dispatcher, calc dcalc.Calculator, g *graph.Graph, v graph.VertexID, inEdges []graph.EdgeID, apCount int) ([]graph.VertexID, error) {
	return d.DispatchDriverWith(calc, g, v, inEdges, apCount)
}

// dispatchVertex routes v to the single-driver procedure unless v
// belongs to a parallel-drive multi-driver group (spec.md §4.7), in
// which case only the group's primary dispatch fires: it batches
// every member's own cell-arc arguments through
// dcalc.Dispatcher.DispatchDriverGroupWith, and a non-primary member
// visited on its own (earlier) level is skipped here entirely, since
// its contribution is folded into the primary's batch (spec.md §3
// "only the primary driver's dispatch recomputes the shared
// parasitic loading"). A non-parallel multi-driver net (the common
// case, ParallelDrive's zero value) keeps dispatching every driver
// independently through dispatchWith, since each of its drivers
// genuinely recomputes the net's loading on its own turn (spec.md
// §4.7 "each driver is dispatched independently with a shared but
// possibly disabled output").
func (s *Scheduler) dispatchVertex(calc dcalc.Calculator, v graph.VertexID, lz *levelization) ([]graph.VertexID, error) {
	rec, err := s.multiDriverGroupFor(v)
	if err != nil {
		return nil, err
	}
	if rec == nil || !rec.ParallelDrive {
		return dispatchWith(s.Dispatcher, calc, s.Graph, v, lz.cellIn[v], s.APCount)
	}
	if v != rec.Primary {
		return nil, nil
	}

	driverInEdges := make(map[graph.VertexID][]graph.EdgeID, len(rec.Drivers))
	for _, dv := range rec.Drivers {
		driverInEdges[dv] = lz.cellIn[dv]
	}
	return s.Dispatcher.DispatchDriverGroupWith(calc, s.Graph, rec, driverInEdges, s.APCount)
}

// multiDriverGroupFor returns v's net's MultiDriverRecord, or nil if v
// is not a driver on a multi-driver net.
func (s *Scheduler) multiDriverGroupFor(v graph.VertexID) (*graph.MultiDriverRecord, error) {
	vert, err := s.Graph.Vertex(v)
	if err != nil {
		return nil, err
	}
	pin, err := s.Graph.Pin(vert.PinID)
	if err != nil {
		return nil, err
	}
	return s.Graph.MultiDriver(pin.NetID), nil
}

// FunTimerStart starts a named phase timer, creating it if absent
// (grounded on NetworkStru.FunTimerStart).
func (s *Scheduler) FunTimerStart(name string) {
	s.funMu.Lock()
	defer s.funMu.Unlock()
	s.funStarts()[name] = time.Now()
}

// funStarts lazily allocates the in-flight start-time map, kept
// separate from the accumulated totals in funTimes.
func (s *Scheduler) funStarts() map[string]time.Time {
	if s.starts == nil {
		s.starts = make(map[string]time.Time)
	}
	return s.starts
}

// FunTimerStop stops a named phase timer and accumulates its elapsed
// time (grounded on NetworkStru.FunTimerStop).
func (s *Scheduler) FunTimerStop(name string) {
	s.funMu.Lock()
	defer s.funMu.Unlock()
	start, ok := s.starts[name]
	if !ok {
		return
	}
	s.funTimes[name] += time.Since(start)
	delete(s.starts, name)
}

// Report prints the per-function and per-thread timing breakdown
// (grounded on NetworkStru.TimerReport's fmt.Printf tabular format).
func (s *Scheduler) Report() {
	s.funMu.Lock()
	defer s.funMu.Unlock()

	fmt.Printf("Report: NThreads: %d\n", s.NThreads)
	fmt.Printf("\tFunction Name\tTotal Secs\tPct\n")
	names := make([]string, 0, len(s.funTimes))
	for name := range s.funTimes {
		names = append(names, name)
	}
	sort.Strings(names)

	var total time.Duration
	for _, name := range names {
		total += s.funTimes[name]
	}
	for _, name := range names {
		secs := s.funTimes[name].Seconds()
		pct := 0.0
		if total > 0 {
			pct = 100 * secs / total.Seconds()
		}
		fmt.Printf("\t%s \t%6.4g\t%6.4g\n", name, secs, pct)
	}
	fmt.Printf("\tTotal   \t%6.4g\n", total.Seconds())

	if s.NThreads <= 1 {
		return
	}
	fmt.Printf("\n\tThr\tTotal Secs\tPct\n")
	var thrTotal time.Duration
	for _, d := range s.thrTimes {
		thrTotal += d
	}
	for th, d := range s.thrTimes {
		pct := 0.0
		if thrTotal > 0 {
			pct = 100 * d.Seconds() / thrTotal.Seconds()
		}
		fmt.Printf("\t%d \t%6.4g\t%6.4g\n", th, d.Seconds(), pct)
	}
}
