// Package projection implements ProjectionIndex: the incremental aggregator
// layered on EventStore. Every exported getter returns a value-typed
// snapshot copy; nothing here aliases mutable internal state to a caller, so
// concurrent readers never observe a partial update.
package projection

import (
	"sort"
	"sync"

	"github.com/lukaspfisterch/dbl-observer/event"
	"github.com/lukaspfisterch/dbl-observer/obslog"
)

// LatencyReservoirCapacity bounds the retained latency sample count to the
// last N=5000 observed latency_ms samples.
const LatencyReservoirCapacity = 5000

// Index is the ProjectionIndex. The zero value is not usable; use New.
type Index struct {
	mu sync.RWMutex

	threads map[string]*threadState
	turns   map[string]*turnState
	actors  map[string]*actorState

	policyWindows []PolicyWindow

	latency *latencyRing

	eventCount    int
	decisionCount int
	allowCount    int
	denyCount     int
	errorCount    int

	lastEventID int64
	hasEvents   bool
}

type threadState struct {
	summary   ThreadSummary
	turnsSeen map[string]struct{}
	recent    errorWindow
	hasFirst  bool
}

type turnState struct {
	summary  TurnSummary
	hasFirst bool
}

type actorState struct {
	summary ActorSummary
}

// New returns an empty ProjectionIndex.
func New() *Index {
	return &Index{
		threads: make(map[string]*threadState),
		turns:   make(map[string]*turnState),
		actors:  make(map[string]*actorState),
		latency: newLatencyRing(LatencyReservoirCapacity),
	}
}

// OnEvent folds a single observed event into the projection. Events must be
// supplied in the same order they were appended to the EventStore. OnEvent
// never fails: malformed events are rejected upstream, at the Ingest
// Controller, before they ever reach the projection.
func (idx *Index) OnEvent(e event.Observed) {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	idx.eventCount++
	idx.lastEventID = e.EventID
	idx.hasEvents = true

	if e.Kind == event.KindDecision {
		idx.decisionCount++
		switch e.DecisionResult {
		case event.DecisionAllow:
			idx.allowCount++
		case event.DecisionDeny:
			idx.denyCount++
		}
	}
	if e.Kind == event.KindError {
		idx.errorCount++
	}

	if e.HasThread() {
		idx.onThreadEvent(e)
	}
	if e.HasTurn() {
		idx.onTurnEvent(e)
	}
	if e.HasActor() {
		idx.onActorEvent(e)
	}
	if e.Kind == event.KindPolicyChange {
		idx.onPolicyChange(e)
	}
	if e.Kind == event.KindDecision && e.HasLatency {
		idx.latency.push(e.LatencyMs)
	}
}

func (idx *Index) onThreadEvent(e event.Observed) {
	th, ok := idx.threads[e.ThreadID]
	if !ok {
		th = &threadState{
			summary:   ThreadSummary{ThreadID: e.ThreadID},
			turnsSeen: make(map[string]struct{}),
		}
		idx.threads[e.ThreadID] = th
	}

	if !th.hasFirst {
		th.summary.FirstEventID = e.EventID
		th.hasFirst = true
	}
	th.summary.LastEventID = e.EventID
	th.summary.LastObservedAt = e.ObservedAt

	if e.HasTurn() {
		if _, seen := th.turnsSeen[e.TurnID]; !seen {
			th.turnsSeen[e.TurnID] = struct{}{}
			th.summary.TurnsTotal++
		}
	}

	isError := e.Kind == event.KindError
	if e.Kind == event.KindDecision {
		switch e.DecisionResult {
		case event.DecisionAllow:
			th.summary.AllowTotal++
		case event.DecisionDeny:
			th.summary.DenyTotal++
		}
	}
	if isError {
		th.summary.ErrorTotal++
	}

	th.recent.push(isError)
	th.summary.ErrorsInLastWindow = th.recent.errorsInWindow()
}

func (idx *Index) onTurnEvent(e event.Observed) {
	tn, ok := idx.turns[e.TurnID]
	if !ok {
		tn = &turnState{summary: TurnSummary{TurnID: e.TurnID, FirstEventID: e.EventID}}
		idx.turns[e.TurnID] = tn
	}

	if e.HasParentTurn() && tn.summary.ParentTurnID == "" {
		tn.summary.ParentTurnID = e.ParentTurnID
	}

	if e.Kind == event.KindDecision {
		if !tn.summary.HasDecisionResult {
			tn.summary.HasDecisionResult = true
			tn.summary.DecisionResult = e.DecisionResult
			if e.HasLatency {
				lat := e.LatencyMs
				tn.summary.LatencyMs = &lat
			}
		} else {
			tn.summary.DuplicateDecisionObserved = true
		}
	}
	if e.Kind == event.KindExecution {
		tn.summary.HasExecution = true
	}
	if e.Kind == event.KindError {
		tn.summary.HasError = true
	}

	tn.summary.LastEventID = e.EventID
}

func (idx *Index) onActorEvent(e event.Observed) {
	ac, ok := idx.actors[e.Actor]
	if !ok {
		ac = &actorState{summary: ActorSummary{Actor: e.Actor}}
		idx.actors[e.Actor] = ac
	}

	ac.summary.EventCount++
	ac.summary.LastObservedAt = e.ObservedAt

	if e.Kind == event.KindDecision {
		switch e.DecisionResult {
		case event.DecisionAllow:
			ac.summary.AllowCount++
		case event.DecisionDeny:
			ac.summary.DenyCount++
		}
	}
	if e.Kind == event.KindError {
		ac.summary.ErrorCount++
	}
}

func (idx *Index) onPolicyChange(e event.Observed) {
	if n := len(idx.policyWindows); n > 0 && idx.policyWindows[n-1].Open() {
		closedAt := e.EventID - 1
		idx.policyWindows[n-1].EndedAtEventID = &closedAt
	}
	idx.policyWindows = append(idx.policyWindows, PolicyWindow{
		PolicyVersion:    e.PolicyVersion,
		StartedAtEventID: e.EventID,
	})
	if obslog.IsEnabled(obslog.LevelInfo) {
		obslog.Info("projection", "policy window opened", map[string]any{
			"event_id":       e.EventID,
			"policy_version": e.PolicyVersion,
		})
	}
}

// Status returns the status() query surface aggregate, excluding
// active_signals.
func (idx *Index) Status() Status {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return idx.statusLocked()
}

func (idx *Index) statusLocked() Status {
	var denyRate float64
	if idx.decisionCount > 0 {
		denyRate = float64(idx.denyCount) / float64(idx.decisionCount)
	}
	return Status{
		EventCount:    idx.eventCount,
		ThreadCount:   len(idx.threads),
		TurnCount:     len(idx.turns),
		DecisionCount: idx.decisionCount,
		AllowCount:    idx.allowCount,
		DenyCount:     idx.denyCount,
		ErrorCount:    idx.errorCount,
		DenyRate:      denyRate,
		Latency:       idx.latencyLocked(),
	}
}

// Threads returns ThreadSummary values sorted by last_observed_at
// descending, ties by last_event_id descending, then thread_id ascending.
func (idx *Index) Threads() []ThreadSummary {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return idx.threadsLocked()
}

func (idx *Index) threadsLocked() []ThreadSummary {
	out := make([]ThreadSummary, 0, len(idx.threads))
	for _, th := range idx.threads {
		out = append(out, th.summary)
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.LastObservedAt != b.LastObservedAt {
			return a.LastObservedAt > b.LastObservedAt
		}
		if a.LastEventID != b.LastEventID {
			return a.LastEventID > b.LastEventID
		}
		return a.ThreadID < b.ThreadID
	})
	return out
}

// Thread returns the thread(id) query surface response: the thread's
// summary plus its turns ordered by first_event_id ascending.
// found is false when id is unknown to the projection (caller maps that to
// obserr.NotFound).
func (idx *Index) Thread(threadID string) (detail ThreadDetail, found bool) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	th, ok := idx.threads[threadID]
	if !ok {
		return ThreadDetail{}, false
	}

	turns := make([]TurnSummary, 0, len(th.turnsSeen))
	for turnID := range th.turnsSeen {
		if tn, ok := idx.turns[turnID]; ok {
			turns = append(turns, tn.summary)
		}
	}
	sort.Slice(turns, func(i, j int) bool {
		return turns[i].FirstEventID < turns[j].FirstEventID
	})

	return ThreadDetail{Thread: th.summary, Turns: turns}, true
}

// Actors returns ActorSummary values sorted by event_count descending,
// ties broken by actor ascending.
func (idx *Index) Actors() []ActorSummary {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	out := make([]ActorSummary, 0, len(idx.actors))
	for _, ac := range idx.actors {
		out = append(out, ac.summary)
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.EventCount != b.EventCount {
			return a.EventCount > b.EventCount
		}
		return a.Actor < b.Actor
	})
	return out
}

// PolicyWindows returns the policy version timeline in creation order.
func (idx *Index) PolicyWindows() []PolicyWindow {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return idx.policyWindowsLocked()
}

func (idx *Index) policyWindowsLocked() []PolicyWindow {
	out := make([]PolicyWindow, len(idx.policyWindows))
	copy(out, idx.policyWindows)
	return out
}

// Latency returns {count, p50, p95, p99} computed on demand by nearest-rank
// over a sorted snapshot of the retained samples. An empty sample returns a
// zero Count and nil percentiles.
func (idx *Index) Latency() LatencyStats {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return idx.latencyLocked()
}

func (idx *Index) latencyLocked() LatencyStats {
	samples := idx.latency.snapshot()
	n := len(samples)
	if n == 0 {
		return LatencyStats{}
	}
	sort.Slice(samples, func(i, j int) bool { return samples[i] < samples[j] })
	return LatencyStats{
		Count: n,
		P50:   nearestRank(samples, 50),
		P95:   nearestRank(samples, 95),
		P99:   nearestRank(samples, 99),
	}
}

// nearestRank implements the nearest-rank percentile contract:
// index = ceil(p*n/100) - 1, clamped to [0, n-1]. sorted must already be
// ascending.
func nearestRank(sorted []int64, p int) *int64 {
	n := len(sorted)
	if n == 0 {
		return nil
	}
	idx := (p*n + 99) / 100 // ceil(p*n/100)
	idx--
	if idx < 0 {
		idx = 0
	}
	if idx > n-1 {
		idx = n - 1
	}
	v := sorted[idx]
	return &v
}

// Snapshot returns the full value-typed view consumed by signal.Evaluate:
// the status aggregate, thread summaries, and policy-window counts needed
// by the frequent_policy_changes rule.
func (idx *Index) Snapshot() Snapshot {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	windows := idx.policyWindowsLocked()
	recent := 0
	for _, w := range windows {
		if idx.lastEventID-w.StartedAtEventID < 100 {
			recent++
		}
	}

	return Snapshot{
		Status:              idx.statusLocked(),
		Threads:             idx.threadsLocked(),
		PolicyWindowsTotal:  len(windows),
		RecentPolicyWindows: recent,
	}
}
