package projection

import "github.com/lukaspfisterch/dbl-observer/event"

// TurnSummary is the per-turn_id aggregate.
type TurnSummary struct {
	TurnID                    string
	DecisionResult            event.DecisionResult
	HasDecisionResult         bool // true once a decision event has been observed for this turn
	LatencyMs                 *int64
	HasExecution              bool
	HasError                  bool
	ParentTurnID              string
	FirstEventID              int64
	LastEventID               int64
	DuplicateDecisionObserved bool
}

// ThreadSummary is the per-thread_id aggregate.
type ThreadSummary struct {
	ThreadID       string
	TurnsTotal     int
	DenyTotal      int
	AllowTotal     int
	ErrorTotal     int
	FirstEventID   int64
	LastEventID    int64
	LastObservedAt int64

	// ErrorsInLastWindow is the count of KindError events among this
	// thread's last 20 observed events, feeding the error_cluster signal
	// rule. It is required to evaluate that rule without rescanning
	// history on every signal call.
	ErrorsInLastWindow int
}

// ActorSummary is the per-actor aggregate.
type ActorSummary struct {
	Actor          string
	EventCount     int
	DenyCount      int
	AllowCount     int
	ErrorCount     int
	LastObservedAt int64
}

// PolicyWindow is one entry in the policy version timeline.
type PolicyWindow struct {
	PolicyVersion    string
	StartedAtEventID int64
	EndedAtEventID   *int64 // nil means still open
}

// Open reports whether this window has no recorded end.
func (w PolicyWindow) Open() bool { return w.EndedAtEventID == nil }

// LatencyStats is the on-demand percentile summary.
type LatencyStats struct {
	Count int
	P50   *int64
	P95   *int64
	P99   *int64
}

// ThreadDetail is the thread(id) query surface response: the thread's
// summary plus its turns ordered by first_event_id ascending.
type ThreadDetail struct {
	Thread ThreadSummary
	Turns  []TurnSummary
}

// Status is the status() query surface response, excluding active_signals
// (that field is assembled by a caller holding a
// signal.Thresholds, by combining this Status with signal.Evaluate's
// output — ProjectionIndex itself never evaluates signals).
type Status struct {
	EventCount     int
	ThreadCount    int
	TurnCount      int
	DecisionCount  int
	AllowCount     int
	DenyCount      int
	ErrorCount     int
	DenyRate       float64
	Latency        LatencyStats
}

// Snapshot is the full, read-only view SignalEngine.Evaluate consumes. It
// is a value-typed copy: mutating it has no effect on the live
// ProjectionIndex, and holding onto one never blocks writers.
type Snapshot struct {
	Status             Status
	Threads            []ThreadSummary
	PolicyWindowsTotal int
	// RecentPolicyWindows is the count of PolicyWindow entries whose
	// started_at_event_id falls within the last 100 observed event_ids,
	// feeding the frequent_policy_changes signal rule.
	RecentPolicyWindows int
}
