// Package signal implements SignalEngine: a stateless pure function from a
// projection snapshot and a set of Thresholds to an ordered list of
// attention signals. It holds no state of its own and is fully re-entrant:
// two goroutines may call Evaluate concurrently over the same or different
// snapshots without coordination.
package signal

import "github.com/lukaspfisterch/dbl-observer/projection"

// Severity is one of the three levels a Signal may carry.
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarn     Severity = "warn"
	SeverityCritical Severity = "critical"
)

// Name is one of the fixed rule names. The vocabulary is frozen; Evaluate
// never emits a name outside this set.
type Name string

const (
	NameLatencyP95Elevated    Name = "latency_p95_elevated"
	NameLatencyP95Critical    Name = "latency_p95_critical"
	NameDenyRateElevated      Name = "deny_rate_elevated"
	NameDenyRateCritical      Name = "deny_rate_critical"
	NameErrorCluster          Name = "error_cluster"
	NameFrequentPolicyChanges Name = "frequent_policy_changes"
)

// Signal is a single attention marker derived from a snapshot.
type Signal struct {
	Name        Name
	Severity    Severity
	Observation string
	// Evidence carries the numbers that tripped the rule. Keys are stable
	// per rule so dashboards can bind to them without parsing Observation.
	Evidence map[string]float64
}

// Thresholds configures the rule families. Values are configuration, not
// hard-coded invariants; DefaultThresholds reproduces the recommended
// default numbers.
type Thresholds struct {
	LatencyP95WarnMs        int64
	LatencyP95CriticalMs    int64
	LatencyMinCount         int

	DenyRateWarn            float64
	DenyRateCritical        float64
	DenyRateMinDecisions    int

	ErrorClusterThreadCount int
	ErrorClusterTotalCount  int

	PolicyChangeWindowCount int
}

// DefaultThresholds returns the recommended default rule thresholds.
func DefaultThresholds() Thresholds {
	return Thresholds{
		LatencyP95WarnMs:        500,
		LatencyP95CriticalMs:    2000,
		LatencyMinCount:         50,

		DenyRateWarn:            0.25,
		DenyRateCritical:        0.5,
		DenyRateMinDecisions:    20,

		ErrorClusterThreadCount: 3,
		ErrorClusterTotalCount:  10,

		PolicyChangeWindowCount: 3,
	}
}

// Evaluate derives the ordered list of signals for snapshot under
// thresholds. It is deterministic: identical snapshot plus identical
// thresholds always yields identical output, including order. Rule
// families are evaluated in a fixed sequence: latency, deny rate, error
// cluster, then policy-change frequency.
func Evaluate(snapshot projection.Snapshot, thresholds Thresholds) []Signal {
	var out []Signal

	if s, ok := evaluateLatency(snapshot, thresholds); ok {
		out = append(out, s)
	}
	if s, ok := evaluateDenyRate(snapshot, thresholds); ok {
		out = append(out, s)
	}
	if s, ok := evaluateErrorCluster(snapshot, thresholds); ok {
		out = append(out, s)
	}
	if s, ok := evaluateFrequentPolicyChanges(snapshot, thresholds); ok {
		out = append(out, s)
	}
	return out
}

func evaluateLatency(snapshot projection.Snapshot, t Thresholds) (Signal, bool) {
	lat := snapshot.Status.Latency
	if lat.Count < t.LatencyMinCount || lat.P95 == nil {
		return Signal{}, false
	}
	p95 := *lat.P95

	var severity Severity
	var name Name
	switch {
	case p95 >= t.LatencyP95CriticalMs:
		name, severity = NameLatencyP95Critical, SeverityCritical
	case p95 >= t.LatencyP95WarnMs:
		name, severity = NameLatencyP95Elevated, SeverityWarn
	default:
		return Signal{}, false
	}

	return Signal{
		Name:        name,
		Severity:    severity,
		Observation: "latency p95 is elevated",
		Evidence: map[string]float64{
			"p95_ms": float64(p95),
			"count":  float64(lat.Count),
		},
	}, true
}

func evaluateDenyRate(snapshot projection.Snapshot, t Thresholds) (Signal, bool) {
	status := snapshot.Status
	if status.DecisionCount < t.DenyRateMinDecisions {
		return Signal{}, false
	}

	var severity Severity
	var name Name
	switch {
	case status.DenyRate >= t.DenyRateCritical:
		name, severity = NameDenyRateCritical, SeverityCritical
	case status.DenyRate >= t.DenyRateWarn:
		name, severity = NameDenyRateElevated, SeverityWarn
	default:
		return Signal{}, false
	}

	return Signal{
		Name:        name,
		Severity:    severity,
		Observation: "deny rate is elevated",
		Evidence: map[string]float64{
			"deny_rate":      status.DenyRate,
			"decision_count": float64(status.DecisionCount),
		},
	}, true
}

func evaluateErrorCluster(snapshot projection.Snapshot, t Thresholds) (Signal, bool) {
	status := snapshot.Status
	if status.ErrorCount >= t.ErrorClusterTotalCount {
		return Signal{
			Name:        NameErrorCluster,
			Severity:    SeverityWarn,
			Observation: "total error count has crossed the cluster threshold",
			Evidence: map[string]float64{
				"error_total": float64(status.ErrorCount),
			},
		}, true
	}

	for _, th := range snapshot.Threads {
		if th.ErrorsInLastWindow >= t.ErrorClusterThreadCount {
			return Signal{
				Name:        NameErrorCluster,
				Severity:    SeverityWarn,
				Observation: "a thread has clustered errors within its recent events",
				Evidence: map[string]float64{
					"thread_error_total": float64(th.ErrorsInLastWindow),
				},
			}, true
		}
	}
	return Signal{}, false
}

func evaluateFrequentPolicyChanges(snapshot projection.Snapshot, t Thresholds) (Signal, bool) {
	if snapshot.RecentPolicyWindows < t.PolicyChangeWindowCount {
		return Signal{}, false
	}
	return Signal{
		Name:        NameFrequentPolicyChanges,
		Severity:    SeverityInfo,
		Observation: "policy version has changed frequently in recent events",
		Evidence: map[string]float64{
			"recent_policy_windows": float64(snapshot.RecentPolicyWindows),
		},
	}, true
}

// Counts tallies signals by severity, for the status query surface's
// active_signals field.
type Counts struct {
	Info     int
	Warn     int
	Critical int
}

// CountBySeverity summarizes signals into the active_signals counts.
func CountBySeverity(signals []Signal) Counts {
	var c Counts
	for _, s := range signals {
		switch s.Severity {
		case SeverityInfo:
			c.Info++
		case SeverityWarn:
			c.Warn++
		case SeverityCritical:
			c.Critical++
		}
	}
	return c
}
