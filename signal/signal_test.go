package signal

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/lukaspfisterch/dbl-observer/event"
	"github.com/lukaspfisterch/dbl-observer/projection"
)

func snapshotFromEvents(events []event.Observed) projection.Snapshot {
	idx := projection.New()
	for _, e := range events {
		idx.OnEvent(e)
	}
	return idx.Snapshot()
}

func TestEvaluate_EmptySnapshotProducesNoSignals(t *testing.T) {
	idx := projection.New()
	signals := Evaluate(idx.Snapshot(), DefaultThresholds())
	require.Empty(t, signals)
}

// TestEvaluate_MultipleSignalsFireTogetherInStableOrder covers 100 decision
// events, 60 DENY, p95 latency 1200ms: both deny_rate_critical and
// latency_p95_elevated fire, in a stable order.
func TestEvaluate_MultipleSignalsFireTogetherInStableOrder(t *testing.T) {
	var events []event.Observed
	for i := int64(1); i <= 100; i++ {
		result := event.DecisionAllow
		if i <= 60 {
			result = event.DecisionDeny
		}
		// 94 samples at 100ms, six at 1200ms places p95 at 1200ms over 100
		// decision samples: index = ceil(95*100/100)-1 = 94, the 95th
		// smallest value.
		latency := int64(100)
		if i > 94 {
			latency = 1200
		}
		events = append(events, event.Observed{
			EventID:        i,
			Kind:           event.KindDecision,
			DecisionResult: result,
			LatencyMs:      latency,
			HasLatency:     true,
		})
	}

	snapshot := snapshotFromEvents(events)
	require.Equal(t, 0.6, snapshot.Status.DenyRate)

	signals := Evaluate(snapshot, DefaultThresholds())
	require.Len(t, signals, 2)
	require.Equal(t, NameLatencyP95Elevated, signals[0].Name)
	require.Equal(t, NameDenyRateCritical, signals[1].Name)
}

func TestEvaluate_DeterministicAcrossRepeatedCalls(t *testing.T) {
	events := []event.Observed{
		{EventID: 1, Kind: event.KindDecision, DecisionResult: event.DecisionDeny},
	}
	snapshot := snapshotFromEvents(events)
	thresholds := DefaultThresholds()

	first := Evaluate(snapshot, thresholds)
	second := Evaluate(snapshot, thresholds)
	require.Equal(t, first, second)
}

func TestEvaluate_LatencyBelowMinCountDoesNotFire(t *testing.T) {
	var events []event.Observed
	for i := int64(1); i <= 10; i++ {
		events = append(events, event.Observed{EventID: i, Kind: event.KindDecision, LatencyMs: 5000, HasLatency: true})
	}
	snapshot := snapshotFromEvents(events)
	signals := Evaluate(snapshot, DefaultThresholds())
	require.Empty(t, signals)
}

func TestEvaluate_DenyRateBelowMinDecisionsDoesNotFire(t *testing.T) {
	var events []event.Observed
	for i := int64(1); i <= 5; i++ {
		events = append(events, event.Observed{EventID: i, Kind: event.KindDecision, DecisionResult: event.DecisionDeny})
	}
	snapshot := snapshotFromEvents(events)
	signals := Evaluate(snapshot, DefaultThresholds())
	require.Empty(t, signals)
}

func TestEvaluate_ErrorClusterFromThreadWindow(t *testing.T) {
	var events []event.Observed
	for i := int64(1); i <= 3; i++ {
		events = append(events, event.Observed{EventID: i, ThreadID: "T1", Kind: event.KindError})
	}
	snapshot := snapshotFromEvents(events)
	signals := Evaluate(snapshot, DefaultThresholds())
	require.Len(t, signals, 1)
	require.Equal(t, NameErrorCluster, signals[0].Name)
}

func TestEvaluate_ErrorClusterFromTraceTotal(t *testing.T) {
	var events []event.Observed
	for i := int64(1); i <= 10; i++ {
		events = append(events, event.Observed{EventID: i, Kind: event.KindError})
	}
	snapshot := snapshotFromEvents(events)
	signals := Evaluate(snapshot, DefaultThresholds())
	require.Len(t, signals, 1)
	require.Equal(t, NameErrorCluster, signals[0].Name)
}

func TestEvaluate_FrequentPolicyChanges(t *testing.T) {
	var events []event.Observed
	for i, v := range []string{"a", "b", "c"} {
		events = append(events, event.Observed{EventID: int64(i + 1), Kind: event.KindPolicyChange, PolicyVersion: v})
	}
	snapshot := snapshotFromEvents(events)
	signals := Evaluate(snapshot, DefaultThresholds())
	require.Len(t, signals, 1)
	require.Equal(t, NameFrequentPolicyChanges, signals[0].Name)
	require.Equal(t, SeverityInfo, signals[0].Severity)
}

func TestCountBySeverity(t *testing.T) {
	signals := []Signal{
		{Severity: SeverityInfo},
		{Severity: SeverityWarn},
		{Severity: SeverityWarn},
		{Severity: SeverityCritical},
	}
	counts := CountBySeverity(signals)
	require.Equal(t, Counts{Info: 1, Warn: 2, Critical: 1}, counts)
}
