package diagnostics

import (
	"github.com/lukaspfisterch/dbl-observer/digest"
)

// Result is the output of Diagnose/DiagnoseWithReference: the per-event
// labels (indexed in parallel with the input trace) and the trace-level
// labels.
type Result struct {
	PerEvent   [][]Label
	TraceLevel []Label
}

// Diagnose evaluates the event-level rules that don't require a reference
// trace: duplicate event_id, non-monotonic event_id, ordering gaps, and
// canon_len/digest mismatches against a fresh recomputation of each
// event's payload.
func Diagnose(trace []WireEvent) Result {
	return diagnose(trace, nil)
}

// DiagnoseWithReference additionally evaluates the reference-trace rules:
// length, event_id-set, and order comparisons at the trace level, plus
// per-event digest comparison when both traces agree on event_id order.
func DiagnoseWithReference(trace, reference []WireEvent) Result {
	return diagnose(trace, reference)
}

func diagnose(trace, reference []WireEvent) Result {
	perEvent := make([][]Label, len(trace))
	seen := make(map[int64]bool, len(trace))

	var prevEventID int64
	hasPrev := false

	for i, we := range trace {
		var labels []Label

		if seen[we.EventID] {
			labels = append(labels, LabelDuplicateEventID)
		}
		seen[we.EventID] = true

		if hasPrev {
			if we.EventID < prevEventID {
				labels = append(labels, LabelNonMonotonicEventID)
			} else if we.EventID > prevEventID+1 {
				labels = append(labels, LabelOrderingGap)
			}
		}
		prevEventID = we.EventID
		hasPrev = true

		if mismatch := recomputeMismatch(we); mismatch != nil {
			labels = append(labels, mismatch...)
		}

		perEvent[i] = labels
	}

	var traceLevel []Label
	if reference != nil {
		traceLevel = diagnoseReference(trace, reference, perEvent)
	}

	return Result{PerEvent: perEvent, TraceLevel: traceLevel}
}

// recomputeMismatch recomputes canon_len and digest from we.Payload and
// compares them against the values carried on the wire event.
func recomputeMismatch(we WireEvent) []Label {
	recomputedDigest, recomputedLen, err := digest.OfValue(we.Payload)
	if err != nil {
		// A payload that fails canonicalization here was already rejected
		// at ingest/encode time; Diagnose operates on wire events that
		// were already successfully encoded once, so this path is
		// unreachable in practice. Treat it conservatively as a mismatch
		// on both fronts rather than panicking.
		return []Label{LabelCanonLenMismatch, LabelDigestMismatch}
	}

	var out []Label
	if recomputedLen != we.CanonLen {
		out = append(out, LabelCanonLenMismatch)
	}
	if recomputedDigest != we.Digest {
		out = append(out, LabelDigestMismatch)
	}
	return out
}

func diagnoseReference(trace, reference []WireEvent, perEvent [][]Label) []Label {
	var traceLevel []Label

	if len(trace) != len(reference) {
		traceLevel = append(traceLevel, LabelReferenceLengthMismatch)
	}

	traceIDs := eventIDSet(trace)
	refIDs := eventIDSet(reference)
	setsMatch := sameSet(traceIDs, refIDs)
	if !setsMatch {
		traceLevel = append(traceLevel, LabelReferenceEventIDSetMismatch)
	}

	orderMatches := setsMatch && sameOrder(trace, reference)
	if setsMatch && !orderMatches {
		traceLevel = append(traceLevel, LabelReferenceOrderMismatch)
	}

	// Per-event digest comparison only applies when both traces agree on
	// event_id order and the digests differ at the same index.
	if orderMatches {
		for i := range trace {
			if trace[i].Digest != reference[i].Digest {
				perEvent[i] = append(perEvent[i], LabelReferenceDigestMismatch)
			}
		}
	}

	return traceLevel
}

func eventIDSet(trace []WireEvent) map[int64]struct{} {
	set := make(map[int64]struct{}, len(trace))
	for _, we := range trace {
		set[we.EventID] = struct{}{}
	}
	return set
}

func sameSet(a, b map[int64]struct{}) bool {
	if len(a) != len(b) {
		return false
	}
	for k := range a {
		if _, ok := b[k]; !ok {
			return false
		}
	}
	return true
}

func sameOrder(trace, reference []WireEvent) bool {
	if len(trace) != len(reference) {
		return false
	}
	for i := range trace {
		if trace[i].EventID != reference[i].EventID {
			return false
		}
	}
	return true
}
