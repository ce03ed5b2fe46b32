// Package diagnostics implements the Diagnostics Engine: trace-wide and
// reference-trace anomaly labeling over wire events, plus the strict v1
// wire trace codec. It never streams per-event; Diagnose always operates
// over an entire materialized trace.
package diagnostics

// Label is a member of the frozen v1 diagnostic label vocabulary. Emitting
// anything outside this set is a bug; Diagnose never
// constructs a Label value other than through these constants.
type Label string

const (
	// Event-level labels, attached to a single WireEvent's Diagnostics list.
	LabelDuplicateEventID        Label = "duplicate_event_id_observed"
	LabelNonMonotonicEventID     Label = "non_monotonic_event_id_observed"
	LabelOrderingGap             Label = "ordering_gap_observed"
	LabelCanonLenMismatch        Label = "canon_len_mismatch_observed"
	LabelDigestMismatch          Label = "digest_mismatch_observed"
	LabelReferenceDigestMismatch Label = "reference_digest_mismatch_observed"

	// Trace-level labels, returned separately from per-event diagnostics.
	LabelReferenceLengthMismatch     Label = "reference_length_mismatch_observed"
	LabelReferenceEventIDSetMismatch Label = "reference_event_id_set_mismatch_observed"
	LabelReferenceOrderMismatch      Label = "reference_order_mismatch_observed"
)
