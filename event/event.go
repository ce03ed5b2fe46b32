// Package event defines the observed-event record shared by the store,
// projection, diagnostics, and ingest packages. Nothing in this package
// decides or validates upstream semantics; it only names the shape of what
// was observed.
package event

import "github.com/lukaspfisterch/dbl-observer/canon"

// Kind is the closed set of event kinds the upstream gateway may emit.
type Kind string

const (
	KindDecision     Kind = "decision"
	KindExecution    Kind = "execution"
	KindError        Kind = "error"
	KindPolicyChange Kind = "policy_change"
	KindOther        Kind = "other"
)

// IsValid reports whether k is one of the closed set of recognized kinds.
func (k Kind) IsValid() bool {
	switch k {
	case KindDecision, KindExecution, KindError, KindPolicyChange, KindOther:
		return true
	}
	return false
}

// DecisionResult is the outcome of a decision event.
type DecisionResult string

const (
	DecisionAllow DecisionResult = "ALLOW"
	DecisionDeny  DecisionResult = "DENY"
	// DecisionNone represents the absence of a decision result (JSON null),
	// distinct from the empty DecisionResult zero value only in intent: both
	// compare equal, DecisionNone exists for readability.
	DecisionNone DecisionResult = ""
)

// IsValid reports whether d is ALLOW, DENY, or the null/empty value.
func (d DecisionResult) IsValid() bool {
	switch d {
	case DecisionAllow, DecisionDeny, DecisionNone:
		return true
	}
	return false
}

// Observed is a single record describing something the upstream gateway
// reported. It is never authoritative: the store and projection only
// reflect it, they never re-derive or mutate it.
type Observed struct {
	EventID        int64
	Source         string
	Artifact       string
	ThreadID       string // optional, empty when absent
	TurnID         string // optional, empty when absent
	ParentTurnID   string // optional, empty when absent
	Actor          string // optional, empty when absent
	Kind           Kind
	DecisionResult DecisionResult // meaningful only when Kind == KindDecision
	PolicyVersion  string         // set only on KindPolicyChange
	LatencyMs      int64          // meaningful only when HasLatency is true
	HasLatency     bool
	ObservedAt     int64 // millisecond timestamp
	Payload        canon.Value
}

// HasThread reports whether ThreadID is present.
func (o Observed) HasThread() bool { return o.ThreadID != "" }

// HasTurn reports whether TurnID is present.
func (o Observed) HasTurn() bool { return o.TurnID != "" }

// HasActor reports whether Actor is present.
func (o Observed) HasActor() bool { return o.Actor != "" }

// HasParentTurn reports whether ParentTurnID is present.
func (o Observed) HasParentTurn() bool { return o.ParentTurnID != "" }
