package event

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestKind_IsValid(t *testing.T) {
	cases := []struct {
		kind Kind
		want bool
	}{
		{KindDecision, true},
		{KindExecution, true},
		{KindError, true},
		{KindPolicyChange, true},
		{KindOther, true},
		{Kind("bogus"), false},
		{Kind(""), false},
	}
	for _, c := range cases {
		require.Equal(t, c.want, c.kind.IsValid(), "kind %q", c.kind)
	}
}

func TestDecisionResult_IsValid(t *testing.T) {
	cases := []struct {
		result DecisionResult
		want   bool
	}{
		{DecisionAllow, true},
		{DecisionDeny, true},
		{DecisionNone, true},
		{DecisionResult("MAYBE"), false},
	}
	for _, c := range cases {
		require.Equal(t, c.want, c.result.IsValid(), "result %q", c.result)
	}
}

func TestObserved_HasPredicates(t *testing.T) {
	o := Observed{}
	require.False(t, o.HasThread())
	require.False(t, o.HasTurn())
	require.False(t, o.HasActor())
	require.False(t, o.HasParentTurn())

	o.ThreadID = "T1"
	o.TurnID = "U1"
	o.Actor = "svc"
	o.ParentTurnID = "U0"
	require.True(t, o.HasThread())
	require.True(t, o.HasTurn())
	require.True(t, o.HasActor())
	require.True(t, o.HasParentTurn())
}
