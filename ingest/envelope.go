// Package ingest implements the Ingest Controller: the boundary that
// accepts a gateway snapshot envelope, normalizes and validates each
// gateway event, and drives EventStore + ProjectionIndex in strict array
// order with partial-batch acceptance.
package ingest

import (
	"bytes"
	"encoding/json"

	"github.com/lukaspfisterch/dbl-observer/canon"
	"github.com/lukaspfisterch/dbl-observer/event"
	"github.com/lukaspfisterch/dbl-observer/obserr"
)

// Exit codes for a CLI boundary to reuse verbatim, rather than re-deriving
// the taxonomy-to-exit-code mapping itself.
const (
	ExitOK          = 0
	ExitInputParse  = 1
	ExitCanonDigest = 2
	ExitIOError     = 3
)

// Envelope is the gateway snapshot envelope: { events, offset?, limit? }.
// Offset/Limit are accepted for forward
// compatibility with the gateway's own pagination bookkeeping; the
// Controller does not interpret them itself (the gateway polling client
// that calls Accept is responsible for any paging behavior).
type Envelope struct {
	Events []GatewayEvent
	Offset *int64
	Limit  *int64
}

// GatewayEvent is one raw item from the envelope's events array: an index
// (becomes event_id), source/artifact labels, and a payload object whose
// recognized fields are lifted onto the resulting ObservedEvent.
type GatewayEvent struct {
	Index    int64
	Source   string
	Artifact string
	Payload  map[string]any
}

// rawEnvelope/rawGatewayEvent mirror the wire shapes with
// DisallowUnknownFields decoding, which is how unknown top-level keys on
// either the envelope or a single gateway event get rejected.
type rawEnvelope struct {
	Events []json.RawMessage `json:"events"`
	Offset *int64            `json:"offset"`
	Limit  *int64            `json:"limit"`
}

type rawGatewayEvent struct {
	Index    json.Number    `json:"index"`
	Source   string         `json:"source"`
	Artifact string         `json:"artifact"`
	Payload  map[string]any `json:"payload"`
}

// ParseEnvelope decodes raw JSON bytes into an Envelope, rejecting unknown
// top-level keys on both the envelope and each gateway event.
func ParseEnvelope(raw []byte) (Envelope, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	dec.UseNumber()

	var re rawEnvelope
	if err := dec.Decode(&re); err != nil {
		return Envelope{}, obserr.InvalidInput("malformed gateway snapshot envelope", err)
	}

	events := make([]GatewayEvent, len(re.Events))
	for i, item := range re.Events {
		ge, err := parseGatewayEvent(item)
		if err != nil {
			return Envelope{}, err
		}
		events[i] = ge
	}

	return Envelope{Events: events, Offset: re.Offset, Limit: re.Limit}, nil
}

func parseGatewayEvent(raw json.RawMessage) (GatewayEvent, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	dec.UseNumber()

	var rge rawGatewayEvent
	if err := dec.Decode(&rge); err != nil {
		return GatewayEvent{}, obserr.InvalidInput("malformed gateway event", err)
	}

	if rge.Index == "" {
		return GatewayEvent{}, obserr.InvalidInput("gateway event missing index", nil)
	}
	index, err := rge.Index.Int64()
	if err != nil {
		return GatewayEvent{}, obserr.InvalidInput("gateway event index is not an integer", err)
	}

	return GatewayEvent{
		Index:    index,
		Source:   rge.Source,
		Artifact: rge.Artifact,
		Payload:  rge.Payload,
	}, nil
}

// recognizedPayloadKeys are the payload fields lifted onto ObservedEvent
// directly. Any other key in payload is passed through verbatim into
// ObservedEvent.Payload.
var recognizedPayloadKeys = map[string]bool{
	"thread_id":       true,
	"turn_id":         true,
	"parent_turn_id":  true,
	"actor":           true,
	"kind":            true,
	"decision_result": true,
	"policy_version":  true,
	"latency_ms":      true,
	"observed_at":     true,
}

// normalize converts a GatewayEvent into an ObservedEvent: index becomes
// event_id, recognized payload fields become struct fields, and whatever
// remains of payload becomes the canonical Payload value.
func normalize(ge GatewayEvent) (event.Observed, error) {
	if ge.Source == "" || ge.Artifact == "" {
		return event.Observed{}, obserr.InvalidInput("gateway event missing source or artifact", nil)
	}

	obs := event.Observed{
		EventID:  ge.Index,
		Source:   ge.Source,
		Artifact: ge.Artifact,
		Kind:     event.KindOther,
	}

	remaining := make(map[string]any, len(ge.Payload))
	for k, v := range ge.Payload {
		if !recognizedPayloadKeys[k] {
			remaining[k] = v
			continue
		}
		switch k {
		case "thread_id":
			s, err := asString(k, v)
			if err != nil {
				return event.Observed{}, err
			}
			obs.ThreadID = s
		case "turn_id":
			s, err := asString(k, v)
			if err != nil {
				return event.Observed{}, err
			}
			obs.TurnID = s
		case "parent_turn_id":
			s, err := asString(k, v)
			if err != nil {
				return event.Observed{}, err
			}
			obs.ParentTurnID = s
		case "actor":
			s, err := asString(k, v)
			if err != nil {
				return event.Observed{}, err
			}
			obs.Actor = s
		case "kind":
			s, err := asString(k, v)
			if err != nil {
				return event.Observed{}, err
			}
			kind := event.Kind(s)
			if !kind.IsValid() {
				return event.Observed{}, obserr.InvalidInput("payload.kind is not a recognized event kind", nil)
			}
			obs.Kind = kind
		case "decision_result":
			if v == nil {
				obs.DecisionResult = event.DecisionNone
				continue
			}
			s, err := asString(k, v)
			if err != nil {
				return event.Observed{}, err
			}
			dr := event.DecisionResult(s)
			if !dr.IsValid() {
				return event.Observed{}, obserr.InvalidInput("payload.decision_result is not ALLOW/DENY/null", nil)
			}
			obs.DecisionResult = dr
		case "policy_version":
			s, err := asString(k, v)
			if err != nil {
				return event.Observed{}, err
			}
			obs.PolicyVersion = s
		case "latency_ms":
			n, err := asInt(k, v)
			if err != nil {
				return event.Observed{}, err
			}
			if n < 0 {
				return event.Observed{}, obserr.InvalidInput("payload.latency_ms must be non-negative", nil)
			}
			obs.LatencyMs = n
			obs.HasLatency = true
		case "observed_at":
			n, err := asInt(k, v)
			if err != nil {
				return event.Observed{}, err
			}
			obs.ObservedAt = n
		}
	}

	canonPayload, err := canon.Marshal(remaining)
	if err != nil {
		return event.Observed{}, err
	}
	obs.Payload = canonPayload

	return obs, nil
}

func asString(field string, v any) (string, error) {
	s, ok := v.(string)
	if !ok {
		return "", obserr.InvalidInput("payload."+field+" must be a string", nil)
	}
	return s, nil
}

func asInt(field string, v any) (int64, error) {
	switch n := v.(type) {
	case json.Number:
		i, err := n.Int64()
		if err != nil {
			return 0, obserr.InvalidInput("payload."+field+" must be an integer", err)
		}
		return i, nil
	case float64:
		return int64(n), nil
	default:
		return 0, obserr.InvalidInput("payload."+field+" must be an integer", nil)
	}
}
