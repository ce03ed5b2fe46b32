package ingest

import (
	"context"
	"sync"

	"github.com/lukaspfisterch/dbl-observer/obserr"
	"github.com/lukaspfisterch/dbl-observer/obslog"
	"github.com/lukaspfisterch/dbl-observer/projection"
	"github.com/lukaspfisterch/dbl-observer/store"
)

// BatchResult reports how much of an Envelope's events were accepted.
// Accepted is the count of events successfully appended and projected
// before processing stopped. When Error is non-nil, RejectedAt names the
// 0-based index of the item that failed and Reason carries its taxonomy
// code.
type BatchResult struct {
	Accepted   int
	RejectedAt int
	Reason     obserr.Code
	Error      error
}

// Controller is the Ingest Controller: it wraps an EventStore and
// ProjectionIndex and is the only caller of ProjectionIndex.OnEvent, always
// from the same critical section that performs the matching EventStore
// append.
type Controller struct {
	mu         sync.Mutex // serializes Accept calls
	store      *store.Store
	projection *projection.Index
}

// New returns a Controller driving the given Store and Index.
func New(s *store.Store, idx *projection.Index) *Controller {
	return &Controller{store: s, projection: idx}
}

// Accept processes envelope.Events item-by-item, in array order: normalize,
// validate, append to EventStore, then fold into ProjectionIndex. On the
// first invalid item it halts and reports where it got to; all prior
// successful appends remain, since ingest is a sequence of individually
// committed steps, not a transaction.
//
// Processing runs synchronously on the calling goroutine, with no
// concurrent fan-out across items: in-order, single-writer appends rule out
// running multiple items at once, so Accept reports how far it got on the
// first failure rather than batching work concurrently.
func (c *Controller) Accept(ctx context.Context, envelope Envelope) (BatchResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for i, ge := range envelope.Events {
		if err := ctx.Err(); err != nil {
			return BatchResult{Accepted: i, RejectedAt: i, Error: err}, err
		}

		obs, err := normalize(ge)
		if err != nil {
			return c.reject(i, err)
		}

		lastID, hasLast := c.store.LastEventID()
		if hasLast && obs.EventID <= lastID {
			err := obserr.NonMonotonicIngest("event_id must be greater than the last stored event_id", nil)
			return c.reject(i, err)
		}

		if _, err := c.store.Append(obs); err != nil {
			return c.reject(i, err)
		}
		c.projection.OnEvent(obs)

		if obslog.IsEnabled(obslog.LevelDebug) {
			obslog.Debug("ingest", "accepted event", map[string]any{
				"event_id": obs.EventID,
				"kind":     string(obs.Kind),
			})
		}
	}

	if obslog.IsEnabled(obslog.LevelInfo) {
		obslog.Info("ingest", "batch accepted", map[string]any{"accepted": len(envelope.Events)})
	}
	return BatchResult{Accepted: len(envelope.Events)}, nil
}

func (c *Controller) reject(index int, err error) (BatchResult, error) {
	var code obserr.Code
	if oe, ok := err.(*obserr.Error); ok {
		code = oe.Code()
	}
	obslog.Error("ingest", "batch rejected", err, map[string]any{
		"accepted":    index,
		"rejected_at": index,
		"reason":      string(code),
	})
	return BatchResult{
		Accepted:   index,
		RejectedAt: index,
		Reason:     code,
		Error:      err,
	}, err
}
