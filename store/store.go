// Package store implements the append-only, thread-safe EventStore: the
// single place observed events live for the lifetime of the process. It
// never reorders, deduplicates, or mutates what it holds; it only accepts
// strictly-increasing event_id appends and publishes consistent snapshots
// to readers.
package store

import (
	"sync"

	"github.com/lukaspfisterch/dbl-observer/event"
	"github.com/lukaspfisterch/dbl-observer/obserr"
	"github.com/lukaspfisterch/dbl-observer/obslog"
)

// Store is the append-only EventStore. The zero value is not usable; use
// New. A Store must not be copied after first use.
type Store struct {
	mu sync.RWMutex

	events []event.Observed // append-only; index i is slot i

	byThread map[string][]int
	byTurn   map[string][]int
	byActor  map[string][]int

	lastEventID int64
	hasEvents   bool
}

// New returns an empty Store.
func New() *Store {
	return &Store{
		byThread: make(map[string][]int),
		byTurn:   make(map[string][]int),
		byActor:  make(map[string][]int),
	}
}

// Append validates that e.EventID is strictly greater than the last stored
// event_id (or that the store is empty), then appends e and updates the
// secondary indexes atomically with respect to readers. It returns the
// 0-based slot index e was stored at.
//
// On a monotonicity violation it returns obserr.NonMonotonicIngest and
// leaves the store unchanged.
func (s *Store) Append(e event.Observed) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.hasEvents && e.EventID <= s.lastEventID {
		obslog.Warn("store", "rejected non-monotonic append", map[string]any{
			"event_id":      e.EventID,
			"last_event_id": s.lastEventID,
		})
		return 0, obserr.NonMonotonicIngest(
			"event_id must be greater than the last stored event_id", nil)
	}

	idx := len(s.events)
	s.events = append(s.events, e)
	s.lastEventID = e.EventID
	s.hasEvents = true

	if e.HasThread() {
		s.byThread[e.ThreadID] = append(s.byThread[e.ThreadID], idx)
	}
	if e.HasTurn() {
		s.byTurn[e.TurnID] = append(s.byTurn[e.TurnID], idx)
	}
	if e.HasActor() {
		s.byActor[e.Actor] = append(s.byActor[e.Actor], idx)
	}

	return idx, nil
}

// Size returns the number of events currently stored.
func (s *Store) Size() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.events)
}

// LastEventID returns the event_id of the most recently appended event, and
// whether the store holds any events at all.
func (s *Store) LastEventID() (id int64, ok bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastEventID, s.hasEvents
}

// All returns a snapshot slice of every stored event in append order. The
// returned slice is a copy and safe to range over without holding any lock.
func (s *Store) All() []event.Observed {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked(s.events)
}

// ByThread returns a snapshot of the events observed for thread_id, in
// append order.
func (s *Store) ByThread(threadID string) []event.Observed {
	return s.byIndexLocked(s.byThread, threadID)
}

// ByTurn returns a snapshot of the events observed for turn_id, in append
// order.
func (s *Store) ByTurn(turnID string) []event.Observed {
	return s.byIndexLocked(s.byTurn, turnID)
}

// ByActor returns a snapshot of the events observed for actor, in append
// order.
func (s *Store) ByActor(actor string) []event.Observed {
	return s.byIndexLocked(s.byActor, actor)
}

func (s *Store) byIndexLocked(index map[string][]int, key string) []event.Observed {
	s.mu.RLock()
	defer s.mu.RUnlock()
	slots := index[key]
	out := make([]event.Observed, len(slots))
	for i, slot := range slots {
		out[i] = s.events[slot]
	}
	return out
}

func (s *Store) snapshotLocked(events []event.Observed) []event.Observed {
	out := make([]event.Observed, len(events))
	copy(out, events)
	return out
}

// Tail returns the stored events with event_id > after, capped at limit (a
// limit <= 0 means unlimited), plus a next_cursor for continued polling
// (the event_id of the last event returned, or after if nothing matched).
type Tail struct {
	Events     []event.Observed
	NextCursor int64
}

// Tail implements the tail(after_event_id?, limit?) query surface.
func (s *Store) Tail(after int64, limit int) Tail {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cursor := after
	var out []event.Observed
	for _, e := range s.events {
		if e.EventID <= after {
			continue
		}
		out = append(out, e)
		cursor = e.EventID
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return Tail{Events: out, NextCursor: cursor}
}
