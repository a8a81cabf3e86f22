// internal/status/store.go
package status

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/tamzrod/sunhome-poller/internal/registers"
)

// EventKind tells subscribers what changed.
type EventKind uint8

const (
	EventPublished EventKind = iota + 1
	EventFailed
)

func (k EventKind) String() string {
	switch k {
	case EventPublished:
		return "snapshot_published"
	case EventFailed:
		return "poll_failed"
	default:
		return "unknown"
	}
}

// Event is one store change, delivered in publish order.
type Event struct {
	Kind EventKind
	View View
}

// DefaultQueueLen is used when Subscribe is given a non-positive length.
const DefaultQueueLen = 16

// Store holds the latest snapshot and failure for one device.
// The poller is the only writer; any goroutine may read or subscribe.
type Store struct {
	mu      sync.RWMutex
	snap    *Snapshot
	failure *PollFailure
	gen     uint64
	subs    map[*Subscription]struct{}
	closed  bool
}

// NewStore returns an empty store (HealthUnknown).
func NewStore() *Store {
	return &Store{subs: make(map[*Subscription]struct{})}
}

// Publish replaces the snapshot with values, bumps the generation and clears any failure.
// The store takes ownership of values.
func (s *Store) Publish(values registers.Values, at time.Time) Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.gen++
	snap := &Snapshot{
		Values:     values,
		Timestamp:  at,
		Generation: s.gen,
	}
	s.snap = snap
	s.failure = nil

	s.notifyLocked(EventPublished)

	return *snap
}

// RecordFailure sets the live failure. The latest failure overwrites the previous one;
// the published snapshot is left untouched.
func (s *Store) RecordFailure(err error, at time.Time) PollFailure {
	s.mu.Lock()
	defer s.mu.Unlock()

	f := &PollFailure{
		Code:        ErrorCode(err),
		At:          at,
		Since:       at,
		Consecutive: 1,
	}
	if err != nil {
		f.Reason = err.Error()
	}
	if prev := s.failure; prev != nil {
		f.Since = prev.Since
		f.Consecutive = prev.Consecutive + 1
	}
	s.failure = f

	s.notifyLocked(EventFailed)

	return *f
}

// Get returns the current view without blocking on I/O.
// Values are copied; consumers may keep the result.
func (s *Store) Get() View {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.viewLocked()
}

// Generation is the number of snapshots published so far.
func (s *Store) Generation() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.gen
}

// Subscribe registers for events. Each subscriber has its own queue of queueLen;
// when it is full the event is dropped for that subscriber only.
func (s *Store) Subscribe(queueLen int) *Subscription {
	if queueLen <= 0 {
		queueLen = DefaultQueueLen
	}

	sub := &Subscription{
		store: s,
		ch:    make(chan Event, queueLen),
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		close(sub.ch)
		sub.done = true
		return sub
	}
	s.subs[sub] = struct{}{}
	return sub
}

// Close ends every subscription. Reads keep working.
func (s *Store) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	s.closed = true
	for sub := range s.subs {
		sub.closeLocked()
	}
	s.subs = nil
}

func (s *Store) unsubscribe(sub *Subscription) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.subs[sub]; !ok {
		return
	}
	delete(s.subs, sub)
	sub.closeLocked()
}

func (s *Store) notifyLocked(kind EventKind) {
	if len(s.subs) == 0 {
		return
	}

	ev := Event{Kind: kind, View: s.viewLocked()}
	for sub := range s.subs {
		select {
		case sub.ch <- ev:
		default:
			sub.dropped.Add(1)
		}
	}
}

func (s *Store) viewLocked() View {
	v := View{Health: health(s.snap, s.failure)}
	if s.snap != nil {
		cp := *s.snap
		cp.Values = s.snap.Values.Clone()
		v.Snapshot = &cp
	}
	if s.failure != nil {
		f := *s.failure
		v.Failure = &f
	}
	return v
}

// ---- subscription ----

// Subscription is an ordered event feed from a Store.
type Subscription struct {
	store   *Store
	ch      chan Event
	done    bool // guarded by store.mu
	dropped atomic.Uint64
}

// C delivers events in publish order. Closed on Unsubscribe or Store.Close.
func (s *Subscription) C() <-chan Event { return s.ch }

// Unsubscribe stops delivery and closes C. Safe to call repeatedly.
func (s *Subscription) Unsubscribe() { s.store.unsubscribe(s) }

// Dropped counts events lost because the queue was full.
func (s *Subscription) Dropped() uint64 { return s.dropped.Load() }

func (s *Subscription) closeLocked() {
	if s.done {
		return
	}
	s.done = true
	close(s.ch)
}
