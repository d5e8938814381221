// Package request tracks the lifecycle of repeated asynchronous calls so that
// only the most recently issued call may publish its outcome.
package request

import (
	"context"
	"sync"
)

// State is the lifecycle position of a slot
type State int

const (
	Idle State = iota
	Loading
	Success
	Failed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Loading:
		return "loading"
	case Success:
		return "success"
	case Failed:
		return "failed"
	}
	return "unknown"
}

// Result is the outcome of one call; Stale results were superseded and left the slot untouched
type Result[T any] struct {
	Value T
	Err   error
	Seq   uint64
	Stale bool
}

// Snapshot is a consistent copy of the slot state
type Snapshot[T any] struct {
	State   State
	Data    T
	Message string
	Seq     uint64
}

// Slot holds the state of the latest call of a kind
type Slot[T any] struct {
	mu       sync.Mutex
	seq      uint64
	state    State
	data     T
	message  string
	messageF func(error) string
	onChange func(Snapshot[T])

	// serializes callbacks; held while a callback runs
	notifyMu sync.Mutex
}

// NewSlot creates an idle slot; message maps errors to display text and defaults to err.Error
func NewSlot[T any](message func(error) string) *Slot[T] {
	if message == nil {
		message = func(err error) string { return err.Error() }
	}
	return &Slot[T]{messageF: message}
}

// OnChange registers a callback invoked after every published transition.
// Callbacks run one at a time in transition order and never see a snapshot
// older than the latest call. A callback must not call Do or Reset.
func (s *Slot[T]) OnChange(fn func(Snapshot[T])) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onChange = fn
}

// Do issues a new call; the slot enters Loading and clears prior data and message.
// If another Do is issued before fn returns, this call's result is marked Stale.
func (s *Slot[T]) Do(ctx context.Context, fn func(ctx context.Context) (T, error)) Result[T] {
	var zero T

	s.mu.Lock()
	s.seq++
	seq := s.seq
	s.state = Loading
	s.data = zero
	s.message = ""
	snap := s.snapshotLocked()
	s.mu.Unlock()
	s.publish(snap)

	v, err := fn(ctx)

	s.mu.Lock()
	if seq != s.seq {
		s.mu.Unlock()
		return Result[T]{Value: v, Err: err, Seq: seq, Stale: true}
	}
	if err != nil {
		s.state = Failed
		s.message = s.messageF(err)
	} else {
		s.state = Success
		s.data = v
	}
	snap = s.snapshotLocked()
	s.mu.Unlock()
	s.publish(snap)

	return Result[T]{Value: v, Err: err, Seq: seq}
}

// Reset returns the slot to Idle; in-flight calls become stale
func (s *Slot[T]) Reset() {
	var zero T

	s.mu.Lock()
	s.seq++
	s.state = Idle
	s.data = zero
	s.message = ""
	snap := s.snapshotLocked()
	s.mu.Unlock()
	s.publish(snap)
}

// Snapshot returns the current state
func (s *Slot[T]) Snapshot() Snapshot[T] {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Slot[T]) snapshotLocked() Snapshot[T] {
	return Snapshot[T]{State: s.state, Data: s.data, Message: s.message, Seq: s.seq}
}

// publish delivers snap unless a newer call or reset has happened since it was taken
func (s *Slot[T]) publish(snap Snapshot[T]) {
	s.notifyMu.Lock()
	defer s.notifyMu.Unlock()

	s.mu.Lock()
	cb, current := s.onChange, s.seq
	s.mu.Unlock()
	if cb == nil || snap.Seq != current {
		return
	}
	cb(snap)
}
