package settle

import (
	"context"
	"sync"
	"time"
)

// Outcome reports how Await returned.
type Outcome uint8

const (
	// Settled means the future was resolved before the deadline.
	Settled Outcome = iota
	// TimedOut means the deadline passed first; the future is abandoned.
	TimedOut
	// Cancelled means ctx ended first; the future is abandoned.
	Cancelled
)

func (o Outcome) String() string {
	switch o {
	case Settled:
		return "settled"
	case TimedOut:
		return "timed_out"
	case Cancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

type state uint8

const (
	statePending state = iota
	stateResolved
	stateAbandoned
	stateLate
)

// Future is a single-assignment value. Exactly one of Resolve and the Await
// deadline settles it. A Resolve arriving after the deadline is handed to the
// late handler, at most once, and never returned from Await.
type Future[T any] struct {
	mu     sync.Mutex
	state  state
	value  T
	done   chan struct{}
	onLate func(T)
}

// New returns a pending Future.
func New[T any]() *Future[T] {
	return &Future[T]{done: make(chan struct{})}
}

// OnLate registers fn to receive a value resolved after the future was
// abandoned. It must be called before Await.
func (f *Future[T]) OnLate(fn func(T)) {
	f.mu.Lock()
	f.onLate = fn
	f.mu.Unlock()
}

// Resolve settles the future with v. It reports whether v was the first
// settler; duplicate and late resolutions return false.
func (f *Future[T]) Resolve(v T) bool {
	f.mu.Lock()
	switch f.state {
	case statePending:
		f.value = v
		f.state = stateResolved
		close(f.done)
		f.mu.Unlock()
		return true
	case stateAbandoned:
		f.state = stateLate
		late := f.onLate
		f.mu.Unlock()
		if late != nil {
			late(v)
		}
		return false
	default:
		f.mu.Unlock()
		return false
	}
}

// Await blocks until the future is resolved, timeout elapses, or ctx ends,
// whichever happens first. timeout <= 0 waits without a deadline.
func (f *Future[T]) Await(ctx context.Context, timeout time.Duration) (T, Outcome) {
	var deadline <-chan time.Time
	if timeout > 0 {
		timer := time.NewTimer(timeout)
		defer timer.Stop()
		deadline = timer.C
	}

	select {
	case <-f.done:
		return f.value, Settled
	case <-deadline:
		return f.abandon(TimedOut)
	case <-ctx.Done():
		return f.abandon(Cancelled)
	}
}

func (f *Future[T]) abandon(why Outcome) (T, Outcome) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.state == stateResolved {
		// resolved while the deadline fired; the value wins
		return f.value, Settled
	}
	f.state = stateAbandoned
	var zero T
	return zero, why
}
