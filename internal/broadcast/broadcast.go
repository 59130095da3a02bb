// Package broadcast provides a write-once stop signal that any number of
// readers can observe.
//
// The Signaler side is held by a single owner. Observers can be handed out
// before or after the signal fires; a late observer sees the stopped state on
// its first check.
package broadcast

import (
	"context"
	"sync"
)

type signal struct {
	once sync.Once
	done chan struct{}
}

// Signaler is the write side of the stop signal.
type Signaler struct {
	s *signal
}

// Observers hands out read-only observer handles.
type Observers struct {
	s *signal
}

// Observer is a read-only view of the stop signal.
type Observer struct {
	done <-chan struct{}
}

// New creates a fresh, unfired signal.
func New() (*Signaler, *Observers) {
	s := &signal{done: make(chan struct{})}
	return &Signaler{s: s}, &Observers{s: s}
}

// Fire broadcasts the stop signal. Calling it more than once is a no-op.
func (s *Signaler) Fire() {
	s.s.once.Do(func() {
		close(s.s.done)
	})
}

// Fired reports whether Fire has been called.
func (s *Signaler) Fired() bool {
	select {
	case <-s.s.done:
		return true
	default:
		return false
	}
}

// Subscribe returns a new observer for the signal.
func (o *Observers) Subscribe() Observer {
	return Observer{done: o.s.done}
}

// Done returns a channel that is closed once the signal fires.
func (o Observer) Done() <-chan struct{} {
	return o.done
}

// Stopped reports whether the signal has fired.
func (o Observer) Stopped() bool {
	select {
	case <-o.done:
		return true
	default:
		return false
	}
}

// Context returns a copy of parent that is cancelled when the signal fires.
func (o Observer) Context(parent context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)
	go func() {
		select {
		case <-o.done:
			cancel()
		case <-ctx.Done():
		}
	}()
	return ctx, cancel
}
