package poll

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync/atomic"

	"github.com/jonboulle/clockwork"
	"github.com/sourcegraph/conc/panics"

	"marketviewer/internal/broadcast"
)

// Loop drives a single Job until the stop signal fires.
type Loop struct {
	job    Job
	clock  clockwork.Clock
	out    io.Writer
	logger *slog.Logger

	state  atomic.Int32
	ticks  atomic.Int64
	errors atomic.Int64
}

// Option configures a Loop.
type Option func(*Loop)

// WithClock sets the clock used for the interval timer.
func WithClock(c clockwork.Clock) Option {
	return func(l *Loop) {
		l.clock = c
	}
}

// WithOutput sets the writer rendered blocks and inline errors go to.
func WithOutput(w io.Writer) Option {
	return func(l *Loop) {
		l.out = w
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Loop) {
		l.logger = logger
	}
}

// NewLoop creates a Loop for job.
func NewLoop(job Job, opts ...Option) *Loop {
	l := &Loop{
		job:    job,
		clock:  clockwork.NewRealClock(),
		out:    io.Discard,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Name returns the job name.
func (l *Loop) Name() string {
	return l.job.Name()
}

// State returns the current lifecycle state.
func (l *Loop) State() State {
	return State(l.state.Load())
}

// Ticks returns the number of completed ticks, successful or not.
func (l *Loop) Ticks() int64 {
	return l.ticks.Load()
}

// Errors returns the number of per-tick fetch errors reported so far.
func (l *Loop) Errors() int64 {
	return l.errors.Load()
}

// Run blocks until stop fires (or ctx is done) and returns the loop outcome.
// A fetch that is in flight when stop fires has its context cancelled.
func (l *Loop) Run(ctx context.Context, stop broadcast.Observer) Outcome {
	l.state.Store(int32(Running))

	fetchCtx, cancel := stop.Context(ctx)
	defer cancel()

	for {
		timer := l.clock.NewTimer(l.job.Interval())
		select {
		case <-stop.Done():
			timer.Stop()
			return l.finish(StoppedOutcome(l.Name()))
		case <-ctx.Done():
			timer.Stop()
			return l.finish(StoppedOutcome(l.Name()))
		case <-timer.Chan():
		}

		// Stop has precedence over a timer that fired at the same time.
		if stop.Stopped() {
			return l.finish(StoppedOutcome(l.Name()))
		}

		if err := l.tick(fetchCtx, stop); err != nil {
			return l.finish(FailedOutcome(l.Name(), err))
		}
	}
}

// tick runs one fetch-render cycle. It returns an error only when the tick
// itself panicked; fetch errors are reported inline.
func (l *Loop) tick(ctx context.Context, stop broadcast.Observer) error {
	var buf bytes.Buffer
	var fetchErr error

	var pc panics.Catcher
	pc.Try(func() {
		fetchErr = l.job.Tick(ctx, &buf)
	})
	if r := pc.Recovered(); r != nil {
		l.logger.Error("tick panicked", "job", l.Name(), "panic", r.Value)
		return r.AsError()
	}

	l.ticks.Add(1)

	if fetchErr != nil {
		if stop.Stopped() {
			// Aborted by shutdown, not worth reporting.
			return nil
		}
		l.errors.Add(1)
		l.logger.Debug("fetch failed", "job", l.Name(), "error", fetchErr)
		fmt.Fprintf(&buf, "Error fetching %s: %v\n", l.Name(), fetchErr)
	}

	if buf.Len() > 0 {
		if _, err := l.out.Write(buf.Bytes()); err != nil {
			l.logger.Debug("write output", "job", l.Name(), "error", err)
		}
	}
	return nil
}

func (l *Loop) finish(o Outcome) Outcome {
	o.Ticks = l.ticks.Load()
	o.Errors = l.errors.Load()
	l.state.Store(int32(o.State))
	if o.State == Stopped {
		fmt.Fprintf(l.out, "Stopping %s\n", o.Name)
	}
	l.logger.Debug("loop finished", "job", o.Name, "state", o.State, "ticks", o.Ticks)
	return o
}
