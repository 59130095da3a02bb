package coordinator

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"sort"
	"sync"
	"sync/atomic"
	"syscall"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/sourcegraph/conc"

	"marketviewer/internal/broadcast"
	"marketviewer/internal/poll"
)

// Interrupt is the external event that ends a polling run.
type Interrupt interface {
	// Wait blocks until the interrupt arrives. It returns an error if the
	// interrupt source breaks or ctx is done first.
	Wait(ctx context.Context) error
}

// Armer is implemented by interrupts that must start listening before the
// loops are spawned. Run calls Arm first and release once the loops are joined.
type Armer interface {
	Arm() (release func())
}

// SignalInterrupt waits for SIGINT or SIGTERM. The handler is only installed
// while armed or while Wait is blocked, so outside a run the default signal
// behaviour applies.
type SignalInterrupt struct {
	signals []os.Signal

	mu    sync.Mutex
	armed chan os.Signal
}

// NewSignalInterrupt creates an interrupt for os.Interrupt and SIGTERM.
func NewSignalInterrupt() *SignalInterrupt {
	return &SignalInterrupt{signals: []os.Signal{os.Interrupt, syscall.SIGTERM}}
}

// Arm installs the signal handler. A signal delivered between Arm and Wait is
// kept and makes the next Wait return at once.
func (s *SignalInterrupt) Arm() func() {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, s.signals...)

	s.mu.Lock()
	s.armed = sigChan
	s.mu.Unlock()

	return func() {
		signal.Stop(sigChan)
		s.mu.Lock()
		if s.armed == sigChan {
			s.armed = nil
		}
		s.mu.Unlock()
	}
}

// Wait implements the Interrupt interface
func (s *SignalInterrupt) Wait(ctx context.Context) error {
	s.mu.Lock()
	sigChan := s.armed
	s.mu.Unlock()

	if sigChan == nil {
		sigChan = make(chan os.Signal, 1)
		signal.Notify(sigChan, s.signals...)
		defer signal.Stop(sigChan)
	}

	select {
	case <-sigChan:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Result maps a loop identity to its outcome.
type Result map[string]poll.Outcome

// Names returns the loop identities in sorted order.
func (r Result) Names() []string {
	names := make([]string, 0, len(r))
	for name := range r {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Failed returns the failed outcomes sorted by name.
func (r Result) Failed() []poll.Outcome {
	var failed []poll.Outcome
	for _, name := range r.Names() {
		if o := r[name]; o.State == poll.Failed {
			failed = append(failed, o)
		}
	}
	return failed
}

// Coordinator runs polling loops concurrently until interrupted
type Coordinator struct {
	interrupt Interrupt
	clock     clockwork.Clock
	out       io.Writer
	logger    *slog.Logger
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithInterrupt sets the event that ends a run.
func WithInterrupt(i Interrupt) Option {
	return func(c *Coordinator) {
		c.interrupt = i
	}
}

// WithClock sets the clock handed to every loop.
func WithClock(clock clockwork.Clock) Option {
	return func(c *Coordinator) {
		c.clock = clock
	}
}

// WithOutput sets the shared writer. It must be safe for concurrent use.
func WithOutput(w io.Writer) Option {
	return func(c *Coordinator) {
		c.out = w
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Coordinator) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// New creates a new Coordinator
func New(opts ...Option) *Coordinator {
	c := &Coordinator{
		interrupt: NewSignalInterrupt(),
		clock:     clockwork.NewRealClock(),
		out:       io.Discard,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Run starts one loop per job and blocks until the interrupt arrives, then
// stops every loop and waits for all of them to exit.
//
// Run also returns once every loop has exited on its own. With no jobs it
// returns an empty result without waiting. If waiting for the interrupt fails,
// the loops are still stopped and joined and the partial result is returned
// together with the error.
func (c *Coordinator) Run(ctx context.Context, jobs []poll.Job) (Result, error) {
	result := make(Result, len(jobs))
	if len(jobs) == 0 {
		return result, nil
	}

	if a, ok := c.interrupt.(Armer); ok {
		release := a.Arm()
		defer release()
	}

	logger := c.logger.With("run_id", uuid.NewString())
	names := uniqueNames(jobs)
	signaler, observers := broadcast.New()

	outcomes := make([]poll.Outcome, len(jobs))
	allExited := make(chan struct{})
	var running atomic.Int32
	running.Store(int32(len(jobs)))

	logger.Info("starting loops", "count", len(jobs))

	var wg conc.WaitGroup
	for i, job := range jobs {
		i := i
		loop := poll.NewLoop(job,
			poll.WithClock(c.clock),
			poll.WithOutput(c.out),
			poll.WithLogger(logger.With("job", names[i])),
		)
		obs := observers.Subscribe()
		wg.Go(func() {
			defer func() {
				if running.Add(-1) == 0 {
					close(allExited)
				}
			}()
			outcomes[i] = loop.Run(ctx, obs)
		})
	}

	waitErr := c.waitForInterrupt(ctx, allExited, logger)

	signaler.Fire()
	var panicErr error
	if r := wg.WaitAndRecover(); r != nil {
		logger.Error("loop panicked", "panic", r.Value)
		panicErr = r.AsError()
	}

	for i, name := range names {
		o := outcomes[i]
		if o.State != poll.Stopped && o.State != poll.Failed {
			err := panicErr
			if err == nil {
				err = errors.New("loop exited without an outcome")
			}
			o = poll.FailedOutcome(name, err)
		}
		o.Name = name
		result[name] = o
	}

	for _, o := range result.Failed() {
		logger.Error("loop failed", "job", o.Name, "error", o.Err)
		fmt.Fprintf(c.out, "Task %s failed: %v\n", o.Name, o.Err)
	}

	logger.Info("loops stopped", "count", len(result), "failed", len(result.Failed()))
	return result, waitErr
}

func (c *Coordinator) waitForInterrupt(ctx context.Context, allExited <-chan struct{}, logger *slog.Logger) error {
	waitCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	interrupted := make(chan error, 1)
	go func() {
		interrupted <- c.interrupt.Wait(waitCtx)
	}()

	select {
	case err := <-interrupted:
		if err != nil {
			logger.Error("waiting for interrupt failed", "error", err)
			return fmt.Errorf("wait for interrupt: %w", err)
		}
		logger.Info("interrupt received")
		return nil
	case <-allExited:
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("wait for interrupt: %w", err)
		}
		logger.Warn("all loops exited before interrupt")
		return nil
	}
}

// uniqueNames returns one identity per job, suffixing repeats so that every
// loop gets its own entry in the result.
func uniqueNames(jobs []poll.Job) []string {
	taken := make(map[string]bool, len(jobs))
	names := make([]string, len(jobs))
	for i, job := range jobs {
		name := job.Name()
		for n := 2; taken[name]; n++ {
			name = fmt.Sprintf("%s#%d", job.Name(), n)
		}
		taken[name] = true
		names[i] = name
	}
	return names
}
