package runtime

import (
	"context"
	"errors"
	"time"

	"github.com/JoelCooperPhD/sessionctl/internal/logging"
)

// ErrInitialization signals that a module's Run failed because no
// devices are available yet. The supervisor treats this as retryable
// on a fixed interval, distinct from any other error.
var ErrInitialization = errors.New("runtime: initialization error")

// System is the thing a Supervisor drives: one System.Run call is one
// attempt at the module's full lifecycle. Run should block until ctx
// is cancelled or it encounters a fatal condition; Cleanup always runs
// afterward regardless of how Run returned.
type System interface {
	Run(ctx context.Context) error
	Cleanup()
}

// Supervisor wraps a module runtime: it retries System.Run on
// ErrInitialization using DiscoveryRetryInterval, retries on any other
// non-nil error with the same backoff, and does not retry a clean
// (nil-error) exit. Cleanup is always invoked in a finally path, and
// a Cleanup panic or the lack of one never prevents Run from
// returning.
type Supervisor struct {
	sys      System
	interval time.Duration
	log      *logging.Logger

	// BeforeExit, if set, is called once Run is about to stop
	// retrying. A supervisor-initiated exit must surface a
	// "quitting" status before
	// the process actually terminates, letting the orchestrator tell
	// a graceful stop apart from a crash.
	BeforeExit func()
}

// NewSupervisor returns a Supervisor for sys, retrying at interval.
func NewSupervisor(sys System, interval time.Duration, log *logging.Logger) *Supervisor {
	return &Supervisor{sys: sys, interval: interval, log: log}
}

// Run drives sys.Run until it exits cleanly (nil error) or ctx is
// cancelled. Cleanup is guaranteed to run exactly once before Run
// returns.
func (s *Supervisor) Run(ctx context.Context) error {
	defer func() {
		if s.BeforeExit != nil {
			s.BeforeExit()
		}
		s.runCleanup()
	}()

	for {
		err := s.sys.Run(ctx)
		if err == nil {
			return nil // clean exit: do not retry
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}

		if errors.Is(err, ErrInitialization) {
			s.log.WithError(err).Warn("supervisor: no devices yet, retrying")
		} else {
			s.log.WithError(err).Error("supervisor: run failed, retrying")
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(s.interval):
		}
	}
}

func (s *Supervisor) runCleanup() {
	defer func() {
		if r := recover(); r != nil {
			s.log.WithField("panic", r).Error("supervisor: cleanup panicked")
		}
	}()
	s.sys.Cleanup()
}
