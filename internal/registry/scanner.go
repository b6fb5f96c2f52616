package registry

import (
	"context"
	"time"

	"github.com/JoelCooperPhD/sessionctl/internal/logging"
)

// DriverSchedule pairs a Driver with its own poll cadence.
type DriverSchedule struct {
	Driver   Driver
	Interval time.Duration
	// Owns reports whether a device belongs to this driver, used to
	// scope removal-aging to devices this driver is responsible for.
	Owns func(Device) bool
}

// Scanner polls a set of drivers, each on its own goroutine and
// ticker, feeding every sweep into a shared Registry.
type Scanner struct {
	registry  *Registry
	schedules []DriverSchedule
	logger    *logging.Logger

	// OnSweep, if set, is called after every successful sweep with the
	// driver name and how long the scan took; the orchestrator hangs
	// its discovery-latency histogram off this.
	OnSweep func(driver string, took time.Duration)
}

// NewScanner returns a Scanner that will poll every schedule against
// registry once Run is called.
func NewScanner(registry *Registry, logger *logging.Logger, schedules ...DriverSchedule) *Scanner {
	if logger == nil {
		logger = logging.New("discovery")
	}
	return &Scanner{registry: registry, schedules: schedules, logger: logger}
}

// Run blocks, polling every driver on its schedule until ctx is
// cancelled. Each driver's sweep failure is logged and retried on the
// next tick rather than aborting discovery for every other driver.
func (s *Scanner) Run(ctx context.Context) {
	if len(s.schedules) == 0 {
		<-ctx.Done()
		return
	}

	for _, sched := range s.schedules {
		go s.pollOne(ctx, sched)
	}
	<-ctx.Done()
}

func (s *Scanner) pollOne(ctx context.Context, sched DriverSchedule) {
	ticker := time.NewTicker(sched.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			start := time.Now()
			found, err := sched.Driver.Scan()
			if err != nil {
				s.logger.WithFields(logging.Fields{"driver": sched.Driver.Name()}).WithError(err).Warn("discovery sweep failed")
				continue
			}
			s.registry.ApplySweep(sched.Driver.Name(), found, sched.Owns)
			if s.OnSweep != nil {
				s.OnSweep(sched.Driver.Name(), time.Since(start))
			}
		}
	}
}
