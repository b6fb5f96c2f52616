package health

import (
	"context"
	"time"
)

// Status is the liveness/readiness snapshot returned by /health and
// /status.
type Status struct {
	Alive           bool          `json:"alive"`
	Ready           bool          `json:"ready"`
	UptimeSeconds   float64       `json:"uptime_seconds"`
	Version         string        `json:"version"`
	SessionActive   bool          `json:"session_active"`
	ModulesRunning  int           `json:"modules_running"`
	ModulesCrashed  int           `json:"modules_crashed"`
}

// Checker is implemented by the orchestrator and queried by the
// /health and /status route handlers. Thin delegation: the HTTP layer
// never computes readiness itself, keeping transport separate from
// the readiness decision.
type Checker interface {
	SessionActive() (bool, string)
	ModuleCounts() (running, crashed int)
}

// Monitor computes Status values on demand, stamping an uptime
// relative to when it was constructed (process start).
type Monitor struct {
	version   string
	startedAt time.Time
	checker   Checker
}

// NewMonitor returns a Monitor reporting against checker.
func NewMonitor(version string, checker Checker) *Monitor {
	return &Monitor{version: version, startedAt: time.Now(), checker: checker}
}

// Get returns the current Status. ctx is accepted for symmetry with
// other request-scoped calls even though this check never blocks on
// I/O.
func (m *Monitor) Get(ctx context.Context) (Status, error) {
	active, _ := m.checker.SessionActive()
	running, crashed := m.checker.ModuleCounts()
	return Status{
		Alive:          true,
		Ready:          true,
		UptimeSeconds:  time.Since(m.startedAt).Seconds(),
		Version:        m.version,
		SessionActive:  active,
		ModulesRunning: running,
		ModulesCrashed: crashed,
	}, nil
}
