package orchestrator

import (
	"fmt"
	"sync"

	"github.com/JoelCooperPhD/sessionctl/internal/orchestrator/process"
	"github.com/JoelCooperPhD/sessionctl/internal/protocol"
)

// Instance is one configured module slot the orchestrator knows about:
// a name, whether an operator has enabled it, and - once started - the
// process.Process driving its child. Enabling a module never starts
// it; starting is a separate, explicit operation.
type Instance struct {
	Name      string
	Enabled   bool
	Recording bool

	proc *process.Process

	reportMu sync.RWMutex
	// lastReport caches the Data payload of the most recent
	// status_report the module emitted, so REST plugin extensions can
	// surface device-specific state (gaze sample, battery percent,
	// lens setting, ...) without round-tripping get_status first.
	lastReport map[string]interface{}
}

// Proc returns the running process handle, or nil if the instance
// hasn't been started.
func (i *Instance) Proc() *process.Process { return i.proc }

// LastReport returns the most recent status_report payload received
// from this instance's module, or nil if none has arrived yet.
func (i *Instance) LastReport() map[string]interface{} {
	i.reportMu.RLock()
	defer i.reportMu.RUnlock()
	return i.lastReport
}

// Send forwards a command to the running module process, or an error
// if the instance has no active process.
func (i *Instance) Send(name string, params map[string]interface{}) error {
	if i.proc == nil {
		return fmt.Errorf("module %q is not running", i.Name)
	}
	return i.proc.Send(name, params)
}

// Running reports whether the instance has an active process in the
// RUNNING state.
func (i *Instance) Running() bool {
	return i.proc != nil && i.proc.State() == process.StateRunning
}

// watch drains the instance's status stream for the lifetime of its
// process, updating Recording and forwarding every status to the
// orchestrator's event bus. Exactly one watch goroutine exists per
// spawned instance.
func (i *Instance) watch(o *Orchestrator) {
	for st := range i.proc.Statuses() {
		switch st.Status {
		case protocol.StatusRecordingStarted:
			i.Recording = true
		case protocol.StatusRecordingStopped:
			i.Recording = false
		case protocol.StatusGeometryChanged:
			if g, ok := i.proc.LastGeometry(); ok {
				o.noteGeometry(i.Name, g)
			}
		case protocol.StatusReport:
			i.reportMu.Lock()
			i.lastReport = st.Data
			i.reportMu.Unlock()
		}
		o.publish(Event{Module: i.Name, Status: st})
	}
}
