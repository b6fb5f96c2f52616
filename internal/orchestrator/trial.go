package orchestrator

import (
	"fmt"
	"sync"
	"time"

	"github.com/JoelCooperPhD/sessionctl/internal/protocol"
)

// TrialResult reports the outcome of start/stop trial broadcasts.
// Success is true only when every targeted module acknowledged within
// its timeout; a false Success with a non-empty ModuleErrors is the
// "partial success" case, which must still leave the trial
// active so whatever data the responding modules captured isn't lost.
type TrialResult struct {
	TrialNumber  int
	TrialLabel   string
	ModuleErrors map[string]error
}

func (r TrialResult) Success() bool { return len(r.ModuleErrors) == 0 }

// StartTrial begins a new trial within the active session: every
// enabled+running module is sent start_recording with the session
// directory, trial number, and trial label, and the orchestrator waits
// up to TrialStartTimeout for each to report recording_started.
func (o *Orchestrator) StartTrial(label string) (TrialResult, error) {
	o.mu.Lock()
	if !o.sessionActive {
		o.mu.Unlock()
		return TrialResult{}, fmt.Errorf("no session active")
	}
	if o.trialActive {
		o.mu.Unlock()
		return TrialResult{}, fmt.Errorf("trial already active")
	}
	o.trialCounter++
	if label == "" {
		label = fmt.Sprintf("trial_%d", o.trialCounter)
	}
	o.trialLabel = label
	o.trialActive = true
	sessionDir := o.sessionDir
	trialNumber := o.trialCounter
	timeout := o.cfg.TrialStartTimeout
	targets := o.runningInstancesLocked()
	o.mu.Unlock()

	params := map[string]interface{}{
		"session_dir":  sessionDir,
		"trial_number": trialNumber,
		"trial_label":  label,
	}
	errs := o.broadcastAndWait(targets, protocol.CmdStartRecording, params, isRecordingStarted, timeout)

	return TrialResult{TrialNumber: trialNumber, TrialLabel: label, ModuleErrors: errs}, nil
}

// StopTrial broadcasts stop_recording to every running module and
// waits up to TrialStopTimeout for each recording_stopped, then clears
// trial_active unconditionally - a module that never acknowledges
// still had stop_recording sent to it, which is the best this
// orchestrator can do for it.
func (o *Orchestrator) StopTrial() error {
	o.mu.Lock()
	if !o.trialActive {
		o.mu.Unlock()
		return fmt.Errorf("no trial active")
	}
	timeout := o.cfg.TrialStopTimeout
	targets := o.runningInstancesLocked()
	o.mu.Unlock()

	o.broadcastAndWait(targets, protocol.CmdStopRecording, nil, isRecordingStopped, timeout)

	o.mu.Lock()
	o.trialActive = false
	o.trialLabel = ""
	o.mu.Unlock()
	return nil
}

// TrialActive reports whether a trial is currently active.
func (o *Orchestrator) TrialActive() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.trialActive
}

func (o *Orchestrator) runningInstancesLocked() []*Instance {
	var out []*Instance
	for _, inst := range o.modules {
		if inst.Enabled && inst.Running() {
			out = append(out, inst)
		}
	}
	return out
}

func isRecordingStarted(s protocol.Status) bool {
	return s.Status == protocol.StatusRecordingStarted || s.Status == protocol.StatusError
}

func isRecordingStopped(s protocol.Status) bool {
	return s.Status == protocol.StatusRecordingStopped || s.Status == protocol.StatusError
}

// broadcastAndWait sends command to every instance and waits, per
// instance and concurrently, for a status matching expect within
// timeout. A timed-out or error-status module is reported in the
// returned map; everything else succeeded silently.
func (o *Orchestrator) broadcastAndWait(instances []*Instance, command string, params map[string]interface{}, expect func(protocol.Status) bool, timeout time.Duration) map[string]error {
	errs := make(map[string]error)
	var mu sync.Mutex
	var wg sync.WaitGroup

	for _, inst := range instances {
		inst := inst
		wait := o.waitFor(inst.Name, expect)

		if err := inst.proc.Send(command, params); err != nil {
			mu.Lock()
			errs[inst.Name] = err
			mu.Unlock()
			continue
		}

		wg.Add(1)
		go func() {
			defer wg.Done()
			select {
			case st := <-wait:
				if st.Status == protocol.StatusError {
					mu.Lock()
					errs[inst.Name] = fmt.Errorf("module reported error: %v", st.Data["message"])
					mu.Unlock()
				}
			case <-time.After(timeout):
				mu.Lock()
				errs[inst.Name] = fmt.Errorf("timed out waiting for %s", command)
				mu.Unlock()
			}
		}()
	}

	wg.Wait()
	return errs
}
