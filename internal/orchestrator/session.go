package orchestrator

import (
	"fmt"
	"path/filepath"
	"time"
)

// sessionDirName builds <data_root>/session_<YYYYmmdd_HHMMSS>, the
// default session directory name. now is passed in
// so callers (and tests) control the timestamp.
func sessionDirName(dataRoot, prefix string, now time.Time) string {
	return filepath.Join(dataRoot, fmt.Sprintf("%s%s", prefix, now.Format("20060102_150405")))
}

// StartSession begins a new session. If dir is empty, a timestamped
// directory under the configured data root is used. Fails if a
// session is already active.
func (o *Orchestrator) StartSession(dir string, now time.Time) (string, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.sessionActive {
		return "", fmt.Errorf("session already active")
	}
	if dir == "" {
		dir = sessionDirName(o.cfg.DataDir, o.cfg.SessionPrefix, now)
	}
	o.sessionDir = dir
	o.sessionActive = true
	return dir, nil
}

// StopSession ends the active session, stopping any active trial
// first. Fails if no session is active.
func (o *Orchestrator) StopSession() error {
	o.mu.Lock()
	active := o.sessionActive
	trialActive := o.trialActive
	o.mu.Unlock()

	if !active {
		return fmt.Errorf("no session active")
	}
	if trialActive {
		if err := o.StopTrial(); err != nil {
			return err
		}
	}

	o.mu.Lock()
	o.sessionActive = false
	o.sessionDir = ""
	o.trialCounter = 0
	o.mu.Unlock()
	return nil
}

// SessionActive reports whether a session is currently active, and
// its directory if so.
func (o *Orchestrator) SessionActive() (bool, string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.sessionActive, o.sessionDir
}
