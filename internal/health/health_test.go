package health

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeChecker struct {
	active          bool
	label           string
	running, crashed int
}

func (f *fakeChecker) SessionActive() (bool, string)   { return f.active, f.label }
func (f *fakeChecker) ModuleCounts() (int, int)         { return f.running, f.crashed }

func TestMonitorGetReflectsChecker(t *testing.T) {
	checker := &fakeChecker{active: true, label: "session_20260101", running: 3, crashed: 1}
	m := NewMonitor("1.2.3", checker)

	status, err := m.Get(context.Background())
	require.NoError(t, err)
	assert.True(t, status.Alive)
	assert.True(t, status.Ready)
	assert.Equal(t, "1.2.3", status.Version)
	assert.True(t, status.SessionActive)
	assert.Equal(t, 3, status.ModulesRunning)
	assert.Equal(t, 1, status.ModulesCrashed)
	assert.GreaterOrEqual(t, status.UptimeSeconds, 0.0)
}

func TestMonitorGetWithInactiveSession(t *testing.T) {
	checker := &fakeChecker{active: false}
	m := NewMonitor("dev", checker)

	status, err := m.Get(context.Background())
	require.NoError(t, err)
	assert.False(t, status.SessionActive)
	assert.Equal(t, 0, status.ModulesRunning)
}
