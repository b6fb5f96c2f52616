package metrics

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRegistersEveryMetricAgainstItsOwnGatherer(t *testing.T) {
	r := New()
	require.NotNil(t, r.Gatherer())

	r.DiscoverySweepDuration.WithLabelValues("usb").Observe(0.002)
	r.TrialsStartedTotal.Inc()
	r.ModuleInstancesRunning.Set(4)
	r.DevicesConnected.WithLabelValues("audio").Set(2)

	families, err := r.Gatherer().Gather()
	require.NoError(t, err)
	assert.NotEmpty(t, families)

	names := make(map[string]bool, len(families))
	for _, f := range families {
		names[f.GetName()] = true
	}
	assert.True(t, names["sessionctl_discovery_sweep_duration_seconds"])
	assert.True(t, names["sessionctl_trials_started_total"])
	assert.True(t, names["sessionctl_module_instances_running"])
	assert.True(t, names["sessionctl_devices_connected"])
}

func TestTwoRegistriesAreIsolated(t *testing.T) {
	a, b := New(), New()
	a.TrialsStartedTotal.Inc()

	famA, err := a.Gatherer().Gather()
	require.NoError(t, err)
	famB, err := b.Gatherer().Gather()
	require.NoError(t, err)

	var aVal, bVal float64
	for _, f := range famA {
		if f.GetName() == "sessionctl_trials_started_total" {
			aVal = f.Metric[0].GetCounter().GetValue()
		}
	}
	for _, f := range famB {
		if f.GetName() == "sessionctl_trials_started_total" {
			bVal = f.Metric[0].GetCounter().GetValue()
		}
	}
	assert.Equal(t, 1.0, aVal)
	assert.Equal(t, 0.0, bVal)
}
