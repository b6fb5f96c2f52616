package orchestrator

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JoelCooperPhD/sessionctl/internal/logging"
	"github.com/JoelCooperPhD/sessionctl/internal/orchestrator/process"
)

// recordingModuleScript is a minimal module: it initializes
// immediately, then answers start_recording/stop_recording/quit.
const recordingModuleScript = `
printf '{"type":"status","status":"initialized","timestamp":"2024-01-01T00:00:00Z","data":{}}\n'
while IFS= read -r line; do
  case "$line" in
    *start_recording*) printf '{"type":"status","status":"recording_started","timestamp":"2024-01-01T00:00:00Z","data":{}}\n' ;;
    *stop_recording*) printf '{"type":"status","status":"recording_stopped","timestamp":"2024-01-01T00:00:00Z","data":{}}\n' ;;
    *quit*) printf '{"type":"status","status":"quitting","timestamp":"2024-01-01T00:00:00Z","data":{}}\n'; exit 0 ;;
  esac
done
`

// silentModuleScript initializes but never answers start_recording,
// used to exercise the trial-start timeout path.
const silentModuleScript = `
printf '{"type":"status","status":"initialized","timestamp":"2024-01-01T00:00:00Z","data":{}}\n'
while IFS= read -r line; do
  case "$line" in
    *quit*) exit 0 ;;
  esac
done
`

func newOrchestrator(t *testing.T) *Orchestrator {
	t.Helper()
	return New(Config{
		DataDir:           t.TempDir(),
		SessionPrefix:     "session_",
		TrialStartTimeout: 500 * time.Millisecond,
		TrialStopTimeout:  500 * time.Millisecond,
		InitTimeout:       2 * time.Second,
	}, logging.NewTestLogger("orchestrator"))
}

func registerFakeModule(t *testing.T, o *Orchestrator, name, script string) {
	t.Helper()
	o.RegisterModule(process.Spec{
		Name:       name,
		Entrypoint: "/bin/sh",
		Args:       []string{"-c", script},
		LogDir:     t.TempDir(),
	})
	require.NoError(t, o.EnableModule(name, true))
}

func TestStartSessionRejectsDoubleStart(t *testing.T) {
	o := newOrchestrator(t)
	_, err := o.StartSession("", time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)

	_, err = o.StartSession("", time.Now())
	assert.Error(t, err)
}

func TestStartModuleRequiresEnabled(t *testing.T) {
	o := newOrchestrator(t)
	o.RegisterModule(process.Spec{Name: "audio", Entrypoint: "/bin/sh", Args: []string{"-c", recordingModuleScript}})

	err := o.StartModule(context.Background(), "audio")
	assert.Error(t, err)
}

func TestTrialLifecycleAllModulesAcknowledge(t *testing.T) {
	o := newOrchestrator(t)
	registerFakeModule(t, o, "audio", recordingModuleScript)
	registerFakeModule(t, o, "gps", recordingModuleScript)

	ctx := context.Background()
	require.NoError(t, o.StartModule(ctx, "audio"))
	require.NoError(t, o.StartModule(ctx, "gps"))

	_, err := o.StartSession("", time.Now())
	require.NoError(t, err)

	result, err := o.StartTrial("")
	require.NoError(t, err)
	assert.True(t, result.Success())
	assert.Equal(t, 1, result.TrialNumber)
	assert.True(t, o.TrialActive())

	require.NoError(t, o.StopTrial())
	assert.False(t, o.TrialActive())

	for _, inst := range o.Instances() {
		require.NoError(t, o.StopModule(inst.Name, time.Second))
	}
}

func TestTrialPartialSuccessStaysActive(t *testing.T) {
	o := newOrchestrator(t)
	registerFakeModule(t, o, "audio", recordingModuleScript)
	registerFakeModule(t, o, "gps", silentModuleScript)

	ctx := context.Background()
	require.NoError(t, o.StartModule(ctx, "audio"))
	require.NoError(t, o.StartModule(ctx, "gps"))

	_, err := o.StartSession("", time.Now())
	require.NoError(t, err)

	result, err := o.StartTrial("")
	require.NoError(t, err)
	assert.False(t, result.Success())
	assert.Contains(t, result.ModuleErrors, "gps")
	assert.True(t, o.TrialActive(), "partial success must still leave the trial active")

	for _, inst := range o.Instances() {
		_ = o.StopModule(inst.Name, time.Second)
	}
}

func TestGridLayoutGivesEveryWindowAPositiveSize(t *testing.T) {
	geoms := computeLayout(LayoutGrid, 4, 800, 600)
	require.Len(t, geoms, 4)
	for _, g := range geoms {
		assert.Greater(t, g.Width, 0)
		assert.Greater(t, g.Height, 0)
	}
}

func TestTileHorizontalSplitsScreenWidth(t *testing.T) {
	geoms := computeLayout(LayoutTileHorizontal, 2, 1000, 500)
	require.Len(t, geoms, 2)
	assert.Equal(t, 500, geoms[0].Width)
	assert.Equal(t, 500, geoms[1].Width)
	assert.Equal(t, 0, geoms[0].X)
	assert.Equal(t, 500, geoms[1].X)
}
