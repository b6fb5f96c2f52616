package process

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JoelCooperPhD/sessionctl/internal/logging"
)

// fakeModuleScript drives a /bin/sh child that behaves like a
// well-behaved module: it reports initialized immediately, then waits
// for a quit command before exiting.
const fakeModuleScript = `
printf '{"type":"status","status":"initialized","timestamp":"2024-01-01T00:00:00Z","data":{}}\n'
while IFS= read -r line; do
  case "$line" in
    *quit*) printf '{"type":"status","status":"quitting","timestamp":"2024-01-01T00:00:00Z","data":{}}\n'; exit 0;;
  esac
done
`

const neverInitializesScript = `
sleep 5
`

const crashesImmediatelyScript = `
exit 7
`

func newFakeSpec(t *testing.T, script string) Spec {
	t.Helper()
	return Spec{
		Name:       "fake",
		Entrypoint: "/bin/sh",
		Args:       []string{"-c", script},
		LogDir:     t.TempDir(),
	}
}

func TestSpawnReachesRunningOnInitialized(t *testing.T) {
	p := New(newFakeSpec(t, fakeModuleScript), logging.NewTestLogger("process"))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	err := p.Spawn(ctx, nil, 2*time.Second)
	require.NoError(t, err)
	assert.Equal(t, StateRunning, p.State())

	require.NoError(t, p.Stop(time.Second))
	assert.Equal(t, StateStopped, p.State())
}

func TestSpawnMarksCrashedOnExitBeforeInit(t *testing.T) {
	p := New(newFakeSpec(t, crashesImmediatelyScript), logging.NewTestLogger("process"))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	err := p.Spawn(ctx, nil, 2*time.Second)
	assert.Error(t, err)
	assert.Equal(t, StateCrashed, p.State())
}

func TestSpawnMarksCrashedOnInitTimeout(t *testing.T) {
	p := New(newFakeSpec(t, neverInitializesScript), logging.NewTestLogger("process"))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	err := p.Spawn(ctx, nil, 50*time.Millisecond)
	assert.Error(t, err)
	assert.Equal(t, StateCrashed, p.State())
}

func TestStopDoesNotReportCrashedAfterGracefulQuit(t *testing.T) {
	p := New(newFakeSpec(t, fakeModuleScript), logging.NewTestLogger("process"))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, p.Spawn(ctx, nil, 2*time.Second))
	require.NoError(t, p.Stop(time.Second))

	time.Sleep(50 * time.Millisecond) // let watchForExit observe the exit
	assert.Equal(t, StateStopped, p.State())
}
