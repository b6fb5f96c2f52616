package drt

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JoelCooperPhD/sessionctl/internal/config"
	"github.com/JoelCooperPhD/sessionctl/internal/logging"
	"github.com/JoelCooperPhD/sessionctl/internal/modules/base"
	"github.com/JoelCooperPhD/sessionctl/internal/protocol"
)

func runTrial(t *testing.T, wireless bool) (dir string, header string) {
	t.Helper()
	dir = t.TempDir()
	mgr := config.NewManager(nil)
	if wireless {
		path := filepath.Join(t.TempDir(), "drt.conf")
		require.NoError(t, os.WriteFile(path, []byte("drt.wireless=true\ndrt.trial_rate_hz=20\n"), 0o644))
		require.NoError(t, mgr.Load(path))
	} else {
		path := filepath.Join(t.TempDir(), "drt.conf")
		require.NoError(t, os.WriteFile(path, []byte("drt.trial_rate_hz=20\n"), 0o644))
		require.NoError(t, mgr.Load(path))
	}
	cfg := NewConfig(dir, mgr)

	var buf strings.Builder
	sw := protocol.NewStatusWriter(&buf)
	m := base.New(cfg, sw, logging.NewTestLogger("drt-test"), func() {})
	d := m.Dispatcher()

	require.NoError(t, d.Dispatch(context.Background(), protocol.Command{
		Name:   protocol.CmdStartRecording,
		Params: map[string]interface{}{"trial_number": float64(1), "trial_label": "t1"},
	}))
	time.Sleep(150 * time.Millisecond)
	require.NoError(t, d.Dispatch(context.Background(), protocol.Command{Name: protocol.CmdStopRecording}))

	if wireless {
		header = wirelessHeader
	} else {
		header = simpleHeader
	}
	return dir, header
}

func TestDRTWiredProducesTenColumnRows(t *testing.T) {
	dir, header := runTrial(t, false)
	matches, err := filepath.Glob(filepath.Join(dir, "drt", "drt_trial001_t1.csv"))
	require.NoError(t, err)
	require.Len(t, matches, 1)

	data, err := os.ReadFile(matches[0])
	require.NoError(t, err)
	lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	require.Greater(t, len(lines), 1, "expected at least one data row")
	assert.Equal(t, header, lines[0])
	assert.Equal(t, 10, len(strings.Split(lines[1], ",")))
}

func TestDRTWirelessProducesElevenColumnRowsWithBattery(t *testing.T) {
	dir, header := runTrial(t, true)
	matches, err := filepath.Glob(filepath.Join(dir, "drt", "drt_trial001_t1.csv"))
	require.NoError(t, err)
	require.Len(t, matches, 1)

	data, err := os.ReadFile(matches[0])
	require.NoError(t, err)
	lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	require.Greater(t, len(lines), 1)
	assert.Equal(t, header, lines[0])
	assert.Equal(t, 11, len(strings.Split(lines[1], ",")))
}
