package vog

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

func TestVOGWirelessTrialIncludesLensAndBattery(t *testing.T) {
	dir := t.TempDir()
	confPath := filepath.Join(t.TempDir(), "vog.conf")
	require.NoError(t, os.WriteFile(confPath, []byte("vog.wireless=true\nvog.cycle_rate_hz=20\n"), 0o644))
	mgr := config.NewManager(nil)
	require.NoError(t, mgr.Load(confPath))

	cfg := NewConfig(dir, mgr)
	var buf strings.Builder
	sw := protocol.NewStatusWriter(&buf)
	m := base.New(cfg, sw, logging.NewTestLogger("vog-test"), func() {})
	d := m.Dispatcher()

	require.NoError(t, d.Dispatch(context.Background(), protocol.Command{
		Name:   "set_lens",
		Params: map[string]interface{}{"lens": "B"},
	}))

	require.NoError(t, d.Dispatch(context.Background(), protocol.Command{
		Name:   protocol.CmdStartRecording,
		Params: map[string]interface{}{"trial_number": float64(1), "trial_label": "t1"},
	}))
	time.Sleep(150 * time.Millisecond)
	require.NoError(t, d.Dispatch(context.Background(), protocol.Command{Name: protocol.CmdStopRecording}))

	matches, err := filepath.Glob(filepath.Join(dir, "vog", "vog_trial001_t1.csv"))
	require.NoError(t, err)
	require.Len(t, matches, 1)

	data, err := os.ReadFile(matches[0])
	require.NoError(t, err)
	lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	require.Greater(t, len(lines), 1)
	assert.Equal(t, wirelessHeader, lines[0])

	cols := strings.Split(lines[1], ",")
	require.Len(t, cols, 11)
	assert.Equal(t, "B", cols[8]) // lens
}

func TestSetLensRejectsUnknownLens(t *testing.T) {
	dir := t.TempDir()
	cfg := NewConfig(dir, config.NewManager(nil))
	var buf strings.Builder
	sw := protocol.NewStatusWriter(&buf)
	m := base.New(cfg, sw, logging.NewTestLogger("vog-test"), func() {})
	d := m.Dispatcher()

	err := d.Dispatch(context.Background(), protocol.Command{
		Name:   "set_lens",
		Params: map[string]interface{}{"lens": "Z"},
	})
	require.NoError(t, err) // handler error converted to status, not propagated
	assert.Contains(t, buf.String(), `"status":"error"`)
}
