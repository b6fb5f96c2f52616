package gps

import (
	"context"
	"encoding/csv"
	"os"
	"path/filepath"
	"strconv"
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

func TestGPSTrialWrites26ColumnRowsWithValidFix(t *testing.T) {
	dir := t.TempDir()
	confPath := filepath.Join(t.TempDir(), "gps.conf")
	require.NoError(t, os.WriteFile(confPath, []byte("gps.fix_rate_hz=20\n"), 0o644))
	mgr := config.NewManager(nil)
	require.NoError(t, mgr.Load(confPath))

	cfg := NewConfig(dir, mgr)
	var buf strings.Builder
	sw := protocol.NewStatusWriter(&buf)
	m := base.New(cfg, sw, logging.NewTestLogger("gps-test"), func() {})
	d := m.Dispatcher()

	require.NoError(t, d.Dispatch(context.Background(), protocol.Command{
		Name:   protocol.CmdStartRecording,
		Params: map[string]interface{}{"trial_number": float64(2), "trial_label": "t2"},
	}))
	time.Sleep(150 * time.Millisecond)
	require.NoError(t, d.Dispatch(context.Background(), protocol.Command{Name: protocol.CmdStopRecording}))

	matches, err := filepath.Glob(filepath.Join(dir, "gps", "gps_trial002_t2.csv"))
	require.NoError(t, err)
	require.Len(t, matches, 1)

	data, err := os.ReadFile(matches[0])
	require.NoError(t, err)
	lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	require.Greater(t, len(lines), 1)
	assert.Equal(t, csvHeader, lines[0])

	cols, err := csv.NewReader(strings.NewReader(lines[1])).Read()
	require.NoError(t, err)
	require.Len(t, cols, 26)
	assert.Equal(t, "2", cols[0])
	assert.Equal(t, "gps", cols[1])

	lat, err := strconv.ParseFloat(cols[6], 64)
	require.NoError(t, err)
	assert.InDelta(t, 40.015, lat, 0.01)
	assert.Equal(t, "1", cols[9]) // fix_valid
}
