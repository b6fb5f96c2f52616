package notes

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

func newTestModule(t *testing.T) (*base.Module, string) {
	t.Helper()
	dir := t.TempDir()

	// Configure a fast tick so the pipeline's timer drains the note
	// written via SubmitFrame almost immediately instead of within the
	// default flush interval.
	confPath := filepath.Join(t.TempDir(), "notes.conf")
	require.NoError(t, os.WriteFile(confPath, []byte("notes.tick_rate_hz=50\n"), 0o644))
	mgr := config.NewManager(nil)
	require.NoError(t, mgr.Load(confPath))

	cfg := NewConfig(dir, mgr)

	var buf strings.Builder
	sw := protocol.NewStatusWriter(&buf)
	m := base.New(cfg, sw, logging.NewTestLogger("notes-test"), func() {})
	return m, dir
}

func TestAddNoteAppendsRowToCSV(t *testing.T) {
	m, dir := newTestModule(t)
	d := m.Dispatcher()

	require.NoError(t, d.Dispatch(context.Background(), protocol.Command{
		Name:   protocol.CmdStartRecording,
		Params: map[string]interface{}{"trial_number": float64(1), "trial_label": "t1"},
	}))

	require.NoError(t, d.Dispatch(context.Background(), protocol.Command{
		Name:   "add_note",
		Params: map[string]interface{}{"text": "operator flagged glare"},
	}))
	// Give the pipeline timer at least one tick to drain the slot
	// (notes.tick_rate_hz=50 => a 20ms period). Quiet ticks after that
	// write nothing: the notes pipeline skips stalled ticks.
	time.Sleep(60 * time.Millisecond)

	require.NoError(t, d.Dispatch(context.Background(), protocol.Command{Name: protocol.CmdStopRecording}))

	matches, err := filepath.Glob(filepath.Join(dir, "notes", "notes_trial001_t1.csv"))
	require.NoError(t, err)
	require.Len(t, matches, 1)

	data, err := os.ReadFile(matches[0])
	require.NoError(t, err)
	lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	require.Greater(t, len(lines), 1)
	assert.Equal(t, csvHeader, lines[0])
	assert.Contains(t, lines[1], "operator flagged glare")
	assert.True(t, strings.HasPrefix(lines[1], "1,notes,"))
}

func TestAddNoteRequiresText(t *testing.T) {
	m, _ := newTestModule(t)
	d := m.Dispatcher()

	require.NoError(t, d.Dispatch(context.Background(), protocol.Command{
		Name:   protocol.CmdStartRecording,
		Params: map[string]interface{}{"trial_number": float64(1), "trial_label": "t1"},
	}))
	err := d.Dispatch(context.Background(), protocol.Command{Name: "add_note"})
	require.NoError(t, err) // dispatcher converts handler errors to status, never propagates
	require.NoError(t, d.Dispatch(context.Background(), protocol.Command{Name: protocol.CmdStopRecording}))
}

func TestAddNoteWithoutRecordingFails(t *testing.T) {
	m, _ := newTestModule(t)
	d := m.Dispatcher()
	err := d.Dispatch(context.Background(), protocol.Command{
		Name:   "add_note",
		Params: map[string]interface{}{"text": "too early"},
	})
	require.NoError(t, err)
	assert.False(t, m.Recording())
}
