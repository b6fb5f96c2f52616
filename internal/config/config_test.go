package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JoelCooperPhD/sessionctl/internal/logging"
)

func writeTempConfig(t *testing.T, contents string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.conf")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	return path
}

func TestKVParserCoercesTypes(t *testing.T) {
	p := NewKVParser()
	m, err := p.Unmarshal([]byte(`
# a comment
data_dir=/tmp/data
api_port=8080
fps=29.97
gui_start_minimized=true
auto_select_new=no
legacy_flag=1
`))
	require.NoError(t, err)
	assert.Equal(t, "/tmp/data", m["data_dir"])
	assert.EqualValues(t, 8080, m["api_port"])
	assert.InDelta(t, 29.97, m["fps"], 0.001)
	assert.Equal(t, true, m["gui_start_minimized"])
	assert.Equal(t, false, m["auto_select_new"])
	assert.EqualValues(t, 1, m["legacy_flag"])
}

func TestKVParserRejectsLineWithoutEquals(t *testing.T) {
	_, err := NewKVParser().Unmarshal([]byte("not_an_assignment\n"))
	assert.Error(t, err)
}

func TestManagerLoadAndTypedDefaults(t *testing.T) {
	path := writeTempConfig(t, "data_dir=/tmp/sessions\napi_port=9090\napi_debug=yes\n")
	m := NewManager(logging.NewTestLogger("config"))
	require.NoError(t, m.Load(path))

	cfg := OrchestratorConfigFromManager(m)
	assert.Equal(t, "/tmp/sessions", cfg.DataDir)
	assert.Equal(t, 9090, cfg.APIPort)
	assert.True(t, cfg.APIDebug)
	// Unset key falls back to the documented default.
	assert.Equal(t, "session_", cfg.SessionPrefix)
	assert.Equal(t, 3*time.Second, cfg.TrialStartTimeout)
}

func TestManagerBoolAcceptsNumericZeroOne(t *testing.T) {
	path := writeTempConfig(t, "auto_select_new=0\nauto_start_recording=1\n")
	m := NewManager(logging.NewTestLogger("config"))
	require.NoError(t, m.Load(path))

	assert.False(t, m.Bool("auto_select_new", true))
	assert.True(t, m.Bool("auto_start_recording", false))
}

func TestManagerReloadPicksUpChanges(t *testing.T) {
	path := writeTempConfig(t, "api_port=8080\n")
	m := NewManager(logging.NewTestLogger("config"))
	require.NoError(t, m.Load(path))
	assert.Equal(t, 8080, m.Int("api_port", 0))

	require.NoError(t, os.WriteFile(path, []byte("api_port=9999\n"), 0o644))
	require.NoError(t, m.Reload())
	assert.Equal(t, 9999, m.Int("api_port", 0))
}

func TestManagerWatchTriggersReloadOnWrite(t *testing.T) {
	path := writeTempConfig(t, "api_port=8080\n")
	m := NewManager(logging.NewTestLogger("config"))
	require.NoError(t, m.Load(path))

	reloaded := make(chan struct{}, 1)
	m.OnReload(func() {
		select {
		case reloaded <- struct{}{}:
		default:
		}
	})
	require.NoError(t, m.Watch())
	defer m.Close()

	require.NoError(t, os.WriteFile(path, []byte("api_port=7777\n"), 0o644))

	select {
	case <-reloaded:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for hot reload")
	}
	assert.Equal(t, 7777, m.Int("api_port", 0))
}

func TestDefaultConfigDirPrefersXDG(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/xdg")
	t.Setenv("HOME", "/home/op")
	assert.Equal(t, "/xdg/sessionctl", DefaultConfigDir("sessionctl"))

	t.Setenv("XDG_CONFIG_HOME", "")
	assert.Equal(t, "/home/op/.config/sessionctl", DefaultConfigDir("sessionctl"))
}
