package logging

import (
	"context"
	"os"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSetsComponentAndDefaultLevel(t *testing.T) {
	Configure(Config{Level: "info", Format: "text", ConsoleEnabled: true})
	l := New("registry")
	AssertComponent(t, l, "registry")
	assert.Equal(t, logrus.InfoLevel, l.Logger.GetLevel())
}

func TestConfigureAppliesToSubsequentLoggers(t *testing.T) {
	Configure(Config{Level: "debug", Format: "json", ConsoleEnabled: true})
	defer Configure(Config{Level: "info", Format: "text", ConsoleEnabled: true})

	l := New("pipeline")
	assert.Equal(t, logrus.DebugLevel, l.Logger.GetLevel())
	_, isJSON := l.Logger.Formatter.(*logrus.JSONFormatter)
	assert.True(t, isJSON)
}

func TestFileSinkWritesToConfiguredPath(t *testing.T) {
	path := TempLogFile(t)
	Configure(Config{Level: "info", Format: "text", FileEnabled: true, FilePath: path, MaxFileSize: 1024 * 1024, BackupCount: 1})
	defer Configure(Config{Level: "info", Format: "text", ConsoleEnabled: true})

	l := New("gps")
	l.WithField("device_id", "gps-0").Info("fix acquired")

	_, err := os.Stat(path)
	require.NoError(t, err)
}

func TestCorrelationIDRoundTripsThroughContext(t *testing.T) {
	ctx := ContextWithCorrelationID(context.Background(), "trial-7")
	assert.Equal(t, "trial-7", CorrelationIDFromContext(ctx))
	assert.Equal(t, "", CorrelationIDFromContext(nil))
}

func TestWithCorrelationIDTagsEntries(t *testing.T) {
	l := New("orchestrator").WithCorrelationID("abc-123")
	entry := l.entry()
	assert.Equal(t, "abc-123", entry.Data["correlation_id"])
	assert.Equal(t, "orchestrator", entry.Data["component"])
}
