package logging

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

// NewTestLogger creates a component logger at debug level for use by
// other packages' tests.
func NewTestLogger(component string) *Logger {
	l := New(component)
	l.SetLevel(logrus.DebugLevel)
	return l
}

// TempLogFile returns a writable path for a file-sink test, cleaned up
// automatically when the test ends.
func TempLogFile(t *testing.T) string {
	t.Helper()
	dir, err := os.MkdirTemp("", "sessionctl-log-test")
	require.NoError(t, err)
	t.Cleanup(func() { os.RemoveAll(dir) })
	return filepath.Join(dir, "test.log")
}

// AssertComponent asserts a logger was constructed for the expected
// component name.
func AssertComponent(t *testing.T, logger *Logger, expected string) {
	t.Helper()
	require.NotNil(t, logger)
	require.Equal(t, expected, logger.component)
}
