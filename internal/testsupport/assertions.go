package testsupport

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TimingHelper bundles timing-invariant assertions against a
// *testing.T: a thin struct wrapping *testing.T rather than free
// functions, so failures report against the right subtest.
type TimingHelper struct {
	t *testing.T
}

// NewTimingHelper returns a TimingHelper for t.
func NewTimingHelper(t *testing.T) *TimingHelper {
	return &TimingHelper{t: t}
}

// AssertMonotonic checks that values strictly increase, the invariant
// required of record_time_mono within a single CSV file.
func (h *TimingHelper) AssertMonotonic(values []float64, description string) {
	for i := 1; i < len(values); i++ {
		assert.Greater(h.t, values[i], values[i-1], "%s: value at index %d should exceed the previous value", description, i)
	}
}

// AssertFrameCount checks a pipeline produced the expected number of
// written frames within a tolerance, accounting for the duplicate/skip
// accounting rule rather than demanding an exact
// count (scheduling jitter in tests makes an exact match flaky).
func (h *TimingHelper) AssertFrameCount(got, want, tolerance int64, description string) {
	diff := got - want
	if diff < 0 {
		diff = -diff
	}
	assert.LessOrEqual(h.t, diff, tolerance, "%s: got %d frames, want %d ± %d", description, got, want, tolerance)
}

// AssertWithinDuration checks a measured duration falls within
// [want-tolerance, want+tolerance], used for cadence checks against
// the t0+k/fps timer.
func (h *TimingHelper) AssertWithinDuration(got, want, tolerance time.Duration, description string) {
	diff := got - want
	if diff < 0 {
		diff = -diff
	}
	assert.LessOrEqual(h.t, diff, tolerance, "%s: got %s, want %s ± %s", description, got, want, tolerance)
}

// AssertCSVHeader checks a parsed header row matches the expected
// schema column-for-column, failing fast (require, not assert) since
// every later row assertion in the same test would be meaningless
// against the wrong schema.
func AssertCSVHeader(t *testing.T, got, want []string, description string) {
	require.Equal(t, want, got, "%s: CSV header mismatch", description)
}

// AssertBoolDigit checks a CSV field is exactly "0" or "1", the
// encoding used for is_duplicate and fix_valid.
func AssertBoolDigit(t *testing.T, field, description string) {
	assert.Contains(t, []string{"0", "1"}, field, "%s: expected a 0/1 digit, got %q", description, field)
}

// AssertRange checks a float value falls within [min, max], used for
// latitude_deg/longitude_deg/battery_percent bounds.
func AssertRange(t *testing.T, value, min, max float64, description string) {
	assert.GreaterOrEqual(t, value, min, "%s: value %v below minimum %v", description, value, min)
	assert.LessOrEqual(t, value, max, "%s: value %v above maximum %v", description, value, max)
}
