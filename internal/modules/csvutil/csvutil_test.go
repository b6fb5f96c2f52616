package csvutil

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRowEscapesCommasAndQuotes(t *testing.T) {
	got := Row("plain", "has,comma", `has"quote`, "")
	assert.Equal(t, `plain,"has,comma","has""quote",`, string(got))
}

func TestRowHasNoTrailingNewline(t *testing.T) {
	got := Row("a", "b")
	assert.NotContains(t, string(got), "\n")
	assert.NotContains(t, string(got), "\r")
}

func TestStandardPrefixColumnOrder(t *testing.T) {
	got := StandardPrefix(3, "gps", "dev-1", "trial_3", 1700000000.5, 12.25)
	assert.Equal(t, []string{"3", "gps", "dev-1", "trial_3", "1700000000.500000", "12.250000"}, got)
}

func TestFormatFloatPrecision(t *testing.T) {
	assert.Equal(t, "1.500000", FormatFloat(1.5))
	assert.Equal(t, "0.000000", FormatFloat(0))
}

func TestFormatUnixZeroIsEmpty(t *testing.T) {
	assert.Equal(t, "", FormatUnix(time.Time{}))
	assert.NotEqual(t, "", FormatUnix(time.Unix(0, 1)))
}

func TestBoolDigit(t *testing.T) {
	assert.Equal(t, "1", BoolDigit(true))
	assert.Equal(t, "0", BoolDigit(false))
}
