package audio

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestQueueCapacityHasFloor(t *testing.T) {
	assert.Equal(t, 30, queueCapacity(5))
	assert.Equal(t, 100, queueCapacity(50))
}

func TestAmplitudeToDBClampsSilence(t *testing.T) {
	assert.Equal(t, -96.0, amplitudeToDB(0))
	assert.InDelta(t, 0, amplitudeToDB(1), 1e-9)
}

func TestGenerateProducesCorrectSampleCountAndUpdatesLevels(t *testing.T) {
	lv := &levels{}
	s := newSource(16000, 50, lv, nil)

	f := s.generate(1, time.Now(), 320)
	assert.Len(t, f.Payload, 320*2) // 16-bit mono samples

	peak, rms, clipping := lv.snapshot()
	assert.Greater(t, peak, -96.0)
	assert.Greater(t, rms, -96.0)
	assert.False(t, clipping)
}

func TestGenerateNeverClipsBelowHalfAmplitude(t *testing.T) {
	lv := &levels{}
	s := newSource(16000, 50, lv, nil)
	for i := 0; i < reportEveryNTicks-1; i++ {
		f := s.generate(int64(i), time.Now(), 10)
		for j := 0; j+1 < len(f.Payload); j += 2 {
			sample := int16(uint16(f.Payload[j]) | uint16(f.Payload[j+1])<<8)
			assert.LessOrEqual(t, math.Abs(float64(sample)), float64(math.MaxInt16)*0.5+1)
		}
	}
}
