// Package audio implements the audio capture module: a
// fixed-rate PCM source feeding internal/modules/base's shared
// pipeline, writing a WAV file per trial alongside the level-meter
// state internal/api/plugins/audio reads back over REST.
package audio

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/JoelCooperPhD/sessionctl/internal/config"
	"github.com/JoelCooperPhD/sessionctl/internal/modules/base"
	"github.com/JoelCooperPhD/sessionctl/internal/modules/simsource"
	"github.com/JoelCooperPhD/sessionctl/internal/pipeline"
	"github.com/JoelCooperPhD/sessionctl/internal/protocol"
	"github.com/JoelCooperPhD/sessionctl/internal/runtime"
)

const (
	defaultSampleRate = 16000
	defaultChunkFPS   = 50.0 // 20ms PCM chunks
	defaultPreviewHz  = 20.0
	toneHz            = 440.0
	reportEveryNTicks = 25 // ~twice a second at the default chunk rate
)

// levels holds the most recently computed level-meter reading, shared
// between the capture loop and the get_status/preview handlers.
type levels struct {
	mu       sync.Mutex
	peakDB   float64
	rmsDB    float64
	clipping bool
}

func (l *levels) set(peakDB, rmsDB float64, clipping bool) {
	l.mu.Lock()
	l.peakDB, l.rmsDB, l.clipping = peakDB, rmsDB, clipping
	l.mu.Unlock()
}

func (l *levels) snapshot() (float64, float64, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.peakDB, l.rmsDB, l.clipping
}

// NewConfig builds the base.Config for the audio module. cfgMgr
// options live under the "audio." prefix.
func NewConfig(defaultSessionDir string, cfgMgr *config.Manager) base.Config {
	sampleRate := cfgMgr.Int("audio.sample_rate", defaultSampleRate)
	fps := cfgMgr.Float("audio.chunk_rate_hz", defaultChunkFPS)
	previewHz := cfgMgr.Float("audio.preview_hz", defaultPreviewHz)
	lv := &levels{}

	return base.Config{
		Name:              "audio",
		MediaExtension:    ".wav",
		FPS:               fps,
		QueueCapacity:     queueCapacity(fps),
		DefaultSessionDir: defaultSessionDir,
		PreviewHz:         previewHz,
		NewWriter: func(outputPath string) (pipeline.Writer, error) {
			return pipeline.NewWAVWriter(outputPath, sampleRate, 1, 16)
		},
		NewSource: func(m *base.Module) (base.Source, error) {
			return newSource(sampleRate, fps, lv, m), nil
		},
		PreviewTick: func(m *base.Module) {
			_ = m.StatusWriter().Send(protocol.StatusPreviewFrame, reportFields(m, lv))
		},
		ExtraHandlers: func(m *base.Module) map[string]runtime.HandlerFunc {
			return map[string]runtime.HandlerFunc{
				protocol.CmdGetStatus: func(ctx context.Context, cmd protocol.Command) error {
					return m.StatusWriter().Send(protocol.StatusReport, reportFields(m, lv))
				},
				protocol.CmdToggleDevice: func(ctx context.Context, cmd protocol.Command) error {
					return m.StatusWriter().Send(protocol.StatusReport, reportFields(m, lv))
				},
			}
		},
	}
}

func reportFields(m *base.Module, lv *levels) map[string]interface{} {
	fields := m.ReportFields()
	peak, rms, clip := lv.snapshot()
	fields["peak_level_db"] = peak
	fields["rms_level_db"] = rms
	fields["clipping"] = clip
	return fields
}

func queueCapacity(fps float64) int {
	c := int(2 * fps)
	if c < 30 {
		c = 30
	}
	return c
}

// source generates a simulated sine-tone PCM stream and keeps the shared
// levels state current for the report handlers above.
type source struct {
	loop       *simsource.Loop
	sampleRate int
	lv         *levels
	m          *base.Module
	phase      float64
	tick       int64
}

func newSource(sampleRate int, fps float64, lv *levels, m *base.Module) *source {
	s := &source{sampleRate: sampleRate, lv: lv, m: m}
	samplesPerTick := int(float64(sampleRate) / fps)
	if samplesPerTick < 1 {
		samplesPerTick = 1
	}
	s.loop = simsource.NewLoop(fps, func(seq int64, now time.Time) (pipeline.Frame, bool) {
		return s.generate(seq, now, samplesPerTick), true
	})
	return s
}

func (s *source) Start(ctx context.Context, submit func(pipeline.Frame)) error {
	return s.loop.Start(ctx, submit)
}

func (s *source) Close() error { return s.loop.Close() }

func (s *source) generate(seq int64, now time.Time, samples int) pipeline.Frame {
	payload := make([]byte, samples*2)
	step := 2 * math.Pi * toneHz / float64(s.sampleRate)

	var peakAbs, sumSquares float64
	for i := 0; i < samples; i++ {
		v := math.Sin(s.phase) * 0.5
		s.phase += step
		sample := int16(v * math.MaxInt16)
		payload[2*i] = byte(sample)
		payload[2*i+1] = byte(sample >> 8)

		abs := math.Abs(v)
		if abs > peakAbs {
			peakAbs = abs
		}
		sumSquares += abs * abs
	}

	rms := math.Sqrt(sumSquares / float64(samples))
	s.lv.set(amplitudeToDB(peakAbs), amplitudeToDB(rms), peakAbs >= 0.999)

	s.tick++
	if s.tick%reportEveryNTicks == 0 {
		_ = s.m.StatusWriter().Send(protocol.StatusReport, reportFields(s.m, s.lv))
	}

	return pipeline.Frame{
		Payload:          payload,
		CaptureUnix:      now,
		CameraFrameIndex: seq,
		RequestedFPS:     0,
	}
}

func amplitudeToDB(v float64) float64 {
	if v <= 0 {
		return -96
	}
	return 20 * math.Log10(v)
}
