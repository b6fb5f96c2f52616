// Package drt implements the detection-response-time module: a simulated stimulus/response cycle rendering rows into
// the 10-column (wired) or 11-column (wireless, +battery_percent)
// CSV schema, and keeping the last trial available for
// internal/api/plugins/drt.
package drt

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/JoelCooperPhD/sessionctl/internal/config"
	"github.com/JoelCooperPhD/sessionctl/internal/modules/base"
	"github.com/JoelCooperPhD/sessionctl/internal/modules/csvutil"
	"github.com/JoelCooperPhD/sessionctl/internal/modules/simsource"
	"github.com/JoelCooperPhD/sessionctl/internal/pipeline"
	"github.com/JoelCooperPhD/sessionctl/internal/protocol"
	"github.com/JoelCooperPhD/sessionctl/internal/runtime"
)

const (
	simpleHeader = "trial,module,device_id,label,record_time_unix,record_time_mono," +
		"stimulus_onset_unix,response_time_unix,reaction_time_ms,is_timeout"
	wirelessHeader = simpleHeader + ",battery_percent"

	defaultTrialRateHz = 0.3 // roughly one stimulus every 3 seconds
	timeoutChance      = 0.05
)

var started = time.Now()

// report holds the most recent trial outcome, shared between the
// capture loop and the get_status/REST handlers.
type report struct {
	mu         sync.Mutex
	reactionMs float64
	battery    float64
}

func (r *report) set(reactionMs, battery float64) {
	r.mu.Lock()
	r.reactionMs, r.battery = reactionMs, battery
	r.mu.Unlock()
}

func (r *report) snapshot() (float64, float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.reactionMs, r.battery
}

// NewConfig builds the base.Config for the DRT module. cfgMgr options
// live under the "drt." prefix; drt.wireless selects the
// 11-column battery-reporting variant.
func NewConfig(defaultSessionDir string, cfgMgr *config.Manager) base.Config {
	wireless := cfgMgr.Bool("drt.wireless", false)
	fps := cfgMgr.Float("drt.trial_rate_hz", defaultTrialRateHz)
	last := &report{}

	header := simpleHeader
	if wireless {
		header = wirelessHeader
	}

	return base.Config{
		Name:              "drt",
		MediaExtension:    ".csv",
		FPS:               fps,
		QueueCapacity:     30,
		DefaultSessionDir: defaultSessionDir,
		NewWriter: func(outputPath string) (pipeline.Writer, error) {
			return pipeline.NewCSVRowWriter(outputPath, header)
		},
		NewSource: func(m *base.Module) (base.Source, error) {
			return newSource(m, last, fps, wireless), nil
		},
		ExtraHandlers: func(m *base.Module) map[string]runtime.HandlerFunc {
			return map[string]runtime.HandlerFunc{
				protocol.CmdGetStatus: func(ctx context.Context, cmd protocol.Command) error {
					return m.StatusWriter().Send(protocol.StatusReport, reportFields(m, last))
				},
			}
		},
	}
}

func reportFields(m *base.Module, last *report) map[string]interface{} {
	fields := m.ReportFields()
	reactionMs, battery := last.snapshot()
	fields["reaction_time_ms"] = reactionMs
	fields["battery_percent"] = battery
	return fields
}

// source generates a simulated stimulus/response cycle.
type source struct {
	loop     *simsource.Loop
	m        *base.Module
	last     *report
	wireless bool
	rng      *rand.Rand
	battery  float64
	tick     int64
}

func newSource(m *base.Module, last *report, fps float64, wireless bool) *source {
	s := &source{m: m, last: last, wireless: wireless, rng: rand.New(rand.NewSource(time.Now().UnixNano())), battery: 100}
	s.loop = simsource.NewLoop(fps, s.generate)
	return s
}

func (s *source) Start(ctx context.Context, submit func(pipeline.Frame)) error {
	return s.loop.Start(ctx, submit)
}

func (s *source) Close() error { return s.loop.Close() }

func (s *source) generate(seq int64, now time.Time) (pipeline.Frame, bool) {
	onset := now.Add(-time.Duration(300+s.rng.Intn(400)) * time.Millisecond)
	reactionMs := 250.0 + s.rng.Float64()*350.0
	isTimeout := s.rng.Float64() < timeoutChance
	responseUnix := now
	if isTimeout {
		reactionMs = -1
		responseUnix = time.Time{}
	}

	s.tick++
	if s.wireless && s.tick%10 == 0 {
		s.battery -= 0.1
		if s.battery < 0 {
			s.battery = 0
		}
	}
	s.last.set(reactionMs, s.battery)

	trial, label, _, deviceID, _ := s.m.Context()
	elapsed := now.Sub(started).Seconds()
	fields := csvutil.StandardPrefix(trial, "drt", deviceID, label, float64(now.UnixNano())/1e9, elapsed)
	fields = append(fields,
		csvutil.FormatUnix(onset),
		csvutil.FormatUnix(responseUnix),
		csvutil.FormatFloat(reactionMs),
		csvutil.BoolDigit(isTimeout),
	)
	if s.wireless {
		fields = append(fields, csvutil.FormatFloat(s.battery))
	}
	row := csvutil.Row(fields...)

	_ = s.m.StatusWriter().Send(protocol.StatusReport, reportFields(s.m, s.last))

	return pipeline.Frame{Payload: row, CaptureUnix: now, CameraFrameIndex: seq}, true
}
