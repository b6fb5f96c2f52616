// Package vog implements the vision-occlusion goggles module: a simulated open/closed occlusion cycle rendering rows
// into the 8-column (wired) or 11-column (wireless, +lens,
// battery_percent, signal_strength) CSV schema, with a lens-switch
// command for internal/api/plugins/vog.
package vog

import (
	"context"
	"fmt"
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
		"occlusion_state,transition_time_ms"
	wirelessHeader = simpleHeader + ",lens,battery_percent,signal_strength"

	defaultCycleRateHz = 1.0
)

var started = time.Now()

// state holds the last occlusion/lens/battery readings, shared
// between the capture loop and the get_status/REST/set_lens handlers.
type state struct {
	mu             sync.Mutex
	lens           string
	occlusionState string
	transitionMS   float64
	battery        float64
	signal         float64
}

func (s *state) setLens(lens string) {
	s.mu.Lock()
	s.lens = lens
	s.mu.Unlock()
}

func (s *state) update(occlusionState string, transitionMS, battery, signal float64) {
	s.mu.Lock()
	s.occlusionState, s.transitionMS, s.battery, s.signal = occlusionState, transitionMS, battery, signal
	s.mu.Unlock()
}

func (s *state) snapshot() (lens, occlusionState string, transitionMS, battery, signal float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lens, s.occlusionState, s.transitionMS, s.battery, s.signal
}

// NewConfig builds the base.Config for the VOG module. cfgMgr options
// live under the "vog." prefix; vog.wireless selects the
// 11-column lens/battery/signal-reporting variant.
func NewConfig(defaultSessionDir string, cfgMgr *config.Manager) base.Config {
	wireless := cfgMgr.Bool("vog.wireless", false)
	fps := cfgMgr.Float("vog.cycle_rate_hz", defaultCycleRateHz)
	st := &state{lens: "A"}

	header := simpleHeader
	if wireless {
		header = wirelessHeader
	}

	return base.Config{
		Name:              "vog",
		MediaExtension:    ".csv",
		FPS:               fps,
		QueueCapacity:     30,
		DefaultSessionDir: defaultSessionDir,
		NewWriter: func(outputPath string) (pipeline.Writer, error) {
			return pipeline.NewCSVRowWriter(outputPath, header)
		},
		NewSource: func(m *base.Module) (base.Source, error) {
			return newSource(m, st, fps, wireless), nil
		},
		ExtraHandlers: func(m *base.Module) map[string]runtime.HandlerFunc {
			return map[string]runtime.HandlerFunc{
				protocol.CmdGetStatus: func(ctx context.Context, cmd protocol.Command) error {
					return m.StatusWriter().Send(protocol.StatusReport, reportFields(m, st))
				},
				"set_lens": func(ctx context.Context, cmd protocol.Command) error {
					lens := cmd.Get("lens")
					switch lens {
					case "A", "B", "X":
					default:
						return fmt.Errorf("set_lens: invalid lens %q", lens)
					}
					st.setLens(lens)
					return m.StatusWriter().Send(protocol.StatusReport, reportFields(m, st))
				},
			}
		},
	}
}

func reportFields(m *base.Module, st *state) map[string]interface{} {
	fields := m.ReportFields()
	lens, occlusionState, _, battery, signal := st.snapshot()
	fields["lens"] = lens
	fields["occlusion_state"] = occlusionState
	fields["battery_percent"] = battery
	fields["signal_strength"] = signal
	return fields
}

// source generates a simulated open/closed occlusion cycle.
type source struct {
	loop     *simsource.Loop
	m        *base.Module
	st       *state
	wireless bool
	rng      *rand.Rand
	open     bool
	battery  float64
	tick     int64
}

func newSource(m *base.Module, st *state, fps float64, wireless bool) *source {
	s := &source{m: m, st: st, wireless: wireless, rng: rand.New(rand.NewSource(time.Now().UnixNano())), battery: 100, open: true}
	s.loop = simsource.NewLoop(fps, s.generate)
	return s
}

func (s *source) Start(ctx context.Context, submit func(pipeline.Frame)) error {
	return s.loop.Start(ctx, submit)
}

func (s *source) Close() error { return s.loop.Close() }

func (s *source) generate(seq int64, now time.Time) (pipeline.Frame, bool) {
	s.open = !s.open
	occlusionState := "closed"
	if s.open {
		occlusionState = "open"
	}
	transitionMS := 15.0 + s.rng.Float64()*10.0
	signal := -40.0 - s.rng.Float64()*20.0

	s.tick++
	if s.wireless && s.tick%5 == 0 {
		s.battery -= 0.1
		if s.battery < 0 {
			s.battery = 0
		}
	}
	s.st.update(occlusionState, transitionMS, s.battery, signal)

	trial, label, _, deviceID, _ := s.m.Context()
	lens, _, _, _, _ := s.st.snapshot()
	elapsed := now.Sub(started).Seconds()
	fields := csvutil.StandardPrefix(trial, "vog", deviceID, label, float64(now.UnixNano())/1e9, elapsed)
	fields = append(fields,
		occlusionState,
		csvutil.FormatFloat(transitionMS),
	)
	if s.wireless {
		fields = append(fields,
			lens,
			csvutil.FormatFloat(s.battery),
			csvutil.FormatFloat(signal),
		)
	}
	row := csvutil.Row(fields...)

	_ = s.m.StatusWriter().Send(protocol.StatusReport, reportFields(s.m, s.st))

	return pipeline.Frame{Payload: row, CaptureUnix: now, CameraFrameIndex: seq}, true
}
