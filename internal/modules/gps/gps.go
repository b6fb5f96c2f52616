// Package gps implements the GPS module: a 1Hz fix
// source rendering NMEA-derived rows into the 26-column GPS CSV and
// keeping the last fix available for internal/api/plugins/gps.
package gps

import (
	"context"
	"fmt"
	"math"
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

// csvHeader is the 26-column GPS schema: the 6-column
// standard prefix followed by 20 NMEA-derived fields.
const csvHeader = "trial,module,device_id,label,record_time_unix,record_time_mono," +
	"latitude_deg,longitude_deg,altitude_m,fix_valid,fix_quality,satellites_used," +
	"hdop,vdop,pdop,speed_knots,track_angle_deg,magnetic_variation_deg," +
	"utc_time,utc_date,nmea_sentence,checksum_valid,gps_mode,num_sentences_parsed," +
	"last_error,age_of_fix_s"

const defaultFixRateHz = 1.0

var started = time.Now()

// fix holds the most recently computed position, shared between the
// capture loop and the get_status/REST handlers.
type fix struct {
	mu       sync.Mutex
	lat, lon float64
	valid    bool
	sentence string
}

func (f *fix) set(lat, lon float64, valid bool, sentence string) {
	f.mu.Lock()
	f.lat, f.lon, f.valid, f.sentence = lat, lon, valid, sentence
	f.mu.Unlock()
}

func (f *fix) snapshot() (float64, float64, bool, string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lat, f.lon, f.valid, f.sentence
}

// NewConfig builds the base.Config for the GPS module. cfgMgr options
// live under the "gps." prefix.
func NewConfig(defaultSessionDir string, cfgMgr *config.Manager) base.Config {
	fps := cfgMgr.Float("gps.fix_rate_hz", defaultFixRateHz)
	last := &fix{}

	return base.Config{
		Name:              "gps",
		MediaExtension:    ".csv",
		FPS:               fps,
		QueueCapacity:     30,
		DefaultSessionDir: defaultSessionDir,
		NewWriter: func(outputPath string) (pipeline.Writer, error) {
			return pipeline.NewCSVRowWriter(outputPath, csvHeader)
		},
		NewSource: func(m *base.Module) (base.Source, error) {
			return newSource(m, last, fps), nil
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

func reportFields(m *base.Module, last *fix) map[string]interface{} {
	fields := m.ReportFields()
	lat, lon, valid, sentence := last.snapshot()
	fields["latitude_deg"] = lat
	fields["longitude_deg"] = lon
	fields["fix_valid"] = valid
	fields["nmea_sentence"] = sentence
	return fields
}

// source generates a simulated fix orbiting a fixed base position.
type source struct {
	loop            *simsource.Loop
	m               *base.Module
	last            *fix
	baseLat, baseLon float64
}

func newSource(m *base.Module, last *fix, fps float64) *source {
	s := &source{m: m, last: last, baseLat: 40.015, baseLon: -105.270}
	s.loop = simsource.NewLoop(fps, s.generate)
	return s
}

func (s *source) Start(ctx context.Context, submit func(pipeline.Frame)) error {
	return s.loop.Start(ctx, submit)
}

func (s *source) Close() error { return s.loop.Close() }

func (s *source) generate(seq int64, now time.Time) (pipeline.Frame, bool) {
	elapsed := now.Sub(started).Seconds()
	lat := s.baseLat + 0.0005*math.Sin(elapsed/20)
	lon := s.baseLon + 0.0005*math.Cos(elapsed/20)
	speedKnots := 2.5
	track := math.Mod(elapsed*3, 360)
	altitude := 1580.0 + 5*math.Sin(elapsed/30)
	utcTime := now.UTC().Format("150405.00")
	utcDate := now.UTC().Format("020106")
	sentence := fmt.Sprintf("$GPGGA,%s,%09.4f,N,%010.4f,W,1,08,0.9,%05.1f,M,0,M,,*47",
		utcTime, lat*100, math.Abs(lon)*100, altitude)

	s.last.set(lat, lon, true, sentence)

	trial, label, _, deviceID, _ := s.m.Context()
	fields := csvutil.StandardPrefix(trial, "gps", deviceID, label, float64(now.UnixNano())/1e9, elapsed)
	fields = append(fields,
		csvutil.FormatFloat(lat),
		csvutil.FormatFloat(lon),
		csvutil.FormatFloat(altitude),
		"1", // fix_valid
		"1", // fix_quality: GPS fix, as in the GGA sentence
		"8", // satellites_used
		"0.9", "1.1", "1.4", // hdop, vdop, pdop
		csvutil.FormatFloat(speedKnots),
		csvutil.FormatFloat(track),
		"0.0", // magnetic_variation_deg
		utcTime,
		utcDate,
		sentence,
		"1",  // checksum_valid
		"3d", // gps_mode
		"1",  // num_sentences_parsed
		"",   // last_error
		"0.0", // age_of_fix_s: every simulated tick produces a fresh fix
	)
	row := csvutil.Row(fields...)

	_ = s.m.StatusWriter().Send(protocol.StatusReport, reportFields(s.m, s.last))

	return pipeline.Frame{Payload: row, CaptureUnix: now, CameraFrameIndex: seq}, true
}
