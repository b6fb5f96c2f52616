// Package eyetracker implements the eye-tracker module: it produces three simultaneous CSV streams per trial - gaze
// (36 columns), IMU (19 columns), and discrete events (24 columns) -
// which the single-pipeline-per-module internal/modules/base scaffold
// cannot carry on its own. The gaze stream rides base.Module's normal
// pipeline (the timing-critical, TimingWithGaze stream); the IMU and
// event streams are two further internal/pipeline.Pipeline instances
// this package owns directly and drives for the lifetime of one
// recording run, alongside internal/api/plugins/eyetracker's gaze/IMU
// REST routes.
package eyetracker

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"path/filepath"
	"sync"
	"time"

	"github.com/JoelCooperPhD/sessionctl/internal/config"
	"github.com/JoelCooperPhD/sessionctl/internal/logging"
	"github.com/JoelCooperPhD/sessionctl/internal/modules/base"
	"github.com/JoelCooperPhD/sessionctl/internal/modules/csvutil"
	"github.com/JoelCooperPhD/sessionctl/internal/modules/simsource"
	"github.com/JoelCooperPhD/sessionctl/internal/pipeline"
	"github.com/JoelCooperPhD/sessionctl/internal/protocol"
	"github.com/JoelCooperPhD/sessionctl/internal/runtime"
)

// gazeHeader, imuHeader, and eventsHeader are the three eye-tracker
// CSV schemas.
const (
	gazeHeader = "trial,module,device_id,label,record_time_unix,record_time_mono," +
		"gaze_timestamp_unix,gaze_x,gaze_y,gaze_x_left,gaze_y_left," +
		"gaze_x_right,gaze_y_right,pupil_diameter_mm,pupil_diameter_left_mm," +
		"pupil_diameter_right_mm,eye_openness_left,eye_openness_right," +
		"confidence,gaze_3d_x,gaze_3d_y,gaze_3d_z,head_pos_x,head_pos_y," +
		"head_pos_z,head_rot_x,head_rot_y,head_rot_z,fixation_id," +
		"saccade_flag,blink_flag,validity_left,validity_right," +
		"display_x_px,display_y_px,camera_frame_index"

	imuHeader = "trial,module,device_id,label,record_time_unix,record_time_mono," +
		"imu_timestamp_unix,imu_timestamp_mono,accel_x,accel_y,accel_z," +
		"gyro_x,gyro_y,gyro_z,mag_x,mag_y,mag_z,temperature_c,sample_index"

	eventsHeader = "trial,module,device_id,label,record_time_unix,record_time_mono," +
		"event_timestamp_unix,event_type,event_data,duration_ms," +
		"start_timestamp_unix,end_timestamp_unix,severity,source," +
		"correlation_id,sequence_number,is_synthetic,raw_payload," +
		"previous_event_type,time_since_last_event_ms,session_id," +
		"trial_label,operator_note,extra_metadata"

	defaultGazeFPS  = 60.0
	defaultIMUFPS   = 100.0
	defaultEventFPS = 2.0
)

var started = time.Now()

// report holds the last gaze and IMU sample, shared between the
// capture loops and the get_status/REST handlers.
type report struct {
	mu                     sync.Mutex
	gazeX, gazeY           float64
	pupilDiameterMM        float64
	gazeTimestampUnix      float64
	accelX, accelY, accelZ float64
	gyroX, gyroY, gyroZ    float64
}

func (r *report) setGaze(x, y, pupil, ts float64) {
	r.mu.Lock()
	r.gazeX, r.gazeY, r.pupilDiameterMM, r.gazeTimestampUnix = x, y, pupil, ts
	r.mu.Unlock()
}

func (r *report) setIMU(ax, ay, az, gx, gy, gz float64) {
	r.mu.Lock()
	r.accelX, r.accelY, r.accelZ = ax, ay, az
	r.gyroX, r.gyroY, r.gyroZ = gx, gy, gz
	r.mu.Unlock()
}

func (r *report) snapshot() report {
	r.mu.Lock()
	defer r.mu.Unlock()
	return report{
		gazeX: r.gazeX, gazeY: r.gazeY, pupilDiameterMM: r.pupilDiameterMM, gazeTimestampUnix: r.gazeTimestampUnix,
		accelX: r.accelX, accelY: r.accelY, accelZ: r.accelZ,
		gyroX: r.gyroX, gyroY: r.gyroY, gyroZ: r.gyroZ,
	}
}

// NewConfig builds the base.Config for the eye-tracker module. cfgMgr
// options live under the "eyetracker." prefix. The gaze
// stream is wired as base.Module's own pipeline (TimingWithGaze
// enabled); IMU and events run as two further pipelines this
// package's Source owns for the run's lifetime.
func NewConfig(defaultSessionDir string, cfgMgr *config.Manager) base.Config {
	gazeFPS := cfgMgr.Float("eyetracker.gaze_rate_hz", defaultGazeFPS)
	imuFPS := cfgMgr.Float("eyetracker.imu_rate_hz", defaultIMUFPS)
	eventFPS := cfgMgr.Float("eyetracker.event_rate_hz", defaultEventFPS)
	rep := &report{}

	return base.Config{
		Name:              "eyetracker",
		MediaExtension:    "_gaze.csv",
		FPS:               gazeFPS,
		QueueCapacity:     queueCapacity(gazeFPS),
		TimingWithGaze:    true,
		DefaultSessionDir: defaultSessionDir,
		NewWriter: func(outputPath string) (pipeline.Writer, error) {
			return pipeline.NewCSVRowWriter(outputPath, gazeHeader)
		},
		NewSource: func(m *base.Module) (base.Source, error) {
			return newSource(m, rep, gazeFPS, imuFPS, eventFPS), nil
		},
		ExtraHandlers: func(m *base.Module) map[string]runtime.HandlerFunc {
			return map[string]runtime.HandlerFunc{
				protocol.CmdGetStatus: func(ctx context.Context, cmd protocol.Command) error {
					return m.StatusWriter().Send(protocol.StatusReport, reportFields(m, rep))
				},
			}
		},
	}
}

func reportFields(m *base.Module, rep *report) map[string]interface{} {
	fields := m.ReportFields()
	snap := rep.snapshot()
	fields["gaze_x"] = snap.gazeX
	fields["gaze_y"] = snap.gazeY
	fields["pupil_diameter_mm"] = snap.pupilDiameterMM
	fields["gaze_timestamp_unix"] = snap.gazeTimestampUnix
	fields["accel_x"] = snap.accelX
	fields["accel_y"] = snap.accelY
	fields["accel_z"] = snap.accelZ
	fields["gyro_x"] = snap.gyroX
	fields["gyro_y"] = snap.gyroY
	fields["gyro_z"] = snap.gyroZ
	return fields
}

func queueCapacity(fps float64) int {
	c := int(2 * fps)
	if c < 30 {
		c = 30
	}
	return c
}

// source drives the gaze generator fed to base.Module's pipeline via
// the submit callback, and internally owns the IMU and events
// pipelines for the same recording run.
type source struct {
	m        *base.Module
	rep      *report
	gazeFPS  float64
	imuFPS   float64
	eventFPS float64
	rng      *rand.Rand

	sidecarsWG sync.WaitGroup
	imuPl      *pipeline.Pipeline
	eventsPl   *pipeline.Pipeline
	runCtx     context.Context
}

func newSource(m *base.Module, rep *report, gazeFPS, imuFPS, eventFPS float64) *source {
	return &source{m: m, rep: rep, gazeFPS: gazeFPS, imuFPS: imuFPS, eventFPS: eventFPS, rng: rand.New(rand.NewSource(time.Now().UnixNano()))}
}

// Start drives the gaze generator directly and launches the IMU and
// events pipelines as sibling goroutines, all sharing ctx's lifetime.
func (s *source) Start(ctx context.Context, submit func(pipeline.Frame)) error {
	s.runCtx = ctx
	trial, label, sessionDir, _, _ := s.m.Context()
	log := logging.New("eyetracker")

	imuWriter, err := pipeline.NewCSVRowWriter(sidecarPath(sessionDir, trial, label, "imu"), imuHeader)
	if err != nil {
		return fmt.Errorf("create imu writer: %w", err)
	}
	s.imuPl, err = pipeline.New(pipeline.Config{
		FPS:           s.imuFPS,
		QueueCapacity: queueCapacity(s.imuFPS),
		TimingCSVPath: sidecarTimingPath(sessionDir, trial, label, "imu"),
		Writer:        imuWriter,
	}, log)
	if err != nil {
		_ = imuWriter.Close()
		return fmt.Errorf("create imu pipeline: %w", err)
	}

	eventsWriter, err := pipeline.NewCSVRowWriter(sidecarPath(sessionDir, trial, label, "events"), eventsHeader)
	if err != nil {
		return fmt.Errorf("create events writer: %w", err)
	}
	s.eventsPl, err = pipeline.New(pipeline.Config{
		FPS:           s.eventFPS,
		QueueCapacity: 30,
		TimingCSVPath: sidecarTimingPath(sessionDir, trial, label, "events"),
		Writer:        eventsWriter,
	}, log)
	if err != nil {
		_ = eventsWriter.Close()
		return fmt.Errorf("create events pipeline: %w", err)
	}

	s.imuPl.Start(ctx)
	s.eventsPl.Start(ctx)

	imuLoop := simsource.NewLoop(s.imuFPS, s.generateIMU)
	eventsLoop := simsource.NewLoop(s.eventFPS, s.generateEvent)

	s.sidecarsWG.Add(2)
	go func() {
		defer s.sidecarsWG.Done()
		_ = imuLoop.Start(ctx, s.imuPl.Submit)
	}()
	go func() {
		defer s.sidecarsWG.Done()
		_ = eventsLoop.Start(ctx, s.eventsPl.Submit)
	}()

	return s.runGaze(ctx, submit)
}

// runGaze drives the gaze generator directly at the module's
// configured FPS (base.Module already starts its own timer/queue/
// writer chain at that rate; this loop only needs to call submit).
func (s *source) runGaze(ctx context.Context, submit func(pipeline.Frame)) error {
	trial, label, _, deviceID, _ := s.m.Context()
	loop := simsource.NewLoop(s.gazeFPS, func(seq int64, now time.Time) (pipeline.Frame, bool) {
		return s.generateGaze(seq, now, trial, label, deviceID), true
	})
	return loop.Start(ctx, submit)
}

// Close waits for the sidecar generator loops to exit, then drains
// and releases both sidecar pipelines. It must only be called after
// the context passed to Start has been cancelled: Pipeline.Stop
// blocks until the timer context ends before closing the queue.
func (s *source) Close() error {
	s.sidecarsWG.Wait()
	var errs []error
	if s.imuPl != nil {
		if err := s.imuPl.Stop(s.runCtx); err != nil {
			errs = append(errs, err)
		}
	}
	if s.eventsPl != nil {
		if err := s.eventsPl.Stop(s.runCtx); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return errs[0]
	}
	return nil
}

func (s *source) generateGaze(seq int64, now time.Time, trial int, label, deviceID string) pipeline.Frame {
	t := now.Sub(started).Seconds()
	x := 0.5 + 0.3*math.Sin(t*0.7)
	y := 0.5 + 0.3*math.Cos(t*0.5)
	pupil := 3.2 + 0.3*math.Sin(t*0.2)

	s.rep.setGaze(x, y, pupil, float64(now.UnixNano())/1e9)

	fields := csvutil.StandardPrefix(trial, "eyetracker", deviceID, label, float64(now.UnixNano())/1e9, t)
	fields = append(fields,
		csvutil.FormatUnix(now),
		csvutil.FormatFloat(x), csvutil.FormatFloat(y),
		csvutil.FormatFloat(x), csvutil.FormatFloat(y), // left eye mirrors combined gaze in simulation
		csvutil.FormatFloat(x), csvutil.FormatFloat(y), // right eye mirrors combined gaze in simulation
		csvutil.FormatFloat(pupil),
		csvutil.FormatFloat(pupil), csvutil.FormatFloat(pupil),
		"1.0", "1.0", // eye_openness_left, eye_openness_right
		"0.95",       // confidence
		csvutil.FormatFloat(x), csvutil.FormatFloat(y), "0.6", // gaze_3d_x/y/z
		"0.0", "0.0", "0.0", // head_pos_x/y/z
		"0.0", "0.0", "0.0", // head_rot_x/y/z
		"0",          // fixation_id
		"0", "0",     // saccade_flag, blink_flag
		"1", "1",     // validity_left, validity_right
		csvutil.FormatFloat(x*1920), csvutil.FormatFloat(y*1080), // display_x_px, display_y_px
		fmt.Sprintf("%d", seq),
	)
	row := csvutil.Row(fields...)

	_ = s.m.StatusWriter().Send(protocol.StatusReport, reportFields(s.m, s.rep))

	return pipeline.Frame{
		Payload:           row,
		CaptureUnix:       now,
		CameraFrameIndex:  seq,
		GazeTimestampUnix: now,
		HasGazeTimestamp:  true,
	}
}

func (s *source) generateIMU(seq int64, now time.Time) (pipeline.Frame, bool) {
	trial, label, _, deviceID, _ := s.m.Context()
	t := now.Sub(started).Seconds()

	ax, ay, az := 0.01*math.Sin(t*2), 0.01*math.Cos(t*2), 9.81
	gx, gy, gz := 0.001*math.Sin(t), 0.001*math.Cos(t), 0.0

	s.rep.setIMU(ax, ay, az, gx, gy, gz)

	fields := csvutil.StandardPrefix(trial, "eyetracker", deviceID, label, float64(now.UnixNano())/1e9, t)
	fields = append(fields,
		csvutil.FormatUnix(now),
		csvutil.FormatFloat(t),
		csvutil.FormatFloat(ax), csvutil.FormatFloat(ay), csvutil.FormatFloat(az),
		csvutil.FormatFloat(gx), csvutil.FormatFloat(gy), csvutil.FormatFloat(gz),
		"0.0", "0.0", "0.0", // mag_x/y/z
		"36.5", // temperature_c
		fmt.Sprintf("%d", seq),
	)
	return pipeline.Frame{Payload: csvutil.Row(fields...), CaptureUnix: now, CameraFrameIndex: seq}, true
}

var eventTypes = []string{"blink", "saccade_start", "saccade_end", "fixation_start", "fixation_end"}

func (s *source) generateEvent(seq int64, now time.Time) (pipeline.Frame, bool) {
	trial, label, sessionDir, deviceID, _ := s.m.Context()
	t := now.Sub(started).Seconds()

	kind := eventTypes[s.rng.Intn(len(eventTypes))]
	fields := csvutil.StandardPrefix(trial, "eyetracker", deviceID, label, float64(now.UnixNano())/1e9, t)
	fields = append(fields,
		csvutil.FormatUnix(now),
		kind,
		"",                                    // event_data
		csvutil.FormatFloat(50+s.rng.Float64()*200),
		csvutil.FormatUnix(now),
		csvutil.FormatUnix(now),
		"info",                                // severity
		"eyetracker",                          // source
		fmt.Sprintf("evt-%d", seq),            // correlation_id
		fmt.Sprintf("%d", seq),
		"1", // is_synthetic: simulated stream
		"",  // raw_payload
		"",  // previous_event_type
		csvutil.FormatFloat(1.0/s.eventFPS),
		sessionDir,
		label,
		"", // operator_note
		"", // extra_metadata
	)
	return pipeline.Frame{Payload: csvutil.Row(fields...), CaptureUnix: now, CameraFrameIndex: seq}, true
}

// Sidecar files live in the same per-module subdirectory the gaze
// stream's media and timing files land in.
func sidecarPath(sessionDir string, trial int, label, suffix string) string {
	return filepath.Join(sessionDir, "eyetracker", fmt.Sprintf("eyetracker_trial%03d_%s_%s.csv", trial, label, suffix))
}

func sidecarTimingPath(sessionDir string, trial int, label, suffix string) string {
	return filepath.Join(sessionDir, "eyetracker", fmt.Sprintf("eyetracker_trial%03d_%s_%s_timing.csv", trial, label, suffix))
}
