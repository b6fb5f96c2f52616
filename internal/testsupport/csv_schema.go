// Package testsupport implements the test harness hooks (component
// C9): CSV column schema constants, timing-invariant assertions built
// on testify, and fake device/status generators so conformance tests
// across internal/pipeline, internal/orchestrator, and internal/registry
// share one source of truth instead of re-deriving column counts.
package testsupport

import "github.com/JoelCooperPhD/sessionctl/internal/pipeline"

// StandardPrefixColumns are columns 1-6 of every module CSV: "trial ≥ 1 integer... record_time_mono strictly monotonically
// increasing within a file".
var StandardPrefixColumns = []string{
	"trial", "module", "device_id", "label", "record_time_unix", "record_time_mono",
}

// TimingCSVColumns/TimingCSVColumnsWithGaze mirror
// pipeline.TimingCSVHeader exactly (18 and 20 columns respectively).
var (
	TimingCSVColumns         = splitHeader(pipeline.TimingCSVHeader)
	TimingCSVColumnsWithGaze = splitHeader(pipeline.TimingCSVHeaderWithGaze)
)

// GPSColumns is the 26-column GPS CSV schema: the 6-column standard
// prefix followed by 20 NMEA-derived fields.
var GPSColumns = append(append([]string{}, StandardPrefixColumns...),
	"latitude_deg", "longitude_deg", "altitude_m", "fix_valid", "fix_quality",
	"satellites_used", "hdop", "vdop", "pdop", "speed_knots",
	"track_angle_deg", "magnetic_variation_deg", "utc_time", "utc_date",
	"nmea_sentence", "checksum_valid", "gps_mode", "num_sentences_parsed",
	"last_error", "age_of_fix_s",
)

// DRTSimpleColumns and DRTWirelessColumns are the response-time CSV
// variants.
var DRTSimpleColumns = append(append([]string{}, StandardPrefixColumns...),
	"stimulus_onset_unix", "response_time_unix", "reaction_time_ms", "is_timeout",
)

var DRTWirelessColumns = append(append([]string{}, DRTSimpleColumns...), "battery_percent")

// VOGSimpleColumns and VOGWirelessColumns are the goggles CSV variants.
var VOGSimpleColumns = append(append([]string{}, StandardPrefixColumns...),
	"occlusion_state", "transition_time_ms",
)

var VOGWirelessColumns = append(append([]string{}, VOGSimpleColumns...),
	"lens", "battery_percent", "signal_strength",
)

// GazeColumns, IMUColumns, and EventsColumns are the three eye-tracker
// CSV schemas.
var GazeColumns = append(append([]string{}, StandardPrefixColumns...),
	"gaze_timestamp_unix", "gaze_x", "gaze_y", "gaze_x_left", "gaze_y_left",
	"gaze_x_right", "gaze_y_right", "pupil_diameter_mm", "pupil_diameter_left_mm",
	"pupil_diameter_right_mm", "eye_openness_left", "eye_openness_right",
	"confidence", "gaze_3d_x", "gaze_3d_y", "gaze_3d_z", "head_pos_x", "head_pos_y",
	"head_pos_z", "head_rot_x", "head_rot_y", "head_rot_z", "fixation_id",
	"saccade_flag", "blink_flag", "validity_left", "validity_right",
	"display_x_px", "display_y_px", "camera_frame_index",
)

var IMUColumns = append(append([]string{}, StandardPrefixColumns...),
	"imu_timestamp_unix", "imu_timestamp_mono", "accel_x", "accel_y", "accel_z",
	"gyro_x", "gyro_y", "gyro_z", "mag_x", "mag_y", "mag_z",
	"temperature_c", "sample_index",
)

var EventsColumns = append(append([]string{}, StandardPrefixColumns...),
	"event_timestamp_unix", "event_type", "event_data", "duration_ms",
	"start_timestamp_unix", "end_timestamp_unix", "severity", "source",
	"correlation_id", "sequence_number", "is_synthetic", "raw_payload",
	"previous_event_type", "time_since_last_event_ms", "session_id",
	"trial_label", "operator_note", "extra_metadata",
)

// NotesColumns is the 8-column notes CSV schema.
var NotesColumns = append(append([]string{}, StandardPrefixColumns...), "note_id", "text")

func splitHeader(header string) []string {
	var cols []string
	start := 0
	for i := 0; i < len(header); i++ {
		if header[i] == ',' {
			cols = append(cols, header[start:i])
			start = i + 1
		}
	}
	cols = append(cols, header[start:])
	return cols
}
