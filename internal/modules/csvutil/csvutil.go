// Package csvutil renders one CSV row from a slice of fields, reusing
// encoding/csv's quoting rules so free-text fields (notes, NMEA
// sentences, event payloads) are escaped exactly like every other CSV
// writer in this module. StandardPrefix and the Format helpers mirror the
// formatting idiom internal/pipeline/timingcsv.go uses for its own
// header, so every module CSV renders floats and timestamps the same
// way the timing CSV does.
package csvutil

import (
	"bytes"
	"encoding/csv"
	"strconv"
	"time"
)

// Row renders fields as one CSV record, without a trailing line
// terminator - pipeline.CSVRowWriter appends its own "\n" per frame.
func Row(fields ...string) []byte {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	// Row rendering never fails for string fields; csv.Writer only
	// returns an error from the underlying io.Writer, and bytes.Buffer
	// never does.
	_ = w.Write(fields)
	w.Flush()
	return bytes.TrimRight(buf.Bytes(), "\r\n")
}

// StandardPrefix renders the six leading columns every module CSV
// shares: trial, module, device_id, label,
// record_time_unix, record_time_mono.
func StandardPrefix(trial int, module, deviceID, label string, recordTimeUnix, recordTimeMono float64) []string {
	return []string{
		strconv.Itoa(trial),
		module,
		deviceID,
		label,
		FormatFloat(recordTimeUnix),
		FormatFloat(recordTimeMono),
	}
}

// FormatFloat renders a float with the same precision and format
// pipeline.TimingCSV uses for its own numeric columns.
func FormatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', 6, 64)
}

// FormatUnix renders t as Unix seconds, or "" for the zero value.
func FormatUnix(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return FormatFloat(float64(t.UnixNano()) / 1e9)
}

// BoolDigit renders b as "1" or "0", matching every other boolean
// column in this module's CSV outputs.
func BoolDigit(b bool) string {
	if b {
		return "1"
	}
	return "0"
}
