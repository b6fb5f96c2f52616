// Package notes implements the operator note-taking module: an event-driven channel with no periodic capture loop,
// appending one 8-column row per add_note command from
// internal/api/plugins/notes rather than sampling at a fixed rate.
package notes

import (
	"context"
	"fmt"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/JoelCooperPhD/sessionctl/internal/config"
	"github.com/JoelCooperPhD/sessionctl/internal/modules/base"
	"github.com/JoelCooperPhD/sessionctl/internal/modules/csvutil"
	"github.com/JoelCooperPhD/sessionctl/internal/pipeline"
	"github.com/JoelCooperPhD/sessionctl/internal/protocol"
	"github.com/JoelCooperPhD/sessionctl/internal/runtime"
)

// csvHeader is the 8-column notes schema.
const csvHeader = "trial,module,device_id,label,record_time_unix,record_time_mono,note_id,text"

// defaultTickRateHz bounds how long a submitted note can sit in the
// pipeline's latest-frame slot before the timer flushes it to the
// writer. The pipeline runs with SkipStalledTicks so ticks with no
// new note write nothing, rather than repeating the previous row.
const defaultTickRateHz = 5.0

var started = time.Now()

// NewConfig builds the base.Config for the notes module. cfgMgr
// options live under the "notes." prefix.
func NewConfig(defaultSessionDir string, cfgMgr *config.Manager) base.Config {
	fps := cfgMgr.Float("notes.tick_rate_hz", defaultTickRateHz)
	var nextID int64

	return base.Config{
		Name:              "notes",
		MediaExtension:    ".csv",
		FPS:               fps,
		QueueCapacity:     30,
		SkipStalledTicks:  true,
		DefaultSessionDir: defaultSessionDir,
		NewWriter: func(outputPath string) (pipeline.Writer, error) {
			return pipeline.NewCSVRowWriter(outputPath, csvHeader)
		},
		NewSource: func(m *base.Module) (base.Source, error) {
			return idleSource{}, nil
		},
		ExtraHandlers: func(m *base.Module) map[string]runtime.HandlerFunc {
			return map[string]runtime.HandlerFunc{
				"add_note": func(ctx context.Context, cmd protocol.Command) error {
					return handleAddNote(m, &nextID, cmd)
				},
			}
		},
	}
}

// idleSource satisfies base.Source for notes, which produces rows
// only through the add_note command, not a periodic capture loop.
type idleSource struct{}

func (idleSource) Start(ctx context.Context, submit func(pipeline.Frame)) error {
	<-ctx.Done()
	return nil
}

func (idleSource) Close() error { return nil }

func handleAddNote(m *base.Module, nextID *int64, cmd protocol.Command) error {
	text := cmd.Get("text")
	if text == "" {
		return fmt.Errorf("add_note: missing text")
	}
	trial, label, _, deviceID, recording := m.Context()
	if !recording {
		return fmt.Errorf("add_note: not recording")
	}

	id := atomic.AddInt64(nextID, 1)
	now := time.Now()
	elapsed := now.Sub(started).Seconds()

	fields := csvutil.StandardPrefix(trial, "notes", deviceID, label, float64(now.UnixNano())/1e9, elapsed)
	fields = append(fields, strconv.FormatInt(id, 10), text)
	row := csvutil.Row(fields...)

	if !m.SubmitFrame(pipeline.Frame{Payload: row, CaptureUnix: now}) {
		return fmt.Errorf("add_note: no active pipeline")
	}
	return m.StatusWriter().Send(protocol.StatusReport, m.ReportFields())
}
