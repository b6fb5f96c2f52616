// Package cameras implements the camera capture module:
// a fixed-rate rawvideo source piped through ffmpeg into an MP4 file
// per trial, with still-capture snapshot and preview-toggle commands
// for internal/api/plugins/cameras.
package cameras

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/JoelCooperPhD/sessionctl/internal/config"
	"github.com/JoelCooperPhD/sessionctl/internal/logging"
	"github.com/JoelCooperPhD/sessionctl/internal/modules/base"
	"github.com/JoelCooperPhD/sessionctl/internal/modules/simsource"
	"github.com/JoelCooperPhD/sessionctl/internal/pipeline"
	"github.com/JoelCooperPhD/sessionctl/internal/protocol"
	"github.com/JoelCooperPhD/sessionctl/internal/runtime"
)

const (
	defaultWidth     = 640
	defaultHeight    = 480
	defaultFPS       = 30.0
	defaultPreviewHz = 10.0
)

// lastFrame keeps the most recently generated rawvideo frame around
// so the take_snapshot handler has something to write without
// round-tripping the capture loop.
type lastFrame struct {
	mu            sync.Mutex
	payload       []byte
	width, height int
}

func (f *lastFrame) set(p []byte, w, h int) {
	f.mu.Lock()
	f.payload, f.width, f.height = p, w, h
	f.mu.Unlock()
}

func (f *lastFrame) snapshot() ([]byte, int, int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.payload, f.width, f.height
}

// previewState tracks whether GUI-mode preview delivery is enabled.
type previewState struct {
	mu      sync.Mutex
	enabled bool
}

func (p *previewState) set(v bool) {
	p.mu.Lock()
	p.enabled = v
	p.mu.Unlock()
}

func (p *previewState) get() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.enabled
}

// NewConfig builds the base.Config for the camera module. cfgMgr
// options live under the "cameras." prefix.
func NewConfig(defaultSessionDir string, cfgMgr *config.Manager) base.Config {
	width := cfgMgr.Int("cameras.width", defaultWidth)
	height := cfgMgr.Int("cameras.height", defaultHeight)
	fps := cfgMgr.Float("cameras.fps", defaultFPS)
	previewHz := cfgMgr.Float("cameras.preview_hz", defaultPreviewHz)
	// A simulated capture stall every N ticks exercises the pipeline's
	// duplicate-on-stall path without a real flaky camera.
	stallEvery := cfgMgr.Int("cameras.simulated_stall_every_n", 0)

	lf := &lastFrame{}
	preview := &previewState{}

	return base.Config{
		Name:              "cameras",
		MediaExtension:    ".mp4",
		FPS:               fps,
		QueueCapacity:     queueCapacity(fps),
		DefaultSessionDir: defaultSessionDir,
		PreviewHz:         previewHz,
		NewWriter: func(outputPath string) (pipeline.Writer, error) {
			return pipeline.NewFFmpegWriter(context.Background(), ffmpegArgs(width, height, fps, outputPath), outputPath, logging.New("cameras"))
		},
		NewSource: func(m *base.Module) (base.Source, error) {
			return newSource(width, height, fps, stallEvery, lf), nil
		},
		PreviewTick: func(m *base.Module) {
			if !preview.get() {
				return
			}
			_, w, h := lf.snapshot()
			_ = m.StatusWriter().Send(protocol.StatusPreviewFrame, map[string]interface{}{"width": w, "height": h})
		},
		ExtraHandlers: func(m *base.Module) map[string]runtime.HandlerFunc {
			return map[string]runtime.HandlerFunc{
				protocol.CmdTakeSnapshot:  handleTakeSnapshot(m, lf),
				protocol.CmdTogglePreview: handleTogglePreview(m, preview),
			}
		},
	}
}

func queueCapacity(fps float64) int {
	c := int(2 * fps)
	if c < 30 {
		c = 30
	}
	return c
}

func ffmpegArgs(width, height int, fps float64, outputPath string) []string {
	return []string{
		"-y",
		"-f", "rawvideo",
		"-vcodec", "rawvideo",
		"-s", fmt.Sprintf("%dx%d", width, height),
		"-pix_fmt", "bgr24",
		"-r", fmt.Sprintf("%g", fps),
		"-i", "-",
		"-c:v", "libx264",
		"-preset", "ultrafast",
		"-crf", "23",
		outputPath,
	}
}

func handleTakeSnapshot(m *base.Module, lf *lastFrame) runtime.HandlerFunc {
	return func(ctx context.Context, cmd protocol.Command) error {
		payload, w, h := lf.snapshot()
		if payload == nil {
			return fmt.Errorf("take_snapshot: no frame captured yet")
		}
		_, _, sessionDir, _, _ := m.Context()
		path := cmd.Get("save_path")
		if path == "" {
			if sessionDir == "" {
				sessionDir = os.TempDir()
			}
			path = filepath.Join(sessionDir, fmt.Sprintf("snapshot_%d.raw", time.Now().UnixNano()))
		}
		if err := os.WriteFile(path, payload, 0o644); err != nil {
			return fmt.Errorf("write snapshot: %w", err)
		}
		return m.StatusWriter().Send(protocol.StatusSnapshotTaken, map[string]interface{}{
			"path": path, "width": w, "height": h,
		})
	}
}

func handleTogglePreview(m *base.Module, preview *previewState) runtime.HandlerFunc {
	return func(ctx context.Context, cmd protocol.Command) error {
		preview.set(cmd.GetBool("enabled"))
		return m.StatusWriter().Send(protocol.StatusPreviewToggled, map[string]interface{}{"enabled": preview.get()})
	}
}

// source generates simulated solid-color rawvideo frames.
type source struct {
	loop          *simsource.Loop
	width, height int
	stallEvery    int
	rng           *rand.Rand
	lf            *lastFrame
}

func newSource(width, height int, fps float64, stallEvery int, lf *lastFrame) *source {
	s := &source{
		width:      width,
		height:     height,
		stallEvery: stallEvery,
		rng:        rand.New(rand.NewSource(time.Now().UnixNano())),
		lf:         lf,
	}
	s.loop = simsource.NewLoop(fps, s.generate)
	return s
}

func (s *source) Start(ctx context.Context, submit func(pipeline.Frame)) error {
	return s.loop.Start(ctx, submit)
}

func (s *source) Close() error { return s.loop.Close() }

func (s *source) generate(seq int64, now time.Time) (pipeline.Frame, bool) {
	if s.stallEvery > 0 && seq%int64(s.stallEvery) == 0 {
		// Simulated capture stall: the pipeline timer duplicates the
		// previous frame for this tick instead.
		return pipeline.Frame{}, false
	}

	payload := make([]byte, s.width*s.height*3)
	b, g, r := byte(s.rng.Intn(256)), byte(s.rng.Intn(256)), byte(s.rng.Intn(256))
	for i := 0; i < len(payload); i += 3 {
		payload[i], payload[i+1], payload[i+2] = b, g, r
	}
	s.lf.set(payload, s.width, s.height)

	return pipeline.Frame{
		Payload:          payload,
		CaptureUnix:      now,
		CameraFrameIndex: seq,
	}, true
}
