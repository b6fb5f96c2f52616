// Package main implements the generic module child process entry
// point. Mode selection (slave/headless/gui/interactive):
// an explicit --mode flag wins; otherwise a terminal-attached
// stdin selects interactive mode, and anything else defaults to slave
// mode.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/JoelCooperPhD/sessionctl/internal/config"
	"github.com/JoelCooperPhD/sessionctl/internal/logging"
	"github.com/JoelCooperPhD/sessionctl/internal/modules/audio"
	"github.com/JoelCooperPhD/sessionctl/internal/modules/base"
	"github.com/JoelCooperPhD/sessionctl/internal/modules/cameras"
	"github.com/JoelCooperPhD/sessionctl/internal/modules/drt"
	"github.com/JoelCooperPhD/sessionctl/internal/modules/eyetracker"
	"github.com/JoelCooperPhD/sessionctl/internal/modules/gps"
	"github.com/JoelCooperPhD/sessionctl/internal/modules/notes"
	"github.com/JoelCooperPhD/sessionctl/internal/modules/vog"
	"github.com/JoelCooperPhD/sessionctl/internal/protocol"
	"github.com/JoelCooperPhD/sessionctl/internal/runtime"
)

// moduleConfigs maps a --module name to its package's Config
// constructor. Every concrete module package exports exactly this
// shape so this file never needs to know their internals; cfgMgr is
// always non-nil but may carry zero keys when no --config file was
// found, in which case every constructor falls back to its own
// defaults.
var moduleConfigs = map[string]func(defaultSessionDir string, cfgMgr *config.Manager) base.Config{
	"audio":      audio.NewConfig,
	"cameras":    cameras.NewConfig,
	"gps":        gps.NewConfig,
	"eyetracker": eyetracker.NewConfig,
	"drt":        drt.NewConfig,
	"vog":        vog.NewConfig,
	"notes":      notes.NewConfig,
}

// noopGUIDriver satisfies runtime.GUIDriver when no real windowing
// toolkit is wired.
type noopGUIDriver struct{}

func (noopGUIDriver) Pump() bool { return true }

func main() {
	name := flag.String("module", "", "module to run: audio, cameras, gps, eyetracker, drt, vog, notes")
	mode := flag.String("mode", "", "slave, headless, gui, or interactive (default: auto-detect from stdin)")
	sessionDir := flag.String("session-dir", "", "default session directory used when start_recording omits session_dir")
	geometry := flag.String("geometry", "", "initial window geometry WxH+X+Y, replayed by the orchestrator on restart")
	configPath := flag.String("config", "", "path to the shared key=value configuration file; per-module options are read under a \"<module>.\" prefix")
	flag.Parse()

	ctor, ok := moduleConfigs[*name]
	if !ok {
		fmt.Fprintf(os.Stderr, "sessionctl-module: unknown or missing --module %q (want one of audio, cameras, gps, eyetracker, drt, vog, notes)\n", *name)
		os.Exit(2)
	}

	resolvedMode := resolveMode(*mode)

	// stdout is reserved exclusively for the status JSON protocol;
	// logs go to stderr, which the orchestrator redirects to a
	// per-module file.
	logging.Configure(logging.Config{Level: "info", Format: "text", ConsoleEnabled: false, FileEnabled: false})
	log := logging.New(*name)

	var statusSink io.Writer = os.Stdout
	if resolvedMode == "interactive" {
		statusSink = runtime.NewHumanReadableWriter(os.Stdout)
	}
	status := protocol.NewStatusWriter(statusSink)

	cfgMgr := config.NewManager(log)
	if *configPath != "" {
		if err := cfgMgr.Load(*configPath); err != nil {
			log.WithError(err).Warn("no module configuration loaded, using built-in defaults")
		}
	}
	cfg := ctor(*sessionDir, cfgMgr)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	mod := base.New(cfg, status, log, stop)

	if *geometry != "" {
		if w, h, x, y, ok := base.ParseGeometry(*geometry); ok {
			mod.SetGeometry(w, h, x, y)
			_ = status.Send(protocol.StatusGeometryChanged, map[string]interface{}{"width": w, "height": h, "x": x, "y": y})
		} else {
			log.WithField("geometry", *geometry).Warn("ignoring malformed --geometry flag")
		}
	}
	mod.SetRunMode(func(runCtx context.Context, d *runtime.Dispatcher) {
		switch resolvedMode {
		case "headless":
			runtime.RunHeadlessMode(runCtx, nil, log)
		case "interactive":
			runtime.RunInteractiveMode(runCtx, os.Stdin, d, nil, log)
		case "gui":
			previewHz := cfg.PreviewHz
			if previewHz <= 0 {
				previewHz = 10
			}
			runtime.RunGUIMode(runCtx, runtime.GUIModeConfig{
				Driver:          noopGUIDriver{},
				PumpInterval:    10 * time.Millisecond,
				PreviewInterval: time.Duration(float64(time.Second) / previewHz),
				PreviewTick:     func(ctx context.Context) { mod.FirePreview() },
				StdinCommands:   os.Stdin,
				Dispatcher:      d,
			}, log)
		default:
			runtime.RunSlaveMode(runCtx, os.Stdin, d, log)
		}
	})

	sup := runtime.NewSupervisor(mod, 2*time.Second, log)
	sup.BeforeExit = func() {
		_ = status.Send(protocol.StatusQuitting, nil)
	}

	if err := sup.Run(ctx); err != nil && ctx.Err() == nil {
		log.WithError(err).Error("module exited with an unrecoverable error")
		os.Exit(1)
	}
}

// resolveMode honors an explicit --mode flag; otherwise it auto-detects
// interactive mode when stdin is a terminal, and falls back to slave
// mode (the orchestrator's normal child configuration) when piped.
func resolveMode(explicit string) string {
	switch explicit {
	case "slave", "headless", "gui", "interactive":
		return explicit
	}
	if info, err := os.Stdin.Stat(); err == nil && info.Mode()&os.ModeCharDevice != 0 {
		return "interactive"
	}
	return "slave"
}
