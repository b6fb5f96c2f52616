// Package main implements the master orchestrator process entry
// point: it loads configuration, starts device discovery, registers
// the seven module process specs, and serves the localhost REST
// control plane until a termination signal arrives.
//
// Startup is layered: configuration and logging first, then the
// device registry and discovery scanner, then the orchestrator and
// its module specs, then the REST server. Shutdown reverses that
// order.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/JoelCooperPhD/sessionctl/internal/api"
	"github.com/JoelCooperPhD/sessionctl/internal/config"
	"github.com/JoelCooperPhD/sessionctl/internal/health"
	"github.com/JoelCooperPhD/sessionctl/internal/logging"
	"github.com/JoelCooperPhD/sessionctl/internal/metrics"
	"github.com/JoelCooperPhD/sessionctl/internal/orchestrator"
	"github.com/JoelCooperPhD/sessionctl/internal/orchestrator/process"
	"github.com/JoelCooperPhD/sessionctl/internal/registry"
	"github.com/JoelCooperPhD/sessionctl/internal/registry/drivers"
)

const version = "0.1.0"

func main() {
	configPath := flag.String("config", filepath.Join(config.DefaultConfigDir("sessionctl"), "sessionctl.conf"), "path to the key=value configuration file")
	dataDir := flag.String("data-dir", filepath.Join(os.Getenv("HOME"), "sessionctl-data"), "root directory for session recordings")
	moduleBin := flag.String("module-bin", "", "path to the module child executable (defaults to ./sessionctl-module next to this binary)")
	flag.Parse()

	cfgMgr := config.NewManager(nil)
	if err := cfgMgr.Load(*configPath); err != nil {
		log.Printf("no configuration file at %s, using built-in defaults: %v", *configPath, err)
	} else if err := cfgMgr.Watch(); err != nil {
		log.Printf("config hot-reload disabled: %v", err)
	}

	orchCfg := config.OrchestratorConfigFromManager(cfgMgr)

	logging.Configure(logging.Config{
		Level:          orchCfg.LogLevel,
		Format:         cfgMgr.String("log_format", "text"),
		ConsoleEnabled: true,
		FileEnabled:    cfgMgr.Bool("log_file_enabled", true),
		FilePath:       cfgMgr.String("log_file_path", filepath.Join(*dataDir, "logs", "orchestrator.log")),
		MaxFileSize:    cfgMgr.Int("log_max_file_size", 10*1024*1024),
		BackupCount:    cfgMgr.Int("log_backup_count", 5),
	})
	logger := logging.New("orchestrator")
	logger.Info("starting sessionctl orchestrator")

	met := metrics.New()

	reg := registry.New(logging.New("registry"))
	scanner := registry.NewScanner(reg, logging.New("discovery"),
		registry.DriverSchedule{Driver: drivers.NewUSBDriver(), Interval: 500 * time.Millisecond, Owns: (&drivers.USBDriver{}).Owns},
		registry.DriverSchedule{Driver: drivers.NewSerialDriver(), Interval: 2 * time.Second, Owns: (&drivers.SerialDriver{}).Owns},
		registry.DriverSchedule{Driver: drivers.NewALSADriver(), Interval: 2 * time.Second, Owns: (&drivers.ALSADriver{}).Owns},
		registry.DriverSchedule{Driver: drivers.NewXBeeDriver(), Interval: 1 * time.Second, Owns: (&drivers.XBeeDriver{}).Owns},
		registry.DriverSchedule{Driver: drivers.NewNetworkDriver(cfgMgr.String("eyetracker_host", "eyetracker.local")), Interval: 5 * time.Second, Owns: (&drivers.NetworkDriver{}).Owns},
	)
	scanner.OnSweep = func(driver string, took time.Duration) {
		met.DiscoverySweepDuration.WithLabelValues(driver).Observe(took.Seconds())
	}
	go trackConnectedDevices(reg, met)

	orch := orchestrator.New(orchestrator.Config{
		DataDir:           *dataDir,
		SessionPrefix:     orchCfg.SessionPrefix,
		TrialStartTimeout: orchCfg.TrialStartTimeout,
		TrialStopTimeout:  orchCfg.TrialStopTimeout,
		InitTimeout:       orchCfg.InitTimeout,
	}, logger)

	registerModules(orch, resolveModuleBin(*moduleBin), filepath.Join(*dataDir, "logs", "modules"), *configPath)

	mon := health.NewMonitor(version, orch)
	ctl := api.NewController(api.Config{
		Port:   orchCfg.APIPort,
		Debug:  orchCfg.APIDebug,
		LogDir: filepath.Join(*dataDir, "logs"),
	}, orch, reg, cfgMgr, mon, met, version, runtimePlatform(), logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	ctl.Shutdown = stop
	server := api.NewServer(ctl, logger)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		scanner.Run(ctx)
	}()
	go func() {
		defer wg.Done()
		if err := server.Run(ctx); err != nil {
			logger.WithError(err).Error("api server stopped with an error")
		}
	}()

	<-ctx.Done()
	logger.Info("shutdown signal received, stopping running modules")

	for _, inst := range orch.Instances() {
		if !inst.Running() {
			continue
		}
		if err := orch.StopModule(inst.Name, 3*time.Second); err != nil {
			logger.WithError(err).WithField("module", inst.Name).Warn("failed to stop module cleanly")
		}
	}

	wg.Wait()
	_ = cfgMgr.Close()
	logger.Info("orchestrator stopped")
}

// registerModules wires the seven module process specs:
// each module is launched as "<moduleBin> --module <name>", logging to
// its own file under logDir, enabled by default so an operator sees
// every module available immediately after startup.
func registerModules(orch *orchestrator.Orchestrator, moduleBin, logDir, configPath string) {
	for _, name := range []string{"audio", "cameras", "gps", "eyetracker", "drt", "vog", "notes"} {
		args := []string{"--module", name}
		if configPath != "" {
			args = append(args, "--config", configPath)
		}
		orch.RegisterModule(process.Spec{
			Name:       name,
			Entrypoint: moduleBin,
			Args:       args,
			LogDir:     logDir,
		})
		if err := orch.EnableModule(name, true); err != nil {
			logging.New("orchestrator").WithError(err).WithField("module", name).Warn("failed to enable module")
		}
	}
}

// trackConnectedDevices keeps the connected-device gauge current by
// recounting the registry on every device event. The event channel is
// never closed; this goroutine lives for the process lifetime.
func trackConnectedDevices(reg *registry.Registry, met *metrics.Registry) {
	for range reg.Subscribe() {
		counts := make(map[string]int)
		for _, d := range reg.List(registry.FamilyUnknown) {
			if d.Connected {
				counts[d.ModuleID.String()]++
			}
		}
		for family, n := range counts {
			met.DevicesConnected.WithLabelValues(family).Set(float64(n))
		}
	}
}

func resolveModuleBin(explicit string) string {
	if explicit != "" {
		return explicit
	}
	self, err := os.Executable()
	if err != nil {
		return "sessionctl-module"
	}
	return filepath.Join(filepath.Dir(self), "sessionctl-module")
}

func runtimePlatform() string {
	if p := os.Getenv("SESSIONCTL_PLATFORM"); p != "" {
		return p
	}
	return "linux"
}
