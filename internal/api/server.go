// Package api implements the localhost-only REST control plane:
// a chi-routed net/http server with the
// localhost-filter / request-logging / error-envelope middleware
// chain, fanning out to the orchestrator, device registry, and
// configuration manager, plus a build-time plugin registry
// (internal/api/plugins) for per-module controller extensions.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/JoelCooperPhD/sessionctl/internal/api/plugins"
	"github.com/JoelCooperPhD/sessionctl/internal/config"
	"github.com/JoelCooperPhD/sessionctl/internal/health"
	"github.com/JoelCooperPhD/sessionctl/internal/logging"
	"github.com/JoelCooperPhD/sessionctl/internal/metrics"
	"github.com/JoelCooperPhD/sessionctl/internal/orchestrator"
	"github.com/JoelCooperPhD/sessionctl/internal/registry"
)

// defaultStopGrace bounds how long StopModule waits for a graceful
// quit acknowledgement before the process wrapper escalates to
// SIGTERM/SIGKILL (mirrors process.Process.Stop's own ladder).
const defaultStopGrace = 3 * time.Second

// Config controls bind address and debug verbosity (api_port,
// api_debug configuration options).
type Config struct {
	Port   int
	Debug  bool
	LogDir string // master orchestrator log directory, for /logs routes
}

// Controller is the sole façade every HTTP handler (including plugin
// extensions) calls into. It implements plugins.Host.
type Controller struct {
	cfg     Config
	orch    *orchestrator.Orchestrator
	reg     *registry.Registry
	cfgMgr  *config.Manager
	health  *health.Monitor
	metrics *metrics.Registry
	log     *logging.Logger

	startedAt  time.Time
	version    string
	platform   string

	// Shutdown, if set, is invoked by the /shutdown route after the
	// response has been written, requesting an orderly process exit.
	Shutdown func()
}

// NewController wires every collaborator the route families in
// need.
func NewController(cfg Config, orch *orchestrator.Orchestrator, reg *registry.Registry, cfgMgr *config.Manager, mon *health.Monitor, met *metrics.Registry, version, platform string, log *logging.Logger) *Controller {
	return &Controller{
		cfg: cfg, orch: orch, reg: reg, cfgMgr: cfgMgr,
		health: mon, metrics: met, log: log,
		startedAt: time.Now(), version: version, platform: platform,
	}
}

func (c *Controller) Orchestrator() *orchestrator.Orchestrator { return c.orch }
func (c *Controller) Registry() *registry.Registry             { return c.reg }

// WriteJSON writes v as a JSON response with status, satisfying
// plugins.Host.
func (c *Controller) WriteJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError writes the standard error envelope, satisfying
// plugins.Host.
func (c *Controller) WriteError(w http.ResponseWriter, status int, code, message string) {
	writeError(w, NewError(status, code, message), c.cfg.Debug, nil)
}

// apiHandlerFunc is a handler that may fail; errors flow through
// mapError/writeError uniformly instead of every handler hand-rolling
// its own error response.
type apiHandlerFunc func(c *Controller, w http.ResponseWriter, r *http.Request) error

func (c *Controller) wrap(h apiHandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := h(c, w, r); err != nil {
			meta := map[string]string{"method": r.Method, "path": r.URL.Path}
			writeError(w, err, c.cfg.Debug, meta)
		}
	}
}

// Server hosts the chi router behind an http.Server bound to
// 127.0.0.1. The listener accepts IPv4 loopback only; the localhost
// filter's allowlist also names the IPv6 loopback forms, but no IPv6
// connection reaches this listener.
type Server struct {
	ctl    *Controller
	httpSv *http.Server
	log    *logging.Logger
}

// NewServer builds the full route tree: system, modules, session/
// trial, devices, configuration, logs, metrics (debug mode only), and
// every registered plugin extension under /api/v1/<module_id>.
func NewServer(ctl *Controller, log *logging.Logger) *Server {
	r := chi.NewRouter()
	r.Use(localhostFilter(log))
	r.Use(requestLogger(log, ctl.cfg.Debug))
	r.Use(requestMetrics(ctl.metrics))
	r.Use(errorEnvelope(log, ctl.cfg.Debug))

	r.Route("/api/v1", func(v1 chi.Router) {
		mountSystemRoutes(v1, ctl)
		mountModuleRoutes(v1, ctl)
		mountSessionRoutes(v1, ctl)
		mountDeviceRoutes(v1, ctl)
		mountConfigRoutes(v1, ctl)
		mountLogRoutes(v1, ctl)

		if ctl.cfg.Debug {
			v1.Handle("/metrics", promhttp.HandlerFor(ctl.metrics.Gatherer(), promhttp.HandlerOpts{}))
		}

		for _, ext := range plugins.All() {
			ext := ext
			v1.Route("/"+ext.Spec().ModuleID, func(mr chi.Router) {
				ext.InstallRoutes(mr, ctl)
			})
		}
	})

	return &Server{
		ctl: ctl,
		log: log,
		httpSv: &http.Server{
			Addr:         fmt.Sprintf("127.0.0.1:%d", ctl.cfg.Port),
			Handler:      r,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
		},
	}
}

// Run starts accepting connections until ctx is cancelled, then stops
// accepting new ones and waits up to 5s for in-flight handlers to
// finish.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.log.WithFields(logging.Fields{"addr": s.httpSv.Addr}).Info("api: listening")
		if err := s.httpSv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.httpSv.Shutdown(shutdownCtx)
}
