package api

import (
	"net/http"
	"runtime"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
)

// mountSystemRoutes wires /health, /status, /platform, /info/system,
// and /shutdown.
func mountSystemRoutes(r chi.Router, ctl *Controller) {
	r.Get("/health", ctl.wrap(handleHealth))
	r.Get("/status", ctl.wrap(handleStatus))
	r.Get("/platform", ctl.wrap(handlePlatform))
	r.Get("/info/system", ctl.wrap(handleSystemInfo))
	r.Post("/shutdown", ctl.wrap(handleShutdown))
}

func handleHealth(c *Controller, w http.ResponseWriter, r *http.Request) error {
	st, err := c.health.Get(r.Context())
	if err != nil {
		return err
	}
	c.WriteJSON(w, http.StatusOK, st)
	return nil
}

func handleStatus(c *Controller, w http.ResponseWriter, r *http.Request) error {
	st, err := c.health.Get(r.Context())
	if err != nil {
		return err
	}
	active, dir := c.orch.SessionActive()
	c.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"health":         st,
		"session_active": active,
		"session_dir":    dir,
		"trial_active":   c.orch.TrialActive(),
		"instances":      summarizeInstances(c),
	})
	return nil
}

func handlePlatform(c *Controller, w http.ResponseWriter, r *http.Request) error {
	c.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"os":         runtime.GOOS,
		"arch":       runtime.GOARCH,
		"go_version": runtime.Version(),
		"platform":   c.platform,
		"version":    c.version,
	})
	return nil
}

// handleSystemInfo reports CPU/disk utilisation via gopsutil.
func handleSystemInfo(c *Controller, w http.ResponseWriter, r *http.Request) error {
	cpuPct := 0.0
	if pcts, err := cpu.Percent(100*time.Millisecond, false); err == nil && len(pcts) > 0 {
		cpuPct = pcts[0]
	}
	diskPct := 0.0
	if usage, err := disk.Usage("/"); err == nil && usage.Total > 0 {
		diskPct = usage.UsedPercent
	}
	c.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"cpu_percent":  cpuPct,
		"disk_percent": diskPct,
		"goroutines":   runtime.NumGoroutine(),
	})
	return nil
}

func handleShutdown(c *Controller, w http.ResponseWriter, r *http.Request) error {
	active, _ := c.orch.SessionActive()
	if active {
		return ErrConflict("SESSION_ACTIVE", "stop the active session before shutdown")
	}
	c.WriteJSON(w, http.StatusAccepted, map[string]string{"status": "shutting_down"})
	if c.Shutdown != nil {
		go func() {
			time.Sleep(100 * time.Millisecond) // let the response flush before exiting
			c.Shutdown()
		}()
	}
	return nil
}

func summarizeInstances(c *Controller) []map[string]interface{} {
	instances := c.orch.Instances()
	out := make([]map[string]interface{}, 0, len(instances))
	for _, inst := range instances {
		state := "idle"
		if p := inst.Proc(); p != nil {
			state = p.State().String()
		}
		out = append(out, map[string]interface{}{
			"name":      inst.Name,
			"enabled":   inst.Enabled,
			"state":     state,
			"recording": inst.Recording,
		})
	}
	return out
}
