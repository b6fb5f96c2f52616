package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/JoelCooperPhD/sessionctl/internal/orchestrator"
)

func layoutFromString(s string) orchestrator.Layout {
	switch s {
	case "cascade":
		return orchestrator.LayoutCascade
	case "tile_horizontal":
		return orchestrator.LayoutTileHorizontal
	case "tile_vertical":
		return orchestrator.LayoutTileVertical
	default:
		return orchestrator.LayoutGrid
	}
}

// mountSessionRoutes wires /session and /trial.
func mountSessionRoutes(r chi.Router, ctl *Controller) {
	r.Get("/session", ctl.wrap(handleGetSession))
	r.Post("/session/start", ctl.wrap(handleStartSession))
	r.Post("/session/stop", ctl.wrap(handleStopSession))

	r.Get("/trial", ctl.wrap(handleGetTrial))
	r.Post("/trial/start", ctl.wrap(handleStartTrial))
	r.Post("/trial/stop", ctl.wrap(handleStopTrial))

	r.Post("/windows/arrange", ctl.wrap(handleArrangeWindows))
}

func handleGetSession(c *Controller, w http.ResponseWriter, r *http.Request) error {
	active, dir := c.orch.SessionActive()
	c.WriteJSON(w, http.StatusOK, map[string]interface{}{"active": active, "session_dir": dir})
	return nil
}

type startSessionRequest struct {
	Dir string `json:"dir"`
}

func handleStartSession(c *Controller, w http.ResponseWriter, r *http.Request) error {
	var req startSessionRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			return ErrValidation("invalid JSON body")
		}
	}
	dir, err := c.orch.StartSession(req.Dir, time.Now())
	if err != nil {
		return ErrConflict("session_already_active", err.Error())
	}
	running, _ := c.orch.ModuleCounts()
	c.metrics.ModuleInstancesRunning.Set(float64(running))
	c.WriteJSON(w, http.StatusCreated, map[string]string{"session_dir": dir})
	return nil
}

func handleStopSession(c *Controller, w http.ResponseWriter, r *http.Request) error {
	if err := c.orch.StopSession(); err != nil {
		return ErrConflict("session_not_active", err.Error())
	}
	c.WriteJSON(w, http.StatusOK, map[string]string{"status": "stopped"})
	return nil
}

func handleGetTrial(c *Controller, w http.ResponseWriter, r *http.Request) error {
	c.WriteJSON(w, http.StatusOK, map[string]bool{"active": c.orch.TrialActive()})
	return nil
}

type startTrialRequest struct {
	Label string `json:"label"`
}

func handleStartTrial(c *Controller, w http.ResponseWriter, r *http.Request) error {
	var req startTrialRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			return ErrValidation("invalid JSON body")
		}
	}
	result, err := c.orch.StartTrial(req.Label)
	if err != nil {
		return ErrConflict("trial_start_failed", err.Error())
	}
	c.metrics.TrialsStartedTotal.Inc()
	status := http.StatusCreated
	if !result.Success() {
		status = http.StatusOK // best-effort: trial stays active, warnings reported
	}
	errs := make(map[string]string, len(result.ModuleErrors))
	for name, e := range result.ModuleErrors {
		errs[name] = e.Error()
	}
	c.WriteJSON(w, status, map[string]interface{}{
		"trial_number": result.TrialNumber,
		"trial_label":  result.TrialLabel,
		"success":      result.Success(),
		"module_errors": errs,
	})
	return nil
}

func handleStopTrial(c *Controller, w http.ResponseWriter, r *http.Request) error {
	if err := c.orch.StopTrial(); err != nil {
		return ErrConflict("trial_not_active", err.Error())
	}
	c.WriteJSON(w, http.StatusOK, map[string]string{"status": "stopped"})
	return nil
}

type arrangeRequest struct {
	Layout  string `json:"layout"`
	ScreenW int    `json:"screen_w"`
	ScreenH int    `json:"screen_h"`
}

func handleArrangeWindows(c *Controller, w http.ResponseWriter, r *http.Request) error {
	var req arrangeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return ErrValidation("invalid JSON body")
	}
	if req.ScreenW <= 0 || req.ScreenH <= 0 {
		return ErrValidation("screen_w and screen_h must be positive")
	}
	if err := c.orch.ArrangeWindows(layoutFromString(req.Layout), req.ScreenW, req.ScreenH); err != nil {
		return ErrInternal(err.Error())
	}
	c.WriteJSON(w, http.StatusOK, map[string]string{"status": "arranged"})
	return nil
}
