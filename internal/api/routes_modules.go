package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
)

// mountModuleRoutes wires /modules, /modules/{name}/..., and
// /instances.
func mountModuleRoutes(r chi.Router, ctl *Controller) {
	r.Get("/modules", ctl.wrap(handleListModules))
	r.Get("/instances", ctl.wrap(handleListModules))
	r.Post("/modules/{name}/enable", ctl.wrap(handleEnableModule))
	r.Post("/modules/{name}/start", ctl.wrap(handleStartModule))
	r.Post("/modules/{name}/stop", ctl.wrap(handleStopModule))
	r.Get("/modules/{name}/status", ctl.wrap(handleModuleStatus))
}

func handleListModules(c *Controller, w http.ResponseWriter, r *http.Request) error {
	c.WriteJSON(w, http.StatusOK, map[string]interface{}{"modules": summarizeInstances(c)})
	return nil
}

type enableRequest struct {
	Enabled bool `json:"enabled"`
}

func handleEnableModule(c *Controller, w http.ResponseWriter, r *http.Request) error {
	name := chi.URLParam(r, "name")
	if _, ok := c.orch.Module(name); !ok {
		return ErrNotFound("MODULE_NOT_FOUND", "module not found: "+name)
	}
	var req enableRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return ErrValidation("invalid JSON body")
	}
	if err := c.orch.EnableModule(name, req.Enabled); err != nil {
		return ErrValidation(err.Error())
	}
	c.WriteJSON(w, http.StatusOK, map[string]interface{}{"name": name, "enabled": req.Enabled})
	return nil
}

func handleStartModule(c *Controller, w http.ResponseWriter, r *http.Request) error {
	name := chi.URLParam(r, "name")
	if _, ok := c.orch.Module(name); !ok {
		return ErrNotFound("MODULE_NOT_FOUND", "module not found: "+name)
	}
	if err := c.orch.StartModule(r.Context(), name); err != nil {
		return ErrConflict("MODULE_START_FAILED", err.Error())
	}
	c.WriteJSON(w, http.StatusAccepted, map[string]string{"name": name, "state": "spawning"})
	return nil
}

func handleStopModule(c *Controller, w http.ResponseWriter, r *http.Request) error {
	name := chi.URLParam(r, "name")
	if _, ok := c.orch.Module(name); !ok {
		return ErrNotFound("MODULE_NOT_FOUND", "module not found: "+name)
	}
	if err := c.orch.StopModule(name, defaultStopGrace); err != nil {
		return ErrConflict("MODULE_STOP_FAILED", err.Error())
	}
	c.WriteJSON(w, http.StatusOK, map[string]string{"name": name, "state": "stopped"})
	return nil
}

func handleModuleStatus(c *Controller, w http.ResponseWriter, r *http.Request) error {
	name := chi.URLParam(r, "name")
	inst, ok := c.orch.Module(name)
	if !ok {
		return ErrNotFound("MODULE_NOT_FOUND", "module not found: "+name)
	}
	state := "idle"
	if p := inst.Proc(); p != nil {
		state = p.State().String()
	}
	c.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"name":      inst.Name,
		"enabled":   inst.Enabled,
		"state":     state,
		"recording": inst.Recording,
	})
	return nil
}
