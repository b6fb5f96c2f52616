package api

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
)

// mountConfigRoutes wires /config, /modules/{name}/config, and
// /modules/{name}/preferences/{key}, reading through the koanf-backed config.Manager.
func mountConfigRoutes(r chi.Router, ctl *Controller) {
	r.Get("/config", ctl.wrap(handleGetConfig))
	r.Get("/modules/{name}/config", ctl.wrap(handleGetModuleConfig))
	r.Get("/modules/{name}/preferences/{key}", ctl.wrap(handleGetPreference))
}

func handleGetConfig(c *Controller, w http.ResponseWriter, r *http.Request) error {
	c.WriteJSON(w, http.StatusOK, c.cfgMgr.All())
	return nil
}

// handleGetModuleConfig filters the flat key=value snapshot down to
// keys under the "<name>." prefix, matching the grammar's convention
// of namespacing per-module overrides.
func handleGetModuleConfig(c *Controller, w http.ResponseWriter, r *http.Request) error {
	name := chi.URLParam(r, "name")
	if _, ok := c.orch.Module(name); !ok {
		return ErrNotFound("MODULE_NOT_FOUND", "module not found: "+name)
	}
	prefix := name + "."
	out := make(map[string]interface{})
	for k, v := range c.cfgMgr.All() {
		if strings.HasPrefix(k, prefix) {
			out[strings.TrimPrefix(k, prefix)] = v
		}
	}
	c.WriteJSON(w, http.StatusOK, out)
	return nil
}

func handleGetPreference(c *Controller, w http.ResponseWriter, r *http.Request) error {
	name := chi.URLParam(r, "name")
	key := chi.URLParam(r, "key")
	if _, ok := c.orch.Module(name); !ok {
		return ErrNotFound("MODULE_NOT_FOUND", "module not found: "+name)
	}
	full := name + "." + key
	all := c.cfgMgr.All()
	v, ok := all[full]
	if !ok {
		return ErrNotFound("PREFERENCE_NOT_FOUND", "no preference "+key+" for module "+name)
	}
	c.WriteJSON(w, http.StatusOK, map[string]interface{}{"key": key, "value": v})
	return nil
}
