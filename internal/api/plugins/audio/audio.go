// Package audio is the build-time REST controller extension for the
// audio module family, exposing the current input level reading
// alongside the generic module routes every module already gets from
// internal/api.
package audio

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/JoelCooperPhD/sessionctl/internal/api/plugins"
)

const moduleID = "audio"

type extension struct{}

func init() {
	plugins.Register(extension{})
}

func (extension) Spec() plugins.Spec {
	return plugins.Spec{ModuleID: moduleID, Version: "1.0", Description: "audio input capture"}
}

func (extension) InstallRoutes(r chi.Router, host plugins.Host) {
	r.Get("/levels", func(w http.ResponseWriter, req *http.Request) {
		handleLevels(host, w, req)
	})
}

// handleLevels surfaces the most recent level reading from the
// module's status_report payload. The module is free to emit whatever
// keys it wants in that payload; this route just forwards the ones a
// level meter cares about, defaulting to zero before any report has
// arrived.
func handleLevels(host plugins.Host, w http.ResponseWriter, r *http.Request) {
	inst, ok := plugins.Lookup(host, w, moduleID)
	if !ok {
		return
	}
	data := plugins.Report(inst)
	host.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"peak_level_db": data["peak_level_db"],
		"rms_level_db":  data["rms_level_db"],
		"clipping":      data["clipping"],
	})
}
