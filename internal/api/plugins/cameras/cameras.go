// Package cameras is the build-time REST controller extension for the
// camera module family: still-capture snapshots and preview toggling
// on top of the generic module routes.
package cameras

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/JoelCooperPhD/sessionctl/internal/api/plugins"
	"github.com/JoelCooperPhD/sessionctl/internal/protocol"
)

const moduleID = "cameras"

type extension struct{}

func init() {
	plugins.Register(extension{})
}

func (extension) Spec() plugins.Spec {
	return plugins.Spec{ModuleID: moduleID, Version: "1.0", Description: "camera still capture and preview"}
}

func (extension) InstallRoutes(r chi.Router, host plugins.Host) {
	r.Post("/snapshot", func(w http.ResponseWriter, req *http.Request) {
		handleSnapshot(host, w, req)
	})
	r.Post("/preview", func(w http.ResponseWriter, req *http.Request) {
		handleTogglePreview(host, w, req)
	})
}

type snapshotRequest struct {
	SavePath string `json:"save_path"`
	Format   string `json:"format"`
}

// handleSnapshot issues take_snapshot to the camera module instance.
// A module without still-capture support answers its own "not
// supported" error status over stdio; that arrives as a status line, not a
// transport failure, so SendCommand only rejects this request when
// the process itself isn't reachable.
func handleSnapshot(host plugins.Host, w http.ResponseWriter, r *http.Request) {
	inst, ok := plugins.Lookup(host, w, moduleID)
	if !ok {
		return
	}
	var req snapshotRequest
	if !plugins.DecodeJSON(host, w, r, &req) {
		return
	}
	params := map[string]interface{}{}
	if req.SavePath != "" {
		params["save_path"] = req.SavePath
	}
	if req.Format != "" {
		params["format"] = req.Format
	}
	if !plugins.SendCommand(host, w, inst, protocol.CmdTakeSnapshot, params) {
		return
	}
	host.WriteJSON(w, http.StatusAccepted, map[string]string{"status": "snapshot_requested"})
}

type previewRequest struct {
	Enabled bool `json:"enabled"`
}

func handleTogglePreview(host plugins.Host, w http.ResponseWriter, r *http.Request) {
	inst, ok := plugins.Lookup(host, w, moduleID)
	if !ok {
		return
	}
	var req previewRequest
	if !plugins.DecodeJSON(host, w, r, &req) {
		return
	}
	if !plugins.SendCommand(host, w, inst, protocol.CmdTogglePreview, map[string]interface{}{"enabled": req.Enabled}) {
		return
	}
	host.WriteJSON(w, http.StatusOK, map[string]interface{}{"enabled": req.Enabled})
}
