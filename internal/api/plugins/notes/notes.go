// Package notes is the build-time REST controller extension for the
// notes module: lets an operator submit a timestamped free-text note
// into the active trial's notes CSV via the running module process.
package notes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/JoelCooperPhD/sessionctl/internal/api/plugins"
)

const moduleID = "notes"

type extension struct{}

func init() {
	plugins.Register(extension{})
}

func (extension) Spec() plugins.Spec {
	return plugins.Spec{ModuleID: moduleID, Version: "1.0", Description: "operator note-taking"}
}

func (extension) InstallRoutes(r chi.Router, host plugins.Host) {
	r.Post("/note", func(w http.ResponseWriter, req *http.Request) {
		handlePostNote(host, w, req)
	})
}

type noteRequest struct {
	Text string `json:"text"`
}

func handlePostNote(host plugins.Host, w http.ResponseWriter, r *http.Request) {
	inst, ok := plugins.Lookup(host, w, moduleID)
	if !ok {
		return
	}
	var req noteRequest
	if !plugins.DecodeJSON(host, w, r, &req) {
		return
	}
	if req.Text == "" {
		host.WriteError(w, http.StatusBadRequest, "MISSING_FIELD", "missing field: text")
		return
	}
	if !plugins.SendCommand(host, w, inst, "add_note", map[string]interface{}{"text": req.Text}) {
		return
	}
	host.WriteJSON(w, http.StatusAccepted, map[string]string{"status": "note_queued"})
}
