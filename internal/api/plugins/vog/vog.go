// Package vog is the build-time REST controller extension for the
// goggles (VOG) module family: lens switching and battery level for
// the wireless device variant.
package vog

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/JoelCooperPhD/sessionctl/internal/api/plugins"
	"github.com/JoelCooperPhD/sessionctl/internal/registry"
)

const moduleID = "vog"

type extension struct{}

func init() {
	plugins.Register(extension{})
}

func (extension) Spec() plugins.Spec {
	return plugins.Spec{ModuleID: moduleID, Version: "1.0", Description: "vision occlusion goggles"}
}

func (extension) InstallRoutes(r chi.Router, host plugins.Host) {
	r.Get("/lens", func(w http.ResponseWriter, req *http.Request) {
		handleGetLens(host, w, req)
	})
	r.Post("/lens", func(w http.ResponseWriter, req *http.Request) {
		handleSetLens(host, w, req)
	})
	r.Get("/battery", func(w http.ResponseWriter, req *http.Request) {
		handleBattery(host, w, req)
	})
}

func handleGetLens(host plugins.Host, w http.ResponseWriter, r *http.Request) {
	inst, ok := plugins.Lookup(host, w, moduleID)
	if !ok {
		return
	}
	data := plugins.Report(inst)
	host.WriteJSON(w, http.StatusOK, map[string]interface{}{"lens": data["lens"]})
}

type lensRequest struct {
	Lens string `json:"lens"` // one of A, B, X
}

func handleSetLens(host plugins.Host, w http.ResponseWriter, r *http.Request) {
	inst, ok := plugins.Lookup(host, w, moduleID)
	if !ok {
		return
	}
	var req lensRequest
	if !plugins.DecodeJSON(host, w, r, &req) {
		return
	}
	switch req.Lens {
	case "A", "B", "X":
	default:
		host.WriteError(w, http.StatusBadRequest, "VALIDATION_ERROR", "lens must be one of A, B, X")
		return
	}
	if !plugins.SendCommand(host, w, inst, "set_lens", map[string]interface{}{"lens": req.Lens}) {
		return
	}
	host.WriteJSON(w, http.StatusOK, map[string]interface{}{"lens": req.Lens})
}

func handleBattery(host plugins.Host, w http.ResponseWriter, r *http.Request) {
	inst, ok := plugins.Lookup(host, w, moduleID)
	if !ok {
		return
	}
	wireless := false
	for _, d := range host.Registry().List(registry.FamilyVOG) {
		if d.IsWireless {
			wireless = true
			break
		}
	}
	if !wireless {
		plugins.NotWirelessDevice(host, w)
		return
	}
	data := plugins.Report(inst)
	host.WriteJSON(w, http.StatusOK, map[string]interface{}{"battery_percent": data["battery_percent"]})
}
