// Package drt is the build-time REST controller extension for the
// detection-response-time module family: last-trial reaction time and
// battery level for the wireless device variant.
package drt

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/JoelCooperPhD/sessionctl/internal/api/plugins"
	"github.com/JoelCooperPhD/sessionctl/internal/registry"
)

const moduleID = "drt"

type extension struct{}

func init() {
	plugins.Register(extension{})
}

func (extension) Spec() plugins.Spec {
	return plugins.Spec{ModuleID: moduleID, Version: "1.0", Description: "detection response-time device"}
}

func (extension) InstallRoutes(r chi.Router, host plugins.Host) {
	r.Get("/last", func(w http.ResponseWriter, req *http.Request) {
		handleLast(host, w, req)
	})
	r.Get("/battery", func(w http.ResponseWriter, req *http.Request) {
		handleBattery(host, w, req)
	})
}

func handleLast(host plugins.Host, w http.ResponseWriter, r *http.Request) {
	inst, ok := plugins.Lookup(host, w, moduleID)
	if !ok {
		return
	}
	data := plugins.Report(inst)
	host.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"reaction_time_ms": data["reaction_time_ms"],
	})
}

// handleBattery rejects wired device variants with 400
// NOT_WIRELESS_DEVICE by
// inspecting the registry's device record for this module family
// rather than the status report, since wireless-vs-wired is a device
// property, not something the module necessarily echoes back.
func handleBattery(host plugins.Host, w http.ResponseWriter, r *http.Request) {
	inst, ok := plugins.Lookup(host, w, moduleID)
	if !ok {
		return
	}
	if !anyWireless(host, registry.FamilyDRT) {
		plugins.NotWirelessDevice(host, w)
		return
	}
	data := plugins.Report(inst)
	host.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"battery_percent": data["battery_percent"],
	})
}

func anyWireless(host plugins.Host, family registry.DeviceFamily) bool {
	for _, d := range host.Registry().List(family) {
		if d.IsWireless {
			return true
		}
	}
	return false
}
