// Package gps is the build-time REST controller extension for the GPS
// module: exposes the most recent fix and raw NMEA sentence alongside
// the generic module routes.
package gps

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/JoelCooperPhD/sessionctl/internal/api/plugins"
)

const moduleID = "gps"

type extension struct{}

func init() {
	plugins.Register(extension{})
}

func (extension) Spec() plugins.Spec {
	return plugins.Spec{ModuleID: moduleID, Version: "1.0", Description: "GPS fix reporting"}
}

func (extension) InstallRoutes(r chi.Router, host plugins.Host) {
	r.Get("/fix", func(w http.ResponseWriter, req *http.Request) {
		handleFix(host, w, req)
	})
	r.Get("/nmea", func(w http.ResponseWriter, req *http.Request) {
		handleNMEA(host, w, req)
	})
}

// handleFix surfaces the latitude/longitude/fix_valid fields from the
// module's last status_report, matching the GPS CSV's own column
// naming so a caller can reuse field names across both
// surfaces.
func handleFix(host plugins.Host, w http.ResponseWriter, r *http.Request) {
	inst, ok := plugins.Lookup(host, w, moduleID)
	if !ok {
		return
	}
	data := plugins.Report(inst)
	host.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"latitude_deg":  data["latitude_deg"],
		"longitude_deg": data["longitude_deg"],
		"fix_valid":     data["fix_valid"],
	})
}

// handleNMEA returns the raw last-seen NMEA sentence, when the module
// chooses to include one in its status_report payload.
func handleNMEA(host plugins.Host, w http.ResponseWriter, r *http.Request) {
	inst, ok := plugins.Lookup(host, w, moduleID)
	if !ok {
		return
	}
	data := plugins.Report(inst)
	host.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"sentence": data["nmea_sentence"],
	})
}
