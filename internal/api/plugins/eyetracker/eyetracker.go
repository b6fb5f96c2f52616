// Package eyetracker is the build-time REST controller extension for
// the eye-tracker module: last gaze sample and last IMU sample
// alongside the generic module routes.
package eyetracker

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/JoelCooperPhD/sessionctl/internal/api/plugins"
)

const moduleID = "eyetracker"

type extension struct{}

func init() {
	plugins.Register(extension{})
}

func (extension) Spec() plugins.Spec {
	return plugins.Spec{ModuleID: moduleID, Version: "1.0", Description: "eye-tracker gaze and IMU streams"}
}

func (extension) InstallRoutes(r chi.Router, host plugins.Host) {
	r.Get("/gaze", func(w http.ResponseWriter, req *http.Request) {
		handleGaze(host, w, req)
	})
	r.Get("/imu", func(w http.ResponseWriter, req *http.Request) {
		handleIMU(host, w, req)
	})
}

// handleGaze mirrors the leading fields of the 36-column gaze CSV
// rather than the full row - the CSV is the durable
// record; this route is a live-state peek.
func handleGaze(host plugins.Host, w http.ResponseWriter, r *http.Request) {
	inst, ok := plugins.Lookup(host, w, moduleID)
	if !ok {
		return
	}
	data := plugins.Report(inst)
	host.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"gaze_x":              data["gaze_x"],
		"gaze_y":              data["gaze_y"],
		"pupil_diameter_mm":   data["pupil_diameter_mm"],
		"gaze_timestamp_unix": data["gaze_timestamp_unix"],
	})
}

func handleIMU(host plugins.Host, w http.ResponseWriter, r *http.Request) {
	inst, ok := plugins.Lookup(host, w, moduleID)
	if !ok {
		return
	}
	data := plugins.Report(inst)
	host.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"accel_x": data["accel_x"],
		"accel_y": data["accel_y"],
		"accel_z": data["accel_z"],
		"gyro_x":  data["gyro_x"],
		"gyro_y":  data["gyro_y"],
		"gyro_z":  data["gyro_z"],
	})
}
