package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/JoelCooperPhD/sessionctl/internal/registry"
)

// mountDeviceRoutes wires /devices, /devices/{id}/connect|disconnect,
// /devices/scanning/..., and /connections/....
func mountDeviceRoutes(r chi.Router, ctl *Controller) {
	r.Get("/devices", ctl.wrap(handleListDevices))
	r.Get("/devices/{id}", ctl.wrap(handleGetDevice))
	r.Post("/devices/{id}/connect", ctl.wrap(handleConnectDevice))
	r.Post("/devices/{id}/disconnect", ctl.wrap(handleDisconnectDevice))
	r.Get("/devices/scanning/status", ctl.wrap(handleScanningStatus))
	r.Get("/connections", ctl.wrap(handleListDevices))
}

func deviceJSON(d registry.Device) map[string]interface{} {
	return map[string]interface{}{
		"device_id":    d.DeviceID,
		"display_name": d.DisplayName,
		"family":       d.ModuleID.String(),
		"interface":    d.Interface.String(),
		"port":         d.Port,
		"is_wireless":  d.IsWireless,
		"device_type":  d.DeviceType,
		"connected":    d.Connected,
		"connecting":   d.Connecting,
	}
}

func handleListDevices(c *Controller, w http.ResponseWriter, r *http.Request) error {
	devices := c.reg.List(registry.FamilyUnknown)
	out := make([]map[string]interface{}, 0, len(devices))
	for _, d := range devices {
		out = append(out, deviceJSON(d))
	}
	c.WriteJSON(w, http.StatusOK, map[string]interface{}{"devices": out})
	return nil
}

func handleGetDevice(c *Controller, w http.ResponseWriter, r *http.Request) error {
	id := chi.URLParam(r, "id")
	d, ok := c.reg.Get(id)
	if !ok {
		return ErrNotFound("DEVICE_NOT_FOUND", "device not found: "+id)
	}
	c.WriteJSON(w, http.StatusOK, deviceJSON(d))
	return nil
}

func handleConnectDevice(c *Controller, w http.ResponseWriter, r *http.Request) error {
	id := chi.URLParam(r, "id")
	d, ok := c.reg.Connect(id)
	if !ok {
		return ErrNotFound("DEVICE_NOT_FOUND", "device not found: "+id)
	}
	c.WriteJSON(w, http.StatusOK, deviceJSON(d))
	return nil
}

func handleDisconnectDevice(c *Controller, w http.ResponseWriter, r *http.Request) error {
	id := chi.URLParam(r, "id")
	d, ok := c.reg.Disconnect(id)
	if !ok {
		return ErrNotFound("DEVICE_NOT_FOUND", "device not found: "+id)
	}
	c.WriteJSON(w, http.StatusOK, deviceJSON(d))
	return nil
}

func handleScanningStatus(c *Controller, w http.ResponseWriter, r *http.Request) error {
	devices := c.reg.List(registry.FamilyUnknown)
	connecting := 0
	for _, d := range devices {
		if d.Connecting {
			connecting++
		}
	}
	c.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"total":      len(devices),
		"connecting": connecting,
	})
	return nil
}
