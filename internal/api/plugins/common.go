package plugins

import (
	"encoding/json"
	"net/http"

	"github.com/JoelCooperPhD/sessionctl/internal/orchestrator"
)

// Lookup resolves moduleID against host's orchestrator, writing a 404
// MODULE_NOT_FOUND response and returning ok=false if it isn't
// registered - the same not-found convention every extension's routes
// share. Exported so every
// per-module extension package can reuse it without duplicating the
// lookup/error-write boilerplate.
func Lookup(host Host, w http.ResponseWriter, moduleID string) (*orchestrator.Instance, bool) {
	inst, ok := host.Orchestrator().Module(moduleID)
	if !ok {
		host.WriteError(w, http.StatusNotFound, "MODULE_NOT_FOUND", "module not found: "+moduleID)
		return nil, false
	}
	return inst, true
}

// Report returns the instance's last cached status_report Data, or an
// empty map if none has arrived yet - callers surface individual keys
// rather than failing outright, since "no report yet" isn't an error
// condition for a module that simply hasn't reported in yet.
func Report(inst *orchestrator.Instance) map[string]interface{} {
	if data := inst.LastReport(); data != nil {
		return data
	}
	return map[string]interface{}{}
}

// SendCommand forwards name/params to inst's running process, mapping
// a not-running instance to 400 VALIDATION_ERROR instead of the
// generic 404 used for an unregistered module.
func SendCommand(host Host, w http.ResponseWriter, inst *orchestrator.Instance, name string, params map[string]interface{}) bool {
	if err := inst.Send(name, params); err != nil {
		host.WriteError(w, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
		return false
	}
	return true
}

// DecodeJSON reads and decodes a JSON request body, writing a 400
// VALIDATION_ERROR and returning false on failure. A zero-length body
// is treated as "nothing to decode" and returns true unchanged.
func DecodeJSON(host Host, w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if r.ContentLength == 0 {
		return true
	}
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		host.WriteError(w, http.StatusBadRequest, "VALIDATION_ERROR", "invalid JSON body")
		return false
	}
	return true
}

// NotWirelessDevice writes the 400 NOT_WIRELESS_DEVICE response
// returned when a battery query is attempted against a wired device
// variant. Lens switching is not gated on the device variant.
func NotWirelessDevice(host Host, w http.ResponseWriter) {
	host.WriteError(w, http.StatusBadRequest, "NOT_WIRELESS_DEVICE", "operation requires a wireless device variant")
}
