// Package plugins implements the build-time per-module controller
// extension registry: every module extension is a statically compiled package
// under internal/api/plugins/<module> that registers itself with
// Register from an init() function. internal/api blank-imports every
// extension package once, so the registration table is fully populated
// before the router is built - no reflection, no runtime loading.
package plugins

import (
	"net/http"
	"sort"

	"github.com/go-chi/chi/v5"

	"github.com/JoelCooperPhD/sessionctl/internal/orchestrator"
	"github.com/JoelCooperPhD/sessionctl/internal/registry"
)

// Spec describes one module extension, returned alongside the routes
// it installs.
type Spec struct {
	ModuleID    string
	Version     string
	Description string
}

// Host is the narrow surface an extension needs from the REST control
// plane's controller: the orchestrator, the device registry, and the
// shared JSON/error response helpers. Depending on this interface
// rather than the concrete api.Controller type keeps this package free
// of an import cycle back to internal/api.
type Host interface {
	Orchestrator() *orchestrator.Orchestrator
	Registry() *registry.Registry
	WriteJSON(w http.ResponseWriter, status int, v interface{})
	WriteError(w http.ResponseWriter, status int, code, message string)
}

// Extension is implemented by every per-module controller extension
// package (audio, cameras, gps, eyetracker, drt, vog, notes).
type Extension interface {
	Spec() Spec
	InstallRoutes(r chi.Router, host Host)
}

var registered = map[string]Extension{}

// Register adds ext to the build-time registry, keyed by its module
// id. Called only from package init() functions.
func Register(ext Extension) {
	registered[ext.Spec().ModuleID] = ext
}

// All returns every registered extension, sorted by module id for
// deterministic route installation order.
func All() []Extension {
	ids := make([]string, 0, len(registered))
	for id := range registered {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	out := make([]Extension, 0, len(ids))
	for _, id := range ids {
		out = append(out, registered[id])
	}
	return out
}
