// Package httpapi provides the chi-backed implementation of the
// orchestration core's APIRegistrar, plus the controller's diagnostics
// endpoints. Modules register their operator methods through the registrar
// during the dedicated API pass; the registrar mounts each one under
// /modules/{module}/{method} without interpreting it.
package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/frostdyne/coldcore"
)

// Registrar mounts module API methods and diagnostics routes on a chi router.
type Registrar struct {
	mux    chi.Router
	logger coldcore.Logger
}

// NewRegistrar creates a registrar with panic recovery installed, so a
// misbehaving module handler cannot take down the diagnostics surface.
func NewRegistrar(logger coldcore.Logger) *Registrar {
	mux := chi.NewRouter()
	mux.Use(middleware.Recoverer)
	return &Registrar{mux: mux, logger: logger}
}

// Register implements coldcore.APIRegistrar. Methods are reachable under
// /modules/{module}/{method} for any HTTP verb; what a method means is
// entirely up to the module.
func (r *Registrar) Register(module, method string, handler http.HandlerFunc) {
	pattern := "/modules/" + module + "/" + method
	r.mux.HandleFunc(pattern, handler)
	r.logger.Debug("Mounted module API method", "module", module, "method", method, "pattern", pattern)
}

// MountDiagnostics exposes the orchestrator's health report at /health, the
// registered module list at /modules and the watchdog records at /heartbeats.
// The watchdog may be nil.
func (r *Registrar) MountDiagnostics(orch *coldcore.Orchestrator, watchdog *coldcore.Watchdog) {
	r.mux.Get("/health", func(w http.ResponseWriter, req *http.Request) {
		writeJSON(w, http.StatusOK, orch.HealthReport())
	})
	r.mux.Get("/modules", func(w http.ResponseWriter, req *http.Request) {
		writeJSON(w, http.StatusOK, orch.ModuleNames())
	})
	r.mux.Get("/modules/{name}/stats", func(w http.ResponseWriter, req *http.Request) {
		name := chi.URLParam(req, "name")
		stats, ok := orch.Stats(name)
		if !ok {
			http.Error(w, "module not found", http.StatusNotFound)
			return
		}
		writeJSON(w, http.StatusOK, stats)
	})
	if watchdog != nil {
		r.mux.Get("/heartbeats", func(w http.ResponseWriter, req *http.Request) {
			writeJSON(w, http.StatusOK, watchdog.Statuses())
		})
	}
}

// Handler returns the assembled router for serving.
func (r *Registrar) Handler() http.Handler {
	return r.mux
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
