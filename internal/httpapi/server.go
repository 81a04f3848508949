// Package httpapi exposes a small introspection surface over the platform
// layer: topology discovery, dry-run configuration resolution, health and
// metrics. It never mutates the process environment; environment wiring
// stays a CLI-only side effect.
package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"cpuplatd/internal/config"
	"cpuplatd/internal/numa"
	"cpuplatd/internal/platform"
	"cpuplatd/pkg/types"
)

// discover is swapped out in tests to avoid depending on the host topology.
var discover = numa.Discover

// maxBodyBytes caps request bodies on JSON endpoints.
const maxBodyBytes = 1 << 20

// ResolveResponse is the result of a successful dry-run resolution.
type ResolveResponse struct {
	Config      *config.RuntimeConfig `json:"config"`
	Corrections []types.Correction    `json:"corrections"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// NewMux builds the introspection router.
func NewMux() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{AllowedOrigins: []string{"*"}, AllowedMethods: []string{"GET", "POST"}}))
	r.Use(MetricsMiddleware)
	r.Use(requestLogger)

	r.Get("/healthz", handleHealthz)
	r.Get("/v1/topology", handleTopology)
	r.Post("/v1/resolve", handleResolve)
	r.Handle("/metrics", promhttp.Handler())
	return r
}

func handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func handleTopology(w http.ResponseWriter, r *http.Request) {
	topo, err := discover()
	if err != nil {
		topologyQueriesTotal.WithLabelValues("error").Inc()
		writeJSON(w, statusForError(err), errorResponse{Error: err.Error()})
		return
	}
	topologyQueriesTotal.WithLabelValues("ok").Inc()
	writeJSON(w, http.StatusOK, topo)
}

func handleResolve(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()
	cfg := config.Default()
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(cfg); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid config body: " + err.Error()})
		return
	}
	// The resolver treats a foreign device type as a caller bug; over HTTP
	// it is user input, so reject it here.
	if cfg.Device.DeviceType != platform.DeviceType {
		writeJSON(w, http.StatusUnprocessableEntity, errorResponse{Error: "device_type must be " + platform.DeviceType})
		return
	}
	rep, err := platform.Resolve(cfg)
	if err != nil {
		writeJSON(w, statusForError(err), errorResponse{Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, ResolveResponse{Config: cfg, Corrections: rep.Corrections})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logError("encode response", err)
	}
}
