package api

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/gilchrisn/graph-insight/pkg/metrics"
)

// SetupRoutes registers the /api/v1 endpoints on router.
func SetupRoutes(router *mux.Router, handlers *Handlers) {
	// API version prefix
	api := router.PathPrefix("/api/v1").Subrouter()

	api.HandleFunc("/health", handlers.HealthCheck).Methods("GET")

	// Graph query endpoints
	g := api.PathPrefix("/graph").Subrouter()
	g.HandleFunc("/summary", handlers.GetSummary).Methods("GET")
	g.HandleFunc("/degrees/top", handlers.GetTopDegrees).Methods("GET")
	g.HandleFunc("/degrees/sample", handlers.GetDegreeSample).Methods("GET")
	g.HandleFunc("/nodes/{id:-?[0-9]+}", handlers.GetNode).Methods("GET")
	g.HandleFunc("/nodes/{id:-?[0-9]+}/paths", handlers.GetDistances).Methods("GET")
	g.HandleFunc("/path", handlers.GetPath).Methods("GET")
	g.HandleFunc("/common", handlers.GetCommonNeighbors).Methods("GET")

	// Job management endpoints
	jobs := api.PathPrefix("/jobs").Subrouter()
	jobs.HandleFunc("", handlers.SubmitJob).Methods("POST")
	jobs.HandleFunc("", handlers.ListJobs).Methods("GET")
	jobs.HandleFunc("/{jobId}", handlers.GetJob).Methods("GET")
	jobs.HandleFunc("/{jobId}", handlers.CancelJob).Methods("DELETE")
}

// NewRouter builds the complete handler: API routes, /metrics, logging,
// panic recovery and CORS.
func NewRouter(handlers *Handlers, reg *metrics.Registry, allowedOrigins []string) http.Handler {
	router := mux.NewRouter()
	SetupRoutes(router, handlers)
	if reg != nil {
		router.Handle("/metrics", promhttp.HandlerFor(reg.GetPrometheusRegistry(), promhttp.HandlerOpts{}))
	}

	router.Use(LoggingMiddleware(reg))
	router.Use(RecoveryMiddleware)

	return CORSHandler(router, allowedOrigins)
}
