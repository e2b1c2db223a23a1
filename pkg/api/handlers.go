// Package api exposes the graph queries and analysis jobs over HTTP.
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"

	"github.com/gilchrisn/graph-insight/pkg/analysis"
	"github.com/gilchrisn/graph-insight/pkg/models"
	"github.com/gilchrisn/graph-insight/pkg/service"
)

// Handlers contains HTTP request handlers
type Handlers struct {
	graphService *service.GraphService
	jobService   *service.JobService
	startedAt    time.Time
}

// NewHandlers creates new API handlers
func NewHandlers(graphService *service.GraphService, jobService *service.JobService) *Handlers {
	return &Handlers{
		graphService: graphService,
		jobService:   jobService,
		startedAt:    time.Now(),
	}
}

// HealthCheck reports liveness and the size of the loaded graph
func (h *Handlers) HealthCheck(w http.ResponseWriter, r *http.Request) {
	g := h.graphService.Graph()
	WriteSuccessResponse(w, http.StatusOK, "Service is healthy", map[string]interface{}{
		"status":    "healthy",
		"uptime_ms": time.Since(h.startedAt).Milliseconds(),
		"nodes":     g.NumNodes(),
		"edges":     g.NumEdges(),
	})
}

// GetSummary returns whole-graph figures and the ingestion report
func (h *Handlers) GetSummary(w http.ResponseWriter, r *http.Request) {
	WriteSuccessResponse(w, http.StatusOK, "Graph summary retrieved successfully", map[string]interface{}{
		"summary": h.graphService.Summary(),
		"load":    h.graphService.LoadReport(),
	})
}

// GetTopDegrees returns the nodes with the largest out-degree
func (h *Handlers) GetTopDegrees(w http.ResponseWriter, r *http.Request) {
	k, err := queryInt(r, "k", 0)
	if err != nil || k < 0 {
		WriteErrorResponse(w, http.StatusBadRequest, "Invalid parameter: k", err)
		return
	}
	WriteSuccessResponse(w, http.StatusOK, "Top nodes retrieved successfully", h.graphService.TopDegrees(k))
}

// GetDegreeSample returns out-degree statistics over a node sample
func (h *Handlers) GetDegreeSample(w http.ResponseWriter, r *http.Request) {
	n, err := queryInt(r, "n", 0)
	if err != nil || n < 0 {
		WriteErrorResponse(w, http.StatusBadRequest, "Invalid parameter: n", err)
		return
	}
	seed, err := queryInt64(r, "seed")
	if err != nil {
		WriteErrorResponse(w, http.StatusBadRequest, "Invalid parameter: seed", err)
		return
	}
	WriteSuccessResponse(w, http.StatusOK, "Degree sample computed successfully", h.graphService.DegreeSample(n, seed))
}

// GetNode returns a node's location and connections
func (h *Handlers) GetNode(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil {
		WriteErrorResponse(w, http.StatusBadRequest, "Invalid node id", err)
		return
	}
	info, err := h.graphService.Node(id)
	if err != nil {
		writeQueryError(w, err)
		return
	}
	WriteSuccessResponse(w, http.StatusOK, "Node retrieved successfully", info)
}

// GetDistances returns hop distances from one node
func (h *Handlers) GetDistances(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil {
		WriteErrorResponse(w, http.StatusBadRequest, "Invalid node id", err)
		return
	}

	dist, err := h.graphService.Distances(id)
	if err != nil {
		writeQueryError(w, err)
		return
	}
	WriteSuccessResponse(w, http.StatusOK, "Distances computed successfully", models.DistancesResponse{
		Seed:      id,
		Reached:   len(dist) - 1,
		Distances: dist,
	})
}

// GetPath returns one shortest path between two nodes
func (h *Handlers) GetPath(w http.ResponseWriter, r *http.Request) {
	from, errFrom := queryInt(r, "from", -1)
	to, errTo := queryInt(r, "to", -1)
	if err := errors.Join(errFrom, errTo); err != nil || !r.URL.Query().Has("from") || !r.URL.Query().Has("to") {
		WriteErrorResponse(w, http.StatusBadRequest, "Parameters from and to are required integers", err)
		return
	}
	maxDepth, err := queryInt(r, "maxDepth", -1)
	if err != nil {
		WriteErrorResponse(w, http.StatusBadRequest, "Invalid parameter: maxDepth", err)
		return
	}

	path, err := h.graphService.Path(from, to, maxDepth)
	if err != nil {
		writeQueryError(w, err)
		return
	}
	WriteSuccessResponse(w, http.StatusOK, "Path found", models.PathResponse{
		From: from,
		To:   to,
		Hops: len(path) - 1,
		Path: path,
	})
}

// GetCommonNeighbors returns the out-neighbours two nodes share
func (h *Handlers) GetCommonNeighbors(w http.ResponseWriter, r *http.Request) {
	a, errA := queryInt(r, "a", -1)
	b, errB := queryInt(r, "b", -1)
	if err := errors.Join(errA, errB); err != nil || !r.URL.Query().Has("a") || !r.URL.Query().Has("b") {
		WriteErrorResponse(w, http.StatusBadRequest, "Parameters a and b are required integers", err)
		return
	}

	common, err := h.graphService.CommonNeighbors(a, b)
	if err != nil {
		writeQueryError(w, err)
		return
	}
	WriteSuccessResponse(w, http.StatusOK, "Common neighbors retrieved successfully", models.CommonNeighborsResponse{
		A:      a,
		B:      b,
		Common: common,
	})
}

func writeQueryError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, analysis.ErrUnknownNode):
		WriteErrorResponse(w, http.StatusNotFound, "Node not found", err)
	case errors.Is(err, analysis.ErrNoPath):
		WriteErrorResponse(w, http.StatusNotFound, "No path found", err)
	default:
		WriteErrorResponse(w, http.StatusInternalServerError, "Query failed", err)
	}
}

// SubmitJob queues an analysis job
func (h *Handlers) SubmitJob(w http.ResponseWriter, r *http.Request) {
	var req models.JobRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteErrorResponse(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	job, err := h.jobService.Submit(req.Kind, req.Parameters)
	if err != nil {
		log.Error().Err(err).Str("kind", string(req.Kind)).Msg("Job submission rejected")
		WriteErrorResponse(w, http.StatusBadRequest, "Job submission failed", err)
		return
	}
	WriteSuccessResponse(w, http.StatusAccepted, "Job submitted successfully", job)
}

// ListJobs lists all known jobs
func (h *Handlers) ListJobs(w http.ResponseWriter, r *http.Request) {
	WriteSuccessResponse(w, http.StatusOK, "Jobs retrieved successfully", h.jobService.List())
}

// GetJob retrieves a job and, once finished, its result
func (h *Handlers) GetJob(w http.ResponseWriter, r *http.Request) {
	jobID := mux.Vars(r)["jobId"]

	job, err := h.jobService.Get(jobID)
	if err != nil {
		WriteErrorResponse(w, http.StatusNotFound, "Job not found", err)
		return
	}
	WriteSuccessResponse(w, http.StatusOK, "Job retrieved successfully", job)
}

// CancelJob cancels a queued or running job
func (h *Handlers) CancelJob(w http.ResponseWriter, r *http.Request) {
	jobID := mux.Vars(r)["jobId"]

	if err := h.jobService.Cancel(jobID); err != nil {
		WriteErrorResponse(w, http.StatusNotFound, "Job not found", err)
		return
	}
	job, err := h.jobService.Get(jobID)
	if err != nil {
		WriteErrorResponse(w, http.StatusNotFound, "Job not found", err)
		return
	}
	WriteSuccessResponse(w, http.StatusOK, "Job cancelled", job)
}
