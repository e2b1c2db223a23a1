// Package models holds the types shared by the job service and the HTTP API.
package models

import (
	"time"

	"github.com/gilchrisn/graph-insight/pkg/analysis"
	"github.com/gilchrisn/graph-insight/pkg/louvain"
)

// Job represents an analysis job
type Job struct {
	ID          string        `json:"id"`
	Kind        JobKind       `json:"kind"`
	Parameters  JobParameters `json:"parameters"`
	Status      JobStatus     `json:"status"`
	Progress    JobProgress   `json:"progress"`
	Result      *JobResult    `json:"result,omitempty"`
	Error       string        `json:"error,omitempty"`
	CreatedAt   time.Time     `json:"createdAt"`
	UpdatedAt   time.Time     `json:"updatedAt"`
	StartedAt   *time.Time    `json:"startedAt,omitempty"`
	CompletedAt *time.Time    `json:"completedAt,omitempty"`
}

type JobKind string

const (
	JobLouvain JobKind = "louvain"
	JobPaths   JobKind = "paths"
	JobDegrees JobKind = "degrees"
)

// Valid reports whether k names a known job kind.
func (k JobKind) Valid() bool {
	switch k {
	case JobLouvain, JobPaths, JobDegrees:
		return true
	}
	return false
}

type JobParameters struct {
	// Louvain parameters
	MaxLevels         *int     `json:"maxLevels,omitempty"`
	MaxIterations     *int     `json:"maxIterations,omitempty"`
	MinModularityGain *float64 `json:"minModularityGain,omitempty"`
	Tolerance         *float64 `json:"tolerance,omitempty"`
	Parallel          *bool    `json:"parallel,omitempty"`

	// Sampling parameters
	SampleSize *int `json:"sampleSize,omitempty"`
	TopK       *int `json:"topK,omitempty"`

	// Shared by every kind
	RandomSeed *int64 `json:"randomSeed,omitempty"`
}

type JobStatus string

const (
	JobStatusQueued    JobStatus = "queued"
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
	JobStatusCancelled JobStatus = "cancelled"
)

// Final reports whether s is a terminal status.
func (s JobStatus) Final() bool {
	return s == JobStatusCompleted || s == JobStatusFailed || s == JobStatusCancelled
}

type JobProgress struct {
	Percentage int    `json:"percentage"`
	Message    string `json:"message"`
}

// JobResult carries the outcome of one job; only the field matching the job
// kind is set.
type JobResult struct {
	ProcessingTimeMS int64 `json:"processingTimeMS"`

	Louvain *louvain.Report      `json:"louvain,omitempty"`
	Paths   *analysis.PathSample `json:"paths,omitempty"`
	Degrees *DegreeSummary       `json:"degrees,omitempty"`
}

type DegreeSummary struct {
	Sample analysis.DegreeStats  `json:"sample"`
	Top    []analysis.NodeDegree `json:"top"`
}

// JobRequest is the body of POST /jobs.
type JobRequest struct {
	Kind       JobKind       `json:"kind"`
	Parameters JobParameters `json:"parameters"`
}

// API Response types
type APIResponse struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// PathResponse is returned by the path query endpoint.
type PathResponse struct {
	From int   `json:"from"`
	To   int   `json:"to"`
	Hops int   `json:"hops"`
	Path []int `json:"path"`
}

// DistancesResponse is returned by the single-source distance endpoint.
type DistancesResponse struct {
	Seed      int         `json:"seed"`
	Reached   int         `json:"reached"`
	Distances map[int]int `json:"distances"`
}

type CommonNeighborsResponse struct {
	A      int   `json:"a"`
	B      int   `json:"b"`
	Common []int `json:"common"`
}
