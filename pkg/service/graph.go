// Package service runs analyses against the loaded graph, either inline for
// cheap queries or as background jobs.
package service

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/gilchrisn/graph-insight/pkg/analysis"
	"github.com/gilchrisn/graph-insight/pkg/config"
	"github.com/gilchrisn/graph-insight/pkg/graph"
	"github.com/gilchrisn/graph-insight/pkg/louvain"
	"github.com/gilchrisn/graph-insight/pkg/metrics"
	"github.com/gilchrisn/graph-insight/pkg/models"
	"github.com/gilchrisn/graph-insight/pkg/parser"
)

// RelevantCommunitySize is the member count a community must exceed to be
// listed in reports.
const RelevantCommunitySize = 10

// GraphService owns one immutable graph and answers queries about it. All
// methods are safe for concurrent use.
type GraphService struct {
	g        *graph.Graph
	load     *parser.LoadReport
	cfg      *config.Config
	metrics  *metrics.Registry
	topLimit int
}

// NewGraphService wraps g. load may be nil when the graph was not read from
// files.
func NewGraphService(g *graph.Graph, load *parser.LoadReport, cfg *config.Config, reg *metrics.Registry) *GraphService {
	if reg != nil {
		reg.UpdateGraphMetrics(g)
		if load != nil {
			reg.RecordGraphLoad(load.Duration)
		}
	}
	return &GraphService{
		g:        g,
		load:     load,
		cfg:      cfg,
		metrics:  reg,
		topLimit: 1000,
	}
}

// Graph returns the underlying graph.
func (s *GraphService) Graph() *graph.Graph { return s.g }

// LoadReport returns the ingestion counters, or nil.
func (s *GraphService) LoadReport() *parser.LoadReport { return s.load }

// Summary reports the size of the graph.
func (s *GraphService) Summary() analysis.Summary {
	return analysis.Summarize(s.g)
}

// TopDegrees returns the k nodes with the largest out-degree. k <= 0 means
// the configured default.
func (s *GraphService) TopDegrees(k int) []analysis.NodeDegree {
	if k <= 0 {
		k = s.cfg.Sampling.TopK
	}
	return analysis.TopKByDegree(s.g, min(k, s.topLimit))
}

// DegreeSample computes out-degree statistics over n sampled nodes.
func (s *GraphService) DegreeSample(n int, seed *int64) analysis.DegreeStats {
	if n <= 0 {
		n = s.cfg.Sampling.DegreeSample
	}
	start := time.Now()
	stats := analysis.DegreeDistributionSample(s.g, n, analysis.WithRandomSeed(s.seed(seed)))
	s.recordSampling("degrees", nil, start)
	return stats
}

// Node returns the location and connections of id.
func (s *GraphService) Node(id int) (analysis.NodeInfo, error) {
	return analysis.DescribeNode(s.g, id)
}

// Distances returns hop distances from seed.
func (s *GraphService) Distances(seed int) (map[int]int, error) {
	if !s.g.HasNode(seed) {
		return nil, analysis.ErrUnknownNode
	}
	return analysis.ShortestPathsFrom(s.g, seed), nil
}

// Path returns one shortest path from one node to another.
func (s *GraphService) Path(from, to, maxDepth int) ([]int, error) {
	return analysis.FindPath(s.g, from, to, maxDepth)
}

// CommonNeighbors returns the out-neighbours a and b share.
func (s *GraphService) CommonNeighbors(a, b int) ([]int, error) {
	return analysis.CommonNeighbors(s.g, a, b)
}

// SamplePaths estimates the average shortest path from n random seeds.
func (s *GraphService) SamplePaths(ctx context.Context, n int, seed *int64) (analysis.PathSample, error) {
	if n <= 0 {
		n = s.cfg.Sampling.PathSample
	}
	opts := []analysis.SampleOption{
		analysis.WithRandomSeed(s.seed(seed)),
		analysis.WithWorkers(s.cfg.Sampling.Workers),
	}
	if s.metrics != nil {
		opts = append(opts, analysis.WithSeedCallback(s.metrics.ObserveSeed))
	}

	start := time.Now()
	sample, err := analysis.SamplePaths(ctx, s.g, n, opts...)
	s.recordSampling("paths", err, start)
	return sample, err
}

// Communities runs Louvain with the configured settings overridden by p.
func (s *GraphService) Communities(ctx context.Context, p models.JobParameters, observer louvain.Observer) (*louvain.Result, error) {
	lc := s.LouvainConfig(p)
	var opts []louvain.Option
	switch {
	case observer != nil && s.metrics != nil:
		opts = append(opts, louvain.WithObserver(observers{observer, s.metrics}))
	case observer != nil:
		opts = append(opts, louvain.WithObserver(observer))
	case s.metrics != nil:
		opts = append(opts, louvain.WithObserver(s.metrics))
	}
	return louvain.Run(ctx, s.g, lc, opts...)
}

// LouvainConfig applies the non-nil fields of p to a copy of the
// configured algorithm settings.
func (s *GraphService) LouvainConfig(p models.JobParameters) *louvain.Config {
	lc := s.cfg.Louvain().Clone()
	if p.MaxLevels != nil {
		lc.Set("algorithm.max_levels", *p.MaxLevels)
	}
	if p.MaxIterations != nil {
		lc.Set("algorithm.max_iterations", *p.MaxIterations)
	}
	if p.MinModularityGain != nil {
		lc.Set("algorithm.min_modularity_gain", *p.MinModularityGain)
	}
	if p.Tolerance != nil {
		lc.Set("algorithm.tolerance", *p.Tolerance)
	}
	if p.Parallel != nil {
		lc.Set("performance.parallel", *p.Parallel)
	}
	if p.RandomSeed != nil {
		lc.Set("algorithm.random_seed", *p.RandomSeed)
	}
	return lc
}

// Report summarises a Louvain result the way the API and CLI show it.
func (s *GraphService) Report(result *louvain.Result) louvain.Report {
	return louvain.NewReport(result, RelevantCommunitySize, s.cfg.Sampling.TopK)
}

func (s *GraphService) seed(override *int64) int64 {
	if override != nil {
		return *override
	}
	return s.cfg.Sampling.RandomSeed
}

func (s *GraphService) recordSampling(kind string, err error, start time.Time) {
	status := "success"
	if err != nil {
		status = "error"
		if !errors.Is(err, context.Canceled) {
			log.Error().Err(err).Str("kind", kind).Msg("Sampling failed")
		}
	}
	if s.metrics != nil {
		s.metrics.RecordSampling(kind, status, time.Since(start))
	}
}

// observers fans one run's measurements out to several observers.
type observers []louvain.Observer

func (o observers) ObserveLevel(level, moves int, modularity float64) {
	for _, obs := range o {
		obs.ObserveLevel(level, moves, modularity)
	}
}

func (o observers) ObserveRun(result *louvain.Result, elapsed time.Duration) {
	for _, obs := range o {
		obs.ObserveRun(result, elapsed)
	}
}
