package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/gilchrisn/graph-insight/pkg/config"
	"github.com/gilchrisn/graph-insight/pkg/graph"
	"github.com/gilchrisn/graph-insight/pkg/louvain"
	"github.com/gilchrisn/graph-insight/pkg/metrics"
	"github.com/gilchrisn/graph-insight/pkg/models"
	"github.com/gilchrisn/graph-insight/pkg/parser"
	"github.com/gilchrisn/graph-insight/pkg/service"
)

type analyzeOptions struct {
	outputDir    string
	outputPrefix string
	skipPaths    bool
	skipLouvain  bool
	crossCheck   bool

	// stabilitySeed, when set, reruns Louvain with this seed and reports
	// the NMI between the two partitions.
	stabilitySeed int64
}

func newAnalyzeCommand(root *rootOptions) *cobra.Command {
	opts := &analyzeOptions{}

	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Load the graph and print degree, path and community statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := root.load()
			if err != nil {
				return err
			}
			g, rep, err := loadGraph(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			return runAnalyze(cmd.Context(), cmd.OutOrStdout(), cfg, g, rep, opts)
		},
	}

	cmd.Flags().StringVar(&opts.outputDir, "output-dir", "", "write .mapping, .assignment, .sizes and .json files here")
	cmd.Flags().StringVar(&opts.outputPrefix, "output-prefix", "communities", "prefix of the output files")
	cmd.Flags().BoolVar(&opts.skipPaths, "skip-paths", false, "skip the shortest-path estimate")
	cmd.Flags().BoolVar(&opts.skipLouvain, "skip-louvain", false, "skip community detection")
	cmd.Flags().BoolVar(&opts.crossCheck, "cross-check", false, "recompute the final modularity with gonum (symmetric graphs only)")
	cmd.Flags().Int64Var(&opts.stabilitySeed, "stability-seed", 0, "rerun Louvain with this seed and report the NMI between both runs")
	return cmd
}

// runAnalyze prints the full report for g to out.
func runAnalyze(ctx context.Context, out io.Writer, cfg *config.Config, g *graph.Graph, rep *parser.LoadReport, opts *analyzeOptions) error {
	if ctx == nil {
		ctx = context.Background()
	}
	gs := service.NewGraphService(g, rep, cfg, metrics.NewRegistry())

	if rep != nil {
		printLoadReport(out, g, rep)
	}

	s := gs.Summary()
	fmt.Fprintf(out, "\n=== Graph ===\n")
	fmt.Fprintf(out, "Nodes: %d\n", s.Nodes)
	fmt.Fprintf(out, "Edges: %d\n", s.Edges)
	fmt.Fprintf(out, "Density: %.8f\n", s.Density)
	fmt.Fprintf(out, "Mean out-degree: %.2f\n", s.MeanOutDegree)

	stats := gs.DegreeSample(0, nil)
	fmt.Fprintf(out, "\n=== Out-degree (sample of %d) ===\n", stats.SampleSize)
	fmt.Fprintf(out, "Mean: %.2f  Min: %d  Max: %d  P90: %d\n", stats.Mean, stats.Min, stats.Max, stats.P90)

	top := gs.TopDegrees(0)
	fmt.Fprintf(out, "\n=== Top %d nodes by out-degree ===\n", len(top))
	for i, nd := range top {
		fmt.Fprintf(out, "%3d. node %d: %d\n", i+1, nd.ID, nd.Degree)
	}

	if !opts.skipPaths {
		start := time.Now()
		sample, err := gs.SamplePaths(ctx, 0, nil)
		if err != nil {
			return fmt.Errorf("path sampling failed: %w", err)
		}
		fmt.Fprintf(out, "\n=== Shortest paths (%d seeds) ===\n", sample.Seeds)
		fmt.Fprintf(out, "Average: %.4f hops over %d pairs, longest %d (%v)\n",
			sample.Mean, sample.Pairs, sample.MaxDistance, time.Since(start).Round(time.Millisecond))
	}

	if opts.skipLouvain {
		return nil
	}
	result, err := gs.Communities(ctx, models.JobParameters{}, nil)
	if err != nil {
		return fmt.Errorf("louvain failed: %w", err)
	}
	report := gs.Report(result)

	fmt.Fprintf(out, "\n=== Louvain Results ===\n")
	fmt.Fprintf(out, "Final modularity: %.6f (singletons %.6f)\n", report.Modularity, report.BaselineModularity)
	fmt.Fprintf(out, "Number of levels: %d\n", report.NumLevels)
	fmt.Fprintf(out, "Communities: %d\n", report.NumCommunities)
	fmt.Fprintf(out, "Converged: %t (%s)\n", report.Converged, report.StopReason)
	fmt.Fprintf(out, "Runtime: %d ms\n", report.Statistics.RuntimeMS)
	if report.Warning != "" {
		fmt.Fprintf(out, "Warning: %s\n", report.Warning)
	}
	if opts.crossCheck {
		q, err := louvain.GonumModularity(g, result.Partition)
		switch {
		case errors.Is(err, louvain.ErrNotSymmetric):
			fmt.Fprintf(out, "Cross-check skipped: graph is not symmetric\n")
		case err != nil:
			fmt.Fprintf(out, "Cross-check skipped: %v\n", err)
		default:
			fmt.Fprintf(out, "Cross-check (gonum modularity): %.6f\n", q)
		}
	}
	fmt.Fprintf(out, "Community sizes: mean %.2f, min %d, max %d, std %.2f\n",
		report.SizeStats.Mean, report.SizeStats.Min, report.SizeStats.Max, report.SizeStats.Std)
	fmt.Fprintf(out, "\nRelevant communities (> %d members):\n", service.RelevantCommunitySize)
	for _, c := range report.RelevantCommunities {
		fmt.Fprintf(out, "  community %d: %d members\n", c.Community, c.Size)
	}

	if opts.stabilitySeed != 0 {
		seed := opts.stabilitySeed
		rerun, err := gs.Communities(ctx, models.JobParameters{RandomSeed: &seed}, nil)
		if err != nil {
			return fmt.Errorf("louvain rerun failed: %w", err)
		}
		nmi, err := louvain.NMI(result.Partition, rerun.Partition)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "\nStability (NMI against seed %d): %.4f, modularity %.6f\n", seed, nmi, rerun.Modularity)
	}

	if opts.outputDir == "" {
		return nil
	}
	writer := louvain.NewFileWriter()
	writer.MinRelevantSize = service.RelevantCommunitySize
	writer.TopRelevant = cfg.Sampling.TopK
	if err := writer.WriteAll(result, opts.outputDir, opts.outputPrefix); err != nil {
		return fmt.Errorf("failed to write results: %w", err)
	}
	log.Info().
		Str("dir", opts.outputDir).
		Str("prefix", filepath.Base(opts.outputPrefix)).
		Msg("Results written")
	return nil
}
