package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/gilchrisn/graph-insight/pkg/config"
	"github.com/gilchrisn/graph-insight/pkg/graph"
	"github.com/gilchrisn/graph-insight/pkg/parser"
)

var errNoInput = errors.New("no input: set --edges, or both --locations and --users")

type rootOptions struct {
	configFile string
	v          *viper.Viper
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{v: config.New()}

	cmd := &cobra.Command{
		Use:           "graphinsight",
		Short:         "Analyse the structure of a large social graph",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&opts.configFile, "config", "", "config file (yaml, json or toml)")
	flags.String("log-level", "info", "log level: debug, info, warn, error, disabled")
	flags.String("locations", "", "locations file, one lat,long row per node")
	flags.String("users", "", "users file, line i lists the out-neighbours of node i")
	flags.String("edges", "", "edge list file, \"from to [weight]\" per line")
	flags.Int("base", 0, "id of the first row")
	flags.Int("max-nodes", parser.DefaultMaxNodes, "maximum number of nodes")
	flags.Int("max-neighbors", 0, "keep at most this many neighbours per users line (0 keeps all)")

	for key, flag := range map[string]string{
		"logging.level":         "log-level",
		"ingest.locations_file": "locations",
		"ingest.users_file":     "users",
		"ingest.edge_list_file": "edges",
		"graph.id_base":         "base",
		"graph.max_nodes":       "max-nodes",
		"ingest.max_neighbors":  "max-neighbors",
	} {
		if err := opts.v.BindPFlag(key, flags.Lookup(flag)); err != nil {
			panic(err)
		}
	}

	cmd.AddCommand(newAnalyzeCommand(opts), newServeCommand(opts))
	return cmd
}

// load reads the configuration and installs the global logger.
func (o *rootOptions) load() (*config.Config, error) {
	cfg, err := config.Load(o.v, o.configFile)
	if err != nil {
		return nil, err
	}
	setupLogging(cfg.Louvain().LogLevel())
	return cfg, nil
}

func setupLogging(level string) {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).Level(lvl)
}

// loadGraph builds the graph from whichever input the configuration names.
func loadGraph(ctx context.Context, cfg *config.Config) (*graph.Graph, *parser.LoadReport, error) {
	opts := cfg.ParserOptions()
	opts.Logger = log.Logger

	switch {
	case cfg.Ingest.EdgeListFile != "":
		return parser.LoadEdgeList(ctx, cfg.Ingest.EdgeListFile, opts)
	case cfg.Ingest.LocationsFile != "" && cfg.Ingest.UsersFile != "":
		return parser.LoadFiles(ctx, cfg.Ingest.LocationsFile, cfg.Ingest.UsersFile, opts)
	}
	return nil, nil, errNoInput
}

func printLoadReport(w io.Writer, g *graph.Graph, rep *parser.LoadReport) {
	fmt.Fprintf(w, "Graph loaded: %d nodes, %d edges in %v\n", g.NumNodes(), g.NumEdges(), rep.Duration.Round(time.Millisecond))
	if rep.MalformedLocations > 0 || rep.MalformedTokens > 0 || rep.MalformedLines > 0 {
		fmt.Fprintf(w, "  malformed: %d locations, %d tokens, %d lines\n",
			rep.MalformedLocations, rep.MalformedTokens, rep.MalformedLines)
	}
	if rep.Graph.RejectedEdges > 0 {
		fmt.Fprintf(w, "  rejected edges: %d\n", rep.Graph.RejectedEdges)
	}
}
