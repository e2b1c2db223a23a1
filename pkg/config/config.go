// Package config loads graph-insight settings from defaults, an optional
// config file and GRAPHINSIGHT_* environment variables.
package config

import (
	"errors"
	"fmt"
	"runtime"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/gilchrisn/graph-insight/pkg/louvain"
	"github.com/gilchrisn/graph-insight/pkg/parser"
)

// EnvPrefix prefixes every environment override, e.g.
// GRAPHINSIGHT_ALGORITHM_MAX_LEVELS.
const EnvPrefix = "GRAPHINSIGHT"

// ErrInvalidConfig wraps every validation failure.
var ErrInvalidConfig = errors.New("config: invalid configuration")

type Config struct {
	Graph    GraphConfig
	Ingest   IngestConfig
	Sampling SamplingConfig
	Server   ServerConfig
	Jobs     JobConfig

	v       *viper.Viper
	louvain *louvain.Config
}

type GraphConfig struct {
	IDBase   int
	MaxNodes int
}

type IngestConfig struct {
	LocationsFile string
	UsersFile     string
	EdgeListFile  string
	MaxNeighbors  int
	Header        bool
}

type SamplingConfig struct {
	DegreeSample int
	PathSample   int
	TopK         int
	RandomSeed   int64
	Workers      int
}

type ServerConfig struct {
	Address        string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	AllowedOrigins []string
}

type JobConfig struct {
	MaxWorkers      int
	JobTimeout      time.Duration
	CleanupInterval time.Duration
	ResultTTL       time.Duration
}

// setDefaults installs every non-algorithm default; the algorithm keys come
// from louvain.RegisterDefaults.
func setDefaults(v *viper.Viper) {
	v.SetDefault("graph.id_base", 0)
	v.SetDefault("graph.max_nodes", parser.DefaultMaxNodes)

	v.SetDefault("ingest.locations_file", "")
	v.SetDefault("ingest.users_file", "")
	v.SetDefault("ingest.edge_list_file", "")
	v.SetDefault("ingest.max_neighbors", 0)
	v.SetDefault("ingest.header", false)

	v.SetDefault("sampling.degree_sample", 1_000_000)
	v.SetDefault("sampling.path_sample", 500)
	v.SetDefault("sampling.top_k", 15)
	v.SetDefault("sampling.random_seed", time.Now().UnixNano())
	v.SetDefault("sampling.workers", runtime.NumCPU())

	v.SetDefault("server.address", ":8080")
	v.SetDefault("server.read_timeout", 30*time.Second)
	v.SetDefault("server.write_timeout", 30*time.Second)
	v.SetDefault("server.allowed_origins", []string{"*"})

	v.SetDefault("jobs.max_workers", 2)
	v.SetDefault("jobs.job_timeout", 30*time.Minute)
	v.SetDefault("jobs.cleanup_interval", 5*time.Minute)
	v.SetDefault("jobs.result_ttl", time.Hour)

	louvain.RegisterDefaults(v)
}

// New returns a viper instance with defaults and environment binding but no
// file. Flags can be bound to it before Load.
func New() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// Load reads path, if not empty, into v and decodes the result. A nil v
// means New().
func Load(v *viper.Viper, path string) (*Config, error) {
	if v == nil {
		v = New()
	}
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
	}

	cfg := &Config{
		Graph: GraphConfig{
			IDBase:   v.GetInt("graph.id_base"),
			MaxNodes: v.GetInt("graph.max_nodes"),
		},
		Ingest: IngestConfig{
			LocationsFile: v.GetString("ingest.locations_file"),
			UsersFile:     v.GetString("ingest.users_file"),
			EdgeListFile:  v.GetString("ingest.edge_list_file"),
			MaxNeighbors:  v.GetInt("ingest.max_neighbors"),
			Header:        v.GetBool("ingest.header"),
		},
		Sampling: SamplingConfig{
			DegreeSample: v.GetInt("sampling.degree_sample"),
			PathSample:   v.GetInt("sampling.path_sample"),
			TopK:         v.GetInt("sampling.top_k"),
			RandomSeed:   v.GetInt64("sampling.random_seed"),
			Workers:      v.GetInt("sampling.workers"),
		},
		Server: ServerConfig{
			Address:        v.GetString("server.address"),
			ReadTimeout:    v.GetDuration("server.read_timeout"),
			WriteTimeout:   v.GetDuration("server.write_timeout"),
			AllowedOrigins: v.GetStringSlice("server.allowed_origins"),
		},
		Jobs: JobConfig{
			MaxWorkers:      v.GetInt("jobs.max_workers"),
			JobTimeout:      v.GetDuration("jobs.job_timeout"),
			CleanupInterval: v.GetDuration("jobs.cleanup_interval"),
			ResultTTL:       v.GetDuration("jobs.result_ttl"),
		},
		v:       v,
		louvain: louvain.WrapConfig(v),
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects settings no run could honour.
func (c *Config) Validate() error {
	switch {
	case c.Graph.IDBase < 0:
		return fmt.Errorf("%w: graph.id_base must not be negative", ErrInvalidConfig)
	case c.Graph.MaxNodes <= 0:
		return fmt.Errorf("%w: graph.max_nodes must be positive", ErrInvalidConfig)
	case c.Ingest.MaxNeighbors < 0:
		return fmt.Errorf("%w: ingest.max_neighbors must not be negative", ErrInvalidConfig)
	case c.Sampling.PathSample < 0 || c.Sampling.DegreeSample < 0:
		return fmt.Errorf("%w: sample sizes must not be negative", ErrInvalidConfig)
	case c.Jobs.MaxWorkers <= 0:
		return fmt.Errorf("%w: jobs.max_workers must be positive", ErrInvalidConfig)
	}
	lc := c.louvain
	if lc.MaxLevels() <= 0 || lc.MaxIterations() <= 0 {
		return fmt.Errorf("%w: algorithm.max_levels and algorithm.max_iterations must be positive", ErrInvalidConfig)
	}
	if lc.Tolerance() < 0 || lc.MinModularityGain() < 0 {
		return fmt.Errorf("%w: algorithm thresholds must not be negative", ErrInvalidConfig)
	}
	return nil
}

// Viper exposes the underlying settings.
func (c *Config) Viper() *viper.Viper { return c.v }

// Louvain returns the algorithm view over the same settings.
func (c *Config) Louvain() *louvain.Config { return c.louvain }

// ParserOptions maps the graph and ingest sections onto loader options.
func (c *Config) ParserOptions() parser.Options {
	opts := parser.DefaultOptions()
	opts.Base = c.Graph.IDBase
	opts.MaxNodes = c.Graph.MaxNodes
	opts.MaxNeighbors = c.Ingest.MaxNeighbors
	opts.Header = c.Ingest.Header
	return opts
}
