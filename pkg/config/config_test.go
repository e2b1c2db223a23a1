package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(nil, "")
	require.NoError(t, err)

	assert.Equal(t, 0, cfg.Graph.IDBase)
	assert.Equal(t, 10_000_000, cfg.Graph.MaxNodes)
	assert.Equal(t, 500, cfg.Sampling.PathSample)
	assert.Equal(t, 15, cfg.Sampling.TopK)
	assert.Equal(t, ":8080", cfg.Server.Address)
	assert.Equal(t, time.Hour, cfg.Jobs.ResultTTL)
	assert.Equal(t, 10, cfg.Louvain().MaxLevels())
	assert.Equal(t, 1e-7, cfg.Louvain().Tolerance())
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "graphinsight.yaml")
	content := `
graph:
  id_base: 1
  max_nodes: 2000
ingest:
  max_neighbors: 50
algorithm:
  max_levels: 3
  random_seed: 7
server:
  address: ":9090"
  read_timeout: 5s
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(nil, path)
	require.NoError(t, err)
	assert.Equal(t, 1, cfg.Graph.IDBase)
	assert.Equal(t, 2000, cfg.Graph.MaxNodes)
	assert.Equal(t, ":9090", cfg.Server.Address)
	assert.Equal(t, 5*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, 3, cfg.Louvain().MaxLevels())
	assert.Equal(t, int64(7), cfg.Louvain().RandomSeed())

	opts := cfg.ParserOptions()
	assert.Equal(t, 1, opts.Base)
	assert.Equal(t, 2000, opts.MaxNodes)
	assert.Equal(t, 50, opts.MaxNeighbors)
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("GRAPHINSIGHT_SAMPLING_PATH_SAMPLE", "42")
	t.Setenv("GRAPHINSIGHT_ALGORITHM_MAX_LEVELS", "4")

	cfg, err := Load(nil, "")
	require.NoError(t, err)
	assert.Equal(t, 42, cfg.Sampling.PathSample)
	assert.Equal(t, 4, cfg.Louvain().MaxLevels())
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(nil, filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := map[string]func(v *Config){
		"id base":       func(c *Config) { c.Graph.IDBase = -1 },
		"max nodes":     func(c *Config) { c.Graph.MaxNodes = 0 },
		"max neighbors": func(c *Config) { c.Ingest.MaxNeighbors = -1 },
		"path sample":   func(c *Config) { c.Sampling.PathSample = -5 },
		"workers":       func(c *Config) { c.Jobs.MaxWorkers = 0 },
		"levels":        func(c *Config) { c.v.Set("algorithm.max_levels", 0) },
		"tolerance":     func(c *Config) { c.v.Set("algorithm.tolerance", -1.0) },
	}
	for name, mutate := range tests {
		t.Run(name, func(t *testing.T) {
			cfg, err := Load(nil, "")
			require.NoError(t, err)
			mutate(cfg)
			assert.ErrorIs(t, cfg.Validate(), ErrInvalidConfig)
		})
	}
}

func TestLoadRejectsNegativeIDBase(t *testing.T) {
	t.Setenv("GRAPHINSIGHT_GRAPH_ID_BASE", "-100")

	_, err := Load(nil, "")
	assert.ErrorIs(t, err, ErrInvalidConfig)
}
