package louvain

import (
	"os"
	"runtime"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/viper"
)

// Config manages algorithm configuration using Viper
type Config struct {
	v *viper.Viper
}

// NewConfig creates a new configuration with defaults
func NewConfig() *Config {
	v := viper.New()
	RegisterDefaults(v)
	return &Config{v: v}
}

// WrapConfig exposes the louvain keys of an existing viper instance. Missing
// keys fall back to the defaults registered here.
func WrapConfig(v *viper.Viper) *Config {
	RegisterDefaults(v)
	return &Config{v: v}
}

// RegisterDefaults installs the algorithm defaults on v.
func RegisterDefaults(v *viper.Viper) {
	// Algorithm parameters
	v.SetDefault("algorithm.max_levels", 10)
	v.SetDefault("algorithm.max_iterations", 100)
	v.SetDefault("algorithm.min_modularity_gain", 1e-12)
	v.SetDefault("algorithm.tolerance", 1e-7)
	v.SetDefault("algorithm.random_seed", time.Now().UnixNano())
	v.SetDefault("algorithm.check_invariants", false)

	// Performance parameters
	v.SetDefault("performance.parallel", false)
	v.SetDefault("performance.chunk_size", 1000)
	v.SetDefault("performance.num_workers", runtime.NumCPU())

	// Logging parameters
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.enable_progress", true)

	v.SetDefault("analysis.track_moves", false)
	v.SetDefault("analysis.output_file", "louvain_moves.jsonl")
}

// LoadFromFile loads configuration from file
func (c *Config) LoadFromFile(path string) error {
	c.v.SetConfigFile(path)
	return c.v.ReadInConfig()
}

// Getters for algorithm parameters
func (c *Config) MaxLevels() int { return c.v.GetInt("algorithm.max_levels") }
func (c *Config) MaxIterations() int { return c.v.GetInt("algorithm.max_iterations") }
func (c *Config) MinModularityGain() float64 { return c.v.GetFloat64("algorithm.min_modularity_gain") }
func (c *Config) Tolerance() float64 { return c.v.GetFloat64("algorithm.tolerance") }
func (c *Config) RandomSeed() int64 { return c.v.GetInt64("algorithm.random_seed") }
func (c *Config) CheckInvariants() bool { return c.v.GetBool("algorithm.check_invariants") }

func (c *Config) Parallel() bool { return c.v.GetBool("performance.parallel") }
func (c *Config) ChunkSize() int { return c.v.GetInt("performance.chunk_size") }
func (c *Config) NumWorkers() int { return c.v.GetInt("performance.num_workers") }

func (c *Config) LogLevel() string { return c.v.GetString("logging.level") }
func (c *Config) EnableProgress() bool { return c.v.GetBool("logging.enable_progress") }

func (c *Config) EnableMoveTracking() bool { return c.v.GetBool("analysis.track_moves") }
func (c *Config) TrackingOutputFile() string { return c.v.GetString("analysis.output_file") }

// Clone returns an independent copy, so per-run overrides do not leak into
// the shared settings.
func (c *Config) Clone() *Config {
	v := viper.New()
	RegisterDefaults(v)
	for _, key := range c.v.AllKeys() {
		v.Set(key, c.v.Get(key))
	}
	return &Config{v: v}
}

// Set allows dynamic configuration changes
func (c *Config) Set(key string, value interface{}) {
	c.v.Set(key, value)
}

// CreateLogger creates a zerolog logger based on config
func (c *Config) CreateLogger() zerolog.Logger {
	level, err := zerolog.ParseLevel(c.LogLevel())
	if err != nil {
		level = zerolog.InfoLevel
	}

	return zerolog.New(zerolog.ConsoleWriter{
		Out:        os.Stderr,
		TimeFormat: "15:04:05",
	}).Level(level).With().Timestamp().Str("service", "louvain").Logger()
}
