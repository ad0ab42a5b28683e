// Package config loads memdb settings from defaults, an optional config
// file and MEMDB_-prefixed environment variables.
package config

import (
	"fmt"
	"runtime"
	"strings"

	"github.com/spf13/viper"

	"memDB/internal/engine"
	"memDB/internal/logging"
	"memDB/internal/protocol"
	"memDB/internal/slt"
)

// EnvPrefix prefixes every environment variable: output.null_text is read
// from MEMDB_OUTPUT_NULL_TEXT.
const EnvPrefix = "MEMDB"

// Config is the complete runtime configuration.
type Config struct {
	Log     LogConfig     `mapstructure:"log"`
	Output  OutputConfig  `mapstructure:"output"`
	Engine  EngineConfig  `mapstructure:"engine"`
	SLT     SLTConfig     `mapstructure:"slt"`
	Metrics MetricsConfig `mapstructure:"metrics"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // "text" or "json"
	Output string `mapstructure:"output"` // file path; empty means stderr
}

type OutputConfig struct {
	NullText      string `mapstructure:"null_text"`
	EmptyText     string `mapstructure:"empty_text"`
	RealPrecision int    `mapstructure:"real_precision"`
}

type EngineConfig struct {
	ParseCacheSize int    `mapstructure:"parse_cache_size"`
	DivisionByZero string `mapstructure:"division_by_zero"` // "error" or "null"
}

type SLTConfig struct {
	Workers  int    `mapstructure:"workers"`
	TargetDB string `mapstructure:"target_db"`
	FailFast bool   `mapstructure:"fail_fast"`
	Backend  string `mapstructure:"backend"` // "memdb" or "sqlite"
}

type MetricsConfig struct {
	// Addr is the listen address of the Prometheus endpoint; empty disables it.
	Addr string `mapstructure:"addr"`
}

// New returns a viper instance with every key defaulted and environment
// lookup enabled. Callers may bind flags to it before Load.
func New() *viper.Viper {
	v := viper.New()

	v.SetDefault("log.level", "warn")
	v.SetDefault("log.format", "text")
	v.SetDefault("log.output", "")

	def := protocol.DefaultFormatter()
	v.SetDefault("output.null_text", def.NullText)
	v.SetDefault("output.empty_text", def.EmptyText)
	v.SetDefault("output.real_precision", def.RealPrecision)

	v.SetDefault("engine.parse_cache_size", engine.DefaultParseCacheSize)
	v.SetDefault("engine.division_by_zero", "error")

	v.SetDefault("slt.workers", runtime.NumCPU())
	v.SetDefault("slt.target_db", slt.DefaultTarget)
	v.SetDefault("slt.fail_fast", false)
	v.SetDefault("slt.backend", "memdb")

	v.SetDefault("metrics.addr", "")

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// Load reads file (when not empty) into v and decodes the result.
func Load(v *viper.Viper, file string) (*Config, error) {
	if file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", file, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects values no component can use.
func (c *Config) Validate() error {
	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("log.format: must be text or json, got %q", c.Log.Format)
	}
	switch c.Engine.DivisionByZero {
	case "error", "null":
	default:
		return fmt.Errorf("engine.division_by_zero: must be error or null, got %q", c.Engine.DivisionByZero)
	}
	if c.Engine.ParseCacheSize < 0 {
		return fmt.Errorf("engine.parse_cache_size: must not be negative")
	}
	if c.Output.RealPrecision > 17 {
		return fmt.Errorf("output.real_precision: at most 17 digits, got %d", c.Output.RealPrecision)
	}
	switch c.SLT.Backend {
	case "memdb", "sqlite":
	default:
		return fmt.Errorf("slt.backend: must be memdb or sqlite, got %q", c.SLT.Backend)
	}
	if c.SLT.Workers < 0 {
		return fmt.Errorf("slt.workers: must not be negative")
	}
	return nil
}

// Logging returns the logger configuration.
func (c *Config) Logging() logging.Config {
	level, _ := logging.ParseLevel(c.Log.Level)
	return logging.Config{Level: level, Format: c.Log.Format, OutputPath: c.Log.Output}
}

// Formatter returns the output renderer.
func (c *Config) Formatter() protocol.Formatter {
	return protocol.Formatter{
		NullText:      c.Output.NullText,
		EmptyText:     c.Output.EmptyText,
		RealPrecision: c.Output.RealPrecision,
	}
}

// EngineOptions returns the engine options the configuration selects.
func (c *Config) EngineOptions() []engine.Option {
	opts := []engine.Option{engine.WithParseCacheSize(c.Engine.ParseCacheSize)}
	if c.Engine.DivisionByZero == "null" {
		opts = append(opts, engine.WithDivisionByZeroNull())
	}
	return opts
}

// RunnerOptions returns the SQLLogicTest runner options.
func (c *Config) RunnerOptions() slt.Options {
	backend := slt.MemDB(c.Formatter(), c.EngineOptions()...)
	if c.SLT.Backend == "sqlite" {
		backend = slt.SQLite(c.Formatter())
	}
	return slt.Options{
		Workers:  c.SLT.Workers,
		FailFast: c.SLT.FailFast,
		Target:   c.SLT.TargetDB,
		Backend:  backend,
	}
}
