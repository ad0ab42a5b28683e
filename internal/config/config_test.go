package config

import (
	"os"
	"path/filepath"
	"testing"

	"memDB/internal/engine"
	"memDB/internal/logging"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(New(), "")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Output.NullText != "NULL" || cfg.Output.EmptyText != "(empty)" || cfg.Output.RealPrecision != 3 {
		t.Fatalf("unexpected output defaults %+v", cfg.Output)
	}
	if cfg.Engine.ParseCacheSize != engine.DefaultParseCacheSize || cfg.Engine.DivisionByZero != "error" {
		t.Fatalf("unexpected engine defaults %+v", cfg.Engine)
	}
	if cfg.SLT.TargetDB != "sqlite" || cfg.SLT.Backend != "memdb" || cfg.SLT.Workers < 1 {
		t.Fatalf("unexpected slt defaults %+v", cfg.SLT)
	}
	if cfg.Metrics.Addr != "" {
		t.Fatalf("expected metrics disabled by default, got %q", cfg.Metrics.Addr)
	}
	if got := cfg.Logging(); got.Level != logging.LevelWarn || got.OutputPath != "" {
		t.Fatalf("unexpected logging config %+v", got)
	}
	if len(cfg.EngineOptions()) != 1 {
		t.Fatalf("expected only the parse cache option by default")
	}
}

func TestLoad_Environment(t *testing.T) {
	t.Setenv("MEMDB_OUTPUT_NULL_TEXT", "<null>")
	t.Setenv("MEMDB_OUTPUT_REAL_PRECISION", "6")
	t.Setenv("MEMDB_ENGINE_DIVISION_BY_ZERO", "null")
	t.Setenv("MEMDB_SLT_FAIL_FAST", "true")

	cfg, err := Load(New(), "")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Output.NullText != "<null>" || cfg.Output.RealPrecision != 6 {
		t.Fatalf("environment not applied to output: %+v", cfg.Output)
	}
	if !cfg.SLT.FailFast {
		t.Fatalf("environment not applied to slt.fail_fast")
	}
	if len(cfg.EngineOptions()) != 2 {
		t.Fatalf("expected division by zero option to be added")
	}
}

func TestLoad_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "memdb.yaml")
	body := "log:\n  level: debug\n  format: json\nslt:\n  workers: 2\n  backend: sqlite\nmetrics:\n  addr: \":9100\"\n"
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(New(), path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Log.Level != "debug" || cfg.Log.Format != "json" {
		t.Fatalf("unexpected log config %+v", cfg.Log)
	}
	if cfg.SLT.Workers != 2 || cfg.SLT.Backend != "sqlite" || cfg.Metrics.Addr != ":9100" {
		t.Fatalf("file values not applied: %+v %+v", cfg.SLT, cfg.Metrics)
	}
	if opts := cfg.RunnerOptions(); opts.Backend == nil || opts.Workers != 2 {
		t.Fatalf("unexpected runner options %+v", opts)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(New(), filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatalf("expected error for a missing config file")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value any
	}{
		{"bad level", "log.level", "loud"},
		{"bad format", "log.format", "xml"},
		{"bad division mode", "engine.division_by_zero", "ignore"},
		{"negative cache", "engine.parse_cache_size", -1},
		{"bad backend", "slt.backend", "postgres"},
		{"precision too large", "output.real_precision", 30},
	}

	for _, tt := range tests {
		v := New()
		v.Set(tt.key, tt.value)
		if _, err := Load(v, ""); err == nil {
			t.Fatalf("%s: expected validation error", tt.name)
		}
	}
}
