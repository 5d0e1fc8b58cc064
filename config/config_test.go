package config

import (
	"os"
	"path/filepath"
	"slices"
	"testing"
	"time"

	"github.com/kbukum/docflow/errors"
)

type testConfig struct {
	ServiceConfig `yaml:",inline" mapstructure:",squash"`
	Engine        struct {
		MaxParallel int      `mapstructure:"max_parallel"`
		Pipelines   []string `mapstructure:"pipelines"`
		Timeout     time.Duration
	} `mapstructure:"engine"`
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestServiceConfigApplyDefaults(t *testing.T) {
	t.Run("development", func(t *testing.T) {
		cfg := ServiceConfig{Name: "docflow"}
		cfg.ApplyDefaults()
		if cfg.Environment != "development" || !cfg.Debug {
			t.Errorf("got environment=%q debug=%v", cfg.Environment, cfg.Debug)
		}
		if cfg.Logging.Level != "debug" {
			t.Errorf("logging level = %q, want debug", cfg.Logging.Level)
		}
		if cfg.Logging.ServiceName != "docflow" {
			t.Errorf("logging service = %q", cfg.Logging.ServiceName)
		}
	})

	t.Run("production", func(t *testing.T) {
		cfg := ServiceConfig{Name: "docflow", Environment: "production"}
		cfg.ApplyDefaults()
		if cfg.Debug {
			t.Error("debug enabled in production")
		}
		if cfg.Logging.Level != "info" {
			t.Errorf("logging level = %q, want info", cfg.Logging.Level)
		}
	})
}

func TestServiceConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     ServiceConfig
		wantErr bool
	}{
		{"valid", ServiceConfig{Name: "docflow", Environment: "staging"}, false},
		{"missing name", ServiceConfig{Environment: "production"}, true},
		{"bad environment", ServiceConfig{Name: "docflow", Environment: "qa"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.cfg.Logging.ApplyDefaults()
			err := tt.cfg.Validate()
			if tt.wantErr {
				if !errors.HasCode(err, errors.ErrCodeInvalidInput) {
					t.Errorf("got %v, want INVALID_INPUT", err)
				}
			} else if err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}

	t.Run("bad logging level", func(t *testing.T) {
		cfg := ServiceConfig{Name: "docflow", Environment: "staging"}
		cfg.Logging.ApplyDefaults()
		cfg.Logging.Level = "loud"
		if err := cfg.Validate(); !errors.HasCode(err, errors.ErrCodeInvalidInput) {
			t.Errorf("got %v, want INVALID_INPUT", err)
		}
	})
}

func TestLoadConfigFromFile(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "docflow.yml", `
name: docflow
environment: staging
engine:
  max_parallel: 3
  pipelines: [Pages, Feeds]
  timeout: 2s
`)
	var cfg testConfig
	if err := LoadConfig("docflow-test", &cfg, WithConfigFile(path)); err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Name != "docflow" || cfg.Environment != "staging" {
		t.Errorf("got name=%q environment=%q", cfg.Name, cfg.Environment)
	}
	if cfg.Engine.MaxParallel != 3 {
		t.Errorf("max_parallel = %d", cfg.Engine.MaxParallel)
	}
	if !slices.Equal(cfg.Engine.Pipelines, []string{"Pages", "Feeds"}) {
		t.Errorf("pipelines = %v", cfg.Engine.Pipelines)
	}
	if cfg.Engine.Timeout != 2*time.Second {
		t.Errorf("timeout = %v", cfg.Engine.Timeout)
	}
}

func TestLoadConfigEnvironmentOverrides(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "docflow.yml", "name: docflow\nengine:\n  max_parallel: 3\n")
	t.Setenv("DFTEST_ENGINE_MAX_PARALLEL", "8")
	t.Setenv("DFTEST_ENGINE_PIPELINES", "A,B")
	t.Setenv("DFTEST_LOGGING_LEVEL", "warn")

	var cfg testConfig
	if err := LoadConfig("dftest", &cfg, WithConfigFile(path)); err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Engine.MaxParallel != 8 {
		t.Errorf("max_parallel = %d, want 8", cfg.Engine.MaxParallel)
	}
	if !slices.Equal(cfg.Engine.Pipelines, []string{"A", "B"}) {
		t.Errorf("pipelines = %v", cfg.Engine.Pipelines)
	}
	if cfg.Logging.Level != "warn" {
		t.Errorf("logging level = %q", cfg.Logging.Level)
	}
}

func TestLoadConfigEnvFile(t *testing.T) {
	dir := t.TempDir()
	env := writeFile(t, dir, ".env", "DFENV_NAME=from-env-file\n")
	t.Cleanup(func() { os.Unsetenv("DFENV_NAME") })

	var cfg testConfig
	if err := LoadConfig("dfenv", &cfg, WithEnvFile(env), WithSearchDirs(dir)); err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Name != "from-env-file" {
		t.Errorf("name = %q", cfg.Name)
	}
}

func TestLoadConfigDefaults(t *testing.T) {
	var cfg testConfig
	err := LoadConfig("dfdefaults", &cfg,
		WithSearchDirs(t.TempDir()),
		WithDefaults(map[string]any{"name": "fallback", "engine.max_parallel": 2}))
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Name != "fallback" || cfg.Engine.MaxParallel != 2 {
		t.Errorf("got name=%q max_parallel=%d", cfg.Name, cfg.Engine.MaxParallel)
	}
}

func TestLoadConfigErrors(t *testing.T) {
	t.Run("missing explicit file", func(t *testing.T) {
		var cfg testConfig
		err := LoadConfig("docflow", &cfg, WithConfigFile(filepath.Join(t.TempDir(), "nope.yml")))
		if !errors.HasCode(err, errors.ErrCodeNotFound) {
			t.Errorf("got %v, want NOT_FOUND", err)
		}
	})

	t.Run("malformed file", func(t *testing.T) {
		path := writeFile(t, t.TempDir(), "bad.yml", "name: [unclosed\n")
		var cfg testConfig
		if err := LoadConfig("docflow", &cfg, WithConfigFile(path)); !errors.HasCode(err, errors.ErrCodeInvalidFormat) {
			t.Errorf("got %v, want INVALID_FORMAT", err)
		}
	})

	t.Run("no file found", func(t *testing.T) {
		var cfg testConfig
		if err := LoadConfig("docflow", &cfg, WithSearchDirs(t.TempDir())); err != nil {
			t.Errorf("unexpected error: %v", err)
		}
	})
}

type mockFS struct {
	files map[string]bool
}

func (m *mockFS) Exists(path string) bool { return m.files[path] }
func (m *mockFS) LoadEnv(string) error    { return nil }

func TestResolverSearchOrder(t *testing.T) {
	fs := &mockFS{files: make(map[string]bool)}
	fs.files["config.yml"] = true
	fs.files[".env.docflow"] = true
	fs.files[filepath.Join("config", "docflow.yml")] = true
	fs.files[filepath.Join("config", ".env")] = true
	r := &Resolver{FileSystem: fs}

	files := r.ResolveFiles("docflow", LoaderConfig{})
	if files.ConfigFile != "config.yml" {
		t.Errorf("config file = %q, want config.yml", files.ConfigFile)
	}
	if files.EnvFile != ".env.docflow" {
		t.Errorf("env file = %q, want .env.docflow", files.EnvFile)
	}

	files = r.ResolveFiles("docflow", LoaderConfig{ConfigFile: "explicit.yml"})
	if files.ConfigFile != "explicit.yml" {
		t.Errorf("explicit config file = %q", files.ConfigFile)
	}
}

func TestEnvKeys(t *testing.T) {
	got := envKeys("ENGINE_MAX_PARALLEL")
	for _, want := range []string{"engine_max_parallel", "engine.max.parallel", "engine.max_parallel", "engine_max.parallel"} {
		if !slices.Contains(got, want) {
			t.Errorf("missing %q in %v", want, got)
		}
	}
	if got := envKeys("NAME"); !slices.Equal(got, []string{"name"}) {
		t.Errorf("got %v", got)
	}
}
