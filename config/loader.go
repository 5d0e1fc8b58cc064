package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/kbukum/docflow/errors"
	"github.com/kbukum/docflow/logger"
)

// FileSystem is the file access used while resolving config files.
type FileSystem interface {
	Exists(path string) bool
	LoadEnv(path string) error
}

// OSFileSystem resolves files on the local disk.
type OSFileSystem struct{}

func (OSFileSystem) Exists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// LoadEnv loads a .env file without overriding variables already set.
func (OSFileSystem) LoadEnv(path string) error {
	return godotenv.Load(path)
}

// Resolver finds the config and .env files of a service.
type Resolver struct {
	FileSystem FileSystem
	// Dirs are searched in order. Defaults to ".", "./config" and the
	// user config directory of the service.
	Dirs []string
}

// ResolvedFiles holds the config and .env file paths found for a service.
// Empty fields mean no file was found.
type ResolvedFiles struct {
	ConfigFile string
	EnvFile    string
}

// ResolveFiles returns explicit paths from opts where set and searches for
// the rest. Config candidates are <service>.yml, <service>.yaml and
// config.yml; .env candidates are .env.<service> and .env.
func (r *Resolver) ResolveFiles(service string, opts LoaderConfig) ResolvedFiles {
	files := ResolvedFiles{ConfigFile: opts.ConfigFile, EnvFile: opts.EnvFile}
	if files.ConfigFile == "" {
		files.ConfigFile = r.find(service+".yml", service+".yaml", "config.yml")
	}
	if files.EnvFile == "" {
		files.EnvFile = r.find(".env."+service, ".env")
	}
	return files
}

func (r *Resolver) find(names ...string) string {
	for _, dir := range r.dirs() {
		for _, name := range names {
			path := filepath.Join(dir, name)
			if r.FileSystem.Exists(path) {
				return path
			}
		}
	}
	return ""
}

func (r *Resolver) dirs() []string {
	if len(r.Dirs) > 0 {
		return r.Dirs
	}
	return []string{".", "config"}
}

// LoaderConfig holds loader dependencies and file overrides.
type LoaderConfig struct {
	FileSystem FileSystem
	ConfigFile string
	EnvFile    string
	// EnvPrefix limits environment binding to PREFIX_* variables. Defaults
	// to the upper-cased service name.
	EnvPrefix string
	Dirs      []string
	Defaults  map[string]any
}

// LoaderOption configures LoadConfig.
type LoaderOption func(*LoaderConfig)

// WithFileSystem sets the file system used to resolve files.
func WithFileSystem(fs FileSystem) LoaderOption {
	return func(lc *LoaderConfig) { lc.FileSystem = fs }
}

// WithConfigFile sets an explicit config file path.
func WithConfigFile(path string) LoaderOption {
	return func(lc *LoaderConfig) { lc.ConfigFile = path }
}

// WithEnvFile sets an explicit .env file path.
func WithEnvFile(path string) LoaderOption {
	return func(lc *LoaderConfig) { lc.EnvFile = path }
}

// WithEnvPrefix overrides the environment variable prefix.
func WithEnvPrefix(prefix string) LoaderOption {
	return func(lc *LoaderConfig) { lc.EnvPrefix = prefix }
}

// WithSearchDirs overrides the directories searched for config files.
func WithSearchDirs(dirs ...string) LoaderOption {
	return func(lc *LoaderConfig) { lc.Dirs = dirs }
}

// WithDefaults sets values used when neither the file nor the environment
// provide a key. Keys are dotted paths such as "engine.max_parallel".
func WithDefaults(defaults map[string]any) LoaderOption {
	return func(lc *LoaderConfig) { lc.Defaults = defaults }
}

// LoadConfig loads the configuration of a service into cfg. Sources, from
// lowest to highest precedence: defaults, the config file, the .env file
// and the process environment.
//
// Environment variables map onto nested keys by splitting on underscores
// after the prefix, so DOCFLOW_ENGINE_MAX_PARALLEL sets engine.max_parallel.
func LoadConfig(service string, cfg any, opts ...LoaderOption) error {
	lc := LoaderConfig{FileSystem: OSFileSystem{}}
	for _, opt := range opts {
		opt(&lc)
	}
	if lc.EnvPrefix == "" {
		lc.EnvPrefix = strings.ToUpper(strings.ReplaceAll(service, "-", "_"))
	}

	resolver := &Resolver{FileSystem: lc.FileSystem, Dirs: lc.Dirs}
	files := resolver.ResolveFiles(service, lc)
	log := logger.WithComponent("config")

	v := viper.New()
	for key, value := range lc.Defaults {
		v.SetDefault(key, value)
	}
	if files.ConfigFile != "" {
		if !lc.FileSystem.Exists(files.ConfigFile) {
			return errors.NotFound("config file", files.ConfigFile)
		}
		v.SetConfigFile(files.ConfigFile)
		if err := v.ReadInConfig(); err != nil {
			return errors.InvalidFormat("config", "YAML").WithCause(err).WithDetail("path", files.ConfigFile)
		}
		log.Debug("config file loaded", logger.Fields("path", files.ConfigFile))
	}
	if files.EnvFile != "" {
		if err := lc.FileSystem.LoadEnv(files.EnvFile); err != nil {
			log.Warn("failed to load env file", logger.Fields("path", files.EnvFile, logger.FieldError, err.Error()))
		}
	}
	bindEnv(v, lc.EnvPrefix, os.Environ())

	hook := viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	))
	if err := v.Unmarshal(cfg, hook); err != nil {
		return errors.InvalidInput("config", err.Error()).WithCause(err)
	}
	return nil
}

// bindEnv sets every PREFIX_* variable under each key it may address.
func bindEnv(v *viper.Viper, prefix string, environ []string) {
	prefix = strings.ToUpper(prefix) + "_"
	for _, kv := range environ {
		key, value, ok := strings.Cut(kv, "=")
		if !ok || !strings.HasPrefix(strings.ToUpper(key), prefix) {
			continue
		}
		for _, k := range envKeys(key[len(prefix):]) {
			v.Set(k, value)
		}
	}
}

// envKeys returns the config keys an environment variable name may address.
// A name of n segments may place its nesting dot after any of the first n-1
// segments, and keep or drop the underscores inside the leaf:
//
//	ENGINE_MAX_PARALLEL -> engine_max_parallel, engine.max_parallel, engine.max.parallel, engine_max.parallel
func envKeys(name string) []string {
	parts := strings.Split(strings.ToLower(name), "_")
	keys := []string{strings.Join(parts, "_")}
	if len(parts) == 1 {
		return keys
	}
	keys = append(keys, strings.Join(parts, "."))
	for i := 1; i < len(parts); i++ {
		keys = append(keys, strings.Join(parts[:i], ".")+"."+strings.Join(parts[i:], "_"))
		keys = append(keys, strings.Join(parts[:i], "_")+"."+strings.Join(parts[i:], "_"))
	}
	return dedupe(keys)
}

func dedupe(items []string) []string {
	seen := make(map[string]bool, len(items))
	out := items[:0]
	for _, item := range items {
		if !seen[item] {
			seen[item] = true
			out = append(out, item)
		}
	}
	return out
}
