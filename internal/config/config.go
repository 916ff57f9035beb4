// Package config loads and validates the optional verdict configuration,
// read from a .verdict YAML file or a verdict.toml file at the repository
// root.
package config

import (
	"errors"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/deixis/verdict/internal/analyzer"
)

// Default values for runner configuration.
const (
	DefaultTimeout   = 5 * time.Minute
	DefaultMaxOutput = 1 << 20 // 1 MB
	DefaultLogLevel  = "warn"
)

// File names probed at the repository root, in order.
const (
	YAMLFile = ".verdict"
	TOMLFile = "verdict.toml"
)

// Config holds the parsed configuration.
// All fields are optional; zero values represent defaults.
type Config struct {
	Version        int            `yaml:"version" toml:"version"`
	RawTimeout     string         `yaml:"timeout" toml:"timeout"`         // e.g. "5m", "30s"
	RawMaxOutput   int            `yaml:"max_output" toml:"max_output"`   // bytes
	RawParallelism int            `yaml:"parallelism" toml:"parallelism"` // concurrent jobs in check
	DefaultJobs    []string       `yaml:"default_jobs" toml:"default_jobs"`
	StoreDir       string         `yaml:"store_dir" toml:"store_dir"` // default: per-user cache dir (CLI), temp dir (MCP)
	LogLevel       string         `yaml:"log_level" toml:"log_level"`
	Jobs           map[string]Job `yaml:"jobs" toml:"jobs"`
}

// Job describes a command whose output is classified.
type Job struct {
	Command  []string `yaml:"command" toml:"command"`   // argv; Command[0] is the binary
	Analyzer string   `yaml:"analyzer" toml:"analyzer"` // report builder name, e.g. "gotest"
	Packages bool     `yaml:"packages" toml:"packages"` // append package patterns to argv
	Tool     bool     `yaml:"tool" toml:"tool"`         // resolve Command[0] via "go tool" or PATH
	Cwd      string   `yaml:"cwd" toml:"cwd"`           // relative to the repository root
	Env      []string `yaml:"env" toml:"env"`           // extra KEY=VALUE entries
}

// BuiltinJobs are available without any configuration. Configured jobs
// with the same name replace them.
var BuiltinJobs = map[string]Job{
	"test": {
		Command:  []string{"go", "test", "-json"},
		Analyzer: "gotest",
		Packages: true,
	},
	"build": {
		Command:  []string{"go", "build"},
		Analyzer: "gobuild",
		Packages: true,
	},
	"vet": {
		Command:  []string{"go", "vet"},
		Analyzer: "gobuild",
		Packages: true,
	},
	"staticcheck": {
		Command:  []string{"staticcheck", "-f", "json"},
		Analyzer: "staticcheck",
		Packages: true,
		Tool:     true,
	},
	"lint": {
		Command:  []string{"golangci-lint", "run", "--out-format", "json"},
		Analyzer: "golangci",
		Packages: true,
		Tool:     true,
	},
}

// DefaultJobNames are run by check when no default jobs are configured.
var DefaultJobNames = []string{"build", "vet", "test"}

// Timeout returns the configured timeout or the default.
func (c *Config) Timeout() time.Duration {
	if c.RawTimeout != "" {
		d, err := time.ParseDuration(c.RawTimeout)
		if err == nil && d > 0 {
			return d
		}
	}
	return DefaultTimeout
}

// MaxOutputBytes returns the configured max output size or the default.
func (c *Config) MaxOutputBytes() int {
	if c.RawMaxOutput > 0 {
		return c.RawMaxOutput
	}
	return DefaultMaxOutput
}

// Parallelism returns how many jobs check may run at once.
func (c *Config) Parallelism() int {
	if c.RawParallelism > 0 {
		return c.RawParallelism
	}
	return runtime.GOMAXPROCS(0)
}

// Level returns the configured log level or the default.
func (c *Config) Level() string {
	if c.LogLevel != "" {
		return c.LogLevel
	}
	return DefaultLogLevel
}

// Job returns the named job, preferring configured jobs over built-ins.
func (c *Config) Job(name string) (Job, bool) {
	if j, ok := c.Jobs[name]; ok {
		return j, true
	}
	j, ok := BuiltinJobs[name]
	return j, ok
}

// JobNames returns every known job name, sorted.
func (c *Config) JobNames() []string {
	names := maps.Clone(BuiltinJobs)
	for name, j := range c.Jobs {
		names[name] = j
	}
	return slices.Sorted(maps.Keys(names))
}

// DefaultJobList returns the configured default jobs, falling back to
// DefaultJobNames.
func (c *Config) DefaultJobList() []string {
	if len(c.DefaultJobs) > 0 {
		return c.DefaultJobs
	}
	return DefaultJobNames
}

// Validate checks that every configured job can be run.
func (c *Config) Validate() error {
	var errs []error
	for _, name := range slices.Sorted(maps.Keys(c.Jobs)) {
		j := c.Jobs[name]
		if len(j.Command) == 0 {
			errs = append(errs, fmt.Errorf("job %q: command is required", name))
		}
		if j.Analyzer == "" {
			errs = append(errs, fmt.Errorf("job %q: analyzer is required", name))
		} else if _, err := analyzer.Lookup(j.Analyzer); err != nil {
			errs = append(errs, fmt.Errorf("job %q: %w", name, err))
		}
	}
	for _, name := range c.DefaultJobs {
		if _, ok := c.Job(name); !ok {
			errs = append(errs, fmt.Errorf("default job %q is not defined", name))
		}
	}
	return errors.Join(errs...)
}

// LoadResult holds the parsed config and the discovered repository root.
type LoadResult struct {
	Config   *Config
	RepoRoot string // directory containing go.mod; falls back to workspace
	Path     string // config file that was read; empty when none exists
}

// Load reads the configuration from the repository root.
// The repository root is discovered by walking upward from workspace
// looking for go.mod. .verdict takes precedence over verdict.toml. If
// neither exists, a default Config is returned.
func Load(workspace string) (*LoadResult, error) {
	root, err := findRepoRoot(workspace)
	if err != nil {
		// No go.mod found; use workspace as root.
		root = workspace
	}

	cfg, path, err := readConfig(root)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid %s: %w", filepath.Base(path), err)
	}
	return &LoadResult{Config: cfg, RepoRoot: root, Path: path}, nil
}

func readConfig(root string) (*Config, string, error) {
	yamlPath := filepath.Join(root, YAMLFile)
	data, err := os.ReadFile(yamlPath)
	switch {
	case err == nil:
		cfg := &Config{}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, "", fmt.Errorf("parsing %s: %w", YAMLFile, err)
		}
		return cfg, yamlPath, nil
	case !os.IsNotExist(err):
		return nil, "", fmt.Errorf("reading %s: %w", YAMLFile, err)
	}

	tomlPath := filepath.Join(root, TOMLFile)
	cfg := &Config{}
	if _, err := toml.DecodeFile(tomlPath, cfg); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &Config{}, "", nil
		}
		return nil, "", fmt.Errorf("parsing %s: %w", TOMLFile, err)
	}
	return cfg, tomlPath, nil
}

// findRepoRoot walks upward from dir looking for a directory containing go.mod.
func findRepoRoot(dir string) (string, error) {
	dir, err := filepath.Abs(dir)
	if err != nil {
		return "", err
	}
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("go.mod not found")
		}
		dir = parent
	}
}
