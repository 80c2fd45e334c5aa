// Package config loads fixpoint configuration from a YAML file with
// environment variable overrides. Configuration is loaded once at process
// start and passed explicitly to the components that need it.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultPath is where the config file lives relative to the project root.
const DefaultPath = ".fixpoint/config.yaml"

// VerifierConfig describes the external test runner.
type VerifierConfig struct {
	// Command is the runner binary, e.g. "pytest" or "go".
	Command string `yaml:"command"`
	// Args are passed before the target, e.g. ["-v", "--tb=short"].
	Args []string `yaml:"args"`
	// TimeoutSeconds bounds one verification run.
	TimeoutSeconds int `yaml:"timeout_seconds"`
	// MissingRunnerPolicy is "fail" or "pass". The policy for an
	// uninstalled runner must be an explicit choice.
	MissingRunnerPolicy string `yaml:"missing_runner_policy"`
	// TextFallback enables the legacy passed/failed text heuristic for
	// runners with unreliable exit codes. Off by default.
	TextFallback bool `yaml:"text_fallback"`
}

// Timeout returns the configured verification timeout.
func (v *VerifierConfig) Timeout() time.Duration {
	return time.Duration(v.TimeoutSeconds) * time.Second
}

// Config is the full fixpoint configuration.
type Config struct {
	// DBPath is the SQLite event store location.
	DBPath string `yaml:"db_path"`
	// MemoryPath is the persistent project memory file.
	MemoryPath string `yaml:"memory_path"`
	// ProjectRoot confines file tool access. Empty means the current
	// working directory.
	ProjectRoot string `yaml:"project_root"`
	// MaxRetries is the repair session attempt budget. Must be >= 1.
	MaxRetries int `yaml:"max_retries"`
	// Model overrides the default LLM model.
	Model string `yaml:"model"`
	// RequestsPerMinute caps LLM API call rate.
	RequestsPerMinute int `yaml:"requests_per_minute"`
	// MaxConcurrentCalls caps in-flight LLM API calls.
	MaxConcurrentCalls int `yaml:"max_concurrent_calls"`

	Verifier VerifierConfig `yaml:"verifier"`
}

// Default returns the standard configuration.
func Default() *Config {
	return &Config{
		DBPath:             ".fixpoint/fixpoint.db",
		MemoryPath:         ".fixpoint/project_context.json",
		MaxRetries:         5,
		RequestsPerMinute:  30,
		MaxConcurrentCalls: 3,
		Verifier: VerifierConfig{
			Command:             "pytest",
			Args:                []string{"-v", "--tb=short"},
			TimeoutSeconds:      120,
			MissingRunnerPolicy: "fail",
		},
	}
}

// Load reads the config file at path, falling back to defaults when the file
// does not exist. Environment overrides are applied after the file.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
	} else if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnvOverrides layers FIXPOINT_* environment variables over the file.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("FIXPOINT_DB"); v != "" {
		cfg.DBPath = v
	}
	if v := os.Getenv("FIXPOINT_MAX_RETRIES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.MaxRetries = n
		}
	}
	if v := os.Getenv("FIXPOINT_VERIFIER"); v != "" {
		cfg.Verifier.Command = v
	}
}

// Validate checks configuration invariants.
func (c *Config) Validate() error {
	if c.MaxRetries < 1 {
		return fmt.Errorf("max_retries must be >= 1 (got %d)", c.MaxRetries)
	}
	if c.Verifier.Command == "" {
		return fmt.Errorf("verifier command is required")
	}
	switch c.Verifier.MissingRunnerPolicy {
	case "", "fail", "pass":
	default:
		return fmt.Errorf("missing_runner_policy must be \"fail\" or \"pass\" (got %q)",
			c.Verifier.MissingRunnerPolicy)
	}
	if c.Verifier.TimeoutSeconds < 0 {
		return fmt.Errorf("verifier timeout cannot be negative")
	}
	return nil
}
