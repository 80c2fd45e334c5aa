package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestLoadMissingFileUsesDefaults verifies a missing config file is not an
// error: defaults apply.
func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "no-such-config.yaml"))
	require.NoError(t, err)

	assert.Equal(t, ".fixpoint/fixpoint.db", cfg.DBPath)
	assert.Equal(t, 5, cfg.MaxRetries)
	assert.Equal(t, "pytest", cfg.Verifier.Command)
	assert.Equal(t, []string{"-v", "--tb=short"}, cfg.Verifier.Args)
	assert.Equal(t, "fail", cfg.Verifier.MissingRunnerPolicy)
	assert.False(t, cfg.Verifier.TextFallback)
	assert.Equal(t, 120*time.Second, cfg.Verifier.Timeout())
}

// TestLoadFile verifies YAML values override defaults.
func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
db_path: /var/lib/fixpoint/events.db
max_retries: 8
verifier:
  command: go
  args: ["test", "-run"]
  timeout_seconds: 300
  missing_runner_policy: pass
  text_fallback: true
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/var/lib/fixpoint/events.db", cfg.DBPath)
	assert.Equal(t, 8, cfg.MaxRetries)
	assert.Equal(t, "go", cfg.Verifier.Command)
	assert.Equal(t, []string{"test", "-run"}, cfg.Verifier.Args)
	assert.Equal(t, 5*time.Minute, cfg.Verifier.Timeout())
	assert.Equal(t, "pass", cfg.Verifier.MissingRunnerPolicy)
	assert.True(t, cfg.Verifier.TextFallback)
	// Untouched fields keep their defaults.
	assert.Equal(t, 30, cfg.RequestsPerMinute)
}

// TestLoadMalformedFile verifies YAML parse failures surface as errors.
func TestLoadMalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("max_retries: [not a number"), 0644))

	_, err := Load(path)
	assert.Error(t, err)
}

// TestEnvOverrides verifies FIXPOINT_* variables layer over the file.
func TestEnvOverrides(t *testing.T) {
	t.Setenv("FIXPOINT_DB", "/tmp/override.db")
	t.Setenv("FIXPOINT_MAX_RETRIES", "2")
	t.Setenv("FIXPOINT_VERIFIER", "pytest-3")

	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "/tmp/override.db", cfg.DBPath)
	assert.Equal(t, 2, cfg.MaxRetries)
	assert.Equal(t, "pytest-3", cfg.Verifier.Command)
}

// TestValidate verifies configuration invariants.
func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		wantOK bool
	}{
		{"defaults are valid", func(c *Config) {}, true},
		{"zero retries", func(c *Config) { c.MaxRetries = 0 }, false},
		{"negative retries", func(c *Config) { c.MaxRetries = -3 }, false},
		{"empty verifier command", func(c *Config) { c.Verifier.Command = "" }, false},
		{"bogus runner policy", func(c *Config) { c.Verifier.MissingRunnerPolicy = "shrug" }, false},
		{"empty policy allowed", func(c *Config) { c.Verifier.MissingRunnerPolicy = "" }, true},
		{"pass policy allowed", func(c *Config) { c.Verifier.MissingRunnerPolicy = "pass" }, true},
		{"negative timeout", func(c *Config) { c.Verifier.TimeoutSeconds = -1 }, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantOK {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}
