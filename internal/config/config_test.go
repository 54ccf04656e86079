package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("AIGNITE_CONFIG", filepath.Join(t.TempDir(), "missing.yaml"))

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "stdio", cfg.Transport)
	assert.Equal(t, "8081", cfg.Port)
	assert.Equal(t, "./data", cfg.DataDir)
	assert.Equal(t, "./models/fire_risk.json", cfg.ModelPath)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.Equal(t, 500, cfg.ListLimit)
	assert.Empty(t, cfg.Source)
	assert.NoError(t, cfg.Validate())
}

func TestLoadYAMLAndEnvOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
transport: http
port: "9090"
database_url: postgres://aignite@localhost/aignite
model_path: /srv/models/bundle.json
cors_allowed_origins:
  - https://dashboard.example.org
redis_url: redis://localhost:6379/0
log_format: json
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	t.Setenv("AIGNITE_CONFIG", path)
	t.Setenv("AIGNITE_PORT", "7070")
	t.Setenv("AIGNITE_CORS_ALLOWED_ORIGINS", "https://a.example.org, https://b.example.org")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, path, cfg.Source)
	assert.Equal(t, "http", cfg.Transport)
	assert.Equal(t, "7070", cfg.Port)
	assert.Equal(t, "postgres://aignite@localhost/aignite", cfg.DatabaseURL)
	assert.Equal(t, "/srv/models/bundle.json", cfg.ModelPath)
	assert.Equal(t, []string{"https://a.example.org", "https://b.example.org"}, cfg.CORSAllowedOrigins)
	assert.Equal(t, "redis://localhost:6379/0", cfg.RedisURL)
	assert.Equal(t, "json", cfg.LogFormat)
}

func TestLoadExplicitPathWinsOverEnv(t *testing.T) {
	dir := t.TempDir()
	explicit := filepath.Join(dir, "explicit.yaml")
	require.NoError(t, os.WriteFile(explicit, []byte("data_dir: /explicit\n"), 0o644))
	t.Setenv("AIGNITE_CONFIG", filepath.Join(dir, "other.yaml"))

	cfg, err := Load(explicit)
	require.NoError(t, err)
	assert.Equal(t, "/explicit", cfg.DataDir)
}

func TestLoadRejectsBadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("transport: [http"), 0o644))

	_, err := Load(path)
	assert.ErrorContains(t, err, "parse")
}

func TestLoadRejectsBadInt(t *testing.T) {
	t.Setenv("AIGNITE_CONFIG", filepath.Join(t.TempDir(), "missing.yaml"))
	t.Setenv("AIGNITE_LIST_LIMIT", "lots")

	_, err := Load("")
	assert.ErrorContains(t, err, "AIGNITE_LIST_LIMIT")
}

func TestValidate(t *testing.T) {
	base := Config{Transport: "http", Port: "8081", ModelPath: "m.json", LogFormat: "json"}
	require.NoError(t, base.Validate())

	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"transport", func(c *Config) { c.Transport = "grpc" }, "unknown transport"},
		{"log format", func(c *Config) { c.LogFormat = "xml" }, "unknown log_format"},
		{"port", func(c *Config) { c.Port = "http" }, "invalid port"},
		{"model path", func(c *Config) { c.ModelPath = "" }, "model_path is required"},
		{"list limit", func(c *Config) { c.ListLimit = -1 }, "list_limit"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base
			tt.mutate(&cfg)
			assert.ErrorContains(t, cfg.Validate(), tt.want)
		})
	}
}
