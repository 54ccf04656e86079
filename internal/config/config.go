package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Transport string `yaml:"transport"`
	Port      string `yaml:"port"`

	DataDir     string `yaml:"data_dir"`
	DatabaseURL string `yaml:"database_url"`

	ModelPath       string `yaml:"model_path"`
	ONNXRuntimePath string `yaml:"onnx_runtime_path"`
	VocabularyPath  string `yaml:"vocabulary_path"`

	BearerToken        string   `yaml:"bearer_token"`
	CORSAllowedOrigins []string `yaml:"cors_allowed_origins"`

	RedisURL     string `yaml:"redis_url"`
	RedisChannel string `yaml:"redis_channel"`

	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`

	// ListLimit caps how many records a single list call returns.
	ListLimit int `yaml:"list_limit"`

	// Source is the YAML file the config was read from, if any.
	Source string `yaml:"-"`
}

// DefaultPath is read when AIGNITE_CONFIG is unset.
const DefaultPath = "config.yaml"

// Load reads the YAML file at path (AIGNITE_CONFIG or DefaultPath when path
// is empty), applies AIGNITE_* environment overrides, then defaults. A
// missing file is not an error.
func Load(path string) (Config, error) {
	var cfg Config

	if path == "" {
		path = DefaultPath
		if envPath := os.Getenv("AIGNITE_CONFIG"); envPath != "" {
			path = envPath
		}
	}
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse %s: %w", path, err)
		}
		cfg.Source = path
	case errors.Is(err, fs.ErrNotExist):
	default:
		return Config{}, fmt.Errorf("read %s: %w", path, err)
	}

	// Env vars override YAML values
	envOverride(&cfg.Transport, "AIGNITE_TRANSPORT")
	envOverride(&cfg.Port, "AIGNITE_PORT")
	envOverride(&cfg.DataDir, "AIGNITE_DATA_DIR")
	envOverride(&cfg.DatabaseURL, "AIGNITE_DATABASE_URL")
	envOverride(&cfg.ModelPath, "AIGNITE_MODEL_PATH")
	envOverride(&cfg.ONNXRuntimePath, "AIGNITE_ONNX_RUNTIME_PATH")
	envOverride(&cfg.VocabularyPath, "AIGNITE_VOCABULARY_PATH")
	envOverride(&cfg.BearerToken, "AIGNITE_BEARER_TOKEN")
	envOverride(&cfg.RedisURL, "AIGNITE_REDIS_URL")
	envOverride(&cfg.RedisChannel, "AIGNITE_REDIS_CHANNEL")
	envOverride(&cfg.LogLevel, "AIGNITE_LOG_LEVEL")
	envOverride(&cfg.LogFormat, "AIGNITE_LOG_FORMAT")
	if err := envOverrideInt(&cfg.ListLimit, "AIGNITE_LIST_LIMIT"); err != nil {
		return Config{}, err
	}
	if origins := os.Getenv("AIGNITE_CORS_ALLOWED_ORIGINS"); origins != "" {
		cfg.CORSAllowedOrigins = splitList(origins)
	}

	// Defaults
	if cfg.Transport == "" {
		cfg.Transport = "stdio"
	}
	if cfg.Port == "" {
		cfg.Port = "8081"
	}
	if cfg.DataDir == "" {
		cfg.DataDir = "./data"
	}
	if cfg.ModelPath == "" {
		cfg.ModelPath = "./models/fire_risk.json"
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	if cfg.LogFormat == "" {
		cfg.LogFormat = "text"
	}
	if cfg.ListLimit == 0 {
		cfg.ListLimit = 500
	}
	return cfg, nil
}

// Validate rejects settings the server cannot start with.
func (c Config) Validate() error {
	var problems []string
	switch c.Transport {
	case "stdio", "http":
	default:
		problems = append(problems, fmt.Sprintf("unknown transport %q (use stdio or http)", c.Transport))
	}
	switch strings.ToLower(c.LogFormat) {
	case "text", "json":
	default:
		problems = append(problems, fmt.Sprintf("unknown log_format %q (use text or json)", c.LogFormat))
	}
	if n, err := strconv.Atoi(c.Port); err != nil || n <= 0 || n > 65535 {
		problems = append(problems, fmt.Sprintf("invalid port %q", c.Port))
	}
	if c.ModelPath == "" {
		problems = append(problems, "model_path is required")
	}
	if c.ListLimit < 0 {
		problems = append(problems, "list_limit must not be negative")
	}
	if len(problems) > 0 {
		return fmt.Errorf("invalid config: %s", strings.Join(problems, "; "))
	}
	return nil
}

func envOverride(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func envOverrideInt(dst *int, key string) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = n
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, item := range strings.Split(s, ",") {
		item = strings.TrimSpace(item)
		if item != "" {
			out = append(out, item)
		}
	}
	return out
}
