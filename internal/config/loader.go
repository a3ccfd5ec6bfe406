package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is the path checked for YAML configuration.
const DefaultConfigFile = "langhost.yaml"

// Load returns a Config using the hierarchy: defaults < YAML < ENV.
// YAML file is optional; missing file is not an error.
func Load() (*Config, error) {
	return LoadFrom(DefaultConfigFile)
}

// LoadFrom returns a Config loaded from the given YAML path using the
// hierarchy: defaults < YAML < ENV. The YAML file is optional.
func LoadFrom(yamlPath string) (*Config, error) {
	cfg := Defaults()

	if err := loadYAML(&cfg, yamlPath); err != nil {
		return nil, fmt.Errorf("config yaml: %w", err)
	}

	loadEnv(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("config validate: %w", err)
	}

	return &cfg, nil
}

// loadYAML reads the YAML file and unmarshals it over cfg.
// Returns nil if the file does not exist.
func loadYAML(cfg *Config, path string) error {
	data, err := os.ReadFile(path) //nolint:gosec // G304: path is validated by caller
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}

	return nil
}

// loadEnv overlays environment variables onto cfg.
// Only non-empty env values override the current config.
func loadEnv(cfg *Config) {
	setString(&cfg.Server.Port, "LANGHOST_PORT")
	setString(&cfg.Server.CORSOrigin, "LANGHOST_CORS_ORIGIN")
	setString(&cfg.Logging.Level, "LANGHOST_LOG_LEVEL")
	setString(&cfg.Logging.Service, "LANGHOST_LOG_SERVICE")
	setBool(&cfg.Logging.Async, "LANGHOST_LOG_ASYNC")
	setDuration(&cfg.LSP.StartTimeout, "LANGHOST_LSP_START_TIMEOUT")
	setDuration(&cfg.LSP.ShutdownTimeout, "LANGHOST_LSP_SHUTDOWN_TIMEOUT")
	setDuration(&cfg.LSP.DiagnosticDelay, "LANGHOST_LSP_DIAGNOSTIC_DELAY")
	setInt(&cfg.LSP.MaxDiagnostics, "LANGHOST_LSP_MAX_DIAGNOSTICS")
	setFloat64(&cfg.Rate.RequestsPerSecond, "LANGHOST_RATE_RPS")
	setInt(&cfg.Rate.Burst, "LANGHOST_RATE_BURST")
	setInt64(&cfg.Cache.L1MaxSizeMB, "LANGHOST_CACHE_L1_SIZE_MB")
	setDuration(&cfg.Cache.HoverTTL, "LANGHOST_CACHE_HOVER_TTL")
	setBool(&cfg.MCP.Enabled, "LANGHOST_MCP_ENABLED")
	setString(&cfg.MCP.Addr, "LANGHOST_MCP_ADDR")
	setString(&cfg.MCP.APIKey, "LANGHOST_MCP_API_KEY")
	setBool(&cfg.Telemetry.Enabled, "LANGHOST_OTEL_ENABLED")
	setString(&cfg.Telemetry.OTLPEndpoint, "LANGHOST_OTEL_ENDPOINT")
	setFloat64(&cfg.Telemetry.SampleRate, "LANGHOST_OTEL_SAMPLE_RATE")
}

// validate checks that required fields are set.
func validate(cfg *Config) error {
	if cfg.Server.Port == "" {
		return errors.New("server.port is required")
	}
	if cfg.LSP.StartTimeout <= 0 {
		return errors.New("lsp.start_timeout must be > 0")
	}
	if cfg.LSP.ShutdownTimeout <= 0 {
		return errors.New("lsp.shutdown_timeout must be > 0")
	}
	if cfg.Rate.Burst < 1 {
		return errors.New("rate.burst must be >= 1")
	}
	if cfg.Cache.L1MaxSizeMB < 1 {
		return errors.New("cache.l1_max_size_mb must be >= 1")
	}
	if cfg.MCP.Enabled && cfg.MCP.Addr == "" {
		return errors.New("mcp.addr is required when mcp.enabled")
	}
	if cfg.Telemetry.Enabled && cfg.Telemetry.OTLPEndpoint == "" {
		return errors.New("telemetry.otlp_endpoint is required when telemetry.enabled")
	}
	return nil
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setInt64(dst *int64, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			*dst = n
		}
	}
}

func setFloat64(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *time.Duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			*dst = d
		}
	}
}
