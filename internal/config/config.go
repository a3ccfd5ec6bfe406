// Package config provides hierarchical configuration loading for langhost.
// Precedence: defaults < YAML file < environment variables.
package config

import "time"

// Config holds all runtime configuration for the langhost daemon.
type Config struct {
	Server    Server    `yaml:"server"`
	Logging   Logging   `yaml:"logging"`
	LSP       LSP       `yaml:"lsp"`
	Rate      Rate      `yaml:"rate"`
	Cache     Cache     `yaml:"cache"`
	MCP       MCP       `yaml:"mcp"`
	Telemetry Telemetry `yaml:"telemetry"`
}

// Server holds HTTP server configuration.
type Server struct {
	Port       string `yaml:"port"`
	CORSOrigin string `yaml:"cors_origin"`
}

// Logging holds structured logging configuration.
type Logging struct {
	Level   string `yaml:"level"`
	Service string `yaml:"service"`
	Async   bool   `yaml:"async"`
}

// LSP holds language server lifecycle configuration.
type LSP struct {
	StartTimeout    time.Duration `yaml:"start_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	DiagnosticDelay time.Duration `yaml:"diagnostic_delay"` // debounce for WS broadcasts
	MaxDiagnostics  int           `yaml:"max_diagnostics"`  // per-file cap, 0 = unlimited
}

// Rate holds rate limiter configuration.
type Rate struct {
	RequestsPerSecond float64 `yaml:"requests_per_second"`
	Burst             int     `yaml:"burst"`
}

// Cache holds in-process cache configuration.
type Cache struct {
	L1MaxSizeMB int64         `yaml:"l1_max_size_mb"`
	HoverTTL    time.Duration `yaml:"hover_ttl"`
}

// MCP holds Model Context Protocol server configuration.
type MCP struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
	APIKey  string `yaml:"api_key"`
}

// Telemetry holds OpenTelemetry SDK configuration.
type Telemetry struct {
	Enabled      bool    `yaml:"enabled"`
	OTLPEndpoint string  `yaml:"otlp_endpoint"`
	SampleRate   float64 `yaml:"sample_rate"`
}

// Defaults returns a Config with sensible default values for local development.
func Defaults() Config {
	return Config{
		Server: Server{
			Port:       "7777",
			CORSOrigin: "http://localhost:3000",
		},
		Logging: Logging{
			Level:   "info",
			Service: "langhost",
		},
		LSP: LSP{
			StartTimeout:    30 * time.Second,
			ShutdownTimeout: 5 * time.Second,
			DiagnosticDelay: 300 * time.Millisecond,
			MaxDiagnostics:  200,
		},
		Rate: Rate{
			RequestsPerSecond: 20,
			Burst:             100,
		},
		Cache: Cache{
			L1MaxSizeMB: 32,
			HoverTTL:    30 * time.Second,
		},
		MCP: MCP{
			Enabled: false,
			Addr:    ":7778",
		},
		Telemetry: Telemetry{
			Enabled:      false,
			OTLPEndpoint: "localhost:4317",
			SampleRate:   1.0,
		},
	}
}
