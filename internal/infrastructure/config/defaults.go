package config

import (
	"time"
)

const DefaultSymbolServerURL = "https://msdl.microsoft.com/download/symbols"

// DefaultConfig returns a complete configuration with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		// Core settings
		Environment: "local",
		ServiceName: "massdownloader",
		LogLevel:    "info",
		Version:     "1.0.0",

		// Component configurations with defaults
		Adapters:      DefaultAdapterConfig(),
		Retrieval:     DefaultRetrievalConfig(),
		SymbolServer:  DefaultSymbolServerConfig(),
		HTTP:          DefaultHTTPConfig(),
		Storage:       DefaultStorageConfig(),
		Observability: DefaultObservabilityConfig(),
	}
}

// DefaultAdapterConfig returns default adapter selection
func DefaultAdapterConfig() AdapterConfig {
	return AdapterConfig{
		Logger:  "zerolog",
		Metrics: "prometheus",
		Mirror:  "",
		Consent: "prompt",
	}
}

// DefaultRetrievalConfig returns the defaults of a batch run
func DefaultRetrievalConfig() RetrievalConfig {
	return RetrievalConfig{
		Workers:      1,
		SourceSubdir: "src/source/.net/8.0",
	}
}

// DefaultSymbolServerConfig points at the public Microsoft symbol server
func DefaultSymbolServerConfig() SymbolServerConfig {
	return SymbolServerConfig{
		URL: DefaultSymbolServerURL,
	}
}

// DefaultHTTPConfig returns sensible defaults for HTTP configuration
func DefaultHTTPConfig() HTTPConfig {
	return HTTPConfig{
		Timeout:   120 * time.Second,
		UserAgent: "Microsoft-Symbol-Server/10.0.0.0",
	}
}

// DefaultStorageConfig returns sensible defaults for storage configuration
func DefaultStorageConfig() StorageConfig {
	return StorageConfig{
		Timeout: 30 * time.Second,
		S3:      DefaultS3Config(),
	}
}

// DefaultS3Config returns sensible defaults for S3 configuration
func DefaultS3Config() S3Config {
	return S3Config{
		Region: "us-east-2",
	}
}

// DefaultObservabilityConfig returns sensible defaults for observability configuration
func DefaultObservabilityConfig() ObservabilityConfig {
	return ObservabilityConfig{
		LogFormat: "console",
	}
}

// applyDefaults applies environment-specific defaults
func applyDefaults(cfg *Config) {
	if cfg.IsProduction() {
		// headless runs never block on a prompt
		if cfg.Adapters.Consent == "" {
			cfg.Adapters.Consent = "policy"
		}
		if cfg.Observability.LogFormat == "" {
			cfg.Observability.LogFormat = "json"
		}
	}

	if cfg.Adapters.Logger == "" {
		cfg.Adapters.Logger = "zerolog"
	}
	if cfg.Adapters.Metrics == "" {
		cfg.Adapters.Metrics = "prometheus"
	}
	if cfg.Adapters.Consent == "" {
		cfg.Adapters.Consent = "prompt"
	}
	if cfg.Observability.LogFormat == "" {
		cfg.Observability.LogFormat = "console"
	}
	if cfg.Retrieval.SourceSubdir == "" {
		cfg.Retrieval.SourceSubdir = "src/source/.net/8.0"
	}
	if cfg.SymbolServer.URL == "" {
		cfg.SymbolServer.URL = DefaultSymbolServerURL
	}
}

// IsProduction reports whether the tool runs unattended
func (c *Config) IsProduction() bool {
	return c.Environment == "production" || c.Environment == "prod"
}
