package config

import (
	"fmt"
)

// Load reads .env files from the working directory and the process
// environment. Call it once at startup.
func Load() (*Config, error) {
	return LoadFrom(".")
}

// LoadFrom is Load with the .env files looked up in dir
func LoadFrom(dir string) (*Config, error) {
	// Load .env files in order of precedence
	if err := loadEnvFiles(dir); err != nil {
		return nil, fmt.Errorf("failed to load env files: %w", err)
	}

	// Parse configuration from environment
	cfg, err := parse()
	if err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	// Apply defaults based on environment
	applyDefaults(cfg)

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}
