package config

import (
	"fmt"
	"net/url"
	"strings"
)

// Validate validates the entire configuration
func (c *Config) Validate() error {
	var errors []string

	// Core validations
	if c.ServiceName == "" {
		errors = append(errors, "SERVICE_NAME is required")
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(c.LogLevel)] {
		errors = append(errors, fmt.Sprintf("invalid LOG_LEVEL: %s", c.LogLevel))
	}

	// Validate adapters
	if err := c.Adapters.Validate(); err != nil {
		errors = append(errors, err.Error())
	}

	if err := c.Retrieval.Validate(); err != nil {
		errors = append(errors, err.Error())
	}

	if err := c.SymbolServer.Validate(); err != nil {
		errors = append(errors, err.Error())
	}

	if err := c.HTTP.Validate(); err != nil {
		errors = append(errors, err.Error())
	}

	// Validate storage only when a mirror is selected
	if c.Adapters.Mirror != "" {
		if err := c.Storage.Validate(c.Adapters); err != nil {
			errors = append(errors, err.Error())
		}
	}

	if err := c.Observability.Validate(); err != nil {
		errors = append(errors, err.Error())
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errors, "; "))
	}

	return nil
}

// Validate validates adapter configuration
func (a *AdapterConfig) Validate() error {
	validLogger := map[string]bool{"zerolog": true}
	if !validLogger[a.Logger] {
		return fmt.Errorf("invalid logger adapter: %s (must be zerolog)", a.Logger)
	}

	validMetrics := map[string]bool{"prometheus": true}
	if !validMetrics[a.Metrics] {
		return fmt.Errorf("invalid metrics adapter: %s (must be prometheus)", a.Metrics)
	}

	validMirror := map[string]bool{"": true, "s3": true, "filesystem": true}
	if !validMirror[a.Mirror] {
		return fmt.Errorf("invalid mirror adapter: %s (must be s3 or filesystem)", a.Mirror)
	}

	validConsent := map[string]bool{"prompt": true, "policy": true}
	if !validConsent[a.Consent] {
		return fmt.Errorf("invalid consent adapter: %s (must be prompt or policy)", a.Consent)
	}

	return nil
}

// Validate validates the batch run defaults
func (r *RetrievalConfig) Validate() error {
	if r.Workers < 0 {
		return fmt.Errorf("WORKERS cannot be negative")
	}
	if strings.Contains(r.SourceSubdir, "..") {
		return fmt.Errorf("SOURCE_SUBDIR cannot leave the output directory")
	}
	return nil
}

// Validate validates the symbol server endpoints
func (s *SymbolServerConfig) Validate() error {
	if err := validateHTTPURL("SYMBOL_SERVER_URL", s.URL); err != nil {
		return err
	}
	if s.LicenseURL != "" {
		if err := validateHTTPURL("SOURCE_LICENSE_URL", s.LicenseURL); err != nil {
			return err
		}
	}
	return nil
}

// Validate validates HTTP configuration
func (h *HTTPConfig) Validate() error {
	if h.Timeout <= 0 {
		return fmt.Errorf("HTTP_TIMEOUT must be positive")
	}
	return nil
}

// Validate validates Storage configuration
func (s *StorageConfig) Validate(adapters AdapterConfig) error {
	if s.Timeout <= 0 {
		return fmt.Errorf("STORAGE_TIMEOUT must be positive")
	}

	// Validate based on selected storage adapter
	switch adapters.Mirror {
	case "s3":
		if s.BucketOrPath == "" {
			return fmt.Errorf("MIRROR_BUCKET_OR_PATH (bucket) is required for S3 storage")
		}
		if s.S3.Region == "" {
			return fmt.Errorf("AWS_REGION is required for S3 storage")
		}
	case "filesystem":
		if s.BucketOrPath == "" {
			return fmt.Errorf("MIRROR_BUCKET_OR_PATH (path) is required for filesystem storage")
		}
	}

	return nil
}

// Validate validates Observability configuration
func (o *ObservabilityConfig) Validate() error {
	validFormats := map[string]bool{"json": true, "console": true}
	if !validFormats[o.LogFormat] {
		return fmt.Errorf("invalid LOG_FORMAT: %s (must be json or console)", o.LogFormat)
	}
	return nil
}

func validateHTTPURL(key, raw string) error {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return fmt.Errorf("%s must be an absolute URL", key)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%s must use http or https", key)
	}
	return nil
}
