package config

import (
	"time"
)

// Config holds all application configuration
type Config struct {
	// Core settings
	Environment string
	ServiceName string
	LogLevel    string
	Version     string

	// Adapter selection
	Adapters AdapterConfig

	// Component configurations
	Retrieval     RetrievalConfig
	SymbolServer  SymbolServerConfig
	HTTP          HTTPConfig
	Storage       StorageConfig
	Observability ObservabilityConfig
}

// AdapterConfig specifies which implementations to use
type AdapterConfig struct {
	Logger  string // "zerolog"
	Metrics string // "prometheus"
	Mirror  string // "", "filesystem", "s3"
	Consent string // "prompt", "policy"
}

// RetrievalConfig holds the defaults of a batch run. Command line flags
// override every field.
type RetrievalConfig struct {
	OutputRoot    string
	SymbolCache   bool
	Force         bool
	Verbose       bool
	Workers       int
	SourceSubdir  string
	AcceptLicense bool
}

// SymbolServerConfig locates the remote symbol and source servers
type SymbolServerConfig struct {
	URL string
	// LicenseURL is fetched and shown before the first source download
	LicenseURL string
}

// HTTPConfig holds HTTP client configuration
type HTTPConfig struct {
	Timeout   time.Duration
	UserAgent string
}

// StorageConfig configures the optional PDB mirror
type StorageConfig struct {
	BucketOrPath string
	Timeout      time.Duration

	// S3-specific configuration
	S3 S3Config
}

// S3Config holds S3-specific configuration
type S3Config struct {
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	Endpoint        string // For MinIO or S3-compatible services
}

// ObservabilityConfig holds observability configuration
type ObservabilityConfig struct {
	LogFormat   string // "json", "console"
	MetricsFile string // Prometheus text file written at the end of a run
}
