package config

// parse reads configuration from environment variables
func parse() (*Config, error) {
	defaults := DefaultConfig()

	cfg := &Config{
		// Core
		Environment: getEnv("ENVIRONMENT", defaults.Environment),
		ServiceName: getEnv("SERVICE_NAME", defaults.ServiceName),
		LogLevel:    getEnv("LOG_LEVEL", defaults.LogLevel),
		Version:     getEnv("SERVICE_VERSION", defaults.Version),

		// Adapter selection
		Adapters: AdapterConfig{
			Logger:  getEnv("ADAPTER_LOGGER", ""),
			Metrics: getEnv("ADAPTER_METRICS", ""),
			Mirror:  getEnv("MIRROR_ADAPTER", ""),
			Consent: getEnv("ADAPTER_CONSENT", ""),
		},

		// Batch run defaults
		Retrieval: RetrievalConfig{
			OutputRoot:    getEnv("OUTPUT_ROOT", ""),
			SymbolCache:   getBool("SYMBOL_CACHE", false),
			Force:         getBool("FORCE", false),
			Verbose:       getBool("VERBOSE", false),
			Workers:       getInt("WORKERS", defaults.Retrieval.Workers),
			SourceSubdir:  getEnv("SOURCE_SUBDIR", ""),
			AcceptLicense: getBool("ACCEPT_LICENSE", false),
		},

		// Symbol server
		SymbolServer: SymbolServerConfig{
			URL:        getEnv("SYMBOL_SERVER_URL", ""),
			LicenseURL: getEnv("SOURCE_LICENSE_URL", ""),
		},

		// HTTP Configuration
		HTTP: HTTPConfig{
			Timeout:   getDuration("HTTP_TIMEOUT", "120s"),
			UserAgent: getEnv("HTTP_USER_AGENT", defaults.HTTP.UserAgent),
		},

		// Mirror storage
		Storage: StorageConfig{
			BucketOrPath: getEnv("MIRROR_BUCKET_OR_PATH", ""),
			Timeout:      getDuration("STORAGE_TIMEOUT", "30s"),
			S3: S3Config{
				Region:          getEnv("AWS_REGION", defaults.Storage.S3.Region),
				AccessKeyID:     getEnv("AWS_ACCESS_KEY_ID", ""),
				SecretAccessKey: getEnv("AWS_SECRET_ACCESS_KEY", ""),
				Endpoint:        getEnv("S3_ENDPOINT", ""),
			},
		},

		// Observability Configuration
		Observability: ObservabilityConfig{
			LogFormat:   getEnv("LOG_FORMAT", ""),
			MetricsFile: getEnv("METRICS_FILE", ""),
		},
	}

	return cfg, nil
}
