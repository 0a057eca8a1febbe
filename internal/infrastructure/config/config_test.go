package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var configKeys = []string{
	"ENVIRONMENT", "ENV", "SERVICE_NAME", "LOG_LEVEL", "LOG_FORMAT", "SERVICE_VERSION",
	"ADAPTER_LOGGER", "ADAPTER_METRICS", "ADAPTER_CONSENT", "MIRROR_ADAPTER",
	"OUTPUT_ROOT", "SYMBOL_CACHE", "FORCE", "VERBOSE", "WORKERS", "SOURCE_SUBDIR", "ACCEPT_LICENSE",
	"SYMBOL_SERVER_URL", "SOURCE_LICENSE_URL", "HTTP_TIMEOUT", "HTTP_USER_AGENT",
	"MIRROR_BUCKET_OR_PATH", "STORAGE_TIMEOUT", "AWS_REGION", "AWS_ACCESS_KEY_ID",
	"AWS_SECRET_ACCESS_KEY", "S3_ENDPOINT", "METRICS_FILE",
}

// clearEnv unsets every key the loader reads and restores them afterwards,
// including values that .env files set during the test.
func clearEnv(t *testing.T) {
	t.Helper()
	saved := make(map[string]string)
	for _, key := range configKeys {
		if value, ok := os.LookupEnv(key); ok {
			saved[key] = value
		}
		require.NoError(t, os.Unsetenv(key))
	}
	t.Cleanup(func() {
		for _, key := range configKeys {
			if value, ok := saved[key]; ok {
				os.Setenv(key, value)
			} else {
				os.Unsetenv(key)
			}
		}
	})
}

func writeEnvFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func TestLoadFrom_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := LoadFrom(t.TempDir())

	require.NoError(t, err)
	assert.Equal(t, "local", cfg.Environment)
	assert.Equal(t, "massdownloader", cfg.ServiceName)
	assert.Equal(t, DefaultSymbolServerURL, cfg.SymbolServer.URL)
	assert.Equal(t, "zerolog", cfg.Adapters.Logger)
	assert.Equal(t, "prometheus", cfg.Adapters.Metrics)
	assert.Equal(t, "prompt", cfg.Adapters.Consent)
	assert.Empty(t, cfg.Adapters.Mirror)
	assert.Equal(t, "console", cfg.Observability.LogFormat)
	assert.Equal(t, "src/source/.net/8.0", cfg.Retrieval.SourceSubdir)
	assert.Equal(t, 1, cfg.Retrieval.Workers)
	assert.Equal(t, 120*time.Second, cfg.HTTP.Timeout)
}

func TestLoadFrom_EnvFilePrecedence(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	writeEnvFile(t, dir, ".env", "ENVIRONMENT=staging\nWORKERS=2\nSYMBOL_CACHE=true\nOUTPUT_ROOT=/cache/base\n")
	writeEnvFile(t, dir, ".env.staging", "WORKERS=3\nLOG_FORMAT=json\n")
	writeEnvFile(t, dir, ".env.local", "OUTPUT_ROOT=/cache/local\n")

	cfg, err := LoadFrom(dir)

	require.NoError(t, err)
	assert.Equal(t, "staging", cfg.Environment)
	assert.Equal(t, 3, cfg.Retrieval.Workers)
	assert.True(t, cfg.Retrieval.SymbolCache)
	assert.Equal(t, "/cache/local", cfg.Retrieval.OutputRoot)
	assert.Equal(t, "json", cfg.Observability.LogFormat)
}

func TestLoadFrom_ProcessEnvBeatsBaseFile(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	writeEnvFile(t, dir, ".env", "WORKERS=2\n")
	os.Setenv("WORKERS", "6")

	cfg, err := LoadFrom(dir)

	require.NoError(t, err)
	assert.Equal(t, 6, cfg.Retrieval.Workers)
}

func TestLoadFrom_ProductionDefaults(t *testing.T) {
	clearEnv(t)
	os.Setenv("ENVIRONMENT", "production")

	cfg, err := LoadFrom(t.TempDir())

	require.NoError(t, err)
	assert.Equal(t, "policy", cfg.Adapters.Consent)
	assert.Equal(t, "json", cfg.Observability.LogFormat)
}

func TestLoadFrom_InvalidValues(t *testing.T) {
	clearEnv(t)
	os.Setenv("SYMBOL_SERVER_URL", "ftp://symbols.example.com")
	os.Setenv("WORKERS", "-1")
	os.Setenv("MIRROR_ADAPTER", "s3")

	_, err := LoadFrom(t.TempDir())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "SYMBOL_SERVER_URL must use http or https")
	assert.Contains(t, err.Error(), "WORKERS cannot be negative")
	assert.Contains(t, err.Error(), "MIRROR_BUCKET_OR_PATH (bucket) is required")
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"defaults are valid", func(*Config) {}, ""},
		{"unknown logger", func(c *Config) { c.Adapters.Logger = "loki" }, "invalid logger adapter"},
		{"unknown mirror", func(c *Config) { c.Adapters.Mirror = "gcs" }, "invalid mirror adapter"},
		{"filesystem mirror without path", func(c *Config) { c.Adapters.Mirror = "filesystem" }, "MIRROR_BUCKET_OR_PATH (path)"},
		{"relative license url", func(c *Config) { c.SymbolServer.LicenseURL = "/eula.txt" }, "SOURCE_LICENSE_URL"},
		{"escaping source subdir", func(c *Config) { c.Retrieval.SourceSubdir = "../src" }, "SOURCE_SUBDIR"},
		{"zero timeout", func(c *Config) { c.HTTP.Timeout = 0 }, "HTTP_TIMEOUT"},
		{"bad level", func(c *Config) { c.LogLevel = "loud" }, "LOG_LEVEL"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestEnvHelpers(t *testing.T) {
	t.Setenv("MD_TEST_INT", "nope")
	t.Setenv("MD_TEST_BOOL", "T")
	t.Setenv("MD_TEST_DURATION", "1500ms")

	assert.Equal(t, 7, getInt("MD_TEST_INT", 7))
	assert.True(t, getBool("MD_TEST_BOOL", false))
	assert.Equal(t, 1500*time.Millisecond, getDuration("MD_TEST_DURATION", "1s"))
	assert.Equal(t, time.Second, getDuration("MD_TEST_MISSING", "1s"))
	assert.Equal(t, "fallback", getEnv("MD_TEST_MISSING", "fallback"))
}
