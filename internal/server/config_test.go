package server

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/iwvelando/loan-affordability/pkg/constants"
)

func TestLoadConfigDefaultsWhenMissing(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}

	if cfg.Address != constants.DefaultServerAddress {
		t.Fatalf("expected default address, got %q", cfg.Address)
	}
	if cfg.UploadSizeBytes() != constants.DefaultMaxUploadSizeBytes {
		t.Fatalf("expected default max upload size, got %d", cfg.UploadSizeBytes())
	}
	if !cfg.RateLimit.IsEnabled() || cfg.RateLimit.RequestsPerMinute != constants.DefaultRequestsPerMinute || cfg.RateLimit.Burst != constants.DefaultBurstSize || cfg.RateLimit.TrustForwardedFor {
		t.Fatalf("unexpected rate limit defaults: %+v", cfg.RateLimit)
	}
	if cfg.Cache.Backend != CacheBackendMemory || cfg.Cache.TTL != constants.DefaultCacheTTL {
		t.Fatalf("unexpected cache defaults: %+v", cfg.Cache)
	}
	if cfg.Logging.Level != "" || cfg.Logging.Format != "" || cfg.Logging.OutputFile != "" {
		t.Fatalf("expected empty logging defaults, got %+v", cfg.Logging)
	}

	empty, err := LoadConfig("")
	if err != nil || empty.Address != constants.DefaultServerAddress {
		t.Fatalf("LoadConfig(\"\") = %+v, %v", empty, err)
	}
}

func TestLoadConfigOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "server-config.yaml")

	contents := []byte(`address: 127.0.0.1:9000
maxUploadSize: 2M
shutdownTimeout: 3s
rateLimit:
  enabled: false
  requestsPerMinute: 30
  burst: 5
  trustForwardedFor: true
cache:
  backend: Redis
  ttl: 1h
  redisAddr: localhost:6379
  redisDB: 2
defaults:
  annualRate: 0.3
  currency: USD
  currencyPlaces: 2
logging:
  level: debug
  format: console
  outputFile: /tmp/server.log
`)
	if err := os.WriteFile(path, contents, 0600); err != nil {
		t.Fatalf("failed to write temp config: %v", err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}

	if cfg.Address != "127.0.0.1:9000" {
		t.Fatalf("expected address override, got %s", cfg.Address)
	}
	if cfg.UploadSizeBytes() != 2*1024*1024 {
		t.Fatalf("expected max upload override, got %d", cfg.UploadSizeBytes())
	}
	if cfg.ShutdownTimeout != 3*time.Second {
		t.Fatalf("expected shutdown timeout 3s, got %v", cfg.ShutdownTimeout)
	}
	if cfg.RateLimit.IsEnabled() || cfg.RateLimit.RequestsPerMinute != 30 || cfg.RateLimit.Burst != 5 || !cfg.RateLimit.TrustForwardedFor {
		t.Fatalf("unexpected rate limit config: %+v", cfg.RateLimit)
	}
	if cfg.Cache.Backend != CacheBackendRedis || cfg.Cache.TTL != time.Hour || cfg.Cache.RedisAddr != "localhost:6379" || cfg.Cache.RedisDB != 2 {
		t.Fatalf("unexpected cache config: %+v", cfg.Cache)
	}
	if cfg.Defaults.AnnualRate == nil || *cfg.Defaults.AnnualRate != 0.3 || cfg.Defaults.CurrencyCode() != "USD" || cfg.Defaults.Places() != 2 {
		t.Fatalf("unexpected defaults: %+v", cfg.Defaults)
	}
	if cfg.Logging.Level != "debug" {
		t.Fatalf("expected logging level debug, got %s", cfg.Logging.Level)
	}
	if cfg.Logging.Format != "console" {
		t.Fatalf("expected logging format console, got %s", cfg.Logging.Format)
	}
	if cfg.Logging.OutputFile != "/tmp/server.log" {
		t.Fatalf("expected logging outputFile /tmp/server.log, got %s", cfg.Logging.OutputFile)
	}
}

func TestLoadConfigErrors(t *testing.T) {
	tests := map[string]string{
		"invalid size":         "maxUploadSize: invalid",
		"unknown backend":      "cache:\n  backend: memcached",
		"redis without addr":   "cache:\n  backend: redis",
		"malformed yaml":       "address: [",
		"bad duration literal": "shutdownTimeout: soon",
	}

	for name, contents := range tests {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "bad.yaml")
			if err := os.WriteFile(path, []byte(contents), 0600); err != nil {
				t.Fatalf("failed to write temp config: %v", err)
			}
			if _, err := LoadConfig(path); err == nil {
				t.Fatal("expected error but got nil")
			}
		})
	}
}

func TestSetUploadSizeBytes(t *testing.T) {
	cfg, _ := LoadConfig("")
	cfg.SetUploadSizeBytes(1024)
	if cfg.UploadSizeBytes() != 1024 || cfg.MaxUploadSize != "1024" {
		t.Fatalf("SetUploadSizeBytes() did not apply, got %d %q", cfg.UploadSizeBytes(), cfg.MaxUploadSize)
	}
	cfg.SetUploadSizeBytes(0)
	if cfg.UploadSizeBytes() != 1024 {
		t.Fatalf("non-positive size should be ignored, got %d", cfg.UploadSizeBytes())
	}
}

func TestParseSize(t *testing.T) {
	tests := map[string]int64{
		"":          constants.DefaultMaxUploadSizeBytes,
		"1024":      1024,
		"512b":      512,
		"256K":      256 * 1024,
		"1m":        1024 * 1024,
		"3MB":       3 * 1024 * 1024,
		"2G":        2 * 1024 * 1024 * 1024,
		"  4096   ": 4096,
	}

	for input, expected := range tests {
		got, err := ParseSize(input)
		if err != nil {
			t.Fatalf("ParseSize(%q) returned error: %v", input, err)
		}
		if got != expected {
			t.Fatalf("ParseSize(%q) = %d, expected %d", input, got, expected)
		}
	}

	if _, err := ParseSize("1TB"); err == nil {
		t.Fatal("expected error for unsupported unit")
	}
	if _, err := ParseSize("abc"); err == nil {
		t.Fatal("expected error for invalid number")
	}
}
