package testsupport

import (
	"path/filepath"
	"testing"

	"sensegrid/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*config.Config)

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.DataDir = filepath.Join(base, "data")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.Paths.APIBind = "127.0.0.1:0"
	cfg.Backend.BaseURL = "http://127.0.0.1:0"
	cfg.Backend.RequestTimeout = 1
	cfg.Sync.HealthInterval = 1

	for _, opt := range opts {
		opt(&cfg)
	}

	return &cfg
}

// WithBackendURL points the test config at the provided backend address,
// typically an httptest server URL.
func WithBackendURL(baseURL string) ConfigOption {
	return func(c *config.Config) {
		c.Backend.BaseURL = baseURL
	}
}

// WithMaxRetries overrides the queue retry budget on the test config.
func WithMaxRetries(n int) ConfigOption {
	return func(c *config.Config) {
		c.Queue.MaxRetries = n
	}
}
