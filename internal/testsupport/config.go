package testsupport

import (
	"path/filepath"
	"testing"

	"shortform/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.WorkDir = filepath.Join(base, "work")
	cfgVal.Paths.OutputDir = filepath.Join(base, "output")
	cfgVal.Paths.StateDir = filepath.Join(base, "state")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	if err := builder.cfg.EnsureDirectories(); err != nil {
		t.Fatalf("ensure directories: %v", err)
	}
	return builder.cfg
}

// WithAssetsKey sets the stock image API key on the test config.
func WithAssetsKey(key string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Assets.APIKey = key
	}
}

// WithRetryPolicy overrides the default retry policy on the test config.
func WithRetryPolicy(maxAttempts, delaySeconds int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Retry.MaxAttempts = maxAttempts
		b.cfg.Retry.DelaySeconds = delaySeconds
	}
}

// WithFastWorkflow drops the daemon poll and pause intervals to keep tests quick.
func WithFastWorkflow() ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Workflow.QueuePollInterval = 1
		b.cfg.Workflow.ItemPauseSeconds = 0
	}
}
