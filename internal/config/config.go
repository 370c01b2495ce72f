package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	WorkDir   string `toml:"work_dir"`
	OutputDir string `toml:"output_dir"`
	StateDir  string `toml:"state_dir"`
	LogDir    string `toml:"log_dir"`
}

// Research contains configuration for the encyclopedia research client.
type Research struct {
	BaseURL        string `toml:"base_url"`
	UserAgent      string `toml:"user_agent"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
	MaxFacts       int    `toml:"max_facts"`
}

// Assets contains configuration for the stock image provider.
type Assets struct {
	BaseURL        string `toml:"base_url"`
	APIKey         string `toml:"api_key"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
	ImageCount     int    `toml:"image_count"`
}

// Narration contains configuration for the narration synthesis engine.
type Narration struct {
	Command        string `toml:"command"`
	Voice          string `toml:"voice"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// Assembly contains configuration for the video renderer.
type Assembly struct {
	Command            string `toml:"command"`
	Width              int    `toml:"width"`
	Height             int    `toml:"height"`
	FPS                int    `toml:"fps"`
	Codec              string `toml:"codec"`
	MaxDurationSeconds int    `toml:"max_duration_seconds"`
	TimeoutSeconds     int    `toml:"timeout_seconds"`
}

// QualityWeights holds the composite scoring weights. They must sum to 1.0.
type QualityWeights struct {
	Accuracy     float64 `toml:"accuracy"`
	Sensitivity  float64 `toml:"sensitivity"`
	Educational  float64 `toml:"educational"`
	Verification float64 `toml:"verification"`
	Language     float64 `toml:"language"`
}

// Sum returns the total of all weights.
func (w QualityWeights) Sum() float64 {
	return w.Accuracy + w.Sensitivity + w.Educational + w.Verification + w.Language
}

// Quality contains thresholds and term lists for the quality gate.
type Quality struct {
	GlobalThreshold  float64        `toml:"global_threshold"`
	SensitivityFloor float64        `toml:"sensitivity_floor"`
	Weights          QualityWeights `toml:"weights"`
	BlockedTerms     []string       `toml:"blocked_terms"`
	OutdatedTerms    []string       `toml:"outdated_terms"`
	ContextTerms     []string       `toml:"context_terms"`
}

// Experiments contains configuration for the variation experiment engine.
type Experiments struct {
	Enabled          bool    `toml:"enabled"`
	ExposureFraction float64 `toml:"exposure_fraction"`
	MaxPerDimension  int     `toml:"max_per_dimension"`
}

// Publishing contains configuration for distribution.
type Publishing struct {
	Platforms  []string `toml:"platforms"`
	DailyQuota int      `toml:"daily_quota"`
}

// StageRetry is the retry policy for one stage.
type StageRetry struct {
	MaxAttempts  int `toml:"max_attempts"`
	DelaySeconds int `toml:"delay_seconds"`
}

// Retry contains the default retry policy plus per-stage overrides keyed by
// stage name (research, script, assets, narration, assembly).
type Retry struct {
	MaxAttempts  int                   `toml:"max_attempts"`
	DelaySeconds int                   `toml:"delay_seconds"`
	Stages       map[string]StageRetry `toml:"stages"`
}

// ForStage resolves the effective policy for a stage name.
func (r Retry) ForStage(name string) StageRetry {
	policy := StageRetry{MaxAttempts: r.MaxAttempts, DelaySeconds: r.DelaySeconds}
	if override, ok := r.Stages[name]; ok {
		if override.MaxAttempts > 0 {
			policy.MaxAttempts = override.MaxAttempts
		}
		if override.DelaySeconds >= 0 {
			policy.DelaySeconds = override.DelaySeconds
		}
	}
	return policy
}

// Workflow contains configuration for daemon timing and intervals.
type Workflow struct {
	QueuePollInterval   int `toml:"queue_poll_interval"`
	HeartbeatInterval   int `toml:"heartbeat_interval"`
	HeartbeatTimeout    int `toml:"heartbeat_timeout"`
	StageTimeoutSeconds int `toml:"stage_timeout_seconds"`
	ItemPauseSeconds    int `toml:"item_pause_seconds"`
}

// Notifications contains configuration for ntfy push notifications.
type Notifications struct {
	NtfyTopic      string `toml:"ntfy_topic"`
	RequestTimeout int    `toml:"request_timeout"`
	Completed      bool   `toml:"completed"`
	Rejected       bool   `toml:"rejected"`
	Errors         bool   `toml:"errors"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for shortform.
//
// Configuration sections by subsystem:
//   - Paths: working area, output, daemon state, and log directories
//   - Research: encyclopedia REST endpoint used for topic research
//   - Assets: stock image provider credentials and limits
//   - Narration: narration synthesis engine invocation
//   - Assembly: renderer invocation and output constraints
//   - Quality: gate thresholds, weights, and term lists
//   - Experiments: variation generation and exposure sampling
//   - Publishing: target platforms and upload quota
//   - Retry: stage retry policies
//   - Workflow: daemon polling intervals and timeouts
//   - Notifications: ntfy push notification settings
//   - Logging: log format and level
type Config struct {
	Paths         Paths         `toml:"paths"`
	Research      Research      `toml:"research"`
	Assets        Assets        `toml:"assets"`
	Narration     Narration     `toml:"narration"`
	Assembly      Assembly      `toml:"assembly"`
	Quality       Quality       `toml:"quality"`
	Experiments   Experiments   `toml:"experiments"`
	Publishing    Publishing    `toml:"publishing"`
	Retry         Retry         `toml:"retry"`
	Workflow      Workflow      `toml:"workflow"`
	Notifications Notifications `toml:"notifications"`
	Logging       Logging       `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/shortform/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config
// has all path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("shortform.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}
	return defaultPath, false, nil
}

// WriteSample writes the embedded sample configuration to the given path.
func WriteSample(path string) error {
	expanded, err := expandPath(path)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(expanded), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	if _, err := os.Stat(expanded); err == nil {
		return fmt.Errorf("config already exists at %s", expanded)
	}
	return os.WriteFile(expanded, []byte(sampleConfig), 0o644)
}

// EnsureDirectories creates required directories for daemon operation.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.WorkDir, c.Paths.OutputDir, c.Paths.StateDir, c.Paths.LogDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// RequestWorkDir returns the per-request working area for intermediate artifacts.
func (c *Config) RequestWorkDir(itemID int64) string {
	return filepath.Join(c.Paths.WorkDir, fmt.Sprintf("request-%d", itemID))
}

func expandPath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return "", nil
	}
	if trimmed == "~" || strings.HasPrefix(trimmed, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if trimmed == "~" {
			return home, nil
		}
		return filepath.Join(home, trimmed[2:]), nil
	}
	abs, err := filepath.Abs(trimmed)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path: %w", err)
	}
	return abs, nil
}
