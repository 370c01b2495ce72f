package config

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

const weightTolerance = 1e-9

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateQuality(); err != nil {
		return err
	}
	if err := c.validateExperiments(); err != nil {
		return err
	}
	if err := c.validatePublishing(); err != nil {
		return err
	}
	if err := c.validateRetry(); err != nil {
		return err
	}
	if err := c.validateWorkflow(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateQuality() error {
	if c.Quality.GlobalThreshold < 0 || c.Quality.GlobalThreshold > 1 {
		return errors.New("quality.global_threshold must be between 0 and 1")
	}
	if c.Quality.SensitivityFloor < 0 || c.Quality.SensitivityFloor > 1 {
		return errors.New("quality.sensitivity_floor must be between 0 and 1")
	}
	weights := c.Quality.Weights
	for name, value := range map[string]float64{
		"accuracy":     weights.Accuracy,
		"sensitivity":  weights.Sensitivity,
		"educational":  weights.Educational,
		"verification": weights.Verification,
		"language":     weights.Language,
	} {
		if value < 0 || value > 1 {
			return fmt.Errorf("quality.weights.%s must be between 0 and 1", name)
		}
	}
	if math.Abs(weights.Sum()-1.0) > weightTolerance {
		return fmt.Errorf("quality.weights must sum to 1.0, got %.6f", weights.Sum())
	}
	return nil
}

func (c *Config) validateExperiments() error {
	if c.Experiments.ExposureFraction <= 0 || c.Experiments.ExposureFraction > 1 {
		return errors.New("experiments.exposure_fraction must be in (0, 1]")
	}
	if c.Experiments.MaxPerDimension < 1 {
		return errors.New("experiments.max_per_dimension must be at least 1")
	}
	return nil
}

func (c *Config) validatePublishing() error {
	if len(c.Publishing.Platforms) == 0 {
		return errors.New("publishing.platforms must not be empty")
	}
	for _, platform := range c.Publishing.Platforms {
		if strings.TrimSpace(platform) == "" {
			return errors.New("publishing.platforms must not contain empty entries")
		}
	}
	if c.Publishing.DailyQuota < 1 {
		return errors.New("publishing.daily_quota must be at least 1")
	}
	return nil
}

func (c *Config) validateRetry() error {
	if c.Retry.MaxAttempts < 1 {
		return errors.New("retry.max_attempts must be at least 1")
	}
	if c.Retry.DelaySeconds < 0 {
		return errors.New("retry.delay_seconds must not be negative")
	}
	for name, policy := range c.Retry.Stages {
		if policy.MaxAttempts < 0 {
			return fmt.Errorf("retry.stages.%s.max_attempts must not be negative", name)
		}
		if policy.DelaySeconds < 0 {
			return fmt.Errorf("retry.stages.%s.delay_seconds must not be negative", name)
		}
	}
	return nil
}

func (c *Config) validateWorkflow() error {
	if c.Workflow.HeartbeatTimeout <= c.Workflow.HeartbeatInterval {
		return errors.New("workflow.heartbeat_timeout must exceed workflow.heartbeat_interval")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
	return nil
}
