package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeResearch()
	c.normalizeAssets()
	c.normalizeAssembly()
	c.normalizeQuality()
	c.normalizeRetry()
	c.normalizeWorkflow()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.WorkDir) == "" {
		c.Paths.WorkDir = defaultWorkDir
	}
	if c.Paths.WorkDir, err = expandPath(c.Paths.WorkDir); err != nil {
		return fmt.Errorf("paths.work_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.OutputDir) == "" {
		c.Paths.OutputDir = defaultOutputDir
	}
	if c.Paths.OutputDir, err = expandPath(c.Paths.OutputDir); err != nil {
		return fmt.Errorf("paths.output_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.StateDir) == "" {
		c.Paths.StateDir = defaultStateDir
	}
	if c.Paths.StateDir, err = expandPath(c.Paths.StateDir); err != nil {
		return fmt.Errorf("paths.state_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeResearch() {
	c.Research.BaseURL = strings.TrimRight(strings.TrimSpace(c.Research.BaseURL), "/")
	if c.Research.BaseURL == "" {
		c.Research.BaseURL = defaultResearchBaseURL
	}
	if strings.TrimSpace(c.Research.UserAgent) == "" {
		c.Research.UserAgent = defaultResearchAgent
	}
	if c.Research.TimeoutSeconds <= 0 {
		c.Research.TimeoutSeconds = defaultResearchTimeout
	}
	if c.Research.MaxFacts <= 0 {
		c.Research.MaxFacts = defaultMaxFacts
	}
}

func (c *Config) normalizeAssets() {
	if c.Assets.APIKey == "" {
		if value, ok := os.LookupEnv("PEXELS_API_KEY"); ok {
			c.Assets.APIKey = strings.TrimSpace(value)
		}
	}
	c.Assets.BaseURL = strings.TrimRight(strings.TrimSpace(c.Assets.BaseURL), "/")
	if c.Assets.BaseURL == "" {
		c.Assets.BaseURL = defaultAssetsBaseURL
	}
	if c.Assets.TimeoutSeconds <= 0 {
		c.Assets.TimeoutSeconds = defaultAssetsTimeout
	}
	if c.Assets.ImageCount <= 0 {
		c.Assets.ImageCount = defaultImageCount
	}
}

func (c *Config) normalizeAssembly() {
	if strings.TrimSpace(c.Assembly.Command) == "" {
		c.Assembly.Command = defaultAssemblyCommand
	}
	if c.Assembly.Width <= 0 {
		c.Assembly.Width = defaultAssemblyWidth
	}
	if c.Assembly.Height <= 0 {
		c.Assembly.Height = defaultAssemblyHeight
	}
	if c.Assembly.FPS <= 0 {
		c.Assembly.FPS = defaultAssemblyFPS
	}
	if strings.TrimSpace(c.Assembly.Codec) == "" {
		c.Assembly.Codec = defaultAssemblyCodec
	}
	if c.Assembly.MaxDurationSeconds <= 0 {
		c.Assembly.MaxDurationSeconds = defaultAssemblyMaxDuration
	}
	if c.Assembly.TimeoutSeconds <= 0 {
		c.Assembly.TimeoutSeconds = defaultAssemblyTimeout
	}
}

func (c *Config) normalizeQuality() {
	if len(c.Quality.BlockedTerms) == 0 {
		c.Quality.BlockedTerms = DefaultBlockedTerms()
	}
	if len(c.Quality.OutdatedTerms) == 0 {
		c.Quality.OutdatedTerms = DefaultOutdatedTerms()
	}
	if len(c.Quality.ContextTerms) == 0 {
		c.Quality.ContextTerms = DefaultContextTerms()
	}
	if c.Quality.GlobalThreshold <= 0 {
		c.Quality.GlobalThreshold = defaultGlobalThreshold
	}
	if c.Quality.SensitivityFloor <= 0 {
		c.Quality.SensitivityFloor = defaultSensitivityFloor
	}
}

func (c *Config) normalizeRetry() {
	if c.Retry.MaxAttempts <= 0 {
		c.Retry.MaxAttempts = defaultRetryMaxAttempts
	}
	if c.Retry.DelaySeconds < 0 {
		c.Retry.DelaySeconds = defaultRetryDelaySeconds
	}
}

func (c *Config) normalizeWorkflow() {
	if c.Workflow.QueuePollInterval <= 0 {
		c.Workflow.QueuePollInterval = defaultQueuePollInterval
	}
	if c.Workflow.HeartbeatInterval <= 0 {
		c.Workflow.HeartbeatInterval = defaultHeartbeatInterval
	}
	if c.Workflow.HeartbeatTimeout <= 0 {
		c.Workflow.HeartbeatTimeout = defaultHeartbeatTimeout
	}
	if c.Workflow.StageTimeoutSeconds <= 0 {
		c.Workflow.StageTimeoutSeconds = defaultStageTimeoutSeconds
	}
	if c.Workflow.ItemPauseSeconds < 0 {
		c.Workflow.ItemPauseSeconds = defaultItemPauseSeconds
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
