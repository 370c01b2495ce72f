package config

const (
	defaultWorkDir   = "~/.local/share/shortform/work"
	defaultOutputDir = "~/.local/share/shortform/output"
	defaultStateDir  = "~/.local/share/shortform/state"
	defaultLogDir    = "~/.local/share/shortform/logs"

	defaultResearchBaseURL = "https://en.wikipedia.org/api/rest_v1"
	defaultResearchAgent   = "shortform/dev"
	defaultResearchTimeout = 15
	defaultMaxFacts        = 10

	defaultAssetsBaseURL = "https://api.pexels.com/v1"
	defaultAssetsTimeout = 20
	defaultImageCount    = 5

	defaultNarrationCommand = "espeak-ng"
	defaultNarrationTimeout = 60

	defaultAssemblyCommand     = "ffmpeg"
	defaultAssemblyWidth       = 1080
	defaultAssemblyHeight      = 1920
	defaultAssemblyFPS         = 30
	defaultAssemblyCodec       = "h264"
	defaultAssemblyMaxDuration = 60
	defaultAssemblyTimeout     = 300

	defaultGlobalThreshold  = 0.85
	defaultSensitivityFloor = 0.90

	defaultExposureFraction = 0.2
	defaultMaxPerDimension  = 2

	defaultDailyQuota = 10

	defaultRetryMaxAttempts  = 3
	defaultRetryDelaySeconds = 5

	defaultQueuePollInterval   = 5
	defaultHeartbeatInterval   = 15
	defaultHeartbeatTimeout    = 120
	defaultStageTimeoutSeconds = 600
	defaultItemPauseSeconds    = 120

	defaultNotifyRequestTimeout = 10

	defaultLogFormat = "console"
	defaultLogLevel  = "info"
)

// DefaultBlockedTerms are phrases that always block publication.
func DefaultBlockedTerms() []string {
	return []string{
		"good slave", "happy slave", "loyal slave", "faithful slave",
		"slave master", "master and slave", "owned slaves",
	}
}

// DefaultOutdatedTerms are phrases penalized unless quoted with context.
func DefaultOutdatedTerms() []string {
	return []string{"negro", "colored", "plantation owner", "slave owner"}
}

// DefaultContextTerms are phrases that need a contextual framing nearby.
func DefaultContextTerms() []string {
	return []string{"primitive", "savage", "uncivilized", "backward"}
}

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			WorkDir:   defaultWorkDir,
			OutputDir: defaultOutputDir,
			StateDir:  defaultStateDir,
			LogDir:    defaultLogDir,
		},
		Research: Research{
			BaseURL:        defaultResearchBaseURL,
			UserAgent:      defaultResearchAgent,
			TimeoutSeconds: defaultResearchTimeout,
			MaxFacts:       defaultMaxFacts,
		},
		Assets: Assets{
			BaseURL:        defaultAssetsBaseURL,
			TimeoutSeconds: defaultAssetsTimeout,
			ImageCount:     defaultImageCount,
		},
		Narration: Narration{
			Command:        defaultNarrationCommand,
			TimeoutSeconds: defaultNarrationTimeout,
		},
		Assembly: Assembly{
			Command:            defaultAssemblyCommand,
			Width:              defaultAssemblyWidth,
			Height:             defaultAssemblyHeight,
			FPS:                defaultAssemblyFPS,
			Codec:              defaultAssemblyCodec,
			MaxDurationSeconds: defaultAssemblyMaxDuration,
			TimeoutSeconds:     defaultAssemblyTimeout,
		},
		Quality: Quality{
			GlobalThreshold:  defaultGlobalThreshold,
			SensitivityFloor: defaultSensitivityFloor,
			Weights: QualityWeights{
				Accuracy:     0.25,
				Sensitivity:  0.25,
				Educational:  0.20,
				Verification: 0.20,
				Language:     0.10,
			},
			BlockedTerms:  DefaultBlockedTerms(),
			OutdatedTerms: DefaultOutdatedTerms(),
			ContextTerms:  DefaultContextTerms(),
		},
		Experiments: Experiments{
			Enabled:          true,
			ExposureFraction: defaultExposureFraction,
			MaxPerDimension:  defaultMaxPerDimension,
		},
		Publishing: Publishing{
			Platforms:  []string{"youtube", "tiktok", "facebook"},
			DailyQuota: defaultDailyQuota,
		},
		Retry: Retry{
			MaxAttempts:  defaultRetryMaxAttempts,
			DelaySeconds: defaultRetryDelaySeconds,
		},
		Workflow: Workflow{
			QueuePollInterval:   defaultQueuePollInterval,
			HeartbeatInterval:   defaultHeartbeatInterval,
			HeartbeatTimeout:    defaultHeartbeatTimeout,
			StageTimeoutSeconds: defaultStageTimeoutSeconds,
			ItemPauseSeconds:    defaultItemPauseSeconds,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyRequestTimeout,
			Completed:      true,
			Rejected:       true,
			Errors:         true,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
