package config

const (
	defaultConfigPath           = "~/.config/eideploy/config.toml"
	projectConfigName           = "eideploy.toml"
	fallbackStateDir            = "~/.local/state/eideploy"
	defaultBaseURL              = "https://studio.edgeimpulse.com"
	defaultRequestTimeout       = 30
	defaultDownloadTimeout      = 600
	defaultDeploymentType       = "tflite-eon"
	defaultModelType            = "float32"
	defaultPollInterval         = 1
	defaultOutputDir            = "."
	defaultLogFormat            = "console"
	defaultLogLevel             = "info"
	defaultNotifyRequestTimeout = 10
	defaultHistoryEnabled       = true
	defaultNotifyOnSuccess      = true
	defaultNotifyOnFailure      = true
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Studio: Studio{
			BaseURL:         defaultBaseURL,
			RequestTimeout:  defaultRequestTimeout,
			DownloadTimeout: defaultDownloadTimeout,
		},
		Build: Build{
			DeploymentType: defaultDeploymentType,
			ModelType:      defaultModelType,
		},
		Watch: Watch{
			PollInterval: defaultPollInterval,
		},
		Output: Output{
			Dir: defaultOutputDir,
		},
		Paths: Paths{
			StateDir: defaultStateDir(),
		},
		History: History{
			Enabled: defaultHistoryEnabled,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyRequestTimeout,
			Success:        defaultNotifyOnSuccess,
			Failure:        defaultNotifyOnFailure,
		},
	}
}
