package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// envLookup returns the first non-blank value among the named variables.
func envLookup(names ...string) (string, bool) {
	for _, name := range names {
		if value, ok := os.LookupEnv(name); ok {
			if trimmed := strings.TrimSpace(value); trimmed != "" {
				return trimmed, true
			}
		}
	}
	return "", false
}

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeStudio()
	if err := c.normalizeBuild(); err != nil {
		return err
	}
	c.normalizeWatch()
	c.normalizeLogging()
	c.normalizeNotifications()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.StateDir) == "" {
		c.Paths.StateDir = defaultStateDir()
	}
	if c.Paths.StateDir, err = expandPath(c.Paths.StateDir); err != nil {
		return fmt.Errorf("paths.state_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(strings.TrimSpace(c.Paths.LogDir)); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if strings.TrimSpace(c.Output.Dir) == "" {
		c.Output.Dir = defaultOutputDir
	}
	if value, ok := envLookup("EI_OUTPUT_DIR"); ok {
		c.Output.Dir = value
	}
	// Under GitHub Actions an existing artifact is replaced unless EI_OVERWRITE says otherwise.
	if value, ok := envLookup("EI_OVERWRITE"); ok {
		overwrite, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("overwrite from environment: %q is not a boolean", value)
		}
		c.Output.Overwrite = overwrite
	} else if os.Getenv("GITHUB_ACTIONS") == "true" {
		c.Output.Overwrite = true
	}
	if c.Output.Dir, err = expandPath(c.Output.Dir); err != nil {
		return fmt.Errorf("output.dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeStudio() {
	c.Studio.BaseURL = strings.TrimRight(strings.TrimSpace(c.Studio.BaseURL), "/")
	if value, ok := envLookup("EI_BASE_URL"); ok {
		c.Studio.BaseURL = strings.TrimRight(value, "/")
	}
	if c.Studio.BaseURL == "" {
		c.Studio.BaseURL = defaultBaseURL
	}
	c.Studio.APIKey = strings.TrimSpace(c.Studio.APIKey)
	if value, ok := envLookup("EI_API_KEY", "INPUT_API_KEY"); ok {
		c.Studio.APIKey = value
	}
	c.Studio.ProjectID = strings.TrimSpace(c.Studio.ProjectID)
	if value, ok := envLookup("EI_PROJECT_ID", "INPUT_PROJECT_ID"); ok {
		c.Studio.ProjectID = value
	}
	if c.Studio.RequestTimeout <= 0 {
		c.Studio.RequestTimeout = defaultRequestTimeout
	}
	if c.Studio.DownloadTimeout <= 0 {
		c.Studio.DownloadTimeout = defaultDownloadTimeout
	}
}

func (c *Config) normalizeBuild() error {
	if value, ok := envLookup("EI_DEPLOYMENT_TYPE", "INPUT_DEPLOYMENT_TYPE"); ok {
		c.Build.DeploymentType = value
	}
	c.Build.DeploymentType = strings.TrimSpace(c.Build.DeploymentType)
	if c.Build.DeploymentType == "" {
		c.Build.DeploymentType = defaultDeploymentType
	}

	if value, ok := envLookup("EI_IMPULSE_ID", "INPUT_IMPULSE_ID"); ok {
		id, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("impulse id from environment: %q is not an integer", value)
		}
		c.Build.ImpulseID = id
	}

	if value, ok := envLookup("EI_ENGINE", "INPUT_ENGINE"); ok {
		c.Build.Engine = value
	}
	c.Build.Engine = strings.TrimSpace(c.Build.Engine)

	if value, ok := envLookup("EI_MODEL_TYPE", "INPUT_MODEL_TYPE"); ok {
		c.Build.ModelType = value
	}
	c.Build.ModelType = strings.ToLower(strings.TrimSpace(c.Build.ModelType))
	if c.Build.ModelType == "" {
		c.Build.ModelType = defaultModelType
	}
	return nil
}

func (c *Config) normalizeWatch() {
	if c.Watch.PollInterval <= 0 {
		c.Watch.PollInterval = defaultPollInterval
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}

func (c *Config) normalizeNotifications() {
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
	if value, ok := envLookup("EI_NTFY_TOPIC"); ok {
		c.Notifications.NtfyTopic = value
	}
	if c.Notifications.RequestTimeout <= 0 {
		c.Notifications.RequestTimeout = defaultNotifyRequestTimeout
	}
}
