package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// Validate ensures the configuration is usable. Credentials are not required
// here; commands that talk to Studio check them before any network call.
func (c *Config) Validate() error {
	if err := c.validateStudio(); err != nil {
		return err
	}
	if err := c.validateBuild(); err != nil {
		return err
	}
	if err := c.validateWatch(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return c.validateNotifications()
}

func (c *Config) validateStudio() error {
	parsed, err := url.Parse(c.Studio.BaseURL)
	if err != nil {
		return fmt.Errorf("studio.base_url: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("studio.base_url must use http or https, got %q", c.Studio.BaseURL)
	}
	if parsed.Host == "" {
		return fmt.Errorf("studio.base_url is missing a host: %q", c.Studio.BaseURL)
	}
	if c.Studio.RequestTimeout <= 0 {
		return errors.New("studio.request_timeout must be positive")
	}
	if c.Studio.DownloadTimeout <= 0 {
		return errors.New("studio.download_timeout must be positive")
	}
	return nil
}

func (c *Config) validateBuild() error {
	if c.Build.ImpulseID < 0 {
		return fmt.Errorf("build.impulse_id must be non-negative, got %d", c.Build.ImpulseID)
	}
	if strings.ContainsAny(c.Build.DeploymentType, " \t/") {
		return fmt.Errorf("build.deployment_type contains invalid characters: %q", c.Build.DeploymentType)
	}
	switch c.Build.ModelType {
	case "float32", "int8", "akida":
	default:
		return fmt.Errorf("build.model_type must be float32, int8 or akida, got %q", c.Build.ModelType)
	}
	return nil
}

func (c *Config) validateWatch() error {
	if c.Watch.PollInterval <= 0 {
		return errors.New("watch.poll_interval must be positive")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
		return nil
	default:
		return fmt.Errorf("logging.level must be debug, info, warn or error, got %q", c.Logging.Level)
	}
}

func (c *Config) validateNotifications() error {
	topic := c.Notifications.NtfyTopic
	if topic == "" {
		return nil
	}
	parsed, err := url.Parse(topic)
	if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
		return fmt.Errorf("notifications.ntfy_topic must be a full http(s) URL, got %q", topic)
	}
	return nil
}
