package main

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"eideploy/internal/config"
	"eideploy/internal/deploy"
	"eideploy/internal/logging"
	"eideploy/internal/services"
	"eideploy/internal/studio"
)

type commandContext struct {
	configFlag   *string
	logLevelFlag *string

	configOnce sync.Once
	config     *config.Config
	configPath string
	configErr  error
}

func newCommandContext(configFlag, logLevelFlag *string) *commandContext {
	return &commandContext{
		configFlag:   configFlag,
		logLevelFlag: logLevelFlag,
	}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, resolved, _, err := config.Load(path)
		if err != nil {
			c.configErr = services.Wrap(services.ErrConfiguration, "config", "load", "", err)
			return
		}
		if c.logLevelFlag != nil && strings.TrimSpace(*c.logLevelFlag) != "" {
			cfg.Logging.Level = strings.ToLower(strings.TrimSpace(*c.logLevelFlag))
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = services.Wrap(services.ErrConfiguration, "config", "ensure directories", "", err)
			return
		}
		c.config = cfg
		c.configPath = resolved
	})
	return c.config, c.configErr
}

// newLogger builds the process logger. Console output goes to the command's
// stderr so job log lines on stdout stay clean.
func (c *commandContext) newLogger(cmd *cobra.Command, cfg *config.Config) (*slog.Logger, error) {
	opts, err := logging.OptionsFromConfig(cfg)
	if err != nil {
		return nil, err
	}
	opts.Writer = cmd.ErrOrStderr()
	return logging.New(opts)
}

func newStudioClient(cfg *config.Config, logger *slog.Logger) (*studio.Client, error) {
	return studio.New(cfg.Studio.BaseURL,
		studio.WithTimeouts(cfg.RequestTimeout(), cfg.DownloadTimeout()),
		studio.WithLogger(logger),
	)
}

func newController(cfg *config.Config, logger *slog.Logger) (*deploy.Controller, error) {
	return newControllerWithHook(cfg, logger, nil)
}

func requestFromConfig(cfg *config.Config) deploy.Request {
	return deploy.Request{
		ProjectID:  cfg.Studio.ProjectID,
		DeployType: cfg.Build.DeploymentType,
		APIKey:     cfg.Studio.APIKey,
		ImpulseID:  cfg.Build.ImpulseID,
		Engine:     cfg.Build.Engine,
		ModelType:  cfg.Build.ModelType,
	}
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

// lineSink streams job output to w unless quiet is set.
func lineSink(w io.Writer, quiet bool) deploy.LineSink {
	if quiet {
		return deploy.Discard
	}
	return deploy.NewWriterSink(w)
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}

func formatBytes(size int64) string {
	const unit = 1024
	if size < unit {
		return fmt.Sprintf("%d B", size)
	}
	div, exp := int64(unit), 0
	for n := size / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(size)/float64(div), "KMGTPE"[exp])
}
