package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"eideploy/internal/logging"
	"eideploy/internal/preflight"
	"eideploy/internal/services"
)

func newDoctorCommand(ctx *commandContext) *cobra.Command {
	var flags buildFlags

	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check Studio credentials and local directories",
		RunE: func(cmd *cobra.Command, args []string) error {
			base, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			cfg, err := flags.apply(cmd, base)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)
			lines := renderSectionHeader("Configuration", colorize)
			lines = append(lines,
				renderStatusLine("Config file", statusInfo, ctx.configPath, colorize),
				renderStatusLine("Studio URL", statusInfo, cfg.Studio.BaseURL, colorize),
				renderStatusLine("Project", statusInfo, valueOrDash(cfg.Studio.ProjectID), colorize),
				renderStatusLine("API key", statusInfo, valueOrDash(logging.Redact(cfg.Studio.APIKey)), colorize),
				renderStatusLine("Deployment type", statusInfo, cfg.Build.DeploymentType, colorize),
				renderStatusLine("Model type", statusInfo, cfg.Build.ModelType, colorize),
				renderStatusLine("History", statusInfo, yesNo(cfg.History.Enabled), colorize),
				renderStatusLine("Notifications", statusInfo, yesNo(strings.TrimSpace(cfg.Notifications.NtfyTopic) != ""), colorize),
				"",
			)
			lines = append(lines, renderSectionHeader("Checks", colorize)...)

			results := preflight.RunAll(cmd.Context(), cfg)
			for _, r := range results {
				kind := statusOK
				if !r.Passed {
					kind = statusError
				}
				lines = append(lines, renderStatusLine(r.Name, kind, r.Detail, colorize))
			}
			fmt.Fprintln(out, strings.Join(lines, "\n"))

			if failed := preflight.Failed(results); len(failed) > 0 {
				return services.Wrap(services.ErrConfiguration, "doctor", "", fmt.Sprintf("%d check(s) failed", len(failed)), errors.New(failed[0].Name+": "+failed[0].Detail))
			}
			return nil
		},
	}
	flags.register(cmd)
	return cmd
}

func valueOrDash(value string) string {
	if strings.TrimSpace(value) == "" {
		return "-"
	}
	return value
}
