package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"eideploy/internal/artifact"
	"eideploy/internal/config"
	"eideploy/internal/services"
)

func newDownloadCommand(ctx *commandContext) *cobra.Command {
	var flags buildFlags
	var outputDir string
	var overwrite bool
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "download",
		Short: "Download the most recently built deployment",
		RunE: func(cmd *cobra.Command, args []string) error {
			base, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			cfg, err := flags.apply(cmd, base)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("output") {
				expanded, err := config.ExpandPath(outputDir)
				if err != nil {
					return services.Wrap(services.ErrValidation, "flags", "output", "", err)
				}
				cfg.Output.Dir = expanded
			}
			if cmd.Flags().Changed("overwrite") {
				cfg.Output.Overwrite = overwrite
			}
			logger, err := ctx.newLogger(cmd, cfg)
			if err != nil {
				return services.Wrap(services.ErrConfiguration, "config", "logger", "", err)
			}
			controller, err := newController(cfg, logger)
			if err != nil {
				return err
			}
			writer := artifact.NewWriter(cfg.Output.Dir,
				artifact.WithOverwrite(cfg.Output.Overwrite),
				artifact.WithLogger(logger),
			)
			if err := writer.CheckWritable(); err != nil {
				return err
			}

			a, err := controller.Download(cmd.Context(), requestFromConfig(cfg))
			if err != nil {
				return err
			}
			saved, err := writer.Save(cmd.Context(), a)
			if err != nil {
				return err
			}
			if _, err := artifact.WriteGitHubOutput(githubOutputName, saved.Filename); err != nil {
				return services.Wrap(services.ErrUnknown, "output", "github output", "", err)
			}
			if jsonOutput {
				return writeJSON(cmd, saved)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Saved %s (%s) to %s\n", saved.Filename, formatBytes(saved.Size), saved.Path)
			return nil
		},
	}

	flags.register(cmd)
	cmd.Flags().StringVarP(&outputDir, "output", "o", "", "Directory the artifact is written to")
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "Replace an existing file with the same name")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print the saved artifact as JSON")
	return cmd
}
