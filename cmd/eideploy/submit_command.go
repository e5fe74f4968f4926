package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"eideploy/internal/services"
)

func newSubmitCommand(ctx *commandContext) *cobra.Command {
	var flags buildFlags
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "submit",
		Short: "Start a deployment build job and print its id",
		RunE: func(cmd *cobra.Command, args []string) error {
			base, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			cfg, err := flags.apply(cmd, base)
			if err != nil {
				return err
			}
			logger, err := ctx.newLogger(cmd, cfg)
			if err != nil {
				return services.Wrap(services.ErrConfiguration, "config", "logger", "", err)
			}
			controller, err := newController(cfg, logger)
			if err != nil {
				return err
			}

			req := requestFromConfig(cfg)
			handle, err := controller.Submit(services.WithProjectID(cmd.Context(), req.ProjectID), req)
			if err != nil {
				return err
			}
			if jsonOutput {
				return writeJSON(cmd, map[string]string{"job_id": handle.JobID})
			}
			fmt.Fprintln(cmd.OutOrStdout(), handle.JobID)
			return nil
		},
	}

	flags.register(cmd)
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print the job id as JSON")
	return cmd
}
