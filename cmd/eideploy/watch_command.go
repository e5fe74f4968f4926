package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"eideploy/internal/services"
)

func newWatchCommand(ctx *commandContext) *cobra.Command {
	var flags buildFlags
	var quiet bool

	cmd := &cobra.Command{
		Use:   "watch <job-id>",
		Short: "Follow a build job until it finishes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			jobID := strings.TrimSpace(args[0])
			if jobID == "" {
				return services.Wrap(services.ErrValidation, "watch", "args", "job id is required", nil)
			}
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
			if err := req.Validate(); err != nil {
				return err
			}
			result, err := controller.Watcher(req, lineSink(cmd.OutOrStdout(), quiet)).Watch(cmd.Context(), jobID)
			if err != nil && !errors.Is(err, services.ErrJobFailed) {
				return err
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "Job %s %s after %d polls\n", jobID, result.State, result.Cycles)
			return err
		},
	}

	flags.register(cmd)
	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "Do not print the remote job log")
	return cmd
}
