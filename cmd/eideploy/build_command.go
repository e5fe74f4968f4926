package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"eideploy/internal/artifact"
	"eideploy/internal/config"
	"eideploy/internal/deploy"
	"eideploy/internal/history"
	"eideploy/internal/logging"
	"eideploy/internal/notifications"
	"eideploy/internal/services"
)

const githubOutputName = "deployment_file_name"

type buildSummary struct {
	RunID    string `json:"run_id"`
	JobID    string `json:"job_id"`
	Filename string `json:"filename"`
	Path     string `json:"path"`
	Size     int64  `json:"size_bytes"`
	SHA256   string `json:"sha256"`
	LogLines int    `json:"log_lines"`
	Polls    int    `json:"polls"`
}

func newBuildCommand(ctx *commandContext) *cobra.Command {
	var flags buildFlags
	var outputDir string
	var overwrite bool
	var quiet bool
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "build",
		Short: "Build a deployment in Studio, wait for it and save the artifact",
		Long: `Submit a deployment build job to Edge Impulse Studio, stream the job log
while it runs, then download the finished artifact into the output directory.

An existing file with the same name is kept and the build fails with a
validation error unless --overwrite (or output.overwrite) is set. Inside
GitHub Actions (GITHUB_ACTIONS=true) overwrite defaults to on; set
EI_OVERWRITE=false to keep the refusal.

When GITHUB_OUTPUT is set the saved file name is written to it as
deployment_file_name.`,
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

			b := &buildRun{
				cfg:      cfg,
				logger:   logger,
				notifier: notifications.NewService(cfg),
				sink:     lineSink(cmd.OutOrStdout(), quiet || jsonOutput),
			}
			summary, err := b.execute(cmd.Context())
			if err != nil {
				return err
			}

			if jsonOutput {
				return writeJSON(cmd, summary)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Saved %s (%s) to %s\n", summary.Filename, formatBytes(summary.Size), summary.Path)
			fmt.Fprintf(out, "sha256 %s\n", summary.SHA256)
			return nil
		},
	}

	flags.register(cmd)
	cmd.Flags().StringVarP(&outputDir, "output", "o", "", "Directory the artifact is written to")
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "Replace an existing file with the same name")
	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "Do not print the remote job log")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print the result as JSON (implies --quiet)")
	return cmd
}

type buildRun struct {
	cfg      *config.Config
	logger   *slog.Logger
	notifier notifications.Service
	sink     deploy.LineSink
	store    *history.Store
	runID    string
}

func (b *buildRun) execute(ctx context.Context) (*buildSummary, error) {
	req := requestFromConfig(b.cfg)
	if err := req.Validate(); err != nil {
		return nil, err
	}

	b.runID = uuid.NewString()
	ctx = services.WithRunID(ctx, b.runID)
	ctx = services.WithProjectID(ctx, req.ProjectID)
	logger := logging.WithContext(ctx, logging.NewComponentLogger(b.logger, "cli"))

	writer := artifact.NewWriter(b.cfg.Output.Dir,
		artifact.WithOverwrite(b.cfg.Output.Overwrite),
		artifact.WithLogger(b.logger),
	)
	if err := writer.CheckWritable(); err != nil {
		return nil, err
	}

	b.openHistory(ctx, logger, req)
	defer func() {
		if b.store != nil {
			_ = b.store.Close()
		}
	}()

	controller, err := newControllerWithHook(b.cfg, b.logger, func(ctx context.Context, h deploy.Handle) {
		b.recordSubmitted(ctx, logger, h.JobID)
	})
	if err != nil {
		return nil, err
	}

	result, err := controller.Run(ctx, req, b.sink)
	if err != nil {
		b.fail(ctx, logger, result, err)
		return nil, err
	}

	saved, err := writer.Save(ctx, result.Artifact)
	if err != nil {
		b.fail(ctx, logger, result, err)
		return nil, err
	}

	summary := &buildSummary{
		RunID:    b.runID,
		JobID:    result.JobID,
		Filename: saved.Filename,
		Path:     saved.Path,
		Size:     saved.Size,
		SHA256:   saved.SHA256,
		LogLines: result.Watch.Lines,
		Polls:    result.Watch.Cycles,
	}
	b.finishHistory(ctx, logger, history.Outcome{
		Status:    history.StatusSucceeded,
		Filename:  saved.Filename,
		Path:      saved.Path,
		SizeBytes: saved.Size,
		SHA256:    saved.SHA256,
		LogLines:  result.Watch.Lines,
	})
	if err := b.notifier.NotifyBuildSucceeded(ctx, result.JobID, saved.Filename, saved.Size); err != nil {
		logger.Warn("build notification failed", logging.Error(err))
	}
	if ok, err := artifact.WriteGitHubOutput(githubOutputName, saved.Filename); err != nil {
		return nil, services.Wrap(services.ErrUnknown, "output", "github output", "", err)
	} else if ok {
		logger.Debug("github output written", logging.String(githubOutputName, saved.Filename))
	}
	logger.Info("deployment build complete",
		logging.String(logging.FieldJobID, result.JobID),
		logging.String("path", saved.Path),
	)
	return summary, nil
}

func newControllerWithHook(cfg *config.Config, logger *slog.Logger, hook func(context.Context, deploy.Handle)) (*deploy.Controller, error) {
	client, err := newStudioClient(cfg, logger)
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "config", "studio client", "", err)
	}
	return deploy.New(client,
		deploy.WithLogger(logger),
		deploy.WithPollInterval(cfg.PollInterval()),
		deploy.WithSubmitHook(hook),
	)
}

// openHistory starts a history row. History problems are logged and the
// build carries on without it.
func (b *buildRun) openHistory(ctx context.Context, logger *slog.Logger, req deploy.Request) {
	if !b.cfg.History.Enabled {
		return
	}
	store, err := history.Open(b.cfg.HistoryPath())
	if err != nil {
		logger.Warn("run history unavailable", logging.Error(err))
		return
	}
	if _, err := store.Begin(ctx, history.Run{
		ID:         b.runID,
		ProjectID:  req.ProjectID,
		DeployType: req.DeployType,
		Engine:     req.Engine,
		ModelType:  req.ModelType,
		ImpulseID:  req.ImpulseID,
	}); err != nil {
		logger.Warn("failed to record run start", logging.Error(err))
		_ = store.Close()
		return
	}
	b.store = store
}

func (b *buildRun) recordSubmitted(ctx context.Context, logger *slog.Logger, jobID string) {
	if b.store == nil {
		return
	}
	if err := b.store.MarkSubmitted(ctx, b.runID, jobID); err != nil {
		logger.Warn("failed to record job id", logging.Error(err))
	}
}

func (b *buildRun) finishHistory(ctx context.Context, logger *slog.Logger, outcome history.Outcome) {
	if b.store == nil {
		return
	}
	// The run context may already be cancelled; the row should still close.
	if err := b.store.Finish(context.WithoutCancel(ctx), b.runID, outcome); err != nil {
		logger.Warn("failed to record run outcome", logging.Error(err))
	}
}

func (b *buildRun) fail(ctx context.Context, logger *slog.Logger, result deploy.Result, err error) {
	status := history.StatusError
	if errors.Is(err, services.ErrJobFailed) {
		status = history.StatusFailed
	}
	b.finishHistory(ctx, logger, history.Outcome{
		Status:       status,
		ErrorMessage: err.Error(),
		LogLines:     result.Watch.Lines,
	})
	if errors.Is(err, context.Canceled) {
		return
	}
	if notifyErr := b.notifier.NotifyBuildFailed(context.WithoutCancel(ctx), result.JobID, err); notifyErr != nil {
		logger.Warn("failure notification failed", logging.Error(notifyErr))
	}
}
