package deploy

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"eideploy/internal/logging"
	"eideploy/internal/services"
)

// DefaultPollInterval is the fixed delay between status polls.
const DefaultPollInterval = time.Second

// WaitFunc blocks for d or until ctx is done.
type WaitFunc func(ctx context.Context, d time.Duration) error

// Controller runs the submit, watch and download operations against Studio.
type Controller struct {
	api          API
	logger       *slog.Logger
	pollInterval time.Duration
	wait         WaitFunc
	onSubmitted  func(ctx context.Context, h Handle)
}

// Option customizes a Controller.
type Option func(*Controller)

// WithLogger attaches a logger; the controller logs under the "deploy" component.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Controller) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithPollInterval overrides the delay between status polls.
func WithPollInterval(d time.Duration) Option {
	return func(c *Controller) {
		if d > 0 {
			c.pollInterval = d
		}
	}
}

// WithWait overrides how the watcher waits between polls (useful for tests).
func WithWait(wait WaitFunc) Option {
	return func(c *Controller) {
		if wait != nil {
			c.wait = wait
		}
	}
}

// WithSubmitHook registers fn to run inside Run once the job is accepted and
// before watching starts.
func WithSubmitHook(fn func(ctx context.Context, h Handle)) Option {
	return func(c *Controller) { c.onSubmitted = fn }
}

// New constructs a Controller over api.
func New(api API, opts ...Option) (*Controller, error) {
	if api == nil {
		return nil, errors.New("deploy: studio api is required")
	}
	c := &Controller{
		api:          api,
		logger:       logging.NewNop(),
		pollInterval: DefaultPollInterval,
		wait:         timerWait,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = logging.NewComponentLogger(c.logger, "deploy")
	return c, nil
}

// Submit starts a build job and returns its identifier verbatim.
func (c *Controller) Submit(ctx context.Context, req Request) (Handle, error) {
	const stage = "submit"
	if err := req.Validate(); err != nil {
		return Handle{}, err
	}
	ctx = services.WithStage(ctx, stage)
	logger := logging.WithContext(ctx, c.logger).With(logging.String(logging.FieldProjectID, req.ProjectID))
	logger.Info("submitting deployment build",
		logging.String("deploy_type", req.DeployType),
		logging.Int("impulse_id", req.ImpulseID),
		logging.String("engine", req.Engine),
		logging.String("model_type", req.ModelType),
	)

	resp, err := c.api.BuildOnDeviceModel(ctx, req.project(), req.params())
	if err != nil {
		return Handle{}, err
	}
	if err := resp.Err(stage); err != nil {
		logging.ErrorWithContext(logger, "build request rejected", "job_rejected", "check project id, api key and deployment type", logging.Error(err))
		return Handle{}, err
	}
	jobID := strings.TrimSpace(resp.ID.String())
	if jobID == "" {
		return Handle{}, services.Wrap(services.ErrMalformedResponse, stage, "build response", "job id missing", nil)
	}
	logger.Info("build job created", logging.String(logging.FieldJobID, jobID))
	return Handle{JobID: jobID}, nil
}

// Download fetches the deployment most recently built for req.
func (c *Controller) Download(ctx context.Context, req Request) (Artifact, error) {
	const stage = "download"
	if err := req.Validate(); err != nil {
		return Artifact{}, err
	}
	ctx = services.WithStage(ctx, stage)
	logger := logging.WithContext(ctx, c.logger)
	logger.Info("downloading deployment", logging.String("deploy_type", req.DeployType))

	dl, err := c.api.DownloadDeployment(ctx, req.project(), req.params())
	if err != nil {
		return Artifact{}, err
	}
	logger.Info("deployment downloaded",
		logging.String("filename", dl.Filename),
		logging.Int("bytes", len(dl.Content)),
	)
	return Artifact{
		Filename:    dl.Filename,
		ContentType: dl.ContentType,
		Content:     dl.Content,
	}, nil
}

// Run submits a build for req, watches it to completion while streaming job
// output to sink, and downloads the artifact.
func (c *Controller) Run(ctx context.Context, req Request, sink LineSink) (Result, error) {
	handle, err := c.Submit(ctx, req)
	if err != nil {
		return Result{}, err
	}
	ctx = services.WithJobID(ctx, handle.JobID)
	result := Result{JobID: handle.JobID}
	if c.onSubmitted != nil {
		c.onSubmitted(ctx, handle)
	}

	watch, err := c.Watcher(req, sink).Watch(ctx, handle.JobID)
	result.Watch = watch
	if err != nil {
		return result, err
	}

	artifact, err := c.Download(ctx, req)
	if err != nil {
		return result, err
	}
	result.Artifact = artifact
	return result, nil
}

func timerWait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
