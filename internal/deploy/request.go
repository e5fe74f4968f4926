package deploy

import (
	"context"
	"strings"

	"eideploy/internal/services"
	"eideploy/internal/studio"
)

// API is the subset of the Studio client the controller depends on.
type API interface {
	BuildOnDeviceModel(ctx context.Context, p studio.Project, params studio.BuildParams) (*studio.BuildResponse, error)
	JobStatus(ctx context.Context, p studio.Project, jobID string) (*studio.StatusResponse, error)
	JobStdout(ctx context.Context, p studio.Project, jobID string) (*studio.StdoutResponse, error)
	DownloadDeployment(ctx context.Context, p studio.Project, params studio.BuildParams) (*studio.Download, error)
}

// Request describes one deployment build. ProjectID, DeployType and APIKey
// are required; ImpulseID zero means the project's default impulse.
type Request struct {
	ProjectID  string
	DeployType string
	APIKey     string
	ImpulseID  int
	Engine     string
	ModelType  string
}

// Validate reports the first missing required field.
func (r Request) Validate() error {
	switch {
	case strings.TrimSpace(r.ProjectID) == "":
		return services.Wrap(services.ErrValidation, "request", "validate", "project_id is required", nil)
	case strings.TrimSpace(r.DeployType) == "":
		return services.Wrap(services.ErrValidation, "request", "validate", "deploy_type is required", nil)
	case strings.TrimSpace(r.APIKey) == "":
		return services.Wrap(services.ErrValidation, "request", "validate", "api_key is required", nil)
	case r.ImpulseID < 0:
		return services.Wrap(services.ErrValidation, "request", "validate", "impulse_id must not be negative", nil)
	}
	return nil
}

func (r Request) project() studio.Project {
	return studio.Project{ID: strings.TrimSpace(r.ProjectID), APIKey: r.APIKey}
}

func (r Request) params() studio.BuildParams {
	return studio.BuildParams{
		DeploymentType: strings.TrimSpace(r.DeployType),
		ImpulseID:      r.ImpulseID,
		Engine:         r.Engine,
		ModelType:      r.ModelType,
	}
}

// Handle identifies a submitted job.
type Handle struct {
	JobID string
}

// Snapshot is a job's status as of one poll.
type Snapshot struct {
	Finished           bool
	FinishedSuccessful bool
}

// Cursor counts job log lines already delivered.
type Cursor int

// Artifact is a downloaded deployment.
type Artifact struct {
	Filename    string
	ContentType string
	Content     []byte
}

// Result is the outcome of a complete Run.
type Result struct {
	JobID    string
	Watch    WatchResult
	Artifact Artifact
}
