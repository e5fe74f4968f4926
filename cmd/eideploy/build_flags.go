package main

import (
	"strings"

	"github.com/spf13/cobra"

	"eideploy/internal/config"
	"eideploy/internal/services"
)

// buildFlags are the per-invocation overrides shared by build, submit,
// watch and download.
type buildFlags struct {
	projectID  string
	apiKey     string
	deployType string
	impulseID  int
	engine     string
	modelType  string
}

func (f *buildFlags) register(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.StringVar(&f.projectID, "project", "", "Studio project id")
	flags.StringVar(&f.apiKey, "api-key", "", "Studio API key (prefer EI_API_KEY)")
	flags.StringVarP(&f.deployType, "type", "t", "", "Deployment type (e.g. zip, arduino, tflite-eon)")
	flags.IntVar(&f.impulseID, "impulse", 0, "Impulse id (0 uses the project's default impulse)")
	flags.StringVar(&f.engine, "engine", "", "Inference engine (defaults to tflite-eon)")
	flags.StringVar(&f.modelType, "model-type", "", "Model type (float32, int8, akida)")
}

// apply copies flags the user actually set onto a copy of cfg.
func (f *buildFlags) apply(cmd *cobra.Command, base *config.Config) (*config.Config, error) {
	cfg := *base
	flags := cmd.Flags()
	if flags.Changed("project") {
		cfg.Studio.ProjectID = strings.TrimSpace(f.projectID)
	}
	if flags.Changed("api-key") {
		cfg.Studio.APIKey = strings.TrimSpace(f.apiKey)
	}
	if flags.Changed("type") {
		cfg.Build.DeploymentType = strings.TrimSpace(f.deployType)
	}
	if flags.Changed("impulse") {
		cfg.Build.ImpulseID = f.impulseID
	}
	if flags.Changed("engine") {
		cfg.Build.Engine = strings.TrimSpace(f.engine)
	}
	if flags.Changed("model-type") {
		cfg.Build.ModelType = strings.ToLower(strings.TrimSpace(f.modelType))
	}
	if err := cfg.Validate(); err != nil {
		return nil, services.Wrap(services.ErrValidation, "flags", "validate", "", err)
	}
	return &cfg, nil
}
