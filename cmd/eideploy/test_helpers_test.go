package main

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"eideploy/internal/config"
)

type cliTestEnv struct {
	cfg        *config.Config
	configPath string
	outputDir  string
	ghOutput   string
}

func setupCLITestEnv(t *testing.T, studioURL string) *cliTestEnv {
	t.Helper()

	base := t.TempDir()
	home := filepath.Join(base, "home")
	if err := os.MkdirAll(home, 0o755); err != nil {
		t.Fatalf("mkdir home: %v", err)
	}
	t.Setenv("HOME", home)
	for _, name := range []string{
		"EI_API_KEY", "INPUT_API_KEY", "EI_PROJECT_ID", "INPUT_PROJECT_ID",
		"EI_DEPLOYMENT_TYPE", "INPUT_DEPLOYMENT_TYPE", "EI_IMPULSE_ID", "INPUT_IMPULSE_ID",
		"EI_ENGINE", "INPUT_ENGINE", "EI_MODEL_TYPE", "INPUT_MODEL_TYPE",
		"EI_BASE_URL", "EI_OUTPUT_DIR", "EI_NTFY_TOPIC", "EI_OVERWRITE", "GITHUB_ACTIONS",
		"XDG_STATE_HOME",
	} {
		t.Setenv(name, "")
	}
	ghOutput := filepath.Join(base, "github_output")
	t.Setenv("GITHUB_OUTPUT", ghOutput)

	cfg := config.Default()
	if studioURL != "" {
		cfg.Studio.BaseURL = studioURL
	}
	cfg.Studio.ProjectID = "42"
	cfg.Studio.APIKey = "ei_test_key"
	cfg.Build.DeploymentType = "zip"
	cfg.Output.Dir = filepath.Join(base, "out")
	cfg.Paths.StateDir = filepath.Join(base, "state")
	cfg.Logging.Level = "error"

	configPath := filepath.Join(base, "eideploy.toml")
	writeTestConfig(t, configPath, &cfg)

	return &cliTestEnv{
		cfg:        &cfg,
		configPath: configPath,
		outputDir:  cfg.Output.Dir,
		ghOutput:   ghOutput,
	}
}

func writeTestConfig(t *testing.T, path string, cfg *config.Config) {
	t.Helper()
	data, err := toml.Marshal(cfg)
	if err != nil {
		t.Fatalf("marshal config: %v", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func runCLI(t *testing.T, args []string, configPath string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	var flags []string
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}

// fakeStudio serves a build job that finishes on the second status poll.
type fakeStudio struct {
	server        *httptest.Server
	polls         atomic.Int32
	rejectSubmit  string
	failJob       bool
	downloadBytes []byte
}

func newFakeStudio(t *testing.T) *fakeStudio {
	t.Helper()
	f := &fakeStudio{downloadBytes: []byte{1, 2, 3, 4, 5, 6, 7, 8}}
	mux := http.NewServeMux()
	mux.HandleFunc("GET /v1/api/42", func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"success":true,"project":{"id":42,"name":"demo"}}`)
	})
	mux.HandleFunc("POST /v1/api/42/jobs/build-ondevice-model", func(w http.ResponseWriter, r *http.Request) {
		if f.rejectSubmit != "" {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = fmt.Fprintf(w, `{"success":false,"error":%q}`, f.rejectSubmit)
			return
		}
		_, _ = io.WriteString(w, `{"success":true,"id":777}`)
	})
	mux.HandleFunc("GET /v1/api/42/jobs/777/status", func(w http.ResponseWriter, r *http.Request) {
		done := f.polls.Add(1) >= 2
		_, _ = fmt.Fprintf(w, `{"success":true,"job":{"finished":%t,"finishedSuccessful":%t}}`, done, done && !f.failJob)
	})
	mux.HandleFunc("GET /v1/api/42/jobs/777/stdout", func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"success":true,"stdout":[{"data":"Build finished"},{"data":"Building deployment"}]}`)
	})
	mux.HandleFunc("GET /v1/api/42/deployment/download", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Disposition", "attachment; filename*=utf-8''demo-zip-v3.zip")
		_, _ = w.Write(f.downloadBytes)
	})
	f.server = httptest.NewServer(mux)
	t.Cleanup(f.server.Close)
	return f
}
