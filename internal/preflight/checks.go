package preflight

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"strings"
	"time"

	"golang.org/x/sys/unix"

	"eideploy/internal/config"
	"eideploy/internal/services"
	"eideploy/internal/studio"
)

const studioCheckTimeout = 10 * time.Second

// CheckStudio verifies that the Studio API is reachable and the configured
// key can read the configured project.
func CheckStudio(ctx context.Context, cfg *config.Config) Result {
	const name = "Studio API"

	projectID := strings.TrimSpace(cfg.Studio.ProjectID)
	if projectID == "" {
		return Result{Name: name, Detail: "missing project id"}
	}
	if strings.TrimSpace(cfg.Studio.APIKey) == "" {
		return Result{Name: name, Detail: "missing api key"}
	}

	client, err := studio.New(cfg.Studio.BaseURL, studio.WithTimeouts(studioCheckTimeout, 0))
	if err != nil {
		return Result{Name: name, Detail: err.Error()}
	}
	checkCtx, cancel := context.WithTimeout(ctx, studioCheckTimeout)
	defer cancel()

	resp, err := client.Project(checkCtx, studio.Project{ID: projectID, APIKey: cfg.Studio.APIKey})
	if err != nil {
		return Result{Name: name, Detail: summarizeStudioError(err)}
	}
	if err := resp.Err("preflight"); err != nil {
		msg, _ := services.ServerMessage(err)
		return Result{Name: name, Detail: fmt.Sprintf("rejected (%s)", msg)}
	}
	detail := "Reachable"
	if resp.Project != nil && resp.Project.Name != "" {
		detail = fmt.Sprintf("Reachable (project %q)", resp.Project.Name)
	}
	return Result{Name: name, Passed: true, Detail: detail}
}

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	if strings.TrimSpace(path) == "" {
		return Result{Name: name, Detail: "not configured"}
	}
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

func summarizeStudioError(err error) string {
	var netErr net.Error
	switch {
	case errors.Is(err, context.DeadlineExceeded), errors.As(err, &netErr) && netErr.Timeout():
		return "timed out"
	case errors.Is(err, services.ErrTransport):
		if strings.Contains(err.Error(), "http 401") || strings.Contains(err.Error(), "http 403") {
			return "auth failed (invalid api key)"
		}
		return fmt.Sprintf("unreachable (%v)", err)
	default:
		return err.Error()
	}
}
