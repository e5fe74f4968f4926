package artifact

import (
	"fmt"
	"os"
	"strings"
)

// WriteGitHubOutput appends name=value to the file named by $GITHUB_OUTPUT.
// It reports false when the variable is unset.
func WriteGitHubOutput(name, value string) (bool, error) {
	path := strings.TrimSpace(os.Getenv("GITHUB_OUTPUT"))
	if path == "" {
		return false, nil
	}
	if strings.ContainsAny(value, "\r\n") {
		return true, fmt.Errorf("github output %s: value contains a newline", name)
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return true, fmt.Errorf("open github output: %w", err)
	}
	if _, err := fmt.Fprintf(f, "%s=%s\n", name, value); err != nil {
		_ = f.Close()
		return true, fmt.Errorf("write github output: %w", err)
	}
	return true, f.Close()
}
