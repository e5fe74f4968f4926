package deploy

import (
	"context"

	"eideploy/internal/studio"
)

// LogTail reads a job's log buffer and returns only the lines a caller has
// not yet seen. Studio returns the whole buffer newest-first on every call.
type LogTail struct {
	api     API
	project studio.Project
}

// Tail returns a LogTail bound to req's project.
func (c *Controller) Tail(req Request) *LogTail {
	return &LogTail{api: c.api, project: req.project()}
}

// FetchNewLines returns the lines after cursor in chronological order and the
// advanced cursor. A cursor at or past the end yields nothing and is returned
// unchanged.
func (t *LogTail) FetchNewLines(ctx context.Context, jobID string, cursor Cursor) ([]string, Cursor, error) {
	resp, err := t.api.JobStdout(ctx, t.project, jobID)
	if err != nil {
		return nil, cursor, err
	}
	if err := resp.Err("watch"); err != nil {
		return nil, cursor, err
	}
	if cursor < 0 {
		cursor = 0
	}
	total := len(resp.Stdout)
	if int(cursor) >= total {
		return nil, cursor, nil
	}
	lines := make([]string, 0, total-int(cursor))
	for i := total - 1 - int(cursor); i >= 0; i-- {
		lines = append(lines, resp.Stdout[i].Data)
	}
	return lines, cursor + Cursor(len(lines)), nil
}
