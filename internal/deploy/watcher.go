package deploy

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"eideploy/internal/logging"
	"eideploy/internal/services"
	"eideploy/internal/studio"
)

// State is the watcher's view of a job.
type State int

const (
	StatePolling State = iota
	StateSucceeded
	StateFailed
)

func (s State) String() string {
	switch s {
	case StatePolling:
		return "polling"
	case StateSucceeded:
		return "succeeded"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Terminal reports whether no further polling happens from s.
func (s State) Terminal() bool {
	return s == StateSucceeded || s == StateFailed
}

func stateFor(snap Snapshot) State {
	switch {
	case !snap.Finished:
		return StatePolling
	case snap.FinishedSuccessful:
		return StateSucceeded
	default:
		return StateFailed
	}
}

// WatchResult summarises one watch session.
type WatchResult struct {
	State  State
	Cycles int
	Lines  int
	Cursor Cursor
}

// Watcher polls one job until it reaches a terminal state, forwarding new log
// lines to its sink on every cycle.
type Watcher struct {
	api      API
	project  studio.Project
	tail     *LogTail
	sink     LineSink
	interval time.Duration
	wait     WaitFunc
	logger   *slog.Logger
}

// Watcher returns a Watcher bound to req's project. A nil sink discards lines.
func (c *Controller) Watcher(req Request, sink LineSink) *Watcher {
	if sink == nil {
		sink = Discard
	}
	return &Watcher{
		api:      c.api,
		project:  req.project(),
		tail:     c.Tail(req),
		sink:     sink,
		interval: c.pollInterval,
		wait:     c.wait,
		logger:   c.logger,
	}
}

// Status fetches a fresh snapshot of the job.
func (w *Watcher) Status(ctx context.Context, jobID string) (Snapshot, error) {
	resp, err := w.api.JobStatus(ctx, w.project, jobID)
	if err != nil {
		return Snapshot{}, err
	}
	if err := resp.Err("watch"); err != nil {
		return Snapshot{}, err
	}
	if resp.Job == nil {
		return Snapshot{}, services.Wrap(services.ErrMalformedResponse, "watch", "status response", "job missing", nil)
	}
	return Snapshot{
		Finished:           bool(resp.Job.Finished),
		FinishedSuccessful: bool(resp.Job.FinishedSuccessful),
	}, nil
}

// Watch polls jobID until it finishes. It returns nil when the job succeeds
// and an ErrJobFailed error when it finishes unsuccessfully. Log lines are
// drained on the terminal cycle too.
func (w *Watcher) Watch(ctx context.Context, jobID string) (WatchResult, error) {
	const stage = "watch"
	ctx = services.WithStage(services.WithJobID(ctx, jobID), stage)
	logger := logging.WithContext(ctx, w.logger)

	result := WatchResult{State: StatePolling}
	logger.Info("watching build job", logging.String("interval", w.interval.String()))
	for {
		result.Cycles++
		snap, err := w.Status(ctx, jobID)
		if err != nil {
			return result, err
		}

		lines, next, err := w.tail.FetchNewLines(ctx, jobID, result.Cursor)
		if err != nil {
			return result, err
		}
		for _, line := range lines {
			if err := w.sink.WriteLine(line); err != nil {
				return result, services.Wrap(services.ErrUnknown, stage, "write log line", "", err)
			}
		}
		result.Cursor = next
		result.Lines += len(lines)

		result.State = stateFor(snap)
		switch result.State {
		case StateSucceeded:
			logger.Info("build job succeeded",
				logging.Int("cycles", result.Cycles),
				logging.Int("log_lines", result.Lines),
			)
			return result, nil
		case StateFailed:
			logging.ErrorWithContext(logger, "build job failed", "job_failed", "inspect the job log above",
				logging.Int("cycles", result.Cycles),
			)
			return result, services.Wrap(services.ErrJobFailed, stage, "job "+jobID, "finished unsuccessfully", nil)
		}

		logger.Debug("build job still running", logging.Int("cycle", result.Cycles))
		if err := w.wait(ctx, w.interval); err != nil {
			return result, err
		}
	}
}
