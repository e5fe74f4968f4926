package history

import "time"

// Status is the lifecycle state of a recorded run.
type Status string

const (
	StatusStarted   Status = "started"
	StatusSubmitted Status = "submitted"
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
	StatusError     Status = "error"
)

// Terminal reports whether the run has finished.
func (s Status) Terminal() bool {
	switch s {
	case StatusSucceeded, StatusFailed, StatusError:
		return true
	default:
		return false
	}
}

// Run is one recorded deployment run.
type Run struct {
	ID           string
	ProjectID    string
	DeployType   string
	Engine       string
	ModelType    string
	ImpulseID    int
	JobID        string
	Status       Status
	ErrorMessage string
	Filename     string
	Path         string
	SizeBytes    int64
	SHA256       string
	LogLines     int
	StartedAt    time.Time
	FinishedAt   time.Time
}

// Duration returns the wall time of a finished run, or zero.
func (r Run) Duration() time.Duration {
	if r.FinishedAt.IsZero() || r.StartedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// Outcome closes a run.
type Outcome struct {
	Status       Status
	ErrorMessage string
	Filename     string
	Path         string
	SizeBytes    int64
	SHA256       string
	LogLines     int
}
