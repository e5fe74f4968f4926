package studio

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"eideploy/internal/services"
)

// Project identifies a Studio project and the credential used to reach it.
type Project struct {
	ID     string
	APIKey string
}

// BuildParams selects the deployment to build or download.
type BuildParams struct {
	DeploymentType string
	ImpulseID      int // 0 means unset
	Engine         string
	ModelType      string
}

// Envelope is the success/error pair every Studio JSON response carries.
type Envelope struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// Err converts a success=false envelope into a rejection for the given stage.
func (e Envelope) Err(stage string) error {
	if e.Success {
		return nil
	}
	return services.Reject(stage, e.Error)
}

// JobID holds a job identifier verbatim. Studio has returned it both as a JSON
// number and as a string.
type JobID string

func (id *JobID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case len(data) == 0 || bytes.Equal(data, []byte("null")):
		*id = ""
		return nil
	case data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = JobID(s)
		return nil
	default:
		var n json.Number
		if err := json.Unmarshal(data, &n); err != nil {
			return fmt.Errorf("job id: %w", err)
		}
		*id = JobID(n.String())
		return nil
	}
}

func (id JobID) String() string { return string(id) }

// BuildResponse is returned by the build-ondevice-model endpoint.
type BuildResponse struct {
	Envelope
	ID JobID `json:"id"`
}

// Flag decodes fields Studio reports either as a boolean or as a timestamp
// that is present once the event happened.
type Flag bool

func (f *Flag) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case len(data) == 0 || bytes.Equal(data, []byte("null")):
		*f = false
	case bytes.Equal(data, []byte("true")):
		*f = true
	case bytes.Equal(data, []byte("false")):
		*f = false
	case data[0] == '"':
		s, err := strconv.Unquote(string(data))
		if err != nil {
			return fmt.Errorf("flag: %w", err)
		}
		switch strings.ToLower(strings.TrimSpace(s)) {
		case "", "false", "0":
			*f = false
		default:
			*f = true
		}
	default:
		n, err := strconv.ParseFloat(string(data), 64)
		if err != nil {
			return fmt.Errorf("flag: unsupported value %s", data)
		}
		*f = Flag(n != 0)
	}
	return nil
}

// JobState is the job object embedded in a status response.
type JobState struct {
	Finished           Flag `json:"finished"`
	FinishedSuccessful Flag `json:"finishedSuccessful"`
}

// StatusResponse is returned by the job status endpoint.
type StatusResponse struct {
	Envelope
	Job *JobState `json:"job"`
}

// StdoutEntry is one log line. Studio returns entries newest-first.
type StdoutEntry struct {
	Data string `json:"data"`
}

// StdoutResponse is returned by the job stdout endpoint.
type StdoutResponse struct {
	Envelope
	Stdout []StdoutEntry `json:"stdout"`
}

// ProjectInfo is the subset of project metadata eideploy reads.
type ProjectInfo struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// ProjectResponse is returned by the project endpoint.
type ProjectResponse struct {
	Envelope
	Project *ProjectInfo `json:"project"`
}

// Download is a deployment artifact as delivered by Studio.
type Download struct {
	Filename    string
	ContentType string
	Content     []byte
}
