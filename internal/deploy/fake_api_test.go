package deploy

import (
	"context"
	"sync"

	"eideploy/internal/services"
	"eideploy/internal/studio"
)

type fakeAPI struct {
	mu sync.Mutex

	build    *studio.BuildResponse
	buildErr error
	builds   []studio.BuildParams

	// statuses is consumed one entry per poll; the last entry repeats.
	statuses  []*studio.StatusResponse
	statusErr error
	polls     int

	// stdouts is consumed in step with statuses; the last entry repeats.
	stdouts   []*studio.StdoutResponse
	stdoutErr error
	tails     int

	download    *studio.Download
	downloadErr error
	downloads   []studio.BuildParams

	// stages records the lifecycle stage carried by each call's context.
	stages []string
}

func (f *fakeAPI) recordStage(ctx context.Context) {
	stage, _ := services.StageFromContext(ctx)
	f.stages = append(f.stages, stage)
}

func (f *fakeAPI) BuildOnDeviceModel(ctx context.Context, _ studio.Project, params studio.BuildParams) (*studio.BuildResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.recordStage(ctx)
	f.builds = append(f.builds, params)
	return f.build, f.buildErr
}

func (f *fakeAPI) JobStatus(ctx context.Context, _ studio.Project, _ string) (*studio.StatusResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.recordStage(ctx)
	if f.statusErr != nil {
		return nil, f.statusErr
	}
	idx := min(f.polls, len(f.statuses)-1)
	f.polls++
	return f.statuses[idx], nil
}

func (f *fakeAPI) JobStdout(ctx context.Context, _ studio.Project, _ string) (*studio.StdoutResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.recordStage(ctx)
	if f.stdoutErr != nil {
		return nil, f.stdoutErr
	}
	f.tails++
	if len(f.stdouts) == 0 {
		return &studio.StdoutResponse{Envelope: studio.Envelope{Success: true}}, nil
	}
	idx := min(f.tails-1, len(f.stdouts)-1)
	return f.stdouts[idx], nil
}

func (f *fakeAPI) DownloadDeployment(ctx context.Context, _ studio.Project, params studio.BuildParams) (*studio.Download, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.recordStage(ctx)
	f.downloads = append(f.downloads, params)
	return f.download, f.downloadErr
}

func running() *studio.StatusResponse {
	return &studio.StatusResponse{Envelope: studio.Envelope{Success: true}, Job: &studio.JobState{}}
}

func finished(ok bool) *studio.StatusResponse {
	return &studio.StatusResponse{
		Envelope: studio.Envelope{Success: true},
		Job:      &studio.JobState{Finished: true, FinishedSuccessful: studio.Flag(ok)},
	}
}

// newestFirst builds a stdout response from lines given in chronological order.
func newestFirst(lines ...string) *studio.StdoutResponse {
	resp := &studio.StdoutResponse{Envelope: studio.Envelope{Success: true}}
	for i := len(lines) - 1; i >= 0; i-- {
		resp.Stdout = append(resp.Stdout, studio.StdoutEntry{Data: lines[i]})
	}
	return resp
}

type recordingSink struct {
	lines []string
}

func (s *recordingSink) WriteLine(line string) error {
	s.lines = append(s.lines, line)
	return nil
}
