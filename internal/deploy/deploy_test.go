package deploy

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"eideploy/internal/services"
	"eideploy/internal/studio"
)

var validRequest = Request{ProjectID: "42", DeployType: "zip", APIKey: "ei_secret"}

func newController(t *testing.T, api API, waits *int) *Controller {
	t.Helper()
	c, err := New(api, WithWait(func(ctx context.Context, d time.Duration) error {
		if waits != nil {
			*waits++
		}
		return ctx.Err()
	}))
	require.NoError(t, err)
	return c
}

func TestRequestValidate(t *testing.T) {
	tests := []struct {
		name  string
		req   Request
		field string
	}{
		{name: "project", req: Request{DeployType: "zip", APIKey: "k"}, field: "project_id"},
		{name: "deploy type", req: Request{ProjectID: "1", APIKey: "k"}, field: "deploy_type"},
		{name: "api key", req: Request{ProjectID: "1", DeployType: "zip", APIKey: "  "}, field: "api_key"},
		{name: "negative impulse", req: Request{ProjectID: "1", DeployType: "zip", APIKey: "k", ImpulseID: -1}, field: "impulse_id"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.req.Validate()
			require.ErrorIs(t, err, services.ErrValidation)
			assert.Contains(t, err.Error(), tt.field)
		})
	}
	require.NoError(t, validRequest.Validate())
}

func TestSubmitValidatesBeforeNetwork(t *testing.T) {
	api := &fakeAPI{}
	c := newController(t, api, nil)

	_, err := c.Submit(context.Background(), Request{DeployType: "zip", APIKey: "k"})
	require.ErrorIs(t, err, services.ErrValidation)
	assert.Empty(t, api.builds)
}

func TestSubmitReturnsJobIDVerbatim(t *testing.T) {
	api := &fakeAPI{build: &studio.BuildResponse{Envelope: studio.Envelope{Success: true}, ID: "12345"}}
	c := newController(t, api, nil)

	handle, err := c.Submit(context.Background(), Request{
		ProjectID:  "42",
		DeployType: "zip",
		APIKey:     "k",
		ImpulseID:  2,
		Engine:     "tflite",
		ModelType:  "int8",
	})
	require.NoError(t, err)
	assert.Equal(t, "12345", handle.JobID)
	require.Len(t, api.builds, 1)
	assert.Equal(t, studio.BuildParams{DeploymentType: "zip", ImpulseID: 2, Engine: "tflite", ModelType: "int8"}, api.builds[0])
}

func TestSubmitRejectionCarriesServerMessage(t *testing.T) {
	api := &fakeAPI{build: &studio.BuildResponse{Envelope: studio.Envelope{Success: false, Error: "Invalid deployment type"}}}
	c := newController(t, api, nil)

	_, err := c.Submit(context.Background(), validRequest)
	require.ErrorIs(t, err, services.ErrJobRejected)
	msg, ok := services.ServerMessage(err)
	require.True(t, ok)
	assert.Equal(t, "Invalid deployment type", msg)
	assert.Equal(t, services.ExitJobRejected, services.ExitCode(err))
}

func TestSubmitMissingIDIsMalformed(t *testing.T) {
	api := &fakeAPI{build: &studio.BuildResponse{Envelope: studio.Envelope{Success: true}}}
	c := newController(t, api, nil)

	_, err := c.Submit(context.Background(), validRequest)
	require.ErrorIs(t, err, services.ErrMalformedResponse)
}

func TestSubmitTransportErrorPropagates(t *testing.T) {
	cause := services.Wrap(services.ErrTransport, "submit", "", "no response", errors.New("connection refused"))
	api := &fakeAPI{buildErr: cause}
	c := newController(t, api, nil)

	_, err := c.Submit(context.Background(), validRequest)
	require.ErrorIs(t, err, services.ErrTransport)
}

func TestFetchNewLinesReordersChronologically(t *testing.T) {
	api := &fakeAPI{stdouts: []*studio.StdoutResponse{{
		Envelope: studio.Envelope{Success: true},
		Stdout:   []studio.StdoutEntry{{Data: "C"}, {Data: "B"}, {Data: "A"}},
	}}}
	c := newController(t, api, nil)

	lines, next, err := c.Tail(validRequest).FetchNewLines(context.Background(), "1", 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B", "C"}, lines)
	assert.Equal(t, Cursor(3), next)
}

func TestFetchNewLinesIsIdempotent(t *testing.T) {
	api := &fakeAPI{stdouts: []*studio.StdoutResponse{newestFirst("a", "b", "c", "d")}}
	tail := newController(t, api, nil).Tail(validRequest)
	ctx := context.Background()

	first, next, err := tail.FetchNewLines(ctx, "1", 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "c", "d"}, first)
	assert.Equal(t, Cursor(4), next)

	second, again, err := tail.FetchNewLines(ctx, "1", 1)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, next, again)

	none, same, err := tail.FetchNewLines(ctx, "1", next)
	require.NoError(t, err)
	assert.Empty(t, none)
	assert.Equal(t, next, same)
}

func TestFetchNewLinesCursorPastEndDoesNotRegress(t *testing.T) {
	api := &fakeAPI{stdouts: []*studio.StdoutResponse{newestFirst("a", "b")}}
	tail := newController(t, api, nil).Tail(validRequest)

	lines, next, err := tail.FetchNewLines(context.Background(), "1", 5)
	require.NoError(t, err)
	assert.Empty(t, lines)
	assert.Equal(t, Cursor(5), next)
}

func TestFetchNewLinesRejection(t *testing.T) {
	api := &fakeAPI{stdouts: []*studio.StdoutResponse{{Envelope: studio.Envelope{Error: "job not found"}}}}
	tail := newController(t, api, nil).Tail(validRequest)

	_, next, err := tail.FetchNewLines(context.Background(), "1", 2)
	require.ErrorIs(t, err, services.ErrJobRejected)
	assert.Equal(t, Cursor(2), next)
}

func TestWatchSucceedsOnFirstPoll(t *testing.T) {
	api := &fakeAPI{
		statuses: []*studio.StatusResponse{finished(true)},
		stdouts:  []*studio.StdoutResponse{newestFirst("building", "done")},
	}
	waits := 0
	sink := &recordingSink{}
	c := newController(t, api, &waits)

	result, err := c.Watcher(validRequest, sink).Watch(context.Background(), "7")
	require.NoError(t, err)
	assert.Equal(t, StateSucceeded, result.State)
	assert.Equal(t, 1, result.Cycles)
	assert.Equal(t, 1, api.polls)
	assert.Zero(t, waits)
	assert.Equal(t, []string{"building", "done"}, sink.lines)
}

func TestWatchFailedJob(t *testing.T) {
	api := &fakeAPI{
		statuses: []*studio.StatusResponse{running(), finished(false)},
		stdouts:  []*studio.StdoutResponse{newestFirst("start"), newestFirst("start", "error: out of memory")},
	}
	sink := &recordingSink{}
	c := newController(t, api, nil)

	result, err := c.Watcher(validRequest, sink).Watch(context.Background(), "7")
	require.ErrorIs(t, err, services.ErrJobFailed)
	assert.Equal(t, StateFailed, result.State)
	assert.Equal(t, services.ExitJobFailed, services.ExitCode(err))
	assert.Equal(t, []string{"start", "error: out of memory"}, sink.lines)
}

func TestWatchNeverReemitsLines(t *testing.T) {
	api := &fakeAPI{
		statuses: []*studio.StatusResponse{running(), running(), running(), finished(true)},
		stdouts: []*studio.StdoutResponse{
			newestFirst("a"),
			newestFirst("a", "b", "c"),
			newestFirst("a", "b", "c"),
			newestFirst("a", "b", "c", "d"),
		},
	}
	waits := 0
	sink := &recordingSink{}
	c := newController(t, api, &waits)

	result, err := c.Watcher(validRequest, sink).Watch(context.Background(), "7")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c", "d"}, sink.lines)
	assert.Equal(t, 4, result.Cycles)
	assert.Equal(t, 3, waits)
	assert.Equal(t, Cursor(4), result.Cursor)
	assert.Equal(t, 4, result.Lines)
}

func TestWatchStatusRejectionStopsImmediately(t *testing.T) {
	api := &fakeAPI{statuses: []*studio.StatusResponse{{Envelope: studio.Envelope{Error: "No such job"}}}}
	c := newController(t, api, nil)

	_, err := c.Watcher(validRequest, nil).Watch(context.Background(), "7")
	require.ErrorIs(t, err, services.ErrJobRejected)
	assert.Equal(t, 1, api.polls)
	assert.Zero(t, api.tails)
}

func TestWatchMissingJobIsMalformed(t *testing.T) {
	api := &fakeAPI{statuses: []*studio.StatusResponse{{Envelope: studio.Envelope{Success: true}}}}
	c := newController(t, api, nil)

	_, err := c.Watcher(validRequest, nil).Watch(context.Background(), "7")
	require.ErrorIs(t, err, services.ErrMalformedResponse)
}

func TestWatchCancelledDuringWait(t *testing.T) {
	api := &fakeAPI{statuses: []*studio.StatusResponse{running()}}
	ctx, cancel := context.WithCancel(context.Background())
	c, err := New(api, WithWait(func(ctx context.Context, d time.Duration) error {
		cancel()
		return ctx.Err()
	}))
	require.NoError(t, err)

	result, err := c.Watcher(validRequest, nil).Watch(ctx, "7")
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, StatePolling, result.State)
	assert.Equal(t, services.ExitInterrupted, services.ExitCode(err))
}

func TestWatchUsesConfiguredInterval(t *testing.T) {
	api := &fakeAPI{statuses: []*studio.StatusResponse{running(), finished(true)}}
	var got []time.Duration
	c, err := New(api,
		WithPollInterval(250*time.Millisecond),
		WithWait(func(_ context.Context, d time.Duration) error {
			got = append(got, d)
			return nil
		}),
	)
	require.NoError(t, err)

	_, err = c.Watcher(validRequest, nil).Watch(context.Background(), "7")
	require.NoError(t, err)
	assert.Equal(t, []time.Duration{250 * time.Millisecond}, got)
}

func TestTimerWaitHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	start := time.Now()
	err := timerWait(ctx, time.Hour)
	require.ErrorIs(t, err, context.Canceled)
	assert.Less(t, time.Since(start), time.Second)

	require.NoError(t, timerWait(context.Background(), time.Millisecond))
}

func TestDownloadReturnsContentUntouched(t *testing.T) {
	content := []byte{0, 1, 2, 3, 4, 5, 6, 7}
	api := &fakeAPI{download: &studio.Download{Filename: "model.tflite", Content: content}}
	c := newController(t, api, nil)

	artifact, err := c.Download(context.Background(), validRequest)
	require.NoError(t, err)
	assert.Equal(t, "model.tflite", artifact.Filename)
	assert.Equal(t, content, artifact.Content)
	assert.Len(t, artifact.Content, 8)
}

func TestRunSequencesSubmitWatchDownload(t *testing.T) {
	req := Request{ProjectID: "42", DeployType: "zip", APIKey: "k", Engine: "tflite-eon", ModelType: "float32"}
	api := &fakeAPI{
		build:    &studio.BuildResponse{Envelope: studio.Envelope{Success: true}, ID: "99"},
		statuses: []*studio.StatusResponse{running(), finished(true)},
		stdouts:  []*studio.StdoutResponse{newestFirst("one"), newestFirst("one", "two")},
		download: &studio.Download{Filename: "ei-model.zip", Content: []byte("zip")},
	}
	var out bytes.Buffer
	c := newController(t, api, nil)

	result, err := c.Run(context.Background(), req, NewWriterSink(&out))
	require.NoError(t, err)
	assert.Equal(t, "99", result.JobID)
	assert.Equal(t, "ei-model.zip", result.Artifact.Filename)
	assert.Equal(t, "one\ntwo\n", out.String())
	require.Len(t, api.downloads, 1)
	assert.Equal(t, api.builds[0], api.downloads[0])
}

func TestRunStopsAfterFailedJob(t *testing.T) {
	api := &fakeAPI{
		build:    &studio.BuildResponse{Envelope: studio.Envelope{Success: true}, ID: "99"},
		statuses: []*studio.StatusResponse{finished(false)},
	}
	c := newController(t, api, nil)

	result, err := c.Run(context.Background(), validRequest, nil)
	require.ErrorIs(t, err, services.ErrJobFailed)
	assert.Equal(t, "99", result.JobID)
	assert.Empty(t, api.downloads)
}

func TestRunTagsEachCallWithItsStage(t *testing.T) {
	api := &fakeAPI{
		build:    &studio.BuildResponse{Envelope: studio.Envelope{Success: true}, ID: "99"},
		statuses: []*studio.StatusResponse{finished(true)},
		download: &studio.Download{Filename: "ei-model.zip", Content: []byte("zip")},
	}
	c := newController(t, api, nil)

	_, err := c.Run(context.Background(), validRequest, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"submit", "watch", "watch", "download"}, api.stages)
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "polling", StatePolling.String())
	assert.Equal(t, "succeeded", StateSucceeded.String())
	assert.Equal(t, "failed", StateFailed.String())
	assert.False(t, StatePolling.Terminal())
	assert.True(t, StateFailed.Terminal())
}

func TestRunCallsSubmitHookBeforeWatching(t *testing.T) {
	api := &fakeAPI{
		build:    &studio.BuildResponse{Envelope: studio.Envelope{Success: true}, ID: "5"},
		statuses: []*studio.StatusResponse{finished(true)},
		download: &studio.Download{Filename: "a.zip"},
	}
	var hooked string
	var pollsAtHook int
	c, err := New(api, WithSubmitHook(func(_ context.Context, h Handle) {
		hooked = h.JobID
		pollsAtHook = api.polls
	}))
	require.NoError(t, err)

	_, err = c.Run(context.Background(), validRequest, nil)
	require.NoError(t, err)
	assert.Equal(t, "5", hooked)
	assert.Zero(t, pollsAtHook)
}
