package studio

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"eideploy/internal/logging"
	"eideploy/internal/services"
)

const (
	DefaultBaseURL         = "https://studio.edgeimpulse.com"
	DefaultEngine          = "tflite-eon"
	defaultRequestTimeout  = 30 * time.Second
	defaultDownloadTimeout = 10 * time.Minute
	maxJSONBodyBytes       = 32 << 20
	userAgent              = "eideploy/0.1"
)

// Client talks to the Edge Impulse Studio REST API. It performs transport-level
// classification only: a response whose body carries success=false is handed
// back to the caller intact.
type Client struct {
	baseURL        string
	httpClient     *http.Client
	downloadClient *http.Client
	logger         *slog.Logger
}

// Option customizes the client.
type Option func(*Client)

// WithHTTPClient overrides the client used for JSON calls and downloads.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
			c.downloadClient = client
		}
	}
}

// WithTimeouts overrides the request and download timeouts.
func WithTimeouts(request, download time.Duration) Option {
	return func(c *Client) {
		if request > 0 {
			c.httpClient = &http.Client{Timeout: request}
		}
		if download > 0 {
			c.downloadClient = &http.Client{Timeout: download}
		}
	}
}

// WithLogger attaches a logger; the client logs under the "studio" component.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// New constructs a Studio client for the given base URL.
func New(baseURL string, opts ...Option) (*Client, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if _, err := url.Parse(baseURL); err != nil {
		return nil, fmt.Errorf("parse studio url: %w", err)
	}
	client := &Client{
		baseURL:        baseURL,
		httpClient:     &http.Client{Timeout: defaultRequestTimeout},
		downloadClient: &http.Client{Timeout: defaultDownloadTimeout},
		logger:         logging.NewNop(),
	}
	for _, opt := range opts {
		opt(client)
	}
	client.logger = logging.NewComponentLogger(client.logger, "studio")
	return client, nil
}

type buildRequestBody struct {
	Engine    string `json:"engine"`
	ModelType string `json:"modelType,omitempty"`
}

// BuildOnDeviceModel starts a deployment build job.
func (c *Client) BuildOnDeviceModel(ctx context.Context, p Project, params BuildParams) (*BuildResponse, error) {
	const stage = "submit"
	engine := strings.TrimSpace(params.Engine)
	if engine == "" {
		engine = DefaultEngine
	}
	body, err := json.Marshal(buildRequestBody{Engine: engine, ModelType: strings.TrimSpace(params.ModelType)})
	if err != nil {
		return nil, services.Wrap(services.ErrUnknown, stage, "encode body", "", err)
	}
	query := url.Values{}
	query.Set("type", params.DeploymentType)
	if params.ImpulseID > 0 {
		query.Set("impulseId", strconv.Itoa(params.ImpulseID))
	}

	var out BuildResponse
	endpoint := c.projectURL(p.ID, "jobs", "build-ondevice-model")
	if err := c.doJSON(ctx, stage, http.MethodPost, endpoint, query, p.APIKey, body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Project fetches project metadata. It doubles as a credential check.
func (c *Client) Project(ctx context.Context, p Project) (*ProjectResponse, error) {
	var out ProjectResponse
	if err := c.doJSON(ctx, "preflight", http.MethodGet, c.projectURL(p.ID), nil, p.APIKey, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// JobStatus fetches the current status of a job.
func (c *Client) JobStatus(ctx context.Context, p Project, jobID string) (*StatusResponse, error) {
	var out StatusResponse
	endpoint := c.projectURL(p.ID, "jobs", jobID, "status")
	if err := c.doJSON(ctx, "watch", http.MethodGet, endpoint, nil, p.APIKey, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// JobStdout fetches the complete log buffer of a job, newest entry first.
func (c *Client) JobStdout(ctx context.Context, p Project, jobID string) (*StdoutResponse, error) {
	var out StdoutResponse
	endpoint := c.projectURL(p.ID, "jobs", jobID, "stdout")
	if err := c.doJSON(ctx, "watch", http.MethodGet, endpoint, nil, p.APIKey, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DownloadDeployment fetches the most recently built deployment artifact.
func (c *Client) DownloadDeployment(ctx context.Context, p Project, params BuildParams) (*Download, error) {
	const stage = "download"
	query := url.Values{}
	query.Set("type", params.DeploymentType)
	if params.ImpulseID > 0 {
		query.Set("impulseId", strconv.Itoa(params.ImpulseID))
	}
	if engine := strings.TrimSpace(params.Engine); engine != "" {
		query.Set("engine", engine)
	}
	if modelType := strings.TrimSpace(params.ModelType); modelType != "" {
		query.Set("modelType", modelType)
	}
	endpoint := c.projectURL(p.ID, "deployment", "download")

	req, err := c.newRequest(ctx, http.MethodGet, endpoint, query, p.APIKey, nil)
	if err != nil {
		return nil, services.Wrap(services.ErrUnknown, stage, "build request", "", err)
	}
	req.Header.Set("Accept", "application/octet-stream, application/zip, */*")

	resp, err := c.send(c.downloadClient, req, stage)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	content, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, services.Wrap(services.ErrTransport, stage, "read body", "", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var env probeEnvelope
		if json.Unmarshal(content, &env) == nil && env.Success != nil && !*env.Success {
			return nil, services.Reject(stage, env.Error)
		}
		return nil, c.statusError(stage, resp.StatusCode, content)
	}

	filename, err := ParseFilename(resp.Header.Get("Content-Disposition"))
	if err != nil {
		return nil, services.Wrap(services.ErrMalformedResponse, stage, "content-disposition", "", err)
	}

	c.logger.Debug("deployment downloaded",
		logging.String("filename", filename),
		logging.Int("bytes", len(content)),
	)
	return &Download{
		Filename:    filename,
		ContentType: resp.Header.Get("Content-Type"),
		Content:     content,
	}, nil
}

func (c *Client) projectURL(projectID string, segments ...string) string {
	parts := make([]string, 0, len(segments)+3)
	parts = append(parts, "v1", "api", url.PathEscape(projectID))
	for _, segment := range segments {
		parts = append(parts, url.PathEscape(segment))
	}
	return c.baseURL + "/" + strings.Join(parts, "/")
}

func (c *Client) newRequest(ctx context.Context, method, endpoint string, query url.Values, apiKey string, body []byte) (*http.Request, error) {
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("x-api-key", apiKey)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return req, nil
}

// send executes req. A nil response means the request never got an answer,
// which is reported as a transport failure.
func (c *Client) send(client *http.Client, req *http.Request, stage string) (*http.Response, error) {
	start := time.Now()
	resp, err := client.Do(req)
	latency := time.Since(start)
	if err != nil {
		if ctxErr := req.Context().Err(); ctxErr != nil {
			return nil, services.Wrap(services.ErrTransport, stage, req.Method+" "+req.URL.Path, "request cancelled", ctxErr)
		}
		c.logger.Error("no response was received",
			logging.String(logging.FieldStage, stage),
			logging.String("path", req.URL.Path),
			logging.String("latency", latency.String()),
			logging.Error(err),
		)
		return nil, services.Wrap(services.ErrTransport, stage, req.Method+" "+req.URL.Path, "no response", err)
	}
	c.logger.Debug("studio response",
		logging.String(logging.FieldStage, stage),
		logging.String("path", req.URL.Path),
		logging.Int("status", resp.StatusCode),
		logging.String("latency", latency.String()),
	)
	return resp, nil
}

type probeEnvelope struct {
	Success *bool  `json:"success"`
	Error   string `json:"error"`
}

// doJSON performs a JSON call and decodes the body into out. Non-2xx replies
// whose body is a success=false envelope are decoded like any other reply so
// the caller sees the server's message; other non-2xx replies are transport
// failures. A 2xx body that does not decode is unknown.
func (c *Client) doJSON(ctx context.Context, stage, method, endpoint string, query url.Values, apiKey string, body []byte, out any) error {
	req, err := c.newRequest(ctx, method, endpoint, query, apiKey, body)
	if err != nil {
		return services.Wrap(services.ErrUnknown, stage, "build request", "", err)
	}
	resp, err := c.send(c.httpClient, req, stage)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, maxJSONBodyBytes))
	if err != nil {
		return services.Wrap(services.ErrTransport, stage, "read body", "", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var env probeEnvelope
		if json.Unmarshal(payload, &env) != nil || env.Success == nil || *env.Success {
			return c.statusError(stage, resp.StatusCode, payload)
		}
	}

	if err := json.Unmarshal(payload, out); err != nil {
		return services.Wrap(services.ErrUnknown, stage, "decode body", "undecodable response body", err)
	}
	return nil
}

func (c *Client) statusError(stage string, status int, body []byte) error {
	c.logger.Error(fmt.Sprintf("server responded with status code %d", status),
		logging.String(logging.FieldStage, stage),
		logging.Int("status", status),
	)
	snippet := strings.TrimSpace(string(body))
	if len(snippet) > 200 {
		snippet = snippet[:200] + "..."
	}
	message := fmt.Sprintf("http %d", status)
	if snippet != "" && bytes.HasPrefix(bytes.TrimSpace(body), []byte("{")) {
		message += ": " + snippet
	}
	return services.Wrap(services.ErrTransport, stage, "", message, nil)
}
