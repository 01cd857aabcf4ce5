// Package docparse is a client for the external document parsing service.
// A document is submitted as an async job, polled under a fixed retry
// budget, and the parsed result fetched in the requested format. The
// provider is authoritative for all job state; nothing is persisted locally.
package docparse

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"
)

// ResultType is the output format requested at job submission.
type ResultType string

// Supported result formats.
const (
	ResultMarkdown ResultType = "markdown"
	ResultText     ResultType = "text"
	ResultJSON     ResultType = "json"
)

// Polling defaults: 60 attempts at 3 s gives the provider roughly three
// minutes to finish before the job is abandoned.
const (
	DefaultPollInterval = 3 * time.Second
	DefaultMaxPolls     = 60
	defaultHTTPTimeout  = 30 * time.Second
)

// job statuses as reported by the provider, compared case-insensitively.
const (
	statusCompleted = "completed"
	statusFailed    = "failed"
)

// ParsedResult holds the provider's parsed output, passed through unmodified.
type ParsedResult struct {
	JobID      string     `json:"job_id"`
	ResultType ResultType `json:"result_type"`
	Content    string     `json:"content"`
}

// Config configures a Client.
type Config struct {
	BaseURL      string
	APIKey       string
	PollInterval time.Duration // defaults to DefaultPollInterval
	MaxPolls     int           // defaults to DefaultMaxPolls
	HTTPClient   *http.Client  // defaults to a client with a 30s timeout
}

// Client talks to the parsing provider. Construct once and inject; each
// Parse call owns its own job state and clients are safe for concurrent use.
type Client struct {
	baseURL      string
	apiKey       string
	pollInterval time.Duration
	maxPolls     int
	httpClient   *http.Client
	logger       *zap.Logger
}

// NewClient creates a parsing provider client.
func NewClient(cfg Config, logger *zap.Logger) (*Client, error) {
	if strings.TrimSpace(cfg.BaseURL) == "" {
		return nil, fmt.Errorf("parse provider base URL is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &Client{
		baseURL:      strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:       cfg.APIKey,
		pollInterval: cfg.PollInterval,
		maxPolls:     cfg.MaxPolls,
		httpClient:   cfg.HTTPClient,
		logger:       logger,
	}
	if c.pollInterval <= 0 {
		c.pollInterval = DefaultPollInterval
	}
	if c.maxPolls <= 0 {
		c.maxPolls = DefaultMaxPolls
	}
	if c.httpClient == nil {
		c.httpClient = &http.Client{Timeout: defaultHTTPTimeout}
	}
	return c, nil
}

// uploadResponse tolerates the job identifier appearing under either field
// name; the provider has shipped both.
type uploadResponse struct {
	ID    string `json:"id"`
	JobID string `json:"job_id"`
}

func (r *uploadResponse) jobID() string {
	if r.ID != "" {
		return r.ID
	}
	return r.JobID
}

// statusResponse is the provider's poll response.
type statusResponse struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

// Parse submits a document and blocks until the provider finishes parsing
// it, the job fails, or the polling budget runs out. The staged temporary
// file is removed on every exit path.
func (c *Client) Parse(ctx context.Context, fileBytes []byte, fileName, mimeType string, resultType ResultType) (*ParsedResult, error) {
	switch resultType {
	case ResultMarkdown, ResultText, ResultJSON:
	default:
		return nil, &ErrInvalidResultType{ResultType: string(resultType)}
	}

	tempPath, err := stageTempFile(fileBytes, fileName)
	if err != nil {
		return nil, fmt.Errorf("failed to stage upload: %w", err)
	}
	defer func() { _ = os.Remove(tempPath) }()

	jobID, err := c.upload(ctx, tempPath, fileName, mimeType, resultType)
	if err != nil {
		return nil, err
	}

	c.logger.Debug("parse job submitted",
		zap.String("job_id", jobID),
		zap.String("file", fileName),
		zap.String("result_type", string(resultType)))

	return c.poll(ctx, jobID, resultType)
}

// upload submits the staged file as multipart form data and extracts the
// job identifier from the response.
func (c *Client) upload(ctx context.Context, tempPath, fileName, mimeType string, resultType ResultType) (string, error) {
	file, err := os.Open(tempPath)
	if err != nil {
		return "", fmt.Errorf("failed to open staged file: %w", err)
	}
	defer func() { _ = file.Close() }()

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	part, err := writer.CreateFormFile("file", fileName)
	if err != nil {
		return "", fmt.Errorf("failed to build multipart body: %w", err)
	}
	if _, err := io.Copy(part, file); err != nil {
		return "", fmt.Errorf("failed to copy file into request: %w", err)
	}
	if err := writer.WriteField("result_type", string(resultType)); err != nil {
		return "", fmt.Errorf("failed to write result_type field: %w", err)
	}
	if mimeType != "" {
		if err := writer.WriteField("mime_type", mimeType); err != nil {
			return "", fmt.Errorf("failed to write mime_type field: %w", err)
		}
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("failed to finalize multipart body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/upload", &body)
	if err != nil {
		return "", fmt.Errorf("failed to create upload request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	c.setAuth(req)

	respBody, status, err := c.do(req)
	if err != nil {
		return "", fmt.Errorf("upload request failed: %w", err)
	}
	if status != http.StatusOK && status != http.StatusCreated {
		return "", &ProviderError{Operation: "upload", StatusCode: status, Message: string(respBody)}
	}

	var resp uploadResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return "", fmt.Errorf("failed to parse upload response: %w", err)
	}
	jobID := resp.jobID()
	if jobID == "" {
		return "", &ErrMissingJobID{}
	}
	return jobID, nil
}

// poll checks job status at a fixed interval until a terminal state or the
// retry budget is exhausted. The interval is fixed; there is no backoff.
func (c *Client) poll(ctx context.Context, jobID string, resultType ResultType) (*ParsedResult, error) {
	for attempt := 1; attempt <= c.maxPolls; attempt++ {
		status, err := c.jobStatus(ctx, jobID)
		if err != nil {
			return nil, err
		}

		normalized := strings.ToLower(strings.TrimSpace(status.Status))
		switch {
		case normalized == statusCompleted:
			return c.fetchResult(ctx, jobID, resultType)
		case normalized == statusFailed || status.Error != "":
			msg := status.Error
			if msg == "" {
				msg = "provider reported job status failed"
			}
			return nil, &ProviderError{Operation: "status", Message: msg}
		}

		c.logger.Debug("parse job still processing",
			zap.String("job_id", jobID),
			zap.Int("attempt", attempt),
			zap.String("status", normalized))

		if attempt < c.maxPolls {
			time.Sleep(c.pollInterval)
		}
	}

	return nil, &TimeoutError{
		Attempts: c.maxPolls,
		Elapsed:  time.Duration(c.maxPolls) * c.pollInterval,
	}
}

// jobStatus queries the provider for the current job state.
func (c *Client) jobStatus(ctx context.Context, jobID string) (*statusResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/job/"+jobID, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create status request: %w", err)
	}
	c.setAuth(req)

	respBody, status, err := c.do(req)
	if err != nil {
		return nil, fmt.Errorf("status request failed: %w", err)
	}
	if status != http.StatusOK {
		return nil, &ProviderError{Operation: "status", StatusCode: status, Message: string(respBody)}
	}

	var resp statusResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return nil, fmt.Errorf("failed to parse status response: %w", err)
	}
	return &resp, nil
}

// fetchResult retrieves the parsed output in the requested format.
func (c *Client) fetchResult(ctx context.Context, jobID string, resultType ResultType) (*ParsedResult, error) {
	url := fmt.Sprintf("%s/job/%s/result/%s", c.baseURL, jobID, resultType)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create result request: %w", err)
	}
	c.setAuth(req)

	respBody, status, err := c.do(req)
	if err != nil {
		return nil, fmt.Errorf("result request failed: %w", err)
	}
	if status != http.StatusOK {
		return nil, &ProviderError{Operation: "result", StatusCode: status, Message: string(respBody)}
	}

	return &ParsedResult{
		JobID:      jobID,
		ResultType: resultType,
		Content:    string(respBody),
	}, nil
}

// do executes a request and reads the full body.
func (c *Client) do(req *http.Request) ([]byte, int, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("failed to read response body: %w", err)
	}
	return body, resp.StatusCode, nil
}

func (c *Client) setAuth(req *http.Request) {
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
}

// stageTempFile writes the upload payload to a temporary file and returns
// its path. Callers must remove the file on every exit path.
func stageTempFile(fileBytes []byte, fileName string) (string, error) {
	tmpFile, err := os.CreateTemp("", "docparse-*"+sanitizeExt(fileName))
	if err != nil {
		return "", fmt.Errorf("failed to create temp file: %w", err)
	}

	if _, err := tmpFile.Write(fileBytes); err != nil {
		_ = tmpFile.Close()
		_ = os.Remove(tmpFile.Name())
		return "", fmt.Errorf("failed to write temp file: %w", err)
	}

	if err := tmpFile.Close(); err != nil {
		_ = os.Remove(tmpFile.Name())
		return "", fmt.Errorf("failed to close temp file: %w", err)
	}

	return tmpFile.Name(), nil
}

// sanitizeExt keeps the original extension on the staged file so provider
// logs stay readable; anything suspicious becomes empty.
func sanitizeExt(fileName string) string {
	idx := strings.LastIndex(fileName, ".")
	if idx < 0 {
		return ""
	}
	ext := fileName[idx:]
	if len(ext) > 8 || strings.ContainsAny(ext, "/\\") {
		return ""
	}
	return ext
}
