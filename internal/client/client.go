// Package client is the HTTP client for the jobq API, used by the CLI
// subcommands and by consumer processes pushing snapshot updates.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/mpreston/jobq/internal/store"
)

// Client talks to a jobq server over HTTP.
type Client struct {
	baseURL string
	http    *http.Client
}

// New creates a client for the given base URL.
func New(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 30 * time.Second},
	}
}

// apiError is a non-2xx response from the server.
type apiError struct {
	Status  int
	Message string
}

func (e *apiError) Error() string {
	return fmt.Sprintf("server returned %d: %s", e.Status, e.Message)
}

// do issues one request and decodes a JSON response into out when out
// is non-nil.
func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var envelope struct {
			Error string `json:"error"`
		}
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		if json.Unmarshal(data, &envelope) != nil || envelope.Error == "" {
			envelope.Error = strings.TrimSpace(string(data))
		}
		return &apiError{Status: resp.StatusCode, Message: envelope.Error}
	}

	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// CreateJob submits a new job.
func (c *Client) CreateJob(ctx context.Context, job *store.Job) (*store.Job, error) {
	var created store.Job
	if err := c.do(ctx, http.MethodPost, "/api/v1/jobs/", job, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

// ListJobs fetches all jobs.
func (c *Client) ListJobs(ctx context.Context) ([]*store.Job, error) {
	var jobs []*store.Job
	if err := c.do(ctx, http.MethodGet, "/api/v1/jobs/", nil, &jobs); err != nil {
		return nil, err
	}
	return jobs, nil
}

// GetJob fetches one job.
func (c *Client) GetJob(ctx context.Context, id uuid.UUID) (*store.Job, error) {
	var job store.Job
	if err := c.do(ctx, http.MethodGet, "/api/v1/jobs/"+id.String(), nil, &job); err != nil {
		return nil, err
	}
	return &job, nil
}

// UpdateJobStatus transitions a job.
func (c *Client) UpdateJobStatus(ctx context.Context, id uuid.UUID, status store.JobStatus) (*store.Job, error) {
	var job store.Job
	body := map[string]store.JobStatus{"status": status}
	if err := c.do(ctx, http.MethodPut, "/api/v1/jobs/"+id.String()+"/status", body, &job); err != nil {
		return nil, err
	}
	return &job, nil
}

// KillJob kills a job's process and returns it to pending.
func (c *Client) KillJob(ctx context.Context, id uuid.UUID) (*store.Job, error) {
	var job store.Job
	if err := c.do(ctx, http.MethodPost, "/api/v1/jobs/"+id.String()+"/kill", nil, &job); err != nil {
		return nil, err
	}
	return &job, nil
}

// DeleteJob removes a job.
func (c *Client) DeleteJob(ctx context.Context, id uuid.UUID) error {
	return c.do(ctx, http.MethodDelete, "/api/v1/jobs/"+id.String(), nil, nil)
}

// JobLog fetches the plain-text log of a job's first attempt.
func (c *Client) JobLog(ctx context.Context, id uuid.UUID) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/v1/jobs/"+id.String()+"/log", nil)
	if err != nil {
		return "", err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	if resp.StatusCode != http.StatusOK {
		return "", &apiError{Status: resp.StatusCode, Message: strings.TrimSpace(string(data))}
	}
	return string(data), nil
}

// PushJobs asks the server to re-broadcast the current snapshot.
// Fire-and-forget from the caller's perspective; the error is only
// useful for logging.
func (c *Client) PushJobs(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/api/v1/jobs/push-jobs-to-websocket", nil, nil)
}

// ConsumerResult is the per-queue outcome of a start/stop request.
type ConsumerResult struct {
	Status map[string]bool   `json:"status"`
	Errors map[string]string `json:"errors,omitempty"`
}

// ConsumerStatus reports per-queue consumer liveness.
func (c *Client) ConsumerStatus(ctx context.Context) (map[string]bool, error) {
	var status map[string]bool
	if err := c.do(ctx, http.MethodGet, "/api/v1/jobs/consumer-status", nil, &status); err != nil {
		return nil, err
	}
	return status, nil
}

// StartConsumer starts one queue's consumer, or all when queue is empty.
func (c *Client) StartConsumer(ctx context.Context, queue string) (*ConsumerResult, error) {
	var result ConsumerResult
	body := map[string]string{"queue_name": queue}
	if err := c.do(ctx, http.MethodPost, "/api/v1/jobs/start-consumer", body, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// StopConsumer stops one queue's consumer, or all when queue is empty.
func (c *Client) StopConsumer(ctx context.Context, queue string) (*ConsumerResult, error) {
	var result ConsumerResult
	body := map[string]string{"queue_name": queue}
	if err := c.do(ctx, http.MethodPost, "/api/v1/jobs/stop-consumer", body, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// CreateScheduler submits a new job scheduler.
func (c *Client) CreateScheduler(ctx context.Context, sched *store.JobScheduler) (*store.JobScheduler, error) {
	var created store.JobScheduler
	if err := c.do(ctx, http.MethodPost, "/api/v1/job-schedulers/", sched, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

// ListSchedulers fetches all schedulers.
func (c *Client) ListSchedulers(ctx context.Context) ([]*store.JobScheduler, error) {
	var schedulers []*store.JobScheduler
	if err := c.do(ctx, http.MethodGet, "/api/v1/job-schedulers/", nil, &schedulers); err != nil {
		return nil, err
	}
	return schedulers, nil
}

// ToggleScheduler flips a scheduler's enabled flag.
func (c *Client) ToggleScheduler(ctx context.Context, id uuid.UUID) (*store.JobScheduler, error) {
	var sched store.JobScheduler
	if err := c.do(ctx, http.MethodPost, "/api/v1/job-schedulers/"+id.String()+"/toggle", nil, &sched); err != nil {
		return nil, err
	}
	return &sched, nil
}

// DeleteScheduler removes a scheduler.
func (c *Client) DeleteScheduler(ctx context.Context, id uuid.UUID) error {
	return c.do(ctx, http.MethodDelete, "/api/v1/job-schedulers/"+id.String(), nil, nil)
}
