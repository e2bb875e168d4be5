package worker

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/mpreston/jobq/internal/store"
)

// apiPostTimeout bounds a type=api_post request.
const apiPostTimeout = 60 * time.Second

// runAPIPost executes a type=api_post job: POST the job's meta as JSON
// to the URL in the command field. A timeout maps to errTimeout, any
// non-2xx response is a failure. The response body lands in the job log.
func (r *Runtime) runAPIPost(ctx context.Context, job *store.Job) error {
	body, err := json.Marshal(job.Meta)
	if err != nil {
		return fmt.Errorf("failed to marshal meta: %w", err)
	}

	reqCtx, cancel := context.WithTimeout(ctx, apiPostTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, job.Command, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		if reqCtx.Err() == context.DeadlineExceeded {
			return fmt.Errorf("%w after %s: %v", errTimeout, apiPostTimeout, err)
		}
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	r.appendJobLog(job, fmt.Sprintf("POST %s -> %s\n%s\n", job.Command, resp.Status, respBody))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("unexpected response status: %s", resp.Status)
	}
	return nil
}
