package web

import "github.com/mpreston/jobq/internal/store"

// Snapshot is the push frame sent on connect and after every mutation.
type Snapshot struct {
	Jobs           []*store.Job    `json:"jobs"`
	ConsumerStatus map[string]bool `json:"consumer_status"`
}

// ClientMessage is what a WebSocket subscriber may send.
type ClientMessage struct {
	// Type is subscribe_log or subscribe_consumer_log.
	Type string `json:"type"`

	// Topic is a job id for subscribe_log, a queue name for
	// subscribe_consumer_log.
	Topic string `json:"topic"`

	// RetryCount selects the job log attempt; defaults to 0.
	RetryCount int `json:"retry_count"`
}

// LogFrame is a server push for a log subscription.
type LogFrame struct {
	Type    string `json:"type"` // log_update or log_error
	Topic   string `json:"topic"`
	Content string `json:"content,omitempty"`
	Error   string `json:"error,omitempty"`
}

// statusRequest is the body of PUT /jobs/{id}/status.
type statusRequest struct {
	Status store.JobStatus `json:"status"`
}

// consumerRequest is the body of the start/stop consumer endpoints. An
// empty queue name targets every configured queue.
type consumerRequest struct {
	QueueName string `json:"queue_name"`
}

// consumerResult reports the per-queue outcome of a start/stop request.
type consumerResult struct {
	Status map[string]bool   `json:"status"`
	Errors map[string]string `json:"errors,omitempty"`
}

// errorResponse is the JSON error envelope.
type errorResponse struct {
	Error string `json:"error"`
}
