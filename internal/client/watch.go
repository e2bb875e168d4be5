package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/gorilla/websocket"

	"github.com/mpreston/jobq/internal/store"
)

// Snapshot mirrors the server's push frame.
type Snapshot struct {
	Jobs           []*store.Job    `json:"jobs"`
	ConsumerStatus map[string]bool `json:"consumer_status"`
}

// Watcher is a WebSocket subscription to the job-queue push channel.
type Watcher struct {
	conn *websocket.Conn
}

// Watch connects to /ws/job-queue. The first Next call returns the
// initial snapshot.
func (c *Client) Watch(ctx context.Context) (*Watcher, error) {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base url: %w", err)
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/ws/job-queue"

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to connect: %w", err)
	}
	return &Watcher{conn: conn}, nil
}

// Next blocks for the next snapshot frame. Log frames addressed to
// other subscriptions are skipped.
func (w *Watcher) Next() (*Snapshot, error) {
	for {
		_, data, err := w.conn.ReadMessage()
		if err != nil {
			return nil, err
		}

		var probe struct {
			Type string `json:"type"`
		}
		if json.Unmarshal(data, &probe) == nil && probe.Type != "" {
			continue
		}

		var snap Snapshot
		if err := json.Unmarshal(data, &snap); err != nil {
			return nil, fmt.Errorf("malformed snapshot: %w", err)
		}
		return &snap, nil
	}
}

// Close ends the subscription.
func (w *Watcher) Close() error {
	return w.conn.Close()
}
