package web

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

// writeWait bounds a single WebSocket write.
const writeWait = 10 * time.Second

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// The API is same-host; the embedding deployment fronts it.
	CheckOrigin: func(*http.Request) bool { return true },
}

// handleWebSocket serves /ws/job-queue. The client gets one snapshot on
// connect and a fresh one after every mutation. It may subscribe to at
// most one log tail at a time; a new subscription replaces the old one.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.WithError(err).Debug("websocket upgrade failed")
		return
	}

	client := NewClient()
	s.hub.Register(client)

	if snap, err := s.snapshot(); err == nil {
		if frame, err := json.Marshal(snap); err == nil {
			client.send <- frame
		}
	} else {
		s.log.WithError(err).Error("failed to send initial snapshot")
	}

	go s.writeLoop(conn, client)
	s.readLoop(r.Context(), conn, client)

	s.hub.Unregister(client)
	close(client.done)
	conn.Close()
}

// writeLoop drains the client's send queue onto the wire until the
// client is done. A write failure ends the loop; the read loop notices
// the closed connection.
func (s *Server) writeLoop(conn *websocket.Conn, client *Client) {
	for {
		select {
		case frame := <-client.send:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				conn.Close()
				return
			}
		case <-client.done:
			conn.WriteControl(websocket.CloseMessage, []byte{}, time.Now().Add(writeWait))
			return
		}
	}
}

// readLoop handles client subscription messages until the connection
// drops. Each subscribe replaces the previous tail.
func (s *Server) readLoop(ctx context.Context, conn *websocket.Conn, client *Client) {
	var cancelTail context.CancelFunc
	defer func() {
		if cancelTail != nil {
			cancelTail()
		}
	}()

	send := func(frame LogFrame) bool {
		data, err := json.Marshal(frame)
		if err != nil {
			return false
		}
		select {
		case <-client.done:
			return false
		case client.send <- data:
			return true
		default:
			// Subscriber cannot keep up; end this tail.
			return false
		}
	}

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}

		var msg ClientMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			s.log.WithError(err).Debug("ignoring malformed websocket message")
			continue
		}

		var path string
		switch msg.Type {
		case "subscribe_log":
			path = s.layout.JobLog(msg.Topic, msg.RetryCount)
		case "subscribe_consumer_log":
			if !s.cfg.HasQueue(msg.Topic) {
				send(LogFrame{Type: "log_error", Topic: msg.Topic, Error: "unknown queue: " + msg.Topic})
				continue
			}
			path = s.layout.ConsumerLog(msg.Topic)
		default:
			s.log.WithField("type", msg.Type).Debug("ignoring unknown websocket message type")
			continue
		}

		if cancelTail != nil {
			cancelTail()
		}
		tailCtx, cancel := context.WithCancel(ctx)
		cancelTail = cancel

		t := &tailer{path: path, topic: msg.Topic, send: send}
		go t.run(tailCtx)
	}
}
