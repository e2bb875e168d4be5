package web

import "sync"

// Hub tracks WebSocket subscribers and broadcasts marshaled frames.
// It runs an event loop in a separate goroutine.
type Hub struct {
	mu      sync.RWMutex
	clients map[*Client]struct{}

	register   chan *Client
	unregister chan *Client
	broadcast  chan []byte

	done chan struct{}
}

// Client is one connected subscriber. Frames are queued on a buffered
// channel; the connection's writer goroutine drains it until done
// closes. The send channel itself is never closed, so late frames from
// a tail goroutine cannot hit a closed channel.
type Client struct {
	send chan []byte
	done chan struct{}
}

// NewHub creates a hub with initialized channels. Call Run to start the
// event loop.
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*Client]struct{}),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan []byte),
		done:       make(chan struct{}),
	}
}

// Run processes register, unregister, and broadcast operations. Blocks
// until Stop is called; run in a goroutine.
func (h *Hub) Run() {
	for {
		select {
		case <-h.done:
			h.mu.Lock()
			h.clients = make(map[*Client]struct{})
			h.mu.Unlock()
			return
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = struct{}{}
			h.mu.Unlock()
		case client := <-h.unregister:
			h.mu.Lock()
			delete(h.clients, client)
			h.mu.Unlock()
		case frame := <-h.broadcast:
			h.mu.RLock()
			for client := range h.clients {
				select {
				case client.send <- frame:
				default:
					// Buffer full, drop the frame for this client.
				}
			}
			h.mu.RUnlock()
		}
	}
}

// Stop ends the event loop. Connected clients are torn down by their
// own handlers when the listener shuts down.
func (h *Hub) Stop() {
	close(h.done)
}

// Register adds a client to receive broadcasts.
func (h *Hub) Register(c *Client) {
	select {
	case h.register <- c:
	case <-h.done:
	}
}

// Unregister removes a client.
func (h *Hub) Unregister(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

// Broadcast queues a frame for every connected client. A client whose
// buffer is full misses the frame; the next snapshot supersedes it.
func (h *Hub) Broadcast(frame []byte) {
	select {
	case h.broadcast <- frame:
	case <-h.done:
	}
}

// Count returns the number of connected clients.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// NewClient creates a client with a buffered send queue.
func NewClient() *Client {
	return &Client{
		send: make(chan []byte, 256),
		done: make(chan struct{}),
	}
}
