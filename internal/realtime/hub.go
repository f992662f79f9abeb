package realtime

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"github.com/google/uuid"
)

// Hub defaults
const (
	DefaultHeartbeat  = 15 * time.Second
	DefaultBufferSize = 16
)

// Client is one connected SSE stream.
type Client struct {
	ID          uuid.UUID
	PrincipalID uuid.UUID
	Outbound    chan Message

	channels map[string]bool
	done     chan struct{}
	closed   bool
}

// HubOption configures a Hub.
type HubOption func(*Hub)

// WithHeartbeat sets the interval between keep-alive comments.
func WithHeartbeat(d time.Duration) HubOption {
	return func(h *Hub) {
		if d > 0 {
			h.heartbeat = d
		}
	}
}

// WithBufferSize sets the per-client outbound buffer.
func WithBufferSize(n int) HubOption {
	return func(h *Hub) {
		if n > 0 {
			h.bufferSize = n
		}
	}
}

// Hub fans messages out to the clients subscribed to their channel. A
// client whose buffer is full misses the message; queue snapshots are
// complete states, so the next one catches it up.
type Hub struct {
	mu            sync.RWMutex
	logger        *slog.Logger
	subscriptions map[string]map[*Client]bool
	clients       map[*Client]bool
	heartbeat     time.Duration
	bufferSize    int
	closed        bool
}

// NewHub creates an empty Hub.
func NewHub(logger *slog.Logger, opts ...HubOption) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	h := &Hub{
		logger:        logger.With("component", "sse_hub"),
		subscriptions: make(map[string]map[*Client]bool),
		clients:       make(map[*Client]bool),
		heartbeat:     DefaultHeartbeat,
		bufferSize:    DefaultBufferSize,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// NewClient creates a client that is not yet subscribed to anything. After
// Close it returns a client that is already closed.
func (h *Hub) NewClient(principalID uuid.UUID) *Client {
	client := &Client{
		ID:          uuid.New(),
		PrincipalID: principalID,
		Outbound:    make(chan Message, h.bufferSize),
		channels:    make(map[string]bool),
		done:        make(chan struct{}),
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		h.closeLocked(client)
		return client
	}
	h.clients[client] = true
	return client
}

// Subscribe adds client to channel.
func (h *Hub) Subscribe(client *Client, channel string) {
	channel = strings.TrimSpace(channel)
	if channel == "" {
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if client.closed {
		return
	}

	client.channels[channel] = true
	clients, ok := h.subscriptions[channel]
	if !ok {
		clients = make(map[*Client]bool)
		h.subscriptions[channel] = clients
	}
	clients[client] = true
	h.logger.Debug("sse client subscribed", "client_id", client.ID, "channel", channel)
}

// Broadcast delivers msg to every subscriber of msg.Channel without blocking.
func (h *Hub) Broadcast(msg Message) {
	if msg.Channel == "" {
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.subscriptions[msg.Channel] {
		h.deliver(c, msg)
	}
}

// Send delivers msg to one client, ignoring its channel.
func (h *Hub) Send(client *Client, msg Message) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if !client.closed {
		h.deliver(client, msg)
	}
}

// deliver must be called with h.mu held.
func (h *Hub) deliver(c *Client, msg Message) {
	select {
	case c.Outbound <- msg:
	default:
		h.logger.Warn("dropping sse message; outbound buffer full",
			"client_id", c.ID,
			"channel", msg.Channel,
			"event", msg.Event)
	}
}

// Subscribers returns the number of clients on channel.
func (h *Hub) Subscribers(channel string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscriptions[channel])
}

// CloseClient unsubscribes client everywhere and closes its outbound
// channel. It is safe to call more than once.
func (h *Hub) CloseClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closeLocked(client)
}

// Close closes every client, ending their Serve loops, and makes later
// clients start closed. Register it with http.Server.RegisterOnShutdown so
// open streams do not hold up a graceful shutdown.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	n := len(h.clients)
	for c := range h.clients {
		h.closeLocked(c)
	}
	h.logger.Info("sse hub closed", "clients", n)
}

// closeLocked must be called with h.mu held.
func (h *Hub) closeLocked(client *Client) {
	if client.closed {
		return
	}
	client.closed = true
	delete(h.clients, client)

	for ch := range client.channels {
		if subs, ok := h.subscriptions[ch]; ok {
			delete(subs, client)
			if len(subs) == 0 {
				delete(h.subscriptions, ch)
			}
		}
	}
	client.channels = make(map[string]bool)
	close(client.done)
	close(client.Outbound)
	h.logger.Debug("sse client closed", "client_id", client.ID)
}

// Serve streams the client's messages until the request ends or the client
// is closed.
func (h *Hub) Serve(w http.ResponseWriter, r *http.Request, client *Client) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	heartbeat := time.NewTicker(h.heartbeat)
	defer heartbeat.Stop()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			h.logger.Debug("sse request done", "client_id", client.ID, "error", ctx.Err())
			return
		case <-client.done:
			return
		case <-heartbeat.C:
			_, _ = fmt.Fprint(w, ": ping\n\n")
			flusher.Flush()
		case msg, ok := <-client.Outbound:
			if !ok {
				return
			}
			data, err := sonic.Marshal(msg)
			if err != nil {
				h.logger.Warn("failed to encode sse message", "error", err, "event", msg.Event)
				continue
			}
			_, _ = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", msg.Event, data)
			flusher.Flush()
		}
	}
}
