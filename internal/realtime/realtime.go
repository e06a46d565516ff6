// Package realtime is the collaboration fabric's broadcast primitive
// (spec.md §4.G): an in-process hub fanning messages out to per-channel
// subscriber sets, generalized from the teacher's internal/sse.SSEHub to
// the project/item channel split this module needs instead of the
// teacher's per-user channel.
package realtime

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/pierdell/mediaforge-backend/internal/platform/logger"
)

// SSEEvent names a server-emitted notification kind (spec.md §4.G).
type SSEEvent string

const (
	SSEEventJobCreated      SSEEvent = "JobCreated"
	SSEEventJobProgress     SSEEvent = "JobProgress"
	SSEEventJobFailed       SSEEvent = "JobFailed"
	SSEEventJobDone         SSEEvent = "JobDone"
	SSEEventUserJoined      SSEEvent = "user_joined"
	SSEEventUserLeft        SSEEvent = "user_left"
	SSEEventAnnotatorJoined SSEEvent = "annotator_joined"
	SSEEventAnnotatorLeft   SSEEvent = "annotator_left"
	SSEEventIndexingProgress SSEEvent = "indexing_progress"
	SSEEventMediaUploaded   SSEEvent = "media_uploaded"
	SSEEventAutoCategorized SSEEvent = "auto_categorized"
)

// SSEMessage is the envelope broadcast to every subscriber of a channel.
type SSEMessage struct {
	Channel   string   `json:"channel"`
	Event     SSEEvent `json:"event"`
	Data      any      `json:"data,omitempty"`
	TraceID   string   `json:"trace_id,omitempty"`
	RequestID string   `json:"request_id,omitempty"`
}

// SSEClient is one subscriber's outbound queue. UserID is the
// authenticated principal the client connected as; Channels tracks which
// channel_ids it currently belongs to so RemoveClient can unwind cleanly.
type SSEClient struct {
	ID       uuid.UUID
	UserID   uuid.UUID
	Channels map[string]bool
	Outbound chan SSEMessage
	done     chan struct{}
	Logger   *logger.Logger
}

// SSEHub is the {channel_id -> {client -> bool}} broadcast map (spec.md
// §9 "Broadcast model"). Broadcasts snapshot membership under the read
// lock and release it before sending, so no lock is held across the
// client's outbound channel send.
type SSEHub struct {
	mu            sync.RWMutex
	logger        *logger.Logger
	subscriptions map[string]map[*SSEClient]bool
}

func NewSSEHub(log *logger.Logger) *SSEHub {
	return &SSEHub{
		logger:        log.With("component", "SSEHub"),
		subscriptions: make(map[string]map[*SSEClient]bool),
	}
}

func (hub *SSEHub) NewSSEClient(userID uuid.UUID) *SSEClient {
	return &SSEClient{
		ID:       uuid.New(),
		UserID:   userID,
		Channels: make(map[string]bool),
		Outbound: make(chan SSEMessage, 16),
		done:     make(chan struct{}),
		Logger:   hub.logger,
	}
}

func (hub *SSEHub) AddChannel(client *SSEClient, channel string) {
	channel = strings.TrimSpace(channel)
	if channel == "" {
		return
	}
	hub.mu.Lock()
	defer hub.mu.Unlock()

	client.Channels[channel] = true
	clients, exists := hub.subscriptions[channel]
	if !exists {
		clients = make(map[*SSEClient]bool)
		hub.subscriptions[channel] = clients
	}
	clients[client] = true
	hub.logger.Debug("client subscribed", "client_id", client.ID, "channel", channel)
}

func (hub *SSEHub) RemoveChannel(client *SSEClient, channel string) {
	channel = strings.TrimSpace(channel)
	if channel == "" {
		return
	}
	hub.mu.Lock()
	defer hub.mu.Unlock()

	delete(client.Channels, channel)
	if subMap, ok := hub.subscriptions[channel]; ok {
		delete(subMap, client)
		if len(subMap) == 0 {
			delete(hub.subscriptions, channel)
		}
	}
}

func (hub *SSEHub) RemoveClient(client *SSEClient) {
	hub.mu.Lock()
	defer hub.mu.Unlock()

	for ch := range client.Channels {
		if subMap, ok := hub.subscriptions[ch]; ok {
			delete(subMap, client)
			if len(subMap) == 0 {
				delete(hub.subscriptions, ch)
			}
		}
	}
	client.Channels = make(map[string]bool)
}

// Broadcast delivers msg to every current subscriber of msg.Channel. A
// full outbound buffer drops the message for that one client rather
// than blocking the broadcaster (spec.md §9 "dead sessions ... reaped
// after the iteration").
func (hub *SSEHub) Broadcast(msg SSEMessage) {
	if msg.Channel == "" {
		return
	}
	hub.mu.RLock()
	clientsMap, ok := hub.subscriptions[msg.Channel]
	if !ok {
		hub.mu.RUnlock()
		return
	}
	snapshot := make([]*SSEClient, 0, len(clientsMap))
	for c := range clientsMap {
		snapshot = append(snapshot, c)
	}
	hub.mu.RUnlock()

	for _, c := range snapshot {
		select {
		case c.Outbound <- msg:
		default:
			hub.logger.Warn("dropping message; outbound buffer full", "client_id", c.ID)
		}
	}
}

// CloseClient tears down a client's outbound queue and removes it from
// every channel it belonged to.
func (hub *SSEHub) CloseClient(client *SSEClient) {
	close(client.done)
	hub.RemoveClient(client)
	close(client.Outbound)
}

// ServeSSE drains client.Outbound onto an HTTP response as an
// event-stream, used by transports that prefer one-way SSE over the
// bidirectional WebSocket collaboration endpoints.
func (hub *SSEHub) ServeSSE(w http.ResponseWriter, r *http.Request, client *SSEClient) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}
	ctx := r.Context()

	heartbeat := time.NewTicker(15 * time.Second)
	defer heartbeat.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-client.done:
			return
		case <-heartbeat.C:
			fmt.Fprint(w, ": ping\n\n")
			flusher.Flush()
		case msg, ok := <-client.Outbound:
			if !ok {
				return
			}
			fmt.Fprint(w, "event: message\n")
			fmt.Fprintf(w, "data: %s\n\n", mustJSON(msg))
			flusher.Flush()
		}
	}
}

func mustJSON(msg SSEMessage) string {
	raw, err := json.Marshal(msg)
	if err != nil {
		return "{}"
	}
	return string(raw)
}
