package gateway

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"sync"

	"github.com/gorilla/websocket"

	"pricewatch/internal/model"
)

const clientSendBuffer = 256

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Envelope is what clients receive: a tracker event stamped with a
// hub-wide monotonic sequence number for gap detection.
type Envelope struct {
	Seq int64 `json:"seq"`
	model.Event
}

// Hub fans tracker events out to WebSocket clients.
type Hub struct {
	mu      sync.RWMutex
	clients map[*Client]struct{}
	seq     int64
	closed  bool

	replay *ReplayBuffer

	// OnClients is called with the client count whenever it changes.
	OnClients func(n int)
}

// NewHub creates a hub keeping the last replaySize envelopes for
// reconnecting clients.
func NewHub(replaySize int) *Hub {
	return &Hub{
		clients: make(map[*Client]struct{}),
		replay:  NewReplayBuffer(replaySize),
	}
}

// Run broadcasts events until ctx is cancelled or events is closed, then
// disconnects every client.
func (h *Hub) Run(ctx context.Context, events <-chan model.Event) {
	defer h.Close()
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			h.broadcast(ev)
		}
	}
}

func (h *Hub) broadcast(ev model.Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}

	h.seq++
	data, err := json.Marshal(Envelope{Seq: h.seq, Event: ev})
	if err != nil {
		slog.Error("[gateway] marshal envelope", "error", err)
		return
	}
	h.replay.Push(h.seq, ev.Symbol, data)

	for c := range h.clients {
		if !c.wants(ev.Symbol) {
			continue
		}
		select {
		case c.send <- data:
		default:
			slog.Warn("[gateway] ws client too slow, dropping message", "seq", h.seq)
		}
	}
}

// ServeWS upgrades the request and registers the client. Query parameters:
// symbols (comma separated filter, default all) and since_seq (replay the
// buffered envelopes after this sequence number).
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	var since int64 = -1
	if s := r.URL.Query().Get("since_seq"); s != "" {
		v, err := strconv.ParseInt(s, 10, 64)
		if err != nil || v < 0 {
			writeError(w, http.StatusBadRequest, "since_seq must be a non-negative integer")
			return
		}
		since = v
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("[gateway] ws upgrade error", "error", err)
		return
	}

	c := newClient(h, conn)
	if s := r.URL.Query().Get("symbols"); s != "" {
		c.subscribe(strings.Split(s, ","))
	}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		conn.Close()
		return
	}
	h.clients[c] = struct{}{}
	n := len(h.clients)
	if since >= 0 {
		// Queued under the lock so live events follow the replay in order.
		for _, e := range h.replay.After(since) {
			if !c.wants(e.Symbol) {
				continue
			}
			select {
			case c.send <- e.Data:
			default:
			}
		}
	}
	h.clientsChanged(n)
	h.mu.Unlock()

	slog.Info("[gateway] ws client connected", "clients", n)

	go c.writePump()
	go c.readPump()
}

// Clients returns the number of connected clients.
func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Seq returns the sequence number of the last broadcast envelope.
func (h *Hub) Seq() int64 {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.seq
}

// RemoveClient removes a client from the hub.
func (h *Hub) RemoveClient(c *Client) {
	h.mu.Lock()
	if _, ok := h.clients[c]; !ok {
		h.mu.Unlock()
		return
	}
	delete(h.clients, c)
	close(c.send)
	n := len(h.clients)
	h.clientsChanged(n)
	h.mu.Unlock()

	slog.Info("[gateway] ws client disconnected", "clients", n)
}

// Close disconnects every client. Later connections are refused.
func (h *Hub) Close() {
	h.mu.Lock()
	h.closed = true
	for c := range h.clients {
		delete(h.clients, c)
		close(c.send)
	}
	h.clientsChanged(0)
	h.mu.Unlock()
}

// clientsChanged must be called with mu held.
func (h *Hub) clientsChanged(n int) {
	if h.OnClients != nil {
		h.OnClients(n)
	}
}
