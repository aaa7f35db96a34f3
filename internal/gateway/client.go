package gateway

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"pricewatch/internal/model"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 30 * time.Second
)

// Client represents a single WebSocket peer.
type Client struct {
	conn *websocket.Conn
	send chan []byte
	hub  *Hub

	// Symbols the client wants; empty means all.
	subMu   sync.RWMutex
	symbols map[string]bool
}

// ClientMsg is a control message sent by a client.
//
//	{"type":"SUBSCRIBE","symbols":["AAPL"]}
//	{"type":"UNSUBSCRIBE","symbols":["AAPL"]}
//	{"type":"PING","ping":1717250000000}
type ClientMsg struct {
	Type    string   `json:"type"`
	Symbols []string `json:"symbols,omitempty"`
	Ping    int64    `json:"ping,omitempty"`
}

type serverMsg struct {
	Type    string   `json:"type"`
	Symbols []string `json:"symbols,omitempty"`
	Ping    int64    `json:"ping,omitempty"`
	Error   string   `json:"error,omitempty"`
}

func newClient(h *Hub, conn *websocket.Conn) *Client {
	return &Client{
		conn:    conn,
		send:    make(chan []byte, clientSendBuffer),
		hub:     h,
		symbols: make(map[string]bool),
	}
}

func (c *Client) wants(symbol string) bool {
	c.subMu.RLock()
	defer c.subMu.RUnlock()
	return len(c.symbols) == 0 || c.symbols[symbol]
}

func (c *Client) subscribe(symbols []string) {
	c.subMu.Lock()
	defer c.subMu.Unlock()
	for _, s := range symbols {
		if sym := model.NormalizeSymbol(s); sym != "" {
			c.symbols[sym] = true
		}
	}
}

func (c *Client) unsubscribe(symbols []string) {
	c.subMu.Lock()
	defer c.subMu.Unlock()
	for _, s := range symbols {
		delete(c.symbols, model.NormalizeSymbol(s))
	}
}

func (c *Client) subscribed() []string {
	c.subMu.RLock()
	defer c.subMu.RUnlock()
	out := make([]string, 0, len(c.symbols))
	for s := range c.symbols {
		out = append(out, s)
	}
	return out
}

// reply queues a control response. It must not be called after the hub
// closed c.send, so it goes through the hub lock.
func (c *Client) reply(m serverMsg) {
	data, _ := json.Marshal(m)
	c.hub.mu.RLock()
	defer c.hub.mu.RUnlock()
	if _, ok := c.hub.clients[c]; !ok {
		return
	}
	select {
	case c.send <- data:
	default:
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *Client) readPump() {
	defer func() {
		c.hub.RemoveClient(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(4096)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, msg, err := c.conn.ReadMessage()
		if err != nil {
			return
		}

		var m ClientMsg
		if err := json.Unmarshal(msg, &m); err != nil {
			c.reply(serverMsg{Type: "ERROR", Error: "invalid JSON"})
			continue
		}

		switch m.Type {
		case "SUBSCRIBE":
			c.subscribe(m.Symbols)
			c.reply(serverMsg{Type: "SUBSCRIBED", Symbols: c.subscribed()})
		case "UNSUBSCRIBE":
			c.unsubscribe(m.Symbols)
			c.reply(serverMsg{Type: "UNSUBSCRIBED", Symbols: m.Symbols})
		case "PING":
			c.reply(serverMsg{Type: "PONG", Ping: m.Ping})
		default:
			c.reply(serverMsg{Type: "ERROR", Error: "unknown message type " + m.Type})
		}
	}
}
