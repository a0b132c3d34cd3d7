package relay

import (
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	sendBuffer   = 32
	writeTimeout = 10 * time.Second
	pingInterval = 54 * time.Second
)

// Hub tracks which connections are joined to which session. Membership is
// weak: a client is removed when its connection goes away, and nothing else
// is cleaned up.
type Hub struct {
	mu     sync.Mutex
	groups map[string]map[*Client]struct{}
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{groups: make(map[string]map[*Client]struct{})}
}

// Add registers the client into the session's broadcast group.
func (h *Hub) Add(sessionID string, c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	group, ok := h.groups[sessionID]
	if !ok {
		group = make(map[*Client]struct{})
		h.groups[sessionID] = group
	}
	group[c] = struct{}{}
}

// Remove drops the client from every group it joined.
func (h *Hub) Remove(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for sessionID, group := range h.groups {
		delete(group, c)
		if len(group) == 0 {
			delete(h.groups, sessionID)
		}
	}
}

// Broadcast enqueues the event to every client joined to the session,
// including the originator. Delivery is best-effort.
func (h *Hub) Broadcast(sessionID string, ev Event) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for c := range h.groups[sessionID] {
		c.enqueue(ev)
	}
}

// GroupSize reports how many clients are joined to the session.
func (h *Hub) GroupSize(sessionID string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.groups[sessionID])
}

// Client is one websocket connection's sending half. Events are queued onto
// a buffered channel and written by a single pump goroutine, so broadcasts
// never block a mutation and frames from one connection are never
// interleaved.
type Client struct {
	conn *websocket.Conn
	send chan Event
	once sync.Once
}

// NewClient wraps an upgraded connection and starts its write pump.
func NewClient(conn *websocket.Conn) *Client {
	c := &Client{
		conn: conn,
		send: make(chan Event, sendBuffer),
	}
	go c.writePump()
	return c
}

// Send queues a single event for this client only.
func (c *Client) Send(ev Event) {
	c.enqueue(ev)
}

// Ack answers a send_message frame that asked for an acknowledgement.
func (c *Client) Ack(ackID int64, ok bool, errText string) {
	c.enqueue(Event{
		Event: EventAck,
		AckID: ackID,
		Data:  AckPayload{OK: ok, Error: errText},
	})
}

// Close stops the write pump. Safe to call more than once.
func (c *Client) Close() {
	c.once.Do(func() {
		close(c.send)
	})
}

func (c *Client) enqueue(ev Event) {
	defer func() {
		// A racing Close can close the channel under us; the frame is
		// best-effort, so swallow the send-on-closed panic.
		_ = recover()
	}()
	select {
	case c.send <- ev:
	default:
		slog.Warn("dropping event for slow client", "event", ev.Event)
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		if c.conn != nil {
			c.conn.Close()
		}
	}()

	for {
		select {
		case ev, ok := <-c.send:
			if !ok {
				if c.conn != nil {
					c.conn.WriteMessage(websocket.CloseMessage, nil)
				}
				return
			}
			if c.conn == nil {
				continue
			}
			c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := c.conn.WriteJSON(ev); err != nil {
				slog.Warn("websocket write failed", "event", ev.Event, "error", err)
				return
			}
		case <-ticker.C:
			if c.conn == nil {
				continue
			}
			c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
