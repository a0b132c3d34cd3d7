package ws

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/wozlab/woz-relay/internal/service/relay"
	"github.com/wozlab/woz-relay/internal/telemetry"
)

const (
	// Inbound frames carry inline base64 images, so the transport cap is
	// well above gorilla's default.
	maxPayloadBytes = 25 << 20
	readTimeout     = 60 * time.Second
)

// Handler upgrades connections and feeds their frames to the relay service.
type Handler struct {
	relay    *relay.Service
	metrics  *telemetry.Metrics
	upgrader websocket.Upgrader
}

// New creates the websocket handler.
func New(relaySvc *relay.Service, metrics *telemetry.Metrics) *Handler {
	return &Handler{
		relay:   relaySvc,
		metrics: metrics,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
}

// RegisterRoutes mounts the websocket endpoint.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/ws", h.handleSocket)
}

// inboundEvent is one client-to-server frame. ackId, when non-zero, asks
// for an ack frame answering this event.
type inboundEvent struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
	AckID int64           `json:"ackId"`
}

type joinPayload struct {
	SessionID string `json:"sessionId"`
	Role      string `json:"role"`
}

type sendPayload struct {
	SessionID    string `json:"sessionId"`
	Role         string `json:"role"`
	Message      string `json:"message"`
	Tone         string `json:"tone"`
	ImageDataURL string `json:"imageDataUrl"`
	ImageName    string `json:"imageName"`
}

type updateLogRowPayload struct {
	SessionID string  `json:"sessionId"`
	LogID     string  `json:"logId"`
	Notes     *string `json:"notes"`
}

type resetPayload struct {
	SessionID string `json:"sessionId"`
}

func (h *Handler) handleSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("websocket upgrade failed", "error", err)
		return
	}

	client := relay.NewClient(conn)
	h.metrics.ConnectionOpened(r.Context())
	defer func() {
		h.relay.Leave(client)
		client.Close()
		h.metrics.ConnectionClosed(r.Context())
	}()

	conn.SetReadLimit(maxPayloadBytes)
	conn.SetReadDeadline(time.Now().Add(readTimeout))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(readTimeout))
		return nil
	})

	for {
		var ev inboundEvent
		if err := conn.ReadJSON(&ev); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseNormalClosure) {
				slog.Warn("websocket read failed", "error", err)
			}
			return
		}
		conn.SetReadDeadline(time.Now().Add(readTimeout))
		h.dispatch(r, client, ev)
	}
}

// dispatch routes one frame. A panic in any handler must not take the
// process down; it is converted into a failed ack where one was requested.
func (h *Handler) dispatch(r *http.Request, client *relay.Client, ev inboundEvent) {
	defer func() {
		if rec := recover(); rec != nil {
			slog.Error("event handler panic", "event", ev.Event, "panic", rec)
			if ev.Event == relay.EventSendMessage && ev.AckID != 0 {
				client.Ack(ev.AckID, false, "Send failed")
			}
		}
	}()

	switch ev.Event {
	case relay.EventJoin:
		var p joinPayload
		if err := json.Unmarshal(ev.Data, &p); err != nil {
			return
		}
		// Malformed joins are dropped without feedback.
		_ = h.relay.Join(client, p.SessionID, p.Role)

	case relay.EventSendMessage:
		var p sendPayload
		if err := json.Unmarshal(ev.Data, &p); err != nil {
			if ev.AckID != 0 {
				client.Ack(ev.AckID, false, "Send failed")
			}
			return
		}
		_, err := h.relay.SendMessage(r.Context(), relay.SendParams{
			SessionID:    p.SessionID,
			Role:         p.Role,
			Message:      p.Message,
			Tone:         p.Tone,
			ImageDataURL: p.ImageDataURL,
			ImageName:    p.ImageName,
		})
		if ev.AckID != 0 {
			if err != nil {
				client.Ack(ev.AckID, false, ackText(err))
			} else {
				client.Ack(ev.AckID, true, "")
			}
		}

	case relay.EventUpdateLogRow:
		var p updateLogRowPayload
		if err := json.Unmarshal(ev.Data, &p); err != nil {
			return
		}
		// Best-effort UI signal: failures are silent by design.
		_ = h.relay.UpdateLogRow(r.Context(), p.SessionID, p.LogID, p.Notes)

	case relay.EventResetSession:
		var p resetPayload
		if err := json.Unmarshal(ev.Data, &p); err != nil {
			return
		}
		_ = h.relay.ResetSession(r.Context(), p.SessionID)

	default:
		slog.Debug("ignoring unknown event", "event", ev.Event)
	}
}

func ackText(err error) string {
	switch {
	case errors.Is(err, relay.ErrInvalidRequest):
		return "Missing sessionId or role"
	case errors.Is(err, relay.ErrEmptyMessage):
		return "Empty message"
	}
	return "Send failed"
}
