package relay

// Wire event names, client to server.
const (
	EventJoin         = "join"
	EventSendMessage  = "send_message"
	EventUpdateLogRow = "update_log_row"
	EventResetSession = "reset_session"
)

// Wire event names, server to client.
const (
	EventState      = "state"
	EventMessage    = "message"
	EventLogUpdate  = "log_update"
	EventStatePatch = "state_patch"
	EventAck        = "ack"
)

// Event is one server-to-client frame.
type Event struct {
	Event string `json:"event"`
	Data  any    `json:"data,omitempty"`
	AckID int64  `json:"ackId,omitempty"`
}

// AckPayload answers a send_message that carried an ackId.
type AckPayload struct {
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}
