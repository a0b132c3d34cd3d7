package ws

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	model "github.com/wozlab/woz-relay/internal/model/session"
	"github.com/wozlab/woz-relay/internal/service/relay"
	sessionstore "github.com/wozlab/woz-relay/internal/store/session"
)

type frame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
	AckID int64           `json:"ackId"`
}

func setupServer(t *testing.T) (*httptest.Server, *sessionstore.Store) {
	t.Helper()
	store := sessionstore.NewStore()
	svc := relay.NewService(store, relay.NewHub(), nil)

	r := chi.NewRouter()
	New(svc, nil).RegisterRoutes(r)

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv, store
}

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func send(t *testing.T, conn *websocket.Conn, event string, data any, ackID int64) {
	t.Helper()
	payload, err := json.Marshal(data)
	require.NoError(t, err)
	require.NoError(t, conn.WriteJSON(map[string]any{
		"event": event,
		"data":  json.RawMessage(payload),
		"ackId": ackID,
	}))
}

func readFrame(t *testing.T, conn *websocket.Conn) frame {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var f frame
	require.NoError(t, conn.ReadJSON(&f))
	return f
}

func join(t *testing.T, conn *websocket.Conn, sessionID, role string) model.Session {
	t.Helper()
	send(t, conn, relay.EventJoin, map[string]string{"sessionId": sessionID, "role": role}, 0)
	f := readFrame(t, conn)
	require.Equal(t, relay.EventState, f.Event)
	var snap model.Session
	require.NoError(t, json.Unmarshal(f.Data, &snap))
	return snap
}

func TestJoinReceivesSnapshot(t *testing.T) {
	srv, _ := setupServer(t)
	conn := dial(t, srv)

	snap := join(t, conn, "s1", "participant")
	assert.Equal(t, "s1", snap.SessionID)
	assert.Empty(t, snap.Transcript)
	assert.Empty(t, snap.Log)
}

func TestRelayBetweenParticipantAndWizard(t *testing.T) {
	srv, _ := setupServer(t)
	participant := dial(t, srv)
	wizard := dial(t, srv)
	join(t, participant, "s1", "participant")
	join(t, wizard, "s1", "wizard")

	send(t, participant, relay.EventSendMessage, map[string]string{
		"sessionId": "s1", "role": "participant", "message": "Hi",
	}, 1)

	// Sender sees the broadcast pair, then its ack.
	f := readFrame(t, participant)
	require.Equal(t, relay.EventMessage, f.Event)
	var msg model.Message
	require.NoError(t, json.Unmarshal(f.Data, &msg))
	assert.Equal(t, "Hi", msg.Message)

	require.Equal(t, relay.EventLogUpdate, readFrame(t, participant).Event)

	ack := readFrame(t, participant)
	require.Equal(t, relay.EventAck, ack.Event)
	assert.Equal(t, int64(1), ack.AckID)

	// The wizard receives the same broadcast pair.
	require.Equal(t, relay.EventMessage, readFrame(t, wizard).Event)
	require.Equal(t, relay.EventLogUpdate, readFrame(t, wizard).Event)

	send(t, wizard, relay.EventSendMessage, map[string]string{
		"sessionId": "s1", "role": "wizard", "message": "Sure, try X", "tone": "Engaging",
	}, 2)

	require.Equal(t, relay.EventMessage, readFrame(t, wizard).Event)
	logFrame := readFrame(t, wizard)
	require.Equal(t, relay.EventLogUpdate, logFrame.Event)

	var log []model.LogRow
	require.NoError(t, json.Unmarshal(logFrame.Data, &log))
	require.Len(t, log, 1)
	assert.Equal(t, "Hi", log[0].UserMessage)
	assert.Equal(t, "Sure, try X", log[0].Response)
	assert.Equal(t, "Engaging", log[0].Tone)

	require.Equal(t, relay.EventAck, readFrame(t, wizard).Event)

	require.Equal(t, relay.EventMessage, readFrame(t, participant).Event)
	require.Equal(t, relay.EventLogUpdate, readFrame(t, participant).Event)
}

func TestEmptyMessageGetsFailedAck(t *testing.T) {
	srv, store := setupServer(t)
	conn := dial(t, srv)
	join(t, conn, "s1", "participant")

	send(t, conn, relay.EventSendMessage, map[string]string{
		"sessionId": "s1", "role": "participant", "message": "   ",
	}, 7)

	f := readFrame(t, conn)
	require.Equal(t, relay.EventAck, f.Event, "no broadcast should precede the ack")
	assert.Equal(t, int64(7), f.AckID)

	var ack relay.AckPayload
	require.NoError(t, json.Unmarshal(f.Data, &ack))
	assert.False(t, ack.OK)
	assert.Equal(t, "Empty message", ack.Error)
	assert.Empty(t, store.GetOrCreate("s1").Transcript)
}

func TestUpdateLogRowOverWire(t *testing.T) {
	srv, store := setupServer(t)
	conn := dial(t, srv)
	join(t, conn, "s1", "wizard")

	send(t, conn, relay.EventSendMessage, map[string]string{
		"sessionId": "s1", "role": "wizard", "message": "Sure",
	}, 1)
	require.Equal(t, relay.EventMessage, readFrame(t, conn).Event)
	require.Equal(t, relay.EventLogUpdate, readFrame(t, conn).Event)
	require.Equal(t, relay.EventAck, readFrame(t, conn).Event)

	logID := store.GetOrCreate("s1").Log[0].ID
	send(t, conn, relay.EventUpdateLogRow, map[string]string{
		"sessionId": "s1", "logId": logID, "notes": "flag this",
	}, 0)

	logFrame := readFrame(t, conn)
	require.Equal(t, relay.EventLogUpdate, logFrame.Event)
	var log []model.LogRow
	require.NoError(t, json.Unmarshal(logFrame.Data, &log))
	assert.Equal(t, "flag this", log[0].Notes)

	patchFrame := readFrame(t, conn)
	require.Equal(t, relay.EventStatePatch, patchFrame.Event)
	var patch struct {
		Transcript []model.Message `json:"transcript"`
	}
	require.NoError(t, json.Unmarshal(patchFrame.Data, &patch))
	require.Len(t, patch.Transcript, 1)
	assert.Equal(t, "flag this", patch.Transcript[0].Notes)
}

func TestResetSessionBroadcastsEmptyState(t *testing.T) {
	srv, _ := setupServer(t)
	conn := dial(t, srv)
	join(t, conn, "s1", "wizard")

	send(t, conn, relay.EventSendMessage, map[string]string{
		"sessionId": "s1", "role": "wizard", "message": "Sure",
	}, 1)
	require.Equal(t, relay.EventMessage, readFrame(t, conn).Event)
	require.Equal(t, relay.EventLogUpdate, readFrame(t, conn).Event)
	require.Equal(t, relay.EventAck, readFrame(t, conn).Event)

	send(t, conn, relay.EventResetSession, map[string]string{"sessionId": "s1"}, 0)

	f := readFrame(t, conn)
	require.Equal(t, relay.EventState, f.Event)
	var snap model.Session
	require.NoError(t, json.Unmarshal(f.Data, &snap))
	assert.Equal(t, "s1", snap.SessionID)
	assert.Empty(t, snap.Transcript)
	assert.Empty(t, snap.Log)
}

func TestMalformedJoinIsIgnored(t *testing.T) {
	srv, _ := setupServer(t)
	conn := dial(t, srv)

	// Missing sessionId: dropped without feedback, connection stays usable.
	send(t, conn, relay.EventJoin, map[string]string{"role": "participant"}, 0)

	join(t, conn, "s1", "participant")
}
