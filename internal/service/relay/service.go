package relay

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	model "github.com/wozlab/woz-relay/internal/model/session"
	sessionstore "github.com/wozlab/woz-relay/internal/store/session"
	"github.com/wozlab/woz-relay/internal/telemetry"
)

var (
	ErrInvalidRequest = errors.New("missing required fields")
	ErrEmptyMessage   = errors.New("empty message")
	ErrUnknownLogRow  = errors.New("unknown log row")
)

// DefaultTone is applied to wizard messages sent without one.
const DefaultTone = "Supportive"

const imageDataPrefix = "data:image/"

// Service is the protocol core: it owns the ordering of session mutations
// and their broadcasts. A single mutex serializes operations across all
// sessions (traffic is a handful of researchers, not a fleet), which keeps
// the notes-mirroring and append/log-row pairing atomic and makes broadcast
// order equal mutation order.
type Service struct {
	mu      sync.Mutex
	store   *sessionstore.Store
	hub     *Hub
	metrics *telemetry.Metrics
}

// NewService wires the relay over an injected store and hub.
func NewService(store *sessionstore.Store, hub *Hub, metrics *telemetry.Metrics) *Service {
	return &Service{store: store, hub: hub, metrics: metrics}
}

// Hub exposes the broadcast groups, for connection registration.
func (s *Service) Hub() *Hub {
	return s.hub
}

// Join adds the client to the session's broadcast group and sends it a full
// state snapshot. Malformed joins change nothing.
func (s *Service) Join(c *Client, sessionID, role string) error {
	if sessionID == "" {
		return ErrInvalidRequest
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.hub.Add(sessionID, c)
	snap := s.store.GetOrCreate(sessionID)
	c.Send(Event{Event: EventState, Data: snap})
	s.store.Touch(sessionID)
	return nil
}

// SendParams carries one send_message request.
type SendParams struct {
	SessionID    string
	Role         string
	Message      string
	Tone         string
	ImageDataURL string
	ImageName    string
}

// SendMessage validates and appends a transcript message, synthesizing the
// linked log row for wizard replies, then broadcasts the new message and the
// full log to the session's group.
func (s *Service) SendMessage(ctx context.Context, p SendParams) (model.Message, error) {
	if p.SessionID == "" || p.Role == "" {
		return model.Message{}, ErrInvalidRequest
	}

	trimmed := strings.TrimSpace(p.Message)
	hasImage := strings.HasPrefix(p.ImageDataURL, imageDataPrefix)
	if trimmed == "" && !hasImage {
		return model.Message{}, ErrEmptyMessage
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	msg := model.Message{
		ID:        newID("m"),
		Timestamp: time.Now().UnixMilli(),
		Role:      model.Role(p.Role),
		Message:   trimmed,
	}
	if hasImage {
		msg.ImageDataURL = p.ImageDataURL
		msg.ImageName = p.ImageName
	}

	var row *model.LogRow
	if msg.Role == model.RoleWizard {
		tone := p.Tone
		if tone == "" {
			tone = DefaultTone
		}
		msg.Tone = tone
		row = &model.LogRow{
			ID:              newID("l"),
			Timestamp:       msg.Timestamp,
			UserMessage:     s.store.LastParticipantText(p.SessionID),
			Response:        msg.Message,
			ImageName:       msg.ImageName,
			Tone:            tone,
			Notes:           "",
			WizardMessageID: msg.ID,
		}
	}

	snap := s.store.Append(p.SessionID, msg, row)

	s.hub.Broadcast(p.SessionID, Event{Event: EventMessage, Data: msg})
	s.hub.Broadcast(p.SessionID, Event{Event: EventLogUpdate, Data: snap.Log})
	s.metrics.MessageRelayed(ctx, p.Role)
	return msg, nil
}

// StatePatch is a partial session update pushed after a log-row edit.
type StatePatch struct {
	Transcript []model.Message `json:"transcript"`
}

// UpdateLogRow overwrites a log row's notes and mirrors them onto the linked
// wizard transcript message, then broadcasts the full log and a transcript
// patch. Unknown rows are reported but cause no broadcast.
func (s *Service) UpdateLogRow(ctx context.Context, sessionID, logID string, notes *string) error {
	if sessionID == "" || logID == "" {
		return ErrInvalidRequest
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	snap, ok := s.store.SetNotes(sessionID, logID, notes)
	if !ok {
		return ErrUnknownLogRow
	}

	s.hub.Broadcast(sessionID, Event{Event: EventLogUpdate, Data: snap.Log})
	s.hub.Broadcast(sessionID, Event{Event: EventStatePatch, Data: StatePatch{Transcript: snap.Transcript}})
	s.metrics.LogRowEdited(ctx)
	return nil
}

// ResetSession discards the session's transcript and log and broadcasts the
// fresh empty state.
func (s *Service) ResetSession(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return ErrInvalidRequest
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	snap := s.store.Reset(sessionID)
	s.hub.Broadcast(sessionID, Event{Event: EventState, Data: snap})
	s.metrics.SessionReset(ctx)
	return nil
}

// Leave drops the client from every broadcast group. Session data stays.
func (s *Service) Leave(c *Client) {
	s.hub.Remove(c)
}

// newID returns a prefixed ULID. ULIDs sort by creation time, which lines
// up with the transcript's server-order invariant.
func newID(prefix string) string {
	return prefix + "_" + ulid.Make().String()
}
