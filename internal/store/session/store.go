package session

import (
	"sort"
	"sync"
	"time"

	model "github.com/wozlab/woz-relay/internal/model/session"
)

// Store is the in-memory session registry. Referencing an unknown id always
// creates an empty session; there is no "not found" path. Sessions are never
// evicted, which is acceptable for a low-traffic research deployment; swap
// in a bounding store here if that ever changes.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*model.Session
}

// NewStore bootstraps an empty in-memory store.
func NewStore() *Store {
	return &Store{sessions: make(map[string]*model.Session)}
}

// GetOrCreate returns a snapshot of the session, registering a fresh empty
// one if the id has not been seen before.
func (s *Store) GetOrCreate(id string) model.Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return snapshot(s.getOrCreateLocked(id))
}

// Reset replaces the session's transcript and log wholesale, keeping the id.
func (s *Store) Reset(id string) model.Session {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UnixMilli()
	sess := &model.Session{
		SessionID:  id,
		Transcript: []model.Message{},
		Log:        []model.LogRow{},
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	s.sessions[id] = sess
	return snapshot(sess)
}

// Touch refreshes the session's updatedAt, creating the session if needed.
func (s *Store) Touch(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.getOrCreateLocked(id).UpdatedAt = time.Now().UnixMilli()
}

// List returns snapshots of every held session, oldest first.
func (s *Store) List() []model.Session {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.Session, 0, len(s.sessions))
	for _, sess := range s.sessions {
		out = append(out, snapshot(sess))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt != out[j].CreatedAt {
			return out[i].CreatedAt < out[j].CreatedAt
		}
		return out[i].SessionID < out[j].SessionID
	})
	return out
}

// Append adds a message, and its log row when one was synthesized, in a
// single critical section. Returns the post-append snapshot.
func (s *Store) Append(id string, msg model.Message, row *model.LogRow) model.Session {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess := s.getOrCreateLocked(id)
	if row != nil {
		sess.Log = append(sess.Log, *row)
	}
	sess.Transcript = append(sess.Transcript, msg)
	sess.UpdatedAt = time.Now().UnixMilli()
	return snapshot(sess)
}

// LastParticipantText returns the text of the most recent participant
// message, or "" when the transcript has none.
func (s *Store) LastParticipantText(id string) string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, ok := s.sessions[id]
	if !ok {
		return ""
	}
	for i := len(sess.Transcript) - 1; i >= 0; i-- {
		if sess.Transcript[i].Role == model.RoleParticipant {
			return sess.Transcript[i].Message
		}
	}
	return ""
}

// SetNotes overwrites a log row's notes and mirrors the resulting value onto
// the linked wizard transcript message, both under one lock so no reader can
// observe the two views disagreeing. A nil notes pointer leaves the row's
// notes as-is but still re-mirrors. Reports false when the row is unknown.
func (s *Store) SetNotes(id, logID string, notes *string) (model.Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess := s.getOrCreateLocked(id)
	var row *model.LogRow
	for i := range sess.Log {
		if sess.Log[i].ID == logID {
			row = &sess.Log[i]
			break
		}
	}
	if row == nil {
		return model.Session{}, false
	}

	if notes != nil {
		row.Notes = *notes
	}
	for i := range sess.Transcript {
		if sess.Transcript[i].ID == row.WizardMessageID {
			sess.Transcript[i].Notes = row.Notes
			break
		}
	}
	sess.UpdatedAt = time.Now().UnixMilli()
	return snapshot(sess), true
}

func (s *Store) getOrCreateLocked(id string) *model.Session {
	if sess, ok := s.sessions[id]; ok {
		return sess
	}
	now := time.Now().UnixMilli()
	sess := &model.Session{
		SessionID:  id,
		Transcript: []model.Message{},
		Log:        []model.LogRow{},
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	s.sessions[id] = sess
	return sess
}

// snapshot copies the session so callers cannot mutate stored state.
func snapshot(sess *model.Session) model.Session {
	out := *sess
	out.Transcript = make([]model.Message, len(sess.Transcript))
	copy(out.Transcript, sess.Transcript)
	out.Log = make([]model.LogRow, len(sess.Log))
	copy(out.Log, sess.Log)
	return out
}
