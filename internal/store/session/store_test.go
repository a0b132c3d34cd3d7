package session_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	model "github.com/wozlab/woz-relay/internal/model/session"
	store "github.com/wozlab/woz-relay/internal/store/session"
)

func TestGetOrCreateRegistersEmptySession(t *testing.T) {
	s := store.NewStore()

	sess := s.GetOrCreate("s1")
	require.Equal(t, "s1", sess.SessionID)
	assert.Empty(t, sess.Transcript)
	assert.Empty(t, sess.Log)
	assert.Positive(t, sess.CreatedAt)
	assert.Equal(t, sess.CreatedAt, sess.UpdatedAt)

	again := s.GetOrCreate("s1")
	assert.Equal(t, sess.CreatedAt, again.CreatedAt, "second reference must not recreate")
}

func TestResetIsIdempotent(t *testing.T) {
	s := store.NewStore()
	s.Append("s1", model.Message{ID: "m_1", Role: model.RoleParticipant, Message: "Hi"}, nil)

	first := s.Reset("s1")
	require.Equal(t, "s1", first.SessionID)
	assert.Empty(t, first.Transcript)
	assert.Empty(t, first.Log)

	second := s.Reset("s1")
	assert.Equal(t, "s1", second.SessionID)
	assert.Empty(t, second.Transcript)
	assert.Empty(t, second.Log)
}

func TestTouchRefreshesUpdatedAt(t *testing.T) {
	s := store.NewStore()
	sess := s.GetOrCreate("s1")

	s.Touch("s1")
	touched := s.GetOrCreate("s1")
	assert.GreaterOrEqual(t, touched.UpdatedAt, sess.UpdatedAt)
	assert.Equal(t, sess.CreatedAt, touched.CreatedAt)
}

func TestAppendReturnsIsolatedSnapshot(t *testing.T) {
	s := store.NewStore()

	snap := s.Append("s1", model.Message{ID: "m_1", Role: model.RoleParticipant, Message: "Hi"}, nil)
	require.Len(t, snap.Transcript, 1)

	// Mutating the snapshot must not leak into the store.
	snap.Transcript[0].Message = "tampered"
	assert.Equal(t, "Hi", s.GetOrCreate("s1").Transcript[0].Message)
}

func TestAppendPairsMessageAndLogRow(t *testing.T) {
	s := store.NewStore()

	row := &model.LogRow{ID: "l_1", Response: "Sure", WizardMessageID: "m_2"}
	snap := s.Append("s1", model.Message{ID: "m_2", Role: model.RoleWizard, Message: "Sure"}, row)

	require.Len(t, snap.Transcript, 1)
	require.Len(t, snap.Log, 1)
	assert.Equal(t, "m_2", snap.Log[0].WizardMessageID)
}

func TestLastParticipantText(t *testing.T) {
	s := store.NewStore()
	assert.Empty(t, s.LastParticipantText("s1"))

	s.Append("s1", model.Message{ID: "m_1", Role: model.RoleParticipant, Message: "first"}, nil)
	s.Append("s1", model.Message{ID: "m_2", Role: model.RoleParticipant, Message: "second"}, nil)
	s.Append("s1", model.Message{ID: "m_3", Role: model.RoleWizard, Message: "reply"}, nil)

	assert.Equal(t, "second", s.LastParticipantText("s1"))
}

func TestSetNotesMirrorsOntoWizardMessage(t *testing.T) {
	s := store.NewStore()
	row := &model.LogRow{ID: "l_1", Response: "Sure", WizardMessageID: "m_1"}
	s.Append("s1", model.Message{ID: "m_1", Role: model.RoleWizard, Message: "Sure"}, row)

	notes := "flag this"
	snap, ok := s.SetNotes("s1", "l_1", &notes)
	require.True(t, ok)
	assert.Equal(t, "flag this", snap.Log[0].Notes)
	assert.Equal(t, "flag this", snap.Transcript[0].Notes)

	// Nil notes re-mirrors without changing the stored value.
	snap, ok = s.SetNotes("s1", "l_1", nil)
	require.True(t, ok)
	assert.Equal(t, "flag this", snap.Log[0].Notes)
	assert.Equal(t, "flag this", snap.Transcript[0].Notes)
}

func TestSetNotesUnknownRow(t *testing.T) {
	s := store.NewStore()
	notes := "x"
	_, ok := s.SetNotes("s1", "l_missing", &notes)
	assert.False(t, ok)
}

func TestListReturnsAllSessions(t *testing.T) {
	s := store.NewStore()
	s.GetOrCreate("s1")
	s.GetOrCreate("s2")

	sessions := s.List()
	require.Len(t, sessions, 2)
	ids := []string{sessions[0].SessionID, sessions[1].SessionID}
	assert.ElementsMatch(t, []string{"s1", "s2"}, ids)
}
