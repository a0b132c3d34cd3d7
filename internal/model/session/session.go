package session

// Role identifies which side of the study a message comes from. The join
// layer trusts the value as sent; only send_message semantics branch on it.
type Role string

const (
	RoleParticipant Role = "participant"
	RoleWizard      Role = "wizard"
)

// Session holds one scenario's conversation and its derived research log.
// Timestamps are milliseconds since the Unix epoch.
type Session struct {
	SessionID  string    `json:"sessionId"`
	Transcript []Message `json:"transcript"`
	Log        []LogRow  `json:"log"`
	CreatedAt  int64     `json:"createdAt"`
	UpdatedAt  int64     `json:"updatedAt"`
}
