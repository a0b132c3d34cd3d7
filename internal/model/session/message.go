package session

// Message is one transcript entry. Timestamps are assigned by the server at
// acceptance time, so array order is chronological order.
type Message struct {
	ID           string `json:"id"`
	Timestamp    int64  `json:"timestamp"`
	Role         Role   `json:"role"`
	Message      string `json:"message"`
	Tone         string `json:"tone,omitempty"`
	Notes        string `json:"notes,omitempty"`
	ImageDataURL string `json:"imageDataUrl,omitempty"`
	ImageName    string `json:"imageName,omitempty"`
}

// LogRow pairs a wizard reply with the participant message that triggered
// it. WizardMessageID is a lookup key into the transcript, not an owning
// reference.
type LogRow struct {
	ID              string `json:"id"`
	Timestamp       int64  `json:"timestamp"`
	UserMessage     string `json:"userMessage"`
	Response        string `json:"response"`
	ImageName       string `json:"imageName,omitempty"`
	Tone            string `json:"tone"`
	Notes           string `json:"notes"`
	WizardMessageID string `json:"wizardMessageId"`
}
