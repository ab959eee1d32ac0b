package conversation

// Role identifies which side of the conversation produced a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is a single turn. Immutable once appended to a session.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Part is an inline multimodal attachment supplied alongside a prompt.
// Data carries the payload base64-encoded.
type Part struct {
	Type     string `json:"type"`
	MimeType string `json:"mimeType,omitempty"`
	Data     string `json:"data,omitempty"`
	Text     string `json:"text,omitempty"`
}
