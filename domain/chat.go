package domain

// Chat roles accepted on the AI route. The conversation history is held by
// the client and resent in full on each request.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

const maxMessageLen = 10000

// ChatMessage is one entry of the client-held conversation history.
type ChatMessage struct {
	ID      string `json:"id,omitempty"`
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ValidMessage reports whether a history entry carries an accepted role and a
// bounded, non-empty content string.
func ValidMessage(m ChatMessage) bool {
	if m.Role != RoleUser && m.Role != RoleAssistant {
		return false
	}
	return m.Content != "" && len(m.Content) <= maxMessageLen
}
