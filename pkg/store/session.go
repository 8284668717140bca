package store

// Turn roles. One round of conversation is a user turn plus its assistant turn.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Turn is one entry of a session's conversational memory.
type Turn struct {
	Role string `json:"role"`
	Text string `json:"text"`
}
