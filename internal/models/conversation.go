package models

// Role identifies who produced a turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// HistoryWindow is the number of turns kept per user.
const HistoryWindow = 20

// Turn is one message in a conversation.
type Turn struct {
	Role Role   `json:"role"`
	Text string `json:"text"`
}

// TruncateHistory returns the most recent n turns, oldest first.
// The returned slice never aliases turns.
func TruncateHistory(turns []Turn, n int) []Turn {
	if n < 0 {
		n = 0
	}
	start := 0
	if len(turns) > n {
		start = len(turns) - n
	}
	out := make([]Turn, len(turns)-start)
	copy(out, turns[start:])
	return out
}
