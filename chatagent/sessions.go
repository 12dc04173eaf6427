package chatagent

import "context"

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Turn is one entry of a session's conversation history.
type Turn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Sessions stores per-session conversation history. The agent is the only
// writer; implementations just need to be safe for concurrent use across
// sessions.
type Sessions interface {
	Append(ctx context.Context, sessionId string, turns ...Turn) error
	History(ctx context.Context, sessionId string) ([]Turn, error)
	Clear(ctx context.Context, sessionId string) error
}
