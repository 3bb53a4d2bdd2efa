package assistant

import "context"

// Turn is one prior exchange sent as conversation context. Role is "user"
// or "model".
type Turn struct {
	Role string
	Text string
}

// Completer produces a reply for a prompt plus optional history. History is
// oldest first and must start with a user turn.
type Completer interface {
	Complete(ctx context.Context, prompt string, history []Turn) (string, error)
}
