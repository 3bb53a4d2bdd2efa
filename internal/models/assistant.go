package models

import "time"

// AssistantName is the display name attached to synthetic assistant
// messages, which carry no author id.
const AssistantName = "AI Assistant"

// AssistantSender distinguishes the two sides of a direct assistant
// conversation turn.
type AssistantSender string

const (
	SenderUser      AssistantSender = "user"
	SenderAssistant AssistantSender = "ai"
)

// AssistantTurn is one stored turn of a user's direct assistant history.
type AssistantTurn struct {
	ID        int             `db:"id" json:"id"`
	UserID    int             `db:"user_id" json:"user_id"`
	Sender    AssistantSender `db:"sender" json:"sender"`
	Body      string          `db:"body" json:"body"`
	CreatedAt time.Time       `db:"created_at" json:"created_at"`
}
