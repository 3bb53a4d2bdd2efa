package models

import "time"

// Message represents a room message. AuthorID is nil for assistant turns.
type Message struct {
	ID            int       `db:"id" json:"id"`
	RoomID        int       `db:"room_id" json:"room_id"`
	AuthorID      *int      `db:"author_id" json:"author_id"`
	Body          string    `db:"body" json:"body"`
	ParentID      *int      `db:"parent_id" json:"parent_id,omitempty"`
	IsCodeSnippet bool      `db:"is_code_snippet" json:"is_code_snippet"`
	Language      string    `db:"language" json:"language,omitempty"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
}

// ParentPreview is the denormalized echo of a thread parent carried on the
// broadcast payload. Nil when the parent is missing or was deleted.
type ParentPreview struct {
	ID         int    `json:"id"`
	AuthorName string `json:"author_name"`
	Body       string `json:"body"`
}

// Reaction is unique per (message, user, emoji); re-adding is an upsert.
type Reaction struct {
	MessageID int       `db:"message_id" json:"message_id"`
	UserID    int       `db:"user_id" json:"user_id"`
	Emoji     string    `db:"emoji" json:"emoji"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}
