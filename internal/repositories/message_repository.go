package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"syncroom-service/internal/models"
)

var ErrMessageNotFound = errors.New("message not found")

// MessageRepository defines interactions for room messages.
type MessageRepository interface {
	Create(ctx context.Context, msg models.Message) (models.Message, error)
	Get(ctx context.Context, messageID int) (models.Message, error)
	Delete(ctx context.Context, messageID int) error
	ListForRoom(ctx context.Context, roomID int) ([]models.Message, error)
}

// MessageRepo is a sqlx-backed repository.
type MessageRepo struct {
	db *sqlx.DB
}

// NewMessageRepo constructs MessageRepo.
func NewMessageRepo(db *sqlx.DB) *MessageRepo {
	return &MessageRepo{db: db}
}

// Create persists a message and returns the stored row.
func (r *MessageRepo) Create(ctx context.Context, msg models.Message) (models.Message, error) {
	var stored models.Message
	err := r.db.QueryRowxContext(ctx,
		`INSERT INTO messages (room_id, author_id, body, parent_id, is_code_snippet, language)
         VALUES ($1, $2, $3, $4, $5, $6)
         RETURNING id, room_id, author_id, body, parent_id, is_code_snippet, language, created_at`,
		msg.RoomID, msg.AuthorID, msg.Body, msg.ParentID, msg.IsCodeSnippet, msg.Language).
		StructScan(&stored)
	return stored, err
}

// Get retrieves a single message.
func (r *MessageRepo) Get(ctx context.Context, messageID int) (models.Message, error) {
	var msg models.Message
	err := r.db.GetContext(ctx, &msg, `SELECT id, room_id, author_id, body, parent_id, is_code_snippet, language, created_at FROM messages WHERE id=$1`, messageID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Message{}, ErrMessageNotFound
	}
	return msg, err
}

// Delete removes a message. Returns ErrMessageNotFound when the row is
// already gone, so concurrent deletes broadcast at most once.
func (r *MessageRepo) Delete(ctx context.Context, messageID int) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM messages WHERE id=$1`, messageID)
	if err != nil {
		return err
	}
	count, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if count == 0 {
		return ErrMessageNotFound
	}
	return nil
}

// ListForRoom returns the room's messages ordered by creation time.
func (r *MessageRepo) ListForRoom(ctx context.Context, roomID int) ([]models.Message, error) {
	var msgs []models.Message
	err := r.db.SelectContext(ctx, &msgs, `SELECT id, room_id, author_id, body, parent_id, is_code_snippet, language, created_at FROM messages WHERE room_id=$1 ORDER BY created_at ASC`, roomID)
	return msgs, err
}
