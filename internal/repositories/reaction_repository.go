package repositories

import (
	"context"

	"github.com/jmoiron/sqlx"

	"syncroom-service/internal/models"
)

// ReactionRepository defines interactions for message reactions.
type ReactionRepository interface {
	Upsert(ctx context.Context, messageID int, userID int, emoji string) error
	ListForRoom(ctx context.Context, roomID int) ([]models.Reaction, error)
}

// ReactionRepo is a sqlx-backed implementation.
type ReactionRepo struct {
	db *sqlx.DB
}

// NewReactionRepo constructs a ReactionRepo.
func NewReactionRepo(db *sqlx.DB) *ReactionRepo {
	return &ReactionRepo{db: db}
}

// Upsert stores a reaction; re-adding the identical triple is a no-op.
func (r *ReactionRepo) Upsert(ctx context.Context, messageID int, userID int, emoji string) error {
	_, err := r.db.ExecContext(ctx, `INSERT INTO reactions (message_id, user_id, emoji) VALUES ($1, $2, $3)
        ON CONFLICT (message_id, user_id, emoji) DO NOTHING`, messageID, userID, emoji)
	return err
}

// ListForRoom returns all reactions on the room's messages.
func (r *ReactionRepo) ListForRoom(ctx context.Context, roomID int) ([]models.Reaction, error) {
	var reactions []models.Reaction
	err := r.db.SelectContext(ctx, &reactions, `SELECT re.message_id, re.user_id, re.emoji, re.created_at
        FROM reactions re INNER JOIN messages m ON m.id = re.message_id
        WHERE m.room_id=$1 ORDER BY re.created_at ASC`, roomID)
	return reactions, err
}
