package repositories

import (
	"context"

	"github.com/jmoiron/sqlx"

	"syncroom-service/internal/models"
)

// AssistantHistoryRepository stores a user's direct assistant conversation.
type AssistantHistoryRepository interface {
	Append(ctx context.Context, userID int, sender models.AssistantSender, body string) error
	LastTurns(ctx context.Context, userID int, limit int) ([]models.AssistantTurn, error)
}

// AssistantHistoryRepo is a sqlx-backed implementation.
type AssistantHistoryRepo struct {
	db *sqlx.DB
}

// NewAssistantHistoryRepo constructs an AssistantHistoryRepo.
func NewAssistantHistoryRepo(db *sqlx.DB) *AssistantHistoryRepo {
	return &AssistantHistoryRepo{db: db}
}

// Append stores one turn.
func (r *AssistantHistoryRepo) Append(ctx context.Context, userID int, sender models.AssistantSender, body string) error {
	_, err := r.db.ExecContext(ctx, `INSERT INTO assistant_turns (user_id, sender, body) VALUES ($1, $2, $3)`, userID, sender, body)
	return err
}

// LastTurns returns the user's most recent turns, oldest first.
func (r *AssistantHistoryRepo) LastTurns(ctx context.Context, userID int, limit int) ([]models.AssistantTurn, error) {
	var turns []models.AssistantTurn
	err := r.db.SelectContext(ctx, &turns, `SELECT id, user_id, sender, body, created_at FROM
        (SELECT id, user_id, sender, body, created_at FROM assistant_turns WHERE user_id=$1 ORDER BY id DESC LIMIT $2) recent
        ORDER BY id ASC`, userID, limit)
	return turns, err
}
