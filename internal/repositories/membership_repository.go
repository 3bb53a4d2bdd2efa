package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"syncroom-service/internal/models"
)

var ErrNotAMember = errors.New("not a member")

// MembershipRepository abstracts the authoritative group-membership store.
// Roles are read per call; nothing here is cached.
type MembershipRepository interface {
	RoleOf(ctx context.Context, roomID int, userID int) (models.Role, error)
	IsMember(ctx context.Context, roomID int, userID int) (bool, error)
	GetMember(ctx context.Context, roomID int, userID int) (models.Member, error)
	ListMembers(ctx context.Context, roomID int) ([]models.Member, error)
	UpdateRole(ctx context.Context, roomID int, userID int, role models.Role) error
	RemoveMember(ctx context.Context, roomID int, userID int) error
	DeleteRoom(ctx context.Context, roomID int) error
}

// MembershipRepo is a sqlx implementation of MembershipRepository.
type MembershipRepo struct {
	db *sqlx.DB
}

// NewMembershipRepo constructs a MembershipRepo.
func NewMembershipRepo(db *sqlx.DB) *MembershipRepo {
	return &MembershipRepo{db: db}
}

// RoleOf returns the stored role, or ErrNotAMember.
func (r *MembershipRepo) RoleOf(ctx context.Context, roomID int, userID int) (models.Role, error) {
	var role models.Role
	err := r.db.GetContext(ctx, &role, `SELECT role FROM room_members WHERE room_id=$1 AND user_id=$2`, roomID, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotAMember
	}
	return role, err
}

// IsMember checks membership.
func (r *MembershipRepo) IsMember(ctx context.Context, roomID int, userID int) (bool, error) {
	var exists bool
	err := r.db.GetContext(ctx, &exists, `SELECT EXISTS(SELECT 1 FROM room_members WHERE room_id=$1 AND user_id=$2)`, roomID, userID)
	return exists, err
}

// GetMember fetches a single membership row.
func (r *MembershipRepo) GetMember(ctx context.Context, roomID int, userID int) (models.Member, error) {
	var member models.Member
	err := r.db.GetContext(ctx, &member, `SELECT room_id, user_id, username, role, joined_at FROM room_members WHERE room_id=$1 AND user_id=$2`, roomID, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Member{}, ErrNotAMember
	}
	return member, err
}

// ListMembers returns all members of a room ordered by join time.
func (r *MembershipRepo) ListMembers(ctx context.Context, roomID int) ([]models.Member, error) {
	var members []models.Member
	err := r.db.SelectContext(ctx, &members, `SELECT room_id, user_id, username, role, joined_at FROM room_members WHERE room_id=$1 ORDER BY joined_at ASC`, roomID)
	return members, err
}

// UpdateRole sets a member's role.
func (r *MembershipRepo) UpdateRole(ctx context.Context, roomID int, userID int, role models.Role) error {
	res, err := r.db.ExecContext(ctx, `UPDATE room_members SET role=$3 WHERE room_id=$1 AND user_id=$2`, roomID, userID, role)
	if err != nil {
		return err
	}
	count, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if count == 0 {
		return ErrNotAMember
	}
	return nil
}

// RemoveMember deletes a membership row.
func (r *MembershipRepo) RemoveMember(ctx context.Context, roomID int, userID int) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM room_members WHERE room_id=$1 AND user_id=$2`, roomID, userID)
	if err != nil {
		return err
	}
	count, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if count == 0 {
		return ErrNotAMember
	}
	return nil
}

// DeleteRoom removes the room's memberships, messages, and files.
func (r *MembershipRepo) DeleteRoom(ctx context.Context, roomID int) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	for _, stmt := range []string{
		`DELETE FROM messages WHERE room_id=$1`,
		`DELETE FROM files WHERE room_id=$1`,
		`DELETE FROM room_members WHERE room_id=$1`,
	} {
		if _, err = tx.ExecContext(ctx, stmt, roomID); err != nil {
			return err
		}
	}

	return tx.Commit()
}
