package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"syncroom-service/internal/models"
)

var ErrFileNotFound = errors.New("file not found")

// FileRepository defines interactions for uploaded file metadata.
type FileRepository interface {
	Get(ctx context.Context, fileID int) (models.File, error)
	Delete(ctx context.Context, fileID int) error
	ListForRoom(ctx context.Context, roomID int) ([]models.File, error)
}

// FileRepo is a sqlx-backed implementation.
type FileRepo struct {
	db *sqlx.DB
}

// NewFileRepo constructs a FileRepo.
func NewFileRepo(db *sqlx.DB) *FileRepo {
	return &FileRepo{db: db}
}

// Get fetches file metadata by id.
func (r *FileRepo) Get(ctx context.Context, fileID int) (models.File, error) {
	var file models.File
	err := r.db.GetContext(ctx, &file, `SELECT id, room_id, uploader_id, filename, filepath, created_at FROM files WHERE id=$1`, fileID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.File{}, ErrFileNotFound
	}
	return file, err
}

// Delete removes file metadata.
func (r *FileRepo) Delete(ctx context.Context, fileID int) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM files WHERE id=$1`, fileID)
	if err != nil {
		return err
	}
	count, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if count == 0 {
		return ErrFileNotFound
	}
	return nil
}

// ListForRoom returns the room's files.
func (r *FileRepo) ListForRoom(ctx context.Context, roomID int) ([]models.File, error) {
	var files []models.File
	err := r.db.SelectContext(ctx, &files, `SELECT id, room_id, uploader_id, filename, filepath, created_at FROM files WHERE room_id=$1 ORDER BY created_at ASC`, roomID)
	return files, err
}
