package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/benmeehan/pixie-bridge/internal/models"
)

const photoColumns = `p.id, p.user_id, p.title, p.username, p.photo_url, p.photo_pixels, p.created_at`

// visibleTo matches photos owned by, or shared with, the user bound to $1.
const visibleTo = `p.deleted_at IS NULL AND (p.user_id = $1 OR EXISTS (
	SELECT 1 FROM photo_visible_by v WHERE v.photo_id = p.id AND v.user_id = $1))`

type PostgresPhotoRepository struct {
	db *sql.DB
}

func NewPostgresPhotoRepository(db *sql.DB) *PostgresPhotoRepository {
	return &PostgresPhotoRepository{db: db}
}

func scanPhoto(row rowScanner) (*models.Photo, error) {
	var (
		p               models.Photo
		title, username sql.NullString
		pixels          []byte
	)
	if err := row.Scan(&p.ID, &p.OwnerID, &title, &username, &p.ObjectKey, &pixels, &p.CreatedAt); err != nil {
		return nil, err
	}
	p.Title = title.String
	p.Username = username.String
	if len(pixels) > 0 {
		if err := json.Unmarshal(pixels, &p.Pixels); err != nil {
			return nil, fmt.Errorf("failed to unmarshal photo_pixels: %w", err)
		}
	}
	return &p, nil
}

// FindByID returns a photo that has not been deleted.
func (r *PostgresPhotoRepository) FindByID(ctx context.Context, id int64) (*models.Photo, error) {
	query := `SELECT ` + photoColumns + ` FROM photos p WHERE p.id = $1 AND p.deleted_at IS NULL`
	p, err := scanPhoto(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, wrapErr("find photo", err)
	}
	return p, nil
}

// ListVisibleTo returns the user's photos and photos shared with them, newest first.
func (r *PostgresPhotoRepository) ListVisibleTo(ctx context.Context, userID int64) ([]models.Photo, error) {
	query := `SELECT ` + photoColumns + ` FROM photos p WHERE ` + visibleTo + ` ORDER BY p.created_at DESC, p.id DESC`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, wrapErr("list photos", err)
	}
	defer rows.Close()

	var photos []models.Photo
	for rows.Next() {
		p, err := scanPhoto(rows)
		if err != nil {
			return nil, wrapErr("scan photo", err)
		}
		photos = append(photos, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapErr("list photos", err)
	}
	return photos, nil
}

func (r *PostgresPhotoRepository) CountVisibleTo(ctx context.Context, userID int64) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT count(*) FROM photos p WHERE `+visibleTo, userID).Scan(&n)
	if err != nil {
		return 0, wrapErr("count photos", err)
	}
	return n, nil
}

// SavePixels caches the transcoded matrix on the photo row.
func (r *PostgresPhotoRepository) SavePixels(ctx context.Context, photoID int64, pixels [][]uint16) error {
	data, err := json.Marshal(pixels)
	if err != nil {
		return fmt.Errorf("failed to marshal pixels: %w", err)
	}
	_, err = r.db.ExecContext(ctx, `UPDATE photos SET photo_pixels = $1 WHERE id = $2`, data, photoID)
	return wrapErr("save photo pixels", err)
}
