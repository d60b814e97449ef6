package store

import (
	"context"
	"database/sql"

	"github.com/benmeehan/pixie-bridge/internal/models"
)

type PostgresFirmwareRepository struct {
	db *sql.DB
}

func NewPostgresFirmwareRepository(db *sql.DB) *PostgresFirmwareRepository {
	return &PostgresFirmwareRepository{db: db}
}

func scanFirmware(row rowScanner) (*models.FirmwareVersion, error) {
	var (
		v        models.FirmwareVersion
		comments sql.NullString
	)
	if err := row.Scan(&v.ID, &v.Version, &v.ObjectKey, &comments, &v.CreatedAt); err != nil {
		return nil, err
	}
	if comments.Valid {
		v.Comments = &comments.String
	}
	return &v, nil
}

// Latest returns the most recently created firmware version.
func (r *PostgresFirmwareRepository) Latest(ctx context.Context) (*models.FirmwareVersion, error) {
	query := `SELECT id, version, url, comments, created_at FROM code_versions ORDER BY created_at DESC, id DESC LIMIT 1`
	v, err := scanFirmware(r.db.QueryRowContext(ctx, query))
	if err != nil {
		return nil, wrapErr("latest firmware", err)
	}
	return v, nil
}

func (r *PostgresFirmwareRepository) Create(ctx context.Context, version int, objectKey string, comments *string) (*models.FirmwareVersion, error) {
	query := `INSERT INTO code_versions (version, url, comments) VALUES ($1, $2, $3)
		RETURNING id, version, url, comments, created_at`
	v, err := scanFirmware(r.db.QueryRowContext(ctx, query, version, objectKey, comments))
	if err != nil {
		return nil, wrapErr("create firmware", err)
	}
	return v, nil
}
