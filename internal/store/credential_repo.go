package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/benmeehan/pixie-bridge/internal/models"
)

type PostgresCredentialRepository struct {
	db *sql.DB
}

func NewPostgresCredentialRepository(db *sql.DB) *PostgresCredentialRepository {
	return &PostgresCredentialRepository{db: db}
}

func (r *PostgresCredentialRepository) FindByUser(ctx context.Context, userID int64) (*models.MusicCredentials, error) {
	query := `SELECT id, user_id, spotify_secret, spotify_refresh_token, expires_at FROM spotify_credentials WHERE user_id = $1`

	var (
		c       models.MusicCredentials
		expires sql.NullTime
	)
	err := r.db.QueryRowContext(ctx, query, userID).Scan(&c.ID, &c.UserID, &c.AccessToken, &c.RefreshToken, &expires)
	if err != nil {
		return nil, wrapErr("find music credentials", err)
	}
	if expires.Valid {
		c.ExpiresAt = &expires.Time
	}
	return &c, nil
}

func (r *PostgresCredentialRepository) UpdateAccessToken(ctx context.Context, id int64, accessToken string, expiresAt time.Time) error {
	_, err := r.db.ExecContext(ctx, `UPDATE spotify_credentials SET spotify_secret = $1, expires_at = $2 WHERE id = $3`, accessToken, expiresAt, id)
	return wrapErr("update music credentials", err)
}
