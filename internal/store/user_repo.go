package store

import (
	"context"
	"database/sql"

	"github.com/benmeehan/pixie-bridge/internal/models"
)

type PostgresUserRepository struct {
	db *sql.DB
}

func NewPostgresUserRepository(db *sql.DB) *PostgresUserRepository {
	return &PostgresUserRepository{db: db}
}

func (r *PostgresUserRepository) FindByAuthID(ctx context.Context, authID string) (*models.User, error) {
	var u models.User
	err := r.db.QueryRowContext(ctx, `SELECT id, user_id, username FROM public_users WHERE user_id = $1`, authID).
		Scan(&u.ID, &u.AuthID, &u.Username)
	if err != nil {
		return nil, wrapErr("find user", err)
	}
	return &u, nil
}
