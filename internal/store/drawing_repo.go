package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/benmeehan/pixie-bridge/internal/models"
)

const drawingColumns = `id, pixie_id, created_by, title, pixels, created_at`

// PostgresDrawingRepository stores saved canvases in the drawings table.
type PostgresDrawingRepository struct {
	db *sql.DB
}

func NewPostgresDrawingRepository(db *sql.DB) *PostgresDrawingRepository {
	return &PostgresDrawingRepository{db: db}
}

func scanDrawing(row rowScanner) (*models.Drawing, error) {
	var (
		d      models.Drawing
		title  sql.NullString
		pixels []byte
	)
	if err := row.Scan(&d.ID, &d.DeviceID, &d.UserID, &title, &pixels, &d.CreatedAt); err != nil {
		return nil, err
	}
	d.Title = title.String
	if len(pixels) > 0 {
		if err := json.Unmarshal(pixels, &d.Pixels); err != nil {
			return nil, fmt.Errorf("failed to unmarshal drawing pixels: %w", err)
		}
	}
	return &d, nil
}

// Save inserts d and returns the stored row.
func (r *PostgresDrawingRepository) Save(ctx context.Context, d models.Drawing) (*models.Drawing, error) {
	pixels, err := json.Marshal(d.Pixels)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal drawing pixels: %w", err)
	}
	query := `INSERT INTO drawings (pixie_id, created_by, title, pixels) VALUES ($1, $2, $3, $4) RETURNING ` + drawingColumns
	saved, err := scanDrawing(r.db.QueryRowContext(ctx, query, d.DeviceID, d.UserID, d.Title, pixels))
	if err != nil {
		return nil, wrapErr("save drawing", err)
	}
	return saved, nil
}

// FindByID returns the drawing with its pixels.
func (r *PostgresDrawingRepository) FindByID(ctx context.Context, id int64) (*models.Drawing, error) {
	query := `SELECT ` + drawingColumns + ` FROM drawings WHERE id = $1`
	d, err := scanDrawing(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, wrapErr("find drawing", err)
	}
	return d, nil
}

// Latest returns the most recently saved drawing of a device.
func (r *PostgresDrawingRepository) Latest(ctx context.Context, deviceID int64) (*models.Drawing, error) {
	query := `SELECT ` + drawingColumns + ` FROM drawings WHERE pixie_id = $1 ORDER BY created_at DESC, id DESC LIMIT 1`
	d, err := scanDrawing(r.db.QueryRowContext(ctx, query, deviceID))
	if err != nil {
		return nil, wrapErr("find latest drawing", err)
	}
	return d, nil
}

// ListForDevice returns a device's drawings newest first, without pixels.
func (r *PostgresDrawingRepository) ListForDevice(ctx context.Context, deviceID int64) ([]models.Drawing, error) {
	query := `SELECT id, pixie_id, created_by, title, NULL, created_at FROM drawings
		WHERE pixie_id = $1 ORDER BY created_at DESC, id DESC`

	rows, err := r.db.QueryContext(ctx, query, deviceID)
	if err != nil {
		return nil, wrapErr("list drawings", err)
	}
	defer rows.Close()

	var drawings []models.Drawing
	for rows.Next() {
		d, err := scanDrawing(rows)
		if err != nil {
			return nil, wrapErr("scan drawing", err)
		}
		drawings = append(drawings, *d)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapErr("list drawings", err)
	}
	return drawings, nil
}
