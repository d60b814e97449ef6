package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/benmeehan/pixie-bridge/internal/models"
)

const deviceColumns = `id, mac, name, created_by, code, brightness, pictures_on_queue,
	secs_between_photos, spotify_enabled, allow_draws, created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

// PostgresDeviceRepository stores devices in the pixie table.
type PostgresDeviceRepository struct {
	db *sql.DB
}

func NewPostgresDeviceRepository(db *sql.DB) *PostgresDeviceRepository {
	return &PostgresDeviceRepository{db: db}
}

func scanDevice(row rowScanner) (*models.Device, error) {
	var (
		d                       models.Device
		owner                   sql.NullInt64
		code                    sql.NullString
		brightness, queue, secs sql.NullInt32
		spotify, draws          sql.NullBool
	)
	if err := row.Scan(&d.ID, &d.MAC, &d.Name, &owner, &code, &brightness, &queue, &secs, &spotify, &draws, &d.CreatedAt); err != nil {
		return nil, err
	}
	if owner.Valid {
		d.OwnerID = &owner.Int64
	}
	if code.Valid {
		d.Code = &code.String
	}
	d.Brightness = nullInt(brightness)
	d.PicturesOnQueue = nullInt(queue)
	d.SecsBetweenPhotos = nullInt(secs)
	if spotify.Valid {
		d.SpotifyEnabled = &spotify.Bool
	}
	if draws.Valid {
		d.AllowDraws = &draws.Bool
	}
	return &d, nil
}

func nullInt(n sql.NullInt32) *int {
	if !n.Valid {
		return nil
	}
	v := int(n.Int32)
	return &v
}

func (r *PostgresDeviceRepository) findOne(ctx context.Context, op, where string, arg any) (*models.Device, error) {
	query := `SELECT ` + deviceColumns + ` FROM pixie WHERE ` + where + ` ORDER BY id LIMIT 1`
	d, err := scanDevice(r.db.QueryRowContext(ctx, query, arg))
	if err != nil {
		return nil, wrapErr(op, err)
	}
	return d, nil
}

func (r *PostgresDeviceRepository) FindByID(ctx context.Context, id int64) (*models.Device, error) {
	return r.findOne(ctx, "find device by id", "id = $1", id)
}

func (r *PostgresDeviceRepository) FindByMAC(ctx context.Context, mac string) (*models.Device, error) {
	return r.findOne(ctx, "find device by mac", "mac = $1", mac)
}

// FindByCode returns the oldest unclaimed device holding code.
func (r *PostgresDeviceRepository) FindByCode(ctx context.Context, code string) (*models.Device, error) {
	return r.findOne(ctx, "find device by code", "code = $1 AND created_by IS NULL", code)
}

// Create inserts d and returns the stored row with its assigned id.
func (r *PostgresDeviceRepository) Create(ctx context.Context, d models.Device) (*models.Device, error) {
	query := `
		INSERT INTO pixie (mac, name, created_by, code, brightness, pictures_on_queue, secs_between_photos, spotify_enabled, allow_draws)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING ` + deviceColumns

	created, err := scanDevice(r.db.QueryRowContext(ctx, query,
		d.MAC, d.Name, d.OwnerID, d.Code, d.Brightness, d.PicturesOnQueue, d.SecsBetweenPhotos, d.SpotifyEnabled, d.AllowDraws))
	if err != nil {
		return nil, wrapErr("create device", err)
	}
	return created, nil
}

func (r *PostgresDeviceRepository) SetCode(ctx context.Context, id int64, code string) error {
	return r.exec(ctx, "set device code", `UPDATE pixie SET code = $1 WHERE id = $2`, code, id)
}

// claimQuery only matches a device that is still claimable. With a code the
// device must be unowned and still hold that code; without one it may be
// unowned or already owned by the claimer.
func claimQuery(byCode bool) string {
	guard := `(created_by IS NULL OR created_by = $1)`
	if byCode {
		guard = `created_by IS NULL AND code = $5`
	}
	return `UPDATE pixie SET created_by = $1, name = $2, code = $3 WHERE id = $4 AND ` + guard + ` RETURNING ` + deviceColumns
}

// Claim links the device to ownerID and consumes its pairing code. When code is
// empty the device is claimed by identity. A device that is no longer
// claimable yields models.ErrNotFound.
func (r *PostgresDeviceRepository) Claim(ctx context.Context, id, ownerID int64, name, code string) (*models.Device, error) {
	args := []any{ownerID, name, models.UnclaimedCode, id}
	if code != "" {
		args = append(args, code)
	}
	d, err := scanDevice(r.db.QueryRowContext(ctx, claimQuery(code != ""), args...))
	if err != nil {
		return nil, wrapErr("claim device", err)
	}
	return d, nil
}

// UpdateConfig applies the non-nil fields of patch.
func (r *PostgresDeviceRepository) UpdateConfig(ctx context.Context, id int64, patch models.ConfigPatch) (*models.Device, error) {
	var (
		sets []string
		args []any
	)
	add := func(col string, v any) {
		args = append(args, v)
		sets = append(sets, fmt.Sprintf("%s = $%d", col, len(args)))
	}
	if patch.Name != nil {
		add("name", *patch.Name)
	}
	if patch.Brightness != nil {
		add("brightness", *patch.Brightness)
	}
	if patch.PicturesOnQueue != nil {
		add("pictures_on_queue", *patch.PicturesOnQueue)
	}
	if patch.SecsBetweenPhotos != nil {
		add("secs_between_photos", *patch.SecsBetweenPhotos)
	}
	if patch.SpotifyEnabled != nil {
		add("spotify_enabled", *patch.SpotifyEnabled)
	}
	if patch.AllowDraws != nil {
		add("allow_draws", *patch.AllowDraws)
	}
	if len(sets) == 0 {
		return r.FindByID(ctx, id)
	}

	args = append(args, id)
	query := fmt.Sprintf(`UPDATE pixie SET %s WHERE id = $%d RETURNING %s`, strings.Join(sets, ", "), len(args), deviceColumns)
	d, err := scanDevice(r.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		return nil, wrapErr("update device config", err)
	}
	return d, nil
}

func (r *PostgresDeviceRepository) exec(ctx context.Context, op, query string, args ...any) error {
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return wrapErr(op, err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return wrapErr(op, err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", op, models.ErrNotFound)
	}
	return nil
}
