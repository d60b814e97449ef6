package store

import (
	"database/sql"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/benmeehan/pixie-bridge/internal/models"
)

// fakeRow feeds fixed column values through Scan.
type fakeRow struct {
	values []any
	err    error
}

func (f fakeRow) Scan(dest ...any) error {
	if f.err != nil {
		return f.err
	}
	if len(dest) != len(f.values) {
		return fmt.Errorf("scan: %d columns, %d destinations", len(f.values), len(dest))
	}
	for i, d := range dest {
		switch p := d.(type) {
		case sql.Scanner:
			if err := p.Scan(f.values[i]); err != nil {
				return err
			}
		case *int64:
			*p = f.values[i].(int64)
		case *string:
			*p = f.values[i].(string)
		case *time.Time:
			*p = f.values[i].(time.Time)
		case *[]byte:
			if f.values[i] != nil {
				*p = f.values[i].([]byte)
			}
		default:
			return fmt.Errorf("scan: unsupported destination %T", d)
		}
	}
	return nil
}

// TestWrapErr tests the mapping of driver errors to domain errors
func TestWrapErr(t *testing.T) {
	assert.NoError(t, wrapErr("op", nil))

	err := wrapErr("find device", sql.ErrNoRows)
	assert.ErrorIs(t, err, models.ErrNotFound)
	assert.Contains(t, err.Error(), "find device")

	err = wrapErr("find device", errors.New("connection refused"))
	assert.ErrorIs(t, err, models.ErrUpstreamUnavailable)
	assert.NotErrorIs(t, err, models.ErrNotFound)
	assert.Contains(t, err.Error(), "connection refused")
}

// TestScanDevice_Unclaimed tests that NULL columns become nil fields
func TestScanDevice_Unclaimed(t *testing.T) {
	created := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	row := fakeRow{values: []any{int64(4), "AA:BB", "", nil, "0000", nil, nil, nil, nil, nil, created}}

	d, err := scanDevice(row)

	require.NoError(t, err)
	assert.Equal(t, int64(4), d.ID)
	assert.Equal(t, "AA:BB", d.MAC)
	assert.False(t, d.IsPaired())
	assert.Equal(t, models.UnclaimedCode, d.CodeOrDefault(""))
	assert.Nil(t, d.Brightness)
	assert.Nil(t, d.AllowDraws)
	assert.Equal(t, created, d.CreatedAt)
}

// TestScanDevice_Configured tests a paired device with every configuration column set
func TestScanDevice_Configured(t *testing.T) {
	row := fakeRow{values: []any{int64(4), "AA:BB", "Kitchen", int64(9), nil, int64(70), int64(5), int64(45), true, false, time.Now()}}

	d, err := scanDevice(row)

	require.NoError(t, err)
	require.True(t, d.IsPaired())
	assert.Equal(t, int64(9), *d.OwnerID)
	assert.Nil(t, d.Code)
	assert.Equal(t, 70, *d.Brightness)
	assert.Equal(t, 5, *d.PicturesOnQueue)
	assert.Equal(t, 45, *d.SecsBetweenPhotos)
	assert.True(t, *d.SpotifyEnabled)
	assert.False(t, *d.AllowDraws)
}

// TestScanDevice_Error tests that scan errors pass through unwrapped
func TestScanDevice_Error(t *testing.T) {
	_, err := scanDevice(fakeRow{err: sql.ErrNoRows})
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

// TestClaimQuery_Guards tests that a claim only updates a device that is still claimable
func TestClaimQuery_Guards(t *testing.T) {
	byCode := claimQuery(true)
	assert.Contains(t, byCode, "WHERE id = $4 AND created_by IS NULL AND code = $5")
	assert.Contains(t, byCode, "RETURNING "+deviceColumns)

	byIdentity := claimQuery(false)
	assert.Contains(t, byIdentity, "WHERE id = $4 AND (created_by IS NULL OR created_by = $1)")
	assert.NotContains(t, byIdentity, "$5")
}

// TestScanDrawing tests decoding a saved canvas and a listing row without pixels
func TestScanDrawing(t *testing.T) {
	created := time.Date(2024, 5, 2, 8, 0, 0, 0, time.UTC)
	row := fakeRow{values: []any{int64(3), int64(7), int64(9), "sunset", []byte(`[["#FF0000","#000000"]]`), created}}

	d, err := scanDrawing(row)
	require.NoError(t, err)
	assert.Equal(t, &models.Drawing{
		ID: 3, DeviceID: 7, UserID: 9, Title: "sunset",
		Pixels:    [][]string{{"#FF0000", "#000000"}},
		CreatedAt: created,
	}, d)

	d, err = scanDrawing(fakeRow{values: []any{int64(4), int64(7), int64(9), nil, nil, created}})
	require.NoError(t, err)
	assert.Empty(t, d.Title)
	assert.Nil(t, d.Pixels)

	_, err = scanDrawing(fakeRow{values: []any{int64(5), int64(7), int64(9), nil, []byte("{"), created}})
	assert.Error(t, err)
}
