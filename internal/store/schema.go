package store

import (
	"context"
	"database/sql"
)

const schema = `
CREATE TABLE IF NOT EXISTS public_users (
	id       BIGSERIAL PRIMARY KEY,
	user_id  TEXT UNIQUE NOT NULL,
	username TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS pixie (
	id                  BIGSERIAL PRIMARY KEY,
	mac                 TEXT UNIQUE NOT NULL,
	name                TEXT NOT NULL DEFAULT 'Pixie',
	created_by          BIGINT REFERENCES public_users(id),
	code                TEXT,
	brightness          INT,
	pictures_on_queue   INT,
	secs_between_photos INT,
	spotify_enabled     BOOLEAN,
	allow_draws         BOOLEAN,
	created_at          TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS pixie_code_idx ON pixie (code);

CREATE TABLE IF NOT EXISTS photos (
	id           BIGSERIAL PRIMARY KEY,
	user_id      BIGINT NOT NULL REFERENCES public_users(id),
	title        TEXT,
	username     TEXT,
	photo_url    TEXT NOT NULL,
	photo_pixels JSONB,
	created_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
	deleted_at   TIMESTAMPTZ
);

CREATE TABLE IF NOT EXISTS photo_visible_by (
	photo_id BIGINT NOT NULL REFERENCES photos(id),
	user_id  BIGINT NOT NULL REFERENCES public_users(id),
	PRIMARY KEY (photo_id, user_id)
);

CREATE TABLE IF NOT EXISTS drawings (
	id         BIGSERIAL PRIMARY KEY,
	pixie_id   BIGINT NOT NULL REFERENCES pixie(id),
	created_by BIGINT NOT NULL REFERENCES public_users(id),
	title      TEXT,
	pixels     JSONB NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS drawings_pixie_idx ON drawings (pixie_id, created_at DESC);

CREATE TABLE IF NOT EXISTS code_versions (
	id         BIGSERIAL PRIMARY KEY,
	version    INT NOT NULL,
	url        TEXT NOT NULL,
	comments   TEXT,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS spotify_credentials (
	id                    BIGSERIAL PRIMARY KEY,
	user_id               BIGINT UNIQUE NOT NULL REFERENCES public_users(id),
	spotify_secret        TEXT NOT NULL,
	spotify_refresh_token TEXT NOT NULL,
	expires_at            TIMESTAMPTZ
);
`

// Migrate creates the tables the bridge reads and writes when they are missing.
func Migrate(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, schema)
	return wrapErr("migrate", err)
}
