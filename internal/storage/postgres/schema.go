package postgres

// Schema is idempotent and safe to run on every start.
const Schema = `
CREATE TABLE IF NOT EXISTS qr_tokens (
	lookup_key     TEXT        PRIMARY KEY,
	id             TEXT        NOT NULL UNIQUE,
	user_id        TEXT        NOT NULL,
	version        INTEGER     NOT NULL,
	hash           TEXT        NOT NULL,
	salt           TEXT        NOT NULL,
	hash_algorithm TEXT        NOT NULL,
	created_at     TIMESTAMPTZ NOT NULL,
	expires_at     TIMESTAMPTZ NULL,
	revoked        BOOLEAN     NOT NULL DEFAULT FALSE,
	revoked_at     TIMESTAMPTZ NULL,
	sealed_label   BYTEA       NULL,
	seq            BIGSERIAL   NOT NULL
);

ALTER TABLE qr_tokens ADD COLUMN IF NOT EXISTS seq BIGSERIAL NOT NULL;

DROP INDEX IF EXISTS qr_tokens_user_created_idx;
CREATE INDEX IF NOT EXISTS qr_tokens_user_created_seq_idx ON qr_tokens (user_id, created_at, seq);
`
