package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
)

// schema is portable between SQLite and postgres.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id         TEXT PRIMARY KEY,
		username   TEXT NOT NULL UNIQUE,
		name       TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMP NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS rooms (
		id         TEXT PRIMARY KEY,
		type       TEXT NOT NULL,
		name       TEXT NOT NULL DEFAULT '',
		fname      TEXT NOT NULL DEFAULT '',
		msg_count  INTEGER NOT NULL DEFAULT 0,
		created_at TIMESTAMP NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS room_members (
		room_id   TEXT NOT NULL REFERENCES rooms(id),
		user_id   TEXT NOT NULL REFERENCES users(id),
		position  INTEGER NOT NULL DEFAULT 0,
		PRIMARY KEY (room_id, user_id)
	)`,
	`CREATE TABLE IF NOT EXISTS messages (
		id                 TEXT PRIMARY KEY,
		room_id            TEXT NOT NULL,
		type               TEXT NOT NULL,
		author_id          TEXT NOT NULL,
		author_username    TEXT NOT NULL DEFAULT '',
		groupable          BOOLEAN NOT NULL DEFAULT FALSE,
		unread             BOOLEAN NOT NULL DEFAULT FALSE,
		video_conf_call_id TEXT,
		video_conf_title   TEXT,
		created_at         TIMESTAMP NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_messages_room ON messages(room_id, created_at)`,
	`CREATE TABLE IF NOT EXISTS calls (
		id                  TEXT PRIMARY KEY,
		room_id             TEXT NOT NULL,
		kind                TEXT NOT NULL,
		status              INTEGER NOT NULL DEFAULT 0,
		title               TEXT NOT NULL DEFAULT '',
		url                 TEXT,
		callee              TEXT,
		created_by_id       TEXT NOT NULL,
		created_by_username TEXT NOT NULL DEFAULT '',
		created_by_name     TEXT NOT NULL DEFAULT '',
		started_message_id  TEXT,
		ended_message_id    TEXT,
		ended_by_id         TEXT,
		ended_by_username   TEXT,
		ended_by_name       TEXT,
		ended_at            TIMESTAMP,
		created_at          TIMESTAMP NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_calls_room ON calls(room_id, created_at)`,
	`CREATE TABLE IF NOT EXISTS call_participants (
		call_id   TEXT NOT NULL REFERENCES calls(id),
		user_id   TEXT NOT NULL,
		username  TEXT NOT NULL DEFAULT '',
		name      TEXT NOT NULL DEFAULT '',
		joined_at TIMESTAMP NOT NULL,
		PRIMARY KEY (call_id, user_id)
	)`,
}

// Migrate applies the schema. It is safe to run repeatedly.
func (s *SQLStore) Migrate(ctx context.Context) error {
	return ApplySchema(ctx, s.db)
}

// ApplySchema creates all tables and indexes on db.
func ApplySchema(ctx context.Context, db *sql.DB) error {
	for i, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema statement %d: %w", i, err)
		}
	}
	return nil
}
