// Package sqlite implements the storage driver backed by a single SQLite
// database file. It uses the pure-Go modernc.org/sqlite driver so the binary
// stays cgo-free.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/pkg/errors"

	// Import the pure-Go SQLite driver.
	_ "modernc.org/sqlite"

	"github.com/ningoooo/rolechat/internal/profile"
	"github.com/ningoooo/rolechat/store"
)

// DB is the SQLite storage driver.
type DB struct {
	db      *sql.DB
	profile *profile.Profile
}

// NewDB opens the database file and applies the schema.
func NewDB(profile *profile.Profile) (*DB, error) {
	if profile.DSN == "" {
		return nil, errors.New("dsn required")
	}

	// busy_timeout smooths over writer contention from concurrent requests;
	// foreign_keys makes message rows follow their conversation on delete.
	dsn := fmt.Sprintf("file:%s?_pragma=foreign_keys(1)&_pragma=busy_timeout(10000)&_pragma=journal_mode(WAL)", profile.DSN)
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open db with dsn: %s", profile.DSN)
	}

	d := &DB{db: sqlDB, profile: profile}
	if err := d.migrate(context.Background()); err != nil {
		_ = sqlDB.Close()
		return nil, errors.Wrap(err, "failed to apply schema")
	}
	return d, nil
}

const schema = `
CREATE TABLE IF NOT EXISTS conversation (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	uid TEXT NOT NULL UNIQUE,
	user_id TEXT NOT NULL,
	character_name TEXT NOT NULL,
	character_description TEXT NOT NULL DEFAULT '',
	created_ts BIGINT NOT NULL,
	updated_ts BIGINT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_conversation_user_id ON conversation (user_id, updated_ts);
CREATE INDEX IF NOT EXISTS idx_conversation_character ON conversation (character_name, updated_ts);

CREATE TABLE IF NOT EXISTS message (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	conversation_id INTEGER NOT NULL REFERENCES conversation (id) ON DELETE CASCADE,
	role TEXT NOT NULL,
	content TEXT NOT NULL,
	created_ts BIGINT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_message_conversation ON message (conversation_id, id);

CREATE TABLE IF NOT EXISTS user_memory (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	user_id TEXT NOT NULL,
	character_name TEXT NOT NULL,
	total_messages INTEGER NOT NULL DEFAULT 0,
	last_conversation_ts BIGINT NOT NULL DEFAULT 0,
	likes TEXT NOT NULL DEFAULT '[]',
	dislikes TEXT NOT NULL DEFAULT '[]',
	extra TEXT NOT NULL DEFAULT '{}',
	created_ts BIGINT NOT NULL,
	updated_ts BIGINT NOT NULL,
	UNIQUE (user_id, character_name)
);

CREATE TABLE IF NOT EXISTS custom_role (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	uid TEXT NOT NULL UNIQUE,
	name TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	personality TEXT NOT NULL DEFAULT '',
	category TEXT NOT NULL DEFAULT '',
	tags TEXT NOT NULL DEFAULT '[]',
	image TEXT NOT NULL DEFAULT '',
	system_prompt TEXT NOT NULL DEFAULT '',
	created_ts BIGINT NOT NULL,
	updated_ts BIGINT NOT NULL
);
`

func (d *DB) migrate(ctx context.Context) error {
	_, err := d.db.ExecContext(ctx, schema)
	return err
}

func (d *DB) Ping(ctx context.Context) error {
	return d.db.PingContext(ctx)
}

func (d *DB) Close() error {
	return d.db.Close()
}

func (d *DB) Stats(ctx context.Context) (*store.Stats, error) {
	stats := &store.Stats{Driver: "sqlite"}
	row := d.db.QueryRowContext(ctx, `
		SELECT
			(SELECT COUNT(*) FROM conversation),
			(SELECT COUNT(*) FROM message),
			(SELECT COUNT(*) FROM user_memory),
			(SELECT COUNT(*) FROM custom_role)`)
	if err := row.Scan(&stats.Conversations, &stats.Messages, &stats.Memories, &stats.CustomRoles); err != nil {
		return nil, errors.Wrap(err, "failed to collect stats")
	}
	return stats, nil
}

// placeholders returns n comma-joined ? placeholders.
func placeholders(n int) string {
	list := make([]string, n)
	for i := range list {
		list[i] = "?"
	}
	return strings.Join(list, ", ")
}

func marshalStrings(v []string) string {
	if v == nil {
		v = []string{}
	}
	raw, _ := json.Marshal(v)
	return string(raw)
}

func unmarshalStrings(raw string) []string {
	var out []string
	_ = json.Unmarshal([]byte(raw), &out)
	return out
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
