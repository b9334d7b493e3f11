package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/ningoooo/rolechat/store"
)

func scanMemory(row interface{ Scan(...any) error }) (*store.UserMemory, error) {
	m := &store.UserMemory{}
	var likes, dislikes, extra string
	if err := row.Scan(
		&m.UserID, &m.CharacterName, &m.TotalMessages, &m.LastConversationTs,
		&likes, &dislikes, &extra, &m.CreatedTs, &m.UpdatedTs,
	); err != nil {
		return nil, err
	}
	m.Likes = unmarshalStrings(likes)
	m.Dislikes = unmarshalStrings(dislikes)
	if extra != "" && extra != "{}" {
		_ = json.Unmarshal([]byte(extra), &m.Extra)
	}
	return m, nil
}

const memoryColumns = `user_id, character_name, total_messages, last_conversation_ts, likes, dislikes, extra, created_ts, updated_ts`

func (d *DB) GetUserMemory(ctx context.Context, userID, characterName string) (*store.UserMemory, error) {
	row := d.db.QueryRowContext(ctx, `
		SELECT `+memoryColumns+` FROM user_memory
		WHERE user_id = ? AND character_name = ?`, userID, characterName)
	m, err := scanMemory(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, errors.Wrap(err, "failed to get user memory")
	}
	return m, nil
}

// UpsertUserMemory merges inside a transaction: the row is read, merged in
// Go (list append has no native SQL form with JSON text columns) and written
// back.
func (d *DB) UpsertUserMemory(ctx context.Context, upsert *store.UpsertUserMemory) (*store.UserMemory, error) {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, errors.Wrap(err, "failed to begin tx")
	}
	defer func() {
		_ = tx.Rollback()
	}()

	now := time.Now().Unix()
	row := tx.QueryRowContext(ctx, `
		SELECT `+memoryColumns+` FROM user_memory
		WHERE user_id = ? AND character_name = ?`, upsert.UserID, upsert.CharacterName)
	m, err := scanMemory(row)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			return nil, errors.Wrap(err, "failed to read user memory")
		}
		m = &store.UserMemory{
			UserID:        upsert.UserID,
			CharacterName: upsert.CharacterName,
			CreatedTs:     now,
		}
	}

	m.TotalMessages += upsert.IncTotalMessages
	if upsert.LastConversationTs != 0 {
		m.LastConversationTs = upsert.LastConversationTs
	}
	m.Likes = append(m.Likes, upsert.AddLikes...)
	m.Dislikes = append(m.Dislikes, upsert.AddDislikes...)
	if len(upsert.SetExtra) > 0 {
		if m.Extra == nil {
			m.Extra = make(map[string]string, len(upsert.SetExtra))
		}
		for k, v := range upsert.SetExtra {
			m.Extra[k] = v
		}
	}
	m.UpdatedTs = now

	extra := "{}"
	if len(m.Extra) > 0 {
		raw, _ := json.Marshal(m.Extra)
		extra = string(raw)
	}

	stmt := `INSERT INTO user_memory (` + memoryColumns + `)
		VALUES (` + placeholders(9) + `)
		ON CONFLICT (user_id, character_name) DO UPDATE SET
			total_messages = excluded.total_messages,
			last_conversation_ts = excluded.last_conversation_ts,
			likes = excluded.likes,
			dislikes = excluded.dislikes,
			extra = excluded.extra,
			updated_ts = excluded.updated_ts`
	if _, err := tx.ExecContext(ctx, stmt,
		m.UserID, m.CharacterName, m.TotalMessages, m.LastConversationTs,
		marshalStrings(m.Likes), marshalStrings(m.Dislikes), extra, m.CreatedTs, m.UpdatedTs,
	); err != nil {
		return nil, errors.Wrap(err, "failed to upsert user memory")
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return m, nil
}

func (d *DB) ListUserMemories(ctx context.Context, find *store.FindUserMemory) ([]*store.UserMemory, error) {
	where, args := []string{"user_id = ?"}, []any{find.UserID}
	if v := find.CharacterName; v != nil {
		where, args = append(where, "character_name = ?"), append(args, *v)
	}

	rows, err := d.db.QueryContext(ctx, `
		SELECT `+memoryColumns+` FROM user_memory
		WHERE `+strings.Join(where, " AND ")+`
		ORDER BY character_name ASC`, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list user memories")
	}
	defer rows.Close()

	var out []*store.UserMemory
	for rows.Next() {
		m, err := scanMemory(rows)
		if err != nil {
			return nil, errors.Wrap(err, "failed to scan user memory")
		}
		out = append(out, m)
	}
	return out, rows.Err()
}
