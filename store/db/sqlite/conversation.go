package sqlite

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/ningoooo/rolechat/store"
)

func (d *DB) CreateConversation(ctx context.Context, create *store.Conversation) (*store.Conversation, error) {
	fields := []string{"uid", "user_id", "character_name", "character_description", "created_ts", "updated_ts"}
	args := []any{create.ID, create.UserID, create.CharacterName, create.CharacterDescription, create.CreatedTs, create.UpdatedTs}

	stmt := `INSERT INTO conversation (` + strings.Join(fields, ", ") + `)
		VALUES (` + placeholders(len(args)) + `)`
	if _, err := d.db.ExecContext(ctx, stmt, args...); err != nil {
		if isUniqueViolation(err) {
			return nil, store.ErrAlreadyExists
		}
		return nil, errors.Wrap(err, "failed to create conversation")
	}
	out := *create
	out.Messages = []store.Message{}
	return &out, nil
}

func (d *DB) GetConversation(ctx context.Context, id string) (*store.Conversation, error) {
	row := d.db.QueryRowContext(ctx, `
		SELECT id, uid, user_id, character_name, character_description, created_ts, updated_ts
		FROM conversation WHERE uid = ?`, id)

	var rowID int64
	c := &store.Conversation{}
	if err := row.Scan(&rowID, &c.ID, &c.UserID, &c.CharacterName, &c.CharacterDescription, &c.CreatedTs, &c.UpdatedTs); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, errors.Wrap(err, "failed to get conversation")
	}

	messages, err := d.listMessages(ctx, rowID)
	if err != nil {
		return nil, err
	}
	c.Messages = messages
	return c, nil
}

func (d *DB) listMessages(ctx context.Context, conversationRowID int64) ([]store.Message, error) {
	rows, err := d.db.QueryContext(ctx, `
		SELECT role, content, created_ts FROM message
		WHERE conversation_id = ? ORDER BY id ASC`, conversationRowID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list messages")
	}
	defer rows.Close()

	messages := []store.Message{}
	for rows.Next() {
		var m store.Message
		if err := rows.Scan(&m.Role, &m.Content, &m.CreatedTs); err != nil {
			return nil, errors.Wrap(err, "failed to scan message")
		}
		messages = append(messages, m)
	}
	return messages, rows.Err()
}

func (d *DB) AppendConversationMessage(ctx context.Context, msg *store.AppendMessage) error {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "failed to begin tx")
	}
	defer func() {
		_ = tx.Rollback()
	}()

	var rowID int64
	if err := tx.QueryRowContext(ctx, `SELECT id FROM conversation WHERE uid = ?`, msg.ConversationID).Scan(&rowID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return store.ErrNotFound
		}
		return errors.Wrap(err, "failed to resolve conversation")
	}

	now := time.Now().Unix()
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO message (conversation_id, role, content, created_ts)
		VALUES (?, ?, ?, ?)`, rowID, msg.Role, msg.Content, now); err != nil {
		return errors.Wrap(err, "failed to append message")
	}
	if _, err := tx.ExecContext(ctx, `UPDATE conversation SET updated_ts = ? WHERE id = ?`, now, rowID); err != nil {
		return errors.Wrap(err, "failed to touch conversation")
	}
	return tx.Commit()
}

func (d *DB) ListConversations(ctx context.Context, find *store.FindConversation) ([]*store.Conversation, error) {
	where, args := []string{"1 = 1"}, []any{}
	if v := find.ID; v != nil {
		where, args = append(where, "uid = ?"), append(args, *v)
	}
	if v := find.UserID; v != nil {
		where, args = append(where, "user_id = ?"), append(args, *v)
	}
	if v := find.CharacterName; v != nil {
		where, args = append(where, "character_name = ?"), append(args, *v)
	}

	// updated_ts is bumped on every append, so it tracks the last message
	// time and equals created_ts for empty conversations.
	query := `
		SELECT id, uid, user_id, character_name, character_description, created_ts, updated_ts
		FROM conversation
		WHERE ` + strings.Join(where, " AND ") + `
		ORDER BY updated_ts DESC`
	if find.Limit != nil {
		query += " LIMIT ?"
		args = append(args, *find.Limit)
	}

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list conversations")
	}
	defer rows.Close()

	type convRow struct {
		rowID int64
		conv  *store.Conversation
	}
	var list []convRow
	for rows.Next() {
		c := &store.Conversation{}
		var rowID int64
		if err := rows.Scan(&rowID, &c.ID, &c.UserID, &c.CharacterName, &c.CharacterDescription, &c.CreatedTs, &c.UpdatedTs); err != nil {
			return nil, errors.Wrap(err, "failed to scan conversation")
		}
		list = append(list, convRow{rowID: rowID, conv: c})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	out := make([]*store.Conversation, 0, len(list))
	for _, cr := range list {
		messages, err := d.listMessages(ctx, cr.rowID)
		if err != nil {
			return nil, err
		}
		cr.conv.Messages = messages
		out = append(out, cr.conv)
	}
	return out, nil
}

func (d *DB) DeleteConversation(ctx context.Context, id string) (bool, error) {
	result, err := d.db.ExecContext(ctx, `DELETE FROM conversation WHERE uid = ?`, id)
	if err != nil {
		return false, errors.Wrap(err, "failed to delete conversation")
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (d *DB) CleanupConversations(ctx context.Context, beforeTs int64) (int, error) {
	result, err := d.db.ExecContext(ctx, `DELETE FROM conversation WHERE updated_ts < ?`, beforeTs)
	if err != nil {
		return 0, errors.Wrap(err, "failed to cleanup conversations")
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(n), nil
}
