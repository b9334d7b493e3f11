package sqlite

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/ningoooo/rolechat/store"
)

const roleColumns = `uid, name, description, personality, category, tags, image, system_prompt, created_ts, updated_ts`

func scanRole(row interface{ Scan(...any) error }) (*store.CustomRole, error) {
	r := &store.CustomRole{IsCustom: true}
	var tags string
	if err := row.Scan(
		&r.ID, &r.Name, &r.Description, &r.Personality, &r.Category,
		&tags, &r.Image, &r.SystemPrompt, &r.CreatedTs, &r.UpdatedTs,
	); err != nil {
		return nil, err
	}
	r.Tags = unmarshalStrings(tags)
	return r, nil
}

func (d *DB) CreateCustomRole(ctx context.Context, create *store.CustomRole) (*store.CustomRole, error) {
	stmt := `INSERT INTO custom_role (` + roleColumns + `)
		VALUES (` + placeholders(10) + `)`
	if _, err := d.db.ExecContext(ctx, stmt,
		create.ID, create.Name, create.Description, create.Personality, create.Category,
		marshalStrings(create.Tags), create.Image, create.SystemPrompt, create.CreatedTs, create.UpdatedTs,
	); err != nil {
		if isUniqueViolation(err) {
			return nil, store.ErrAlreadyExists
		}
		return nil, errors.Wrap(err, "failed to create custom role")
	}
	out := *create
	return &out, nil
}

func (d *DB) GetCustomRole(ctx context.Context, id string) (*store.CustomRole, error) {
	row := d.db.QueryRowContext(ctx, `SELECT `+roleColumns+` FROM custom_role WHERE uid = ?`, id)
	r, err := scanRole(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, errors.Wrap(err, "failed to get custom role")
	}
	return r, nil
}

func (d *DB) ListCustomRoles(ctx context.Context, find *store.FindCustomRole) ([]*store.CustomRole, error) {
	where, args := []string{"1 = 1"}, []any{}
	if v := find.ID; v != nil {
		where, args = append(where, "uid = ?"), append(args, *v)
	}
	if v := find.Keyword; v != nil {
		kw := "%" + strings.ToLower(*v) + "%"
		where = append(where, "(LOWER(name) LIKE ? OR LOWER(description) LIKE ? OR LOWER(personality) LIKE ?)")
		args = append(args, kw, kw, kw)
	}

	rows, err := d.db.QueryContext(ctx, `
		SELECT `+roleColumns+` FROM custom_role
		WHERE `+strings.Join(where, " AND ")+`
		ORDER BY created_ts DESC`, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list custom roles")
	}
	defer rows.Close()

	var out []*store.CustomRole
	for rows.Next() {
		r, err := scanRole(rows)
		if err != nil {
			return nil, errors.Wrap(err, "failed to scan custom role")
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (d *DB) UpdateCustomRole(ctx context.Context, update *store.UpdateCustomRole) (*store.CustomRole, error) {
	set, args := []string{}, []any{}
	if v := update.Name; v != nil {
		set, args = append(set, "name = ?"), append(args, *v)
	}
	if v := update.Description; v != nil {
		set, args = append(set, "description = ?"), append(args, *v)
	}
	if v := update.Personality; v != nil {
		set, args = append(set, "personality = ?"), append(args, *v)
	}
	if v := update.Category; v != nil {
		set, args = append(set, "category = ?"), append(args, *v)
	}
	if v := update.Tags; v != nil {
		set, args = append(set, "tags = ?"), append(args, marshalStrings(*v))
	}
	if v := update.Image; v != nil {
		set, args = append(set, "image = ?"), append(args, *v)
	}
	if v := update.SystemPrompt; v != nil {
		set, args = append(set, "system_prompt = ?"), append(args, *v)
	}
	set, args = append(set, "updated_ts = ?"), append(args, time.Now().Unix())
	args = append(args, update.ID)

	result, err := d.db.ExecContext(ctx, `UPDATE custom_role SET `+strings.Join(set, ", ")+` WHERE uid = ?`, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to update custom role")
	}
	if n, err := result.RowsAffected(); err != nil {
		return nil, err
	} else if n == 0 {
		return nil, store.ErrNotFound
	}
	return d.GetCustomRole(ctx, update.ID)
}

func (d *DB) DeleteCustomRole(ctx context.Context, id string) (bool, error) {
	result, err := d.db.ExecContext(ctx, `DELETE FROM custom_role WHERE uid = ?`, id)
	if err != nil {
		return false, errors.Wrap(err, "failed to delete custom role")
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
