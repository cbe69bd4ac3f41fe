package users

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"arrest-log/internal/rbac"
	"arrest-log/pkg/utils"
)

// Schema for the users table. The UNIQUE index backs the registration-time
// check so two concurrent registrations cannot both win.
var Schema = []string{`
CREATE TABLE IF NOT EXISTS users (
  id            TEXT PRIMARY KEY,
  username      TEXT NOT NULL,
  credential    TEXT NOT NULL,
  role          TEXT NOT NULL,
  created_at    TIMESTAMPTZ NOT NULL,
  last_activity TIMESTAMPTZ
)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS users_username_key ON users (username)`,
}

type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo { return &PostgresRepo{db: db} }

const userColumns = `id, username, credential, role, created_at, last_activity`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (User, error) {
	var u User
	var last sql.NullTime
	if err := row.Scan(
		&u.ID,
		&u.Username,
		&u.Credential,
		&u.Role,
		&u.CreatedAt,
		&last,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return User{}, ErrNotFound
		}
		return User{}, err
	}
	if last.Valid {
		t := last.Time
		u.LastActivity = &t
	}
	return u, nil
}

func (r *PostgresRepo) Create(ctx context.Context, u User) error {
	const q = `
INSERT INTO users (id, username, credential, role, created_at, last_activity)
VALUES ($1,$2,$3,$4,$5,$6)
`
	var last any
	if u.LastActivity != nil {
		last = *u.LastActivity
	}
	_, err := r.db.ExecContext(ctx, q, u.ID, u.Username, u.Credential, u.Role, u.CreatedAt, last)
	if utils.IsUniqueViolation(err) {
		return ErrDuplicateUsername
	}
	return err
}

func (r *PostgresRepo) GetByID(ctx context.Context, id string) (User, error) {
	q := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return scanUser(r.db.QueryRowContext(ctx, q, id))
}

func (r *PostgresRepo) GetByUsername(ctx context.Context, username string) (User, error) {
	q := `SELECT ` + userColumns + ` FROM users WHERE username = $1`
	return scanUser(r.db.QueryRowContext(ctx, q, username))
}

func (r *PostgresRepo) List(ctx context.Context) ([]User, error) {
	q := `SELECT ` + userColumns + ` FROM users ORDER BY created_at ASC`
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]User, 0)
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

func (r *PostgresRepo) Count(ctx context.Context) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&n)
	return n, err
}

func (r *PostgresRepo) UpdateRole(ctx context.Context, id string, role rbac.Role) (User, error) {
	q := `UPDATE users SET role = $2 WHERE id = $1 RETURNING ` + userColumns
	return scanUser(r.db.QueryRowContext(ctx, q, id, role))
}

func (r *PostgresRepo) UpdateCredential(ctx context.Context, id, credential string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE users SET credential = $2 WHERE id = $1`, id, credential)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PostgresRepo) TouchActivity(ctx context.Context, id string, at time.Time) (User, error) {
	q := `
UPDATE users
SET last_activity = GREATEST(COALESCE(last_activity, $2), $2)
WHERE id = $1
RETURNING ` + userColumns
	return scanUser(r.db.QueryRowContext(ctx, q, id, at))
}

func (r *PostgresRepo) Delete(ctx context.Context, id string) (User, error) {
	q := `DELETE FROM users WHERE id = $1 RETURNING ` + userColumns
	return scanUser(r.db.QueryRowContext(ctx, q, id))
}
