package audit

import (
	"context"
	"database/sql"
)

// Schema for the activity_logs table. The table is INSERT-only.
var Schema = []string{`
CREATE TABLE IF NOT EXISTS activity_logs (
  id            TEXT PRIMARY KEY,
  action        TEXT NOT NULL,
  performed_by  TEXT NOT NULL,
  target_user   TEXT NOT NULL DEFAULT '',
  target_record JSONB,
  details       TEXT NOT NULL DEFAULT '',
  "timestamp"   TIMESTAMPTZ NOT NULL
)`,
	`CREATE INDEX IF NOT EXISTS activity_logs_timestamp_idx ON activity_logs ("timestamp" DESC)`,
}

type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo { return &PostgresRepo{db: db} }

func (r *PostgresRepo) Append(ctx context.Context, e LogEntry) error {
	const q = `
INSERT INTO activity_logs (id, action, performed_by, target_user, target_record, details, "timestamp")
VALUES ($1,$2,$3,$4,$5,$6,$7)
`
	var target any
	if len(e.TargetRecord) > 0 {
		target = string(e.TargetRecord)
	}
	_, err := r.db.ExecContext(ctx, q,
		e.ID,
		e.Action,
		e.PerformedBy,
		e.TargetUser,
		target,
		e.Details,
		e.Timestamp,
	)
	return err
}

func (r *PostgresRepo) List(ctx context.Context, limit int) ([]LogEntry, error) {
	q := `
SELECT id, action, performed_by, target_user, target_record, details, "timestamp"
FROM activity_logs
ORDER BY "timestamp" DESC
`
	args := []any{}
	if limit > 0 {
		q += "LIMIT $1"
		args = append(args, limit)
	}
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]LogEntry, 0)
	for rows.Next() {
		var e LogEntry
		var target sql.NullString
		if err := rows.Scan(
			&e.ID,
			&e.Action,
			&e.PerformedBy,
			&e.TargetUser,
			&target,
			&e.Details,
			&e.Timestamp,
		); err != nil {
			return nil, err
		}
		if target.Valid {
			e.TargetRecord = []byte(target.String)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
