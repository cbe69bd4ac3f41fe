package records

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"arrest-log/pkg/utils"
)

// Schema for prison_records. seq preserves insertion order for rows that
// share a created_at (imported data).
var Schema = []string{`
CREATE TABLE IF NOT EXISTS prison_records (
  seq                  BIGSERIAL,
  id                   TEXT PRIMARY KEY,
  fixed_id             TEXT NOT NULL DEFAULT '',
  individual_name      TEXT NOT NULL,
  date_time            TEXT NOT NULL DEFAULT '',
  location             TEXT NOT NULL DEFAULT '',
  reason               TEXT NOT NULL DEFAULT '',
  seized_items         TEXT NOT NULL DEFAULT '',
  responsible_officers TEXT NOT NULL DEFAULT '',
  articles             TEXT NOT NULL DEFAULT '',
  observations         TEXT NOT NULL DEFAULT '',
  screenshots          JSONB NOT NULL DEFAULT '[]'::jsonb,
  created_by           TEXT NOT NULL,
  created_at           TIMESTAMPTZ NOT NULL,
  edited_by            TEXT NOT NULL DEFAULT '',
  edited_at            TIMESTAMPTZ,
  version              BIGINT NOT NULL DEFAULT 1
)`,
	`CREATE INDEX IF NOT EXISTS prison_records_individual_idx ON prison_records (lower(individual_name))`,
	`CREATE INDEX IF NOT EXISTS prison_records_created_idx ON prison_records (created_at DESC, seq DESC)`,
}

const recordColumns = `id, fixed_id, individual_name, date_time, location, reason, seized_items,
responsible_officers, articles, observations, screenshots, created_by, created_at,
edited_by, edited_at, version`

type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo { return &PostgresRepo{db: db} }

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (PrisonRecord, error) {
	var (
		r        PrisonRecord
		shots    []byte
		editedAt sql.NullTime
	)
	if err := row.Scan(
		&r.ID,
		&r.FixedID,
		&r.IndividualName,
		&r.DateTime,
		&r.Location,
		&r.Reason,
		&r.SeizedItems,
		&r.ResponsibleOfficers,
		&r.Articles,
		&r.Observations,
		&shots,
		&r.CreatedBy,
		&r.CreatedAt,
		&r.EditedBy,
		&editedAt,
		&r.Version,
	); err != nil {
		return PrisonRecord{}, err
	}
	if len(shots) > 0 {
		if err := json.Unmarshal(shots, &r.Screenshots); err != nil {
			return PrisonRecord{}, fmt.Errorf("decode screenshots: %w", err)
		}
	}
	if editedAt.Valid {
		t := editedAt.Time
		r.EditedAt = &t
	}
	return r, nil
}

func screenshotsJSON(s []string) (string, error) {
	if s == nil {
		s = []string{}
	}
	b, err := json.Marshal(s)
	return string(b), err
}

func (p *PostgresRepo) Insert(ctx context.Context, r PrisonRecord) error {
	shots, err := screenshotsJSON(r.Screenshots)
	if err != nil {
		return err
	}
	const q = `
INSERT INTO prison_records (id, fixed_id, individual_name, date_time, location, reason, seized_items,
  responsible_officers, articles, observations, screenshots, created_by, created_at, edited_by, edited_at, version)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11::jsonb,$12,$13,$14,$15,$16)
`
	_, err = p.db.ExecContext(ctx, q,
		r.ID, r.FixedID, r.IndividualName, r.DateTime, r.Location, r.Reason, r.SeizedItems,
		r.ResponsibleOfficers, r.Articles, r.Observations, shots, r.CreatedBy, r.CreatedAt,
		r.EditedBy, r.EditedAt, r.Version,
	)
	if utils.IsUniqueViolation(err) {
		return ErrInvalidRecord
	}
	return err
}

func (p *PostgresRepo) Get(ctx context.Context, id string) (PrisonRecord, error) {
	q := `SELECT ` + recordColumns + ` FROM prison_records WHERE id = $1`
	r, err := scanRecord(p.db.QueryRowContext(ctx, q, id))
	if errors.Is(err, sql.ErrNoRows) {
		return PrisonRecord{}, ErrNotFound
	}
	return r, err
}

func (p *PostgresRepo) List(ctx context.Context) ([]PrisonRecord, error) {
	q := `SELECT ` + recordColumns + ` FROM prison_records ORDER BY created_at DESC, seq DESC`
	rows, err := p.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]PrisonRecord, 0)
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (p *PostgresRepo) Update(ctx context.Context, id string, fn MutateFunc) (PrisonRecord, error) {
	var out PrisonRecord
	err := utils.WithTx(ctx, p.db, nil, func(ctx context.Context, tx *sql.Tx) error {
		// Lock the row so concurrent edits serialize on it.
		q := `SELECT ` + recordColumns + ` FROM prison_records WHERE id = $1 FOR UPDATE`
		r, err := scanRecord(tx.QueryRowContext(ctx, q, id))
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrNotFound
			}
			return err
		}
		if err := fn(&r); err != nil {
			return err
		}
		shots, err := screenshotsJSON(r.Screenshots)
		if err != nil {
			return err
		}

		const upd = `
UPDATE prison_records SET
  fixed_id = $2, individual_name = $3, date_time = $4, location = $5, reason = $6,
  seized_items = $7, responsible_officers = $8, articles = $9, observations = $10,
  screenshots = $11::jsonb, edited_by = $12, edited_at = $13, version = version + 1
WHERE id = $1
RETURNING version
`
		if err := tx.QueryRowContext(ctx, upd,
			id, r.FixedID, r.IndividualName, r.DateTime, r.Location, r.Reason,
			r.SeizedItems, r.ResponsibleOfficers, r.Articles, r.Observations,
			shots, r.EditedBy, r.EditedAt,
		).Scan(&r.Version); err != nil {
			return err
		}
		r.ID = id
		out = r
		return nil
	})
	if err != nil {
		return PrisonRecord{}, err
	}
	return out, nil
}

func (p *PostgresRepo) Delete(ctx context.Context, id string) (PrisonRecord, error) {
	q := `DELETE FROM prison_records WHERE id = $1 RETURNING ` + recordColumns
	r, err := scanRecord(p.db.QueryRowContext(ctx, q, id))
	if errors.Is(err, sql.ErrNoRows) {
		return PrisonRecord{}, ErrNotFound
	}
	return r, err
}
