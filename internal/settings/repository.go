package settings

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"sync"
)

type Repository interface {
	// Load returns the stored settings; ok is false when none were saved.
	Load(ctx context.Context) (s AppSettings, ok bool, err error)
	Save(ctx context.Context, s AppSettings) error
}

type MemoryRepo struct {
	mu  sync.Mutex
	cur *AppSettings
}

func NewMemoryRepo() *MemoryRepo { return &MemoryRepo{} }

func (m *MemoryRepo) Load(ctx context.Context) (AppSettings, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cur == nil {
		return AppSettings{}, false, nil
	}
	return *m.cur, true, nil
}

func (m *MemoryRepo) Save(ctx context.Context, s AppSettings) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cur = &s
	return nil
}

// Schema for app_settings: one row, id = 1, document in JSONB.
var Schema = []string{`
CREATE TABLE IF NOT EXISTS app_settings (
  id         SMALLINT PRIMARY KEY CHECK (id = 1),
  document   JSONB NOT NULL,
  updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`,
}

type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo { return &PostgresRepo{db: db} }

func (p *PostgresRepo) Load(ctx context.Context) (AppSettings, bool, error) {
	var raw []byte
	err := p.db.QueryRowContext(ctx, `SELECT document FROM app_settings WHERE id = 1`).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return AppSettings{}, false, nil
	}
	if err != nil {
		return AppSettings{}, false, err
	}
	var s AppSettings
	if err := json.Unmarshal(raw, &s); err != nil {
		return AppSettings{}, false, err
	}
	return s, true, nil
}

func (p *PostgresRepo) Save(ctx context.Context, s AppSettings) error {
	raw, err := json.Marshal(s)
	if err != nil {
		return err
	}
	const q = `
INSERT INTO app_settings (id, document, updated_at)
VALUES (1, $1::jsonb, now())
ON CONFLICT (id) DO UPDATE SET document = EXCLUDED.document, updated_at = EXCLUDED.updated_at
`
	_, err = p.db.ExecContext(ctx, q, string(raw))
	return err
}
