package report

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
)

// PostgresStore keeps report documents in one table, content inline.
type PostgresStore struct {
	db         *sql.DB
	schemaOnce sync.Once
	schemaErr  error
}

func NewPostgresStore(dsn string) (*PostgresStore, error) {
	db, err := sql.Open("pgx", strings.TrimSpace(dsn))
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &PostgresStore{db: db}, nil
}

func (s *PostgresStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *PostgresStore) ensureSchema() error {
	if s == nil || s.db == nil {
		return fmt.Errorf("db is nil")
	}
	s.schemaOnce.Do(func() {
		_, s.schemaErr = s.db.Exec(`
CREATE TABLE IF NOT EXISTS assessment_reports (
    id SERIAL PRIMARY KEY,
    name TEXT NOT NULL UNIQUE,
    content BYTEA NOT NULL DEFAULT ''::bytea,
    size BIGINT NOT NULL,
    updated_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
);
`)
	})
	return s.schemaErr
}

func (s *PostgresStore) Put(ctx context.Context, name string, content []byte) error {
	name, err := validateName(name)
	if err != nil {
		return err
	}
	if err := s.ensureSchema(); err != nil {
		return err
	}
	if content == nil {
		content = []byte{}
	}
	_, err = s.db.ExecContext(ctx, `
INSERT INTO assessment_reports (name, content, size, updated_at)
VALUES ($1, $2, $3, $4)
ON CONFLICT (name)
DO UPDATE SET content=EXCLUDED.content, size=EXCLUDED.size, updated_at=EXCLUDED.updated_at
`, name, content, int64(len(content)), time.Now())
	return err
}

func (s *PostgresStore) Get(ctx context.Context, name string) ([]byte, error) {
	name, err := validateName(name)
	if err != nil {
		return nil, err
	}
	if err := s.ensureSchema(); err != nil {
		return nil, err
	}
	var content []byte
	err = s.db.QueryRowContext(ctx, `SELECT content FROM assessment_reports WHERE name=$1`, name).Scan(&content)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	return content, err
}

func (s *PostgresStore) Stat(ctx context.Context, name string) (Info, error) {
	name, err := validateName(name)
	if err != nil {
		return Info{}, err
	}
	if err := s.ensureSchema(); err != nil {
		return Info{}, err
	}
	var info Info
	err = s.db.QueryRowContext(ctx, `SELECT name, size, updated_at FROM assessment_reports WHERE name=$1`, name).
		Scan(&info.Name, &info.Size, &info.ModifiedAt)
	if err == sql.ErrNoRows {
		return Info{}, ErrNotFound
	}
	return info, err
}

func (s *PostgresStore) List(ctx context.Context) ([]Info, error) {
	if err := s.ensureSchema(); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, `SELECT name, size, updated_at FROM assessment_reports ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var infos []Info
	for rows.Next() {
		var info Info
		if err := rows.Scan(&info.Name, &info.Size, &info.ModifiedAt); err != nil {
			continue
		}
		infos = append(infos, info)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return infos, nil
}
