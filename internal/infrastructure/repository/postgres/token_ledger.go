package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/avoronin/docmd/internal/core/domain"
)

// TokenLedgerRepository accounts tokens consumed per (user, file). Write
// policy is upsert-replace: a re-processed document's row carries only the
// total of its latest run.
type TokenLedgerRepository struct {
	db *sql.DB
}

func NewTokenLedgerRepository(db *sql.DB) *TokenLedgerRepository {
	return &TokenLedgerRepository{db: db}
}

func OpenDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("sql open: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("db ping: %w", err)
	}
	return db, nil
}

func (r *TokenLedgerRepository) EnsureSchema(ctx context.Context) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// Serialize bootstrap DDL across api/worker startups.
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, int64(2026082801)); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}

	const query = `
CREATE TABLE IF NOT EXISTS tokens (
	id BIGSERIAL PRIMARY KEY,
	user_id TEXT NOT NULL,
	file_name TEXT NOT NULL,
	total_tokens BIGINT NOT NULL DEFAULT 0,
	updated_at TIMESTAMPTZ NOT NULL,
	UNIQUE (user_id, file_name)
);

CREATE TABLE IF NOT EXISTS document_states (
	user_id TEXT NOT NULL,
	base_name TEXT NOT NULL,
	state TEXT NOT NULL,
	error_message TEXT NOT NULL DEFAULT '',
	updated_at TIMESTAMPTZ NOT NULL,
	PRIMARY KEY (user_id, base_name)
);

CREATE INDEX IF NOT EXISTS idx_tokens_user ON tokens(user_id);
`
	if _, err := tx.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("execute schema ddl: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema tx: %w", err)
	}
	return nil
}

func (r *TokenLedgerRepository) Record(ctx context.Context, userID, fileName string, totalTokens int) error {
	_, err := r.db.ExecContext(ctx, `
INSERT INTO tokens (user_id, file_name, total_tokens, updated_at)
VALUES ($1,$2,$3,$4)
ON CONFLICT (user_id, file_name) DO UPDATE SET
	total_tokens = EXCLUDED.total_tokens,
	updated_at = EXCLUDED.updated_at
`, userID, fileName, totalTokens, time.Now().UTC())
	if err != nil {
		return domain.WrapError(domain.ErrStorage, "record token usage", err)
	}
	return nil
}

func (r *TokenLedgerRepository) Get(ctx context.Context, userID, fileName string) (domain.TokenRecord, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT user_id, file_name, total_tokens, updated_at
FROM tokens
WHERE user_id = $1 AND file_name = $2
`, userID, fileName)

	rec, err := scanTokenRecord(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.TokenRecord{}, domain.WrapError(domain.ErrNotFound, "get token record", err)
		}
		return domain.TokenRecord{}, domain.WrapError(domain.ErrStorage, "get token record", err)
	}
	return rec, nil
}

func (r *TokenLedgerRepository) List(ctx context.Context, userID string) ([]domain.TokenRecord, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT user_id, file_name, total_tokens, updated_at
FROM tokens
WHERE user_id = $1
ORDER BY file_name
`, userID)
	if err != nil {
		return nil, domain.WrapError(domain.ErrStorage, "list token records", err)
	}
	defer rows.Close()

	out := make([]domain.TokenRecord, 0)
	for rows.Next() {
		rec, err := scanTokenRecord(rows)
		if err != nil {
			return nil, domain.WrapError(domain.ErrStorage, "scan token record", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.WrapError(domain.ErrStorage, "iterate token records", err)
	}
	return out, nil
}

func (r *TokenLedgerRepository) DeleteAll(ctx context.Context, userID string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM tokens WHERE user_id = $1`, userID); err != nil {
		return domain.WrapError(domain.ErrStorage, "delete token records", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanTokenRecord(row rowScanner) (domain.TokenRecord, error) {
	var rec domain.TokenRecord
	err := row.Scan(&rec.UserID, &rec.FileName, &rec.TotalTokens, &rec.UpdatedAt)
	if err != nil {
		return domain.TokenRecord{}, err
	}
	return rec, nil
}
