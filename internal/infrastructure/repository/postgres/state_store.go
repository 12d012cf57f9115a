package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/avoronin/docmd/internal/core/domain"
)

// DocumentStateRepository persists the per-document lifecycle state so that
// a failed conversion is distinguishable from one still in flight.
type DocumentStateRepository struct {
	db *sql.DB
}

func NewDocumentStateRepository(db *sql.DB) *DocumentStateRepository {
	return &DocumentStateRepository{db: db}
}

func (r *DocumentStateRepository) Upsert(ctx context.Context, userID, baseName string, state domain.DocumentState, errMessage string) error {
	_, err := r.db.ExecContext(ctx, `
INSERT INTO document_states (user_id, base_name, state, error_message, updated_at)
VALUES ($1,$2,$3,$4,$5)
ON CONFLICT (user_id, base_name) DO UPDATE SET
	state = EXCLUDED.state,
	error_message = EXCLUDED.error_message,
	updated_at = EXCLUDED.updated_at
`, userID, baseName, string(state), errMessage, time.Now().UTC())
	if err != nil {
		return domain.WrapError(domain.ErrStorage, "upsert document state", err)
	}
	return nil
}

func (r *DocumentStateRepository) ListStates(ctx context.Context, userID string) (map[string]domain.DocumentState, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT base_name, state
FROM document_states
WHERE user_id = $1
`, userID)
	if err != nil {
		return nil, domain.WrapError(domain.ErrStorage, "list document states", err)
	}
	defer rows.Close()

	out := make(map[string]domain.DocumentState)
	for rows.Next() {
		var base, state string
		if err := rows.Scan(&base, &state); err != nil {
			return nil, domain.WrapError(domain.ErrStorage, "scan document state", err)
		}
		out[base] = domain.DocumentState(state)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.WrapError(domain.ErrStorage, "iterate document states", err)
	}
	return out, nil
}

func (r *DocumentStateRepository) DeleteAll(ctx context.Context, userID string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM document_states WHERE user_id = $1`, userID); err != nil {
		return domain.WrapError(domain.ErrStorage, "delete document states", err)
	}
	return nil
}
