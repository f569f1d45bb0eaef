package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"gradschool/internal/models"
)

// HistoryRepository records workflow transitions
type HistoryRepository struct {
	db DBTX
}

// NewHistoryRepository creates a new history repository
func NewHistoryRepository(db DBTX) *HistoryRepository {
	return &HistoryRepository{db: db}
}

// WithTx returns a repository bound to tx
func (r *HistoryRepository) WithTx(tx *sql.Tx) *HistoryRepository {
	return &HistoryRepository{db: tx}
}

// Append writes one history entry
func (r *HistoryRepository) Append(ctx context.Context, entry *models.HistoryEntry) error {
	query := `
		INSERT INTO defense_request_history (defense_request_id, from_state, to_state, actor_user_id, reason, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`

	now := time.Now()
	err := r.db.QueryRowContext(ctx, query,
		entry.DefenseRequestID,
		entry.FromState,
		entry.ToState,
		entry.ActorUserID,
		entry.Reason,
		now,
	).Scan(&entry.ID)
	if err != nil {
		return fmt.Errorf("failed to append history entry: %w", err)
	}

	entry.CreatedAt = now
	return nil
}

// ListByDefenseRequest returns the history of a request, oldest first
func (r *HistoryRepository) ListByDefenseRequest(ctx context.Context, defenseRequestID int64) ([]models.HistoryEntry, error) {
	query := `
		SELECT id, defense_request_id, from_state, to_state, actor_user_id, reason, created_at
		FROM defense_request_history
		WHERE defense_request_id = $1
		ORDER BY id
	`

	rows, err := r.db.QueryContext(ctx, query, defenseRequestID)
	if err != nil {
		return nil, fmt.Errorf("failed to list history: %w", err)
	}
	defer closeRows(rows)

	var entries []models.HistoryEntry
	for rows.Next() {
		var e models.HistoryEntry
		if err := rows.Scan(&e.ID, &e.DefenseRequestID, &e.FromState, &e.ToState, &e.ActorUserID, &e.Reason, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan history entry: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
