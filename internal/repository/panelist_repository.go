package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"gradschool/internal/models"
)

// PanelistRepository reads the source panelist directory
type PanelistRepository struct {
	db DBTX
}

// NewPanelistRepository creates a new panelist repository
func NewPanelistRepository(db DBTX) *PanelistRepository {
	return &PanelistRepository{db: db}
}

// WithTx returns a repository bound to tx
func (r *PanelistRepository) WithTx(tx *sql.Tx) *PanelistRepository {
	return &PanelistRepository{db: tx}
}

// Create adds a directory entry
func (r *PanelistRepository) Create(ctx context.Context, p *models.Panelist) error {
	now := time.Now()
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO panelists (name, email, created_at) VALUES ($1, $2, $3) RETURNING id`,
		p.Name, p.Email, now,
	).Scan(&p.ID)
	if err != nil {
		return fmt.Errorf("failed to create panelist: %w", err)
	}
	p.CreatedAt = now
	return nil
}

// Delete removes a directory entry. Honoraria keep their snapshot.
func (r *PanelistRepository) Delete(ctx context.Context, id int64) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM panelists WHERE id = $1`, id); err != nil {
		return fmt.Errorf("failed to delete panelist: %w", err)
	}
	return nil
}

// FindByName resolves a committee name to a directory entry, case-insensitively.
// Returns ErrNotFound when no entry matches.
func (r *PanelistRepository) FindByName(ctx context.Context, name string) (*models.Panelist, error) {
	query := `
		SELECT id, name, email, created_at
		FROM panelists
		WHERE LOWER(name) = LOWER($1)
		ORDER BY id
		LIMIT 1
	`
	p := &models.Panelist{}
	err := r.db.QueryRowContext(ctx, query, strings.TrimSpace(name)).Scan(&p.ID, &p.Name, &p.Email, &p.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find panelist: %w", err)
	}
	return p, nil
}

// Exists reports whether a directory entry with id is still present
func (r *PanelistRepository) Exists(ctx context.Context, id int64) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM panelists WHERE id = $1)`, id).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check panelist: %w", err)
	}
	return exists, nil
}
