package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"gradschool/internal/models"
)

// UserRepository handles portal users and adviser routing
type UserRepository struct {
	db DBTX
}

// NewUserRepository creates a new user repository
func NewUserRepository(db DBTX) *UserRepository {
	return &UserRepository{db: db}
}

// WithTx returns a repository bound to tx
func (r *UserRepository) WithTx(tx *sql.Tx) *UserRepository {
	return &UserRepository{db: tx}
}

// Create creates a new user
func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	query := `
		INSERT INTO users (name, email, role, created_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`
	now := time.Now()
	if err := r.db.QueryRowContext(ctx, query, user.Name, user.Email, user.Role, now).Scan(&user.ID); err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}
	user.CreatedAt = now
	return nil
}

// GetByID retrieves a user by ID
func (r *UserRepository) GetByID(ctx context.Context, id int64) (*models.User, error) {
	query := `SELECT id, name, email, role, created_at FROM users WHERE id = $1`

	user := &models.User{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(&user.ID, &user.Name, &user.Email, &user.Role, &user.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

// ListByRole returns all users holding a role
func (r *UserRepository) ListByRole(ctx context.Context, role models.UserRole) ([]models.User, error) {
	query := `SELECT id, name, email, role, created_at FROM users WHERE role = $1 ORDER BY id`

	rows, err := r.db.QueryContext(ctx, query, role)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer closeRows(rows)

	var users []models.User
	for rows.Next() {
		var u models.User
		if err := rows.Scan(&u.ID, &u.Name, &u.Email, &u.Role, &u.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// LinkCoordinator routes an adviser's endorsements to a coordinator
func (r *UserRepository) LinkCoordinator(ctx context.Context, adviserID, coordinatorID int64) error {
	query := `
		INSERT INTO adviser_coordinators (adviser_user_id, coordinator_user_id)
		VALUES ($1, $2)
		ON CONFLICT (adviser_user_id) DO UPDATE SET coordinator_user_id = EXCLUDED.coordinator_user_id
	`
	if _, err := r.db.ExecContext(ctx, query, adviserID, coordinatorID); err != nil {
		return fmt.Errorf("failed to link coordinator: %w", err)
	}
	return nil
}

// CoordinatorForAdviser returns the coordinator linked to an adviser, or nil if none is linked
func (r *UserRepository) CoordinatorForAdviser(ctx context.Context, adviserID int64) (*int64, error) {
	query := `SELECT coordinator_user_id FROM adviser_coordinators WHERE adviser_user_id = $1`

	var id int64
	err := r.db.QueryRowContext(ctx, query, adviserID).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to resolve coordinator: %w", err)
	}
	return &id, nil
}
