package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/practice-api/internal/model"
	"github.com/jwalitptl/practice-api/internal/repository"
)

type userRoleRepository struct {
	BaseRepository
}

func NewUserRoleRepository(base BaseRepository) repository.UserRoleRepository {
	return &userRoleRepository{base}
}

func (r *userRoleRepository) HasRole(ctx context.Context, userID uuid.UUID, role model.Role) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM user_roles WHERE user_id = $1 AND role = $2)`

	var exists bool
	if err := r.conn(ctx).GetContext(ctx, &exists, query, userID, role); err != nil {
		return false, fmt.Errorf("failed to check user role: %w", err)
	}
	return exists, nil
}

// Create is a no-op when the user already holds the role.
func (r *userRoleRepository) Create(ctx context.Context, role *model.UserRole) error {
	query := `
		INSERT INTO user_roles (id, user_id, role, created_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id, role) DO NOTHING
	`
	role.ID = uuid.New()
	role.CreatedAt = time.Now()

	if _, err := r.conn(ctx).ExecContext(ctx, query, role.ID, role.UserID, role.Role, role.CreatedAt); err != nil {
		return fmt.Errorf("failed to create user role: %w", err)
	}
	return nil
}
