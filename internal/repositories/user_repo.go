package repositories

import (
	"context"
	"fmt"

	"inventoryflow/internal/models"
)

type UserRepository interface {
	ListByRole(ctx context.Context, role models.Role) ([]*models.User, error)
}

type userRepo struct {
	db Database
}

func NewUserRepo(db Database) UserRepository {
	return &userRepo{db: db}
}

func (r *userRepo) ListByRole(ctx context.Context, role models.Role) ([]*models.User, error) {
	query := `
		SELECT id, name, email, role, created_at, updated_at
		FROM users
		WHERE role = $1
		ORDER BY created_at ASC
	`
	rows, err := r.db.Query(ctx, query, string(role))
	if err != nil {
		return nil, fmt.Errorf("failed to list users with role %s: %w", role, err)
	}
	defer rows.Close()

	var users []*models.User
	for rows.Next() {
		user := &models.User{}
		if err := rows.Scan(&user.ID, &user.Name, &user.Email, &user.Role, &user.CreatedAt, &user.UpdatedAt); err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	return users, rows.Err()
}
