package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/safar/sales-desk/internal/database"
	"github.com/safar/sales-desk/internal/models"
)

func CreateUser(ctx context.Context, db *sql.DB, username, fullName, email, role string) (*models.User, error) {
	if role == "" {
		role = models.RoleStaff
	}

	user := &models.User{}

	query := `
		INSERT INTO users (username, full_name, email, role)
		VALUES ($1, $2, $3, $4)
		RETURNING id, username, full_name, email, role, created_at, updated_at`

	err := db.QueryRowContext(ctx, query, username, fullName, email, role).Scan(
		&user.ID,
		&user.Username,
		&user.FullName,
		&user.Email,
		&user.Role,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}

	return user, nil
}

func GetUser(ctx context.Context, db *sql.DB, id int64) (*models.User, error) {
	user := &models.User{}

	query := `
		SELECT id, username, full_name, email, role, created_at, updated_at
		FROM users
		WHERE id = $1`

	err := db.QueryRowContext(ctx, query, id).Scan(
		&user.ID,
		&user.Username,
		&user.FullName,
		&user.Email,
		&user.Role,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, database.ErrUserNotFound
		}
		return nil, fmt.Errorf("get user: %w", err)
	}

	return user, nil
}
