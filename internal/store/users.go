package store

import (
	"context"
	"database/sql"
	"errors"

	"github.com/safar/storefront/internal/database"
	"github.com/safar/storefront/internal/models"
)

func CreateUser(ctx context.Context, db database.Querier, email, username string, isStaff bool) (*models.User, error) {
	user := &models.User{}

	query := `
		INSERT INTO users (email, username, is_staff, created_at)
		VALUES ($1, $2, $3, NOW())
		RETURNING id, email, username, is_staff, created_at`

	err := db.QueryRowContext(ctx, query, email, username, isStaff).Scan(
		&user.ID,
		&user.Email,
		&user.Username,
		&user.IsStaff,
		&user.CreatedAt,
	)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return nil, database.ErrEmailTaken
		}
		return nil, database.Storage("create user", err)
	}

	return user, nil
}

// GetUser loads the user together with the number of lines in their cart.
func GetUser(ctx context.Context, db database.Querier, id int64) (*models.User, error) {
	user := &models.User{}

	query := `
		SELECT u.id, u.email, u.username, u.is_staff, u.created_at,
		       (SELECT COUNT(*) FROM cart_lines c WHERE c.user_id = u.id)
		FROM users u
		WHERE u.id = $1`

	err := db.QueryRowContext(ctx, query, id).Scan(
		&user.ID,
		&user.Email,
		&user.Username,
		&user.IsStaff,
		&user.CreatedAt,
		&user.CartCount,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, database.ErrUserNotFound
		}
		return nil, database.Storage("get user", err)
	}

	return user, nil
}
