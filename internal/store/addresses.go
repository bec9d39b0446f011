package store

import (
	"context"
	"database/sql"
	"errors"

	"github.com/safar/storefront/internal/database"
	"github.com/safar/storefront/internal/models"
)

const addressColumns = `id, user_id, full_name, street, zip_code, city, phone, created_at`

func addressFields(a *models.Address) []any {
	return []any{&a.ID, &a.UserID, &a.FullName, &a.Street, &a.ZipCode, &a.City, &a.Phone, &a.CreatedAt}
}

func CreateAddress(ctx context.Context, db database.Querier, a models.Address) (*models.Address, error) {
	address := &models.Address{}

	err := db.QueryRowContext(ctx,
		`INSERT INTO addresses (user_id, full_name, street, zip_code, city, phone, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, NOW())
		 RETURNING `+addressColumns,
		a.UserID, a.FullName, a.Street, a.ZipCode, a.City, a.Phone,
	).Scan(addressFields(address)...)
	if err != nil {
		if database.IsForeignKeyViolation(err) {
			return nil, database.ErrUserNotFound
		}
		return nil, database.Storage("create address", err)
	}

	return address, nil
}

// UpdateAddress rewrites an address owned by a.UserID. Orders referencing it see
// the new contents.
func UpdateAddress(ctx context.Context, db database.Querier, a models.Address) (*models.Address, error) {
	address := &models.Address{}

	err := db.QueryRowContext(ctx,
		`UPDATE addresses
		 SET full_name = $1, street = $2, zip_code = $3, city = $4, phone = $5
		 WHERE id = $6 AND user_id = $7
		 RETURNING `+addressColumns,
		a.FullName, a.Street, a.ZipCode, a.City, a.Phone, a.ID, a.UserID,
	).Scan(addressFields(address)...)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, database.ErrAddressNotFound
		}
		return nil, database.Storage("update address", err)
	}

	return address, nil
}

func GetAddress(ctx context.Context, db database.Querier, id int64) (*models.Address, error) {
	address := &models.Address{}

	err := db.QueryRowContext(ctx,
		`SELECT `+addressColumns+` FROM addresses WHERE id = $1`, id,
	).Scan(addressFields(address)...)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, database.ErrAddressNotFound
		}
		return nil, database.Storage("get address", err)
	}

	return address, nil
}

func ListAddresses(ctx context.Context, db database.Querier, userID int64) ([]models.Address, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT `+addressColumns+` FROM addresses WHERE user_id = $1 ORDER BY id`, userID)
	if err != nil {
		return nil, database.Storage("list addresses", err)
	}
	defer rows.Close()

	addresses := []models.Address{}
	for rows.Next() {
		var a models.Address
		if err := rows.Scan(addressFields(&a)...); err != nil {
			return nil, database.Storage("scan address", err)
		}
		addresses = append(addresses, a)
	}

	if err := rows.Err(); err != nil {
		return nil, database.Storage("list addresses", err)
	}

	return addresses, nil
}
