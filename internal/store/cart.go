package store

import (
	"context"
	"database/sql"

	"github.com/lib/pq"
	"github.com/safar/storefront/internal/database"
	"github.com/safar/storefront/internal/models"
)

const (
	cartLineUserFK    = "cart_lines_user_id_fkey"
	cartLineProductFK = "cart_lines_product_id_fkey"
)

// AddToCart adds one unit of the product to the user's cart. The upsert keeps a
// single line per (user, product) even under concurrent requests.
func AddToCart(ctx context.Context, db database.Querier, userID, productID int64) (*models.CartLine, error) {
	line := &models.CartLine{}

	query := `
		INSERT INTO cart_lines (user_id, product_id, quantity)
		VALUES ($1, $2, 1)
		ON CONFLICT (user_id, product_id)
		DO UPDATE SET quantity = cart_lines.quantity + 1
		RETURNING id, user_id, product_id, quantity`

	err := db.QueryRowContext(ctx, query, userID, productID).Scan(
		&line.ID,
		&line.UserID,
		&line.ProductID,
		&line.Quantity,
	)
	if err != nil {
		if constraint, ok := database.ViolatedConstraint(err, "23503"); ok {
			switch constraint {
			case cartLineProductFK:
				return nil, database.ErrProductNotFound
			case cartLineUserFK:
				return nil, database.ErrUserNotFound
			}
		}
		return nil, database.Storage("add to cart", err)
	}

	product, err := GetProduct(ctx, db, productID)
	if err != nil {
		return nil, err
	}
	line.Product = *product

	return line, nil
}

// RemoveCartLine deletes the line only when it belongs to userID. Missing or
// foreign lines are ignored so callers cannot probe other carts.
func RemoveCartLine(ctx context.Context, db database.Querier, userID, lineID int64) error {
	_, err := db.ExecContext(ctx,
		`DELETE FROM cart_lines WHERE id = $1 AND user_id = $2`,
		lineID, userID)
	if err != nil {
		return database.Storage("remove cart line", err)
	}
	return nil
}

func ListCartLines(ctx context.Context, db database.Querier, userID int64) ([]models.CartLine, error) {
	return listCartLines(ctx, db, userID, false)
}

func listCartLines(ctx context.Context, db database.Querier, userID int64, lock bool) ([]models.CartLine, error) {
	query := `
		SELECT c.id, c.user_id, c.product_id, c.quantity, ` + productColumns + `
		FROM cart_lines c
		JOIN products p ON p.id = c.product_id
		WHERE c.user_id = $1
		ORDER BY c.id`
	if lock {
		query += ` FOR UPDATE OF c`
	}

	rows, err := db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, database.Storage("list cart lines", err)
	}
	defer rows.Close()

	lines := []models.CartLine{}
	for rows.Next() {
		var line models.CartLine
		dest := append([]any{&line.ID, &line.UserID, &line.ProductID, &line.Quantity}, productFields(&line.Product)...)
		if err := rows.Scan(dest...); err != nil {
			return nil, database.Storage("scan cart line", err)
		}
		lines = append(lines, line)
	}

	if err := rows.Err(); err != nil {
		return nil, database.Storage("list cart lines", err)
	}

	return lines, nil
}

// ClearCart deletes the given lines of the user's cart inside tx. Lines added
// after the caller read the cart are left for the next checkout.
func ClearCart(ctx context.Context, tx *sql.Tx, userID int64, lineIDs []int64) error {
	if len(lineIDs) == 0 {
		return nil
	}

	_, err := tx.ExecContext(ctx,
		`DELETE FROM cart_lines WHERE user_id = $1 AND id = ANY($2)`,
		userID, pq.Array(lineIDs))
	if err != nil {
		return database.Storage("clear cart", err)
	}
	return nil
}
