package store

import (
	"context"

	"github.com/safar/storefront/internal/database"
)

// ToggleFavorite removes the favorite if present, otherwise adds it. It reports
// whether the product is a favorite afterwards.
func ToggleFavorite(ctx context.Context, db database.Querier, userID, productID int64) (bool, error) {
	result, err := db.ExecContext(ctx,
		`DELETE FROM favorites WHERE user_id = $1 AND product_id = $2`,
		userID, productID)
	if err != nil {
		return false, database.Storage("remove favorite", err)
	}

	removed, err := result.RowsAffected()
	if err != nil {
		return false, database.Storage("get rows affected", err)
	}
	if removed > 0 {
		return false, nil
	}

	_, err = db.ExecContext(ctx,
		`INSERT INTO favorites (user_id, product_id, created_at)
		 VALUES ($1, $2, NOW())
		 ON CONFLICT DO NOTHING`,
		userID, productID)
	if err != nil {
		if database.IsForeignKeyViolation(err) {
			return false, database.ErrProductNotFound
		}
		return false, database.Storage("add favorite", err)
	}

	return true, nil
}

func ListFavoriteProductIDs(ctx context.Context, db database.Querier, userID int64) ([]int64, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT product_id FROM favorites WHERE user_id = $1 ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, database.Storage("list favorites", err)
	}
	defer rows.Close()

	ids := []int64{}
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, database.Storage("scan favorite", err)
		}
		ids = append(ids, id)
	}

	if err := rows.Err(); err != nil {
		return nil, database.Storage("list favorites", err)
	}

	return ids, nil
}
