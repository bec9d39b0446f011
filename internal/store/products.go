package store

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/safar/storefront/internal/database"
	"github.com/safar/storefront/internal/models"
)

const productColumns = `p.id, p.title, p.short_description, p.price, p.discount_percent,
	p.shipping_cost, p.stock, p.is_premium, p.created_at, p.updated_at, p.version`

type rowScanner interface {
	Scan(dest ...any) error
}

func productFields(p *models.Product) []any {
	return []any{
		&p.ID,
		&p.Title,
		&p.ShortDescription,
		&p.Price,
		&p.DiscountPercent,
		&p.ShippingCost,
		&p.Stock,
		&p.IsPremium,
		&p.CreatedAt,
		&p.UpdatedAt,
		&p.Version,
	}
}

func scanProduct(row rowScanner) (*models.Product, error) {
	product := &models.Product{}
	if err := row.Scan(productFields(product)...); err != nil {
		return nil, err
	}
	return product, nil
}

// CreateProduct rejects discounts outside [0, 100] before touching storage.
func CreateProduct(ctx context.Context, db database.Querier, p models.Product) (*models.Product, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	query := `
		WITH p AS (
			INSERT INTO products (title, short_description, price, discount_percent, shipping_cost,
			                      stock, is_premium, created_at, updated_at, version)
			VALUES ($1, $2, $3, $4, $5, $6, $7, NOW(), NOW(), 1)
			RETURNING *
		)
		SELECT ` + productColumns + ` FROM p`

	product, err := scanProduct(db.QueryRowContext(ctx, query,
		p.Title, p.ShortDescription, p.Price, p.DiscountPercent, p.ShippingCost, p.Stock, p.IsPremium))
	if err != nil {
		return nil, database.Storage("create product", err)
	}

	return product, nil
}

func GetProduct(ctx context.Context, db database.Querier, id int64) (*models.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products p WHERE p.id = $1`

	product, err := scanProduct(db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, database.ErrProductNotFound
		}
		return nil, database.Storage("get product", err)
	}

	return product, nil
}

// UpdateProduct writes p if its version still matches the stored one.
func UpdateProduct(ctx context.Context, db database.Querier, p models.Product) (*models.Product, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	query := `
		WITH p AS (
			UPDATE products
			SET title = $1, short_description = $2, price = $3, discount_percent = $4,
			    shipping_cost = $5, stock = $6, is_premium = $7,
			    version = version + 1, updated_at = NOW()
			WHERE id = $8 AND version = $9
			RETURNING *
		)
		SELECT ` + productColumns + ` FROM p`

	product, err := scanProduct(db.QueryRowContext(ctx, query,
		p.Title, p.ShortDescription, p.Price, p.DiscountPercent, p.ShippingCost, p.Stock, p.IsPremium,
		p.ID, p.Version))
	if err == nil {
		return product, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, database.Storage("update product", err)
	}

	if _, getErr := GetProduct(ctx, db, p.ID); getErr != nil {
		return nil, getErr
	}
	return nil, database.ErrOptimisticLockFailed
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// escapeLike makes s match itself literally inside an ILIKE pattern.
func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

// ListProducts matches search as a literal substring of the title or short description.
func ListProducts(ctx context.Context, db database.Querier, search string, page, pageSize int) (*OffsetPage, error) {
	const filter = `($1 = '' OR p.title ILIKE ('%' || $1 || '%') ESCAPE '\'
		OR p.short_description ILIKE ('%' || $1 || '%') ESCAPE '\')`
	search = escapeLike(search)

	var total int64
	err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM products p WHERE `+filter, search).Scan(&total)
	if err != nil {
		return nil, database.Storage("count products", err)
	}

	offset := (page - 1) * pageSize
	query := `
		SELECT ` + productColumns + `
		FROM products p
		WHERE ` + filter + `
		ORDER BY p.created_at DESC, p.id DESC
		LIMIT $2 OFFSET $3`

	rows, err := db.QueryContext(ctx, query, search, pageSize, offset)
	if err != nil {
		return nil, database.Storage("list products", err)
	}
	defer rows.Close()

	products := []models.Product{}
	for rows.Next() {
		product, err := scanProduct(rows)
		if err != nil {
			return nil, database.Storage("scan product", err)
		}
		products = append(products, *product)
	}

	if err := rows.Err(); err != nil {
		return nil, database.Storage("list products", err)
	}

	return &OffsetPage{
		Items:      products,
		Total:      total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: totalPages(total, pageSize),
	}, nil
}
