package store

import (
	"context"
	"database/sql"
	"errors"

	"github.com/safar/storefront/internal/database"
	"github.com/safar/storefront/internal/models"
	"github.com/safar/storefront/internal/pricing"
	"github.com/shopspring/decimal"
)

// GetTaxPercent reads the global tax rate. Callers load it once per operation.
func GetTaxPercent(ctx context.Context, db database.Querier) (decimal.Decimal, error) {
	var tax decimal.Decimal

	err := db.QueryRowContext(ctx, `SELECT tax_percent FROM site_settings WHERE id = 1`).Scan(&tax)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return decimal.Zero, database.ErrSettingsMissing
		}
		return decimal.Zero, database.Storage("get tax percent", err)
	}

	return tax, nil
}

// SetTaxPercent stores the global tax rate, rejecting zero or negative values.
func SetTaxPercent(ctx context.Context, db database.Querier, tax decimal.Decimal) (*models.SiteSettings, error) {
	if err := pricing.ValidateTaxPercent(tax); err != nil {
		return nil, err
	}

	settings := &models.SiteSettings{}

	err := db.QueryRowContext(ctx,
		`INSERT INTO site_settings (id, tax_percent, updated_at)
		 VALUES (1, $1, NOW())
		 ON CONFLICT (id) DO UPDATE SET tax_percent = EXCLUDED.tax_percent, updated_at = NOW()
		 RETURNING tax_percent, updated_at`,
		tax,
	).Scan(&settings.TaxPercent, &settings.UpdatedAt)
	if err != nil {
		return nil, database.Storage("set tax percent", err)
	}

	return settings, nil
}
