package store

import (
	"context"
	"database/sql"
	"testing"

	"github.com/safar/storefront/internal/database/dbtest"
	"github.com/safar/storefront/internal/models"
	"github.com/shopspring/decimal"
)

func setupTestDB(t *testing.T) (*sql.DB, func()) {
	t.Helper()
	return dbtest.Postgres(t)
}

type fixture struct {
	user    *models.User
	address *models.Address
}

func newFixture(t *testing.T, db *sql.DB, email string) fixture {
	t.Helper()
	ctx := context.Background()

	user, err := CreateUser(ctx, db, email, "shopper", false)
	if err != nil {
		t.Fatalf("Create user: %v", err)
	}

	address, err := CreateAddress(ctx, db, models.Address{
		UserID:   user.ID,
		FullName: "Test Shopper",
		Street:   "1 Market St",
		ZipCode:  10001,
		City:     "Tashkent",
		Phone:    "+998901234567",
	})
	if err != nil {
		t.Fatalf("Create address: %v", err)
	}

	if _, err := SetTaxPercent(ctx, db, decimal.NewFromInt(10)); err != nil {
		t.Fatalf("Set tax: %v", err)
	}

	return fixture{user: user, address: address}
}

func mustProduct(t *testing.T, db *sql.DB, title string, price int64, discount int, shipping int64) *models.Product {
	t.Helper()

	product, err := CreateProduct(context.Background(), db, models.Product{
		Title:           title,
		Price:           price,
		DiscountPercent: discount,
		ShippingCost:    shipping,
		Stock:           10,
	})
	if err != nil {
		t.Fatalf("Create product %s: %v", title, err)
	}
	return product
}
