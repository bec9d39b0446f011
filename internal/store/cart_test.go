package store

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/safar/storefront/internal/database"
)

func TestAddToCartIncrements(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	fx := newFixture(t, db, "cart1@example.com")
	product := mustProduct(t, db, "Mug", 500, 0, 20)

	for i := 0; i < 3; i++ {
		line, err := AddToCart(ctx, db, fx.user.ID, product.ID)
		if err != nil {
			t.Fatalf("Add to cart %d: %v", i, err)
		}
		if line.Quantity != i+1 {
			t.Errorf("Expected quantity %d, got %d", i+1, line.Quantity)
		}
		if line.Product.ID != product.ID {
			t.Errorf("Expected product %d on line, got %d", product.ID, line.Product.ID)
		}
	}

	lines, err := ListCartLines(ctx, db, fx.user.ID)
	if err != nil {
		t.Fatalf("List cart: %v", err)
	}
	if len(lines) != 1 {
		t.Fatalf("Expected 1 cart line, got %d", len(lines))
	}
	if lines[0].Quantity != 3 {
		t.Errorf("Expected quantity 3, got %d", lines[0].Quantity)
	}
}

func TestConcurrentAddToCart(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	fx := newFixture(t, db, "cart2@example.com")
	product := mustProduct(t, db, "Pen", 100, 0, 0)

	concurrency := 10
	var wg sync.WaitGroup
	errs := make(chan error, concurrency)

	for i := 0; i < concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := AddToCart(ctx, db, fx.user.ID, product.ID)
			errs <- err
		}()
	}

	wg.Wait()
	close(errs)

	for err := range errs {
		if err != nil {
			t.Errorf("Unexpected error: %v", err)
		}
	}

	lines, err := ListCartLines(ctx, db, fx.user.ID)
	if err != nil {
		t.Fatalf("List cart: %v", err)
	}
	if len(lines) != 1 || lines[0].Quantity != concurrency {
		t.Errorf("Expected one line with quantity %d, got %+v", concurrency, lines)
	}
}

func TestAddToCartUnknownProduct(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	fx := newFixture(t, db, "cart3@example.com")

	_, err := AddToCart(context.Background(), db, fx.user.ID, 987654)
	if !errors.Is(err, database.ErrProductNotFound) {
		t.Errorf("Expected product not found, got: %v", err)
	}
}

func TestRemoveCartLineScopedToOwner(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	owner := newFixture(t, db, "owner@example.com")
	other := newFixture(t, db, "other@example.com")
	product := mustProduct(t, db, "Lamp", 3000, 5, 100)

	line, err := AddToCart(ctx, db, owner.user.ID, product.ID)
	if err != nil {
		t.Fatalf("Add to cart: %v", err)
	}

	if err := RemoveCartLine(ctx, db, other.user.ID, line.ID); err != nil {
		t.Fatalf("Foreign removal should be a no-op, got: %v", err)
	}
	if err := RemoveCartLine(ctx, db, owner.user.ID, 424242); err != nil {
		t.Fatalf("Missing line removal should be a no-op, got: %v", err)
	}

	lines, err := ListCartLines(ctx, db, owner.user.ID)
	if err != nil {
		t.Fatalf("List cart: %v", err)
	}
	if len(lines) != 1 {
		t.Fatalf("Owner's line should survive foreign removal, got %d lines", len(lines))
	}

	if err := RemoveCartLine(ctx, db, owner.user.ID, line.ID); err != nil {
		t.Fatalf("Remove cart line: %v", err)
	}

	user, err := GetUser(ctx, db, owner.user.ID)
	if err != nil {
		t.Fatalf("Get user: %v", err)
	}
	if user.CartCount != 0 {
		t.Errorf("Expected empty cart, got %d lines", user.CartCount)
	}
}
