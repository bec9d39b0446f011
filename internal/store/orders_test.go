package store

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/safar/storefront/internal/database"
	"github.com/safar/storefront/internal/models"
	"github.com/safar/storefront/internal/pricing"
)

func fillCart(t *testing.T, db database.Querier, userID int64, quantities map[int64]int) {
	t.Helper()
	for productID, qty := range quantities {
		for i := 0; i < qty; i++ {
			if _, err := AddToCart(context.Background(), db, userID, productID); err != nil {
				t.Fatalf("Add product %d to cart: %v", productID, err)
			}
		}
	}
}

func orderCount(t *testing.T, db database.Querier) int {
	t.Helper()
	var n int
	if err := db.QueryRowContext(context.Background(), `SELECT COUNT(*) FROM orders`).Scan(&n); err != nil {
		t.Fatalf("Count orders: %v", err)
	}
	return n
}

func TestMaterializeOrder(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	fx := newFixture(t, db, "buyer@example.com")
	p1 := mustProduct(t, db, "Kettle", 1000, 10, 50)
	p2 := mustProduct(t, db, "Tea", 250, 0, 0)

	fillCart(t, db, fx.user.ID, map[int64]int{p1.ID: 2, p2.ID: 3})

	order, err := MaterializeOrder(ctx, db, MaterializeRequest{
		UserID:        fx.user.ID,
		AddressID:     fx.address.ID,
		PaymentMethod: models.PaymentMethodPaypal,
	})
	if err != nil {
		t.Fatalf("Materialize order: %v", err)
	}

	if order.Status != models.OrderStatusProcessing {
		t.Errorf("Expected status processing, got %s", order.Status)
	}
	if len(order.Items) != 2 {
		t.Fatalf("Expected 2 order items, got %d", len(order.Items))
	}

	quantities := map[int64]int{}
	for _, item := range order.Items {
		quantities[item.ProductID] = item.Quantity
	}
	if quantities[p1.ID] != 2 || quantities[p2.ID] != 3 {
		t.Errorf("Unexpected item quantities: %v", quantities)
	}

	lines, err := ListCartLines(ctx, db, fx.user.ID)
	if err != nil {
		t.Fatalf("List cart: %v", err)
	}
	if len(lines) != 0 {
		t.Errorf("Cart should be empty after checkout, got %d lines", len(lines))
	}

	if _, err := GetCreditCard(ctx, db, order.ID); !errors.Is(err, database.ErrCreditCardNotFound) {
		t.Errorf("Paypal order should have no card, got: %v", err)
	}

	stored, err := GetOrder(ctx, db, order.ID)
	if err != nil {
		t.Fatalf("Get order: %v", err)
	}
	tax, err := GetTaxPercent(ctx, db)
	if err != nil {
		t.Fatalf("Get tax: %v", err)
	}

	// 1800 + 750 subtotal, 50 shipping, floor(2600 * 10 / 100) = 260 tax
	totals := pricing.Summarize(pricing.FromOrder(stored.Items), tax)
	if totals.Total != 2860 {
		t.Errorf("Expected total 2860, got %d", totals.Total)
	}
}

func TestMaterializeOrderWithCreditCard(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	fx := newFixture(t, db, "card@example.com")
	product := mustProduct(t, db, "Chair", 4000, 0, 200)
	fillCart(t, db, fx.user.ID, map[int64]int{product.ID: 1})

	order, err := MaterializeOrder(ctx, db, MaterializeRequest{
		UserID:        fx.user.ID,
		AddressID:     fx.address.ID,
		PaymentMethod: models.PaymentMethodCreditCard,
		Card:          &CardInput{Number: "4111111111111111", CVV: "123", Expiry: "13/25"},
	})
	if err != nil {
		t.Fatalf("Materialize order: %v", err)
	}

	card, err := GetCreditCard(ctx, db, order.ID)
	if err != nil {
		t.Fatalf("Get credit card: %v", err)
	}
	if card.OwnerID != fx.user.ID || card.Number != "4111111111111111" || card.CVV != "123" {
		t.Errorf("Unexpected card: %+v", card)
	}
	want := time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC)
	if !card.ExpireDate.Equal(want) {
		t.Errorf("Expected expiry %s, got %s", want, card.ExpireDate)
	}
}

func TestMaterializeOrderMalformedExpiryRollsBack(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	fx := newFixture(t, db, "rollback@example.com")
	product := mustProduct(t, db, "Desk", 9000, 20, 500)
	fillCart(t, db, fx.user.ID, map[int64]int{product.ID: 2})

	_, err := MaterializeOrder(ctx, db, MaterializeRequest{
		UserID:        fx.user.ID,
		AddressID:     fx.address.ID,
		PaymentMethod: models.PaymentMethodCreditCard,
		Card:          &CardInput{Number: "4111111111111111", CVV: "123", Expiry: "2025-04"},
	})
	if !errors.Is(err, models.ErrMalformedExpiry) {
		t.Fatalf("Expected malformed expiry, got: %v", err)
	}

	if n := orderCount(t, db); n != 0 {
		t.Errorf("No order should persist, found %d", n)
	}

	lines, err := ListCartLines(ctx, db, fx.user.ID)
	if err != nil {
		t.Fatalf("List cart: %v", err)
	}
	if len(lines) != 1 || lines[0].Quantity != 2 {
		t.Errorf("Cart should be unchanged, got %+v", lines)
	}
}

func TestMaterializeOrderUnknownAddress(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	fx := newFixture(t, db, "noaddr@example.com")
	product := mustProduct(t, db, "Rug", 700, 0, 0)
	fillCart(t, db, fx.user.ID, map[int64]int{product.ID: 1})

	_, err := MaterializeOrder(ctx, db, MaterializeRequest{
		UserID:        fx.user.ID,
		AddressID:     777777,
		PaymentMethod: models.PaymentMethodPaypal,
	})
	if !errors.Is(err, database.ErrAddressNotFound) {
		t.Fatalf("Expected address not found, got: %v", err)
	}

	lines, err := ListCartLines(ctx, db, fx.user.ID)
	if err != nil {
		t.Fatalf("List cart: %v", err)
	}
	if len(lines) != 1 {
		t.Errorf("Cart should be unchanged, got %d lines", len(lines))
	}
}

func TestMaterializeEmptyCart(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	fx := newFixture(t, db, "empty@example.com")

	order, err := MaterializeOrder(context.Background(), db, MaterializeRequest{
		UserID:        fx.user.ID,
		AddressID:     fx.address.ID,
		PaymentMethod: models.PaymentMethodPaypal,
	})
	if err != nil {
		t.Fatalf("Empty cart should still produce an order: %v", err)
	}
	if len(order.Items) != 0 {
		t.Errorf("Expected no items, got %d", len(order.Items))
	}
}

func TestMaterializeOrderInvalidPaymentMethod(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	fx := newFixture(t, db, "cash@example.com")

	_, err := MaterializeOrder(context.Background(), db, MaterializeRequest{
		UserID:        fx.user.ID,
		AddressID:     fx.address.ID,
		PaymentMethod: "cash",
	})
	if !errors.Is(err, models.ErrInvalidPaymentMethod) {
		t.Errorf("Expected invalid payment method, got: %v", err)
	}
}

func TestOrderTotalFollowsLivePrice(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	fx := newFixture(t, db, "live@example.com")
	product := mustProduct(t, db, "Clock", 1000, 0, 0)
	fillCart(t, db, fx.user.ID, map[int64]int{product.ID: 1})

	order, err := MaterializeOrder(ctx, db, MaterializeRequest{
		UserID:        fx.user.ID,
		AddressID:     fx.address.ID,
		PaymentMethod: models.PaymentMethodPaypal,
	})
	if err != nil {
		t.Fatalf("Materialize order: %v", err)
	}

	product.DiscountPercent = 50
	if _, err := UpdateProduct(ctx, db, *product); err != nil {
		t.Fatalf("Update product: %v", err)
	}

	stored, err := GetOrder(ctx, db, order.ID)
	if err != nil {
		t.Fatalf("Get order: %v", err)
	}
	if got := pricing.Subtotal(pricing.FromOrder(stored.Items)); got != 500 {
		t.Errorf("Order subtotal should follow the live price, got %d", got)
	}
}

func TestUpdateStatusAndDeleteCascade(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	fx := newFixture(t, db, "status@example.com")
	product := mustProduct(t, db, "Vase", 1500, 0, 0)
	fillCart(t, db, fx.user.ID, map[int64]int{product.ID: 1})

	order, err := MaterializeOrder(ctx, db, MaterializeRequest{
		UserID:        fx.user.ID,
		AddressID:     fx.address.ID,
		PaymentMethod: models.PaymentMethodCreditCard,
		Card:          &CardInput{Number: "5500000000000004", CVV: "999", Expiry: "01/30"},
	})
	if err != nil {
		t.Fatalf("Materialize order: %v", err)
	}

	for _, status := range []models.OrderStatus{
		models.OrderStatusCompleted,
		models.OrderStatusProcessing,
		models.OrderStatusOnHold,
	} {
		if err := UpdateOrderStatus(ctx, db, order.ID, status); err != nil {
			t.Fatalf("Update status to %s: %v", status, err)
		}
	}

	if err := UpdateOrderStatus(ctx, db, order.ID, "shipped"); !errors.Is(err, models.ErrInvalidStatus) {
		t.Errorf("Expected invalid status, got: %v", err)
	}

	if err := AttachOrderDocument(ctx, db, order.ID, "orders/invoice-1.pdf"); err != nil {
		t.Fatalf("Attach document: %v", err)
	}

	stored, err := GetOrder(ctx, db, order.ID)
	if err != nil {
		t.Fatalf("Get order: %v", err)
	}
	if stored.Status != models.OrderStatusOnHold {
		t.Errorf("Expected on_hold, got %s", stored.Status)
	}
	if stored.DocumentRef == nil || *stored.DocumentRef != "orders/invoice-1.pdf" {
		t.Errorf("Unexpected document ref: %v", stored.DocumentRef)
	}

	if err := DeleteOrder(ctx, db, order.ID); err != nil {
		t.Fatalf("Delete order: %v", err)
	}

	var items, cards int
	db.QueryRowContext(ctx, `SELECT COUNT(*) FROM order_items WHERE order_id = $1`, order.ID).Scan(&items)
	db.QueryRowContext(ctx, `SELECT COUNT(*) FROM credit_cards WHERE order_id = $1`, order.ID).Scan(&cards)
	if items != 0 || cards != 0 {
		t.Errorf("Expected cascade delete, found %d items and %d cards", items, cards)
	}

	if err := DeleteOrder(ctx, db, order.ID); !errors.Is(err, database.ErrOrderNotFound) {
		t.Errorf("Expected order not found, got: %v", err)
	}
}

func TestListOrdersCursor(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	fx := newFixture(t, db, "history@example.com")
	other := newFixture(t, db, "history2@example.com")
	product := mustProduct(t, db, "Candle", 100, 0, 0)

	for i := 0; i < 15; i++ {
		fillCart(t, db, fx.user.ID, map[int64]int{product.ID: 1})
		_, err := MaterializeOrder(ctx, db, MaterializeRequest{
			UserID:        fx.user.ID,
			AddressID:     fx.address.ID,
			PaymentMethod: models.PaymentMethodPaypal,
		})
		if err != nil {
			t.Fatalf("Create order %d: %v", i, err)
		}
	}
	if _, err := MaterializeOrder(ctx, db, MaterializeRequest{
		UserID:        other.user.ID,
		AddressID:     other.address.ID,
		PaymentMethod: models.PaymentMethodPaypal,
	}); err != nil {
		t.Fatalf("Create other order: %v", err)
	}

	owner := fx.user.ID
	page1, err := ListOrdersCursor(ctx, db, OrderFilter{OwnerID: &owner}, "", 10)
	if err != nil {
		t.Fatalf("List orders page 1: %v", err)
	}

	if !page1.HasMore {
		t.Error("Page 1 should have more results")
	}
	if page1.NextCursor == "" {
		t.Error("Page 1 should have a next cursor")
	}
	orders := page1.Items.([]models.Order)
	if len(orders[0].Items) != 1 {
		t.Errorf("Listed orders should carry their items, got %d", len(orders[0].Items))
	}

	page2, err := ListOrdersCursor(ctx, db, OrderFilter{OwnerID: &owner}, page1.NextCursor, 10)
	if err != nil {
		t.Fatalf("List orders page 2: %v", err)
	}
	if page2.HasMore {
		t.Error("Page 2 should not have more results")
	}
	if n := len(page2.Items.([]models.Order)); n != 5 {
		t.Errorf("Expected 5 orders on page 2, got %d", n)
	}

	all, err := ListOrdersCursor(ctx, db, OrderFilter{}, "", 100)
	if err != nil {
		t.Fatalf("List all orders: %v", err)
	}
	if n := len(all.Items.([]models.Order)); n != 16 {
		t.Errorf("Unfiltered listing should see 16 orders, got %d", n)
	}

	if _, err := ListOrdersCursor(ctx, db, OrderFilter{}, "%%%", 10); !errors.Is(err, ErrInvalidCursor) {
		t.Errorf("Expected invalid cursor, got: %v", err)
	}
}

func TestConcurrentMaterializeCopiesLinesOnce(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	fx := newFixture(t, db, "race@example.com")
	p1 := mustProduct(t, db, "Bowl", 400, 0, 0)
	p2 := mustProduct(t, db, "Spoon", 90, 0, 0)
	fillCart(t, db, fx.user.ID, map[int64]int{p1.ID: 1, p2.ID: 2})

	concurrency := 5
	var wg sync.WaitGroup
	results := make(chan *models.Order, concurrency)
	errs := make(chan error, concurrency)

	for i := 0; i < concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			order, err := MaterializeOrder(ctx, db, MaterializeRequest{
				UserID:        fx.user.ID,
				AddressID:     fx.address.ID,
				PaymentMethod: models.PaymentMethodPaypal,
			})
			if err != nil {
				errs <- err
				return
			}
			results <- order
		}()
	}

	wg.Wait()
	close(results)
	close(errs)

	for err := range errs {
		t.Errorf("Unexpected error: %v", err)
	}

	items := 0
	for order := range results {
		items += len(order.Items)
	}
	if items != 2 {
		t.Errorf("Each cart line should be copied exactly once, got %d items", items)
	}

	var stored int
	if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM order_items`).Scan(&stored); err != nil {
		t.Fatalf("Count items: %v", err)
	}
	if stored != 2 {
		t.Errorf("Expected 2 stored items, got %d", stored)
	}
}

func TestListOrdersFirstPageIgnoresClock(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	fx := newFixture(t, db, "skew@example.com")

	order, err := MaterializeOrder(ctx, db, MaterializeRequest{
		UserID:        fx.user.ID,
		AddressID:     fx.address.ID,
		PaymentMethod: models.PaymentMethodPaypal,
	})
	if err != nil {
		t.Fatalf("Create order: %v", err)
	}

	// Simulate a database clock well ahead of the application's.
	if _, err := db.ExecContext(ctx,
		`UPDATE orders SET created_at = NOW() + INTERVAL '3 days' WHERE id = $1`, order.ID); err != nil {
		t.Fatalf("Shift order time: %v", err)
	}

	page, err := ListOrdersCursor(ctx, db, OrderFilter{}, "", 10)
	if err != nil {
		t.Fatalf("List orders: %v", err)
	}
	orders := page.Items.([]models.Order)
	if len(orders) != 1 || orders[0].ID != order.ID {
		t.Errorf("First page should include the future-dated order, got %d orders", len(orders))
	}
}
