package store

import (
	"context"
	"database/sql"
	"errors"

	"github.com/lib/pq"
	"github.com/safar/storefront/internal/database"
	"github.com/safar/storefront/internal/models"
)

const (
	orderAddressFK = "orders_address_id_fkey"
	orderOwnerFK   = "orders_owner_id_fkey"

	orderColumns = `o.id, o.owner_id, o.address_id, o.status, o.payment_method, o.document_ref, o.created_at`
)

type MaterializeRequest struct {
	UserID        int64
	AddressID     int64
	PaymentMethod models.PaymentMethod
	Card          *CardInput
}

// CardInput is only read when PaymentMethod is credit_card.
type CardInput struct {
	Number string
	CVV    string
	Expiry string
}

type OrderFilter struct {
	// OwnerID restricts the listing to one user; nil lists every order.
	OwnerID *int64
}

func orderFields(o *models.Order) []any {
	return []any{
		&o.ID,
		&o.OwnerID,
		&o.AddressID,
		&o.Status,
		&o.PaymentMethod,
		&o.DocumentRef,
		&o.CreatedAt,
	}
}

// MaterializeOrder turns the user's cart into an order in one transaction: the
// order row, the optional credit card, one item per cart line, then the cart is
// emptied. Any failure leaves the cart untouched and no order behind.
func MaterializeOrder(ctx context.Context, db *sql.DB, req MaterializeRequest) (*models.Order, error) {
	if !req.PaymentMethod.Valid() {
		return nil, models.ErrInvalidPaymentMethod
	}

	var order *models.Order

	err := database.WithRetry(ctx, db, database.DefaultTxOptions(), func(tx *sql.Tx) error {
		order = &models.Order{}

		err := tx.QueryRowContext(ctx,
			`INSERT INTO orders (owner_id, address_id, status, payment_method, created_at)
			 VALUES ($1, $2, $3, $4, NOW())
			 RETURNING id, owner_id, address_id, status, payment_method, document_ref, created_at`,
			req.UserID, req.AddressID, models.OrderStatusProcessing, req.PaymentMethod,
		).Scan(orderFields(order)...)
		if err != nil {
			if constraint, ok := database.ViolatedConstraint(err, "23503"); ok {
				switch constraint {
				case orderAddressFK:
					return database.ErrAddressNotFound
				case orderOwnerFK:
					return database.ErrUserNotFound
				}
			}
			return database.Storage("create order", err)
		}

		if req.PaymentMethod == models.PaymentMethodCreditCard {
			card := req.Card
			if card == nil {
				card = &CardInput{}
			}
			if _, err := insertCreditCard(ctx, tx, order, *card); err != nil {
				return err
			}
		}

		lines, err := listCartLines(ctx, tx, req.UserID, true)
		if err != nil {
			return err
		}

		lineIDs := make([]int64, 0, len(lines))
		order.Items = make([]models.OrderItem, 0, len(lines))
		for _, line := range lines {
			item := models.OrderItem{
				OrderID:   order.ID,
				ProductID: line.ProductID,
				Quantity:  line.Quantity,
				Product:   line.Product,
			}
			err := tx.QueryRowContext(ctx,
				`INSERT INTO order_items (order_id, product_id, quantity)
				 VALUES ($1, $2, $3)
				 RETURNING id`,
				order.ID, line.ProductID, line.Quantity,
			).Scan(&item.ID)
			if err != nil {
				return database.Storage("create order item", err)
			}
			order.Items = append(order.Items, item)
			lineIDs = append(lineIDs, line.ID)
		}

		return ClearCart(ctx, tx, req.UserID, lineIDs)
	})

	if err != nil {
		return nil, err
	}

	return order, nil
}

func insertCreditCard(ctx context.Context, tx *sql.Tx, order *models.Order, in CardInput) (*models.CreditCard, error) {
	expiry, err := models.ParseExpiry(in.Expiry)
	if err != nil {
		return nil, err
	}

	card := &models.CreditCard{
		OwnerID:    order.OwnerID,
		OrderID:    order.ID,
		Number:     in.Number,
		CVV:        in.CVV,
		ExpireDate: expiry.Date(),
	}

	err = tx.QueryRowContext(ctx,
		`INSERT INTO credit_cards (owner_id, order_id, number, cvv, expire_date, created_at)
		 VALUES ($1, $2, $3, $4, $5, NOW())
		 RETURNING id, created_at`,
		card.OwnerID, card.OrderID, card.Number, card.CVV, card.ExpireDate,
	).Scan(&card.ID, &card.CreatedAt)
	if err != nil {
		return nil, database.Storage("create credit card", err)
	}

	return card, nil
}

// GetOrder loads the order with its items joined to the live product rows.
func GetOrder(ctx context.Context, db database.Querier, id int64) (*models.Order, error) {
	order := &models.Order{}

	err := db.QueryRowContext(ctx,
		`SELECT `+orderColumns+` FROM orders o WHERE o.id = $1`, id,
	).Scan(orderFields(order)...)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, database.ErrOrderNotFound
		}
		return nil, database.Storage("get order", err)
	}

	items, err := loadOrderItems(ctx, db, []int64{id})
	if err != nil {
		return nil, err
	}
	order.Items = items[id]

	return order, nil
}

func loadOrderItems(ctx context.Context, db database.Querier, orderIDs []int64) (map[int64][]models.OrderItem, error) {
	query := `
		SELECT i.id, i.order_id, i.product_id, i.quantity, ` + productColumns + `
		FROM order_items i
		JOIN products p ON p.id = i.product_id
		WHERE i.order_id = ANY($1)
		ORDER BY i.order_id, i.id`

	rows, err := db.QueryContext(ctx, query, pq.Array(orderIDs))
	if err != nil {
		return nil, database.Storage("get order items", err)
	}
	defer rows.Close()

	items := make(map[int64][]models.OrderItem, len(orderIDs))
	for rows.Next() {
		var item models.OrderItem
		dest := append([]any{&item.ID, &item.OrderID, &item.ProductID, &item.Quantity}, productFields(&item.Product)...)
		if err := rows.Scan(dest...); err != nil {
			return nil, database.Storage("scan order item", err)
		}
		items[item.OrderID] = append(items[item.OrderID], item)
	}

	if err := rows.Err(); err != nil {
		return nil, database.Storage("get order items", err)
	}

	return items, nil
}

// ListOrdersCursor pages orders newest first, items included.
func ListOrdersCursor(ctx context.Context, db database.Querier, filter OrderFilter, cursor string, limit int) (*CursorPage, error) {
	cursorData, err := DecodeCursor(cursor)
	if err != nil {
		return nil, errors.Join(ErrInvalidCursor, err)
	}

	var owner sql.NullInt64
	if filter.OwnerID != nil {
		owner = sql.NullInt64{Int64: *filter.OwnerID, Valid: true}
	}

	var afterAt sql.NullTime
	var afterID sql.NullInt64
	if !cursorData.IsZero() {
		afterAt = sql.NullTime{Time: cursorData.CreatedAt, Valid: true}
		afterID = sql.NullInt64{Int64: cursorData.ID, Valid: true}
	}

	query := `
		SELECT ` + orderColumns + `
		FROM orders o
		WHERE ($1::bigint IS NULL OR o.owner_id = $1)
		  AND ($2::timestamptz IS NULL OR (o.created_at, o.id) < ($2, $3::bigint))
		ORDER BY o.created_at DESC, o.id DESC
		LIMIT $4`

	rows, err := db.QueryContext(ctx, query, owner, afterAt, afterID, limit+1)
	if err != nil {
		return nil, database.Storage("list orders", err)
	}
	defer rows.Close()

	orders := []models.Order{}
	for rows.Next() {
		var order models.Order
		if err := rows.Scan(orderFields(&order)...); err != nil {
			return nil, database.Storage("scan order", err)
		}
		orders = append(orders, order)
	}

	if err := rows.Err(); err != nil {
		return nil, database.Storage("list orders", err)
	}

	hasMore := len(orders) > limit
	if hasMore {
		orders = orders[:limit]
	}

	if len(orders) > 0 {
		ids := make([]int64, len(orders))
		for i, o := range orders {
			ids[i] = o.ID
		}
		items, err := loadOrderItems(ctx, db, ids)
		if err != nil {
			return nil, err
		}
		for i := range orders {
			orders[i].Items = items[orders[i].ID]
		}
	}

	var nextCursor string
	if hasMore && len(orders) > 0 {
		lastOrder := orders[len(orders)-1]
		nextCursor = EncodeCursor(OrderCursor{
			CreatedAt: lastOrder.CreatedAt,
			ID:        lastOrder.ID,
		})
	}

	return &CursorPage{
		Items:      orders,
		NextCursor: nextCursor,
		HasMore:    hasMore,
	}, nil
}

// UpdateOrderStatus sets any of the known statuses regardless of the current one.
func UpdateOrderStatus(ctx context.Context, db database.Querier, id int64, status models.OrderStatus) error {
	if !status.Valid() {
		return models.ErrInvalidStatus
	}

	result, err := db.ExecContext(ctx, `UPDATE orders SET status = $1 WHERE id = $2`, status, id)
	if err != nil {
		return database.Storage("update order status", err)
	}
	return requireAffected(result, database.ErrOrderNotFound)
}

func AttachOrderDocument(ctx context.Context, db database.Querier, id int64, ref string) error {
	result, err := db.ExecContext(ctx, `UPDATE orders SET document_ref = $1 WHERE id = $2`, ref, id)
	if err != nil {
		return database.Storage("attach order document", err)
	}
	return requireAffected(result, database.ErrOrderNotFound)
}

// DeleteOrder removes the order; items and the credit card go with it.
func DeleteOrder(ctx context.Context, db database.Querier, id int64) error {
	result, err := db.ExecContext(ctx, `DELETE FROM orders WHERE id = $1`, id)
	if err != nil {
		return database.Storage("delete order", err)
	}
	return requireAffected(result, database.ErrOrderNotFound)
}

func GetCreditCard(ctx context.Context, db database.Querier, orderID int64) (*models.CreditCard, error) {
	card := &models.CreditCard{}

	err := db.QueryRowContext(ctx,
		`SELECT id, owner_id, order_id, number, cvv, expire_date, created_at
		 FROM credit_cards WHERE order_id = $1`, orderID,
	).Scan(&card.ID, &card.OwnerID, &card.OrderID, &card.Number, &card.CVV, &card.ExpireDate, &card.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, database.ErrCreditCardNotFound
		}
		return nil, database.Storage("get credit card", err)
	}

	return card, nil
}

func requireAffected(result sql.Result, notFound error) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return database.Storage("get rows affected", err)
	}
	if rowsAffected == 0 {
		return notFound
	}
	return nil
}
