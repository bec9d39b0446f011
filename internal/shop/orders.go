package shop

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/safar/storefront/internal/database"
	"github.com/safar/storefront/internal/logging"
	"github.com/safar/storefront/internal/models"
	"github.com/safar/storefront/internal/pricing"
	"github.com/safar/storefront/internal/store"
)

var ordersMaterialized = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "storefront_orders_materialized_total",
		Help: "Checkout attempts by payment method and outcome",
	},
	[]string{"payment_method", "result"},
)

const invalidMethodLabel = "invalid"

type CheckoutInput struct {
	UserID         int64
	AddressID      int64
	PaymentMethod  models.PaymentMethod
	Card           *store.CardInput
	IdempotencyKey string
}

// OrderDetail is an order priced with the current catalog and tax rate.
type OrderDetail struct {
	Order  *models.Order  `json:"order"`
	Totals pricing.Totals `json:"totals"`
	Card   *CardView      `json:"card,omitempty"`
}

type CardView struct {
	Last4   string `json:"last4"`
	Expiry  string `json:"expiry"`
	Expired bool   `json:"expired"`
}

type OrderPage struct {
	Orders     []OrderDetail `json:"orders"`
	NextCursor string        `json:"next_cursor,omitempty"`
	HasMore    bool          `json:"has_more"`
}

// Checkout materializes the user's cart. With an idempotency key a repeated call
// returns the order the first call produced, and a call racing the first one gets
// ErrDuplicateCheckout.
func (s *Service) Checkout(ctx context.Context, in CheckoutInput) (*OrderDetail, error) {
	// Unknown methods share one label so client input cannot grow the series set.
	if !in.PaymentMethod.Valid() {
		ordersMaterialized.WithLabelValues(invalidMethodLabel, "failed").Inc()
		return nil, models.ErrInvalidPaymentMethod
	}
	method := string(in.PaymentMethod)

	// The rate is read up front so a missing setting fails before anything is written.
	tax, err := store.GetTaxPercent(ctx, s.db)
	if err != nil {
		ordersMaterialized.WithLabelValues(method, "failed").Inc()
		return nil, err
	}

	useKey := s.idem != nil && in.IdempotencyKey != ""
	scope := strconv.FormatInt(in.UserID, 10)

	if useKey {
		if id, ok, err := s.idem.Recall(ctx, scope, in.IdempotencyKey); err != nil {
			return nil, fmt.Errorf("recall idempotency key: %w", err)
		} else if ok {
			orderID, err := strconv.ParseInt(id, 10, 64)
			if err != nil {
				return nil, fmt.Errorf("recall idempotency key: %w", err)
			}
			ordersMaterialized.WithLabelValues(method, "replayed").Inc()
			return s.OrderDetail(ctx, Viewer{UserID: in.UserID}, orderID)
		}

		locked, err := s.idem.TryLock(ctx, scope, in.IdempotencyKey)
		if err != nil {
			return nil, fmt.Errorf("lock idempotency key: %w", err)
		}
		if !locked {
			ordersMaterialized.WithLabelValues(method, "duplicate").Inc()
			return nil, ErrDuplicateCheckout
		}
	}

	order, err := store.MaterializeOrder(ctx, s.db, store.MaterializeRequest{
		UserID:        in.UserID,
		AddressID:     in.AddressID,
		PaymentMethod: in.PaymentMethod,
		Card:          in.Card,
	})
	if err != nil {
		ordersMaterialized.WithLabelValues(method, "failed").Inc()
		if useKey {
			if relErr := s.idem.Release(ctx, scope, in.IdempotencyKey); relErr != nil {
				logging.FromCtx(ctx).Warn("release idempotency key", "error", relErr)
			}
		}
		return nil, err
	}
	ordersMaterialized.WithLabelValues(method, "created").Inc()

	if useKey {
		if err := s.idem.Remember(ctx, scope, in.IdempotencyKey, strconv.FormatInt(order.ID, 10)); err != nil {
			logging.FromCtx(ctx).Warn("remember idempotency key", "order_id", order.ID, "error", err)
		}
	}

	logging.FromCtx(ctx).Info("order materialized",
		"order_id", order.ID, "user_id", in.UserID, "items", len(order.Items), "payment_method", method)

	// The order is committed at this point; failures below only degrade the response.
	detail := priceOrder(order, tax)
	if err := s.attachCard(ctx, detail); err != nil {
		logging.FromCtx(ctx).Warn("attach card to new order", "order_id", order.ID, "error", err)
	}
	return detail, nil
}

// OrderDetail returns the order priced at read time. Orders of other users are
// reported as missing unless the viewer is staff.
func (s *Service) OrderDetail(ctx context.Context, viewer Viewer, id int64) (*OrderDetail, error) {
	order, err := store.GetOrder(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	if !viewer.Staff && order.OwnerID != viewer.UserID {
		return nil, database.ErrOrderNotFound
	}

	tax, err := store.GetTaxPercent(ctx, s.db)
	if err != nil {
		return nil, err
	}

	detail := priceOrder(order, tax)
	if err := s.attachCard(ctx, detail); err != nil {
		return nil, err
	}
	return detail, nil
}

func (s *Service) attachCard(ctx context.Context, detail *OrderDetail) error {
	if detail.Order.PaymentMethod != models.PaymentMethodCreditCard {
		return nil
	}

	card, err := store.GetCreditCard(ctx, s.db, detail.Order.ID)
	if errors.Is(err, database.ErrCreditCardNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	exp := models.ExpiryOf(card.ExpireDate)
	detail.Card = &CardView{
		Last4:   last4(card.Number),
		Expiry:  exp.String(),
		Expired: exp.IsExpired(time.Now()),
	}
	return nil
}

func last4(number string) string {
	if len(number) <= 4 {
		return number
	}
	return number[len(number)-4:]
}

// ListOrders pages the viewer's order history, newest first. Staff see everyone's.
func (s *Service) ListOrders(ctx context.Context, viewer Viewer, cursor string, limit int) (*OrderPage, error) {
	var filter store.OrderFilter
	if !viewer.Staff {
		owner := viewer.UserID
		filter.OwnerID = &owner
	}

	tax, err := store.GetTaxPercent(ctx, s.db)
	if err != nil {
		return nil, err
	}

	page, err := store.ListOrdersCursor(ctx, s.db, filter, cursor, limit)
	if err != nil {
		return nil, err
	}

	orders := page.Items.([]models.Order)
	out := &OrderPage{
		Orders:     make([]OrderDetail, 0, len(orders)),
		NextCursor: page.NextCursor,
		HasMore:    page.HasMore,
	}
	for i := range orders {
		out.Orders = append(out.Orders, *priceOrder(&orders[i], tax))
	}
	return out, nil
}

func (s *Service) UpdateOrderStatus(ctx context.Context, id int64, status models.OrderStatus) error {
	if err := store.UpdateOrderStatus(ctx, s.db, id, status); err != nil {
		return err
	}
	logging.FromCtx(ctx).Info("order status changed", "order_id", id, "status", status)
	return nil
}

// AttachOrderDocument records where the order's generated document is stored.
func (s *Service) AttachOrderDocument(ctx context.Context, id int64, ref string) error {
	return store.AttachOrderDocument(ctx, s.db, id, ref)
}

func (s *Service) DeleteOrder(ctx context.Context, id int64) error {
	return store.DeleteOrder(ctx, s.db, id)
}
