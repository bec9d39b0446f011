package shop

import (
	"context"

	"github.com/safar/storefront/internal/models"
	"github.com/safar/storefront/internal/pricing"
	"github.com/safar/storefront/internal/store"
)

type CartView struct {
	Lines  []CartLineView `json:"lines"`
	Totals pricing.Totals `json:"totals"`
}

type CartLineView struct {
	models.CartLine
	UnitPrice int64 `json:"unit_price"`
	Amount    int64 `json:"amount"`
}

// CheckoutView is what the checkout page needs: the priced cart and where it can ship.
type CheckoutView struct {
	CartView
	Addresses []models.Address `json:"addresses"`
}

func (s *Service) Cart(ctx context.Context, userID int64) (*CartView, error) {
	tax, err := store.GetTaxPercent(ctx, s.db)
	if err != nil {
		return nil, err
	}

	lines, err := store.ListCartLines(ctx, s.db, userID)
	if err != nil {
		return nil, err
	}

	return priceCart(lines, tax), nil
}

func (s *Service) AddToCart(ctx context.Context, userID, productID int64) (*models.CartLine, error) {
	return store.AddToCart(ctx, s.db, userID, productID)
}

func (s *Service) RemoveFromCart(ctx context.Context, userID, lineID int64) error {
	return store.RemoveCartLine(ctx, s.db, userID, lineID)
}

func (s *Service) CheckoutSummary(ctx context.Context, userID int64) (*CheckoutView, error) {
	cart, err := s.Cart(ctx, userID)
	if err != nil {
		return nil, err
	}

	addresses, err := store.ListAddresses(ctx, s.db, userID)
	if err != nil {
		return nil, err
	}

	return &CheckoutView{CartView: *cart, Addresses: addresses}, nil
}
