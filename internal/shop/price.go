package shop

import (
	"github.com/safar/storefront/internal/models"
	"github.com/safar/storefront/internal/pricing"
	"github.com/shopspring/decimal"
)

func priceCart(lines []models.CartLine, tax decimal.Decimal) *CartView {
	view := &CartView{
		Lines:  make([]CartLineView, 0, len(lines)),
		Totals: pricing.Summarize(pricing.FromCart(lines), tax),
	}
	for _, l := range lines {
		view.Lines = append(view.Lines, CartLineView{
			CartLine:  l,
			UnitPrice: pricing.UnitPrice(l.Product),
			Amount:    pricing.LineAmount(l.Product, l.Quantity),
		})
	}
	return view
}

func priceOrder(order *models.Order, tax decimal.Decimal) *OrderDetail {
	return &OrderDetail{
		Order:  order,
		Totals: pricing.Summarize(pricing.FromOrder(order.Items), tax),
	}
}
