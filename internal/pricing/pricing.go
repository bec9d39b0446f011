// Package pricing derives unit prices and cart/order totals from catalog data.
//
// All amounts are integer currency units. Truncation happens once per aggregate:
// line amounts are exact, tax is floored after summing subtotal and shipping.
package pricing

import (
	"github.com/safar/storefront/internal/models"
	"github.com/shopspring/decimal"
)

// Line is a product paired with a quantity, either a cart line or an order item.
type Line struct {
	Product  models.Product
	Quantity int
}

type Totals struct {
	Subtotal   int64           `json:"subtotal"`
	Shipping   int64           `json:"shipping"`
	TaxPercent decimal.Decimal `json:"tax_percent"`
	Tax        int64           `json:"tax"`
	Total      int64           `json:"total"`
	ItemCount  int             `json:"item_count"`
}

var hundred = decimal.NewFromInt(100)

// UnitPrice is the price after discount, floor(price * (100 - discount) / 100).
func UnitPrice(p models.Product) int64 {
	return p.Price * int64(100-p.DiscountPercent) / 100
}

func LineAmount(p models.Product, quantity int) int64 {
	return int64(quantity) * UnitPrice(p)
}

func Subtotal(lines []Line) int64 {
	var sum int64
	for _, l := range lines {
		sum += LineAmount(l.Product, l.Quantity)
	}
	return sum
}

// Shipping charges each line's shipping cost once, regardless of quantity.
func Shipping(lines []Line) int64 {
	var sum int64
	for _, l := range lines {
		sum += l.Product.ShippingCost
	}
	return sum
}

func ItemCount(lines []Line) int {
	var n int
	for _, l := range lines {
		n += l.Quantity
	}
	return n
}

// OrderTotal applies taxPercent to subtotal+shipping and floors the tax.
func OrderTotal(subtotal, shipping int64, taxPercent decimal.Decimal) Totals {
	base := subtotal + shipping
	tax := decimal.NewFromInt(base).Mul(taxPercent).Div(hundred).Floor().IntPart()

	return Totals{
		Subtotal:   subtotal,
		Shipping:   shipping,
		TaxPercent: taxPercent,
		Tax:        tax,
		Total:      base + tax,
	}
}

func Summarize(lines []Line, taxPercent decimal.Decimal) Totals {
	t := OrderTotal(Subtotal(lines), Shipping(lines), taxPercent)
	t.ItemCount = ItemCount(lines)
	return t
}

func ValidateTaxPercent(taxPercent decimal.Decimal) error {
	if !taxPercent.IsPositive() {
		return models.ErrInvalidTaxRate
	}
	return nil
}

func FromCart(cart []models.CartLine) []Line {
	lines := make([]Line, 0, len(cart))
	for _, c := range cart {
		lines = append(lines, Line{Product: c.Product, Quantity: c.Quantity})
	}
	return lines
}

func FromOrder(items []models.OrderItem) []Line {
	lines := make([]Line, 0, len(items))
	for _, it := range items {
		lines = append(lines, Line{Product: it.Product, Quantity: it.Quantity})
	}
	return lines
}
