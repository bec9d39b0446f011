package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type User struct {
	ID        int64     `json:"id"`
	Email     string    `json:"email"`
	Username  string    `json:"username"`
	IsStaff   bool      `json:"is_staff"`
	CartCount int       `json:"cart_count"`
	CreatedAt time.Time `json:"created_at"`
}

type Product struct {
	ID               int64     `json:"id"`
	Title            string    `json:"title"`
	ShortDescription string    `json:"short_description,omitempty"`
	Price            int64     `json:"price"`
	DiscountPercent  int       `json:"discount_percent"`
	ShippingCost     int64     `json:"shipping_cost"`
	Stock            int       `json:"stock"`
	IsPremium        bool      `json:"is_premium"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
	Version          int       `json:"version"`
}

const newProductWindow = 7 * 24 * time.Hour

// Validate enforces the catalog write invariants.
func (p *Product) Validate() error {
	if p.DiscountPercent < 0 || p.DiscountPercent > 100 {
		return ErrInvalidDiscount
	}
	if p.Price < 0 || p.ShippingCost < 0 || p.Stock < 0 {
		return ErrNegativeAmount
	}
	return nil
}

func (p *Product) InStock() bool {
	return p.Stock > 0
}

func (p *Product) IsNew(now time.Time) bool {
	return !p.CreatedAt.Before(now.Add(-newProductWindow))
}

type CartLine struct {
	ID        int64   `json:"id"`
	UserID    int64   `json:"user_id"`
	ProductID int64   `json:"product_id"`
	Quantity  int     `json:"quantity"`
	Product   Product `json:"product"`
}

type Order struct {
	ID            int64         `json:"id"`
	OwnerID       int64         `json:"owner_id"`
	AddressID     int64         `json:"address_id"`
	Status        OrderStatus   `json:"status"`
	PaymentMethod PaymentMethod `json:"payment_method"`
	DocumentRef   *string       `json:"document_ref,omitempty"`
	CreatedAt     time.Time     `json:"created_at"`
	Items         []OrderItem   `json:"items,omitempty"`
}

type OrderItem struct {
	ID        int64   `json:"id"`
	OrderID   int64   `json:"order_id"`
	ProductID int64   `json:"product_id"`
	Quantity  int     `json:"quantity"`
	Product   Product `json:"product"`
}

type CreditCard struct {
	ID         int64     `json:"id"`
	OwnerID    int64     `json:"owner_id"`
	OrderID    int64     `json:"order_id"`
	Number     string    `json:"number"`
	CVV        string    `json:"-"`
	ExpireDate time.Time `json:"expire_date"`
	CreatedAt  time.Time `json:"created_at"`
}

type Address struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"user_id"`
	FullName  string    `json:"full_name"`
	Street    string    `json:"street"`
	ZipCode   int       `json:"zip_code"`
	City      string    `json:"city"`
	Phone     string    `json:"phone"`
	CreatedAt time.Time `json:"created_at"`
}

type SiteSettings struct {
	TaxPercent decimal.Decimal `json:"tax_percent"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

type Favorite struct {
	UserID    int64     `json:"user_id"`
	ProductID int64     `json:"product_id"`
	CreatedAt time.Time `json:"created_at"`
}

type OrderStatus string

const (
	OrderStatusProcessing OrderStatus = "processing"
	OrderStatusOnHold     OrderStatus = "on_hold"
	OrderStatusPending    OrderStatus = "pending"
	OrderStatusCompleted  OrderStatus = "completed"
)

// Valid reports whether s is one of the known states. Any state may follow any other.
func (s OrderStatus) Valid() bool {
	switch s {
	case OrderStatusProcessing, OrderStatusOnHold, OrderStatusPending, OrderStatusCompleted:
		return true
	}
	return false
}

type PaymentMethod string

const (
	PaymentMethodPaypal     PaymentMethod = "paypal"
	PaymentMethodCreditCard PaymentMethod = "credit_card"
)

func (m PaymentMethod) Valid() bool {
	return m == PaymentMethodPaypal || m == PaymentMethodCreditCard
}
