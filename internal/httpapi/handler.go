package httpapi

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/safar/storefront/internal/httpapi/middleware"
	"github.com/safar/storefront/internal/models"
	"github.com/safar/storefront/internal/pricing"
	"github.com/safar/storefront/internal/shop"
	"github.com/safar/storefront/internal/store"
	"github.com/shopspring/decimal"
)

// Shop is the use-case surface the handlers need; *shop.Service implements it.
type Shop interface {
	Register(ctx context.Context, email, username string) (*models.User, error)
	Profile(ctx context.Context, userID int64) (*models.User, error)
	ListProducts(ctx context.Context, search string, page, pageSize int) (*store.OffsetPage, error)
	GetProduct(ctx context.Context, id int64) (*models.Product, error)
	Cart(ctx context.Context, userID int64) (*shop.CartView, error)
	AddToCart(ctx context.Context, userID, productID int64) (*models.CartLine, error)
	RemoveFromCart(ctx context.Context, userID, lineID int64) error
	CheckoutSummary(ctx context.Context, userID int64) (*shop.CheckoutView, error)
	Checkout(ctx context.Context, in shop.CheckoutInput) (*shop.OrderDetail, error)
	OrderDetail(ctx context.Context, viewer shop.Viewer, id int64) (*shop.OrderDetail, error)
	ListOrders(ctx context.Context, viewer shop.Viewer, cursor string, limit int) (*shop.OrderPage, error)
	UpdateOrderStatus(ctx context.Context, id int64, status models.OrderStatus) error
	AttachOrderDocument(ctx context.Context, id int64, ref string) error
	DeleteOrder(ctx context.Context, id int64) error
	ListAddresses(ctx context.Context, userID int64) ([]models.Address, error)
	Address(ctx context.Context, userID, id int64) (*models.Address, error)
	CreateAddress(ctx context.Context, userID int64, a models.Address) (*models.Address, error)
	UpdateAddress(ctx context.Context, userID, id int64, a models.Address) (*models.Address, error)
	Favorites(ctx context.Context, userID int64) ([]int64, error)
	ToggleFavorite(ctx context.Context, userID, productID int64) (bool, error)
	SetTaxPercent(ctx context.Context, tax decimal.Decimal) (*models.SiteSettings, error)
}

var _ Shop = (*shop.Service)(nil)

type Handler struct {
	shop    Shop
	timeout time.Duration
}

func NewHandler(s Shop, timeout time.Duration) *Handler {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Handler{shop: s, timeout: timeout}
}

func (h *Handler) ctx(c *gin.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request.Context(), h.timeout)
}

func viewer(c *gin.Context) shop.Viewer {
	id, _ := middleware.IdentityFrom(c)
	return shop.Viewer{UserID: id.UserID, Staff: id.Staff}
}

func idParam(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + name})
		return 0, false
	}
	return id, true
}

func intQuery(c *gin.Context, name string, def, max int) int {
	v, err := strconv.Atoi(c.Query(name))
	if err != nil || v < 1 {
		return def
	}
	if max > 0 && v > max {
		return def
	}
	return v
}

type registerReq struct {
	Email    string `json:"email" binding:"required"`
	Username string `json:"username" binding:"required"`
}

func (h *Handler) Register(c *gin.Context) {
	var req registerReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad_request"})
		return
	}

	ctx, cancel := h.ctx(c)
	defer cancel()

	user, err := h.shop.Register(ctx, req.Email, req.Username)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, user)
}

func (h *Handler) Me(c *gin.Context) {
	ctx, cancel := h.ctx(c)
	defer cancel()

	user, err := h.shop.Profile(ctx, viewer(c).UserID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

func (h *Handler) ListProducts(c *gin.Context) {
	ctx, cancel := h.ctx(c)
	defer cancel()

	page, err := h.shop.ListProducts(ctx, c.Query("search"), intQuery(c, "page", 1, 0), intQuery(c, "page_size", 20, 100))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

func (h *Handler) GetProduct(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}

	ctx, cancel := h.ctx(c)
	defer cancel()

	product, err := h.shop.GetProduct(ctx, id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"product":    product,
		"unit_price": pricing.UnitPrice(*product),
		"is_new":     product.IsNew(time.Now()),
		"in_stock":   product.InStock(),
	})
}

func (h *Handler) Cart(c *gin.Context) {
	ctx, cancel := h.ctx(c)
	defer cancel()

	cart, err := h.shop.Cart(ctx, viewer(c).UserID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, cart)
}

func (h *Handler) AddToCart(c *gin.Context) {
	productID, ok := idParam(c, "product_id")
	if !ok {
		return
	}

	ctx, cancel := h.ctx(c)
	defer cancel()

	line, err := h.shop.AddToCart(ctx, viewer(c).UserID, productID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, line)
}

func (h *Handler) RemoveFromCart(c *gin.Context) {
	lineID, ok := idParam(c, "id")
	if !ok {
		return
	}

	ctx, cancel := h.ctx(c)
	defer cancel()

	if err := h.shop.RemoveFromCart(ctx, viewer(c).UserID, lineID); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) CheckoutSummary(c *gin.Context) {
	ctx, cancel := h.ctx(c)
	defer cancel()

	view, err := h.shop.CheckoutSummary(ctx, viewer(c).UserID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

type cardReq struct {
	Number string `json:"number"`
	CVV    string `json:"cvv"`
	Expiry string `json:"expiry"`
}

type checkoutReq struct {
	AddressID     int64    `json:"address_id" binding:"required"`
	PaymentMethod string   `json:"payment_method" binding:"required"`
	Card          *cardReq `json:"card"`
}

func (h *Handler) Checkout(c *gin.Context) {
	var req checkoutReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad_request"})
		return
	}

	in := shop.CheckoutInput{
		UserID:         viewer(c).UserID,
		AddressID:      req.AddressID,
		PaymentMethod:  models.PaymentMethod(req.PaymentMethod),
		IdempotencyKey: c.GetHeader("X-Idempotency-Key"),
	}
	if req.Card != nil {
		in.Card = &store.CardInput{Number: req.Card.Number, CVV: req.Card.CVV, Expiry: req.Card.Expiry}
	}

	ctx, cancel := h.ctx(c)
	defer cancel()

	detail, err := h.shop.Checkout(ctx, in)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, detail)
}

func (h *Handler) ListOrders(c *gin.Context) {
	ctx, cancel := h.ctx(c)
	defer cancel()

	page, err := h.shop.ListOrders(ctx, viewer(c), c.Query("cursor"), intQuery(c, "limit", 20, 100))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

func (h *Handler) GetOrder(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}

	ctx, cancel := h.ctx(c)
	defer cancel()

	detail, err := h.shop.OrderDetail(ctx, viewer(c), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, detail)
}

type statusReq struct {
	Status string `json:"status" binding:"required"`
}

func (h *Handler) UpdateOrderStatus(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}

	var req statusReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad_request"})
		return
	}

	ctx, cancel := h.ctx(c)
	defer cancel()

	if err := h.shop.UpdateOrderStatus(ctx, id, models.OrderStatus(req.Status)); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type documentReq struct {
	Ref string `json:"ref" binding:"required"`
}

func (h *Handler) AttachOrderDocument(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}

	var req documentReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad_request"})
		return
	}

	ctx, cancel := h.ctx(c)
	defer cancel()

	if err := h.shop.AttachOrderDocument(ctx, id, req.Ref); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) DeleteOrder(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}

	ctx, cancel := h.ctx(c)
	defer cancel()

	if err := h.shop.DeleteOrder(ctx, id); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type addressReq struct {
	FullName string `json:"full_name" binding:"required"`
	Street   string `json:"street" binding:"required"`
	ZipCode  int    `json:"zip_code" binding:"required"`
	City     string `json:"city" binding:"required"`
	Phone    string `json:"phone" binding:"required"`
}

func (r addressReq) model() models.Address {
	return models.Address{FullName: r.FullName, Street: r.Street, ZipCode: r.ZipCode, City: r.City, Phone: r.Phone}
}

func (h *Handler) ListAddresses(c *gin.Context) {
	ctx, cancel := h.ctx(c)
	defer cancel()

	addresses, err := h.shop.ListAddresses(ctx, viewer(c).UserID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"addresses": addresses})
}

func (h *Handler) GetAddress(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}

	ctx, cancel := h.ctx(c)
	defer cancel()

	address, err := h.shop.Address(ctx, viewer(c).UserID, id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, address)
}

func (h *Handler) CreateAddress(c *gin.Context) {
	var req addressReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad_request"})
		return
	}

	ctx, cancel := h.ctx(c)
	defer cancel()

	address, err := h.shop.CreateAddress(ctx, viewer(c).UserID, req.model())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, address)
}

func (h *Handler) UpdateAddress(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}

	var req addressReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad_request"})
		return
	}

	ctx, cancel := h.ctx(c)
	defer cancel()

	address, err := h.shop.UpdateAddress(ctx, viewer(c).UserID, id, req.model())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, address)
}

func (h *Handler) Favorites(c *gin.Context) {
	ctx, cancel := h.ctx(c)
	defer cancel()

	ids, err := h.shop.Favorites(ctx, viewer(c).UserID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"product_ids": ids})
}

func (h *Handler) ToggleFavorite(c *gin.Context) {
	productID, ok := idParam(c, "product_id")
	if !ok {
		return
	}

	ctx, cancel := h.ctx(c)
	defer cancel()

	on, err := h.shop.ToggleFavorite(ctx, viewer(c).UserID, productID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"product_id": productID, "favorite": on})
}

type taxReq struct {
	TaxPercent decimal.Decimal `json:"tax_percent"`
}

func (h *Handler) SetTax(c *gin.Context) {
	var req taxReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad_request"})
		return
	}

	ctx, cancel := h.ctx(c)
	defer cancel()

	settings, err := h.shop.SetTaxPercent(ctx, req.TaxPercent)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, settings)
}
