package httpapi

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/safar/storefront/internal/httpapi/middleware"
)

func NewRouter(h *Handler, auth *middleware.Authenticator, logger *slog.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), middleware.Metrics(), middleware.Logging(logger))

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := r.Group("/v1")
	{
		v1.POST("/accounts", h.Register)
		v1.GET("/products", h.ListProducts)
		v1.GET("/products/:id", h.GetProduct)
	}

	authed := v1.Group("", auth.Require())
	{
		authed.GET("/me", h.Me)

		authed.GET("/cart", h.Cart)
		authed.POST("/cart/items/:product_id", h.AddToCart)
		authed.DELETE("/cart/items/:id", h.RemoveFromCart)

		authed.GET("/checkout", h.CheckoutSummary)
		authed.POST("/orders", h.Checkout)
		authed.GET("/orders", h.ListOrders)
		authed.GET("/orders/:id", h.GetOrder)

		authed.GET("/addresses", h.ListAddresses)
		authed.POST("/addresses", h.CreateAddress)
		authed.GET("/addresses/:id", h.GetAddress)
		authed.PUT("/addresses/:id", h.UpdateAddress)

		authed.GET("/favorites", h.Favorites)
		authed.POST("/favorites/:product_id", h.ToggleFavorite)
	}

	staff := authed.Group("", middleware.RequireStaff())
	{
		staff.PATCH("/orders/:id/status", h.UpdateOrderStatus)
		staff.PUT("/orders/:id/document", h.AttachOrderDocument)
		staff.DELETE("/orders/:id", h.DeleteOrder)
		staff.PUT("/settings/tax", h.SetTax)
	}

	return r
}
