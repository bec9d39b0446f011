package httpapi

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/safar/storefront/internal/database"
	"github.com/safar/storefront/internal/logging"
	"github.com/safar/storefront/internal/models"
	"github.com/safar/storefront/internal/shop"
	"github.com/safar/storefront/internal/store"
)

var (
	badRequest = []error{
		models.ErrInvalidDiscount,
		models.ErrNegativeAmount,
		models.ErrInvalidTaxRate,
		models.ErrMalformedExpiry,
		models.ErrInvalidPaymentMethod,
		models.ErrInvalidStatus,
		shop.ErrInvalidAccount,
		store.ErrInvalidCursor,
	}
	notFound = []error{
		database.ErrProductNotFound,
		database.ErrOrderNotFound,
		database.ErrAddressNotFound,
		database.ErrUserNotFound,
	}
	conflict = []error{
		shop.ErrDuplicateCheckout,
		database.ErrEmailTaken,
		database.ErrOptimisticLockFailed,
	}
)

func statusFor(err error) int {
	switch {
	case isAny(err, badRequest):
		return http.StatusBadRequest
	case isAny(err, notFound):
		return http.StatusNotFound
	case isAny(err, conflict):
		return http.StatusConflict
	case errors.Is(err, database.ErrSettingsMissing):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

func isAny(err error, targets []error) bool {
	for _, t := range targets {
		if errors.Is(err, t) {
			return true
		}
	}
	return false
}

// writeError is the only place errors become HTTP responses. Server errors are
// logged in full and answered without detail.
func writeError(c *gin.Context, err error) {
	_ = c.Error(err)

	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		logging.From(c).Error("request failed", "error", err)
		c.JSON(status, gin.H{"error": http.StatusText(status)})
		return
	}
	c.JSON(status, gin.H{"error": err.Error()})
}
