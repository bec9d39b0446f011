package models

import "errors"

var (
	ErrInvalidDiscount      = errors.New("discount percent must be between 0 and 100")
	ErrNegativeAmount       = errors.New("price, shipping cost and stock must not be negative")
	ErrInvalidTaxRate       = errors.New("tax rate must be greater than zero")
	ErrMalformedExpiry      = errors.New("card expiry must be MM/YY")
	ErrInvalidPaymentMethod = errors.New("unknown payment method")
	ErrInvalidStatus        = errors.New("unknown order status")
)
