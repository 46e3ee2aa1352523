package checkout

import (
	"errors"

	"storefront-be/internal/payment"
)

var (
	ErrEmptyCart       = errors.New("product ids are required")
	ErrPaymentProvider = payment.ErrProvider
)
