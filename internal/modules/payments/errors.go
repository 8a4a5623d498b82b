package payments

import "errors"

var (
	ErrSecretNotConfigured = errors.New("portone api secret not configured")
	ErrMissingPaymentKey   = errors.New("payment record has no payment key")
	ErrNoCheckoutURL       = errors.New("no payment URL generated")
	ErrPaymentNotFound     = errors.New("payment not found at provider")
	ErrAmountMismatch      = errors.New("paid amount does not match expected amount")
)
