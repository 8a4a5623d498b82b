package payments

import (
	"errors"
	"strings"
)

// Provider error bodies are free text and the wording shifts between
// gateway versions. Every substring we sniff lives here as a versioned
// constant so a provider wording change has exactly one place to fix.

// Inicis markers that mean the cancellation already happened (or the
// transaction no longer exists provider-side). Both cases are reported as
// idempotent success: repeating a cancel against a cancelled payment is
// not an error from the caller's point of view.
var inicisAlreadyCancelledMarkers = []string{
	"이미 취소",     // "already cancelled"
	"취소된 거래",    // "cancelled transaction"
	"already cancel",
	"거래가 존재하지",  // "transaction does not exist"
	"does not exist",
	"not exist",
}

// PortOne markers meaning the provider does not know the payment id we
// sent. Triggers the order-id-as-payment-id fallback, not a hard failure.
var portoneNotFoundMarkers = []string{
	"PAYMENT_NOT_FOUND",
	"payment not found",
	"존재하지 않는 결제",
}

func containsAny(body string, markers []string) bool {
	lower := strings.ToLower(body)
	for _, m := range markers {
		if strings.Contains(lower, strings.ToLower(m)) {
			return true
		}
	}
	return false
}

// IsInicisAlreadyCancelled classifies a raw Inicis response body.
func IsInicisAlreadyCancelled(body string) bool {
	return containsAny(body, inicisAlreadyCancelledMarkers)
}

// IsNotFoundError reports whether err represents a "payment unknown to
// provider" condition, either by HTTP 404 or by message marker.
func IsNotFoundError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrPaymentNotFound) {
		return true
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		if apiErr.Status == 404 {
			return true
		}
		return containsAny(apiErr.Body, portoneNotFoundMarkers)
	}
	return containsAny(err.Error(), portoneNotFoundMarkers)
}

// IsUnauthorizedError reports whether err is a provider 401. Retrying an
// authorization failure cannot succeed, so the orchestrator aborts on it.
func IsUnauthorizedError(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == 401
}
