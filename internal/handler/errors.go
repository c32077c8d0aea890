// internal/handler/errors.go
package handler

import (
	"errors"
	"net/http"

	"github.com/DrawzeoBarrela/pix-pocket-brasil/internal/domain"
)

// statusFor maps pipeline and domain errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrMalformedEvent),
		errors.Is(err, domain.ErrInvalidAmount),
		errors.Is(err, domain.ErrInvalidPixKey):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrInvalidSignature):
		return http.StatusUnauthorized
	case errors.Is(err, domain.ErrOperationNotFound),
		errors.Is(err, domain.ErrProfileNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrNotEligible),
		errors.Is(err, domain.ErrDuplicatePaymentRef):
		return http.StatusConflict
	case errors.Is(err, domain.ErrProviderUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
