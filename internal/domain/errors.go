package domain

import "errors"

var (
	ErrMalformedEvent      = errors.New("malformed webhook event")
	ErrInvalidSignature    = errors.New("invalid webhook signature")
	ErrProviderUnavailable = errors.New("payment provider unavailable")
	ErrOperationNotFound   = errors.New("operation not found")
	ErrProfileNotFound     = errors.New("profile not found")
	ErrNotificationFailed  = errors.New("notification failed")
	ErrNotEligible         = errors.New("operation not eligible for this transition")
	ErrInvalidAmount       = errors.New("amount must be positive with at most two decimal places")
	ErrInvalidPixKey       = errors.New("pix key is required")
	ErrDuplicatePaymentRef = errors.New("payment reference already attached")
	ErrNotificationTarget  = errors.New("no notification targets configured")
)
