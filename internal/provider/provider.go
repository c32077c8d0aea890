// internal/provider/provider.go
package provider

import (
	"context"
	"time"

	"github.com/DrawzeoBarrela/pix-pocket-brasil/internal/domain"

	"github.com/shopspring/decimal"
)

// PaymentProvider is the authoritative source of payment state.
type PaymentProvider interface {
	// GetName returns the provider name
	GetName() string

	// FetchAuthoritativeStatus reads the payment straight from the provider.
	// Transport failures and non-2xx answers other than 404 return
	// domain.ErrProviderUnavailable.
	FetchAuthoritativeStatus(ctx context.Context, paymentID string) (*PaymentStatusResult, error)

	// CreatePixPayment creates a PIX charge for a pending deposit
	CreatePixPayment(ctx context.Context, req *PixPaymentRequest) (*PixPaymentResponse, error)

	// Probe collects diagnostic lookups for operators
	Probe(ctx context.Context, paymentID string) (*ProbeReport, error)
}

type PaymentStatusResult struct {
	PaymentID         string               `json:"payment_id"`
	Status            domain.PaymentStatus `json:"status"`
	ProviderStatus    string               `json:"provider_status,omitempty"`
	StatusDetail      string               `json:"status_detail,omitempty"`
	Amount            decimal.Decimal      `json:"amount"`
	ExternalReference string               `json:"external_reference,omitempty"`
	DateApproved      *time.Time           `json:"date_approved,omitempty"`
}

func (r *PaymentStatusResult) IsApproved() bool {
	return r.Status == domain.PaymentStatusApproved
}

type PixPaymentRequest struct {
	OperationID string
	Amount      decimal.Decimal
	Description string
	PayerEmail  string
}

type PixPaymentResponse struct {
	PaymentID    string          `json:"payment_id"`
	Status       string          `json:"status"`
	Amount       decimal.Decimal `json:"amount"`
	QRCodeBase64 string          `json:"qr_code"`
	QRCodeText   string          `json:"qr_code_text"`
}

type ProbeResult struct {
	Endpoint   string `json:"endpoint"`
	StatusCode int    `json:"status_code"`
	Body       any    `json:"body,omitempty"`
	Error      string `json:"error,omitempty"`
}

type ProbeReport struct {
	PaymentID string        `json:"payment_id"`
	Probes    []ProbeResult `json:"probes"`
}
