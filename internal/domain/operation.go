// internal/domain/operation.go
package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type OperationType string
type OperationStatus string

const (
	OperationTypeDeposit    OperationType = "deposit"
	OperationTypeWithdrawal OperationType = "withdrawal"
)

const (
	OperationStatusPending   OperationStatus = "pending"
	OperationStatusConfirmed OperationStatus = "confirmed"
	OperationStatusCancelled OperationStatus = "cancelled"
)

// ConfirmedByWebhook marks transitions made by the automatic pipeline.
const ConfirmedByWebhook = "webhook"

// Operation is one deposit or withdrawal tracked through the ledger.
type Operation struct {
	ID                   uuid.UUID       `json:"id" db:"id"`
	UserID               uuid.UUID       `json:"user_id" db:"user_id"`
	Type                 OperationType   `json:"type" db:"type"`
	Amount               decimal.Decimal `json:"amount" db:"amount"`
	Status               OperationStatus `json:"status" db:"status"`
	MercadoPagoPaymentID *string         `json:"mercado_pago_payment_id,omitempty" db:"mercado_pago_payment_id"`
	PixQRCode            *string         `json:"pix_qr_code,omitempty" db:"pix_qr_code"`
	PixKey               *string         `json:"pix_key,omitempty" db:"pix_key"`
	Notes                *string         `json:"notes,omitempty" db:"notes"`
	ConfirmedAt          *time.Time      `json:"confirmed_at,omitempty" db:"confirmed_at"`
	ConfirmedBy          *string         `json:"confirmed_by,omitempty" db:"confirmed_by"`
	CreatedAt            time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt            time.Time       `json:"updated_at" db:"updated_at"`
}

func (o *Operation) IsPending() bool {
	return o.Status == OperationStatusPending
}

// PaymentRef returns the external payment reference or "" when none is attached yet.
func (o *Operation) PaymentRef() string {
	if o.MercadoPagoPaymentID == nil {
		return ""
	}
	return *o.MercadoPagoPaymentID
}

// Profile is the read-only slice of a user profile the notifications need.
type Profile struct {
	ID        uuid.UUID `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	PPPokerID string    `json:"pppoker_id" db:"pppoker_id"`
}

// DepositRequest is what a user submits to start a PIX deposit.
type DepositRequest struct {
	UserID      uuid.UUID       `json:"-"`
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description,omitempty"`
}

// WithdrawalRequest is what a user submits to request a PIX payout.
type WithdrawalRequest struct {
	UserID uuid.UUID       `json:"-"`
	Amount decimal.Decimal `json:"amount"`
	PixKey string          `json:"pix_key"`
	Notes  string          `json:"notes,omitempty"`
}

// ValidateAmount enforces a positive amount with at most two decimal places.
func ValidateAmount(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return ErrInvalidAmount
	}
	if !amount.Equal(amount.Round(2)) {
		return ErrInvalidAmount
	}
	return nil
}
