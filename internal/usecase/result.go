// internal/usecase/result.go
package usecase

import (
	"time"

	"github.com/DrawzeoBarrela/pix-pocket-brasil/internal/domain"
	"github.com/DrawzeoBarrela/pix-pocket-brasil/internal/provider"

	"github.com/shopspring/decimal"
)

// Result statuses shared by the webhook pipeline and the operator endpoints.
const (
	StatusConfirmed                   = "confirmed"
	StatusAlreadyConfirmed            = "already_confirmed"
	StatusOperationNotFound           = "operation_not_found"
	StatusNotApproved                 = "not_approved"
	StatusNotEligible                 = "not_eligible"
	StatusIgnored                     = "ignored"
	StatusTestSuccess                 = "test_success"
	StatusFound                       = "found"
	StatusConfirmedNotificationFailed = "confirmed_notification_failed"
	StatusNotificationResent          = "notification_resent"
	StatusNotificationFailed          = "notification_failed"
	StatusCancelled                   = "cancelled"
	StatusTestSent                    = "test_sent"
	StatusError                       = "error"
)

// RecentOperation is the trimmed view returned when a payment matches nothing.
type RecentOperation struct {
	ID        string          `json:"id"`
	PaymentID string          `json:"payment_id,omitempty"`
	Amount    decimal.Decimal `json:"amount"`
	Status    string          `json:"status"`
	CreatedAt time.Time       `json:"created_at"`
}

// Result is the status-discriminated outcome of every reconciliation entry point.
type Result struct {
	Status            string                        `json:"status"`
	Message           string                        `json:"message,omitempty"`
	PaymentID         string                        `json:"payment_id,omitempty"`
	ProviderStatus    *provider.PaymentStatusResult `json:"provider_status,omitempty"`
	Operation         *domain.Operation             `json:"operation,omitempty"`
	Notification      *domain.DispatchReport        `json:"notification,omitempty"`
	NotificationError string                        `json:"notification_error,omitempty"`
	RecentOperations  []RecentOperation             `json:"recent_operations,omitempty"`
	TraceID           string                        `json:"trace_id,omitempty"`
}

func toRecent(ops []*domain.Operation) []RecentOperation {
	out := make([]RecentOperation, 0, len(ops))
	for _, op := range ops {
		out = append(out, RecentOperation{
			ID:        op.ID.String(),
			PaymentID: op.PaymentRef(),
			Amount:    op.Amount,
			Status:    string(op.Status),
			CreatedAt: op.CreatedAt,
		})
	}
	return out
}
