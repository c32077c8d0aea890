// internal/domain/notification.go
package domain

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// NotificationJob is built from an Operation at the moment it must be announced.
type NotificationJob struct {
	OperationID       uuid.UUID       `json:"operation_id"`
	ProviderPaymentID string          `json:"payment_id,omitempty"`
	Type              OperationType   `json:"type"`
	Amount            decimal.Decimal `json:"amount"`
	Status            OperationStatus `json:"status"`
	UserName          string          `json:"user_name"`
	PPPokerID         string          `json:"pppoker_id"`
	PixKey            string          `json:"pix_key,omitempty"`
	Message           string          `json:"message"`
	Attempts          int             `json:"attempts"`
	Test              bool            `json:"test,omitempty"`
}

// NewNotificationJob copies the fields a notification needs out of an operation and its owner.
func NewNotificationJob(op *Operation, profile *Profile) *NotificationJob {
	job := &NotificationJob{
		OperationID:       op.ID,
		ProviderPaymentID: op.PaymentRef(),
		Type:              op.Type,
		Amount:            op.Amount,
		Status:            op.Status,
	}
	if op.PixKey != nil {
		job.PixKey = *op.PixKey
	}
	if profile != nil {
		job.UserName = profile.Name
		job.PPPokerID = profile.PPPokerID
	}
	return job
}

// TargetResult is the outcome of delivering one job to one channel target.
type TargetResult struct {
	Target   string `json:"target"`
	Success  bool   `json:"success"`
	Attempts int    `json:"attempts"`
	Error    string `json:"error,omitempty"`
}

// DispatchReport is the per-target breakdown of a fan-out.
type DispatchReport struct {
	Delivered bool           `json:"delivered"`
	Attempts  int            `json:"attempts"`
	Targets   []TargetResult `json:"targets"`
}

// AttemptsFor returns the attempts spent on target, or 0 if it was not dispatched.
func (r *DispatchReport) AttemptsFor(target string) int {
	for _, t := range r.Targets {
		if t.Target == target {
			return t.Attempts
		}
	}
	return 0
}

func (r *DispatchReport) Failures() []TargetResult {
	var out []TargetResult
	for _, t := range r.Targets {
		if !t.Success {
			out = append(out, t)
		}
	}
	return out
}
