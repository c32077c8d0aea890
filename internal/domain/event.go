// internal/domain/event.go
package domain

type EventSource string

const (
	EventSourceQuery EventSource = "query"
	EventSourceBody  EventSource = "body"
)

// EventKindPayment is the only kind the pipeline acts on.
const EventKindPayment = "payment"

// DeliveryEvent is the canonical shape of an inbound provider webhook.
type DeliveryEvent struct {
	Kind              string      `json:"type"`
	ProviderPaymentID string      `json:"payment_id"`
	Source            EventSource `json:"source"`
	Signature         string      `json:"-"`
	IsTest            bool        `json:"-"`
}

func (e *DeliveryEvent) IsPayment() bool {
	return e.Kind == EventKindPayment
}

// PaymentStatus is the authoritative status reported by the provider lookup.
type PaymentStatus string

const (
	PaymentStatusApproved PaymentStatus = "approved"
	PaymentStatusPending  PaymentStatus = "pending"
	PaymentStatusRejected PaymentStatus = "rejected"
	PaymentStatusNotFound PaymentStatus = "not_found"
)

// ConfirmOutcome is the terminal result of a ledger confirm attempt.
type ConfirmOutcome string

const (
	OutcomeConfirmed         ConfirmOutcome = "confirmed"
	OutcomeAlreadyConfirmed  ConfirmOutcome = "already_confirmed"
	OutcomeOperationNotFound ConfirmOutcome = "operation_not_found"
	OutcomeNotEligible       ConfirmOutcome = "not_eligible"
)
