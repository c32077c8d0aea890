// internal/usecase/manual_uc.go
package usecase

import (
	"context"
	"errors"
	"fmt"

	"github.com/DrawzeoBarrela/pix-pocket-brasil/internal/domain"
	"github.com/DrawzeoBarrela/pix-pocket-brasil/internal/provider"
	"github.com/DrawzeoBarrela/pix-pocket-brasil/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// ManualUsecase backs the operator endpoints used when the webhook path
// did not reconcile a payment on its own.
type ManualUsecase struct {
	operationRepo   repository.OperationRepository
	profileRepo     repository.ProfileRepository
	paymentProvider provider.PaymentProvider
	ledger          *LedgerUsecase
	notifier        Notifier
	logger          *zap.Logger
}

func NewManualUsecase(
	operationRepo repository.OperationRepository,
	profileRepo repository.ProfileRepository,
	paymentProvider provider.PaymentProvider,
	ledger *LedgerUsecase,
	notifier Notifier,
	logger *zap.Logger,
) *ManualUsecase {
	return &ManualUsecase{
		operationRepo:   operationRepo,
		profileRepo:     profileRepo,
		paymentProvider: paymentProvider,
		ledger:          ledger,
		notifier:        notifier,
		logger:          logger,
	}
}

// Recheck reports the provider's view of a payment next to the matching
// operation without writing anything.
func (uc *ManualUsecase) Recheck(ctx context.Context, paymentID string) (*Result, error) {
	status, err := lookupStatus(ctx, uc.paymentProvider, paymentID)
	if err != nil {
		return errorResult(paymentID, err), err
	}

	result := &Result{
		Status:         StatusFound,
		PaymentID:      paymentID,
		ProviderStatus: status,
	}

	op, err := uc.operationRepo.FindByPaymentRef(ctx, paymentID, domain.OperationTypeDeposit)
	switch {
	case err == nil:
		result.Operation = op
	case errors.Is(err, domain.ErrOperationNotFound):
		result.Message = "no operation carries this payment id"
	default:
		return errorResult(paymentID, err), fmt.Errorf("failed to find operation: %w", err)
	}

	uc.logger.Info("payment rechecked",
		zap.String("payment_id", paymentID),
		zap.String("status", string(status.Status)),
		zap.Bool("operation_found", result.Operation != nil))

	return result, nil
}

// ManualConfirm confirms a pending deposit on the operator's behalf. The
// provider must still report the payment as approved.
func (uc *ManualUsecase) ManualConfirm(ctx context.Context, paymentID, operatorID string) (*Result, error) {
	op, err := uc.operationRepo.FindByPaymentRef(ctx, paymentID, domain.OperationTypeDeposit)
	if err != nil {
		if errors.Is(err, domain.ErrOperationNotFound) {
			return &Result{Status: StatusOperationNotFound, PaymentID: paymentID}, nil
		}
		return errorResult(paymentID, err), fmt.Errorf("failed to find operation: %w", err)
	}

	switch op.Status {
	case domain.OperationStatusConfirmed:
		return &Result{Status: StatusAlreadyConfirmed, PaymentID: paymentID, Operation: op}, nil
	case domain.OperationStatusCancelled:
		return &Result{Status: StatusNotEligible, PaymentID: paymentID, Operation: op}, nil
	}

	status, err := lookupStatus(ctx, uc.paymentProvider, paymentID)
	if err != nil {
		return errorResult(paymentID, err), err
	}
	if !status.IsApproved() {
		uc.logger.Warn("manual confirm refused, payment not approved",
			zap.String("payment_id", paymentID),
			zap.String("operator_id", operatorID),
			zap.String("status", string(status.Status)))
		return &Result{
			Status:         StatusNotApproved,
			PaymentID:      paymentID,
			ProviderStatus: status,
			Operation:      op,
		}, nil
	}

	outcome, confirmed, err := uc.ledger.Confirm(ctx, paymentID, operatorID)
	if err != nil {
		return errorResult(paymentID, err), err
	}

	result := &Result{
		Status:         string(outcome),
		PaymentID:      paymentID,
		ProviderStatus: status,
		Operation:      confirmed,
	}
	if outcome != domain.OutcomeConfirmed {
		return result, nil
	}

	uc.logger.Info("operation confirmed manually",
		zap.String("payment_id", paymentID),
		zap.String("operator_id", operatorID))

	report, err := uc.notifier.Notify(ctx, buildJob(ctx, uc.profileRepo, confirmed, uc.logger))
	result.Notification = report
	if err != nil {
		result.Status = StatusConfirmedNotificationFailed
		result.NotificationError = err.Error()
	}
	return result, nil
}

// ResendNotification announces the operation's current state again. It never
// touches the ledger.
func (uc *ManualUsecase) ResendNotification(ctx context.Context, paymentID string) (*Result, error) {
	op, err := uc.operationRepo.FindByPaymentRef(ctx, paymentID, domain.OperationTypeDeposit)
	if err != nil {
		if errors.Is(err, domain.ErrOperationNotFound) {
			return &Result{Status: StatusOperationNotFound, PaymentID: paymentID}, nil
		}
		return errorResult(paymentID, err), fmt.Errorf("failed to find operation: %w", err)
	}

	report, err := uc.notifier.Notify(ctx, buildJob(ctx, uc.profileRepo, op, uc.logger))
	result := &Result{
		Status:       StatusNotificationResent,
		PaymentID:    paymentID,
		Operation:    op,
		Notification: report,
	}
	if err != nil {
		result.Status = StatusNotificationFailed
		result.NotificationError = err.Error()
	}
	return result, nil
}

// Debug runs the provider probes for a payment id.
func (uc *ManualUsecase) Debug(ctx context.Context, paymentID string) (*provider.ProbeReport, error) {
	report, err := uc.paymentProvider.Probe(ctx, paymentID)
	if err != nil {
		return nil, fmt.Errorf("failed to probe provider: %w", err)
	}
	return report, nil
}

// TestNotification pushes a marked test message through every target.
func (uc *ManualUsecase) TestNotification(ctx context.Context, operatorID string) (*Result, error) {
	job := &domain.NotificationJob{
		Type:     domain.OperationTypeDeposit,
		Status:   domain.OperationStatusPending,
		Amount:   decimal.NewFromInt(1),
		UserName: "Teste Operador",
		Test:     true,
	}

	uc.logger.Info("sending test notification",
		zap.String("operator_id", operatorID),
		zap.Strings("targets", uc.notifier.Targets()))

	report, err := uc.notifier.Notify(ctx, job)
	result := &Result{Status: StatusTestSent, Notification: report}
	if err != nil {
		result.Status = StatusNotificationFailed
		result.NotificationError = err.Error()
	}
	return result, nil
}

// CancelOperation cancels a pending operation.
func (uc *ManualUsecase) CancelOperation(ctx context.Context, operationID uuid.UUID, operatorID string) (*Result, error) {
	op, err := uc.ledger.Cancel(ctx, operationID, operatorID)
	switch {
	case err == nil:
		return &Result{Status: StatusCancelled, PaymentID: op.PaymentRef(), Operation: op}, nil
	case errors.Is(err, domain.ErrOperationNotFound):
		return &Result{Status: StatusOperationNotFound}, nil
	case errors.Is(err, domain.ErrNotEligible):
		return &Result{Status: StatusNotEligible, Operation: op, Message: err.Error()}, nil
	default:
		return &Result{Status: StatusError, Message: err.Error()}, err
	}
}

func errorResult(paymentID string, err error) *Result {
	return &Result{Status: StatusError, PaymentID: paymentID, Message: err.Error()}
}
