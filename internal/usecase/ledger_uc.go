// internal/usecase/ledger_uc.go
package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/DrawzeoBarrela/pix-pocket-brasil/internal/domain"
	"github.com/DrawzeoBarrela/pix-pocket-brasil/internal/repository"
	"github.com/DrawzeoBarrela/pix-pocket-brasil/pkg/metrics"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// LedgerUsecase owns the only status transitions an operation can make.
// Every transition is a conditional update so concurrent callers cannot both win.
type LedgerUsecase struct {
	operationRepo repository.OperationRepository
	logger        *zap.Logger
}

func NewLedgerUsecase(operationRepo repository.OperationRepository, logger *zap.Logger) *LedgerUsecase {
	return &LedgerUsecase{
		operationRepo: operationRepo,
		logger:        logger,
	}
}

// Confirm moves the deposit carrying paymentID from pending to confirmed.
// The returned operation reflects the state after the attempt.
func (uc *LedgerUsecase) Confirm(ctx context.Context, paymentID, confirmedBy string) (domain.ConfirmOutcome, *domain.Operation, error) {
	outcome, op, err := uc.confirm(ctx, paymentID, confirmedBy)
	if err == nil {
		metrics.LedgerTransitions.WithLabelValues(string(outcome), confirmSource(confirmedBy)).Inc()
	}
	return outcome, op, err
}

func (uc *LedgerUsecase) confirm(ctx context.Context, paymentID, confirmedBy string) (domain.ConfirmOutcome, *domain.Operation, error) {
	op, err := uc.operationRepo.FindByPaymentRef(ctx, paymentID, domain.OperationTypeDeposit)
	if err != nil {
		if errors.Is(err, domain.ErrOperationNotFound) {
			uc.logger.Warn("no deposit operation for payment",
				zap.String("payment_id", paymentID))
			return domain.OutcomeOperationNotFound, nil, nil
		}
		return "", nil, fmt.Errorf("failed to find operation: %w", err)
	}

	switch op.Status {
	case domain.OperationStatusConfirmed:
		uc.logger.Info("operation already confirmed",
			zap.String("operation_id", op.ID.String()),
			zap.String("payment_id", paymentID))
		return domain.OutcomeAlreadyConfirmed, op, nil
	case domain.OperationStatusCancelled:
		uc.logger.Warn("approved payment for cancelled operation",
			zap.String("operation_id", op.ID.String()),
			zap.String("payment_id", paymentID))
		return domain.OutcomeNotEligible, op, nil
	}

	won, err := uc.operationRepo.ConfirmPending(ctx, op.ID, confirmedBy)
	if err != nil {
		return "", nil, fmt.Errorf("failed to confirm operation: %w", err)
	}
	if !won {
		uc.logger.Info("lost confirm race, operation confirmed concurrently",
			zap.String("operation_id", op.ID.String()),
			zap.String("payment_id", paymentID))
		return domain.OutcomeAlreadyConfirmed, uc.reload(ctx, op), nil
	}

	uc.logger.Info("operation confirmed",
		zap.String("operation_id", op.ID.String()),
		zap.String("payment_id", paymentID),
		zap.String("confirmed_by", confirmedBy))

	confirmed := uc.reload(ctx, op)
	if confirmed.Status != domain.OperationStatusConfirmed {
		now := time.Now().UTC()
		confirmed.Status = domain.OperationStatusConfirmed
		confirmed.ConfirmedAt = &now
		confirmed.ConfirmedBy = &confirmedBy
	}
	return domain.OutcomeConfirmed, confirmed, nil
}

// Cancel moves a pending operation to cancelled.
func (uc *LedgerUsecase) Cancel(ctx context.Context, operationID uuid.UUID, cancelledBy string) (*domain.Operation, error) {
	op, err := uc.operationRepo.GetByID(ctx, operationID)
	if err != nil {
		return nil, err
	}
	if !op.IsPending() {
		return op, fmt.Errorf("%w: operation is %s", domain.ErrNotEligible, op.Status)
	}

	won, err := uc.operationRepo.CancelPending(ctx, operationID, cancelledBy)
	if err != nil {
		return nil, fmt.Errorf("failed to cancel operation: %w", err)
	}
	if !won {
		op = uc.reload(ctx, op)
		return op, fmt.Errorf("%w: operation is %s", domain.ErrNotEligible, op.Status)
	}

	metrics.LedgerTransitions.WithLabelValues("cancelled", confirmSource(cancelledBy)).Inc()
	uc.logger.Info("operation cancelled",
		zap.String("operation_id", operationID.String()),
		zap.String("cancelled_by", cancelledBy))

	return uc.reload(ctx, op), nil
}

// reload re-reads op, falling back to the stale copy when the read fails.
func (uc *LedgerUsecase) reload(ctx context.Context, op *domain.Operation) *domain.Operation {
	fresh, err := uc.operationRepo.GetByID(ctx, op.ID)
	if err != nil {
		uc.logger.Warn("failed to reload operation",
			zap.String("operation_id", op.ID.String()),
			zap.Error(err))
		return op
	}
	return fresh
}

func confirmSource(by string) string {
	if by == domain.ConfirmedByWebhook {
		return "webhook"
	}
	return "manual"
}
