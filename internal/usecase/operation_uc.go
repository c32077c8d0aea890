// internal/usecase/operation_uc.go
package usecase

import (
	"context"
	"fmt"
	"strings"

	"github.com/DrawzeoBarrela/pix-pocket-brasil/internal/domain"
	"github.com/DrawzeoBarrela/pix-pocket-brasil/internal/provider"
	"github.com/DrawzeoBarrela/pix-pocket-brasil/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	defaultListLimit = 20
	maxListLimit     = 100
	systemActor      = "system"
)

type OperationUsecase struct {
	operationRepo   repository.OperationRepository
	profileRepo     repository.ProfileRepository
	paymentProvider provider.PaymentProvider
	notifications   *notificationRunner
	logger          *zap.Logger
}

func NewOperationUsecase(
	operationRepo repository.OperationRepository,
	profileRepo repository.ProfileRepository,
	paymentProvider provider.PaymentProvider,
	notifier Notifier,
	logger *zap.Logger,
) *OperationUsecase {
	return &OperationUsecase{
		operationRepo:   operationRepo,
		profileRepo:     profileRepo,
		paymentProvider: paymentProvider,
		notifications:   newNotificationRunner(notifier, logger),
		logger:          logger,
	}
}

// DepositResult is what the user needs to pay a freshly created deposit.
type DepositResult struct {
	OperationID  uuid.UUID       `json:"operation_id"`
	PaymentID    string          `json:"payment_id"`
	Amount       decimal.Decimal `json:"amount"`
	Status       string          `json:"status"`
	QRCodeBase64 string          `json:"qr_code"`
	QRCodeText   string          `json:"qr_code_text"`
}

// CreateDeposit records a pending deposit and opens the PIX charge for it.
// If the charge cannot be created the operation is cancelled again.
func (uc *OperationUsecase) CreateDeposit(ctx context.Context, req *domain.DepositRequest) (*DepositResult, error) {
	if err := domain.ValidateAmount(req.Amount); err != nil {
		return nil, err
	}

	profile, err := uc.profileRepo.GetByID(ctx, req.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to load profile: %w", err)
	}

	op := &domain.Operation{
		ID:     uuid.New(),
		UserID: req.UserID,
		Type:   domain.OperationTypeDeposit,
		Amount: req.Amount.Round(2),
		Status: domain.OperationStatusPending,
	}
	if err := uc.operationRepo.Create(ctx, op); err != nil {
		return nil, fmt.Errorf("failed to create operation: %w", err)
	}

	uc.logger.Info("deposit operation created",
		zap.String("operation_id", op.ID.String()),
		zap.String("user_id", req.UserID.String()),
		zap.String("amount", op.Amount.StringFixed(2)))

	pix, err := uc.paymentProvider.CreatePixPayment(ctx, &provider.PixPaymentRequest{
		OperationID: op.ID.String(),
		Amount:      op.Amount,
		Description: req.Description,
	})
	if err != nil {
		uc.logger.Error("failed to create pix payment, cancelling operation",
			zap.String("operation_id", op.ID.String()),
			zap.Error(err))
		uc.cancelUnreferenced(ctx, op.ID)
		return nil, fmt.Errorf("failed to create pix payment: %w", err)
	}

	qrCode := pix.QRCodeBase64
	if err := uc.operationRepo.AttachPaymentRef(ctx, op.ID, pix.PaymentID, &qrCode); err != nil {
		// The charge exists at the provider; operators need the id to reconcile it by hand.
		uc.logger.Error("failed to attach payment, cancelling operation",
			zap.String("operation_id", op.ID.String()),
			zap.String("payment_id", pix.PaymentID),
			zap.Error(err))
		uc.cancelUnreferenced(ctx, op.ID)
		return nil, fmt.Errorf("failed to attach payment %s: %w", pix.PaymentID, err)
	}
	op.MercadoPagoPaymentID = &pix.PaymentID
	op.PixQRCode = &qrCode

	uc.notifications.detach(ctx, domain.NewNotificationJob(op, profile))

	return &DepositResult{
		OperationID:  op.ID,
		PaymentID:    pix.PaymentID,
		Amount:       op.Amount,
		Status:       string(op.Status),
		QRCodeBase64: pix.QRCodeBase64,
		QRCodeText:   pix.QRCodeText,
	}, nil
}

// cancelUnreferenced closes a deposit that never got a payment reference.
func (uc *OperationUsecase) cancelUnreferenced(ctx context.Context, opID uuid.UUID) {
	if _, err := uc.operationRepo.CancelPending(ctx, opID, systemActor); err != nil {
		uc.logger.Error("failed to cancel unreferenced operation",
			zap.String("operation_id", opID.String()),
			zap.Error(err))
	}
}

// CreateWithdrawal records a pending payout request and alerts the operators.
func (uc *OperationUsecase) CreateWithdrawal(ctx context.Context, req *domain.WithdrawalRequest) (*domain.Operation, error) {
	if err := domain.ValidateAmount(req.Amount); err != nil {
		return nil, err
	}
	pixKey := strings.TrimSpace(req.PixKey)
	if pixKey == "" {
		return nil, domain.ErrInvalidPixKey
	}

	profile, err := uc.profileRepo.GetByID(ctx, req.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to load profile: %w", err)
	}

	op := &domain.Operation{
		ID:     uuid.New(),
		UserID: req.UserID,
		Type:   domain.OperationTypeWithdrawal,
		Amount: req.Amount.Round(2),
		Status: domain.OperationStatusPending,
		PixKey: &pixKey,
	}
	if notes := strings.TrimSpace(req.Notes); notes != "" {
		op.Notes = &notes
	}
	if err := uc.operationRepo.Create(ctx, op); err != nil {
		return nil, fmt.Errorf("failed to create operation: %w", err)
	}

	uc.logger.Info("withdrawal operation created",
		zap.String("operation_id", op.ID.String()),
		zap.String("user_id", req.UserID.String()),
		zap.String("amount", op.Amount.StringFixed(2)))

	uc.notifications.detach(ctx, domain.NewNotificationJob(op, profile))

	return op, nil
}

// ListOperations returns the user's operations, most recent first.
func (uc *OperationUsecase) ListOperations(ctx context.Context, userID uuid.UUID, limit int) ([]*domain.Operation, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}

	ops, err := uc.operationRepo.ListByUser(ctx, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list operations: %w", err)
	}
	return ops, nil
}

// Wait blocks until detached notifications finish.
func (uc *OperationUsecase) Wait() {
	uc.notifications.wait()
}
