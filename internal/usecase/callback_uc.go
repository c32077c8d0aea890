// internal/usecase/callback_uc.go
package usecase

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/DrawzeoBarrela/pix-pocket-brasil/config"
	"github.com/DrawzeoBarrela/pix-pocket-brasil/internal/domain"
	"github.com/DrawzeoBarrela/pix-pocket-brasil/internal/provider"
	"github.com/DrawzeoBarrela/pix-pocket-brasil/internal/provider/mercadopago"
	"github.com/DrawzeoBarrela/pix-pocket-brasil/internal/repository"
	"github.com/DrawzeoBarrela/pix-pocket-brasil/pkg/id"
	"github.com/DrawzeoBarrela/pix-pocket-brasil/pkg/metrics"
	"github.com/DrawzeoBarrela/pix-pocket-brasil/pkg/security"

	"go.uber.org/zap"
)

const recentOperationsLimit = 5

// WebhookDelivery is one inbound provider delivery as received over HTTP.
type WebhookDelivery struct {
	Query     url.Values
	Body      []byte
	Signature string
}

type CallbackUsecase struct {
	operationRepo   repository.OperationRepository
	profileRepo     repository.ProfileRepository
	paymentProvider provider.PaymentProvider
	verifier        *security.SignatureVerifier
	ledger          *LedgerUsecase
	notifications   *notificationRunner
	notifyMode      string
	logger          *zap.Logger
}

func NewCallbackUsecase(
	operationRepo repository.OperationRepository,
	profileRepo repository.ProfileRepository,
	paymentProvider provider.PaymentProvider,
	verifier *security.SignatureVerifier,
	ledger *LedgerUsecase,
	notifier Notifier,
	notifyMode string,
	logger *zap.Logger,
) *CallbackUsecase {
	return &CallbackUsecase{
		operationRepo:   operationRepo,
		profileRepo:     profileRepo,
		paymentProvider: paymentProvider,
		verifier:        verifier,
		ledger:          ledger,
		notifications:   newNotificationRunner(notifier, logger),
		notifyMode:      notifyMode,
		logger:          logger,
	}
}

// ProcessMercadoPagoWebhook runs one delivery through the reconciliation
// pipeline. Terminal business outcomes come back as a Result; the error is
// reserved for deliveries the provider should retry or that were rejected.
func (uc *CallbackUsecase) ProcessMercadoPagoWebhook(ctx context.Context, delivery *WebhookDelivery) (*Result, error) {
	traceID := id.Generate("wh")
	result, err := uc.process(ctx, delivery, traceID)

	outcome := StatusError
	if err == nil {
		outcome = result.Status
		result.TraceID = traceID
	}
	metrics.WebhookDeliveries.WithLabelValues(outcome).Inc()

	return result, err
}

func (uc *CallbackUsecase) process(ctx context.Context, delivery *WebhookDelivery, traceID string) (*Result, error) {
	event, err := mercadopago.ParseNotification(delivery.Query, delivery.Body)
	if err != nil {
		uc.logger.Warn("rejected malformed webhook",
			zap.String("trace_id", traceID),
			zap.Int("body_size", len(delivery.Body)),
			zap.Error(err))
		return nil, err
	}
	event.Signature = delivery.Signature

	logger := uc.logger.With(
		zap.String("trace_id", traceID),
		zap.String("payment_id", event.ProviderPaymentID),
		zap.String("source", string(event.Source)))

	logger.Info("webhook received", zap.String("type", event.Kind))

	if !event.IsPayment() {
		logger.Info("ignoring non-payment webhook", zap.String("type", event.Kind))
		return &Result{Status: StatusIgnored, PaymentID: event.ProviderPaymentID}, nil
	}

	if event.IsTest {
		logger.Info("test webhook acknowledged")
		return &Result{
			Status:    StatusTestSuccess,
			PaymentID: event.ProviderPaymentID,
			Message:   "test webhook received",
		}, nil
	}

	if err := uc.verifier.Verify(event.Signature, mercadopago.SignedContent(delivery.Body, event)); err != nil {
		logger.Warn("webhook signature rejected", zap.Error(err))
		return nil, err
	}

	status, err := lookupStatus(ctx, uc.paymentProvider, event.ProviderPaymentID)
	if err != nil {
		logger.Error("authoritative lookup failed", zap.Error(err))
		return nil, err
	}

	if !status.IsApproved() {
		logger.Info("payment not approved yet", zap.String("status", string(status.Status)))
		return &Result{
			Status:         StatusNotApproved,
			PaymentID:      event.ProviderPaymentID,
			ProviderStatus: status,
		}, nil
	}

	outcome, op, err := uc.ledger.Confirm(ctx, event.ProviderPaymentID, domain.ConfirmedByWebhook)
	if err != nil {
		logger.Error("ledger confirm failed", zap.Error(err))
		return nil, err
	}

	result := &Result{
		Status:         string(outcome),
		PaymentID:      event.ProviderPaymentID,
		ProviderStatus: status,
		Operation:      op,
	}

	switch outcome {
	case domain.OutcomeOperationNotFound:
		recent, err := uc.operationRepo.ListRecent(ctx, domain.OperationTypeDeposit, recentOperationsLimit)
		if err != nil {
			logger.Warn("failed to list recent operations", zap.Error(err))
		}
		result.RecentOperations = toRecent(recent)
		return result, nil
	case domain.OutcomeConfirmed:
		uc.notifyConfirmed(ctx, logger, op, result)
	}

	return result, nil
}

// notifyConfirmed announces a fresh confirmation. Delivery problems are
// reported in the result and never undo the ledger write.
func (uc *CallbackUsecase) notifyConfirmed(ctx context.Context, logger *zap.Logger, op *domain.Operation, result *Result) {
	job := buildJob(ctx, uc.profileRepo, op, logger)

	if uc.notifyMode == config.NotifyModeAsync {
		uc.notifications.detach(ctx, job)
		result.Message = "notification dispatched in background"
		return
	}

	report, err := uc.notifications.run(ctx, job)
	result.Notification = report
	if err != nil {
		logger.Error("confirmation notification failed", zap.Error(err))
		result.NotificationError = err.Error()
	}
}

// Wait blocks until detached notifications finish.
func (uc *CallbackUsecase) Wait() {
	uc.notifications.wait()
}

func buildJob(ctx context.Context, profileRepo repository.ProfileRepository, op *domain.Operation, logger *zap.Logger) *domain.NotificationJob {
	profile, err := profileRepo.GetByID(ctx, op.UserID)
	if err != nil {
		logger.Warn("profile lookup failed, notifying without user details",
			zap.String("user_id", op.UserID.String()),
			zap.Error(err))
		profile = nil
	}
	return domain.NewNotificationJob(op, profile)
}

func lookupStatus(ctx context.Context, p provider.PaymentProvider, paymentID string) (*provider.PaymentStatusResult, error) {
	start := time.Now()
	status, err := p.FetchAuthoritativeStatus(ctx, paymentID)

	label := StatusError
	if err == nil {
		label = string(status.Status)
	}
	metrics.ProviderLookupDuration.WithLabelValues(label).Observe(time.Since(start).Seconds())

	if err != nil {
		if errors.Is(err, domain.ErrProviderUnavailable) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", domain.ErrProviderUnavailable, err)
	}
	return status, nil
}
