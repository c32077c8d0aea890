package usecase

import (
	"context"
	"errors"
	"net/url"
	"testing"

	"github.com/DrawzeoBarrela/pix-pocket-brasil/config"
	"github.com/DrawzeoBarrela/pix-pocket-brasil/internal/domain"
	"github.com/DrawzeoBarrela/pix-pocket-brasil/internal/repository/repotest"
	"github.com/DrawzeoBarrela/pix-pocket-brasil/pkg/security"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type callbackFixture struct {
	ops      *repotest.Operations
	profile  *domain.Profile
	provider *mockProvider
	notifier *recordingNotifier
	uc       *CallbackUsecase
}

func newCallbackFixture(t *testing.T, secret, mode string) *callbackFixture {
	t.Helper()
	f := &callbackFixture{
		ops:      repotest.NewOperations(),
		profile:  &domain.Profile{ID: uuid.New(), Name: "Maria Silva", PPPokerID: "8812345"},
		provider: &mockProvider{},
		notifier: &recordingNotifier{},
	}
	logger := zap.NewNop()
	f.uc = NewCallbackUsecase(
		f.ops,
		repotest.NewProfiles(f.profile),
		f.provider,
		security.NewSignatureVerifier(secret, logger),
		NewLedgerUsecase(f.ops, logger),
		f.notifier,
		mode,
		logger,
	)
	return f
}

func bodyDelivery(body string) *WebhookDelivery {
	return &WebhookDelivery{Query: url.Values{}, Body: []byte(body)}
}

func TestWebhookConfirmsAndNotifiesOnce(t *testing.T) {
	f := newCallbackFixture(t, "", config.NotifyModeSync)
	op := f.ops.SeedDeposit(f.profile.ID, "PAY1", "50.00")
	f.provider.On("FetchAuthoritativeStatus", mock.Anything, "PAY1").Return(approved("PAY1"), nil)

	result, err := f.uc.ProcessMercadoPagoWebhook(context.Background(),
		bodyDelivery(`{"type":"payment","data":{"id":"PAY1"}}`))
	require.NoError(t, err)

	assert.Equal(t, StatusConfirmed, result.Status)
	assert.NotEmpty(t, result.TraceID)
	require.NotNil(t, result.Notification)
	assert.True(t, result.Notification.Delivered)
	assert.Equal(t, domain.OperationStatusConfirmed, f.ops.Status(op.ID))

	sent := f.notifier.sent()
	require.Len(t, sent, 1)
	assert.Equal(t, "50.00", sent[0].Amount.StringFixed(2))
	assert.Equal(t, domain.OperationStatusConfirmed, sent[0].Status)
	assert.Equal(t, "Maria Silva", sent[0].UserName)
	assert.Equal(t, "8812345", sent[0].PPPokerID)
	assert.Equal(t, "PAY1", sent[0].ProviderPaymentID)

	// A redelivery of the same event is acknowledged without a second notification.
	result, err = f.uc.ProcessMercadoPagoWebhook(context.Background(),
		&WebhookDelivery{Query: url.Values{"data.id": {"PAY1"}, "type": {"payment"}}})
	require.NoError(t, err)
	assert.Equal(t, StatusAlreadyConfirmed, result.Status)
	assert.Nil(t, result.Notification)
	assert.Len(t, f.notifier.sent(), 1)
	f.provider.AssertNumberOfCalls(t, "FetchAuthoritativeStatus", 2)
}

func TestWebhookNotificationOutlivesRequestContext(t *testing.T) {
	f := newCallbackFixture(t, "", config.NotifyModeSync)
	op := f.ops.SeedDeposit(f.profile.ID, "PAY1", "50.00")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	// The caller hangs up once the provider has answered.
	f.provider.On("FetchAuthoritativeStatus", mock.Anything, "PAY1").
		Run(func(mock.Arguments) { cancel() }).
		Return(approved("PAY1"), nil)

	result, err := f.uc.ProcessMercadoPagoWebhook(ctx, bodyDelivery(`{"data":{"id":"PAY1"}}`))
	require.NoError(t, err)

	assert.Equal(t, StatusConfirmed, result.Status)
	assert.Empty(t, result.NotificationError)
	assert.Equal(t, domain.OperationStatusConfirmed, f.ops.Status(op.ID))

	ctxErrs := f.notifier.contextErrors()
	require.Len(t, ctxErrs, 1)
	assert.NoError(t, ctxErrs[0])
}

func TestWebhookNotApprovedLeavesOperationPending(t *testing.T) {
	f := newCallbackFixture(t, "", config.NotifyModeSync)
	op := f.ops.SeedDeposit(f.profile.ID, "PAY1", "50.00")
	pending := approved("PAY1")
	pending.Status = domain.PaymentStatusPending
	f.provider.On("FetchAuthoritativeStatus", mock.Anything, "PAY1").Return(pending, nil)

	result, err := f.uc.ProcessMercadoPagoWebhook(context.Background(), bodyDelivery(`{"id": "PAY1"}`))
	require.NoError(t, err)

	assert.Equal(t, StatusNotApproved, result.Status)
	assert.Equal(t, domain.OperationStatusPending, f.ops.Status(op.ID))
	assert.Empty(t, f.notifier.sent())
}

func TestWebhookProviderUnavailable(t *testing.T) {
	f := newCallbackFixture(t, "", config.NotifyModeSync)
	op := f.ops.SeedDeposit(f.profile.ID, "PAY1", "50.00")
	f.provider.On("FetchAuthoritativeStatus", mock.Anything, "PAY1").
		Return(nil, errors.New("connection reset"))

	_, err := f.uc.ProcessMercadoPagoWebhook(context.Background(), bodyDelivery(`{"payment_id": "PAY1"}`))
	assert.ErrorIs(t, err, domain.ErrProviderUnavailable)
	assert.Equal(t, domain.OperationStatusPending, f.ops.Status(op.ID))
}

func TestWebhookOperationNotFoundListsRecent(t *testing.T) {
	f := newCallbackFixture(t, "", config.NotifyModeSync)
	for i := 0; i < 7; i++ {
		f.ops.SeedDeposit(f.profile.ID, uuid.NewString(), "10.00")
	}
	f.provider.On("FetchAuthoritativeStatus", mock.Anything, "987").Return(approved("987"), nil)

	result, err := f.uc.ProcessMercadoPagoWebhook(context.Background(), bodyDelivery(`{"data":{"id":987}}`))
	require.NoError(t, err)

	assert.Equal(t, StatusOperationNotFound, result.Status)
	assert.Equal(t, "987", result.PaymentID)
	assert.Len(t, result.RecentOperations, recentOperationsLimit)
	assert.Empty(t, f.notifier.sent())
}

func TestWebhookShortCircuits(t *testing.T) {
	tests := []struct {
		name       string
		delivery   *WebhookDelivery
		wantStatus string
	}{
		{
			name:       "provider test delivery",
			delivery:   &WebhookDelivery{Query: url.Values{"data.id": {"123456"}, "type": {"payment"}}},
			wantStatus: StatusTestSuccess,
		},
		{
			name:       "non payment topic",
			delivery:   &WebhookDelivery{Query: url.Values{"id": {"555"}, "topic": {"merchant_order"}}},
			wantStatus: StatusIgnored,
		},
		{
			name:       "plan event in body",
			delivery:   bodyDelivery(`{"type":"plan","data":{"id":"PLAN1"}}`),
			wantStatus: StatusIgnored,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newCallbackFixture(t, "", config.NotifyModeSync)

			result, err := f.uc.ProcessMercadoPagoWebhook(context.Background(), tt.delivery)
			require.NoError(t, err)
			assert.Equal(t, tt.wantStatus, result.Status)
			f.provider.AssertNotCalled(t, "FetchAuthoritativeStatus", mock.Anything, mock.Anything)
		})
	}
}

func TestWebhookMalformed(t *testing.T) {
	f := newCallbackFixture(t, "", config.NotifyModeSync)

	_, err := f.uc.ProcessMercadoPagoWebhook(context.Background(), bodyDelivery(`{"action":"payment.created"}`))
	assert.ErrorIs(t, err, domain.ErrMalformedEvent)
}

func TestWebhookSignature(t *testing.T) {
	body := `{"type":"payment","data":{"id":"PAY1"}}`
	good := security.ExpectedSignature([]byte(body), "s3cret")

	t.Run("mismatch is rejected before the provider is called", func(t *testing.T) {
		f := newCallbackFixture(t, "s3cret", config.NotifyModeSync)
		op := f.ops.SeedDeposit(f.profile.ID, "PAY1", "50.00")

		delivery := bodyDelivery(body)
		delivery.Signature = "ts=1,v1=deadbeef"
		_, err := f.uc.ProcessMercadoPagoWebhook(context.Background(), delivery)
		assert.ErrorIs(t, err, domain.ErrInvalidSignature)
		assert.Equal(t, domain.OperationStatusPending, f.ops.Status(op.ID))
		f.provider.AssertNotCalled(t, "FetchAuthoritativeStatus", mock.Anything, mock.Anything)
	})

	t.Run("matching token is accepted", func(t *testing.T) {
		f := newCallbackFixture(t, "s3cret", config.NotifyModeSync)
		f.ops.SeedDeposit(f.profile.ID, "PAY1", "50.00")
		f.provider.On("FetchAuthoritativeStatus", mock.Anything, "PAY1").Return(approved("PAY1"), nil)

		delivery := bodyDelivery(body)
		delivery.Signature = "ts=1,v1=" + good
		result, err := f.uc.ProcessMercadoPagoWebhook(context.Background(), delivery)
		require.NoError(t, err)
		assert.Equal(t, StatusConfirmed, result.Status)
	})
}

func TestWebhookNotificationFailureKeepsConfirmation(t *testing.T) {
	f := newCallbackFixture(t, "", config.NotifyModeSync)
	f.notifier.err = domain.ErrNotificationFailed
	op := f.ops.SeedDeposit(f.profile.ID, "PAY1", "50.00")
	f.provider.On("FetchAuthoritativeStatus", mock.Anything, "PAY1").Return(approved("PAY1"), nil)

	result, err := f.uc.ProcessMercadoPagoWebhook(context.Background(), bodyDelivery(`{"data":{"id":"PAY1"}}`))
	require.NoError(t, err)

	assert.Equal(t, StatusConfirmed, result.Status)
	assert.NotEmpty(t, result.NotificationError)
	assert.False(t, result.Notification.Delivered)
	assert.Equal(t, domain.OperationStatusConfirmed, f.ops.Status(op.ID))
}

func TestWebhookAsyncNotification(t *testing.T) {
	f := newCallbackFixture(t, "", config.NotifyModeAsync)
	f.ops.SeedDeposit(f.profile.ID, "PAY1", "50.00")
	f.provider.On("FetchAuthoritativeStatus", mock.Anything, "PAY1").Return(approved("PAY1"), nil)

	ctx, cancel := context.WithCancel(context.Background())
	result, err := f.uc.ProcessMercadoPagoWebhook(ctx, bodyDelivery(`{"data":{"id":"PAY1"}}`))
	cancel()
	require.NoError(t, err)
	assert.Equal(t, StatusConfirmed, result.Status)
	assert.Nil(t, result.Notification)

	f.uc.Wait()
	assert.Len(t, f.notifier.sent(), 1)
}
