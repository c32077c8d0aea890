package usecase

import (
	"context"
	"sync"

	"github.com/DrawzeoBarrela/pix-pocket-brasil/internal/domain"
	"github.com/DrawzeoBarrela/pix-pocket-brasil/internal/provider"

	"github.com/stretchr/testify/mock"
)

type mockProvider struct {
	mock.Mock
}

func (m *mockProvider) GetName() string { return "mock" }

func (m *mockProvider) FetchAuthoritativeStatus(ctx context.Context, paymentID string) (*provider.PaymentStatusResult, error) {
	args := m.Called(ctx, paymentID)
	res, _ := args.Get(0).(*provider.PaymentStatusResult)
	return res, args.Error(1)
}

func (m *mockProvider) CreatePixPayment(ctx context.Context, req *provider.PixPaymentRequest) (*provider.PixPaymentResponse, error) {
	args := m.Called(ctx, req)
	res, _ := args.Get(0).(*provider.PixPaymentResponse)
	return res, args.Error(1)
}

func (m *mockProvider) Probe(ctx context.Context, paymentID string) (*provider.ProbeReport, error) {
	args := m.Called(ctx, paymentID)
	res, _ := args.Get(0).(*provider.ProbeReport)
	return res, args.Error(1)
}

func approved(paymentID string) *provider.PaymentStatusResult {
	return &provider.PaymentStatusResult{
		PaymentID:      paymentID,
		Status:         domain.PaymentStatusApproved,
		ProviderStatus: "approved",
	}
}

// recordingNotifier captures jobs and answers with a fixed error.
type recordingNotifier struct {
	mu   sync.Mutex
	jobs    []domain.NotificationJob
	ctxErrs []error
	err     error
}

func (n *recordingNotifier) Notify(ctx context.Context, job *domain.NotificationJob) (*domain.DispatchReport, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.jobs = append(n.jobs, *job)
	n.ctxErrs = append(n.ctxErrs, ctx.Err())

	report := &domain.DispatchReport{
		Delivered: n.err == nil,
		Attempts:  1,
		Targets:   []domain.TargetResult{{Target: "telegram", Success: n.err == nil, Attempts: 1}},
	}
	if n.err != nil {
		report.Targets[0].Error = n.err.Error()
		return report, n.err
	}
	return report, nil
}

func (n *recordingNotifier) Targets() []string { return []string{"telegram"} }

func (n *recordingNotifier) sent() []domain.NotificationJob {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]domain.NotificationJob(nil), n.jobs...)
}

func (n *recordingNotifier) contextErrors() []error {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]error(nil), n.ctxErrs...)
}
