// Package repotest provides in-memory repositories for tests.
package repotest

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/DrawzeoBarrela/pix-pocket-brasil/internal/domain"
	"github.com/DrawzeoBarrela/pix-pocket-brasil/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	_ repository.OperationRepository = (*Operations)(nil)
	_ repository.ProfileRepository   = (*Profiles)(nil)
)

// Operations is an in-memory OperationRepository with the same conditional
// update semantics as the SQL implementation.
type Operations struct {
	mu  sync.Mutex
	ops map[uuid.UUID]*domain.Operation
}

func NewOperations() *Operations {
	return &Operations{ops: map[uuid.UUID]*domain.Operation{}}
}

func (m *Operations) copyOf(op *domain.Operation) *domain.Operation {
	c := *op
	return &c
}

func (m *Operations) Create(ctx context.Context, op *domain.Operation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now().UTC()
	op.CreatedAt, op.UpdatedAt = now, now
	m.ops[op.ID] = m.copyOf(op)
	return nil
}

func (m *Operations) GetByID(ctx context.Context, id uuid.UUID) (*domain.Operation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	op, ok := m.ops[id]
	if !ok {
		return nil, domain.ErrOperationNotFound
	}
	return m.copyOf(op), nil
}

func (m *Operations) FindByPaymentRef(ctx context.Context, paymentRef string, opType domain.OperationType) (*domain.Operation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, op := range m.ops {
		if op.PaymentRef() == paymentRef && op.Type == opType {
			return m.copyOf(op), nil
		}
	}
	return nil, domain.ErrOperationNotFound
}

func (m *Operations) AttachPaymentRef(ctx context.Context, id uuid.UUID, paymentRef string, qrCode *string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, op := range m.ops {
		if op.PaymentRef() == paymentRef {
			return domain.ErrDuplicatePaymentRef
		}
	}
	op, ok := m.ops[id]
	if !ok || op.MercadoPagoPaymentID != nil {
		return domain.ErrDuplicatePaymentRef
	}
	ref := paymentRef
	op.MercadoPagoPaymentID = &ref
	if qrCode != nil {
		op.PixQRCode = qrCode
	}
	return nil
}

func (m *Operations) ConfirmPending(ctx context.Context, id uuid.UUID, confirmedBy string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	op, ok := m.ops[id]
	if !ok || op.Status != domain.OperationStatusPending {
		return false, nil
	}
	now := time.Now().UTC()
	by := confirmedBy
	op.Status = domain.OperationStatusConfirmed
	op.ConfirmedAt = &now
	op.ConfirmedBy = &by
	op.UpdatedAt = now
	return true, nil
}

func (m *Operations) CancelPending(ctx context.Context, id uuid.UUID, cancelledBy string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	op, ok := m.ops[id]
	if !ok || op.Status != domain.OperationStatusPending {
		return false, nil
	}
	op.Status = domain.OperationStatusCancelled
	op.UpdatedAt = time.Now().UTC()
	return true, nil
}

func (m *Operations) ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]*domain.Operation, error) {
	return m.filter(func(op *domain.Operation) bool { return op.UserID == userID }, limit), nil
}

func (m *Operations) ListRecent(ctx context.Context, opType domain.OperationType, limit int) ([]*domain.Operation, error) {
	return m.filter(func(op *domain.Operation) bool { return op.Type == opType }, limit), nil
}

func (m *Operations) filter(keep func(*domain.Operation) bool, limit int) []*domain.Operation {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*domain.Operation
	for _, op := range m.ops {
		if keep(op) {
			out = append(out, m.copyOf(op))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

// SeedDeposit stores a pending deposit already linked to paymentID.
func (m *Operations) SeedDeposit(userID uuid.UUID, paymentID, amount string) *domain.Operation {
	ref := paymentID
	op := &domain.Operation{
		ID:                   uuid.New(),
		UserID:               userID,
		Type:                 domain.OperationTypeDeposit,
		Amount:               decimal.RequireFromString(amount),
		Status:               domain.OperationStatusPending,
		MercadoPagoPaymentID: &ref,
	}
	_ = m.Create(context.Background(), op)
	return op
}

func (m *Operations) Status(id uuid.UUID) domain.OperationStatus {
	op, _ := m.GetByID(context.Background(), id)
	return op.Status
}

type Profiles struct {
	profiles map[uuid.UUID]*domain.Profile
}

func NewProfiles(profiles ...*domain.Profile) *Profiles {
	m := &Profiles{profiles: map[uuid.UUID]*domain.Profile{}}
	for _, p := range profiles {
		m.profiles[p.ID] = p
	}
	return m
}

func (m *Profiles) GetByID(ctx context.Context, id uuid.UUID) (*domain.Profile, error) {
	p, ok := m.profiles[id]
	if !ok {
		return nil, domain.ErrProfileNotFound
	}
	return p, nil
}
