// internal/repository/operation_repo.go
package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/DrawzeoBarrela/pix-pocket-brasil/internal/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const uniqueViolation = "23505"

type OperationRepository interface {
	Create(ctx context.Context, op *domain.Operation) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Operation, error)
	FindByPaymentRef(ctx context.Context, paymentRef string, opType domain.OperationType) (*domain.Operation, error)
	AttachPaymentRef(ctx context.Context, id uuid.UUID, paymentRef string, qrCode *string) error
	// ConfirmPending is the pending -> confirmed compare-and-swap. It reports
	// whether this call performed the transition.
	ConfirmPending(ctx context.Context, id uuid.UUID, confirmedBy string) (bool, error)
	CancelPending(ctx context.Context, id uuid.UUID, cancelledBy string) (bool, error)
	ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]*domain.Operation, error)
	ListRecent(ctx context.Context, opType domain.OperationType, limit int) ([]*domain.Operation, error)
}

type operationRepo struct {
	db *pgxpool.Pool
}

func NewOperationRepository(db *pgxpool.Pool) OperationRepository {
	return &operationRepo{db: db}
}

const operationColumns = `
	id, user_id, type, amount, status, mercado_pago_payment_id, pix_qr_code,
	pix_key, notes, confirmed_at, confirmed_by, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOperation(row rowScanner) (*domain.Operation, error) {
	var op domain.Operation
	err := row.Scan(
		&op.ID,
		&op.UserID,
		&op.Type,
		&op.Amount,
		&op.Status,
		&op.MercadoPagoPaymentID,
		&op.PixQRCode,
		&op.PixKey,
		&op.Notes,
		&op.ConfirmedAt,
		&op.ConfirmedBy,
		&op.CreatedAt,
		&op.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrOperationNotFound
		}
		return nil, err
	}
	return &op, nil
}

func (r *operationRepo) Create(ctx context.Context, op *domain.Operation) error {
	if op.ID == uuid.Nil {
		op.ID = uuid.New()
	}
	if op.Status == "" {
		op.Status = domain.OperationStatusPending
	}

	query := `
		INSERT INTO operations (id, user_id, type, amount, status, pix_key, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at, updated_at
	`

	err := r.db.QueryRow(ctx, query,
		op.ID,
		op.UserID,
		op.Type,
		op.Amount,
		op.Status,
		op.PixKey,
		op.Notes,
	).Scan(&op.CreatedAt, &op.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert operation: %w", err)
	}
	return nil
}

func (r *operationRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Operation, error) {
	query := `SELECT` + operationColumns + ` FROM operations WHERE id = $1`
	return scanOperation(r.db.QueryRow(ctx, query, id))
}

func (r *operationRepo) FindByPaymentRef(ctx context.Context, paymentRef string, opType domain.OperationType) (*domain.Operation, error) {
	query := `SELECT` + operationColumns + `
		FROM operations
		WHERE mercado_pago_payment_id = $1 AND type = $2
	`
	return scanOperation(r.db.QueryRow(ctx, query, paymentRef, opType))
}

func (r *operationRepo) AttachPaymentRef(ctx context.Context, id uuid.UUID, paymentRef string, qrCode *string) error {
	query := `
		UPDATE operations
		SET
			mercado_pago_payment_id = $2,
			pix_qr_code = COALESCE($3, pix_qr_code),
			updated_at = NOW()
		WHERE id = $1 AND mercado_pago_payment_id IS NULL
	`

	tag, err := r.db.Exec(ctx, query, id, paymentRef, qrCode)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return domain.ErrDuplicatePaymentRef
		}
		return fmt.Errorf("failed to attach payment reference: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrDuplicatePaymentRef
	}
	return nil
}

func (r *operationRepo) ConfirmPending(ctx context.Context, id uuid.UUID, confirmedBy string) (bool, error) {
	query := `
		UPDATE operations
		SET
			status = 'confirmed',
			confirmed_at = NOW(),
			confirmed_by = $2,
			updated_at = NOW()
		WHERE id = $1 AND status = 'pending'
	`

	tag, err := r.db.Exec(ctx, query, id, confirmedBy)
	if err != nil {
		return false, fmt.Errorf("failed to confirm operation: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (r *operationRepo) CancelPending(ctx context.Context, id uuid.UUID, cancelledBy string) (bool, error) {
	query := `
		UPDATE operations
		SET
			status = 'cancelled',
			notes = CONCAT_WS(E'\n', notes, 'cancelled by ' || $2),
			updated_at = NOW()
		WHERE id = $1 AND status = 'pending'
	`

	tag, err := r.db.Exec(ctx, query, id, cancelledBy)
	if err != nil {
		return false, fmt.Errorf("failed to cancel operation: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (r *operationRepo) ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]*domain.Operation, error) {
	query := `SELECT` + operationColumns + `
		FROM operations
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`
	return r.list(ctx, query, userID, limit)
}

func (r *operationRepo) ListRecent(ctx context.Context, opType domain.OperationType, limit int) ([]*domain.Operation, error) {
	query := `SELECT` + operationColumns + `
		FROM operations
		WHERE type = $1
		ORDER BY created_at DESC
		LIMIT $2
	`
	return r.list(ctx, query, opType, limit)
}

func (r *operationRepo) list(ctx context.Context, query string, args ...any) ([]*domain.Operation, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list operations: %w", err)
	}
	defer rows.Close()

	var ops []*domain.Operation
	for rows.Next() {
		op, err := scanOperation(rows)
		if err != nil {
			return nil, err
		}
		ops = append(ops, op)
	}
	return ops, rows.Err()
}
