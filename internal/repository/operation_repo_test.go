package repository

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/DrawzeoBarrela/pix-pocket-brasil/internal/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupPool(t *testing.T) *pgxpool.Pool {
	t.Helper()

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		t.Skip("DATABASE_URL is not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, dbURL)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	schema, err := os.ReadFile(filepath.Join("..", "..", "migrations", "001_operations.sql"))
	require.NoError(t, err)
	for _, stmt := range strings.Split(string(schema), ";") {
		if s := strings.TrimSpace(stmt); s != "" {
			_, err := pool.Exec(ctx, s)
			require.NoError(t, err, "apply schema")
		}
	}

	_, err = pool.Exec(ctx, `TRUNCATE operations, profiles`)
	require.NoError(t, err)
	return pool
}

func seedProfile(t *testing.T, pool *pgxpool.Pool) uuid.UUID {
	t.Helper()
	id := uuid.New()
	_, err := pool.Exec(context.Background(),
		`INSERT INTO profiles (id, name, pppoker_id) VALUES ($1, $2, $3)`,
		id, "Maria Silva", "8812345")
	require.NoError(t, err)
	return id
}

func seedPendingDeposit(t *testing.T, repo OperationRepository, userID uuid.UUID, ref string) *domain.Operation {
	t.Helper()
	ctx := context.Background()

	op := &domain.Operation{
		UserID: userID,
		Type:   domain.OperationTypeDeposit,
		Amount: decimal.RequireFromString("50.00"),
	}
	require.NoError(t, repo.Create(ctx, op))
	require.NoError(t, repo.AttachPaymentRef(ctx, op.ID, ref, nil))
	return op
}

func TestOperationRepoConfirmPendingIsCompareAndSwap(t *testing.T) {
	pool := setupPool(t)
	repo := NewOperationRepository(pool)
	userID := seedProfile(t, pool)
	op := seedPendingDeposit(t, repo, userID, "PAY1")

	const workers = 16
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		wins int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			won, err := repo.ConfirmPending(context.Background(), op.ID, domain.ConfirmedByWebhook)
			assert.NoError(t, err)
			if won {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, wins)

	got, err := repo.FindByPaymentRef(context.Background(), "PAY1", domain.OperationTypeDeposit)
	require.NoError(t, err)
	assert.Equal(t, domain.OperationStatusConfirmed, got.Status)
	require.NotNil(t, got.ConfirmedAt)
	assert.True(t, got.Amount.Equal(decimal.RequireFromString("50")))
}

func TestOperationRepoPaymentRefIsSetOnceAndUnique(t *testing.T) {
	pool := setupPool(t)
	repo := NewOperationRepository(pool)
	ctx := context.Background()
	userID := seedProfile(t, pool)

	first := seedPendingDeposit(t, repo, userID, "PAY-A")
	assert.ErrorIs(t, repo.AttachPaymentRef(ctx, first.ID, "PAY-B", nil), domain.ErrDuplicatePaymentRef)

	second := &domain.Operation{UserID: userID, Type: domain.OperationTypeDeposit, Amount: decimal.NewFromInt(10)}
	require.NoError(t, repo.Create(ctx, second))
	assert.ErrorIs(t, repo.AttachPaymentRef(ctx, second.ID, "PAY-A", nil), domain.ErrDuplicatePaymentRef)
}

func TestOperationRepoNotFoundAndCancel(t *testing.T) {
	pool := setupPool(t)
	repo := NewOperationRepository(pool)
	ctx := context.Background()
	userID := seedProfile(t, pool)

	_, err := repo.FindByPaymentRef(ctx, "missing", domain.OperationTypeDeposit)
	assert.ErrorIs(t, err, domain.ErrOperationNotFound)

	op := seedPendingDeposit(t, repo, userID, "PAY-C")
	cancelled, err := repo.CancelPending(ctx, op.ID, "operator-1")
	require.NoError(t, err)
	assert.True(t, cancelled)

	confirmed, err := repo.ConfirmPending(ctx, op.ID, domain.ConfirmedByWebhook)
	require.NoError(t, err)
	assert.False(t, confirmed)

	got, err := repo.GetByID(ctx, op.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.OperationStatusCancelled, got.Status)
	assert.Nil(t, got.ConfirmedAt)

	profiles := NewProfileRepository(pool)
	p, err := profiles.GetByID(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, "8812345", p.PPPokerID)
}
