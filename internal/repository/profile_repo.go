// internal/repository/profile_repo.go
package repository

import (
	"context"
	"errors"

	"github.com/DrawzeoBarrela/pix-pocket-brasil/internal/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ProfileRepository is read-only: profiles are owned by the account service.
type ProfileRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Profile, error)
}

type profileRepo struct {
	db *pgxpool.Pool
}

func NewProfileRepository(db *pgxpool.Pool) ProfileRepository {
	return &profileRepo{db: db}
}

func (r *profileRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Profile, error) {
	query := `
		SELECT id, COALESCE(name, ''), COALESCE(pppoker_id, '')
		FROM profiles
		WHERE id = $1
	`

	var p domain.Profile
	err := r.db.QueryRow(ctx, query, id).Scan(&p.ID, &p.Name, &p.PPPokerID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrProfileNotFound
		}
		return nil, err
	}
	return &p, nil
}
