package rbac

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ProfileStore loads role profiles.
type ProfileStore interface {
	GetProfile(ctx context.Context, userID uuid.UUID) (Profile, error)
}

// PGProfileStore reads profiles from PostgreSQL.
type PGProfileStore struct {
	pool *pgxpool.Pool
}

// NewProfileStore constructs a PostgreSQL backed ProfileStore.
func NewProfileStore(pool *pgxpool.Pool) *PGProfileStore {
	return &PGProfileStore{pool: pool}
}

// GetProfile fetches the profile of userID.
func (s *PGProfileStore) GetProfile(ctx context.Context, userID uuid.UUID) (Profile, error) {
	const query = `SELECT user_id, full_name, role, is_active, updated_at FROM profiles WHERE user_id = $1`
	var (
		p    Profile
		role string
	)
	err := s.pool.QueryRow(ctx, query, userID).Scan(&p.UserID, &p.FullName, &role, &p.IsActive, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Profile{}, ErrNotFound
		}
		return Profile{}, err
	}
	parsed, err := ParseRole(role)
	if err != nil {
		return Profile{}, fmt.Errorf("profile %s: %w", userID, err)
	}
	p.Role = parsed
	return p, nil
}

// Service resolves actors for authorization decisions.
type Service struct {
	store ProfileStore
}

// NewService constructs a Service.
func NewService(store ProfileStore) *Service {
	return &Service{store: store}
}

// Actor loads the profile of userID and returns it as an active Actor.
// Inactive accounts yield ErrInactive together with the resolved actor.
func (s *Service) Actor(ctx context.Context, userID uuid.UUID) (Actor, error) {
	if userID == uuid.Nil {
		return Actor{}, ErrNotFound
	}
	profile, err := s.store.GetProfile(ctx, userID)
	if err != nil {
		return Actor{}, err
	}
	actor := ActorFromProfile(profile)
	if !actor.Active {
		return actor, ErrInactive
	}
	return actor, nil
}

var _ ProfileStore = (*PGProfileStore)(nil)
