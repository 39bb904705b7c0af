package repository

import (
	"context"
	"fmt"
	"log"
	"time"

	"chathub/internal/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// UserRepository exposes the slice of the identity store the chat core
// needs: lookup by id plus write access to the two presence fields.
type UserRepository interface {
	GetUserByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	SetOnline(ctx context.Context, id uuid.UUID) error
	SetOffline(ctx context.Context, id uuid.UUID, lastSeen time.Time) error
}

type PostgresUserRepo struct {
	pool *pgxpool.Pool
}

func NewUserRepo(pool *pgxpool.Pool) *PostgresUserRepo {
	return &PostgresUserRepo{pool: pool}
}

func (r *PostgresUserRepo) GetUserByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	const query = `
        SELECT id, username, display_name, role, is_active, is_online, last_seen, created_at
        FROM users
        WHERE id = $1`

	user := &models.User{}
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&user.ID,
		&user.Username,
		&user.DisplayName,
		&user.Role,
		&user.IsActive,
		&user.IsOnline,
		&user.LastSeen,
		&user.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	return user, nil
}

func (r *PostgresUserRepo) SetOnline(ctx context.Context, id uuid.UUID) error {
	const query = `UPDATE users SET is_online = true, last_seen = now() WHERE id = $1`

	if _, err := r.pool.Exec(ctx, query, id); err != nil {
		log.Printf("[REPO ERROR] Failed to mark user %s online: %v", id, err)
		return fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	return nil
}

func (r *PostgresUserRepo) SetOffline(ctx context.Context, id uuid.UUID, lastSeen time.Time) error {
	const query = `UPDATE users SET is_online = false, last_seen = $2 WHERE id = $1`

	if _, err := r.pool.Exec(ctx, query, id, lastSeen); err != nil {
		log.Printf("[REPO ERROR] Failed to mark user %s offline: %v", id, err)
		return fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	return nil
}
