package auth

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kirana-erp/kirana-erp/internal/shared"
)

// ErrEmailTaken signals a duplicate registration attempt.
var ErrEmailTaken = errors.New("auth: email already registered")

// PGRepository implements Repository using PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

// FindByEmail fetches an owner account by email.
func (r *PGRepository) FindByEmail(ctx context.Context, email string) (*Owner, error) {
	var o Owner
	err := r.pool.QueryRow(ctx, `SELECT id, email, password_hash, shop_name, created_at
FROM business_owners WHERE email = $1`, email).
		Scan(&o.ID, &o.Email, &o.PasswordHash, &o.ShopName, &o.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, shared.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &o, nil
}

// CreateOwner inserts a new owner account.
func (r *PGRepository) CreateOwner(ctx context.Context, email, passwordHash, shopName string) (*Owner, error) {
	var o Owner
	err := r.pool.QueryRow(ctx, `INSERT INTO business_owners (email, password_hash, shop_name)
VALUES ($1, $2, $3)
RETURNING id, email, password_hash, shop_name, created_at`, email, passwordHash, shopName).
		Scan(&o.ID, &o.Email, &o.PasswordHash, &o.ShopName, &o.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, ErrEmailTaken
		}
		return nil, err
	}
	return &o, nil
}

var _ Repository = (*PGRepository)(nil)
