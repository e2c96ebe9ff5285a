package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/huhumeme2002/CreditToken/internal/domain"
)

// KeyRepository serves the owner-facing key view and the auth middleware's
// secret lookup.
type KeyRepository struct {
	pool *pgxpool.Pool
}

func NewKeyRepository(pool *pgxpool.Pool) *KeyRepository {
	return &KeyRepository{pool: pool}
}

func (r *KeyRepository) GetKey(ctx context.Context, keyID string) (domain.Key, error) {
	const query = `
SELECT id, secret, expires_at, is_active, credit_cents, last_token_at, created_at
FROM keys
WHERE id = $1`

	var k domain.Key
	err := r.pool.QueryRow(ctx, query, keyID).
		Scan(&k.ID, &k.Secret, &k.ExpiresAt, &k.IsActive, &k.CreditCents, &k.LastTokenAt, &k.CreatedAt)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.Key{}, domain.ErrInvalidID
		}
		if err == pgx.ErrNoRows {
			return domain.Key{}, domain.ErrKeyNotFound
		}
		return domain.Key{}, fmt.Errorf("get key: %w", err)
	}
	return k, nil
}

func (r *KeyRepository) CountDeliveries(ctx context.Context, keyID string) (int, error) {
	const query = `SELECT COUNT(*) FROM deliveries WHERE key_id = $1`

	var count int
	if err := r.pool.QueryRow(ctx, query, keyID).Scan(&count); err != nil {
		if isInvalidUUID(err) {
			return 0, domain.ErrInvalidID
		}
		return 0, fmt.Errorf("count deliveries: %w", err)
	}
	return count, nil
}

// ResolveSecret maps a presented key secret to its key ID. The transport
// auth middleware is the only caller; the core itself trusts key IDs it is
// handed.
func (r *KeyRepository) ResolveSecret(ctx context.Context, secret string) (string, error) {
	const query = `SELECT id FROM keys WHERE secret = $1`

	var id string
	err := r.pool.QueryRow(ctx, query, secret).Scan(&id)
	if err != nil {
		if err == pgx.ErrNoRows {
			return "", domain.ErrKeyNotFound
		}
		return "", fmt.Errorf("resolve secret: %w", err)
	}
	return id, nil
}
