package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/huhumeme2002/CreditToken/internal/domain"
)

type IssueRepository struct {
	pool *pgxpool.Pool
}

func NewIssueRepository(pool *pgxpool.Pool) *IssueRepository {
	return &IssueRepository{pool: pool}
}

func (r *IssueRepository) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return withTx(ctx, r.pool, fn)
}

func (r *IssueRepository) GetKey(ctx context.Context, keyID string) (domain.Key, error) {
	const query = `
SELECT id, secret, expires_at, is_active, credit_cents, last_token_at, created_at
FROM keys
WHERE id = $1`

	var k domain.Key
	err := r.queryRow(ctx, query, keyID).
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

// DebitCredit is the conditional debit: the balance comparison and the
// subtraction are one atomic statement, which is what prevents a concurrent
// double-debit on the same key.
func (r *IssueRepository) DebitCredit(ctx context.Context, keyID string, amountCents int64, now time.Time) error {
	const stmt = `
UPDATE keys
SET credit_cents = credit_cents - $2,
    last_token_at = $3
WHERE id = $1 AND credit_cents >= $2`

	tag, err := r.exec(ctx, stmt, keyID, amountCents, now)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.ErrInvalidID
		}
		return fmt.Errorf("debit credit: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrInsufficientCredit
	}
	return nil
}

// NextUnassignedToken selects the oldest unassigned token. SKIP LOCKED lets
// concurrent issuances walk past rows another transaction is mid-claim on
// instead of queueing behind them.
func (r *IssueRepository) NextUnassignedToken(ctx context.Context) (*domain.Token, error) {
	const query = `
SELECT id, value, created_at
FROM token_pool
WHERE assigned_to IS NULL
ORDER BY created_at
LIMIT 1
FOR UPDATE SKIP LOCKED`

	var t domain.Token
	err := r.queryRow(ctx, query).Scan(&t.ID, &t.Value, &t.CreatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("next unassigned token: %w", err)
	}
	return &t, nil
}

func (r *IssueRepository) AssignToken(ctx context.Context, tokenID, keyID string, at time.Time) (bool, error) {
	const stmt = `
UPDATE token_pool
SET assigned_to = $2, assigned_at = $3
WHERE id = $1 AND assigned_to IS NULL`

	tag, err := r.exec(ctx, stmt, tokenID, keyID, at)
	if err != nil {
		if isInvalidUUID(err) {
			return false, domain.ErrInvalidID
		}
		return false, fmt.Errorf("assign token: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (r *IssueRepository) CreateDelivery(ctx context.Context, delivery domain.Delivery) error {
	const stmt = `
INSERT INTO deliveries (id, key_id, token_id, delivered_at)
VALUES ($1, $2, $3, $4)`

	_, err := r.exec(ctx, stmt, delivery.ID, delivery.KeyID, delivery.TokenID, delivery.DeliveredAt)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrTokenAlreadyDelivered
		}
		if isInvalidUUID(err) {
			return domain.ErrInvalidID
		}
		return fmt.Errorf("create delivery: %w", err)
	}
	return nil
}

func (r *IssueRepository) exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	if tx := txFromContext(ctx); tx != nil {
		return tx.Exec(ctx, sql, args...)
	}
	return r.pool.Exec(ctx, sql, args...)
}

func (r *IssueRepository) queryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	if tx := txFromContext(ctx); tx != nil {
		return tx.QueryRow(ctx, sql, args...)
	}
	return r.pool.QueryRow(ctx, sql, args...)
}
