package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/huhumeme2002/CreditToken/internal/domain"
)

type AdminRepository struct {
	pool *pgxpool.Pool
}

func NewAdminRepository(pool *pgxpool.Pool) *AdminRepository {
	return &AdminRepository{pool: pool}
}

func (r *AdminRepository) CreateKey(ctx context.Context, key domain.Key) error {
	const stmt = `
INSERT INTO keys (id, secret, expires_at, is_active, credit_cents, created_at)
VALUES ($1, $2, $3, $4, $5, $6)`

	_, err := r.pool.Exec(ctx, stmt,
		key.ID, key.Secret, key.ExpiresAt, key.IsActive, key.CreditCents, key.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicateKey
		}
		return fmt.Errorf("create key: %w", err)
	}
	return nil
}

func (r *AdminRepository) SetCredit(ctx context.Context, keyID string, creditCents int64) (domain.Key, error) {
	const stmt = `
UPDATE keys
SET credit_cents = $2
WHERE id = $1
RETURNING id, secret, expires_at, is_active, credit_cents, last_token_at, created_at`

	var k domain.Key
	err := r.pool.QueryRow(ctx, stmt, keyID, creditCents).
		Scan(&k.ID, &k.Secret, &k.ExpiresAt, &k.IsActive, &k.CreditCents, &k.LastTokenAt, &k.CreatedAt)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.Key{}, domain.ErrInvalidID
		}
		if err == pgx.ErrNoRows {
			return domain.Key{}, domain.ErrKeyNotFound
		}
		return domain.Key{}, fmt.Errorf("set credit: %w", err)
	}
	return k, nil
}

func (r *AdminRepository) CreateToken(ctx context.Context, token domain.Token) error {
	const stmt = `
INSERT INTO token_pool (id, value, created_at)
VALUES ($1, $2, $3)`

	_, err := r.pool.Exec(ctx, stmt, token.ID, token.Value, token.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicateToken
		}
		return fmt.Errorf("create token: %w", err)
	}
	return nil
}

func (r *AdminRepository) ListReports(ctx context.Context) ([]domain.ReportListing, error) {
	const query = `
SELECT r.id, r.key_id, r.token_id, COALESCE(r.reason, ''), r.reported_at,
       r.refunded_at, r.refund_amount_cents, r.rejected_at,
       k.secret, t.value
FROM token_reports r
JOIN keys k ON k.id = r.key_id
JOIN token_pool t ON t.id = r.token_id
ORDER BY r.reported_at DESC`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list reports: %w", err)
	}
	defer rows.Close()

	var listings []domain.ReportListing
	for rows.Next() {
		var l domain.ReportListing
		var secret string
		if err := rows.Scan(&l.ID, &l.KeyID, &l.TokenID, &l.Reason, &l.ReportedAt,
			&l.RefundedAt, &l.RefundAmountCents, &l.RejectedAt,
			&secret, &l.TokenValue); err != nil {
			return nil, fmt.Errorf("scan report: %w", err)
		}
		l.KeyMask = domain.MaskSecret(secret)
		listings = append(listings, l)
	}
	if rows.Err() != nil {
		return nil, fmt.Errorf("iterate reports: %w", rows.Err())
	}
	return listings, nil
}
