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

type ReportRepository struct {
	pool *pgxpool.Pool
}

func NewReportRepository(pool *pgxpool.Pool) *ReportRepository {
	return &ReportRepository{pool: pool}
}

func (r *ReportRepository) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return withTx(ctx, r.pool, fn)
}

func (r *ReportRepository) GetTokenByValue(ctx context.Context, value string) (*domain.Token, error) {
	const query = `
SELECT id, value, assigned_to, assigned_at, created_at
FROM token_pool
WHERE value = $1`

	var t domain.Token
	err := r.queryRow(ctx, query, value).
		Scan(&t.ID, &t.Value, &t.AssignedTo, &t.AssignedAt, &t.CreatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("get token by value: %w", err)
	}
	return &t, nil
}

func (r *ReportRepository) GetDelivery(ctx context.Context, keyID, tokenID string) (*domain.Delivery, error) {
	const query = `
SELECT id, key_id, token_id, delivered_at
FROM deliveries
WHERE key_id = $1 AND token_id = $2`

	var d domain.Delivery
	err := r.queryRow(ctx, query, keyID, tokenID).
		Scan(&d.ID, &d.KeyID, &d.TokenID, &d.DeliveredAt)
	if err != nil {
		if isInvalidUUID(err) {
			return nil, domain.ErrInvalidID
		}
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("get delivery: %w", err)
	}
	return &d, nil
}

func (r *ReportRepository) CreateReport(ctx context.Context, report domain.Report) error {
	const stmt = `
INSERT INTO token_reports (id, key_id, token_id, reason, reported_at)
VALUES ($1, $2, $3, NULLIF($4, ''), $5)`

	_, err := r.exec(ctx, stmt, report.ID, report.KeyID, report.TokenID, report.Reason, report.ReportedAt)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.ErrInvalidID
		}
		if isForeignKeyViolation(err) {
			return domain.ErrTokenNotFound
		}
		return fmt.Errorf("create report: %w", err)
	}
	return nil
}

func (r *ReportRepository) GetReportForUpdate(ctx context.Context, reportID string) (domain.Report, error) {
	const query = `
SELECT id, key_id, token_id, COALESCE(reason, ''), reported_at, refunded_at, refund_amount_cents, rejected_at
FROM token_reports
WHERE id = $1
FOR UPDATE`

	var rep domain.Report
	err := r.queryRow(ctx, query, reportID).
		Scan(&rep.ID, &rep.KeyID, &rep.TokenID, &rep.Reason, &rep.ReportedAt,
			&rep.RefundedAt, &rep.RefundAmountCents, &rep.RejectedAt)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.Report{}, domain.ErrInvalidID
		}
		if err == pgx.ErrNoRows {
			return domain.Report{}, domain.ErrReportNotFound
		}
		return domain.Report{}, fmt.Errorf("get report: %w", err)
	}
	return rep, nil
}

func (r *ReportRepository) CreditKey(ctx context.Context, keyID string, amountCents int64) error {
	const stmt = `
UPDATE keys
SET credit_cents = credit_cents + $2
WHERE id = $1`

	tag, err := r.exec(ctx, stmt, keyID, amountCents)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.ErrInvalidID
		}
		return fmt.Errorf("credit key: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrKeyNotFound
	}
	return nil
}

func (r *ReportRepository) MarkRefunded(ctx context.Context, reportID string, amountCents int64, at time.Time) error {
	const stmt = `
UPDATE token_reports
SET refunded_at = $2, refund_amount_cents = $3
WHERE id = $1 AND refunded_at IS NULL AND rejected_at IS NULL`

	tag, err := r.exec(ctx, stmt, reportID, at, amountCents)
	if err != nil {
		return fmt.Errorf("mark refunded: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrReportNotFound
	}
	return nil
}

func (r *ReportRepository) MarkRejected(ctx context.Context, reportID string, at time.Time) error {
	const stmt = `
UPDATE token_reports
SET rejected_at = $2
WHERE id = $1 AND refunded_at IS NULL AND rejected_at IS NULL`

	tag, err := r.exec(ctx, stmt, reportID, at)
	if err != nil {
		return fmt.Errorf("mark rejected: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrReportNotFound
	}
	return nil
}

func (r *ReportRepository) exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	if tx := txFromContext(ctx); tx != nil {
		return tx.Exec(ctx, sql, args...)
	}
	return r.pool.Exec(ctx, sql, args...)
}

func (r *ReportRepository) queryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	if tx := txFromContext(ctx); tx != nil {
		return tx.QueryRow(ctx, sql, args...)
	}
	return r.pool.QueryRow(ctx, sql, args...)
}
