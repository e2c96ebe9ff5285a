package app

import (
	"context"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/huhumeme2002/CreditToken/internal/clock"
	"github.com/huhumeme2002/CreditToken/internal/domain"
)

// ReportRepository is the storage contract for the dispute workflow.
type ReportRepository interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
	GetTokenByValue(ctx context.Context, value string) (*domain.Token, error)
	GetDelivery(ctx context.Context, keyID, tokenID string) (*domain.Delivery, error)
	CreateReport(ctx context.Context, report domain.Report) error
	// GetReportForUpdate locks the report row so concurrent resolutions of
	// the same report serialize.
	GetReportForUpdate(ctx context.Context, reportID string) (domain.Report, error)
	CreditKey(ctx context.Context, keyID string, amountCents int64) error
	MarkRefunded(ctx context.Context, reportID string, amountCents int64, at time.Time) error
	MarkRejected(ctx context.Context, reportID string, at time.Time) error
}

// RefundPolicy fixes the tiered refund amounts. Amounts are policy values,
// not recomputed from the issuance cost.
type RefundPolicy struct {
	FullCents        int64
	PartialCents     int64
	FullRefundWindow time.Duration
}

// DefaultRefundPolicy refunds 250 cents within ten minutes of delivery and
// 125 cents afterwards.
func DefaultRefundPolicy() RefundPolicy {
	return RefundPolicy{
		FullCents:        250,
		PartialCents:     125,
		FullRefundWindow: 10 * time.Minute,
	}
}

// Amount returns the refund for the elapsed time between delivery and
// report. The window boundary itself falls on the partial side.
func (p RefundPolicy) Amount(elapsed time.Duration) int64 {
	if elapsed < p.FullRefundWindow {
		return p.FullCents
	}
	return p.PartialCents
}

// ReportMetrics receives resolution counters.
type ReportMetrics interface {
	ReportFiled()
	ReportResolved(decision string)
}

type ReportService struct {
	repo    ReportRepository
	clock   clock.Clock
	policy  RefundPolicy
	metrics ReportMetrics
}

func NewReportService(repo ReportRepository, clk clock.Clock, opts ...ReportServiceOption) *ReportService {
	svc := &ReportService{
		repo:   repo,
		clock:  clk,
		policy: DefaultRefundPolicy(),
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

type ReportServiceOption func(*ReportService)

// WithRefundPolicy overrides the default refund tiers.
func WithRefundPolicy(p RefundPolicy) ReportServiceOption {
	return func(s *ReportService) {
		if p.FullRefundWindow > 0 {
			s.policy = p
		}
	}
}

// WithReportMetrics attaches resolution counters.
func WithReportMetrics(m ReportMetrics) ReportServiceOption {
	return func(s *ReportService) {
		s.metrics = m
	}
}

type FileReportInput struct {
	KeyID      string
	TokenValue string
	Reason     string
}

// File records a dispute over a delivered token. Only the key that received
// the token may file; anyone else gets domain.ErrNotDelivered regardless of
// whether the token exists elsewhere.
func (s *ReportService) File(ctx context.Context, in FileReportInput) (domain.Report, error) {
	if strings.TrimSpace(in.TokenValue) == "" {
		return domain.Report{}, domain.ErrTokenValueRequired
	}

	token, err := s.repo.GetTokenByValue(ctx, in.TokenValue)
	if err != nil {
		return domain.Report{}, err
	}
	if token == nil {
		return domain.Report{}, domain.ErrTokenNotFound
	}

	delivery, err := s.repo.GetDelivery(ctx, in.KeyID, token.ID)
	if err != nil {
		return domain.Report{}, err
	}
	if delivery == nil {
		return domain.Report{}, domain.ErrNotDelivered
	}

	report := domain.Report{
		ID:         newUUID(),
		KeyID:      in.KeyID,
		TokenID:    token.ID,
		Reason:     strings.TrimSpace(in.Reason),
		ReportedAt: s.clock.Now(),
	}
	if err := s.repo.CreateReport(ctx, report); err != nil {
		return domain.Report{}, err
	}
	if s.metrics != nil {
		s.metrics.ReportFiled()
	}
	return report, nil
}

// Decision selects a terminal state for a report.
type Decision string

const (
	DecisionRefund Decision = "refund"
	DecisionReject Decision = "reject"
)

type ResolveResult struct {
	Refunded       bool
	Rejected       bool
	AmountCents    int64
	ElapsedMinutes decimal.Decimal
}

// Resolve settles a report exactly once. A refund credits the key and marks
// the report in the same transaction, so a crash can never leave credit
// granted with the report still open.
func (s *ReportService) Resolve(ctx context.Context, reportID string, decision Decision) (ResolveResult, error) {
	if decision != DecisionRefund && decision != DecisionReject {
		return ResolveResult{}, domain.ErrInvalidDecision
	}

	now := s.clock.Now()
	var result ResolveResult

	err := s.repo.WithTx(ctx, func(txCtx context.Context) error {
		report, err := s.repo.GetReportForUpdate(txCtx, reportID)
		if err != nil {
			return err
		}
		if report.RefundedAt != nil {
			return domain.ErrAlreadyRefunded
		}
		if report.RejectedAt != nil {
			return domain.ErrAlreadyRejected
		}

		if decision == DecisionReject {
			if err := s.repo.MarkRejected(txCtx, reportID, now); err != nil {
				return err
			}
			result = ResolveResult{Rejected: true}
			return nil
		}

		delivery, err := s.repo.GetDelivery(txCtx, report.KeyID, report.TokenID)
		if err != nil {
			return err
		}
		if delivery == nil || delivery.DeliveredAt.IsZero() || report.ReportedAt.IsZero() {
			return domain.ErrReportDataInvalid
		}

		elapsed := report.ReportedAt.Sub(delivery.DeliveredAt)
		if elapsed < 0 {
			// Report stamped before the delivery: clock skew or corrupt
			// data, surface instead of guessing a tier.
			return domain.ErrReportDataInvalid
		}

		amount := s.policy.Amount(elapsed)
		if err := s.repo.CreditKey(txCtx, report.KeyID, amount); err != nil {
			return err
		}
		if err := s.repo.MarkRefunded(txCtx, reportID, amount, now); err != nil {
			return err
		}

		result = ResolveResult{
			Refunded:       true,
			AmountCents:    amount,
			ElapsedMinutes: decimal.NewFromFloat(elapsed.Minutes()).Round(1),
		}
		return nil
	})
	if err != nil {
		return ResolveResult{}, err
	}
	if s.metrics != nil {
		s.metrics.ReportResolved(string(decision))
	}
	return result, nil
}
