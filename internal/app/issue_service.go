package app

import (
	"context"
	"time"

	"github.com/huhumeme2002/CreditToken/internal/clock"
	"github.com/huhumeme2002/CreditToken/internal/domain"
)

// IssueRepository is the storage contract the issuance path needs. All
// methods called inside WithTx run in the same transaction.
type IssueRepository interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
	GetKey(ctx context.Context, keyID string) (domain.Key, error)
	// DebitCredit subtracts amountCents from the key's balance and stamps
	// the last-issuance instant, only where the balance covers the amount.
	// Returns domain.ErrInsufficientCredit when the conditional update
	// matches no row.
	DebitCredit(ctx context.Context, keyID string, amountCents int64, now time.Time) error
	// NextUnassignedToken picks the oldest unassigned token, skipping rows
	// locked by concurrent claims. Returns nil when none is available.
	NextUnassignedToken(ctx context.Context) (*domain.Token, error)
	// AssignToken marks the token assigned to keyID, conditioned on it
	// still being unassigned. Returns false when the condition failed.
	AssignToken(ctx context.Context, tokenID, keyID string, at time.Time) (bool, error)
	CreateDelivery(ctx context.Context, delivery domain.Delivery) error
}

// IssueMetrics receives issuance counters. Implementations must be safe for
// concurrent use.
type IssueMetrics interface {
	IssueResult(result string)
	ClaimRetry()
}

type IssueService struct {
	repo      IssueRepository
	clock     clock.Clock
	costCents int64
	metrics   IssueMetrics
}

const defaultTokenCostCents = 250

// claimAttempts bounds re-selection after a lost claim race so two racing
// issuances cannot livelock.
const claimAttempts = 3

func NewIssueService(repo IssueRepository, clk clock.Clock, opts ...IssueServiceOption) *IssueService {
	svc := &IssueService{
		repo:      repo,
		clock:     clk,
		costCents: defaultTokenCostCents,
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

type IssueServiceOption func(*IssueService)

// WithTokenCost overrides the fixed issuance cost.
func WithTokenCost(cents int64) IssueServiceOption {
	return func(s *IssueService) {
		if cents > 0 {
			s.costCents = cents
		}
	}
}

// WithIssueMetrics attaches issuance counters.
func WithIssueMetrics(m IssueMetrics) IssueServiceOption {
	return func(s *IssueService) {
		s.metrics = m
	}
}

type IssueResult struct {
	TokenValue string
	IssuedAt   time.Time
}

// Issue debits the key and hands out one previously unassigned token. The
// debit, the assignment and the delivery record commit together or not at
// all; a failure at any step leaves the ledger and the pool untouched.
func (s *IssueService) Issue(ctx context.Context, keyID string) (IssueResult, error) {
	now := s.clock.Now()
	var result IssueResult

	err := s.repo.WithTx(ctx, func(txCtx context.Context) error {
		key, err := s.repo.GetKey(txCtx, keyID)
		if err != nil {
			return err
		}
		if !key.IsActive {
			return domain.ErrKeyInactive
		}
		if !key.ExpiresAt.After(now) {
			return domain.ErrKeyExpired
		}

		if err := s.repo.DebitCredit(txCtx, keyID, s.costCents, now); err != nil {
			return err
		}

		var claimed *domain.Token
		for attempt := 0; attempt < claimAttempts; attempt++ {
			token, err := s.repo.NextUnassignedToken(txCtx)
			if err != nil {
				return err
			}
			if token == nil {
				return domain.ErrOutOfStock
			}
			ok, err := s.repo.AssignToken(txCtx, token.ID, keyID, now)
			if err != nil {
				return err
			}
			if ok {
				claimed = token
				break
			}
			// Lost the race for this row; re-select a different candidate.
			if s.metrics != nil {
				s.metrics.ClaimRetry()
			}
		}
		if claimed == nil {
			return domain.ErrOutOfStock
		}

		if err := s.repo.CreateDelivery(txCtx, domain.Delivery{
			ID:          newUUID(),
			KeyID:       keyID,
			TokenID:     claimed.ID,
			DeliveredAt: now,
		}); err != nil {
			return err
		}

		result = IssueResult{TokenValue: claimed.Value, IssuedAt: now}
		return nil
	})
	if s.metrics != nil {
		s.metrics.IssueResult(issueResultLabel(err))
	}
	if err != nil {
		return IssueResult{}, err
	}
	return result, nil
}

func issueResultLabel(err error) string {
	switch err {
	case nil:
		return "success"
	case domain.ErrKeyNotFound, domain.ErrKeyInactive, domain.ErrKeyExpired:
		return "unauthorized"
	case domain.ErrInsufficientCredit:
		return "insufficient_credit"
	case domain.ErrOutOfStock:
		return "out_of_stock"
	default:
		return "error"
	}
}
