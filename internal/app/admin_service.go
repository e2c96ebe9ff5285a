package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/huhumeme2002/CreditToken/internal/clock"
	"github.com/huhumeme2002/CreditToken/internal/domain"
)

// AdminRepository is the storage contract for the privileged surface.
type AdminRepository interface {
	CreateKey(ctx context.Context, key domain.Key) error
	// SetCredit overwrites the key balance unconditionally. Returns
	// domain.ErrKeyNotFound when the key is absent.
	SetCredit(ctx context.Context, keyID string, creditCents int64) (domain.Key, error)
	CreateToken(ctx context.Context, token domain.Token) error
	ListReports(ctx context.Context) ([]domain.ReportListing, error)
}

type AdminService struct {
	repo  AdminRepository
	clock clock.Clock
}

func NewAdminService(repo AdminRepository, clk clock.Clock) *AdminService {
	return &AdminService{
		repo:  repo,
		clock: clk,
	}
}

type ImportKeyInput struct {
	Secret      string
	CreditCents int64
	ExpiresAt   time.Time
}

// ImportOutcome accumulates per-row results of a bulk import; one bad row
// does not abort the rest.
type ImportOutcome struct {
	Succeeded int
	Failed    int
	Errors    []string
}

func (o *ImportOutcome) fail(row int, err error) {
	o.Failed++
	o.Errors = append(o.Errors, fmt.Sprintf("row %d: %v", row, err))
}

// ImportKeys creates keys supplied by the ingestion side. Duplicate secrets
// are rejected by the storage unique constraint and reported per row.
func (s *AdminService) ImportKeys(ctx context.Context, inputs []ImportKeyInput) ImportOutcome {
	now := s.clock.Now()
	var out ImportOutcome

	for i, in := range inputs {
		row := i + 1
		secret := strings.TrimSpace(in.Secret)
		if secret == "" {
			out.fail(row, domain.ErrKeySecretRequired)
			continue
		}
		if in.CreditCents < 0 {
			out.fail(row, domain.ErrInvalidCredit)
			continue
		}
		if in.ExpiresAt.IsZero() || !in.ExpiresAt.After(now) {
			out.fail(row, domain.ErrInvalidExpiry)
			continue
		}

		err := s.repo.CreateKey(ctx, domain.Key{
			ID:          newUUID(),
			Secret:      secret,
			ExpiresAt:   in.ExpiresAt,
			IsActive:    true,
			CreditCents: in.CreditCents,
			CreatedAt:   now,
		})
		if err != nil {
			out.fail(row, err)
			continue
		}
		out.Succeeded++
	}
	return out
}

// ImportTokens adds opaque token values to the pool, all unassigned.
func (s *AdminService) ImportTokens(ctx context.Context, values []string) ImportOutcome {
	now := s.clock.Now()
	var out ImportOutcome

	for i, value := range values {
		row := i + 1
		value = strings.TrimSpace(value)
		if value == "" {
			out.fail(row, domain.ErrTokenValueRequired)
			continue
		}

		err := s.repo.CreateToken(ctx, domain.Token{
			ID:        newUUID(),
			Value:     value,
			CreatedAt: now,
		})
		if err != nil {
			out.fail(row, err)
			continue
		}
		out.Succeeded++
	}
	return out
}

// SetCredit is the out-of-band balance overwrite used for manual top-ups.
// It bypasses issuance and dispute logic entirely.
func (s *AdminService) SetCredit(ctx context.Context, keyID string, creditCents int64) (domain.Key, error) {
	if keyID == "" {
		return domain.Key{}, domain.ErrInvalidID
	}
	if creditCents < 0 {
		return domain.Key{}, domain.ErrInvalidCredit
	}
	return s.repo.SetCredit(ctx, keyID, creditCents)
}

// ListReports returns all disputes, newest first, for the resolution screen.
func (s *AdminService) ListReports(ctx context.Context) ([]domain.ReportListing, error) {
	return s.repo.ListReports(ctx)
}
