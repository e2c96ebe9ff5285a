package app

import (
	"context"

	"github.com/huhumeme2002/CreditToken/internal/domain"
)

// KeyRepository is the storage contract for the owner-facing key view.
type KeyRepository interface {
	GetKey(ctx context.Context, keyID string) (domain.Key, error)
	CountDeliveries(ctx context.Context, keyID string) (int, error)
}

type KeyService struct {
	repo KeyRepository
}

func NewKeyService(repo KeyRepository) *KeyService {
	return &KeyService{repo: repo}
}

// Summary returns the owner's view of their key with the secret masked.
func (s *KeyService) Summary(ctx context.Context, keyID string) (domain.KeySummary, error) {
	key, err := s.repo.GetKey(ctx, keyID)
	if err != nil {
		return domain.KeySummary{}, err
	}

	delivered, err := s.repo.CountDeliveries(ctx, keyID)
	if err != nil {
		return domain.KeySummary{}, err
	}

	return domain.KeySummary{
		KeyID:          key.ID,
		KeyMask:        domain.MaskSecret(key.Secret),
		IsActive:       key.IsActive,
		ExpiresAt:      key.ExpiresAt,
		LastTokenAt:    key.LastTokenAt,
		DeliveredCount: delivered,
		CreditCents:    key.CreditCents,
	}, nil
}
