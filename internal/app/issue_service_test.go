package app

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/huhumeme2002/CreditToken/internal/clock"
	"github.com/huhumeme2002/CreditToken/internal/domain"
)

func TestIssueService_Issue(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	activeKey := func(id string, creditCents int64) domain.Key {
		return domain.Key{
			ID:          id,
			Secret:      "secret-" + id,
			ExpiresAt:   now.Add(24 * time.Hour),
			IsActive:    true,
			CreditCents: creditCents,
		}
	}

	t.Run("issues oldest token and debits exactly once", func(t *testing.T) {
		repo := newFakeIssueRepo(
			[]domain.Key{activeKey("key-1", 250)},
			[]domain.Token{
				{ID: "tok-2", Value: "VALUE-2", CreatedAt: now.Add(-1 * time.Hour)},
				{ID: "tok-1", Value: "VALUE-1", CreatedAt: now.Add(-2 * time.Hour)},
			},
		)
		svc := NewIssueService(repo, clock.NewFixed(now))

		res, err := svc.Issue(context.Background(), "key-1")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if res.TokenValue != "VALUE-1" {
			t.Fatalf("expected oldest token VALUE-1, got %s", res.TokenValue)
		}
		if res.IssuedAt != now {
			t.Fatalf("expected issued_at %v, got %v", now, res.IssuedAt)
		}

		key := repo.keys["key-1"]
		if key.CreditCents != 0 {
			t.Fatalf("expected balance 0, got %d", key.CreditCents)
		}
		if key.LastTokenAt == nil || !key.LastTokenAt.Equal(now) {
			t.Fatalf("expected last_token_at %v, got %v", now, key.LastTokenAt)
		}
		if got := repo.assignedTo("tok-1"); got != "key-1" {
			t.Fatalf("expected tok-1 assigned to key-1, got %q", got)
		}
		if len(repo.deliveries) != 1 {
			t.Fatalf("expected 1 delivery, got %d", len(repo.deliveries))
		}

		// Balance is spent; a second attempt must fail and change nothing.
		_, err = svc.Issue(context.Background(), "key-1")
		if err != domain.ErrInsufficientCredit {
			t.Fatalf("expected ErrInsufficientCredit, got %v", err)
		}
		if repo.keys["key-1"].CreditCents != 0 {
			t.Fatalf("expected balance unchanged, got %d", repo.keys["key-1"].CreditCents)
		}
		if repo.assignedTo("tok-2") != "" {
			t.Fatalf("expected tok-2 still unassigned")
		}
		if len(repo.deliveries) != 1 {
			t.Fatalf("expected deliveries unchanged, got %d", len(repo.deliveries))
		}
	})

	t.Run("missing key", func(t *testing.T) {
		repo := newFakeIssueRepo(nil, nil)
		svc := NewIssueService(repo, clock.NewFixed(now))

		_, err := svc.Issue(context.Background(), "missing")
		if err != domain.ErrKeyNotFound {
			t.Fatalf("expected ErrKeyNotFound, got %v", err)
		}
	})

	t.Run("inactive key", func(t *testing.T) {
		key := activeKey("key-1", 1000)
		key.IsActive = false
		repo := newFakeIssueRepo([]domain.Key{key}, nil)
		svc := NewIssueService(repo, clock.NewFixed(now))

		_, err := svc.Issue(context.Background(), "key-1")
		if err != domain.ErrKeyInactive {
			t.Fatalf("expected ErrKeyInactive, got %v", err)
		}
	})

	t.Run("expired key", func(t *testing.T) {
		key := activeKey("key-1", 1000)
		key.ExpiresAt = now
		repo := newFakeIssueRepo([]domain.Key{key}, nil)
		svc := NewIssueService(repo, clock.NewFixed(now))

		// Expiry exactly at the current instant counts as expired.
		_, err := svc.Issue(context.Background(), "key-1")
		if err != domain.ErrKeyExpired {
			t.Fatalf("expected ErrKeyExpired, got %v", err)
		}
	})

	t.Run("empty pool rolls back the debit", func(t *testing.T) {
		repo := newFakeIssueRepo([]domain.Key{activeKey("key-1", 1000)}, nil)
		svc := NewIssueService(repo, clock.NewFixed(now))

		_, err := svc.Issue(context.Background(), "key-1")
		if err != domain.ErrOutOfStock {
			t.Fatalf("expected ErrOutOfStock, got %v", err)
		}
		if repo.keys["key-1"].CreditCents != 1000 {
			t.Fatalf("expected balance unchanged after rollback, got %d", repo.keys["key-1"].CreditCents)
		}
		if repo.keys["key-1"].LastTokenAt != nil {
			t.Fatalf("expected last_token_at unset after rollback")
		}
	})

	t.Run("lost claim race retries another candidate", func(t *testing.T) {
		repo := newFakeIssueRepo(
			[]domain.Key{activeKey("key-1", 250)},
			[]domain.Token{
				{ID: "tok-1", Value: "VALUE-1", CreatedAt: now.Add(-2 * time.Hour)},
				{ID: "tok-2", Value: "VALUE-2", CreatedAt: now.Add(-1 * time.Hour)},
			},
		)
		repo.assignFailures = 1
		svc := NewIssueService(repo, clock.NewFixed(now))

		res, err := svc.Issue(context.Background(), "key-1")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if res.TokenValue == "" {
			t.Fatalf("expected a token after retry")
		}
	})

	t.Run("exhausted retries roll back", func(t *testing.T) {
		repo := newFakeIssueRepo(
			[]domain.Key{activeKey("key-1", 250)},
			[]domain.Token{{ID: "tok-1", Value: "VALUE-1", CreatedAt: now}},
		)
		repo.assignFailures = claimAttempts
		svc := NewIssueService(repo, clock.NewFixed(now))

		_, err := svc.Issue(context.Background(), "key-1")
		if err != domain.ErrOutOfStock {
			t.Fatalf("expected ErrOutOfStock, got %v", err)
		}
		if repo.keys["key-1"].CreditCents != 250 {
			t.Fatalf("expected balance unchanged, got %d", repo.keys["key-1"].CreditCents)
		}
	})

	t.Run("custom token cost", func(t *testing.T) {
		repo := newFakeIssueRepo(
			[]domain.Key{activeKey("key-1", 100)},
			[]domain.Token{{ID: "tok-1", Value: "VALUE-1", CreatedAt: now}},
		)
		svc := NewIssueService(repo, clock.NewFixed(now), WithTokenCost(100))

		if _, err := svc.Issue(context.Background(), "key-1"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if repo.keys["key-1"].CreditCents != 0 {
			t.Fatalf("expected balance 0, got %d", repo.keys["key-1"].CreditCents)
		}
	})
}

func TestIssueService_ConcurrentIssuance(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	const poolSize = 5
	const callers = 20

	keys := make([]domain.Key, 0, callers)
	for i := 0; i < callers; i++ {
		keys = append(keys, domain.Key{
			ID:          fmt.Sprintf("key-%d", i),
			ExpiresAt:   now.Add(time.Hour),
			IsActive:    true,
			CreditCents: 250,
		})
	}
	tokens := make([]domain.Token, 0, poolSize)
	for i := 0; i < poolSize; i++ {
		tokens = append(tokens, domain.Token{
			ID:        fmt.Sprintf("tok-%d", i),
			Value:     fmt.Sprintf("VALUE-%d", i),
			CreatedAt: now.Add(time.Duration(i) * time.Second),
		})
	}

	repo := newFakeIssueRepo(keys, tokens)
	svc := NewIssueService(repo, clock.NewFixed(now))

	var wg sync.WaitGroup
	errs := make([]error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.Issue(context.Background(), fmt.Sprintf("key-%d", i))
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for i, err := range errs {
		switch err {
		case nil:
			succeeded++
		case domain.ErrOutOfStock:
		default:
			t.Fatalf("caller %d: unexpected error %v", i, err)
		}
	}
	if succeeded != poolSize {
		t.Fatalf("expected exactly %d successes, got %d", poolSize, succeeded)
	}
	if len(repo.deliveries) != poolSize {
		t.Fatalf("expected %d deliveries, got %d", poolSize, len(repo.deliveries))
	}
	seen := make(map[string]bool)
	for tokenID := range repo.deliveries {
		if seen[tokenID] {
			t.Fatalf("token %s delivered twice", tokenID)
		}
		seen[tokenID] = true
	}
}

// fakeIssueRepo emulates the transactional repository: WithTx serializes
// units of work and restores the pre-transaction state when fn fails.
type fakeIssueRepo struct {
	mu         sync.Mutex
	keys       map[string]domain.Key
	tokens     []domain.Token
	deliveries map[string]domain.Delivery

	assignFailures int
}

func newFakeIssueRepo(keys []domain.Key, tokens []domain.Token) *fakeIssueRepo {
	k := make(map[string]domain.Key, len(keys))
	for _, key := range keys {
		k[key.ID] = key
	}
	return &fakeIssueRepo{
		keys:       k,
		tokens:     append([]domain.Token{}, tokens...),
		deliveries: make(map[string]domain.Delivery),
	}
}

func (f *fakeIssueRepo) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	keys := make(map[string]domain.Key, len(f.keys))
	for id, key := range f.keys {
		keys[id] = key
	}
	tokens := append([]domain.Token{}, f.tokens...)
	deliveries := make(map[string]domain.Delivery, len(f.deliveries))
	for id, d := range f.deliveries {
		deliveries[id] = d
	}

	if err := fn(ctx); err != nil {
		f.keys = keys
		f.tokens = tokens
		f.deliveries = deliveries
		return err
	}
	return nil
}

func (f *fakeIssueRepo) GetKey(_ context.Context, keyID string) (domain.Key, error) {
	key, ok := f.keys[keyID]
	if !ok {
		return domain.Key{}, domain.ErrKeyNotFound
	}
	return key, nil
}

func (f *fakeIssueRepo) DebitCredit(_ context.Context, keyID string, amountCents int64, now time.Time) error {
	key, ok := f.keys[keyID]
	if !ok || key.CreditCents < amountCents {
		return domain.ErrInsufficientCredit
	}
	key.CreditCents -= amountCents
	at := now
	key.LastTokenAt = &at
	f.keys[keyID] = key
	return nil
}

func (f *fakeIssueRepo) NextUnassignedToken(_ context.Context) (*domain.Token, error) {
	var oldest *domain.Token
	for i := range f.tokens {
		tok := &f.tokens[i]
		if tok.AssignedTo != nil {
			continue
		}
		if oldest == nil || tok.CreatedAt.Before(oldest.CreatedAt) {
			oldest = tok
		}
	}
	if oldest == nil {
		return nil, nil
	}
	tok := *oldest
	return &tok, nil
}

func (f *fakeIssueRepo) AssignToken(_ context.Context, tokenID, keyID string, at time.Time) (bool, error) {
	if f.assignFailures > 0 {
		f.assignFailures--
		return false, nil
	}
	for i := range f.tokens {
		tok := &f.tokens[i]
		if tok.ID != tokenID || tok.AssignedTo != nil {
			continue
		}
		assignee := keyID
		when := at
		tok.AssignedTo = &assignee
		tok.AssignedAt = &when
		return true, nil
	}
	return false, nil
}

func (f *fakeIssueRepo) CreateDelivery(_ context.Context, delivery domain.Delivery) error {
	if _, exists := f.deliveries[delivery.TokenID]; exists {
		return domain.ErrTokenAlreadyDelivered
	}
	f.deliveries[delivery.TokenID] = delivery
	return nil
}

func (f *fakeIssueRepo) assignedTo(tokenID string) string {
	for _, tok := range f.tokens {
		if tok.ID == tokenID && tok.AssignedTo != nil {
			return *tok.AssignedTo
		}
	}
	return ""
}
