package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/huhumeme2002/CreditToken/internal/domain"
	"github.com/huhumeme2002/CreditToken/internal/testutil"
)

func TestKeyRepository(t *testing.T) {
	pool := testutil.NewTestPool(t)
	ctx := context.Background()
	testutil.ApplyMigrations(t, ctx, pool)

	repo := NewKeyRepository(pool)
	now := time.Now().UTC().Truncate(time.Microsecond)
	expires := now.Add(24 * time.Hour)

	t.Run("ResolveSecret", func(t *testing.T) {
		testutil.TruncateAll(t, ctx, pool)
		keyID := testutil.InsertKey(t, ctx, pool, "key-secret-1", 0, expires)

		id, err := repo.ResolveSecret(ctx, "key-secret-1")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if id != keyID {
			t.Fatalf("expected key %s, got %s", keyID, id)
		}

		if _, err := repo.ResolveSecret(ctx, "wrong-secret"); err != domain.ErrKeyNotFound {
			t.Fatalf("expected ErrKeyNotFound, got %v", err)
		}
	})

	t.Run("CountDeliveries", func(t *testing.T) {
		testutil.TruncateAll(t, ctx, pool)
		keyID := testutil.InsertKey(t, ctx, pool, "key-secret-1", 0, expires)
		otherID := testutil.InsertKey(t, ctx, pool, "key-secret-2", 0, expires)
		tok1 := testutil.InsertToken(t, ctx, pool, "VALUE-1", now)
		tok2 := testutil.InsertToken(t, ctx, pool, "VALUE-2", now)
		tok3 := testutil.InsertToken(t, ctx, pool, "VALUE-3", now)
		testutil.InsertDelivery(t, ctx, pool, keyID, tok1, now)
		testutil.InsertDelivery(t, ctx, pool, keyID, tok2, now)
		testutil.InsertDelivery(t, ctx, pool, otherID, tok3, now)

		count, err := repo.CountDeliveries(ctx, keyID)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if count != 2 {
			t.Fatalf("expected 2 deliveries, got %d", count)
		}
	})
}
