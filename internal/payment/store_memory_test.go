package payment

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "charter/pkg/domain"
	"charter/pkg/platform/sentinel"
)

func newRecord(t *testing.T, claimID id.ClaimID, base int64, code int) *PaymentRecord {
	t.Helper()
	p, err := NewPaymentRecord(id.NewPaymentID(), claimID, id.NewAccountID(), base, code, time.Now().UTC())
	require.NoError(t, err)
	return p
}

func TestInMemoryStoreCreateContracts(t *testing.T) {
	ctx := context.Background()

	t.Run("one record per claim", func(t *testing.T) {
		store := NewInMemoryStore()
		claimID := id.NewClaimID()
		require.NoError(t, store.Create(ctx, newRecord(t, claimID, 50_000, 100)))
		assert.ErrorIs(t, store.Create(ctx, newRecord(t, claimID, 50_000, 101)), sentinel.ErrConflict)
	})

	t.Run("unresolved pair is exclusive", func(t *testing.T) {
		store := NewInMemoryStore()
		require.NoError(t, store.Create(ctx, newRecord(t, id.NewClaimID(), 60_000, 200)))
		assert.ErrorIs(t, store.Create(ctx, newRecord(t, id.NewClaimID(), 60_000, 200)), sentinel.ErrAlreadyUsed)
		assert.NoError(t, store.Create(ctx, newRecord(t, id.NewClaimID(), 70_000, 200)))
	})

	t.Run("resolved records free the pair", func(t *testing.T) {
		store := NewInMemoryStore()
		p := newRecord(t, id.NewClaimID(), 80_000, 300)
		require.NoError(t, store.Create(ctx, p))

		_, err := store.Execute(ctx, p.ID,
			func(*PaymentRecord) error { return nil },
			func(p *PaymentRecord) {
				p.ApplyProof("proofs/key", time.Now().UTC())
				p.ApplyVerification(id.NewAccountID(), time.Now().UTC())
			},
		)
		require.NoError(t, err)

		assert.NoError(t, store.Create(ctx, newRecord(t, id.NewClaimID(), 80_000, 300)))
	})
}

func TestInMemoryStoreExecute(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryStore()
	p := newRecord(t, id.NewClaimID(), 50_000, 100)
	require.NoError(t, store.Create(ctx, p))

	t.Run("mutation persists", func(t *testing.T) {
		_, err := store.Execute(ctx, p.ID,
			func(*PaymentRecord) error { return nil },
			func(p *PaymentRecord) { p.ApplyProof("proofs/key", time.Now().UTC()) },
		)
		require.NoError(t, err)

		got, err := store.FindByID(ctx, p.ID)
		require.NoError(t, err)
		assert.Equal(t, StatusAwaitingVerification, got.Status)
		assert.Equal(t, "proofs/key", got.ProofKey)
	})

	t.Run("validate failure leaves the record untouched", func(t *testing.T) {
		_, err := store.Execute(ctx, p.ID,
			func(*PaymentRecord) error { return sentinel.ErrConflict },
			func(p *PaymentRecord) { p.Status = StatusVerified },
		)
		assert.ErrorIs(t, err, sentinel.ErrConflict)

		got, err := store.FindByID(ctx, p.ID)
		require.NoError(t, err)
		assert.Equal(t, StatusAwaitingVerification, got.Status)
	})

	t.Run("missing record is not found", func(t *testing.T) {
		_, err := store.Execute(ctx, id.NewPaymentID(),
			func(*PaymentRecord) error { return nil },
			func(*PaymentRecord) {},
		)
		assert.ErrorIs(t, err, sentinel.ErrNotFound)
	})
}
