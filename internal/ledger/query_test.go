package ledger

import (
	"context"
	"testing"
	"time"

	"ledger-service/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListEntries(t *testing.T) {
	p, db, _ := newTestProcessor(t)
	seedWallet(t, db, walletSeed{userID: 1})
	seedWallet(t, db, walletSeed{userID: 2})
	fund(t, p, 1, models.CashReal, CategoryGameWin, "100")
	fund(t, p, 1, models.CashReal, CategoryCashback, "5")
	fund(t, p, 1, models.CashVirtual, CategoryPurchase, "7")
	fund(t, p, 2, models.CashReal, CategoryGameWin, "3")
	requestWithdrawal(t, p, 1, "10")
	ctx := context.Background()

	t.Run("by user newest first", func(t *testing.T) {
		entries, total, err := ListEntries(ctx, db, Filter{UserId: 1})
		require.NoError(t, err)
		assert.EqualValues(t, 4, total)
		require.Len(t, entries, 4)
		assert.Equal(t, string(CategoryWithdrawalRequest), entries[0].Category)
		for i := 1; i < len(entries); i++ {
			assert.Greater(t, entries[i-1].ID, entries[i].ID)
		}
	})

	t.Run("by category", func(t *testing.T) {
		entries, total, err := ListEntries(ctx, db, Filter{Category: CategoryGameWin})
		require.NoError(t, err)
		assert.EqualValues(t, 2, total)
		assert.Len(t, entries, 2)
	})

	t.Run("by cash type and status", func(t *testing.T) {
		_, total, err := ListEntries(ctx, db, Filter{UserId: 1, CashType: models.CashVirtual})
		require.NoError(t, err)
		assert.EqualValues(t, 1, total)

		pending, total, err := ListEntries(ctx, db, Filter{Status: models.StatusPending})
		require.NoError(t, err)
		assert.EqualValues(t, 1, total)
		assert.Equal(t, models.DirectionPendingDebit, pending[0].Direction)
	})

	t.Run("by time window", func(t *testing.T) {
		_, total, err := ListEntries(ctx, db, Filter{From: time.Now().Add(time.Hour)})
		require.NoError(t, err)
		assert.Zero(t, total)

		_, total, err = ListEntries(ctx, db, Filter{From: time.Now().Add(-time.Hour), To: time.Now().Add(time.Hour)})
		require.NoError(t, err)
		assert.EqualValues(t, 5, total)
	})

	t.Run("paging", func(t *testing.T) {
		first, total, err := ListEntries(ctx, db, Filter{UserId: 1, Limit: 3})
		require.NoError(t, err)
		assert.EqualValues(t, 4, total)
		assert.Len(t, first, 3)

		second, _, err := ListEntries(ctx, db, Filter{UserId: 1, Limit: 3, Page: 2})
		require.NoError(t, err)
		require.Len(t, second, 1)
		assert.Less(t, second[0].ID, first[2].ID)
	})
}

func TestFilterNormalize(t *testing.T) {
	f := Filter{}.Normalize()
	assert.Equal(t, 1, f.Page)
	assert.Equal(t, defaultPageSize, f.Limit)

	f = Filter{Page: 3, Limit: 10000}.Normalize()
	assert.Equal(t, 3, f.Page)
	assert.Equal(t, maxPageSize, f.Limit)
}

func TestEntriesForUserKeepsMetadata(t *testing.T) {
	p, db, _ := newTestProcessor(t)
	seedWallet(t, db, walletSeed{userID: 1})
	fund(t, p, 1, models.CashReal, CategoryGameWin, "10")

	entries, err := EntriesForUser(context.Background(), db, 1)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "withdrawable", entries[0].Metadata["pool"])
}
