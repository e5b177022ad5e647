package repository

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emilio-cliff/stockledger/internal/domain"
)

func newSQLiteStore(t *testing.T) *SQLiteLedgerStore {
	t.Helper()

	store, err := NewSQLiteLedgerStore(filepath.Join(t.TempDir(), "ledger.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestSQLiteAppend_RoundTrip(t *testing.T) {
	ctx := context.Background()
	store := newSQLiteStore(t)

	e := newTestEntry("ITEM-1", "WH-1", "10.5", "2.25", at(0))
	require.NoError(t, store.Append(ctx, e))
	assert.Equal(t, int64(1), e.Sequence)

	entries, err := store.EntriesFor(ctx, "ITEM-1", "WH-1", at(0))
	require.NoError(t, err)
	require.Len(t, entries, 1)

	got := entries[0]
	assert.Equal(t, e.ID, got.ID)
	assert.Equal(t, e.ItemID, got.ItemID)
	assert.Equal(t, e.WarehouseID, got.WarehouseID)
	assert.True(t, got.QuantityDelta.Equal(decimal.RequireFromString("10.5")))
	assert.True(t, got.Rate.Equal(decimal.RequireFromString("2.25")))
	assert.True(t, got.PostingDate.Equal(at(0)))
	assert.Equal(t, e.VoucherType, got.VoucherType)
	assert.Equal(t, e.VoucherID, got.VoucherID)
	assert.Equal(t, e.Sequence, got.Sequence)
}

func TestSQLiteEntriesFor_OrderedByPostingDateThenSequence(t *testing.T) {
	ctx := context.Background()
	store := newSQLiteStore(t)

	e1 := newTestEntry("ITEM-1", "WH-1", "10", "2", at(0))
	e2 := newTestEntry("ITEM-1", "WH-1", "5", "3", at(20))
	e3 := newTestEntry("ITEM-1", "WH-1", "2", "4", at(10)) // backdated
	require.NoError(t, store.Append(ctx, e1))
	require.NoError(t, store.Append(ctx, e2))
	require.NoError(t, store.Append(ctx, e3))

	entries, err := store.EntriesFor(ctx, "ITEM-1", "WH-1", at(60))
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, e1.ID, entries[0].ID)
	assert.Equal(t, e3.ID, entries[1].ID)
	assert.Equal(t, e2.ID, entries[2].ID)
}

func TestSQLiteEntriesBetween_Bounds(t *testing.T) {
	ctx := context.Background()
	store := newSQLiteStore(t)

	for _, m := range []int{0, 10, 20, 30} {
		require.NoError(t, store.Append(ctx, newTestEntry("ITEM-1", "WH-1", "1", "1", at(m))))
	}

	entries, err := store.EntriesBetween(ctx, "ITEM-1", "WH-1", at(10), at(30))
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.True(t, entries[0].PostingDate.Equal(at(20)))
	assert.True(t, entries[1].PostingDate.Equal(at(30)))
}

func TestSQLiteAppend_TransferLegsAtomic(t *testing.T) {
	ctx := context.Background()
	store := newSQLiteStore(t)

	out := newTestEntry("ITEM-1", "WH-1", "-5", "2", at(0))
	in := newTestEntry("ITEM-1", "WH-2", "5", "2", at(0))
	out.VoucherType = domain.VoucherTypeTransfer
	in.VoucherType = domain.VoucherTypeTransfer
	in.VoucherID = out.VoucherID

	require.NoError(t, store.Append(ctx, out, in))

	byVoucher, err := store.EntriesByVoucher(ctx, out.VoucherID)
	require.NoError(t, err)
	require.Len(t, byVoucher, 2)
	assert.Equal(t, out.ID, byVoucher[0].ID)
	assert.Equal(t, in.ID, byVoucher[1].ID)
}

func TestSQLiteItemsWithActivity(t *testing.T) {
	ctx := context.Background()
	store := newSQLiteStore(t)

	require.NoError(t, store.Append(ctx, newTestEntry("ITEM-B", "WH-1", "1", "1", at(0))))
	require.NoError(t, store.Append(ctx, newTestEntry("ITEM-A", "WH-2", "1", "1", at(0))))
	require.NoError(t, store.Append(ctx, newTestEntry("ITEM-A", "WH-1", "1", "1", at(30))))

	pairs, err := store.ItemsWithActivity(ctx, at(10))
	require.NoError(t, err)
	require.Len(t, pairs, 2)
	assert.Equal(t, domain.ItemWarehouse{ItemID: "ITEM-A", WarehouseID: "WH-2"}, pairs[0])
	assert.Equal(t, domain.ItemWarehouse{ItemID: "ITEM-B", WarehouseID: "WH-1"}, pairs[1])
}

func TestSQLiteLedger_IsImmutable(t *testing.T) {
	ctx := context.Background()
	store := newSQLiteStore(t)

	e := newTestEntry("ITEM-1", "WH-1", "10", "2", at(0))
	require.NoError(t, store.Append(ctx, e))

	_, err := store.db.ExecContext(ctx,
		`UPDATE stock_ledger_entries SET quantity_delta = '999' WHERE id = ?`, e.ID)
	require.Error(t, err, "updates must be rejected by trigger")
	assert.Contains(t, err.Error(), "immutable")

	_, err = store.db.ExecContext(ctx,
		`DELETE FROM stock_ledger_entries WHERE id = ?`, e.ID)
	require.Error(t, err, "deletes must be rejected by trigger")
	assert.Contains(t, err.Error(), "immutable")

	entries, err := store.EntriesFor(ctx, "ITEM-1", "WH-1", at(0))
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.True(t, entries[0].QuantityDelta.Equal(decimal.RequireFromString("10")))
}
