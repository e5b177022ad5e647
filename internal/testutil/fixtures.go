package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/emilio-cliff/stockledger/internal/domain"
	"github.com/emilio-cliff/stockledger/internal/repository"
)

// SeedEntry appends a ledger entry directly to the store, bypassing the
// transaction processor. The voucher type follows the sign of qty.
func SeedEntry(t *testing.T, store repository.LedgerStore, itemID, warehouseID, qty, rate string, postingDate time.Time) domain.LedgerEntry {
	t.Helper()

	delta := decimal.RequireFromString(qty)
	voucherType := domain.VoucherTypeReceipt
	if delta.IsNegative() {
		voucherType = domain.VoucherTypeIssue
	}

	e := &domain.LedgerEntry{
		ID:            domain.NewEntryID(),
		ItemID:        itemID,
		WarehouseID:   warehouseID,
		QuantityDelta: delta,
		Rate:          decimal.RequireFromString(rate),
		PostingDate:   postingDate,
		VoucherType:   voucherType,
		VoucherID:     uuid.New(),
	}
	if err := store.Append(context.Background(), e); err != nil {
		t.Fatalf("seed entry %s/%s: %v", itemID, warehouseID, err)
	}
	return *e
}
