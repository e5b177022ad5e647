package stock_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emilio-cliff/stockledger/internal/domain"
	"github.com/emilio-cliff/stockledger/internal/repository"
	"github.com/emilio-cliff/stockledger/internal/stock"
	"github.com/emilio-cliff/stockledger/internal/testutil"
	"github.com/emilio-cliff/stockledger/internal/valuation"
)

var base = time.Date(2026, 1, 5, 9, 0, 0, 0, time.UTC)

func at(minutes int) time.Time {
	return base.Add(time.Duration(minutes) * time.Minute)
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func newTestService(policy stock.Policy) (*stock.Service, *repository.MemoryLedgerStore, *valuation.Engine) {
	store := repository.NewMemoryLedgerStore()
	engine := valuation.NewEngine(store, 0)
	return stock.NewService(store, engine, policy), store, engine
}

func TestRecordReceipt_Validation(t *testing.T) {
	svc, _, _ := newTestService(stock.Policy{AllowNegativeStock: true})

	tests := []struct {
		name    string
		req     stock.ReceiptRequest
		wantErr error
	}{
		{
			name:    "missing item",
			req:     stock.ReceiptRequest{WarehouseID: "WH-1", Quantity: dec("10"), Rate: dec("2")},
			wantErr: domain.ErrMissingItem,
		},
		{
			name:    "missing warehouse",
			req:     stock.ReceiptRequest{ItemID: "ITEM-1", Quantity: dec("10"), Rate: dec("2")},
			wantErr: domain.ErrMissingWarehouse,
		},
		{
			name:    "zero quantity",
			req:     stock.ReceiptRequest{ItemID: "ITEM-1", WarehouseID: "WH-1", Quantity: dec("0"), Rate: dec("2")},
			wantErr: domain.ErrInvalidQuantity,
		},
		{
			name:    "negative quantity",
			req:     stock.ReceiptRequest{ItemID: "ITEM-1", WarehouseID: "WH-1", Quantity: dec("-5"), Rate: dec("2")},
			wantErr: domain.ErrInvalidQuantity,
		},
		{
			name:    "negative rate",
			req:     stock.ReceiptRequest{ItemID: "ITEM-1", WarehouseID: "WH-1", Quantity: dec("10"), Rate: dec("-2")},
			wantErr: domain.ErrInvalidRate,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.RecordReceipt(context.Background(), tc.req)
			assert.ErrorIs(t, err, tc.wantErr)
		})
	}
}

func TestRecordReceipt_AppendsEntry(t *testing.T) {
	ctx := context.Background()
	svc, store, engine := newTestService(stock.Policy{AllowNegativeStock: true})

	voucherID := uuid.New()
	entry, err := svc.RecordReceipt(ctx, stock.ReceiptRequest{
		ItemID:      "ITEM-1",
		WarehouseID: "WH-1",
		Quantity:    dec("10"),
		Rate:        dec("2.5"),
		PostingDate: at(0),
		VoucherID:   voucherID,
	})

	require.NoError(t, err)
	assert.NotEmpty(t, entry.ID)
	assert.Positive(t, entry.Sequence, "store must assign a sequence")
	assert.Equal(t, domain.VoucherTypeReceipt, entry.VoucherType)
	assert.Equal(t, voucherID, entry.VoucherID)
	assert.True(t, entry.QuantityDelta.Equal(dec("10")))
	assert.True(t, entry.Rate.Equal(dec("2.5")))

	state, err := engine.ComputeState(ctx, "ITEM-1", "WH-1", at(0))
	require.NoError(t, err)
	assert.True(t, state.QtyOnHand.Equal(dec("10")))
	assert.True(t, state.AverageRate.Equal(dec("2.5")))

	persisted, err := store.EntriesFor(ctx, "ITEM-1", "WH-1", at(0))
	require.NoError(t, err)
	require.Len(t, persisted, 1)
}

func TestRecordReceipt_DefaultsPostingDateAndVoucher(t *testing.T) {
	svc, _, _ := newTestService(stock.Policy{AllowNegativeStock: true})

	entry, err := svc.RecordReceipt(context.Background(), stock.ReceiptRequest{
		ItemID:      "ITEM-1",
		WarehouseID: "WH-1",
		Quantity:    dec("1"),
		Rate:        dec("1"),
	})

	require.NoError(t, err)
	assert.False(t, entry.PostingDate.IsZero(), "posting date must default to now")
	assert.NotEqual(t, uuid.Nil, entry.VoucherID, "voucher id must be generated")
}

func TestRecordIssue_StampsAverageRate(t *testing.T) {
	ctx := context.Background()
	svc, _, engine := newTestService(stock.Policy{AllowNegativeStock: true})

	_, err := svc.RecordReceipt(ctx, stock.ReceiptRequest{
		ItemID: "ITEM-1", WarehouseID: "WH-1",
		Quantity: dec("10"), Rate: dec("2"), PostingDate: at(0),
	})
	require.NoError(t, err)
	_, err = svc.RecordReceipt(ctx, stock.ReceiptRequest{
		ItemID: "ITEM-1", WarehouseID: "WH-1",
		Quantity: dec("10"), Rate: dec("4"), PostingDate: at(10),
	})
	require.NoError(t, err)

	entry, err := svc.RecordIssue(ctx, stock.IssueRequest{
		ItemID: "ITEM-1", WarehouseID: "WH-1",
		Quantity: dec("4"), PostingDate: at(20),
	})

	require.NoError(t, err)
	assert.Equal(t, domain.VoucherTypeIssue, entry.VoucherType)
	assert.True(t, entry.QuantityDelta.Equal(dec("-4")), "delta: %s", entry.QuantityDelta)
	assert.True(t, entry.Rate.Equal(dec("3")), "issue must carry the average in effect, got %s", entry.Rate)

	state, err := engine.ComputeState(ctx, "ITEM-1", "WH-1", at(20))
	require.NoError(t, err)
	assert.True(t, state.QtyOnHand.Equal(dec("16")))
	assert.True(t, state.AverageRate.Equal(dec("3")), "issue must not move the average")
}

func TestRecordIssue_NegativeStockForbidden(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestService(stock.Policy{AllowNegativeStock: false})

	_, err := svc.RecordReceipt(ctx, stock.ReceiptRequest{
		ItemID: "ITEM-1", WarehouseID: "WH-1",
		Quantity: dec("10"), Rate: dec("2"), PostingDate: at(0),
	})
	require.NoError(t, err)

	_, err = svc.RecordIssue(ctx, stock.IssueRequest{
		ItemID: "ITEM-1", WarehouseID: "WH-1",
		Quantity: dec("12"), PostingDate: at(10),
	})
	assert.ErrorIs(t, err, domain.ErrInsufficientStock)

	// Issuing exactly the on-hand quantity is allowed: zero is not negative.
	entry, err := svc.RecordIssue(ctx, stock.IssueRequest{
		ItemID: "ITEM-1", WarehouseID: "WH-1",
		Quantity: dec("10"), PostingDate: at(10),
	})
	require.NoError(t, err)
	assert.True(t, entry.QuantityDelta.Equal(dec("-10")))
}

func TestRecordIssue_NegativeStockAllowed(t *testing.T) {
	ctx := context.Background()
	svc, _, engine := newTestService(stock.Policy{AllowNegativeStock: true})

	_, err := svc.RecordReceipt(ctx, stock.ReceiptRequest{
		ItemID: "ITEM-1", WarehouseID: "WH-1",
		Quantity: dec("10"), Rate: dec("2"), PostingDate: at(0),
	})
	require.NoError(t, err)

	_, err = svc.RecordIssue(ctx, stock.IssueRequest{
		ItemID: "ITEM-1", WarehouseID: "WH-1",
		Quantity: dec("14"), PostingDate: at(10),
	})
	require.NoError(t, err)

	state, err := engine.ComputeState(ctx, "ITEM-1", "WH-1", at(10))
	require.NoError(t, err)
	assert.True(t, state.QtyOnHand.Equal(dec("-4")), "qty: %s", state.QtyOnHand)
	assert.True(t, state.AverageRate.Equal(dec("2")), "oversold keeps the last average")
}

func TestRecordTransfer_Validation(t *testing.T) {
	svc, _, _ := newTestService(stock.Policy{AllowNegativeStock: true})

	tests := []struct {
		name    string
		req     stock.TransferRequest
		wantErr error
	}{
		{
			name:    "missing destination",
			req:     stock.TransferRequest{ItemID: "ITEM-1", SourceWarehouseID: "WH-1", Quantity: dec("5")},
			wantErr: domain.ErrMissingWarehouse,
		},
		{
			name: "same warehouse",
			req: stock.TransferRequest{
				ItemID: "ITEM-1", SourceWarehouseID: "WH-1", DestWarehouseID: "WH-1", Quantity: dec("5"),
			},
			wantErr: domain.ErrSameWarehouse,
		},
		{
			name: "zero quantity",
			req: stock.TransferRequest{
				ItemID: "ITEM-1", SourceWarehouseID: "WH-1", DestWarehouseID: "WH-2", Quantity: dec("0"),
			},
			wantErr: domain.ErrInvalidQuantity,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.RecordTransfer(context.Background(), tc.req)
			assert.ErrorIs(t, err, tc.wantErr)
		})
	}
}

func TestRecordTransfer_ConservesQuantityAndCarriesCost(t *testing.T) {
	ctx := context.Background()
	svc, store, engine := newTestService(stock.Policy{AllowNegativeStock: false})

	_, err := svc.RecordReceipt(ctx, stock.ReceiptRequest{
		ItemID: "ITEM-1", WarehouseID: "WH-1",
		Quantity: dec("10"), Rate: dec("2"), PostingDate: at(0),
	})
	require.NoError(t, err)
	_, err = svc.RecordReceipt(ctx, stock.ReceiptRequest{
		ItemID: "ITEM-1", WarehouseID: "WH-1",
		Quantity: dec("10"), Rate: dec("4"), PostingDate: at(10),
	})
	require.NoError(t, err)

	entries, err := svc.RecordTransfer(ctx, stock.TransferRequest{
		ItemID:            "ITEM-1",
		SourceWarehouseID: "WH-1",
		DestWarehouseID:   "WH-2",
		Quantity:          dec("5"),
		PostingDate:       at(20),
	})

	require.NoError(t, err)
	require.Len(t, entries, 2)

	outbound, inbound := entries[0], entries[1]
	assert.Equal(t, "WH-1", outbound.WarehouseID)
	assert.Equal(t, "WH-2", inbound.WarehouseID)
	assert.Equal(t, domain.VoucherTypeTransfer, outbound.VoucherType)
	assert.Equal(t, domain.VoucherTypeTransfer, inbound.VoucherType)
	assert.Equal(t, outbound.VoucherID, inbound.VoucherID, "both legs share one voucher")

	assert.True(t, outbound.QuantityDelta.Add(inbound.QuantityDelta).IsZero(),
		"transfer must conserve quantity")
	assert.True(t, outbound.Rate.Equal(dec("3")), "outbound at source average, got %s", outbound.Rate)
	assert.True(t, inbound.Rate.Equal(dec("3")), "destination inherits source average, got %s", inbound.Rate)

	src, err := engine.ComputeState(ctx, "ITEM-1", "WH-1", at(20))
	require.NoError(t, err)
	assert.True(t, src.QtyOnHand.Equal(dec("15")))
	assert.True(t, src.AverageRate.Equal(dec("3")))

	dst, err := engine.ComputeState(ctx, "ITEM-1", "WH-2", at(20))
	require.NoError(t, err)
	assert.True(t, dst.QtyOnHand.Equal(dec("5")))
	assert.True(t, dst.AverageRate.Equal(dec("3")))

	byVoucher, err := store.EntriesByVoucher(ctx, outbound.VoucherID)
	require.NoError(t, err)
	assert.Len(t, byVoucher, 2, "voucher lookup must return both legs")
}

func TestRecordTransfer_InsufficientSourceStock(t *testing.T) {
	ctx := context.Background()
	svc, store, _ := newTestService(stock.Policy{AllowNegativeStock: false})

	testutil.SeedEntry(t, store, "ITEM-1", "WH-1", "3", "2", at(0))

	_, err := svc.RecordTransfer(ctx, stock.TransferRequest{
		ItemID:            "ITEM-1",
		SourceWarehouseID: "WH-1",
		DestWarehouseID:   "WH-2",
		Quantity:          dec("5"),
		PostingDate:       at(10),
	})

	assert.ErrorIs(t, err, domain.ErrInsufficientStock)

	// Neither leg may have been written.
	src, err := store.EntriesFor(ctx, "ITEM-1", "WH-1", at(10))
	require.NoError(t, err)
	assert.Len(t, src, 1, "only the seed entry remains at the source")

	dst, err := store.EntriesFor(ctx, "ITEM-1", "WH-2", at(10))
	require.NoError(t, err)
	assert.Empty(t, dst)
}

func TestRecordIssue_BackdatedSeesHistoricalState(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestService(stock.Policy{AllowNegativeStock: false})

	_, err := svc.RecordReceipt(ctx, stock.ReceiptRequest{
		ItemID: "ITEM-1", WarehouseID: "WH-1",
		Quantity: dec("5"), Rate: dec("2"), PostingDate: at(20),
	})
	require.NoError(t, err)

	// An issue posted before the receipt sees no stock at its posting date.
	_, err = svc.RecordIssue(ctx, stock.IssueRequest{
		ItemID: "ITEM-1", WarehouseID: "WH-1",
		Quantity: dec("1"), PostingDate: at(10),
	})
	assert.ErrorIs(t, err, domain.ErrInsufficientStock)
}
