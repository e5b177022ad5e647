package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type VoucherType string

const (
	VoucherTypeReceipt  VoucherType = "receipt"
	VoucherTypeIssue    VoucherType = "issue"
	VoucherTypeTransfer VoucherType = "transfer"
)

func (v VoucherType) IsValid() bool {
	switch v {
	case VoucherTypeReceipt, VoucherTypeIssue, VoucherTypeTransfer:
		return true
	default:
		return false
	}
}

// LedgerEntry is a single immutable stock movement. Once appended, the entry
// is never updated or deleted; corrections happen through compensating
// entries. QuantityDelta is positive for inbound movements and negative for
// outbound ones. For inbound entries Rate is the cost of the incoming stock;
// for outbound entries it is the moving-average rate that was in effect when
// the movement was recorded.
type LedgerEntry struct {
	ID            string
	ItemID        string
	WarehouseID   string
	QuantityDelta decimal.Decimal
	Rate          decimal.Decimal
	PostingDate   time.Time
	// Sequence is assigned by the store at append time and breaks ties
	// between entries sharing a posting date. Replay order for a
	// (item, warehouse) pair is (PostingDate, Sequence) ascending.
	Sequence    int64
	VoucherType VoucherType
	VoucherID   uuid.UUID
	CreatedAt   time.Time
}

func (e *LedgerEntry) Validate() error {
	if e.ItemID == "" {
		return ErrMissingItem
	}
	if e.WarehouseID == "" {
		return ErrMissingWarehouse
	}
	if e.QuantityDelta.IsZero() {
		return ErrZeroQuantityDelta
	}
	if e.Rate.IsNegative() {
		return ErrInvalidRate
	}
	if !e.VoucherType.IsValid() {
		return ErrInvalidVoucherType
	}
	return nil
}

func (e *LedgerEntry) Inbound() bool {
	return e.QuantityDelta.IsPositive()
}

// ItemWarehouse identifies one tracked stock position.
type ItemWarehouse struct {
	ItemID      string
	WarehouseID string
}
