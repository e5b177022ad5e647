package domain

import "github.com/shopspring/decimal"

// AverageState is the derived (quantity on hand, moving-average rate) pair
// for an item/warehouse at some cutoff. It is never persisted as ground
// truth; it is always recomputable by replaying ledger entries in order.
type AverageState struct {
	QtyOnHand   decimal.Decimal
	AverageRate decimal.Decimal
}

func ZeroAverageState() AverageState {
	return AverageState{QtyOnHand: decimal.Zero, AverageRate: decimal.Zero}
}

// StockBalance is the reporting view of one item/warehouse position.
type StockBalance struct {
	ItemID      string
	WarehouseID string
	QtyOnHand   decimal.Decimal
	AverageRate decimal.Decimal
	Value       decimal.Decimal
}
