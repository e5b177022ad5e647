package stock

import (
	"context"
	"fmt"

	"github.com/emilio-cliff/stockledger/internal/domain"
	"github.com/emilio-cliff/stockledger/internal/logging"
)

// RecordIssue appends one outbound entry. The entry is stamped with the
// moving-average rate in effect immediately before it, read under the pair
// lock so no concurrent writer can slip between the read and the append.
func (s *Service) RecordIssue(ctx context.Context, req IssueRequest) (*domain.LedgerEntry, error) {
	if err := validateMovement(req.ItemID, req.WarehouseID, req.Quantity); err != nil {
		return nil, fmt.Errorf("RecordIssue: %w", err)
	}

	postingDate := effectivePostingDate(req.PostingDate)
	voucherID := effectiveVoucherID(req.VoucherID)

	key := domain.ItemWarehouse{ItemID: req.ItemID, WarehouseID: req.WarehouseID}
	unlock := s.locks.lock(key)
	defer unlock()

	entries, err := s.appendWithRetry(ctx, func(ctx context.Context) ([]*domain.LedgerEntry, error) {
		state, err := s.valuation.ComputeState(ctx, req.ItemID, req.WarehouseID, postingDate)
		if err != nil {
			return nil, err
		}

		if !s.policy.AllowNegativeStock && state.QtyOnHand.Sub(req.Quantity).IsNegative() {
			return nil, fmt.Errorf("on hand %s, requested %s: %w",
				state.QtyOnHand, req.Quantity, domain.ErrInsufficientStock)
		}

		return []*domain.LedgerEntry{{
			ID:            domain.NewEntryID(),
			ItemID:        req.ItemID,
			WarehouseID:   req.WarehouseID,
			QuantityDelta: req.Quantity.Neg(),
			Rate:          state.AverageRate,
			PostingDate:   postingDate,
			VoucherType:   domain.VoucherTypeIssue,
			VoucherID:     voucherID,
		}}, nil
	})
	if err != nil {
		return nil, fmt.Errorf("RecordIssue: %w", err)
	}

	entry := entries[0]
	logging.FromContext(ctx).Info("stock issue recorded",
		"item_id", entry.ItemID,
		"warehouse_id", entry.WarehouseID,
		"quantity", entry.QuantityDelta,
		"rate", entry.Rate,
		"voucher_id", entry.VoucherID,
	)
	return entry, nil
}
