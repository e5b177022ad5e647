package stock

import (
	"context"
	"fmt"

	"github.com/emilio-cliff/stockledger/internal/domain"
	"github.com/emilio-cliff/stockledger/internal/logging"
)

// RecordTransfer moves stock between warehouses as exactly two entries
// sharing one voucher id: an outbound leg at the source and an inbound leg
// at the destination. The destination inherits the source's average rate at
// the moment of transfer, so cost carries over. Both pair locks are taken in
// deterministic order and both entries are appended atomically.
func (s *Service) RecordTransfer(ctx context.Context, req TransferRequest) ([]*domain.LedgerEntry, error) {
	if err := validateMovement(req.ItemID, req.SourceWarehouseID, req.Quantity); err != nil {
		return nil, fmt.Errorf("RecordTransfer: %w", err)
	}
	if req.DestWarehouseID == "" {
		return nil, fmt.Errorf("RecordTransfer: destination: %w", domain.ErrMissingWarehouse)
	}
	if req.SourceWarehouseID == req.DestWarehouseID {
		return nil, fmt.Errorf("RecordTransfer: %w", domain.ErrSameWarehouse)
	}

	postingDate := effectivePostingDate(req.PostingDate)
	voucherID := effectiveVoucherID(req.VoucherID)

	source := domain.ItemWarehouse{ItemID: req.ItemID, WarehouseID: req.SourceWarehouseID}
	dest := domain.ItemWarehouse{ItemID: req.ItemID, WarehouseID: req.DestWarehouseID}
	unlock := s.locks.lockInOrder(source, dest)
	defer unlock()

	entries, err := s.appendWithRetry(ctx, func(ctx context.Context) ([]*domain.LedgerEntry, error) {
		state, err := s.valuation.ComputeState(ctx, req.ItemID, req.SourceWarehouseID, postingDate)
		if err != nil {
			return nil, err
		}

		if !s.policy.AllowNegativeStock && state.QtyOnHand.Sub(req.Quantity).IsNegative() {
			return nil, fmt.Errorf("source on hand %s, requested %s: %w",
				state.QtyOnHand, req.Quantity, domain.ErrInsufficientStock)
		}

		outbound := &domain.LedgerEntry{
			ID:            domain.NewEntryID(),
			ItemID:        req.ItemID,
			WarehouseID:   req.SourceWarehouseID,
			QuantityDelta: req.Quantity.Neg(),
			Rate:          state.AverageRate,
			PostingDate:   postingDate,
			VoucherType:   domain.VoucherTypeTransfer,
			VoucherID:     voucherID,
		}
		inbound := &domain.LedgerEntry{
			ID:            domain.NewEntryID(),
			ItemID:        req.ItemID,
			WarehouseID:   req.DestWarehouseID,
			QuantityDelta: req.Quantity,
			Rate:          state.AverageRate,
			PostingDate:   postingDate,
			VoucherType:   domain.VoucherTypeTransfer,
			VoucherID:     voucherID,
		}
		return []*domain.LedgerEntry{outbound, inbound}, nil
	})
	if err != nil {
		return nil, fmt.Errorf("RecordTransfer: %w", err)
	}

	logging.FromContext(ctx).Info("stock transfer recorded",
		"item_id", req.ItemID,
		"source_warehouse", req.SourceWarehouseID,
		"dest_warehouse", req.DestWarehouseID,
		"quantity", req.Quantity,
		"rate", entries[0].Rate,
		"voucher_id", voucherID,
	)
	return entries, nil
}
