package stock

import (
	"context"
	"fmt"

	"github.com/emilio-cliff/stockledger/internal/domain"
	"github.com/emilio-cliff/stockledger/internal/logging"
)

// RecordReceipt appends one inbound entry. The rate is the incoming cost
// supplied by the business event, not derived from history.
func (s *Service) RecordReceipt(ctx context.Context, req ReceiptRequest) (*domain.LedgerEntry, error) {
	if err := validateMovement(req.ItemID, req.WarehouseID, req.Quantity); err != nil {
		return nil, fmt.Errorf("RecordReceipt: %w", err)
	}
	if req.Rate.IsNegative() {
		return nil, fmt.Errorf("RecordReceipt: %w", domain.ErrInvalidRate)
	}

	postingDate := effectivePostingDate(req.PostingDate)
	voucherID := effectiveVoucherID(req.VoucherID)

	key := domain.ItemWarehouse{ItemID: req.ItemID, WarehouseID: req.WarehouseID}
	unlock := s.locks.lock(key)
	defer unlock()

	entries, err := s.appendWithRetry(ctx, func(ctx context.Context) ([]*domain.LedgerEntry, error) {
		return []*domain.LedgerEntry{{
			ID:            domain.NewEntryID(),
			ItemID:        req.ItemID,
			WarehouseID:   req.WarehouseID,
			QuantityDelta: req.Quantity,
			Rate:          req.Rate,
			PostingDate:   postingDate,
			VoucherType:   domain.VoucherTypeReceipt,
			VoucherID:     voucherID,
		}}, nil
	})
	if err != nil {
		return nil, fmt.Errorf("RecordReceipt: %w", err)
	}

	entry := entries[0]
	logging.FromContext(ctx).Info("stock receipt recorded",
		"item_id", entry.ItemID,
		"warehouse_id", entry.WarehouseID,
		"quantity", entry.QuantityDelta,
		"rate", entry.Rate,
		"voucher_id", entry.VoucherID,
	)
	return entry, nil
}
