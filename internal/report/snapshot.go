package report

import (
	"context"
	"fmt"
	"time"

	"github.com/emilio-cliff/stockledger/internal/domain"
)

type activityLister interface {
	ItemsWithActivity(ctx context.Context, cutoff time.Time) ([]domain.ItemWarehouse, error)
}

type balanceReader interface {
	StockBalance(ctx context.Context, itemID, warehouseID string, cutoff time.Time) (domain.StockBalance, error)
}

// Service answers the read-side reporting contract: single-pair balances and
// full snapshots, both as of a cutoff. It never writes.
type Service struct {
	ledger    activityLister
	valuation balanceReader
}

func NewService(ledger activityLister, valuation balanceReader) *Service {
	return &Service{ledger: ledger, valuation: valuation}
}

type SnapshotOptions struct {
	// HideZeroStock drops rows whose quantity on hand is exactly zero.
	// Default is to include them: a pair that went to zero still has
	// meaningful history.
	HideZeroStock bool
}

// Balance returns the StockBalance for one pair as of cutoff. A pair with no
// activity yields a zero-valued balance.
func (s *Service) Balance(ctx context.Context, itemID, warehouseID string, cutoff time.Time) (domain.StockBalance, error) {
	if itemID == "" {
		return domain.StockBalance{}, fmt.Errorf("Balance: %w", domain.ErrMissingItem)
	}
	if warehouseID == "" {
		return domain.StockBalance{}, fmt.Errorf("Balance: %w", domain.ErrMissingWarehouse)
	}

	bal, err := s.valuation.StockBalance(ctx, itemID, warehouseID, cutoff)
	if err != nil {
		return domain.StockBalance{}, fmt.Errorf("Balance: %w", err)
	}
	return bal, nil
}

// Snapshot returns one StockBalance row per pair with any activity at or
// before cutoff, ordered by item then warehouse.
func (s *Service) Snapshot(ctx context.Context, cutoff time.Time, opts SnapshotOptions) ([]domain.StockBalance, error) {
	pairs, err := s.ledger.ItemsWithActivity(ctx, cutoff)
	if err != nil {
		return nil, fmt.Errorf("Snapshot: %w", err)
	}

	rows := make([]domain.StockBalance, 0, len(pairs))
	for _, p := range pairs {
		bal, err := s.valuation.StockBalance(ctx, p.ItemID, p.WarehouseID, cutoff)
		if err != nil {
			return nil, fmt.Errorf("Snapshot: %s/%s: %w", p.ItemID, p.WarehouseID, err)
		}
		if opts.HideZeroStock && bal.QtyOnHand.IsZero() {
			continue
		}
		rows = append(rows, bal)
	}
	return rows, nil
}
