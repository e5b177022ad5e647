package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/emilio-cliff/stockledger/internal/domain"
)

type scanner interface {
	Scan(dest ...any) error
}

// LedgerStore is the persistence boundary for the stock ledger. Entries are
// append-only: no implementation ever mutates or removes a persisted entry.
// All entry-listing methods return entries ordered by
// (posting_date, sequence) ascending, and results are restartable by
// re-invoking the method.
type LedgerStore interface {
	// Append persists the given entries atomically: either all become
	// visible or none do. Sequence and CreatedAt are assigned here.
	Append(ctx context.Context, entries ...*domain.LedgerEntry) error

	// EntriesFor returns every entry for the pair with
	// posting_date <= cutoff.
	EntriesFor(ctx context.Context, itemID, warehouseID string, cutoff time.Time) ([]domain.LedgerEntry, error)

	// EntriesBetween returns every entry for the pair with
	// after < posting_date <= cutoff. Used by checkpointed replay.
	EntriesBetween(ctx context.Context, itemID, warehouseID string, after, cutoff time.Time) ([]domain.LedgerEntry, error)

	// EntriesByVoucher returns all entries produced by one business
	// transaction, e.g. both legs of a transfer.
	EntriesByVoucher(ctx context.Context, voucherID uuid.UUID) ([]domain.LedgerEntry, error)

	// ItemsWithActivity returns the distinct pairs having at least one
	// entry with posting_date <= cutoff, ordered by item then warehouse.
	ItemsWithActivity(ctx context.Context, cutoff time.Time) ([]domain.ItemWarehouse, error)
}

func validateAll(entries []*domain.LedgerEntry) error {
	for _, e := range entries {
		if err := e.Validate(); err != nil {
			return err
		}
	}
	return nil
}
