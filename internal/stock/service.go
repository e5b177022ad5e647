package stock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/emilio-cliff/stockledger/internal/domain"
)

// appendAttempts bounds retries of the whole read-compute-append sequence
// when the store reports a serialization conflict.
const appendAttempts = 3

type ledgerAppender interface {
	Append(ctx context.Context, entries ...*domain.LedgerEntry) error
}

type stateReader interface {
	ComputeState(ctx context.Context, itemID, warehouseID string, cutoff time.Time) (domain.AverageState, error)
	NoteAppend(entry *domain.LedgerEntry)
}

// Policy configures how the processor treats movements that would drive a
// position negative.
type Policy struct {
	// AllowNegativeStock permits oversold (backorder) positions. When
	// false, an issue or transfer that would take quantity on hand below
	// zero fails with ErrInsufficientStock.
	AllowNegativeStock bool
}

// Service is the only writer to the ledger. It turns business events —
// receipts, issues, transfers — into immutable ledger entries, reading the
// moving-average rate under a per-(item, warehouse) lock so concurrent
// events against the same pair serialize while distinct pairs proceed
// independently.
type Service struct {
	ledger    ledgerAppender
	valuation stateReader
	policy    Policy
	locks     pairLocks
}

func NewService(ledger ledgerAppender, valuation stateReader, policy Policy) *Service {
	return &Service{
		ledger:    ledger,
		valuation: valuation,
		policy:    policy,
		locks:     newPairLocks(),
	}
}

type ReceiptRequest struct {
	ItemID      string
	WarehouseID string
	Quantity    decimal.Decimal
	Rate        decimal.Decimal
	PostingDate time.Time
	VoucherID   uuid.UUID
}

type IssueRequest struct {
	ItemID      string
	WarehouseID string
	Quantity    decimal.Decimal
	PostingDate time.Time
	VoucherID   uuid.UUID
}

type TransferRequest struct {
	ItemID            string
	SourceWarehouseID string
	DestWarehouseID   string
	Quantity          decimal.Decimal
	PostingDate       time.Time
	VoucherID         uuid.UUID
}

func validateMovement(itemID, warehouseID string, qty decimal.Decimal) error {
	if itemID == "" {
		return domain.ErrMissingItem
	}
	if warehouseID == "" {
		return domain.ErrMissingWarehouse
	}
	if !qty.IsPositive() {
		return domain.ErrInvalidQuantity
	}
	return nil
}

// effectivePostingDate defaults an unset posting date to now, mirroring the
// point-in-time query default.
func effectivePostingDate(t time.Time) time.Time {
	if t.IsZero() {
		return time.Now().UTC()
	}
	return t.UTC()
}

func effectiveVoucherID(id uuid.UUID) uuid.UUID {
	if id == uuid.Nil {
		return uuid.New()
	}
	return id
}

// appendWithRetry runs build to produce the entries, appends them, and
// notifies the valuation engine. On ErrConcurrencyConflict the whole
// read-compute-append sequence reruns, so a retried issue re-reads the rate
// instead of reusing a stale one.
func (s *Service) appendWithRetry(ctx context.Context, build func(context.Context) ([]*domain.LedgerEntry, error)) ([]*domain.LedgerEntry, error) {
	var lastErr error
	for attempt := 0; attempt < appendAttempts; attempt++ {
		entries, err := build(ctx)
		if err != nil {
			return nil, err
		}

		if err := s.ledger.Append(ctx, entries...); err != nil {
			if errors.Is(err, domain.ErrConcurrencyConflict) {
				lastErr = err
				continue
			}
			return nil, err
		}

		for _, e := range entries {
			s.valuation.NoteAppend(e)
		}
		return entries, nil
	}
	return nil, fmt.Errorf("append retries exhausted: %w", lastErr)
}
