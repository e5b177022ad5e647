package valuation

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/emilio-cliff/stockledger/internal/domain"
)

type ledgerReader interface {
	EntriesFor(ctx context.Context, itemID, warehouseID string, cutoff time.Time) ([]domain.LedgerEntry, error)
	EntriesBetween(ctx context.Context, itemID, warehouseID string, after, cutoff time.Time) ([]domain.LedgerEntry, error)
}

// Engine derives moving-average state purely by replaying ledger entries.
// The ledger is the only source of truth; the engine holds no authoritative
// state of its own. An optional checkpoint cache bounds replay cost for long
// histories and is always re-derivable from the log.
type Engine struct {
	ledger      ledgerReader
	checkpoints *checkpointCache
}

// NewEngine returns an engine over the given ledger. minReplay is the replay
// length above which a checkpoint is cached for the pair; zero or negative
// disables checkpointing.
func NewEngine(ledger ledgerReader, minReplay int) *Engine {
	var cache *checkpointCache
	if minReplay > 0 {
		cache = newCheckpointCache(minReplay)
	}
	return &Engine{ledger: ledger, checkpoints: cache}
}

// ComputeState replays every entry for the pair with posting_date <= cutoff,
// in (posting_date, sequence) order, and returns the resulting quantity on
// hand and moving-average rate. A pair with no activity yields the zero
// state, not an error.
func (e *Engine) ComputeState(ctx context.Context, itemID, warehouseID string, cutoff time.Time) (domain.AverageState, error) {
	state := domain.ZeroAverageState()

	// The generation is read before the entries so that offer can tell
	// whether an append overlapped this replay and made its result stale.
	gen := e.checkpoints.generation(itemID, warehouseID)

	var (
		entries []domain.LedgerEntry
		err     error
	)
	if cp, ok := e.checkpoints.get(itemID, warehouseID, cutoff); ok {
		state = cp.state
		entries, err = e.ledger.EntriesBetween(ctx, itemID, warehouseID, cp.anchor, cutoff)
	} else {
		entries, err = e.ledger.EntriesFor(ctx, itemID, warehouseID, cutoff)
	}
	if err != nil {
		return domain.AverageState{}, fmt.Errorf("ComputeState: %w", err)
	}

	for i := range entries {
		state = applyEntry(state, &entries[i])
	}

	e.checkpoints.offer(itemID, warehouseID, cutoff, state, len(entries), gen)
	return state, nil
}

// StockBalance is ComputeState plus the derived value = qty × average rate.
func (e *Engine) StockBalance(ctx context.Context, itemID, warehouseID string, cutoff time.Time) (domain.StockBalance, error) {
	state, err := e.ComputeState(ctx, itemID, warehouseID, cutoff)
	if err != nil {
		return domain.StockBalance{}, fmt.Errorf("StockBalance: %w", err)
	}
	return domain.StockBalance{
		ItemID:      itemID,
		WarehouseID: warehouseID,
		QtyOnHand:   state.QtyOnHand,
		AverageRate: state.AverageRate,
		Value:       state.QtyOnHand.Mul(state.AverageRate),
	}, nil
}

func (e *Engine) StockValue(ctx context.Context, itemID, warehouseID string, cutoff time.Time) (decimal.Decimal, error) {
	bal, err := e.StockBalance(ctx, itemID, warehouseID, cutoff)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("StockValue: %w", err)
	}
	return bal.Value, nil
}

// NoteAppend tells the engine a new entry was persisted. A backdated entry
// (posting date at or before a checkpoint anchor) invalidates that
// checkpoint, and the pair's generation moves so a replay that raced the
// append cannot cache a state missing it.
func (e *Engine) NoteAppend(entry *domain.LedgerEntry) {
	e.checkpoints.noteAppend(entry.ItemID, entry.WarehouseID, entry.PostingDate)
}

// applyEntry folds one entry into the running state.
//
// Inbound: the average becomes the quantity-weighted mix of prior stock and
// the incoming lot; if the fold lands exactly on zero quantity the incoming
// rate stands alone. Outbound: the quantity drops and the average is left
// untouched — the entry's stored rate already captured the average in effect
// when it was written, so historical replays reproduce the rate actually
// used at the time.
//
// Quantity on hand may go negative; that is an oversold/backorder position,
// not an arithmetic error, and the average stays at its last value.
func applyEntry(s domain.AverageState, e *domain.LedgerEntry) domain.AverageState {
	if !e.Inbound() {
		s.QtyOnHand = s.QtyOnHand.Add(e.QuantityDelta)
		return s
	}

	newQty := s.QtyOnHand.Add(e.QuantityDelta)
	if newQty.IsZero() {
		s.AverageRate = e.Rate
	} else {
		value := s.QtyOnHand.Mul(s.AverageRate).Add(e.QuantityDelta.Mul(e.Rate))
		s.AverageRate = value.Div(newQty)
	}
	s.QtyOnHand = newQty
	return s
}
