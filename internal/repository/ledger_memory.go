package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/emilio-cliff/stockledger/internal/domain"
)

// MemoryLedgerStore keeps the ledger in process memory. It backs unit tests
// and embedded use; it honors the same ordering and atomicity contract as
// the SQL stores. Entries handed out are copies, so callers cannot reach
// back into stored state.
type MemoryLedgerStore struct {
	mu      sync.RWMutex
	seq     int64
	entries map[domain.ItemWarehouse][]domain.LedgerEntry
}

func NewMemoryLedgerStore() *MemoryLedgerStore {
	return &MemoryLedgerStore{
		entries: make(map[domain.ItemWarehouse][]domain.LedgerEntry),
	}
}

func (s *MemoryLedgerStore) Append(ctx context.Context, entries ...*domain.LedgerEntry) error {
	if err := validateAll(entries); err != nil {
		return fmt.Errorf("Append: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("Append: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	for _, e := range entries {
		s.seq++
		e.Sequence = s.seq
		if e.CreatedAt.IsZero() {
			e.CreatedAt = now
		}

		key := domain.ItemWarehouse{ItemID: e.ItemID, WarehouseID: e.WarehouseID}
		list := s.entries[key]

		// Insert in (posting_date, sequence) position. The new sequence
		// is the highest assigned so far, so a backdated entry lands
		// after existing entries sharing its posting date.
		i := sort.Search(len(list), func(i int) bool {
			return list[i].PostingDate.After(e.PostingDate)
		})
		list = append(list, domain.LedgerEntry{})
		copy(list[i+1:], list[i:])
		list[i] = *e
		s.entries[key] = list
	}
	return nil
}

func (s *MemoryLedgerStore) EntriesFor(ctx context.Context, itemID, warehouseID string, cutoff time.Time) ([]domain.LedgerEntry, error) {
	return s.entriesInRange(ctx, itemID, warehouseID, time.Time{}, cutoff, "EntriesFor")
}

func (s *MemoryLedgerStore) EntriesBetween(ctx context.Context, itemID, warehouseID string, after, cutoff time.Time) ([]domain.LedgerEntry, error) {
	return s.entriesInRange(ctx, itemID, warehouseID, after, cutoff, "EntriesBetween")
}

func (s *MemoryLedgerStore) entriesInRange(ctx context.Context, itemID, warehouseID string, after, cutoff time.Time, op string) ([]domain.LedgerEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	key := domain.ItemWarehouse{ItemID: itemID, WarehouseID: warehouseID}
	var out []domain.LedgerEntry
	for _, e := range s.entries[key] {
		if e.PostingDate.After(cutoff) {
			break
		}
		if !after.IsZero() && !e.PostingDate.After(after) {
			continue
		}
		out = append(out, e)
	}
	return out, nil
}

func (s *MemoryLedgerStore) EntriesByVoucher(ctx context.Context, voucherID uuid.UUID) ([]domain.LedgerEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("EntriesByVoucher: %w", err)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []domain.LedgerEntry
	for _, list := range s.entries {
		for _, e := range list {
			if e.VoucherID == voucherID {
				out = append(out, e)
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Sequence < out[j].Sequence })
	return out, nil
}

func (s *MemoryLedgerStore) ItemsWithActivity(ctx context.Context, cutoff time.Time) ([]domain.ItemWarehouse, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("ItemsWithActivity: %w", err)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var pairs []domain.ItemWarehouse
	for key, list := range s.entries {
		if len(list) > 0 && !list[0].PostingDate.After(cutoff) {
			pairs = append(pairs, key)
		}
	}
	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i].ItemID != pairs[j].ItemID {
			return pairs[i].ItemID < pairs[j].ItemID
		}
		return pairs[i].WarehouseID < pairs[j].WarehouseID
	})
	return pairs, nil
}
