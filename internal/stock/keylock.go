package stock

import (
	"sort"
	"sync"

	"github.com/emilio-cliff/stockledger/internal/domain"
)

// pairLocks serializes read-then-append sequences per (item, warehouse)
// pair. Locks live for the process lifetime; the map is bounded by the
// number of distinct pairs seen.
type pairLocks struct {
	mu    sync.Mutex
	locks map[domain.ItemWarehouse]*sync.Mutex
}

func newPairLocks() pairLocks {
	return pairLocks{locks: make(map[domain.ItemWarehouse]*sync.Mutex)}
}

func (p *pairLocks) get(key domain.ItemWarehouse) *sync.Mutex {
	p.mu.Lock()
	defer p.mu.Unlock()

	l, ok := p.locks[key]
	if !ok {
		l = &sync.Mutex{}
		p.locks[key] = l
	}
	return l
}

// lock acquires the pair's mutex and returns its unlock func.
func (p *pairLocks) lock(key domain.ItemWarehouse) func() {
	l := p.get(key)
	l.Lock()
	return l.Unlock
}

// lockInOrder acquires several pair locks in a deterministic (sorted) order
// so that two transfers touching the same pairs cannot deadlock.
func (p *pairLocks) lockInOrder(keys ...domain.ItemWarehouse) func() {
	sorted := make([]domain.ItemWarehouse, len(keys))
	copy(sorted, keys)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].ItemID != sorted[j].ItemID {
			return sorted[i].ItemID < sorted[j].ItemID
		}
		return sorted[i].WarehouseID < sorted[j].WarehouseID
	})

	unlocks := make([]func(), 0, len(sorted))
	for _, key := range sorted {
		unlocks = append(unlocks, p.lock(key))
	}
	return func() {
		for i := len(unlocks) - 1; i >= 0; i-- {
			unlocks[i]()
		}
	}
}
