package valuation

import (
	"sync"
	"time"

	"github.com/emilio-cliff/stockledger/internal/domain"
)

// checkpoint is a cached replay result: state covers every entry with
// posting_date <= anchor. Strictly a cache — dropping it only costs a full
// replay.
type checkpoint struct {
	anchor time.Time
	state  domain.AverageState
}

// checkpointCache guards against two ways a cached state could go stale:
// a backdated append invalidates the pair's checkpoint outright, and a
// per-pair generation counter lets offer reject results whose underlying
// read was overlapped by any append. Readers capture the generation before
// listing entries; if an append lands before they offer, the generations
// no longer match and the stale result is discarded.
type checkpointCache struct {
	mu        sync.RWMutex
	minReplay int
	byPair    map[domain.ItemWarehouse]checkpoint
	gens      map[domain.ItemWarehouse]uint64
}

func newCheckpointCache(minReplay int) *checkpointCache {
	return &checkpointCache{
		minReplay: minReplay,
		byPair:    make(map[domain.ItemWarehouse]checkpoint),
		gens:      make(map[domain.ItemWarehouse]uint64),
	}
}

// get returns a checkpoint usable for the given cutoff, i.e. one whose
// anchor does not exceed it. Nil receivers (checkpointing disabled) miss.
func (c *checkpointCache) get(itemID, warehouseID string, cutoff time.Time) (checkpoint, bool) {
	if c == nil {
		return checkpoint{}, false
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	cp, ok := c.byPair[domain.ItemWarehouse{ItemID: itemID, WarehouseID: warehouseID}]
	if !ok || cp.anchor.After(cutoff) {
		return checkpoint{}, false
	}
	return cp, true
}

// generation returns the pair's current append generation. Capture it
// before reading entries and hand it back to offer.
func (c *checkpointCache) generation(itemID, warehouseID string) uint64 {
	if c == nil {
		return 0
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.gens[domain.ItemWarehouse{ItemID: itemID, WarehouseID: warehouseID}]
}

// noteAppend records that an entry was persisted for the pair: the
// generation moves so in-flight replays cannot cache their now-stale
// results, and a backdated posting date (at or before the anchor) drops the
// existing checkpoint, whose state no longer covers the prefix it claims to.
func (c *checkpointCache) noteAppend(itemID, warehouseID string, postingDate time.Time) {
	if c == nil {
		return
	}

	key := domain.ItemWarehouse{ItemID: itemID, WarehouseID: warehouseID}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.gens[key]++
	if cp, ok := c.byPair[key]; ok && !postingDate.After(cp.anchor) {
		delete(c.byPair, key)
	}
}

// offer stores a freshly computed state as the pair's checkpoint when the
// replay was long enough to be worth skipping next time, keeping the newest
// anchor. A result computed against a generation that has since moved is
// discarded: some append landed after the read, so the state may miss it.
func (c *checkpointCache) offer(itemID, warehouseID string, anchor time.Time, state domain.AverageState, replayed int, gen uint64) {
	if c == nil || replayed < c.minReplay {
		return
	}

	key := domain.ItemWarehouse{ItemID: itemID, WarehouseID: warehouseID}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.gens[key] != gen {
		return
	}
	if existing, ok := c.byPair[key]; ok && existing.anchor.After(anchor) {
		return
	}
	c.byPair[key] = checkpoint{anchor: anchor, state: state}
}
