// Package mempool maintains the pool of transactions waiting to be mined.
package mempool

import (
	"errors"
	"fmt"
	"sync"

	"github.com/ardanlabs/blockcraft/foundation/blockchain/database"
)

// ErrDuplicateTx is returned when a transaction is already in the pool.
var ErrDuplicateTx = errors.New("transaction already in the pool")

// Mempool represents a cache of transactions kept in the order they were
// submitted.
type Mempool struct {
	mu   sync.RWMutex
	pool []database.Tx
	ids  map[string]struct{}
}

// New constructs a new mempool.
func New() *Mempool {
	return &Mempool{
		ids: make(map[string]struct{}),
	}
}

// Count returns the current number of transaction in the pool.
func (mp *Mempool) Count() int {
	mp.mu.RLock()
	defer mp.mu.RUnlock()

	return len(mp.pool)
}

// Upsert adds the transaction to the end of the pool and returns the new
// size of the pool.
func (mp *Mempool) Upsert(tx database.Tx) (int, error) {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	if _, exists := mp.ids[tx.ID]; exists {
		return 0, fmt.Errorf("%w: tx[%s]", ErrDuplicateTx, tx.ID)
	}

	mp.pool = append(mp.pool, tx)
	mp.ids[tx.ID] = struct{}{}

	return len(mp.pool), nil
}

// Drain removes every transaction from the pool and returns them in order.
func (mp *Mempool) Drain() []database.Tx {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	trans := mp.pool
	mp.pool = nil
	mp.ids = make(map[string]struct{})

	return trans
}

// Restore places the transactions back at the front of the pool in their
// original order, ahead of anything submitted since they were drained.
func (mp *Mempool) Restore(trans []database.Tx) {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	pool := make([]database.Tx, 0, len(trans)+len(mp.pool))
	for _, tx := range trans {
		if _, exists := mp.ids[tx.ID]; exists {
			continue
		}
		pool = append(pool, tx)
		mp.ids[tx.ID] = struct{}{}
	}

	mp.pool = append(pool, mp.pool...)
}

// Copy returns the transactions in the pool in order without removing them.
func (mp *Mempool) Copy() []database.Tx {
	mp.mu.RLock()
	defer mp.mu.RUnlock()

	trans := make([]database.Tx, len(mp.pool))
	copy(trans, mp.pool)
	return trans
}

// Outflow returns the coins the account is sending in pooled transactions.
func (mp *Mempool) Outflow(accountID database.AccountID) uint64 {
	mp.mu.RLock()
	defer mp.mu.RUnlock()

	return Outflow(mp.pool, accountID)
}

// Truncate clears all the transactions from the pool.
func (mp *Mempool) Truncate() {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	mp.pool = nil
	mp.ids = make(map[string]struct{})
}

// =============================================================================

// Outflow returns the coins the account is sending in the transactions.
func Outflow(trans []database.Tx, accountID database.AccountID) uint64 {
	var total uint64
	for _, tx := range trans {
		if tx.FromID == accountID {
			total += tx.Value
		}
	}
	return total
}
